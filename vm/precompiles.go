package vm

import (
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/crypto"
	"github.com/corevm-project/corevm/params"
	"github.com/corevm-project/corevm/types"
)

// PrecompiledContract is the interface component K's dispatch table runs
// every precompile kind through — grounded on the teacher's
// core/vm/precompiles.go PrecompiledContract (RequiredGas/Run split so gas
// can be checked before the (possibly expensive) cryptographic work runs).
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

func wordCount(size int) uint64 {
	if size == 0 {
		return 0
	}
	return uint64((size + 31) / 32)
}

func padRight(data []byte, minLen int) []byte {
	if len(data) >= minLen {
		return data
	}
	padded := make([]byte, minLen)
	copy(padded, data)
	return padded
}

func boolToWord(b bool) []byte {
	out := make([]byte, 32)
	if b {
		out[31] = 1
	}
	return out
}

// --- 0x01 ecrecover ---

type ecrecoverPrecompile struct{}

func (ecrecoverPrecompile) RequiredGas([]byte) uint64 { return 3000 }

func (ecrecoverPrecompile) Run(input []byte) ([]byte, error) {
	input = padRight(input, 128)
	hash := input[0:32]
	v := input[32:64]
	r := input[64:96]
	s := input[96:128]

	// v must fit a byte and be 27 or 28 (Ethereum's recovery-ID convention);
	// anything else is an invalid-signature precompile result, not a revert.
	for _, b := range v[:31] {
		if b != 0 {
			return nil, nil
		}
	}
	vByte := v[31]
	if vByte != 27 && vByte != 28 {
		return nil, nil
	}

	rWord := new(uint256.Int).SetBytes(r)
	sWord := new(uint256.Int).SetBytes(s)
	if !crypto.ValidateSignatureValues(vByte-27, rWord, sWord, true) {
		return nil, nil
	}

	sig := make([]byte, 65)
	copy(sig[0:32], r)
	copy(sig[32:64], s)
	sig[64] = vByte

	addrOut, err := crypto.RecoverAddress(hash, sig)
	if err != nil {
		return nil, nil
	}
	out := make([]byte, 32)
	copy(out[12:], addrOut.Bytes())
	return out, nil
}

// --- 0x02 sha256 ---

type sha256Precompile struct{}

func (sha256Precompile) RequiredGas(input []byte) uint64 { return 60 + 12*wordCount(len(input)) }
func (sha256Precompile) Run(input []byte) ([]byte, error) {
	return crypto.Sha256(input), nil
}

// --- 0x03 ripemd160 ---

type ripemd160Precompile struct{}

func (ripemd160Precompile) RequiredGas(input []byte) uint64 { return 600 + 120*wordCount(len(input)) }
func (ripemd160Precompile) Run(input []byte) ([]byte, error) {
	return crypto.Ripemd160(input), nil
}

// --- 0x04 identity ---

type identityPrecompile struct{}

func (identityPrecompile) RequiredGas(input []byte) uint64 { return 15 + 3*wordCount(len(input)) }
func (identityPrecompile) Run(input []byte) ([]byte, error) {
	return crypto.Identity(input), nil
}

// --- 0x05 modexp (EIP-2565 post-Berlin formula) ---

type modexpPrecompile struct{ eip2565 bool }

func (p modexpPrecompile) RequiredGas(input []byte) uint64 {
	input = padRight(input, 96)
	baseLen := bigEndianUint64(input[24:32])
	expLen := bigEndianUint64(input[56:64])
	modLen := bigEndianUint64(input[88:96])

	adjExpLen := modexpAdjustedExpLen(expLen, baseLen, input[96:])
	maxLen := baseLen
	if modLen > maxLen {
		maxLen = modLen
	}
	if p.eip2565 {
		words := (maxLen + 7) / 8
		gas := words * words * maxUint64(adjExpLen, 1)
		gas /= 3
		if gas < 200 {
			gas = 200
		}
		return gas
	}
	words := (maxLen + 7) / 8
	gas := words * words * maxUint64(adjExpLen, 1)
	gas /= 20
	if gas < 200 {
		gas = 200
	}
	return gas
}

func (modexpPrecompile) Run(input []byte) ([]byte, error) {
	input = padRight(input, 96)
	baseLen := bigEndianUint64(input[24:32])
	expLen := bigEndianUint64(input[56:64])
	modLen := bigEndianUint64(input[88:96])

	data := input[96:]
	base := getDataSlice(data, 0, baseLen)
	exp := getDataSlice(data, baseLen, expLen)
	mod := getDataSlice(data, baseLen+expLen, modLen)
	return crypto.ModExp(baseLen, expLen, modLen, base, exp, mod), nil
}

func bigEndianUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	if v > 1<<32 {
		return 1 << 32 // saturate: lengths this large already fail elsewhere
	}
	return v
}

func getDataSlice(data []byte, offset, length uint64) []byte {
	if length == 0 {
		return nil
	}
	result := make([]byte, length)
	if offset >= uint64(len(data)) {
		return result
	}
	end := offset + length
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	copy(result, data[offset:end])
	return result
}

func modexpAdjustedExpLen(expLen, baseLen uint64, data []byte) uint64 {
	if expLen <= 32 {
		expData := getDataSlice(data, baseLen, expLen)
		bitLen := bitLenBytes(expData)
		if bitLen == 0 {
			return 0
		}
		return uint64(bitLen - 1)
	}
	firstExpData := getDataSlice(data, baseLen, 32)
	bitLen := bitLenBytes(firstExpData)
	adj := uint64(0)
	if bitLen > 0 {
		adj = uint64(bitLen - 1)
	}
	return adj + 8*(expLen-32)
}

func bitLenBytes(b []byte) int {
	for i, c := range b {
		if c != 0 {
			return (len(b)-i-1)*8 + bitLen8(c)
		}
	}
	return 0
}

func bitLen8(c byte) int {
	n := 0
	for c != 0 {
		n++
		c >>= 1
	}
	return n
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// --- 0x06/0x07/0x08 bn254 (EIP-196/197, repriced by EIP-1108 at Istanbul) ---

type bn254AddPrecompile struct{ gas uint64 }

func (p bn254AddPrecompile) RequiredGas([]byte) uint64 { return p.gas }
func (bn254AddPrecompile) Run(input []byte) ([]byte, error) {
	return crypto.BN254Add(padRight(input, 128))
}

type bn254MulPrecompile struct{ gas uint64 }

func (p bn254MulPrecompile) RequiredGas([]byte) uint64 { return p.gas }
func (bn254MulPrecompile) Run(input []byte) ([]byte, error) {
	return crypto.BN254Mul(padRight(input, 96))
}

type bn254PairingPrecompile struct{ baseGas, perPairGas uint64 }

func (p bn254PairingPrecompile) RequiredGas(input []byte) uint64 {
	k := uint64(len(input)) / 192
	return p.baseGas + p.perPairGas*k
}

func (bn254PairingPrecompile) Run(input []byte) ([]byte, error) {
	if len(input)%192 != 0 {
		return nil, errInvalidInputLength
	}
	ok, err := crypto.BN254Pairing(input)
	if err != nil {
		return nil, err
	}
	return boolToWord(ok), nil
}

var errInvalidInputLength = newErr(KindRange, "precompile input length invalid")

// --- 0x09 blake2f ---

type blake2fPrecompile struct{}

func (blake2fPrecompile) RequiredGas(input []byte) uint64 {
	if len(input) < 4 {
		return 0
	}
	return uint64(binary.BigEndian.Uint32(input[:4]))
}

func (blake2fPrecompile) Run(input []byte) ([]byte, error) {
	return crypto.Blake2FCompress(input)
}

// --- 0x0a KZG point evaluation (EIP-4844) ---

type kzgPrecompile struct{}

func (kzgPrecompile) RequiredGas([]byte) uint64 { return 50000 }
func (kzgPrecompile) Run(input []byte) ([]byte, error) {
	return crypto.PointEvaluationPrecompile(input)
}

// --- 0x0b-0x13 BLS12-381 family (EIP-2537, Prague+) ---

type blsG1AddPrecompile struct{}

func (blsG1AddPrecompile) RequiredGas([]byte) uint64 { return 500 }
func (blsG1AddPrecompile) Run(input []byte) ([]byte, error) { return crypto.BLS12381G1Add(input) }

type blsG1MulPrecompile struct{}

func (blsG1MulPrecompile) RequiredGas([]byte) uint64 { return 12000 }
func (blsG1MulPrecompile) Run(input []byte) ([]byte, error) { return crypto.BLS12381G1Mul(input) }

// blsG1MSMPrecompile charges the EIP-2537 multi-scalar-multiplication
// price through blsMSMGas, which uses one fixed discount in place of the
// EIP's per-k discount table.
type blsG1MSMPrecompile struct{}

func (blsG1MSMPrecompile) RequiredGas(input []byte) uint64 {
	return blsMSMGas(len(input), 160, 12000)
}
func (blsG1MSMPrecompile) Run(input []byte) ([]byte, error) { return crypto.BLS12381G1MSM(input) }

type blsG2AddPrecompile struct{}

func (blsG2AddPrecompile) RequiredGas([]byte) uint64 { return 800 }
func (blsG2AddPrecompile) Run(input []byte) ([]byte, error) { return crypto.BLS12381G2Add(input) }

type blsG2MulPrecompile struct{}

func (blsG2MulPrecompile) RequiredGas([]byte) uint64 { return 45000 }
func (blsG2MulPrecompile) Run(input []byte) ([]byte, error) { return crypto.BLS12381G2Mul(input) }

type blsG2MSMPrecompile struct{}

func (blsG2MSMPrecompile) RequiredGas(input []byte) uint64 {
	return blsMSMGas(len(input), 288, 45000)
}
func (blsG2MSMPrecompile) Run(input []byte) ([]byte, error) { return crypto.BLS12381G2MSM(input) }

// blsMSMGas is EIP-2537's multiplication-discount formula with one fixed
// discount: k pairs cost perPairGas*k*174/1000, floored at perPairGas*k/10,
// for every k; the EIP's 128-entry per-k lookup table is not reproduced.
func blsMSMGas(inputLen, pairSize int, perPairGas uint64) uint64 {
	if pairSize == 0 {
		return 0
	}
	k := uint64(inputLen / pairSize)
	if k == 0 {
		return 0
	}
	const maxDiscount = 174
	gas := perPairGas * k * maxDiscount / 1000
	min := perPairGas * k / 10
	if gas < min {
		gas = min
	}
	return gas
}

type blsPairingPrecompile struct{}

func (blsPairingPrecompile) RequiredGas(input []byte) uint64 {
	k := uint64(len(input)) / 384
	return 32600*k + 37700
}

func (blsPairingPrecompile) Run(input []byte) ([]byte, error) {
	ok, err := crypto.BLS12381Pairing(input)
	if err != nil {
		return nil, err
	}
	return boolToWord(ok), nil
}

type blsMapFpToG1Precompile struct{}

func (blsMapFpToG1Precompile) RequiredGas([]byte) uint64 { return 5500 }
func (blsMapFpToG1Precompile) Run(input []byte) ([]byte, error) { return crypto.MapFpToG1(input) }

type blsMapFp2ToG2Precompile struct{}

func (blsMapFp2ToG2Precompile) RequiredGas([]byte) uint64 { return 23800 }
func (blsMapFp2ToG2Precompile) Run(input []byte) ([]byte, error) { return crypto.MapFp2ToG2(input) }

// PrecompiledContractsForRules returns the address -> contract map active
// under rules, built the way the teacher layers PrecompiledContractsCancun
// (component K's "map target address -> precompile kind"): bn254 is
// present from Byzantium but repriced at Istanbul (EIP-1108); modexp is
// repriced at Berlin (EIP-2565) and keeps that pricing in later forks; KZG
// joins at Cancun; the BLS12-381 family joins at Prague (EIP-2537).
func PrecompiledContractsForRules(rules params.Rules) map[types.Address]PrecompiledContract {
	m := map[types.Address]PrecompiledContract{
		addr(1): ecrecoverPrecompile{},
		addr(2): sha256Precompile{},
		addr(3): ripemd160Precompile{},
		addr(4): identityPrecompile{},
	}
	if !rules.IsByzantium {
		return m
	}
	if rules.IsIstanbul {
		m[addr(6)] = bn254AddPrecompile{gas: 150}
		m[addr(7)] = bn254MulPrecompile{gas: 6000}
		m[addr(8)] = bn254PairingPrecompile{baseGas: 45000, perPairGas: 34000}
	} else {
		m[addr(6)] = bn254AddPrecompile{gas: 500}
		m[addr(7)] = bn254MulPrecompile{gas: 40000}
		m[addr(8)] = bn254PairingPrecompile{baseGas: 100000, perPairGas: 80000}
	}
	m[addr(5)] = modexpPrecompile{eip2565: rules.IsBerlin}
	if rules.IsIstanbul {
		m[addr(9)] = blake2fPrecompile{}
	}
	if rules.IsCancun {
		m[addr(0x0a)] = kzgPrecompile{}
	}
	if rules.IsPrague {
		m[addr(0x0b)] = blsG1AddPrecompile{}
		m[addr(0x0c)] = blsG1MulPrecompile{}
		m[addr(0x0d)] = blsG1MSMPrecompile{}
		m[addr(0x0e)] = blsG2AddPrecompile{}
		m[addr(0x0f)] = blsG2MulPrecompile{}
		m[addr(0x10)] = blsG2MSMPrecompile{}
		m[addr(0x11)] = blsPairingPrecompile{}
		m[addr(0x12)] = blsMapFpToG1Precompile{}
		m[addr(0x13)] = blsMapFp2ToG2Precompile{}
	}
	return m
}

func addr(b byte) types.Address { return types.BytesToAddress([]byte{b}) }

// IsPrecompile reports whether addr names an active precompile under rules.
func IsPrecompile(target types.Address, rules params.Rules) bool {
	_, ok := PrecompiledContractsForRules(rules)[target]
	return ok
}

// RunPrecompile executes the precompile at target with the given input and
// gas budget, charging its RequiredGas fee atomically (spec.md §4.K: a
// precompile subcall either succeeds with unused gas returned, or consumes
// all forwarded gas).
func RunPrecompile(target types.Address, input []byte, gas uint64, rules params.Rules) ([]byte, uint64, error) {
	p, ok := PrecompiledContractsForRules(rules)[target]
	if !ok {
		return nil, gas, newErr(KindInternal, "not a precompile")
	}
	cost := p.RequiredGas(input)
	if gas < cost {
		return nil, 0, ErrOutOfGas
	}
	out, err := p.Run(input)
	if err != nil {
		return nil, 0, err
	}
	return out, gas - cost, nil
}
