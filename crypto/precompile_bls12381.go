package crypto

import (
	"errors"
	"math/big"

	blst "github.com/supranational/blst/bindings/go"
)

// BLS12-381 precompile family (EIP-2537): G1ADD/G1MUL/G1MSM, G2ADD/G2MUL/
// G2MSM, PAIRING, MAP_FP_TO_G1, MAP_FP2_TO_G2 — precompiles 0x0b through
// 0x12 on Prague+.
//
// Grounded on the teacher's bls_blst_adapter.go (same supranational/blst
// dependency, same P1/P2 affine-vs-jacobian idiom) but retargeted from BLS
// signature verification (MinPk scheme) to the raw curve operations EIP-2537
// exposes directly to contracts.

const (
	bls12381FpSize  = 64 // field elements are right-aligned in a 64-byte slot
	bls12381G1Size  = 2 * bls12381FpSize
	bls12381G2Size  = 4 * bls12381FpSize
	bls12381FpUsed  = 48 // blst's native Fp encoding width
)

var (
	ErrBLSInvalidLength = errors.New("bls12381: invalid input length")
	ErrBLSInvalidPoint  = errors.New("bls12381: invalid point encoding")
	ErrBLSInvalidScalar = errors.New("bls12381: invalid scalar encoding")
)

// bls12381TrimFp strips the 16 leading zero bytes EIP-2537 requires on each
// 64-byte field-element slot, yielding blst's native 48-byte encoding.
func bls12381TrimFp(b []byte) ([]byte, error) {
	if len(b) != bls12381FpSize {
		return nil, ErrBLSInvalidLength
	}
	for _, z := range b[:bls12381FpSize-bls12381FpUsed] {
		if z != 0 {
			return nil, ErrBLSInvalidPoint
		}
	}
	return b[bls12381FpSize-bls12381FpUsed:], nil
}

func bls12381PadFp(b []byte) []byte {
	out := make([]byte, bls12381FpSize)
	copy(out[bls12381FpSize-len(b):], b)
	return out
}

func bls12381DecodeG1(b []byte) (*blst.P1Affine, error) {
	if len(b) != bls12381G1Size {
		return nil, ErrBLSInvalidLength
	}
	x, err := bls12381TrimFp(b[0:bls12381FpSize])
	if err != nil {
		return nil, err
	}
	y, err := bls12381TrimFp(b[bls12381FpSize : 2*bls12381FpSize])
	if err != nil {
		return nil, err
	}
	raw := append(append([]byte{}, x...), y...)
	p := new(blst.P1Affine).Deserialize(raw)
	if p == nil {
		return nil, ErrBLSInvalidPoint
	}
	if !p.IsInG1() {
		return nil, ErrBLSInvalidPoint
	}
	return p, nil
}

func bls12381EncodeG1(p *blst.P1Affine) []byte {
	raw := p.Serialize() // 96 bytes uncompressed: X(48) || Y(48)
	out := make([]byte, bls12381G1Size)
	copy(out[0:bls12381FpSize], bls12381PadFp(raw[0:48]))
	copy(out[bls12381FpSize:], bls12381PadFp(raw[48:96]))
	return out
}

func bls12381DecodeG2(b []byte) (*blst.P2Affine, error) {
	if len(b) != bls12381G2Size {
		return nil, ErrBLSInvalidLength
	}
	xc1, err := bls12381TrimFp(b[0*bls12381FpSize : 1*bls12381FpSize])
	if err != nil {
		return nil, err
	}
	xc0, err := bls12381TrimFp(b[1*bls12381FpSize : 2*bls12381FpSize])
	if err != nil {
		return nil, err
	}
	yc1, err := bls12381TrimFp(b[2*bls12381FpSize : 3*bls12381FpSize])
	if err != nil {
		return nil, err
	}
	yc0, err := bls12381TrimFp(b[3*bls12381FpSize : 4*bls12381FpSize])
	if err != nil {
		return nil, err
	}
	raw := append(append(append(append([]byte{}, xc0...), xc1...), yc0...), yc1...)
	p := new(blst.P2Affine).Deserialize(raw)
	if p == nil {
		return nil, ErrBLSInvalidPoint
	}
	if !p.IsInG2() {
		return nil, ErrBLSInvalidPoint
	}
	return p, nil
}

func bls12381EncodeG2(p *blst.P2Affine) []byte {
	raw := p.Serialize() // 192 bytes: Xc0(48) Xc1(48) Yc0(48) Yc1(48)
	out := make([]byte, bls12381G2Size)
	copy(out[0*bls12381FpSize:], bls12381PadFp(raw[48:96]))
	copy(out[1*bls12381FpSize:], bls12381PadFp(raw[0:48]))
	copy(out[2*bls12381FpSize:], bls12381PadFp(raw[144:192]))
	copy(out[3*bls12381FpSize:], bls12381PadFp(raw[96:144]))
	return out
}

// BLS12381G1Add adds two G1 points (precompile 0x0b).
func BLS12381G1Add(input []byte) ([]byte, error) {
	if len(input) != 2*bls12381G1Size {
		return nil, ErrBLSInvalidLength
	}
	a, err := bls12381DecodeG1(input[:bls12381G1Size])
	if err != nil {
		return nil, err
	}
	b, err := bls12381DecodeG1(input[bls12381G1Size:])
	if err != nil {
		return nil, err
	}
	sum := new(blst.P1).FromAffine(a)
	sum.Add(b)
	return bls12381EncodeG1(sum.ToAffine()), nil
}

// BLS12381G1Mul multiplies a G1 point by a scalar (precompile 0x0c).
func BLS12381G1Mul(input []byte) ([]byte, error) {
	if len(input) != bls12381G1Size+32 {
		return nil, ErrBLSInvalidLength
	}
	p, err := bls12381DecodeG1(input[:bls12381G1Size])
	if err != nil {
		return nil, err
	}
	scalar := new(big.Int).SetBytes(input[bls12381G1Size:])
	res := new(blst.P1).FromAffine(p).Mult(scalar.Bytes())
	return bls12381EncodeG1(res.ToAffine()), nil
}

// BLS12381G1MSM computes a multi-scalar-multiplication over G1 (precompile
// 0x0d): a sequence of (point, scalar) pairs, summed.
func BLS12381G1MSM(input []byte) ([]byte, error) {
	const entry = bls12381G1Size + 32
	if len(input) == 0 || len(input)%entry != 0 {
		return nil, ErrBLSInvalidLength
	}
	acc := new(blst.P1)
	for i := 0; i < len(input); i += entry {
		chunk := input[i : i+entry]
		p, err := bls12381DecodeG1(chunk[:bls12381G1Size])
		if err != nil {
			return nil, err
		}
		scalar := new(big.Int).SetBytes(chunk[bls12381G1Size:])
		term := new(blst.P1).FromAffine(p).Mult(scalar.Bytes())
		if i == 0 {
			acc = term
		} else {
			acc.Add(term)
		}
	}
	return bls12381EncodeG1(acc.ToAffine()), nil
}

// BLS12381G2Add adds two G2 points (precompile 0x0e).
func BLS12381G2Add(input []byte) ([]byte, error) {
	if len(input) != 2*bls12381G2Size {
		return nil, ErrBLSInvalidLength
	}
	a, err := bls12381DecodeG2(input[:bls12381G2Size])
	if err != nil {
		return nil, err
	}
	b, err := bls12381DecodeG2(input[bls12381G2Size:])
	if err != nil {
		return nil, err
	}
	sum := new(blst.P2).FromAffine(a)
	sum.Add(b)
	return bls12381EncodeG2(sum.ToAffine()), nil
}

// BLS12381G2Mul multiplies a G2 point by a scalar (precompile 0x0f).
func BLS12381G2Mul(input []byte) ([]byte, error) {
	if len(input) != bls12381G2Size+32 {
		return nil, ErrBLSInvalidLength
	}
	p, err := bls12381DecodeG2(input[:bls12381G2Size])
	if err != nil {
		return nil, err
	}
	scalar := new(big.Int).SetBytes(input[bls12381G2Size:])
	res := new(blst.P2).FromAffine(p).Mult(scalar.Bytes())
	return bls12381EncodeG2(res.ToAffine()), nil
}

// BLS12381G2MSM computes a multi-scalar-multiplication over G2 (precompile
// 0x10).
func BLS12381G2MSM(input []byte) ([]byte, error) {
	const entry = bls12381G2Size + 32
	if len(input) == 0 || len(input)%entry != 0 {
		return nil, ErrBLSInvalidLength
	}
	acc := new(blst.P2)
	for i := 0; i < len(input); i += entry {
		chunk := input[i : i+entry]
		p, err := bls12381DecodeG2(chunk[:bls12381G2Size])
		if err != nil {
			return nil, err
		}
		scalar := new(big.Int).SetBytes(chunk[bls12381G2Size:])
		term := new(blst.P2).FromAffine(p).Mult(scalar.Bytes())
		if i == 0 {
			acc = term
		} else {
			acc.Add(term)
		}
	}
	return bls12381EncodeG2(acc.ToAffine()), nil
}

// BLS12381Pairing checks that the product of pairings of the given (G1,G2)
// pairs equals 1 in GT (precompile 0x11). An empty input trivially succeeds.
func BLS12381Pairing(input []byte) (bool, error) {
	const entry = bls12381G1Size + bls12381G2Size
	if len(input)%entry != 0 {
		return false, ErrBLSInvalidLength
	}
	count := len(input) / entry
	if count == 0 {
		return true, nil
	}

	g1s := make([]blst.P1Affine, 0, count)
	g2s := make([]blst.P2Affine, 0, count)
	for i := 0; i < count; i++ {
		chunk := input[i*entry : (i+1)*entry]
		p1, err := bls12381DecodeG1(chunk[:bls12381G1Size])
		if err != nil {
			return false, err
		}
		p2, err := bls12381DecodeG2(chunk[bls12381G1Size:])
		if err != nil {
			return false, err
		}
		g1s = append(g1s, *p1)
		g2s = append(g2s, *p2)
	}

	var acc blst.Fp12
	acc.One()
	for i := range g1s {
		var term blst.Fp12
		term.MillerLoop(&g2s[i], &g1s[i])
		acc.Mul(&term)
	}
	acc.FinalExp()

	var one blst.Fp12
	one.One()
	return acc.Equals(&one), nil
}

// MapFpToG1 implements the MAP_FP_TO_G1 precompile (0x12 pre-Osaka address
// plan rename; listed as 0x10 in some fork drafts — callers resolve the
// address, this implements the operation): maps a field element into G1 via
// the simplified SWU map.
func MapFpToG1(input []byte) ([]byte, error) {
	fpBytes, err := bls12381TrimFp(input)
	if err != nil {
		return nil, err
	}
	var fp blst.Fp
	fp.FromBEndian(fpBytes)
	p := blst.MapToG1(&fp, nil)
	return bls12381EncodeG1(p.ToAffine()), nil
}

// MapFp2ToG2 implements the MAP_FP2_TO_G2 precompile: maps an Fp2 element
// into G2 via the simplified SWU map.
func MapFp2ToG2(input []byte) ([]byte, error) {
	if len(input) != 2*bls12381FpSize {
		return nil, ErrBLSInvalidLength
	}
	c0, err := bls12381TrimFp(input[0:bls12381FpSize])
	if err != nil {
		return nil, err
	}
	c1, err := bls12381TrimFp(input[bls12381FpSize:])
	if err != nil {
		return nil, err
	}
	var fp2 blst.Fp2
	fp2.FromBEndian(append(append([]byte{}, c0...), c1...))
	p := blst.MapToG2(&fp2, nil)
	return bls12381EncodeG2(p.ToAffine()), nil
}
