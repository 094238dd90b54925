package vm

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/types"
)

// jumpdestAnalysisCacheSize bounds the shared jumpdest-bitvec cache below —
// grounded on the teacher's code-analysis cache sizing in
// pkg/core/vm/contract.go, which keeps a bounded number of recently-run
// contracts' bitvecs warm across calls within a block instead of
// recomputing them every time the same contract is entered.
const jumpdestAnalysisCacheSize = 4096

// jumpdestAnalysisCache shares one contract's jumpdest analysis across every
// CallFrame that runs it in a process lifetime, keyed by code hash. A single
// Contract already memoizes its own analysis for repeated JUMPs within one
// frame (the jumpdests field below); this cache is what saves the second
// and later *calls* to the same popular contract (e.g. a proxy's
// implementation, hit by every transaction in a block) from re-walking its
// bytecode.
var jumpdestAnalysisCache, _ = lru.New(jumpdestAnalysisCacheSize)

// Contract is the code and gas accounting context for one call frame —
// grounded on the teacher's core/vm/contract.go (NewContract/GetOp/UseGas/
// SetCallCode/validJumpdest/analyzeJumpdests), generalized so Address and
// CodeAddr can differ (DELEGATECALL/CALLCODE run another account's code
// under this account's identity) and so jumpdest analysis runs once and is
// cached, not recomputed per JUMP.
type Contract struct {
	Caller  types.Address
	Address types.Address // the account whose storage/balance this frame acts on
	CodeAddr types.Address // the account the running code was fetched from

	Code     []byte
	CodeHash types.Hash
	Input    []byte

	Gas   uint64
	value *uint256.Int

	jumpdests *jumpdestBitvec
}

// NewContract builds a call frame's contract running as address on behalf
// of caller, with the call's value (zero for DELEGATECALL/STATICCALL) and
// gas. The code to run and the address it was loaded from (which may differ
// from address for DELEGATECALL/CALLCODE) are set afterwards by SetCallCode.
func NewContract(caller, address types.Address, value *uint256.Int, gas uint64) *Contract {
	if value == nil {
		value = new(uint256.Int)
	}
	return &Contract{Caller: caller, Address: address, value: value, Gas: gas}
}

// SetCallCode attaches the code running in this frame, fetched from
// codeAddr, and invalidates any cached jumpdest analysis.
func (c *Contract) SetCallCode(codeAddr types.Address, codeHash types.Hash, code []byte) {
	c.CodeAddr = codeAddr
	c.CodeHash = codeHash
	c.Code = code
	c.jumpdests = nil
}

// Value returns the wei value attached to this call.
func (c *Contract) Value() *uint256.Int { return c.value }

// GetOp returns the opcode at pc, or STOP past the end of code (the EVM
// treats falling off the end of code as an implicit STOP).
func (c *Contract) GetOp(pc uint64) OpCode {
	if pc >= uint64(len(c.Code)) {
		return STOP
	}
	return OpCode(c.Code[pc])
}

// UseGas deducts amount from the frame's remaining gas, failing with
// ErrOutOfGas if insufficient.
func (c *Contract) UseGas(amount uint64) error {
	if c.Gas < amount {
		return ErrOutOfGas
	}
	c.Gas -= amount
	return nil
}

// RefundGas adds gas back to the frame (used when a subcall returns unused
// gas, or EIP-150's stipend bookkeeping).
func (c *Contract) RefundGas(amount uint64) { c.Gas += amount }

// ValidJumpdest reports whether dest is an in-range JUMPDEST opcode that is
// not itself inside a PUSH immediate — computed once per contract and
// cached, grounded on the teacher's bitvec jumpdest analysis.
func (c *Contract) ValidJumpdest(dest *uint256.Int) bool {
	if !dest.IsUint64() {
		return false
	}
	udest := dest.Uint64()
	if udest >= uint64(len(c.Code)) {
		return false
	}
	if c.jumpdests == nil {
		c.jumpdests = cachedJumpdestAnalysis(c.CodeHash, c.Code)
	}
	return OpCode(c.Code[udest]) == JUMPDEST && c.jumpdests.isCode(udest)
}

// cachedJumpdestAnalysis returns code's jumpdest bitvec, consulting (and
// populating) the shared LRU first. The zero hash is never cached: it
// means the caller has no stable identity for code (e.g. CREATE init code,
// which exists nowhere else), so every lookup would collide on the same
// key for unrelated bytecode.
func cachedJumpdestAnalysis(codeHash types.Hash, code []byte) *jumpdestBitvec {
	zero := types.Hash{}
	if codeHash == zero {
		return analyzeJumpdests(code)
	}
	if cached, ok := jumpdestAnalysisCache.Get(codeHash); ok {
		return cached.(*jumpdestBitvec)
	}
	bits := analyzeJumpdests(code)
	jumpdestAnalysisCache.Add(codeHash, bits)
	return bits
}

// jumpdestBitvec marks which byte offsets in code are opcodes (true) versus
// PUSH immediate-data bytes (false), so JUMP/JUMPI can reject jumping into
// the middle of a PUSH's argument even when that byte's value happens to
// equal 0x5b (JUMPDEST).
type jumpdestBitvec []bool

func (b jumpdestBitvec) isCode(pos uint64) bool {
	if pos >= uint64(len(b)) {
		return false
	}
	return b[pos]
}

// analyzeJumpdests walks code once, marking every byte that is an opcode
// (not a PUSH immediate) as code.
func analyzeJumpdests(code []byte) *jumpdestBitvec {
	bits := make(jumpdestBitvec, len(code))
	for pc := 0; pc < len(code); {
		bits[pc] = true
		op := OpCode(code[pc])
		if op.IsPush() {
			pc += 1 + op.PushSize()
		} else {
			pc++
		}
	}
	return &bits
}
