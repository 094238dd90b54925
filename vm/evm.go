package vm

import (
	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/params"
	"github.com/corevm-project/corevm/state"
	"github.com/corevm-project/corevm/types"
)

// GetHashFunc resolves a recent block number to its hash for BLOCKHASH —
// component K's "last 256 blocks" window is enforced by the caller that
// supplies this func, not by the EVM itself.
type GetHashFunc func(number uint64) types.Hash

// BlockContext carries the block header fields opcode handlers read
// (COINBASE, TIMESTAMP, NUMBER, PREVRANDAO/DIFFICULTY, GASLIMIT, BASEFEE,
// BLOBBASEFEE), grounded on the teacher's interpreter.go BlockContext.
type BlockContext struct {
	GetHash     GetHashFunc
	Coinbase    types.Address
	BlockNumber uint64
	Time        uint64
	GasLimit    uint64
	BaseFee     *uint256.Int
	PrevRandao  types.Hash
	BlobBaseFee *uint256.Int
}

// TxContext carries the per-transaction fields (ORIGIN, GASPRICE, BLOBHASH),
// grounded on the teacher's interpreter.go TxContext.
type TxContext struct {
	Origin     types.Address
	GasPrice   *uint256.Int
	BlobHashes []types.Hash
}

// Tracer receives one StructuredLogEntry per opcode step (component L,
// SPEC_FULL §4.G) — grounded on the teacher's EVMLogger/structured_logger.go,
// collapsed to a single method since this module has no separate
// CaptureStart/CaptureEnd call-boundary tracing to offer beyond the per-step
// log.
type Tracer interface {
	CaptureState(entry StructuredLogEntry)
}

// StructuredLogEntry is one opcode-step trace record.
type StructuredLogEntry struct {
	PC      uint64
	Op      OpCode
	Gas     uint64
	GasCost uint64
	Depth   int
	Stack   []*uint256.Int
	Err     error
}

// EVM is the execution environment threading block/tx context, the active
// fork's rules/jump-table/precompile set, and the cached world-state view
// through nested call frames (spec.md §3's VM). Subcalls recurse through
// Go's own call stack (Call/Create call back into Run), bounded by
// MaxCallDepth — see frame.go's doc comment for why this repo doesn't carry
// an explicit frame/backup stack the way spec.md §9 describes it.
type EVM struct {
	BlockContext
	TxContext

	Rules       params.Rules
	jumpTable   JumpTable
	precompiles map[types.Address]PrecompiledContract

	State *state.CacheView

	depth    int
	readOnly bool

	// callGasTemp carries the gas a CALL-family dynamic-gas function reserved
	// for the child frame (EIP-150's 63/64 rule plus any stipend) from that
	// computation through to the opcode handler that actually spawns the
	// subcall — grounded on the teacher's Contract.Gas/callGasTemp handoff.
	callGasTemp uint64

	Tracer Tracer

	// ChainID is compared against EIP-7702 authorization-list entries and
	// exposed via CHAINID.
	ChainID uint64
}

// MaxCallDepth is the nested call-frame limit spec.md §3/§8 fixes at 1024.
const MaxCallDepth = 1024

// NewEVM constructs an EVM for one transaction against the given cached
// state view, with the jump table and precompile set resolved for rules.
func NewEVM(blockCtx BlockContext, txCtx TxContext, st *state.CacheView, rules params.Rules, chainID uint64) *EVM {
	return &EVM{
		BlockContext: blockCtx,
		TxContext:    txCtx,
		Rules:        rules,
		jumpTable:    jumpTableForFork(rules.Fork),
		precompiles:  PrecompiledContractsForRules(rules),
		State:        st,
		ChainID:      chainID,
	}
}

// jumpTableForFork selects the fork-appropriate opcode table, grounded on
// the teacher's SelectJumpTable switch.
func jumpTableForFork(fork params.Fork) JumpTable {
	switch {
	case fork >= params.Osaka:
		return NewOsakaJumpTable()
	case fork >= params.Prague:
		return NewPragueJumpTable()
	case fork >= params.Cancun:
		return NewCancunJumpTable()
	case fork >= params.Shanghai:
		return NewShanghaiJumpTable()
	case fork >= params.Paris:
		return NewParisJumpTable()
	case fork >= params.London:
		return NewLondonJumpTable()
	case fork >= params.Berlin:
		return NewBerlinJumpTable()
	case fork >= params.Istanbul:
		return NewIstanbulJumpTable()
	case fork >= params.Constantinople:
		return NewConstantinopleJumpTable()
	case fork >= params.Byzantium:
		return NewByzantiumJumpTable()
	case fork >= params.TangerineWhistle:
		return NewTangerineWhistleJumpTable()
	case fork >= params.Homestead:
		return NewHomesteadJumpTable()
	default:
		return NewFrontierJumpTable()
	}
}

// Depth reports the current call-stack depth (0 at the outermost frame).
func (evm *EVM) Depth() int { return evm.depth }

// ReadOnly reports whether the current frame runs under STATICCALL's write
// protection.
func (evm *EVM) ReadOnly() bool { return evm.readOnly }

// precompile looks up addr in the active fork's precompile set.
func (evm *EVM) precompile(addr types.Address) (PrecompiledContract, bool) {
	p, ok := evm.precompiles[addr]
	return p, ok
}
