package vm

import (
	"github.com/corevm-project/corevm/types"
)

// Status classifies how a transaction's outermost frame finished —
// spec.md §2's "execution report" output, grounded on the teaching
// examples' receipt-status conventions (a single success/failure bit plus,
// here, enough detail for the caller to tell an EVM revert from an
// exceptional halt without string-matching an error).
type Status uint8

const (
	// StatusSuccess is a normal STOP/RETURN/SELFDESTRUCT/implicit-STOP halt.
	StatusSuccess Status = iota
	// StatusRevert is a REVERT opcode, or a Solidity-style require() failure
	// surfaced through one: return data is preserved.
	StatusRevert
	// StatusFailed is any other exceptional halt (out of gas, invalid
	// opcode, invalid jump, stack over/underflow, static violation, ...):
	// return data is empty and all gas forwarded to the frame is consumed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRevert:
		return "revert"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ExecutionReport is the complete result of running one transaction
// end-to-end (spec.md §2/§6): status, the gas actually spent, the refund
// applied, the return data, the logs emitted, and — for a CREATE
// transaction — the address of the deployed contract.
type ExecutionReport struct {
	Status Status
	Err    error

	GasUsed     uint64
	GasRefunded uint64

	ReturnData []byte
	Logs       []types.Log

	// CreatedAddress is set only for a successful CREATE/CREATE2 top-level
	// transaction.
	CreatedAddress types.Address
	ContractCreated bool
}

// Succeeded reports whether the transaction's outermost frame completed
// without reverting or halting exceptionally.
func (r *ExecutionReport) Succeeded() bool { return r.Status == StatusSuccess }

// StatusFromError classifies the error Call/Create returns into the Status
// an ExecutionReport surfaces: only ErrExecutionReverted preserves return
// data, every other error is a failed (no-data) halt.
func StatusFromError(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	if err == ErrExecutionReverted {
		return StatusRevert
	}
	return StatusFailed
}
