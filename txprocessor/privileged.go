package txprocessor

import (
	"github.com/corevm-project/corevm/types"
	"github.com/corevm-project/corevm/vm"
)

// PrivilegedL2Hook processes operator-submitted transactions that an L2
// sequencer injects directly into a block — deposits from the L1 bridge,
// system calls — rather than transactions an ordinary account signed and
// paid for. Grounded on original_source's `Transaction::PrivilegedL2Transaction`
// match arm and its `L2Hook{recipient}`: the privileged sender neither pays
// gas up front nor has its nonce bumped (the L1 bridge contract would
// otherwise need a correctly-sequenced nonce for every deposit, which the
// bridge's own deposit-queue ordering already guarantees), but execution is
// still metered and refunded exactly as for a standard transaction.
//
// This supplements spec.md §9's "privileged-L2" example, which names the
// capability-set shape but does not specify this hook's behavior.
type PrivilegedL2Hook struct {
	// Recipient is the configured bridge/deposit contract address this hook
	// is scoped to servicing; PrepareExecution does not otherwise validate
	// that msg.To matches it (that belongs to the caller that chooses which
	// Hook to run for which transaction).
	Recipient types.Address
}

var _ Hook = PrivilegedL2Hook{}

// PrepareExecution skips the sender-balance deduction and nonce bump a
// StandardHook would perform, but still validates intrinsic gas and seeds
// the warm set, since gas metering inside the interpreter is unconditional.
func (PrivilegedL2Hook) PrepareExecution(evm *vm.EVM, msg *types.Message) error {
	if msg.GasLimit < IntrinsicGas(msg, evm.Rules) {
		return ErrIntrinsicGasTooLow
	}
	seedWarmSet(evm, msg)
	return nil
}

// FinalizeExecution runs the shared cleanup tail. Because PrepareExecution
// never charged the sender, there is no gas refund to pay back to
// msg.From — finalizeCleanup's refund-to-sender step still runs, but since
// no upfront deduction occurred it is additive: a privileged transaction's
// sender gains the unused-gas*price amount rather than recovering it. L2
// deployments that don't want this should route privileged transactions
// through a zero-gas-price Message so the refund amount is zero.
func (PrivilegedL2Hook) FinalizeExecution(evm *vm.EVM, msg *types.Message, report *vm.ExecutionReport) error {
	gasPrice := effectiveGasPrice(msg, evm.BaseFee)
	finalizeCleanup(evm, msg, report, gasPrice)
	return nil
}
