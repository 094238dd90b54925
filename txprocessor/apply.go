package txprocessor

import (
	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/types"
	"github.com/corevm-project/corevm/vm"
)

// ApplyMessage runs one transaction end to end: hook.PrepareExecution,
// the EVM's top-level CALL or CREATE, and hook.FinalizeExecution — the
// (J -> G -> H -> I) control flow spec.md §2 describes. It is the single
// entry point the enclosing block processor calls once per transaction.
func ApplyMessage(evm *vm.EVM, msg *types.Message, hook Hook) (*vm.ExecutionReport, error) {
	if err := hook.PrepareExecution(evm, msg); err != nil {
		return nil, err
	}

	intrinsic := IntrinsicGas(msg, evm.Rules)
	gas := msg.GasLimit - intrinsic

	var (
		ret     []byte
		leftOver uint64
		execErr error
		created types.Address
		isCreate bool
	)
	if msg.Kind == types.TxKindCreate {
		ret, created, leftOver, execErr = evm.Create(msg.From, msg.Data, gas, valueOrZero(msg))
		isCreate = true
	} else {
		ret, leftOver, execErr = evm.Call(msg.From, msg.To, msg.Data, gas, valueOrZero(msg))
	}

	report := &vm.ExecutionReport{
		Status:          vm.StatusFromError(execErr),
		Err:             execErr,
		GasUsed:         msg.GasLimit - leftOver,
		ReturnData:      ret,
		Logs:            evm.State.Logs(),
		ContractCreated: isCreate && execErr == nil,
		CreatedAddress:  created,
	}

	if err := hook.FinalizeExecution(evm, msg, report); err != nil {
		return report, err
	}
	return report, nil
}

// valueOrZero substitutes a fresh zero word for a nil Value so Call/Create
// never has to nil-check it.
func valueOrZero(msg *types.Message) *uint256.Int {
	if msg.Value == nil {
		return new(uint256.Int)
	}
	return msg.Value
}
