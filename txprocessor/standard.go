package txprocessor

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/types"
	"github.com/corevm-project/corevm/vm"
)

// ErrIntrinsicGasTooLow is returned when a transaction's gas limit cannot
// even cover its pre-execution floor (spec.md §4.J).
var ErrIntrinsicGasTooLow = errors.New("intrinsic gas too low")

// ErrInsufficientFunds is returned when the sender cannot cover
// gasLimit*gasPrice + value + blob gas up front.
var ErrInsufficientFunds = errors.New("insufficient funds for gas * price + value")

// StandardHook is the Hook implementation for ordinary Ethereum
// transactions (Legacy, EIP-2930, 1559, 4844, 7702): spec.md §4.J exactly
// as written. Grounded on the teacher's pkg/core/processor.go ApplyMessage.
type StandardHook struct{}

var _ Hook = StandardHook{}

// PrepareExecution validates intrinsic gas, bumps the sender's nonce,
// deducts gasLimit*gasPrice + value + blob gas from the sender's balance up
// front, and seeds the warm-address/slot set.
//
// The nonce bump is skipped for TxKindCreate: evm.Create's own
// precheckCreate/Create already bumps the deployer's nonce exactly once
// (and derives the CREATE address from the pre-bump value), so bumping it
// here too would both double-increment the sender's nonce and make
// evm.Create compute the contract address from the wrong (already
// incremented) nonce.
func (StandardHook) PrepareExecution(evm *vm.EVM, msg *types.Message) error {
	if msg.GasLimit < IntrinsicGas(msg, evm.Rules) {
		return ErrIntrinsicGasTooLow
	}

	gasPrice := effectiveGasPrice(msg, evm.BaseFee)
	gasCost := new(uint256.Int).Mul(gasPrice, uint256.NewInt(msg.GasLimit))
	upfront := new(uint256.Int).Add(gasCost, blobGasCost(msg))
	if msg.Value != nil {
		upfront.Add(upfront, msg.Value)
	}

	if evm.State.GetBalance(msg.From).Cmp(upfront) < 0 {
		return ErrInsufficientFunds
	}

	if msg.Kind != types.TxKindCreate {
		evm.State.SetNonce(msg.From, evm.State.GetNonce(msg.From)+1)
	}
	evm.State.SubBalance(msg.From, upfront)

	seedWarmSet(evm, msg)
	return nil
}

// FinalizeExecution runs the shared refund/coinbase/cleanup tail; the
// sender-side balance deduction made in PrepareExecution is not reversed
// here (it was the correct upper-bound charge; the unused portion is what
// finalizeCleanup refunds).
func (StandardHook) FinalizeExecution(evm *vm.EVM, msg *types.Message, report *vm.ExecutionReport) error {
	gasPrice := effectiveGasPrice(msg, evm.BaseFee)
	finalizeCleanup(evm, msg, report, gasPrice)
	return nil
}
