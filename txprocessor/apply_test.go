package txprocessor

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/params"
	"github.com/corevm-project/corevm/state"
	"github.com/corevm-project/corevm/types"
	"github.com/corevm-project/corevm/vm"
)

type fakeStore struct {
	accounts map[types.Address]types.Account
}

func (s *fakeStore) GetAccount(addr types.Address) (types.Account, bool, error) {
	acc, ok := s.accounts[addr]
	return acc, ok, nil
}

func (s *fakeStore) GetStorageSlot(addr types.Address, key types.Hash) (types.Hash, error) {
	return types.Hash{}, nil
}

func (s *fakeStore) GetBlockHash(number uint64) (types.Hash, error) {
	return types.Hash{}, nil
}

var _ state.Store = (*fakeStore)(nil)

func newTestEVM(rules params.Rules, store state.Store) *vm.EVM {
	blockCtx := vm.BlockContext{
		Coinbase:    types.BytesToAddress([]byte{0xc0}),
		BlockNumber: 1,
		GasLimit:    30_000_000,
		BaseFee:     uint256.NewInt(1),
	}
	txCtx := vm.TxContext{GasPrice: uint256.NewInt(2)}
	return vm.NewEVM(blockCtx, txCtx, state.NewCacheView(store), rules, 1)
}

func TestApplyMessagePlainCallSucceeds(t *testing.T) {
	from := types.BytesToAddress([]byte{0x01})
	to := types.BytesToAddress([]byte{0x02})

	store := &fakeStore{accounts: map[types.Address]types.Account{
		from: {Balance: uint256.NewInt(1_000_000)},
		to:   {Balance: new(uint256.Int), Code: []byte{byte(vm.STOP)}},
	}}
	rules := params.RulesForFork(params.London)
	evm := newTestEVM(rules, store)

	msg := &types.Message{
		Kind:     types.TxKindCall,
		From:     from,
		To:       to,
		GasLimit: 100_000,
		GasPrice: uint256.NewInt(2),
	}

	report, err := ApplyMessage(evm, msg, StandardHook{})
	if err != nil {
		t.Fatalf("ApplyMessage() error = %v", err)
	}
	if !report.Succeeded() {
		t.Fatalf("report.Succeeded() = false, err = %v", report.Err)
	}
	if report.GasUsed == 0 {
		t.Fatalf("report.GasUsed = 0, want intrinsic gas charged")
	}

	// sender's nonce must have been bumped by PrepareExecution.
	if got := evm.State.GetNonce(from); got != 1 {
		t.Fatalf("sender nonce = %d, want 1", got)
	}
}

func TestApplyMessageIntrinsicGasTooLowRejected(t *testing.T) {
	from := types.BytesToAddress([]byte{0x01})
	to := types.BytesToAddress([]byte{0x02})

	store := &fakeStore{accounts: map[types.Address]types.Account{
		from: {Balance: uint256.NewInt(1_000_000)},
	}}
	rules := params.RulesForFork(params.London)
	evm := newTestEVM(rules, store)

	msg := &types.Message{
		Kind:     types.TxKindCall,
		From:     from,
		To:       to,
		GasLimit: 100, // far below the 21000 floor
		GasPrice: uint256.NewInt(2),
	}

	if _, err := ApplyMessage(evm, msg, StandardHook{}); err != ErrIntrinsicGasTooLow {
		t.Fatalf("ApplyMessage() error = %v, want ErrIntrinsicGasTooLow", err)
	}
}

func TestApplyMessageInsufficientFundsRejected(t *testing.T) {
	from := types.BytesToAddress([]byte{0x01})
	to := types.BytesToAddress([]byte{0x02})

	store := &fakeStore{accounts: map[types.Address]types.Account{
		from: {Balance: uint256.NewInt(1)}, // not nearly enough for gasLimit*gasPrice
	}}
	rules := params.RulesForFork(params.London)
	evm := newTestEVM(rules, store)

	msg := &types.Message{
		Kind:     types.TxKindCall,
		From:     from,
		To:       to,
		GasLimit: 100_000,
		GasPrice: uint256.NewInt(2),
	}

	if _, err := ApplyMessage(evm, msg, StandardHook{}); err != ErrInsufficientFunds {
		t.Fatalf("ApplyMessage() error = %v, want ErrInsufficientFunds", err)
	}
}

func TestApplyMessagePrivilegedHookSkipsNonceAndBalanceCharge(t *testing.T) {
	from := types.BytesToAddress([]byte{0x01})
	to := types.BytesToAddress([]byte{0x02})

	store := &fakeStore{accounts: map[types.Address]types.Account{
		from: {Balance: new(uint256.Int)}, // zero balance: StandardHook would reject this
		to:   {Balance: new(uint256.Int), Code: []byte{byte(vm.STOP)}},
	}}
	rules := params.RulesForFork(params.London)
	evm := newTestEVM(rules, store)

	msg := &types.Message{
		Kind:         types.TxKindCall,
		From:         from,
		To:           to,
		GasLimit:     100_000,
		GasPrice:     uint256.NewInt(2),
		IsPrivileged: true,
	}

	report, err := ApplyMessage(evm, msg, PrivilegedL2Hook{Recipient: to})
	if err != nil {
		t.Fatalf("ApplyMessage() error = %v", err)
	}
	if !report.Succeeded() {
		t.Fatalf("report.Succeeded() = false, err = %v", report.Err)
	}
	if got := evm.State.GetNonce(from); got != 0 {
		t.Fatalf("privileged sender nonce = %d, want unchanged 0", got)
	}
}
