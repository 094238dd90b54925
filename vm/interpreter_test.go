package vm

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/crypto"
	"github.com/corevm-project/corevm/params"
	"github.com/corevm-project/corevm/state"
	"github.com/corevm-project/corevm/types"
)

func newTestEVM(fork params.Fork) *EVM {
	st := state.NewCacheView(nil)
	return NewEVM(BlockContext{GasLimit: 30_000_000}, TxContext{GasPrice: new(uint256.Int)}, st, params.RulesForFork(fork), 1)
}

func runCode(evm *EVM, addr types.Address, code []byte, gas uint64) (*CallFrame, []byte, error) {
	contract := NewContract(types.Address{}, addr, new(uint256.Int), gas)
	contract.SetCallCode(addr, types.Hash{}, code)
	frame := NewCallFrame(FrameCall, contract, 0, false)
	ret, err := evm.Run(frame)
	return frame, ret, err
}

// Boundary scenario 1: 1024 PUSH1s succeed and the 1025th overflows the
// stack (caught by the stack-bounds check, before its gas is charged).
func TestStackOverflowAt1025thPush(t *testing.T) {
	evm := newTestEVM(params.Cancun)
	code := make([]byte, 0, 1025*2)
	for i := 0; i < 1025; i++ {
		code = append(code, byte(PUSH1), 0x00)
	}
	addr := types.BytesToAddress([]byte{0x01})
	_, _, err := runCode(evm, addr, code, 1_000_000)

	verr, ok := err.(*VMError)
	if !ok || verr != ErrStackOverflow {
		t.Fatalf("err = %v, want ErrStackOverflow", err)
	}
}

// Boundary scenario 2: EIP-150's 63/64 rule. With 100 gas remaining after
// charging CALL's own base cost, the forwarded amount is capped at
// 100 - floor(100/64) = 99, regardless of how much the stack requests.
func TestCallGas63Over64Rule(t *testing.T) {
	got := CallGas(100, 1_000_000)
	if got != 99 {
		t.Fatalf("CallGas(100, 1_000_000) = %d, want 99", got)
	}
	// A request smaller than the cap is honored exactly.
	if got := CallGas(100, 10); got != 10 {
		t.Fatalf("CallGas(100, 10) = %d, want 10", got)
	}
}

// Boundary scenario 3: SSTORE refund accounting from Berlin on. Setting a
// zero slot to a nonzero value costs the cold SSTORE-set price with no
// refund; writing it back to the original (zero) value in the same frame
// nets out the set price entirely (refund = SstoreSet - WarmStorageReadCost
// = 19900), since the slot never actually ends up dirty relative to the
// transaction's start.
func TestSstoreSetThenClearRefundBerlin(t *testing.T) {
	evm := newTestEVM(params.Berlin)
	addr := types.BytesToAddress([]byte{0x02})
	key := types.Hash{}

	frame := &CallFrame{Contract: &Contract{Address: addr, Gas: 1_000_000}, Stack: NewStack()}
	one := uint256.NewInt(1)
	mustPushKV(t, frame.Stack, key, one)
	cost, err := gasSstore(evm, frame, 0)
	if err != nil {
		t.Fatalf("gasSstore(set): %v", err)
	}
	if cost != GasSstoreSet+ColdSloadCost {
		t.Fatalf("cold SSTORE-set cost = %d, want %d", cost, GasSstoreSet+ColdSloadCost)
	}
	if got := evm.State.GetRefund(); got != 0 {
		t.Fatalf("refund after set = %d, want 0", got)
	}
	evm.State.SetState(addr, key, types.BytesToHash([]byte{0x01}))

	frame2 := &CallFrame{Contract: &Contract{Address: addr, Gas: 1_000_000}, Stack: NewStack()}
	zero := new(uint256.Int)
	mustPushKV(t, frame2.Stack, key, zero)
	if _, err := gasSstore(evm, frame2, 0); err != nil {
		t.Fatalf("gasSstore(clear): %v", err)
	}
	if got := evm.State.GetRefund(); got != 19900 {
		t.Fatalf("refund after clear = %d, want 19900", got)
	}
}

// mustPushKV pushes (key, value) in the order gasSstore expects
// (Stack.Back(0) is key, Stack.Back(1) is value, so value is pushed first).
func mustPushKV(t *testing.T, s *Stack, key types.Hash, value *uint256.Int) {
	t.Helper()
	if err := s.Push(value); err != nil {
		t.Fatalf("push value: %v", err)
	}
	keyWord := new(uint256.Int).SetBytes(key[:])
	if err := s.Push(keyWord); err != nil {
		t.Fatalf("push key: %v", err)
	}
}

// Boundary scenario 4: bytecode `60 5B 56` (PUSH1 0x5B; JUMP) jumps to
// offset 1, which is inside PUSH1's immediate byte, not a valid JUMPDEST.
func TestJumpIntoPushImmediateIsInvalid(t *testing.T) {
	evm := newTestEVM(params.Cancun)
	code := []byte{byte(PUSH1), 0x5B, byte(JUMP)}
	addr := types.BytesToAddress([]byte{0x03})
	_, _, err := runCode(evm, addr, code, 1_000_000)

	verr, ok := err.(*VMError)
	if !ok || verr != ErrInvalidJump {
		t.Fatalf("err = %v, want ErrInvalidJump", err)
	}
}

// Boundary scenario 5: CREATE to an address that already has a nonce != 0
// (EIP-684 collision) pushes 0 and bumps the deployer's nonce, but does not
// touch the colliding account.
func TestCreateCollisionBumpsNonceNoDeploy(t *testing.T) {
	evm := newTestEVM(params.Cancun)
	deployer := types.BytesToAddress([]byte{0x04})
	evm.State.AddBalance(deployer, uint256.NewInt(1_000_000))

	existing := crypto.CreateAddress(deployer, 0)
	evm.State.SetNonce(existing, 1)

	_, addr, leftOverGas, err := evm.Create(deployer, []byte{byte(STOP)}, 1_000_000, new(uint256.Int))
	if err != ErrContractAddressCollision {
		t.Fatalf("err = %v, want ErrContractAddressCollision", err)
	}
	if addr != existing {
		t.Fatalf("collision address = %x, want %x", addr, existing)
	}
	if got := evm.State.GetNonce(deployer); got != 1 {
		t.Fatalf("deployer nonce after collision = %d, want 1 (still bumped)", got)
	}
	// EIP-684: a collision consumes the gas reserved for the call, it is not
	// refunded to the caller the way other CREATE failures are.
	if leftOverGas != 0 {
		t.Fatalf("leftover gas after collision = %d, want 0 (consumed)", leftOverGas)
	}
}

// A depth-exceeded CREATE must not bump the deployer's nonce (spec.md
// §4.I step 3) — the bug this pass fixed in vm/create.go.
func TestCreateDepthExceededDoesNotBumpNonce(t *testing.T) {
	evm := newTestEVM(params.Cancun)
	deployer := types.BytesToAddress([]byte{0x05})
	evm.depth = MaxCallDepth + 1

	_, _, _, err := evm.Create(deployer, []byte{byte(STOP)}, 1_000_000, new(uint256.Int))
	if err != ErrCallDepthExceeded {
		t.Fatalf("err = %v, want ErrCallDepthExceeded", err)
	}
	if got := evm.State.GetNonce(deployer); got != 0 {
		t.Fatalf("deployer nonce after depth failure = %d, want 0 (unbumped)", got)
	}
}

// An insufficient-balance CREATE must likewise leave the nonce unbumped.
func TestCreateInsufficientBalanceDoesNotBumpNonce(t *testing.T) {
	evm := newTestEVM(params.Cancun)
	deployer := types.BytesToAddress([]byte{0x06})

	_, _, _, err := evm.Create(deployer, []byte{byte(STOP)}, 1_000_000, uint256.NewInt(1))
	if err != ErrInsufficientBalance {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if got := evm.State.GetNonce(deployer); got != 0 {
		t.Fatalf("deployer nonce after balance failure = %d, want 0 (unbumped)", got)
	}
}

// presetStore is a fake state.Store backing a single preset nonzero storage
// slot, so a test can exercise the "reset" SSTORE branch (original == current,
// both nonzero) — which requires the committed value to be nonzero BEFORE the
// transaction's first touch of the slot, not set via CacheView.SetState (that
// would freeze "original" at zero instead, since it's observed through
// loadOriginal on first access).
type presetStore struct {
	addr types.Address
	key  types.Hash
	val  types.Hash
}

func (s *presetStore) GetAccount(addr types.Address) (types.Account, bool, error) {
	return types.Account{}, false, nil
}

func (s *presetStore) GetStorageSlot(addr types.Address, key types.Hash) (types.Hash, error) {
	if addr == s.addr && key == s.key {
		return s.val, nil
	}
	return types.Hash{}, nil
}

func (s *presetStore) GetBlockHash(number uint64) (types.Hash, error) {
	return types.Hash{}, nil
}

// Istanbul-pre-Berlin SSTORE charges the flat EIP-2200 reset cost (5000),
// not Berlin's discounted warm-path constant (2900) — the bug this pass
// fixed by threading fork-selected noop/reset costs into sstoreGas.
func TestSstoreResetCostIstanbulPreBerlin(t *testing.T) {
	addr := types.BytesToAddress([]byte{0x07})
	key := types.Hash{}
	st := state.NewCacheView(&presetStore{addr: addr, key: key, val: types.BytesToHash([]byte{0x01})})
	evm := NewEVM(BlockContext{GasLimit: 30_000_000}, TxContext{GasPrice: new(uint256.Int)}, st, params.RulesForFork(params.Istanbul), 1)

	frame := &CallFrame{Contract: &Contract{Address: addr, Gas: 1_000_000}, Stack: NewStack()}
	mustPushKV(t, frame.Stack, key, uint256.NewInt(2))
	cost, err := gasSstore(evm, frame, 0)
	if err != nil {
		t.Fatalf("gasSstore: %v", err)
	}
	if cost != 5000 {
		t.Fatalf("Istanbul SSTORE reset cost = %d, want 5000", cost)
	}
}

// The corresponding Berlin+ reset cost is the discounted 2900 plus a
// separate 2100 cold surcharge on first touch, totalling the same 5000 a
// cold access has always cost, but splitting warm re-access down to 2900.
func TestSstoreResetCostBerlinColdVsWarm(t *testing.T) {
	coldAddr := types.BytesToAddress([]byte{0x08})
	coldKey := types.Hash{}
	warmAddr := types.BytesToAddress([]byte{0x09})
	warmKey := types.BytesToHash([]byte{0x01})
	store := &multiPresetStore{
		slots: map[types.Address]map[types.Hash]types.Hash{
			coldAddr: {coldKey: types.BytesToHash([]byte{0x01})},
			warmAddr: {warmKey: types.BytesToHash([]byte{0x01})},
		},
	}
	evm := NewEVM(BlockContext{GasLimit: 30_000_000}, TxContext{GasPrice: new(uint256.Int)}, state.NewCacheView(store), params.RulesForFork(params.Berlin), 1)

	frame := &CallFrame{Contract: &Contract{Address: coldAddr, Gas: 1_000_000}, Stack: NewStack()}
	mustPushKV(t, frame.Stack, coldKey, uint256.NewInt(2))
	cost, err := gasSstore(evm, frame, 0)
	if err != nil {
		t.Fatalf("gasSstore(cold): %v", err)
	}
	if cost != GasSstoreReset+ColdSloadCost {
		t.Fatalf("Berlin cold SSTORE reset cost = %d, want %d", cost, GasSstoreReset+ColdSloadCost)
	}

	// warmAddr/warmKey is pre-warmed (but not yet SSTORE'd this tx) so its
	// first gasSstore touch below hits the reset branch without the cold
	// surcharge.
	evm.State.AddSlotToAccessList(warmAddr, warmKey)
	frame2 := &CallFrame{Contract: &Contract{Address: warmAddr, Gas: 1_000_000}, Stack: NewStack()}
	mustPushKV(t, frame2.Stack, warmKey, uint256.NewInt(3))
	cost2, err := gasSstore(evm, frame2, 0)
	if err != nil {
		t.Fatalf("gasSstore(warm): %v", err)
	}
	if cost2 != GasSstoreReset {
		t.Fatalf("Berlin warm SSTORE reset cost = %d, want %d", cost2, GasSstoreReset)
	}
}

// multiPresetStore backs several preset nonzero storage slots across
// different addresses, for tests needing more than one seeded slot.
type multiPresetStore struct {
	slots map[types.Address]map[types.Hash]types.Hash
}

func (s *multiPresetStore) GetAccount(addr types.Address) (types.Account, bool, error) {
	return types.Account{}, false, nil
}

func (s *multiPresetStore) GetStorageSlot(addr types.Address, key types.Hash) (types.Hash, error) {
	if m, ok := s.slots[addr]; ok {
		if v, ok := m[key]; ok {
			return v, nil
		}
	}
	return types.Hash{}, nil
}

func (s *multiPresetStore) GetBlockHash(number uint64) (types.Hash, error) {
	return types.Hash{}, nil
}
