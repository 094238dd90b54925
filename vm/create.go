package vm

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/crypto"
	"github.com/corevm-project/corevm/types"
	"github.com/corevm-project/corevm/word"
)

// maxCodeSize is EIP-170's 24576-byte cap on deployed code, active from
// Spurious Dragon on (params.Rules.MaxCodeSize is 0 before then, meaning
// unbounded).
const maxCodeSize = 24576

// createCollision reports whether addr is already an active account per
// spec.md §4.I step 4: it has sent a transaction or already carries code.
func createCollision(evm *EVM, addr types.Address) bool {
	return evm.State.GetNonce(addr) != 0 || evm.State.GetCodeSize(addr) != 0
}

// create runs initCode at the already-computed address addr, shared by
// Create/Create2 (which differ only in how addr and the forwarded gas
// charge are derived) — grounded on the teacher's core/vm/evm.go create.
// The caller (Create/Create2) has already checked depth, balance, and nonce
// overflow, and bumped caller's nonce, per spec.md §4.I step 3: those
// failures must not bump the nonce, so they cannot live here.
func (evm *EVM) create(caller types.Address, initCode []byte, gas uint64, value *uint256.Int, addr types.Address) ([]byte, types.Address, uint64, error) {
	if evm.Rules.MaxInitCodeSize != 0 && uint64(len(initCode)) > evm.Rules.MaxInitCodeSize {
		return nil, addr, gas, ErrMaxInitCodeSizeExceeded
	}
	if createCollision(evm, addr) {
		// EIP-684: the reserved gas is consumed, not refunded, on collision —
		// spec.md §4.I step 4 treats this as the contract's creation failing
		// after already having been charged for, unlike step 3's pre-checks.
		return nil, addr, 0, ErrContractAddressCollision
	}

	snapshot := evm.State.Snapshot()
	evm.State.CreateAccount(addr)
	if evm.Rules.IsSpuriousDragon {
		evm.State.SetNonce(addr, 1)
	}
	if value != nil && !value.IsZero() {
		evm.State.SubBalance(caller, value)
		evm.State.AddBalance(addr, value)
	}

	contract := NewContract(caller, addr, value, gas)
	contract.SetCallCode(addr, types.Hash{}, initCode)
	frame := NewCallFrame(FrameCreate, contract, evm.depth, false)

	evm.depth++
	ret, err := evm.Run(frame)
	evm.depth--

	if err == nil {
		err = evm.finalizeCreatedCode(contract, addr, ret)
	}

	if err != nil {
		evm.State.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			contract.Gas = 0
		}
	}
	return ret, addr, contract.Gas, err
}

// finalizeCreatedCode checks EIP-170's size cap and EIP-3541's 0xEF-prefix
// ban, charges the per-byte code-deposit gas, and installs the code —
// spec.md §4.I step 7.
func (evm *EVM) finalizeCreatedCode(contract *Contract, addr types.Address, code []byte) error {
	limit := uint64(maxCodeSize)
	if evm.Rules.MaxCodeSize != 0 {
		limit = evm.Rules.MaxCodeSize
	}
	if evm.Rules.IsSpuriousDragon && uint64(len(code)) > limit {
		return ErrMaxCodeSizeExceeded
	}
	if evm.Rules.IsLondon && len(code) > 0 && code[0] == 0xEF {
		return ErrInvalidCodeEntry
	}
	if err := contract.UseGas(GasCodeDeposit * uint64(len(code))); err != nil {
		return err
	}
	evm.State.SetCode(addr, crypto.Keccak256Hash(code), code)
	return nil
}

// precheckCreate runs spec.md §4.I step 3's depth/balance/nonce-overflow
// gate shared by CREATE and CREATE2: on any of these three failures the
// deployer's nonce must NOT be bumped, so this must run (and fail out)
// before the nonce increment every successful CREATE performs.
func (evm *EVM) precheckCreate(caller types.Address, value *uint256.Int) (nonce uint64, err error) {
	if evm.depth > MaxCallDepth {
		return 0, ErrCallDepthExceeded
	}
	if value != nil && !value.IsZero() && evm.State.GetBalance(caller).Cmp(value) < 0 {
		return 0, ErrInsufficientBalance
	}
	nonce = evm.State.GetNonce(caller)
	if nonce+1 < nonce {
		return 0, newErr(KindState, "deployer nonce overflow")
	}
	return nonce, nil
}

// Create implements CREATE: address = keccak256(rlp([caller, nonce]))[12:].
func (evm *EVM) Create(caller types.Address, initCode []byte, gas uint64, value *uint256.Int) ([]byte, types.Address, uint64, error) {
	nonce, err := evm.precheckCreate(caller, value)
	if err != nil {
		return nil, types.Address{}, gas, err
	}
	evm.State.SetNonce(caller, nonce+1)
	addr := crypto.CreateAddress(caller, nonce)
	return evm.create(caller, initCode, gas, value, addr)
}

// Create2 implements CREATE2: address = keccak256(0xff ++ caller ++ salt ++
// keccak256(initCode))[12:] (EIP-1014) — deterministic regardless of
// caller's nonce.
func (evm *EVM) Create2(caller types.Address, initCode []byte, gas uint64, value *uint256.Int, salt *uint256.Int) ([]byte, types.Address, uint64, error) {
	nonce, err := evm.precheckCreate(caller, value)
	if err != nil {
		return nil, types.Address{}, gas, err
	}
	evm.State.SetNonce(caller, nonce+1)
	initCodeHash := crypto.Keccak256(initCode)
	addr := crypto.CreateAddress2(caller, word.ToHash(salt), initCodeHash)
	return evm.create(caller, initCode, gas, value, addr)
}

// pushCreateResult pushes addr on success, or 0 on any failure, a revert
// included (REVERT's data is still surfaced via frame.ReturnData, but CREATE
// itself still reports failure with a 0 address per spec.md §4.I).
func pushCreateResult(frame *CallFrame, addr types.Address, err error) error {
	if err != nil {
		return frame.Stack.Push(new(uint256.Int))
	}
	return frame.Stack.Push(word.FromAddress(addr))
}

func opCreate(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	value, _ := frame.Stack.Pop()
	offset, _ := frame.Stack.Pop()
	size, _ := frame.Stack.Pop()
	initCode := frame.Memory.Get(offset.Uint64(), size.Uint64())

	gas := CallGas(frame.Contract.Gas, math.MaxUint64)
	if err := frame.Contract.UseGas(gas); err != nil {
		return nil, err
	}

	ret, addr, leftOverGas, err := evm.Create(frame.Contract.Address, initCode, gas, value)
	frame.Contract.RefundGas(leftOverGas)
	if err == ErrExecutionReverted {
		frame.ReturnData = ret
	} else {
		frame.ReturnData = nil
	}
	return nil, pushCreateResult(frame, addr, err)
}

func opCreate2(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	value, _ := frame.Stack.Pop()
	offset, _ := frame.Stack.Pop()
	size, _ := frame.Stack.Pop()
	salt, _ := frame.Stack.Pop()
	initCode := frame.Memory.Get(offset.Uint64(), size.Uint64())

	gas := CallGas(frame.Contract.Gas, math.MaxUint64)
	if err := frame.Contract.UseGas(gas); err != nil {
		return nil, err
	}

	ret, addr, leftOverGas, err := evm.Create2(frame.Contract.Address, initCode, gas, value, salt)
	frame.Contract.RefundGas(leftOverGas)
	if err == ErrExecutionReverted {
		frame.ReturnData = ret
	} else {
		frame.ReturnData = nil
	}
	return nil, pushCreateResult(frame, addr, err)
}
