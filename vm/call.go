package vm

import (
	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/types"
	"github.com/corevm-project/corevm/word"
)

// delegationDesignatorPrefix is EIP-7702's 3-byte marker: an EOA that has
// delegated execution installs exactly 0xef0100 ++ address as its code, and
// every codepath that runs "the code at an address" (CALL family; CREATE's
// collision check does not resolve it) follows the designator to address's
// code instead of treating the 23 bytes as runnable bytecode.
var delegationDesignatorPrefix = [3]byte{0xef, 0x01, 0x00}

func delegationTarget(code []byte) (types.Address, bool) {
	if len(code) != 23 {
		return types.Address{}, false
	}
	if code[0] != delegationDesignatorPrefix[0] || code[1] != delegationDesignatorPrefix[1] || code[2] != delegationDesignatorPrefix[2] {
		return types.Address{}, false
	}
	return types.BytesToAddress(code[3:]), true
}

// resolveCode returns the code (and its hash) that should actually run when
// entering addr, following one level of EIP-7702 delegation if addr's own
// code is a designator.
func resolveCode(evm *EVM, addr types.Address) (codeAddr types.Address, code []byte, codeHash types.Hash) {
	code = evm.State.GetCode(addr)
	if target, ok := delegationTarget(code); ok {
		return target, evm.State.GetCode(target), evm.State.GetCodeHash(target)
	}
	return addr, code, evm.State.GetCodeHash(addr)
}

// delegationAccessSurcharge is spec.md §4.I step 3's "add 2600/100 for the
// delegated address" — charged once per outer CALL-family access, on top of
// whatever the call's own target-access cost already charges, when target's
// code is an EIP-7702 designator. A no-op pre-Berlin (access-list
// accounting doesn't exist yet) and when target carries no designator.
func delegationAccessSurcharge(evm *EVM, target types.Address) uint64 {
	if !evm.Rules.IsBerlin {
		return 0
	}
	delegateTo, ok := delegationTarget(evm.State.GetCode(target))
	if !ok {
		return 0
	}
	return accessAccountColdWarmCost(evm, delegateTo)
}

// run executes one subcall's code (precompile or bytecode) against a fresh
// CallFrame, bumping/restoring evm.depth around it — the shared tail of
// Call/CallCode/StaticCall. contractAddr is whose storage/balance the frame
// acts on; codeSource is whose code runs (they differ for CALLCODE).
func (evm *EVM) run(typ CallFrameType, caller, contractAddr, codeSource types.Address, input []byte, gas uint64, value *uint256.Int, static bool) ([]byte, uint64, error) {
	if IsPrecompile(codeSource, evm.Rules) {
		ret, remaining, err := RunPrecompile(codeSource, input, gas, evm.Rules)
		return ret, remaining, err
	}

	codeAddr, code, codeHash := resolveCode(evm, codeSource)

	contract := NewContract(caller, contractAddr, value, gas)
	contract.Input = input
	contract.SetCallCode(codeAddr, codeHash, code)

	frame := NewCallFrame(typ, contract, evm.depth, static)

	evm.depth++
	wasReadOnly := evm.readOnly
	evm.readOnly = evm.readOnly || static
	ret, err := evm.Run(frame)
	evm.readOnly = wasReadOnly
	evm.depth--

	return ret, contract.Gas, err
}

// Call implements CALL: caller sends value to addr and runs its code,
// read-write.
func (evm *EVM) Call(caller, addr types.Address, input []byte, gas uint64, value *uint256.Int) ([]byte, uint64, error) {
	if evm.depth > MaxCallDepth {
		return nil, gas, ErrCallDepthExceeded
	}
	if value != nil && !value.IsZero() && evm.State.GetBalance(caller).Cmp(value) < 0 {
		return nil, gas, ErrInsufficientBalance
	}

	snapshot := evm.State.Snapshot()
	evm.State.MarkTouched(addr)

	if value != nil && !value.IsZero() {
		evm.State.SubBalance(caller, value)
		evm.State.AddBalance(addr, value)
	}

	ret, leftOverGas, err := evm.run(FrameCall, caller, addr, addr, input, gas, value, false)
	if err != nil {
		evm.State.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			leftOverGas = 0
		}
	}
	return ret, leftOverGas, err
}

// CallCode implements CALLCODE: like Call, but runs addr's code against the
// caller's own storage/balance (value is still transferred caller->caller,
// a historical quirk the opcode has always had).
func (evm *EVM) CallCode(caller, addr types.Address, input []byte, gas uint64, value *uint256.Int) ([]byte, uint64, error) {
	if evm.depth > MaxCallDepth {
		return nil, gas, ErrCallDepthExceeded
	}
	if value != nil && !value.IsZero() && evm.State.GetBalance(caller).Cmp(value) < 0 {
		return nil, gas, ErrInsufficientBalance
	}

	snapshot := evm.State.Snapshot()

	ret, leftOverGas, err := evm.run(FrameCallCode, caller, caller, addr, input, gas, value, false)
	if err != nil {
		evm.State.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			leftOverGas = 0
		}
	}
	return ret, leftOverGas, err
}

// DelegateCall implements DELEGATECALL: runs addr's code against the
// caller's storage/balance/identity, preserving the grandparent's caller and
// value rather than introducing evm's own.
func (evm *EVM) DelegateCall(contractAddr, addr types.Address, input []byte, gas uint64, value *uint256.Int, originalCaller types.Address) ([]byte, uint64, error) {
	if evm.depth > MaxCallDepth {
		return nil, gas, ErrCallDepthExceeded
	}

	snapshot := evm.State.Snapshot()

	codeAddr, code, codeHash := resolveCode(evm, addr)
	contract := NewContract(originalCaller, contractAddr, value, gas)
	contract.Input = input
	contract.SetCallCode(codeAddr, codeHash, code)
	frame := NewCallFrame(FrameDelegateCall, contract, evm.depth, evm.readOnly)

	evm.depth++
	ret, err := evm.Run(frame)
	evm.depth--

	if err != nil {
		evm.State.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			return ret, 0, err
		}
	}
	return ret, contract.Gas, err
}

// StaticCall implements STATICCALL: runs addr's code under write protection,
// value always zero.
func (evm *EVM) StaticCall(caller, addr types.Address, input []byte, gas uint64) ([]byte, uint64, error) {
	if evm.depth > MaxCallDepth {
		return nil, gas, ErrCallDepthExceeded
	}

	snapshot := evm.State.Snapshot()
	ret, leftOverGas, err := evm.run(FrameStaticCall, caller, addr, addr, input, gas, new(uint256.Int), true)
	if err != nil {
		evm.State.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			leftOverGas = 0
		}
	}
	return ret, leftOverGas, err
}

// callFromStack is the shared tail of opCall/opCallCode/opDelegateCall/
// opStaticCall: once the subcall has run, copy its return data into the
// caller's memory and frame.ReturnData, refund unspent gas, and push the
// boolean success flag.
func callFromStack(frame *CallFrame, retOffset, retLength uint64, ret []byte, leftOverGas uint64, err error) error {
	success := err == nil
	if len(ret) > 0 {
		copySize := uint64(len(ret))
		if copySize > retLength {
			copySize = retLength
		}
		frame.Memory.Set(retOffset, copySize, ret[:copySize])
	}
	frame.ReturnData = ret
	frame.Contract.RefundGas(leftOverGas)

	var flag uint256.Int
	if success {
		flag.SetOne()
	}
	return frame.Stack.Push(&flag)
}

func opCall(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	gasReq, _ := frame.Stack.Pop()
	_ = gasReq
	addrWord, _ := frame.Stack.Pop()
	value, _ := frame.Stack.Pop()
	argsOffset, _ := frame.Stack.Pop()
	argsLength, _ := frame.Stack.Pop()
	retOffset, _ := frame.Stack.Pop()
	retLength, _ := frame.Stack.Pop()

	addr := word.ToAddress(addrWord)
	args := frame.Memory.Get(argsOffset.Uint64(), argsLength.Uint64())

	gas := evm.callGasTemp
	ret, leftOverGas, err := evm.Call(frame.Contract.Address, addr, args, gas, value)
	return nil, callFromStack(frame, retOffset.Uint64(), retLength.Uint64(), ret, leftOverGas, err)
}

func opCallCode(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	gasReq, _ := frame.Stack.Pop()
	_ = gasReq
	addrWord, _ := frame.Stack.Pop()
	value, _ := frame.Stack.Pop()
	argsOffset, _ := frame.Stack.Pop()
	argsLength, _ := frame.Stack.Pop()
	retOffset, _ := frame.Stack.Pop()
	retLength, _ := frame.Stack.Pop()

	addr := word.ToAddress(addrWord)
	args := frame.Memory.Get(argsOffset.Uint64(), argsLength.Uint64())

	gas := evm.callGasTemp
	ret, leftOverGas, err := evm.CallCode(frame.Contract.Address, addr, args, gas, value)
	return nil, callFromStack(frame, retOffset.Uint64(), retLength.Uint64(), ret, leftOverGas, err)
}

func opDelegateCall(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	gasReq, _ := frame.Stack.Pop()
	_ = gasReq
	addrWord, _ := frame.Stack.Pop()
	argsOffset, _ := frame.Stack.Pop()
	argsLength, _ := frame.Stack.Pop()
	retOffset, _ := frame.Stack.Pop()
	retLength, _ := frame.Stack.Pop()

	addr := word.ToAddress(addrWord)
	args := frame.Memory.Get(argsOffset.Uint64(), argsLength.Uint64())

	gas := evm.callGasTemp
	ret, leftOverGas, err := evm.DelegateCall(frame.Contract.Address, addr, args, gas, frame.Contract.Value(), frame.Contract.Caller)
	return nil, callFromStack(frame, retOffset.Uint64(), retLength.Uint64(), ret, leftOverGas, err)
}

func opStaticCall(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	gasReq, _ := frame.Stack.Pop()
	_ = gasReq
	addrWord, _ := frame.Stack.Pop()
	argsOffset, _ := frame.Stack.Pop()
	argsLength, _ := frame.Stack.Pop()
	retOffset, _ := frame.Stack.Pop()
	retLength, _ := frame.Stack.Pop()

	addr := word.ToAddress(addrWord)
	args := frame.Memory.Get(argsOffset.Uint64(), argsLength.Uint64())

	gas := evm.callGasTemp
	ret, leftOverGas, err := evm.StaticCall(frame.Contract.Address, addr, args, gas)
	return nil, callFromStack(frame, retOffset.Uint64(), retLength.Uint64(), ret, leftOverGas, err)
}
