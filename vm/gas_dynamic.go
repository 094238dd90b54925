package vm

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/params"
	"github.com/corevm-project/corevm/word"
)

// gasExp charges EIP-160's per-exponent-byte surcharge on top of EXP's
// GasSlowStep constant: 10/byte before Spurious Dragon, 50/byte from it on.
func gasExp(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	exponent := frame.Stack.Back(1)
	nbytes := (exponent.BitLen() + 7) / 8
	perByte := uint64(10)
	if evm.Rules.IsSpuriousDragon {
		perByte = 50
	}
	return safeMul(uint64(nbytes), perByte), nil
}

// gasKeccak256 charges KECCAK256's per-word hashing surcharge on top of its
// GasKeccak256 constant.
func gasKeccak256(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	size, err := word.ToUint64(frame.Stack.Back(1))
	if err != nil {
		return 0, err
	}
	return safeMul(GasKeccak256Word, toWordSize(size)), nil
}

// gasMemoryCopy charges CALLDATACOPY/CODECOPY/RETURNDATACOPY's per-word copy
// surcharge (size is always the 3rd stack item from the top for these three).
func gasMemoryCopy(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	size, err := word.ToUint64(frame.Stack.Back(2))
	if err != nil {
		return 0, err
	}
	return safeMul(GasCopy, toWordSize(size)), nil
}

// gasMcopy is gasMemoryCopy's MCOPY analogue: stack is (dest, src, size).
func gasMcopy(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	size, err := word.ToUint64(frame.Stack.Back(2))
	if err != nil {
		return 0, err
	}
	return safeMul(GasCopy, toWordSize(size)), nil
}

// legacyAccountAccessCost returns the flat, pre-Berlin total cost of
// accessing an account for the given opcode, used to compute the extra
// delta owed on top of the GasExtStep baseline every such opcode already
// charges as constant gas (jumptable.go keeps that baseline constant across
// forks and lets the dynamic-gas function absorb fork-specific repricing).
func legacyAccountAccessCost(op OpCode, rules params.Rules) uint64 {
	switch op {
	case BALANCE:
		switch {
		case rules.IsIstanbul:
			return GasBalanceIstanbul
		case rules.IsTangerineWhistle:
			return GasBalanceTangerineWhistle
		default:
			return GasBalanceFrontier
		}
	case EXTCODEHASH:
		if rules.IsIstanbul {
			return GasExtcodeHashIstanbul
		}
		return GasExtcodeHashConstantinople
	default: // EXTCODESIZE, EXTCODECOPY
		if rules.IsTangerineWhistle {
			return GasExtcodeSizeTangerineWhistle
		}
		return GasExtStep
	}
}

// gasAccessAccount is the shared EIP-2929 dynamic-gas hook for
// BALANCE/EXTCODESIZE/EXTCODEHASH: post-Berlin it charges the full
// cold/warm cost (their constantGas drops to 0 from Berlin on); pre-Berlin
// it charges the delta between the fork's flat cost and the GasExtStep
// baseline already charged as constant gas.
func gasAccessAccount(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	addr := word.ToAddress(frame.Stack.Back(0))
	if evm.Rules.IsBerlin {
		return accessAccountColdWarmCost(evm, addr), nil
	}
	op := frame.Contract.GetOp(frame.PC)
	legacy := legacyAccountAccessCost(op, evm.Rules)
	if legacy > GasExtStep {
		return legacy - GasExtStep, nil
	}
	return 0, nil
}

func accessAccountColdWarmCost(evm *EVM, addr word.Address) uint64 {
	wasWarm := evm.State.AddAddressToAccessList(addr)
	if wasWarm {
		return WarmStorageReadCost
	}
	return ColdAccountAccessCost
}

// gasExtcodecopy layers EXTCODECOPY's memory-copy surcharge on top of its
// account-access surcharge (stack: addr, destOffset, offset, size).
func gasExtcodecopy(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	accessCost, err := gasAccessAccount(evm, frame, memorySize)
	if err != nil {
		return 0, err
	}
	size, err := word.ToUint64(frame.Stack.Back(3))
	if err != nil {
		return 0, err
	}
	return safeAdd(accessCost, safeMul(GasCopy, toWordSize(size))), nil
}

// gasAccessSlot is SLOAD's EIP-2929 dynamic-gas hook (see gasAccessAccount's
// doc comment for the same pre/post-Berlin split, applied to storage slots
// instead of accounts).
func gasAccessSlot(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	addr := frame.Contract.Address
	key := word.ToHash(frame.Stack.Back(0))
	if evm.Rules.IsBerlin {
		_, slotWarm := evm.State.SlotInAccessList(addr, key)
		evm.State.AddSlotToAccessList(addr, key)
		if slotWarm {
			return WarmStorageReadCost, nil
		}
		return ColdSloadCost, nil
	}
	legacy := GasSloadFrontier
	switch {
	case evm.Rules.IsIstanbul:
		legacy = GasSloadIstanbul
	case evm.Rules.IsTangerineWhistle:
		legacy = GasSloadTangerineWhistle
	}
	if legacy > GasSloadFrontier {
		return legacy - GasSloadFrontier, nil
	}
	return 0, nil
}

// gasSstore implements spec.md §4.D's SSTORE gas/refund table (component D),
// dispatching to the dirty-slot-aware EIP-2200 formula from Istanbul on, and
// the flat legacy formula before it. It requires more than the 2300-gas
// stipend be left, per EIP-2200.
func gasSstore(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	if frame.Contract.Gas <= CallStipend {
		return 0, newErr(KindOutOfGas, "SSTORE requires more than the 2300 gas stipend")
	}

	addr := frame.Contract.Address
	key := word.ToHash(frame.Stack.Back(0))
	newVal := word.ToHash(frame.Stack.Back(1))

	if !evm.Rules.IsIstanbul {
		// Frontier..Byzantium, and Constantinople/Petersburg: flat table, no
		// original-value tracking.
		current := evm.State.GetState(addr, key)
		gas, refund := sstoreGasLegacy([32]byte(current), [32]byte(newVal))
		if refund != 0 {
			applySstoreRefund(evm, refund)
		}
		return gas, nil
	}

	// Istanbul-pre-Berlin has no access list: SSTORE charges the flat
	// EIP-2200 noop/reset costs directly. Berlin+ folds a cold-slot
	// surcharge into the same table's discounted warm-path constants
	// (gasSStoreEIP2200 vs. gasSStoreEIP2929 in the teacher's gas_table.go).
	noopCost := GasSloadIstanbul
	resetCost := uint64(5000)
	var coldSurcharge uint64
	if evm.Rules.IsBerlin {
		_, slotWarm := evm.State.SlotInAccessList(addr, key)
		evm.State.AddSlotToAccessList(addr, key)
		if !slotWarm {
			coldSurcharge = ColdSloadCost
		}
		noopCost = WarmStorageReadCost
		resetCost = GasSstoreReset
	}

	original := evm.State.GetCommittedState(addr, key)
	current := evm.State.GetState(addr, key)
	gas, refund := sstoreGas([32]byte(original), [32]byte(current), [32]byte(newVal), noopCost, resetCost, sstoreClearRefund(evm.Rules))
	if refund != 0 {
		applySstoreRefund(evm, refund)
	}
	return gas + coldSurcharge, nil
}

func applySstoreRefund(evm *EVM, refund int64) {
	if refund > 0 {
		evm.State.AddRefund(uint64(refund))
		return
	}
	evm.State.SubRefund(uint64(-refund))
}

// gasLog returns LOG0-LOG4's dynamic-gas hook: a flat per-topic charge plus
// a per-byte data charge (constantGas is 0 for every LOGn; this is the whole
// cost).
func gasLog(topics int) dynamicGasFunc {
	return func(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
		size, err := word.ToUint64(frame.Stack.Back(1))
		if err != nil {
			return 0, err
		}
		cost := safeAdd(GasLog, safeMul(GasLogTopic, uint64(topics)))
		return safeAdd(cost, safeMul(GasLogData, size)), nil
	}
}

// gasCreate charges EIP-3860's per-word init-code charge (Shanghai+); the
// max-init-code-size check itself lives in opCreate/opCreate2 since it's a
// hard failure, not a cost.
func gasCreate(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	if !evm.Rules.IsShanghai {
		return 0, nil
	}
	size, err := word.ToUint64(frame.Stack.Back(2))
	if err != nil {
		return 0, err
	}
	return safeMul(InitCodeWordGas, toWordSize(size)), nil
}

// gasCreate2 additionally charges for hashing the init code into the
// address-derivation keccak256.
func gasCreate2(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	size, err := word.ToUint64(frame.Stack.Back(2))
	if err != nil {
		return 0, err
	}
	cost := safeMul(GasKeccak256Word, toWordSize(size))
	if evm.Rules.IsShanghai {
		cost = safeAdd(cost, safeMul(InitCodeWordGas, toWordSize(size)))
	}
	return cost, nil
}

// callAccessCost returns the base EIP-2929-or-legacy cost of reaching
// target, without any value-transfer or new-account surcharge.
func callAccessCost(evm *EVM, target word.Address) uint64 {
	if evm.Rules.IsBerlin {
		return accessAccountColdWarmCost(evm, target)
	}
	if evm.Rules.IsTangerineWhistle {
		return GasCallTangerineWhistle
	}
	return GasCallFrontier
}

// saturatingUint64 reads a stack word as a uint64, clamping implausibly
// large values (a requested CALL gas amount, say) to math.MaxUint64 instead
// of failing — the EVM treats "more gas than exists" the same as "all of
// it", it never errors on the request itself.
func saturatingUint64(v *uint256.Int) uint64 {
	if v.IsUint64() {
		return v.Uint64()
	}
	return math.MaxUint64
}

// reserveCallGas applies EIP-150's 63/64 rule against the gas left after
// fixedCost is charged, adds CALL's 2300 stipend when value is transferred,
// stashes the forwarded amount on evm for the opcode handler to hand to the
// child frame, and returns the total additional gas (fixedCost + forwarded)
// the interpreter loop should charge.
func reserveCallGas(evm *EVM, frame *CallFrame, fixedCost uint64, hasValue bool) (uint64, error) {
	requested := saturatingUint64(frame.Stack.Back(0))
	if frame.Contract.Gas < fixedCost {
		return 0, ErrOutOfGas
	}
	available := frame.Contract.Gas - fixedCost
	forwarded := CallGas(available, requested)
	if hasValue {
		forwarded = safeAdd(forwarded, CallStipend)
	}
	evm.callGasTemp = forwarded
	return safeAdd(fixedCost, forwarded), nil
}

// newAccountSurcharge is CALL's extra 25000 gas for bringing a nonexistent
// account into existence: unconditional before Spurious Dragon, gated on a
// nonzero value transfer from it on (spec.md §4.D).
func newAccountSurcharge(evm *EVM, target word.Address, transfersValue bool) uint64 {
	if evm.State.Exist(target) {
		return 0
	}
	if evm.Rules.IsSpuriousDragon && !transfersValue {
		return 0
	}
	return GasNewAccount
}

func gasCall(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	target := word.ToAddress(frame.Stack.Back(1))
	value := frame.Stack.Back(2)
	hasValue := !value.IsZero()

	if hasValue && frame.IsStatic {
		return 0, ErrWriteProtection
	}

	fixedCost := callAccessCost(evm, target)
	if hasValue {
		fixedCost = safeAdd(fixedCost, GasCallValueTransfer)
	}
	fixedCost = safeAdd(fixedCost, newAccountSurcharge(evm, target, hasValue))
	fixedCost = safeAdd(fixedCost, delegationAccessSurcharge(evm, target))
	return reserveCallGas(evm, frame, fixedCost, hasValue)
}

func gasCallCode(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	target := word.ToAddress(frame.Stack.Back(1))
	value := frame.Stack.Back(2)
	hasValue := !value.IsZero()

	fixedCost := callAccessCost(evm, target)
	if hasValue {
		fixedCost = safeAdd(fixedCost, GasCallValueTransfer)
	}
	fixedCost = safeAdd(fixedCost, delegationAccessSurcharge(evm, target))
	return reserveCallGas(evm, frame, fixedCost, hasValue)
}

func gasDelegateCall(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	target := word.ToAddress(frame.Stack.Back(1))
	fixedCost := safeAdd(callAccessCost(evm, target), delegationAccessSurcharge(evm, target))
	return reserveCallGas(evm, frame, fixedCost, false)
}

func gasStaticCall(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	target := word.ToAddress(frame.Stack.Back(1))
	fixedCost := safeAdd(callAccessCost(evm, target), delegationAccessSurcharge(evm, target))
	return reserveCallGas(evm, frame, fixedCost, false)
}

// gasSelfdestruct charges the EIP-150 flat cost (applied as constantGas
// elsewhere), EIP-2929's cold-beneficiary surcharge, and EIP-161's
// new-account surcharge when the beneficiary doesn't yet exist and the
// contract's balance (entirely transferred to it) is nonzero.
func gasSelfdestruct(evm *EVM, frame *CallFrame, memorySize uint64) (uint64, error) {
	beneficiary := word.ToAddress(frame.Stack.Back(0))
	var cost uint64
	if evm.Rules.IsBerlin {
		wasWarm := evm.State.AddAddressToAccessList(beneficiary)
		if !wasWarm {
			cost = ColdAccountAccessCost
		}
	}
	if evm.Rules.IsTangerineWhistle && !evm.State.Exist(beneficiary) && !evm.State.GetBalance(frame.Contract.Address).IsZero() {
		cost = safeAdd(cost, GasNewAccount)
	}
	return cost, nil
}
