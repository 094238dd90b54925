package vm

import (
	"math"

	"github.com/corevm-project/corevm/params"
)

// Gas cost constants (component D), grounded on the teacher's
// core/vm/gas_table.go constant block. Values are the fork-final (Berlin+)
// figures; pre-Berlin costs are produced by the fork-layered jump tables in
// jumptable.go, which is where the teacher's own NewXJumpTable chain lives.
const (
	GasQuickStep   uint64 = 2
	GasFastestStep uint64 = 3
	GasFastStep    uint64 = 5
	GasMidStep     uint64 = 8
	GasSlowStep    uint64 = 10
	GasExtStep     uint64 = 20

	GasSloadFrontier         uint64 = 50  // pre-Tangerine-Whistle SLOAD
	GasSloadTangerineWhistle uint64 = 200 // EIP-150
	GasSloadIstanbul         uint64 = 800 // EIP-1884

	GasBalanceFrontier         uint64 = 20  // pre-Tangerine-Whistle BALANCE
	GasBalanceTangerineWhistle uint64 = 400 // EIP-150
	GasBalanceIstanbul         uint64 = 700 // EIP-1884

	GasExtcodeSizeTangerineWhistle uint64 = 700 // EIP-150 EXTCODESIZE/EXTCODECOPY base
	GasExtcodeHashConstantinople   uint64 = 400 // EIP-1052
	GasExtcodeHashIstanbul         uint64 = 700 // EIP-1884

	GasCallTangerineWhistle uint64 = 700 // EIP-150 CALL/CALLCODE/DELEGATECALL/STATICCALL base
	GasCallFrontier         uint64 = 40

	GasSelfdestructTangerineWhistle uint64 = 5000 // EIP-150; 0 before

	GasSstoreSet   uint64 = 20000
	GasSstoreReset uint64 = 2900 // post-Berlin: 5000 - ColdSloadCost

	GasLog     uint64 = 375
	GasLogTopic uint64 = 375
	GasLogData  uint64 = 8

	GasKeccak256     uint64 = 30
	GasKeccak256Word uint64 = 6
	GasCopy          uint64 = 3

	GasCreate           uint64 = 32000
	GasCodeDeposit      uint64 = 200
	GasSelfdestruct     uint64 = 5000
	GasNewAccount       uint64 = 25000
	GasCallValueTransfer uint64 = 9000
	CallStipend         uint64 = 2300

	ColdAccountAccessCost uint64 = 2600
	ColdSloadCost         uint64 = 2100
	WarmStorageReadCost   uint64 = 100

	MemoryGasCostPerWord uint64 = 3
	MaxRefundQuotient    uint64 = 5 // EIP-3529: gasUsed/5 (was /2 before London)

	SstoreClearsScheduleRefund uint64 = 4800 // EIP-3529

	CallGasFraction uint64 = 64 // EIP-150's 63/64 rule

	InitCodeWordGas uint64 = 2 // EIP-3860

	SelfdestructRefundGas uint64 = 24000 // pre-London only, EIP-3529 removed it
)

// toWordSize rounds size up to the next 32-byte word, saturating instead of
// overflowing for implausibly large sizes.
func toWordSize(size uint64) uint64 {
	if size == 0 {
		return 0
	}
	if size > math.MaxUint64-31 {
		return math.MaxUint64/32 + 1
	}
	return (size + 31) / 32
}

func safeAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func safeMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxUint64/b {
		return math.MaxUint64
	}
	return a * b
}

// MemoryGasCost is the total gas memory of size memSize bytes costs, per the
// quadratic formula 3*words + words^2/512.
func MemoryGasCost(memSize uint64) uint64 {
	if memSize == 0 {
		return 0
	}
	words := toWordSize(memSize)
	if words > 181_000 {
		return math.MaxUint64
	}
	return safeAdd(words*MemoryGasCostPerWord, words*words/512)
}

// MemoryExpansionGas is the incremental cost of growing memory from oldSize
// to newSize (zero if newSize doesn't exceed oldSize).
func MemoryExpansionGas(oldSize, newSize uint64) uint64 {
	if newSize <= oldSize {
		return 0
	}
	return MemoryGasCost(newSize) - MemoryGasCost(oldSize)
}

// CallGas computes the gas forwarded to a CALL-family subcall per EIP-150's
// 63/64 rule: the caller keeps at least 1/64th of its remaining gas, and the
// requested amount is capped at what's left after that reservation.
func CallGas(availableGas, requestedGas uint64) uint64 {
	maxGas := availableGas - availableGas/CallGasFraction
	if requestedGas > maxGas {
		return maxGas
	}
	return requestedGas
}

// sstoreGas computes the SSTORE gas charge and signed refund delta per
// EIP-2200's dirty-slot-aware table (Istanbul on). noopCost/resetCost are
// fork-selected by the caller: Istanbul-pre-Berlin charges flat
// GasSloadIstanbul/5000 (no access-list split yet); Berlin+
// charges WarmStorageReadCost/GasSstoreReset with ColdSloadCost added
// separately by the caller on first touch (mirroring the teacher's
// gasSStoreEIP2200 vs. gasSStoreEIP2929 split, which is exactly the same
// table shape with different warm-path constants). clearRefund is
// EIP-2200's original 15000 before London, EIP-3529's 4800 from London on —
// the caller picks it via sstoreClearRefund(rules).
func sstoreGas(original, current, newVal [32]byte, noopCost, resetCost, clearRefund uint64) (gas uint64, refund int64) {
	if current == newVal {
		return noopCost, 0
	}
	if original == current {
		if isZeroWord(original) {
			return GasSstoreSet, 0
		}
		gas = resetCost
		if isZeroWord(newVal) {
			refund = int64(clearRefund)
		}
		return gas, refund
	}

	gas = noopCost
	if !isZeroWord(original) {
		if isZeroWord(current) && !isZeroWord(newVal) {
			refund -= int64(clearRefund)
		} else if !isZeroWord(current) && isZeroWord(newVal) {
			refund += int64(clearRefund)
		}
	}
	if original == newVal {
		if isZeroWord(original) {
			refund += int64(GasSstoreSet) - int64(noopCost)
		} else {
			refund += int64(resetCost) - int64(noopCost)
		}
	}
	return gas, refund
}

// sstoreClearRefund picks EIP-2200's original clearing refund pre-London,
// EIP-3529's reduced one from London on.
func sstoreClearRefund(rules params.Rules) uint64 {
	if rules.IsLondon {
		return SstoreClearsScheduleRefund
	}
	return 15000
}

func isZeroWord(w [32]byte) bool {
	for _, b := range w {
		if b != 0 {
			return false
		}
	}
	return true
}

// sstoreGasLegacy is the flat, non-dirty-tracking SSTORE table: Frontier
// through Byzantium, and Constantinople/Petersburg (Petersburg reverted
// EIP-1283's net metering mainnet-side before any transaction ever observed
// it, so this model's Constantinople constant always carries the Petersburg
// fix and never needs the intermediate net-metered table). Keyed only on
// the current/new comparison, no original-value tracking, no refund
// beyond the fixed SSTORE-to-zero case.
func sstoreGasLegacy(current, newVal [32]byte) (gas uint64, refund int64) {
	switch {
	case isZeroWord(current) && !isZeroWord(newVal):
		return 20000, 0
	case !isZeroWord(current) && isZeroWord(newVal):
		return 5000, 15000
	default:
		return 5000, 0
	}
}

// refundCap returns the maximum refund allowed against gasUsed, per
// EIP-3529 (London+: gasUsed/5) or the pre-London gasUsed/2.
func refundCap(gasUsed uint64, rules params.Rules) uint64 {
	if rules.IsLondon {
		return gasUsed / MaxRefundQuotient
	}
	return gasUsed / 2
}
