package state

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/types"
)

var (
	addrA = types.BytesToAddress([]byte{0xaa})
	addrB = types.BytesToAddress([]byte{0xbb})
	slot1 = types.BytesToHash([]byte{0x01})
)

func TestRevertToSnapshotRestoresBalanceAndNonce(t *testing.T) {
	v := NewCacheView(nil)
	v.AddBalance(addrA, uint256.NewInt(100))
	v.SetNonce(addrA, 1)

	snap := v.Snapshot()

	v.AddBalance(addrA, uint256.NewInt(50))
	v.SetNonce(addrA, 2)
	if got := v.GetBalance(addrA).Uint64(); got != 150 {
		t.Fatalf("balance before revert = %d, want 150", got)
	}

	v.RevertToSnapshot(snap)

	if got := v.GetBalance(addrA).Uint64(); got != 100 {
		t.Fatalf("balance after revert = %d, want 100", got)
	}
	if got := v.GetNonce(addrA); got != 1 {
		t.Fatalf("nonce after revert = %d, want 1", got)
	}
}

func TestRevertToSnapshotRestoresStorage(t *testing.T) {
	v := NewCacheView(nil)
	v.SetState(addrA, slot1, types.BytesToHash([]byte{0x11}))
	snap := v.Snapshot()

	v.SetState(addrA, slot1, types.BytesToHash([]byte{0x22}))
	if got := v.GetState(addrA, slot1); got != types.BytesToHash([]byte{0x22}) {
		t.Fatalf("storage before revert = %x, want 0x22", got)
	}

	v.RevertToSnapshot(snap)
	if got := v.GetState(addrA, slot1); got != types.BytesToHash([]byte{0x11}) {
		t.Fatalf("storage after revert = %x, want 0x11", got)
	}
}

func TestRevertToSnapshotRestoresSelfDestructAndRefund(t *testing.T) {
	v := NewCacheView(nil)
	v.AddRefund(100)
	snap := v.Snapshot()

	v.SelfDestruct(addrA)
	v.AddRefund(50)
	if !v.HasSelfDestructed(addrA) {
		t.Fatalf("expected addrA to be marked selfdestructed before revert")
	}
	if got := v.GetRefund(); got != 150 {
		t.Fatalf("refund before revert = %d, want 150", got)
	}

	v.RevertToSnapshot(snap)
	if v.HasSelfDestructed(addrA) {
		t.Fatalf("selfdestruct survived revert")
	}
	if got := v.GetRefund(); got != 100 {
		t.Fatalf("refund after revert = %d, want 100", got)
	}
}

func TestRevertToSnapshotRestoresAccessList(t *testing.T) {
	v := NewCacheView(nil)
	snap := v.Snapshot()

	wasWarm := v.AddAddressToAccessList(addrA)
	if wasWarm {
		t.Fatalf("addrA reported warm before ever being added")
	}
	_, slotWarm := v.AddSlotToAccessList(addrA, slot1)
	if slotWarm {
		t.Fatalf("slot1 reported warm before ever being added")
	}

	v.RevertToSnapshot(snap)

	if v.AddressInAccessList(addrA) {
		t.Fatalf("addrA still in access list after revert")
	}
	if _, warm := v.SlotInAccessList(addrA, slot1); warm {
		t.Fatalf("slot1 still in access list after revert")
	}
}

func TestNestedSnapshotsRevertIndependently(t *testing.T) {
	v := NewCacheView(nil)
	v.AddBalance(addrA, uint256.NewInt(10))

	outer := v.Snapshot()
	v.AddBalance(addrA, uint256.NewInt(20))

	inner := v.Snapshot()
	v.AddBalance(addrA, uint256.NewInt(30))

	v.RevertToSnapshot(inner)
	if got := v.GetBalance(addrA).Uint64(); got != 30 {
		t.Fatalf("balance after inner revert = %d, want 30", got)
	}

	v.RevertToSnapshot(outer)
	if got := v.GetBalance(addrA).Uint64(); got != 10 {
		t.Fatalf("balance after outer revert = %d, want 10", got)
	}
}

func TestDeleteAccountRevert(t *testing.T) {
	v := NewCacheView(nil)
	v.AddBalance(addrA, uint256.NewInt(42))
	v.SetNonce(addrA, 3)
	snap := v.Snapshot()

	v.DeleteAccount(addrA)
	if v.Exist(addrA) {
		t.Fatalf("addrA still exists after DeleteAccount")
	}

	v.RevertToSnapshot(snap)
	if !v.Exist(addrA) {
		t.Fatalf("addrA missing after revert of DeleteAccount")
	}
	if got := v.GetBalance(addrA).Uint64(); got != 42 {
		t.Fatalf("balance after revert of DeleteAccount = %d, want 42", got)
	}
	if got := v.GetNonce(addrA); got != 3 {
		t.Fatalf("nonce after revert of DeleteAccount = %d, want 3", got)
	}
}

func TestDeleteAccountNeverLoadedIsNoop(t *testing.T) {
	v := NewCacheView(nil)
	v.DeleteAccount(addrB) // must not panic or journal a spurious entry
	if v.Exist(addrB) {
		t.Fatalf("addrB should not exist")
	}
}

func TestEmptyAccountDetection(t *testing.T) {
	v := NewCacheView(nil)
	if !v.Empty(addrA) {
		t.Fatalf("never-touched address should be empty")
	}

	v.AddBalance(addrA, uint256.NewInt(1))
	if v.Empty(addrA) {
		t.Fatalf("address with nonzero balance should not be empty")
	}
}

func TestGetCommittedStateIsFrozenAtFirstAccess(t *testing.T) {
	v := NewCacheView(nil)
	before := v.GetCommittedState(addrA, slot1)
	if before != (types.Hash{}) {
		t.Fatalf("committed state for fresh slot = %x, want zero", before)
	}

	v.SetState(addrA, slot1, types.BytesToHash([]byte{0x99}))

	after := v.GetCommittedState(addrA, slot1)
	if after != (types.Hash{}) {
		t.Fatalf("GetCommittedState() = %x, want unchanged zero despite SetState", after)
	}
	if got := v.GetState(addrA, slot1); got != types.BytesToHash([]byte{0x99}) {
		t.Fatalf("GetState() = %x, want 0x99", got)
	}
}
