package vm

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
)

func TestMemoryResizeZeroFills(t *testing.T) {
	m := NewMemory()
	m.Resize(64)
	if m.Len() != 64 {
		t.Fatalf("Len() = %d, want 64", m.Len())
	}
	for i, b := range m.Data() {
		if b != 0 {
			t.Fatalf("byte %d = %x, want zero-filled", i, b)
		}
	}
}

func TestMemoryResizeNeverShrinks(t *testing.T) {
	m := NewMemory()
	m.Resize(64)
	m.Set(0, 4, []byte{1, 2, 3, 4})
	m.Resize(32)
	if m.Len() != 64 {
		t.Fatalf("Len() after smaller Resize = %d, want 64 (unchanged)", m.Len())
	}
	if !bytes.Equal(m.Get(0, 4), []byte{1, 2, 3, 4}) {
		t.Fatalf("Resize to smaller size clobbered existing data")
	}
}

func TestMemorySetAndGet(t *testing.T) {
	m := NewMemory()
	m.Resize(32)
	m.Set(4, 3, []byte{0xaa, 0xbb, 0xcc})

	got := m.Get(4, 3)
	want := []byte{0xaa, 0xbb, 0xcc}
	if !bytes.Equal(got, want) {
		t.Fatalf("Get(4,3) = %x, want %x", got, want)
	}

	// Get is a copy: mutating it must not affect memory.
	got[0] = 0xff
	if m.Get(4, 1)[0] != 0xaa {
		t.Fatalf("Get() did not return an independent copy")
	}
}

func TestMemoryGetPastEndReturnsZeroPadded(t *testing.T) {
	m := NewMemory()
	m.Resize(32)
	got := m.Get(28, 16)
	if len(got) != 16 {
		t.Fatalf("Get() past end len = %d, want 16", len(got))
	}
	for i, b := range got[4:] {
		if b != 0 {
			t.Fatalf("byte %d past memory end = %x, want zero", i, b)
		}
	}
}

func TestMemorySet32(t *testing.T) {
	m := NewMemory()
	m.Resize(32)
	val := uint256.NewInt(0x1234)
	m.Set32(0, val)

	got := new(uint256.Int).SetBytes(m.Get(0, 32))
	if got.Cmp(val) != 0 {
		t.Fatalf("Set32/Get round-trip = %s, want %s", got, val)
	}
}

func TestMemoryGetPtrAliasesBackingArray(t *testing.T) {
	m := NewMemory()
	m.Resize(32)
	m.Set(0, 4, []byte{1, 2, 3, 4})

	ptr := m.GetPtr(0, 4)
	ptr[0] = 0xff
	if m.Get(0, 1)[0] != 0xff {
		t.Fatalf("GetPtr() did not alias memory's backing store")
	}
}
