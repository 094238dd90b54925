package vm

import "github.com/holiman/uint256"

// Memory is the EVM's linear, word-addressable byte memory (component C),
// grounded on the teacher's core/vm/memory.go: a single growable byte
// slice with Set/Set32/Resize/Get/GetPtr, expanding only in whole words and
// never shrinking within a call frame.
type Memory struct {
	store []byte
}

// NewMemory returns an empty memory region.
func NewMemory() *Memory { return &Memory{} }

// Len returns the current size of memory in bytes.
func (m *Memory) Len() int { return len(m.store) }

// Data returns the raw backing slice.
func (m *Memory) Data() []byte { return m.store }

// Resize grows memory to at least size bytes, zero-filling the new region.
// size must already be rounded up to a whole word by the caller (the gas
// table's memory-expansion cost is computed against word-rounded sizes, and
// growing to anything else would desynchronize the two).
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) >= size {
		return
	}
	grown := make([]byte, size)
	copy(grown, m.store)
	m.store = grown
}

// Set writes value into memory at offset.
func (m *Memory) Set(offset, size uint64, value []byte) {
	if size == 0 {
		return
	}
	if offset+size > uint64(len(m.store)) {
		panic("memory: write out of bounds despite prior Resize")
	}
	copy(m.store[offset:offset+size], value)
}

// Set32 writes a 32-byte big-endian word at offset, left-padding with
// zeros if val needs fewer bytes (MSTORE's shape).
func (m *Memory) Set32(offset uint64, val *uint256.Int) {
	if offset+32 > uint64(len(m.store)) {
		panic("memory: write out of bounds despite prior Resize")
	}
	var b [32]byte
	val.WriteToSlice(b[:])
	copy(m.store[offset:offset+32], b[:])
}

// Get returns a fresh copy of size bytes starting at offset (safe for the
// caller to retain past further memory mutation).
func (m *Memory) Get(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	if offset > uint64(len(m.store)) {
		return out
	}
	end := offset + size
	if end > uint64(len(m.store)) {
		end = uint64(len(m.store))
	}
	copy(out, m.store[offset:end])
	return out
}

// GetPtr returns a slice aliasing memory's backing array — faster than Get
// when the caller consumes the bytes immediately (e.g. hashing them for
// KECCAK256) and never retains the slice past the next memory mutation.
func (m *Memory) GetPtr(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}
