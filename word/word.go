// Package word implements the 256-bit word and address primitives the EVM
// stack and memory are built on (component A).
package word

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrVeryLargeNumber is returned when a 256-bit stack value is used as a
// platform-width index (memory offset, jump destination, call depth) and
// does not fit.
var ErrVeryLargeNumber = errors.New("value too large for this platform")

// AddressLength is the number of low-order bytes of a Word that make up an
// Address.
const AddressLength = 20

// Address is the 20-byte Ethereum account address.
type Address [AddressLength]byte

// Zero is the all-zero address.
var Zero Address

// Bytes returns the raw bytes of the address.
func (a Address) Bytes() []byte { return a[:] }

// IsZero reports whether the address is the all-zero address.
func (a Address) IsZero() bool { return a == Zero }

// Hash is a 32-byte value used for storage keys, code hashes, block hashes
// and log topics.
type Hash [32]byte

// Bytes returns the raw bytes of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// IsZero reports whether the hash is the all-zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// BytesToAddress left-pads (or truncates from the left) b to 20 bytes.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// BytesToHash left-pads (or truncates from the left) b to 32 bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(h[32-len(b):], b)
	return h
}

// New256 returns a new zero-valued word.
func New256() *uint256.Int { return new(uint256.Int) }

// ToAddress takes the low 160 bits of w, matching the EVM's convention for
// turning a stack word into an address (ADDRESS-family opcodes, CALL
// targets, CREATE/CREATE2 results).
func ToAddress(w *uint256.Int) Address {
	var b [32]byte
	w.WriteToSlice(b[:])
	return BytesToAddress(b[12:])
}

// ToHash renders w as a big-endian 32-byte Hash, e.g. for SSTORE/SLOAD keys.
func ToHash(w *uint256.Int) Hash {
	var h Hash
	w.WriteToSlice(h[:])
	return h
}

// FromAddress left-pads an address into a word (PUSH of an address, CALLER,
// ADDRESS, etc.).
func FromAddress(a Address) *uint256.Int {
	return new(uint256.Int).SetBytes(a[:])
}

// FromHash interprets a 32-byte hash as a big-endian word.
func FromHash(h Hash) *uint256.Int {
	return new(uint256.Int).SetBytes(h[:])
}

// ToUint64 converts w to a uint64 index, failing with ErrVeryLargeNumber if
// w does not fit — used whenever a stack value becomes a memory offset,
// copy length, or jump destination.
func ToUint64(w *uint256.Int) (uint64, error) {
	if !w.IsUint64() {
		return 0, ErrVeryLargeNumber
	}
	return w.Uint64(), nil
}

// ToInt converts w to a platform int index (e.g. a return-data slice
// bound), failing with ErrVeryLargeNumber on overflow.
func ToInt(w *uint256.Int) (int, error) {
	u, err := ToUint64(w)
	if err != nil {
		return 0, err
	}
	if u > uint64(^uint(0)>>1) {
		return 0, ErrVeryLargeNumber
	}
	return int(u), nil
}
