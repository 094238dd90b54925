package vm

import "github.com/holiman/uint256"

// maxStackDepth is the 1024-item limit every opcode's Push ultimately
// enforces (spec.md §8, invariant I2).
const maxStackDepth = 1024

// Stack is the EVM's 256-bit-word operand stack (component C).
//
// Grounded on the teacher's core/vm/stack.go, same method set
// (Push/Pop/Peek/PeekN/Back/Swap/Dup/Len/Data), but backed by
// *uint256.Int instead of the teacher's math/big.Int — uint256 is a
// fixed-width type with no allocation-heavy growth path, matching how
// modern go-ethereum's own interpreter stack is built, and it's already a
// direct dependency via the word package.
type Stack struct {
	data []*uint256.Int
}

// NewStack returns an empty stack with its backing array pre-sized to avoid
// reallocation during a typical call frame's lifetime.
func NewStack() *Stack {
	return &Stack{data: make([]*uint256.Int, 0, 16)}
}

// Len returns the number of items currently on the stack.
func (s *Stack) Len() int { return len(s.data) }

// Data exposes the backing slice, bottom-to-top, for tracing/debugging.
func (s *Stack) Data() []*uint256.Int { return s.data }

// Push pushes a word onto the stack, failing if doing so would exceed the
// 1024-item limit.
func (s *Stack) Push(v *uint256.Int) error {
	if len(s.data) >= maxStackDepth {
		return ErrStackOverflow
	}
	s.data = append(s.data, v)
	return nil
}

// Pop removes and returns the top of the stack.
func (s *Stack) Pop() (*uint256.Int, error) {
	n := len(s.data)
	if n == 0 {
		return nil, ErrStackUnderflow
	}
	v := s.data[n-1]
	s.data = s.data[:n-1]
	return v, nil
}

// Peek returns the top of the stack without removing it.
func (s *Stack) Peek() (*uint256.Int, error) { return s.PeekN(0) }

// PeekN returns the n-th item from the top (0 = top) without removing it.
func (s *Stack) PeekN(n int) (*uint256.Int, error) {
	idx := len(s.data) - 1 - n
	if idx < 0 {
		return nil, ErrStackUnderflow
	}
	return s.data[idx], nil
}

// Back is PeekN without an error return, for call sites (dynamic-gas
// functions, memory-size functions) that run only after stack validation
// has already guaranteed the index exists.
func (s *Stack) Back(n int) *uint256.Int {
	return s.data[len(s.data)-1-n]
}

// Swap exchanges the top item with the item n positions below it (SWAP1
// swaps with n=1, i.e. the second item).
func (s *Stack) Swap(n int) error {
	top := len(s.data) - 1
	idx := top - n
	if idx < 0 {
		return ErrStackUnderflow
	}
	s.data[top], s.data[idx] = s.data[idx], s.data[top]
	return nil
}

// Dup pushes a copy of the n-th item from the top (n=1 is DUP1, the current
// top).
func (s *Stack) Dup(n int) error {
	idx := len(s.data) - n
	if idx < 0 {
		return ErrStackUnderflow
	}
	if len(s.data) >= maxStackDepth {
		return ErrStackOverflow
	}
	dup := new(uint256.Int).Set(s.data[idx])
	s.data = append(s.data, dup)
	return nil
}
