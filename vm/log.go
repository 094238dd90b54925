package vm

import (
	"github.com/corevm-project/corevm/types"
	"github.com/corevm-project/corevm/word"
)

// makeLog returns the LOG0-LOG4 execution handler: pop offset/size and n
// topics, copy the memory range as event data, and append to the cache
// view's pending log list (spec.md §4.H). Reverted on a child REVERT/error
// the same way SSTORE/balance changes are, via CacheView's journal.
func makeLog(n int) executionFunc {
	return func(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
		offset, _ := frame.Stack.Pop()
		size, _ := frame.Stack.Pop()

		topics := make([]types.Hash, n)
		for i := 0; i < n; i++ {
			t, _ := frame.Stack.Pop()
			topics[i] = word.ToHash(t)
		}

		data := frame.Memory.Get(offset.Uint64(), size.Uint64())
		evm.State.AddLog(types.Log{
			Address: frame.Contract.Address,
			Topics:  topics,
			Data:    data,
		})
		return nil, nil
	}
}
