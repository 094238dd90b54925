package vm

// Run executes frame's bytecode against evm, implementing spec.md §4.G's
// fetch/decode/execute loop: charge constant gas, charge dynamic gas
// (including memory expansion) before the memory is actually grown, then
// dispatch. Returns the frame's output and a nil error on a normal halt
// (STOP/RETURN), the output and ErrExecutionReverted on REVERT, or any
// other VMError on an exceptional halt.
func (evm *EVM) Run(frame *CallFrame) ([]byte, error) {
	contract := frame.Contract
	stack := frame.Stack
	memory := frame.Memory

	for {
		op := contract.GetOp(frame.PC)
		operation := evm.jumpTable[op]
		if operation == nil || operation.execute == nil {
			return nil, ErrInvalidOpcode
		}

		sLen := stack.Len()
		if sLen < operation.minStack {
			return nil, ErrStackUnderflow
		}
		if sLen > operation.maxStack {
			return nil, ErrStackOverflow
		}

		if operation.writes && frame.IsStatic {
			return nil, ErrWriteProtection
		}

		gasBefore := contract.Gas

		if operation.constantGas > 0 {
			if err := contract.UseGas(operation.constantGas); err != nil {
				return nil, err
			}
		}

		var memorySize uint64
		if operation.memorySize != nil {
			size, err := operation.memorySize(stack)
			if err != nil {
				return nil, err
			}
			if size > 0 {
				memorySize = toWordSize(size) * 32
			}
		}

		if memorySize > uint64(memory.Len()) {
			expansion := MemoryExpansionGas(uint64(memory.Len()), memorySize)
			if err := contract.UseGas(expansion); err != nil {
				return nil, ErrOutOfGas
			}
		}

		if operation.dynamicGas != nil {
			cost, err := operation.dynamicGas(evm, frame, memorySize)
			if err != nil {
				return nil, err
			}
			if err := contract.UseGas(cost); err != nil {
				return nil, ErrOutOfGas
			}
		}

		if memorySize > uint64(memory.Len()) {
			memory.Resize(memorySize)
		}

		if evm.Tracer != nil {
			evm.Tracer.CaptureState(StructuredLogEntry{
				PC:      frame.PC,
				Op:      op,
				Gas:     gasBefore,
				GasCost: gasBefore - contract.Gas,
				Depth:   evm.depth,
				Stack:   stack.Data(),
			})
		}

		ret, err := operation.execute(&frame.PC, evm, frame)
		if err != nil {
			return ret, err
		}

		if operation.halts {
			return ret, nil
		}
		if !operation.jumps {
			frame.PC++
		}
	}
}
