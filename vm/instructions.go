package vm

import (
	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/crypto"
	"github.com/corevm-project/corevm/word"
)

// This file implements every opcode handler jumptable.go's fork-layered
// tables reference (component C/H), grounded on the teacher's
// core/vm/instructions.go — same pop-then-mutate-the-new-top shape throughout,
// adapted from math/big to *uint256.Int (see stack.go's doc comment) and from
// three loose parameters to the single CallFrame this module threads through
// Run.
//
// A value read from Contract/EVM/State (CALLVALUE, GASPRICE, BALANCE, ...) is
// always pushed as a fresh copy, never the shared pointer backing it — the
// stack reuses popped operands' storage in place (y.Add(x, y) writes through
// y), and aliasing a live Account.Balance or Contract.value that way would
// corrupt state the next time an arithmetic opcode touches the pushed word.

func pushCopy(stack *Stack, v *uint256.Int) error {
	return stack.Push(new(uint256.Int).Set(v))
}

func opStop(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) { return nil, nil }

func opAdd(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	y.Add(x, y)
	return nil, nil
}

func opMul(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	y.Mul(x, y)
	return nil, nil
}

func opSub(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	y.Sub(x, y)
	return nil, nil
}

func opDiv(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	y.Div(x, y)
	return nil, nil
}

func opSdiv(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	y.SDiv(x, y)
	return nil, nil
}

func opMod(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	y.Mod(x, y)
	return nil, nil
}

func opSmod(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	y.SMod(x, y)
	return nil, nil
}

func opAddmod(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Pop()
	z, _ := frame.Stack.Peek()
	if z.IsZero() {
		z.Clear()
	} else {
		z.AddMod(x, y, z)
	}
	return nil, nil
}

func opMulmod(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Pop()
	z, _ := frame.Stack.Peek()
	z.MulMod(x, y, z)
	return nil, nil
}

func opExp(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	base, _ := frame.Stack.Pop()
	exponent, _ := frame.Stack.Peek()
	exponent.Exp(base, exponent)
	return nil, nil
}

func opSignExtend(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	back, _ := frame.Stack.Pop()
	num, _ := frame.Stack.Peek()
	num.ExtendSign(num, back)
	return nil, nil
}

func opLt(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opGt(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSlt(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSgt(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opEq(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	if x.Eq(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opIsZero(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	return nil, nil
}

func opAnd(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	y.And(x, y)
	return nil, nil
}

func opOr(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	y.Or(x, y)
	return nil, nil
}

func opXor(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Pop()
	y, _ := frame.Stack.Peek()
	y.Xor(x, y)
	return nil, nil
}

func opNot(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	x, _ := frame.Stack.Peek()
	x.Not(x)
	return nil, nil
}

func opByte(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	th, _ := frame.Stack.Pop()
	val, _ := frame.Stack.Peek()
	val.Byte(th)
	return nil, nil
}

func opSHL(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	shift, _ := frame.Stack.Pop()
	value, _ := frame.Stack.Peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opSHR(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	shift, _ := frame.Stack.Pop()
	value, _ := frame.Stack.Peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opSAR(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	shift, _ := frame.Stack.Pop()
	value, _ := frame.Stack.Peek()
	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}
		return nil, nil
	}
	value.SRsh(value, uint(shift.Uint64()))
	return nil, nil
}

func opKeccak256(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	offset, _ := frame.Stack.Pop()
	size, _ := frame.Stack.Peek()
	data := frame.Memory.GetPtr(offset.Uint64(), size.Uint64())
	size.SetBytes(crypto.Keccak256(data))
	return nil, nil
}

func opAddress(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(word.FromAddress(frame.Contract.Address))
}

func opBalance(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	addrWord, _ := frame.Stack.Peek()
	addr := word.ToAddress(addrWord)
	addrWord.Set(evm.State.GetBalance(addr))
	return nil, nil
}

func opOrigin(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(word.FromAddress(evm.Origin))
}

func opCaller(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(word.FromAddress(frame.Contract.Caller))
}

func opCallValue(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, pushCopy(frame.Stack, frame.Contract.Value())
}

func opCalldataLoad(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	offWord, _ := frame.Stack.Peek()
	var buf [32]byte
	if offWord.IsUint64() {
		off := offWord.Uint64()
		if off < uint64(len(frame.Contract.Input)) {
			n := copy(buf[:], frame.Contract.Input[off:])
			_ = n
		}
	}
	offWord.SetBytes(buf[:])
	return nil, nil
}

func opCalldataSize(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(uint256.NewInt(uint64(len(frame.Contract.Input))))
}

func opCalldataCopy(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	destOffset, _ := frame.Stack.Pop()
	offset, _ := frame.Stack.Pop()
	size, _ := frame.Stack.Pop()
	copyToMemory(frame, destOffset.Uint64(), offset, size, frame.Contract.Input)
	return nil, nil
}

func opCodeSize(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(uint256.NewInt(uint64(len(frame.Contract.Code))))
}

func opCodeCopy(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	destOffset, _ := frame.Stack.Pop()
	offset, _ := frame.Stack.Pop()
	size, _ := frame.Stack.Pop()
	copyToMemory(frame, destOffset.Uint64(), offset, size, frame.Contract.Code)
	return nil, nil
}

func opGasPrice(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, pushCopy(frame.Stack, evm.GasPrice)
}

func opExtcodesize(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	addrWord, _ := frame.Stack.Peek()
	addr := word.ToAddress(addrWord)
	addrWord.SetUint64(uint64(evm.State.GetCodeSize(addr)))
	return nil, nil
}

func opExtcodecopy(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	addr := word.ToAddress(mustPop(frame.Stack))
	destOffset, _ := frame.Stack.Pop()
	offset, _ := frame.Stack.Pop()
	size, _ := frame.Stack.Pop()
	copyToMemory(frame, destOffset.Uint64(), offset, size, evm.State.GetCode(addr))
	return nil, nil
}

func opReturndataSize(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(uint256.NewInt(uint64(len(frame.ReturnData))))
}

func opReturndataCopy(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	destOffset, _ := frame.Stack.Pop()
	offset, _ := frame.Stack.Pop()
	size, _ := frame.Stack.Pop()
	off, err := word.ToUint64(offset)
	if err != nil {
		return nil, ErrReturnDataOutOfBounds
	}
	sz, err := word.ToUint64(size)
	if err != nil {
		return nil, ErrReturnDataOutOfBounds
	}
	if off+sz > uint64(len(frame.ReturnData)) || off+sz < off {
		return nil, ErrReturnDataOutOfBounds
	}
	frame.Memory.Set(destOffset.Uint64(), sz, frame.ReturnData[off:off+sz])
	return nil, nil
}

func opExtcodehash(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	addrWord, _ := frame.Stack.Peek()
	addr := word.ToAddress(addrWord)
	if !evm.State.Exist(addr) || evm.State.Empty(addr) {
		addrWord.Clear()
		return nil, nil
	}
	h := evm.State.GetCodeHash(addr)
	if h.IsZero() {
		h = crypto.Keccak256Hash()
	}
	addrWord.SetBytes(h.Bytes())
	return nil, nil
}

func opBlockhash(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	numWord, _ := frame.Stack.Peek()
	if !numWord.IsUint64() || evm.GetHash == nil {
		numWord.Clear()
		return nil, nil
	}
	h := evm.GetHash(numWord.Uint64())
	numWord.SetBytes(h.Bytes())
	return nil, nil
}

func opCoinbase(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(word.FromAddress(evm.Coinbase))
}

func opTimestamp(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(uint256.NewInt(evm.Time))
}

func opNumber(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(uint256.NewInt(evm.BlockNumber))
}

func opPrevRandao(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(word.FromHash(evm.PrevRandao))
}

func opGasLimit(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(uint256.NewInt(evm.GasLimit))
}

func opChainID(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(uint256.NewInt(evm.ChainID))
}

func opSelfBalance(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, pushCopy(frame.Stack, evm.State.GetBalance(frame.Contract.Address))
}

func opBaseFee(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, pushCopy(frame.Stack, evm.BaseFee)
}

func opBlobHash(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	idxWord, _ := frame.Stack.Peek()
	if idxWord.IsUint64() && idxWord.Uint64() < uint64(len(evm.BlobHashes)) {
		idxWord.SetBytes(evm.BlobHashes[idxWord.Uint64()].Bytes())
	} else {
		idxWord.Clear()
	}
	return nil, nil
}

func opBlobBaseFee(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	if evm.BlobBaseFee == nil {
		return nil, frame.Stack.Push(new(uint256.Int))
	}
	return nil, pushCopy(frame.Stack, evm.BlobBaseFee)
}

func opPop(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	_, err := frame.Stack.Pop()
	return nil, err
}

func opMload(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	offWord, _ := frame.Stack.Peek()
	offWord.SetBytes(frame.Memory.GetPtr(offWord.Uint64(), 32))
	return nil, nil
}

func opMstore(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	offset, _ := frame.Stack.Pop()
	val, _ := frame.Stack.Pop()
	frame.Memory.Set32(offset.Uint64(), val)
	return nil, nil
}

func opMstore8(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	offset, _ := frame.Stack.Pop()
	val, _ := frame.Stack.Pop()
	frame.Memory.Set(offset.Uint64(), 1, []byte{byte(val.Uint64())})
	return nil, nil
}

func opSload(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	keyWord, _ := frame.Stack.Peek()
	val := evm.State.GetState(frame.Contract.Address, word.ToHash(keyWord))
	keyWord.SetBytes(val.Bytes())
	return nil, nil
}

func opSstore(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	key, _ := frame.Stack.Pop()
	val, _ := frame.Stack.Pop()
	evm.State.SetState(frame.Contract.Address, word.ToHash(key), word.ToHash(val))
	return nil, nil
}

func opJump(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	dest, _ := frame.Stack.Pop()
	if !frame.Contract.ValidJumpdest(dest) {
		return nil, ErrInvalidJump
	}
	*pc = dest.Uint64()
	return nil, nil
}

func opJumpi(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	dest, _ := frame.Stack.Pop()
	cond, _ := frame.Stack.Pop()
	if !cond.IsZero() {
		if !frame.Contract.ValidJumpdest(dest) {
			return nil, ErrInvalidJump
		}
		*pc = dest.Uint64()
		return nil, nil
	}
	*pc++
	return nil, nil
}

func opPc(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(uint256.NewInt(*pc))
}

func opMsize(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(uint256.NewInt(uint64(frame.Memory.Len())))
}

func opGas(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(uint256.NewInt(frame.Contract.Gas))
}

func opJumpdest(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) { return nil, nil }

func opTload(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	keyWord, _ := frame.Stack.Peek()
	val := evm.State.GetTransientState(frame.Contract.Address, word.ToHash(keyWord))
	keyWord.SetBytes(val.Bytes())
	return nil, nil
}

func opTstore(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	key, _ := frame.Stack.Pop()
	val, _ := frame.Stack.Pop()
	evm.State.SetTransientState(frame.Contract.Address, word.ToHash(key), word.ToHash(val))
	return nil, nil
}

func opMcopy(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	dest, _ := frame.Stack.Pop()
	src, _ := frame.Stack.Pop()
	size, _ := frame.Stack.Pop()
	if size.IsZero() {
		return nil, nil
	}
	n := size.Uint64()
	data := make([]byte, n)
	copy(data, frame.Memory.GetPtr(src.Uint64(), n))
	frame.Memory.Set(dest.Uint64(), n, data)
	return nil, nil
}

func opPush0(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, frame.Stack.Push(new(uint256.Int))
}

// makePush returns the PUSH1-PUSH32 handler for the given immediate size.
// The outer interpreter loop increments *pc once per step for every
// non-jumping op; makePush only needs to additionally skip over its own
// immediate bytes.
func makePush(size int) executionFunc {
	return func(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
		codeLen := uint64(len(frame.Contract.Code))
		start := *pc + 1
		imm := make([]byte, size)
		if start < codeLen {
			end := start + uint64(size)
			if end > codeLen {
				end = codeLen
			}
			copy(imm, frame.Contract.Code[start:end])
		}
		if err := frame.Stack.Push(new(uint256.Int).SetBytes(imm)); err != nil {
			return nil, err
		}
		*pc += uint64(size)
		return nil, nil
	}
}

func makeDup(n int) executionFunc {
	return func(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
		return nil, frame.Stack.Dup(n)
	}
}

func makeSwap(n int) executionFunc {
	return func(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
		return nil, frame.Stack.Swap(n)
	}
}

func opReturn(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	offset, _ := frame.Stack.Pop()
	size, _ := frame.Stack.Pop()
	return frame.Memory.Get(offset.Uint64(), size.Uint64()), nil
}

func opRevert(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	offset, _ := frame.Stack.Pop()
	size, _ := frame.Stack.Pop()
	return frame.Memory.Get(offset.Uint64(), size.Uint64()), ErrExecutionReverted
}

func opInvalid(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	return nil, ErrInvalidOpcode
}

// opSelfdestruct transfers the contract's entire balance to beneficiary and
// marks it for removal at the end of the transaction (spec.md §4.I's
// end-of-tx cleanup pass walks state.CacheView.SelfDestructedAccounts, gated
// for Cancun+ by IsCreatedThisTx per EIP-6780 — see txprocessor for that
// half). Self-destructing to one's own address burns the balance rather
// than re-crediting it, matching the teacher's opSuicide.
func opSelfdestruct(pc *uint64, evm *EVM, frame *CallFrame) ([]byte, error) {
	beneficiaryWord, _ := frame.Stack.Pop()
	beneficiary := word.ToAddress(beneficiaryWord)
	addr := frame.Contract.Address

	alreadyDestructed := evm.State.HasSelfDestructed(addr)

	balance := evm.State.GetBalance(addr)
	if beneficiary != addr {
		evm.State.AddBalance(beneficiary, balance)
	}
	evm.State.SubBalance(addr, balance)
	// EIP-6780: from Cancun on, SELFDESTRUCT only marks the account for
	// removal if it was created earlier in this same transaction; otherwise
	// only the balance transfer above takes effect and the account survives.
	// Gated here (not just at end-of-tx cleanup) so the substate's
	// selfdestruct set itself never records an account that in fact is not
	// being destroyed.
	if !evm.Rules.IsCancun || evm.State.IsCreatedThisTx(addr) {
		evm.State.SelfDestruct(addr)
	}
	evm.State.MarkTouched(beneficiary)

	if !evm.Rules.IsLondon && !alreadyDestructed {
		evm.State.AddRefund(SelfdestructRefundGas)
	}
	return nil, nil
}

// mustPop pops and returns a stack value, discarding the error — callers use
// it only where the interpreter loop's minStack check already guarantees the
// item is present.
func mustPop(stack *Stack) *uint256.Int {
	v, _ := stack.Pop()
	return v
}

// copyToMemory implements the CALLDATACOPY/CODECOPY/EXTCODECOPY family:
// copy size bytes of src starting at offset into memory at destOffset,
// zero-filling past the end of src. offset/size are raw stack words (may
// exceed len(src), which is not an error — the EVM zero-pads).
func copyToMemory(frame *CallFrame, destOffset uint64, offset, size *uint256.Int, src []byte) {
	sz, err := word.ToUint64(size)
	if err != nil || sz == 0 {
		return
	}
	buf := make([]byte, sz)
	if offset.IsUint64() {
		off := offset.Uint64()
		if off < uint64(len(src)) {
			copy(buf, src[off:])
		}
	}
	frame.Memory.Set(destOffset, sz, buf)
}
