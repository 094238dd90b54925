package state

import (
	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/types"
)

// CacheView is the read-through, journaled overlay over a Store (component
// B) plus the per-transaction substate (component F: selfdestruct set,
// touched accounts/slots, created-accounts set, refunded gas, transient
// storage). One CacheView lives for exactly one transaction; mutations land
// here and are never written back to Store directly — that's the enclosing
// block processor's job once the transaction finalizes.
//
// Grounded on the teacher's core/state/memory_statedb.go MemoryStateDB,
// generalized so the backing Store is an injected interface instead of an
// in-process trie, and so every mutating method appends a journalEntry
// instead of being itself the source of truth (Snapshot/RevertToSnapshot
// replay that journal rather than restoring a deep copy).
type CacheView struct {
	store Store

	accounts map[types.Address]*types.Account
	loaded   map[types.Address]bool // true once fetched from store (hit or miss)

	storage         map[types.Address]map[types.Hash]types.Hash
	storageOriginal map[types.Address]map[types.Hash]types.Hash // frozen at first access this tx
	transient       map[types.Address]map[types.Hash]types.Hash

	selfDestructed  map[types.Address]struct{}
	touched         map[types.Address]struct{}
	createdThisTx   map[types.Address]struct{}
	accessAddresses map[types.Address]struct{}
	accessSlots     map[types.Address]map[types.Hash]struct{}

	logs   []types.Log
	refund uint64

	journal journal
}

// NewCacheView constructs an empty overlay backed by store.
func NewCacheView(store Store) *CacheView {
	return &CacheView{
		store:           store,
		accounts:        make(map[types.Address]*types.Account),
		loaded:          make(map[types.Address]bool),
		storage:         make(map[types.Address]map[types.Hash]types.Hash),
		storageOriginal: make(map[types.Address]map[types.Hash]types.Hash),
		transient:       make(map[types.Address]map[types.Hash]types.Hash),
		selfDestructed:  make(map[types.Address]struct{}),
		touched:         make(map[types.Address]struct{}),
		createdThisTx:   make(map[types.Address]struct{}),
		accessAddresses: make(map[types.Address]struct{}),
		accessSlots:     make(map[types.Address]map[types.Hash]struct{}),
	}
}

func (v *CacheView) account(addr types.Address) *types.Account {
	if acc, ok := v.accounts[addr]; ok {
		return acc
	}
	var acc types.Account
	if v.store != nil {
		stored, found, err := v.store.GetAccount(addr)
		if err == nil && found {
			acc = stored
		}
	}
	if acc.Balance == nil {
		acc.Balance = new(uint256.Int)
	}
	cp := acc
	v.accounts[addr] = &cp
	v.loaded[addr] = true
	return v.accounts[addr]
}

// CreateAccount resets addr to a fresh, empty account — the effect of a
// successful CREATE/CREATE2 before the init code's balance/code land — and
// marks it created this transaction (CREATE collision / EIP-161 bookkeeping).
func (v *CacheView) CreateAccount(addr types.Address) {
	v.journal.append(createAccountChange{addr})
	v.accounts[addr] = &types.Account{Balance: new(uint256.Int)}
	v.loaded[addr] = true
	v.createdThisTx[addr] = struct{}{}
}

// IsCreatedThisTx reports whether addr was created (via CREATE/CREATE2) in
// the current transaction — EIP-6780 gates SELFDESTRUCT's balance-clearing
// behavior on exactly this condition post-Cancun.
func (v *CacheView) IsCreatedThisTx(addr types.Address) bool {
	_, ok := v.createdThisTx[addr]
	return ok
}

func (v *CacheView) SubBalance(addr types.Address, amount *uint256.Int) {
	acc := v.account(addr)
	v.journal.append(balanceChange{addr, acc.Balance})
	acc.Balance = new(uint256.Int).Sub(acc.Balance, amount)
}

func (v *CacheView) AddBalance(addr types.Address, amount *uint256.Int) {
	acc := v.account(addr)
	v.journal.append(balanceChange{addr, acc.Balance})
	acc.Balance = new(uint256.Int).Add(acc.Balance, amount)
}

func (v *CacheView) GetBalance(addr types.Address) *uint256.Int {
	return v.account(addr).Balance
}

func (v *CacheView) GetNonce(addr types.Address) uint64 { return v.account(addr).Nonce }

func (v *CacheView) SetNonce(addr types.Address, nonce uint64) {
	acc := v.account(addr)
	v.journal.append(nonceChange{addr, acc.Nonce})
	acc.Nonce = nonce
}

func (v *CacheView) GetCode(addr types.Address) []byte { return v.account(addr).Code }

func (v *CacheView) GetCodeHash(addr types.Address) types.Hash { return v.account(addr).CodeHash }

func (v *CacheView) GetCodeSize(addr types.Address) int { return len(v.account(addr).Code) }

// SetCode installs code and its hash — deploying a CREATE/CREATE2 result, or
// (EIP-7702) a 23-byte delegation designator into an EOA.
func (v *CacheView) SetCode(addr types.Address, codeHash types.Hash, code []byte) {
	acc := v.account(addr)
	v.journal.append(codeChange{addr, acc.Code, acc.CodeHash})
	acc.Code = code
	acc.CodeHash = codeHash
}

// DeleteAccount removes addr from the cache entirely — the end-of-
// transaction cleanup pass applies this to every selfdestructed account
// (once eligible, per EIP-6780) and every touched account that EIP-161
// finds empty. Deleting an address that was never loaded is a no-op.
func (v *CacheView) DeleteAccount(addr types.Address) {
	acc, ok := v.accounts[addr]
	if !ok {
		return
	}
	v.journal.append(deleteAccountChange{addr, acc})
	delete(v.accounts, addr)
}

func (v *CacheView) SelfDestruct(addr types.Address) {
	_, was := v.selfDestructed[addr]
	v.journal.append(selfDestructChange{addr, was})
	v.selfDestructed[addr] = struct{}{}
}

func (v *CacheView) HasSelfDestructed(addr types.Address) bool {
	_, ok := v.selfDestructed[addr]
	return ok
}

func (v *CacheView) storageSlots(addr types.Address) map[types.Hash]types.Hash {
	m, ok := v.storage[addr]
	if !ok {
		m = make(map[types.Hash]types.Hash)
		v.storage[addr] = m
	}
	return m
}

// GetState returns the current (possibly dirty, within this transaction)
// value of a storage slot.
func (v *CacheView) GetState(addr types.Address, key types.Hash) types.Hash {
	slots := v.storageSlots(addr)
	if val, ok := slots[key]; ok {
		return val
	}
	val := v.loadOriginal(addr, key)
	slots[key] = val
	return val
}

// GetCommittedState returns the slot's value as of the start of this
// transaction (before any SSTORE in it), the "original_value" EIP-2200/3529
// gas accounting and EIP-2929 warm/cold tracking both need.
func (v *CacheView) GetCommittedState(addr types.Address, key types.Hash) types.Hash {
	return v.loadOriginal(addr, key)
}

func (v *CacheView) loadOriginal(addr types.Address, key types.Hash) types.Hash {
	byAddr, ok := v.storageOriginal[addr]
	if !ok {
		byAddr = make(map[types.Hash]types.Hash)
		v.storageOriginal[addr] = byAddr
	}
	if val, ok := byAddr[key]; ok {
		return val
	}
	var val types.Hash
	if v.store != nil {
		if stored, err := v.store.GetStorageSlot(addr, key); err == nil {
			val = stored
		}
	}
	byAddr[key] = val
	return val
}

func (v *CacheView) SetState(addr types.Address, key types.Hash, value types.Hash) {
	slots := v.storageSlots(addr)
	prev := v.GetState(addr, key)
	v.journal.append(storageChange{addr, key, prev})
	slots[key] = value
}

func (v *CacheView) Exist(addr types.Address) bool {
	if _, ok := v.accounts[addr]; ok {
		return true
	}
	if v.store == nil {
		return false
	}
	_, found, err := v.store.GetAccount(addr)
	return err == nil && found
}

// Empty reports whether addr is EIP-161-empty: zero balance, zero nonce, no
// code.
func (v *CacheView) Empty(addr types.Address) bool {
	if !v.Exist(addr) {
		return true
	}
	return v.account(addr).IsEmpty()
}

func (v *CacheView) Snapshot() int { return v.journal.snapshot() }

func (v *CacheView) RevertToSnapshot(id int) { v.journal.revertToSnapshot(id, v) }

func (v *CacheView) AddLog(log types.Log) {
	v.journal.append(logChange{})
	v.logs = append(v.logs, log)
}

func (v *CacheView) Logs() []types.Log { return v.logs }

func (v *CacheView) AddRefund(gas uint64) {
	v.journal.append(refundChange{v.refund})
	v.refund += gas
}

// SubRefund decreases the refund counter; per spec.md it must never
// underflow a transaction that correctly tracks its own SSTORE history.
func (v *CacheView) SubRefund(gas uint64) {
	v.journal.append(refundChange{v.refund})
	if gas > v.refund {
		v.refund = 0
		return
	}
	v.refund -= gas
}

func (v *CacheView) GetRefund() uint64 { return v.refund }

// AddAddressToAccessList marks addr warm (EIP-2929), returning whether it
// was already warm.
func (v *CacheView) AddAddressToAccessList(addr types.Address) (wasWarm bool) {
	if _, ok := v.accessAddresses[addr]; ok {
		return true
	}
	v.journal.append(accessListAddressChange{addr})
	v.accessAddresses[addr] = struct{}{}
	return false
}

func (v *CacheView) AddressInAccessList(addr types.Address) bool {
	_, ok := v.accessAddresses[addr]
	return ok
}

// AddSlotToAccessList marks (addr,key) warm, returning whether the address
// and the slot were already warm respectively.
func (v *CacheView) AddSlotToAccessList(addr types.Address, key types.Hash) (addrWarm, slotWarm bool) {
	addrWarm = v.AddAddressToAccessList(addr)
	slots, ok := v.accessSlots[addr]
	if !ok {
		slots = make(map[types.Hash]struct{})
		v.accessSlots[addr] = slots
	}
	if _, ok := slots[key]; ok {
		return addrWarm, true
	}
	v.journal.append(accessListSlotChange{addr, key})
	slots[key] = struct{}{}
	return addrWarm, false
}

func (v *CacheView) SlotInAccessList(addr types.Address, key types.Hash) (addrWarm, slotWarm bool) {
	addrWarm = v.AddressInAccessList(addr)
	if slots, ok := v.accessSlots[addr]; ok {
		_, slotWarm = slots[key]
	}
	return addrWarm, slotWarm
}

func (v *CacheView) transientSlots(addr types.Address) map[types.Hash]types.Hash {
	m, ok := v.transient[addr]
	if !ok {
		m = make(map[types.Hash]types.Hash)
		v.transient[addr] = m
	}
	return m
}

// GetTransientState reads a transient-storage slot (EIP-1153); transient
// storage carries no warm/cold gas distinction and is not in the journal
// replay path for Snapshot/RevertToSnapshot beyond the ordinary per-write
// journaling below, since it is itself cleared wholesale at transaction end.
func (v *CacheView) GetTransientState(addr types.Address, key types.Hash) types.Hash {
	return v.transientSlots(addr)[key]
}

func (v *CacheView) SetTransientState(addr types.Address, key types.Hash, value types.Hash) {
	slots := v.transientSlots(addr)
	prev := slots[key]
	v.journal.append(transientStorageChange{addr, key, prev})
	slots[key] = value
}

// ClearTransientStorage wipes all transient storage — called once at the
// end of every transaction (EIP-1153 scopes it to a single transaction, not
// a single call frame).
func (v *CacheView) ClearTransientStorage() {
	v.transient = make(map[types.Address]map[types.Hash]types.Hash)
}

// MarkTouched records addr as touched this transaction — EIP-161 empty
// account pruning only considers accounts that were touched. Touched status
// is never reverted: it only grows monotonically within a transaction, even
// when the frame that touched the account later reverts.
func (v *CacheView) MarkTouched(addr types.Address) {
	if _, was := v.touched[addr]; was {
		return
	}
	v.touched[addr] = struct{}{}
}

func (v *CacheView) TouchedAccounts() []types.Address {
	out := make([]types.Address, 0, len(v.touched))
	for addr := range v.touched {
		out = append(out, addr)
	}
	return out
}

func (v *CacheView) SelfDestructedAccounts() []types.Address {
	out := make([]types.Address, 0, len(v.selfDestructed))
	for addr := range v.selfDestructed {
		out = append(out, addr)
	}
	return out
}
