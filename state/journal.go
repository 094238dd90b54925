package state

import (
	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/types"
)

// journalEntry is one undoable state mutation, grounded on the teacher's
// core/state/journal.go interface of the same name and the same revert()
// contract: each entry knows how to undo itself against the CacheView it
// was recorded against.
type journalEntry interface {
	revert(*CacheView)
}

// journal is the append-only log CacheView.Snapshot/RevertToSnapshot are
// built on — an O(1)-amortized alternative to deep-copying the whole
// world-state overlay on every nested call (spec.md §9's design note,
// GLOSSARY "Journal").
type journal struct {
	entries []journalEntry
}

func (j *journal) snapshot() int { return len(j.entries) }

func (j *journal) append(e journalEntry) { j.entries = append(j.entries, e) }

// revertToSnapshot unwinds entries back to id, in reverse order (later
// mutations must be undone before earlier ones they may depend on).
func (j *journal) revertToSnapshot(id int, v *CacheView) {
	for i := len(j.entries) - 1; i >= id; i-- {
		j.entries[i].revert(v)
	}
	j.entries = j.entries[:id]
}

type createAccountChange struct {
	addr types.Address
}

func (c createAccountChange) revert(v *CacheView) {
	delete(v.accounts, c.addr)
	delete(v.createdThisTx, c.addr)
}

type balanceChange struct {
	addr types.Address
	prev *uint256.Int
}

func (c balanceChange) revert(v *CacheView) {
	v.accounts[c.addr].Balance = c.prev
}

type nonceChange struct {
	addr types.Address
	prev uint64
}

func (c nonceChange) revert(v *CacheView) {
	v.accounts[c.addr].Nonce = c.prev
}

type codeChange struct {
	addr         types.Address
	prevCode     []byte
	prevCodeHash types.Hash
}

func (c codeChange) revert(v *CacheView) {
	acc := v.accounts[c.addr]
	acc.Code = c.prevCode
	acc.CodeHash = c.prevCodeHash
}

type deleteAccountChange struct {
	addr types.Address
	prev *types.Account
}

func (c deleteAccountChange) revert(v *CacheView) {
	v.accounts[c.addr] = c.prev
}

type storageChange struct {
	addr types.Address
	key  types.Hash
	prev types.Hash
}

func (c storageChange) revert(v *CacheView) {
	v.storage[c.addr][c.key] = c.prev
}

type transientStorageChange struct {
	addr types.Address
	key  types.Hash
	prev types.Hash
}

func (c transientStorageChange) revert(v *CacheView) {
	v.transient[c.addr][c.key] = c.prev
}

type refundChange struct {
	prev uint64
}

func (c refundChange) revert(v *CacheView) {
	v.refund = c.prev
}

type selfDestructChange struct {
	addr         types.Address
	wasDestructed bool
}

func (c selfDestructChange) revert(v *CacheView) {
	if c.wasDestructed {
		v.selfDestructed[c.addr] = struct{}{}
	} else {
		delete(v.selfDestructed, c.addr)
	}
}

type accessListAddressChange struct {
	addr types.Address
}

func (c accessListAddressChange) revert(v *CacheView) {
	delete(v.accessAddresses, c.addr)
}

type accessListSlotChange struct {
	addr types.Address
	key  types.Hash
}

func (c accessListSlotChange) revert(v *CacheView) {
	if slots, ok := v.accessSlots[c.addr]; ok {
		delete(slots, c.key)
	}
}

type logChange struct{}

func (c logChange) revert(v *CacheView) {
	v.logs = v.logs[:len(v.logs)-1]
}
