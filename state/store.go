// Package state implements the read-through cache over the external
// persistent store (component B) and the per-transaction substate —
// selfdestruct set, touched accounts/slots, transient storage, and the
// journaled snapshot/revert mechanism (component F) — that together let the
// interpreter undo a failed call frame without a deep copy of the world
// state.
package state

import (
	"github.com/corevm-project/corevm/types"
)

// Store is the external persistent-state interface this repo consumes but
// never implements (spec.md §6) — a block-processor-owned database view.
// CacheView is the only consumer; a cache miss here is the only time this
// repo reads from outside its own transaction-scoped overlay.
type Store interface {
	GetAccount(addr types.Address) (types.Account, bool, error)
	GetStorageSlot(addr types.Address, key types.Hash) (types.Hash, error)
	GetBlockHash(number uint64) (types.Hash, error)
}
