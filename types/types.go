// Package types defines the account, log, and transaction-message shapes
// shared between the cached database view, the substate, and the
// interpreter.
package types

import (
	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/word"
)

// Address and Hash are re-exported from word so callers of this package
// don't need to import word directly for the common case.
type (
	Address = word.Address
	Hash    = word.Hash
)

// BytesToAddress and BytesToHash are re-exported so packages that only need
// types (not the lower-level word conversions) don't need a second import.
var (
	BytesToAddress = word.BytesToAddress
	BytesToHash    = word.BytesToHash
)

// Account is the persistent-state shape consumed from state.Store and
// staged back into the cache (spec.md §3).
//
// Account is empty iff Balance == 0 && Nonce == 0 && len(Code) == 0
// (EIP-161). has_code_or_nonce is the negation of (Nonce == 0 && Code
// empty); CREATE collision detection (spec.md §4.I step 4) checks exactly
// that.
type Account struct {
	Balance *uint256.Int
	Nonce   uint64
	Code    []byte
	// CodeHash caches keccak256(Code); computed lazily by callers that need
	// it (EXTCODEHASH), not maintained as an invariant by this struct.
	CodeHash Hash
}

// NewEmptyAccount returns a zero-value account (empty, per EIP-161).
func NewEmptyAccount() Account {
	return Account{Balance: new(uint256.Int)}
}

// HasCodeOrNonce reports whether the account is a contract or has sent a
// transaction (nonce > 0) — the condition CREATE collision detection and
// EIP-161 empty-account pruning both depend on.
func (a Account) HasCodeOrNonce() bool {
	return a.Nonce != 0 || len(a.Code) != 0
}

// IsEmpty reports whether the account is empty per EIP-161: zero balance,
// zero nonce, no code.
func (a Account) IsEmpty() bool {
	return (a.Balance == nil || a.Balance.IsZero()) && a.Nonce == 0 && len(a.Code) == 0
}

// Log is a single event emitted by LOG0-LOG4.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
	// TxHash/TxIndex/BlockNumber/BlockHash/Index are populated by the
	// enclosing block processor once the transaction's position in the
	// block is known; the interpreter itself only fills Address/Topics/Data.
	BlockNumber uint64
	TxHash      Hash
	TxIndex     uint
	BlockHash   Hash
	Index       uint
}

// AccessTuple is one (address, storage keys) entry of an EIP-2930 access
// list.
type AccessTuple struct {
	Address     Address
	StorageKeys []Hash
}

// AccessList is a caller-declared set of addresses/slots pre-marked warm
// (EIP-2930).
type AccessList []AccessTuple

// Authorization is one entry of an EIP-7702 authorization list: a signed
// statement "nonce N of chain C authorizes my EOA to delegate to Address".
type Authorization struct {
	ChainID uint64
	Address Address
	Nonce   uint64
	YParity uint8
	R, S    *uint256.Int
}

// TxKind distinguishes a CALL transaction from a CREATE transaction;
// Message.To is read only when Kind is TxKindCall.
type TxKind uint8

const (
	TxKindCall TxKind = iota
	TxKindCreate
)

// Message is the already-decoded view of a transaction the interpreter and
// the transaction-type hooks consume. Decoding the five typed-transaction
// wire formats (Legacy, EIP-2930, 1559, 4844, 7702) named in spec.md §6 is
// the enclosing block-validator's job; Message is its output.
type Message struct {
	Kind     TxKind
	From     Address
	To       Address // meaningful only when Kind == TxKindCall
	Nonce    uint64
	Value    *uint256.Int
	GasLimit uint64
	// GasPrice is used for legacy/2930 transactions; GasFeeCap/GasTipCap for
	// 1559+. The effective gas price is resolved against the block's base
	// fee by the caller before Message is constructed is not required —
	// txprocessor.StandardHook resolves it from BaseFee at prepare time.
	GasPrice  *uint256.Int
	GasFeeCap *uint256.Int
	GasTipCap *uint256.Int
	Data      []byte

	AccessList        AccessList
	BlobHashes        []Hash
	BlobGasFeeCap     *uint256.Int
	AuthorizationList []Authorization

	// IsPrivileged marks an operator-submitted transaction (e.g. an L2
	// deposit) that the PrivilegedL2Hook processes instead of StandardHook:
	// no sender balance deduction, no nonce bump.
	IsPrivileged bool
}
