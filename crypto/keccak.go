// Package crypto provides the hashing, signature-recovery, and precompile
// cryptography the interpreter and the transaction-type hooks need:
// Keccak256 (used throughout state addressing and CREATE2), ECDSA signature
// recovery (EIP-7702 authorization-list verification), and the bodies of the
// nine-plus precompiled contracts (component K).
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/corevm-project/corevm/types"
)

// Keccak256 hashes the concatenation of data with Keccak-256 (not NIST
// SHA3-256 — Ethereum predates the final SHA-3 padding change).
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash hashes data and returns the result as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}

// CreateAddress computes the address of a contract created by CREATE: the
// low 20 bytes of keccak256(rlp([sender, nonce])).
//
// RLP-encoding a (address, uint64) pair is a handful of lines; pulling in a
// general RLP codec for this one call site isn't — so it's inlined here
// rather than grounded on a dependency, following the teacher's
// crypto.CreateAddress which does the same.
func CreateAddress(sender types.Address, nonce uint64) types.Address {
	enc := rlpEncodeCreate(sender, nonce)
	return types.BytesToAddress(Keccak256(enc))
}

// CreateAddress2 computes the address of a contract created by CREATE2:
// keccak256(0xff ‖ sender ‖ salt ‖ keccak256(initCode))[12:].
func CreateAddress2(sender types.Address, salt types.Hash, initCodeHash []byte) types.Address {
	buf := make([]byte, 0, 1+20+32+32)
	buf = append(buf, 0xff)
	buf = append(buf, sender.Bytes()...)
	buf = append(buf, salt.Bytes()...)
	buf = append(buf, initCodeHash...)
	return types.BytesToAddress(Keccak256(buf))
}

// rlpEncodeCreate encodes [sender, nonce] the way RLP would, without pulling
// in a general-purpose RLP package for a two-field, fixed-shape list.
func rlpEncodeCreate(sender types.Address, nonce uint64) []byte {
	nonceBytes := rlpUint64(nonce)
	senderItem := rlpBytesItem(sender.Bytes())
	nonceItem := rlpBytesItem(nonceBytes)

	payload := make([]byte, 0, len(senderItem)+len(nonceItem))
	payload = append(payload, senderItem...)
	payload = append(payload, nonceItem...)

	return append(rlpListPrefix(len(payload)), payload...)
}

func rlpUint64(n uint64) []byte {
	if n == 0 {
		return nil
	}
	var b [8]byte
	for i := 7; i >= 0; i-- {
		b[i] = byte(n)
		n >>= 8
	}
	i := 0
	for i < 8 && b[i] == 0 {
		i++
	}
	return b[i:]
}

func rlpBytesItem(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	if len(b) < 56 {
		return append([]byte{0x80 + byte(len(b))}, b...)
	}
	lenBytes := rlpUint64(uint64(len(b)))
	out := append([]byte{0xb7 + byte(len(lenBytes))}, lenBytes...)
	return append(out, b...)
}

func rlpListPrefix(payloadLen int) []byte {
	if payloadLen < 56 {
		return []byte{0xc0 + byte(payloadLen)}
	}
	lenBytes := rlpUint64(uint64(payloadLen))
	return append([]byte{0xf7 + byte(len(lenBytes))}, lenBytes...)
}
