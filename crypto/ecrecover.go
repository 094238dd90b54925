package crypto

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/types"
)

// secp256k1N is the order of the secp256k1 curve — the bound signature S
// values (and, halved, the Homestead low-S malleability check) are checked
// against.
var secp256k1N = secp256k1.S256().N

var secp256k1HalfN = new(uint256.Int).Rsh(
	uint256.MustFromBig(secp256k1N), 1,
)

var (
	ErrInvalidSig       = errors.New("crypto: invalid signature")
	ErrRecoveryFailed   = errors.New("crypto: signature recovery failed")
	ErrSignatureSMalleable = errors.New("crypto: S value in upper half of curve order")
)

// ValidateSignatureValues reports whether r, s (and, for the Homestead
// EIP-2 low-S rule, s itself) are within the bounds the EVM's ECRECOVER
// precompile and EIP-7702 authorization-list verification both enforce.
// homestead selects the low-S check (it did not exist in Frontier).
func ValidateSignatureValues(v byte, r, s *uint256.Int, homestead bool) bool {
	if r.IsZero() || s.IsZero() {
		return false
	}
	rb, sb := r.ToBig(), s.ToBig()
	if rb.Cmp(secp256k1N) >= 0 || sb.Cmp(secp256k1N) >= 0 {
		return false
	}
	if homestead && s.Gt(secp256k1HalfN) {
		return false
	}
	return v <= 1
}

// Ecrecover recovers the 65-byte uncompressed public key that produced sig
// (64 bytes R‖S plus a trailing recovery-ID byte, 0-3 or 27-30) over hash.
// This is the ECRECOVER precompile's (address 0x01) core operation.
func Ecrecover(hash, sig []byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, ErrInvalidSig
	}
	recoveryID := sig[64]
	if recoveryID >= 27 {
		recoveryID -= 27
	}
	if recoveryID > 3 {
		return nil, ErrInvalidSig
	}

	compact := make([]byte, 65)
	compact[0] = recoveryID + 27
	copy(compact[1:], sig[:64])

	pub, _, err := dsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, ErrRecoveryFailed
	}
	return pub.SerializeUncompressed(), nil
}

// PublicKeyToAddress derives the Ethereum address from an uncompressed
// (65-byte, 0x04-prefixed) secp256k1 public key: the low 20 bytes of
// keccak256 of the 64-byte X‖Y encoding.
func PublicKeyToAddress(pubkey []byte) (types.Address, error) {
	if len(pubkey) != 65 || pubkey[0] != 0x04 {
		return types.Address{}, ErrInvalidSig
	}
	return types.BytesToAddress(Keccak256(pubkey[1:])), nil
}

// RecoverAddress recovers the signer address directly, combining Ecrecover
// and PublicKeyToAddress — the operation EIP-7702 authorization-list entries
// and ECRECOVER precompile callers both actually want.
func RecoverAddress(hash, sig []byte) (types.Address, error) {
	pub, err := Ecrecover(hash, sig)
	if err != nil {
		return types.Address{}, err
	}
	return PublicKeyToAddress(pub)
}

// RecoverAuthority recovers the signing EOA of an EIP-7702 authorization
// tuple. The signed digest is keccak256(0x05 ‖ rlp([chainId, address,
// nonce])); callers supply the already-hashed digest since RLP-encoding the
// tuple is the caller's (types.Authorization construction) responsibility.
func RecoverAuthority(digest types.Hash, yParity uint8, r, s *uint256.Int) (types.Address, error) {
	if !ValidateSignatureValues(yParity, r, s, true) {
		return types.Address{}, ErrInvalidSig
	}
	var rb, sb [32]byte
	r.WriteToSlice(rb[:])
	s.WriteToSlice(sb[:])
	sig := make([]byte, 65)
	copy(sig[0:32], rb[:])
	copy(sig[32:64], sb[:])
	sig[64] = yParity
	return RecoverAddress(digest.Bytes(), sig)
}
