package crypto

import (
	"encoding/binary"
	"errors"
)

// Blake2F is precompile 0x09 (EIP-152): the raw BLAKE2b F compression
// function, exposed directly so callers (notably the Zcash Equihash-derived
// chains) can implement BLAKE2b-based proofs inside the EVM.
//
// golang.org/x/crypto/blake2b only exposes the whole-hash API, not the bare
// F permutation EIP-152 calls for, so this is the one precompile body
// implemented directly against RFC 7693 rather than wired to an imported
// library — there is no ecosystem package in the corpus exposing a freestanding
// BLAKE2b compression function.
var ErrBlake2FInvalidInput = errors.New("blake2f: invalid input length")

var blake2bIV = [8]uint64{
	0x6a09e667f3bcc908, 0xbb67ae8584caa73b,
	0x3c6ef372fe94f82b, 0xa54ff53a5f1d36f1,
	0x510e527fade682d1, 0x9b05688c2b3e6c1f,
	0x1f83d9abfb41bd6b, 0x5be0cd19137e2179,
}

var blake2bSigma = [10][16]byte{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	{14, 10, 4, 8, 9, 15, 13, 6, 1, 12, 0, 2, 11, 7, 5, 3},
	{11, 8, 12, 0, 5, 2, 15, 13, 10, 14, 3, 6, 7, 1, 9, 4},
	{7, 9, 3, 1, 13, 12, 11, 14, 2, 6, 5, 10, 4, 0, 15, 8},
	{9, 0, 5, 7, 2, 4, 10, 15, 14, 1, 11, 12, 6, 8, 3, 13},
	{2, 12, 6, 10, 0, 11, 8, 3, 4, 13, 7, 5, 15, 14, 1, 9},
	{12, 5, 1, 15, 14, 13, 4, 10, 0, 7, 6, 3, 9, 2, 8, 11},
	{13, 11, 7, 14, 12, 1, 3, 9, 5, 0, 15, 4, 8, 6, 2, 10},
	{6, 15, 14, 9, 11, 3, 0, 8, 12, 2, 13, 7, 1, 4, 10, 5},
	{10, 2, 8, 4, 7, 6, 1, 5, 15, 11, 9, 14, 3, 12, 13, 0},
}

func rotr64(x uint64, n uint) uint64 { return (x >> n) | (x << (64 - n)) }

// blake2fCompress implements the F function with the given round count,
// running a variable rounds parameter since EIP-152 allows callers to set it
// independently of BLAKE2b's canonical 12 rounds.
func blake2fCompress(rounds uint32, h *[8]uint64, m *[16]uint64, t [2]uint64, final bool) {
	var v [16]uint64
	copy(v[0:8], h[:])
	copy(v[8:16], blake2bIV[:])
	v[12] ^= t[0]
	v[13] ^= t[1]
	if final {
		v[14] = ^v[14]
	}

	g := func(a, b, c, d, x, y int) {
		v[a] = v[a] + v[b] + m[x]
		v[d] = rotr64(v[d]^v[a], 32)
		v[c] = v[c] + v[d]
		v[b] = rotr64(v[b]^v[c], 24)
		v[a] = v[a] + v[b] + m[y]
		v[d] = rotr64(v[d]^v[a], 16)
		v[c] = v[c] + v[d]
		v[b] = rotr64(v[b]^v[c], 63)
	}

	for r := uint32(0); r < rounds; r++ {
		s := blake2bSigma[r%10]
		g(0, 4, 8, 12, int(s[0]), int(s[1]))
		g(1, 5, 9, 13, int(s[2]), int(s[3]))
		g(2, 6, 10, 14, int(s[4]), int(s[5]))
		g(3, 7, 11, 15, int(s[6]), int(s[7]))
		g(0, 5, 10, 15, int(s[8]), int(s[9]))
		g(1, 6, 11, 12, int(s[10]), int(s[11]))
		g(2, 7, 8, 13, int(s[12]), int(s[13]))
		g(3, 4, 9, 14, int(s[14]), int(s[15]))
	}

	for i := 0; i < 8; i++ {
		h[i] ^= v[i] ^ v[i+8]
	}
}

// Blake2FCompress runs the BLAKE2b F function on an EIP-152-encoded input:
// 4-byte big-endian round count, 64-byte h, 128-byte m, 16-byte t (two
// little-endian uint64 offsets), and a final 1-byte flag.
func Blake2FCompress(input []byte) ([]byte, error) {
	if len(input) != 213 {
		return nil, ErrBlake2FInvalidInput
	}
	if input[212] != 0 && input[212] != 1 {
		return nil, ErrBlake2FInvalidInput
	}

	rounds := binary.BigEndian.Uint32(input[0:4])

	var h [8]uint64
	for i := 0; i < 8; i++ {
		h[i] = binary.LittleEndian.Uint64(input[4+i*8 : 12+i*8])
	}
	var m [16]uint64
	for i := 0; i < 16; i++ {
		m[i] = binary.LittleEndian.Uint64(input[68+i*8 : 76+i*8])
	}
	t := [2]uint64{
		binary.LittleEndian.Uint64(input[196:204]),
		binary.LittleEndian.Uint64(input[204:212]),
	}
	final := input[212] == 1

	blake2fCompress(rounds, &h, &m, t, final)

	out := make([]byte, 64)
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint64(out[i*8:i*8+8], h[i])
	}
	return out, nil
}
