package crypto

import (
	"bytes"
	"errors"
	"sync"

	goethkzg "github.com/crate-crypto/go-eth-kzg"
)

// KZG point-evaluation precompile (0x0a, EIP-4844): verifies that a blob
// committed to by `commitment` evaluates to `y` at `z`, given an opening
// proof, then returns the fixed (FIELD_ELEMENTS_PER_BLOB, BLS modulus) pair
// the caller needs to cross-check against the versioned blob hash.
//
// Grounded on the teacher's kzg_goeth_adapter.go, which wires the same
// crate-crypto/go-eth-kzg library but behind a build tag (the teacher keeps
// a toy in-repo KZG implementation as the default and the real ceremony
// setup opt-in); this precompile always uses the real ceremony context since
// a production interpreter has no toy fallback to offer.

const (
	KZGBytesPerCommitment = 48
	KZGBytesPerProof      = 48
	KZGBytesPerFieldElem  = 32
	KZGVersionedHashVersion = 0x01
)

// FieldElementsPerBlob and BLSModulus are the two 32-byte outputs the
// point-evaluation precompile returns on success, per EIP-4844.
var (
	FieldElementsPerBlob = mustBytes32FromUint64(4096)
	BLSModulus, _        = newBytes32FromHex(
		"73eda753299d7d483339d80809a1d80553bda402fffe5bfeffffffff00000001",
	)
)

var (
	ErrKZGInvalidCommitment = errors.New("kzg: invalid commitment")
	ErrKZGInvalidProof      = errors.New("kzg: invalid proof")
	ErrKZGVerifyFailed      = errors.New("kzg: proof verification failed")
	ErrKZGInvalidInput      = errors.New("kzg: invalid point-evaluation input")
)

var (
	kzgCtxOnce sync.Once
	kzgCtx     *goethkzg.Context
	kzgCtxErr  error
)

func kzgContext() (*goethkzg.Context, error) {
	kzgCtxOnce.Do(func() {
		kzgCtx, kzgCtxErr = goethkzg.NewContext4096Secure()
	})
	return kzgCtx, kzgCtxErr
}

// PointEvaluationPrecompile implements precompile 0x0a's full 192-byte input
// contract: versioned_hash(32) || z(32) || y(32) || commitment(48) ||
// proof(48). Returns the fixed (field-elements-per-blob, bls-modulus) output
// pair on success.
func PointEvaluationPrecompile(input []byte) ([]byte, error) {
	if len(input) != 192 {
		return nil, ErrKZGInvalidInput
	}
	versionedHash := input[0:32]
	var z, y [32]byte
	copy(z[:], input[32:64])
	copy(y[:], input[64:96])
	var commitment [KZGBytesPerCommitment]byte
	copy(commitment[:], input[96:144])
	var proof [KZGBytesPerProof]byte
	copy(proof[:], input[144:192])

	if !bytes.Equal(versionedHash, commitmentToVersionedHash(commitment)) {
		return nil, ErrKZGInvalidCommitment
	}

	ctx, err := kzgContext()
	if err != nil {
		return nil, err
	}
	var comm goethkzg.KZGCommitment
	copy(comm[:], commitment[:])
	var pr goethkzg.KZGProof
	copy(pr[:], proof[:])

	ok, err := ctx.VerifyKZGProof(comm, z, y, pr)
	if err != nil || !ok {
		return nil, ErrKZGVerifyFailed
	}

	out := make([]byte, 64)
	copy(out[0:32], FieldElementsPerBlob[:])
	copy(out[32:64], BLSModulus[:])
	return out, nil
}

// commitmentToVersionedHash computes the EIP-4844 versioned hash of a KZG
// commitment: version byte 0x01 followed by the low 31 bytes of
// sha256(commitment).
func commitmentToVersionedHash(commitment [KZGBytesPerCommitment]byte) []byte {
	h := Sha256(commitment[:])
	h[0] = KZGVersionedHashVersion
	return h
}

func mustBytes32FromUint64(v uint64) [32]byte {
	var b [32]byte
	for i := 0; i < 8; i++ {
		b[31-i] = byte(v)
		v >>= 8
	}
	return b
}

func newBytes32FromHex(hexStr string) ([32]byte, error) {
	var out [32]byte
	decoded, err := hexDecode(hexStr)
	if err != nil {
		return out, err
	}
	copy(out[32-len(decoded):], decoded)
	return out, nil
}

func hexDecode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, errors.New("kzg: odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, err := hexNibble(s[i*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexNibble(s[i*2+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, errors.New("kzg: invalid hex digit")
	}
}
