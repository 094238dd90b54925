package crypto

import (
	"bytes"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

func TestEcrecoverRoundTrip(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	hash := Keccak256([]byte("message to sign"))

	compactSig := dsa.SignCompact(key, hash, false)
	// dsa.SignCompact returns recovery-ID-prefixed-by-27 ‖ R ‖ S; Ecrecover
	// expects R ‖ S ‖ V, so rearrange.
	sig := make([]byte, 65)
	copy(sig[0:64], compactSig[1:65])
	sig[64] = compactSig[0] - 27

	pub, err := Ecrecover(hash, sig)
	if err != nil {
		t.Fatalf("Ecrecover: %v", err)
	}
	wantPub := key.PubKey().SerializeUncompressed()
	if !bytes.Equal(pub, wantPub) {
		t.Fatalf("Ecrecover recovered wrong public key")
	}

	addr, err := RecoverAddress(hash, sig)
	if err != nil {
		t.Fatalf("RecoverAddress: %v", err)
	}
	wantAddr, err := PublicKeyToAddress(wantPub)
	if err != nil {
		t.Fatalf("PublicKeyToAddress: %v", err)
	}
	if addr != wantAddr {
		t.Fatalf("RecoverAddress = %x, want %x", addr, wantAddr)
	}
}

func TestEcrecoverRejectsShortSignature(t *testing.T) {
	if _, err := Ecrecover(make([]byte, 32), make([]byte, 64)); err != ErrInvalidSig {
		t.Fatalf("Ecrecover with 64-byte sig: err = %v, want ErrInvalidSig", err)
	}
}

func TestPublicKeyToAddressRejectsCompressed(t *testing.T) {
	key, _ := secp256k1.GeneratePrivateKey()
	compressed := key.PubKey().SerializeCompressed()
	if _, err := PublicKeyToAddress(compressed); err != ErrInvalidSig {
		t.Fatalf("PublicKeyToAddress(compressed): err = %v, want ErrInvalidSig", err)
	}
}
