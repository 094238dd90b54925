package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/corevm-project/corevm/types"
)

func TestKeccak256EmptyInput(t *testing.T) {
	got := hex.EncodeToString(Keccak256())
	want := "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if got != want {
		t.Fatalf("Keccak256() = %s, want %s", got, want)
	}
}

func TestKeccak256Hash(t *testing.T) {
	h := Keccak256Hash([]byte("corevm"))
	if h.IsZero() {
		t.Fatalf("Keccak256Hash returned zero hash")
	}
	if h != types.BytesToHash(Keccak256([]byte("corevm"))) {
		t.Fatalf("Keccak256Hash disagrees with Keccak256")
	}
}

func TestCreateAddressNonceZero(t *testing.T) {
	sender := types.BytesToAddress(mustHex("6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0"))
	got := CreateAddress(sender, 0)
	want := types.BytesToAddress(mustHex("cd234a471b72ba2f1ccf0a70fcaba648a5eecd8d"))
	if got != want {
		t.Fatalf("CreateAddress(sender, 0) = %x, want %x", got, want)
	}
}

func TestCreateAddress2Deterministic(t *testing.T) {
	sender := types.Address{}
	salt := types.Hash{}
	initCodeHash := Keccak256([]byte{0x60, 0x00, 0x60, 0x00})
	a1 := CreateAddress2(sender, salt, initCodeHash)
	a2 := CreateAddress2(sender, salt, initCodeHash)
	if a1 != a2 {
		t.Fatalf("CreateAddress2 not deterministic")
	}
	salt2 := types.BytesToHash([]byte{0x01})
	a3 := CreateAddress2(sender, salt2, initCodeHash)
	if a1 == a3 {
		t.Fatalf("CreateAddress2 did not vary with salt")
	}
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
