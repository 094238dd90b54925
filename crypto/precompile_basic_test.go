package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestIdentityReturnsCopy(t *testing.T) {
	in := []byte{1, 2, 3}
	out := Identity(in)
	if !bytes.Equal(in, out) {
		t.Fatalf("Identity(%v) = %v", in, out)
	}
	out[0] = 9
	if in[0] == 9 {
		t.Fatalf("Identity did not copy its input")
	}
}

func TestSha256KnownVector(t *testing.T) {
	got := hex.EncodeToString(Sha256([]byte("abc")))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("Sha256(abc) = %s, want %s", got, want)
	}
}

func TestRipemd160PadsTo32Bytes(t *testing.T) {
	out := Ripemd160([]byte("abc"))
	if len(out) != 32 {
		t.Fatalf("Ripemd160 output length = %d, want 32", len(out))
	}
	for _, b := range out[:12] {
		if b != 0 {
			t.Fatalf("Ripemd160 output not left-zero-padded: %x", out)
		}
	}
}

func TestModExpSmall(t *testing.T) {
	// 3^5 mod 100 = 43
	base := []byte{3}
	exp := []byte{5}
	mod := []byte{100}
	got := ModExp(1, 1, 1, base, exp, mod)
	if len(got) != 1 || got[0] != 43 {
		t.Fatalf("ModExp(3,5,100) = %v, want [43]", got)
	}
}

func TestModExpZeroModulus(t *testing.T) {
	got := ModExp(1, 1, 1, []byte{3}, []byte{5}, []byte{0})
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("ModExp with modulus=0 = %v, want [0]", got)
	}
}
