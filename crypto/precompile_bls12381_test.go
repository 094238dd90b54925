package crypto

import "testing"

func TestBLS12381G1AddRejectsBadLength(t *testing.T) {
	if _, err := BLS12381G1Add(make([]byte, 10)); err != ErrBLSInvalidLength {
		t.Fatalf("BLS12381G1Add(short): err = %v, want ErrBLSInvalidLength", err)
	}
}

func TestBLS12381G1MulRejectsBadLength(t *testing.T) {
	if _, err := BLS12381G1Mul(make([]byte, bls12381G1Size)); err != ErrBLSInvalidLength {
		t.Fatalf("BLS12381G1Mul(missing scalar): err = %v, want ErrBLSInvalidLength", err)
	}
}

func TestBLS12381G1MSMRejectsNonMultipleLength(t *testing.T) {
	entry := bls12381G1Size + 32
	if _, err := BLS12381G1MSM(make([]byte, entry+1)); err != ErrBLSInvalidLength {
		t.Fatalf("BLS12381G1MSM(misaligned): err = %v, want ErrBLSInvalidLength", err)
	}
}

func TestBLS12381PairingEmptyInputSucceeds(t *testing.T) {
	ok, err := BLS12381Pairing(nil)
	if err != nil || !ok {
		t.Fatalf("BLS12381Pairing(empty) = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestBLS12381TrimFpRejectsNonZeroPrefix(t *testing.T) {
	b := make([]byte, bls12381FpSize)
	b[0] = 1
	if _, err := bls12381TrimFp(b); err != ErrBLSInvalidPoint {
		t.Fatalf("bls12381TrimFp(nonzero prefix): err = %v, want ErrBLSInvalidPoint", err)
	}
}
