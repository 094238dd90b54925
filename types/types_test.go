package types

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestAccountIsEmpty(t *testing.T) {
	empty := NewEmptyAccount()
	if !empty.IsEmpty() {
		t.Fatalf("NewEmptyAccount() is not empty")
	}
	if empty.HasCodeOrNonce() {
		t.Fatalf("NewEmptyAccount() reports HasCodeOrNonce")
	}

	withNonce := Account{Balance: new(uint256.Int), Nonce: 1}
	if withNonce.IsEmpty() {
		t.Fatalf("account with nonce=1 reported empty")
	}
	if !withNonce.HasCodeOrNonce() {
		t.Fatalf("account with nonce=1 reported !HasCodeOrNonce")
	}

	withCode := Account{Balance: new(uint256.Int), Code: []byte{0x60, 0x00}}
	if withCode.IsEmpty() || !withCode.HasCodeOrNonce() {
		t.Fatalf("account with code not reported as has-code-or-nonce")
	}

	withBalance := Account{Balance: uint256.NewInt(1)}
	if withBalance.IsEmpty() {
		t.Fatalf("account with balance=1 reported empty")
	}
}

func TestMessageKindDistinguishesCreateFromCall(t *testing.T) {
	create := Message{Kind: TxKindCreate}
	if create.Kind != TxKindCreate {
		t.Fatalf("expected TxKindCreate")
	}
	call := Message{Kind: TxKindCall, To: BytesToAddress([]byte{0x01})}
	if call.Kind != TxKindCall {
		t.Fatalf("expected TxKindCall")
	}
}
