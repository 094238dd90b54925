package txprocessor

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/corevm-project/corevm/params"
	"github.com/corevm-project/corevm/types"
)

func TestIntrinsicGasPlainCall(t *testing.T) {
	msg := &types.Message{Kind: types.TxKindCall}
	rules := params.RulesForFork(params.Istanbul)
	if got := IntrinsicGas(msg, rules); got != TxGas {
		t.Fatalf("IntrinsicGas() = %d, want %d", got, TxGas)
	}
}

func TestIntrinsicGasCreateSurcharge(t *testing.T) {
	msg := &types.Message{Kind: types.TxKindCreate}
	rules := params.RulesForFork(params.Istanbul)
	want := TxGas + TxCreateGas
	if got := IntrinsicGas(msg, rules); got != want {
		t.Fatalf("IntrinsicGas() = %d, want %d", got, want)
	}
}

func TestIntrinsicGasCreateShanghaiInitCodeWordGas(t *testing.T) {
	msg := &types.Message{Kind: types.TxKindCreate, Data: make([]byte, 64)}
	rules := params.RulesForFork(params.Shanghai)
	// 64 zero bytes: TxGas + TxCreateGas + 64*TxDataZeroGas + 2 words*InitCodeWordGas
	want := TxGas + TxCreateGas + 64*TxDataZeroGas + 2*InitCodeWordGas
	if got := IntrinsicGas(msg, rules); got != want {
		t.Fatalf("IntrinsicGas() = %d, want %d", got, want)
	}
}

func TestIntrinsicGasCalldataZeroAndNonZeroBytes(t *testing.T) {
	msg := &types.Message{Kind: types.TxKindCall, Data: []byte{0x00, 0x01, 0x00, 0x02}}
	rules := params.RulesForFork(params.Istanbul)
	want := TxGas + 2*TxDataZeroGas + 2*TxDataNonZeroGas
	if got := IntrinsicGas(msg, rules); got != want {
		t.Fatalf("IntrinsicGas() = %d, want %d", got, want)
	}
}

func TestIntrinsicGasAccessList(t *testing.T) {
	msg := &types.Message{
		Kind: types.TxKindCall,
		AccessList: types.AccessList{
			{Address: types.Address{0x01}, StorageKeys: []types.Hash{{0x01}, {0x02}}},
		},
	}
	rules := params.RulesForFork(params.Berlin)
	want := TxGas + AccessListAddressGas + 2*AccessListStorageKeyGas
	if got := IntrinsicGas(msg, rules); got != want {
		t.Fatalf("IntrinsicGas() = %d, want %d", got, want)
	}
}

func TestIntrinsicGasPragueAuthorizationList(t *testing.T) {
	msg := &types.Message{
		Kind:              types.TxKindCall,
		AuthorizationList: []types.Authorization{{}, {}},
	}
	rules := params.RulesForFork(params.Prague)
	want := TxGas + 2*PerAuthBaseCost
	if got := IntrinsicGas(msg, rules); got != want {
		t.Fatalf("IntrinsicGas() = %d, want %d", got, want)
	}
}

func TestIntrinsicGasPragueFloorWins(t *testing.T) {
	// 100 non-zero bytes: standard formula charges 16/byte (1600 total, plus
	// the 21000 base = 22600); EIP-7623's floor charges 10*4=40/byte on top
	// of the base (21000 + 100*4*10 = 25000), which must win.
	msg := &types.Message{Kind: types.TxKindCall, Data: make([]byte, 100)}
	for i := range msg.Data {
		msg.Data[i] = 0x01
	}
	rules := params.RulesForFork(params.Prague)
	want := TxGas + 100*4*TotalCostFloorPerToken
	if got := IntrinsicGas(msg, rules); got != want {
		t.Fatalf("IntrinsicGas() = %d, want %d (floor should win)", got, want)
	}
}

func TestEffectiveGasPriceLegacy(t *testing.T) {
	msg := &types.Message{GasPrice: uint256.NewInt(7)}
	got := effectiveGasPrice(msg, nil)
	if got.Uint64() != 7 {
		t.Fatalf("effectiveGasPrice() = %d, want 7", got.Uint64())
	}
}

func TestEffectiveGasPriceLondonCapsAtFeeCap(t *testing.T) {
	msg := &types.Message{
		GasFeeCap: uint256.NewInt(10),
		GasTipCap: uint256.NewInt(5),
	}
	baseFee := uint256.NewInt(8)
	got := effectiveGasPrice(msg, baseFee)
	if got.Uint64() != 10 {
		t.Fatalf("effectiveGasPrice() = %d, want 10 (capped at fee cap)", got.Uint64())
	}
}

func TestEffectiveGasPriceLondonUnderCap(t *testing.T) {
	msg := &types.Message{
		GasFeeCap: uint256.NewInt(100),
		GasTipCap: uint256.NewInt(2),
	}
	baseFee := uint256.NewInt(8)
	got := effectiveGasPrice(msg, baseFee)
	if got.Uint64() != 10 {
		t.Fatalf("effectiveGasPrice() = %d, want 10 (baseFee+tip)", got.Uint64())
	}
}

func TestBlobGasCostNoBlobs(t *testing.T) {
	msg := &types.Message{}
	got := blobGasCost(msg)
	if !got.IsZero() {
		t.Fatalf("blobGasCost() = %s, want 0", got)
	}
}

func TestBlobGasCostChargesPerBlob(t *testing.T) {
	msg := &types.Message{
		BlobHashes:    []types.Hash{{0x01}, {0x02}},
		BlobGasFeeCap: uint256.NewInt(3),
	}
	got := blobGasCost(msg)
	want := uint256.NewInt(2 * params.BlobGasPerBlob * 3)
	if got.Cmp(want) != 0 {
		t.Fatalf("blobGasCost() = %s, want %s", got, want)
	}
}
