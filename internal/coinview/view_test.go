package coinview

import (
	"testing"

	"github.com/chainkv/chainkv/pkg/chainhash"
	"github.com/chainkv/chainkv/pkg/wire"
)

type mapReader map[wire.Outpoint]*wire.Coin

func (m mapReader) Read(op wire.Outpoint) (*wire.Coin, error) {
	return m[op], nil
}

func TestAddThenSpend(t *testing.T) {
	v := New()
	coinbaseTx := &wire.Tx{
		Inputs:  []wire.TxIn{{PrevOut: wire.Outpoint{}}},
		Outputs: []wire.TxOut{{Value: 5000000000, Script: []byte{0xAA}}},
	}
	if err := v.Add(coinbaseTx, 1, false); err != nil {
		t.Fatalf("add: %v", err)
	}

	spendTx := &wire.Tx{
		Inputs:  []wire.TxIn{{PrevOut: wire.Outpoint{Hash: coinbaseTx.Hash(), Index: 0}}},
		Outputs: []wire.TxOut{{Value: 4900000000}},
	}
	reader := mapReader{}
	if err := v.Spend(spendTx, reader); err != nil {
		t.Fatalf("spend: %v", err)
	}

	undo := v.Undo()
	if len(undo) != 1 {
		t.Fatalf("undo length = %d, want 1", len(undo))
	}
	if undo[0].Coin.Value != 5000000000 {
		t.Fatalf("undo coin value = %d, want 5000000000", undo[0].Coin.Value)
	}
}

func TestSpendMissingPrevoutFails(t *testing.T) {
	v := New()
	tx := &wire.Tx{Inputs: []wire.TxIn{{PrevOut: wire.Outpoint{Hash: chainhash.Sum256([]byte("x"))}}}}
	if err := v.Spend(tx, mapReader{}); err == nil {
		t.Fatal("expected failure spending a missing prevout")
	}
}

func TestSpendAlreadySpentFails(t *testing.T) {
	v := New()
	op := wire.Outpoint{Hash: chainhash.Sum256([]byte("x"))}
	reader := mapReader{op: &wire.Coin{Value: 1}}
	tx := &wire.Tx{Inputs: []wire.TxIn{{PrevOut: op}}}

	if err := v.Spend(tx, reader); err != nil {
		t.Fatalf("first spend: %v", err)
	}
	if err := v.Spend(tx, reader); err == nil {
		t.Fatal("expected failure on double spend")
	}
}

func TestFillDoesNotMutate(t *testing.T) {
	v := New()
	op := wire.Outpoint{Hash: chainhash.Sum256([]byte("x"))}
	reader := mapReader{op: &wire.Coin{Value: 42}}
	tx := &wire.Tx{Inputs: []wire.TxIn{{PrevOut: op}}}

	coins, err := v.Fill(tx, reader)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if len(coins) != 1 || coins[0] == nil || coins[0].Value != 42 {
		t.Fatalf("unexpected fill result: %+v", coins)
	}
	// Fill must not mark the coin spent.
	if err := v.Spend(tx, reader); err != nil {
		t.Fatalf("spend after fill should still succeed: %v", err)
	}
}

func TestAddOverwriteGuard(t *testing.T) {
	v := New()
	tx := &wire.Tx{
		Inputs:  []wire.TxIn{{PrevOut: wire.Outpoint{}}},
		Outputs: []wire.TxOut{{Value: 1}},
	}
	if err := v.Add(tx, 1, false); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := v.Add(tx, 1, false); err == nil {
		t.Fatal("expected overwrite guard to reject re-adding the same unspent outpoint")
	}
	if err := v.Add(tx, 1, true); err != nil {
		t.Fatalf("overwrite=true must be allowed: %v", err)
	}
}
