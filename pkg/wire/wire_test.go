package wire

import (
	"bytes"
	"testing"

	"github.com/chainkv/chainkv/pkg/chainhash"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Sum256([]byte("prev")),
		MerkleRoot: chainhash.Sum256([]byte("merkle")),
		Timestamp:  1700000000,
		Bits:       0x207fffff,
		Nonce:      42,
	}
	enc := h.Serialize()
	if len(enc) != HeaderSize {
		t.Fatalf("header serialize: got %d bytes, want %d", len(enc), HeaderSize)
	}
	dec, err := DeserializeHeader(enc)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if dec != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", dec, h)
	}
}

func TestOutpointKeyRoundTrip(t *testing.T) {
	op := Outpoint{Hash: chainhash.Sum256([]byte("tx")), Index: 7}
	key := op.Key()
	if len(key) != OutpointSize {
		t.Fatalf("key length = %d, want %d", len(key), OutpointSize)
	}
	got, err := OutpointFromKey(key)
	if err != nil {
		t.Fatalf("OutpointFromKey: %v", err)
	}
	if got != op {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, op)
	}
}

func TestTxRoundTrip(t *testing.T) {
	tx := Tx{
		Version: 1,
		Inputs: []TxIn{
			{PrevOut: Outpoint{Hash: chainhash.Sum256([]byte("a")), Index: 1}, Sequence: 0xffffffff},
		},
		Outputs: []TxOut{
			{Value: 5000000000, Script: []byte{0x00, 0x14}},
			{Value: 100, Script: nil},
		},
		LockTime: 0,
	}
	enc := tx.Serialize()
	dec, n, err := DeserializeTx(enc)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if n != len(enc) {
		t.Fatalf("consumed %d bytes, want %d", n, len(enc))
	}
	if dec.Version != tx.Version || len(dec.Inputs) != len(tx.Inputs) || len(dec.Outputs) != len(tx.Outputs) {
		t.Fatalf("round trip shape mismatch: got %+v", dec)
	}
	if dec.Outputs[0].Value != tx.Outputs[0].Value || !bytes.Equal(dec.Outputs[0].Script, tx.Outputs[0].Script) {
		t.Fatalf("output 0 mismatch: got %+v", dec.Outputs[0])
	}
	if dec.Inputs[0].PrevOut != tx.Inputs[0].PrevOut {
		t.Fatalf("input 0 prevout mismatch")
	}
}

func TestCoinbaseDetection(t *testing.T) {
	tx := Tx{Inputs: []TxIn{{PrevOut: Outpoint{}}}}
	if !tx.IsCoinbase() {
		t.Fatal("expected zero-outpoint single-input tx to be a coinbase")
	}
	tx2 := Tx{Inputs: []TxIn{{PrevOut: Outpoint{Index: 1}}}}
	if tx2.IsCoinbase() {
		t.Fatal("non-zero outpoint must not be treated as coinbase")
	}
}

func TestBlockRoundTrip(t *testing.T) {
	tx := Tx{Inputs: []TxIn{{PrevOut: Outpoint{}}}, Outputs: []TxOut{{Value: 5000000000}}}
	blk := Block{
		Header: BlockHeader{Version: 1, Bits: 0x207fffff},
		Txs:    []Tx{tx},
	}
	enc := blk.Serialize()
	dec, err := DeserializeBlock(enc)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if dec.Header != blk.Header {
		t.Fatalf("header mismatch")
	}
	if len(dec.Txs) != 1 {
		t.Fatalf("expected 1 tx, got %d", len(dec.Txs))
	}
	if dec.Hash() != blk.Hash() {
		t.Fatalf("hash mismatch after round trip")
	}
}

func TestCoinRoundTrip(t *testing.T) {
	c := Coin{Value: 123456, Script: []byte{1, 2, 3, 4}, Height: 10, Coinbase: true}
	enc := c.Serialize()
	dec, err := DeserializeCoin(enc)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !c.Equal(dec) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", dec, c)
	}
}

func TestUndoRecordRoundTrip(t *testing.T) {
	u := UndoRecord{Entries: []UndoEntry{
		{Outpoint: Outpoint{Hash: chainhash.Sum256([]byte("x")), Index: 0}, Coin: Coin{Value: 1, Height: 1}},
		{Outpoint: Outpoint{Hash: chainhash.Sum256([]byte("y")), Index: 2}, Coin: Coin{Value: 2, Height: 2, Coinbase: true, Script: []byte{9}}},
	}}
	enc := u.Serialize()
	dec, err := DeserializeUndoRecord(enc)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if len(dec.Entries) != len(u.Entries) {
		t.Fatalf("entry count mismatch: got %d, want %d", len(dec.Entries), len(u.Entries))
	}
	for i := range u.Entries {
		if dec.Entries[i].Outpoint != u.Entries[i].Outpoint {
			t.Fatalf("entry %d outpoint mismatch", i)
		}
		if !dec.Entries[i].Coin.Equal(&u.Entries[i].Coin) {
			t.Fatalf("entry %d coin mismatch", i)
		}
	}
}
