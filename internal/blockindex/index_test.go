package blockindex

import (
	"testing"

	"github.com/chainkv/chainkv/pkg/chainhash"
	"github.com/chainkv/chainkv/pkg/wire"
)

func mkEntry(t *testing.T, prev chainhash.Hash, height int32, nonce uint32) *Entry {
	t.Helper()
	h := wire.BlockHeader{Version: 1, PrevBlock: prev, Nonce: nonce}
	return NewEntry(h, height, [32]byte{})
}

func TestEntrySerializeRoundTrip(t *testing.T) {
	e := mkEntry(t, chainhash.Hash{}, 0, 7)
	e.BlockFile, e.BlockPos = 0, 24
	enc := e.Serialize()
	if len(enc) != EntrySize {
		t.Fatalf("entry length = %d, want %d", len(enc), EntrySize)
	}
	dec, err := DeserializeEntry(enc)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if dec.Hash() != e.Hash() || dec.Height != e.Height || dec.BlockPos != e.BlockPos {
		t.Fatalf("round trip mismatch: got %+v", dec)
	}
}

func TestIndexSaveAndMainChain(t *testing.T) {
	ix := New()
	genesis := mkEntry(t, chainhash.Hash{}, 0, 1)
	ix.Insert(genesis)
	ix.LinkMain(genesis)

	blk1 := mkEntry(t, genesis.Hash(), 1, 2)
	ix.Insert(blk1)
	ix.LinkMain(blk1)

	if ix.Tail() != blk1 {
		t.Fatal("tail should be blk1")
	}
	if ix.Head() != genesis {
		t.Fatal("head should be genesis")
	}
	if !ix.IsMain(blk1) || !ix.IsMain(genesis) {
		t.Fatal("both entries should be on main chain")
	}
	got, ok := ix.ByHeight(1)
	if !ok || got != blk1 {
		t.Fatal("by-height lookup mismatch")
	}
	if genesis.Next != blk1 {
		t.Fatal("genesis.Next must point at blk1")
	}
}

func TestDisconnectReconnectFork(t *testing.T) {
	ix := New()
	genesis := mkEntry(t, chainhash.Hash{}, 0, 1)
	ix.Insert(genesis)
	ix.LinkMain(genesis)

	blk1 := mkEntry(t, genesis.Hash(), 1, 2)
	ix.Insert(blk1)
	ix.LinkMain(blk1)

	blk1Fork := mkEntry(t, genesis.Hash(), 1, 99)
	ix.Insert(blk1Fork) // off-chain: indexed but not linked into heights

	if ix.IsMain(blk1Fork) {
		t.Fatal("fork block must not be main chain before reconnect")
	}

	popped := ix.UnlinkTail()
	if popped != blk1 {
		t.Fatal("unlink must pop blk1")
	}
	if genesis.Next != nil {
		t.Fatal("genesis.Next must clear after unlink")
	}
	if ix.Tail() != genesis {
		t.Fatal("tail must revert to genesis")
	}

	ix.LinkMain(blk1Fork)
	if ix.Tail() != blk1Fork {
		t.Fatal("tail must become the fork block after reconnect")
	}
	if ix.IsMain(blk1) {
		t.Fatal("old block must no longer be main chain")
	}
	if _, ok := ix.ByHash(blk1.Hash()); !ok {
		t.Fatal("old block must remain indexed (retained off-chain)")
	}
}

func TestRebuildFromPersistedEntries(t *testing.T) {
	genesis := mkEntry(t, chainhash.Hash{}, 0, 1)
	blk1 := mkEntry(t, genesis.Hash(), 1, 2)
	blk2 := mkEntry(t, blk1.Hash(), 2, 3)

	ix, err := Rebuild([]*Entry{blk2, genesis, blk1}, blk2.Hash())
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if ix.Tail().Hash() != blk2.Hash() {
		t.Fatal("tail mismatch after rebuild")
	}
	if ix.Height() != 2 {
		t.Fatalf("height = %d, want 2", ix.Height())
	}
	h1, ok := ix.ByHeight(1)
	if !ok || h1.Hash() != blk1.Hash() {
		t.Fatal("height-1 entry mismatch after rebuild")
	}
	if genesisAt, _ := ix.ByHeight(0); genesisAt.Next.Hash() != blk1.Hash() {
		t.Fatal("next links must be set during rebuild")
	}
}

func TestRebuildEmpty(t *testing.T) {
	ix, err := Rebuild(nil, chainhash.Hash{})
	if err != nil {
		t.Fatalf("rebuild empty: %v", err)
	}
	if ix.Tail() != nil || ix.Head() != nil {
		t.Fatal("empty rebuild must produce an empty index")
	}
}
