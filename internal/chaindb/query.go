package chaindb

import (
	"fmt"

	"github.com/chainkv/chainkv/internal/blockfile"
	"github.com/chainkv/chainkv/internal/blockindex"
	"github.com/chainkv/chainkv/internal/coinview"
	"github.com/chainkv/chainkv/internal/kvstore"
	"github.com/chainkv/chainkv/pkg/chainhash"
	"github.com/chainkv/chainkv/pkg/wire"
)

// Head returns the genesis entry, or nil if the database is empty.
func (db *DB) Head() *blockindex.Entry { return db.index.Head() }

// Tail returns the current tip entry, or nil if the database is empty.
func (db *DB) Tail() *blockindex.Entry { return db.index.Tail() }

// Height returns the tip's height, or -1 if the database is empty.
func (db *DB) Height() int32 { return db.index.Height() }

// ByHash looks up an entry by block hash; the entry may be off the main
// chain.
func (db *DB) ByHash(h chainhash.Hash) (*blockindex.Entry, bool) { return db.index.ByHash(h) }

// ByHeight looks up the main-chain entry at height, if any.
func (db *DB) ByHeight(height int32) (*blockindex.Entry, bool) { return db.index.ByHeight(height) }

// IsMain reports whether e sits on the main chain.
func (db *DB) IsMain(e *blockindex.Entry) bool { return db.index.IsMain(e) }

// HasCoins reports whether any output of tx is still an unspent coin.
func (db *DB) HasCoins(tx *wire.Tx) (bool, error) {
	txHash := tx.Hash()
	found := false
	err := db.kv.View(func(rtx kvstore.Tx) error {
		for i := range tx.Outputs {
			op := wire.Outpoint{Hash: txHash, Index: uint32(i)}
			ok, err := rtx.Has(kvstore.TableCoin, op.Key())
			if err != nil {
				return err
			}
			if ok {
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return false, wrapErr(KindStore, "has_coins", err)
	}
	return found, nil
}

// GetRawBlock returns the exact serialized bytes of entry's stored
// block.
func (db *DB) GetRawBlock(entry *blockindex.Entry) ([]byte, error) {
	if !entry.HasBlock() {
		return nil, wrapErr(KindStore, "get_raw_block", fmt.Errorf("entry %s has no stored block", entry.Hash()))
	}
	raw, err := db.files.Read(blockfile.KindBlock, entry.BlockFile, entry.BlockPos)
	if err != nil {
		return nil, wrapErr(KindIO, "get_raw_block", err)
	}
	return raw, nil
}

// GetBlock returns entry's stored block, decoded.
func (db *DB) GetBlock(entry *blockindex.Entry) (*wire.Block, error) {
	raw, err := db.GetRawBlock(entry)
	if err != nil {
		return nil, err
	}
	block, err := wire.DeserializeBlock(raw)
	if err != nil {
		return nil, wrapErr(KindCorruption, "get_block", err)
	}
	return block, nil
}

// Spend opens a read snapshot and delegates to view.Spend, resolving
// missing prevouts against the persisted coin table.
func (db *DB) Spend(view *coinview.View, tx *wire.Tx) error {
	return db.kv.View(func(rtx kvstore.Tx) error {
		if err := view.Spend(tx, txCoinReader{tx: rtx}); err != nil {
			return wrapErr(KindStore, "spend", err)
		}
		return nil
	})
}

// Fill opens a read snapshot and delegates to view.Fill, resolving
// missing prevouts against the persisted coin table.
func (db *DB) Fill(view *coinview.View, tx *wire.Tx) ([]*wire.Coin, error) {
	var coins []*wire.Coin
	err := db.kv.View(func(rtx kvstore.Tx) error {
		c, err := view.Fill(tx, txCoinReader{tx: rtx})
		if err != nil {
			return err
		}
		coins = c
		return nil
	})
	if err != nil {
		return nil, wrapErr(KindStore, "fill", err)
	}
	return coins, nil
}
