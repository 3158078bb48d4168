package chaindb

import (
	"fmt"
	"time"

	"github.com/chainkv/chainkv/internal/blockfile"
	"github.com/chainkv/chainkv/internal/blockindex"
	"github.com/chainkv/chainkv/internal/coinview"
	"github.com/chainkv/chainkv/internal/kvstore"
	"github.com/chainkv/chainkv/internal/log"
	"github.com/chainkv/chainkv/pkg/wire"
)

// Save commits a new entry (§4.5 save). Preconditions: if entry.Height > 0
// its parent (entry.Header.PrevBlock) is already indexed, and entry.Prev
// is resolved from it on insert; entry.Next is unset; entry.Hash() is not
// already present in the index. If view is non-nil the entry is linked onto the
// main chain; if nil, it is indexed off-chain only (a competing branch,
// or a block accepted but not yet the best tip).
func (db *DB) Save(entry *blockindex.Entry, block *wire.Block, view *coinview.View) error {
	if _, ok := db.index.ByHash(entry.Hash()); ok {
		return wrapErr(KindPrecondition, "save", fmt.Errorf("entry %s already indexed", entry.Hash()))
	}
	if (entry.Height > 0) != (db.resolvePrev(entry) != nil) {
		return wrapErr(KindPrecondition, "save", fmt.Errorf("entry %s: prev/height mismatch", entry.Hash()))
	}

	err := db.kv.Update(func(rw kvstore.RwTx) error {
		if err := db.saveBlock(rw, entry, block, view); err != nil {
			return err
		}

		if err := rw.Put(kvstore.TableIndex, entry.Hash().Bytes(), entry.Serialize()); err != nil {
			return err
		}

		if entry.Height != 0 {
			if err := rw.Delete(kvstore.TableTip, entry.Header.PrevBlock.Bytes()); err != nil {
				return err
			}
		}
		if err := rw.Put(kvstore.TableTip, entry.Hash().Bytes(), []byte{0x01}); err != nil {
			return err
		}

		if view != nil {
			if err := rw.Put(kvstore.TableMeta, metaKeyTip, entry.Hash().Bytes()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapErr(KindStore, "save", err)
	}

	db.index.Insert(entry)
	if view != nil {
		db.index.LinkMain(entry)
	}
	db.maybeSync(entry)

	return nil
}

// Reconnect promotes a previously off-chain entry onto the main chain
// during a reorg (§4.5 reconnect). Precondition: entry.BlockPos != -1
// (the block payload is already stored).
func (db *DB) Reconnect(entry *blockindex.Entry, block *wire.Block, view *coinview.View) error {
	if !entry.HasBlock() {
		return wrapErr(KindPrecondition, "reconnect", fmt.Errorf("entry %s has no stored block", entry.Hash()))
	}

	err := db.kv.Update(func(rw kvstore.RwTx) error {
		if err := db.connectBlock(rw, entry, view); err != nil {
			return err
		}
		if err := rw.Put(kvstore.TableIndex, entry.Hash().Bytes(), entry.Serialize()); err != nil {
			return err
		}
		return rw.Put(kvstore.TableMeta, metaKeyTip, entry.Hash().Bytes())
	})
	if err != nil {
		return wrapErr(KindStore, "reconnect", err)
	}

	db.index.LinkMain(entry)
	db.maybeSync(entry)

	return nil
}

// Disconnect reverses the current tip (§4.5 disconnect): replays entry's
// undo record to re-insert every coin it spent and remove every coin it
// created, applies that reversal to the coin table, and unlinks entry
// from the main chain. The off-chain entry is retained in the index.
func (db *DB) Disconnect(entry *blockindex.Entry, block *wire.Block) (*coinview.View, error) {
	if !entry.HasUndo() && len(block.Txs) > 1 {
		return nil, wrapErr(KindPrecondition, "disconnect", fmt.Errorf("entry %s has no undo record", entry.Hash()))
	}

	view := coinview.New()

	err := db.kv.Update(func(rw kvstore.RwTx) error {
		undo, err := db.readUndo(entry)
		if err != nil {
			return err
		}

		// view.Undo() (which produced this record on connect) yields
		// spent coins in reverse push order, so undo.Entries[0] is the
		// most recently spent coin: the last non-coinbase input of the
		// last tx. Disconnecting walks txs and inputs in that same
		// reverse order, so the record is consumed front-to-back.
		pos := 0
		for i := len(block.Txs) - 1; i >= 0; i-- {
			tx := &block.Txs[i]
			if !tx.IsCoinbase() {
				for j := len(tx.Inputs) - 1; j >= 0; j-- {
					if pos >= len(undo.Entries) {
						return fmt.Errorf("chaindb: disconnect: undo record exhausted for %s", entry.Hash())
					}
					e := undo.Entries[pos]
					pos++
					view.Restore(e.Outpoint, e.Coin)
				}
			}
			txHash := tx.Hash()
			for o := range tx.Outputs {
				view.Remove(wire.Outpoint{Hash: txHash, Index: uint32(o)})
			}
		}
		if pos != len(undo.Entries) {
			return fmt.Errorf("chaindb: disconnect: undo record for %s not fully consumed", entry.Hash())
		}

		if err := applyView(rw, view); err != nil {
			return err
		}

		return rw.Put(kvstore.TableMeta, metaKeyTip, entry.Header.PrevBlock.Bytes())
	})
	if err != nil {
		return nil, wrapErr(KindStore, "disconnect", err)
	}

	popped := db.index.UnlinkTail()
	if popped != entry {
		log.Storage.Warn().Str("entry", entry.Hash().String()).Msg("disconnect: unlinked tail did not match entry")
	}

	return view, nil
}

// saveBlock implements save_block: write the raw block payload if not
// already stored, then — only when view is non-nil — connect it (apply
// coin mutations, write the undo record, prune).
func (db *DB) saveBlock(rw kvstore.RwTx, entry *blockindex.Entry, block *wire.Block, view *coinview.View) error {
	if !entry.HasBlock() {
		if err := db.writeBlock(rw, entry, block); err != nil {
			return err
		}
	}
	if view == nil {
		return nil
	}
	return db.connectBlock(rw, entry, view)
}

// connectBlock applies a non-nil view's coin mutations, writes the undo
// record (if any and not already written), and runs pruning. Genesis's
// coinbase is unspendable by convention and never touches the coin
// table (§4.5 step 2 gates on entry.Height > 0).
func (db *DB) connectBlock(rw kvstore.RwTx, entry *blockindex.Entry, view *coinview.View) error {
	if entry.Height == 0 {
		return nil
	}

	if err := applyView(rw, view); err != nil {
		return err
	}

	undo := view.Undo()
	if len(undo) != 0 && !entry.HasUndo() {
		if err := db.writeUndo(rw, entry, undo); err != nil {
			return err
		}
	}

	return db.pruneFiles(rw, entry)
}

// applyView writes every staged coin-view entry into the coin table:
// spent entries are deleted, unspent entries are put.
func applyView(rw kvstore.RwTx, view *coinview.View) error {
	var putErr error
	view.ForEach(func(e coinview.StagedEntry) {
		if putErr != nil {
			return
		}
		if e.Spent {
			putErr = rw.Delete(kvstore.TableCoin, e.Outpoint.Key())
			return
		}
		putErr = rw.Put(kvstore.TableCoin, e.Outpoint.Key(), e.Coin.Serialize())
	})
	return putErr
}

func (db *DB) writeBlock(rw kvstore.RwTx, entry *blockindex.Entry, block *wire.Block) error {
	payload := block.Serialize()
	recordTime := int64(entry.Header.Timestamp)

	fileID, pos, head, sealed, err := db.files.Append(blockfile.KindBlock, payload, recordTime, entry.Height)
	if err != nil {
		return fmt.Errorf("chaindb: write block: %w", err)
	}
	entry.BlockFile = fileID
	entry.BlockPos = pos

	if sealed != nil {
		if err := rw.Put(kvstore.TableFile, sealed.Key(), sealed.Serialize()); err != nil {
			return err
		}
	}
	if err := rw.Put(kvstore.TableMeta, metaKeyBlockHead, head.Serialize()); err != nil {
		return err
	}
	return nil
}

func (db *DB) writeUndo(rw kvstore.RwTx, entry *blockindex.Entry, entries []wire.UndoEntry) error {
	rec := &wire.UndoRecord{Entries: entries}
	payload := rec.Serialize()
	recordTime := int64(entry.Header.Timestamp)

	fileID, pos, head, sealed, err := db.files.Append(blockfile.KindUndo, payload, recordTime, entry.Height)
	if err != nil {
		return fmt.Errorf("chaindb: write undo: %w", err)
	}
	entry.UndoFile = fileID
	entry.UndoPos = pos

	if sealed != nil {
		if err := rw.Put(kvstore.TableFile, sealed.Key(), sealed.Serialize()); err != nil {
			return err
		}
	}
	return rw.Put(kvstore.TableMeta, metaKeyUndoHead, head.Serialize())
}

func (db *DB) readUndo(entry *blockindex.Entry) (*wire.UndoRecord, error) {
	if !entry.HasUndo() {
		return &wire.UndoRecord{}, nil
	}
	raw, err := db.files.Read(blockfile.KindUndo, entry.UndoFile, entry.UndoPos)
	if err != nil {
		return nil, fmt.Errorf("chaindb: read undo for %s: %w", entry.Hash(), err)
	}
	rec, err := wire.DeserializeUndoRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("chaindb: decode undo for %s: %w", entry.Hash(), err)
	}
	return rec, nil
}

func (db *DB) resolvePrev(entry *blockindex.Entry) *blockindex.Entry {
	if entry.Height == 0 {
		return nil
	}
	p, _ := db.index.ByHash(entry.Header.PrevBlock)
	return p
}

func (db *DB) maybeSync(entry *blockindex.Entry) {
	if blockfile.ShouldSync(int64(entry.Header.Timestamp), entry.Height, time.Now()) {
		if err := db.kv.Sync(); err != nil {
			log.Storage.Error().Err(err).Str("entry", entry.Hash().String()).Msg("kv environment sync failed")
		}
	}
}
