// Package chaindb implements the chain database façade (§4.5): the
// public contract that orchestrates the block file store, the KV store,
// the block index, and the coin view, and exposes open/close, the
// mutating operations (save, reconnect, disconnect), and all query
// operations.
//
// The engine contains no locks (§5, §9 "Concurrency scoping"): exactly
// one writer is permitted at a time, and that discipline is the
// caller's responsibility. Concurrent readers are safe because the KV
// store (Badger) provides MVCC snapshot reads.
package chaindb

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/chainkv/chainkv/internal/blockfile"
	"github.com/chainkv/chainkv/internal/blockindex"
	"github.com/chainkv/chainkv/internal/coinview"
	"github.com/chainkv/chainkv/internal/kvstore"
	"github.com/chainkv/chainkv/internal/log"
	"github.com/chainkv/chainkv/pkg/chainhash"
)

var metaKeyTip = []byte{'R'}
var metaKeyBlockHead = []byte{'B'}
var metaKeyUndoHead = []byte{'U'}

// DB is the chain database handle. It owns the KV environment, both
// currently-open append file descriptors (via files), and the
// in-memory block index (§3 Ownership).
type DB struct {
	opts  Options
	kv    *kvstore.DB
	files *blockfile.Store
	index *blockindex.Index
}

// Open opens the chain database rooted at opts.Prefix, creating it (and
// initializing storage with the network's genesis block) if empty.
func Open(opts Options) (*DB, error) {
	if opts.Network == nil {
		return nil, wrapErr(KindPrecondition, "open", fmt.Errorf("Options.Network is required"))
	}

	kv, err := kvstore.Open(filepath.Join(opts.Prefix, "chain"), opts.mapSize())
	if err != nil {
		return nil, wrapErr(KindIO, "open", err)
	}

	blockMeta, undoMeta, err := loadHeadMetas(kv)
	if err != nil {
		kv.Close()
		return nil, wrapErr(KindCorruption, "open", err)
	}

	files, err := blockfile.Open(filepath.Join(opts.Prefix, "blocks"), opts.Network.Magic, opts.MaxFileSize, blockMeta, undoMeta)
	if err != nil {
		kv.Close()
		return nil, wrapErr(KindIO, "open", err)
	}

	entries, tipHash, err := loadIndex(kv)
	if err != nil {
		files.Close()
		kv.Close()
		return nil, wrapErr(KindCorruption, "open", err)
	}

	index, err := blockindex.Rebuild(entries, tipHash)
	if err != nil {
		files.Close()
		kv.Close()
		return nil, wrapErr(KindCorruption, "open", err)
	}

	db := &DB{opts: opts, kv: kv, files: files, index: index}

	if len(entries) == 0 && tipHash.IsZero() {
		log.Storage.Info().Str("network", opts.Network.Name).Msg("initializing chain database with genesis block")
		genesis := opts.Network.Genesis
		genesisEntry := blockindex.NewEntry(genesis.Header, 0, [32]byte{})
		// Saved with an empty (non-nil) view, not no view: the genesis
		// entry must land on the main chain immediately, and view==nil
		// vs. view==empty is exactly what distinguishes "indexed
		// off-chain" from "on main chain" in Save (see DESIGN.md).
		if err := db.Save(genesisEntry, &genesis, coinview.New()); err != nil {
			files.Close()
			kv.Close()
			return nil, wrapErr(KindIO, "open", err)
		}
	}

	return db, nil
}

func loadHeadMetas(kv *kvstore.DB) (blockfile.Meta, blockfile.Meta, error) {
	blockMeta := blockfile.NewMeta(blockfile.KindBlock, 0)
	undoMeta := blockfile.NewMeta(blockfile.KindUndo, 0)

	err := kv.View(func(tx kvstore.Tx) error {
		if b, err := tx.Get(kvstore.TableMeta, metaKeyBlockHead); err == nil {
			m, derr := blockfile.DeserializeMeta(b)
			if derr != nil {
				return derr
			}
			blockMeta = m
		} else if !errors.Is(err, kvstore.ErrNotFound) {
			return err
		}

		if u, err := tx.Get(kvstore.TableMeta, metaKeyUndoHead); err == nil {
			m, derr := blockfile.DeserializeMeta(u)
			if derr != nil {
				return derr
			}
			undoMeta = m
		} else if !errors.Is(err, kvstore.ErrNotFound) {
			return err
		}
		return nil
	})
	return blockMeta, undoMeta, err
}

func loadIndex(kv *kvstore.DB) ([]*blockindex.Entry, chainhash.Hash, error) {
	var entries []*blockindex.Entry
	var tipHash chainhash.Hash

	err := kv.View(func(tx kvstore.Tx) error {
		if err := tx.ForEach(kvstore.TableIndex, func(key, value []byte) error {
			e, err := blockindex.DeserializeEntry(value)
			if err != nil {
				return fmt.Errorf("index entry %x: %w", key, err)
			}
			entries = append(entries, e)
			return nil
		}); err != nil {
			return err
		}

		if v, err := tx.Get(kvstore.TableMeta, metaKeyTip); err == nil {
			h, err := chainhash.FromBytes(v)
			if err != nil {
				return err
			}
			tipHash = h
		} else if !errors.Is(err, kvstore.ErrNotFound) {
			return err
		}
		return nil
	})
	return entries, tipHash, err
}

// Close releases the file descriptors and KV environment.
func (db *DB) Close() error {
	var firstErr error
	if err := db.files.Close(); err != nil {
		firstErr = err
	}
	if err := db.kv.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
