// Package kvstore implements the chain database's key-value store layer
// (§4.2): a transactional ordered map with five logical tables — meta,
// coin, index, tip, file — backed by a single Badger environment. Write
// transactions are serialized by the caller (the engine enforces its own
// single-writer discipline, §5); read transactions observe a consistent
// MVCC snapshot, which Badger provides natively.
package kvstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/chainkv/chainkv/internal/log"
)

// Table identifies one of the five logical tables. Keys are namespaced by
// prepending the table byte, so a single Badger environment can host all
// five without collision.
type Table byte

const (
	TableMeta  Table = 'm'
	TableCoin  Table = 'c'
	TableIndex Table = 'i'
	TableTip   Table = 't'
	TableFile  Table = 'f'
)

// ErrNotFound is returned for reads of a key that does not exist. Per
// §7's propagation policy this is not treated as an error by callers
// doing an expected-optional read (first-time open, coin lookup) — they
// check for it explicitly with errors.Is.
var ErrNotFound = errors.New("kvstore: key not found")

// DB is a handle on the KV environment.
type DB struct {
	bdb *badger.DB
}

// Open opens (creating if absent) a Badger environment at path. Badger
// has no overall size cap: mapSize is applied as Badger's value-log file
// size, and only when it lies in the range Badger accepts for that
// option ([1 MiB, 2 GiB)); any other value, including chaindb's 16 GiB
// default, keeps Badger's default. Badger's own directory lock satisfies this
// engine's no-concurrent-writer requirement (§5); NOLOCK/NOTLS-style
// store-side locking is therefore left enabled rather than disabled.
func Open(path string, mapSize int64) (*DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if mapSize >= 1<<20 && mapSize < 2<<30 {
		opts.ValueLogFileSize = mapSize
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "Cannot acquire directory lock") ||
			strings.Contains(msg, "resource temporarily unavailable") {
			return nil, fmt.Errorf("kvstore: chain environment at %s is locked by another process: %w", path, err)
		}
		return nil, fmt.Errorf("kvstore: open %s: %w", path, err)
	}
	return &DB{bdb: bdb}, nil
}

// View runs fn against a read-only snapshot transaction.
func (db *DB) View(fn func(Tx) error) error {
	return db.bdb.View(func(txn *badger.Txn) error {
		return fn(&tx{txn: txn})
	})
}

// Update runs fn against a read-write transaction and commits it if fn
// returns nil. Any error from fn, or from commit, aborts the transaction
// and leaves the store unchanged — no partial mutation is ever observed
// (§7).
func (db *DB) Update(fn func(RwTx) error) error {
	return db.bdb.Update(func(txn *badger.Txn) error {
		return fn(&rwTx{tx{txn: txn}})
	})
}

// Sync issues an environment sync (env_sync, §4.1/§4.2), flushing the
// write-ahead log to durable storage. Called after commit when the
// should_sync predicate holds.
func (db *DB) Sync() error {
	if err := db.bdb.Sync(); err != nil {
		return fmt.Errorf("kvstore: sync: %w", err)
	}
	return nil
}

// Close releases the environment handle.
func (db *DB) Close() error {
	log.Storage.Debug().Msg("closing kv environment")
	return db.bdb.Close()
}

func tableKey(t Table, key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = byte(t)
	copy(out[1:], key)
	return out
}
