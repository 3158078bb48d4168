package kvstore

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Tx is a read transaction: get, has, and prefix iteration ("cursor"
// access, §4.2) over one table.
type Tx interface {
	// Get returns the value for key in table t. Returns ErrNotFound if
	// absent.
	Get(t Table, key []byte) ([]byte, error)
	// Has reports whether key exists in table t.
	Has(t Table, key []byte) (bool, error)
	// ForEach iterates all keys in table t, in key order, invoking fn
	// with the table-local key (the table prefix stripped) and a copy
	// of the value. Iteration stops early if fn returns a non-nil
	// error, which ForEach then returns.
	ForEach(t Table, fn func(key, value []byte) error) error
}

// RwTx is a read-write transaction: Tx plus put/delete.
type RwTx interface {
	Tx
	Put(t Table, key, value []byte) error
	Delete(t Table, key []byte) error
}

type tx struct {
	txn *badger.Txn
}

func (x *tx) Get(t Table, key []byte) ([]byte, error) {
	item, err := x.txn.Get(tableKey(t, key))
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: get: %w", err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("kvstore: get: %w", err)
	}
	return val, nil
}

func (x *tx) Has(t Table, key []byte) (bool, error) {
	_, err := x.txn.Get(tableKey(t, key))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kvstore: has: %w", err)
	}
	return true, nil
}

func (x *tx) ForEach(t Table, fn func(key, value []byte) error) error {
	prefix := []byte{byte(t)}
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := x.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)[1:] // strip the table prefix byte
		val, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("kvstore: foreach: %w", err)
		}
		if retErr := fn(key, val); retErr != nil {
			return retErr
		}
	}
	return nil
}

type rwTx struct {
	tx
}

func (x *rwTx) Put(t Table, key, value []byte) error {
	if err := x.txn.Set(tableKey(t, key), value); err != nil {
		return fmt.Errorf("kvstore: put: %w", err)
	}
	return nil
}

func (x *rwTx) Delete(t Table, key []byte) error {
	if err := x.txn.Delete(tableKey(t, key)); err != nil {
		return fmt.Errorf("kvstore: delete: %w", err)
	}
	return nil
}
