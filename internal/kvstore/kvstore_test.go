package kvstore

import (
	"bytes"
	"errors"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutGetDelete(t *testing.T) {
	db := openTestDB(t)

	if err := db.Update(func(tx RwTx) error {
		return tx.Put(TableMeta, []byte{'R'}, []byte("hash"))
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	var got []byte
	if err := db.View(func(tx Tx) error {
		v, err := tx.Get(TableMeta, []byte{'R'})
		got = v
		return err
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	if !bytes.Equal(got, []byte("hash")) {
		t.Fatalf("got %q, want %q", got, "hash")
	}

	if err := db.Update(func(tx RwTx) error {
		return tx.Delete(TableMeta, []byte{'R'})
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	err := db.View(func(tx Tx) error {
		_, err := tx.Get(TableMeta, []byte{'R'})
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTableIsolation(t *testing.T) {
	db := openTestDB(t)
	key := []byte{0x01, 0x02}

	if err := db.Update(func(tx RwTx) error {
		if err := tx.Put(TableCoin, key, []byte("coin")); err != nil {
			return err
		}
		return tx.Put(TableIndex, key, []byte("index"))
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	db.View(func(tx Tx) error {
		v, err := tx.Get(TableCoin, key)
		if err != nil || !bytes.Equal(v, []byte("coin")) {
			t.Fatalf("coin table: got %q, err %v", v, err)
		}
		v, err = tx.Get(TableIndex, key)
		if err != nil || !bytes.Equal(v, []byte("index")) {
			t.Fatalf("index table: got %q, err %v", v, err)
		}
		return nil
	})
}

func TestForEachAndAbortOnError(t *testing.T) {
	db := openTestDB(t)

	keys := [][]byte{{1}, {2}, {3}}
	if err := db.Update(func(tx RwTx) error {
		for _, k := range keys {
			if err := tx.Put(TableIndex, k, []byte("v")); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	count := 0
	err := db.View(func(tx Tx) error {
		return tx.ForEach(TableIndex, func(key, value []byte) error {
			count++
			return nil
		})
	})
	if err != nil {
		t.Fatalf("foreach: %v", err)
	}
	if count != 3 {
		t.Fatalf("iterated %d entries, want 3", count)
	}

	// A failing write transaction must leave the store unchanged.
	sentinel := errors.New("boom")
	err = db.Update(func(tx RwTx) error {
		if err := tx.Put(TableIndex, []byte{9}, []byte("v")); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	db.View(func(tx Tx) error {
		has, _ := tx.Has(TableIndex, []byte{9})
		if has {
			t.Fatal("aborted transaction must not have persisted its write")
		}
		return nil
	})
}
