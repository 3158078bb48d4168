// Package coinview implements the chain storage engine's coin view
// (§4.4): a staging delta over the persisted UTXO set, accumulating
// creations and spends for a pending block. Queries that miss in the
// staging layer fall through to a caller-supplied CoinReader bound to a
// snapshot read transaction (§9's "coin-reader callback" design note).
package coinview

import (
	"fmt"

	"github.com/chainkv/chainkv/pkg/wire"
)

// CoinReader resolves an outpoint against the persisted coin table. It
// returns (nil, nil) when the outpoint is absent — a NotFound read is an
// expected, non-error outcome here (§7) — and a non-nil error only for
// genuine I/O/store failures.
type CoinReader interface {
	Read(op wire.Outpoint) (*wire.Coin, error)
}

type stagedCoin struct {
	coin  *wire.Coin
	spent bool
}

// View is a staging layer over the coin table for one pending block: a
// map from outpoint to coin (plus a spent flag) and an ordered undo
// stack of displaced coins, in reverse-spend order.
type View struct {
	staged map[wire.Outpoint]*stagedCoin
	undo   []wire.UndoEntry
}

// New returns an empty View.
func New() *View {
	return &View{staged: make(map[wire.Outpoint]*stagedCoin)}
}

// lookup resolves op against the staging map, falling through to reader
// on a local miss.
func (v *View) lookup(op wire.Outpoint, reader CoinReader) (*stagedCoin, error) {
	if sc, ok := v.staged[op]; ok {
		return sc, nil
	}
	coin, err := reader.Read(op)
	if err != nil {
		return nil, fmt.Errorf("coinview: read %s: %w", op, err)
	}
	if coin == nil {
		return nil, nil
	}
	sc := &stagedCoin{coin: coin}
	v.staged[op] = sc
	return sc, nil
}

// Spend resolves every input of tx (view first, else reader), marks the
// resolved coin spent, and pushes it onto the undo stack. Fails if any
// prevout is missing or already spent — partial spends are never staged:
// on failure no coin is marked spent and nothing is pushed onto the undo
// stack, though coins already read through reader stay cached (unspent)
// in the view.
func (v *View) Spend(tx *wire.Tx, reader CoinReader) error {
	type resolved struct {
		op *stagedCoin
		e  wire.UndoEntry
	}
	var toSpend []resolved

	for _, in := range tx.Inputs {
		sc, err := v.lookup(in.PrevOut, reader)
		if err != nil {
			return err
		}
		if sc == nil {
			return fmt.Errorf("coinview: spend: prevout %s not found", in.PrevOut)
		}
		if sc.spent {
			return fmt.Errorf("coinview: spend: prevout %s already spent", in.PrevOut)
		}
		toSpend = append(toSpend, resolved{op: sc, e: wire.UndoEntry{Outpoint: in.PrevOut, Coin: *sc.coin}})
	}

	for _, r := range toSpend {
		r.op.spent = true
		v.undo = append(v.undo, r.e)
	}
	return nil
}

// Fill resolves every input of tx's prevout coins (view first, else
// reader) without modifying the UTXO set, returning them in input order.
// Missing prevouts yield a nil entry rather than an error, mirroring the
// optional-read semantics of CoinReader.
func (v *View) Fill(tx *wire.Tx, reader CoinReader) ([]*wire.Coin, error) {
	out := make([]*wire.Coin, len(tx.Inputs))
	for i, in := range tx.Inputs {
		sc, err := v.lookup(in.PrevOut, reader)
		if err != nil {
			return nil, err
		}
		if sc == nil {
			continue
		}
		out[i] = sc.coin
	}
	return out, nil
}

// Add stages every output of tx as a fresh unspent coin at height. If
// overwrite is false and an unspent coin is already staged at some
// output's outpoint, Add returns an error instead of silently clobbering
// it (a staged spent entry is replaced).
func (v *View) Add(tx *wire.Tx, height uint32, overwrite bool) error {
	txHash := tx.Hash()
	coinbase := tx.IsCoinbase()
	for i, out := range tx.Outputs {
		op := wire.Outpoint{Hash: txHash, Index: uint32(i)}
		if !overwrite {
			if existing, ok := v.staged[op]; ok && !existing.spent {
				return fmt.Errorf("coinview: add: outpoint %s already unspent", op)
			}
		}
		v.staged[op] = &stagedCoin{coin: &wire.Coin{
			Value:    out.Value,
			Script:   out.Script,
			Height:   height,
			Coinbase: coinbase,
		}}
	}
	return nil
}

// Restore stages coin as an unspent entry at op without going through a
// transaction's inputs, and pushes it onto the undo stack — used by
// disconnect to re-insert coins recorded in an undo record, so the
// returned view's Undo lists the coins it restored.
func (v *View) Restore(op wire.Outpoint, coin wire.Coin) {
	v.staged[op] = &stagedCoin{coin: &coin}
	v.undo = append(v.undo, wire.UndoEntry{Outpoint: op, Coin: coin})
}

// Remove stages op for deletion from the coin table without requiring it
// to have been read first — used by disconnect to remove the outputs
// created by the block being reversed.
func (v *View) Remove(op wire.Outpoint) {
	v.staged[op] = &stagedCoin{spent: true}
}

// Undo returns the accumulated spent coins in reverse push order — the
// form needed to replay them back onto the UTXO set during disconnect.
func (v *View) Undo() []wire.UndoEntry {
	out := make([]wire.UndoEntry, len(v.undo))
	for i, e := range v.undo {
		out[len(v.undo)-1-i] = e
	}
	return out
}

// StagedEntry is one (outpoint, coin, spent) triple yielded by ForEach.
type StagedEntry struct {
	Outpoint wire.Outpoint
	Coin     *wire.Coin
	Spent    bool
}

// ForEach iterates every staged entry, spent or not, in unspecified
// order.
func (v *View) ForEach(fn func(StagedEntry)) {
	for op, sc := range v.staged {
		fn(StagedEntry{Outpoint: op, Coin: sc.coin, Spent: sc.spent})
	}
}
