package chaindb

import (
	"errors"
	"fmt"

	"github.com/chainkv/chainkv/internal/kvstore"
	"github.com/chainkv/chainkv/pkg/wire"
)

// txCoinReader adapts a kvstore read transaction to coinview.CoinReader
// (§9 "coin-reader callback"): the view borrows it only for the
// lifetime of one Spend/Fill call, never stores it.
type txCoinReader struct {
	tx kvstore.Tx
}

func (r txCoinReader) Read(op wire.Outpoint) (*wire.Coin, error) {
	b, err := r.tx.Get(kvstore.TableCoin, op.Key())
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chaindb: read coin %s: %w", op, err)
	}
	coin, err := wire.DeserializeCoin(b)
	if err != nil {
		return nil, fmt.Errorf("chaindb: decode coin %s: %w", op, err)
	}
	return coin, nil
}
