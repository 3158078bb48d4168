package wire

import (
	"encoding/binary"
	"fmt"
)

// Coin is an opaque serialized UTXO record: the value, locking script,
// creation height, and coinbase flag of one unspent output (§3). The
// engine treats its contents as opaque beyond these fields — script
// interpretation is out of scope.
type Coin struct {
	Value    uint64
	Script   []byte
	Height   uint32
	Coinbase bool
}

// Equal reports whether c and other serialize identically.
func (c *Coin) Equal(other *Coin) bool {
	if other == nil {
		return false
	}
	if c.Value != other.Value || c.Height != other.Height || c.Coinbase != other.Coinbase {
		return false
	}
	if len(c.Script) != len(other.Script) {
		return false
	}
	for i := range c.Script {
		if c.Script[i] != other.Script[i] {
			return false
		}
	}
	return true
}

// Serialize encodes the coin into its canonical storage byte form:
// value(8) ‖ height(4) ‖ coinbase(1) ‖ varint(script length) ‖ script.
func (c *Coin) Serialize() []byte {
	buf := make([]byte, 0, 16+len(c.Script))
	buf = binary.LittleEndian.AppendUint64(buf, c.Value)
	buf = binary.LittleEndian.AppendUint32(buf, c.Height)
	if c.Coinbase {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = writeVarInt(buf, uint64(len(c.Script)))
	buf = append(buf, c.Script...)
	return buf
}

// DeserializeCoin decodes a Coin from its canonical byte form.
func DeserializeCoin(b []byte) (*Coin, error) {
	if len(b) < 13 {
		return nil, fmt.Errorf("wire: coin: truncated fixed fields")
	}
	c := &Coin{}
	c.Value = binary.LittleEndian.Uint64(b[0:8])
	c.Height = binary.LittleEndian.Uint32(b[8:12])
	c.Coinbase = b[12] != 0
	scriptLen, n, err := readVarInt(b[13:])
	if err != nil {
		return nil, fmt.Errorf("wire: coin: script length: %w", err)
	}
	off := 13 + n
	if len(b) < off+int(scriptLen) {
		return nil, fmt.Errorf("wire: coin: truncated script")
	}
	c.Script = append([]byte(nil), b[off:off+int(scriptLen)]...)
	return c, nil
}

// UndoEntry pairs an outpoint with the coin it used to hold, destroyed by
// spending it. A sequence of these, in reverse-spend order, forms the
// undo record written to disk on connect (§3, §4.4).
type UndoEntry struct {
	Outpoint Outpoint
	Coin     Coin
}

// UndoRecord is the serialized list of coins destroyed by connecting a
// block, sufficient to reverse the connection (§4.1, §4.5 disconnect).
type UndoRecord struct {
	Entries []UndoEntry
}

// Serialize encodes the undo record: varint(count) ‖ (outpoint(36) ‖
// varint(coin length) ‖ coin)...
func (u *UndoRecord) Serialize() []byte {
	buf := make([]byte, 0, 64*len(u.Entries))
	buf = writeVarInt(buf, uint64(len(u.Entries)))
	for _, e := range u.Entries {
		buf = append(buf, e.Outpoint.Key()...)
		coinBytes := e.Coin.Serialize()
		buf = writeVarInt(buf, uint64(len(coinBytes)))
		buf = append(buf, coinBytes...)
	}
	return buf
}

// DeserializeUndoRecord decodes an UndoRecord from its canonical byte form.
func DeserializeUndoRecord(b []byte) (*UndoRecord, error) {
	count, n, err := readVarInt(b)
	if err != nil {
		return nil, fmt.Errorf("wire: undo: count: %w", err)
	}
	off := n
	u := &UndoRecord{Entries: make([]UndoEntry, count)}
	for i := range u.Entries {
		if len(b) < off+OutpointSize {
			return nil, fmt.Errorf("wire: undo: truncated outpoint at entry %d", i)
		}
		op, err := OutpointFromKey(b[off : off+OutpointSize])
		if err != nil {
			return nil, fmt.Errorf("wire: undo: entry %d: %w", i, err)
		}
		off += OutpointSize

		coinLen, n, err := readVarInt(b[off:])
		if err != nil {
			return nil, fmt.Errorf("wire: undo: entry %d coin length: %w", i, err)
		}
		off += n
		if len(b) < off+int(coinLen) {
			return nil, fmt.Errorf("wire: undo: truncated coin at entry %d", i)
		}
		coin, err := DeserializeCoin(b[off : off+int(coinLen)])
		if err != nil {
			return nil, fmt.Errorf("wire: undo: entry %d: %w", i, err)
		}
		off += int(coinLen)

		u.Entries[i] = UndoEntry{Outpoint: op, Coin: *coin}
	}
	return u, nil
}
