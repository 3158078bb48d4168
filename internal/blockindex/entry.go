// Package blockindex implements the chain storage engine's in-memory
// block index (§4.3): a hash→entry map plus a height-indexed vector for
// the active chain, with non-owning prev/next references between
// entries (§9 — a Go map of pointers is already a stable arena, so no
// separate handle/index indirection is needed).
package blockindex

import (
	"encoding/binary"
	"fmt"

	"github.com/chainkv/chainkv/pkg/chainhash"
	"github.com/chainkv/chainkv/pkg/wire"
)

// NoPos is the sentinel stored in BlockPos/UndoPos/BlockFile/UndoFile
// meaning "not stored yet" (§3).
const NoPos int32 = -1

// EntrySize is the exact serialized length of a BlockEntry (§6):
// header(80) ‖ height(4) ‖ chainwork(32) ‖ block_file(4) ‖ block_pos(4) ‖
// undo_file(4) ‖ undo_pos(4).
const EntrySize = wire.HeaderSize + 4 + 32 + 4 + 4 + 4 + 4

// Entry is one node of the block-index DAG. Prev/Next are non-owning
// references into the Index's map; Next is populated only for entries on
// the active chain.
type Entry struct {
	Header    wire.BlockHeader
	Height    int32
	Chainwork [32]byte
	BlockFile int32
	BlockPos  int32
	UndoFile  int32
	UndoPos   int32

	Prev *Entry
	Next *Entry
}

// Hash returns the block hash identifying this entry.
func (e *Entry) Hash() chainhash.Hash {
	return e.Header.Hash()
}

// IsGenesis reports whether e is the height-0 entry.
func (e *Entry) IsGenesis() bool {
	return e.Height == 0
}

// HasBlock reports whether the raw block payload has been written to
// the block file store.
func (e *Entry) HasBlock() bool {
	return e.BlockPos != NoPos
}

// HasUndo reports whether an undo record has been written for this
// entry's connection.
func (e *Entry) HasUndo() bool {
	return e.UndoPos != NoPos
}

// NewEntry constructs a fresh off-chain entry for a block with the given
// header, height, and chainwork, with no stored file positions yet.
func NewEntry(header wire.BlockHeader, height int32, chainwork [32]byte) *Entry {
	return &Entry{
		Header:    header,
		Height:    height,
		Chainwork: chainwork,
		BlockFile: NoPos,
		BlockPos:  NoPos,
		UndoFile:  NoPos,
		UndoPos:   NoPos,
	}
}

// Serialize encodes e into its canonical 132-byte index-table value.
func (e *Entry) Serialize() []byte {
	buf := make([]byte, 0, EntrySize)
	buf = append(buf, e.Header.Serialize()...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(e.Height))
	buf = append(buf, e.Chainwork[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(e.BlockFile))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(e.BlockPos))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(e.UndoFile))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(e.UndoPos))
	return buf
}

// DeserializeEntry decodes a BlockEntry from its canonical 132-byte form.
// Prev/Next are left nil; the Index rebuilds them on load.
func DeserializeEntry(b []byte) (*Entry, error) {
	if len(b) != EntrySize {
		return nil, fmt.Errorf("blockindex: entry must be %d bytes, got %d", EntrySize, len(b))
	}
	header, err := wire.DeserializeHeader(b[:wire.HeaderSize])
	if err != nil {
		return nil, fmt.Errorf("blockindex: entry header: %w", err)
	}
	off := wire.HeaderSize
	e := &Entry{Header: header}
	e.Height = int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	copy(e.Chainwork[:], b[off:off+32])
	off += 32
	e.BlockFile = int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	e.BlockPos = int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	e.UndoFile = int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	e.UndoPos = int32(binary.LittleEndian.Uint32(b[off:]))
	return e, nil
}
