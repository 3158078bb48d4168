package blockfile

import (
	"encoding/binary"
	"fmt"
)

// Kind distinguishes block payload files from undo payload files.
type Kind uint8

const (
	KindBlock Kind = 0
	KindUndo  Kind = 1
)

// MetaSize is the exact serialized length of a ChainFile record (§3):
// u8 type ‖ i32 id ‖ i32 pos ‖ i32 items ‖ i64 min_time ‖ i64 max_time ‖
// i32 min_height ‖ i32 max_height, all little-endian.
const MetaSize = 1 + 4 + 4 + 4 + 8 + 8 + 4 + 4

// Meta describes one on-disk block or undo file: its identity, current
// write position, record count, and the time/height range of the
// records it holds.
type Meta struct {
	Kind      Kind
	ID        int32
	Pos       int32
	Items     int32
	MinTime   int64
	MaxTime   int64
	MinHeight int32
	MaxHeight int32
}

// NewMeta returns an empty Meta for a freshly opened file of the given
// kind and id. MinTime/MinHeight/MaxTime/MaxHeight use -1 to mean "empty"
// (§3).
func NewMeta(kind Kind, id int32) Meta {
	return Meta{
		Kind: kind, ID: id,
		MinTime: -1, MaxTime: -1,
		MinHeight: -1, MaxHeight: -1,
	}
}

// Key returns the 5-byte file-table key for this meta: type(1) ‖ id(4)
// little-endian (§4.1/§6).
func (m Meta) Key() []byte {
	b := make([]byte, 5)
	b[0] = byte(m.Kind)
	binary.LittleEndian.PutUint32(b[1:], uint32(m.ID))
	return b
}

// FileKey returns the 5-byte file-table key for a given kind and id,
// without requiring a Meta value.
func FileKey(kind Kind, id int32) []byte {
	b := make([]byte, 5)
	b[0] = byte(kind)
	binary.LittleEndian.PutUint32(b[1:], uint32(id))
	return b
}

// Serialize encodes m into its canonical 37-byte form.
func (m Meta) Serialize() []byte {
	buf := make([]byte, 0, MetaSize)
	buf = append(buf, byte(m.Kind))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.ID))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.Pos))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.Items))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(m.MinTime))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(m.MaxTime))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.MinHeight))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.MaxHeight))
	return buf
}

// DeserializeMeta decodes a Meta from its canonical 37-byte form.
func DeserializeMeta(b []byte) (Meta, error) {
	var m Meta
	if len(b) != MetaSize {
		return m, fmt.Errorf("blockfile: meta must be %d bytes, got %d", MetaSize, len(b))
	}
	m.Kind = Kind(b[0])
	m.ID = int32(binary.LittleEndian.Uint32(b[1:5]))
	m.Pos = int32(binary.LittleEndian.Uint32(b[5:9]))
	m.Items = int32(binary.LittleEndian.Uint32(b[9:13]))
	m.MinTime = int64(binary.LittleEndian.Uint64(b[13:21]))
	m.MaxTime = int64(binary.LittleEndian.Uint64(b[21:29]))
	m.MinHeight = int32(binary.LittleEndian.Uint32(b[29:33]))
	m.MaxHeight = int32(binary.LittleEndian.Uint32(b[33:37]))
	return m, nil
}

// Observe folds one newly-written record's (time, height) into the
// running min/max range and bumps the item count.
func (m *Meta) Observe(t int64, height int32, recordLen int32) {
	m.Items++
	m.Pos += recordLen
	if m.MinTime == -1 || t < m.MinTime {
		m.MinTime = t
	}
	if t > m.MaxTime {
		m.MaxTime = t
	}
	if m.MinHeight == -1 || height < m.MinHeight {
		m.MinHeight = height
	}
	if height > m.MaxHeight {
		m.MaxHeight = height
	}
}
