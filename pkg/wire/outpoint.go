package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/chainkv/chainkv/pkg/chainhash"
)

// OutpointSize is the serialized length of an Outpoint: tx hash(32) +
// output index, little-endian(4). This is also the coin table's key
// layout (§4.2/§6).
const OutpointSize = chainhash.Size + 4

// Outpoint names a single transaction output: (tx-hash, output-index).
type Outpoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// IsZero reports whether op is the zero outpoint, which by convention
// marks a coinbase input (it has no real prevout).
func (op Outpoint) IsZero() bool {
	return op.Hash.IsZero() && op.Index == 0
}

// String returns "hash:index".
func (op Outpoint) String() string {
	return fmt.Sprintf("%s:%d", op.Hash, op.Index)
}

// Key returns the 36-byte coin-table key for op: 32-byte tx hash followed
// by the 4-byte output index, little-endian (§4.2).
func (op Outpoint) Key() []byte {
	b := make([]byte, OutpointSize)
	copy(b, op.Hash[:])
	binary.LittleEndian.PutUint32(b[chainhash.Size:], op.Index)
	return b
}

// OutpointFromKey decodes a 36-byte coin-table key back into an Outpoint.
func OutpointFromKey(b []byte) (Outpoint, error) {
	var op Outpoint
	if len(b) != OutpointSize {
		return op, fmt.Errorf("wire: outpoint key must be %d bytes, got %d", OutpointSize, len(b))
	}
	copy(op.Hash[:], b[:chainhash.Size])
	op.Index = binary.LittleEndian.Uint32(b[chainhash.Size:])
	return op, nil
}
