// Package wire implements the storage-format byte codecs for blocks,
// transactions, outpoints and coins. These are distinct from any network
// wire protocol (out of scope for this engine) — they exist solely to
// give the chain database byte-exact, content-addressable payloads to
// append to block/undo files and hash.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/chainkv/chainkv/pkg/chainhash"
)

// HeaderSize is the serialized length of a BlockHeader: version(4) +
// prev_block(32) + merkle_root(32) + timestamp(4) + bits(4) + nonce(4).
const HeaderSize = 80

// BlockHeader is the fixed-size block header.
type BlockHeader struct {
	Version    uint32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

// Serialize encodes the header into its canonical 80-byte storage form.
func (h *BlockHeader) Serialize() []byte {
	buf := make([]byte, 0, HeaderSize)
	buf = binary.LittleEndian.AppendUint32(buf, h.Version)
	buf = append(buf, h.PrevBlock[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, h.Timestamp)
	buf = binary.LittleEndian.AppendUint32(buf, h.Bits)
	buf = binary.LittleEndian.AppendUint32(buf, h.Nonce)
	return buf
}

// DeserializeHeader decodes a BlockHeader from its 80-byte storage form.
func DeserializeHeader(b []byte) (BlockHeader, error) {
	var h BlockHeader
	if len(b) != HeaderSize {
		return h, fmt.Errorf("wire: header must be %d bytes, got %d", HeaderSize, len(b))
	}
	h.Version = binary.LittleEndian.Uint32(b[0:4])
	copy(h.PrevBlock[:], b[4:36])
	copy(h.MerkleRoot[:], b[36:68])
	h.Timestamp = binary.LittleEndian.Uint32(b[68:72])
	h.Bits = binary.LittleEndian.Uint32(b[72:76])
	h.Nonce = binary.LittleEndian.Uint32(b[76:80])
	return h, nil
}

// Hash computes the block hash: hash256 of the serialized header.
func (h *BlockHeader) Hash() chainhash.Hash {
	return chainhash.Sum256(h.Serialize())
}
