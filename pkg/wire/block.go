package wire

import (
	"fmt"

	"github.com/chainkv/chainkv/pkg/chainhash"
)

// Block is a header plus its transactions. This is the payload appended
// to block files (§4.1) and the unit returned by GetBlock.
type Block struct {
	Header BlockHeader
	Txs    []Tx
}

// Hash returns the block hash (the header hash).
func (blk *Block) Hash() chainhash.Hash {
	return blk.Header.Hash()
}

// Serialize encodes the block into its canonical storage byte form:
// header(80) ‖ varint(tx count) ‖ tx...
func (blk *Block) Serialize() []byte {
	buf := make([]byte, 0, HeaderSize+16)
	buf = append(buf, blk.Header.Serialize()...)
	buf = writeVarInt(buf, uint64(len(blk.Txs)))
	for i := range blk.Txs {
		buf = append(buf, blk.Txs[i].Serialize()...)
	}
	return buf
}

// DeserializeBlock decodes a Block from its canonical byte form.
func DeserializeBlock(b []byte) (*Block, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("wire: block: truncated header")
	}
	hdr, err := DeserializeHeader(b[:HeaderSize])
	if err != nil {
		return nil, fmt.Errorf("wire: block: %w", err)
	}
	off := HeaderSize
	numTx, n, err := readVarInt(b[off:])
	if err != nil {
		return nil, fmt.Errorf("wire: block: tx count: %w", err)
	}
	off += n

	blk := &Block{Header: hdr, Txs: make([]Tx, numTx)}
	for i := range blk.Txs {
		tx, consumed, err := DeserializeTx(b[off:])
		if err != nil {
			return nil, fmt.Errorf("wire: block: tx %d: %w", i, err)
		}
		blk.Txs[i] = *tx
		off += consumed
	}
	return blk, nil
}
