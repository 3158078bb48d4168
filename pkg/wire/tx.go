package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/chainkv/chainkv/pkg/chainhash"
)

// TxIn is a transaction input. Script execution is out of scope for this
// engine; inputs carry only what the coin view needs to resolve and spend
// their prevout.
type TxIn struct {
	PrevOut  Outpoint
	Sequence uint32
}

// TxOut is a transaction output: a value and an opaque locking script.
// The script's contents (P2PKH, P2WPKH, ...) are never interpreted here.
type TxOut struct {
	Value  uint64
	Script []byte
}

// Tx is a minimal transaction: enough structure for the coin view to
// spend inputs and create outputs, without any validation or script
// semantics.
type Tx struct {
	Version  uint32
	Inputs   []TxIn
	Outputs  []TxOut
	LockTime uint32
}

// IsCoinbase reports whether tx has the single zero-outpoint input that
// marks a coinbase transaction.
func (tx *Tx) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].PrevOut.IsZero()
}

// Serialize encodes tx into its canonical storage byte form.
func (tx *Tx) Serialize() []byte {
	buf := make([]byte, 0, 64+32*len(tx.Inputs)+40*len(tx.Outputs))
	buf = binary.LittleEndian.AppendUint32(buf, tx.Version)
	buf = writeVarInt(buf, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = append(buf, in.PrevOut.Hash[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, in.PrevOut.Index)
		buf = binary.LittleEndian.AppendUint32(buf, in.Sequence)
	}
	buf = writeVarInt(buf, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = binary.LittleEndian.AppendUint64(buf, out.Value)
		buf = writeVarInt(buf, uint64(len(out.Script)))
		buf = append(buf, out.Script...)
	}
	buf = binary.LittleEndian.AppendUint32(buf, tx.LockTime)
	return buf
}

// Hash computes the transaction hash: hash256 of the serialized tx.
func (tx *Tx) Hash() chainhash.Hash {
	return chainhash.Sum256(tx.Serialize())
}

// DeserializeTx decodes a Tx from its canonical byte form, returning the
// number of bytes consumed.
func DeserializeTx(b []byte) (*Tx, int, error) {
	if len(b) < 4 {
		return nil, 0, fmt.Errorf("wire: tx: truncated version")
	}
	tx := &Tx{}
	off := 0
	tx.Version = binary.LittleEndian.Uint32(b[off:])
	off += 4

	numIn, n, err := readVarInt(b[off:])
	if err != nil {
		return nil, 0, fmt.Errorf("wire: tx: input count: %w", err)
	}
	off += n
	tx.Inputs = make([]TxIn, numIn)
	for i := range tx.Inputs {
		if len(b) < off+40 {
			return nil, 0, fmt.Errorf("wire: tx: truncated input %d", i)
		}
		copy(tx.Inputs[i].PrevOut.Hash[:], b[off:off+32])
		off += 32
		tx.Inputs[i].PrevOut.Index = binary.LittleEndian.Uint32(b[off:])
		off += 4
		tx.Inputs[i].Sequence = binary.LittleEndian.Uint32(b[off:])
		off += 4
	}

	numOut, n, err := readVarInt(b[off:])
	if err != nil {
		return nil, 0, fmt.Errorf("wire: tx: output count: %w", err)
	}
	off += n
	tx.Outputs = make([]TxOut, numOut)
	for i := range tx.Outputs {
		if len(b) < off+8 {
			return nil, 0, fmt.Errorf("wire: tx: truncated output %d value", i)
		}
		tx.Outputs[i].Value = binary.LittleEndian.Uint64(b[off:])
		off += 8
		scriptLen, n, err := readVarInt(b[off:])
		if err != nil {
			return nil, 0, fmt.Errorf("wire: tx: output %d script length: %w", i, err)
		}
		off += n
		if len(b) < off+int(scriptLen) {
			return nil, 0, fmt.Errorf("wire: tx: truncated output %d script", i)
		}
		tx.Outputs[i].Script = append([]byte(nil), b[off:off+int(scriptLen)]...)
		off += int(scriptLen)
	}

	if len(b) < off+4 {
		return nil, 0, fmt.Errorf("wire: tx: truncated locktime")
	}
	tx.LockTime = binary.LittleEndian.Uint32(b[off:])
	off += 4

	return tx, off, nil
}
