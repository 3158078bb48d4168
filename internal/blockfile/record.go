package blockfile

import (
	"encoding/binary"
	"fmt"

	"github.com/chainkv/chainkv/pkg/chainhash"
)

// headerSize is the on-disk record framing overhead (§4.1): magic(4) +
// tag(12) + length(4) + checksum(4).
const headerSize = 4 + 12 + 4 + 4

// blockTag is the 12-byte tag written on block-file records: the byte
// sequence 'b','l','o','c','k',0,0,0,0,0,0,0 — expressed in the spec as
// the little-endian words 0x636f6c62, 0x0000006b, 0.
var blockTag = [12]byte{0x62, 0x6c, 0x6f, 0x63, 0x6b, 0, 0, 0, 0, 0, 0, 0}

// undoTag is the all-zero 12-byte tag written on undo-file records.
var undoTag = [12]byte{}

func tagFor(kind Kind) [12]byte {
	if kind == KindUndo {
		return undoTag
	}
	return blockTag
}

// encodeRecord frames payload for on-disk storage: magic ‖ tag ‖
// length ‖ checksum ‖ payload.
func encodeRecord(magic uint32, kind Kind, payload []byte) []byte {
	tag := tagFor(kind)
	sum := chainhash.Sum256(payload)

	buf := make([]byte, 0, headerSize+len(payload))
	buf = binary.LittleEndian.AppendUint32(buf, magic)
	buf = append(buf, tag[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	buf = append(buf, sum[:4]...)
	buf = append(buf, payload...)
	return buf
}

// decodeRecord validates and strips framing from a full record buffer
// (headerSize+length bytes), returning the payload.
func decodeRecord(raw []byte) ([]byte, error) {
	if len(raw) < headerSize {
		return nil, fmt.Errorf("blockfile: record shorter than header (%d bytes)", len(raw))
	}
	length := binary.LittleEndian.Uint32(raw[16:20])
	if len(raw) != headerSize+int(length) {
		return nil, fmt.Errorf("blockfile: record length mismatch: framed %d, have %d", length, len(raw)-headerSize)
	}
	payload := raw[headerSize:]
	checksum := raw[20:24]
	sum := chainhash.Sum256(payload)
	if string(sum[:4]) != string(checksum) {
		return nil, fmt.Errorf("blockfile: checksum mismatch, record corrupted")
	}
	return payload, nil
}
