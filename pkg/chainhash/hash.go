// Package chainhash defines the 32-byte hash type used throughout the
// chain storage engine and the hash256 (double SHA-256) primitive used to
// checksum on-disk records and identify blocks.
package chainhash

import (
	"encoding/hex"
	"fmt"

	sha256simd "github.com/minio/sha256-simd"
)

// Size is the length of a hash in bytes.
const Size = 32

// Hash is a 256-bit digest.
type Hash [Size]byte

// IsZero reports whether h is the all-zero hash (used to mark genesis's
// missing previous-block link and the zero outpoint of a coinbase input).
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex encoding of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of h as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, h[:])
	return b
}

// FromBytes copies b into a new Hash. b must be exactly Size bytes.
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != Size {
		return h, fmt.Errorf("chainhash: expected %d bytes, got %d", Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// FromHex decodes a hex string into a Hash.
func FromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("chainhash: invalid hex: %w", err)
	}
	return FromBytes(b)
}

// Sum256 computes hash256: double SHA-256 over data.
func Sum256(data []byte) Hash {
	first := sha256simd.Sum256(data)
	second := sha256simd.Sum256(first[:])
	return Hash(second)
}
