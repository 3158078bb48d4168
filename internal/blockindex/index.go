package blockindex

import (
	"fmt"

	"github.com/chainkv/chainkv/pkg/chainhash"
)

// Index is the in-memory block-index DAG: a hash→entry map plus a
// height→entry vector describing the active chain (§4.3).
type Index struct {
	byHash  map[chainhash.Hash]*Entry
	heights []*Entry
}

// New returns an empty Index.
func New() *Index {
	return &Index{byHash: make(map[chainhash.Hash]*Entry)}
}

// ByHash performs an O(1) lookup; the returned entry may be off the
// active chain.
func (ix *Index) ByHash(h chainhash.Hash) (*Entry, bool) {
	e, ok := ix.byHash[h]
	return e, ok
}

// ByHeight performs a bounds-checked lookup into the height vector.
func (ix *Index) ByHeight(height int32) (*Entry, bool) {
	if height < 0 || int(height) >= len(ix.heights) {
		return nil, false
	}
	return ix.heights[height], true
}

// IsMain reports whether e sits at its own height in the height vector.
func (ix *Index) IsMain(e *Entry) bool {
	if e == nil {
		return false
	}
	at, ok := ix.ByHeight(e.Height)
	return ok && at == e
}

// Head returns the genesis entry, or nil if the index is empty.
func (ix *Index) Head() *Entry {
	if len(ix.heights) == 0 {
		return nil
	}
	return ix.heights[0]
}

// Tail returns the current tip entry, or nil if the index is empty.
func (ix *Index) Tail() *Entry {
	if len(ix.heights) == 0 {
		return nil
	}
	return ix.heights[len(ix.heights)-1]
}

// Height returns the tip's height, or -1 if the index is empty.
func (ix *Index) Height() int32 {
	return int32(len(ix.heights)) - 1
}

// Insert adds e to the hash map (off-chain; does not touch the height
// vector) and resolves its Prev link if its parent is already indexed.
func (ix *Index) Insert(e *Entry) {
	ix.byHash[e.Hash()] = e
	if e.Height > 0 {
		if prev, ok := ix.byHash[e.Header.PrevBlock]; ok {
			e.Prev = prev
		}
	}
}

// LinkMain appends e to the tail of the active chain: sets e.Prev.Next
// and extends the height vector. The caller must already have verified
// e.Height == len(heights) (i.e. e directly extends the current tip).
func (ix *Index) LinkMain(e *Entry) {
	if e.Prev != nil {
		e.Prev.Next = e
	}
	ix.heights = append(ix.heights, e)
}

// UnlinkTail pops the current tip off the height vector, clears its
// parent's Next link, and returns the popped entry. The entry itself
// remains in the hash map (it is retained as an off-chain entry, §4.5).
func (ix *Index) UnlinkTail() *Entry {
	if len(ix.heights) == 0 {
		return nil
	}
	e := ix.heights[len(ix.heights)-1]
	ix.heights = ix.heights[:len(ix.heights)-1]
	if e.Prev != nil {
		e.Prev.Next = nil
	}
	return e
}

// Rebuild reconstructs an Index from the full set of persisted entries
// and the persisted tip hash (§4.3 "on open"): prev links are resolved
// via hash lookup, then the main chain is walked tip→genesis to set next
// links and populate the height vector. If entries is empty and tipHash
// is the zero hash, an empty Index is returned (the caller then
// initializes storage from the network genesis block).
func Rebuild(entries []*Entry, tipHash chainhash.Hash) (*Index, error) {
	ix := New()
	for _, e := range entries {
		ix.byHash[e.Hash()] = e
	}
	if len(entries) == 0 && tipHash.IsZero() {
		return ix, nil
	}

	for _, e := range entries {
		if e.Height > 0 {
			prev, ok := ix.byHash[e.Header.PrevBlock]
			if !ok {
				return nil, fmt.Errorf("blockindex: entry %s: missing parent %s", e.Hash(), e.Header.PrevBlock)
			}
			e.Prev = prev
		}
	}

	tip, ok := ix.byHash[tipHash]
	if !ok {
		return nil, fmt.Errorf("blockindex: tip hash %s not present in index", tipHash)
	}

	var chain []*Entry
	for cur := tip; cur != nil; cur = cur.Prev {
		chain = append(chain, cur)
	}
	heights := make([]*Entry, len(chain))
	for i, e := range chain {
		heights[len(chain)-1-i] = e
	}
	for i := 0; i < len(heights)-1; i++ {
		heights[i].Next = heights[i+1]
	}
	ix.heights = heights

	return ix, nil
}
