package chaindb

import (
	"fmt"

	"github.com/chainkv/chainkv/internal/blockfile"
	"github.com/chainkv/chainkv/internal/blockindex"
	"github.com/chainkv/chainkv/internal/kvstore"
)

// pruneFiles implements save's pruning step (§4.5 step 3): with FlagPrune
// set and entry.Height far enough past keep_blocks/prune_after_height,
// delete every sealed file (block or undo) whose max_height falls below
// the retention target, from both the file table and disk.
func (db *DB) pruneFiles(rw kvstore.RwTx, entry *blockindex.Entry) error {
	if db.opts.Flags&FlagPrune == 0 {
		return nil
	}
	if entry.Height < int32(db.opts.Network.KeepBlocks) {
		return nil
	}
	target := entry.Height - int32(db.opts.Network.KeepBlocks)
	if target <= int32(db.opts.Network.PruneAfterHeight) {
		return nil
	}

	var toDelete []blockfile.Meta
	if err := rw.ForEach(kvstore.TableFile, func(key, value []byte) error {
		m, err := blockfile.DeserializeMeta(value)
		if err != nil {
			return fmt.Errorf("chaindb: prune: corrupt file meta %x: %w", key, err)
		}
		if m.MaxHeight < target {
			toDelete = append(toDelete, m)
		}
		return nil
	}); err != nil {
		return err
	}

	for _, m := range toDelete {
		if err := rw.Delete(kvstore.TableFile, m.Key()); err != nil {
			return err
		}
	}
	for _, m := range toDelete {
		if err := db.files.DeleteFile(m.Kind, m.ID); err != nil {
			return fmt.Errorf("chaindb: prune: delete %v file %d: %w", m.Kind, m.ID, err)
		}
	}

	return nil
}
