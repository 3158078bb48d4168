package chaindb

import "github.com/chainkv/chainkv/internal/chaincfg"

// Flag is a bitset of engine options (§6 Configuration).
type Flag uint32

// FlagPrune enables height-based pruning of sealed block/undo files
// during save (§4.5 step 3).
const FlagPrune Flag = 1 << 0

// DefaultMapSize64 is the default KV map size on 64-bit hosts: 16 GiB
// (§4.2).
const DefaultMapSize64 int64 = 16 << 30

// Options configures Open. This is the engine's entire programmatic
// configuration surface (§6) — there is deliberately no CLI flag or
// `.conf` file parser here; configuration-file parsing belongs to the
// embedding node (spec.md §1 lists it as an external collaborator).
type Options struct {
	// Prefix is the root data directory; block/undo files live under
	// Prefix/blocks, the KV environment under Prefix/chain.
	Prefix string
	// Flags is a bitset, currently just FlagPrune.
	Flags Flag
	// MapSize is the KV map size in bytes, passed to kvstore.Open (see
	// there for how Badger applies it; Badger has no overall size cap).
	// Zero selects DefaultMapSize64.
	MapSize int64
	// Network selects genesis, magic, and prune thresholds. Required.
	Network *chaincfg.Params
	// MaxFileSize overrides the 128 MiB block/undo file rotation
	// boundary (blockfile.DefaultMaxFileSize), primarily for tests that
	// need to exercise rotation without writing 128 MiB of fixtures
	// (spec.md scenario S5).
	MaxFileSize int64
}

func (o Options) mapSize() int64 {
	if o.MapSize > 0 {
		return o.MapSize
	}
	return DefaultMapSize64
}
