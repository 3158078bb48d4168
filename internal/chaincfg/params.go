// Package chaincfg holds the fixed, read-only network descriptors
// (mainnet/testnet/regtest) selected at open time (§6 Configuration,
// §9 "Global tables" — modeled as an immutable value passed by
// reference, never as process-global mutable state).
package chaincfg

import (
	"github.com/chainkv/chainkv/pkg/wire"
)

// Params describes one network's fixed parameters: its genesis block,
// wire magic, and pruning thresholds.
type Params struct {
	Name    string
	Magic   uint32
	Genesis wire.Block

	// GenesisHash is the hash of Genesis, computed once when the Params
	// value is built rather than at every reference (see DESIGN.md's
	// Open Question on the S1 genesis-hash literal). chaindb.Open does
	// not consult it: it writes the genesis block whenever storage holds
	// no index entries and no tip.
	GenesisHash [32]byte

	// KeepBlocks/PruneAfterHeight parameterize the save() pruning step
	// (§4.5 step 3): prune only once height >= KeepBlocks and
	// height-KeepBlocks > PruneAfterHeight.
	KeepBlocks       uint32
	PruneAfterHeight uint32
}

func genesisCoinbase() wire.Tx {
	return wire.Tx{
		Version: 1,
		Inputs:  []wire.TxIn{{PrevOut: wire.Outpoint{}, Sequence: 0xffffffff}},
		Outputs: []wire.TxOut{{
			Value:  5000000000,
			Script: []byte("chainkv genesis coinbase, unspendable by convention"),
		}},
	}
}

func buildGenesis(bits uint32, timestamp uint32, nonce uint32) wire.Block {
	coinbase := genesisCoinbase()
	merkle := coinbase.Hash() // single-tx block: merkle root is the tx hash itself
	return wire.Block{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  [32]byte{},
			MerkleRoot: merkle,
			Timestamp:  timestamp,
			Bits:       bits,
			Nonce:      nonce,
		},
		Txs: []wire.Tx{coinbase},
	}
}

// MainNetParams, TestNetParams, and RegTestParams are the three standard
// network configurations. Each network's genesis block is deterministic
// (fixed timestamp, zero nonce) so opening an empty directory always
// reproduces the same hash; see DESIGN.md for why these do not attempt
// to reproduce a specific upstream project's byte-for-byte genesis.
var (
	MainNetParams = mustBuild("mainnet", 0xd9b4bef9, 0x1d00ffff, 1700000000, 100000, 0)
	TestNetParams = mustBuild("testnet", 0x0709110b, 0x1d00ffff, 1700000000, 10000, 0)
	RegTestParams = mustBuild("regtest", 0xdab5bffa, 0x207fffff, 1296688602, 0, 0)
)

func mustBuild(name string, magic uint32, bits uint32, timestamp uint32, keepBlocks, pruneAfter uint32) *Params {
	genesis := buildGenesis(bits, timestamp, 0)
	return &Params{
		Name:             name,
		Magic:            magic,
		Genesis:          genesis,
		GenesisHash:      genesis.Hash(),
		KeepBlocks:       keepBlocks,
		PruneAfterHeight: pruneAfter,
	}
}
