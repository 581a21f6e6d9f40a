// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math"

	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/wire"
)

// genesisCoinbaseTx is the coinbase transaction shared by the genesis block
// of every network.
var genesisCoinbaseTx = &wire.Transaction{
	Version: 1,
	TxIn: []*wire.TxIn{
		{
			PreviousOutPoint: wire.OutPoint{
				Hash:  hash.ZeroHash,
				Index: math.MaxUint32,
			},
			SignatureScript: []byte{
				0x04, 0x46, 0x6f, 0x72, 0x20, 0x74, 0x68, 0x65,
				0x20, 0x63, 0x68, 0x61, 0x69, 0x6e,
			},
			Sequence: math.MaxUint32,
		},
	},
	TxOut: []*wire.TxOut{
		{
			Value:        50 * 100_000_000,
			ScriptPubKey: []byte{0x51}, // OP_TRUE; not a production pay-to-anything script
		},
	},
	LockTime: 0,
}

var genesisMerkleRoot = genesisCoinbaseTx.TxHash()

// genesisBlock is the first block of the chain for every network; only its
// header's Bits/Nonce/Timestamp differ from one network to the next in a
// real deployment. For this implementation the three networks share it,
// since their difficulty/genesis distinction is not load-bearing for the
// core engines under test.
var genesisBlock = &wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  hash.ZeroHash,
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  1231006505,
		Bits:       0x1d00ffff,
		Nonce:      2083236893,
	},
	Transactions: []*wire.Transaction{genesisCoinbaseTx},
}

var genesisHash = genesisBlock.Header.BlockHash()
