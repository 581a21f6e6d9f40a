// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/daglabs/btcnode/hash"
)

// BlockHeaderPayload is the number of bytes a block header serializes to:
// version(4) + previous_header_hash(32) + merkle_root(32) + time(4) + bits(4) + nonce(4).
const BlockHeaderPayload = 80

// BlockHeader defines the metadata identifying a block: its chain linkage,
// commitment to its transactions, and proof-of-work solution.
type BlockHeader struct {
	// Version of the block.
	Version int32

	// PrevBlock is the hash of the previous block header in the chain.
	PrevBlock hash.Hash256

	// MerkleRoot is the root of the merkle tree of transaction hashes.
	MerkleRoot hash.Hash256

	// Timestamp the block was created.
	Timestamp uint32

	// Bits is the compact-encoded proof-of-work target.
	Bits uint32

	// Nonce used to satisfy the proof-of-work.
	Nonce uint32
}

// BlockHash computes the double-SHA-256 identifier of the header.
func (h *BlockHeader) BlockHash() hash.Hash256 {
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderPayload))
	// Serialization cannot fail writing into an in-memory buffer.
	_ = h.Serialize(buf)
	return hash.DoubleHash(buf.Bytes())
}

// Serialize encodes the header to w in the canonical 80-byte wire format.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeElements(w, h.Version, h.PrevBlock, h.MerkleRoot, h.Timestamp, h.Bits, h.Nonce)
}

// Deserialize decodes a header from r.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readElements(r, &h.Version, &h.PrevBlock, &h.MerkleRoot, &h.Timestamp, &h.Bits, &h.Nonce)
}

// SerializeSize returns the number of bytes Serialize writes: always 80.
func (h *BlockHeader) SerializeSize() int {
	return BlockHeaderPayload
}

// NewBlockHeader builds a header from its constituent fields.
func NewBlockHeader(version int32, prevBlock, merkleRoot hash.Hash256, timestamp, bits, nonce uint32) *BlockHeader {
	return &BlockHeader{
		Version:    version,
		PrevBlock:  prevBlock,
		MerkleRoot: merkleRoot,
		Timestamp:  timestamp,
		Bits:       bits,
		Nonce:      nonce,
	}
}
