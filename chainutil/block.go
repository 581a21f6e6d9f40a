// Package chainutil wraps the raw wire types with precomputed hashes and the
// small set of pure functions (merkle root, compact-target, subsidy
// schedule) that both the verifier and the storage engine need, so each
// block or transaction's hash is computed exactly once.
package chainutil

import (
	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/wire"
)

// IndexedTransaction pairs a transaction with its precomputed hash.
type IndexedTransaction struct {
	Tx   *wire.Transaction
	Hash hash.Hash256
}

// NewIndexedTransaction computes tx's hash once and wraps it.
func NewIndexedTransaction(tx *wire.Transaction) *IndexedTransaction {
	return &IndexedTransaction{Tx: tx, Hash: tx.TxHash()}
}

// IndexedBlock pairs a block with its header hash and indexed transactions.
type IndexedBlock struct {
	Block        *wire.MsgBlock
	Hash         hash.Hash256
	Transactions []*IndexedTransaction
}

// NewIndexedBlock computes the block's header hash and every transaction
// hash once, up front, so downstream verification never recomputes them.
func NewIndexedBlock(block *wire.MsgBlock) *IndexedBlock {
	txs := make([]*IndexedTransaction, len(block.Transactions))
	for i, tx := range block.Transactions {
		txs[i] = NewIndexedTransaction(tx)
	}
	return &IndexedBlock{
		Block:        block,
		Hash:         block.Header.BlockHash(),
		Transactions: txs,
	}
}

// Height-independent convenience accessors.

// Header returns the block's header.
func (b *IndexedBlock) Header() *wire.BlockHeader { return &b.Block.Header }

// TransactionHashes returns the precomputed hash of each transaction, in
// block order, ready for merkle root computation.
func (b *IndexedBlock) TransactionHashes() []hash.Hash256 {
	hashes := make([]hash.Hash256, len(b.Transactions))
	for i, tx := range b.Transactions {
		hashes[i] = tx.Hash
	}
	return hashes
}
