package chainstore

import (
	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/wire"
)

// TransactionOutputProvider is the narrow read surface the verifier needs to
// resolve an input's previous output without depending on chainstore's full
// API (or its leveldb handle). Passing this instead of *Store keeps the
// verifier package free to import chainstore only for this interface, never
// the other way around.
type TransactionOutputProvider interface {
	// Output resolves a previous outpoint to its spendable output, its
	// containing block height, and whether it originated from a coinbase
	// transaction (for maturity checks). ErrNotFound if unknown, or if
	// already spent and the provider does not retain spent history.
	Output(op wire.OutPoint) (out *wire.TxOut, blockHeight uint32, isCoinbase bool, err error)
}

// BlockHeaderProvider is the narrow read surface the verifier needs to walk
// ancestor headers for difficulty retargeting and median-time-past checks.
type BlockHeaderProvider interface {
	BlockHeader(h hash.Hash256) (*wire.BlockHeader, error)
	HashAtHeight(height uint32) (hash.Hash256, error)
}

// AsTransactionOutputProvider returns a capability view of the store scoped
// to previous-output resolution, for handing to the verifier without
// exposing the rest of Store's surface.
func (s *Store) AsTransactionOutputProvider() TransactionOutputProvider {
	return outputProviderView{s}
}

// AsBlockHeaderProvider returns a capability view of the store scoped to
// header lookups.
func (s *Store) AsBlockHeaderProvider() BlockHeaderProvider {
	return s
}

type outputProviderView struct {
	s *Store
}

func (v outputProviderView) Output(op wire.OutPoint) (*wire.TxOut, uint32, bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	tx, blockHash, err := v.s.txByHashLocked(op.Hash)
	if err != nil {
		return nil, 0, false, err
	}
	if int(op.Index) >= len(tx.TxOut) {
		return nil, 0, false, errors.Wrap(ErrCorruptData, "outpoint index out of range")
	}
	meta, err := v.s.transactionMetaLocked(op.Hash)
	if err != nil {
		return nil, 0, false, err
	}
	spent, err := meta.IsSpent(op.Index)
	if err != nil {
		return nil, 0, false, errors.Wrap(ErrCorruptData, err.Error())
	}
	if spent {
		return nil, 0, false, ErrNotFound
	}
	node, ok := v.s.headerIndex[blockHash]
	height := meta.BlockHeight
	if ok {
		height = node.height
	}
	return tx.TxOut[op.Index], height, meta.IsCoinbase, nil
}

// reorgOutputView is the TransactionOutputProvider handed to a
// ConnectValidator from inside Reorganize. Unlike outputProviderView it
// never takes s.mu itself, since Reorganize already holds the write lock
// for its entire body and RWMutex is not reentrant; and it resolves
// tx-meta through the reorg's in-flight overlay rather than straight off
// the database, so a block connecting later in the same reorg call sees
// spends and creations an earlier block in that call already made, even
// though none of it has reached the database yet.
type reorgOutputView struct {
	s       *Store
	overlay *pendingMetaOverlay
}

func (v reorgOutputView) Output(op wire.OutPoint) (*wire.TxOut, uint32, bool, error) {
	tx, blockHash, err := v.s.txByHashLocked(op.Hash)
	if err != nil {
		return nil, 0, false, err
	}
	if int(op.Index) >= len(tx.TxOut) {
		return nil, 0, false, errors.Wrap(ErrCorruptData, "outpoint index out of range")
	}
	meta, err := v.overlay.get(op.Hash)
	if err != nil {
		return nil, 0, false, err
	}
	spent, err := meta.IsSpent(op.Index)
	if err != nil {
		return nil, 0, false, errors.Wrap(ErrCorruptData, err.Error())
	}
	if spent {
		return nil, 0, false, ErrNotFound
	}
	node, ok := v.s.headerIndex[blockHash]
	height := meta.BlockHeight
	if ok {
		height = node.height
	}
	return tx.TxOut[op.Index], height, meta.IsCoinbase, nil
}

func (s *Store) txByHashLocked(h hash.Hash256) (*wire.Transaction, hash.Hash256, error) {
	val, err := s.db.Get(txLocationKey(h), nil)
	if err != nil {
		return nil, hash.Hash256{}, ErrNotFound
	}
	blockHash, offset, err := decodeTxLocation(val)
	if err != nil {
		return nil, hash.Hash256{}, err
	}
	block, err := s.blockLocked(blockHash)
	if err != nil {
		return nil, hash.Hash256{}, err
	}
	if offset >= len(block.Transactions) {
		return nil, hash.Hash256{}, errors.Wrap(ErrCorruptData, "tx location offset out of range")
	}
	return block.Transactions[offset], blockHash, nil
}
