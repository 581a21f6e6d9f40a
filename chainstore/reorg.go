package chainstore

import (
	"github.com/btcsuite/goleveldb/leveldb"
	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/utxo"
	"github.com/daglabs/btcnode/wire"
)

// ReorgDelta reports what a Reorganize call actually did: the blocks removed
// from the main chain (in disconnect order, tip-first) and the blocks added
// to it (in connect order, closest-to-fork-point first). A caller (netsync,
// the mempool) uses this to decide which transactions need re-adding.
type ReorgDelta struct {
	Disconnected []*wire.MsgBlock
	Connected    []*wire.MsgBlock
	ForkHeight   uint32
}

// ConnectValidator is supplied by the caller to validate a block's
// transactions against the UTXO set as it is connected, and to apply the
// resulting spend/create effects to tx-meta records. Its existence keeps
// chainstore free of a dependency on the verifier package: the verifier
// instead depends on chainstore's capability-view interfaces, and the glue
// layer (netsync) closes the loop by handing the verifier's entry point in
// here.
type ConnectValidator func(block *wire.MsgBlock, blockHeight uint32, provider TransactionOutputProvider) error

// Reorganize switches the active chain's tip to newTip, which must already
// be a known header (inserted via InsertBlock). It walks back from both the
// current tip and newTip to their lowest common ancestor, disconnects every
// main-chain block down to that ancestor, then connects every block up to
// newTip, validating each with validate as it goes. The whole operation
// holds the store's write lock, so no reader ever observes a partially
// disconnected or partially connected chain.
func (s *Store) Reorganize(newTip hash.Hash256, validate ConnectValidator) (*ReorgDelta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newNode, ok := s.headerIndex[newTip]
	if !ok {
		return nil, ErrUnknownParent
	}
	oldTip := s.best.Hash
	oldNode, ok := s.headerIndex[oldTip]
	if !ok && !oldTip.IsZero() {
		return nil, errors.Wrap(ErrCorruptData, "current best block missing from header index")
	}

	ancestor, disconnectPath, connectPath, err := s.findForkPoint(oldNode, newNode)
	if err != nil {
		return nil, err
	}

	batch := new(leveldb.Batch)
	overlay := newPendingMetaOverlay(s)
	delta := &ReorgDelta{ForkHeight: 0}
	if ancestor != nil {
		delta.ForkHeight = ancestor.height
	}

	for _, node := range disconnectPath {
		block, err := s.blockLocked(node.hash)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load block %s for disconnect", node.hash)
		}
		if err := s.disconnectBlockLocked(overlay, block); err != nil {
			return nil, errors.Wrapf(err, "failed to disconnect block %s", node.hash)
		}
		delta.Disconnected = append(delta.Disconnected, block)
	}

	for _, node := range connectPath {
		block, err := s.blockLocked(node.hash)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load block %s for connect", node.hash)
		}
		if validate != nil {
			if err := validate(block, node.height, reorgOutputView{s, overlay}); err != nil {
				return nil, errors.Wrapf(err, "validation failed connecting block %s", node.hash)
			}
		}
		if err := s.connectBlockLocked(overlay, block, node.height); err != nil {
			return nil, errors.Wrapf(err, "failed to connect block %s", node.hash)
		}
		delta.Connected = append(delta.Connected, block)
		batch.Put(heightKey(node.height), node.hash[:])
	}

	for _, node := range disconnectPath {
		if node.height > newNode.height {
			batch.Delete(heightKey(node.height))
		}
	}

	newBest := utxo.BestBlock{Hash: newNode.hash, Height: newNode.height}
	batch.Put(keyBestBlock, encodeBestBlock(newBest))
	overlay.flush(batch)

	if err := s.db.Write(batch, nil); err != nil {
		return nil, errors.Wrap(err, "failed to write reorg batch")
	}

	for _, node := range disconnectPath {
		node.onMainChain = false
	}
	for _, node := range connectPath {
		node.onMainChain = true
	}
	s.best = newBest

	return delta, nil
}

// findForkPoint walks both chains back to their lowest common ancestor,
// returning the ancestor node (nil only when oldTip is nil, i.e. the store
// has no main chain yet), the main-chain blocks to disconnect (tip-first)
// and the candidate-chain blocks to connect (fork-point-first). Chains that
// share no ancestor return ErrCorruptData.
func (s *Store) findForkPoint(oldTip, newTip *headerNode) (ancestor *headerNode, disconnect, connect []*headerNode, err error) {
	a, b := oldTip, newTip
	for a != nil && b != nil && a.height > b.height {
		disconnect = append(disconnect, a)
		a = s.headerIndex[a.parent]
	}
	// a == nil means the old chain is empty (a fresh store connecting its
	// first blocks): every remaining ancestor of b belongs in connect, all
	// the way down to genesis, rather than stopping the walk early.
	for b != nil && (a == nil || b.height > a.height) {
		connect = append([]*headerNode{b}, connect...)
		b = s.headerIndex[b.parent]
	}
	for a != nil && b != nil && a.hash != b.hash {
		disconnect = append(disconnect, a)
		connect = append([]*headerNode{b}, connect...)
		a = s.headerIndex[a.parent]
		b = s.headerIndex[b.parent]
	}
	if a == nil && oldTip != nil {
		return nil, nil, nil, errors.Wrap(ErrCorruptData, "header index broke before reaching genesis during reorg")
	}
	return a, disconnect, connect, nil
}

func (s *Store) disconnectBlockLocked(overlay *pendingMetaOverlay, block *wire.MsgBlock) error {
	for i := len(block.Transactions) - 1; i >= 0; i-- {
		tx := block.Transactions[i]
		txHash := tx.TxHash()

		if !tx.IsCoinBase() {
			for _, in := range tx.TxIn {
				prevMeta, err := overlay.get(in.PreviousOutPoint.Hash)
				if err != nil {
					return err
				}
				if err := prevMeta.ClearSpent(in.PreviousOutPoint.Index); err != nil {
					return err
				}
				overlay.put(in.PreviousOutPoint.Hash, prevMeta)
			}
		}
		overlay.delete(txHash)
	}
	return nil
}

func (s *Store) connectBlockLocked(overlay *pendingMetaOverlay, block *wire.MsgBlock, height uint32) error {
	for _, tx := range block.Transactions {
		txHash := tx.TxHash()
		meta := utxo.NewTransactionMeta(tx, height, tx.IsCoinBase())

		if !tx.IsCoinBase() {
			for _, in := range tx.TxIn {
				prevMeta, err := overlay.get(in.PreviousOutPoint.Hash)
				if err != nil {
					return err
				}
				if err := prevMeta.MarkSpent(in.PreviousOutPoint.Index); err != nil {
					return err
				}
				overlay.put(in.PreviousOutPoint.Hash, prevMeta)
			}
		}
		overlay.put(txHash, meta)
	}
	return nil
}

// pendingMetaOverlay unifies tx-meta reads and writes across one
// Reorganize call. disconnectBlockLocked and connectBlockLocked write
// through it instead of the real leveldb.Batch, and the output view
// handed to the caller's validator reads through it too, so a block
// connecting later in the call sees spends and creations an earlier
// block in the same call already made, before any of it is durable.
// flush applies the accumulated state to the real batch once, at the
// very end of Reorganize.
type pendingMetaOverlay struct {
	s       *Store
	pending map[hash.Hash256]*utxo.TransactionMeta // nil value means deleted
}

func newPendingMetaOverlay(s *Store) *pendingMetaOverlay {
	return &pendingMetaOverlay{s: s, pending: make(map[hash.Hash256]*utxo.TransactionMeta)}
}

func (o *pendingMetaOverlay) get(h hash.Hash256) (*utxo.TransactionMeta, error) {
	if meta, ok := o.pending[h]; ok {
		if meta == nil {
			return nil, ErrNotFound
		}
		return meta, nil
	}
	return o.s.transactionMetaLocked(h)
}

func (o *pendingMetaOverlay) put(h hash.Hash256, meta *utxo.TransactionMeta) {
	o.pending[h] = meta
}

func (o *pendingMetaOverlay) delete(h hash.Hash256) {
	o.pending[h] = nil
}

func (o *pendingMetaOverlay) flush(batch *leveldb.Batch) {
	for h, meta := range o.pending {
		if meta == nil {
			batch.Delete(txMetaKey(h))
			continue
		}
		batch.Put(txMetaKey(h), encodeTransactionMeta(meta))
	}
}
