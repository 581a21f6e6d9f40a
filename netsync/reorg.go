package netsync

import (
	"time"

	"github.com/daglabs/btcnode/chainstore"
	"github.com/daglabs/btcnode/verifier"
	"github.com/daglabs/btcnode/wire"
)

// connectValidator closes the loop chainstore's ConnectValidator type
// documents: the glue between the store's reorganize primitive and the
// verifier, supplying the full stateful check (including the BIP9
// deployment snapshot, which needs the header provider the store itself
// is) for every block the reorg walk connects.
func (m *Manager) connectValidator(now time.Time) chainstore.ConnectValidator {
	return func(block *wire.MsgBlock, height uint32, provider chainstore.TransactionOutputProvider) error {
		return m.verifier.Verify(block, height, m.store.AsBlockHeaderProvider(), provider, verifier.Full, now)
	}
}

// applyReorgDelta reconciles the mempool against a just-applied
// reorganize, per spec 4.4's "re-verify mempool transactions that might
// now be invalid and evict any conflict": transactions from newly
// connected blocks are dropped from the pool without cascading to their
// pool descendants (whose inputs now resolve on-chain), and every
// remaining entry whose input was consumed on-chain by the new branch is
// evicted, cascading to its own pool descendants in turn.
func (m *Manager) applyReorgDelta(delta *chainstore.ReorgDelta) {
	for _, block := range delta.Connected {
		m.pool.RemoveConfirmed(block.Transactions)
	}

	provider := m.store.AsTransactionOutputProvider()
	for _, entry := range m.pool.Entries() {
		if !m.pool.Contains(entry.Hash) {
			continue // already evicted earlier in this loop, as a descendant
		}
		if m.inputsConflict(entry.Tx, provider) {
			m.pool.RemoveByHash(entry.Hash)
		}
	}
}

// inputsConflict reports whether any of tx's inputs that resolve outside
// the pool (i.e. are expected to be on-chain) no longer resolve against
// provider — meaning the new chain state spent or never created them.
// Inputs whose previous outpoint is itself a pool entry are a pool
// ancestor relationship, not a chain conflict, and are skipped.
func (m *Manager) inputsConflict(tx *wire.Transaction, provider chainstore.TransactionOutputProvider) bool {
	for _, in := range tx.TxIn {
		if m.pool.Contains(in.PreviousOutPoint.Hash) {
			continue
		}
		if _, _, _, err := provider.Output(in.PreviousOutPoint); err != nil {
			return true
		}
	}
	return false
}
