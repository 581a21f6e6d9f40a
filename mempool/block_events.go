package mempool

import (
	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/wire"
)

// RemoveConfirmed reconciles the pool with a newly connected block, the
// mempool side of spec 4.4's reorg handling ("re-verify mempool
// transactions that might now be invalid and evict any conflict"). Any pool
// transaction that double-spends an input the block just consumed is
// evicted along with its cascade; the block's own transactions are then
// dropped from the pool without disturbing their pool descendants, whose
// inputs now resolve against the confirmed output rather than a pool entry.
func (p *Pool) RemoveConfirmed(transactions []*wire.Transaction) []*Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	var evicted []*Entry
	for _, tx := range transactions {
		txHash := tx.TxHash()
		for _, in := range tx.TxIn {
			if conflictHash, ok := p.byInput[in.PreviousOutPoint]; ok && conflictHash != txHash {
				evicted = append(evicted, p.removeCascade(conflictHash)...)
			}
		}
	}
	for _, tx := range transactions {
		evicted = append(evicted, p.removeMinedOnly(tx.TxHash())...)
	}
	return evicted
}

// removeMinedOnly drops a single entry without cascading to its
// descendants. Must be called with mu held.
func (p *Pool) removeMinedOnly(h hash.Hash256) []*Entry {
	entry, ok := p.byHash[h]
	if !ok {
		return nil
	}
	for _, ancestor := range p.ancestorsOf(entry.Tx) {
		ancestor.DescendantCount--
	}
	delete(p.byHash, h)
	for _, in := range entry.Tx.TxIn {
		if p.byInput[in.PreviousOutPoint] == h {
			delete(p.byInput, in.PreviousOutPoint)
		}
	}
	return []*Entry{entry}
}
