package mempool

import (
	"sync"
	"time"

	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/wire"
)

// Pool holds verified but unconfirmed transactions. It tracks, for each
// entry, how many of its ancestors and descendants are also pool members,
// so eviction and mining-selection orderings never need to re-walk the
// dependency graph at query time.
//
// Grounded on the teacher's transactionsPool (allTransactions,
// chainedTransactionsByPreviousOutpoint, transactionsOrderedByFeeRate) in
// domain/miningmanager/mempool/transactions_pool.go, generalized from the
// teacher's UTXO-diff bookkeeping to the classic by-hash/by-input indices
// spec 4.3 names.
type Pool struct {
	mu      sync.RWMutex
	byHash  map[hash.Hash256]*Entry
	byInput map[wire.OutPoint]hash.Hash256
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{
		byHash:  make(map[hash.Hash256]*Entry),
		byInput: make(map[wire.OutPoint]hash.Hash256),
	}
}

// InsertVerified inserts a transaction the caller has already verified
// (signatures and value balance checked against chain state), recording fee
// as inputs-minus-outputs. It updates the descendant count of every
// ancestor already in the pool and returns the new entry, whose
// AncestorCount is the number of its pool ancestors.
func (p *Pool) InsertVerified(tx *wire.Transaction, fee uint64, now time.Time) (*Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	txHash := tx.TxHash()
	if _, exists := p.byHash[txHash]; exists {
		return nil, ErrDuplicateTransaction
	}
	for _, in := range tx.TxIn {
		if _, claimed := p.byInput[in.PreviousOutPoint]; claimed {
			return nil, ErrConflictingInput
		}
	}

	entry := newEntry(tx, fee, now)
	ancestors := p.ancestorsOf(tx)
	entry.AncestorCount = len(ancestors)
	for _, ancestor := range ancestors {
		ancestor.DescendantCount++
	}

	p.byHash[txHash] = entry
	for _, in := range tx.TxIn {
		p.byInput[in.PreviousOutPoint] = txHash
	}
	return entry, nil
}

// ancestorsOf walks tx's inputs transitively through the pool, returning
// every pool entry tx (directly or indirectly) spends from. Must be called
// with mu held.
func (p *Pool) ancestorsOf(tx *wire.Transaction) map[hash.Hash256]*Entry {
	visited := make(map[hash.Hash256]*Entry)
	queue := []*wire.Transaction{tx}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, in := range current.TxIn {
			parent, ok := p.byHash[in.PreviousOutPoint.Hash]
			if !ok {
				continue
			}
			if _, seen := visited[parent.Hash]; seen {
				continue
			}
			visited[parent.Hash] = parent
			queue = append(queue, parent.Tx)
		}
	}
	return visited
}

// RemoveByHash removes the named transaction and, recursively, any
// descendant whose input would otherwise dangle. It returns every entry
// removed, in no particular order.
func (p *Pool) RemoveByHash(h hash.Hash256) []*Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeCascade(h)
}

// removeCascade removes h and every transitive redeemer of its outputs.
// Must be called with mu held.
func (p *Pool) removeCascade(h hash.Hash256) []*Entry {
	entry, ok := p.byHash[h]
	if !ok {
		return nil
	}

	var removed []*Entry
	for i := range entry.Tx.TxOut {
		op := wire.OutPoint{Hash: h, Index: uint32(i)}
		if childHash, ok := p.byInput[op]; ok {
			removed = append(removed, p.removeCascade(childHash)...)
		}
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

	return append(removed, entry)
}

// OrderStrategy selects which ordering RemoveWithStrategy pops the top
// entry under.
type OrderStrategy int

const (
	// ByTimestamp orders entries oldest-insertion-first (FIFO).
	ByTimestamp OrderStrategy = iota
	// ByTransactionScore orders entries by descending fee rate, tie-broken
	// by hash for determinism.
	ByTransactionScore
)

// RemoveWithStrategy pops and removes the top entry under strategy's
// ordering, cascading to its pool descendants the same way RemoveByHash
// does. It returns nil if the pool is empty.
func (p *Pool) RemoveWithStrategy(strategy OrderStrategy) *Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	var top *Entry
	for _, entry := range p.byHash {
		if top == nil || entryLess(strategy, entry, top) {
			top = entry
		}
	}
	if top == nil {
		return nil
	}
	p.removeCascade(top.Hash)
	return top
}

func entryLess(strategy OrderStrategy, a, b *Entry) bool {
	switch strategy {
	case ByTransactionScore:
		af, bf := a.FeeRate(), b.FeeRate()
		if af != bf {
			return af > bf
		}
		return hash.Less(a.Hash, b.Hash)
	default: // ByTimestamp
		if !a.InsertionTime.Equal(b.InsertionTime) {
			return a.InsertionTime.Before(b.InsertionTime)
		}
		return hash.Less(a.Hash, b.Hash)
	}
}

// Contains reports whether h names a pool member.
func (p *Pool) Contains(h hash.Hash256) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byHash[h]
	return ok
}

// Entry returns the pool record for h, for a getdata responder answering a
// transaction request the pool (rather than the chain) can satisfy.
func (p *Pool) Entry(h hash.Hash256) (*Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.byHash[h]
	return entry, ok
}

// Size returns the number of transactions currently held.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byHash)
}

// Information summarizes the pool's current contents.
type Information struct {
	TransactionCount int
	TotalSize        int
	TotalFee         uint64
}

// Entries returns a snapshot of every pool member, in no particular order.
// A reorg's conflict-eviction pass uses this to re-check each entry's
// inputs against the freshly-committed chain state.
func (p *Pool) Entries() []*Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries := make([]*Entry, 0, len(p.byHash))
	for _, entry := range p.byHash {
		entries = append(entries, entry)
	}
	return entries
}

// Information returns read-only summary statistics over the pool.
func (p *Pool) Information() Information {
	p.mu.RLock()
	defer p.mu.RUnlock()

	info := Information{TransactionCount: len(p.byHash)}
	for _, entry := range p.byHash {
		info.TotalSize += entry.Size
		info.TotalFee += entry.Fee
	}
	return info
}
