package mempool

import (
	"time"

	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/wire"
)

// Entry is the bookkeeping record the pool keeps for one verified,
// unconfirmed transaction, grounded on the teacher's MempoolTransaction
// (domain/miningmanager/mempool/model) but carrying the counts spec 4.3
// names directly rather than recomputing them from the DAG on every query.
type Entry struct {
	Tx              *wire.Transaction
	Hash            hash.Hash256
	InsertionTime   time.Time
	Fee             uint64
	Size            int
	AncestorCount   int
	DescendantCount int
}

// FeeRate is the fee paid per serialized byte, the score ByTransactionScore
// orders on.
func (e *Entry) FeeRate() float64 {
	if e.Size == 0 {
		return 0
	}
	return float64(e.Fee) / float64(e.Size)
}

func newEntry(tx *wire.Transaction, fee uint64, now time.Time) *Entry {
	return &Entry{
		Tx:            tx,
		Hash:          tx.TxHash(),
		InsertionTime: now,
		Fee:           fee,
		Size:          tx.SerializeSize(),
	}
}
