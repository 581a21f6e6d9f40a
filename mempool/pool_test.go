package mempool

import (
	"testing"
	"time"

	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/wire"
)

// fakeCoin is a convenience for test transactions that spend a synthetic,
// non-existent output, the same minimal fixture shape the teacher's
// poolHarness used (spendableOutpoint) generalized away from the DAG.
func fakeCoin(b byte, index uint32) wire.OutPoint {
	var h hash.Hash256
	h[0] = b
	return wire.NewOutPoint(h, index)
}

func spendTx(spends wire.OutPoint, valueOut uint64) *wire.Transaction {
	tx := &wire.Transaction{Version: 1, LockTime: 0}
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: spends, Sequence: 0xffffffff})
	tx.AddTxOut(&wire.TxOut{Value: valueOut, ScriptPubKey: []byte{0x51}})
	return tx
}

func TestInsertVerifiedRejectsDuplicate(t *testing.T) {
	p := New()
	tx := spendTx(fakeCoin(1, 0), 1000)

	if _, err := p.InsertVerified(tx, 10, time.Unix(0, 0)); err != nil {
		t.Fatalf("InsertVerified: unexpected error: %v", err)
	}
	if _, err := p.InsertVerified(tx, 10, time.Unix(0, 0)); err != ErrDuplicateTransaction {
		t.Fatalf("InsertVerified: want ErrDuplicateTransaction, got %v", err)
	}
}

func TestInsertVerifiedRejectsConflictingInput(t *testing.T) {
	p := New()
	coin := fakeCoin(1, 0)
	tx1 := spendTx(coin, 1000)
	tx2 := spendTx(coin, 900) // different hash, same input

	if _, err := p.InsertVerified(tx1, 10, time.Unix(0, 0)); err != nil {
		t.Fatalf("InsertVerified: unexpected error: %v", err)
	}
	if _, err := p.InsertVerified(tx2, 10, time.Unix(0, 0)); err != ErrConflictingInput {
		t.Fatalf("InsertVerified: want ErrConflictingInput, got %v", err)
	}
}

func TestAncestorAndDescendantCounts(t *testing.T) {
	p := New()
	now := time.Unix(0, 0)

	root := spendTx(fakeCoin(1, 0), 3000)
	rootEntry, err := p.InsertVerified(root, 0, now)
	if err != nil {
		t.Fatalf("InsertVerified root: %v", err)
	}

	child := spendTx(wire.NewOutPoint(root.TxHash(), 0), 2000)
	childEntry, err := p.InsertVerified(child, 100, now)
	if err != nil {
		t.Fatalf("InsertVerified child: %v", err)
	}
	if childEntry.AncestorCount != 1 {
		t.Fatalf("child ancestor count: want 1, got %d", childEntry.AncestorCount)
	}
	if rootEntry.DescendantCount != 1 {
		t.Fatalf("root descendant count: want 1, got %d", rootEntry.DescendantCount)
	}

	grandchild := spendTx(wire.NewOutPoint(child.TxHash(), 0), 1000)
	grandchildEntry, err := p.InsertVerified(grandchild, 100, now)
	if err != nil {
		t.Fatalf("InsertVerified grandchild: %v", err)
	}
	if grandchildEntry.AncestorCount != 2 {
		t.Fatalf("grandchild ancestor count: want 2 (root+child), got %d", grandchildEntry.AncestorCount)
	}
	if rootEntry.DescendantCount != 2 {
		t.Fatalf("root descendant count after grandchild: want 2, got %d", rootEntry.DescendantCount)
	}
	if childEntry.DescendantCount != 1 {
		t.Fatalf("child descendant count: want 1, got %d", childEntry.DescendantCount)
	}
}

func TestRemoveByHashCascadesToDependents(t *testing.T) {
	p := New()
	now := time.Unix(0, 0)

	root := spendTx(fakeCoin(1, 0), 3000)
	if _, err := p.InsertVerified(root, 0, now); err != nil {
		t.Fatalf("InsertVerified root: %v", err)
	}
	child := spendTx(wire.NewOutPoint(root.TxHash(), 0), 2000)
	if _, err := p.InsertVerified(child, 100, now); err != nil {
		t.Fatalf("InsertVerified child: %v", err)
	}
	grandchild := spendTx(wire.NewOutPoint(child.TxHash(), 0), 1000)
	if _, err := p.InsertVerified(grandchild, 100, now); err != nil {
		t.Fatalf("InsertVerified grandchild: %v", err)
	}

	removed := p.RemoveByHash(root.TxHash())
	if len(removed) != 3 {
		t.Fatalf("RemoveByHash: want 3 removed (cascade), got %d", len(removed))
	}
	if p.Size() != 0 {
		t.Fatalf("Size after cascade: want 0, got %d", p.Size())
	}
	if p.Contains(grandchild.TxHash()) {
		t.Fatal("Contains: grandchild should have been cascaded away")
	}
}

func TestRemoveWithStrategyByTransactionScore(t *testing.T) {
	p := New()
	now := time.Unix(0, 0)

	low := spendTx(fakeCoin(1, 0), 1000)
	high := spendTx(fakeCoin(2, 0), 1000)
	if _, err := p.InsertVerified(low, 10, now); err != nil {
		t.Fatalf("InsertVerified low: %v", err)
	}
	if _, err := p.InsertVerified(high, 1000, now); err != nil {
		t.Fatalf("InsertVerified high: %v", err)
	}

	top := p.RemoveWithStrategy(ByTransactionScore)
	if top == nil || top.Hash != high.TxHash() {
		t.Fatalf("RemoveWithStrategy(ByTransactionScore): want highest fee-rate entry first")
	}
	if p.Size() != 1 {
		t.Fatalf("Size after pop: want 1, got %d", p.Size())
	}
}

func TestRemoveWithStrategyByTimestamp(t *testing.T) {
	p := New()

	first := spendTx(fakeCoin(1, 0), 1000)
	second := spendTx(fakeCoin(2, 0), 1000)
	if _, err := p.InsertVerified(first, 10, time.Unix(100, 0)); err != nil {
		t.Fatalf("InsertVerified first: %v", err)
	}
	if _, err := p.InsertVerified(second, 10, time.Unix(200, 0)); err != nil {
		t.Fatalf("InsertVerified second: %v", err)
	}

	top := p.RemoveWithStrategy(ByTimestamp)
	if top == nil || top.Hash != first.TxHash() {
		t.Fatal("RemoveWithStrategy(ByTimestamp): want oldest entry first")
	}
}

func TestRemoveWithStrategyOnEmptyPool(t *testing.T) {
	p := New()
	if got := p.RemoveWithStrategy(ByTimestamp); got != nil {
		t.Fatalf("RemoveWithStrategy on empty pool: want nil, got %+v", got)
	}
}

func TestRemoveConfirmedEvictsDoubleSpendAndItsDescendants(t *testing.T) {
	p := New()
	now := time.Unix(0, 0)

	coin := fakeCoin(1, 0)
	poolTx := spendTx(coin, 1000)
	if _, err := p.InsertVerified(poolTx, 10, now); err != nil {
		t.Fatalf("InsertVerified poolTx: %v", err)
	}
	child := spendTx(wire.NewOutPoint(poolTx.TxHash(), 0), 500)
	if _, err := p.InsertVerified(child, 10, now); err != nil {
		t.Fatalf("InsertVerified child: %v", err)
	}

	// A conflicting transaction spending the same coin got mined instead.
	minedTx := spendTx(coin, 999)
	evicted := p.RemoveConfirmed([]*wire.Transaction{minedTx})

	var sawPoolTx, sawChild bool
	for _, e := range evicted {
		if e.Hash == poolTx.TxHash() {
			sawPoolTx = true
		}
		if e.Hash == child.TxHash() {
			sawChild = true
		}
	}
	if !sawPoolTx || !sawChild {
		t.Fatalf("RemoveConfirmed: want poolTx and its dependent child both evicted, evicted=%v", evicted)
	}
	if p.Size() != 0 {
		t.Fatalf("Size after RemoveConfirmed: want 0, got %d", p.Size())
	}
}

func TestRemoveConfirmedDropsMinedTxWithoutCascadingDescendants(t *testing.T) {
	p := New()
	now := time.Unix(0, 0)

	parent := spendTx(fakeCoin(1, 0), 1000)
	if _, err := p.InsertVerified(parent, 10, now); err != nil {
		t.Fatalf("InsertVerified parent: %v", err)
	}
	child := spendTx(wire.NewOutPoint(parent.TxHash(), 0), 500)
	if _, err := p.InsertVerified(child, 10, now); err != nil {
		t.Fatalf("InsertVerified child: %v", err)
	}

	// parent itself got mined, unmodified.
	evicted := p.RemoveConfirmed([]*wire.Transaction{parent})
	if len(evicted) != 1 || evicted[0].Hash != parent.TxHash() {
		t.Fatalf("RemoveConfirmed: want only parent evicted, got %v", evicted)
	}
	if !p.Contains(child.TxHash()) {
		t.Fatal("Contains: child should remain in pool, its parent is now confirmed on-chain")
	}
}

func TestInformation(t *testing.T) {
	p := New()
	now := time.Unix(0, 0)

	tx1 := spendTx(fakeCoin(1, 0), 1000)
	tx2 := spendTx(fakeCoin(2, 0), 2000)
	if _, err := p.InsertVerified(tx1, 10, now); err != nil {
		t.Fatalf("InsertVerified tx1: %v", err)
	}
	if _, err := p.InsertVerified(tx2, 20, now); err != nil {
		t.Fatalf("InsertVerified tx2: %v", err)
	}

	info := p.Information()
	if info.TransactionCount != 2 {
		t.Fatalf("TransactionCount: want 2, got %d", info.TransactionCount)
	}
	if info.TotalFee != 30 {
		t.Fatalf("TotalFee: want 30, got %d", info.TotalFee)
	}
	if info.TotalSize != tx1.SerializeSize()+tx2.SerializeSize() {
		t.Fatalf("TotalSize mismatch")
	}
}
