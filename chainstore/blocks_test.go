package chainstore_test

import (
	"testing"
	"time"

	"github.com/daglabs/btcnode/chaincfg"
	"github.com/daglabs/btcnode/chainstore"
	"github.com/daglabs/btcnode/chainutil"
	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/verifier"
	"github.com/daglabs/btcnode/wire"
)

// coinbaseOnlyBlock builds a single-coinbase block extending parent, with
// its nonce brute-forced until the header satisfies regtest's proof-of-work
// target. Mirrors netsync's own test helper of the same name.
func coinbaseOnlyBlock(t *testing.T, parent hash.Hash256, value uint64, now time.Time) *wire.MsgBlock {
	t.Helper()

	coinbase := wire.NewTransaction()
	coinbase.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.NewOutPoint(hash.ZeroHash, 0xffffffff),
		SignatureScript:  []byte{0x51, 0x51},
		Sequence:         0xffffffff,
	})
	coinbase.AddTxOut(&wire.TxOut{Value: value, ScriptPubKey: []byte{0x51}})

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  parent,
			MerkleRoot: chainutil.MerkleRoot([]hash.Hash256{coinbase.TxHash()}),
			Timestamp:  uint32(now.Unix()),
			Bits:       chaincfg.RegressionNetParams.PowLimitBits,
		},
	}
	block.AddTransaction(coinbase)

	for nonce := uint32(0); nonce < 100000; nonce++ {
		block.Header.Nonce = nonce
		if err := verifier.CheckHeaderSanity(&block.Header, block.Header.Bits, false, now); err == nil {
			return block
		}
	}
	t.Fatal("could not find a header satisfying regtest proof-of-work within the nonce search bound")
	return nil
}

func openTestStore(t *testing.T) *chainstore.Store {
	t.Helper()
	store, err := chainstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertBlockRejectsUnknownParent(t *testing.T) {
	store := openTestStore(t)
	orphan := coinbaseOnlyBlock(t, hash.Hash256{0xAB}, 1, time.Now())

	if err := store.InsertBlock(orphan); err != chainstore.ErrUnknownParent {
		t.Fatalf("InsertBlock(orphan): got %v, want ErrUnknownParent", err)
	}
}

func TestInsertBlockRejectsDuplicate(t *testing.T) {
	store := openTestStore(t)
	genesis := coinbaseOnlyBlock(t, hash.ZeroHash, 1, time.Now())

	if err := store.InsertBlock(genesis); err != nil {
		t.Fatalf("InsertBlock(genesis): %v", err)
	}
	if err := store.InsertBlock(genesis); err != chainstore.ErrDuplicateBlock {
		t.Fatalf("InsertBlock(genesis again): got %v, want ErrDuplicateBlock", err)
	}
}

func TestAcceptedLocationClassifiesGenesisMainAndSideBranches(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	genesis := coinbaseOnlyBlock(t, hash.ZeroHash, 1, now)
	loc, ok := store.AcceptedLocation(&genesis.Header)
	if !ok || loc.Kind != chainstore.LocationMain || loc.Height != 0 {
		t.Fatalf("AcceptedLocation(genesis): got %+v, %v", loc, ok)
	}
	if err := store.InsertBlock(genesis); err != nil {
		t.Fatalf("InsertBlock(genesis): %v", err)
	}
	if _, err := store.Reorganize(genesis.Header.BlockHash(), nil); err != nil {
		t.Fatalf("Reorganize(genesis): %v", err)
	}

	main := coinbaseOnlyBlock(t, genesis.Header.BlockHash(), 1, now)
	loc, ok = store.AcceptedLocation(&main.Header)
	if !ok || loc.Kind != chainstore.LocationMain || loc.Height != 1 {
		t.Fatalf("AcceptedLocation(main extension): got %+v, %v", loc, ok)
	}
	if err := store.InsertBlock(main); err != nil {
		t.Fatalf("InsertBlock(main): %v", err)
	}
	if _, err := store.Reorganize(main.Header.BlockHash(), nil); err != nil {
		t.Fatalf("Reorganize(main): %v", err)
	}

	// A second block extending genesis, after main is already the tip, is a
	// side-chain candidate, not a main-chain extension.
	side := coinbaseOnlyBlock(t, genesis.Header.BlockHash(), 2, now)
	loc, ok = store.AcceptedLocation(&side.Header)
	if !ok || loc.Kind != chainstore.LocationSide || loc.Height != 1 {
		t.Fatalf("AcceptedLocation(side branch): got %+v, %v", loc, ok)
	}

	orphan := coinbaseOnlyBlock(t, hash.Hash256{0xCD}, 3, now)
	if _, ok := store.AcceptedLocation(&orphan.Header); ok {
		t.Fatal("AcceptedLocation(orphan): want ok=false for an unknown parent")
	}
}

// TestReorganizeConnectsFromAnEmptyStore is a regression test for the
// fork-point walk's treatment of an empty store (oldTip == nil): it must
// walk the candidate chain all the way to genesis rather than producing an
// empty connect path that silently moves the best-block pointer without
// applying any UTXO effects.
func TestReorganizeConnectsFromAnEmptyStore(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	genesis := coinbaseOnlyBlock(t, hash.ZeroHash, 50_0000_0000, now)
	if err := store.InsertBlock(genesis); err != nil {
		t.Fatalf("InsertBlock(genesis): %v", err)
	}

	delta, err := store.Reorganize(genesis.Header.BlockHash(), nil)
	if err != nil {
		t.Fatalf("Reorganize(genesis) from an empty store: %v", err)
	}
	if len(delta.Connected) != 1 || delta.Connected[0].Header.BlockHash() != genesis.Header.BlockHash() {
		t.Fatalf("ReorgDelta.Connected: got %+v, want just genesis", delta.Connected)
	}

	best := store.BestBlock()
	if best.Height != 0 || best.Hash != genesis.Header.BlockHash() {
		t.Fatalf("BestBlock after connecting genesis: got %+v", best)
	}

	meta, err := store.TransactionMeta(genesis.Transactions[0].TxHash())
	if err != nil {
		t.Fatalf("TransactionMeta(genesis coinbase): %v", err)
	}
	if meta == nil {
		t.Fatal("TransactionMeta(genesis coinbase): want a UTXO record, got none")
	}
}

func TestHasGreaterWorkAndMainChainHeight(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	genesis := coinbaseOnlyBlock(t, hash.ZeroHash, 1, now)
	if err := store.InsertBlock(genesis); err != nil {
		t.Fatalf("InsertBlock(genesis): %v", err)
	}
	if _, err := store.Reorganize(genesis.Header.BlockHash(), nil); err != nil {
		t.Fatalf("Reorganize(genesis): %v", err)
	}

	if _, ok := store.MainChainHeight(genesis.Header.BlockHash()); !ok {
		t.Fatal("MainChainHeight(genesis): want ok=true once connected")
	}

	next := coinbaseOnlyBlock(t, genesis.Header.BlockHash(), 1, now)
	if err := store.InsertBlock(next); err != nil {
		t.Fatalf("InsertBlock(next): %v", err)
	}
	greater, err := store.HasGreaterWork(next.Header.BlockHash())
	if err != nil {
		t.Fatalf("HasGreaterWork: %v", err)
	}
	if !greater {
		t.Fatal("HasGreaterWork(next): want true, a connected child always outweighs its parent tip")
	}
	if _, ok := store.MainChainHeight(next.Header.BlockHash()); ok {
		t.Fatal("MainChainHeight(next): want ok=false before it is connected")
	}
}

func TestHashAtHeightAndTransactionRoundTrip(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	genesis := coinbaseOnlyBlock(t, hash.ZeroHash, 50_0000_0000, now)
	if err := store.InsertBlock(genesis); err != nil {
		t.Fatalf("InsertBlock(genesis): %v", err)
	}
	if _, err := store.Reorganize(genesis.Header.BlockHash(), nil); err != nil {
		t.Fatalf("Reorganize(genesis): %v", err)
	}

	h, err := store.HashAtHeight(0)
	if err != nil || h != genesis.Header.BlockHash() {
		t.Fatalf("HashAtHeight(0): got %s, %v, want %s", h, err, genesis.Header.BlockHash())
	}

	tx, blockHash, err := store.Transaction(genesis.Transactions[0].TxHash())
	if err != nil {
		t.Fatalf("Transaction(genesis coinbase): %v", err)
	}
	if blockHash != genesis.Header.BlockHash() {
		t.Fatalf("Transaction containing block: got %s, want %s", blockHash, genesis.Header.BlockHash())
	}
	if tx.TxHash() != genesis.Transactions[0].TxHash() {
		t.Fatal("Transaction: returned a different transaction than was inserted")
	}
}
