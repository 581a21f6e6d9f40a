package verifier

import (
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/chaincfg"
	"github.com/daglabs/btcnode/chainstore"
	"github.com/daglabs/btcnode/chainutil"
	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/wire"
)

func txErrorCode(t *testing.T, err error) TxErrorCode {
	t.Helper()
	var txErr TransactionError
	if !errors.As(err, &txErr) {
		t.Fatalf("error %v is not a TransactionError", err)
	}
	return txErr.Code
}

func newTestStore(t *testing.T) *chainstore.Store {
	t.Helper()
	store, err := chainstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// mineBlock brute-forces a nonce satisfying regtest's trivial proof-of-work
// target for a header built over txs, then returns the assembled block.
// Nonce search is independent of the transaction set: only the header bytes
// feed CheckHeaderSanity's PoW check.
func mineBlock(t *testing.T, parent hash.Hash256, now time.Time, txs ...*wire.Transaction) *wire.MsgBlock {
	t.Helper()

	hashes := make([]hash.Hash256, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.TxHash()
	}
	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  parent,
			MerkleRoot: chainutil.MerkleRoot(hashes),
			Timestamp:  uint32(now.Unix()),
			Bits:       chaincfg.RegressionNetParams.PowLimitBits,
		},
	}
	for _, tx := range txs {
		block.AddTransaction(tx)
	}

	for nonce := uint32(0); nonce < 100000; nonce++ {
		block.Header.Nonce = nonce
		if err := CheckHeaderSanity(&block.Header, block.Header.Bits, false, now); err == nil {
			return block
		}
	}
	t.Fatal("could not find a header satisfying regtest proof-of-work within the nonce search bound")
	return nil
}

func coinbase(value uint64) *wire.Transaction {
	tx := wire.NewTransaction()
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.NewOutPoint(hash.ZeroHash, 0xffffffff),
		SignatureScript:  []byte{0x51, 0x51},
		Sequence:         0xffffffff,
	})
	tx.AddTxOut(&wire.TxOut{Value: value, ScriptPubKey: []byte{0x51}})
	return tx
}

// connectTrusted inserts and connects block without running it through the
// verifier, for building up chain state the test under test takes as given.
func connectTrusted(t *testing.T, store *chainstore.Store, block *wire.MsgBlock) {
	t.Helper()
	if err := store.InsertBlock(block); err != nil {
		t.Fatalf("InsertBlock: %v", err)
	}
	if _, err := store.Reorganize(block.Header.BlockHash(), nil); err != nil {
		t.Fatalf("Reorganize: %v", err)
	}
}

func TestVerifyRejectsImmatureCoinbaseSpend(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	genesis := mineBlock(t, hash.ZeroHash, now, coinbase(50_0000_0000))
	connectTrusted(t, store, genesis)

	spend := wire.NewTransaction()
	spend.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.NewOutPoint(genesis.Transactions[0].TxHash(), 0),
		Sequence:         0xffffffff,
	})
	spend.AddTxOut(&wire.TxOut{Value: 1, ScriptPubKey: []byte{0x51}})

	candidate := mineBlock(t, genesis.Header.BlockHash(), now, coinbase(0), spend)

	v := New(&chaincfg.RegressionNetParams, 0)
	err := v.Verify(candidate, 1, store.AsBlockHeaderProvider(), store.AsTransactionOutputProvider(), Full, now)
	if txErrorCode(t, err) != TxErrMaturity {
		t.Fatalf("got %v, want TxErrMaturity (genesis coinbase spent one block after creation, maturity is %d)", err, chaincfg.RegressionNetParams.CoinbaseMaturity)
	}
}

func TestVerifyDetectsInconclusiveReference(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	genesis := mineBlock(t, hash.ZeroHash, now, coinbase(50_0000_0000))
	connectTrusted(t, store, genesis)

	spend := wire.NewTransaction()
	spend.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.NewOutPoint(hash.Hash256{0xEE}, 0),
		Sequence:         0xffffffff,
	})
	spend.AddTxOut(&wire.TxOut{Value: 1, ScriptPubKey: []byte{0x51}})

	candidate := mineBlock(t, genesis.Header.BlockHash(), now, coinbase(0), spend)

	v := New(&chaincfg.RegressionNetParams, 0)
	err := v.Verify(candidate, 1, store.AsBlockHeaderProvider(), store.AsTransactionOutputProvider(), Full, now)
	if !IsInconclusive(err) {
		t.Fatalf("got %v, want an inconclusive error for a reference to an unknown output", err)
	}
}

func TestVerifyResolvesInBlockDependencyOrdering(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	// A maturity of zero isolates in-block dependency resolution from the
	// coinbase maturity rule, which is covered on its own above.
	params := chaincfg.RegressionNetParams
	params.CoinbaseMaturity = 0

	genesis := mineBlock(t, hash.ZeroHash, now, coinbase(1000))
	connectTrusted(t, store, genesis)

	firstSpend := wire.NewTransaction()
	firstSpend.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.NewOutPoint(genesis.Transactions[0].TxHash(), 0),
		Sequence:         0xffffffff,
	})
	firstSpend.AddTxOut(&wire.TxOut{Value: 1000, ScriptPubKey: []byte{0x51}})

	// secondSpend references firstSpend's output, which exists only within
	// this same block, never previously committed to the store.
	secondSpend := wire.NewTransaction()
	secondSpend.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.NewOutPoint(firstSpend.TxHash(), 0),
		Sequence:         0xffffffff,
	})
	secondSpend.AddTxOut(&wire.TxOut{Value: 1000, ScriptPubKey: []byte{0x51}})

	candidate := mineBlock(t, genesis.Header.BlockHash(), now, coinbase(0), firstSpend, secondSpend)

	v := New(&params, 0)
	err := v.Verify(candidate, 1, store.AsBlockHeaderProvider(), store.AsTransactionOutputProvider(), Full, now)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyRejectsOverspendAgainstInBlockOutput(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	params := chaincfg.RegressionNetParams
	params.CoinbaseMaturity = 0

	genesis := mineBlock(t, hash.ZeroHash, now, coinbase(1000))
	connectTrusted(t, store, genesis)

	firstSpend := wire.NewTransaction()
	firstSpend.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.NewOutPoint(genesis.Transactions[0].TxHash(), 0),
		Sequence:         0xffffffff,
	})
	firstSpend.AddTxOut(&wire.TxOut{Value: 1000, ScriptPubKey: []byte{0x51}})

	overspend := wire.NewTransaction()
	overspend.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.NewOutPoint(firstSpend.TxHash(), 0),
		Sequence:         0xffffffff,
	})
	overspend.AddTxOut(&wire.TxOut{Value: 1001, ScriptPubKey: []byte{0x51}})

	candidate := mineBlock(t, genesis.Header.BlockHash(), now, coinbase(0), firstSpend, overspend)

	v := New(&params, 0)
	err := v.Verify(candidate, 1, store.AsBlockHeaderProvider(), store.AsTransactionOutputProvider(), Full, now)
	if txErrorCode(t, err) != TxErrOverspend {
		t.Fatalf("got %v, want TxErrOverspend", err)
	}
}

func TestVerifyRejectsCoinbaseOverspend(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	genesis := mineBlock(t, hash.ZeroHash, now, coinbase(50_0000_0000))
	connectTrusted(t, store, genesis)

	subsidy := blockSubsidy(1, &chaincfg.RegressionNetParams)
	candidate := mineBlock(t, genesis.Header.BlockHash(), now, coinbase(subsidy+1))

	v := New(&chaincfg.RegressionNetParams, 0)
	err := v.Verify(candidate, 1, store.AsBlockHeaderProvider(), store.AsTransactionOutputProvider(), Full, now)
	if ruleErrorCode(t, err) != ErrCoinbaseOverspend {
		t.Fatalf("got %v, want ErrCoinbaseOverspend", err)
	}
}

func TestVerifyAcceptsFullBlockAtExactSubsidy(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	genesis := mineBlock(t, hash.ZeroHash, now, coinbase(50_0000_0000))
	connectTrusted(t, store, genesis)

	subsidy := blockSubsidy(1, &chaincfg.RegressionNetParams)
	candidate := mineBlock(t, genesis.Header.BlockHash(), now, coinbase(subsidy))

	v := New(&chaincfg.RegressionNetParams, 0)
	err := v.Verify(candidate, 1, store.AsBlockHeaderProvider(), store.AsTransactionOutputProvider(), Full, now)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
}
