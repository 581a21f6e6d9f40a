package bloomfilter

import (
	"testing"

	"github.com/btcsuite/btcd/txscript"

	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/wire"
)

func TestAddAndMatch(t *testing.T) {
	f := New(10, 0.0001, 0, UpdateNone)
	data := []byte("hello world")

	if f.Matches(data) {
		t.Fatal("Matches: unexpected match before Add")
	}
	f.Add(data)
	if !f.Matches(data) {
		t.Fatal("Matches: want match after Add")
	}
}

func TestClearRemovesLoadedState(t *testing.T) {
	f := New(10, 0.0001, 0, UpdateNone)
	if !f.IsLoaded() {
		t.Fatal("IsLoaded: want true for a freshly constructed filter")
	}
	f.Clear()
	if f.IsLoaded() {
		t.Fatal("IsLoaded: want false after Clear")
	}
	if f.Matches([]byte("anything")) {
		t.Fatal("Matches: want false once cleared")
	}
}

func TestMatchTransactionAndUpdateByHash(t *testing.T) {
	tx := &wire.Transaction{Version: 1}
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.NewOutPoint(hash.Hash256{1}, 0)})
	tx.AddTxOut(&wire.TxOut{Value: 1000, ScriptPubKey: []byte{0x51}})

	txHash := tx.TxHash()
	f := New(10, 0.0001, 0, UpdateNone)
	f.Add(txHash[:])

	if !f.MatchTransactionAndUpdate(tx) {
		t.Fatal("MatchTransactionAndUpdate: want match on transaction hash")
	}
}

func TestMatchTransactionAndUpdateAddsOutpointOnUpdateAll(t *testing.T) {
	watched := []byte("watched-data")
	watchedScript, err := txscript.NewScriptBuilder().AddData(watched).Script()
	if err != nil {
		t.Fatalf("building watched script: %v", err)
	}

	parent := &wire.Transaction{Version: 1}
	parent.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.NewOutPoint(hash.Hash256{9}, 0)})
	parent.AddTxOut(&wire.TxOut{Value: 1000, ScriptPubKey: watchedScript})

	f := New(10, 0.0001, 0, UpdateAll)
	f.Add(watched)

	if !f.MatchTransactionAndUpdate(parent) {
		t.Fatal("MatchTransactionAndUpdate: want match on output script data")
	}

	child := &wire.Transaction{Version: 1}
	child.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.NewOutPoint(parent.TxHash(), 0)})
	child.AddTxOut(&wire.TxOut{Value: 900, ScriptPubKey: []byte{0x51}})

	if !f.MatchTransactionAndUpdate(child) {
		t.Fatal("MatchTransactionAndUpdate: want match via the added outpoint from the parent's matching output")
	}
}

func TestMatchTransactionAndUpdateOnEmptyFilter(t *testing.T) {
	f := New(10, 0.0001, 0, UpdateNone)
	f.Clear()

	tx := &wire.Transaction{Version: 1}
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.NewOutPoint(hash.Hash256{1}, 0)})
	tx.AddTxOut(&wire.TxOut{Value: 1000, ScriptPubKey: []byte{0x51}})

	if f.MatchTransactionAndUpdate(tx) {
		t.Fatal("MatchTransactionAndUpdate: want no match on an empty (unloaded) filter")
	}
}
