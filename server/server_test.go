package server

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/daglabs/btcnode/chaincfg"
	"github.com/daglabs/btcnode/chainstore"
	"github.com/daglabs/btcnode/chainutil"
	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/internal/logs"
	"github.com/daglabs/btcnode/internal/workerpool"
	"github.com/daglabs/btcnode/mempool"
	"github.com/daglabs/btcnode/netsync"
	"github.com/daglabs/btcnode/verifier"
	"github.com/daglabs/btcnode/wire"
)

// newTestServer builds a Server around a fresh temp-dir store, draining
// every message it decodes from the peer's write side into recv so a test
// can assert on what was queued.
func newTestServer(t *testing.T) (*Server, *chainstore.Store, *Peer, chan wire.Message) {
	t.Helper()
	store, err := chainstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("chainstore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	v := verifier.New(&chaincfg.RegressionNetParams, 0)
	pool := mempool.New()
	workers := workerpool.New(2, logs.Netsync)
	t.Cleanup(workers.Close)

	mgr := netsync.New(store, v, pool, workers, logs.Netsync)
	srv := New(store, pool, mgr, wire.RegTestNet)

	clientConn, serverConn := net.Pipe()
	peer := NewPeer("p1", serverConn, wire.RegTestNet)
	srv.AddPeer(peer, 1, 0)

	recv := make(chan wire.Message, 16)
	go func() {
		for {
			hdr, err := wire.ReadMessageHeader(clientConn)
			if err != nil {
				return
			}
			msg := messageForCommand(hdr.Command)
			if msg == nil {
				if _, err := io.CopyN(io.Discard, clientConn, int64(hdr.Length)); err != nil {
					return
				}
				continue
			}
			if err := msg.Deserialize(clientConn); err != nil {
				return
			}
			recv <- msg
		}
	}()
	t.Cleanup(func() { clientConn.Close() })

	return srv, store, peer, recv
}

func messageForCommand(cmd string) wire.Message {
	switch cmd {
	case wire.CmdHeaders:
		return &wire.MsgHeaders{}
	case wire.CmdInv:
		return &wire.MsgInv{}
	case wire.CmdBlock:
		return &wire.MsgBlock{}
	case wire.CmdTx:
		return &wire.MsgTx{}
	case wire.CmdNotFound:
		return &wire.MsgNotFound{}
	default:
		return nil
	}
}

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

func TestHandleGetHeadersRepliesFromLocator(t *testing.T) {
	srv, store, _, recv := newTestServer(t)
	now := time.Now()

	genesis := coinbaseOnlyBlock(t, hash.ZeroHash, 50_0000_0000, now)
	if err := store.InsertBlock(genesis); err != nil {
		t.Fatalf("InsertBlock(genesis): %v", err)
	}
	genesisHash := genesis.Header.BlockHash()
	if _, err := store.Reorganize(genesisHash, nil); err != nil {
		t.Fatalf("Reorganize(genesis): %v", err)
	}

	next := coinbaseOnlyBlock(t, genesisHash, 50_0000_0000, now)
	if err := store.InsertBlock(next); err != nil {
		t.Fatalf("InsertBlock(next): %v", err)
	}
	if _, err := store.Reorganize(next.Header.BlockHash(), nil); err != nil {
		t.Fatalf("Reorganize(next): %v", err)
	}

	if err := srv.handleGetHeaders("p1", &wire.MsgGetHeaders{
		BlockLocatorHashes: []hash.Hash256{genesisHash},
	}); err != nil {
		t.Fatalf("handleGetHeaders: %v", err)
	}

	select {
	case msg := <-recv:
		headers, ok := msg.(*wire.MsgHeaders)
		if !ok {
			t.Fatalf("got %T, want *wire.MsgHeaders", msg)
		}
		if len(headers.Headers) != 1 || headers.Headers[0].BlockHash() != next.Header.BlockHash() {
			t.Fatalf("headers reply: got %+v, want just next's header", headers.Headers)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for headers reply")
	}
}

func TestHandleMemPoolRepliesWithPoolContents(t *testing.T) {
	srv, _, _, recv := newTestServer(t)
	now := time.Now()

	tx := wire.NewTransaction()
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.NewOutPoint(hash.Hash256{1}, 0)})
	tx.AddTxOut(&wire.TxOut{Value: 1000, ScriptPubKey: []byte{0x51}})
	entry, err := srv.pool.InsertVerified(tx, 100, now)
	if err != nil {
		t.Fatalf("InsertVerified: %v", err)
	}

	if err := srv.handleMemPool("p1"); err != nil {
		t.Fatalf("handleMemPool: %v", err)
	}

	select {
	case msg := <-recv:
		inv, ok := msg.(*wire.MsgInv)
		if !ok {
			t.Fatalf("got %T, want *wire.MsgInv", msg)
		}
		if len(inv.InvList) != 1 || inv.InvList[0].Hash != entry.Hash {
			t.Fatalf("mempool inv: got %+v, want just the inserted tx", inv.InvList)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for mempool reply")
	}
}

func TestHandleGetDataAnswersNotFoundForUnknownBlock(t *testing.T) {
	srv, _, _, recv := newTestServer(t)

	if err := srv.handleGetData("p1", &wire.MsgGetData{
		InvList: []*wire.InvVect{{Type: wire.InvTypeBlock, Hash: hash.Hash256{0xAA}}},
	}); err != nil {
		t.Fatalf("handleGetData: %v", err)
	}

	select {
	case msg := <-recv:
		nf, ok := msg.(*wire.MsgNotFound)
		if !ok {
			t.Fatalf("got %T, want *wire.MsgNotFound", msg)
		}
		if len(nf.InvList) != 1 {
			t.Fatalf("notfound list: got %d entries, want 1", len(nf.InvList))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notfound reply")
	}
}
