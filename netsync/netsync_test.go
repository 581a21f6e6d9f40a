package netsync

import (
	"testing"
	"time"

	"github.com/daglabs/btcnode/chaincfg"
	"github.com/daglabs/btcnode/chainstore"
	"github.com/daglabs/btcnode/chainutil"
	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/internal/logs"
	"github.com/daglabs/btcnode/internal/workerpool"
	"github.com/daglabs/btcnode/mempool"
	"github.com/daglabs/btcnode/verifier"
	"github.com/daglabs/btcnode/wire"
)

// fakePeer is an in-memory PeerHandle recording what was sent to it, for
// assertions, rather than actually transporting anything.
type fakePeer struct {
	id           string
	getHeaders   int
	getData      [][]hash.Hash256
	disconnected bool
}

func (p *fakePeer) ID() string { return p.id }
func (p *fakePeer) SendGetHeaders(locator []hash.Hash256, stop hash.Hash256) error {
	p.getHeaders++
	return nil
}
func (p *fakePeer) SendGetData(hashes []hash.Hash256) error {
	cp := append([]hash.Hash256{}, hashes...)
	p.getData = append(p.getData, cp)
	return nil
}
func (p *fakePeer) Disconnect() { p.disconnected = true }

func newTestManager(t *testing.T) (*Manager, *chainstore.Store) {
	t.Helper()
	store, err := chainstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	v := verifier.New(&chaincfg.RegressionNetParams, 0)
	pool := mempool.New()
	workers := workerpool.New(2, logs.Netsync)
	t.Cleanup(workers.Close)

	return New(store, v, pool, workers, logs.Netsync), store
}

// coinbaseOnlyBlock builds a block containing only a coinbase transaction
// paying value to an OP_TRUE output, extending parent, with its nonce
// brute-forced until the header satisfies regtest's (very permissive)
// proof-of-work target.
func coinbaseOnlyBlock(t *testing.T, parent hash.Hash256, height uint32, value uint64, now time.Time) *wire.MsgBlock {
	t.Helper()

	coinbase := wire.NewTransaction()
	coinbase.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.NewOutPoint(hash.ZeroHash, 0xffffffff),
		SignatureScript:  []byte{0x51, 0x51}, // satisfies the min coinbase script length
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
