package netsync

import (
	"testing"
	"time"

	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/verifier"
	"github.com/daglabs/btcnode/wire"
)

func TestRegisterPeerTracksBestKnownHeight(t *testing.T) {
	m, _ := newTestManager(t)
	peer := &fakePeer{id: "p1"}
	m.RegisterPeer(peer, 1, 500)

	if got := m.BestKnownHeight(); got != 500 {
		t.Fatalf("BestKnownHeight: got %d, want 500", got)
	}
	if m.State() != Synchronizing {
		t.Fatalf("State: got %v, want Synchronizing once a peer claims a height past the catch-up threshold", m.State())
	}
}

func TestUnregisterPeerFreesInFlightRequests(t *testing.T) {
	m, _ := newTestManager(t)
	peer := &fakePeer{id: "p1"}
	m.RegisterPeer(peer, 1, 10)

	blockHash := hash.Hash256{1, 2, 3}
	m.mu.Lock()
	m.inFlight[blockHash] = "p1"
	m.peers["p1"].RequestedBlocks[blockHash] = time.Now().Add(time.Minute)
	m.mu.Unlock()

	m.UnregisterPeer("p1")

	m.mu.Lock()
	_, stillInFlight := m.inFlight[blockHash]
	m.mu.Unlock()
	if stillInFlight {
		t.Fatal("UnregisterPeer: want in-flight request freed when its owning peer disconnects")
	}
}

func TestRequestHeadersRefusesASecondConcurrentOwner(t *testing.T) {
	m, _ := newTestManager(t)
	p1, p2 := &fakePeer{id: "p1"}, &fakePeer{id: "p2"}
	m.RegisterPeer(p1, 1, 0)
	m.RegisterPeer(p2, 1, 0)

	if err := m.RequestHeaders("p1"); err != nil {
		t.Fatalf("RequestHeaders(p1): %v", err)
	}
	if err := m.RequestHeaders("p2"); err == nil {
		t.Fatal("RequestHeaders(p2): want an error while p1 still owns header sync")
	}
	if p1.getHeaders != 1 {
		t.Fatalf("p1.getHeaders: got %d, want 1", p1.getHeaders)
	}
}

func TestOnHeadersReceivedRejectsBadProofOfWork(t *testing.T) {
	m, _ := newTestManager(t)
	peer := &fakePeer{id: "p1"}
	m.RegisterPeer(peer, 1, 0)

	now := time.Now()
	block := coinbaseOnlyBlock(t, hash.ZeroHash, 1, 50_0000_0000, now)
	badHeader := block.Header
	// Regtest's target admits about half of all hashes, so step the nonce
	// until the header no longer satisfies it.
	for {
		badHeader.Nonce++
		if verifier.CheckHeaderSanity(&badHeader, badHeader.Bits, false, now) != nil {
			break
		}
	}

	if err := m.OnHeadersReceived("p1", []*wire.BlockHeader{&badHeader}, now); err == nil {
		t.Fatal("OnHeadersReceived: want an error for a header whose nonce no longer satisfies its target")
	}
	if !peer.disconnected {
		t.Fatal("OnHeadersReceived: want the offending peer disconnected")
	}
}

func TestOnHeadersReceivedAcceptsAndSchedulesDownload(t *testing.T) {
	m, _ := newTestManager(t)
	peer := &fakePeer{id: "p1"}
	m.RegisterPeer(peer, 1, 0)

	now := time.Now()
	genesis := coinbaseOnlyBlock(t, hash.ZeroHash, 0, 50_0000_0000, now)

	if err := m.OnHeadersReceived("p1", []*wire.BlockHeader{&genesis.Header}, now); err != nil {
		t.Fatalf("OnHeadersReceived: %v", err)
	}

	genesisHash := genesis.Header.BlockHash()
	m.mu.Lock()
	_, known := m.headers.byHash[genesisHash]
	_, requested := m.inFlight[genesisHash]
	m.mu.Unlock()
	if !known {
		t.Fatal("OnHeadersReceived: want the accepted header recorded in the side structure")
	}
	if !requested {
		t.Fatal("OnHeadersReceived: want a block download scheduled for the accepted header")
	}
}

func TestScheduleBlockRequestsRoundRobinsAcrossPeers(t *testing.T) {
	m, _ := newTestManager(t)
	p1, p2 := &fakePeer{id: "p1"}, &fakePeer{id: "p2"}
	m.RegisterPeer(p1, 1, 0)
	m.RegisterPeer(p2, 1, 0)

	hashes := []hash.Hash256{{1}, {2}, {3}, {4}}
	m.scheduleBlockRequests(hashes)

	m.mu.Lock()
	inFlightCount := len(m.inFlight)
	m.mu.Unlock()
	if inFlightCount != len(hashes) {
		t.Fatalf("in-flight count: got %d, want %d", inFlightCount, len(hashes))
	}

	total := 0
	for _, batch := range p1.getData {
		total += len(batch)
	}
	for _, batch := range p2.getData {
		total += len(batch)
	}
	if total != len(hashes) {
		t.Fatalf("total dispatched hashes: got %d, want %d", total, len(hashes))
	}
}

func TestCheckTimeoutsReassignsThenDisconnectsAfterMaxMisses(t *testing.T) {
	m, _ := newTestManager(t)
	p1, p2 := &fakePeer{id: "p1"}, &fakePeer{id: "p2"}
	m.RegisterPeer(p1, 1, 0)
	m.RegisterPeer(p2, 1, 0)

	blockHash := hash.Hash256{9}
	past := time.Now().Add(-time.Minute)
	m.mu.Lock()
	m.inFlight[blockHash] = "p1"
	m.peers["p1"].RequestedBlocks[blockHash] = past
	m.mu.Unlock()

	for i := 0; i <= maxMisses; i++ {
		m.CheckTimeouts(time.Now())
		m.mu.Lock()
		if _, ok := m.peers["p1"]; !ok {
			m.mu.Unlock()
			break
		}
		// Re-arm the same expired request to accumulate misses, simulating
		// repeated reassignment-then-timeout of a consistently slow peer.
		m.inFlight[blockHash] = "p1"
		m.peers["p1"].RequestedBlocks[blockHash] = past
		m.mu.Unlock()
	}

	m.mu.Lock()
	_, stillPresent := m.peers["p1"]
	m.mu.Unlock()
	if stillPresent {
		t.Fatal("CheckTimeouts: want peer p1 disconnected after exceeding maxMisses")
	}
	if !p1.disconnected {
		t.Fatal("CheckTimeouts: want Disconnect called on the peer that kept missing")
	}
}

func TestConnectChainAppliesGenesisAndFirstBlock(t *testing.T) {
	m, store := newTestManager(t)
	now := time.Now()

	genesis := coinbaseOnlyBlock(t, hash.ZeroHash, 0, 50_0000_0000, now)
	genesisHash := genesis.Header.BlockHash()
	if err := store.InsertBlock(genesis); err != nil {
		t.Fatalf("InsertBlock(genesis): %v", err)
	}
	if _, err := store.Reorganize(genesisHash, m.connectValidator(now)); err != nil {
		t.Fatalf("Reorganize(genesis): %v", err)
	}

	next := coinbaseOnlyBlock(t, genesisHash, 1, 50_0000_0000, now)
	if err := m.connectChain(next.Header.BlockHash(), 1, now); err == nil {
		t.Fatal("connectChain: want an error, the block was never inserted via InsertBlock first")
	}

	if err := store.InsertBlock(next); err != nil {
		t.Fatalf("InsertBlock(next): %v", err)
	}
	if err := m.connectChain(next.Header.BlockHash(), 1, now); err != nil {
		t.Fatalf("connectChain(next): %v", err)
	}

	best := store.BestBlock()
	if best.Hash != next.Header.BlockHash() || best.Height != 1 {
		t.Fatalf("BestBlock: got %+v, want next block at height 1", best)
	}
}
