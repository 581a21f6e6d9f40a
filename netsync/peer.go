package netsync

import (
	"time"

	"github.com/daglabs/btcnode/bloomfilter"
	"github.com/daglabs/btcnode/hash"
)

// RequestKind names what, if anything, a peer currently has outstanding.
type RequestKind int

const (
	// RequestNone means the peer has nothing outstanding.
	RequestNone RequestKind = iota
	// RequestHeaders means a getheaders is outstanding.
	RequestHeaders
	// RequestBlocks means a windowed set of block downloads is outstanding.
	RequestBlocks
)

// PeerHandle is the send-side surface a connected peer exposes to the sync
// client. The wire-level transport that implements it is out of scope here;
// netsync only ever drives peers through this interface.
type PeerHandle interface {
	ID() string
	SendGetHeaders(locator []hash.Hash256, stop hash.Hash256) error
	SendGetData(hashes []hash.Hash256) error
	Disconnect()
}

// maxMisses bounds how many request timeouts a peer tolerates before
// PeerFailure-policy disconnects it.
const maxMisses = 3

// PeerState tracks what spec 4.4 calls a peer's synchronization bookkeeping:
// its advertised height, what it currently owes us, and a miss counter
// driving the timeout-reassign-then-disconnect policy.
type PeerState struct {
	Handle              PeerHandle
	ProtocolVersion     uint32
	ReportedStartHeight uint32
	CurrentRequest      RequestKind
	RequestedBlocks     map[hash.Hash256]time.Time // hash -> request deadline
	LastActivity        time.Time
	Misses              int
	Filter              *bloomfilter.Filter
}

func newPeerState(h PeerHandle, protocolVersion, startHeight uint32) *PeerState {
	return &PeerState{
		Handle:              h,
		ProtocolVersion:     protocolVersion,
		ReportedStartHeight: startHeight,
		CurrentRequest:      RequestNone,
		RequestedBlocks:     make(map[hash.Hash256]time.Time),
		LastActivity:        time.Now(),
	}
}

// RegisterPeer adds a newly connected peer to the manager's live set.
func (m *Manager) RegisterPeer(h PeerHandle, protocolVersion, startHeight uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peers[h.ID()] = newPeerState(h, protocolVersion, startHeight)
	if startHeight > m.bestKnownHeight {
		m.bestKnownHeight = startHeight
	}
	m.recalculateStateLocked()
}

// UnregisterPeer drops a disconnected peer and reassigns anything it owed.
func (m *Manager) UnregisterPeer(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forgetPeerLocked(peerID)
}

func (m *Manager) forgetPeerLocked(peerID string) {
	peer, ok := m.peers[peerID]
	if !ok {
		return
	}
	for blockHash := range peer.RequestedBlocks {
		delete(m.inFlight, blockHash)
	}
	if m.ibdPeer == peerID {
		m.ibdPeer = ""
	}
	delete(m.peers, peerID)
	m.recalculateStateLocked()
}

// disconnectPeerLocked applies the "verification failure on a block
// supplied by peer P" and "too many misses" policies: disconnect P and
// free its in-flight assignments for reassignment to someone else.
func (m *Manager) disconnectPeerLocked(peerID string) {
	peer, ok := m.peers[peerID]
	if !ok {
		return
	}
	peer.Handle.Disconnect()
	m.forgetPeerLocked(peerID)
}
