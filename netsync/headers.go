package netsync

import (
	"time"

	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/verifier"
	"github.com/daglabs/btcnode/wire"
)

// headerGraph is spec 4.4's "side structure indexed by hash and by
// parent": accepted-but-not-yet-bodied headers, tracked so block downloads
// can be scheduled ahead of the blocks themselves arriving.
type headerGraph struct {
	byHash   map[hash.Hash256]*wire.BlockHeader
	children map[hash.Hash256][]hash.Hash256
}

func newHeaderGraph() *headerGraph {
	return &headerGraph{
		byHash:   make(map[hash.Hash256]*wire.BlockHeader),
		children: make(map[hash.Hash256][]hash.Hash256),
	}
}

func (g *headerGraph) has(h hash.Hash256) bool {
	_, ok := g.byHash[h]
	return ok
}

func (g *headerGraph) add(header *wire.BlockHeader) {
	h := header.BlockHash()
	g.byHash[h] = header
	g.children[header.PrevBlock] = append(g.children[header.PrevBlock], h)
}

// RequestHeaders sends a getheaders built from the store's tip, and marks
// peerID as the sole IBD owner, per spec 4.4's single-peer-drives-catchup
// discipline generalized from the teacher's isInIBD/ibdPeer lock.
func (m *Manager) RequestHeaders(peerID string) error {
	m.mu.Lock()
	peer, ok := m.peers[peerID]
	if !ok {
		m.mu.Unlock()
		return errors.Wrapf(ErrUnknownPeer, "%s", peerID)
	}
	if m.ibdPeer != "" && m.ibdPeer != peerID {
		m.mu.Unlock()
		return errors.Errorf("netsync: peer %s already owns header sync", m.ibdPeer)
	}
	m.ibdPeer = peerID
	peer.CurrentRequest = RequestHeaders
	locator := m.locatorLocked()
	m.mu.Unlock()

	return peer.Handle.SendGetHeaders(locator, hash.ZeroHash)
}

// locatorLocked builds a minimal one-entry locator from the current tip.
// Must be called with m.mu held.
func (m *Manager) locatorLocked() []hash.Hash256 {
	return []hash.Hash256{m.store.BestBlock().Hash}
}

// OnHeadersReceived is step (2) of the pipeline: validate each header's
// proof-of-work and parent continuity (against the store or an
// already-accepted header earlier in this same batch), record accepted
// headers into the side structure, and schedule block downloads for them.
func (m *Manager) OnHeadersReceived(peerID string, headers []*wire.BlockHeader, now time.Time) error {
	m.mu.Lock()
	peer, ok := m.peers[peerID]
	if !ok {
		m.mu.Unlock()
		return errors.Errorf("netsync: headers from unknown peer %s", peerID)
	}
	peer.LastActivity = now
	peer.CurrentRequest = RequestNone

	powLimitBits := m.verifier.Params.PowLimitBits
	var accepted []hash.Hash256
	for _, header := range headers {
		if err := verifier.CheckHeaderSanity(header, powLimitBits, false, now); err != nil {
			m.mu.Unlock()
			m.disconnectForViolation(peerID)
			return errors.Wrap(err, "netsync: rejecting header batch")
		}
		h := header.BlockHash()
		if m.headers.has(h) {
			continue
		}
		knownParent := m.headers.has(header.PrevBlock) || header.PrevBlock.IsZero()
		if !knownParent {
			if _, err := m.store.BlockHeader(header.PrevBlock); err != nil {
				m.mu.Unlock()
				return errors.Errorf("netsync: header %s has unknown parent %s", h, header.PrevBlock)
			}
		}
		m.headers.add(header)
		accepted = append(accepted, h)
	}

	if len(accepted) > 0 {
		height := estimateHeight(m.store.BestBlock().Height, len(accepted))
		if height > m.bestKnownHeight {
			m.bestKnownHeight = height
		}
	}
	m.recalculateStateLocked()
	m.mu.Unlock()

	if len(accepted) > 0 {
		m.scheduleBlockRequests(accepted)
	}
	return nil
}

// estimateHeight is a conservative running estimate of how high the chain
// now reaches given count newly accepted headers past tip; the real height
// of each header is authoritative once its block is connected.
func estimateHeight(tip uint32, count int) uint32 {
	return tip + uint32(count)
}

func (m *Manager) disconnectForViolation(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectPeerLocked(peerID)
}
