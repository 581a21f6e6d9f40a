package netsync

import (
	"time"

	"github.com/daglabs/btcnode/chainstore"
	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/verifier"
	"github.com/daglabs/btcnode/wire"
)

// orphanExpiry bounds how long an orphan block is kept waiting for its
// missing parent chain before being dropped, per spec 4.4's "keep the
// orphan for a bounded time window".
const orphanExpiry = 20 * time.Minute

type orphanEntry struct {
	block    *wire.MsgBlock
	received time.Time
}

// OnBlockReceived is steps (4) and (5) of the headers-first pipeline: a
// block arrives, its stateless checks run on the worker pool, and — once
// its parent is already durable — it is inserted and, if it extends or
// outweighs the main chain, connected via the store's reorganize
// primitive. Out-of-order verification, in-order commit: a side-chain
// block is only ever validated against UTXO state as part of the
// connect path chainstore.Reorganize walks in chain order.
func (m *Manager) OnBlockReceived(peerID string, block *wire.MsgBlock, now time.Time) {
	blockHash := block.Header.BlockHash()
	m.clearInFlight(peerID, blockHash, now)

	m.workers.Submit(func() {
		err := m.verifyAndCommit(peerID, block, blockHash, now)
		switch {
		case err == nil:
			return
		case verifier.IsInconclusive(err):
			// Not a consensus failure: some referenced transaction isn't
			// resolvable yet. Park the block and go fetch what's missing
			// instead of punishing the peer that supplied it.
			m.log.Debugf("netsync: parking block %s from peer %s pending a missing reference: %v", blockHash, peerID, err)
			m.handleOrphan(peerID, block, now)
		default:
			m.log.Warnf("netsync: rejecting block %s from peer %s: %v", blockHash, peerID, err)
			m.disconnectForViolation(peerID)
		}
	})
}

func (m *Manager) clearInFlight(peerID string, blockHash hash.Hash256, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, blockHash)
	if peer, ok := m.peers[peerID]; ok {
		delete(peer.RequestedBlocks, blockHash)
		peer.LastActivity = now
	}
}

func (m *Manager) verifyAndCommit(peerID string, block *wire.MsgBlock, blockHash hash.Hash256, now time.Time) error {
	if err := verifier.CheckBlockSanity(block, m.verifier.Params.PowLimitBits, false, now); err != nil {
		return err
	}

	if _, err := m.store.Block(blockHash); err == nil {
		return nil // already have it
	}

	loc, ok := m.store.AcceptedLocation(&block.Header)
	if !ok {
		m.handleOrphan(peerID, block, now)
		return nil
	}

	if err := m.store.InsertBlock(block); err != nil && err != chainstore.ErrDuplicateBlock {
		return err
	}

	switch loc.Kind {
	case chainstore.LocationMain:
		return m.connectChain(blockHash, loc.Height, now)
	case chainstore.LocationSide:
		greater, err := m.store.HasGreaterWork(blockHash)
		if err != nil {
			return err
		}
		if greater {
			return m.connectChain(blockHash, loc.Height, now)
		}
	}
	return nil
}

func (m *Manager) connectChain(newTip hash.Hash256, height uint32, now time.Time) error {
	delta, err := m.store.Reorganize(newTip, m.connectValidator(now))
	if err != nil {
		return err
	}
	m.applyReorgDelta(delta)

	m.mu.Lock()
	m.recalculateStateLocked()
	callbacks := append([]func(hash.Hash256, uint32){}, m.onBlocksCommitted...)
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(newTip, height)
	}
	return nil
}

func (m *Manager) handleOrphan(peerID string, block *wire.MsgBlock, now time.Time) {
	m.mu.Lock()
	if m.orphans == nil {
		m.orphans = make(map[hash.Hash256]*orphanEntry)
	}
	h := block.Header.BlockHash()
	m.orphans[h] = &orphanEntry{block: block, received: now}
	m.pruneOrphansLocked(now)
	_, ok := m.peers[peerID]
	m.mu.Unlock()

	if ok {
		if err := m.RequestHeaders(peerID); err != nil {
			m.log.Debugf("netsync: could not request headers to resolve orphan %s: %v", h, err)
		}
	}
}

// pruneOrphansLocked drops orphans past orphanExpiry. Must be called with
// m.mu held.
func (m *Manager) pruneOrphansLocked(now time.Time) {
	for h, entry := range m.orphans {
		if now.Sub(entry.received) > orphanExpiry {
			delete(m.orphans, h)
		}
	}
}
