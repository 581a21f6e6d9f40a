package netsync

import (
	"time"

	"github.com/daglabs/btcnode/hash"
)

// scheduleBlockRequests is step (3) of the pipeline: round-robin a window
// of up to m.window not-yet-requested block hashes across active peers,
// one request per peer at a time, each with a per-request deadline.
func (m *Manager) scheduleBlockRequests(candidates []hash.Hash256) {
	m.mu.Lock()
	defer m.mu.Unlock()

	assignable := m.assignablePeersLocked()
	if len(assignable) == 0 {
		return
	}

	deadline := time.Now().Add(requestTimeout)
	byPeer := make(map[string][]hash.Hash256)
	next := 0
	for _, blockHash := range candidates {
		if len(m.inFlight) >= m.window {
			break
		}
		if _, already := m.inFlight[blockHash]; already {
			continue
		}
		peerID := assignable[next%len(assignable)]
		next++

		m.inFlight[blockHash] = peerID
		m.peers[peerID].RequestedBlocks[blockHash] = deadline
		m.peers[peerID].CurrentRequest = RequestBlocks
		byPeer[peerID] = append(byPeer[peerID], blockHash)
	}
	m.recalculateStateLocked()

	for peerID, hashes := range byPeer {
		peer := m.peers[peerID]
		go func(p *PeerState, want []hash.Hash256) {
			if err := p.Handle.SendGetData(want); err != nil {
				m.log.Warnf("netsync: getdata to peer %s failed: %v", p.Handle.ID(), err)
			}
		}(peer, hashes)
	}
}

func (m *Manager) assignablePeersLocked() []string {
	var ids []string
	for id := range m.peers {
		ids = append(ids, id)
	}
	return ids
}

// CheckTimeouts reassigns any block request past its deadline to another
// peer, incrementing the original peer's miss counter and disconnecting it
// once maxMisses is exceeded. A caller drives this on a periodic tick.
func (m *Manager) CheckTimeouts(now time.Time) {
	m.mu.Lock()
	var expired []hash.Hash256
	var missedPeers []string
	for peerID, peer := range m.peers {
		for blockHash, deadline := range peer.RequestedBlocks {
			if now.After(deadline) {
				expired = append(expired, blockHash)
				delete(peer.RequestedBlocks, blockHash)
				delete(m.inFlight, blockHash)
				missedPeers = append(missedPeers, peerID)
			}
		}
	}
	var toDisconnect []string
	for _, peerID := range missedPeers {
		peer, ok := m.peers[peerID]
		if !ok {
			continue
		}
		peer.Misses++
		if peer.Misses > maxMisses {
			toDisconnect = append(toDisconnect, peerID)
		}
	}
	for _, peerID := range toDisconnect {
		m.disconnectPeerLocked(peerID)
	}
	m.mu.Unlock()

	if len(expired) > 0 {
		m.scheduleBlockRequests(expired)
	}
}
