package server

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/chainstore"
	"github.com/daglabs/btcnode/internal/logs"
	"github.com/daglabs/btcnode/mempool"
	"github.com/daglabs/btcnode/netsync"
	"github.com/daglabs/btcnode/wire"
)

// Server owns every connected Peer and answers their requests against the
// node's own chain and mempool state, while handing everything about sync
// policy (what to request, when to disconnect a misbehaving peer) off to
// netsync.Manager.
type Server struct {
	mu    sync.RWMutex
	peers map[string]*Peer

	store *chainstore.Store
	pool  *mempool.Pool
	sync  *netsync.Manager
	net   wire.BitcoinNet
}

// New builds a Server around an already-running synchronization manager.
func New(store *chainstore.Store, pool *mempool.Pool, syncManager *netsync.Manager, net wire.BitcoinNet) *Server {
	return &Server{
		peers: make(map[string]*Peer),
		store: store,
		pool:  pool,
		sync:  syncManager,
		net:   net,
	}
}

// AddPeer registers a newly connected peer with both the server (so it can
// answer that peer's requests) and the synchronization manager (so it
// participates in header/block sync), then asks this peer for headers
// whatever tip it claims, deferring that getheaders until any in-progress
// catch-up against another peer settles.
func (s *Server) AddPeer(p *Peer, protocolVersion, startHeight uint32) {
	s.mu.Lock()
	s.peers[p.ID()] = p
	s.mu.Unlock()

	s.sync.RegisterPeer(p, protocolVersion, startHeight)
	s.sync.AfterNearlySaturated(func() {
		if err := s.sync.RequestHeaders(p.ID()); err != nil {
			logs.Server.Debugf("peer %s: deferring getheaders: %v", p.ID(), err)
		}
	})
}

// RemovePeer unregisters a disconnected peer from both the server and the
// synchronization manager.
func (s *Server) RemovePeer(peerID string) {
	s.mu.Lock()
	delete(s.peers, peerID)
	s.mu.Unlock()
	s.sync.UnregisterPeer(peerID)
}

func (s *Server) peer(peerID string) (*Peer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.peers[peerID]
	if !ok {
		return nil, errors.Errorf("server: unknown peer %s", peerID)
	}
	return p, nil
}

// Dispatch routes one inbound message from peerID to the handler for its
// command, the single entry point a connection's read loop calls per
// message it decodes.
func (s *Server) Dispatch(peerID string, msg wire.Message, now time.Time) error {
	switch m := msg.(type) {
	case *wire.MsgGetHeaders:
		return s.handleGetHeaders(peerID, m)
	case *wire.MsgGetBlocks:
		return s.handleGetBlocks(peerID, m)
	case *wire.MsgGetData:
		return s.handleGetData(peerID, m)
	case *wire.MsgMemPool:
		return s.handleMemPool(peerID)
	case *wire.MsgHeaders:
		return s.sync.OnHeadersReceived(peerID, m.Headers, now)
	case *wire.MsgBlock:
		s.sync.OnBlockReceived(peerID, m, now)
		return nil
	default:
		return nil
	}
}
