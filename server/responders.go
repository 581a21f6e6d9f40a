package server

import (
	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/wire"
)

// handleGetHeaders answers a peer's getheaders with up to
// wire.MaxHeadersPerMessage headers following the first locator entry we
// recognize as being on our own main chain, per the standard headers-first
// locator-resolution rule (walk the requester's locator until we find a
// hash we have, reply from just past it).
func (s *Server) handleGetHeaders(peerID string, m *wire.MsgGetHeaders) error {
	p, err := s.peer(peerID)
	if err != nil {
		return err
	}

	start, ok := s.resolveLocator(m.BlockLocatorHashes)
	if !ok {
		return nil // nothing in the locator is known to us; nothing to answer
	}

	reply := &wire.MsgHeaders{}
	for height := start + 1; len(reply.Headers) < wire.MaxHeadersPerMessage; height++ {
		h, err := s.store.HashAtHeight(height)
		if err != nil {
			break
		}
		header, err := s.store.BlockHeader(h)
		if err != nil {
			break
		}
		reply.AddBlockHeader(header)
		if h == m.HashStop {
			break
		}
	}
	p.Queue(reply)
	return nil
}

// handleGetBlocks answers with an inv listing the block hashes following the
// peer's locator, up to wire.MaxBlocksPerGetBlocks, the legacy (non-headers)
// counterpart to handleGetHeaders.
func (s *Server) handleGetBlocks(peerID string, m *wire.MsgGetBlocks) error {
	p, err := s.peer(peerID)
	if err != nil {
		return err
	}

	start, ok := s.resolveLocator(m.BlockLocatorHashes)
	if !ok {
		return nil
	}

	reply := &wire.MsgInv{}
	for height := start + 1; len(reply.InvList) < wire.MaxBlocksPerGetBlocks; height++ {
		h, err := s.store.HashAtHeight(height)
		if err != nil {
			break
		}
		reply.AddInvVect(&wire.InvVect{Type: wire.InvTypeBlock, Hash: h})
		if h == m.HashStop {
			break
		}
	}
	p.Queue(reply)
	return nil
}

// resolveLocator finds the first locator entry that names a header we have
// on our main chain, returning its height. An empty locator resolves to our
// own genesis (height 0, so the caller's "start+1" reply begins at height 1).
func (s *Server) resolveLocator(locator []hash.Hash256) (uint32, bool) {
	for _, h := range locator {
		if height, ok := s.store.MainChainHeight(h); ok {
			return height, true
		}
	}
	return 0, len(locator) == 0
}

// handleGetData answers a getdata by supplying each requested block or
// transaction we have, and a notfound entry for each we don't, per spec
// 4.4's block-request fulfillment and spec 4.3's transaction relay. A
// requested transaction may be satisfied from either the committed chain or
// the mempool.
func (s *Server) handleGetData(peerID string, m *wire.MsgGetData) error {
	p, err := s.peer(peerID)
	if err != nil {
		return err
	}

	var missing wire.MsgNotFound
	for _, iv := range m.InvList {
		switch iv.Type {
		case wire.InvTypeBlock, wire.InvTypeFilteredBlock:
			block, err := s.store.Block(iv.Hash)
			if err != nil {
				missing.AddInvVect(iv)
				continue
			}
			p.Queue(block)
		case wire.InvTypeTx:
			if entry, ok := s.pool.Entry(iv.Hash); ok {
				p.Queue(&wire.MsgTx{Transaction: *entry.Tx})
				continue
			}
			tx, _, err := s.store.Transaction(iv.Hash)
			if err != nil {
				missing.AddInvVect(iv)
				continue
			}
			p.Queue(&wire.MsgTx{Transaction: *tx})
		default:
			missing.AddInvVect(iv)
		}
	}
	if len(missing.InvList) > 0 {
		p.Queue(&missing)
	}
	return nil
}

// handleMemPool answers a mempool request with an inv of every transaction
// currently held in the pool.
func (s *Server) handleMemPool(peerID string) error {
	p, err := s.peer(peerID)
	if err != nil {
		return err
	}
	reply := &wire.MsgInv{}
	for _, entry := range s.pool.Entries() {
		reply.AddInvVect(&wire.InvVect{Type: wire.InvTypeTx, Hash: entry.Hash})
	}
	p.Queue(reply)
	return nil
}
