// Package server is the transport-facing half of the node: it frames and
// dispatches wire messages over a peer connection and answers the requests
// a remote peer sends us (getheaders, getblocks, getdata, mempool),
// delegating everything about synchronization policy to netsync.Manager.
//
// Grounded on the teacher's server/p2p (per-peer on_*.go handlers) and
// peer/peer.go's outbound send queue, collapsed to this project's
// single-chain wire/hash types.
package server

import (
	"io"
	"sync"

	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/internal/logs"
	"github.com/daglabs/btcnode/wire"
)

// outboundQueueSize bounds how many messages may be queued for a single
// peer; once it is full, Queue drops further messages instead of blocking.
const outboundQueueSize = 256

// Peer is one connected remote node: a framed read/write stream plus the
// per-peer outbound task queue that serializes writes onto it.
type Peer struct {
	id     string
	conn   io.ReadWriteCloser
	net    wire.BitcoinNet
	outbox chan wire.Message

	closeOnce sync.Once
	done      chan struct{}
}

// NewPeer wraps an established connection, identified by id (typically its
// remote address), and starts its outbound write pump.
func NewPeer(id string, conn io.ReadWriteCloser, net wire.BitcoinNet) *Peer {
	p := &Peer{
		id:     id,
		conn:   conn,
		net:    net,
		outbox: make(chan wire.Message, outboundQueueSize),
		done:   make(chan struct{}),
	}
	go p.writePump()
	return p
}

// ID satisfies netsync.PeerHandle.
func (p *Peer) ID() string { return p.id }

func (p *Peer) writePump() {
	for {
		select {
		case msg := <-p.outbox:
			if err := wire.EncodeMessage(p.conn, p.net, msg); err != nil {
				logs.Server.Warnf("peer %s: failed to write %s: %v", p.id, msg.Command(), err)
				p.Disconnect()
				return
			}
		case <-p.done:
			return
		}
	}
}

// Queue enqueues msg for delivery, dropping it rather than blocking forever
// if the peer's write pump has fallen behind past the queue bound.
func (p *Peer) Queue(msg wire.Message) {
	select {
	case p.outbox <- msg:
	case <-p.done:
	default:
		logs.Server.Warnf("peer %s: outbound queue full, dropping %s", p.id, msg.Command())
	}
}

// SendGetHeaders satisfies netsync.PeerHandle.
func (p *Peer) SendGetHeaders(locator []hash.Hash256, stop hash.Hash256) error {
	p.Queue(&wire.MsgGetHeaders{BlockLocatorHashes: locator, HashStop: stop})
	return nil
}

// SendGetData satisfies netsync.PeerHandle.
func (p *Peer) SendGetData(hashes []hash.Hash256) error {
	msg := &wire.MsgGetData{}
	for _, h := range hashes {
		msg.AddInvVect(&wire.InvVect{Type: wire.InvTypeBlock, Hash: h})
	}
	p.Queue(msg)
	return nil
}

// Disconnect satisfies netsync.PeerHandle.
func (p *Peer) Disconnect() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}
