package main

import (
	"net"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/chaincfg"
	"github.com/daglabs/btcnode/chainstore"
	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/internal/logs"
	"github.com/daglabs/btcnode/internal/workerpool"
	"github.com/daglabs/btcnode/mempool"
	"github.com/daglabs/btcnode/netsync"
	"github.com/daglabs/btcnode/server"
	"github.com/daglabs/btcnode/verifier"
	"github.com/daglabs/btcnode/wire"
)

// checkTimeoutsInterval is how often the running node re-checks in-flight
// block requests for a peer that has gone quiet, the same cadence the
// teacher's IBD flow polls its own request timers at.
const checkTimeoutsInterval = 10 * time.Second

// runStart opens the chain database, wires verifier/mempool/netsync/server
// together the way kaspad.go wires its own equivalents, and serves inbound
// peer connections until the listener fails.
func runStart(cfg *startConfig) error {
	params, err := cfg.params()
	if err != nil {
		return err
	}

	logs.InitLogRotators(filepath.Join(cfg.DataDir, "logs", "btcnode.log"), filepath.Join(cfg.DataDir, "logs", "btcnode_err.log"))
	if err := logs.ParseAndSetDebugLevels(cfg.LogLevel); err != nil {
		return err
	}

	store, err := chainstore.Open(filepath.Join(cfg.DataDir, "chain"))
	if err != nil {
		return errors.Wrap(err, "failed to open chain store")
	}
	defer store.Close()

	if err := ensureGenesis(store, params); err != nil {
		return err
	}

	v := verifier.New(params, 0)
	pool := mempool.New()
	workers := workerpool.New(cfg.MaxWorkers, logs.Netsync)
	defer workers.Close()

	mgr := netsync.New(store, v, pool, workers, logs.Netsync)
	srv := server.New(store, pool, mgr, params.Net)

	listener, err := net.Listen("tcp", net.JoinHostPort(cfg.Listen, params.DefaultPort))
	if err != nil {
		return errors.Wrap(err, "failed to start listener")
	}
	defer listener.Close()
	logs.Server.Infof("listening for peers on %s", listener.Addr())

	go runTimeoutLoop(mgr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			return errors.Wrap(err, "listener accept failed")
		}
		go serveConn(srv, conn, params.Net)
	}
}

// ensureGenesis inserts and connects params' genesis block if the store is
// still empty, so a brand-new node always starts from a known tip.
func ensureGenesis(store *chainstore.Store, params *chaincfg.Params) error {
	if store.BestBlock().Hash != hash.ZeroHash {
		return nil
	}
	if err := store.InsertBlock(params.GenesisBlock); err != nil {
		return errors.Wrap(err, "failed to insert genesis block")
	}
	if _, err := store.Reorganize(params.GenesisHash, nil); err != nil {
		return errors.Wrap(err, "failed to connect genesis block")
	}
	return nil
}

func runTimeoutLoop(mgr *netsync.Manager) {
	ticker := time.NewTicker(checkTimeoutsInterval)
	defer ticker.Stop()
	for now := range ticker.C {
		mgr.CheckTimeouts(now)
	}
}

// serveConn reads wire messages off conn until it closes, dispatching each
// to srv and unregistering the peer on the way out. Per-peer version
// negotiation is out of scope; a peer is registered with protocol version 0
// and a zero claimed start height, and its real height is
// learned as headers arrive.
func serveConn(srv *server.Server, conn net.Conn, network wire.BitcoinNet) {
	peer := server.NewPeer(conn.RemoteAddr().String(), conn, network)
	srv.AddPeer(peer, 0, 0)
	defer srv.RemovePeer(peer.ID())
	defer conn.Close()

	for {
		msg, err := wire.ReadMessage(conn, network)
		if err != nil {
			logs.Server.Debugf("peer %s: read failed, disconnecting: %v", peer.ID(), err)
			return
		}
		if err := srv.Dispatch(peer.ID(), msg, time.Now()); err != nil {
			logs.Server.Warnf("peer %s: dispatching %s: %v", peer.ID(), msg.Command(), err)
		}
	}
}
