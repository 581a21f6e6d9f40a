package main

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/chainstore"
	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/internal/logs"
	"github.com/daglabs/btcnode/verifier"
	"github.com/daglabs/btcnode/wire"
)

// runImport bulk-loads a block dump file directly into the chain database,
// bypassing peer networking entirely. The dump format is a flat sequence of
// <network magic uint32><block length uint32><serialized block> records,
// little-endian, the same layout the teacher's cmd/addblock reads.
func runImport(cfg *importConfig) error {
	params, err := cfg.params()
	if err != nil {
		return err
	}

	f, err := os.Open(cfg.File)
	if err != nil {
		return errors.Wrap(err, "failed to open import file")
	}
	defer f.Close()

	store, err := chainstore.Open(filepath.Join(cfg.DataDir, "chain"))
	if err != nil {
		return errors.Wrap(err, "failed to open chain store")
	}
	defer store.Close()

	if err := ensureGenesis(store, params); err != nil {
		return err
	}

	v := verifier.New(params, 0)

	var imported, skipped int64
	for {
		block, err := readDumpBlock(f, params.Net)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		ok, err := importBlock(store, v, block)
		if err != nil {
			return errors.Wrapf(err, "importing block %s", block.Header.BlockHash())
		}
		if ok {
			imported++
		} else {
			skipped++
		}
	}

	logs.Server.Infof("import finished: %d imported, %d already known", imported, skipped)
	return nil
}

// readDumpBlock reads one <magic><length><block> record from r, returning
// io.EOF once the file is exhausted at a record boundary.
func readDumpBlock(r io.Reader, net wire.BitcoinNet) (*wire.MsgBlock, error) {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err // io.EOF propagates as-is at a clean record boundary
	}
	if wire.BitcoinNet(magic) != net {
		return nil, errors.Errorf("network mismatch in dump file: got %08x, want %08x", magic, uint32(net))
	}

	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, errors.Wrap(err, "failed to read block length")
	}
	if length > wire.MaxMessagePayload {
		return nil, errors.Errorf("block payload of %d bytes exceeds max %d", length, wire.MaxMessagePayload)
	}

	raw := make([]byte, length)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrap(err, "failed to read block payload")
	}

	block := &wire.MsgBlock{}
	if err := block.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, errors.Wrap(err, "failed to deserialize block")
	}
	return block, nil
}

// importBlock inserts block if it isn't already known and, if it extends or
// outweighs the main chain, connects it through the full stateful verifier,
// mirroring netsync's own insert/connect decision outside of any peer
// context.
func importBlock(store *chainstore.Store, v *verifier.Verifier, block *wire.MsgBlock) (bool, error) {
	blockHash := block.Header.BlockHash()
	if _, err := store.Block(blockHash); err == nil {
		return false, nil
	}

	loc, ok := store.AcceptedLocation(&block.Header)
	if !ok {
		return false, errors.New("block does not connect to any known header")
	}

	if err := store.InsertBlock(block); err != nil && err != chainstore.ErrDuplicateBlock {
		return false, err
	}

	switch loc.Kind {
	case chainstore.LocationMain:
		return true, connect(store, v, blockHash)
	case chainstore.LocationSide:
		greater, err := store.HasGreaterWork(blockHash)
		if err != nil {
			return false, err
		}
		if greater {
			return true, connect(store, v, blockHash)
		}
	}
	return true, nil
}

// connect reorganizes the store onto newTip, validating every block the
// walk connects with the full stateful verifier, the same ConnectValidator
// seam netsync wires at commit time.
func connect(store *chainstore.Store, v *verifier.Verifier, newTip hash.Hash256) error {
	now := time.Now()
	validate := func(block *wire.MsgBlock, blockHeight uint32, provider chainstore.TransactionOutputProvider) error {
		return v.Verify(block, blockHeight, store.AsBlockHeaderProvider(), provider, verifier.Full, now)
	}
	_, err := store.Reorganize(newTip, validate)
	return err
}
