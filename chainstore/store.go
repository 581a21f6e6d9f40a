// Package chainstore implements the content-addressed block store: a
// durable map from block hash to block/header/transaction-meta data, plus
// the height index, best-block pointer, and the reorganization primitive
// that switches the active chain between competing branches.
//
// The backing key-value engine is goleveldb, opened as a single database
// with byte-prefixed keyspaces standing in for column families (leveldb has
// no native notion of a column family; the teacher's ffldb bucket
// abstraction is reproduced here as key prefixes over one leveldb handle,
// which is leveldb's own supported idiom for this).
package chainstore

import (
	"encoding/binary"
	"sync"

	"github.com/btcsuite/goleveldb/leveldb"
	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/utxo"
)

// Schema version persisted alongside the data; bumping it without a
// migration step makes the store refuse to open (see Open).
const schemaVersion = 1

// Key prefixes implementing the teacher's bucket layout over a single
// leveldb keyspace.
var (
	prefixBlock    = []byte("b/")
	prefixHeader   = []byte("h/")
	prefixTxMeta   = []byte("t/")
	prefixTxLoc    = []byte("x/")
	prefixHeight   = []byte("H/")
	prefixMeta     = []byte("m/")
	keyBestBlock   = append(append([]byte{}, prefixMeta...), []byte("best")...)
	keySchema      = append(append([]byte{}, prefixMeta...), []byte("schema")...)
)

// Store is the content-addressed block store described in spec 4.1: it owns
// blocks, headers, tx-meta, the height index, and the best-block pointer,
// and exposes the reorganization primitive that switches the active chain.
//
// Store writes hold mu for the duration of one batch (a single block insert
// or a full reorganize); reads take the read lock. This mirrors the
// teacher's single dag-state-lock-for-writes discipline in dagio.go.
type Store struct {
	mu sync.RWMutex
	db *leveldb.DB

	// headerIndex tracks every known header (main and side chain) by hash,
	// so AcceptedLocation can classify a candidate without a main-chain-only
	// lookup. It is rebuilt from leveldb at Open time.
	headerIndex map[hash.Hash256]*headerNode
	best        utxo.BestBlock
}

// headerNode is the in-memory chain-linkage record backing AcceptedLocation
// and the reorg walk. The durable header itself lives in leveldb; this is a
// cache of (parent, height, cumulative work, on-main-chain) over it.
type headerNode struct {
	hash           hash.Hash256
	parent         hash.Hash256
	height         uint32
	cumulativeWork [32]byte // big-endian accumulated work, for branch comparison
	onMainChain    bool
}

// Open opens (creating if absent) the leveldb database at dir and rebuilds
// the in-memory header index from its contents.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open block store")
	}

	s := &Store{
		db:          db,
		headerIndex: make(map[hash.Hash256]*headerNode),
	}

	if err := s.checkOrWriteSchemaVersion(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.rebuildHeaderIndex(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.loadBestBlock(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close flushes and releases the underlying leveldb handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) checkOrWriteSchemaVersion() error {
	val, err := s.db.Get(keySchema, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], schemaVersion)
		return s.db.Put(keySchema, buf[:], nil)
	}
	if err != nil {
		return errors.Wrap(err, "failed to read schema version")
	}
	if len(val) != 4 {
		return errors.Wrap(ErrCorruptData, "malformed schema version record")
	}
	version := binary.LittleEndian.Uint32(val)
	if version != schemaVersion {
		return errors.Errorf("store schema version %d does not match expected %d; migrate or resync", version, schemaVersion)
	}
	return nil
}

func (s *Store) loadBestBlock() error {
	val, err := s.db.Get(keyBestBlock, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil // fresh store, no best block yet
	}
	if err != nil {
		return errors.Wrap(err, "failed to read best block pointer")
	}
	best, err := decodeBestBlock(val)
	if err != nil {
		return err
	}
	s.best = best
	return nil
}

// BestBlock returns the current best-known tip.
func (s *Store) BestBlock() utxo.BestBlock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.best
}

func decodeBestBlock(val []byte) (utxo.BestBlock, error) {
	if len(val) != hash.Size+4 {
		return utxo.BestBlock{}, errors.Wrap(ErrCorruptData, "malformed best block record")
	}
	var best utxo.BestBlock
	copy(best.Hash[:], val[:hash.Size])
	best.Height = binary.LittleEndian.Uint32(val[hash.Size:])
	return best, nil
}

func encodeBestBlock(best utxo.BestBlock) []byte {
	buf := make([]byte, hash.Size+4)
	copy(buf, best.Hash[:])
	binary.LittleEndian.PutUint32(buf[hash.Size:], best.Height)
	return buf
}

func heightKey(height uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], height) // big-endian so iteration order matches height order
	return append(append([]byte{}, prefixHeight...), buf[:]...)
}

func blockKey(h hash.Hash256) []byte    { return append(append([]byte{}, prefixBlock...), h[:]...) }
func headerKey(h hash.Hash256) []byte   { return append(append([]byte{}, prefixHeader...), h[:]...) }
func txMetaKey(h hash.Hash256) []byte   { return append(append([]byte{}, prefixTxMeta...), h[:]...) }
func txLocationKey(h hash.Hash256) []byte {
	return append(append([]byte{}, prefixTxLoc...), h[:]...)
}
