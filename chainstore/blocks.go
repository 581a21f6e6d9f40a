package chainstore

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/goleveldb/leveldb"
	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/chainutil"
	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/utxo"
	"github.com/daglabs/btcnode/wire"
)

// InsertBlock appends block to durable storage if it is not already
// present. It does not itself decide main-vs-side chain membership; the
// caller (the verifier, via AcceptedLocation) makes that call before or
// after insertion as appropriate.
func (s *Store) InsertBlock(block *wire.MsgBlock) error {
	indexed := chainutil.NewIndexedBlock(block)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Get(blockKey(indexed.Hash), nil); err == nil {
		return ErrDuplicateBlock
	} else if !errors.Is(err, leveldb.ErrNotFound) {
		return errors.Wrap(err, "failed to probe for duplicate block")
	}

	parentNode, isGenesis := s.headerIndex[block.Header.PrevBlock], block.Header.PrevBlock.IsZero()
	if parentNode == nil && !isGenesis {
		return ErrUnknownParent
	}

	var blockBuf, headerBuf bytes.Buffer
	if err := block.Serialize(&blockBuf); err != nil {
		return errors.Wrap(err, "failed to serialize block")
	}
	if err := block.Header.Serialize(&headerBuf); err != nil {
		return errors.Wrap(err, "failed to serialize header")
	}

	batch := new(leveldb.Batch)
	batch.Put(blockKey(indexed.Hash), blockBuf.Bytes())
	batch.Put(headerKey(indexed.Hash), headerBuf.Bytes())
	for offset, tx := range indexed.Transactions {
		batch.Put(txLocationKey(tx.Hash), encodeTxLocation(indexed.Hash, offset))
	}
	if err := s.db.Write(batch, nil); err != nil {
		return errors.Wrap(err, "failed to write block batch")
	}

	height := uint32(0)
	if parentNode != nil {
		height = parentNode.height + 1
	}
	s.headerIndex[indexed.Hash] = &headerNode{
		hash:           indexed.Hash,
		parent:         block.Header.PrevBlock,
		height:         height,
		cumulativeWork: addWork(parentCumulativeWork(parentNode), block.Header.Bits),
	}
	return nil
}

// AcceptedLocation classifies a candidate header against the currently
// known chain tips: Main if it would extend the current best tip, Side if
// it extends a known-but-not-best header, or (zero, false) if its parent is
// unknown (an orphan).
func (s *Store) AcceptedLocation(header *wire.BlockHeader) (BlockLocation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if header.PrevBlock.IsZero() {
		return BlockLocation{Kind: LocationMain, Height: 0}, true
	}

	parent, ok := s.headerIndex[header.PrevBlock]
	if !ok {
		return BlockLocation{}, false
	}

	height := parent.height + 1
	if parent.hash == s.best.Hash {
		return BlockLocation{Kind: LocationMain, Height: height}, true
	}
	return BlockLocation{Kind: LocationSide, Height: height}, true
}

// HasGreaterWork reports whether candidate's cumulative proof-of-work
// exceeds the current best tip's, the test spec 4.4's reorg handling uses
// to decide whether a freshly verified side-chain block should trigger a
// reorganize.
func (s *Store) HasGreaterWork(candidate hash.Hash256) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.headerIndex[candidate]
	if !ok {
		return false, ErrUnknownParent
	}
	best, ok := s.headerIndex[s.best.Hash]
	if !ok {
		return true, nil // empty store: any known header outweighs no chain at all
	}
	return cumulativeWorkLess(best.cumulativeWork, node.cumulativeWork), nil
}

// Block returns the full block for the given hash.
func (s *Store) Block(h hash.Hash256) (*wire.MsgBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blockLocked(h)
}

func (s *Store) blockLocked(h hash.Hash256) (*wire.MsgBlock, error) {
	val, err := s.db.Get(blockKey(h), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read block")
	}
	block := &wire.MsgBlock{}
	if err := block.Deserialize(bytes.NewReader(val)); err != nil {
		return nil, errors.Wrap(ErrCorruptData, err.Error())
	}
	return block, nil
}

// BlockHeader returns just the header for the given hash, without paying for
// the full block's transactions.
func (s *Store) BlockHeader(h hash.Hash256) (*wire.BlockHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, err := s.db.Get(headerKey(h), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	header := &wire.BlockHeader{}
	if err := header.Deserialize(bytes.NewReader(val)); err != nil {
		return nil, errors.Wrap(ErrCorruptData, err.Error())
	}
	return header, nil
}

// HashAtHeight returns the main-chain block hash at height.
func (s *Store) HashAtHeight(height uint32) (hash.Hash256, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, err := s.db.Get(heightKey(height), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return hash.Hash256{}, ErrNotFound
	}
	if err != nil {
		return hash.Hash256{}, errors.Wrap(err, "failed to read height index")
	}
	h, err := hash.NewFromSlice(val)
	if err != nil {
		return hash.Hash256{}, errors.Wrap(ErrCorruptData, err.Error())
	}
	return h, nil
}

// MainChainHeight reports the height of h if it is a known header currently
// on the main chain, for resolving a peer's block locator in a getheaders or
// getblocks response.
func (s *Store) MainChainHeight(h hash.Hash256) (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.headerIndex[h]
	if !ok || !node.onMainChain {
		return 0, false
	}
	return node.height, true
}

// Transaction locates a committed transaction by hash, returning its
// containing block hash and its offset within that block's transaction
// list.
func (s *Store) Transaction(h hash.Hash256) (*wire.Transaction, hash.Hash256, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, err := s.db.Get(txLocationKey(h), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, hash.Hash256{}, ErrNotFound
	}
	if err != nil {
		return nil, hash.Hash256{}, errors.Wrap(err, "failed to read tx location")
	}
	blockHash, offset, err := decodeTxLocation(val)
	if err != nil {
		return nil, hash.Hash256{}, err
	}
	block, err := s.blockLocked(blockHash)
	if err != nil {
		return nil, hash.Hash256{}, err
	}
	if offset >= len(block.Transactions) {
		return nil, hash.Hash256{}, errors.Wrap(ErrCorruptData, "tx location offset out of range")
	}
	return block.Transactions[offset], blockHash, nil
}

// TransactionMeta returns the spent-bitmap record for a committed
// transaction.
func (s *Store) TransactionMeta(h hash.Hash256) (*utxo.TransactionMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transactionMetaLocked(h)
}

func (s *Store) transactionMetaLocked(h hash.Hash256) (*utxo.TransactionMeta, error) {
	val, err := s.db.Get(txMetaKey(h), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read tx meta")
	}
	meta, err := decodeTransactionMeta(val)
	if err != nil {
		return nil, errors.Wrap(ErrCorruptData, err.Error())
	}
	return meta, nil
}

func encodeTxLocation(blockHash hash.Hash256, offset int) []byte {
	buf := make([]byte, hash.Size+4)
	copy(buf, blockHash[:])
	binary.LittleEndian.PutUint32(buf[hash.Size:], uint32(offset))
	return buf
}

func decodeTxLocation(val []byte) (hash.Hash256, int, error) {
	if len(val) != hash.Size+4 {
		return hash.Hash256{}, 0, errors.Wrap(ErrCorruptData, "malformed tx location record")
	}
	var h hash.Hash256
	copy(h[:], val[:hash.Size])
	offset := int(binary.LittleEndian.Uint32(val[hash.Size:]))
	return h, offset, nil
}

func encodeTransactionMeta(meta *utxo.TransactionMeta) []byte {
	return meta.Serialize()
}

func decodeTransactionMeta(data []byte) (*utxo.TransactionMeta, error) {
	return utxo.Deserialize(data)
}

func parentCumulativeWork(parent *headerNode) [32]byte {
	if parent == nil {
		return [32]byte{}
	}
	return parent.cumulativeWork
}
