package chainstore

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/wire"
)

// rebuildHeaderIndex reconstructs the in-memory headerNode cache from the
// durable header keyspace after a process restart. Height and cumulative
// work are derived by walking each header back to its earliest known
// ancestor, since leveldb iteration order (by key, i.e. by hash) carries no
// topological guarantee.
func (s *Store) rebuildHeaderIndex() error {
	headers := make(map[hash.Hash256]*wire.BlockHeader)

	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		key := iter.Key()
		if !bytes.HasPrefix(key, prefixHeader) {
			continue
		}
		var h hash.Hash256
		copy(h[:], key[len(prefixHeader):])

		header := &wire.BlockHeader{}
		if err := header.Deserialize(bytes.NewReader(iter.Value())); err != nil {
			return errors.Wrap(ErrCorruptData, "failed to decode header during rebuild")
		}
		headers[h] = header
	}
	if err := iter.Error(); err != nil {
		return errors.Wrap(err, "failed to iterate header keyspace")
	}

	mainChainHash := make(map[uint32]hash.Hash256)
	heightIter := s.db.NewIterator(nil, nil)
	defer heightIter.Release()
	for heightIter.Next() {
		key := heightIter.Key()
		if !bytes.HasPrefix(key, prefixHeight) {
			continue
		}
		height := beUint32(key[len(prefixHeight):])
		h, err := hash.NewFromSlice(heightIter.Value())
		if err != nil {
			return errors.Wrap(ErrCorruptData, "malformed height index entry")
		}
		mainChainHash[height] = h
	}

	var resolve func(h hash.Hash256) (*headerNode, error)
	resolved := make(map[hash.Hash256]*headerNode)
	resolve = func(h hash.Hash256) (*headerNode, error) {
		if node, ok := resolved[h]; ok {
			return node, nil
		}
		header, ok := headers[h]
		if !ok {
			return nil, errors.Errorf("missing header for %s during rebuild", h)
		}
		if header.PrevBlock.IsZero() {
			node := &headerNode{hash: h, height: 0, cumulativeWork: addWork([32]byte{}, header.Bits)}
			resolved[h] = node
			return node, nil
		}
		parent, err := resolve(header.PrevBlock)
		if err != nil {
			return nil, err
		}
		node := &headerNode{
			hash:           h,
			parent:         header.PrevBlock,
			height:         parent.height + 1,
			cumulativeWork: addWork(parent.cumulativeWork, header.Bits),
		}
		resolved[h] = node
		return node, nil
	}

	for h := range headers {
		if _, err := resolve(h); err != nil {
			return err
		}
	}
	for height, h := range mainChainHash {
		if node, ok := resolved[h]; ok {
			node.onMainChain = true
			node.height = height
		}
	}

	s.headerIndex = resolved
	return nil
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
