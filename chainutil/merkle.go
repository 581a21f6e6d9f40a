package chainutil

import "github.com/daglabs/btcnode/hash"

// MerkleRoot computes the root of the binary merkle tree of the given
// transaction hashes. Odd layers duplicate their last element, per the
// historical (CVE-2012-2459-preserving) Bitcoin convention.
func MerkleRoot(txHashes []hash.Hash256) hash.Hash256 {
	if len(txHashes) == 0 {
		return hash.ZeroHash
	}

	layer := make([]hash.Hash256, len(txHashes))
	copy(layer, txHashes)

	for len(layer) > 1 {
		if len(layer)%2 != 0 {
			layer = append(layer, layer[len(layer)-1])
		}
		next := make([]hash.Hash256, len(layer)/2)
		for i := range next {
			next[i] = hashPair(layer[2*i], layer[2*i+1])
		}
		layer = next
	}
	return layer[0]
}

func hashPair(left, right hash.Hash256) hash.Hash256 {
	buf := make([]byte, 0, hash.Size*2)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return hash.DoubleHash(buf)
}
