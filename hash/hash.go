// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package hash defines the 256-bit digest type used throughout the node to
// address blocks, transactions, and headers.
package hash

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// Size is the number of bytes in a Hash256.
const Size = 32

// Hash256 is a double-SHA-256 digest. It is compared byte-wise but displayed
// reversed, matching the big-endian convention Bitcoin block explorers use.
type Hash256 [Size]byte

// ZeroHash is the all-zero hash, used as the previous-outpoint hash of a
// coinbase input.
var ZeroHash Hash256

// String returns the hash as the reversed hex string Bitcoin tooling expects.
func (h Hash256) String() string {
	var reversed Hash256
	for i := 0; i < Size/2; i++ {
		reversed[i], reversed[Size-1-i] = h[Size-1-i], h[i]
	}
	return hex.EncodeToString(reversed[:])
}

// IsZero reports whether h is the all-zero hash.
func (h Hash256) IsZero() bool {
	return h == ZeroHash
}

// Clone returns a copy of h.
func (h Hash256) Clone() Hash256 {
	return h
}

// NewFromSlice builds a Hash256 from a 32-byte slice in internal (non-reversed)
// byte order.
func NewFromSlice(b []byte) (Hash256, error) {
	var h Hash256
	if len(b) != Size {
		return h, errors.Errorf("invalid hash length %d, expected %d", len(b), Size)
	}
	copy(h[:], b)
	return h, nil
}

// NewFromReversedString parses the reversed-hex display form (as used by RPC
// and block explorers) back into internal byte order.
func NewFromReversedString(s string) (Hash256, error) {
	var h Hash256
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return h, errors.Wrap(err, "malformed hash string")
	}
	if len(decoded) != Size {
		return h, errors.Errorf("invalid hash string length %d, expected %d", len(decoded), Size)
	}
	for i := 0; i < Size; i++ {
		h[i] = decoded[Size-1-i]
	}
	return h, nil
}

// Less defines a total order over hashes, used to tie-break entries that
// otherwise compare equal (e.g. mempool fee-rate ordering).
func Less(a, b Hash256) bool {
	for i := Size - 1; i >= 0; i-- {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
