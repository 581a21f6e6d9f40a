package hash

import "crypto/sha256"

// DoubleHash computes SHA-256(SHA-256(b)), the digest used for block and
// transaction identifiers throughout the wire and storage formats.
func DoubleHash(b []byte) Hash256 {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return Hash256(second)
}
