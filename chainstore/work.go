package chainstore

import (
	"math/big"

	"github.com/daglabs/btcnode/chainutil"
)

// addWork adds the work contribution of a single block (computed from its
// compact target) to an accumulated cumulative-work total, both represented
// as big-endian 32-byte integers so headerNode stays a plain, comparable
// value.
func addWork(accumulated [32]byte, bits uint32) [32]byte {
	total := new(big.Int).SetBytes(accumulated[:])
	total.Add(total, chainutil.CalcWork(bits))
	return bigToFixed(total)
}

func bigToFixed(n *big.Int) [32]byte {
	var out [32]byte
	b := n.Bytes()
	if len(b) > len(out) {
		b = b[len(b)-len(out):] // truncate defensively; cumulative work never realistically overflows 256 bits
	}
	copy(out[len(out)-len(b):], b)
	return out
}

// cumulativeWorkLess reports whether a's accumulated work is strictly less
// than b's, both in the big-endian 32-byte representation addWork produces.
func cumulativeWorkLess(a, b [32]byte) bool {
	for i := 0; i < 32; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
