package chainutil

import "math/big"

// CompactToBig expands a compact-encoded ("bits") proof-of-work target into
// its full big.Int form. The encoding packs an unsigned mantissa and an
// exponent: the low 23 bits are the mantissa, the high byte is the number of
// bytes (including itself) the mantissa would occupy unpacked, and the
// sign bit (0x00800000) is never set for a valid target.
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	var result *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		result = big.NewInt(int64(mantissa))
	} else {
		result = big.NewInt(int64(mantissa))
		result.Lsh(result, 8*(exponent-3))
	}

	if isNegative {
		result = result.Neg(result)
	}
	return result
}

// BigToCompact packs n into the compact ("bits") encoding. It is the inverse
// of CompactToBig, losing precision beyond the 23-bit mantissa exactly as
// the wire format does.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))

	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

// CalcWork returns the cumulative-work contribution of a single block with
// the given compact target: 2^256 / (target+1), per the glossary's
// definition of cumulative work.
func CalcWork(bits uint32) *big.Int {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}

	denominator := new(big.Int).Add(target, bigOne)
	return new(big.Int).Div(oneLsh256, denominator)
}

var bigOne = big.NewInt(1)
var oneLsh256 = new(big.Int).Lsh(bigOne, 256)
