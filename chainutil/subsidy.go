package chainutil

// BaseSubsidy is the starting block subsidy, in satoshi, before any halving.
const BaseSubsidy = 50 * 100_000_000

// CalcBlockSubsidy returns the block subsidy at the given height: BaseSubsidy
// halved every subsidyReductionInterval blocks, floored at zero once halved
// past the point of representable precision.
func CalcBlockSubsidy(height uint32, subsidyReductionInterval uint32) uint64 {
	if subsidyReductionInterval == 0 {
		return BaseSubsidy
	}
	halvings := height / subsidyReductionInterval
	if halvings >= 64 {
		return 0
	}
	return BaseSubsidy >> halvings
}
