package verifier

import (
	"time"

	"github.com/daglabs/btcnode/chaincfg"
	"github.com/daglabs/btcnode/chainstore"
	"github.com/daglabs/btcnode/chainutil"
	"github.com/daglabs/btcnode/wire"
)

// VerificationLevel gates how much of the verification pipeline a block
// must pass, mirroring the teacher's BehaviorFlags (BFFastAdd, BFNoPoWCheck)
// in blockdag/validate.go but expressed as a small ordered enum rather than
// a bit flag set, since spec 4.2 only needs three mutually exclusive tiers.
type VerificationLevel int

const (
	// Full runs both passes, including script evaluation.
	Full VerificationLevel = iota
	// NoScript runs both passes but skips signature evaluation, for
	// trusted replay of already-proven history.
	NoScript
	// HeaderOnly stops after the stateless pass.
	HeaderOnly
)

// Verifier ties the stateless pass, the BIP9 deployment snapshot, and the
// stateful pass together behind the capability views chainstore exposes, so
// it never needs to import chainstore's concrete Store type.
type Verifier struct {
	Params   *chaincfg.Params
	SigCache *sigCache
}

// New builds a Verifier for the given network parameters, with its own
// signature verification cache.
func New(params *chaincfg.Params, sigCacheSize uint) *Verifier {
	return &Verifier{Params: params, SigCache: NewSigCache(sigCacheSize)}
}

// Verify runs the full pipeline against a candidate block that would commit
// at blockHeight: the stateless pass, then (unless level stops earlier) the
// BIP9 snapshot and the stateful pass. now is injected for deterministic
// testing of the timestamp check.
func (v *Verifier) Verify(
	block *wire.MsgBlock,
	blockHeight uint32,
	headers chainstore.BlockHeaderProvider,
	outputs chainstore.TransactionOutputProvider,
	level VerificationLevel,
	now time.Time,
) error {
	if err := CheckBlockSanity(block, v.Params.PowLimitBits, false, now); err != nil {
		return err
	}
	if level == HeaderOnly {
		return nil
	}

	deployments, err := CalcActiveDeployments(v.Params, headers, blockHeight)
	if err != nil {
		return err
	}

	return OrderedVerify(block, blockHeight, v.Params, outputs, v.SigCache, level, deployments)
}

// blockSubsidy returns the coinbase reward owed at height under params'
// halving schedule.
func blockSubsidy(height uint32, params *chaincfg.Params) uint64 {
	return chainutil.CalcBlockSubsidy(height, params.SubsidyReductionInterval)
}
