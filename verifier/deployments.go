package verifier

import (
	"github.com/daglabs/btcnode/chaincfg"
	"github.com/daglabs/btcnode/chainstore"
)

// ThresholdState is a position in the BIP9 soft-fork activation state
// machine: DEFINED -> STARTED -> (LOCKED_IN -> ACTIVE) | FAILED.
type ThresholdState int

const (
	ThresholdDefined ThresholdState = iota
	ThresholdStarted
	ThresholdLockedIn
	ThresholdActive
	ThresholdFailed
)

func (s ThresholdState) String() string {
	switch s {
	case ThresholdDefined:
		return "defined"
	case ThresholdStarted:
		return "started"
	case ThresholdLockedIn:
		return "locked_in"
	case ThresholdActive:
		return "active"
	case ThresholdFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ActiveDeployments is an immutable snapshot of which soft-fork rule bits
// are active at a given height, computed once per block so the entire
// verification pass for that block is judged against a single rule set.
type ActiveDeployments struct {
	active [chaincfg.DefinedDeployments]bool
}

// IsActive reports whether the named deployment is active in this snapshot.
func (d ActiveDeployments) IsActive(deployment int) bool {
	if deployment < 0 || deployment >= len(d.active) {
		return false
	}
	return d.active[deployment]
}

// CalcActiveDeployments computes, for a block extending the chain at
// tipHeight+1, the threshold state of every defined deployment by replaying
// whole MinerConfirmationWindow periods forward from genesis through the
// window containing tipHeight. Headers are read by height off the main
// chain, mirroring the teacher's checkpoint-interval bookkeeping in
// blockdag/dag.go generalized to BIP9's per-window tally.
func CalcActiveDeployments(params *chaincfg.Params, headers chainstore.BlockHeaderProvider, tipHeight uint32) (ActiveDeployments, error) {
	var snapshot ActiveDeployments
	for i := 0; i < chaincfg.DefinedDeployments; i++ {
		state, err := calcDeploymentState(params, headers, tipHeight, &params.Deployments[i])
		if err != nil {
			return snapshot, err
		}
		snapshot.active[i] = state == ThresholdActive
	}
	return snapshot, nil
}

// calcDeploymentState replays the BIP9 state machine window by window, from
// genesis through the window containing tipHeight, and returns the state
// reached by its end.
func calcDeploymentState(params *chaincfg.Params, headers chainstore.BlockHeaderProvider, tipHeight uint32, deployment *chaincfg.ConsensusDeployment) (ThresholdState, error) {
	window := params.MinerConfirmationWindow
	if window == 0 {
		return ThresholdDefined, nil
	}

	state := ThresholdDefined
	lastWindowStart := tipHeight - (tipHeight % window)

	for windowStart := uint32(0); windowStart <= lastWindowStart; windowStart += window {
		startHash, err := headers.HashAtHeight(windowStart)
		if err != nil {
			break // window not yet mined on this chain: stop replaying
		}
		startHeader, err := headers.BlockHeader(startHash)
		if err != nil {
			return ThresholdDefined, err
		}

		switch state {
		case ThresholdDefined:
			if uint64(startHeader.Timestamp) >= deployment.ExpireTime && deployment.ExpireTime != 0 {
				state = ThresholdFailed
			} else if uint64(startHeader.Timestamp) >= deployment.StartTime {
				state = ThresholdStarted
			}
		case ThresholdStarted:
			if uint64(startHeader.Timestamp) >= deployment.ExpireTime && deployment.ExpireTime != 0 {
				state = ThresholdFailed
				continue
			}
			count, err := countSignaling(headers, windowStart, window, deployment.BitNumber)
			if err != nil {
				return state, err
			}
			if count >= params.RuleChangeActivationThreshold {
				state = ThresholdLockedIn
			}
		case ThresholdLockedIn:
			state = ThresholdActive
		}
	}
	return state, nil
}

// countSignaling tallies how many headers in [windowStart, windowStart+window)
// on the main chain have the deployment's version bit set.
func countSignaling(headers chainstore.BlockHeaderProvider, windowStart, window uint32, bit uint8) (uint32, error) {
	count := uint32(0)
	for height := windowStart; height < windowStart+window; height++ {
		h, err := headers.HashAtHeight(height)
		if err != nil {
			break // chain not yet this long; count what signaled so far
		}
		header, err := headers.BlockHeader(h)
		if err != nil {
			return 0, err
		}
		if uint32(header.Version)&(uint32(1)<<bit) != 0 {
			count++
		}
	}
	return count, nil
}
