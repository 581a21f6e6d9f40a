// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the network parameters (genesis block, proof of
// work limit, coinbase maturity, subsidy schedule, and BIP9 deployment
// table) that differentiate the main, test, and regression-test networks.
package chaincfg

import (
	"math"
	"math/big"
	"time"

	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/wire"
)

// Checkpoint identifies a known-good point in the chain, trusted without
// replaying script validation back to genesis.
type Checkpoint struct {
	Height uint32
	Hash   hash.Hash256
}

// ConsensusDeployment describes a single BIP9 soft-fork rule change: which
// version bit signals it and the start and expire times, compared against
// the timestamp of each window's first block, that bound when signaling is
// counted.
type ConsensusDeployment struct {
	BitNumber  uint8
	StartTime  uint64
	ExpireTime uint64
}

// Deployment offsets into Params.Deployments, naming specific rule changes.
const (
	DeploymentTestDummy = iota
	DeploymentCSV
	DeploymentSegwit

	// DefinedDeployments is the number of currently defined deployments.
	DefinedDeployments
)

// RuleChangeActivationInterval is the number of blocks in one BIP9
// signaling window; MainNetParams and TestNet3Params use it as their
// MinerConfirmationWindow.
const RuleChangeActivationInterval = 2016

// Params defines a Bitcoin network by its consensus parameters.
type Params struct {
	Name string
	Net  wire.BitcoinNet

	DefaultPort string

	GenesisBlock *wire.MsgBlock
	GenesisHash  hash.Hash256

	PowLimit     *big.Int
	PowLimitBits uint32

	// CoinbaseMaturity is the number of blocks that must pass before a
	// coinbase output becomes spendable.
	CoinbaseMaturity uint32

	// SubsidyReductionInterval is the number of blocks between halvings of
	// the block subsidy.
	SubsidyReductionInterval uint32

	// TargetTimePerBlock is the desired average time between blocks, used
	// by difficulty retargeting.
	TargetTimePerBlock time.Duration

	// RetargetAdjustmentFactor bounds how far a single retarget window may
	// move the difficulty.
	RetargetAdjustmentFactor int64

	// Checkpoints, ordered from oldest to newest.
	Checkpoints []Checkpoint

	// RuleChangeActivationThreshold and MinerConfirmationWindow configure
	// the BIP9 state machine; MinerConfirmationWindow is the number of
	// blocks in a retarget window over which signaling is tallied.
	RuleChangeActivationThreshold uint32
	MinerConfirmationWindow       uint32

	// Deployments holds the version-bit assignment and signaling window
	// for each named soft fork.
	Deployments [DefinedDeployments]ConsensusDeployment
}

var bigOne = big.NewInt(1)

// mainPowLimit is 2^224 - 1, matching Bitcoin mainnet's historical ceiling.
var mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

// regTestPowLimit is 2^255 - 1: trivially easy, for local test chains.
var regTestPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

// MainNetParams defines the parameters for the main Bitcoin network.
var MainNetParams = Params{
	Name:                     "mainnet",
	Net:                      wire.MainNet,
	DefaultPort:              "8333",
	GenesisBlock:             genesisBlock,
	GenesisHash:              genesisHash,
	PowLimit:                 mainPowLimit,
	PowLimitBits:             0x1d00ffff,
	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 210000,
	TargetTimePerBlock:       10 * time.Minute,
	RetargetAdjustmentFactor: 4,

	RuleChangeActivationThreshold: 1916, // 95%
	MinerConfirmationWindow:       RuleChangeActivationInterval,
	Deployments: [DefinedDeployments]ConsensusDeployment{
		DeploymentTestDummy: {BitNumber: 28, StartTime: 0, ExpireTime: 0},
		DeploymentCSV:       {BitNumber: 0, StartTime: 1462060800, ExpireTime: 1493596800},
		DeploymentSegwit:    {BitNumber: 1, StartTime: 1479168000, ExpireTime: 1510704000},
	},
}

// TestNet3Params defines the parameters for the public test network.
var TestNet3Params = Params{
	Name:                     "testnet3",
	Net:                      wire.TestNet3,
	DefaultPort:              "18333",
	GenesisBlock:             genesisBlock,
	GenesisHash:              genesisHash,
	PowLimit:                 mainPowLimit,
	PowLimitBits:             0x1d00ffff,
	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 210000,
	TargetTimePerBlock:       10 * time.Minute,
	RetargetAdjustmentFactor: 4,

	RuleChangeActivationThreshold: 1512, // 75%
	MinerConfirmationWindow:       RuleChangeActivationInterval,
	Deployments: [DefinedDeployments]ConsensusDeployment{
		DeploymentTestDummy: {BitNumber: 28, StartTime: 0, ExpireTime: 0},
		DeploymentCSV:       {BitNumber: 0, StartTime: 1456790400, ExpireTime: 1493596800},
		DeploymentSegwit:    {BitNumber: 1, StartTime: 1462060800, ExpireTime: 1493596800},
	},
}

// RegressionNetParams defines the parameters for the local regression-test
// network, where difficulty is trivial and every deployment starts signaling
// from the first window.
var RegressionNetParams = Params{
	Name:                     "regtest",
	Net:                      wire.RegTestNet,
	DefaultPort:              "18444",
	GenesisBlock:             genesisBlock,
	GenesisHash:              genesisHash,
	PowLimit:                 regTestPowLimit,
	PowLimitBits:             0x207fffff,
	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 150,
	TargetTimePerBlock:       10 * time.Minute,
	RetargetAdjustmentFactor: 4,

	RuleChangeActivationThreshold: 108, // 75% of a 144-block window
	MinerConfirmationWindow:       144,
	Deployments: [DefinedDeployments]ConsensusDeployment{
		DeploymentTestDummy: {BitNumber: 28, StartTime: 0, ExpireTime: math.MaxInt64},
		DeploymentCSV:       {BitNumber: 0, StartTime: 0, ExpireTime: math.MaxInt64},
		DeploymentSegwit:    {BitNumber: 1, StartTime: 0, ExpireTime: math.MaxInt64},
	},
}
