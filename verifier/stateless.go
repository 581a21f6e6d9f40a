package verifier

import (
	"math/big"
	"time"

	"github.com/btcsuite/btcd/txscript"

	"github.com/daglabs/btcnode/chainutil"
	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/wire"
)

// MaxSigOpsPerBlock bounds the summed signature operation count across a
// block's transactions.
const MaxSigOpsPerBlock = 20000

// minCoinbaseScriptLen / maxCoinbaseScriptLen bound the coinbase input's
// script_sig, per spec 4.2.
const (
	minCoinbaseScriptLen = 2
	maxCoinbaseScriptLen = 100
)

// maxTimeDrift bounds how far into the future a header's timestamp may sit
// relative to the verifier's clock.
const maxTimeDrift = 2 * time.Hour

// CheckHeaderSanity runs the subset of the stateless pass that needs only a
// header: proof-of-work and the future-timestamp bound. The sync client's
// headers-first pipeline uses this to validate a header before its block
// body has even arrived.
func CheckHeaderSanity(header *wire.BlockHeader, powLimit uint32, skipPoW bool, now time.Time) error {
	if !skipPoW {
		if err := checkProofOfWork(header); err != nil {
			return err
		}
	}
	maxTimestamp := uint32(now.Add(maxTimeDrift).Unix())
	if header.Timestamp > maxTimestamp {
		return ruleError(ErrTimestamp, "header timestamp too far in the future")
	}
	return nil
}

// CheckBlockSanity runs the stateless pass: every check spec 4.2 lists that
// needs no store access. now is injected so tests can pin the clock.
func CheckBlockSanity(block *wire.MsgBlock, powLimit uint32, skipPoW bool, now time.Time) error {
	if len(block.Transactions) == 0 {
		return ruleError(ErrEmpty, "block has no transactions")
	}

	if err := CheckHeaderSanity(&block.Header, powLimit, skipPoW, now); err != nil {
		return err
	}

	hashes := make([]hash.Hash256, len(block.Transactions))
	for i, tx := range block.Transactions {
		hashes[i] = tx.TxHash()
	}
	root := chainutil.MerkleRoot(hashes)
	if root != block.Header.MerkleRoot {
		return ruleError(ErrMerkleRoot, "computed merkle root does not match header")
	}

	if !block.Transactions[0].IsCoinBase() {
		return ruleError(ErrCoinbase, "first transaction is not a coinbase")
	}
	scriptLen := len(block.Transactions[0].TxIn[0].SignatureScript)
	if scriptLen < minCoinbaseScriptLen || scriptLen > maxCoinbaseScriptLen {
		return ruleError(ErrCoinbaseSignatureLength, "coinbase script_sig length out of range")
	}
	for _, tx := range block.Transactions[1:] {
		if tx.IsCoinBase() {
			return ruleError(ErrCoinbase, "block contains a second coinbase")
		}
	}

	totalSigOps := 0
	for _, tx := range block.Transactions {
		totalSigOps += countSigOps(tx)
		if totalSigOps > MaxSigOpsPerBlock {
			return ruleError(ErrMaximumSigops, "block exceeds maximum signature operation count")
		}
	}

	return nil
}

func checkProofOfWork(header *wire.BlockHeader) error {
	target := chainutil.CompactToBig(header.Bits)
	if target.Sign() <= 0 {
		return ruleError(ErrPow, "target difficulty is non-positive")
	}
	h := header.BlockHash()
	hashNum := hashToBig(h)
	if hashNum.Cmp(target) > 0 {
		return ruleError(ErrPow, "block hash exceeds claimed target")
	}
	return nil
}

// hashToBig interprets a Hash256 as the big-endian integer Bitcoin compares
// against the expanded target: the digest's natural (little-endian) byte
// order reversed, matching the convention hash.Hash256.String also uses for
// display.
func hashToBig(h hash.Hash256) *big.Int {
	var reversed [hash.Size]byte
	for i := 0; i < hash.Size; i++ {
		reversed[i] = h[hash.Size-1-i]
	}
	return new(big.Int).SetBytes(reversed[:])
}

// countSigOps returns the quick, imprecise signature-operation count for a
// transaction: the accurate pay-to-script-hash count requires the spent
// output's script and is computed separately in the stateful pass.
func countSigOps(tx *wire.Transaction) int {
	total := 0
	for _, in := range tx.TxIn {
		total += txscript.GetSigOpCount(in.SignatureScript)
	}
	for _, out := range tx.TxOut {
		total += txscript.GetSigOpCount(out.ScriptPubKey)
	}
	return total
}
