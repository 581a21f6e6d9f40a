package verifier

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btcd/txscript"

	"github.com/daglabs/btcnode/chaincfg"
	"github.com/daglabs/btcnode/chainstore"
	"github.com/daglabs/btcnode/wire"
)

// resolvedInput is the previous output an input spends, however it was
// located: in the durable store, or earlier in the same block.
type resolvedInput struct {
	output      *wire.TxOut
	blockHeight uint32
	isCoinbase  bool
}

// resolvePreviousOutput implements spec 4.2's in-block topological
// resolver: an input may reference an output of a transaction earlier in
// the same block (never later, never that block's own coinbase), falling
// back to the durable store.
func resolvePreviousOutput(op wire.OutPoint, txIndex int, block *wire.MsgBlock, provider chainstore.TransactionOutputProvider) (*resolvedInput, error) {
	for i := 1; i < txIndex; i++ {
		earlier := block.Transactions[i]
		if earlier.TxHash() != op.Hash {
			continue
		}
		if int(op.Index) >= len(earlier.TxOut) {
			return nil, fmt.Errorf("outpoint index %d out of range for in-block tx", op.Index)
		}
		return &resolvedInput{output: earlier.TxOut[op.Index], blockHeight: 0, isCoinbase: false}, nil
	}

	out, height, isCoinbase, err := provider.Output(op)
	if err != nil {
		return nil, err
	}
	return &resolvedInput{output: out, blockHeight: height, isCoinbase: isCoinbase}, nil
}

// OrderedVerify runs the stateful pass: for each non-coinbase transaction,
// concurrently, resolve its inputs, enforce coinbase maturity, sum values,
// and (unless level is NoScript) evaluate scripts. It returns the error of
// the lowest-indexed transaction that failed; if none failed, it returns
// the result of checking the coinbase against subsidy plus fees.
func OrderedVerify(
	block *wire.MsgBlock,
	blockHeight uint32,
	params *chaincfg.Params,
	provider chainstore.TransactionOutputProvider,
	cache *sigCache,
	level VerificationLevel,
	deployments ActiveDeployments,
) error {
	if level == HeaderOnly {
		return nil
	}
	flags := scriptFlagsFor(deployments)

	type txResult struct {
		index   int
		unspent uint64
		sigOps  int
		err     error
	}
	results := make([]txResult, len(block.Transactions)-1)

	var sigOpsOverflow int64
	var wg sync.WaitGroup
	for offset, tx := range block.Transactions[1:] {
		offset, tx := offset, tx
		wg.Add(1)
		go func() {
			defer wg.Done()
			txIndex := offset + 1
			unspent, sigOps, err := verifyTransaction(tx, txIndex, block, blockHeight, params, provider, cache, level, flags)
			if atomic.AddInt64(&sigOpsOverflow, int64(sigOps)) > MaxSigOpsPerBlock && err == nil {
				err = ruleError(ErrMaximumSigops, "block exceeds maximum signature operation count")
			}
			results[offset] = txResult{index: txIndex, unspent: unspent, sigOps: sigOps, err: err}
		}()
	}
	wg.Wait()

	var lowestErr error
	lowestIndex := len(block.Transactions)
	var totalUnspent uint64
	for _, r := range results {
		if r.err != nil {
			if r.index < lowestIndex {
				lowestIndex = r.index
				lowestErr = r.err
			}
			continue
		}
		totalUnspent += r.unspent
	}
	if lowestErr != nil {
		return lowestErr
	}

	return checkCoinbaseSpend(block, blockHeight, params, totalUnspent)
}

func verifyTransaction(
	tx *wire.Transaction,
	txIndex int,
	block *wire.MsgBlock,
	blockHeight uint32,
	params *chaincfg.Params,
	provider chainstore.TransactionOutputProvider,
	cache *sigCache,
	level VerificationLevel,
	flags txscript.ScriptFlags,
) (unspent uint64, sigOps int, err error) {
	var totalIn uint64
	inputScripts := make([][]byte, 0, len(tx.TxIn))
	for inputIndex, in := range tx.TxIn {
		resolved, resolveErr := resolvePreviousOutput(in.PreviousOutPoint, txIndex, block, provider)
		if resolveErr != nil {
			if resolveErr == chainstore.ErrNotFound {
				return 0, 0, txRuleError(txIndex, TxErrInconclusive, fmt.Sprintf("input %d references unknown output", inputIndex))
			}
			return 0, 0, txRuleError(txIndex, TxErrUnknownReference, resolveErr.Error())
		}

		if resolved.isCoinbase && blockHeight < resolved.blockHeight+params.CoinbaseMaturity {
			return 0, 0, txRuleError(txIndex, TxErrMaturity, fmt.Sprintf("input %d spends immature coinbase", inputIndex))
		}

		if level == Full {
			if err := checkInputScript(tx, inputIndex, resolved.output.ScriptPubKey, resolved.output.Value, cache, flags); err != nil {
				return 0, 0, err
			}
		}
		inputScripts = append(inputScripts, resolved.output.ScriptPubKey)

		newTotalIn := totalIn + resolved.output.Value
		if newTotalIn < totalIn {
			return 0, 0, txRuleError(txIndex, TxErrInput, "transaction input value overflow")
		}
		totalIn = newTotalIn
	}

	var totalOut uint64
	for _, out := range tx.TxOut {
		totalOut += out.Value
	}
	if totalOut > totalIn {
		return 0, 0, txRuleError(txIndex, TxErrOverspend, "transaction spends more than its inputs provide")
	}

	return totalIn - totalOut, countPreciseSigOps(tx, inputScripts), nil
}

func checkCoinbaseSpend(block *wire.MsgBlock, blockHeight uint32, params *chaincfg.Params, unspent uint64) error {
	var coinbaseOut uint64
	for _, out := range block.Transactions[0].TxOut {
		coinbaseOut += out.Value
	}
	maxAllowed := blockSubsidy(blockHeight, params) + unspent
	if coinbaseOut > maxAllowed {
		return ruleError(ErrCoinbaseOverspend, fmt.Sprintf("coinbase spends %d, maximum allowed is %d", coinbaseOut, maxAllowed))
	}
	return nil
}

// countPreciseSigOps is the exact pay-to-script-hash-aware sigop count,
// needed once inputs are resolved (the stateless pass only has the quick,
// imprecise count). Kept here because it is the stateful pass's contribution
// to the teacher's two-tier sigop accounting in validate.go.
func countPreciseSigOps(tx *wire.Transaction, inputScripts [][]byte) int {
	total := 0
	for i, in := range tx.TxIn {
		if i >= len(inputScripts) {
			break
		}
		prevOutScript := inputScripts[i]
		if !txscript.IsPayToScriptHash(prevOutScript) {
			continue
		}
		total += txscript.GetPreciseSigOpCount(in.SignatureScript, prevOutScript, true)
	}
	return total
}
