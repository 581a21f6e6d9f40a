package verifier

import (
	btcdchainhash "github.com/btcsuite/btcd/chaincfg/chainhash"
	btcdwire "github.com/btcsuite/btcd/wire"

	"github.com/btcsuite/btcd/txscript"

	"github.com/daglabs/btcnode/chaincfg"
	"github.com/daglabs/btcnode/wire"
)

// sigCache memoizes ECDSA verification results across blocks, the same
// optimization the teacher wires through blockdag's checkBlockScripts via
// dag.sigCache: signature checks are the most expensive part of
// verification and the same signature is frequently re-checked (orphan
// reprocessing, reorgs).
type sigCache = txscript.SigCache

// NewSigCache constructs a signature cache sized for maxEntries outstanding
// verification results.
func NewSigCache(maxEntries uint) *sigCache {
	return txscript.NewSigCache(maxEntries)
}

// checkInputScript evaluates script_sig ‖ script_pubkey for a single input,
// assembling the script engine with the spending transaction, the input's
// index, and the value and script of the output it spends. The verifier's
// role ends at assembling this checker: actual opcode execution and ECDSA
// verification belong to txscript, the reusable library.
func checkInputScript(tx *wire.Transaction, inputIndex int, prevOutScript []byte, prevOutValue uint64, cache *sigCache, flags txscript.ScriptFlags) error {
	msgTx := toWireTx(tx)

	vm, err := txscript.NewEngine(prevOutScript, msgTx, inputIndex, flags, cache, nil, int64(prevOutValue))
	if err != nil {
		return txRuleError(inputIndex, TxErrSignatureMalformed, err.Error())
	}
	if err := vm.Execute(); err != nil {
		return txRuleError(inputIndex, TxErrSignature, err.Error())
	}
	return nil
}

// scriptFlagsFor derives the script engine flags to enforce from the active
// deployment snapshot: CSV-gated relative-locktime opcodes are only
// enforced once the CSV deployment is active, matching BIP9's "don't
// enforce new rules on old blocks" contract. No segwit flag is set, whatever
// the segwit deployment's state.
func scriptFlagsFor(deployments ActiveDeployments) txscript.ScriptFlags {
	flags := txscript.ScriptBip16 | txscript.ScriptVerifyDERSignatures |
		txscript.ScriptVerifyStrictEncoding | txscript.ScriptVerifyNullFail
	if deployments.IsActive(chaincfg.DeploymentCSV) {
		flags |= txscript.ScriptVerifyCheckSequenceVerify
	}
	return flags
}

// toWireTx translates our wire.Transaction into the btcd wire.MsgTx shape
// txscript.NewEngine expects. The two wire formats coincide field-for-field
// for a classic (non-subnetwork) transaction; this is a pure adaptation, not
// a reinterpretation of any value.
func toWireTx(tx *wire.Transaction) *btcdwire.MsgTx {
	out := btcdwire.NewMsgTx(tx.Version)
	for _, in := range tx.TxIn {
		out.AddTxIn(&btcdwire.TxIn{
			PreviousOutPoint: btcdwire.OutPoint{
				Hash:  btcdchainhash.Hash(in.PreviousOutPoint.Hash),
				Index: in.PreviousOutPoint.Index,
			},
			SignatureScript: in.SignatureScript,
			Sequence:        in.Sequence,
		})
	}
	for _, o := range tx.TxOut {
		out.AddTxOut(&btcdwire.TxOut{Value: int64(o.Value), PkScript: o.ScriptPubKey})
	}
	out.LockTime = tx.LockTime
	return out
}
