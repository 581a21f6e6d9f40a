// Package utxo defines the per-transaction metadata the storage engine keeps
// to answer "is this output still unspent" without scanning every block: one
// TransactionMeta per committed transaction, carrying a spent bitvector over
// its outputs.
package utxo

import (
	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/hash"
	"github.com/daglabs/btcnode/wire"
)

// TransactionMeta is the committed-chain record for one transaction: which
// block height it was mined at, whether it is a coinbase (for maturity
// checks), and which of its outputs have since been spent.
type TransactionMeta struct {
	BlockHeight   uint32
	IsCoinbase    bool
	SpentOutputs  []bool
	OutputAmounts []uint64
	OutputScripts [][]byte
}

// NewTransactionMeta builds the meta record for a freshly committed
// transaction: every output starts unspent.
func NewTransactionMeta(tx *wire.Transaction, blockHeight uint32, isCoinbase bool) *TransactionMeta {
	meta := &TransactionMeta{
		BlockHeight:   blockHeight,
		IsCoinbase:    isCoinbase,
		SpentOutputs:  make([]bool, len(tx.TxOut)),
		OutputAmounts: make([]uint64, len(tx.TxOut)),
		OutputScripts: make([][]byte, len(tx.TxOut)),
	}
	for i, out := range tx.TxOut {
		meta.OutputAmounts[i] = out.Value
		meta.OutputScripts[i] = out.ScriptPubKey
	}
	return meta
}

// ErrAlreadySpent is returned by MarkSpent when the output's bit is already
// set: a double-spend within the set of blocks being connected.
var ErrAlreadySpent = errors.New("output already marked spent")

// ErrNoSuchOutput is returned when an index outside the transaction's
// output list is referenced.
var ErrNoSuchOutput = errors.New("no such output index")

// IsSpent reports whether output index is already marked spent.
func (m *TransactionMeta) IsSpent(index uint32) (bool, error) {
	if int(index) >= len(m.SpentOutputs) {
		return false, errors.Wrapf(ErrNoSuchOutput, "index %d", index)
	}
	return m.SpentOutputs[index], nil
}

// MarkSpent flips output index's bit to spent. It fails if the bit is
// already set, upholding the invariant that every outpoint is consumed at
// most once across the committed chain.
func (m *TransactionMeta) MarkSpent(index uint32) error {
	if int(index) >= len(m.SpentOutputs) {
		return errors.Wrapf(ErrNoSuchOutput, "index %d", index)
	}
	if m.SpentOutputs[index] {
		return errors.Wrapf(ErrAlreadySpent, "index %d", index)
	}
	m.SpentOutputs[index] = true
	return nil
}

// ClearSpent flips output index's bit back to unspent, used when
// disconnecting a block during a reorg.
func (m *TransactionMeta) ClearSpent(index uint32) error {
	if int(index) >= len(m.SpentOutputs) {
		return errors.Wrapf(ErrNoSuchOutput, "index %d", index)
	}
	m.SpentOutputs[index] = false
	return nil
}

// Output returns the amount and script of output index, as they were at
// commit time (outputs never change value once mined).
func (m *TransactionMeta) Output(index uint32) (amount uint64, script []byte, err error) {
	if int(index) >= len(m.OutputAmounts) {
		return 0, nil, errors.Wrapf(ErrNoSuchOutput, "index %d", index)
	}
	return m.OutputAmounts[index], m.OutputScripts[index], nil
}

// AllSpent reports whether every output of the transaction has been spent,
// the condition BIP30 duplicate-transaction checks rely on.
func (m *TransactionMeta) AllSpent() bool {
	for _, spent := range m.SpentOutputs {
		if !spent {
			return false
		}
	}
	return true
}

// BestBlock is the process-wide pointer to the tip of the chain with the
// greatest cumulative work among known chains.
type BestBlock struct {
	Hash   hash.Hash256
	Height uint32
}
