// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/hash"
)

// MaxSatoshi is the maximum number of satoshi that will ever exist, used to
// bound individual output values and running sums against overflow/garbage.
const MaxSatoshi = 21_000_000 * 100_000_000

// maxTxInPerMessage / maxTxOutPerMessage bound the var-int counts when
// decoding so a malformed transaction can't force an oversized allocation.
const (
	maxTxInPerMessage  = MaxMessagePayload / 41
	maxTxOutPerMessage = MaxMessagePayload / 9
	maxScriptSize      = MaxMessagePayload
)

// OutPoint identifies a single spendable output: the transaction that
// created it and its index among that transaction's outputs.
type OutPoint struct {
	Hash  hash.Hash256
	Index uint32
}

// NewOutPoint builds an OutPoint from its hash and index.
func NewOutPoint(h hash.Hash256, index uint32) OutPoint {
	return OutPoint{Hash: h, Index: index}
}

// IsNull reports whether the outpoint is the null outpoint used by coinbase
// inputs: zero hash, index 0xFFFFFFFF.
func (o OutPoint) IsNull() bool {
	return o.Index == math.MaxUint32 && o.Hash.IsZero()
}

func (o *OutPoint) serialize(w io.Writer) error {
	return writeElements(w, o.Hash, o.Index)
}

func (o *OutPoint) deserialize(r io.Reader) error {
	return readElements(r, &o.Hash, &o.Index)
}

// TxIn is a transaction input: a reference to a previously created output,
// the unlocking script, and the sequence number used for relative lock-time.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

func (ti *TxIn) serialize(w io.Writer) error {
	if err := ti.PreviousOutPoint.serialize(w); err != nil {
		return err
	}
	if err := WriteVarBytes(w, ti.SignatureScript); err != nil {
		return err
	}
	return WriteElement(w, ti.Sequence)
}

func (ti *TxIn) deserialize(r io.Reader) error {
	if err := ti.PreviousOutPoint.deserialize(r); err != nil {
		return err
	}
	script, err := ReadVarBytes(r, uint64(maxScriptSize), "txin signature script")
	if err != nil {
		return err
	}
	ti.SignatureScript = script
	return ReadElement(r, &ti.Sequence)
}

// TxOut is a transaction output: the value it carries, in satoshi, and the
// locking script that gates spending it.
type TxOut struct {
	Value        uint64
	ScriptPubKey []byte
}

func (to *TxOut) serialize(w io.Writer) error {
	if err := WriteElement(w, to.Value); err != nil {
		return err
	}
	return WriteVarBytes(w, to.ScriptPubKey)
}

func (to *TxOut) deserialize(r io.Reader) error {
	if err := ReadElement(r, &to.Value); err != nil {
		return err
	}
	script, err := ReadVarBytes(r, uint64(maxScriptSize), "txout script pubkey")
	if err != nil {
		return err
	}
	to.ScriptPubKey = script
	return nil
}

// Transaction is the canonical, wire-format transaction: version, inputs,
// outputs, and lock time, in that serialization order.
type Transaction struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// NewTransaction returns an empty transaction with the default version.
func NewTransaction() *Transaction {
	return &Transaction{Version: 1}
}

// IsCoinBase reports whether tx is the distinguished coinbase form: exactly
// one input whose previous outpoint is null.
func (tx *Transaction) IsCoinBase() bool {
	return len(tx.TxIn) == 1 && tx.TxIn[0].PreviousOutPoint.IsNull()
}

// AddTxIn appends an input to the transaction.
func (tx *Transaction) AddTxIn(ti *TxIn) {
	tx.TxIn = append(tx.TxIn, ti)
}

// AddTxOut appends an output to the transaction.
func (tx *Transaction) AddTxOut(to *TxOut) {
	tx.TxOut = append(tx.TxOut, to)
}

// Serialize encodes the transaction to w in canonical wire format.
func (tx *Transaction) Serialize(w io.Writer) error {
	if err := WriteElement(w, tx.Version); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(tx.TxIn))); err != nil {
		return err
	}
	for _, in := range tx.TxIn {
		if err := in.serialize(w); err != nil {
			return err
		}
	}
	if err := WriteVarInt(w, uint64(len(tx.TxOut))); err != nil {
		return err
	}
	for _, out := range tx.TxOut {
		if err := out.serialize(w); err != nil {
			return err
		}
	}
	return WriteElement(w, tx.LockTime)
}

// Deserialize decodes a transaction from r.
func (tx *Transaction) Deserialize(r io.Reader) error {
	if err := ReadElement(r, &tx.Version); err != nil {
		return err
	}
	inCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if inCount > maxTxInPerMessage {
		return errTooManyElements("inputs", inCount, maxTxInPerMessage)
	}
	tx.TxIn = make([]*TxIn, inCount)
	for i := range tx.TxIn {
		in := &TxIn{}
		if err := in.deserialize(r); err != nil {
			return err
		}
		tx.TxIn[i] = in
	}

	outCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if outCount > maxTxOutPerMessage {
		return errTooManyElements("outputs", outCount, maxTxOutPerMessage)
	}
	tx.TxOut = make([]*TxOut, outCount)
	for i := range tx.TxOut {
		out := &TxOut{}
		if err := out.deserialize(r); err != nil {
			return err
		}
		tx.TxOut[i] = out
	}

	return ReadElement(r, &tx.LockTime)
}

// SerializeSize returns the number of bytes Serialize would write.
func (tx *Transaction) SerializeSize() int {
	n := 4 + 4 // version + lock time
	n += VarIntSerializeSize(uint64(len(tx.TxIn)))
	for _, in := range tx.TxIn {
		n += 32 + 4 // outpoint
		n += VarIntSerializeSize(uint64(len(in.SignatureScript))) + len(in.SignatureScript)
		n += 4 // sequence
	}
	n += VarIntSerializeSize(uint64(len(tx.TxOut)))
	for _, out := range tx.TxOut {
		n += 8
		n += VarIntSerializeSize(uint64(len(out.ScriptPubKey))) + len(out.ScriptPubKey)
	}
	return n
}

// TxHash computes the double-SHA-256 identifier of the transaction's
// canonical serialization.
func (tx *Transaction) TxHash() hash.Hash256 {
	buf := bytes.NewBuffer(make([]byte, 0, tx.SerializeSize()))
	_ = tx.Serialize(buf)
	return hash.DoubleHash(buf.Bytes())
}

func errTooManyElements(what string, got, max uint64) error {
	return errors.Errorf("too many %s in transaction [count %d, max %d]", what, got, max)
}
