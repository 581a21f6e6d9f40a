// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/pkg/errors"
)

const maxTxPerBlock = MaxMessagePayload / 60

// MsgBlock is the on-wire block payload: a header followed by its ordered
// transactions. By convention and by consensus rule, Transactions[0] must be
// the coinbase.
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*Transaction
}

// Command returns the protocol command string for a block message.
func (m *MsgBlock) Command() string { return CmdBlock }

// AddTransaction appends a transaction to the block.
func (m *MsgBlock) AddTransaction(tx *Transaction) {
	m.Transactions = append(m.Transactions, tx)
}

// Serialize encodes the block to w: header, then var-int transaction count,
// then each transaction in order.
func (m *MsgBlock) Serialize(w io.Writer) error {
	if err := m.Header.Serialize(w); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(m.Transactions))); err != nil {
		return err
	}
	for _, tx := range m.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize decodes a block from r.
func (m *MsgBlock) Deserialize(r io.Reader) error {
	if err := m.Header.Deserialize(r); err != nil {
		return err
	}
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxTxPerBlock {
		return errors.Errorf("block contains too many transactions [count %d, max %d]", count, maxTxPerBlock)
	}
	m.Transactions = make([]*Transaction, count)
	for i := range m.Transactions {
		tx := NewTransaction()
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		m.Transactions[i] = tx
	}
	return nil
}

// SerializeSize returns the number of bytes Serialize would write.
func (m *MsgBlock) SerializeSize() int {
	n := m.Header.SerializeSize()
	n += VarIntSerializeSize(uint64(len(m.Transactions)))
	for _, tx := range m.Transactions {
		n += tx.SerializeSize()
	}
	return n
}
