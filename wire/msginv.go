// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/hash"
)

// maxInvPerMessage bounds the number of inventory vectors a single inv,
// getdata, or notfound message may carry.
const maxInvPerMessage = 50000

// InvType identifies what an InvVect refers to.
type InvType uint32

// Defined inventory types.
const (
	InvTypeError InvType = iota
	InvTypeTx
	InvTypeBlock
	InvTypeFilteredBlock
)

// InvVect is a single entry of an inventory announcement: a type tag plus
// the hash of the block or transaction being announced.
type InvVect struct {
	Type InvType
	Hash hash.Hash256
}

func (iv *InvVect) serialize(w io.Writer) error {
	return writeElements(w, iv.Type, iv.Hash)
}

func (iv *InvVect) deserialize(r io.Reader) error {
	return readElements(r, &iv.Type, &iv.Hash)
}

func serializeInvList(w io.Writer, list []*InvVect) error {
	if err := WriteVarInt(w, uint64(len(list))); err != nil {
		return err
	}
	for _, iv := range list {
		if err := iv.serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func deserializeInvList(r io.Reader) ([]*InvVect, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxInvPerMessage {
		return nil, errors.Errorf("too many inventory vectors [count %d, max %d]", count, maxInvPerMessage)
	}
	list := make([]*InvVect, count)
	for i := range list {
		iv := &InvVect{}
		if err := iv.deserialize(r); err != nil {
			return nil, err
		}
		list[i] = iv
	}
	return list, nil
}

// MsgInv announces blocks or transactions a peer has available.
type MsgInv struct {
	InvList []*InvVect
}

// Command returns the protocol command string.
func (m *MsgInv) Command() string { return CmdInv }

// AddInvVect appends an entry to the announcement.
func (m *MsgInv) AddInvVect(iv *InvVect) { m.InvList = append(m.InvList, iv) }

// Serialize encodes the payload to w.
func (m *MsgInv) Serialize(w io.Writer) error { return serializeInvList(w, m.InvList) }

// Deserialize decodes the payload from r.
func (m *MsgInv) Deserialize(r io.Reader) error {
	list, err := deserializeInvList(r)
	if err != nil {
		return err
	}
	m.InvList = list
	return nil
}

// MsgGetData requests the full blocks or transactions named by InvList,
// typically in response to an MsgInv announcement.
type MsgGetData struct {
	InvList []*InvVect
}

// Command returns the protocol command string.
func (m *MsgGetData) Command() string { return CmdGetData }

// AddInvVect appends a requested item.
func (m *MsgGetData) AddInvVect(iv *InvVect) { m.InvList = append(m.InvList, iv) }

// Serialize encodes the payload to w.
func (m *MsgGetData) Serialize(w io.Writer) error { return serializeInvList(w, m.InvList) }

// Deserialize decodes the payload from r.
func (m *MsgGetData) Deserialize(r io.Reader) error {
	list, err := deserializeInvList(r)
	if err != nil {
		return err
	}
	m.InvList = list
	return nil
}

// MsgNotFound answers a getdata for items the responder could not supply.
type MsgNotFound struct {
	InvList []*InvVect
}

// Command returns the protocol command string.
func (m *MsgNotFound) Command() string { return CmdNotFound }

// AddInvVect appends an unavailable item.
func (m *MsgNotFound) AddInvVect(iv *InvVect) { m.InvList = append(m.InvList, iv) }

// Serialize encodes the payload to w.
func (m *MsgNotFound) Serialize(w io.Writer) error { return serializeInvList(w, m.InvList) }

// Deserialize decodes the payload from r.
func (m *MsgNotFound) Deserialize(r io.Reader) error {
	list, err := deserializeInvList(r)
	if err != nil {
		return err
	}
	m.InvList = list
	return nil
}
