// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgTx wraps Transaction so it satisfies Message for standalone relay (as
// opposed to embedded inside a MsgBlock).
type MsgTx struct {
	Transaction
}

// Command returns the protocol command string.
func (m *MsgTx) Command() string { return CmdTx }

// MsgMemPool requests an inv of the responder's mempool contents. It has no
// payload.
type MsgMemPool struct{}

// Command returns the protocol command string.
func (m *MsgMemPool) Command() string { return CmdMemPool }

// Serialize is a no-op: mempool carries no payload.
func (m *MsgMemPool) Serialize(w io.Writer) error { return nil }

// Deserialize is a no-op: mempool carries no payload.
func (m *MsgMemPool) Deserialize(r io.Reader) error { return nil }

// RejectCode enumerates why a peer rejected a message.
type RejectCode uint8

// Defined reject codes.
const (
	RejectMalformed       RejectCode = 0x01
	RejectInvalid         RejectCode = 0x10
	RejectObsolete        RejectCode = 0x11
	RejectDuplicate       RejectCode = 0x12
	RejectNonStandard     RejectCode = 0x40
	RejectInsufficientFee RejectCode = 0x42
	RejectCheckpoint      RejectCode = 0x43
)

// MsgReject notifies a peer that a previously sent message was rejected, and
// why.
type MsgReject struct {
	Cmd    string
	Code   RejectCode
	Reason string
	Hash   [32]byte
}

// Command returns the protocol command string.
func (m *MsgReject) Command() string { return CmdReject }

// Serialize encodes the payload to w.
func (m *MsgReject) Serialize(w io.Writer) error {
	if err := WriteVarString(w, m.Cmd); err != nil {
		return err
	}
	if err := WriteElement(w, uint8(m.Code)); err != nil {
		return err
	}
	if err := WriteVarString(w, m.Reason); err != nil {
		return err
	}
	if m.Cmd == CmdBlock || m.Cmd == CmdTx {
		_, err := w.Write(m.Hash[:])
		return err
	}
	return nil
}

// Deserialize decodes the payload from r.
func (m *MsgReject) Deserialize(r io.Reader) error {
	cmd, err := ReadVarString(r)
	if err != nil {
		return err
	}
	m.Cmd = cmd
	var code uint8
	if err := ReadElement(r, &code); err != nil {
		return err
	}
	m.Code = RejectCode(code)
	reason, err := ReadVarString(r)
	if err != nil {
		return err
	}
	m.Reason = reason
	if m.Cmd == CmdBlock || m.Cmd == CmdTx {
		if _, err := io.ReadFull(r, m.Hash[:]); err != nil {
			return err
		}
	}
	return nil
}

// MsgSendHeaders requests that new blocks be announced via headers rather
// than inv. It has no payload.
type MsgSendHeaders struct{}

// Command returns the protocol command string.
func (m *MsgSendHeaders) Command() string { return CmdSendHeaders }

// Serialize is a no-op.
func (m *MsgSendHeaders) Serialize(w io.Writer) error { return nil }

// Deserialize is a no-op.
func (m *MsgSendHeaders) Deserialize(r io.Reader) error { return nil }

// MsgFeeFilter informs a peer of the minimum fee rate (satoshi per 1000
// bytes) transactions must meet before being relayed to the sender.
type MsgFeeFilter struct {
	MinFeeRate int64
}

// Command returns the protocol command string.
func (m *MsgFeeFilter) Command() string { return CmdFeeFilter }

// Serialize encodes the payload to w.
func (m *MsgFeeFilter) Serialize(w io.Writer) error { return WriteElement(w, m.MinFeeRate) }

// Deserialize decodes the payload from r.
func (m *MsgFeeFilter) Deserialize(r io.Reader) error { return ReadElement(r, &m.MinFeeRate) }

// MsgAddr relays known peer addresses. Address entry encoding is owned by the
// transport layer; the core only schedules the response, so the payload is
// carried opaquely here.
type MsgAddr struct {
	Raw []byte
}

// Command returns the protocol command string.
func (m *MsgAddr) Command() string { return CmdAddr }

// Serialize encodes the payload to w.
func (m *MsgAddr) Serialize(w io.Writer) error { _, err := w.Write(m.Raw); return err }

// Deserialize decodes the payload from r.
func (m *MsgAddr) Deserialize(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.Raw = raw
	return nil
}

// MsgGetAddr requests known peer addresses. It has no payload.
type MsgGetAddr struct{}

// Command returns the protocol command string.
func (m *MsgGetAddr) Command() string { return CmdGetAddr }

// Serialize is a no-op.
func (m *MsgGetAddr) Serialize(w io.Writer) error { return nil }

// Deserialize is a no-op.
func (m *MsgGetAddr) Deserialize(r io.Reader) error { return nil }

// MsgSendCmpct negotiates BIP152 compact block relay. The core does not
// evaluate compact blocks itself (it consumes full blocks only), so this
// type exists to be recognized and acknowledged, not acted on.
type MsgSendCmpct struct {
	Announce bool
	Version  uint64
}

// Command returns the protocol command string.
func (m *MsgSendCmpct) Command() string { return CmdSendCmpct }

// Serialize encodes the payload to w.
func (m *MsgSendCmpct) Serialize(w io.Writer) error {
	return writeElements(w, m.Announce, m.Version)
}

// Deserialize decodes the payload from r.
func (m *MsgSendCmpct) Deserialize(r io.Reader) error {
	return readElements(r, &m.Announce, &m.Version)
}

// MsgCmpctBlock, MsgGetBlockTxn, and MsgBlockTxn are recognized but not
// interpreted: the core's synchronization client always falls back to
// requesting the full block via getdata rather than reconstructing from a
// compact block, so these carry their payload opaquely for a future
// implementer to pick up (see DESIGN.md).
type MsgCmpctBlock struct{ Raw []byte }

// Command returns the protocol command string.
func (m *MsgCmpctBlock) Command() string { return CmdCmpctBlock }

// Serialize encodes the payload to w.
func (m *MsgCmpctBlock) Serialize(w io.Writer) error { _, err := w.Write(m.Raw); return err }

// Deserialize decodes the payload from r.
func (m *MsgCmpctBlock) Deserialize(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.Raw = raw
	return nil
}

// MsgGetBlockTxn requests specific transactions missing from a compact block.
type MsgGetBlockTxn struct{ Raw []byte }

// Command returns the protocol command string.
func (m *MsgGetBlockTxn) Command() string { return CmdGetBlockTxn }

// Serialize encodes the payload to w.
func (m *MsgGetBlockTxn) Serialize(w io.Writer) error { _, err := w.Write(m.Raw); return err }

// Deserialize decodes the payload from r.
func (m *MsgGetBlockTxn) Deserialize(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.Raw = raw
	return nil
}

// MsgBlockTxn answers a MsgGetBlockTxn with the requested transactions.
type MsgBlockTxn struct{ Raw []byte }

// Command returns the protocol command string.
func (m *MsgBlockTxn) Command() string { return CmdBlockTxn }

// Serialize encodes the payload to w.
func (m *MsgBlockTxn) Serialize(w io.Writer) error { _, err := w.Write(m.Raw); return err }

// Deserialize decodes the payload from r.
func (m *MsgBlockTxn) Deserialize(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.Raw = raw
	return nil
}
