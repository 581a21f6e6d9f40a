// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgPing implements a keep-alive / latency probe. The responder echoes the
// nonce back in a pong.
type MsgPing struct {
	Nonce uint64
}

// Command returns the protocol command string.
func (m *MsgPing) Command() string { return CmdPing }

// Serialize encodes the payload to w.
func (m *MsgPing) Serialize(w io.Writer) error { return WriteElement(w, m.Nonce) }

// Deserialize decodes the payload from r.
func (m *MsgPing) Deserialize(r io.Reader) error { return ReadElement(r, &m.Nonce) }

// MsgPong answers a ping, echoing its nonce.
type MsgPong struct {
	Nonce uint64
}

// Command returns the protocol command string.
func (m *MsgPong) Command() string { return CmdPong }

// Serialize encodes the payload to w.
func (m *MsgPong) Serialize(w io.Writer) error { return WriteElement(w, m.Nonce) }

// Deserialize decodes the payload from r.
func (m *MsgPong) Deserialize(r io.Reader) error { return ReadElement(r, &m.Nonce) }
