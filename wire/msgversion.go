// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// ProtocolVersion is the version of the protocol this package speaks.
const ProtocolVersion uint32 = 70016

// ServiceFlag represents the services a peer advertises in its version
// handshake.
type ServiceFlag uint64

// Defined service flags.
const (
	SFNodeNetwork ServiceFlag = 1 << iota
	SFNodeBloom
)

// MsgVersion implements the version handshake payload: protocol version,
// advertised services, and the height the peer claims to have.
type MsgVersion struct {
	ProtocolVersion uint32
	Services        ServiceFlag
	Timestamp       int64
	Nonce           uint64
	UserAgent       string
	StartHeight     int32
	RelayTx         bool
}

// Command returns the protocol command string.
func (m *MsgVersion) Command() string { return CmdVersion }

// Serialize encodes the payload to w.
func (m *MsgVersion) Serialize(w io.Writer) error {
	if err := writeElements(w, m.ProtocolVersion, m.Services, m.Timestamp, m.Nonce); err != nil {
		return err
	}
	if err := WriteVarString(w, m.UserAgent); err != nil {
		return err
	}
	return writeElements(w, m.StartHeight, m.RelayTx)
}

// Deserialize decodes the payload from r.
func (m *MsgVersion) Deserialize(r io.Reader) error {
	if err := readElements(r, &m.ProtocolVersion, &m.Services, &m.Timestamp, &m.Nonce); err != nil {
		return err
	}
	userAgent, err := ReadVarString(r)
	if err != nil {
		return err
	}
	m.UserAgent = userAgent
	return readElements(r, &m.StartHeight, &m.RelayTx)
}

// ReadVarString reads a var-int length-prefixed UTF-8 string.
func ReadVarString(r io.Reader) (string, error) {
	b, err := ReadVarBytes(r, MaxMessagePayload, "var string")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteVarString serializes str as a var-int length-prefixed string.
func WriteVarString(w io.Writer, str string) error {
	return WriteVarBytes(w, []byte(str))
}

// MsgVerAck acknowledges a version handshake. It has no payload.
type MsgVerAck struct{}

// Command returns the protocol command string.
func (m *MsgVerAck) Command() string { return CmdVerAck }

// Serialize is a no-op: verack carries no payload.
func (m *MsgVerAck) Serialize(w io.Writer) error { return nil }

// Deserialize is a no-op: verack carries no payload.
func (m *MsgVerAck) Deserialize(r io.Reader) error { return nil }
