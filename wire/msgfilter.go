// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/pkg/errors"
)

// MaxFilterLoadFilterSize is BIP37's cap on a relay bloom filter's size, in
// bytes.
const MaxFilterLoadFilterSize = 36000

// MaxFilterLoadHashFuncs is BIP37's cap on the number of hash functions a
// relay bloom filter may use.
const MaxFilterLoadHashFuncs = 50

// MaxFilterAddDataSize bounds a single filteradd element.
const MaxFilterAddDataSize = 520

// BloomUpdateType controls how a relay filter is updated on a match, per
// BIP37.
type BloomUpdateType uint8

// Defined update types.
const (
	BloomUpdateNone BloomUpdateType = iota
	BloomUpdateAll
	BloomUpdateP2PubkeyOnly
)

// MsgFilterLoad installs a relay bloom filter on the connection, per BIP37.
type MsgFilterLoad struct {
	Filter    []byte
	HashFuncs uint32
	Tweak     uint32
	Flags     BloomUpdateType
}

// Command returns the protocol command string.
func (m *MsgFilterLoad) Command() string { return CmdFilterLoad }

// Serialize encodes the payload to w.
func (m *MsgFilterLoad) Serialize(w io.Writer) error {
	if err := WriteVarBytes(w, m.Filter); err != nil {
		return err
	}
	if err := writeElements(w, m.HashFuncs, m.Tweak); err != nil {
		return err
	}
	return WriteElement(w, uint8(m.Flags))
}

// Deserialize decodes the payload from r.
func (m *MsgFilterLoad) Deserialize(r io.Reader) error {
	filter, err := ReadVarBytes(r, MaxFilterLoadFilterSize, "filterload filter")
	if err != nil {
		return err
	}
	m.Filter = filter
	if err := readElements(r, &m.HashFuncs, &m.Tweak); err != nil {
		return err
	}
	if m.HashFuncs > MaxFilterLoadHashFuncs {
		return errors.Errorf("too many filterload hash functions [count %d, max %d]", m.HashFuncs, MaxFilterLoadHashFuncs)
	}
	var flags uint8
	if err := ReadElement(r, &flags); err != nil {
		return err
	}
	m.Flags = BloomUpdateType(flags)
	return nil
}

// MsgFilterAdd adds a single data element to an already-loaded relay filter.
type MsgFilterAdd struct {
	Data []byte
}

// Command returns the protocol command string.
func (m *MsgFilterAdd) Command() string { return CmdFilterAdd }

// Serialize encodes the payload to w.
func (m *MsgFilterAdd) Serialize(w io.Writer) error { return WriteVarBytes(w, m.Data) }

// Deserialize decodes the payload from r.
func (m *MsgFilterAdd) Deserialize(r io.Reader) error {
	data, err := ReadVarBytes(r, MaxFilterAddDataSize, "filteradd data")
	if err != nil {
		return err
	}
	m.Data = data
	return nil
}

// MsgFilterClear removes a connection's relay filter, reverting to
// unfiltered relay. It has no payload.
type MsgFilterClear struct{}

// Command returns the protocol command string.
func (m *MsgFilterClear) Command() string { return CmdFilterClear }

// Serialize is a no-op.
func (m *MsgFilterClear) Serialize(w io.Writer) error { return nil }

// Deserialize is a no-op.
func (m *MsgFilterClear) Deserialize(r io.Reader) error { return nil }

// MsgMerkleBlock carries a block header plus a partial merkle branch proving
// which transactions (matched by a peer's relay filter) are included, per
// BIP37.
type MsgMerkleBlock struct {
	Header       BlockHeader
	Transactions uint32
	Hashes       [][32]byte
	Flags        []byte
}

// Command returns the protocol command string.
func (m *MsgMerkleBlock) Command() string { return CmdMerkleBlock }

// Serialize encodes the payload to w.
func (m *MsgMerkleBlock) Serialize(w io.Writer) error {
	if err := m.Header.Serialize(w); err != nil {
		return err
	}
	if err := WriteElement(w, m.Transactions); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(m.Hashes))); err != nil {
		return err
	}
	for _, h := range m.Hashes {
		if _, err := w.Write(h[:]); err != nil {
			return err
		}
	}
	return WriteVarBytes(w, m.Flags)
}

// Deserialize decodes the payload from r.
func (m *MsgMerkleBlock) Deserialize(r io.Reader) error {
	if err := m.Header.Deserialize(r); err != nil {
		return err
	}
	if err := ReadElement(r, &m.Transactions); err != nil {
		return err
	}
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	m.Hashes = make([][32]byte, count)
	for i := range m.Hashes {
		if _, err := io.ReadFull(r, m.Hashes[i][:]); err != nil {
			return err
		}
	}
	flags, err := ReadVarBytes(r, MaxMessagePayload, "merkleblock flags")
	if err != nil {
		return err
	}
	m.Flags = flags
	return nil
}
