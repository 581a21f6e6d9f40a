// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/hash"
)

// MaxBlockLocatorsPerMessage caps the number of locator hashes a
// getblocks/getheaders request may carry.
const MaxBlockLocatorsPerMessage = 500

// MaxBlocksPerGetBlocks is the number of hashes a getblocks reply returns.
const MaxBlocksPerGetBlocks = 500

// MaxHeadersPerMessage is the number of headers a headers reply returns.
const MaxHeadersPerMessage = 2000

func serializeLocator(w io.Writer, locator []hash.Hash256, stop hash.Hash256) error {
	if err := WriteVarInt(w, uint64(len(locator))); err != nil {
		return err
	}
	for _, h := range locator {
		if err := WriteElement(w, h); err != nil {
			return err
		}
	}
	return WriteElement(w, stop)
}

func deserializeLocator(r io.Reader) (locator []hash.Hash256, stop hash.Hash256, err error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, stop, err
	}
	if count > MaxBlockLocatorsPerMessage {
		return nil, stop, errors.Errorf("too many locator hashes [count %d, max %d]", count, MaxBlockLocatorsPerMessage)
	}
	locator = make([]hash.Hash256, count)
	for i := range locator {
		if err := ReadElement(r, &locator[i]); err != nil {
			return nil, stop, err
		}
	}
	if err := ReadElement(r, &stop); err != nil {
		return nil, stop, err
	}
	return locator, stop, nil
}

// MsgGetBlocks requests the block hashes between the sender's locator and
// stop hash, used to drive legacy (non-headers-first) sync and relay.
type MsgGetBlocks struct {
	BlockLocatorHashes []hash.Hash256
	HashStop           hash.Hash256
}

// Command returns the protocol command string.
func (m *MsgGetBlocks) Command() string { return CmdGetBlocks }

// Serialize encodes the payload to w.
func (m *MsgGetBlocks) Serialize(w io.Writer) error {
	return serializeLocator(w, m.BlockLocatorHashes, m.HashStop)
}

// Deserialize decodes the payload from r.
func (m *MsgGetBlocks) Deserialize(r io.Reader) error {
	locator, stop, err := deserializeLocator(r)
	if err != nil {
		return err
	}
	m.BlockLocatorHashes = locator
	m.HashStop = stop
	return nil
}

// MsgGetHeaders requests headers following the sender's locator, the core of
// headers-first synchronization.
type MsgGetHeaders struct {
	BlockLocatorHashes []hash.Hash256
	HashStop           hash.Hash256
}

// Command returns the protocol command string.
func (m *MsgGetHeaders) Command() string { return CmdGetHeaders }

// Serialize encodes the payload to w.
func (m *MsgGetHeaders) Serialize(w io.Writer) error {
	return serializeLocator(w, m.BlockLocatorHashes, m.HashStop)
}

// Deserialize decodes the payload from r.
func (m *MsgGetHeaders) Deserialize(r io.Reader) error {
	locator, stop, err := deserializeLocator(r)
	if err != nil {
		return err
	}
	m.BlockLocatorHashes = locator
	m.HashStop = stop
	return nil
}

// MsgHeaders carries a batch of block headers, each paired with a zero
// transaction count as historically required by the wire format.
type MsgHeaders struct {
	Headers []*BlockHeader
}

// Command returns the protocol command string.
func (m *MsgHeaders) Command() string { return CmdHeaders }

// AddBlockHeader appends a header to the batch.
func (m *MsgHeaders) AddBlockHeader(h *BlockHeader) { m.Headers = append(m.Headers, h) }

// Serialize encodes the payload to w.
func (m *MsgHeaders) Serialize(w io.Writer) error {
	if err := WriteVarInt(w, uint64(len(m.Headers))); err != nil {
		return err
	}
	for _, h := range m.Headers {
		if err := h.Serialize(w); err != nil {
			return err
		}
		// Trailing zero tx count, historically for shared header/block codec.
		if err := WriteVarInt(w, 0); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize decodes the payload from r.
func (m *MsgHeaders) Deserialize(r io.Reader) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxHeadersPerMessage {
		return errors.Errorf("too many headers [count %d, max %d]", count, MaxHeadersPerMessage)
	}
	m.Headers = make([]*BlockHeader, count)
	for i := range m.Headers {
		h := &BlockHeader{}
		if err := h.Deserialize(r); err != nil {
			return err
		}
		if _, err := ReadVarInt(r); err != nil {
			return err
		}
		m.Headers[i] = h
	}
	return nil
}
