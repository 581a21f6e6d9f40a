// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the Bitcoin peer-to-peer wire encoding: the
// little-endian primitive codec, the var-int length prefix, and the message
// envelope and payload types the core consumes (version, verack, ping/pong,
// inv, getdata, getblocks, getheaders, headers, block, tx, notfound, mempool,
// filterload/filteradd/filterclear, merkleblock, reject, plus the thin
// addr/sendheaders/feefilter/sendcmpct/cmpctblock/getblocktxn/blocktxn
// passthroughs the server schedules but does not interpret).
//
// Socket framing, handshake sequencing, and magic/command dispatch are the
// transport layer's job; this package only (de)serializes payloads.
package wire

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/hash"
)

// MaxVarIntPayload is the maximum payload size for a variable length integer.
const MaxVarIntPayload = 9

// MaxMessagePayload is the maximum payload size for any wire message,
// matching Bitcoin's historical 32 MiB ceiling. It bounds the var-int reads
// below so a malformed length field cannot force unbounded allocation.
const MaxMessagePayload = 32 * 1024 * 1024

var littleEndian = binary.LittleEndian

// errNonCanonicalVarInt is the common format string used for non-canonically
// encoded variable length integer errors.
const errNonCanonicalVarInt = "non-canonical varint %x - discriminant %x must encode a value greater than %x"

// ReadElement reads the next sequence of bytes from r using little endian
// depending on the concrete type of element pointed to.
func ReadElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *int32:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = int32(littleEndian.Uint32(buf[:]))
		return nil

	case *uint32:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = littleEndian.Uint32(buf[:])
		return nil

	case *int64:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = int64(littleEndian.Uint64(buf[:]))
		return nil

	case *uint64:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = littleEndian.Uint64(buf[:])
		return nil

	case *uint16:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = littleEndian.Uint16(buf[:])
		return nil

	case *uint8:
		var buf [1]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = buf[0]
		return nil

	case *bool:
		var buf [1]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = buf[0] != 0x00
		return nil

	case *[4]byte:
		_, err := io.ReadFull(r, e[:])
		return err

	case *[CommandSize]byte:
		_, err := io.ReadFull(r, e[:])
		return err

	case *hash.Hash256:
		_, err := io.ReadFull(r, e[:])
		return err
	}

	return binary.Read(r, littleEndian, element)
}

// readElements reads multiple items from r.
func readElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		if err := ReadElement(r, element); err != nil {
			return err
		}
	}
	return nil
}

// WriteElement writes the little endian representation of element to w.
func WriteElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case int32:
		var buf [4]byte
		littleEndian.PutUint32(buf[:], uint32(e))
		_, err := w.Write(buf[:])
		return err

	case uint32:
		var buf [4]byte
		littleEndian.PutUint32(buf[:], e)
		_, err := w.Write(buf[:])
		return err

	case int64:
		var buf [8]byte
		littleEndian.PutUint64(buf[:], uint64(e))
		_, err := w.Write(buf[:])
		return err

	case uint64:
		var buf [8]byte
		littleEndian.PutUint64(buf[:], e)
		_, err := w.Write(buf[:])
		return err

	case uint16:
		var buf [2]byte
		littleEndian.PutUint16(buf[:], e)
		_, err := w.Write(buf[:])
		return err

	case uint8:
		_, err := w.Write([]byte{e})
		return err

	case bool:
		var b byte
		if e {
			b = 0x01
		}
		_, err := w.Write([]byte{b})
		return err

	case [4]byte:
		_, err := w.Write(e[:])
		return err

	case [CommandSize]byte:
		_, err := w.Write(e[:])
		return err

	case hash.Hash256:
		_, err := w.Write(e[:])
		return err
	}

	return binary.Write(w, littleEndian, element)
}

// writeElements writes multiple items to w.
func writeElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		if err := WriteElement(w, element); err != nil {
			return err
		}
	}
	return nil
}

// ReadVarInt reads a variable length integer from r and returns it as a uint64.
func ReadVarInt(r io.Reader) (uint64, error) {
	var discriminant uint8
	if err := ReadElement(r, &discriminant); err != nil {
		return 0, err
	}

	var rv uint64
	switch discriminant {
	case 0xff:
		var v uint64
		if err := ReadElement(r, &v); err != nil {
			return 0, err
		}
		rv = v
		const min = uint64(0x100000000)
		if rv < min {
			return 0, errors.Errorf(errNonCanonicalVarInt, rv, discriminant, min)
		}

	case 0xfe:
		var v uint32
		if err := ReadElement(r, &v); err != nil {
			return 0, err
		}
		rv = uint64(v)
		const min = uint64(0x10000)
		if rv < min {
			return 0, errors.Errorf(errNonCanonicalVarInt, rv, discriminant, min)
		}

	case 0xfd:
		var v uint16
		if err := ReadElement(r, &v); err != nil {
			return 0, err
		}
		rv = uint64(v)
		const min = uint64(0xfd)
		if rv < min {
			return 0, errors.Errorf(errNonCanonicalVarInt, rv, discriminant, min)
		}

	default:
		rv = uint64(discriminant)
	}

	return rv, nil
}

// WriteVarInt serializes val to w using a variable number of bytes depending
// on its value.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		return WriteElement(w, uint8(val))
	}
	if val <= math.MaxUint16 {
		if err := WriteElement(w, uint8(0xfd)); err != nil {
			return err
		}
		return WriteElement(w, uint16(val))
	}
	if val <= math.MaxUint32 {
		if err := WriteElement(w, uint8(0xfe)); err != nil {
			return err
		}
		return WriteElement(w, uint32(val))
	}
	if err := WriteElement(w, uint8(0xff)); err != nil {
		return err
	}
	return WriteElement(w, val)
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= math.MaxUint16:
		return 3
	case val <= math.MaxUint32:
		return 5
	default:
		return 9
	}
}

// ReadVarBytes reads a variable length byte array: a var-int length prefix
// followed by that many bytes. maxAllowed guards against memory-exhaustion
// from a malformed length field.
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		return nil, errors.Errorf("%s is larger than the max allowed size [count %d, max %d]",
			fieldName, count, maxAllowed)
	}
	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes serializes a variable length byte array to w as a var-int
// length prefix followed by the bytes themselves.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}
