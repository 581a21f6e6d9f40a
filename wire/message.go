// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/hash"
)

// CommandSize is the fixed width, in bytes, of a message's command field.
const CommandSize = 12

// HeaderSize is the number of bytes in a message envelope header:
// magic(4) + command(12) + length(4) + checksum(4).
const HeaderSize = 4 + CommandSize + 4 + 4

// BitcoinNet represents which network a message belongs to.
type BitcoinNet uint32

// Network magic values, identifying the four bytes that prefix every message.
const (
	MainNet    BitcoinNet = 0xf9beb4d9
	TestNet3   BitcoinNet = 0x0b110907
	RegTestNet BitcoinNet = 0xfabfb5da
)

// Command strings for the messages the core ingests or emits. Framing,
// handshake sequencing, and dispatch by command live in the transport layer;
// this package only names and (de)serializes the payloads.
const (
	CmdVersion      = "version"
	CmdVerAck       = "verack"
	CmdPing         = "ping"
	CmdPong         = "pong"
	CmdInv          = "inv"
	CmdGetData      = "getdata"
	CmdGetBlocks    = "getblocks"
	CmdGetHeaders   = "getheaders"
	CmdHeaders      = "headers"
	CmdBlock        = "block"
	CmdTx           = "tx"
	CmdNotFound     = "notfound"
	CmdMemPool      = "mempool"
	CmdFilterLoad   = "filterload"
	CmdFilterAdd    = "filteradd"
	CmdFilterClear  = "filterclear"
	CmdMerkleBlock  = "merkleblock"
	CmdSendHeaders  = "sendheaders"
	CmdFeeFilter    = "feefilter"
	CmdSendCmpct    = "sendcmpct"
	CmdCmpctBlock   = "cmpctblock"
	CmdGetBlockTxn  = "getblocktxn"
	CmdBlockTxn     = "blocktxn"
	CmdAddr         = "addr"
	CmdGetAddr      = "getaddr"
	CmdReject       = "reject"
)

// Message is implemented by every payload type the core exchanges. The
// transport layer wraps a Message's encoded bytes in a MessageHeader to
// produce the bytes that actually cross the wire.
type Message interface {
	Command() string
	Serialize(w io.Writer) error
	Deserialize(r io.Reader) error
}

// MessageHeader is the fixed-size envelope prefixing every message payload.
type MessageHeader struct {
	Magic    BitcoinNet
	Command  string
	Length   uint32
	Checksum [4]byte
}

// ChecksumPayload computes the 4-byte checksum (leading bytes of the double
// SHA-256 of the payload) carried in a message header.
func ChecksumPayload(payload []byte) [4]byte {
	digest := hash.DoubleHash(payload)
	var checksum [4]byte
	copy(checksum[:], digest[:4])
	return checksum
}

// WriteMessageHeader serializes a message envelope header to w.
func WriteMessageHeader(w io.Writer, net BitcoinNet, command string, payload []byte) error {
	if len(command) > CommandSize {
		return errors.Errorf("command %q exceeds max command size %d", command, CommandSize)
	}
	var commandBytes [CommandSize]byte
	copy(commandBytes[:], command)

	checksum := ChecksumPayload(payload)
	return writeElements(w, net, commandBytes, uint32(len(payload)), checksum)
}

// ReadMessageHeader decodes a message envelope header from r.
func ReadMessageHeader(r io.Reader) (*MessageHeader, error) {
	var net BitcoinNet
	var commandBytes [CommandSize]byte
	var length uint32
	var checksum [4]byte
	if err := readElements(r, &net, &commandBytes, &length, &checksum); err != nil {
		return nil, err
	}
	if length > MaxMessagePayload {
		return nil, errors.Errorf("message payload too large [len %d, max %d]", length, MaxMessagePayload)
	}
	return &MessageHeader{
		Magic:    net,
		Command:  commandString(commandBytes),
		Length:   length,
		Checksum: checksum,
	}, nil
}

func commandString(b [CommandSize]byte) string {
	end := bytes.IndexByte(b[:], 0)
	if end < 0 {
		end = CommandSize
	}
	return string(b[:end])
}

// EncodeMessage serializes a full message envelope (header + payload) to w.
func EncodeMessage(w io.Writer, net BitcoinNet, msg Message) error {
	var payloadBuf bytes.Buffer
	if err := msg.Serialize(&payloadBuf); err != nil {
		return errors.Wrap(err, "failed to serialize message payload")
	}
	if err := WriteMessageHeader(w, net, msg.Command(), payloadBuf.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(payloadBuf.Bytes())
	return err
}

// MakeEmptyMessage creates a zero-value Message for the given command string,
// so a generic read loop can decode a header, look up the concrete payload
// type by its command, and Deserialize into it.
func MakeEmptyMessage(command string) (Message, error) {
	switch command {
	case CmdVersion:
		return &MsgVersion{}, nil
	case CmdVerAck:
		return &MsgVerAck{}, nil
	case CmdPing:
		return &MsgPing{}, nil
	case CmdPong:
		return &MsgPong{}, nil
	case CmdInv:
		return &MsgInv{}, nil
	case CmdGetData:
		return &MsgGetData{}, nil
	case CmdGetBlocks:
		return &MsgGetBlocks{}, nil
	case CmdGetHeaders:
		return &MsgGetHeaders{}, nil
	case CmdHeaders:
		return &MsgHeaders{}, nil
	case CmdBlock:
		return &MsgBlock{}, nil
	case CmdTx:
		return &MsgTx{}, nil
	case CmdNotFound:
		return &MsgNotFound{}, nil
	case CmdMemPool:
		return &MsgMemPool{}, nil
	case CmdFilterLoad:
		return &MsgFilterLoad{}, nil
	case CmdFilterAdd:
		return &MsgFilterAdd{}, nil
	case CmdFilterClear:
		return &MsgFilterClear{}, nil
	case CmdMerkleBlock:
		return &MsgMerkleBlock{}, nil
	case CmdSendHeaders:
		return &MsgSendHeaders{}, nil
	case CmdFeeFilter:
		return &MsgFeeFilter{}, nil
	case CmdSendCmpct:
		return &MsgSendCmpct{}, nil
	case CmdCmpctBlock:
		return &MsgCmpctBlock{}, nil
	case CmdGetBlockTxn:
		return &MsgGetBlockTxn{}, nil
	case CmdBlockTxn:
		return &MsgBlockTxn{}, nil
	case CmdAddr:
		return &MsgAddr{}, nil
	case CmdGetAddr:
		return &MsgGetAddr{}, nil
	case CmdReject:
		return &MsgReject{}, nil
	default:
		return nil, errors.Errorf("unrecognized command %q", command)
	}
}

// ReadMessage decodes a full message envelope (header + payload) from r,
// verifying the network magic and payload checksum before returning the
// decoded Message.
func ReadMessage(r io.Reader, net BitcoinNet) (Message, error) {
	hdr, err := ReadMessageHeader(r)
	if err != nil {
		return nil, err
	}
	if hdr.Magic != net {
		return nil, errors.Errorf("message from network %08x, want %08x", hdr.Magic, net)
	}

	payload := make([]byte, hdr.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrap(err, "failed to read message payload")
	}
	if checksum := ChecksumPayload(payload); checksum != hdr.Checksum {
		return nil, errors.Errorf("checksum mismatch for command %q", hdr.Command)
	}

	msg, err := MakeEmptyMessage(hdr.Command)
	if err != nil {
		return nil, err
	}
	if err := msg.Deserialize(bytes.NewReader(payload)); err != nil {
		return nil, errors.Wrapf(err, "failed to deserialize %q payload", hdr.Command)
	}
	return msg, nil
}
