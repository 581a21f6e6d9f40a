package utxo

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Serialize encodes the transaction meta record: block height, coinbase
// flag, then one (spent-bit, amount, var-len script) triple per output.
func (m *TransactionMeta) Serialize() []byte {
	buf := make([]byte, 0, 64)
	var head [5]byte
	binary.LittleEndian.PutUint32(head[:4], m.BlockHeight)
	if m.IsCoinbase {
		head[4] = 1
	}
	buf = append(buf, head[:]...)

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(m.SpentOutputs)))
	buf = append(buf, countBuf[:]...)

	for i := range m.SpentOutputs {
		var entry [9]byte
		if m.SpentOutputs[i] {
			entry[0] = 1
		}
		binary.LittleEndian.PutUint64(entry[1:], m.OutputAmounts[i])
		buf = append(buf, entry[:]...)

		var scriptLen [4]byte
		binary.LittleEndian.PutUint32(scriptLen[:], uint32(len(m.OutputScripts[i])))
		buf = append(buf, scriptLen[:]...)
		buf = append(buf, m.OutputScripts[i]...)
	}
	return buf
}

// Deserialize decodes a TransactionMeta from the bytes Serialize produced.
func Deserialize(data []byte) (*TransactionMeta, error) {
	if len(data) < 9 {
		return nil, errors.New("transaction meta record too short")
	}
	m := &TransactionMeta{
		BlockHeight: binary.LittleEndian.Uint32(data[:4]),
		IsCoinbase:  data[4] != 0,
	}
	count := binary.LittleEndian.Uint32(data[5:9])
	offset := 9

	m.SpentOutputs = make([]bool, count)
	m.OutputAmounts = make([]uint64, count)
	m.OutputScripts = make([][]byte, count)

	for i := uint32(0); i < count; i++ {
		if offset+9 > len(data) {
			return nil, errors.New("transaction meta record truncated")
		}
		m.SpentOutputs[i] = data[offset] != 0
		m.OutputAmounts[i] = binary.LittleEndian.Uint64(data[offset+1 : offset+9])
		offset += 9

		if offset+4 > len(data) {
			return nil, errors.New("transaction meta record truncated")
		}
		scriptLen := binary.LittleEndian.Uint32(data[offset : offset+4])
		offset += 4
		if offset+int(scriptLen) > len(data) {
			return nil, errors.New("transaction meta record truncated")
		}
		m.OutputScripts[i] = append([]byte{}, data[offset:offset+int(scriptLen)]...)
		offset += int(scriptLen)
	}
	return m, nil
}
