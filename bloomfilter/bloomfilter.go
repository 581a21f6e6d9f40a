// Package bloomfilter implements a per-peer BIP37 relay filter: a bit
// vector tested and updated by N independent hash functions, generalized
// from the teacher's sp.filter usage in server/p2p/on_filter_add.go
// (filter.IsLoaded(), filter.Add(data)) to the full filterload/filteradd/
// filterclear surface.
package bloomfilter

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/btcsuite/btcd/txscript"

	"github.com/daglabs/btcnode/wire"
)

// UpdateFlag controls whether, and how, a matching output causes its
// outpoint to be added to the filter so a later spend of it also matches.
type UpdateFlag uint8

const (
	// UpdateNone never adds outpoints on a match.
	UpdateNone UpdateFlag = iota
	// UpdateAll adds the outpoint of every matching output.
	UpdateAll
	// UpdateP2PubkeyOnly adds the outpoint only when the matching output
	// is a standard pay-to-pubkey script.
	UpdateP2PubkeyOnly
)

const (
	maxFilterSize = 36000
	maxHashFuncs  = 50
	seedConstant  = 0xfba4c795
)

// Filter is a per-peer relay filter: a bit vector sized and hashed per
// BIP37, tracking which transactions, outpoints, and pushed script data a
// peer has expressed interest in.
type Filter struct {
	mu        sync.RWMutex
	data      []byte
	hashFuncs uint32
	tweak     uint32
	update    UpdateFlag
}

// New sizes a filter for the expected element count and false positive
// rate, per BIP37's filterload parameters.
func New(elements uint32, falsePositiveRate float64, tweak uint32, update UpdateFlag) *Filter {
	size := filterSize(elements, falsePositiveRate)
	return &Filter{
		data:      make([]byte, size),
		hashFuncs: numHashFuncs(elements, size),
		tweak:     tweak,
		update:    update,
	}
}

func filterSize(elements uint32, falsePositiveRate float64) uint32 {
	size := uint32(-1 / (math.Ln2 * math.Ln2) * float64(elements) * math.Log(falsePositiveRate) / 8)
	switch {
	case size < 1:
		return 1
	case size > maxFilterSize:
		return maxFilterSize
	default:
		return size
	}
}

func numHashFuncs(elements, filterBytes uint32) uint32 {
	n := uint32(float64(filterBytes*8) / float64(elements) * math.Ln2)
	switch {
	case n < 1:
		return 1
	case n > maxHashFuncs:
		return maxHashFuncs
	default:
		return n
	}
}

// IsLoaded reports whether the filter currently holds any bits, i.e.
// whether a filterload has been processed and not since cleared.
func (f *Filter) IsLoaded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.data) > 0
}

// Clear discards the filter's contents, the effect of a filterclear message.
func (f *Filter) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = nil
}

// Add inserts data into the filter, the effect of a filteradd message.
func (f *Filter) Add(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addLocked(data)
}

func (f *Filter) addLocked(data []byte) {
	if len(f.data) == 0 {
		return
	}
	bitCount := uint32(len(f.data)) * 8
	for i := uint32(0); i < f.hashFuncs; i++ {
		idx := murmur3(i*seedConstant+f.tweak, data) % bitCount
		f.data[idx/8] |= 1 << (idx % 8)
	}
}

// Matches reports whether data has been inserted, or false-positives as one.
func (f *Filter) Matches(data []byte) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.matchesLocked(data)
}

func (f *Filter) matchesLocked(data []byte) bool {
	if len(f.data) == 0 {
		return false
	}
	bitCount := uint32(len(f.data)) * 8
	for i := uint32(0); i < f.hashFuncs; i++ {
		idx := murmur3(i*seedConstant+f.tweak, data) % bitCount
		if f.data[idx/8]&(1<<(idx%8)) == 0 {
			return false
		}
	}
	return true
}

// MatchTransactionAndUpdate reports whether tx is relevant to this filter —
// its hash, any input's previous outpoint or pushed signature-script data,
// or any output's pushed script data matches — and, per the filter's update
// flag, adds newly-matched output outpoints so a later transaction spending
// them also matches.
func (f *Filter) MatchTransactionAndUpdate(tx *wire.Transaction) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.data) == 0 {
		return false
	}

	matched := false
	txHash := tx.TxHash()
	if f.matchesLocked(txHash[:]) {
		matched = true
	}

	for i, out := range tx.TxOut {
		if !f.matchesScriptData(out.ScriptPubKey) {
			continue
		}
		matched = true
		if f.update == UpdateAll || (f.update == UpdateP2PubkeyOnly && isPayToPubKey(out.ScriptPubKey)) {
			f.addLocked(encodeOutPoint(wire.NewOutPoint(txHash, uint32(i))))
		}
	}

	for _, in := range tx.TxIn {
		if f.matchesLocked(encodeOutPoint(in.PreviousOutPoint)) {
			matched = true
			continue
		}
		if f.matchesScriptData(in.SignatureScript) {
			matched = true
		}
	}

	return matched
}

func (f *Filter) matchesScriptData(script []byte) bool {
	pushes, err := txscript.PushedData(script)
	if err != nil {
		return false
	}
	for _, data := range pushes {
		if len(data) > 0 && f.matchesLocked(data) {
			return true
		}
	}
	return false
}

func isPayToPubKey(script []byte) bool {
	return txscript.GetScriptClass(script) == txscript.PubKeyTy
}

func encodeOutPoint(op wire.OutPoint) []byte {
	var buf [36]byte
	copy(buf[:32], op.Hash[:])
	binary.LittleEndian.PutUint32(buf[32:], op.Index)
	return buf[:]
}
