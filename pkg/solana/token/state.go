package token

import (
	"crypto/ed25519"
	"encoding/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L125
const AccountSize = 165

// Reference: https://github.com/solana-labs/solana-program-library/blob/master/token/program/src/state.rs
const MintSize = 82

// COption tags are little endian u32s
const optionSize = 4

type Account struct {
	Mint   ed25519.PublicKey
	Owner  ed25519.PublicKey
	Amount uint64

	// If set, DelegatedAmount is what the delegate may transfer
	Delegate ed25519.PublicKey
	State    AccountState

	// Set for wrapped SOL, holding the rent-exempt reserve
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  ed25519.PublicKey
}

func (a *Account) Marshal() []byte {
	w := &writer{b: make([]byte, AccountSize)}
	w.key(a.Mint)
	w.key(a.Owner)
	w.uint64(a.Amount)
	w.optionalKey(a.Delegate)
	w.uint8(uint8(a.State))
	w.optionalUint64(a.IsNative)
	w.uint64(a.DelegatedAmount)
	w.optionalKey(a.CloseAuthority)
	return w.b
}

func (a *Account) Unmarshal(b []byte) bool {
	if len(b) != AccountSize {
		return false
	}

	r := &reader{b: b}
	a.Mint = r.key()
	a.Owner = r.key()
	a.Amount = r.uint64()
	a.Delegate = r.optionalKey()
	a.State = AccountState(r.uint8())
	a.IsNative = r.optionalUint64()
	a.DelegatedAmount = r.uint64()
	a.CloseAuthority = r.optionalKey()
	return true
}

type Mint struct {
	MintAuthority ed25519.PublicKey
	Supply        uint64
	Decimals      byte
	IsInitialized bool

	FreezeAuthority ed25519.PublicKey
}

func (m *Mint) Marshal() []byte {
	w := &writer{b: make([]byte, MintSize)}
	w.optionalKey(m.MintAuthority)
	w.uint64(m.Supply)
	w.uint8(m.Decimals)
	if m.IsInitialized {
		w.uint8(1)
	} else {
		w.uint8(0)
	}
	w.optionalKey(m.FreezeAuthority)
	return w.b
}

func (m *Mint) Unmarshal(b []byte) bool {
	if len(b) != MintSize {
		return false
	}

	r := &reader{b: b}
	m.MintAuthority = r.optionalKey()
	m.Supply = r.uint64()
	m.Decimals = r.uint8()
	m.IsInitialized = r.uint8() == 1
	m.FreezeAuthority = r.optionalKey()
	return true
}

// writer and reader walk a fixed size buffer. Callers size the buffer, so
// neither checks bounds.
type writer struct {
	b      []byte
	offset int
}

func (w *writer) key(k ed25519.PublicKey) {
	copy(w.b[w.offset:], k)
	w.offset += ed25519.PublicKeySize
}

func (w *writer) optionalKey(k ed25519.PublicKey) {
	if len(k) > 0 {
		w.b[w.offset] = 1
		copy(w.b[w.offset+optionSize:], k)
	}
	w.offset += optionSize + ed25519.PublicKeySize
}

func (w *writer) uint8(v uint8) {
	w.b[w.offset] = v
	w.offset++
}

func (w *writer) uint64(v uint64) {
	binary.LittleEndian.PutUint64(w.b[w.offset:], v)
	w.offset += 8
}

func (w *writer) optionalUint64(v *uint64) {
	if v != nil {
		w.b[w.offset] = 1
		binary.LittleEndian.PutUint64(w.b[w.offset+optionSize:], *v)
	}
	w.offset += optionSize + 8
}

type reader struct {
	b      []byte
	offset int
}

func (r *reader) key() ed25519.PublicKey {
	k := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(k, r.b[r.offset:])
	r.offset += ed25519.PublicKeySize
	return k
}

func (r *reader) optionalKey() ed25519.PublicKey {
	var k ed25519.PublicKey
	if r.b[r.offset] == 1 {
		k = make(ed25519.PublicKey, ed25519.PublicKeySize)
		copy(k, r.b[r.offset+optionSize:])
	}
	r.offset += optionSize + ed25519.PublicKeySize
	return k
}

func (r *reader) uint8() uint8 {
	v := r.b[r.offset]
	r.offset++
	return v
}

func (r *reader) uint64() uint64 {
	v := binary.LittleEndian.Uint64(r.b[r.offset:])
	r.offset += 8
	return v
}

func (r *reader) optionalUint64() *uint64 {
	var v *uint64
	if r.b[r.offset] == 1 {
		val := binary.LittleEndian.Uint64(r.b[r.offset+optionSize:])
		v = &val
	}
	r.offset += optionSize + 8
	return v
}
