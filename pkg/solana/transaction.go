package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"slices"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

// MaxTransactionSize is the packet data limit: the 1280 byte IPv6 MTU less
// 48 bytes of headers.
const MaxTransactionSize = 1232

var ErrTransactionTooLarge = errors.New("transaction exceeds max size")

type Signature [ed25519.SignatureSize]byte
type Blockhash [sha256.Size]byte

type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

// Message is a legacy transaction message. Vault instructions never need
// address lookup tables, so versioned messages are not supported.
type Message struct {
	Header          Header
	Accounts        []ed25519.PublicKey
	RecentBlockhash Blockhash
	Instructions    []CompiledInstruction
}

type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewTransaction compiles instructions into an unsigned transaction paid for
// by payer.
func NewTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	metas := mergeAccountMetas(payer, instructions)
	slices.SortFunc(metas, compareAccountMeta)

	var m Message
	m.Accounts = make([]ed25519.PublicKey, len(metas))
	for i, meta := range metas {
		m.Accounts[i] = meta.PublicKey
		if len(meta.PublicKey) == 0 {
			m.Accounts[i] = make([]byte, ed25519.PublicKeySize)
		}

		switch {
		case meta.IsSigner && !meta.IsWritable:
			m.Header.NumSignatures++
			m.Header.NumReadonlySigned++
		case meta.IsSigner:
			m.Header.NumSignatures++
		case !meta.IsWritable:
			m.Header.NumReadOnly++
		}
	}

	m.Instructions = make([]CompiledInstruction, len(instructions))
	for i, ixn := range instructions {
		compiled := CompiledInstruction{
			ProgramIndex: byte(indexOf(m.Accounts, ixn.Program)),
			Accounts:     make([]byte, len(ixn.Accounts)),
			Data:         ixn.Data,
		}
		for j, account := range ixn.Accounts {
			compiled.Accounts[j] = byte(indexOf(m.Accounts, account.PublicKey))
		}
		m.Instructions[i] = compiled
	}

	return Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}
}

// mergeAccountMetas lists every account the instructions reference once,
// with the strongest permissions any reference asked for.
func mergeAccountMetas(payer ed25519.PublicKey, instructions []Instruction) []AccountMeta {
	metas := []AccountMeta{{PublicKey: payer, IsSigner: true, IsWritable: true, isPayer: true}}
	positions := map[string]int{string(payer): 0}

	add := func(meta AccountMeta) {
		pos, ok := positions[string(meta.PublicKey)]
		if !ok {
			positions[string(meta.PublicKey)] = len(metas)
			metas = append(metas, meta)
			return
		}

		existing := &metas[pos]
		existing.IsSigner = existing.IsSigner || meta.IsSigner
		existing.IsWritable = existing.IsWritable || meta.IsWritable
		existing.isProgram = existing.isProgram || meta.isProgram
	}

	for _, ixn := range instructions {
		add(AccountMeta{PublicKey: ixn.Program, isProgram: true})
		for _, account := range ixn.Accounts {
			add(account)
		}
	}
	return metas
}

func (t *Transaction) Signature() []byte {
	return t.Signatures[0][:]
}

// Size is the length of the transaction on the wire.
func (t *Transaction) Size() int {
	return len(t.Marshal())
}

// CheckSize returns ErrTransactionTooLarge when the transaction cannot be
// submitted as a single packet.
func (t *Transaction) CheckSize() error {
	if size := t.Size(); size > MaxTransactionSize {
		return errors.Wrapf(ErrTransactionTooLarge, "%d > %d bytes", size, MaxTransactionSize)
	}
	return nil
}

func (t *Transaction) SetBlockhash(bh Blockhash) {
	t.Message.RecentBlockhash = bh
}

// Sign places each signer's signature at its account's position. Signers may
// be given in any order.
func (t *Transaction) Sign(signers ...ed25519.PrivateKey) error {
	message := t.Message.Marshal()

	for _, signer := range signers {
		pub := signer.Public().(ed25519.PublicKey)

		index := indexOf(t.Message.Accounts, pub)
		switch {
		case index < 0:
			return errors.Errorf("signing account %s is not in the account list", base58.Encode(pub))
		case index >= len(t.Signatures):
			return errors.Errorf("signing account %s is not in the list of signers", base58.Encode(pub))
		}

		copy(t.Signatures[index][:], ed25519.Sign(signer, message))
	}
	return nil
}

func indexOf(keys []ed25519.PublicKey, key ed25519.PublicKey) int {
	return slices.IndexFunc(keys, func(k ed25519.PublicKey) bool {
		return bytes.Equal(k, key)
	})
}
