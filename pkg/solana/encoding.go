package solana

import (
	"bytes"
	"crypto/ed25519"
	"io"

	"github.com/pkg/errors"

	"github.com/code-payments/tranche-vault/pkg/solana/shortvec"
)

// versionPrefix marks a versioned (v0+) message in the first header byte.
const versionPrefix = 0x80

// Marshal encodes the transaction in the legacy wire format.
func (t Transaction) Marshal() []byte {
	var buf bytes.Buffer

	_, _ = shortvec.EncodeLen(&buf, len(t.Signatures))
	for i := range t.Signatures {
		buf.Write(t.Signatures[i][:])
	}
	buf.Write(t.Message.Marshal())

	return buf.Bytes()
}

func (t *Transaction) Unmarshal(b []byte) error {
	d := &decoder{r: bytes.NewReader(b)}

	n := d.length("signatures")
	t.Signatures = make([]Signature, n)
	for i := 0; i < n && d.err == nil; i++ {
		d.read(t.Signatures[i][:], "signature")
	}
	if d.err != nil {
		return d.err
	}

	rest, _ := io.ReadAll(d.r)
	return t.Message.Unmarshal(rest)
}

func (m Message) Marshal() []byte {
	var buf bytes.Buffer

	buf.Write([]byte{m.Header.NumSignatures, m.Header.NumReadonlySigned, m.Header.NumReadOnly})

	_, _ = shortvec.EncodeLen(&buf, len(m.Accounts))
	for _, account := range m.Accounts {
		buf.Write(account)
	}
	buf.Write(m.RecentBlockhash[:])

	_, _ = shortvec.EncodeLen(&buf, len(m.Instructions))
	for _, ixn := range m.Instructions {
		buf.WriteByte(ixn.ProgramIndex)
		_, _ = shortvec.EncodeLen(&buf, len(ixn.Accounts))
		buf.Write(ixn.Accounts)
		_, _ = shortvec.EncodeLen(&buf, len(ixn.Data))
		buf.Write(ixn.Data)
	}

	return buf.Bytes()
}

// Unmarshal decodes a legacy message. Instruction account and program indexes
// are checked against the account list.
func (m *Message) Unmarshal(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	if b[0]&versionPrefix != 0 {
		return errors.New("versioned messages not supported")
	}

	d := &decoder{r: bytes.NewReader(b)}

	var header [3]byte
	d.read(header[:], "header")
	m.Header = Header{
		NumSignatures:     header[0],
		NumReadonlySigned: header[1],
		NumReadOnly:       header[2],
	}

	m.Accounts = make([]ed25519.PublicKey, d.length("accounts"))
	for i := range m.Accounts {
		m.Accounts[i] = d.bytes(ed25519.PublicKeySize, "account")
	}
	d.read(m.RecentBlockhash[:], "recent blockhash")

	m.Instructions = make([]CompiledInstruction, d.length("instructions"))
	for i := range m.Instructions {
		var program [1]byte
		d.read(program[:], "program index")

		ixn := CompiledInstruction{ProgramIndex: program[0]}
		ixn.Accounts = d.bytes(d.length("instruction accounts"), "instruction accounts")
		ixn.Data = d.bytes(d.length("instruction data"), "instruction data")
		if d.err != nil {
			return errors.Wrapf(d.err, "instruction %d", i)
		}

		if int(ixn.ProgramIndex) >= len(m.Accounts) {
			return errors.Errorf("instruction %d: program index %d out of range", i, ixn.ProgramIndex)
		}
		for _, index := range ixn.Accounts {
			if int(index) >= len(m.Accounts) {
				return errors.Errorf("instruction %d: account index %d out of range", i, index)
			}
		}
		m.Instructions[i] = ixn
	}

	return d.err
}

// decoder reads sequential fields, holding the first error. Reads after an
// error are no-ops that return zero values.
type decoder struct {
	r   *bytes.Reader
	err error
}

func (d *decoder) length(field string) int {
	if d.err != nil {
		return 0
	}

	n, err := shortvec.DecodeLen(d.r)
	if err != nil {
		d.err = errors.Wrapf(err, "failed to read %s length", field)
		return 0
	}
	return n
}

func (d *decoder) read(dst []byte, field string) {
	if d.err != nil {
		return
	}
	if _, err := io.ReadFull(d.r, dst); err != nil {
		d.err = errors.Wrapf(err, "failed to read %s", field)
	}
}

func (d *decoder) bytes(n int, field string) []byte {
	b := make([]byte, n)
	d.read(b, field)
	return b
}
