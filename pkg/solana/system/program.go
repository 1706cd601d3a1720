package system

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

// ProgramKey is the system program, 11111111111111111111111111111111.
var ProgramKey [32]byte

// System instructions are tagged with a little endian u32.
const (
	commandCreateAccount uint32 = 0
	commandTransfer      uint32 = 2
	commandAllocate      uint32 = 8
)

const (
	createAccountDataSize = 4 + 8 + 8 + ed25519.PublicKeySize
	transferDataSize      = 4 + 8
)

// CreateAccount funds and allocates a new account owned by owner. Both the
// funder and the new account sign.
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	data := make([]byte, createAccountDataSize)
	binary.LittleEndian.PutUint32(data, commandCreateAccount)
	binary.LittleEndian.PutUint64(data[4:], lamports)
	binary.LittleEndian.PutUint64(data[12:], size)
	copy(data[20:], owner)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	)
}

type DecompiledCreateAccount struct {
	Funder  ed25519.PublicKey
	Address ed25519.PublicKey

	Lamports uint64
	Size     uint64
	Owner    ed25519.PublicKey
}

func DecompileCreateAccount(m solana.Message, index int) (*DecompiledCreateAccount, error) {
	accounts, data, err := decompile(m, index, commandCreateAccount, createAccountDataSize)
	if err != nil {
		return nil, err
	}

	return &DecompiledCreateAccount{
		Funder:   accounts[0],
		Address:  accounts[1],
		Lamports: binary.LittleEndian.Uint64(data[4:]),
		Size:     binary.LittleEndian.Uint64(data[12:]),
		Owner:    ed25519.PublicKey(bytes.Clone(data[20:])),
	}, nil
}

// Transfer moves lamports out of a system owned account. Wrapped SOL accounts
// are funded this way ahead of a SyncNative.
func Transfer(from, to ed25519.PublicKey, lamports uint64) solana.Instruction {
	data := make([]byte, transferDataSize)
	binary.LittleEndian.PutUint32(data, commandTransfer)
	binary.LittleEndian.PutUint64(data[4:], lamports)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(from, true),
		solana.NewAccountMeta(to, false),
	)
}

type DecompiledTransfer struct {
	From     ed25519.PublicKey
	To       ed25519.PublicKey
	Lamports uint64
}

func DecompileTransfer(m solana.Message, index int) (*DecompiledTransfer, error) {
	accounts, data, err := decompile(m, index, commandTransfer, transferDataSize)
	if err != nil {
		return nil, err
	}

	return &DecompiledTransfer{
		From:     accounts[0],
		To:       accounts[1],
		Lamports: binary.LittleEndian.Uint64(data[4:]),
	}, nil
}

func IsCreateAccount(m solana.Message, index int) bool {
	_, err := instruction(m, index, commandCreateAccount)
	return err == nil
}

func IsTransfer(m solana.Message, index int) bool {
	_, err := instruction(m, index, commandTransfer)
	return err == nil
}

// decompile resolves a two account system instruction with a fixed data size.
func decompile(m solana.Message, index int, command uint32, size int) ([]ed25519.PublicKey, []byte, error) {
	ixn, err := instruction(m, index, command)
	if err != nil {
		return nil, nil, err
	}
	if len(ixn.Accounts) != 2 {
		return nil, nil, errors.Errorf("invalid number of accounts: %d", len(ixn.Accounts))
	}
	if len(ixn.Data) != size {
		return nil, nil, errors.Errorf("invalid instruction data size: %d", len(ixn.Data))
	}

	accounts := []ed25519.PublicKey{m.Accounts[ixn.Accounts[0]], m.Accounts[ixn.Accounts[1]]}
	return accounts, ixn.Data, nil
}

func instruction(m solana.Message, index int, command uint32) (solana.CompiledInstruction, error) {
	if index < 0 || index >= len(m.Instructions) {
		return solana.CompiledInstruction{}, errors.Errorf("instruction doesn't exist at %d", index)
	}

	ixn := m.Instructions[index]
	if !bytes.Equal(m.Accounts[ixn.ProgramIndex], ProgramKey[:]) {
		return ixn, solana.ErrIncorrectProgram
	}
	if len(ixn.Data) < 4 || binary.LittleEndian.Uint32(ixn.Data) != command {
		return ixn, solana.ErrIncorrectInstruction
	}
	return ixn, nil
}
