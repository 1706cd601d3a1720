package token

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/code-payments/tranche-vault/pkg/solana"
	"github.com/code-payments/tranche-vault/pkg/solana/system"
)

// ProgramKey is the SPL token program, TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA.
var ProgramKey = ed25519.PublicKey{6, 221, 246, 225, 215, 101, 161, 147, 217, 203, 225, 70, 206, 235, 121, 172, 28, 180, 133, 237, 95, 91, 55, 145, 58, 140, 245, 133, 126, 255, 0, 169}

// Command is the leading discriminator byte of a token instruction. Only the
// commands the vault flows build are named.
type Command byte

const (
	CommandInitializeMint Command = 0
	CommandTransfer       Command = 3
	CommandApprove        Command = 4
	CommandMintTo         Command = 7
	CommandBurn           Command = 8
	CommandCloseAccount   Command = 9
	CommandSyncNative     Command = 17

	CommandUnknown = Command(math.MaxUint8)
)

const amountDataSize = 1 + 8

// resolved is a compiled instruction with its account indexes replaced by
// the message's keys.
type resolved struct {
	data     []byte
	accounts []ed25519.PublicKey
}

func resolve(m solana.Message, index int, program ed25519.PublicKey) (*resolved, error) {
	if index < 0 || index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	ixn := m.Instructions[index]
	if !bytes.Equal(m.Accounts[ixn.ProgramIndex], program) {
		return nil, solana.ErrIncorrectProgram
	}

	r := &resolved{
		data:     ixn.Data,
		accounts: make([]ed25519.PublicKey, len(ixn.Accounts)),
	}
	for i, accountIndex := range ixn.Accounts {
		r.accounts[i] = m.Accounts[accountIndex]
	}
	return r, nil
}

// expect checks the command byte and that at least minAccounts are present.
// Multisig authorities append signers, so extra accounts are allowed.
func (r *resolved) expect(cmd Command, minAccounts int) error {
	if len(r.data) == 0 || r.data[0] != byte(cmd) {
		return solana.ErrIncorrectInstruction
	}
	if len(r.accounts) < minAccounts {
		return errors.Errorf("invalid number of accounts: %d", len(r.accounts))
	}
	return nil
}

// GetCommand returns the command of the token instruction at index.
func GetCommand(m solana.Message, index int) (Command, error) {
	r, err := resolve(m, index, ProgramKey)
	if err != nil {
		return CommandUnknown, err
	}
	if len(r.data) == 0 {
		return CommandUnknown, errors.New("token instruction missing data")
	}
	return Command(r.data[0]), nil
}

// InitializeMint initializes an account created with MintSize bytes and
// owned by the token program. freezeAuthority may be nil.
//
// Accounts: [writable] mint, [] rent sysvar.
func InitializeMint(mint, mintAuthority, freezeAuthority ed25519.PublicKey, decimals byte) solana.Instruction {
	data := []byte{byte(CommandInitializeMint), decimals}
	data = append(data, mintAuthority...)
	if len(freezeAuthority) == 0 {
		data = append(data, 0)
	} else {
		data = append(data, 1)
		data = append(data, freezeAuthority...)
	}

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
	)
}

type DecompiledInitializeMint struct {
	Mint            ed25519.PublicKey
	MintAuthority   ed25519.PublicKey
	FreezeAuthority ed25519.PublicKey
	Decimals        byte
}

func DecompileInitializeMint(m solana.Message, index int) (*DecompiledInitializeMint, error) {
	r, err := resolve(m, index, ProgramKey)
	if err != nil {
		return nil, err
	}
	if err := r.expect(CommandInitializeMint, 2); err != nil {
		return nil, err
	}
	if !bytes.Equal(r.accounts[1], system.RentSysVar) {
		return nil, errors.New("invalid rent program")
	}

	// command, decimals, mint authority, freeze authority option tag
	const fixed = 1 + 1 + ed25519.PublicKeySize + 1

	size := fixed
	if len(r.data) >= fixed && r.data[fixed-1] == 1 {
		size += ed25519.PublicKeySize
	}
	if len(r.data) != size {
		return nil, errors.Errorf("invalid instruction data size: %d", len(r.data))
	}

	decompiled := &DecompiledInitializeMint{
		Mint:          r.accounts[0],
		MintAuthority: ed25519.PublicKey(bytes.Clone(r.data[2 : fixed-1])),
		Decimals:      r.data[1],
	}
	if size > fixed {
		decompiled.FreezeAuthority = ed25519.PublicKey(bytes.Clone(r.data[fixed:]))
	}
	return decompiled, nil
}

// Transfer moves amount between two accounts of the same mint.
//
// Accounts: [writable] source, [writable] destination, [signer] owner.
func Transfer(source, dest, owner ed25519.PublicKey, amount uint64) solana.Instruction {
	return amountInstruction(CommandTransfer, source, dest, owner, amount)
}

type DecompiledTransfer struct {
	Source      ed25519.PublicKey
	Destination ed25519.PublicKey
	Owner       ed25519.PublicKey
	Amount      uint64
}

func DecompileTransfer(m solana.Message, index int) (*DecompiledTransfer, error) {
	accounts, amount, err := decompileAmountInstruction(m, index, CommandTransfer)
	if err != nil {
		return nil, err
	}
	return &DecompiledTransfer{
		Source:      accounts[0],
		Destination: accounts[1],
		Owner:       accounts[2],
		Amount:      amount,
	}, nil
}

// MintTo mints new tokens to an account.
//
// Accounts: [writable] mint, [writable] destination, [signer] mint authority.
func MintTo(mint, dest, mintAuthority ed25519.PublicKey, amount uint64) solana.Instruction {
	return amountInstruction(CommandMintTo, mint, dest, mintAuthority, amount)
}

type DecompiledMintTo struct {
	Mint          ed25519.PublicKey
	Destination   ed25519.PublicKey
	MintAuthority ed25519.PublicKey
	Amount        uint64
}

func DecompileMintTo(m solana.Message, index int) (*DecompiledMintTo, error) {
	accounts, amount, err := decompileAmountInstruction(m, index, CommandMintTo)
	if err != nil {
		return nil, err
	}
	return &DecompiledMintTo{
		Mint:          accounts[0],
		Destination:   accounts[1],
		MintAuthority: accounts[2],
		Amount:        amount,
	}, nil
}

// Burn removes tokens from an account and the mint's supply.
//
// Accounts: [writable] account, [writable] mint, [signer] owner.
func Burn(account, mint, owner ed25519.PublicKey, amount uint64) solana.Instruction {
	return amountInstruction(CommandBurn, account, mint, owner, amount)
}

type DecompiledBurn struct {
	Account ed25519.PublicKey
	Mint    ed25519.PublicKey
	Owner   ed25519.PublicKey
	Amount  uint64
}

func DecompileBurn(m solana.Message, index int) (*DecompiledBurn, error) {
	accounts, amount, err := decompileAmountInstruction(m, index, CommandBurn)
	if err != nil {
		return nil, err
	}
	return &DecompiledBurn{
		Account: accounts[0],
		Mint:    accounts[1],
		Owner:   accounts[2],
		Amount:  amount,
	}, nil
}

// CloseAccount sends an account's lamports to dest and deletes it. Token
// accounts must be empty unless they hold wrapped SOL.
//
// Accounts: [writable] account, [writable] destination, [signer] owner.
func CloseAccount(account, dest, owner ed25519.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandCloseAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

type DecompiledCloseAccount struct {
	Account     ed25519.PublicKey
	Destination ed25519.PublicKey
	Owner       ed25519.PublicKey
}

func DecompileCloseAccount(m solana.Message, index int) (*DecompiledCloseAccount, error) {
	r, err := resolve(m, index, ProgramKey)
	if err != nil {
		return nil, err
	}
	if len(r.data) != 1 {
		return nil, solana.ErrIncorrectInstruction
	}
	if err := r.expect(CommandCloseAccount, 3); err != nil {
		return nil, err
	}
	return &DecompiledCloseAccount{
		Account:     r.accounts[0],
		Destination: r.accounts[1],
		Owner:       r.accounts[2],
	}, nil
}

// SyncNative sets a wrapped SOL account's token amount to its lamports less
// the rent exempt reserve.
//
// Accounts: [writable] native token account.
func SyncNative(account ed25519.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandSyncNative)},
		solana.NewAccountMeta(account, false),
	)
}

type DecompiledSyncNative struct {
	Account ed25519.PublicKey
}

func DecompileSyncNative(m solana.Message, index int) (*DecompiledSyncNative, error) {
	r, err := resolve(m, index, ProgramKey)
	if err != nil {
		return nil, err
	}
	if len(r.data) != 1 {
		return nil, solana.ErrIncorrectInstruction
	}
	if err := r.expect(CommandSyncNative, 1); err != nil {
		return nil, err
	}
	if len(r.accounts) != 1 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(r.accounts))
	}
	return &DecompiledSyncNative{Account: r.accounts[0]}, nil
}

// amountInstruction builds the (writable, writable, signer) + u64 layout
// shared by Transfer, MintTo and Burn.
func amountInstruction(cmd Command, a, b, authority ed25519.PublicKey, amount uint64) solana.Instruction {
	data := make([]byte, amountDataSize)
	data[0] = byte(cmd)
	binary.LittleEndian.PutUint64(data[1:], amount)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(a, false),
		solana.NewAccountMeta(b, false),
		solana.NewReadonlyAccountMeta(authority, true),
	)
}

func decompileAmountInstruction(m solana.Message, index int, cmd Command) ([]ed25519.PublicKey, uint64, error) {
	r, err := resolve(m, index, ProgramKey)
	if err != nil {
		return nil, 0, err
	}
	if err := r.expect(cmd, 3); err != nil {
		return nil, 0, err
	}
	if len(r.data) != amountDataSize {
		return nil, 0, errors.Errorf("invalid instruction data size: %d", len(r.data))
	}
	return r.accounts[:3], binary.LittleEndian.Uint64(r.data[1:]), nil
}
