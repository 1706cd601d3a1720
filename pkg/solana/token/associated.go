package token

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/tranche-vault/pkg/solana"
	"github.com/code-payments/tranche-vault/pkg/solana/system"
)

// AssociatedTokenAccountProgramKey is ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL.
var AssociatedTokenAccountProgramKey = ed25519.PublicKey{140, 151, 37, 143, 78, 36, 137, 241, 187, 61, 16, 41, 20, 142, 13, 131, 11, 90, 19, 153, 218, 255, 16, 132, 4, 142, 123, 216, 219, 233, 248, 89}

const (
	commandCreate byte = iota
	commandCreateIdempotent
)

// GetAssociatedAccount derives wallet's canonical token account for mint.
//
// Reference: https://spl.solana.com/associated-token-account#finding-the-associated-token-account-address
func GetAssociatedAccount(wallet, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return solana.FindProgramAddress(AssociatedTokenAccountProgramKey, wallet, ProgramKey, mint)
}

// CreateAssociatedTokenAccount creates wallet's associated account for mint,
// funded by subsidizer. It fails if the account exists.
func CreateAssociatedTokenAccount(subsidizer, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	return createAssociated(commandCreate, subsidizer, wallet, mint)
}

// CreateAssociatedTokenAccountIdempotent succeeds without changes when the
// account already exists with the expected owner and mint.
func CreateAssociatedTokenAccountIdempotent(subsidizer, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	return createAssociated(commandCreateIdempotent, subsidizer, wallet, mint)
}

// Accounts: [writable, signer] subsidizer, [writable] associated account,
// [] wallet, [] mint, [] system program, [] token program, [] rent sysvar.
func createAssociated(command byte, subsidizer, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	address, err := GetAssociatedAccount(wallet, mint)
	if err != nil {
		return solana.Instruction{}, nil, err
	}

	ixn := solana.NewInstruction(
		AssociatedTokenAccountProgramKey,
		[]byte{command},
		solana.NewAccountMeta(subsidizer, true),
		solana.NewAccountMeta(address, false),
		solana.NewReadonlyAccountMeta(wallet, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(ProgramKey, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
	)
	return ixn, address, nil
}

type DecompiledCreateAssociatedAccount struct {
	Subsidizer ed25519.PublicKey
	Address    ed25519.PublicKey
	Owner      ed25519.PublicKey
	Mint       ed25519.PublicKey
	Idempotent bool
}

// DecompileCreateAssociatedAccount accepts the legacy empty-data form as
// well as both create commands.
func DecompileCreateAssociatedAccount(m solana.Message, index int) (*DecompiledCreateAssociatedAccount, error) {
	r, err := resolve(m, index, AssociatedTokenAccountProgramKey)
	if err != nil {
		return nil, err
	}

	var idempotent bool
	switch {
	case len(r.data) == 0:
	case len(r.data) == 1 && r.data[0] == commandCreate:
	case len(r.data) == 1 && r.data[0] == commandCreateIdempotent:
		idempotent = true
	default:
		return nil, errors.New("unexpected data")
	}

	if len(r.accounts) != 7 {
		return nil, errors.Errorf("invalid number of accounts: %d (expected 7)", len(r.accounts))
	}
	for i, expected := range map[int]ed25519.PublicKey{
		4: system.ProgramKey[:],
		5: ProgramKey,
		6: system.RentSysVar,
	} {
		if !bytes.Equal(r.accounts[i], expected) {
			return nil, errors.Errorf("unexpected program account at %d", i)
		}
	}

	return &DecompiledCreateAssociatedAccount{
		Subsidizer: r.accounts[0],
		Address:    r.accounts[1],
		Owner:      r.accounts[2],
		Mint:       r.accounts[3],
		Idempotent: idempotent,
	}, nil
}
