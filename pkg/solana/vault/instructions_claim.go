package vault

import (
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var claimInstructionDiscriminator = []byte{
	0x3e, 0xc6, 0xd6, 0xc1, 0xd5, 0x9f, 0x6c, 0xd2,
}

const (
	ClaimInstructionArgsSize = 0
)

type ClaimInstructionAccounts struct {
	Payer               ed25519.PublicKey
	Authority           ed25519.PublicKey
	GlobalProtocolState ed25519.PublicKey
	Vault               ed25519.PublicKey
	History             ed25519.PublicKey
	Mint                ed25519.PublicKey
	Lp                  ed25519.PublicKey
	SourceAta           ed25519.PublicKey
	DestinationAta      ed25519.PublicKey
	DestinationLpAta    ed25519.PublicKey
}

func NewClaimInstruction(
	accounts *ClaimInstructionAccounts,
) solana.Instruction {
	// Serialize instruction arguments
	data := make([]byte, len(claimInstructionDiscriminator))
	copy(data, claimInstructionDiscriminator)

	instructionAccounts := []solana.AccountMeta{
		{
			PublicKey:  accounts.Payer,
			IsWritable: true,
			IsSigner:   true,
		},
		{
			PublicKey:  accounts.Authority,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.GlobalProtocolState,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.Vault,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.History,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.Mint,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.Lp,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.SourceAta,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.DestinationAta,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.DestinationLpAta,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  SYSTEM_PROGRAM_ID,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  SPL_TOKEN_PROGRAM_ID,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  SPL_ASSOCIATED_TOKEN_PROGRAM_ID,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  SYSVAR_RENT_PUBKEY,
			IsWritable: false,
			IsSigner:   false,
		},
	}

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: instructionAccounts,
	}
}
