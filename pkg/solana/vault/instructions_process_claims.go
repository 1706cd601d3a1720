package vault

import (
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var processClaimsInstructionDiscriminator = []byte{
	0xab, 0xb8, 0x6a, 0xec, 0x3c, 0x13, 0x12, 0x07,
}

const (
	ProcessClaimsInstructionArgsSize = 0
)

type ProcessClaimsInstructionAccounts struct {
	Payer               ed25519.PublicKey
	Authority           ed25519.PublicKey
	GlobalProtocolState ed25519.PublicKey
	Vault               ed25519.PublicKey
	Mint                ed25519.PublicKey

	RemainingAccounts []solana.AccountMeta
}

func NewProcessClaimsInstruction(
	accounts *ProcessClaimsInstructionAccounts,
) solana.Instruction {
	// Serialize instruction arguments
	data := make([]byte, len(processClaimsInstructionDiscriminator))
	copy(data, processClaimsInstructionDiscriminator)

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
			PublicKey:  accounts.Mint,
			IsWritable: false,
			IsSigner:   false,
		},
	}
	instructionAccounts = append(instructionAccounts, accounts.RemainingAccounts...)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: instructionAccounts,
	}
}

// ClaimAccounts is a receipt and the history of the receipt's depositor.
type ClaimAccounts struct {
	Receipt ed25519.PublicKey
	History ed25519.PublicKey
}

// NewProcessClaimsRemainingAccounts lays out (receipt, history) pairs in the
// order the program walks them, newest deposit first.
func NewProcessClaimsRemainingAccounts(claims ...ClaimAccounts) []solana.AccountMeta {
	remaining := make([]solana.AccountMeta, 0, 2*len(claims))
	for _, claim := range claims {
		remaining = append(remaining,
			solana.AccountMeta{
				PublicKey:  claim.Receipt,
				IsWritable: false,
				IsSigner:   false,
			},
			solana.AccountMeta{
				PublicKey:  claim.History,
				IsWritable: true,
				IsSigner:   false,
			},
		)
	}
	return remaining
}
