package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var investSaberInstructionDiscriminator = []byte{
	0x11, 0x46, 0x20, 0xac, 0x4f, 0x85, 0xe4, 0x31,
}

const (
	InvestSaberInstructionArgsSize = (8 + // investable_a
		8 + // investable_b
		8) // min_tokens_back
)

type InvestSaberInstructionArgs struct {
	InvestableA   uint64
	InvestableB   uint64
	MinTokensBack uint64
}

type InvestSaberInstructionAccounts struct {
	Payer               ed25519.PublicKey
	Authority           ed25519.PublicKey
	GlobalProtocolState ed25519.PublicKey
	Vault               ed25519.PublicKey
	Strategy            ed25519.PublicKey
	Swap                ed25519.PublicKey
	SwapAuthority       ed25519.PublicKey
	SourceTokenA        ed25519.PublicKey
	ReserveA            ed25519.PublicKey
	SourceTokenB        ed25519.PublicKey
	ReserveB            ed25519.PublicKey
	PoolMint            ed25519.PublicKey
	SaberProgram        ed25519.PublicKey
	OutputLp            ed25519.PublicKey
}

func NewInvestSaberInstruction(
	accounts *InvestSaberInstructionAccounts,
	args *InvestSaberInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(investSaberInstructionDiscriminator)+
			InvestSaberInstructionArgsSize)

	putDiscriminator(data, investSaberInstructionDiscriminator, &offset)
	putUint64(data, args.InvestableA, &offset)
	putUint64(data, args.InvestableB, &offset)
	putUint64(data, args.MinTokensBack, &offset)

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
			PublicKey:  accounts.Strategy,
			IsWritable: false,
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
			PublicKey:  SYSVAR_RENT_PUBKEY,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.Swap,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.SwapAuthority,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.SourceTokenA,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.ReserveA,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.SourceTokenB,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.ReserveB,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.PoolMint,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.SaberProgram,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.OutputLp,
			IsWritable: true,
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

func (args *InvestSaberInstructionArgs) Unmarshal(data []byte) error {
	if len(data) < len(investSaberInstructionDiscriminator)+InvestSaberInstructionArgsSize {
		return ErrInvalidInstructionData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, investSaberInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	getUint64(data, &args.InvestableA, &offset)
	getUint64(data, &args.InvestableB, &offset)
	getUint64(data, &args.MinTokensBack, &offset)

	return nil
}
