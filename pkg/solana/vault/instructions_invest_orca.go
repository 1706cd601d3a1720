package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var investOrcaInstructionDiscriminator = []byte{
	0xbc, 0x35, 0x29, 0x6e, 0xc4, 0xa3, 0x9d, 0xce,
}

const (
	InvestOrcaInstructionArgsSize = (8 + // investable_a
		8 + // investable_b
		8) // min_tokens_back
)

type InvestOrcaInstructionArgs struct {
	InvestableA   uint64
	InvestableB   uint64
	MinTokensBack uint64
}

type InvestOrcaInstructionAccounts struct {
	Payer               ed25519.PublicKey
	Authority           ed25519.PublicKey
	GlobalProtocolState ed25519.PublicKey
	Vault               ed25519.PublicKey
	Strategy            ed25519.PublicKey
	OrcaSwapProgram     ed25519.PublicKey
	OrcaPool            ed25519.PublicKey
	OrcaAuthority       ed25519.PublicKey
	SourceTokenA        ed25519.PublicKey
	SourceTokenB        ed25519.PublicKey
	IntoA               ed25519.PublicKey
	IntoB               ed25519.PublicKey
	PoolToken           ed25519.PublicKey
	PoolAccount         ed25519.PublicKey
}

func NewInvestOrcaInstruction(
	accounts *InvestOrcaInstructionAccounts,
	args *InvestOrcaInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(investOrcaInstructionDiscriminator)+
			InvestOrcaInstructionArgsSize)

	putDiscriminator(data, investOrcaInstructionDiscriminator, &offset)
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
			PublicKey:  accounts.OrcaSwapProgram,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.OrcaPool,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.OrcaAuthority,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.SourceTokenA,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.SourceTokenB,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.IntoA,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.IntoB,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.PoolToken,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.PoolAccount,
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

func (args *InvestOrcaInstructionArgs) Unmarshal(data []byte) error {
	if len(data) < len(investOrcaInstructionDiscriminator)+InvestOrcaInstructionArgsSize {
		return ErrInvalidInstructionData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, investOrcaInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	getUint64(data, &args.InvestableA, &offset)
	getUint64(data, &args.InvestableB, &offset)
	getUint64(data, &args.MinTokensBack, &offset)

	return nil
}
