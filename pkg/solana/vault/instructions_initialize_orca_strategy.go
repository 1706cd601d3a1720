package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var initializeOrcaStrategyInstructionDiscriminator = []byte{
	0x8f, 0x8f, 0x06, 0x61, 0x2f, 0x30, 0xc7, 0xc6,
}

const (
	InitializeOrcaStrategyInstructionArgsSize = (1 + // bump
		8 + // flag
		2) // version
)

type InitializeOrcaStrategyInstructionArgs struct {
	Bump    uint8
	Flag    uint64
	Version uint16
}

type InitializeOrcaStrategyInstructionAccounts struct {
	Authority           ed25519.PublicKey
	GlobalProtocolState ed25519.PublicKey
	Strategy            ed25519.PublicKey
	TokenA              ed25519.PublicKey
	TokenB              ed25519.PublicKey
	SwapProgram         ed25519.PublicKey
	FarmProgram         ed25519.PublicKey
	Pool                ed25519.PublicKey
	BaseLp              ed25519.PublicKey
	Farm                ed25519.PublicKey
	FarmLp              ed25519.PublicKey
	DoubleDipFarmLp     ed25519.PublicKey
}

func NewInitializeOrcaStrategyInstruction(
	accounts *InitializeOrcaStrategyInstructionAccounts,
	args *InitializeOrcaStrategyInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(initializeOrcaStrategyInstructionDiscriminator)+
			InitializeOrcaStrategyInstructionArgsSize)

	putDiscriminator(data, initializeOrcaStrategyInstructionDiscriminator, &offset)
	putUint8(data, args.Bump, &offset)
	putUint64(data, args.Flag, &offset)
	putUint16(data, args.Version, &offset)

	instructionAccounts := []solana.AccountMeta{
		{
			PublicKey:  accounts.Authority,
			IsWritable: true,
			IsSigner:   true,
		},
		{
			PublicKey:  accounts.GlobalProtocolState,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.Strategy,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.TokenA,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.TokenB,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.SwapProgram,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.FarmProgram,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.Pool,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.BaseLp,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.Farm,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.FarmLp,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.DoubleDipFarmLp,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  SYSTEM_PROGRAM_ID,
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

func (args *InitializeOrcaStrategyInstructionArgs) Unmarshal(data []byte) error {
	if len(data) < len(initializeOrcaStrategyInstructionDiscriminator)+InitializeOrcaStrategyInstructionArgsSize {
		return ErrInvalidInstructionData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, initializeOrcaStrategyInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	getUint8(data, &args.Bump, &offset)
	getUint64(data, &args.Flag, &offset)
	getUint16(data, &args.Version, &offset)

	return nil
}
