package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var initializeSaberStrategyInstructionDiscriminator = []byte{
	0x76, 0xda, 0x48, 0xa9, 0x8b, 0x8c, 0xef, 0xa6,
}

const (
	InitializeSaberStrategyInstructionArgsSize = (1 + // bump
		8 + // flag
		2) // version
)

type InitializeSaberStrategyInstructionArgs struct {
	Bump    uint8
	Flag    uint64
	Version uint16
}

type InitializeSaberStrategyInstructionAccounts struct {
	Authority           ed25519.PublicKey
	GlobalProtocolState ed25519.PublicKey
	Strategy            ed25519.PublicKey
	TokenA              ed25519.PublicKey
	TokenB              ed25519.PublicKey
	BasePool            ed25519.PublicKey
	PoolLp              ed25519.PublicKey
}

func NewInitializeSaberStrategyInstruction(
	accounts *InitializeSaberStrategyInstructionAccounts,
	args *InitializeSaberStrategyInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(initializeSaberStrategyInstructionDiscriminator)+
			InitializeSaberStrategyInstructionArgsSize)

	putDiscriminator(data, initializeSaberStrategyInstructionDiscriminator, &offset)
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
			PublicKey:  accounts.BasePool,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.PoolLp,
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

func (args *InitializeSaberStrategyInstructionArgs) Unmarshal(data []byte) error {
	if len(data) < len(initializeSaberStrategyInstructionDiscriminator)+InitializeSaberStrategyInstructionArgsSize {
		return ErrInvalidInstructionData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, initializeSaberStrategyInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	getUint8(data, &args.Bump, &offset)
	getUint64(data, &args.Flag, &offset)
	getUint16(data, &args.Version, &offset)

	return nil
}
