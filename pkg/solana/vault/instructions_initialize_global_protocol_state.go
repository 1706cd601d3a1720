package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var initializeGlobalProtocolStateInstructionDiscriminator = []byte{
	0x99, 0xe2, 0xce, 0x2e, 0x4d, 0xf2, 0x1b, 0xc0,
}

const (
	InitializeGlobalProtocolStateInstructionArgsSize = (1) // bump
)

type InitializeGlobalProtocolStateInstructionArgs struct {
	Bump uint8
}

type InitializeGlobalProtocolStateInstructionAccounts struct {
	Authority           ed25519.PublicKey
	GlobalProtocolState ed25519.PublicKey
	Treasury            ed25519.PublicKey
}

func NewInitializeGlobalProtocolStateInstruction(
	accounts *InitializeGlobalProtocolStateInstructionAccounts,
	args *InitializeGlobalProtocolStateInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(initializeGlobalProtocolStateInstructionDiscriminator)+
			InitializeGlobalProtocolStateInstructionArgsSize)

	putDiscriminator(data, initializeGlobalProtocolStateInstructionDiscriminator, &offset)
	putUint8(data, args.Bump, &offset)

	instructionAccounts := []solana.AccountMeta{
		{
			PublicKey:  accounts.Authority,
			IsWritable: true,
			IsSigner:   true,
		},
		{
			PublicKey:  accounts.GlobalProtocolState,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.Treasury,
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

func (args *InitializeGlobalProtocolStateInstructionArgs) Unmarshal(data []byte) error {
	if len(data) < len(initializeGlobalProtocolStateInstructionDiscriminator)+InitializeGlobalProtocolStateInstructionArgsSize {
		return ErrInvalidInstructionData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, initializeGlobalProtocolStateInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	getUint8(data, &args.Bump, &offset)

	return nil
}
