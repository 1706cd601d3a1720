package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var initializeUserFarmOrcaInstructionDiscriminator = []byte{
	0x21, 0xc0, 0xbc, 0x39, 0x82, 0x74, 0x8d, 0x1f,
}

const (
	InitializeUserFarmOrcaInstructionArgsSize = (1) // bump
)

type InitializeUserFarmOrcaInstructionArgs struct {
	Bump uint8
}

type InitializeUserFarmOrcaInstructionAccounts struct {
	Payer               ed25519.PublicKey
	Authority           ed25519.PublicKey
	GlobalProtocolState ed25519.PublicKey
	Vault               ed25519.PublicKey
	FarmVault           ed25519.PublicKey
	Strategy            ed25519.PublicKey
	AquafarmProgram     ed25519.PublicKey
	GlobalFarm          ed25519.PublicKey
	UserFarm            ed25519.PublicKey
}

func NewInitializeUserFarmOrcaInstruction(
	accounts *InitializeUserFarmOrcaInstructionAccounts,
	args *InitializeUserFarmOrcaInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(initializeUserFarmOrcaInstructionDiscriminator)+
			InitializeUserFarmOrcaInstructionArgsSize)

	putDiscriminator(data, initializeUserFarmOrcaInstructionDiscriminator, &offset)
	putUint8(data, args.Bump, &offset)

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
			PublicKey:  accounts.FarmVault,
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
			PublicKey:  SYSVAR_RENT_PUBKEY,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.AquafarmProgram,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.GlobalFarm,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.UserFarm,
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

func (args *InitializeUserFarmOrcaInstructionArgs) Unmarshal(data []byte) error {
	if len(data) < len(initializeUserFarmOrcaInstructionDiscriminator)+InitializeUserFarmOrcaInstructionArgsSize {
		return ErrInvalidInstructionData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, initializeUserFarmOrcaInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	getUint8(data, &args.Bump, &offset)

	return nil
}
