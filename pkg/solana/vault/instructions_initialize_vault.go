package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var initializeVaultInstructionDiscriminator = []byte{
	0x30, 0xbf, 0xa3, 0x2c, 0x47, 0x81, 0x3f, 0xa4,
}

const (
	InitializeVaultInstructionArgsSize = (1 + // vault_bump
		MaxVaultConfigSize) // vault_config
)

type InitializeVaultInstructionArgs struct {
	VaultBump   uint8
	VaultConfig VaultConfig
}

type InitializeVaultInstructionAccounts struct {
	Authority           ed25519.PublicKey
	GlobalProtocolState ed25519.PublicKey
	Vault               ed25519.PublicKey
	AlphaMint           ed25519.PublicKey
	AlphaLp             ed25519.PublicKey
	BetaMint            ed25519.PublicKey
	BetaLp              ed25519.PublicKey
}

func NewInitializeVaultInstruction(
	accounts *InitializeVaultInstructionAccounts,
	args *InitializeVaultInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(initializeVaultInstructionDiscriminator)+
			InitializeVaultInstructionArgsSize)

	putDiscriminator(data, initializeVaultInstructionDiscriminator, &offset)
	putUint8(data, args.VaultBump, &offset)
	putVaultConfig(data, &args.VaultConfig, &offset)
	data = data[:offset]

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
			PublicKey:  accounts.Vault,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.AlphaMint,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.AlphaLp,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.BetaMint,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.BetaLp,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  SYSTEM_PROGRAM_ID,
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

func (args *InitializeVaultInstructionArgs) Unmarshal(data []byte) error {
	if len(data) < len(initializeVaultInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}
	padded := make([]byte, len(initializeVaultInstructionDiscriminator)+InitializeVaultInstructionArgsSize)
	copy(padded, data)
	data = padded

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, initializeVaultInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	getUint8(data, &args.VaultBump, &offset)
	getVaultConfig(data, &args.VaultConfig, &offset)

	return nil
}
