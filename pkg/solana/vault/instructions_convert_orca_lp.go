package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var convertOrcaLpInstructionDiscriminator = []byte{
	0xe6, 0xbb, 0x6c, 0x7b, 0x33, 0x94, 0x0a, 0xcb,
}

const (
	ConvertOrcaLpInstructionArgsSize = (1) // bump
)

type ConvertOrcaLpInstructionArgs struct {
	Bump uint8
}

type ConvertOrcaLpInstructionAccounts struct {
	Payer                  ed25519.PublicKey
	Authority              ed25519.PublicKey
	GlobalProtocolState    ed25519.PublicKey
	Vault                  ed25519.PublicKey
	FarmVault              ed25519.PublicKey
	Strategy               ed25519.PublicKey
	AquafarmProgram        ed25519.PublicKey
	PoolAccount            ed25519.PublicKey
	UserBaseAta            ed25519.PublicKey
	GlobalBaseTokenVault   ed25519.PublicKey
	FarmTokenMint          ed25519.PublicKey
	UserFarmAta            ed25519.PublicKey
	GlobalFarm             ed25519.PublicKey
	UserFarm               ed25519.PublicKey
	GlobalRewardTokenVault ed25519.PublicKey
	UserRewardAta          ed25519.PublicKey
	FarmAuthority          ed25519.PublicKey
}

func NewConvertOrcaLpInstruction(
	accounts *ConvertOrcaLpInstructionAccounts,
	args *ConvertOrcaLpInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(convertOrcaLpInstructionDiscriminator)+
			ConvertOrcaLpInstructionArgsSize)

	putDiscriminator(data, convertOrcaLpInstructionDiscriminator, &offset)
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
			PublicKey:  accounts.AquafarmProgram,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.PoolAccount,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.UserBaseAta,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.GlobalBaseTokenVault,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.FarmTokenMint,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.UserFarmAta,
			IsWritable: true,
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
		{
			PublicKey:  accounts.GlobalRewardTokenVault,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.UserRewardAta,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.FarmAuthority,
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

func (args *ConvertOrcaLpInstructionArgs) Unmarshal(data []byte) error {
	if len(data) < len(convertOrcaLpInstructionDiscriminator)+ConvertOrcaLpInstructionArgsSize {
		return ErrInvalidInstructionData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, convertOrcaLpInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	getUint8(data, &args.Bump, &offset)

	return nil
}
