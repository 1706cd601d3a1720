package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var redeemSaberInstructionDiscriminator = []byte{
	0x1a, 0x71, 0x5e, 0xe1, 0xb8, 0x64, 0xb2, 0x2b,
}

const (
	RedeemSaberInstructionArgsSize = (8 + // min_token_a
		8 + // min_token_b
		MaxOptionalSwapConfigSize) // swap_config
)

type RedeemSaberInstructionArgs struct {
	MinTokenA  uint64
	MinTokenB  uint64
	SwapConfig *SwapConfig
}

type RedeemSaberInstructionAccounts struct {
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
	InputLp             ed25519.PublicKey
	OutputAFees         ed25519.PublicKey
	OutputBFees         ed25519.PublicKey
}

func NewRedeemSaberInstruction(
	accounts *RedeemSaberInstructionAccounts,
	args *RedeemSaberInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(redeemSaberInstructionDiscriminator)+
			RedeemSaberInstructionArgsSize)

	putDiscriminator(data, redeemSaberInstructionDiscriminator, &offset)
	putUint64(data, args.MinTokenA, &offset)
	putUint64(data, args.MinTokenB, &offset)
	putOptionalSwapConfig(data, args.SwapConfig, &offset)
	data = data[:offset]

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
			PublicKey:  accounts.InputLp,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.OutputAFees,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.OutputBFees,
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

func (args *RedeemSaberInstructionArgs) Unmarshal(data []byte) error {
	if len(data) < len(redeemSaberInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}
	padded := make([]byte, len(redeemSaberInstructionDiscriminator)+RedeemSaberInstructionArgsSize)
	copy(padded, data)
	data = padded

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, redeemSaberInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	getUint64(data, &args.MinTokenA, &offset)
	getUint64(data, &args.MinTokenB, &offset)
	getOptionalSwapConfig(data, &args.SwapConfig, &offset)

	return nil
}
