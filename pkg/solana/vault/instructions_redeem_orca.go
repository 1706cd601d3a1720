package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var redeemOrcaInstructionDiscriminator = []byte{
	0x0c, 0x1e, 0x5b, 0x20, 0x83, 0xc1, 0xe6, 0xc8,
}

const (
	RedeemOrcaInstructionArgsSize = (8 + // min_token_a
		8 + // min_token_b
		MaxOptionalSwapConfigSize) // swap_config
)

type RedeemOrcaInstructionArgs struct {
	MinTokenA  uint64
	MinTokenB  uint64
	SwapConfig *SwapConfig
}

type RedeemOrcaInstructionAccounts struct {
	Payer               ed25519.PublicKey
	Authority           ed25519.PublicKey
	GlobalProtocolState ed25519.PublicKey
	Vault               ed25519.PublicKey
	Strategy            ed25519.PublicKey
	OrcaSwapProgram     ed25519.PublicKey
	OrcaPool            ed25519.PublicKey
	OrcaAuthority       ed25519.PublicKey
	PoolMint            ed25519.PublicKey
	SourcePoolAccount   ed25519.PublicKey
	FromA               ed25519.PublicKey
	FromB               ed25519.PublicKey
	SourceTokenA        ed25519.PublicKey
	SourceTokenB        ed25519.PublicKey
	FeeAccount          ed25519.PublicKey
}

func NewRedeemOrcaInstruction(
	accounts *RedeemOrcaInstructionAccounts,
	args *RedeemOrcaInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(redeemOrcaInstructionDiscriminator)+
			RedeemOrcaInstructionArgsSize)

	putDiscriminator(data, redeemOrcaInstructionDiscriminator, &offset)
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
			PublicKey:  accounts.PoolMint,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.SourcePoolAccount,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.FromA,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.FromB,
			IsWritable: true,
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
			PublicKey:  accounts.FeeAccount,
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

func (args *RedeemOrcaInstructionArgs) Unmarshal(data []byte) error {
	if len(data) < len(redeemOrcaInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}
	padded := make([]byte, len(redeemOrcaInstructionDiscriminator)+RedeemOrcaInstructionArgsSize)
	copy(padded, data)
	data = padded

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, redeemOrcaInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	getUint64(data, &args.MinTokenA, &offset)
	getUint64(data, &args.MinTokenB, &offset)
	getOptionalSwapConfig(data, &args.SwapConfig, &offset)

	return nil
}
