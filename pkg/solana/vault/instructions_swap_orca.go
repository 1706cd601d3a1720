package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var swapOrcaInstructionDiscriminator = []byte{
	0x28, 0xf5, 0x0b, 0x6b, 0x2b, 0xcb, 0x97, 0x7f,
}

const (
	SwapOrcaInstructionArgsSize = (1 + // bump
		8 + // amount_in
		8) // min_amount_out
)

type SwapOrcaInstructionArgs struct {
	Bump         uint8
	AmountIn     uint64
	MinAmountOut uint64
}

type SwapOrcaInstructionAccounts struct {
	Payer                 ed25519.PublicKey
	Authority             ed25519.PublicKey
	GlobalProtocolState   ed25519.PublicKey
	Vault                 ed25519.PublicKey
	FarmVault             ed25519.PublicKey
	Strategy              ed25519.PublicKey
	OrcaSwapProgram       ed25519.PublicKey
	OrcaPool              ed25519.PublicKey
	OrcaAuthority         ed25519.PublicKey
	UserTransferAuthority ed25519.PublicKey
	UserSource            ed25519.PublicKey
	PoolSource            ed25519.PublicKey
	PoolDestination       ed25519.PublicKey
	UserDestination       ed25519.PublicKey
	PoolMint              ed25519.PublicKey
	FeeAccount            ed25519.PublicKey
}

func NewSwapOrcaInstruction(
	accounts *SwapOrcaInstructionAccounts,
	args *SwapOrcaInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(swapOrcaInstructionDiscriminator)+
			SwapOrcaInstructionArgsSize)

	putDiscriminator(data, swapOrcaInstructionDiscriminator, &offset)
	putUint8(data, args.Bump, &offset)
	putUint64(data, args.AmountIn, &offset)
	putUint64(data, args.MinAmountOut, &offset)

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
			PublicKey:  SPL_TOKEN_PROGRAM_ID,
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
			PublicKey:  accounts.UserTransferAuthority,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.UserSource,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.PoolSource,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.PoolDestination,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.UserDestination,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.PoolMint,
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

func (args *SwapOrcaInstructionArgs) Unmarshal(data []byte) error {
	if len(data) < len(swapOrcaInstructionDiscriminator)+SwapOrcaInstructionArgsSize {
		return ErrInvalidInstructionData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, swapOrcaInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	getUint8(data, &args.Bump, &offset)
	getUint64(data, &args.AmountIn, &offset)
	getUint64(data, &args.MinAmountOut, &offset)

	return nil
}
