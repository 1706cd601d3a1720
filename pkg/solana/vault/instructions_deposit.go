package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var depositInstructionDiscriminator = []byte{
	0xf2, 0x23, 0xc6, 0x89, 0x52, 0xe1, 0xf2, 0xb6,
}

const (
	DepositInstructionArgsSize = (8 + // deposit_index
		1 + // receipt_bump
		1 + // history_bump
		8) // amount
)

type DepositInstructionArgs struct {
	DepositIndex uint64
	ReceiptBump  uint8
	HistoryBump  uint8
	Amount       uint64
}

type DepositInstructionAccounts struct {
	Payer               ed25519.PublicKey
	Authority           ed25519.PublicKey
	GlobalProtocolState ed25519.PublicKey
	Vault               ed25519.PublicKey
	Receipt             ed25519.PublicKey
	History             ed25519.PublicKey
	Mint                ed25519.PublicKey
	SourceAta           ed25519.PublicKey
	DestinationAta      ed25519.PublicKey
}

func NewDepositInstruction(
	accounts *DepositInstructionAccounts,
	args *DepositInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(depositInstructionDiscriminator)+
			DepositInstructionArgsSize)

	putDiscriminator(data, depositInstructionDiscriminator, &offset)
	putUint64(data, args.DepositIndex, &offset)
	putUint8(data, args.ReceiptBump, &offset)
	putUint8(data, args.HistoryBump, &offset)
	putUint64(data, args.Amount, &offset)

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
			PublicKey:  accounts.Receipt,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.History,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.Mint,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.SourceAta,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.DestinationAta,
			IsWritable: true,
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
			PublicKey:  SPL_ASSOCIATED_TOKEN_PROGRAM_ID,
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

func (args *DepositInstructionArgs) Unmarshal(data []byte) error {
	if len(data) < len(depositInstructionDiscriminator)+DepositInstructionArgsSize {
		return ErrInvalidInstructionData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, depositInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	getUint64(data, &args.DepositIndex, &offset)
	getUint8(data, &args.ReceiptBump, &offset)
	getUint8(data, &args.HistoryBump, &offset)
	getUint64(data, &args.Amount, &offset)

	return nil
}
