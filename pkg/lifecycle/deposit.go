package lifecycle

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/tranche-vault/pkg/journal"
	"github.com/code-payments/tranche-vault/pkg/metrics"
	"github.com/code-payments/tranche-vault/pkg/solana"
	"github.com/code-payments/tranche-vault/pkg/solana/system"
	"github.com/code-payments/tranche-vault/pkg/solana/token"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/tranche"
)

// BuildDeposit builds a deposit of amount into the tranche of mint. The
// vault is checked client-side first: it must accept deposits and the
// amount must fit both caps.
//
// Native SOL deposits are wrapped into the payer's associated account before
// the deposit and the account is closed afterwards.
func (o *Orchestrator) BuildDeposit(ctx context.Context, payer, vaultAddress, mint ed25519.PublicKey, amount uint64) ([]solana.Instruction, error) {
	if amount == 0 {
		return nil, ErrZeroAmount
	}

	v, err := o.GetVault(ctx, vaultAddress)
	if err != nil {
		return nil, err
	}
	if _, err := o.requireState(v, vault.StateDeposit); err != nil {
		return nil, err
	}

	asset, _, err := tranche.GetAsset(v, mint)
	if err != nil {
		return nil, err
	}

	history, historyAddress, historyBump, err := o.GetHistory(ctx, vaultAddress, mint, payer)
	if err != nil {
		return nil, err
	}
	if err := tranche.CheckDepositCaps(asset, tranche.ProjectUserPosition(history), amount); err != nil {
		return nil, err
	}

	depositIndex := tranche.NextDepositIndex(asset)
	receiptAddress, receiptBump, err := vault.GetReceiptAddress(&vault.GetReceiptAddressArgs{
		Vault:        vaultAddress,
		Mint:         mint,
		DepositIndex: depositIndex,
	})
	if err != nil {
		return nil, err
	}

	global, _, err := vault.GetGlobalProtocolStateAddress()
	if err != nil {
		return nil, err
	}

	var ixns []solana.Instruction

	createSource, source, err := token.CreateAssociatedTokenAccountIdempotent(payer, payer, mint)
	if err != nil {
		return nil, err
	}
	ixns = append(ixns, createSource)

	isNative := bytes.Equal(mint, vault.NATIVE_MINT)
	if isNative {
		ixns = append(
			ixns,
			system.Transfer(payer, source, amount),
			token.SyncNative(source),
		)
	}

	createDestination, destination, err := token.CreateAssociatedTokenAccountIdempotent(payer, vaultAddress, mint)
	if err != nil {
		return nil, err
	}
	ixns = append(ixns, createDestination)

	ixns = append(ixns, vault.NewDepositInstruction(
		&vault.DepositInstructionAccounts{
			Payer:               payer,
			Authority:           v.Authority,
			GlobalProtocolState: global,
			Vault:               vaultAddress,
			Receipt:             receiptAddress,
			History:             historyAddress,
			Mint:                mint,
			SourceAta:           source,
			DestinationAta:      destination,
		},
		&vault.DepositInstructionArgs{
			DepositIndex: depositIndex,
			ReceiptBump:  receiptBump,
			HistoryBump:  historyBump,
			Amount:       amount,
		},
	))

	if isNative {
		ixns = append(ixns, token.CloseAccount(source, payer, payer))
	}

	return ixns, nil
}

// Deposit moves amount of mint from the payer into the vault. The payer's
// position in the tranche is recorded on a receipt and their history.
//
// Deposits racing for the same receipt index fail with ErrRetryable and can
// be resubmitted as-is.
func (o *Orchestrator) Deposit(ctx context.Context, payer ed25519.PrivateKey, vaultAddress, mint ed25519.PublicKey, amount uint64) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Deposit")
	tracer.AddAttribute("amount", amount)
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	payerKey := payer.Public().(ed25519.PublicKey)

	log := o.log.WithFields(logrus.Fields{
		"method": "Deposit",
		"vault":  base58.Encode(vaultAddress),
		"mint":   base58.Encode(mint),
		"payer":  base58.Encode(payerKey),
		"amount": amount,
	})

	ixns, err := o.BuildDeposit(ctx, payerKey, vaultAddress, mint, amount)
	if err != nil {
		log.WithError(err).Debug("deposit rejected")
		return solana.Signature{}, err
	}

	sig, err = o.submit(ctx, &submission{
		operation: journal.OperationDeposit,
		vault:     vaultAddress,
		mint:      mint,
		amount:    amount,
		state:     vault.StateDeposit,
	}, []ed25519.PrivateKey{payer}, ixns...)
	if err != nil {
		return sig, errors.Wrap(err, "error submitting deposit")
	}
	return sig, nil
}
