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
	"github.com/code-payments/tranche-vault/pkg/solana/token"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/tranche"
)

// BuildProcessClaims builds the next batch of claim processing for the
// tranche of mint, walking receipts newest first from the tranche's claims
// cursor. Nil is returned once the tranche is processed.
func (o *Orchestrator) BuildProcessClaims(ctx context.Context, payer, vaultAddress ed25519.PublicKey, v *vault.VaultAccount, mint ed25519.PublicKey) ([]solana.Instruction, error) {
	asset, _, err := tranche.GetAsset(v, mint)
	if err != nil {
		return nil, err
	}
	if asset.ClaimsProcessed {
		return nil, nil
	}

	start := asset.Deposits
	if asset.ClaimsIdx != nil {
		start = *asset.ClaimsIdx
	}

	batchSize := o.conf.claimsBatchSize.Get(ctx)
	if batchSize == 0 {
		batchSize = 1
	}

	var claims []vault.ClaimAccounts
	for idx := start; idx > 0 && uint64(len(claims)) < batchSize; idx-- {
		receipt, receiptAddress, err := o.GetReceipt(ctx, vaultAddress, mint, idx)
		if err != nil {
			return nil, err
		}

		historyAddress, _, err := vault.GetHistoryAddress(&vault.GetHistoryAddressArgs{
			Vault:     vaultAddress,
			Mint:      mint,
			Depositor: receipt.Depositor,
		})
		if err != nil {
			return nil, err
		}

		claims = append(claims, vault.ClaimAccounts{
			Receipt: receiptAddress,
			History: historyAddress,
		})
	}

	global, _, err := vault.GetGlobalProtocolStateAddress()
	if err != nil {
		return nil, err
	}

	return []solana.Instruction{
		vault.NewProcessClaimsInstruction(&vault.ProcessClaimsInstructionAccounts{
			Payer:               payer,
			Authority:           v.Authority,
			GlobalProtocolState: global,
			Vault:               vaultAddress,
			Mint:                mint,
			RemainingAccounts:   vault.NewProcessClaimsRemainingAccounts(claims...),
		}),
	}, nil
}

// ProcessClaims settles the uninvested share of every deposit in both
// tranches, submitting batches until the program reports both tranches as
// processed. Calling it on a processed vault submits nothing.
func (o *Orchestrator) ProcessClaims(ctx context.Context, payer ed25519.PrivateKey, vaultAddress ed25519.PublicKey) (sigs []solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ProcessClaims")
	defer func() {
		tracer.AddAttribute("batches", len(sigs))
		tracer.OnError(err)
		tracer.End()
	}()

	payerKey := payer.Public().(ed25519.PublicKey)

	log := o.log.WithFields(logrus.Fields{
		"method": "ProcessClaims",
		"vault":  base58.Encode(vaultAddress),
	})

	v, err := o.GetVault(ctx, vaultAddress)
	if err != nil {
		return nil, err
	}
	state, err := o.requireState(v, vault.StateLive, vault.StateRedeem, vault.StateWithdraw)
	if err != nil {
		return nil, err
	}
	if !tranche.IsInvested(v) {
		return nil, errors.Wrap(ErrInvalidStateForAction, "vault has not been invested")
	}

	for _, mint := range []ed25519.PublicKey{v.Alpha.Mint, v.Beta.Mint} {
		for {
			asset, t, err := tranche.GetAsset(v, mint)
			if err != nil {
				return sigs, err
			}
			if asset.ClaimsProcessed {
				break
			}
			before := claimsCursor(asset)

			ixns, err := o.BuildProcessClaims(ctx, payerKey, vaultAddress, v, mint)
			if err != nil {
				return sigs, err
			}

			sig, err := o.submit(ctx, &submission{
				operation: journal.OperationProcessClaims,
				vault:     vaultAddress,
				mint:      mint,
				state:     state,
			}, []ed25519.PrivateKey{payer}, ixns...)
			if err != nil {
				return sigs, errors.Wrapf(err, "error processing %s claims", t.String())
			}
			sigs = append(sigs, sig)

			v, err = o.GetVault(ctx, vaultAddress)
			if err != nil {
				return sigs, err
			}

			asset, _, err = tranche.GetAsset(v, mint)
			if err != nil {
				return sigs, err
			}
			if !asset.ClaimsProcessed && claimsCursor(asset) == before {
				return sigs, errors.Errorf("processing %s claims made no progress", t.String())
			}

			log.WithFields(logrus.Fields{
				"tranche":   t.String(),
				"processed": asset.ClaimsProcessed,
				"cursor":    claimsCursor(asset),
			}).Debug("processed claims batch")
		}
	}

	return sigs, nil
}

func claimsCursor(asset *vault.Asset) uint64 {
	if asset.ClaimsIdx == nil {
		return asset.Deposits
	}
	return *asset.ClaimsIdx
}

// BuildClaim builds the depositor's claim of their uninvested deposits and
// tranche LP tokens. It returns the claimed amount and the vault as read.
func (o *Orchestrator) BuildClaim(ctx context.Context, payer, vaultAddress, mint ed25519.PublicKey) ([]solana.Instruction, uint64, *vault.VaultAccount, error) {
	v, err := o.GetVault(ctx, vaultAddress)
	if err != nil {
		return nil, 0, nil, err
	}

	asset, _, err := tranche.GetAsset(v, mint)
	if err != nil {
		return nil, 0, nil, err
	}
	if !asset.ClaimsProcessed {
		return nil, 0, nil, ErrClaimsNotProcessed
	}

	history, historyAddress, _, err := o.GetHistory(ctx, vaultAddress, mint, payer)
	if err != nil {
		return nil, 0, nil, err
	}
	position := tranche.ProjectUserPosition(history)
	if position.LastClaim == 0 && !position.CanClaimLp {
		return nil, 0, nil, ErrNothingToClaim
	}

	global, _, err := vault.GetGlobalProtocolStateAddress()
	if err != nil {
		return nil, 0, nil, err
	}

	source, err := token.GetAssociatedAccount(vaultAddress, mint)
	if err != nil {
		return nil, 0, nil, err
	}

	createDestination, destination, err := token.CreateAssociatedTokenAccountIdempotent(payer, payer, mint)
	if err != nil {
		return nil, 0, nil, err
	}
	createDestinationLp, destinationLp, err := token.CreateAssociatedTokenAccountIdempotent(payer, payer, asset.Lp)
	if err != nil {
		return nil, 0, nil, err
	}

	ixns := []solana.Instruction{
		createDestination,
		createDestinationLp,
		vault.NewClaimInstruction(&vault.ClaimInstructionAccounts{
			Payer:               payer,
			Authority:           v.Authority,
			GlobalProtocolState: global,
			Vault:               vaultAddress,
			History:             historyAddress,
			Mint:                mint,
			Lp:                  asset.Lp,
			SourceAta:           source,
			DestinationAta:      destination,
			DestinationLpAta:    destinationLp,
		}),
	}

	if bytes.Equal(mint, vault.NATIVE_MINT) {
		ixns = append(ixns, token.CloseAccount(destination, payer, payer))
	}

	return ixns, position.LastClaim, v, nil
}

// Claim pays the depositor the uninvested part of their deposits into the
// tranche of mint, and mints them tranche LP for the invested part. Each
// depositor can claim once.
func (o *Orchestrator) Claim(ctx context.Context, payer ed25519.PrivateKey, vaultAddress, mint ed25519.PublicKey) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Claim")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	payerKey := payer.Public().(ed25519.PublicKey)

	ixns, amount, v, err := o.BuildClaim(ctx, payerKey, vaultAddress, mint)
	if err != nil {
		return solana.Signature{}, err
	}

	o.log.WithFields(logrus.Fields{
		"method": "Claim",
		"vault":  base58.Encode(vaultAddress),
		"mint":   base58.Encode(mint),
		"payer":  base58.Encode(payerKey),
		"amount": amount,
	}).Debug("claiming")

	return o.submit(ctx, &submission{
		operation: journal.OperationClaim,
		vault:     vaultAddress,
		mint:      mint,
		amount:    amount,
		state:     o.PredictState(v),
	}, []ed25519.PrivateKey{payer}, ixns...)
}
