package lifecycle

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/tranche-vault/pkg/journal"
	"github.com/code-payments/tranche-vault/pkg/metrics"
	"github.com/code-payments/tranche-vault/pkg/solana"
	"github.com/code-payments/tranche-vault/pkg/solana/token"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/tranche"
)

// BuildWithdraw builds the exchange of lpAmount tranche LP for the tranche
// asset at the redemption rate. An lpAmount of 0 withdraws every LP token
// the payer holds. The LP amount withdrawn is returned.
func (o *Orchestrator) BuildWithdraw(ctx context.Context, payer, vaultAddress, mint ed25519.PublicKey, lpAmount uint64) ([]solana.Instruction, uint64, error) {
	v, err := o.GetVault(ctx, vaultAddress)
	if err != nil {
		return nil, 0, err
	}
	if _, err := o.requireState(v, vault.StateWithdraw); err != nil {
		return nil, 0, err
	}

	asset, _, err := tranche.GetAsset(v, mint)
	if err != nil {
		return nil, 0, err
	}

	accounts, err := associatedAccounts(
		[2]ed25519.PublicKey{payer, asset.Lp},
		[2]ed25519.PublicKey{vaultAddress, mint},
	)
	if err != nil {
		return nil, 0, err
	}
	sourceLp, source := accounts[0], accounts[1]

	held, err := o.reader.GetTokenBalance(ctx, sourceLp)
	if errors.Is(err, ErrAccountNotFound) {
		held = 0
	} else if err != nil {
		return nil, 0, errors.Wrap(err, "error reading lp balance")
	}

	if lpAmount == 0 {
		lpAmount = held
	}
	if lpAmount == 0 {
		return nil, 0, ErrZeroAmount
	}
	if lpAmount > held {
		return nil, 0, errors.Errorf("withdrawing %d lp but only %d held", lpAmount, held)
	}

	global, _, err := vault.GetGlobalProtocolStateAddress()
	if err != nil {
		return nil, 0, err
	}

	createDestination, destination, err := token.CreateAssociatedTokenAccountIdempotent(payer, payer, mint)
	if err != nil {
		return nil, 0, err
	}

	ixns := []solana.Instruction{
		createDestination,
		vault.NewWithdrawInstruction(
			&vault.WithdrawInstructionAccounts{
				Payer:               payer,
				Authority:           v.Authority,
				GlobalProtocolState: global,
				Vault:               vaultAddress,
				Mint:                mint,
				Lp:                  asset.Lp,
				SourceLp:            sourceLp,
				SourceAta:           source,
				DestinationAta:      destination,
			},
			&vault.WithdrawInstructionArgs{
				Amount: lpAmount,
			},
		),
	}

	if bytes.Equal(mint, vault.NATIVE_MINT) {
		ixns = append(ixns, token.CloseAccount(destination, payer, payer))
	}

	return ixns, lpAmount, nil
}

// Withdraw burns the payer's tranche LP for their share of what the tranche
// received at redemption.
func (o *Orchestrator) Withdraw(ctx context.Context, payer ed25519.PrivateKey, vaultAddress, mint ed25519.PublicKey, lpAmount uint64) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Withdraw")
	tracer.AddAttribute("lp_amount", lpAmount)
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	ixns, lpAmount, err := o.BuildWithdraw(ctx, payer.Public().(ed25519.PublicKey), vaultAddress, mint, lpAmount)
	if err != nil {
		return solana.Signature{}, err
	}

	return o.submit(ctx, &submission{
		operation: journal.OperationWithdraw,
		vault:     vaultAddress,
		mint:      mint,
		amount:    lpAmount,
		state:     vault.StateWithdraw,
	}, []ed25519.PrivateKey{payer}, ixns...)
}
