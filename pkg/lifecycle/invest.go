package lifecycle

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/tranche-vault/pkg/journal"
	"github.com/code-payments/tranche-vault/pkg/metrics"
	"github.com/code-payments/tranche-vault/pkg/solana"
	"github.com/code-payments/tranche-vault/pkg/solana/token"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/tranche"
)

// InvestableAmounts returns everything deposited into the vault, ordered by
// the venue's token order.
func InvestableAmounts(v *vault.VaultAccount, venue *VenueAccounts) (amountA, amountB uint64) {
	return venue.ordered(v.Alpha.Mint, v.Alpha.Deposited, v.Beta.Deposited)
}

// BuildInvest builds the move of the vault's deposits into its strategy's
// pool. amountA and amountB follow the venue's token order.
func (o *Orchestrator) BuildInvest(ctx context.Context, payer, vaultAddress ed25519.PublicKey, amountA, amountB, minLpOut uint64) ([]solana.Instruction, *vault.VaultAccount, error) {
	v, err := o.GetVault(ctx, vaultAddress)
	if err != nil {
		return nil, nil, err
	}
	if _, err := o.requireState(v, vault.StateLive); err != nil {
		return nil, nil, err
	}
	if tranche.IsInvested(v) {
		return nil, nil, ErrInvalidStateForAction
	}
	if v.Alpha.Deposits == 0 || v.Beta.Deposits == 0 {
		return nil, nil, ErrNoDeposits
	}
	if amountA == 0 || amountB == 0 {
		return nil, nil, ErrZeroAmount
	}

	venue, err := o.getVenue(ctx, v)
	if err != nil {
		return nil, nil, err
	}

	global, _, err := vault.GetGlobalProtocolStateAddress()
	if err != nil {
		return nil, nil, err
	}

	tokenA, tokenB := venue.Tokens()
	reserveA, reserveB := venue.Reserves()
	poolMint := venue.PoolMint()

	sources, err := associatedAccounts(
		[2]ed25519.PublicKey{vaultAddress, tokenA},
		[2]ed25519.PublicKey{vaultAddress, tokenB},
	)
	if err != nil {
		return nil, nil, err
	}

	createLp, lpAccount, err := token.CreateAssociatedTokenAccountIdempotent(payer, vaultAddress, poolMint)
	if err != nil {
		return nil, nil, err
	}

	var invest solana.Instruction
	switch venue.Flag {
	case vault.StrategyFlagSaber:
		invest = vault.NewInvestSaberInstruction(
			&vault.InvestSaberInstructionAccounts{
				Payer:               payer,
				Authority:           v.Authority,
				GlobalProtocolState: global,
				Vault:               vaultAddress,
				Strategy:            v.Strategy,
				Swap:                venue.Saber.Swap,
				SwapAuthority:       venue.Saber.SwapAuthority,
				SourceTokenA:        sources[0],
				ReserveA:            reserveA,
				SourceTokenB:        sources[1],
				ReserveB:            reserveB,
				PoolMint:            poolMint,
				SaberProgram:        venue.Saber.SaberProgram,
				OutputLp:            lpAccount,
			},
			&vault.InvestSaberInstructionArgs{
				InvestableA:   amountA,
				InvestableB:   amountB,
				MinTokensBack: minLpOut,
			},
		)
	case vault.StrategyFlagOrca:
		invest = vault.NewInvestOrcaInstruction(
			&vault.InvestOrcaInstructionAccounts{
				Payer:               payer,
				Authority:           v.Authority,
				GlobalProtocolState: global,
				Vault:               vaultAddress,
				Strategy:            v.Strategy,
				OrcaSwapProgram:     venue.Orca.SwapProgram,
				OrcaPool:            venue.Orca.Pool,
				OrcaAuthority:       venue.Orca.Authority,
				SourceTokenA:        sources[0],
				SourceTokenB:        sources[1],
				IntoA:               reserveA,
				IntoB:               reserveB,
				PoolToken:           poolMint,
				PoolAccount:         lpAccount,
			},
			&vault.InvestOrcaInstructionArgs{
				InvestableA:   amountA,
				InvestableB:   amountB,
				MinTokensBack: minLpOut,
			},
		)
	}

	return []solana.Instruction{createLp, invest}, v, nil
}

// InvestFunds deposits amountA and amountB of the vault's tranche mints into
// the strategy's pool, in the venue's token order. The submission fails if
// fewer than minLpOut pool tokens are minted.
func (o *Orchestrator) InvestFunds(ctx context.Context, payer ed25519.PrivateKey, vaultAddress ed25519.PublicKey, amountA, amountB, minLpOut uint64) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "InvestFunds")
	tracer.AddAttributes(map[string]interface{}{
		"amount_a":   amountA,
		"amount_b":   amountB,
		"min_lp_out": minLpOut,
	})
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	ixns, _, err := o.BuildInvest(ctx, payer.Public().(ed25519.PublicKey), vaultAddress, amountA, amountB, minLpOut)
	if err != nil {
		return solana.Signature{}, err
	}

	o.log.WithFields(logrus.Fields{
		"method":   "InvestFunds",
		"vault":    base58.Encode(vaultAddress),
		"amount_a": amountA,
		"amount_b": amountB,
	}).Debug("investing vault deposits")

	return o.submit(ctx, &submission{
		operation: journal.OperationInvest,
		vault:     vaultAddress,
		amount:    amountA + amountB,
		state:     vault.StateLive,
	}, []ed25519.PrivateKey{payer}, ixns...)
}

// InvestAll invests every deposit of both tranches.
func (o *Orchestrator) InvestAll(ctx context.Context, payer ed25519.PrivateKey, vaultAddress ed25519.PublicKey, minLpOut uint64) (solana.Signature, error) {
	v, err := o.GetVault(ctx, vaultAddress)
	if err != nil {
		return solana.Signature{}, err
	}
	venue, err := o.getVenue(ctx, v)
	if err != nil {
		return solana.Signature{}, err
	}

	amountA, amountB := InvestableAmounts(v, venue)
	return o.InvestFunds(ctx, payer, vaultAddress, amountA, amountB, minLpOut)
}
