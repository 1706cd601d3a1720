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

// RedemptionEstimate is what redeeming the vault's pool position returns at
// current reserves.
type RedemptionEstimate struct {
	// Pool tokens held by the vault
	Lp uint64

	// In the venue's token order
	RedeemableA uint64
	RedeemableB uint64
	MinTokenA   uint64
	MinTokenB   uint64

	RedeemableAlpha uint64
	RedeemableBeta  uint64

	// Nil when no swap between tranches is needed
	Plan *tranche.SwapPlan
}

// EstimateRedemption prices the vault's pool tokens against the pool's
// reserves and sizes the swap that pays alpha its fixed rate. Withdrawal
// aware quoters price the swap on the reserves left after the redemption.
func (o *Orchestrator) EstimateRedemption(ctx context.Context, vaultAddress ed25519.PublicKey) (*RedemptionEstimate, error) {
	v, err := o.GetVault(ctx, vaultAddress)
	if err != nil {
		return nil, err
	}
	venue, err := o.getVenue(ctx, v)
	if err != nil {
		return nil, err
	}
	return o.estimateRedemption(ctx, vaultAddress, v, venue)
}

func (o *Orchestrator) estimateRedemption(ctx context.Context, vaultAddress ed25519.PublicKey, v *vault.VaultAccount, venue *VenueAccounts) (*RedemptionEstimate, error) {
	poolMint := venue.PoolMint()

	lpAccount, err := token.GetAssociatedAccount(vaultAddress, poolMint)
	if err != nil {
		return nil, err
	}
	lp, err := o.reader.GetTokenBalance(ctx, lpAccount)
	if err != nil {
		return nil, errors.Wrap(err, "error reading vault pool tokens")
	}

	mint, err := o.getMint(ctx, poolMint)
	if err != nil {
		return nil, err
	}

	reserveA, reserveB := venue.Reserves()
	balanceA, err := o.reader.GetTokenBalance(ctx, reserveA)
	if err != nil {
		return nil, errors.Wrap(err, "error reading reserve a")
	}
	balanceB, err := o.reader.GetTokenBalance(ctx, reserveB)
	if err != nil {
		return nil, errors.Wrap(err, "error reading reserve b")
	}

	estimate := &RedemptionEstimate{Lp: lp}
	if estimate.RedeemableA, err = tranche.LpShare(lp, mint.Supply, balanceA); err != nil {
		return nil, err
	}
	if estimate.RedeemableB, err = tranche.LpShare(lp, mint.Supply, balanceB); err != nil {
		return nil, err
	}

	slippageBps := uint16(o.conf.defaultSlippageBps.Get(ctx))
	if estimate.MinTokenA, err = tranche.GetMinAmountWithSlippage(estimate.RedeemableA, slippageBps); err != nil {
		return nil, err
	}
	if estimate.MinTokenB, err = tranche.GetMinAmountWithSlippage(estimate.RedeemableB, slippageBps); err != nil {
		return nil, err
	}

	tokenA, _ := venue.Tokens()
	estimate.RedeemableAlpha, estimate.RedeemableBeta = estimate.RedeemableA, estimate.RedeemableB
	if !bytes.Equal(tokenA, v.Alpha.Mint) {
		estimate.RedeemableAlpha, estimate.RedeemableBeta = estimate.RedeemableB, estimate.RedeemableA
	}

	// The swap runs after the redeem pulls the vault's liquidity out, so it's
	// priced against what the pool will have left.
	quoter := o.quoter
	if aware, ok := quoter.(tranche.WithdrawalAwareQuoter); ok {
		quoter = aware.AfterWithdrawal(
			tranche.Withdrawal{Reserve: reserveA, Amount: estimate.RedeemableA},
			tranche.Withdrawal{Reserve: reserveB, Amount: estimate.RedeemableB},
		)
	}

	rebalancer := tranche.NewRebalancer(quoter, int(o.conf.maxRebalanceRefinements.Get(ctx)))
	estimate.Plan, err = rebalancer.ComputeRebalance(ctx, &tranche.RebalanceInput{
		InvestedAlpha:   v.Alpha.Invested,
		FixedRate:       v.FixedRate,
		RedeemableAlpha: estimate.RedeemableAlpha,
		RedeemableBeta:  estimate.RedeemableBeta,
		AlphaMint:       v.Alpha.Mint,
		BetaMint:        v.Beta.Mint,
		SlippageBps:     slippageBps,
	})
	if err != nil {
		return nil, err
	}

	return estimate, nil
}

// BuildRedeem builds the withdrawal of the vault's pool position into the
// vault's tranche accounts. swap is the optional rebalance between tranches
// executed after the withdrawal.
func (o *Orchestrator) BuildRedeem(ctx context.Context, payer, vaultAddress ed25519.PublicKey, minTokenA, minTokenB uint64, swap *vault.SwapConfig) ([]solana.Instruction, error) {
	v, err := o.GetVault(ctx, vaultAddress)
	if err != nil {
		return nil, err
	}
	if _, err := o.requireState(v, vault.StateRedeem); err != nil {
		return nil, err
	}
	if !tranche.IsInvested(v) {
		return nil, errors.Wrap(ErrInvalidStateForAction, "vault has not been invested")
	}

	venue, err := o.getVenue(ctx, v)
	if err != nil {
		return nil, err
	}

	global, _, err := vault.GetGlobalProtocolStateAddress()
	if err != nil {
		return nil, err
	}

	tokenA, tokenB := venue.Tokens()
	reserveA, reserveB := venue.Reserves()
	poolMint := venue.PoolMint()

	accounts, err := associatedAccounts(
		[2]ed25519.PublicKey{vaultAddress, tokenA},
		[2]ed25519.PublicKey{vaultAddress, tokenB},
		[2]ed25519.PublicKey{vaultAddress, poolMint},
	)
	if err != nil {
		return nil, err
	}
	destinationA, destinationB, lpAccount := accounts[0], accounts[1], accounts[2]

	var ixn solana.Instruction
	switch venue.Flag {
	case vault.StrategyFlagSaber:
		ixn = vault.NewRedeemSaberInstruction(
			&vault.RedeemSaberInstructionAccounts{
				Payer:               payer,
				Authority:           v.Authority,
				GlobalProtocolState: global,
				Vault:               vaultAddress,
				Strategy:            v.Strategy,
				Swap:                venue.Saber.Swap,
				SwapAuthority:       venue.Saber.SwapAuthority,
				SourceTokenA:        destinationA,
				ReserveA:            reserveA,
				SourceTokenB:        destinationB,
				ReserveB:            reserveB,
				PoolMint:            poolMint,
				SaberProgram:        venue.Saber.SaberProgram,
				InputLp:             lpAccount,
				OutputAFees:         venue.Saber.AdminFeesA,
				OutputBFees:         venue.Saber.AdminFeesB,
			},
			&vault.RedeemSaberInstructionArgs{
				MinTokenA:  minTokenA,
				MinTokenB:  minTokenB,
				SwapConfig: swap,
			},
		)
	case vault.StrategyFlagOrca:
		ixn = vault.NewRedeemOrcaInstruction(
			&vault.RedeemOrcaInstructionAccounts{
				Payer:               payer,
				Authority:           v.Authority,
				GlobalProtocolState: global,
				Vault:               vaultAddress,
				Strategy:            v.Strategy,
				OrcaSwapProgram:     venue.Orca.SwapProgram,
				OrcaPool:            venue.Orca.Pool,
				OrcaAuthority:       venue.Orca.Authority,
				PoolMint:            poolMint,
				SourcePoolAccount:   lpAccount,
				FromA:               reserveA,
				FromB:               reserveB,
				SourceTokenA:        destinationA,
				SourceTokenB:        destinationB,
				FeeAccount:          venue.Orca.FeeAccount,
			},
			&vault.RedeemOrcaInstructionArgs{
				MinTokenA:  minTokenA,
				MinTokenB:  minTokenB,
				SwapConfig: swap,
			},
		)
	}

	return []solana.Instruction{ixn}, nil
}

// Redeem withdraws the vault's pool position, requiring at least minTokenA
// and minTokenB back in the venue's token order. The rebalance swap is sized
// by EstimateRedemption. Once it lands the vault is in Withdraw.
func (o *Orchestrator) Redeem(ctx context.Context, payer ed25519.PrivateKey, vaultAddress ed25519.PublicKey, minTokenA, minTokenB uint64) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Redeem")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	v, err := o.GetVault(ctx, vaultAddress)
	if err != nil {
		return solana.Signature{}, err
	}
	if _, err := o.requireState(v, vault.StateRedeem); err != nil {
		return solana.Signature{}, err
	}
	venue, err := o.getVenue(ctx, v)
	if err != nil {
		return solana.Signature{}, err
	}

	estimate, err := o.estimateRedemption(ctx, vaultAddress, v, venue)
	if err != nil {
		return solana.Signature{}, err
	}

	log := o.log.WithFields(logrus.Fields{
		"method":           "Redeem",
		"vault":            base58.Encode(vaultAddress),
		"redeemable_alpha": estimate.RedeemableAlpha,
		"redeemable_beta":  estimate.RedeemableBeta,
	})

	var swap *vault.SwapConfig
	if estimate.Plan != nil {
		swap = estimate.Plan.SwapConfig()
		log = log.WithField("swap", swap.String())
	}
	log.Debug("redeeming vault")

	ixns, err := o.BuildRedeem(ctx, payer.Public().(ed25519.PublicKey), vaultAddress, minTokenA, minTokenB, swap)
	if err != nil {
		return solana.Signature{}, err
	}

	return o.submit(ctx, &submission{
		operation: journal.OperationRedeem,
		vault:     vaultAddress,
		amount:    estimate.Lp,
		state:     vault.StateRedeem,
	}, []ed25519.PrivateKey{payer}, ixns...)
}

// RedeemWithSlippage redeems with minimums derived from the estimate and the
// configured default slippage.
func (o *Orchestrator) RedeemWithSlippage(ctx context.Context, payer ed25519.PrivateKey, vaultAddress ed25519.PublicKey) (solana.Signature, error) {
	estimate, err := o.EstimateRedemption(ctx, vaultAddress)
	if err != nil {
		return solana.Signature{}, err
	}
	return o.Redeem(ctx, payer, vaultAddress, estimate.MinTokenA, estimate.MinTokenB)
}
