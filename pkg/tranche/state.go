package tranche

import (
	"time"

	"github.com/code-payments/tranche-vault/pkg/solana/vault"
)

// PredictState derives the lifecycle state the program will transition a
// vault into at time now. Withdraw is only reachable once the vault has been
// redeemed, which no timestamp alone can show.
func PredictState(now time.Time, startAt, investAt, redeemAt uint64, redeemed bool) vault.State {
	if redeemed {
		return vault.StateWithdraw
	}

	ts := now.Unix()
	switch {
	case ts < 0 || uint64(ts) < startAt:
		return vault.StateInactive
	case uint64(ts) < investAt:
		return vault.StateDeposit
	case uint64(ts) < redeemAt:
		return vault.StateLive
	default:
		return vault.StateRedeem
	}
}

// PredictVaultState is PredictState over a decoded vault account. A redeem
// that received nothing on either side is still seen through the decoded
// Withdraw state.
func PredictVaultState(now time.Time, v *vault.VaultAccount) vault.State {
	redeemed := v.State == vault.StateWithdraw || v.Alpha.Received+v.Beta.Received > 0
	return PredictState(now, v.StartAt, v.InvestAt, v.RedeemAt, redeemed)
}

// IsInvested reports whether the vault's deposits have been moved into its
// strategy.
func IsInvested(v *vault.VaultAccount) bool {
	return v.Alpha.Invested > 0 || v.Beta.Invested > 0
}

// ClaimsProcessed reports whether both tranches have settled their claims.
func ClaimsProcessed(v *vault.VaultAccount) bool {
	return v.Alpha.ClaimsProcessed && v.Beta.ClaimsProcessed
}
