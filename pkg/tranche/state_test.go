package tranche

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/tranche-vault/pkg/solana/vault"
)

func TestPredictState(t *testing.T) {
	startAt := uint64(1_700_000_000)
	investAt := startAt + 10
	redeemAt := investAt + 10

	for _, tc := range []struct {
		ts       int64
		expected vault.State
	}{
		{0, vault.StateInactive},
		{int64(startAt) - 1, vault.StateInactive},
		{int64(startAt), vault.StateDeposit},
		{int64(investAt) - 1, vault.StateDeposit},
		{int64(investAt), vault.StateLive},
		{int64(redeemAt) - 1, vault.StateLive},
		{int64(redeemAt), vault.StateRedeem},
		{int64(redeemAt) + 1_000_000, vault.StateRedeem},
	} {
		actual := PredictState(time.Unix(tc.ts, 0), startAt, investAt, redeemAt, false)
		assert.Equal(t, tc.expected, actual, "ts=%d", tc.ts)
	}

	assert.Equal(t, vault.StateWithdraw, PredictState(time.Unix(int64(redeemAt), 0), startAt, investAt, redeemAt, true))
}

func TestPredictState_Monotonic(t *testing.T) {
	startAt := uint64(1_700_000_000)
	investAt := startAt + 7
	redeemAt := investAt + 13

	previous := vault.StateInactive
	for ts := int64(startAt) - 5; ts < int64(redeemAt)+5; ts++ {
		// The redeem instruction lands a couple of seconds after redeemAt
		redeemed := ts >= int64(redeemAt)+2

		current := PredictState(time.Unix(ts, 0), startAt, investAt, redeemAt, redeemed)
		assert.GreaterOrEqual(t, current, previous, "ts=%d", ts)
		previous = current
	}
	assert.Equal(t, vault.StateWithdraw, previous)
}

func TestPredictVaultState(t *testing.T) {
	v := &vault.VaultAccount{
		StartAt:  100,
		InvestAt: 200,
		RedeemAt: 300,
		State:    vault.StateLive,
	}

	assert.Equal(t, vault.StateDeposit, PredictVaultState(time.Unix(150, 0), v))
	assert.Equal(t, vault.StateRedeem, PredictVaultState(time.Unix(301, 0), v))

	v.Beta.Received = 1
	assert.Equal(t, vault.StateWithdraw, PredictVaultState(time.Unix(301, 0), v))

	v.Beta.Received = 0
	v.State = vault.StateWithdraw
	assert.Equal(t, vault.StateWithdraw, PredictVaultState(time.Unix(301, 0), v))
}

func TestVaultProgress(t *testing.T) {
	v := &vault.VaultAccount{}
	assert.False(t, IsInvested(v))
	assert.False(t, ClaimsProcessed(v))

	v.Beta.Invested = 10
	v.Alpha.ClaimsProcessed = true
	assert.True(t, IsInvested(v))
	assert.False(t, ClaimsProcessed(v))

	v.Beta.ClaimsProcessed = true
	assert.True(t, ClaimsProcessed(v))
}
