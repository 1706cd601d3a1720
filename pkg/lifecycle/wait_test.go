package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/solana/vault/vaulttest"
)

func TestWaitUntil_TargetReached(t *testing.T) {
	clock := vaulttest.NewClock(time.Unix(1_700_000_000, 0))

	require.NoError(t, WaitUntil(context.Background(), clock, clock.Now().Add(-time.Second), time.Millisecond))
	require.NoError(t, WaitUntil(context.Background(), clock, clock.Now(), time.Millisecond))

	target := clock.Now().Add(time.Hour)
	go func() {
		time.Sleep(20 * time.Millisecond)
		clock.Set(target)
	}()

	require.NoError(t, WaitUntil(context.Background(), clock, target, time.Millisecond))
	assert.False(t, clock.Now().Before(target))
}

func TestWaitUntil_ContextCancelled(t *testing.T) {
	clock := vaulttest.NewClock(time.Unix(1_700_000_000, 0))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := WaitUntil(ctx, clock, clock.Now().Add(time.Hour), time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Error(t, WaitUntil(context.Background(), clock, clock.Now(), 0))
}

func TestOrchestrator_WaitForState(t *testing.T) {
	env := setup(t, vault.StrategyFlagSaber, &testOverrides{
		waitPollInterval: time.Millisecond,
		maxWaitDuration:  50 * time.Millisecond,
	})
	vaultAddress := env.initializeVault(t, vault.AssetConfig{}, vault.AssetConfig{})

	err := env.orchestrator.WaitForState(env.ctx, vaultAddress, vault.StateDeposit)
	assert.ErrorIs(t, err, ErrWaitTimeout)

	go func() {
		time.Sleep(10 * time.Millisecond)
		env.clock.Set(env.investAt)
	}()
	require.NoError(t, env.orchestrator.WaitForState(env.ctx, vaultAddress, vault.StateLive))

	// Already passed
	require.NoError(t, env.orchestrator.WaitForState(env.ctx, vaultAddress, vault.StateDeposit))

	assert.Error(t, env.orchestrator.WaitForState(env.ctx, vaultAddress, vault.StateWithdraw))
}
