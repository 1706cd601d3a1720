package keeper

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/tranche-vault/pkg/journal"
	memory_journal "github.com/code-payments/tranche-vault/pkg/journal/memory"
	"github.com/code-payments/tranche-vault/pkg/lifecycle"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/solana/vault/vaulttest"
	"github.com/code-payments/tranche-vault/pkg/testutil"
	"github.com/code-payments/tranche-vault/pkg/tranche"
)

const (
	seedLiquidity  = 1_000_000_000_000
	lamportsPerSol = 1_000_000_000
)

func TestCrank_Lifecycle(t *testing.T) {
	env := setup(t)
	vaultAddress := env.initializeVault(t)
	keeper := New(env.orchestrator, env.authority, withManualTestOverrides(&testOverrides{}), vaultAddress)

	crank := func(expected Action) {
		action, err := keeper.Crank(env.ctx, vaultAddress)
		require.NoError(t, err)
		require.Equal(t, expected, action, "expected %s, got %s", expected, action)
	}

	// Nothing is due before the vault goes live
	crank(ActionNone)
	env.clock.Set(env.startAt)
	env.deposit(t, vaultAddress, env.alphaMint, 1_000_000)
	crank(ActionNone)

	// Live with only alpha deposits cannot be invested
	env.clock.Set(env.investAt)
	crank(ActionNone)

	env.clock.Set(env.startAt)
	env.deposit(t, vaultAddress, env.betaMint, 1_000_000)
	env.clock.Set(env.investAt)

	crank(ActionInvest)
	crank(ActionProcessClaims)
	crank(ActionNone)

	v, err := env.orchestrator.GetVault(env.ctx, vaultAddress)
	require.NoError(t, err)
	assert.True(t, tranche.IsInvested(v))
	assert.True(t, tranche.ClaimsProcessed(v))

	require.NoError(t, env.program.AddPoolYield(env.pool, env.betaMint, seedLiquidity/10))
	env.clock.Set(env.redeemAt)

	crank(ActionRedeem)
	crank(ActionNone)

	v, err = env.orchestrator.GetVault(env.ctx, vaultAddress)
	require.NoError(t, err)
	assert.Equal(t, vault.StateWithdraw, v.State)

	for operation, expected := range map[journal.Operation]uint64{
		journal.OperationInvest:        1,
		journal.OperationProcessClaims: 2,
		journal.OperationRedeem:        1,
	} {
		count, err := env.journal.CountByOperation(env.ctx, base58.Encode(vaultAddress), operation)
		require.NoError(t, err)
		assert.Equal(t, expected, count, operation)
	}
}

func TestCrank_UnknownVault(t *testing.T) {
	env := setup(t)
	keeper := New(env.orchestrator, env.authority, withManualTestOverrides(&testOverrides{}))

	action, err := keeper.Crank(env.ctx, testutil.GenerateSolanaKey(t))
	assert.Error(t, err)
	assert.Equal(t, ActionNone, action)
}

func TestWatch(t *testing.T) {
	env := setup(t)
	first := testutil.GenerateSolanaKey(t)
	second := testutil.GenerateSolanaKey(t)

	keeper := New(env.orchestrator, env.authority, withManualTestOverrides(&testOverrides{}), first)
	assert.True(t, keeper.Watching(first))
	assert.False(t, keeper.Watching(second))

	keeper.Watch(second)
	keeper.Watch(second)
	assert.True(t, keeper.Watching(second))
	assert.Len(t, keeper.vaults, 2)

	// Unknown vaults are logged and skipped
	keeper.Tick(env.ctx)
}

func TestStart_Scheduled(t *testing.T) {
	env := setup(t)
	vaultAddress := env.initializeVault(t)

	env.clock.Set(env.startAt)
	env.deposit(t, vaultAddress, env.alphaMint, 1_000_000)
	env.deposit(t, vaultAddress, env.betaMint, 1_000_000)
	env.clock.Set(env.investAt)

	keeper := New(env.orchestrator, env.authority, withManualTestOverrides(&testOverrides{
		schedule: "* * * * * *",
	}), vaultAddress)

	ctx, cancel := context.WithCancel(env.ctx)
	done := make(chan error, 1)
	go func() {
		done <- keeper.Start(ctx)
	}()

	require.NoError(t, testutil.WaitFor(5*time.Second, 50*time.Millisecond, func() bool {
		v, err := env.orchestrator.GetVault(env.ctx, vaultAddress)
		return err == nil && tranche.IsInvested(v) && tranche.ClaimsProcessed(v)
	}))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "keeper did not stop")
	}
}

func TestStart_Disabled(t *testing.T) {
	env := setup(t)
	keeper := New(env.orchestrator, env.authority, withManualTestOverrides(&testOverrides{disabled: true}))

	ctx, cancel := context.WithTimeout(env.ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, keeper.Start(ctx), context.DeadlineExceeded)
}

func TestStart_InvalidSchedule(t *testing.T) {
	env := setup(t)
	keeper := New(env.orchestrator, env.authority, withManualTestOverrides(&testOverrides{schedule: "not a schedule"}))
	assert.Error(t, keeper.Start(env.ctx))
}

type testEnv struct {
	ctx context.Context

	program      *vaulttest.Program
	clock        *vaulttest.Clock
	orchestrator *lifecycle.Orchestrator
	journal      journal.Store

	authority ed25519.PrivateKey
	alphaMint ed25519.PublicKey
	betaMint  ed25519.PublicKey
	pool      *vaulttest.Pool
	strategy  ed25519.PublicKey

	startAt  time.Time
	investAt time.Time
	redeemAt time.Time
}

func setup(t *testing.T) *testEnv {
	testutil.QuietLogs(t)
	now := time.Unix(1_700_000_000, 0)

	env := &testEnv{
		ctx:       context.Background(),
		clock:     vaulttest.NewClock(now),
		authority: testutil.GenerateSolanaKeypair(t),
		journal:   memory_journal.New(),
		startAt:   now.Add(time.Minute),
		investAt:  now.Add(time.Hour),
		redeemAt:  now.Add(2 * time.Hour),
	}
	authorityKey := env.authority.Public().(ed25519.PublicKey)

	env.program = vaulttest.NewProgram(env.clock)
	env.program.Airdrop(authorityKey, 100*lamportsPerSol)
	env.alphaMint = env.program.CreateMint(testutil.GenerateSolanaKey(t), 6)
	env.betaMint = env.program.CreateMint(testutil.GenerateSolanaKey(t), 6)

	var err error
	env.pool, err = env.program.RegisterPool(vaulttest.PoolConfig{
		MintA: env.alphaMint,
		MintB: env.betaMint,
		SeedA: seedLiquidity,
		SeedB: seedLiquidity,
	})
	require.NoError(t, err)

	quoter, err := tranche.NewConstantProductQuoter(
		env.program,
		tranche.PoolReserves{
			MintA:    env.pool.MintA,
			ReserveA: env.pool.ReserveA,
			MintB:    env.pool.MintB,
			ReserveB: env.pool.ReserveB,
		},
		env.pool.TradeFeeNumerator,
		env.pool.TradeFeeDenominator,
	)
	require.NoError(t, err)

	venues := lifecycle.NewStaticVenueProvider()
	env.orchestrator = lifecycle.NewOrchestrator(
		env.program,
		env.program,
		quoter,
		venues,
		env.clock,
		env.journal,
		lifecycle.WithEnvConfigs(),
	)

	_, err = env.orchestrator.InitializeGlobalProtocolState(env.ctx, env.authority, authorityKey)
	require.NoError(t, err)

	env.strategy, err = env.orchestrator.InitializeStrategy(env.ctx, env.authority, &lifecycle.StrategyDefinition{
		Flag:     vault.StrategyFlagSaber,
		Version:  vault.StrategyFlagSaber.DefaultVersion(),
		TokenA:   env.pool.MintA,
		TokenB:   env.pool.MintB,
		BasePool: env.pool.Address,
		PoolLp:   env.pool.PoolMint,
	})
	require.NoError(t, err)

	require.NoError(t, venues.Register(env.strategy, &lifecycle.VenueAccounts{
		Flag: vault.StrategyFlagSaber,
		Saber: &lifecycle.SaberAccounts{
			SaberProgram:  vault.SABER_SWAP_PROGRAM_ID,
			Swap:          env.pool.Address,
			SwapAuthority: env.pool.Authority,
			TokenA:        env.pool.MintA,
			TokenB:        env.pool.MintB,
			ReserveA:      env.pool.ReserveA,
			ReserveB:      env.pool.ReserveB,
			PoolMint:      env.pool.PoolMint,
			AdminFeesA:    env.pool.FeeAccount,
			AdminFeesB:    env.pool.FeeAccount,
		},
	}))

	return env
}

func (e *testEnv) initializeVault(t *testing.T) ed25519.PublicKey {
	created, err := e.orchestrator.InitializeVault(e.ctx, e.authority, &vault.VaultConfig{
		Strategy:  e.strategy,
		FixedRate: vault.DefaultFixedRate,
		StartAt:   uint64(e.startAt.Unix()),
		InvestAt:  uint64(e.investAt.Unix()),
		RedeemAt:  uint64(e.redeemAt.Unix()),
	}, e.alphaMint, e.betaMint)
	require.NoError(t, err)
	return created.Vault
}

func (e *testEnv) deposit(t *testing.T, vaultAddress, mint ed25519.PublicKey, amount uint64) {
	depositor := testutil.GenerateSolanaKeypair(t)
	depositorKey := depositor.Public().(ed25519.PublicKey)

	e.program.Airdrop(depositorKey, 10*lamportsPerSol)
	source, err := e.program.CreateTokenAccount(depositorKey, mint)
	require.NoError(t, err)
	require.NoError(t, e.program.MintTo(source, amount))

	_, err = e.orchestrator.Deposit(e.ctx, depositor, vaultAddress, mint, amount)
	require.NoError(t, err)
}
