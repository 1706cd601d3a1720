package vaulttest

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/tranche-vault/pkg/pointer"
	"github.com/code-payments/tranche-vault/pkg/solana"
	"github.com/code-payments/tranche-vault/pkg/solana/system"
	"github.com/code-payments/tranche-vault/pkg/solana/token"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/testutil"
	"github.com/code-payments/tranche-vault/pkg/tranche"
)

const (
	seedLiquidity  = 1_000_000_000_000
	lamportsPerSol = 1_000_000_000
)

func TestSubmit_SignaturesRequired(t *testing.T) {
	env := setup(t)

	funder := testutil.GenerateSolanaKeypair(t)
	env.program.Airdrop(funder.Public().(ed25519.PublicKey), lamportsPerSol)

	address := testutil.GenerateSolanaKeypair(t)
	ixn := system.CreateAccount(
		funder.Public().(ed25519.PublicKey),
		address.Public().(ed25519.PublicKey),
		token.ProgramKey,
		Rent(token.MintSize),
		token.MintSize,
	)

	// The new account must co-sign its creation
	_, err := env.program.Submit(context.Background(), []ed25519.PrivateKey{funder}, ixn)
	require.Error(t, err)

	_, err = env.program.Submit(context.Background(), []ed25519.PrivateKey{funder, address}, ixn)
	require.NoError(t, err)

	_, err = env.program.Submit(context.Background(), nil, ixn)
	assert.Error(t, err)
}

func TestSubmit_AtomicRollback(t *testing.T) {
	env := setup(t)

	owner := testutil.GenerateSolanaKeypair(t)
	ownerKey := owner.Public().(ed25519.PublicKey)
	env.program.Airdrop(ownerKey, lamportsPerSol)

	source, err := env.program.CreateTokenAccount(ownerKey, env.alphaMint)
	require.NoError(t, err)
	require.NoError(t, env.program.MintTo(source, 100))

	dest, err := env.program.CreateTokenAccount(testutil.GenerateSolanaKey(t), env.alphaMint)
	require.NoError(t, err)

	_, err = env.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{owner},
		token.Transfer(source, dest, ownerKey, 60),
		token.Transfer(source, dest, ownerKey, 60),
	)
	require.Error(t, err)

	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok)
	require.NotNil(t, txErr.InstructionError())
	assert.Equal(t, 1, txErr.InstructionError().Index)

	assertTokenBalance(t, env.program, source, 100)
	assertTokenBalance(t, env.program, dest, 0)
}

func TestTokenProgram_MintLifecycle(t *testing.T) {
	env := setup(t)

	payer := testutil.GenerateSolanaKeypair(t)
	payerKey := payer.Public().(ed25519.PublicKey)
	env.program.Airdrop(payerKey, lamportsPerSol)

	mint := testutil.GenerateSolanaKeypair(t)
	mintKey := mint.Public().(ed25519.PublicKey)

	createAta, ata, err := token.CreateAssociatedTokenAccountIdempotent(payerKey, payerKey, mintKey)
	require.NoError(t, err)

	_, err = env.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{payer, mint},
		system.CreateAccount(payerKey, mintKey, token.ProgramKey, Rent(token.MintSize), token.MintSize),
		token.InitializeMint(mintKey, payerKey, nil, 4),
		createAta,
		token.MintTo(mintKey, ata, payerKey, 1_000),
		token.Burn(ata, mintKey, payerKey, 400),
	)
	require.NoError(t, err)

	decoded, err := env.program.GetMint(mintKey)
	require.NoError(t, err)
	assert.EqualValues(t, 4, decoded.Decimals)
	assert.EqualValues(t, 600, decoded.Supply)
	assertTokenBalance(t, env.program, ata, 600)

	// Re-initializing an initialized mint fails
	_, err = env.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{payer},
		token.InitializeMint(mintKey, payerKey, nil, 4),
	)
	assert.Error(t, err)

	// A non-native account holding tokens can't be closed
	_, err = env.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{payer},
		token.CloseAccount(ata, payerKey, payerKey),
	)
	assert.Error(t, err)
}

func TestTokenProgram_WrappedSol(t *testing.T) {
	env := setup(t)

	owner := testutil.GenerateSolanaKeypair(t)
	ownerKey := owner.Public().(ed25519.PublicKey)
	env.program.Airdrop(ownerKey, 10*lamportsPerSol)

	createAta, ata, err := token.CreateAssociatedTokenAccountIdempotent(ownerKey, ownerKey, vault.NATIVE_MINT)
	require.NoError(t, err)

	_, err = env.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{owner},
		createAta,
		system.Transfer(ownerKey, ata, 2*lamportsPerSol),
		token.SyncNative(ata),
	)
	require.NoError(t, err)
	assertTokenBalance(t, env.program, ata, 2*lamportsPerSol)

	before := env.program.Lamports(ownerKey)

	_, err = env.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{owner},
		token.CloseAccount(ata, ownerKey, ownerKey),
	)
	require.NoError(t, err)

	assert.Equal(t, before+2*lamportsPerSol+Rent(token.AccountSize), env.program.Lamports(ownerKey))

	_, err = env.program.GetAccountData(context.Background(), ata)
	assert.Equal(t, solana.ErrNoAccountInfo, err)
}

func TestAssociatedTokenProgram_AlreadyInUse(t *testing.T) {
	env := setup(t)

	owner := testutil.GenerateSolanaKeypair(t)
	ownerKey := owner.Public().(ed25519.PublicKey)
	env.program.Airdrop(ownerKey, lamportsPerSol)

	create, _, err := token.CreateAssociatedTokenAccount(ownerKey, ownerKey, env.alphaMint)
	require.NoError(t, err)
	createIdempotent, _, err := token.CreateAssociatedTokenAccountIdempotent(ownerKey, ownerKey, env.alphaMint)
	require.NoError(t, err)

	_, err = env.program.Submit(context.Background(), []ed25519.PrivateKey{owner}, create)
	require.NoError(t, err)

	_, err = env.program.Submit(context.Background(), []ed25519.PrivateKey{owner}, createIdempotent)
	require.NoError(t, err)

	_, err = env.program.Submit(context.Background(), []ed25519.PrivateKey{owner}, create)
	requireCustomError(t, err, ErrAccountAlreadyInUse)
}

func TestInitializeGlobalProtocolState_OnlyOnce(t *testing.T) {
	env := setup(t)

	global, bump, err := vault.GetGlobalProtocolStateAddress()
	require.NoError(t, err)

	_, err = env.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{env.authority},
		vault.NewInitializeGlobalProtocolStateInstruction(
			&vault.InitializeGlobalProtocolStateInstructionAccounts{
				Authority:           env.authorityKey,
				GlobalProtocolState: global,
				Treasury:            env.authorityKey,
			},
			&vault.InitializeGlobalProtocolStateInstructionArgs{Bump: bump},
		),
	)
	requireCustomError(t, err, ErrAccountAlreadyInUse)
}

func TestInitializeStrategy_Validation(t *testing.T) {
	env := setup(t)

	// The saber strategy already exists
	_, err := env.program.Submit(context.Background(), []ed25519.PrivateKey{env.authority}, env.saberStrategyInstruction(t, vault.StrategyFlagSaber))
	requireProgramError(t, err, vault.ErrStrategyAlreadyExists)

	_, err = env.program.Submit(context.Background(), []ed25519.PrivateKey{env.authority}, env.saberStrategyInstruction(t, vault.StrategyFlagOrca))
	requireProgramError(t, err, vault.ErrProgramInvalidStrategyFlag)

	// Only the protocol authority creates strategies
	other := testutil.GenerateSolanaKeypair(t)
	env.program.Airdrop(other.Public().(ed25519.PublicKey), lamportsPerSol)

	global, _, err := vault.GetGlobalProtocolStateAddress()
	require.NoError(t, err)

	strategy, bump, err := vault.GetSaberStrategyAddress(&vault.GetSaberStrategyAddressArgs{
		Flag:     vault.StrategyFlagSaber,
		Version:  vault.StrategyVersionSaberLpV0,
		TokenA:   env.alphaMint,
		TokenB:   env.betaMint,
		BasePool: env.pool.Address,
		PoolLp:   env.pool.PoolMint,
	})
	require.NoError(t, err)

	_, err = env.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{other},
		vault.NewInitializeSaberStrategyInstruction(
			&vault.InitializeSaberStrategyInstructionAccounts{
				Authority:           other.Public().(ed25519.PublicKey),
				GlobalProtocolState: global,
				Strategy:            strategy,
				TokenA:              env.alphaMint,
				TokenB:              env.betaMint,
				BasePool:            env.pool.Address,
				PoolLp:              env.pool.PoolMint,
			},
			&vault.InitializeSaberStrategyInstructionArgs{
				Bump:    bump,
				Flag:    uint64(vault.StrategyFlagSaber),
				Version: uint16(vault.StrategyVersionSaberLpV0),
			},
		),
	)
	requireProgramError(t, err, vault.ErrUnexpectedAuthority)
}

func TestVault_StateTransitions(t *testing.T) {
	env := setup(t)

	v, err := env.program.GetVault(env.authorityKey)
	require.NoError(t, err)
	assert.Equal(t, vault.StateInactive, v.State)

	depositor := env.newDepositor(t, 1_000)

	err = env.deposit(t, depositor, env.alphaMint, 100)
	requireProgramError(t, err, vault.ErrInvalidVaultState)

	env.clock.Set(env.startAt)
	require.NoError(t, env.deposit(t, depositor, env.alphaMint, 100))

	v, err = env.program.GetVault(env.authorityKey)
	require.NoError(t, err)
	assert.Equal(t, vault.StateDeposit, v.State)

	// Several transitions are applied at once
	env.clock.Set(env.redeemAt)
	err = env.deposit(t, depositor, env.alphaMint, 100)
	requireProgramError(t, err, vault.ErrInvalidVaultState)
}

func TestDeposit_Validation(t *testing.T) {
	env := setup(t)
	env.clock.Set(env.startAt)

	depositor := env.newDepositor(t, 10_000_000)

	require.NoError(t, env.deposit(t, depositor, env.alphaMint, 1_000))
	require.NoError(t, env.deposit(t, depositor, env.alphaMint, 2_000))

	err := env.deposit(t, depositor, env.alphaMint, 0)
	requireProgramError(t, err, vault.ErrInvalidDepositForVault)

	err = env.depositWithIndex(t, depositor, env.alphaMint, 100, 7)
	requireProgramError(t, err, vault.ErrInvalidDepositForVault)

	err = env.deposit(t, depositor, env.pool.PoolMint, 100)
	requireProgramError(t, err, vault.ErrNonexistentAsset)

	// Alpha's user cap is 5_000_000
	err = env.deposit(t, depositor, env.alphaMint, 5_000_000)
	requireProgramError(t, err, vault.ErrDepositExceedsUserCap)

	v, err := env.program.GetVault(env.authorityKey)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v.Alpha.Deposits)
	assert.EqualValues(t, 3_000, v.Alpha.Deposited)

	vaultAta, err := token.GetAssociatedAccount(env.vault, env.alphaMint)
	require.NoError(t, err)
	assertTokenBalance(t, env.program, vaultAta, 3_000)

	historyKey, _, err := vault.GetHistoryAddress(&vault.GetHistoryAddressArgs{
		Vault:     env.vault,
		Mint:      env.alphaMint,
		Depositor: depositor.Public().(ed25519.PublicKey),
	})
	require.NoError(t, err)

	data, err := env.program.GetAccountData(context.Background(), historyKey)
	require.NoError(t, err)

	var history vault.HistoryAccount
	require.NoError(t, history.Unmarshal(data))
	assert.True(t, history.CanClaimTrancheLp)
	assert.EqualValues(t, 2, history.Deposits)
	assert.EqualValues(t, 3_000, history.Cumulative)

	receiptKey, _, err := vault.GetReceiptAddress(&vault.GetReceiptAddressArgs{
		Vault:        env.vault,
		Mint:         env.alphaMint,
		DepositIndex: 2,
	})
	require.NoError(t, err)

	data, err = env.program.GetAccountData(context.Background(), receiptKey)
	require.NoError(t, err)

	var receipt vault.ReceiptAccount
	require.NoError(t, receipt.Unmarshal(data))
	assert.EqualValues(t, 2_000, receipt.Amount)
	assert.EqualValues(t, 1_000, receipt.Cumulative)
}

func TestDeposit_AssetCap(t *testing.T) {
	env := setup(t)
	env.clock.Set(env.startAt)

	// Beta's asset cap is 8_000_000
	first := env.newDepositor(t, 10_000_000)
	second := env.newDepositor(t, 10_000_000)

	require.NoError(t, env.deposit(t, first, env.betaMint, 6_000_000))

	err := env.deposit(t, second, env.betaMint, 3_000_000)
	requireProgramError(t, err, vault.ErrAssetCapExceeded)

	require.NoError(t, env.deposit(t, second, env.betaMint, 2_000_000))
}

func TestVault_FullLifecycle(t *testing.T) {
	env := setup(t)
	env.clock.Set(env.startAt)

	alice := env.newDepositor(t, 10_000_000)
	bob := env.newDepositor(t, 10_000_000)
	carol := env.newDepositor(t, 10_000_000)

	require.NoError(t, env.deposit(t, alice, env.alphaMint, 1_000_000))
	require.NoError(t, env.deposit(t, bob, env.alphaMint, 500_000))
	require.NoError(t, env.deposit(t, carol, env.betaMint, 1_200_000))

	// Deposits are closed once live
	env.clock.Set(env.investAt)

	// Claims can't be processed before investing
	err := env.processClaims(t, env.alphaMint, 2, 1)
	requireProgramError(t, err, vault.ErrInvalidVaultState)

	// Bob's deposit is only partially invested
	require.NoError(t, env.investSaber(t, 1_200_000, 1_200_000, 1))

	err = env.investSaber(t, 1, 1, 0)
	requireProgramError(t, err, vault.ErrInvalidVaultState)

	v, err := env.program.GetVault(env.authorityKey)
	require.NoError(t, err)
	assert.EqualValues(t, 1_200_000, v.Alpha.Invested)
	assert.EqualValues(t, 300_000, v.Alpha.Excess)
	assert.EqualValues(t, 1_200_000, v.Beta.Invested)
	assert.EqualValues(t, 0, v.Beta.Excess)

	// Newest receipts first; bob's receipt completes the walk
	require.NoError(t, env.processClaims(t, env.alphaMint, 2, 1))
	require.NoError(t, env.processClaims(t, env.betaMint, 1))

	v, err = env.program.GetVault(env.authorityKey)
	require.NoError(t, err)
	assert.True(t, v.Alpha.ClaimsProcessed)
	require.NotNil(t, v.Alpha.ClaimsIdx)
	assert.EqualValues(t, 1, *v.Alpha.ClaimsIdx)
	assert.True(t, v.Beta.ClaimsProcessed)

	require.NoError(t, env.claim(t, alice, env.alphaMint, env.alphaLp))
	require.NoError(t, env.claim(t, bob, env.alphaMint, env.alphaLp))
	require.NoError(t, env.claim(t, carol, env.betaMint, env.betaLp))

	err = env.claim(t, alice, env.alphaMint, env.alphaLp)
	requireProgramError(t, err, vault.ErrAlreadyClaimedLpTokens)

	assertTokenBalance(t, env.program, ata(t, alice, env.alphaLp), 1_000_000)
	assertTokenBalance(t, env.program, ata(t, bob, env.alphaLp), 200_000)
	assertTokenBalance(t, env.program, ata(t, bob, env.alphaMint), 10_000_000-500_000+300_000)
	assertTokenBalance(t, env.program, ata(t, carol, env.betaLp), 1_200_000)

	// Withdrawals wait for redemption
	err = env.withdraw(t, alice, env.alphaMint, env.alphaLp, 0)
	requireProgramError(t, err, vault.ErrInvalidVaultState)

	require.NoError(t, env.program.AddPoolYield(env.pool, env.alphaMint, seedLiquidity/10))
	require.NoError(t, env.program.AddPoolYield(env.pool, env.betaMint, seedLiquidity/10))

	env.clock.Set(env.redeemAt)

	err = env.redeemSaber(t, 10_000_000, 0, nil)
	requireProgramError(t, err, vault.ErrSlippageTooHigh)

	require.NoError(t, env.redeemSaber(t, 0, 0, &vault.SwapConfig{
		MaxIn:       10_000,
		MinOut:      1,
		AlphaToBeta: false,
	}))

	v, err = env.program.GetVault(env.authorityKey)
	require.NoError(t, err)
	assert.Equal(t, vault.StateWithdraw, v.State)

	// Yield lifted both sides above what was invested
	assert.True(t, v.Alpha.Received > v.Alpha.Invested)
	assert.True(t, v.Beta.Received > v.Beta.Invested-10_000)

	expectedAlice, err := tranche.ComputeWithdrawAmount(v.Alpha.Received, v.Alpha.Invested, 1_000_000, 6)
	require.NoError(t, err)

	aliceBefore := tokenBalance(t, env.program, ata(t, alice, env.alphaMint))
	require.NoError(t, env.withdraw(t, alice, env.alphaMint, env.alphaLp, 0))
	assertTokenBalance(t, env.program, ata(t, alice, env.alphaMint), aliceBefore+expectedAlice)
	assertTokenBalance(t, env.program, ata(t, alice, env.alphaLp), 0)

	err = env.withdraw(t, alice, env.alphaMint, env.alphaLp, 0)
	requireProgramError(t, err, vault.ErrCannotWithdrawWithoutLpTokens)

	err = env.withdraw(t, carol, env.betaMint, env.betaLp, 2_000_000)
	requireProgramError(t, err, vault.ErrInsufficientTokenBalance)

	err = env.withdraw(t, carol, env.alphaMint, env.betaLp, 0)
	requireProgramError(t, err, vault.ErrInvalidLpMint)

	require.NoError(t, env.withdraw(t, carol, env.betaMint, env.betaLp, 600_000))
	require.NoError(t, env.withdraw(t, carol, env.betaMint, env.betaLp, 0))
	assertTokenBalance(t, env.program, ata(t, carol, env.betaLp), 0)
}

func TestOrcaFarmVault(t *testing.T) {
	env := setup(t)

	farmVault, bump, err := vault.GetFarmVaultAddress(&vault.GetFarmVaultAddressArgs{Vault: env.vault})
	require.NoError(t, err)

	ixn := vault.NewHarvestOrcaInstruction(
		&vault.HarvestOrcaInstructionAccounts{
			Payer:               env.authorityKey,
			Authority:           env.authorityKey,
			GlobalProtocolState: env.global,
			Vault:               env.vault,
			FarmVault:           farmVault,
			Strategy:            env.strategy,
		},
		&vault.HarvestOrcaInstructionArgs{Bump: bump},
	)

	// The saber strategy can't farm
	_, err = env.program.Submit(context.Background(), []ed25519.PrivateKey{env.authority}, ixn)
	requireProgramError(t, err, vault.ErrProgramInvalidStrategyFlag)
}

type testEnv struct {
	program *Program
	clock   *Clock

	authority    ed25519.PrivateKey
	authorityKey ed25519.PublicKey

	global   ed25519.PublicKey
	strategy ed25519.PublicKey
	vault    ed25519.PublicKey

	alphaMint ed25519.PublicKey
	betaMint  ed25519.PublicKey
	alphaLp   ed25519.PublicKey
	betaLp    ed25519.PublicKey

	pool *Pool

	startAt  time.Time
	investAt time.Time
	redeemAt time.Time
}

func setup(t *testing.T) *testEnv {
	now := time.Unix(1_700_000_000, 0)

	env := &testEnv{
		clock:     NewClock(now),
		authority: testutil.GenerateSolanaKeypair(t),
		startAt:   now.Add(time.Minute),
		investAt:  now.Add(time.Hour),
		redeemAt:  now.Add(2 * time.Hour),
	}
	env.authorityKey = env.authority.Public().(ed25519.PublicKey)
	env.program = NewProgram(env.clock)
	env.program.Airdrop(env.authorityKey, 100*lamportsPerSol)

	env.alphaMint = env.program.CreateMint(testutil.GenerateSolanaKey(t), 6)
	env.betaMint = env.program.CreateMint(testutil.GenerateSolanaKey(t), 6)

	var err error
	env.pool, err = env.program.RegisterPool(PoolConfig{
		MintA: env.alphaMint,
		MintB: env.betaMint,
		SeedA: seedLiquidity,
		SeedB: seedLiquidity,
	})
	require.NoError(t, err)

	var bump uint8
	env.global, bump, err = vault.GetGlobalProtocolStateAddress()
	require.NoError(t, err)

	_, err = env.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{env.authority},
		vault.NewInitializeGlobalProtocolStateInstruction(
			&vault.InitializeGlobalProtocolStateInstructionAccounts{
				Authority:           env.authorityKey,
				GlobalProtocolState: env.global,
				Treasury:            env.authorityKey,
			},
			&vault.InitializeGlobalProtocolStateInstructionArgs{Bump: bump},
		),
	)
	require.NoError(t, err)

	_, err = env.program.Submit(context.Background(), []ed25519.PrivateKey{env.authority}, env.saberStrategyInstruction(t, vault.StrategyFlagSaber))
	require.NoError(t, err)

	var vaultBump uint8
	env.vault, vaultBump, err = vault.GetVaultAddress(&vault.GetVaultAddressArgs{Authority: env.authorityKey})
	require.NoError(t, err)

	env.alphaLp = env.program.CreateMint(env.vault, 6)
	env.betaLp = env.program.CreateMint(env.vault, 6)

	_, err = env.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{env.authority},
		vault.NewInitializeVaultInstruction(
			&vault.InitializeVaultInstructionAccounts{
				Authority:           env.authorityKey,
				GlobalProtocolState: env.global,
				Vault:               env.vault,
				AlphaMint:           env.alphaMint,
				AlphaLp:             env.alphaLp,
				BetaMint:            env.betaMint,
				BetaLp:              env.betaLp,
			},
			&vault.InitializeVaultInstructionArgs{
				VaultBump: vaultBump,
				VaultConfig: vault.VaultConfig{
					Strategy:   env.strategy,
					Authority:  env.authorityKey,
					Strategist: env.authorityKey,
					Alpha: vault.AssetConfig{
						UserCap: pointer.Uint64(5_000_000),
					},
					Beta: vault.AssetConfig{
						AssetCap: pointer.Uint64(8_000_000),
					},
					FixedRate: vault.DefaultFixedRate,
					StartAt:   uint64(env.startAt.Unix()),
					InvestAt:  uint64(env.investAt.Unix()),
					RedeemAt:  uint64(env.redeemAt.Unix()),
				},
			},
		),
	)
	require.NoError(t, err)

	return env
}

func (e *testEnv) saberStrategyInstruction(t *testing.T, flag vault.StrategyFlag) solana.Instruction {
	strategy, bump, err := vault.GetSaberStrategyAddress(&vault.GetSaberStrategyAddressArgs{
		Flag:     vault.StrategyFlagSaber,
		Version:  vault.StrategyVersionSaberLpV0,
		TokenA:   e.alphaMint,
		TokenB:   e.betaMint,
		BasePool: e.pool.Address,
		PoolLp:   e.pool.PoolMint,
	})
	require.NoError(t, err)
	e.strategy = strategy

	return vault.NewInitializeSaberStrategyInstruction(
		&vault.InitializeSaberStrategyInstructionAccounts{
			Authority:           e.authorityKey,
			GlobalProtocolState: e.global,
			Strategy:            strategy,
			TokenA:              e.alphaMint,
			TokenB:              e.betaMint,
			BasePool:            e.pool.Address,
			PoolLp:              e.pool.PoolMint,
		},
		&vault.InitializeSaberStrategyInstructionArgs{
			Bump:    bump,
			Flag:    uint64(flag),
			Version: uint16(vault.StrategyVersionSaberLpV0),
		},
	)
}

func (e *testEnv) newDepositor(t *testing.T, balance uint64) ed25519.PrivateKey {
	depositor := testutil.GenerateSolanaKeypair(t)
	depositorKey := depositor.Public().(ed25519.PublicKey)

	e.program.Airdrop(depositorKey, 10*lamportsPerSol)
	for _, mint := range []ed25519.PublicKey{e.alphaMint, e.betaMint} {
		address, err := e.program.CreateTokenAccount(depositorKey, mint)
		require.NoError(t, err)
		require.NoError(t, e.program.MintTo(address, balance))
	}
	return depositor
}

func (e *testEnv) deposit(t *testing.T, depositor ed25519.PrivateKey, mint ed25519.PublicKey, amount uint64) error {
	var index uint64 = 1
	if v, err := e.program.GetVault(e.authorityKey); err == nil {
		if asset, _, err := tranche.GetAsset(v, mint); err == nil {
			index = tranche.NextDepositIndex(asset)
		}
	}
	return e.depositWithIndex(t, depositor, mint, amount, index)
}

func (e *testEnv) depositWithIndex(t *testing.T, depositor ed25519.PrivateKey, mint ed25519.PublicKey, amount, index uint64) error {
	depositorKey := depositor.Public().(ed25519.PublicKey)

	receipt, receiptBump, err := vault.GetReceiptAddress(&vault.GetReceiptAddressArgs{
		Vault:        e.vault,
		Mint:         mint,
		DepositIndex: index,
	})
	require.NoError(t, err)

	history, historyBump, err := vault.GetHistoryAddress(&vault.GetHistoryAddressArgs{
		Vault:     e.vault,
		Mint:      mint,
		Depositor: depositorKey,
	})
	require.NoError(t, err)

	_, err = e.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{depositor},
		vault.NewDepositInstruction(
			&vault.DepositInstructionAccounts{
				Payer:               depositorKey,
				Authority:           e.authorityKey,
				GlobalProtocolState: e.global,
				Vault:               e.vault,
				Receipt:             receipt,
				History:             history,
				Mint:                mint,
				SourceAta:           ata(t, depositor, mint),
				DestinationAta:      ataOf(t, e.vault, mint),
			},
			&vault.DepositInstructionArgs{
				DepositIndex: index,
				ReceiptBump:  receiptBump,
				HistoryBump:  historyBump,
				Amount:       amount,
			},
		),
	)
	return err
}

func (e *testEnv) investSaber(t *testing.T, investableA, investableB, minTokensBack uint64) error {
	createLp, outputLp, err := token.CreateAssociatedTokenAccountIdempotent(e.authorityKey, e.vault, e.pool.PoolMint)
	require.NoError(t, err)

	_, err = e.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{e.authority},
		createLp,
		vault.NewInvestSaberInstruction(
			&vault.InvestSaberInstructionAccounts{
				Payer:               e.authorityKey,
				Authority:           e.authorityKey,
				GlobalProtocolState: e.global,
				Vault:               e.vault,
				Strategy:            e.strategy,
				Swap:                e.pool.Address,
				SwapAuthority:       e.pool.Authority,
				SourceTokenA:        ataOf(t, e.vault, e.alphaMint),
				ReserveA:            e.pool.ReserveA,
				SourceTokenB:        ataOf(t, e.vault, e.betaMint),
				ReserveB:            e.pool.ReserveB,
				PoolMint:            e.pool.PoolMint,
				SaberProgram:        vault.SABER_SWAP_PROGRAM_ID,
				OutputLp:            outputLp,
			},
			&vault.InvestSaberInstructionArgs{
				InvestableA:   investableA,
				InvestableB:   investableB,
				MinTokensBack: minTokensBack,
			},
		),
	)
	return err
}

func (e *testEnv) processClaims(t *testing.T, mint ed25519.PublicKey, indices ...uint64) error {
	var claims []vault.ClaimAccounts
	for _, index := range indices {
		receipt, _, err := vault.GetReceiptAddress(&vault.GetReceiptAddressArgs{
			Vault:        e.vault,
			Mint:         mint,
			DepositIndex: index,
		})
		require.NoError(t, err)

		data, err := e.program.GetAccountData(context.Background(), receipt)
		require.NoError(t, err)

		var decoded vault.ReceiptAccount
		require.NoError(t, decoded.Unmarshal(data))

		history, _, err := vault.GetHistoryAddress(&vault.GetHistoryAddressArgs{
			Vault:     e.vault,
			Mint:      mint,
			Depositor: decoded.Depositor,
		})
		require.NoError(t, err)

		claims = append(claims, vault.ClaimAccounts{Receipt: receipt, History: history})
	}

	_, err := e.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{e.authority},
		vault.NewProcessClaimsInstruction(&vault.ProcessClaimsInstructionAccounts{
			Payer:               e.authorityKey,
			Authority:           e.authorityKey,
			GlobalProtocolState: e.global,
			Vault:               e.vault,
			Mint:                mint,
			RemainingAccounts:   vault.NewProcessClaimsRemainingAccounts(claims...),
		}),
	)
	return err
}

func (e *testEnv) claim(t *testing.T, depositor ed25519.PrivateKey, mint, lp ed25519.PublicKey) error {
	depositorKey := depositor.Public().(ed25519.PublicKey)

	history, _, err := vault.GetHistoryAddress(&vault.GetHistoryAddressArgs{
		Vault:     e.vault,
		Mint:      mint,
		Depositor: depositorKey,
	})
	require.NoError(t, err)

	createLp, lpAta, err := token.CreateAssociatedTokenAccountIdempotent(depositorKey, depositorKey, lp)
	require.NoError(t, err)

	_, err = e.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{depositor},
		createLp,
		vault.NewClaimInstruction(&vault.ClaimInstructionAccounts{
			Payer:               depositorKey,
			Authority:           e.authorityKey,
			GlobalProtocolState: e.global,
			Vault:               e.vault,
			History:             history,
			Mint:                mint,
			Lp:                  lp,
			SourceAta:           ataOf(t, e.vault, mint),
			DestinationAta:      ata(t, depositor, mint),
			DestinationLpAta:    lpAta,
		}),
	)
	return err
}

func (e *testEnv) redeemSaber(t *testing.T, minTokenA, minTokenB uint64, swapConfig *vault.SwapConfig) error {
	_, err := e.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{e.authority},
		vault.NewRedeemSaberInstruction(
			&vault.RedeemSaberInstructionAccounts{
				Payer:               e.authorityKey,
				Authority:           e.authorityKey,
				GlobalProtocolState: e.global,
				Vault:               e.vault,
				Strategy:            e.strategy,
				Swap:                e.pool.Address,
				SwapAuthority:       e.pool.Authority,
				SourceTokenA:        ataOf(t, e.vault, e.alphaMint),
				ReserveA:            e.pool.ReserveA,
				SourceTokenB:        ataOf(t, e.vault, e.betaMint),
				ReserveB:            e.pool.ReserveB,
				PoolMint:            e.pool.PoolMint,
				SaberProgram:        vault.SABER_SWAP_PROGRAM_ID,
				InputLp:             ataOf(t, e.vault, e.pool.PoolMint),
				OutputAFees:         e.pool.FeeAccount,
				OutputBFees:         e.pool.FeeAccount,
			},
			&vault.RedeemSaberInstructionArgs{
				MinTokenA:  minTokenA,
				MinTokenB:  minTokenB,
				SwapConfig: swapConfig,
			},
		),
	)
	return err
}

func (e *testEnv) withdraw(t *testing.T, depositor ed25519.PrivateKey, mint, lp ed25519.PublicKey, amount uint64) error {
	depositorKey := depositor.Public().(ed25519.PublicKey)

	_, err := e.program.Submit(
		context.Background(),
		[]ed25519.PrivateKey{depositor},
		vault.NewWithdrawInstruction(
			&vault.WithdrawInstructionAccounts{
				Payer:               depositorKey,
				Authority:           e.authorityKey,
				GlobalProtocolState: e.global,
				Vault:               e.vault,
				Mint:                mint,
				Lp:                  lp,
				SourceLp:            ata(t, depositor, lp),
				SourceAta:           ataOf(t, e.vault, mint),
				DestinationAta:      ata(t, depositor, mint),
			},
			&vault.WithdrawInstructionArgs{Amount: amount},
		),
	)
	return err
}

func ata(t *testing.T, owner ed25519.PrivateKey, mint ed25519.PublicKey) ed25519.PublicKey {
	return ataOf(t, owner.Public().(ed25519.PublicKey), mint)
}

func ataOf(t *testing.T, owner, mint ed25519.PublicKey) ed25519.PublicKey {
	address, err := token.GetAssociatedAccount(owner, mint)
	require.NoError(t, err)
	return address
}

func tokenBalance(t *testing.T, program *Program, address ed25519.PublicKey) uint64 {
	balance, err := program.GetTokenBalance(context.Background(), address)
	require.NoError(t, err)
	return balance
}

func assertTokenBalance(t *testing.T, program *Program, address ed25519.PublicKey, expected uint64) {
	assert.Equal(t, expected, tokenBalance(t, program, address))
}

func requireProgramError(t *testing.T, err error, expected vault.ProgramError) {
	require.Error(t, err)

	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok, "unexpected error type %T", err)

	programErr := vault.ParseProgramError(txErr)
	require.NotNil(t, programErr, "not a vault program error: %v", err)
	assert.Equal(t, expected, *programErr)
}

func requireCustomError(t *testing.T, err error, expected solana.CustomError) {
	require.Error(t, err)

	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok, "unexpected error type %T", err)
	require.NotNil(t, txErr.InstructionError())

	custom := txErr.InstructionError().CustomError()
	require.NotNil(t, custom)
	assert.Equal(t, expected, *custom)
}
