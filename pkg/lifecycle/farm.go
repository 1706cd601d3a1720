package lifecycle

import (
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
)

// farmContext is everything an Orca farm instruction is built from.
type farmContext struct {
	vaultAddress ed25519.PublicKey
	vault        *vault.VaultAccount
	venue        *OrcaAccounts
	farm         *OrcaFarmAccounts
	global       ed25519.PublicKey

	farmVault     ed25519.PublicKey
	farmVaultBump uint8
	userFarm      ed25519.PublicKey

	// Owned by the vault
	poolAccount ed25519.PublicKey

	// Owned by the farm vault
	baseAta   ed25519.PublicKey
	farmAta   ed25519.PublicKey
	rewardAta ed25519.PublicKey
}

func (o *Orchestrator) loadFarmContext(ctx context.Context, vaultAddress ed25519.PublicKey) (*farmContext, error) {
	v, err := o.GetVault(ctx, vaultAddress)
	if err != nil {
		return nil, err
	}

	venue, err := o.getVenue(ctx, v)
	if err != nil {
		return nil, err
	}
	if venue.Flag != vault.StrategyFlagOrca {
		return nil, errors.Wrap(vault.ErrInvalidStrategyFlag, "farming requires an orca strategy")
	}
	if venue.Orca.Farm == nil {
		return nil, errors.New("strategy venue has no farm")
	}

	global, _, err := vault.GetGlobalProtocolStateAddress()
	if err != nil {
		return nil, err
	}

	farmVault, farmVaultBump, err := vault.GetFarmVaultAddress(&vault.GetFarmVaultAddressArgs{
		Vault: vaultAddress,
	})
	if err != nil {
		return nil, err
	}

	farm := venue.Orca.Farm
	userFarm, err := solana.FindProgramAddress(
		farm.AquafarmProgram,
		farm.GlobalFarm,
		farmVault,
		token.ProgramKey,
	)
	if err != nil {
		return nil, err
	}

	accounts, err := associatedAccounts(
		[2]ed25519.PublicKey{vaultAddress, venue.Orca.PoolMint},
		[2]ed25519.PublicKey{farmVault, venue.Orca.PoolMint},
		[2]ed25519.PublicKey{farmVault, farm.FarmTokenMint},
		[2]ed25519.PublicKey{farmVault, farm.RewardMint},
	)
	if err != nil {
		return nil, err
	}

	return &farmContext{
		vaultAddress:  vaultAddress,
		vault:         v,
		venue:         venue.Orca,
		farm:          farm,
		global:        global,
		farmVault:     farmVault,
		farmVaultBump: farmVaultBump,
		userFarm:      userFarm,
		poolAccount:   accounts[0],
		baseAta:       accounts[1],
		farmAta:       accounts[2],
		rewardAta:     accounts[3],
	}, nil
}

func (fc *farmContext) requireFarmVault() error {
	if fc.vault.FarmVault == nil {
		return ErrNoFarmVault
	}
	return nil
}

// BuildInitializeUserFarm builds the farm vault's aquafarm account, along
// with the farm vault's token accounts.
func (o *Orchestrator) BuildInitializeUserFarm(ctx context.Context, payer, vaultAddress ed25519.PublicKey) ([]solana.Instruction, error) {
	fc, err := o.loadFarmContext(ctx, vaultAddress)
	if err != nil {
		return nil, err
	}
	if fc.vault.FarmVault != nil {
		return nil, errors.Wrap(ErrInvalidStateForAction, "farm vault already initialized")
	}

	var ixns []solana.Instruction
	for _, mint := range []ed25519.PublicKey{fc.venue.PoolMint, fc.farm.FarmTokenMint, fc.farm.RewardMint} {
		create, _, err := token.CreateAssociatedTokenAccountIdempotent(payer, fc.farmVault, mint)
		if err != nil {
			return nil, err
		}
		ixns = append(ixns, create)
	}

	ixns = append(ixns, vault.NewInitializeUserFarmOrcaInstruction(
		&vault.InitializeUserFarmOrcaInstructionAccounts{
			Payer:               payer,
			Authority:           fc.vault.Authority,
			GlobalProtocolState: fc.global,
			Vault:               vaultAddress,
			FarmVault:           fc.farmVault,
			Strategy:            fc.vault.Strategy,
			AquafarmProgram:     fc.farm.AquafarmProgram,
			GlobalFarm:          fc.farm.GlobalFarm,
			UserFarm:            fc.userFarm,
		},
		&vault.InitializeUserFarmOrcaInstructionArgs{
			Bump: fc.farmVaultBump,
		},
	))
	return ixns, nil
}

// BuildConvertLp builds the staking of the vault's pool tokens in the farm.
func (o *Orchestrator) BuildConvertLp(ctx context.Context, payer, vaultAddress ed25519.PublicKey) ([]solana.Instruction, error) {
	fc, err := o.loadFarmContext(ctx, vaultAddress)
	if err != nil {
		return nil, err
	}
	if err := fc.requireFarmVault(); err != nil {
		return nil, err
	}

	return []solana.Instruction{
		vault.NewConvertOrcaLpInstruction(
			&vault.ConvertOrcaLpInstructionAccounts{
				Payer:                  payer,
				Authority:              fc.vault.Authority,
				GlobalProtocolState:    fc.global,
				Vault:                  vaultAddress,
				FarmVault:              fc.farmVault,
				Strategy:               fc.vault.Strategy,
				AquafarmProgram:        fc.farm.AquafarmProgram,
				PoolAccount:            fc.poolAccount,
				UserBaseAta:            fc.baseAta,
				GlobalBaseTokenVault:   fc.farm.GlobalBaseTokenVault,
				FarmTokenMint:          fc.farm.FarmTokenMint,
				UserFarmAta:            fc.farmAta,
				GlobalFarm:             fc.farm.GlobalFarm,
				UserFarm:               fc.userFarm,
				GlobalRewardTokenVault: fc.farm.GlobalRewardTokenVault,
				UserRewardAta:          fc.rewardAta,
				FarmAuthority:          fc.farm.FarmAuthority,
			},
			&vault.ConvertOrcaLpInstructionArgs{
				Bump: fc.farmVaultBump,
			},
		),
	}, nil
}

// BuildRevertLp builds the unstaking of the vault's farm tokens back into
// pool tokens.
func (o *Orchestrator) BuildRevertLp(ctx context.Context, payer, vaultAddress ed25519.PublicKey) ([]solana.Instruction, error) {
	fc, err := o.loadFarmContext(ctx, vaultAddress)
	if err != nil {
		return nil, err
	}
	if err := fc.requireFarmVault(); err != nil {
		return nil, err
	}

	return []solana.Instruction{
		vault.NewRevertOrcaLpInstruction(
			&vault.RevertOrcaLpInstructionAccounts{
				Payer:                  payer,
				Authority:              fc.vault.Authority,
				GlobalProtocolState:    fc.global,
				Vault:                  vaultAddress,
				FarmVault:              fc.farmVault,
				Strategy:               fc.vault.Strategy,
				AquafarmProgram:        fc.farm.AquafarmProgram,
				PoolAccount:            fc.poolAccount,
				UserBaseAta:            fc.baseAta,
				GlobalBaseTokenVault:   fc.farm.GlobalBaseTokenVault,
				FarmTokenMint:          fc.farm.FarmTokenMint,
				UserFarmAta:            fc.farmAta,
				GlobalFarm:             fc.farm.GlobalFarm,
				UserFarm:               fc.userFarm,
				GlobalRewardTokenVault: fc.farm.GlobalRewardTokenVault,
				UserRewardAta:          fc.rewardAta,
				FarmAuthority:          fc.farm.FarmAuthority,
			},
			&vault.RevertOrcaLpInstructionArgs{
				Bump: fc.farmVaultBump,
			},
		),
	}, nil
}

// BuildHarvestRewards builds the collection of accrued farm rewards into the
// farm vault's reward account.
func (o *Orchestrator) BuildHarvestRewards(ctx context.Context, payer, vaultAddress ed25519.PublicKey) ([]solana.Instruction, error) {
	fc, err := o.loadFarmContext(ctx, vaultAddress)
	if err != nil {
		return nil, err
	}
	if err := fc.requireFarmVault(); err != nil {
		return nil, err
	}

	return []solana.Instruction{
		vault.NewHarvestOrcaInstruction(
			&vault.HarvestOrcaInstructionAccounts{
				Payer:                  payer,
				Authority:              fc.vault.Authority,
				GlobalProtocolState:    fc.global,
				Vault:                  vaultAddress,
				FarmVault:              fc.farmVault,
				Strategy:               fc.vault.Strategy,
				AquafarmProgram:        fc.farm.AquafarmProgram,
				GlobalFarm:             fc.farm.GlobalFarm,
				UserFarm:               fc.userFarm,
				GlobalBaseTokenVault:   fc.farm.GlobalBaseTokenVault,
				GlobalRewardTokenVault: fc.farm.GlobalRewardTokenVault,
				UserRewardAta:          fc.rewardAta,
				FarmAuthority:          fc.farm.FarmAuthority,
			},
			&vault.HarvestOrcaInstructionArgs{
				Bump: fc.farmVaultBump,
			},
		),
	}, nil
}

// BuildSwapRewards builds the sale of amountIn harvested rewards through the
// reward pool, paid into the vault's account for the pool's output mint.
func (o *Orchestrator) BuildSwapRewards(ctx context.Context, payer, vaultAddress ed25519.PublicKey, amountIn, minAmountOut uint64) ([]solana.Instruction, error) {
	if amountIn == 0 {
		return nil, ErrZeroAmount
	}

	fc, err := o.loadFarmContext(ctx, vaultAddress)
	if err != nil {
		return nil, err
	}
	if err := fc.requireFarmVault(); err != nil {
		return nil, err
	}

	rewardPool := fc.farm.RewardPool
	if rewardPool == nil {
		return nil, errors.New("farm has no reward pool")
	}

	createDestination, destination, err := token.CreateAssociatedTokenAccountIdempotent(payer, vaultAddress, rewardPool.OutputMint)
	if err != nil {
		return nil, err
	}

	return []solana.Instruction{
		createDestination,
		vault.NewSwapOrcaInstruction(
			&vault.SwapOrcaInstructionAccounts{
				Payer:                 payer,
				Authority:             fc.vault.Authority,
				GlobalProtocolState:   fc.global,
				Vault:                 vaultAddress,
				FarmVault:             fc.farmVault,
				Strategy:              fc.vault.Strategy,
				OrcaSwapProgram:       fc.venue.SwapProgram,
				OrcaPool:              rewardPool.Pool,
				OrcaAuthority:         rewardPool.Authority,
				UserTransferAuthority: fc.farmVault,
				UserSource:            fc.rewardAta,
				PoolSource:            rewardPool.PoolSource,
				PoolDestination:       rewardPool.PoolDestination,
				UserDestination:       destination,
				PoolMint:              rewardPool.PoolMint,
				FeeAccount:            rewardPool.FeeAccount,
			},
			&vault.SwapOrcaInstructionArgs{
				Bump:         fc.farmVaultBump,
				AmountIn:     amountIn,
				MinAmountOut: minAmountOut,
			},
		),
	}, nil
}

type farmBuilder func(ctx context.Context, payer, vaultAddress ed25519.PublicKey) ([]solana.Instruction, error)

func (o *Orchestrator) submitFarmOperation(ctx context.Context, method string, operation journal.Operation, payer ed25519.PrivateKey, vaultAddress ed25519.PublicKey, amount uint64, build farmBuilder) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, method)
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	ixns, err := build(ctx, payer.Public().(ed25519.PublicKey), vaultAddress)
	if err != nil {
		return solana.Signature{}, err
	}

	o.log.WithFields(logrus.Fields{
		"method": method,
		"vault":  base58.Encode(vaultAddress),
	}).Debug("submitting farm operation")

	return o.submit(ctx, &submission{
		operation: operation,
		vault:     vaultAddress,
		amount:    amount,
		state:     vault.StateLive,
	}, []ed25519.PrivateKey{payer}, ixns...)
}

// InitializeUserFarm registers the vault's farm vault with the aquafarm.
// It can only be done once per vault.
func (o *Orchestrator) InitializeUserFarm(ctx context.Context, payer ed25519.PrivateKey, vaultAddress ed25519.PublicKey) (solana.Signature, error) {
	return o.submitFarmOperation(ctx, "InitializeUserFarm", journal.OperationInitializeUserFarm, payer, vaultAddress, 0, o.BuildInitializeUserFarm)
}

// ConvertLp stakes the vault's pool tokens.
func (o *Orchestrator) ConvertLp(ctx context.Context, payer ed25519.PrivateKey, vaultAddress ed25519.PublicKey) (solana.Signature, error) {
	return o.submitFarmOperation(ctx, "ConvertLp", journal.OperationConvertLp, payer, vaultAddress, 0, o.BuildConvertLp)
}

// HarvestRewards collects the farm's rewards.
func (o *Orchestrator) HarvestRewards(ctx context.Context, payer ed25519.PrivateKey, vaultAddress ed25519.PublicKey) (solana.Signature, error) {
	return o.submitFarmOperation(ctx, "HarvestRewards", journal.OperationHarvestRewards, payer, vaultAddress, 0, o.BuildHarvestRewards)
}

// RevertLp unstakes the vault's pool tokens. It must be done before the
// vault is redeemed.
func (o *Orchestrator) RevertLp(ctx context.Context, payer ed25519.PrivateKey, vaultAddress ed25519.PublicKey) (solana.Signature, error) {
	return o.submitFarmOperation(ctx, "RevertLp", journal.OperationRevertLp, payer, vaultAddress, 0, o.BuildRevertLp)
}

// SwapRewards sells harvested rewards into one of the vault's tranche mints.
func (o *Orchestrator) SwapRewards(ctx context.Context, payer ed25519.PrivateKey, vaultAddress ed25519.PublicKey, amountIn, minAmountOut uint64) (solana.Signature, error) {
	build := func(ctx context.Context, payer, vaultAddress ed25519.PublicKey) ([]solana.Instruction, error) {
		return o.BuildSwapRewards(ctx, payer, vaultAddress, amountIn, minAmountOut)
	}
	return o.submitFarmOperation(ctx, "SwapRewards", journal.OperationSwapRewards, payer, vaultAddress, amountIn, build)
}
