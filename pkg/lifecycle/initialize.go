package lifecycle

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/tranche-vault/pkg/journal"
	"github.com/code-payments/tranche-vault/pkg/metrics"
	"github.com/code-payments/tranche-vault/pkg/solana"
	"github.com/code-payments/tranche-vault/pkg/solana/system"
	"github.com/code-payments/tranche-vault/pkg/solana/token"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
)

// StrategyDefinition describes a strategy account. TokenA, TokenB and the
// fields of the strategy's venue seed its address.
type StrategyDefinition struct {
	Flag    vault.StrategyFlag
	Version vault.StrategyVersion

	TokenA ed25519.PublicKey
	TokenB ed25519.PublicKey

	// Saber
	BasePool ed25519.PublicKey
	PoolLp   ed25519.PublicKey

	// Orca
	SwapProgram     ed25519.PublicKey
	FarmProgram     ed25519.PublicKey
	Pool            ed25519.PublicKey
	BaseLp          ed25519.PublicKey
	Farm            ed25519.PublicKey
	FarmLp          ed25519.PublicKey
	DoubleDipFarmLp ed25519.PublicKey
}

// Address derives the strategy's address and bump.
func (d *StrategyDefinition) Address() (ed25519.PublicKey, uint8, error) {
	switch d.Flag {
	case vault.StrategyFlagSaber:
		return vault.GetSaberStrategyAddress(&vault.GetSaberStrategyAddressArgs{
			Flag:     d.Flag,
			Version:  d.Version,
			TokenA:   d.TokenA,
			TokenB:   d.TokenB,
			BasePool: d.BasePool,
			PoolLp:   d.PoolLp,
		})
	case vault.StrategyFlagOrca:
		return vault.GetOrcaStrategyAddress(&vault.GetOrcaStrategyAddressArgs{
			Flag:    d.Flag,
			Version: d.Version,
			TokenA:  d.TokenA,
			TokenB:  d.TokenB,
			Pool:    d.Pool,
			BaseLp:  d.BaseLp,
			Farm:    d.Farm,
			FarmLp:  d.FarmLp,
		})
	}
	return nil, 0, vault.ErrInvalidStrategyFlag
}

// InitializedVault are the accounts created by InitializeVault.
type InitializedVault struct {
	Vault   ed25519.PublicKey
	AlphaLp ed25519.PublicKey
	BetaLp  ed25519.PublicKey

	Signature solana.Signature
}

// BuildInitializeGlobalProtocolState builds the one-time protocol setup.
func (o *Orchestrator) BuildInitializeGlobalProtocolState(authority, treasury ed25519.PublicKey) ([]solana.Instruction, error) {
	global, bump, err := vault.GetGlobalProtocolStateAddress()
	if err != nil {
		return nil, err
	}

	return []solana.Instruction{
		vault.NewInitializeGlobalProtocolStateInstruction(
			&vault.InitializeGlobalProtocolStateInstructionAccounts{
				Authority:           authority,
				GlobalProtocolState: global,
				Treasury:            treasury,
			},
			&vault.InitializeGlobalProtocolStateInstructionArgs{
				Bump: bump,
			},
		),
	}, nil
}

// InitializeGlobalProtocolState creates the account that gates every vault
// instruction. The authority becomes the protocol authority.
func (o *Orchestrator) InitializeGlobalProtocolState(ctx context.Context, authority ed25519.PrivateKey, treasury ed25519.PublicKey) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "InitializeGlobalProtocolState")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	authorityKey := authority.Public().(ed25519.PublicKey)

	ixns, err := o.BuildInitializeGlobalProtocolState(authorityKey, treasury)
	if err != nil {
		return solana.Signature{}, err
	}

	global, _, err := vault.GetGlobalProtocolStateAddress()
	if err != nil {
		return solana.Signature{}, err
	}

	return o.submit(ctx, &submission{
		operation: journal.OperationInitializeGlobal,
		vault:     global,
	}, []ed25519.PrivateKey{authority}, ixns...)
}

// BuildInitializeStrategy builds the strategy account creation for either
// venue.
func (o *Orchestrator) BuildInitializeStrategy(authority ed25519.PublicKey, def *StrategyDefinition) ([]solana.Instruction, ed25519.PublicKey, error) {
	if err := def.Flag.Validate(); err != nil {
		return nil, nil, err
	}
	if bytes.Equal(def.TokenA, def.TokenB) {
		return nil, nil, ErrDuplicateMint
	}

	global, _, err := vault.GetGlobalProtocolStateAddress()
	if err != nil {
		return nil, nil, err
	}

	strategy, bump, err := def.Address()
	if err != nil {
		return nil, nil, err
	}

	var ixn solana.Instruction
	switch def.Flag {
	case vault.StrategyFlagSaber:
		ixn = vault.NewInitializeSaberStrategyInstruction(
			&vault.InitializeSaberStrategyInstructionAccounts{
				Authority:           authority,
				GlobalProtocolState: global,
				Strategy:            strategy,
				TokenA:              def.TokenA,
				TokenB:              def.TokenB,
				BasePool:            def.BasePool,
				PoolLp:              def.PoolLp,
			},
			&vault.InitializeSaberStrategyInstructionArgs{
				Bump:    bump,
				Flag:    uint64(def.Flag),
				Version: uint16(def.Version),
			},
		)
	case vault.StrategyFlagOrca:
		ixn = vault.NewInitializeOrcaStrategyInstruction(
			&vault.InitializeOrcaStrategyInstructionAccounts{
				Authority:           authority,
				GlobalProtocolState: global,
				Strategy:            strategy,
				TokenA:              def.TokenA,
				TokenB:              def.TokenB,
				SwapProgram:         def.SwapProgram,
				FarmProgram:         def.FarmProgram,
				Pool:                def.Pool,
				BaseLp:              def.BaseLp,
				Farm:                def.Farm,
				FarmLp:              def.FarmLp,
				DoubleDipFarmLp:     def.DoubleDipFarmLp,
			},
			&vault.InitializeOrcaStrategyInstructionArgs{
				Bump:    bump,
				Flag:    uint64(def.Flag),
				Version: uint16(def.Version),
			},
		)
	}

	return []solana.Instruction{ixn}, strategy, nil
}

// InitializeStrategy creates a strategy account. Only the protocol authority
// can create strategies.
func (o *Orchestrator) InitializeStrategy(ctx context.Context, authority ed25519.PrivateKey, def *StrategyDefinition) (strategy ed25519.PublicKey, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "InitializeStrategy")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	ixns, strategy, err := o.BuildInitializeStrategy(authority.Public().(ed25519.PublicKey), def)
	if err != nil {
		return nil, err
	}

	_, err = o.submit(ctx, &submission{
		operation: journal.OperationInitializeStrategy,
		vault:     strategy,
	}, []ed25519.PrivateKey{authority}, ixns...)
	if err != nil {
		return nil, err
	}
	return strategy, nil
}

func validateVaultConfig(config *vault.VaultConfig, alphaMint, betaMint ed25519.PublicKey) error {
	if config.StartAt >= config.InvestAt || config.InvestAt >= config.RedeemAt {
		return ErrInvalidTimestampOrdering
	}
	if config.FixedRate > vault.MaxBps {
		return ErrInvalidFixedRate
	}
	if bytes.Equal(alphaMint, betaMint) {
		return ErrDuplicateMint
	}
	return nil
}

// BuildInitializeVault builds the vault creation, including the tranche LP
// mints whose authority is the vault. The LP mint keys must co-sign.
func (o *Orchestrator) BuildInitializeVault(ctx context.Context, config *vault.VaultConfig, alphaMint, betaMint, alphaLp, betaLp ed25519.PublicKey) ([]solana.Instruction, ed25519.PublicKey, error) {
	if err := validateVaultConfig(config, alphaMint, betaMint); err != nil {
		return nil, nil, err
	}

	global, _, err := vault.GetGlobalProtocolStateAddress()
	if err != nil {
		return nil, nil, err
	}

	vaultAddress, vaultBump, err := vault.GetVaultAddress(&vault.GetVaultAddressArgs{
		Authority: config.Authority,
	})
	if err != nil {
		return nil, nil, err
	}

	rent, err := o.reader.GetMinimumBalanceForRentExemption(ctx, token.MintSize)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error getting mint rent")
	}

	var ixns []solana.Instruction
	for _, pair := range [][2]ed25519.PublicKey{{alphaMint, alphaLp}, {betaMint, betaLp}} {
		mint, err := o.getMint(ctx, pair[0])
		if err != nil {
			return nil, nil, err
		}

		ixns = append(
			ixns,
			system.CreateAccount(config.Authority, pair[1], token.ProgramKey, rent, token.MintSize),
			token.InitializeMint(pair[1], vaultAddress, nil, mint.Decimals),
		)
	}

	ixns = append(ixns, vault.NewInitializeVaultInstruction(
		&vault.InitializeVaultInstructionAccounts{
			Authority:           config.Authority,
			GlobalProtocolState: global,
			Vault:               vaultAddress,
			AlphaMint:           alphaMint,
			AlphaLp:             alphaLp,
			BetaMint:            betaMint,
			BetaLp:              betaLp,
		},
		&vault.InitializeVaultInstructionArgs{
			VaultBump:   vaultBump,
			VaultConfig: *config,
		},
	))

	return ixns, vaultAddress, nil
}

// InitializeVault creates a vault owned by authority, along with fresh LP
// mints for both tranches. Invalid configurations are rejected without
// submitting anything.
func (o *Orchestrator) InitializeVault(ctx context.Context, authority ed25519.PrivateKey, config *vault.VaultConfig, alphaMint, betaMint ed25519.PublicKey) (res *InitializedVault, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "InitializeVault")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	authorityKey := authority.Public().(ed25519.PublicKey)

	cloned := *config
	if len(cloned.Authority) == 0 {
		cloned.Authority = authorityKey
	}
	if !bytes.Equal(cloned.Authority, authorityKey) {
		return nil, errors.New("config authority must sign")
	}
	if len(cloned.Strategist) == 0 {
		cloned.Strategist = authorityKey
	}

	if err := validateVaultConfig(&cloned, alphaMint, betaMint); err != nil {
		return nil, err
	}

	_, alphaLp, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	_, betaLp, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	alphaLpKey := alphaLp.Public().(ed25519.PublicKey)
	betaLpKey := betaLp.Public().(ed25519.PublicKey)

	ixns, vaultAddress, err := o.BuildInitializeVault(ctx, &cloned, alphaMint, betaMint, alphaLpKey, betaLpKey)
	if err != nil {
		return nil, err
	}

	o.log.WithFields(logrus.Fields{
		"method":   "InitializeVault",
		"vault":    base58.Encode(vaultAddress),
		"alpha_lp": base58.Encode(alphaLpKey),
		"beta_lp":  base58.Encode(betaLpKey),
	}).Debug("initializing vault")

	sig, err := o.submit(ctx, &submission{
		operation: journal.OperationInitializeVault,
		vault:     vaultAddress,
		state:     vault.StateInactive,
	}, []ed25519.PrivateKey{authority, alphaLp, betaLp}, ixns...)
	if err != nil {
		return nil, err
	}

	return &InitializedVault{
		Vault:     vaultAddress,
		AlphaLp:   alphaLpKey,
		BetaLp:    betaLpKey,
		Signature: sig,
	}, nil
}
