package vaulttest

import (
	"bytes"
	"crypto/ed25519"
	"time"

	"github.com/code-payments/tranche-vault/pkg/solana/token"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/tranche"
)

func (p *Program) executeVault(txn *transaction, i int) error {
	data := txn.message.Instructions[i].Data
	keys := txn.keys(i)

	switch vault.GetInstructionType(data) {
	case vault.InstructionTypeInitializeGlobalProtocolState:
		return p.initializeGlobalProtocolState(txn, keys, data)
	case vault.InstructionTypeInitializeSaberStrategy:
		return p.initializeSaberStrategy(txn, keys, data)
	case vault.InstructionTypeInitializeOrcaStrategy:
		return p.initializeOrcaStrategy(txn, keys, data)
	case vault.InstructionTypeInitializeVault:
		return p.initializeVault(txn, keys, data)
	case vault.InstructionTypeDeposit:
		return p.deposit(txn, keys, data)
	case vault.InstructionTypeInvestSaber:
		return p.investSaber(txn, keys, data)
	case vault.InstructionTypeInvestOrca:
		return p.investOrca(txn, keys, data)
	case vault.InstructionTypeProcessClaims:
		return p.processClaims(txn, keys)
	case vault.InstructionTypeClaim:
		return p.claim(txn, keys)
	case vault.InstructionTypeRedeemSaber:
		return p.redeemSaber(txn, keys, data)
	case vault.InstructionTypeRedeemOrca:
		return p.redeemOrca(txn, keys, data)
	case vault.InstructionTypeWithdraw:
		return p.withdraw(txn, keys, data)
	case vault.InstructionTypeInitializeUserFarmOrca:
		return p.initializeUserFarmOrca(txn, keys, data)
	case vault.InstructionTypeConvertOrcaLp:
		var args vault.ConvertOrcaLpInstructionArgs
		if err := args.Unmarshal(data); err != nil {
			return errInvalidData
		}
		return p.farmOperation(txn, keys, args.Bump)
	case vault.InstructionTypeHarvestOrca:
		var args vault.HarvestOrcaInstructionArgs
		if err := args.Unmarshal(data); err != nil {
			return errInvalidData
		}
		return p.farmOperation(txn, keys, args.Bump)
	case vault.InstructionTypeRevertOrcaLp:
		var args vault.RevertOrcaLpInstructionArgs
		if err := args.Unmarshal(data); err != nil {
			return errInvalidData
		}
		return p.farmOperation(txn, keys, args.Bump)
	case vault.InstructionTypeSwapOrca:
		var args vault.SwapOrcaInstructionArgs
		if err := args.Unmarshal(data); err != nil {
			return errInvalidData
		}
		return p.farmOperation(txn, keys, args.Bump)
	}

	return errInvalidData
}

// GetVault returns the decoded vault owned by authority.
func (p *Program) GetVault(authority ed25519.PublicKey) (*vault.VaultAccount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	address, _, err := vault.GetVaultAddress(&vault.GetVaultAddressArgs{Authority: authority})
	if err != nil {
		return nil, err
	}

	data, ok := p.programData(address)
	if !ok {
		return nil, errUninitialized
	}

	var v vault.VaultAccount
	if err := v.Unmarshal(data); err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *Program) initializeGlobalProtocolState(txn *transaction, keys []ed25519.PublicKey, data []byte) error {
	if len(keys) < 3 {
		return errNotEnoughKeys
	}

	var args vault.InitializeGlobalProtocolStateInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return errInvalidData
	}

	authority, globalKey, treasury := keys[0], keys[1], keys[2]
	if !txn.isSigner(authority) {
		return errMissingSignature
	}

	expected, bump, err := vault.GetGlobalProtocolStateAddress()
	if err != nil || !bytes.Equal(expected, globalKey) {
		return vault.ErrPublicKeyMismatch
	}
	if bump != args.Bump {
		return vault.ErrBumpMismatch
	}

	if err := p.createAccount(authority, globalKey, vault.PROGRAM_ID, vault.GlobalProtocolStateAccountSize); err != nil {
		return err
	}

	global := &vault.GlobalProtocolStateAccount{
		Bump:      bump,
		Authority: authority,
		Active:    true,
		Treasury:  treasury,
	}
	p.putProgramData(globalKey, global.Marshal())
	return nil
}

func (p *Program) initializeSaberStrategy(txn *transaction, keys []ed25519.PublicKey, data []byte) error {
	if len(keys) < 7 {
		return errNotEnoughKeys
	}

	var args vault.InitializeSaberStrategyInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return errInvalidData
	}

	authority, strategyKey := keys[0], keys[2]
	if err := p.checkProtocolAuthority(txn, authority, keys[1]); err != nil {
		return err
	}
	if vault.StrategyFlag(args.Flag) != vault.StrategyFlagSaber {
		return vault.ErrProgramInvalidStrategyFlag
	}

	expected, bump, err := vault.GetSaberStrategyAddress(&vault.GetSaberStrategyAddressArgs{
		Flag:     vault.StrategyFlag(args.Flag),
		Version:  vault.StrategyVersion(args.Version),
		TokenA:   keys[3],
		TokenB:   keys[4],
		BasePool: keys[5],
		PoolLp:   keys[6],
	})
	if err != nil || !bytes.Equal(expected, strategyKey) {
		return vault.ErrDerivedKeyInvalid
	}
	if bump != args.Bump {
		return vault.ErrBumpMismatch
	}
	if p.exists(strategyKey) {
		return vault.ErrStrategyAlreadyExists
	}

	if err := p.createAccount(authority, strategyKey, vault.PROGRAM_ID, vault.SaberStrategyAccountSize); err != nil {
		return err
	}

	strategy := &vault.SaberStrategyAccount{
		Bump:    bump,
		Flag:    vault.StrategyFlagSaber,
		Version: vault.StrategyVersion(args.Version),
		BaseLp:  keys[6],
	}
	p.putProgramData(strategyKey, strategy.Marshal())
	return nil
}

func (p *Program) initializeOrcaStrategy(txn *transaction, keys []ed25519.PublicKey, data []byte) error {
	if len(keys) < 12 {
		return errNotEnoughKeys
	}

	var args vault.InitializeOrcaStrategyInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return errInvalidData
	}

	authority, strategyKey := keys[0], keys[2]
	if err := p.checkProtocolAuthority(txn, authority, keys[1]); err != nil {
		return err
	}
	if vault.StrategyFlag(args.Flag) != vault.StrategyFlagOrca {
		return vault.ErrProgramInvalidStrategyFlag
	}

	expected, bump, err := vault.GetOrcaStrategyAddress(&vault.GetOrcaStrategyAddressArgs{
		Flag:    vault.StrategyFlag(args.Flag),
		Version: vault.StrategyVersion(args.Version),
		TokenA:  keys[3],
		TokenB:  keys[4],
		Pool:    keys[7],
		BaseLp:  keys[8],
		Farm:    keys[9],
		FarmLp:  keys[10],
	})
	if err != nil || !bytes.Equal(expected, strategyKey) {
		return vault.ErrDerivedKeyInvalid
	}
	if bump != args.Bump {
		return vault.ErrBumpMismatch
	}
	if p.exists(strategyKey) {
		return vault.ErrStrategyAlreadyExists
	}

	if err := p.createAccount(authority, strategyKey, vault.PROGRAM_ID, vault.OrcaStrategyAccountSize); err != nil {
		return err
	}

	strategy := &vault.OrcaStrategyAccount{
		Bump:        bump,
		Flag:        vault.StrategyFlagOrca,
		Version:     vault.StrategyVersion(args.Version),
		SwapProgram: keys[5],
		FarmProgram: keys[6],
		TokenA:      keys[3],
		TokenB:      keys[4],
		BaseLp:      keys[8],
		FarmLp:      keys[10],
		DoubleDipLp: keys[11],
	}
	p.putProgramData(strategyKey, strategy.Marshal())
	return nil
}

func (p *Program) initializeVault(txn *transaction, keys []ed25519.PublicKey, data []byte) error {
	if len(keys) < 7 {
		return errNotEnoughKeys
	}

	var args vault.InitializeVaultInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return errInvalidData
	}
	config := args.VaultConfig

	authority, vaultKey := keys[0], keys[2]
	alphaMint, alphaLp, betaMint, betaLp := keys[3], keys[4], keys[5], keys[6]

	if !txn.isSigner(authority) {
		return errMissingSignature
	}
	if _, err := p.loadGlobal(keys[1]); err != nil {
		return err
	}
	if !bytes.Equal(config.Authority, authority) {
		return vault.ErrUnexpectedAuthority
	}

	expected, bump, err := vault.GetVaultAddress(&vault.GetVaultAddressArgs{Authority: authority})
	if err != nil || !bytes.Equal(expected, vaultKey) {
		return vault.ErrPublicKeyMismatch
	}
	if bump != args.VaultBump {
		return vault.ErrBumpMismatch
	}

	if bytes.Equal(alphaMint, betaMint) || bytes.Equal(alphaLp, betaLp) {
		return vault.ErrPublicKeysShouldBeUnique
	}
	if config.StartAt >= config.InvestAt || config.InvestAt >= config.RedeemAt {
		return vault.ErrInvalidStateTransition
	}
	if config.FixedRate > vault.MaxBps {
		return vault.ErrMathError
	}

	strategyData, ok := p.programData(config.Strategy)
	if !ok {
		return vault.ErrInvalidProgramAccountData
	}
	if _, err := vault.UnmarshalStrategy(strategyData); err != nil {
		return vault.ErrInvalidProgramAccountData
	}

	for _, pair := range [][2]ed25519.PublicKey{{alphaMint, alphaLp}, {betaMint, betaLp}} {
		if err := p.checkLpMint(vaultKey, pair[0], pair[1]); err != nil {
			return err
		}
	}

	if err := p.createAccount(authority, vaultKey, vault.PROGRAM_ID, vault.VaultAccountSize); err != nil {
		return err
	}

	v := &vault.VaultAccount{
		Bump:      bump,
		Authority: authority,
		Alpha: vault.Asset{
			Mint:     alphaMint,
			Lp:       alphaLp,
			AssetCap: config.Alpha.AssetCap,
			UserCap:  config.Alpha.UserCap,
		},
		Beta: vault.Asset{
			Mint:     betaMint,
			Lp:       betaLp,
			AssetCap: config.Beta.AssetCap,
			UserCap:  config.Beta.UserCap,
		},
		Strategy:   config.Strategy,
		Strategist: config.Strategist,
		FixedRate:  config.FixedRate,
		State:      vault.StateInactive,
		StartAt:    config.StartAt,
		InvestAt:   config.InvestAt,
		RedeemAt:   config.RedeemAt,
	}
	tryTransition(v, p.clock.Now())

	p.putProgramData(vaultKey, v.Marshal())
	return nil
}

func (p *Program) checkLpMint(vaultKey, mintKey, lpKey ed25519.PublicKey) error {
	mint, err := p.getMint(mintKey)
	if err != nil {
		return err
	}
	lp, err := p.getMint(lpKey)
	if err != nil {
		return err
	}

	if !bytes.Equal(lp.MintAuthority, vaultKey) {
		return vault.ErrInvalidMintAuthority
	}
	if lp.Supply != 0 {
		return vault.ErrInvalidLpMint
	}
	if lp.Decimals != mint.Decimals {
		return vault.ErrDecimalMismatch
	}
	return nil
}

func (p *Program) deposit(txn *transaction, keys []ed25519.PublicKey, data []byte) error {
	if len(keys) < 9 {
		return errNotEnoughKeys
	}

	var args vault.DepositInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return errInvalidData
	}

	payer, vaultKey := keys[0], keys[3]
	receiptKey, historyKey, mint := keys[4], keys[5], keys[6]
	source, dest := keys[7], keys[8]

	v, err := p.loadVault(txn, keys)
	if err != nil {
		return err
	}
	if v.State != vault.StateDeposit {
		return vault.ErrInvalidVaultState
	}

	asset, err := assetFor(v, mint)
	if err != nil {
		return err
	}
	if args.Amount == 0 || args.DepositIndex != asset.Deposits+1 {
		return vault.ErrInvalidDepositForVault
	}

	expectedReceipt, receiptBump, err := vault.GetReceiptAddress(&vault.GetReceiptAddressArgs{
		Vault:        vaultKey,
		Mint:         mint,
		DepositIndex: args.DepositIndex,
	})
	if err != nil || !bytes.Equal(expectedReceipt, receiptKey) {
		return vault.ErrDerivedKeyInvalid
	}
	if receiptBump != args.ReceiptBump {
		return vault.ErrBumpMismatch
	}

	expectedHistory, historyBump, err := vault.GetHistoryAddress(&vault.GetHistoryAddressArgs{
		Vault:     vaultKey,
		Mint:      mint,
		Depositor: payer,
	})
	if err != nil || !bytes.Equal(expectedHistory, historyKey) {
		return vault.ErrDerivedKeyInvalid
	}
	if historyBump != args.HistoryBump {
		return vault.ErrBumpMismatch
	}

	if err := p.createAccount(payer, receiptKey, vault.PROGRAM_ID, vault.ReceiptAccountSize); err != nil {
		return err
	}

	history := &vault.HistoryAccount{
		Bump:              historyBump,
		Initialized:       true,
		CanClaimTrancheLp: true,
	}
	if historyData, ok := p.programData(historyKey); ok {
		if err := history.Unmarshal(historyData); err != nil {
			return vault.ErrInvalidProgramAccountData
		}
	} else if err := p.createAccount(payer, historyKey, vault.PROGRAM_ID, vault.HistoryAccountSize); err != nil {
		return err
	}

	history.Deposits++
	if history.Cumulative+args.Amount < history.Cumulative {
		return vault.ErrMathError
	}
	history.Cumulative += args.Amount
	if asset.UserCap != nil && history.Cumulative > *asset.UserCap {
		return vault.ErrDepositExceedsUserCap
	}

	if asset.Deposited+args.Amount < asset.Deposited {
		return vault.ErrMathError
	}
	if asset.AssetCap != nil && asset.Deposited+args.Amount > *asset.AssetCap {
		return vault.ErrAssetCapExceeded
	}

	expectedDest, err := token.GetAssociatedAccount(vaultKey, mint)
	if err != nil || !bytes.Equal(expectedDest, dest) {
		return vault.ErrPublicKeyMismatch
	}
	if !p.exists(dest) {
		if err := p.createAssociatedAccount(payer, vaultKey, mint); err != nil {
			return err
		}
	}

	if err := p.transferTokens(source, dest, payer, args.Amount); err != nil {
		return err
	}

	receipt := &vault.ReceiptAccount{
		Bump:       receiptBump,
		Amount:     args.Amount,
		Cumulative: asset.Deposited,
		Depositor:  payer,
	}

	asset.Deposited += args.Amount
	asset.Deposits++

	p.putProgramData(receiptKey, receipt.Marshal())
	p.putProgramData(historyKey, history.Marshal())
	p.putProgramData(vaultKey, v.Marshal())
	return nil
}

type investAccounts struct {
	strategy ed25519.PublicKey
	pool     ed25519.PublicKey
	sourceA  ed25519.PublicKey
	sourceB  ed25519.PublicKey
	outputLp ed25519.PublicKey
}

func (p *Program) investSaber(txn *transaction, keys []ed25519.PublicKey, data []byte) error {
	if len(keys) < 17 {
		return errNotEnoughKeys
	}

	var args vault.InvestSaberInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return errInvalidData
	}

	return p.invest(txn, keys, &investAccounts{
		strategy: keys[4],
		pool:     keys[8],
		sourceA:  keys[10],
		sourceB:  keys[12],
		outputLp: keys[16],
	}, args.InvestableA, args.InvestableB, args.MinTokensBack)
}

func (p *Program) investOrca(txn *transaction, keys []ed25519.PublicKey, data []byte) error {
	if len(keys) < 17 {
		return errNotEnoughKeys
	}

	var args vault.InvestOrcaInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return errInvalidData
	}

	return p.invest(txn, keys, &investAccounts{
		strategy: keys[4],
		pool:     keys[9],
		sourceA:  keys[11],
		sourceB:  keys[12],
		outputLp: keys[16],
	}, args.InvestableA, args.InvestableB, args.MinTokensBack)
}

func (p *Program) invest(txn *transaction, keys []ed25519.PublicKey, accounts *investAccounts, investableA, investableB, minTokensBack uint64) error {
	vaultKey := keys[3]

	v, err := p.loadVault(txn, keys)
	if err != nil {
		return err
	}
	if v.State != vault.StateLive || tranche.IsInvested(v) {
		return vault.ErrInvalidVaultState
	}
	if v.Alpha.Deposits == 0 || v.Beta.Deposits == 0 {
		return vault.ErrVaultHasNoDeposits
	}
	if !bytes.Equal(accounts.strategy, v.Strategy) {
		return vault.ErrPublicKeyMismatch
	}

	pool, err := p.getPool(accounts.pool)
	if err != nil {
		return err
	}

	legs := [2]poolLeg{
		{source: accounts.sourceA, amount: investableA},
		{source: accounts.sourceB, amount: investableB},
	}

	var seen *vault.Asset
	for _, leg := range legs {
		tokenAccount, err := p.getTokenAccount(leg.source)
		if err != nil {
			return err
		}
		if !bytes.Equal(tokenAccount.Owner, vaultKey) {
			return vault.ErrIncorrectOwner
		}

		asset, err := assetFor(v, tokenAccount.Mint)
		if err != nil {
			return err
		}
		if asset == seen {
			return vault.ErrPublicKeysShouldBeUnique
		}
		seen = asset

		if leg.amount > asset.Deposited || leg.amount > tokenAccount.Amount {
			return vault.ErrInsufficientTokenBalance
		}
		if asset.AssetCap != nil && leg.amount > *asset.AssetCap {
			return vault.ErrAssetCapExceeded
		}

		asset.Invested = leg.amount
		asset.Excess = tokenAccount.Amount - leg.amount
		asset.TotalInvested += leg.amount
	}

	lpAccount, err := p.getTokenAccount(accounts.outputLp)
	if err != nil {
		return err
	}
	if !bytes.Equal(lpAccount.Owner, vaultKey) {
		return vault.ErrIncorrectOwner
	}

	lp, err := p.depositLiquidity(pool, vaultKey, legs, accounts.outputLp)
	if err != nil {
		return err
	}
	if lp < minTokensBack {
		return vault.ErrSlippageTooHigh
	}

	p.putProgramData(vaultKey, v.Marshal())
	return nil
}

type redeemAccounts struct {
	strategy ed25519.PublicKey
	pool     ed25519.PublicKey
	poolMint ed25519.PublicKey
	lpSource ed25519.PublicKey
	tokenA   ed25519.PublicKey
	tokenB   ed25519.PublicKey
}

func (p *Program) redeemSaber(txn *transaction, keys []ed25519.PublicKey, data []byte) error {
	if len(keys) < 19 {
		return errNotEnoughKeys
	}

	var args vault.RedeemSaberInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return errInvalidData
	}

	return p.redeem(txn, keys, &redeemAccounts{
		strategy: keys[4],
		pool:     keys[8],
		poolMint: keys[14],
		lpSource: keys[16],
		tokenA:   keys[10],
		tokenB:   keys[12],
	}, args.MinTokenA, args.MinTokenB, args.SwapConfig)
}

func (p *Program) redeemOrca(txn *transaction, keys []ed25519.PublicKey, data []byte) error {
	if len(keys) < 18 {
		return errNotEnoughKeys
	}

	var args vault.RedeemOrcaInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return errInvalidData
	}

	return p.redeem(txn, keys, &redeemAccounts{
		strategy: keys[4],
		pool:     keys[9],
		poolMint: keys[11],
		lpSource: keys[12],
		tokenA:   keys[15],
		tokenB:   keys[16],
	}, args.MinTokenA, args.MinTokenB, args.SwapConfig)
}

func (p *Program) redeem(txn *transaction, keys []ed25519.PublicKey, accounts *redeemAccounts, minTokenA, minTokenB uint64, swapConfig *vault.SwapConfig) error {
	vaultKey := keys[3]

	v, err := p.loadVault(txn, keys)
	if err != nil {
		return err
	}
	if v.State != vault.StateRedeem {
		return vault.ErrInvalidVaultState
	}
	if !tranche.IsInvested(v) {
		return vault.ErrVaultHasNoDeposits
	}
	if !bytes.Equal(accounts.strategy, v.Strategy) {
		return vault.ErrPublicKeyMismatch
	}

	pool, err := p.getPool(accounts.pool)
	if err != nil {
		return err
	}
	if !bytes.Equal(pool.PoolMint, accounts.poolMint) {
		return vault.ErrPublicKeyMismatch
	}

	// Token accounts by tranche.
	byTranche := make(map[*vault.Asset]ed25519.PublicKey)
	minimums := make(map[*vault.Asset]uint64)
	for _, side := range []struct {
		account ed25519.PublicKey
		min     uint64
	}{
		{accounts.tokenA, minTokenA},
		{accounts.tokenB, minTokenB},
	} {
		tokenAccount, err := p.getTokenAccount(side.account)
		if err != nil {
			return err
		}
		if !bytes.Equal(tokenAccount.Owner, vaultKey) {
			return vault.ErrIncorrectOwner
		}
		asset, err := assetFor(v, tokenAccount.Mint)
		if err != nil {
			return err
		}
		if _, ok := byTranche[asset]; ok {
			return vault.ErrPublicKeysShouldBeUnique
		}
		byTranche[asset] = side.account
		minimums[asset] = side.min
	}

	received, err := p.withdrawLiquidity(pool, vaultKey, accounts.lpSource, [2]ed25519.PublicKey{accounts.tokenA, accounts.tokenB})
	if err != nil {
		return err
	}

	for asset, min := range minimums {
		amount := received[string(asset.Mint)]
		if amount < min {
			return vault.ErrSlippageTooHigh
		}
		asset.Received = amount
	}

	if swapConfig != nil && swapConfig.MaxIn > 0 {
		from, to := &v.Beta, &v.Alpha
		if swapConfig.AlphaToBeta {
			from, to = &v.Alpha, &v.Beta
		}

		if from.Received < swapConfig.MaxIn {
			return vault.ErrMathError
		}

		out, err := p.swap(pool, vaultKey, byTranche[from], byTranche[to], swapConfig.MaxIn)
		if err != nil {
			return err
		}
		if out < swapConfig.MinOut {
			return vault.ErrSlippageTooHigh
		}

		from.Received -= swapConfig.MaxIn
		to.Received += out
	}

	v.State = vault.StateWithdraw
	p.putProgramData(vaultKey, v.Marshal())
	return nil
}

func (p *Program) processClaims(txn *transaction, keys []ed25519.PublicKey) error {
	if len(keys) < 5 {
		return errNotEnoughKeys
	}

	vaultKey, mint := keys[3], keys[4]
	remaining := keys[5:]

	v, err := p.loadVault(txn, keys)
	if err != nil {
		return err
	}
	if v.State < vault.StateLive || !tranche.IsInvested(v) {
		return vault.ErrInvalidVaultState
	}

	asset, err := assetFor(v, mint)
	if err != nil {
		return err
	}

	if asset.ClaimsProcessed {
		p.putProgramData(vaultKey, v.Marshal())
		return nil
	}

	if asset.Deposits == 0 {
		var zero uint64
		asset.ClaimsIdx = &zero
		asset.ClaimsProcessed = true
		p.putProgramData(vaultKey, v.Marshal())
		return nil
	}

	if len(remaining)%2 != 0 {
		return vault.ErrInvalidRemainingAccountsIndex
	}

	start := asset.Deposits
	if asset.ClaimsIdx != nil {
		start = *asset.ClaimsIdx
	}

	var processed uint64
	for idx := 0; idx < len(remaining)/2; idx++ {
		if uint64(idx) >= start {
			return vault.ErrInvalidRemainingAccountsIndex
		}
		claimIdx := start - uint64(idx)
		receiptKey, historyKey := remaining[2*idx], remaining[2*idx+1]

		expectedReceipt, _, err := vault.GetReceiptAddress(&vault.GetReceiptAddressArgs{
			Vault:        vaultKey,
			Mint:         mint,
			DepositIndex: claimIdx,
		})
		if err != nil || !bytes.Equal(expectedReceipt, receiptKey) {
			return vault.ErrDerivedKeyInvalid
		}

		receiptData, ok := p.programData(receiptKey)
		if !ok {
			return vault.ErrUninitializedAccount
		}
		var receipt vault.ReceiptAccount
		if err := receipt.Unmarshal(receiptData); err != nil {
			return vault.ErrInvalidProgramAccountData
		}

		expectedHistory, _, err := vault.GetHistoryAddress(&vault.GetHistoryAddressArgs{
			Vault:     vaultKey,
			Mint:      mint,
			Depositor: receipt.Depositor,
		})
		if err != nil || !bytes.Equal(expectedHistory, historyKey) {
			return vault.ErrDerivedKeyInvalid
		}

		historyData, ok := p.programData(historyKey)
		if !ok {
			return vault.ErrUninitializedAccount
		}
		var history vault.HistoryAccount
		if err := history.Unmarshal(historyData); err != nil {
			return vault.ErrInvalidProgramAccountData
		}

		amount, complete := tranche.ComputeClaimAmount(asset.Invested, receipt.Cumulative, receipt.Amount)
		history.Claim += amount
		p.putProgramData(historyKey, history.Marshal())

		processed++
		if complete {
			asset.ClaimsProcessed = true
			break
		}
	}

	next := start - processed
	asset.ClaimsIdx = &next

	p.putProgramData(vaultKey, v.Marshal())
	return nil
}

func (p *Program) claim(txn *transaction, keys []ed25519.PublicKey) error {
	if len(keys) < 10 {
		return errNotEnoughKeys
	}

	payer, vaultKey, historyKey := keys[0], keys[3], keys[4]
	mint, lp := keys[5], keys[6]
	source, dest, destLp := keys[7], keys[8], keys[9]

	v, err := p.loadVault(txn, keys)
	if err != nil {
		return err
	}

	asset, err := assetFor(v, mint)
	if err != nil {
		return err
	}
	if !asset.ClaimsProcessed {
		return vault.ErrInvalidVaultState
	}
	if !bytes.Equal(asset.Lp, lp) {
		return vault.ErrInvalidLpMint
	}

	expectedHistory, _, err := vault.GetHistoryAddress(&vault.GetHistoryAddressArgs{
		Vault:     vaultKey,
		Mint:      mint,
		Depositor: payer,
	})
	if err != nil || !bytes.Equal(expectedHistory, historyKey) {
		return vault.ErrDerivedKeyInvalid
	}

	historyData, ok := p.programData(historyKey)
	if !ok {
		return vault.ErrUninitializedAccount
	}
	var history vault.HistoryAccount
	if err := history.Unmarshal(historyData); err != nil {
		return vault.ErrInvalidProgramAccountData
	}

	claimAmount := history.Claim
	if claimAmount == 0 && !history.CanClaimTrancheLp {
		return vault.ErrAlreadyClaimedLpTokens
	}

	if claimAmount > 0 {
		expectedSource, err := token.GetAssociatedAccount(vaultKey, mint)
		if err != nil || !bytes.Equal(expectedSource, source) {
			return vault.ErrPublicKeyMismatch
		}
		if err := p.transferTokens(source, dest, vaultKey, claimAmount); err != nil {
			return err
		}
		history.Claim = 0
	}

	if history.CanClaimTrancheLp {
		lpMint, err := p.getMint(lp)
		if err != nil {
			return err
		}
		if !bytes.Equal(lpMint.MintAuthority, vaultKey) {
			return vault.ErrInvalidMintAuthority
		}

		lpAmount := tranche.ComputeLpAmount(history.Cumulative, claimAmount)
		if lpAmount > 0 {
			if err := p.mintTokens(lp, destLp, lpAmount); err != nil {
				return err
			}
		}
		history.CanClaimTrancheLp = false
	}

	p.putProgramData(historyKey, history.Marshal())
	p.putProgramData(vaultKey, v.Marshal())
	return nil
}

func (p *Program) withdraw(txn *transaction, keys []ed25519.PublicKey, data []byte) error {
	if len(keys) < 9 {
		return errNotEnoughKeys
	}

	var args vault.WithdrawInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return errInvalidData
	}

	payer, vaultKey, mint, lp := keys[0], keys[3], keys[4], keys[5]
	sourceLp, source, dest := keys[6], keys[7], keys[8]

	v, err := p.loadVault(txn, keys)
	if err != nil {
		return err
	}
	if v.State != vault.StateWithdraw {
		return vault.ErrInvalidVaultState
	}

	asset, err := assetFor(v, mint)
	if err != nil {
		return err
	}
	if !bytes.Equal(asset.Lp, lp) {
		return vault.ErrInvalidLpMint
	}

	lpAccount, err := p.getTokenAccount(sourceLp)
	if err != nil {
		return err
	}
	if !bytes.Equal(lpAccount.Owner, payer) {
		return vault.ErrIncorrectOwner
	}
	if !bytes.Equal(lpAccount.Mint, lp) {
		return vault.ErrInvalidLpMint
	}
	if lpAccount.Amount == 0 {
		return vault.ErrCannotWithdrawWithoutLpTokens
	}

	amount := args.Amount
	if amount == 0 {
		amount = lpAccount.Amount
	}
	if amount > lpAccount.Amount {
		return vault.ErrInsufficientTokenBalance
	}

	lpMint, err := p.getMint(lp)
	if err != nil {
		return err
	}
	withdrawAmount, err := tranche.ComputeWithdrawAmount(asset.Received, asset.Invested, amount, lpMint.Decimals)
	if err != nil {
		return vault.ErrMathError
	}

	expectedSource, err := token.GetAssociatedAccount(vaultKey, mint)
	if err != nil || !bytes.Equal(expectedSource, source) {
		return vault.ErrPublicKeyMismatch
	}

	expectedDest, err := token.GetAssociatedAccount(payer, mint)
	if err == nil && bytes.Equal(expectedDest, dest) && !p.exists(dest) {
		if err := p.createAssociatedAccount(payer, payer, mint); err != nil {
			return err
		}
	}

	if err := p.burnTokens(sourceLp, lp, payer, amount); err != nil {
		return err
	}
	if err := p.transferTokens(source, dest, vaultKey, withdrawAmount); err != nil {
		return err
	}

	p.putProgramData(vaultKey, v.Marshal())
	return nil
}

func (p *Program) initializeUserFarmOrca(txn *transaction, keys []ed25519.PublicKey, data []byte) error {
	if len(keys) < 11 {
		return errNotEnoughKeys
	}

	var args vault.InitializeUserFarmOrcaInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return errInvalidData
	}

	v, err := p.loadOrcaFarmVault(txn, keys, args.Bump)
	if err != nil {
		return err
	}
	if v.FarmVault != nil {
		return vault.ErrCannotReinstantiateFarmVault
	}

	v.FarmVault = keys[4]
	p.putProgramData(keys[3], v.Marshal())
	return nil
}

// farmOperation validates the accounts of an Orca farm instruction. The
// aquafarm program itself isn't modelled, so no tokens move.
func (p *Program) farmOperation(txn *transaction, keys []ed25519.PublicKey, bump uint8) error {
	if len(keys) < 6 {
		return errNotEnoughKeys
	}

	v, err := p.loadOrcaFarmVault(txn, keys, bump)
	if err != nil {
		return err
	}
	if v.FarmVault == nil {
		return vault.ErrMissingFarmVault
	}
	if !bytes.Equal(v.FarmVault, keys[4]) {
		return vault.ErrPublicKeyMismatch
	}

	p.putProgramData(keys[3], v.Marshal())
	return nil
}

func (p *Program) loadOrcaFarmVault(txn *transaction, keys []ed25519.PublicKey, bump uint8) (*vault.VaultAccount, error) {
	vaultKey, farmVaultKey, strategyKey := keys[3], keys[4], keys[5]

	v, err := p.loadVault(txn, keys)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(strategyKey, v.Strategy) {
		return nil, vault.ErrPublicKeyMismatch
	}

	strategyData, ok := p.programData(strategyKey)
	if !ok {
		return nil, vault.ErrInvalidProgramAccountData
	}
	strategy, err := vault.UnmarshalStrategy(strategyData)
	if err != nil {
		return nil, vault.ErrInvalidProgramAccountData
	}
	if strategy.Flag != vault.StrategyFlagOrca {
		return nil, vault.ErrProgramInvalidStrategyFlag
	}

	expected, expectedBump, err := vault.GetFarmVaultAddress(&vault.GetFarmVaultAddressArgs{Vault: vaultKey})
	if err != nil || !bytes.Equal(expected, farmVaultKey) {
		return nil, vault.ErrDerivedKeyInvalid
	}
	if expectedBump != bump {
		return nil, vault.ErrBumpMismatch
	}

	return v, nil
}

// loadVault runs the checks every vault instruction shares: a signing payer,
// an active protocol and a vault derived from the authority. The vault is
// returned after any transitions its timestamps allow.
func (p *Program) loadVault(txn *transaction, keys []ed25519.PublicKey) (*vault.VaultAccount, error) {
	if len(keys) < 4 {
		return nil, errNotEnoughKeys
	}

	payer, authority, globalKey, vaultKey := keys[0], keys[1], keys[2], keys[3]
	if !txn.isSigner(payer) {
		return nil, errMissingSignature
	}
	if _, err := p.loadGlobal(globalKey); err != nil {
		return nil, err
	}

	expected, _, err := vault.GetVaultAddress(&vault.GetVaultAddressArgs{Authority: authority})
	if err != nil || !bytes.Equal(expected, vaultKey) {
		return nil, vault.ErrPublicKeyMismatch
	}

	data, ok := p.programData(vaultKey)
	if !ok {
		return nil, vault.ErrUninitializedAccount
	}
	var v vault.VaultAccount
	if err := v.Unmarshal(data); err != nil {
		return nil, vault.ErrInvalidProgramAccountData
	}

	tryTransition(&v, p.clock.Now())
	return &v, nil
}

func (p *Program) loadGlobal(globalKey ed25519.PublicKey) (*vault.GlobalProtocolStateAccount, error) {
	expected, _, err := vault.GetGlobalProtocolStateAddress()
	if err != nil || !bytes.Equal(expected, globalKey) {
		return nil, vault.ErrPublicKeyMismatch
	}

	data, ok := p.programData(globalKey)
	if !ok {
		return nil, vault.ErrProtocolPaused
	}
	var global vault.GlobalProtocolStateAccount
	if err := global.Unmarshal(data); err != nil {
		return nil, vault.ErrInvalidProgramAccountData
	}
	if !global.Active {
		return nil, vault.ErrProtocolPaused
	}
	return &global, nil
}

func (p *Program) checkProtocolAuthority(txn *transaction, authority, globalKey ed25519.PublicKey) error {
	if !txn.isSigner(authority) {
		return errMissingSignature
	}
	global, err := p.loadGlobal(globalKey)
	if err != nil {
		return err
	}
	if !bytes.Equal(global.Authority, authority) {
		return vault.ErrUnexpectedAuthority
	}
	return nil
}

func (p *Program) programData(address ed25519.PublicKey) ([]byte, bool) {
	acc, ok := p.accounts[string(address)]
	if !ok || !bytes.Equal(acc.owner, vault.PROGRAM_ID) {
		return nil, false
	}
	return acc.data, true
}

func (p *Program) putProgramData(address ed25519.PublicKey, data []byte) {
	p.accounts[string(address)].data = data
}

func assetFor(v *vault.VaultAccount, mint ed25519.PublicKey) (*vault.Asset, error) {
	asset, _, err := tranche.GetAsset(v, mint)
	if err != nil {
		return nil, vault.ErrNonexistentAsset
	}
	return asset, nil
}

// tryTransition advances the vault through every state its timestamps have
// passed. Withdraw is only entered by redeeming.
func tryTransition(v *vault.VaultAccount, now time.Time) {
	ts := now.Unix()
	if ts < 0 {
		return
	}

	for {
		switch {
		case v.State == vault.StateInactive && uint64(ts) >= v.StartAt:
			v.State = vault.StateDeposit
		case v.State == vault.StateDeposit && uint64(ts) >= v.InvestAt:
			v.State = vault.StateLive
		case v.State == vault.StateLive && uint64(ts) >= v.RedeemAt:
			v.State = vault.StateRedeem
		default:
			return
		}
	}
}
