package vault

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/tranche-vault/pkg/pointer"
	"github.com/code-payments/tranche-vault/pkg/solana"
)

func TestInstructionDiscriminators(t *testing.T) {
	for name, discriminator := range map[string][]byte{
		"initialize_global_protocol_state": initializeGlobalProtocolStateInstructionDiscriminator,
		"initialize_saber":                 initializeSaberStrategyInstructionDiscriminator,
		"initialize_orca":                  initializeOrcaStrategyInstructionDiscriminator,
		"initialize_vault":                 initializeVaultInstructionDiscriminator,
		"deposit":                          depositInstructionDiscriminator,
		"invest_saber":                     investSaberInstructionDiscriminator,
		"invest_orca":                      investOrcaInstructionDiscriminator,
		"process_claims":                   processClaimsInstructionDiscriminator,
		"claim":                            claimInstructionDiscriminator,
		"initialize_user_farm_orca":        initializeUserFarmOrcaInstructionDiscriminator,
		"convert_orca_lp":                  convertOrcaLpInstructionDiscriminator,
		"harvest_orca":                     harvestOrcaInstructionDiscriminator,
		"revert_orca_lp":                   revertOrcaLpInstructionDiscriminator,
		"redeem_saber":                     redeemSaberInstructionDiscriminator,
		"redeem_orca":                      redeemOrcaInstructionDiscriminator,
		"withdraw":                         withdrawInstructionDiscriminator,
		"swap_orca":                        swapOrcaInstructionDiscriminator,
	} {
		h := sha256.Sum256([]byte("global:" + name))
		assert.Equal(t, h[:8], discriminator, name)

		instructionType := GetInstructionType(append(discriminator, 0, 0))
		assert.NotEqual(t, InstructionTypeUnknown, instructionType, name)
		assert.Equal(t, name, instructionType.String())
	}

	assert.Equal(t, InstructionTypeUnknown, GetInstructionType([]byte{1, 2, 3}))
	assert.Equal(t, InstructionTypeUnknown, GetInstructionType(make([]byte, 16)))
}

func TestDepositInstruction(t *testing.T) {
	accounts := &DepositInstructionAccounts{
		Payer:               generateKey(t),
		Authority:           generateKey(t),
		GlobalProtocolState: generateKey(t),
		Vault:               generateKey(t),
		Receipt:             generateKey(t),
		History:             generateKey(t),
		Mint:                generateKey(t),
		SourceAta:           generateKey(t),
		DestinationAta:      generateKey(t),
	}
	args := &DepositInstructionArgs{
		DepositIndex: 3,
		ReceiptBump:  254,
		HistoryBump:  253,
		Amount:       20_000_000,
	}

	ixn := NewDepositInstruction(accounts, args)
	assert.EqualValues(t, PROGRAM_ADDRESS, ixn.Program)

	expectedData := []byte{
		0xf2, 0x23, 0xc6, 0x89, 0x52, 0xe1, 0xf2, 0xb6,
		3, 0, 0, 0, 0, 0, 0, 0,
		254,
		253,
		0x00, 0x2d, 0x31, 0x01, 0, 0, 0, 0,
	}
	assert.Equal(t, expectedData, ixn.Data)

	require.Len(t, ixn.Accounts, 13)
	assertAccountMeta(t, ixn.Accounts[0], accounts.Payer, true, true)
	assertAccountMeta(t, ixn.Accounts[1], accounts.Authority, false, false)
	assertAccountMeta(t, ixn.Accounts[3], accounts.Vault, true, false)
	assertAccountMeta(t, ixn.Accounts[4], accounts.Receipt, true, false)
	assertAccountMeta(t, ixn.Accounts[5], accounts.History, true, false)
	assertAccountMeta(t, ixn.Accounts[7], accounts.SourceAta, true, false)
	assertAccountMeta(t, ixn.Accounts[8], accounts.DestinationAta, true, false)
	assertAccountMeta(t, ixn.Accounts[9], SYSTEM_PROGRAM_ID, false, false)
	assertAccountMeta(t, ixn.Accounts[10], SPL_TOKEN_PROGRAM_ID, false, false)
	assertAccountMeta(t, ixn.Accounts[11], SPL_ASSOCIATED_TOKEN_PROGRAM_ID, false, false)
	assertAccountMeta(t, ixn.Accounts[12], SYSVAR_RENT_PUBKEY, false, false)

	var decoded DepositInstructionArgs
	require.NoError(t, decoded.Unmarshal(ixn.Data))
	assert.Equal(t, args, &decoded)

	assert.Equal(t, ErrInvalidInstructionData, decoded.Unmarshal(ixn.Data[:len(ixn.Data)-1]))

	wrongDiscriminator := append([]byte{}, ixn.Data...)
	wrongDiscriminator[0] = 0
	assert.Equal(t, ErrInvalidInstructionData, decoded.Unmarshal(wrongDiscriminator))
}

func TestInitializeVaultInstruction_VariableLengthConfig(t *testing.T) {
	accounts := &InitializeVaultInstructionAccounts{
		Authority:           generateKey(t),
		GlobalProtocolState: generateKey(t),
		Vault:               generateKey(t),
		AlphaMint:           generateKey(t),
		AlphaLp:             generateKey(t),
		BetaMint:            generateKey(t),
		BetaLp:              generateKey(t),
	}

	for _, tc := range []struct {
		name   string
		alpha  AssetConfig
		beta   AssetConfig
		length int
	}{
		{
			name:   "no caps",
			length: 8 + InitializeVaultInstructionArgsSize - 4*8,
		},
		{
			name:   "alpha user cap",
			alpha:  AssetConfig{UserCap: pointer.Uint64(100_000_000)},
			length: 8 + InitializeVaultInstructionArgsSize - 3*8,
		},
		{
			name:   "all caps",
			alpha:  AssetConfig{UserCap: pointer.Uint64(1), AssetCap: pointer.Uint64(2)},
			beta:   AssetConfig{UserCap: pointer.Uint64(3), AssetCap: pointer.Uint64(4)},
			length: 8 + InitializeVaultInstructionArgsSize,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			args := &InitializeVaultInstructionArgs{
				VaultBump: 251,
				VaultConfig: VaultConfig{
					Strategy:   generateKey(t),
					Authority:  accounts.Authority,
					Strategist: generateKey(t),
					Alpha:      tc.alpha,
					Beta:       tc.beta,
					FixedRate:  DefaultFixedRate,
					StartAt:    100,
					InvestAt:   200,
					RedeemAt:   300,
				},
			}

			ixn := NewInitializeVaultInstruction(accounts, args)
			assert.Len(t, ixn.Data, tc.length)

			var decoded InitializeVaultInstructionArgs
			require.NoError(t, decoded.Unmarshal(ixn.Data))
			assert.Equal(t, args, &decoded)
		})
	}
}

func TestInitializeVaultInstruction_LpMintsAreNotSigners(t *testing.T) {
	accounts := &InitializeVaultInstructionAccounts{
		Authority:           generateKey(t),
		GlobalProtocolState: generateKey(t),
		Vault:               generateKey(t),
		AlphaMint:           generateKey(t),
		AlphaLp:             generateKey(t),
		BetaMint:            generateKey(t),
		BetaLp:              generateKey(t),
	}

	ixn := NewInitializeVaultInstruction(accounts, &InitializeVaultInstructionArgs{})
	require.Len(t, ixn.Accounts, 8)
	assertAccountMeta(t, ixn.Accounts[0], accounts.Authority, true, true)
	assertAccountMeta(t, ixn.Accounts[4], accounts.AlphaLp, true, false)
	assertAccountMeta(t, ixn.Accounts[6], accounts.BetaLp, true, false)
}

func TestRedeemSaberInstruction_OptionalSwapConfig(t *testing.T) {
	accounts := &RedeemSaberInstructionAccounts{}

	withoutSwap := NewRedeemSaberInstruction(accounts, &RedeemSaberInstructionArgs{MinTokenA: 1, MinTokenB: 2})
	assert.Len(t, withoutSwap.Data, 8+8+8+1)

	var decoded RedeemSaberInstructionArgs
	require.NoError(t, decoded.Unmarshal(withoutSwap.Data))
	assert.Nil(t, decoded.SwapConfig)
	assert.EqualValues(t, 1, decoded.MinTokenA)
	assert.EqualValues(t, 2, decoded.MinTokenB)

	swap := &SwapConfig{MaxIn: 50, MinOut: 45, AlphaToBeta: false}
	withSwap := NewRedeemSaberInstruction(accounts, &RedeemSaberInstructionArgs{SwapConfig: swap})
	assert.Len(t, withSwap.Data, 8+RedeemSaberInstructionArgsSize)

	require.NoError(t, decoded.Unmarshal(withSwap.Data))
	assert.Equal(t, swap, decoded.SwapConfig)
}

func TestProcessClaimsInstruction_RemainingAccounts(t *testing.T) {
	first := ClaimAccounts{Receipt: generateKey(t), History: generateKey(t)}
	second := ClaimAccounts{Receipt: generateKey(t), History: generateKey(t)}

	accounts := &ProcessClaimsInstructionAccounts{
		Payer:               generateKey(t),
		Authority:           generateKey(t),
		GlobalProtocolState: generateKey(t),
		Vault:               generateKey(t),
		Mint:                generateKey(t),
		RemainingAccounts:   NewProcessClaimsRemainingAccounts(first, second),
	}

	ixn := NewProcessClaimsInstruction(accounts)
	assert.Equal(t, processClaimsInstructionDiscriminator, ixn.Data)
	require.Len(t, ixn.Accounts, 9)
	assertAccountMeta(t, ixn.Accounts[3], accounts.Vault, true, false)
	assertAccountMeta(t, ixn.Accounts[5], first.Receipt, false, false)
	assertAccountMeta(t, ixn.Accounts[6], first.History, true, false)
	assertAccountMeta(t, ixn.Accounts[7], second.Receipt, false, false)
	assertAccountMeta(t, ixn.Accounts[8], second.History, true, false)

	assert.Equal(t, InstructionTypeProcessClaims, GetInstructionType(ixn.Data))
}

func assertAccountMeta(t *testing.T, actual solana.AccountMeta, expected []byte, isWritable, isSigner bool) {
	assert.EqualValues(t, expected, actual.PublicKey)
	assert.Equal(t, isWritable, actual.IsWritable)
	assert.Equal(t, isSigner, actual.IsSigner)
}
