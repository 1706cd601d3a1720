package vault

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/tranche-vault/pkg/pointer"
)

func TestAccountDiscriminators(t *testing.T) {
	for name, discriminator := range map[string][]byte{
		"Vault":               VaultAccountDiscriminator,
		"History":             HistoryAccountDiscriminator,
		"Receipt":             ReceiptAccountDiscriminator,
		"GlobalProtocolState": GlobalProtocolStateAccountDiscriminator,
		"SaberStrategyDataV0": SaberStrategyAccountDiscriminator,
		"OrcaStrategyDataV0":  OrcaStrategyAccountDiscriminator,
	} {
		h := sha256.Sum256([]byte("account:" + name))
		assert.Equal(t, h[:8], discriminator, name)
	}
}

func TestVaultAccount_RoundTrip(t *testing.T) {
	expected := newTestVaultAccount(t)
	expected.Alpha.UserCap = pointer.Uint64(100_000_000)
	expected.Alpha.ClaimsIdx = pointer.Uint64(3)
	expected.Beta.AssetCap = pointer.Uint64(0)
	expected.FarmVault = generateKey(t)

	var actual VaultAccount
	require.NoError(t, actual.Unmarshal(expected.Marshal()))
	assert.Equal(t, expected, &actual)

	require.NotNil(t, actual.Beta.AssetCap)
	assert.EqualValues(t, 0, *actual.Beta.AssetCap)
	assert.Nil(t, actual.Beta.UserCap)
	assert.Nil(t, actual.Alpha.AssetCap)
}

func TestVaultAccount_AbsentOptionsAreNil(t *testing.T) {
	expected := newTestVaultAccount(t)

	var actual VaultAccount
	require.NoError(t, actual.Unmarshal(expected.Marshal()))
	assert.Nil(t, actual.Alpha.AssetCap)
	assert.Nil(t, actual.Alpha.UserCap)
	assert.Nil(t, actual.Alpha.ClaimsIdx)
	assert.Nil(t, actual.FarmVault)
	assert.Equal(t, expected, &actual)
}

func TestVaultAccount_InvalidData(t *testing.T) {
	valid := newTestVaultAccount(t).Marshal()

	var actual VaultAccount
	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(valid[:VaultAccountSize-1]))

	wrongDiscriminator := append([]byte{}, valid...)
	wrongDiscriminator[0] ^= 0xff
	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(wrongDiscriminator))

	receipt := (&ReceiptAccount{Depositor: generateKey(t)}).Marshal()
	padded := make([]byte, VaultAccountSize)
	copy(padded, receipt)
	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(padded))
}

func TestVaultAccount_InvalidStateTag(t *testing.T) {
	account := newTestVaultAccount(t)
	data := account.Marshal()

	// Everything before the state is fixed width when options are absent
	stateOffset := 8 + 1 + 32 + 2*(32+32+1+1+8*7+1+1) + 32 + 32 + 2
	assert.EqualValues(t, StateDeposit, data[stateOffset])
	data[stateOffset] = 5

	var actual VaultAccount
	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(data))
}

func TestHistoryAccount_RoundTrip(t *testing.T) {
	expected := &HistoryAccount{
		Bump:              253,
		Initialized:       true,
		Deposits:          5,
		Cumulative:        100_000_000,
		Claim:             12,
		CanClaimTrancheLp: true,
	}

	data := expected.Marshal()
	require.Len(t, data, HistoryAccountSize)

	var actual HistoryAccount
	require.NoError(t, actual.Unmarshal(data))
	assert.Equal(t, expected, &actual)

	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(data[:HistoryAccountSize-1]))
}

func TestReceiptAccount_RoundTrip(t *testing.T) {
	expected := &ReceiptAccount{
		Bump:       254,
		Amount:     20_000_000,
		Cumulative: 40_000_000,
		Depositor:  generateKey(t),
	}

	var actual ReceiptAccount
	require.NoError(t, actual.Unmarshal(expected.Marshal()))
	assert.Equal(t, expected, &actual)
}

func TestReceiptAccount_Layout(t *testing.T) {
	// discriminator, bump, amount, cumulative, depositor
	data := append([]byte{}, ReceiptAccountDiscriminator...)
	data = append(data, 254)
	data = binary.LittleEndian.AppendUint64(data, 20_000_000)
	data = binary.LittleEndian.AppendUint64(data, 40_000_000)
	depositor := make([]byte, ed25519.PublicKeySize)
	for i := range depositor {
		depositor[i] = byte(i + 1)
	}
	data = append(data, depositor...)
	require.Len(t, data, ReceiptAccountSize)
	require.Len(t, data, 57)

	var actual ReceiptAccount
	require.NoError(t, actual.Unmarshal(data))
	assert.EqualValues(t, 254, actual.Bump)
	assert.EqualValues(t, 20_000_000, actual.Amount)
	assert.EqualValues(t, 40_000_000, actual.Cumulative)
	assert.Equal(t, ed25519.PublicKey(depositor), actual.Depositor)

	assert.Equal(t, data, actual.Marshal())
}

func TestGlobalProtocolStateAccount_RoundTrip(t *testing.T) {
	expected := &GlobalProtocolStateAccount{
		Bump:      254,
		Authority: generateKey(t),
		Active:    true,
		Treasury:  generateKey(t),
	}

	var actual GlobalProtocolStateAccount
	require.NoError(t, actual.Unmarshal(expected.Marshal()))
	assert.Equal(t, expected, &actual)
}

func TestUnmarshalStrategy(t *testing.T) {
	saber := &SaberStrategyAccount{
		Bump:    255,
		Flag:    StrategyFlagSaber,
		Version: StrategyVersionSaberLpV0,
		BaseLp:  generateKey(t),
	}
	strategy, err := UnmarshalStrategy(saber.Marshal())
	require.NoError(t, err)
	assert.Equal(t, StrategyFlagSaber, strategy.Flag)
	assert.Nil(t, strategy.Orca)
	assert.Equal(t, saber, strategy.Saber)

	orca := &OrcaStrategyAccount{
		Bump:        254,
		Flag:        StrategyFlagOrca,
		Version:     StrategyVersionOrcaLpV0,
		SwapProgram: ORCA_SWAP_PROGRAM_ID,
		FarmProgram: ORCA_FARM_PROGRAM_ID,
		TokenA:      generateKey(t),
		TokenB:      generateKey(t),
		BaseLp:      generateKey(t),
		FarmLp:      generateKey(t),
		DoubleDipLp: generateKey(t),
	}
	strategy, err = UnmarshalStrategy(orca.Marshal())
	require.NoError(t, err)
	assert.Equal(t, StrategyFlagOrca, strategy.Flag)
	assert.Nil(t, strategy.Saber)
	assert.Equal(t, orca, strategy.Orca)
	assert.Equal(t, orca.Marshal(), strategy.Marshal())

	mismatched := &SaberStrategyAccount{Flag: StrategyFlagOrca, BaseLp: generateKey(t)}
	_, err = UnmarshalStrategy(mismatched.Marshal())
	assert.Equal(t, ErrInvalidStrategyFlag, err)

	_, err = UnmarshalStrategy(newTestVaultAccount(t).Marshal())
	assert.Equal(t, ErrInvalidAccountData, err)

	_, err = UnmarshalStrategy([]byte{1, 2, 3})
	assert.Equal(t, ErrInvalidAccountData, err)
}

func TestVaultAccount_Clone(t *testing.T) {
	original := newTestVaultAccount(t)
	original.Alpha.UserCap = pointer.Uint64(10)

	cloned := original.Clone()
	assert.Equal(t, original, cloned)

	*cloned.Alpha.UserCap = 11
	cloned.Alpha.Mint[0] ^= 0xff
	cloned.Beta.Deposited++

	assert.EqualValues(t, 10, *original.Alpha.UserCap)
	assert.NotEqual(t, original.Alpha.Mint, cloned.Alpha.Mint)
	assert.NotEqual(t, original.Beta.Deposited, cloned.Beta.Deposited)
}

func newTestVaultAccount(t *testing.T) *VaultAccount {
	return &VaultAccount{
		Bump:      251,
		Authority: generateKey(t),
		Alpha: Asset{
			Mint:      generateKey(t),
			Lp:        generateKey(t),
			Deposits:  2,
			Deposited: 40,
		},
		Beta: Asset{
			Mint:      generateKey(t),
			Lp:        generateKey(t),
			Deposits:  1,
			Deposited: 30,
		},
		Strategy:   generateKey(t),
		Strategist: generateKey(t),
		FixedRate:  DefaultFixedRate,
		State:      StateDeposit,
		StartAt:    1_700_000_000,
		InvestAt:   1_700_000_010,
		RedeemAt:   1_700_000_020,
	}
}

func generateKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}

func TestParseState(t *testing.T) {
	for s := StateInactive; s <= StateWithdraw; s++ {
		parsed, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseState("paused")
	assert.Error(t, err)
}
