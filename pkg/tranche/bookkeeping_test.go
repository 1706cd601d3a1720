package tranche

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/tranche-vault/pkg/pointer"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/testutil"
)

func TestGetAsset(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)
	v := &vault.VaultAccount{
		Alpha: vault.Asset{Mint: keys[0]},
		Beta:  vault.Asset{Mint: keys[1]},
	}

	asset, tranche, err := GetAsset(v, keys[0])
	require.NoError(t, err)
	assert.Equal(t, TrancheAlpha, tranche)
	assert.True(t, asset == &v.Alpha)

	asset, tranche, err = GetAsset(v, keys[1])
	require.NoError(t, err)
	assert.Equal(t, TrancheBeta, tranche)
	assert.True(t, asset == &v.Beta)

	_, _, err = GetAsset(v, keys[2])
	assert.Equal(t, ErrNonexistentAsset, err)
}

func TestProjectUserPosition(t *testing.T) {
	assert.Equal(t, Position{}, ProjectUserPosition(nil))
	assert.Equal(t, Position{}, ProjectUserPosition(&vault.HistoryAccount{Cumulative: 10}))

	position := ProjectUserPosition(&vault.HistoryAccount{
		Initialized:       true,
		Deposits:          3,
		Cumulative:        60,
		Claim:             5,
		CanClaimTrancheLp: true,
	})
	assert.Equal(t, Position{Cumulative: 60, Deposits: 3, LastClaim: 5, CanClaimLp: true}, position)
}

func TestCheckDepositCaps_UserCap(t *testing.T) {
	asset := &vault.Asset{
		UserCap: pointer.Uint64(100_000_000),
	}
	history := &vault.HistoryAccount{Initialized: true}

	for i := 0; i < 5; i++ {
		require.NoError(t, CheckDepositCaps(asset, ProjectUserPosition(history), 20_000_000))
		assert.EqualValues(t, i+1, NextDepositIndex(asset))

		history.Deposits++
		history.Cumulative += 20_000_000
		asset.Deposits++
		asset.Deposited += 20_000_000
	}

	assert.Equal(t, ErrDepositExceedsUserCap, CheckDepositCaps(asset, ProjectUserPosition(history), 1))

	// Other depositors are unaffected by this depositor's cap
	assert.NoError(t, CheckDepositCaps(asset, Position{}, 20_000_000))
}

func TestCheckDepositCaps_AssetCap(t *testing.T) {
	asset := &vault.Asset{
		AssetCap:  pointer.Uint64(50),
		Deposited: 40,
	}

	assert.NoError(t, CheckDepositCaps(asset, Position{}, 10))
	assert.Equal(t, ErrAssetCapExceeded, CheckDepositCaps(asset, Position{}, 11))
}

func TestCheckDepositCaps_Unlimited(t *testing.T) {
	asset := &vault.Asset{Deposited: 1 << 62}
	assert.NoError(t, CheckDepositCaps(asset, Position{Cumulative: 1 << 62}, 1<<62))

	assert.Equal(t, ErrMathOverflow, CheckDepositCaps(asset, Position{Cumulative: ^uint64(0)}, 1))
	assert.Equal(t, ErrMathOverflow, CheckDepositCaps(&vault.Asset{Deposited: ^uint64(0)}, Position{}, 1))
}
