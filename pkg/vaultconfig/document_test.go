package vaultconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/testutil"
)

func TestResolve_SaberWithPeriod(t *testing.T) {
	keys := newKeys(t, 11)

	doc, err := Parse([]byte(fmt.Sprintf(`
alpha:
  mint: %s
  user_cap: 100000000
beta:
  mint: %s
  asset_cap: 500000000
fixed_rate: 500
period: 30s
strategy:
  flag: saber
  saber:
    swap: %s
    swap_authority: %s
    token_a: %s
    token_b: %s
    reserve_a: %s
    reserve_b: %s
    pool_mint: %s
    admin_fees_a: %s
    admin_fees_b: %s
`, keys[0], keys[1], keys[2], keys[3], keys[0], keys[1], keys[4], keys[5], keys[6], keys[7], keys[8])))
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	resolved, err := doc.Resolve(now)
	require.NoError(t, err)

	config := resolved.Config
	assert.EqualValues(t, 500, config.FixedRate)
	assert.EqualValues(t, 1_700_000_030, config.StartAt)
	assert.EqualValues(t, 1_700_000_060, config.InvestAt)
	assert.EqualValues(t, 1_700_000_090, config.RedeemAt)
	require.NotNil(t, config.Alpha.UserCap)
	assert.EqualValues(t, 100_000_000, *config.Alpha.UserCap)
	assert.Nil(t, config.Alpha.AssetCap)
	require.NotNil(t, config.Beta.AssetCap)
	assert.EqualValues(t, 500_000_000, *config.Beta.AssetCap)
	assert.Nil(t, config.Authority)
	assert.Nil(t, config.Strategist)

	assert.Equal(t, keys[0], base58.Encode(resolved.AlphaMint))
	assert.Equal(t, keys[1], base58.Encode(resolved.BetaMint))

	def := resolved.Strategy
	assert.Equal(t, vault.StrategyFlagSaber, def.Flag)
	assert.Equal(t, vault.StrategyVersionSaberLpV0, def.Version)
	assert.Equal(t, keys[2], base58.Encode(def.BasePool))
	assert.Equal(t, keys[6], base58.Encode(def.PoolLp))

	strategy, _, err := def.Address()
	require.NoError(t, err)
	assert.EqualValues(t, strategy, config.Strategy)

	venue := resolved.Venue
	require.NoError(t, venue.Validate())
	require.NotNil(t, venue.Saber)
	assert.EqualValues(t, vault.SABER_SWAP_PROGRAM_ID, venue.Saber.SaberProgram)
	assert.Equal(t, keys[3], base58.Encode(venue.Saber.SwapAuthority))
	assert.Equal(t, keys[8], base58.Encode(venue.Saber.AdminFeesB))
}

func TestResolve_OrcaWithFarm(t *testing.T) {
	keys := newKeys(t, 24)

	doc, err := Parse([]byte(fmt.Sprintf(`
authority: %s
strategist: %s
alpha:
  mint: %s
beta:
  mint: %s
start_at: 1700000100
invest_at: 1700000200
redeem_at: 1700000300
strategy:
  flag: ORCA
  version: 1
  orca:
    pool: %s
    authority: %s
    token_a: %s
    token_b: %s
    reserve_a: %s
    reserve_b: %s
    pool_mint: %s
    fee_account: %s
    double_dip_farm_lp: %s
    farm:
      global_farm: %s
      global_base_token_vault: %s
      global_reward_token_vault: %s
      farm_token_mint: %s
      reward_mint: %s
      farm_authority: %s
      reward_pool:
        pool: %s
        authority: %s
        pool_source: %s
        pool_destination: %s
        pool_mint: %s
        fee_account: %s
        output_mint: %s
`,
		keys[0], keys[1], keys[2], keys[3],
		keys[4], keys[5], keys[3], keys[2], keys[6], keys[7], keys[8], keys[9], keys[10],
		keys[11], keys[12], keys[13], keys[14], keys[15], keys[16],
		keys[17], keys[18], keys[19], keys[20], keys[21], keys[22], keys[2],
	)))
	require.NoError(t, err)

	resolved, err := doc.Resolve(time.Now())
	require.NoError(t, err)

	config := resolved.Config
	assert.Equal(t, keys[0], base58.Encode(config.Authority))
	assert.Equal(t, keys[1], base58.Encode(config.Strategist))
	assert.EqualValues(t, vault.DefaultFixedRate, config.FixedRate)
	assert.EqualValues(t, 1_700_000_100, config.StartAt)
	assert.EqualValues(t, 1_700_000_200, config.InvestAt)
	assert.EqualValues(t, 1_700_000_300, config.RedeemAt)

	def := resolved.Strategy
	assert.Equal(t, vault.StrategyFlagOrca, def.Flag)
	assert.EqualValues(t, 1, def.Version)
	assert.EqualValues(t, vault.ORCA_SWAP_PROGRAM_ID, def.SwapProgram)
	assert.EqualValues(t, vault.ORCA_FARM_PROGRAM_ID, def.FarmProgram)
	assert.Equal(t, keys[4], base58.Encode(def.Pool))
	assert.Equal(t, keys[8], base58.Encode(def.BaseLp))
	assert.Equal(t, keys[11], base58.Encode(def.Farm))
	assert.Equal(t, keys[14], base58.Encode(def.FarmLp))
	assert.Equal(t, keys[10], base58.Encode(def.DoubleDipFarmLp))

	orca := resolved.Venue.Orca
	require.NotNil(t, orca)
	require.NotNil(t, orca.Farm)
	require.NotNil(t, orca.Farm.RewardPool)
	assert.Equal(t, keys[15], base58.Encode(orca.Farm.RewardMint))
	assert.Equal(t, keys[2], base58.Encode(orca.Farm.RewardPool.OutputMint))
}

func TestResolve_DefaultPeriod(t *testing.T) {
	doc := validSaberDocument(t)

	now := time.Unix(1_700_000_000, 0)
	resolved, err := doc.Resolve(now)
	require.NoError(t, err)

	assert.EqualValues(t, 1_700_000_010, resolved.Config.StartAt)
	assert.EqualValues(t, 1_700_000_020, resolved.Config.InvestAt)
	assert.EqualValues(t, 1_700_000_030, resolved.Config.RedeemAt)
}

func TestResolve_Validation(t *testing.T) {
	rate := uint16(vault.MaxBps + 1)

	for _, tc := range []struct {
		name     string
		mutate   func(doc *Document)
		expected error
	}{
		{
			name:     "missing alpha mint",
			mutate:   func(doc *Document) { doc.Alpha.Mint = nil },
			expected: ErrMissingField,
		},
		{
			name:     "missing beta mint",
			mutate:   func(doc *Document) { doc.Beta.Mint = nil },
			expected: ErrMissingField,
		},
		{
			name:     "fixed rate",
			mutate:   func(doc *Document) { doc.FixedRate = &rate },
			expected: ErrInvalidFixedRate,
		},
		{
			name: "period and timestamps",
			mutate: func(doc *Document) {
				doc.Period = time.Minute
				doc.StartAt = 1
			},
			expected: ErrConflictingTimes,
		},
		{
			name: "partial timestamps",
			mutate: func(doc *Document) {
				doc.StartAt = 1
				doc.InvestAt = 2
			},
			expected: ErrIncompleteSchedule,
		},
		{
			name:     "negative period",
			mutate:   func(doc *Document) { doc.Period = -time.Second },
			expected: ErrNonPositivePeriod,
		},
		{
			name:     "unknown venue",
			mutate:   func(doc *Document) { doc.Strategy.Flag = "raydium" },
			expected: ErrUnsupportedVenue,
		},
		{
			name:     "flag without venue",
			mutate:   func(doc *Document) { doc.Strategy.Flag = "orca" },
			expected: ErrVenueFlagMismatch,
		},
		{
			name:     "missing venue account",
			mutate:   func(doc *Document) { doc.Strategy.Saber.ReserveB = nil },
			expected: ErrMissingField,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			doc := validSaberDocument(t)
			tc.mutate(doc)

			_, err := doc.Resolve(time.Now())
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("alpha:\n  mint: not-a-key\n"))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = Parse([]byte("unknown_field: 1\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	doc := validSaberDocument(t)

	var buf bytes.Buffer
	require.NoError(t, doc.Encode(&buf))

	path := filepath.Join(t.TempDir(), "vault.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func validSaberDocument(t *testing.T) *Document {
	key := func() Key {
		return Key(testutil.GenerateSolanaKey(t))
	}

	return &Document{
		Alpha: Tranche{Mint: key()},
		Beta:  Tranche{Mint: key()},
		Strategy: Strategy{
			Flag: "saber",
			Saber: &Saber{
				Swap:          key(),
				SwapAuthority: key(),
				TokenA:        key(),
				TokenB:        key(),
				ReserveA:      key(),
				ReserveB:      key(),
				PoolMint:      key(),
				AdminFeesA:    key(),
				AdminFeesB:    key(),
			},
		},
	}
}

func newKeys(t *testing.T, n int) []string {
	var keys []string
	for _, key := range testutil.GenerateSolanaKeys(t, n) {
		keys = append(keys, base58.Encode(key))
	}
	return keys
}
