package app

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/tranche-vault/pkg/journal"
	"github.com/code-payments/tranche-vault/pkg/jupiter"
	"github.com/code-payments/tranche-vault/pkg/lifecycle"
	"github.com/code-payments/tranche-vault/pkg/solana"
	"github.com/code-payments/tranche-vault/pkg/solana/token"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/testutil"
	"github.com/code-payments/tranche-vault/pkg/tranche"
	"github.com/code-payments/tranche-vault/pkg/vaultconfig"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault-cli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rpc_endpoint: https://api.devnet.solana.com
journal_driver: sqlite
journal_dsn: /tmp/journal.db
rpc_rate_limit: 2.5
`), 0o600))

	t.Setenv("VAULT_COMMITMENT", "finalized")
	t.Setenv("VAULT_TRADE_FEE_NUMERATOR", "4")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.devnet.solana.com", config.RPCEndpoint)
	assert.Equal(t, JournalDriverSqlite, config.JournalDriver)
	assert.Equal(t, "/tmp/journal.db", config.JournalDSN)
	assert.Equal(t, 2.5, config.RPCRateLimit)

	// Environment overrides
	assert.Equal(t, "finalized", config.Commitment)
	assert.EqualValues(t, 4, config.TradeFeeNumerator)

	// Defaults
	assert.Equal(t, "vault-cli", config.AppName)
	assert.Equal(t, QuoteSourcePool, config.QuoteSource)
	assert.EqualValues(t, 10_000, config.TradeFeeDenominator)
	assert.Equal(t, defaultConfig.ShutdownGracePeriod, config.ShutdownGracePeriod)
}

func TestLoadKeypair(t *testing.T) {
	dir := t.TempDir()
	key := testutil.GenerateSolanaKeypair(t)

	encoded := make([]int, len(key))
	for i, b := range key {
		encoded[i] = int(b)
	}
	data, err := json.Marshal(encoded)
	require.NoError(t, err)

	path := filepath.Join(dir, "id.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	for _, url := range []string{path, "file://" + path} {
		loaded, err := LoadKeypair(url)
		require.NoError(t, err, url)
		assert.Equal(t, key, loaded)
	}

	_, err = LoadKeypair(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	_, err = LoadKeypair("s3://bucket/id.json")
	assert.Error(t, err)
}

func TestParseKeypair_Invalid(t *testing.T) {
	_, err := ParseKeypair([]byte(`"not an array"`))
	assert.Error(t, err)

	_, err = ParseKeypair([]byte(`[1, 2, 3]`))
	assert.Error(t, err)

	outOfRange := make([]int, ed25519.PrivateKeySize)
	outOfRange[10] = 256
	data, err := json.Marshal(outOfRange)
	require.NoError(t, err)
	_, err = ParseKeypair(data)
	assert.Error(t, err)

	// Public half doesn't belong to the seed
	key := testutil.GenerateSolanaKeypair(t)
	other := testutil.GenerateSolanaKey(t)
	mismatched := make([]int, ed25519.PrivateKeySize)
	for i := 0; i < ed25519.SeedSize; i++ {
		mismatched[i] = int(key[i])
	}
	for i, b := range other {
		mismatched[ed25519.SeedSize+i] = int(b)
	}
	data, err = json.Marshal(mismatched)
	require.NoError(t, err)
	_, err = ParseKeypair(data)
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := expandHome("~/.config/solana/id.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config/solana/id.json"), expanded)

	expanded, err = expandHome("/etc/id.json")
	require.NoError(t, err)
	assert.Equal(t, "/etc/id.json", expanded)
}

func TestOpenJournal(t *testing.T) {
	config := DefaultConfig()

	store, closer, err := OpenJournal(config)
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Nil(t, closer)

	config.JournalDriver = JournalDriverSqlite
	_, _, err = OpenJournal(config)
	assert.Error(t, err)

	config.JournalDSN = filepath.Join(t.TempDir(), "journal.db")
	store, closer, err = OpenJournal(config)
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()

	_, err = store.GetBySignature(context.Background(), "missing")
	assert.Equal(t, journal.ErrNotFound, err)

	config.JournalDriver = "mongo"
	_, _, err = OpenJournal(config)
	assert.Error(t, err)
}

func TestNewQuoter(t *testing.T) {
	env := &Env{
		Config: DefaultConfig(),
		Reader: lifecycle.NewRPCAccountReader(solana.New("http://localhost:0"), solana.CommitmentConfirmed),
	}

	quoter, err := env.NewQuoter(nil)
	require.NoError(t, err)
	_, err = quoter.Quote(context.Background(), &tranche.QuoteRequest{})
	assert.Equal(t, ErrNoQuoter, err)

	venue := &lifecycle.VenueAccounts{
		Flag: vault.StrategyFlagSaber,
		Saber: &lifecycle.SaberAccounts{
			TokenA:   testutil.GenerateSolanaKey(t),
			TokenB:   testutil.GenerateSolanaKey(t),
			ReserveA: testutil.GenerateSolanaKey(t),
			ReserveB: testutil.GenerateSolanaKey(t),
		},
	}
	quoter, err = env.NewQuoter(venue)
	require.NoError(t, err)
	assert.IsType(t, &tranche.ConstantProductQuoter{}, quoter)

	env.Config.QuoteSource = QuoteSourceJupiter
	quoter, err = env.NewQuoter(venue)
	require.NoError(t, err)
	assert.IsType(t, &jupiter.Client{}, quoter)

	env.Config.QuoteSource = "oracle"
	_, err = env.NewQuoter(venue)
	assert.Error(t, err)
}

type mintClient struct {
	solana.Client

	mints map[string]*token.Mint
}

func (c *mintClient) GetAccountInfo(address ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	mint, ok := c.mints[string(address)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return solana.AccountInfo{Owner: token.ProgramKey, Data: mint.Marshal()}, nil
}

func TestCheckMints(t *testing.T) {
	alpha, beta := testutil.GenerateSolanaKey(t), testutil.GenerateSolanaKey(t)

	client := &mintClient{mints: map[string]*token.Mint{
		string(alpha): {Decimals: 6, IsInitialized: true},
		string(beta):  {Decimals: 9, IsInitialized: true},
	}}
	env := &Env{Commitment: solana.CommitmentConfirmed, Tokens: token.NewClient(client)}

	alphaDecimals, betaDecimals, err := env.CheckMints(&vaultconfig.Resolved{AlphaMint: alpha, BetaMint: beta})
	require.NoError(t, err)
	assert.EqualValues(t, 6, alphaDecimals)
	assert.EqualValues(t, 9, betaDecimals)

	delete(client.mints, string(beta))
	_, _, err = env.CheckMints(&vaultconfig.Resolved{AlphaMint: alpha, BetaMint: beta})
	assert.ErrorIs(t, err, token.ErrAccountNotFound)
}
