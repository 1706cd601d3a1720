package app

import (
	"context"
	"crypto/ed25519"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	pgutil "github.com/code-payments/tranche-vault/pkg/database/postgres"
	"github.com/code-payments/tranche-vault/pkg/journal"
	memory_journal "github.com/code-payments/tranche-vault/pkg/journal/memory"
	postgres_journal "github.com/code-payments/tranche-vault/pkg/journal/postgres"
	sqlite_journal "github.com/code-payments/tranche-vault/pkg/journal/sqlite"
	"github.com/code-payments/tranche-vault/pkg/jupiter"
	"github.com/code-payments/tranche-vault/pkg/lifecycle"
	metrics_util "github.com/code-payments/tranche-vault/pkg/metrics"
	"github.com/code-payments/tranche-vault/pkg/rate"
	"github.com/code-payments/tranche-vault/pkg/solana"
	"github.com/code-payments/tranche-vault/pkg/solana/token"
	"github.com/code-payments/tranche-vault/pkg/tranche"
	"github.com/code-payments/tranche-vault/pkg/vaultconfig"
)

var ErrNoQuoter = errors.New("no quoter configured: pool quotes require a vault document")

// LoadConfig reads the config file at path, if it exists, and applies
// environment overrides on top of the defaults.
func LoadConfig(path string) (BaseConfig, error) {
	// viper.ReadInConfig only returns ConfigFileNotFoundError if it has to search
	// for a default config file because one hasn't been explicitly set. That is,
	// if we explicitly set a config file, and it does not exist, viper will not
	// return a ConfigFileNotFoundError, so we do it ourselves.
	if _, err := os.Stat(path); err == nil {
		viper.SetConfigFile(path)
	} else if !os.IsNotExist(err) {
		return BaseConfig{}, errors.Wrap(err, "failed to check if config exists")
	}

	err := viper.ReadInConfig()
	_, isConfigNotFound := err.(viper.ConfigFileNotFoundError)
	if err != nil && !isConfigNotFound {
		return BaseConfig{}, errors.Wrap(err, "failed to load config")
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return BaseConfig{}, errors.Wrap(err, "failed to unmarshal config")
	}

	if len(config.AppName) == 0 {
		return BaseConfig{}, errors.New("must specify an application name")
	}
	return config, nil
}

// Env holds the clients shared by every command.
type Env struct {
	Config BaseConfig
	Log    *logrus.Entry

	Payer      ed25519.PrivateKey
	Commitment solana.Commitment
	Client     solana.Client
	Reader     *lifecycle.RPCAccountReader
	Submitter  *lifecycle.RPCSubmitter
	Tokens     *token.Client
	Journal    journal.Store
	Venues     *lifecycle.StaticVenueProvider

	MetricsProvider *newrelic.Application

	closers []io.Closer
}

// NewEnv connects to New Relic (when licensed), configures logging, loads the
// payer keypair and opens the journal.
func NewEnv(config BaseConfig) (*Env, error) {
	// todo: Better abstraction so we're not directly tied to NR
	var metricsProvider *newrelic.Application
	if len(config.NewRelicLicenseKey) > 0 {
		nr, err := newrelic.NewApplication(
			newrelic.ConfigFromEnvironment(),
			newrelic.ConfigAppName(config.AppName),
			newrelic.ConfigLicense(config.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			return nil, errors.Wrap(err, "error connecting to new relic")
		}

		metricsProvider = nr
	}

	configureLogger(config, metricsProvider, os.Stderr)

	env := &Env{
		Config:          config,
		Log:             logrus.StandardLogger().WithField("type", "app/env"),
		MetricsProvider: metricsProvider,
		Venues:          lifecycle.NewStaticVenueProvider(),
	}

	payer, err := LoadKeypair(config.KeypairPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load payer keypair")
	}
	env.Payer = payer

	env.Commitment, err = solana.ParseCommitment(config.Commitment)
	if err != nil {
		return nil, err
	}

	env.Client = solana.NewWithRateLimiter(solana.ResolveEndpoint(config.RPCEndpoint), rate.NewLimiter(config.RPCRateLimit))
	env.Reader = lifecycle.NewRPCAccountReader(env.Client, env.Commitment)
	env.Submitter = lifecycle.NewRPCSubmitter(env.Client, env.Commitment, lifecycle.WithEnvConfigs())
	env.Tokens = token.NewClient(env.Client)

	store, closer, err := OpenJournal(config)
	if err != nil {
		return nil, err
	}
	env.Journal = store
	if closer != nil {
		env.closers = append(env.closers, closer)
	}

	env.Log.WithFields(logrus.Fields{
		"payer":          base58.Encode(env.PayerKey()),
		"rpc_endpoint":   config.RPCEndpoint,
		"journal_driver": config.JournalDriver,
	}).Debug("environment ready")

	return env, nil
}

func (e *Env) PayerKey() ed25519.PublicKey {
	return e.Payer.Public().(ed25519.PublicKey)
}

// Orchestrator returns an orchestrator for the vault described by doc. The
// document's venue is registered so that invest and redeem can find the pool
// accounts. doc may be nil for protocol-level commands.
func (e *Env) Orchestrator(doc *vaultconfig.Resolved) (*lifecycle.Orchestrator, error) {
	var venue *lifecycle.VenueAccounts
	if doc != nil {
		strategy, _, err := doc.Strategy.Address()
		if err != nil {
			return nil, err
		}

		if err := e.Venues.Register(strategy, doc.Venue); err != nil {
			return nil, err
		}
		venue = doc.Venue
	}

	quoter, err := e.NewQuoter(venue)
	if err != nil {
		return nil, err
	}

	return lifecycle.NewOrchestrator(
		e.Reader,
		e.Submitter,
		quoter,
		e.Venues,
		lifecycle.SystemClock,
		e.Journal,
		lifecycle.WithEnvConfigs(),
	), nil
}

// CheckMints verifies that both tranche mints of doc are initialized token
// mints, returning their decimals.
func (e *Env) CheckMints(doc *vaultconfig.Resolved) (alpha, beta byte, err error) {
	mints := make([]*token.Mint, 2)
	for i, address := range []ed25519.PublicKey{doc.AlphaMint, doc.BetaMint} {
		mints[i], err = e.Tokens.GetMint(address, e.Commitment)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "tranche mint %s", base58.Encode(address))
		}
	}
	return mints[0].Decimals, mints[1].Decimals, nil
}

// NewQuoter builds the configured quote source. Pool quotes price directly
// off the venue's reserves.
func (e *Env) NewQuoter(venue *lifecycle.VenueAccounts) (tranche.Quoter, error) {
	switch e.Config.QuoteSource {
	case QuoteSourceJupiter:
		client := jupiter.NewClient(e.Config.JupiterBaseUrl)
		if e.Config.JupiterDirectRouteOnly {
			client = client.WithDirectRoutesOnly()
		}
		return client, nil
	case QuoteSourcePool, "":
		if venue == nil {
			return noQuoter{}, nil
		}

		tokenA, tokenB := venue.Tokens()
		reserveA, reserveB := venue.Reserves()
		return tranche.NewConstantProductQuoter(
			e.Reader,
			tranche.PoolReserves{
				MintA:    tokenA,
				ReserveA: reserveA,
				MintB:    tokenB,
				ReserveB: reserveB,
			},
			e.Config.TradeFeeNumerator,
			e.Config.TradeFeeDenominator,
		)
	}
	return nil, errors.Errorf("unknown quote source %q", e.Config.QuoteSource)
}

// StartOperation starts a New Relic transaction for a command. The returned
// func ends it.
func (e *Env) StartOperation(ctx context.Context, name string) (context.Context, func(error)) {
	return metrics_util.StartOperation(ctx, e.MetricsProvider, name)
}

// Close releases the journal and flushes New Relic.
func (e *Env) Close() {
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			e.Log.WithError(err).Warn("failure closing resource")
		}
	}

	if e.MetricsProvider != nil {
		e.MetricsProvider.Shutdown(e.Config.ShutdownGracePeriod)
	}
}

// OpenJournal opens the journal named by the config's driver. The closer is
// nil for the memory journal.
func OpenJournal(config BaseConfig) (journal.Store, io.Closer, error) {
	switch strings.ToLower(config.JournalDriver) {
	case JournalDriverMemory, "":
		return memory_journal.New(), nil, nil

	case JournalDriverSqlite:
		if config.JournalDSN == "" {
			return nil, nil, errors.New("sqlite journal requires journal_dsn")
		}
		path, err := expandHome(config.JournalDSN)
		if err != nil {
			return nil, nil, err
		}
		db, err := sqlite_journal.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return sqlite_journal.New(db), db, nil

	case JournalDriverPostgres:
		if config.JournalDSN != "" {
			db, err := pgutil.OpenDSN(config.JournalDSN)
			if err != nil {
				return nil, nil, err
			}
			return postgres_journal.New(db), db, nil
		}

		var awsConfig aws.Config
		if config.PostgresUseAwsIam {
			var err error
			awsConfig, err = external.LoadDefaultAWSConfig()
			if err != nil {
				return nil, nil, errors.Wrap(err, "failed to load aws config")
			}
		}

		pgConfig := &pgutil.Config{
			User:      config.PostgresUser,
			Password:  config.PostgresPassword,
			Host:      config.PostgresHost,
			Port:      config.PostgresPort,
			DbName:    config.PostgresDbName,
			UseAwsIam: config.PostgresUseAwsIam,
		}
		db, err := pgConfig.Open(awsConfig)
		if err != nil {
			return nil, nil, err
		}
		return postgres_journal.New(db), db, nil
	}

	return nil, nil, errors.Errorf("unknown journal driver %q", config.JournalDriver)
}

// SignalContext is cancelled on SIGINT, SIGTERM, SIGQUIT or SIGHUP.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
}

func configureLogger(config BaseConfig, metricsProvider *newrelic.Application, out io.Writer) {
	if metricsProvider != nil {
		logrus.SetFormatter(metrics_util.NewCustomNewRelicLogFormatter(metricsProvider, &logrus.JSONFormatter{}))
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	// Stdout is reserved for command output
	logrus.SetOutput(out)
}

type noQuoter struct{}

func (noQuoter) Quote(context.Context, *tranche.QuoteRequest) (*tranche.Quote, error) {
	return nil, ErrNoQuoter
}
