package app

import (
	"time"

	"github.com/spf13/viper"
)

const (
	JournalDriverMemory   = "memory"
	JournalDriverSqlite   = "sqlite"
	JournalDriverPostgres = "postgres"

	QuoteSourcePool    = "pool"
	QuoteSourceJupiter = "jupiter"
)

// BaseConfig configures the vault tooling. Values come from the config file,
// overridden by VAULT_* environment variables.
type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	RPCEndpoint  string  `mapstructure:"rpc_endpoint"`
	Commitment   string  `mapstructure:"commitment"`
	RPCRateLimit float64 `mapstructure:"rpc_rate_limit"`

	// KeypairPath is a URL to a Solana CLI keypair file, which pays for and
	// signs every transaction. Only the file scheme is supported. If no
	// scheme is specified, file is used.
	KeypairPath string `mapstructure:"keypair_path"`

	// JournalDriver is one of memory, sqlite or postgres. JournalDSN is the
	// sqlite file path or postgres connection string.
	JournalDriver string `mapstructure:"journal_driver"`
	JournalDSN    string `mapstructure:"journal_dsn"`

	// Postgres journal via discrete settings when JournalDSN is empty
	PostgresUser      string `mapstructure:"postgres_user"`
	PostgresPassword  string `mapstructure:"postgres_password"`
	PostgresHost      string `mapstructure:"postgres_host"`
	PostgresPort      int    `mapstructure:"postgres_port"`
	PostgresDbName    string `mapstructure:"postgres_db_name"`
	PostgresUseAwsIam bool   `mapstructure:"postgres_use_aws_iam"`

	QuoteSource            string `mapstructure:"quote_source"`
	JupiterBaseUrl         string `mapstructure:"jupiter_base_url"`
	JupiterDirectRouteOnly bool   `mapstructure:"jupiter_direct_route_only"`
	TradeFeeNumerator      uint64 `mapstructure:"trade_fee_numerator"`
	TradeFeeDenominator    uint64 `mapstructure:"trade_fee_denominator"`

	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`
}

var defaultConfig = BaseConfig{
	LogLevel: "info",

	AppName: "vault-cli",

	RPCEndpoint: "http://localhost:8899",
	Commitment:  "confirmed",

	KeypairPath: "~/.config/solana/id.json",

	JournalDriver: JournalDriverMemory,

	PostgresPort: 5432,

	QuoteSource:            QuoteSourcePool,
	JupiterBaseUrl:         "https://quote-api.jup.ag/v6/",
	JupiterDirectRouteOnly: true,
	TradeFeeNumerator:      30,
	TradeFeeDenominator:    10_000,

	ShutdownGracePeriod: 30 * time.Second,
}

// DefaultConfig returns a copy of the defaults.
func DefaultConfig() BaseConfig {
	return defaultConfig
}

func init() {
	_ = viper.BindEnv("log_level", "VAULT_LOG_LEVEL")

	_ = viper.BindEnv("app_name", "VAULT_APP_NAME")

	_ = viper.BindEnv("rpc_endpoint", "VAULT_RPC_ENDPOINT")
	_ = viper.BindEnv("commitment", "VAULT_COMMITMENT")
	_ = viper.BindEnv("rpc_rate_limit", "VAULT_RPC_RATE_LIMIT")

	_ = viper.BindEnv("keypair_path", "VAULT_KEYPAIR_PATH")

	_ = viper.BindEnv("journal_driver", "VAULT_JOURNAL_DRIVER")
	_ = viper.BindEnv("journal_dsn", "VAULT_JOURNAL_DSN")

	_ = viper.BindEnv("postgres_user", "VAULT_POSTGRES_USER")
	_ = viper.BindEnv("postgres_password", "VAULT_POSTGRES_PASSWORD")
	_ = viper.BindEnv("postgres_host", "VAULT_POSTGRES_HOST")
	_ = viper.BindEnv("postgres_port", "VAULT_POSTGRES_PORT")
	_ = viper.BindEnv("postgres_db_name", "VAULT_POSTGRES_DB_NAME")
	_ = viper.BindEnv("postgres_use_aws_iam", "VAULT_POSTGRES_USE_AWS_IAM")

	_ = viper.BindEnv("quote_source", "VAULT_QUOTE_SOURCE")
	_ = viper.BindEnv("jupiter_base_url", "VAULT_JUPITER_BASE_URL")
	_ = viper.BindEnv("jupiter_direct_route_only", "VAULT_JUPITER_DIRECT_ROUTE_ONLY")
	_ = viper.BindEnv("trade_fee_numerator", "VAULT_TRADE_FEE_NUMERATOR")
	_ = viper.BindEnv("trade_fee_denominator", "VAULT_TRADE_FEE_DENOMINATOR")

	_ = viper.BindEnv("shutdown_grace_period", "VAULT_SHUTDOWN_GRACE_PERIOD")

	_ = viper.BindEnv("new_relic_license_key", "VAULT_NEW_RELIC_LICENSE_KEY")
}
