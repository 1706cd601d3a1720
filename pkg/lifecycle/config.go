package lifecycle

import (
	"time"

	"github.com/code-payments/tranche-vault/pkg/config"
	"github.com/code-payments/tranche-vault/pkg/config/env"
	"github.com/code-payments/tranche-vault/pkg/config/memory"
	"github.com/code-payments/tranche-vault/pkg/config/wrapper"
)

const (
	envConfigPrefix = "LIFECYCLE_"

	DefaultSlippageBpsConfigEnvName = envConfigPrefix + "DEFAULT_SLIPPAGE_BPS"
	defaultDefaultSlippageBps       = 50

	ClaimsBatchSizeConfigEnvName = envConfigPrefix + "CLAIMS_BATCH_SIZE"
	defaultClaimsBatchSize       = 10

	MaxRebalanceRefinementsConfigEnvName = envConfigPrefix + "MAX_REBALANCE_REFINEMENTS"
	defaultMaxRebalanceRefinements       = 2

	WaitPollIntervalConfigEnvName = envConfigPrefix + "WAIT_POLL_INTERVAL"
	defaultWaitPollInterval       = 3 * time.Second

	MaxWaitDurationConfigEnvName = envConfigPrefix + "MAX_WAIT_DURATION"
	defaultMaxWaitDuration       = 10 * time.Minute

	ConfirmationTimeoutConfigEnvName = envConfigPrefix + "CONFIRMATION_TIMEOUT"
	defaultConfirmationTimeout       = time.Minute

	// Zero leaves the runtime's default in place
	ComputeUnitLimitConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_LIMIT"
	defaultComputeUnitLimit       = 0

	// Micro-lamports per compute unit
	ComputeUnitPriceConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_PRICE"
	defaultComputeUnitPrice       = 0
)

type conf struct {
	defaultSlippageBps      config.Uint64
	claimsBatchSize         config.Uint64
	maxRebalanceRefinements config.Uint64
	waitPollInterval        config.Duration
	maxWaitDuration         config.Duration
	confirmationTimeout     config.Duration
	computeUnitLimit        config.Uint64
	computeUnitPrice        config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			defaultSlippageBps:      env.NewUint64Config(DefaultSlippageBpsConfigEnvName, defaultDefaultSlippageBps),
			claimsBatchSize:         env.NewUint64Config(ClaimsBatchSizeConfigEnvName, defaultClaimsBatchSize),
			maxRebalanceRefinements: env.NewUint64Config(MaxRebalanceRefinementsConfigEnvName, defaultMaxRebalanceRefinements),
			waitPollInterval:        env.NewDurationConfig(WaitPollIntervalConfigEnvName, defaultWaitPollInterval),
			maxWaitDuration:         env.NewDurationConfig(MaxWaitDurationConfigEnvName, defaultMaxWaitDuration),
			confirmationTimeout:     env.NewDurationConfig(ConfirmationTimeoutConfigEnvName, defaultConfirmationTimeout),
			computeUnitLimit:        env.NewUint64Config(ComputeUnitLimitConfigEnvName, defaultComputeUnitLimit),
			computeUnitPrice:        env.NewUint64Config(ComputeUnitPriceConfigEnvName, defaultComputeUnitPrice),
		}
	}
}

type testOverrides struct {
	defaultSlippageBps      uint64
	claimsBatchSize         uint64
	maxRebalanceRefinements uint64
	waitPollInterval        time.Duration
	maxWaitDuration         time.Duration
	computeUnitLimit        uint64
	computeUnitPrice        uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	if overrides.defaultSlippageBps == 0 {
		overrides.defaultSlippageBps = defaultDefaultSlippageBps
	}

	if overrides.claimsBatchSize == 0 {
		overrides.claimsBatchSize = defaultClaimsBatchSize
	}

	if overrides.waitPollInterval == 0 {
		overrides.waitPollInterval = defaultWaitPollInterval
	}

	if overrides.maxWaitDuration == 0 {
		overrides.maxWaitDuration = defaultMaxWaitDuration
	}

	return func() *conf {
		return &conf{
			defaultSlippageBps:      wrapper.NewUint64Config(memory.NewConfig(overrides.defaultSlippageBps), defaultDefaultSlippageBps),
			claimsBatchSize:         wrapper.NewUint64Config(memory.NewConfig(overrides.claimsBatchSize), defaultClaimsBatchSize),
			maxRebalanceRefinements: wrapper.NewUint64Config(memory.NewConfig(overrides.maxRebalanceRefinements), defaultMaxRebalanceRefinements),
			waitPollInterval:        wrapper.NewDurationConfig(memory.NewConfig(overrides.waitPollInterval), defaultWaitPollInterval),
			maxWaitDuration:         wrapper.NewDurationConfig(memory.NewConfig(overrides.maxWaitDuration), defaultMaxWaitDuration),
			confirmationTimeout:     wrapper.NewDurationConfig(memory.NewConfig(defaultConfirmationTimeout), defaultConfirmationTimeout),
			computeUnitLimit:        wrapper.NewUint64Config(memory.NewConfig(overrides.computeUnitLimit), defaultComputeUnitLimit),
			computeUnitPrice:        wrapper.NewUint64Config(memory.NewConfig(overrides.computeUnitPrice), defaultComputeUnitPrice),
		}
	}
}
