package keeper

import (
	"github.com/code-payments/tranche-vault/pkg/config"
	"github.com/code-payments/tranche-vault/pkg/config/env"
	"github.com/code-payments/tranche-vault/pkg/config/memory"
	"github.com/code-payments/tranche-vault/pkg/config/wrapper"
)

const (
	envConfigPrefix = "KEEPER_"

	EnabledConfigEnvName = envConfigPrefix + "ENABLED"
	defaultEnabled       = true

	// Cron schedule with a leading seconds field
	ScheduleConfigEnvName = envConfigPrefix + "SCHEDULE"
	defaultSchedule       = "*/10 * * * * *"

	MinLpOutConfigEnvName = envConfigPrefix + "MIN_LP_OUT"
	defaultMinLpOut       = 1
)

type conf struct {
	enabled  config.Bool
	schedule config.String
	minLpOut config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			enabled:  env.NewBoolConfig(EnabledConfigEnvName, defaultEnabled),
			schedule: env.NewStringConfig(ScheduleConfigEnvName, defaultSchedule),
			minLpOut: env.NewUint64Config(MinLpOutConfigEnvName, defaultMinLpOut),
		}
	}
}

type testOverrides struct {
	disabled bool
	schedule string
	minLpOut uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	if overrides.schedule == "" {
		overrides.schedule = defaultSchedule
	}

	if overrides.minLpOut == 0 {
		overrides.minLpOut = defaultMinLpOut
	}

	return func() *conf {
		return &conf{
			enabled:  wrapper.NewBoolConfig(memory.NewConfig(!overrides.disabled), defaultEnabled),
			schedule: wrapper.NewStringConfig(memory.NewConfig(overrides.schedule), defaultSchedule),
			minLpOut: wrapper.NewUint64Config(memory.NewConfig(overrides.minLpOut), defaultMinLpOut),
		}
	}
}
