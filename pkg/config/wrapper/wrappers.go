// Package wrapper converts untyped config sources into typed configs.
package wrapper

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/tranche-vault/pkg/config"
)

// ErrUnsuportedConversion indicates the source value can't be converted
var ErrUnsuportedConversion = errors.New("config: wrapper conversion from source type not implemented")

type converter[T any] func(v interface{}) (T, error)

type typed[T any] struct {
	override     config.Config
	defaultValue T
	convert      converter[T]

	stateMu   sync.RWMutex
	lastValue T
}

func newTyped[T any](override config.Config, defaultValue T, convert converter[T]) *typed[T] {
	return &typed[T]{
		override:     override,
		defaultValue: defaultValue,
		convert:      convert,
		lastValue:    defaultValue,
	}
}

// GetSafe returns the source's value, or the default when it has none. On
// error, the last known value is returned alongside it.
func (c *typed[T]) GetSafe(ctx context.Context) (T, error) {
	raw, err := c.override.Get(ctx)
	if errors.Is(err, config.ErrNoValue) {
		c.store(c.defaultValue)
		return c.defaultValue, nil
	}

	c.stateMu.RLock()
	lastValue := c.lastValue
	c.stateMu.RUnlock()
	if err != nil {
		return lastValue, err
	}

	value, err := c.convert(raw)
	if err != nil {
		return lastValue, err
	}
	c.store(value)
	return value, nil
}

func (c *typed[T]) Get(ctx context.Context) T {
	value, _ := c.GetSafe(ctx)
	return value
}

func (c *typed[T]) Shutdown() {
	c.override.Shutdown()
}

func (c *typed[T]) store(value T) {
	c.stateMu.Lock()
	c.lastValue = value
	c.stateMu.Unlock()
}

// NewBoolConfig accepts bool values, or bytes parsable by strconv.ParseBool.
func NewBoolConfig(override config.Config, defaultValue bool) config.Bool {
	return newTyped(override, defaultValue, func(v interface{}) (bool, error) {
		switch v := v.(type) {
		case bool:
			return v, nil
		case []byte:
			return strconv.ParseBool(string(v))
		}
		return false, ErrUnsuportedConversion
	})
}

// NewDurationConfig accepts time.Duration values, or bytes parsable by
// time.ParseDuration.
func NewDurationConfig(override config.Config, defaultValue time.Duration) config.Duration {
	return newTyped(override, defaultValue, func(v interface{}) (time.Duration, error) {
		switch v := v.(type) {
		case time.Duration:
			return v, nil
		case []byte:
			return time.ParseDuration(string(v))
		}
		return 0, ErrUnsuportedConversion
	})
}

// NewStringConfig accepts string or byte values.
func NewStringConfig(override config.Config, defaultValue string) config.String {
	return newTyped(override, defaultValue, func(v interface{}) (string, error) {
		switch v := v.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
		return "", ErrUnsuportedConversion
	})
}

// NewUint64Config accepts uint64 values, or bytes holding a base 10 integer.
func NewUint64Config(override config.Config, defaultValue uint64) config.Uint64 {
	return newTyped(override, defaultValue, func(v interface{}) (uint64, error) {
		switch v := v.(type) {
		case uint64:
			return v, nil
		case []byte:
			return strconv.ParseUint(string(v), 10, 64)
		}
		return 0, ErrUnsuportedConversion
	})
}
