package rate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestNoLimiter(t *testing.T) {
	l := &NoLimiter{}
	for i := 0; i < 10000; i++ {
		allowed, err := l.Allow("")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestLocalRateLimiter(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(2))

	for i := 0; i < 2; i++ {
		allowed, err := l.Allow("getAccountInfo")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := l.Allow("getAccountInfo")
	assert.NoError(t, err)
	assert.False(t, allowed)

	// Methods are limited independently
	for i := 0; i < 2; i++ {
		allowed, err := l.Allow("sendTransaction")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err = l.Allow("sendTransaction")
	assert.NoError(t, err)
	assert.False(t, allowed)
}

func TestNewLimiter(t *testing.T) {
	assert.IsType(t, &NoLimiter{}, NewLimiter(0))
	assert.IsType(t, &NoLimiter{}, NewLimiter(-1))

	// Fractional limits still allow a first call
	l := NewLimiter(0.5)
	allowed, err := l.Allow("getSlot")
	assert.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = l.Allow("getSlot")
	assert.NoError(t, err)
	assert.False(t, allowed)
}
