package env

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvConfig(t *testing.T) {
	ctx := context.Background()

	c := NewDurationConfig("lifecycle_test_timeout", time.Minute)
	assert.Equal(t, time.Minute, c.Get(ctx))

	// Values are read on every Get
	t.Setenv("LIFECYCLE_TEST_TIMEOUT", "5s")
	assert.Equal(t, 5*time.Second, c.Get(ctx))

	t.Setenv("LIFECYCLE_TEST_BATCH", "12")
	assert.EqualValues(t, 12, NewUint64Config("LIFECYCLE_TEST_BATCH", 10).Get(ctx))
	assert.EqualValues(t, 10, NewUint64Config("LIFECYCLE_TEST_UNSET", 10).Get(ctx))
}
