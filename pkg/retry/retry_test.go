package retry

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/tranche-vault/pkg/retry/backoff"
)

type testSleeper struct {
	sleepTimes []time.Duration
}

func (s *testSleeper) Sleep(d time.Duration) {
	s.sleepTimes = append(s.sleepTimes, d)
}

func useTestSleeper(t *testing.T) *testSleeper {
	ts := &testSleeper{}
	sleeperImpl = ts
	t.Cleanup(func() {
		sleeperImpl = realSleeper{}
	})
	return ts
}

func TestRetry_Limit(t *testing.T) {
	attempts, err := Retry(func() error { return errors.New("rpc unavailable") }, Limit(3))
	assert.EqualError(t, err, "rpc unavailable")
	assert.EqualValues(t, 3, attempts)

	attempts, err = Retry(func() error { return nil }, Limit(3))
	assert.NoError(t, err)
	assert.EqualValues(t, 1, attempts)
}

func TestRetrier_RetriableErrors(t *testing.T) {
	errRateLimited := errors.New("rate limited")
	r := NewRetrier(Limit(4), RetriableErrors(errRateLimited))

	attempts, err := r.Retry(func() error { return errors.New("account not found") })
	assert.Error(t, err)
	assert.EqualValues(t, 1, attempts)

	attempts, err = r.Retry(func() error { return errors.Wrap(errRateLimited, "getAccountInfo") })
	assert.ErrorIs(t, err, errRateLimited)
	assert.EqualValues(t, 4, attempts)

	var calls int
	attempts, err = r.Retry(func() error {
		calls++
		if calls < 3 {
			return errRateLimited
		}
		return nil
	})
	assert.NoError(t, err)
	assert.EqualValues(t, 3, attempts)
}

func TestRetry_Context(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	attempts, err := Retry(func() error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("not confirmed")
	}, Context(ctx))
	assert.Error(t, err)
	assert.EqualValues(t, 2, attempts)
}

func TestBackoff_Capped(t *testing.T) {
	ts := useTestSleeper(t)

	_, err := Retry(func() error { return errors.New("busy") },
		Limit(5),
		Backoff(backoff.BinaryExponential(time.Second), 5*time.Second),
	)
	require.Error(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}, ts.sleepTimes)
}

func TestBackoffWithJitter(t *testing.T) {
	ts := useTestSleeper(t)

	_, err := Retry(func() error { return errors.New("busy") },
		Limit(20),
		BackoffWithJitter(backoff.Constant(time.Second), time.Minute, 0.1),
	)
	require.Error(t, err)
	require.Len(t, ts.sleepTimes, 19)
	for _, d := range ts.sleepTimes {
		assert.True(t, d >= 900*time.Millisecond && d <= 1100*time.Millisecond, d)
	}
}
