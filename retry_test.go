package storecrawl

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(func() error {
		calls++
		if calls < 3 {
			return newCrawlError(CodeSearchError, "flaky", nil)
		}
		return nil
	}, RetryOptions{MaxAttempts: 5, Delay: time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(func() error {
		calls++
		return newCrawlError(CodeNavigationTimeout, "slow page", nil)
	}, RetryOptions{MaxAttempts: 3, Delay: time.Millisecond})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "all 3 attempts failed")
	assert.True(t, IsCode(err, CodeNavigationTimeout), "last cause stays unwrappable")
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	err := Retry(func() error {
		calls++
		return newCrawlError(CodeAuthRequired, "session expired", nil)
	}, RetryOptions{MaxAttempts: 5, Delay: time.Millisecond})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "AUTH_REQUIRED must not be retried")
	assert.True(t, IsCode(err, CodeAuthRequired))
}

func TestRetryCustomPredicate(t *testing.T) {
	calls := 0
	err := Retry(func() error {
		calls++
		return fmt.Errorf("plain failure")
	}, RetryOptions{
		MaxAttempts: 4,
		Delay:       time.Millisecond,
		IsRetryable: func(err error) bool { return calls < 2 },
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryFirstAttemptSuccessSkipsDelay(t *testing.T) {
	start := time.Now()
	err := Retry(func() error { return nil }, RetryOptions{Delay: 5 * time.Second})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetryDelaySchedules(t *testing.T) {
	tests := []struct {
		name     string
		strategy RetryStrategy
		attempt  int
		want     time.Duration
	}{
		{"fixed first", RetryFixed, 1, time.Second},
		{"fixed third", RetryFixed, 3, time.Second},
		{"linear first", RetryLinear, 1, time.Second},
		{"linear third", RetryLinear, 3, 3 * time.Second},
		{"exponential first", RetryExponential, 1, time.Second},
		{"exponential fourth", RetryExponential, 4, 8 * time.Second},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := RetryOptions{Strategy: tc.strategy, Delay: time.Second}
			assert.Equal(t, tc.want, retryDelay(opts, tc.attempt))
		})
	}
}

func TestRetryDelayCapped(t *testing.T) {
	opts := RetryOptions{Strategy: RetryExponential, Delay: time.Second, MaxDelay: 4 * time.Second}
	assert.Equal(t, 4*time.Second, retryDelay(opts, 10))
}

func TestRetryDelayJitterStaysWithinBounds(t *testing.T) {
	opts := RetryOptions{Strategy: RetryFixed, Delay: 10 * time.Second, Jitter: true}
	for i := 0; i < 50; i++ {
		d := retryDelay(opts, 1)
		assert.GreaterOrEqual(t, d, 5*time.Second)
		assert.LessOrEqual(t, d, 10*time.Second)
	}
}
