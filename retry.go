package storecrawl

import (
	"fmt"
	"math/rand"
	"time"
)

// The crawler itself never retries; callers compose this wrapper around
// crawler calls and keep control of the policy.

type RetryStrategy string

const (
	RetryFixed       RetryStrategy = "fixed"
	RetryLinear      RetryStrategy = "linear"
	RetryExponential RetryStrategy = "exponential"
)

type RetryOptions struct {
	MaxAttempts int
	Strategy    RetryStrategy
	Delay       time.Duration
	MaxDelay    time.Duration
	Jitter      bool
	// IsRetryable decides whether a failure is worth another attempt.
	// Defaults to IsRetryable, which refuses AUTH_REQUIRED and INIT_ERROR.
	IsRetryable func(error) bool
}

func defaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts: 3,
		Strategy:    RetryExponential,
		Delay:       time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      true,
		IsRetryable: IsRetryable,
	}
}

// Retry runs fn up to MaxAttempts times, sleeping between attempts according
// to the strategy. It returns nil on the first success, or the last error.
func Retry(fn func() error, options ...RetryOptions) error {
	opts := defaultRetryOptions()
	if len(options) > 0 {
		overrideRetryDefaults(&opts, options[0])
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !opts.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt < opts.MaxAttempts {
			time.Sleep(retryDelay(opts, attempt))
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", opts.MaxAttempts, lastErr)
}

func overrideRetryDefaults(defaults *RetryOptions, opts RetryOptions) {
	if opts.MaxAttempts > 0 {
		defaults.MaxAttempts = opts.MaxAttempts
	}
	if opts.Strategy != "" {
		defaults.Strategy = opts.Strategy
	}
	if opts.Delay > 0 {
		defaults.Delay = opts.Delay
	}
	if opts.MaxDelay > 0 {
		defaults.MaxDelay = opts.MaxDelay
	}
	if opts.IsRetryable != nil {
		defaults.IsRetryable = opts.IsRetryable
	}
	defaults.Jitter = opts.Jitter
}

// retryDelay computes the sleep before the next attempt. attempt is 1-based.
func retryDelay(opts RetryOptions, attempt int) time.Duration {
	var delay time.Duration
	switch opts.Strategy {
	case RetryLinear:
		delay = opts.Delay * time.Duration(attempt)
	case RetryExponential:
		delay = opts.Delay << (attempt - 1)
	default:
		delay = opts.Delay
	}
	if opts.MaxDelay > 0 && delay > opts.MaxDelay {
		delay = opts.MaxDelay
	}
	if opts.Jitter && delay > 0 {
		delay = delay/2 + time.Duration(rand.Int63n(int64(delay/2)+1))
	}
	return delay
}
