package webfetch

import (
	"context"
	"log/slog"
	"time"
)

// RetryConfig holds retry configuration for fetches.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	// BackoffBase is the delay before the second attempt.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to the delay on each further retry.
	BackoffMultiplier float64

	// MaxBackoff caps the delay.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns 3 attempts with 1s, 2s backoff capped at 5s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        5 * time.Second,
	}
}

// Backoff returns the delay after the given failed attempt (1-based).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	backoff := float64(c.BackoffBase)
	for i := 1; i < attempt; i++ {
		backoff *= c.BackoffMultiplier
	}
	if d := time.Duration(backoff); d < c.MaxBackoff || c.MaxBackoff <= 0 {
		return d
	}
	return c.MaxBackoff
}

// Retry runs op until it succeeds, returns an error IsRetryable rejects, or
// MaxAttempts is reached. It returns the number of attempts made.
func Retry[T any](ctx context.Context, cfg RetryConfig, logger *slog.Logger, op func(ctx context.Context) (T, error)) (T, int, error) {
	var zero T
	maxAttempts := max(cfg.MaxAttempts, 1)

	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, attempt, nil
		}
		if !IsRetryable(err) || attempt >= maxAttempts {
			return zero, attempt, err
		}

		backoff := cfg.Backoff(attempt)
		logger.Debug("Retrying after transient error",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"backoff", backoff,
			"error", err)

		select {
		case <-ctx.Done():
			return zero, attempt, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
