package runtime

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrRetryExhausted is returned when every retry attempt conflicted.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// RetryConfig holds retry configuration for RetryOnConflict. The client
// itself never retries a guarded write; this helper is the caller-side
// retry/backoff policy, opted into explicitly.
type RetryConfig struct {
	MaxAttempts   int           // Maximum number of attempts
	InitialDelay  time.Duration // Delay before the first retry
	MaxDelay      time.Duration // Cap on the backoff delay
	BackoffFactor float64       // Exponential backoff multiplier
	Jitter        bool          // Add randomness to delay
}

// DefaultRetryConfig returns default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// RetryOption customizes retry behavior.
type RetryOption func(*RetryConfig)

// WithMaxAttempts sets the maximum attempts.
func WithMaxAttempts(n int) RetryOption {
	return func(c *RetryConfig) {
		c.MaxAttempts = n
	}
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) RetryOption {
	return func(c *RetryConfig) {
		c.InitialDelay = d
	}
}

// WithBackoffFactor sets the exponential backoff factor.
func WithBackoffFactor(f float64) RetryOption {
	return func(c *RetryConfig) {
		c.BackoffFactor = f
	}
}

// RetryOnConflict runs fn until it succeeds, fails with a non-conflict
// error, or exhausts its attempts. The function is expected to re-read the
// current lock value before each attempt; RetryOnConflict only supplies the
// backoff schedule.
func RetryOnConflict(ctx context.Context, fn func(ctx context.Context) error, opts ...RetryOption) error {
	config := DefaultRetryConfig()
	for _, opt := range opts {
		opt(config)
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsConflict(err) || errors.Is(err, context.Canceled) {
			return err
		}
		lastErr = err

		if attempt == config.MaxAttempts-1 {
			break
		}

		actualDelay := delay
		if config.Jitter && delay > 0 {
			// ±25% jitter.
			jitterRange := delay / 4
			actualDelay = delay - jitterRange + time.Duration(rand.Int63n(int64(jitterRange)*2))
		}

		select {
		case <-time.After(actualDelay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * config.BackoffFactor)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
