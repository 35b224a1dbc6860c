// Package retry runs fallible operations with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Config controls how often and how patiently an operation is retried.
type Config struct {
	MaxAttempts  int           // total tries, including the first
	InitialDelay time.Duration // delay before the second try
	MaxDelay     time.Duration // backoff ceiling
	Multiplier   float64       // growth factor between tries
}

// DefaultConfig suits short local-disk operations such as mirror writes:
// quick retries, capped well below request timeout territory.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
}

// Operation is a function that may fail and is worth retrying.
type Operation func() error

// Do runs op with backoff until it succeeds or attempts run out.
func Do(op Operation, cfg Config) error {
	return DoWithContext(context.Background(), func(context.Context) error {
		return op()
	}, cfg)
}

// DoWithContext runs op with backoff, giving up early when ctx is done.
// The error from the final attempt is wrapped in the returned error.
func DoWithContext(ctx context.Context, op func(context.Context) error, cfg Config) error {
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		default:
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(delayFor(attempt, cfg)):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
		}
	}
	return fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

func delayFor(attempt int, cfg Config) time.Duration {
	delay := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1)))
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}
