// Package retry wraps fallible operations with bounded re-attempts and
// exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/gilbertyin/Jurni/internal/config"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// DefaultConfig returns the policy applied to every external dependency.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2.0,
	}
}

// FromConfig converts the application retry settings.
func FromConfig(cfg config.RetryConfig) Config {
	return Config{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		Multiplier:   cfg.Multiplier,
	}
}

// ExhaustedError reports that every attempt failed. It carries the attempt
// count and wraps the last failure.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do executes fn with exponential backoff, returning the result and the
// number of attempts consumed. The delay before attempt n+1 is
// InitialDelay * Multiplier^(n-1). On exhaustion the returned error is an
// *ExhaustedError wrapping the last failure.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, int, error) {
	var zero T
	var lastErr error

	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, attempt, nil
		}

		lastErr = err

		// Don't wait after the last attempt
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, attempt, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
	}

	return zero, cfg.MaxAttempts, &ExhaustedError{Attempts: cfg.MaxAttempts, Err: lastErr}
}

// DoVoid is Do for operations with no result.
func DoVoid(ctx context.Context, cfg Config, fn func(ctx context.Context) error) (int, error) {
	_, attempts, err := Do(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return attempts, err
}
