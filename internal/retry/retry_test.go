package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	result, attempts, err := Do(context.Background(), fastConfig(), func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want %q", result, "ok")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	result, attempts, err := Do(context.Background(), fastConfig(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if result != 42 {
		t.Errorf("result = %d, want 42", result)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDo_Exhaustion(t *testing.T) {
	boom := errors.New("boom")
	calls := 0

	_, attempts, err := Do(context.Background(), fastConfig(), func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	})

	if calls != 3 {
		t.Errorf("operation invoked %d times, want 3", calls)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error = %v, want *ExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("ExhaustedError.Attempts = %d, want 3", exhausted.Attempts)
	}
	if !errors.Is(err, boom) {
		t.Error("exhausted error should wrap the last failure")
	}
}

func TestDo_ExponentialSchedule(t *testing.T) {
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 20 * time.Millisecond,
		Multiplier:   2.0,
	}

	start := time.Now()
	_, _, err := Do(context.Background(), cfg, func(ctx context.Context) (int, error) {
		return 0, errors.New("always")
	})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected exhaustion")
	}
	// Cumulative wait is 20ms + 40ms; no wait after the final attempt.
	if elapsed < 60*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 60ms for the exponential schedule", elapsed)
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("elapsed = %v, unexpectedly long", elapsed)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, _, err := Do(ctx, Config{MaxAttempts: 3, InitialDelay: time.Hour, Multiplier: 2}, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("fail then wait")
	})

	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("operation invoked %d times, want 1", calls)
	}
}

func TestDoVoid(t *testing.T) {
	calls := 0
	attempts, err := DoVoid(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("DoVoid failed: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}
