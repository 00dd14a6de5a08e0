package infra_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"hey-george/internal/infra"
)

func fastRetryConfig() infra.RetryConfig {
	return infra.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetryConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("permanent")
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want the last error", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestWithRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := infra.WithRetry(ctx, fastRetryConfig(), func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestWithRetryDoesNotRetryContextErrors(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}
