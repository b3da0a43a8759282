package embedding

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetry(n int) RetryConfig {
	return RetryConfig{MaxRetries: n, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestWithRetry(t *testing.T) {
	retryable := &ServiceError{Op: "request", Retryable: true, Err: errors.New("busy")}
	fatal := &ServiceError{Op: "request", Status: 400, Err: errors.New("bad input")}

	tests := []struct {
		name         string
		failures     int
		err          error
		maxRetries   int
		wantAttempts int
		wantErr      bool
	}{
		{"success first try", 0, nil, 3, 1, false},
		{"success after retries", 2, retryable, 3, 3, false},
		{"exhausted", 10, retryable, 2, 3, true},
		{"not retryable", 10, fatal, 3, 1, true},
		{"plain error not retried", 10, errors.New("boom"), 3, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := withRetry(context.Background(), fastRetry(tt.maxRetries), func() error {
				attempts++
				if attempts <= tt.failures {
					return tt.err
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if tt.err != nil && tt.wantErr && !errors.Is(err, tt.err) {
				t.Errorf("error chain lost the cause: %v", err)
			}
		})
	}
}

func TestWithRetry_contextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := withRetry(ctx, RetryConfig{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 1}, func() error {
		attempts++
		cancel()
		return &ServiceError{Retryable: true, Err: errors.New("busy")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d", attempts)
	}
}

func TestServiceError_Is(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&ServiceError{Op: "request", Err: cause})
	if !errors.Is(err, ErrService) {
		t.Error("expected errors.Is(err, ErrService)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
	if IsRetryable(errors.New("x")) {
		t.Error("plain errors are not retryable")
	}
}
