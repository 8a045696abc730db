package retry

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kmacleod/hoopsweep/internal/config"
	"github.com/kmacleod/hoopsweep/internal/types"
)

func testPolicy(t *testing.T, cfg config.RetryConfig, onRetry func()) (*Policy, *[]time.Duration) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := NewPolicy(cfg, logger, onRetry)
	var slept []time.Duration
	p.sleep = func(d time.Duration) { slept = append(slept, d) }
	return p, &slept
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassNone},
		{"stall", &types.StallError{Op: "navigate", Err: errors.New("timeout")}, ClassStall},
		{"unresponsive", &types.UnresponsiveError{Op: "html", Err: errors.New("dead")}, ClassUnresponsive},
		{"creation", &types.CreationError{Attempts: 3, Err: errors.New("no chrome")}, ClassCreation},
		{"structural", &types.StructuralError{URL: "http://x", Marker: "table"}, ClassStructural},
		{"partial", &types.PartialExtractionError{Link: "l", Team: "A", Err: errors.New("x")}, ClassPartial},
		{"storage", &types.StorageError{Backend: "csv", Err: errors.New("disk")}, ClassStorage},
		{"wrapped stall", &types.StorageError{Backend: "csv", Err: &types.StallError{Op: "x"}}, ClassStorage},
		{"plain", errors.New("boom"), ClassOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	if !ClassStall.Retryable() {
		t.Error("stall should be retryable")
	}
	if !ClassUnresponsive.Retryable() {
		t.Error("unresponsive should be retryable")
	}
	if ClassStructural.Retryable() {
		t.Error("structural should not be retryable")
	}
	if ClassPartial.Retryable() {
		t.Error("partial extraction should not be retryable")
	}
	if ClassCreation.Retryable() {
		t.Error("creation failure should not be retryable at the op level")
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	p, slept := testPolicy(t, config.RetryConfig{MaxAttempts: 3, Backoff: 2 * time.Second}, nil)

	calls := 0
	err := p.Do("op", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %d times before first attempt, want 0", len(*slept))
	}
}

func TestDoExhaustsAttemptsOnPersistentStall(t *testing.T) {
	retries := 0
	p, slept := testPolicy(t, config.RetryConfig{MaxAttempts: 3, Backoff: 2 * time.Second}, func() { retries++ })

	calls := 0
	err := p.Do("op", func() error {
		calls++
		return &types.StallError{Op: "navigate", Err: errors.New("stuck")}
	})
	if err == nil {
		t.Fatal("Do() = nil, want error")
	}
	if !errors.Is(err, types.ErrMaxRetries) {
		t.Errorf("error %v should wrap ErrMaxRetries", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want exactly 3", calls)
	}
	if retries != 2 {
		t.Errorf("onRetry fired %d times, want 2", retries)
	}
	// Linear backoff: 2s before attempt 2, 4s before attempt 3.
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Errorf("backoff[%d] = %v, want %v", i, (*slept)[i], d)
		}
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	p, _ := testPolicy(t, config.RetryConfig{MaxAttempts: 3, Backoff: time.Second}, nil)

	calls := 0
	structural := &types.StructuralError{URL: "http://x", Marker: "#contentArea"}
	err := p.Do("op", func() error {
		calls++
		return structural
	})
	if !errors.Is(err, structural) {
		t.Errorf("Do() = %v, want the structural error back", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1 (no retry for structural errors)", calls)
	}
}

func TestDoRecoversMidway(t *testing.T) {
	p, _ := testPolicy(t, config.RetryConfig{MaxAttempts: 3, Backoff: time.Second}, nil)

	calls := 0
	err := p.Do("op", func() error {
		calls++
		if calls < 3 {
			return &types.StallError{Op: "html", Err: errors.New("hiccup")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil after recovery", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
}
