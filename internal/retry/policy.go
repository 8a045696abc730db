// Package retry implements the bounded retry policy wrapped around
// remote browser operations.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/kmacleod/hoopsweep/internal/config"
	"github.com/kmacleod/hoopsweep/internal/types"
)

// Class is the coarse failure classification used to decide whether an
// error is worth retrying and which metric bucket it lands in.
type Class string

const (
	ClassNone         Class = "none"
	ClassStall        Class = "stall"
	ClassUnresponsive Class = "unresponsive"
	ClassCreation     Class = "creation"
	ClassStructural   Class = "structural"
	ClassPartial      Class = "partial_extraction"
	ClassStorage      Class = "storage"
	ClassOther        Class = "other"
)

// Classify maps any error to its failure class. This is the only place
// in the program that inspects error types for retry decisions; every
// caller goes through it so the taxonomy stays in one spot.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}

	var stall *types.StallError
	if errors.As(err, &stall) {
		return ClassStall
	}
	var unresponsive *types.UnresponsiveError
	if errors.As(err, &unresponsive) {
		return ClassUnresponsive
	}
	var creation *types.CreationError
	if errors.As(err, &creation) {
		return ClassCreation
	}
	var structural *types.StructuralError
	if errors.As(err, &structural) {
		return ClassStructural
	}
	var partial *types.PartialExtractionError
	if errors.As(err, &partial) {
		return ClassPartial
	}
	var storage *types.StorageError
	if errors.As(err, &storage) {
		return ClassStorage
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassStall
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassStall
	}

	return ClassOther
}

// Retryable reports whether a class is transient enough to re-issue the
// operation. Structural and partial-extraction failures are properties
// of the page, not the transport; retrying cannot fix them.
func (c Class) Retryable() bool {
	switch c {
	case ClassStall, ClassUnresponsive, ClassOther:
		return true
	default:
		return false
	}
}

// Policy issues an operation up to MaxAttempts times with linear
// backoff between attempts.
type Policy struct {
	cfg     config.RetryConfig
	logger  *slog.Logger
	onRetry func()

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// NewPolicy builds a Policy. onRetry, when non-nil, is invoked once per
// re-issued attempt (used to drive the retry counter metric).
func NewPolicy(cfg config.RetryConfig, logger *slog.Logger, onRetry func()) *Policy {
	return &Policy{
		cfg:     cfg,
		logger:  logger.With("component", "retry"),
		onRetry: onRetry,
		sleep:   time.Sleep,
	}
}

// Do runs op until it succeeds, fails non-retryably, or the attempt
// budget is exhausted. Backoff grows linearly with the attempt number.
func (p *Policy) Do(name string, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := p.cfg.Backoff * time.Duration(attempt-1)
			p.logger.Warn("retrying operation",
				"op", name,
				"attempt", attempt,
				"max_attempts", p.cfg.MaxAttempts,
				"backoff", backoff,
				"error", lastErr,
			)
			if p.onRetry != nil {
				p.onRetry()
			}
			p.sleep(backoff)
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		class := Classify(err)
		if !class.Retryable() {
			p.logger.Debug("operation failed non-retryably",
				"op", name, "class", string(class), "error", err)
			return err
		}
	}

	return fmt.Errorf("%s: %w after %d attempts: %w",
		name, types.ErrMaxRetries, p.cfg.MaxAttempts, lastErr)
}
