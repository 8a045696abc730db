// Package session owns the single live browser automation channel.
//
// Every remote operation the rest of the program performs (navigation,
// element queries, attribute reads, page content retrieval) goes
// through the Handle's guarded run primitive. A direct rod call outside
// this package can block the whole process on a wedged DevTools
// transport; the guard bounds every call with a timeout and drives the
// recovery state machine when one trips.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/kmacleod/hoopsweep/internal/config"
	"github.com/kmacleod/hoopsweep/internal/types"
)

// State represents the session lifecycle state.
type State int32

const (
	StateUninitialized State = 0
	StateActive        State = 1
	StateSuspect       State = 2
	StateRecovering    State = 3
	StateTerminated    State = 4
	StateClosed        State = 5
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateSuspect:
		return "suspect"
	case StateRecovering:
		return "recovering"
	case StateTerminated:
		return "terminated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handle wraps exactly one live browser session. It is owned by a
// single goroutine (the scheduler); it is not safe for concurrent use.
type Handle struct {
	cfg    config.SessionConfig
	logger *slog.Logger

	launch  *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page

	state       atomic.Int32
	recreations atomic.Int64
}

// New returns an unopened Handle.
func New(cfg config.SessionConfig, logger *slog.Logger) *Handle {
	return &Handle{
		cfg:    cfg,
		logger: logger.With("component", "session"),
	}
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Recreations returns how many times the underlying browser has been
// destroyed and recreated over the Handle's lifetime.
func (h *Handle) Recreations() int64 {
	return h.recreations.Load()
}

// Open creates the browser session, retrying creation up to the
// configured attempt bound with increasing backoff.
func (h *Handle) Open() error {
	if h.State() == StateClosed {
		return types.ErrSessionClosed
	}

	var lastErr error
	for attempt := 1; attempt <= h.cfg.CreationAttempts; attempt++ {
		if attempt > 1 {
			backoff := h.cfg.CreationBackoff * time.Duration(attempt-1)
			h.logger.Warn("retrying session creation",
				"attempt", attempt,
				"max_attempts", h.cfg.CreationAttempts,
				"backoff", backoff,
			)
			time.Sleep(backoff)
		}

		if err := h.open(); err != nil {
			lastErr = err
			continue
		}

		h.state.Store(int32(StateActive))
		h.logger.Info("session active", "attempt", attempt, "stealth", h.cfg.Stealth)
		return nil
	}

	h.state.Store(int32(StateTerminated))
	return &types.CreationError{Attempts: h.cfg.CreationAttempts, Err: lastErr}
}

// open launches Chromium and connects a single page.
func (h *Handle) open() error {
	l := launcher.New().
		Headless(h.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if h.cfg.WindowSize != "" {
		l = l.Set("window-size", h.cfg.WindowSize)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connect browser: %w", err)
	}

	var page *rod.Page
	if h.cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return fmt.Errorf("create page: %w", err)
	}

	h.launch = l
	h.browser = browser
	h.page = page
	return nil
}

// Close shuts the session down. Always attempted, best-effort, even
// when the session is in a degraded state.
func (h *Handle) Close() {
	prev := State(h.state.Swap(int32(StateClosed)))
	if prev == StateClosed || prev == StateUninitialized {
		return
	}
	h.destroy()
	h.logger.Info("session closed", "recreations", h.recreations.Load())
}

// destroy tears the browser down with errors swallowed. A wedged
// browser may not answer the close call, so it runs under its own
// short guard before the process is killed outright.
func (h *Handle) destroy() {
	if h.browser != nil {
		done := make(chan struct{})
		browser := h.browser
		go func() {
			defer close(done)
			_ = browser.Close()
		}()
		select {
		case <-done:
		case <-time.After(h.cfg.InterruptGrace):
			h.logger.Warn("browser close timed out, killing process")
		}
	}
	if h.launch != nil {
		h.launch.Kill()
	}
	h.browser = nil
	h.page = nil
	h.launch = nil
}

// Recycle proactively destroys and recreates the session. Used by the
// scheduler as preventive maintenance, not as an error path.
func (h *Handle) Recycle(pause time.Duration) error {
	if h.State() == StateClosed {
		return types.ErrSessionClosed
	}

	h.logger.Info("recycling session")
	h.destroy()
	h.state.Store(int32(StateTerminated))

	if pause > 0 {
		time.Sleep(pause)
	}

	h.recreations.Add(1)
	h.state.Store(int32(StateUninitialized))
	return h.Open()
}

// run executes a remote operation under a hard timeout and drives the
// Suspect → Recovering path when the operation hangs. On successful
// recovery the triggering operation is retried exactly once against
// the fresh or revived session.
func (h *Handle) run(op string, timeout time.Duration, fn func(page *rod.Page) error) error {
	switch h.State() {
	case StateClosed:
		return types.ErrSessionClosed
	case StateUninitialized, StateTerminated:
		if err := h.Open(); err != nil {
			return err
		}
	}

	err := h.guarded(timeout, fn)
	if err == nil {
		return nil
	}

	if !isStallPattern(err) {
		// Page-level failure with a live transport: not this
		// machine's problem, the caller classifies it.
		return err
	}

	h.state.Store(int32(StateSuspect))
	h.logger.Warn("remote operation stalled", "op", op, "error", err)

	if h.recover(op) {
		// Liveness restored without recreation: surface the stall so
		// the retry policy can re-issue the op with backoff.
		return &types.StallError{Op: op, Err: err}
	}

	// Session was recreated (or recreation failed). Retry the
	// triggering operation exactly once against the fresh session.
	if h.State() != StateActive {
		return &types.UnresponsiveError{Op: op, Err: err}
	}
	if retryErr := h.guarded(timeout, fn); retryErr != nil {
		return &types.UnresponsiveError{Op: op, Err: retryErr}
	}
	return nil
}

// guarded runs fn against the current page, bounding it with a timeout
// so a wedged transport can never block the caller indefinitely.
func (h *Handle) guarded(timeout time.Duration, fn func(page *rod.Page) error) error {
	page := h.page
	if page == nil {
		return types.ErrSessionClosed
	}

	done := make(chan error, 1)
	go func() {
		done <- fn(page)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		// The goroutine stays blocked until the browser dies; the
		// buffered channel lets it finish without leaking forever.
		return &types.StallError{Op: "guarded", Err: errTimeout}
	}
}

var errTimeout = errors.New("operation exceeded its timeout")

// recover attempts the soft-interrupt path: stop the in-flight
// navigation, give the page a grace period, then probe liveness by
// counting a ubiquitous element. Returns true when the existing
// session came back; false means the session was torn down (and a
// fresh one created when possible).
func (h *Handle) recover(op string) bool {
	h.state.Store(int32(StateRecovering))

	page := h.page
	interrupted := false
	if page != nil {
		done := make(chan error, 1)
		go func() {
			done <- proto.PageStopLoading{}.Call(page)
		}()
		select {
		case err := <-done:
			interrupted = err == nil
		case <-time.After(h.cfg.InterruptGrace):
		}
	}

	if interrupted && h.probeLiveness() {
		h.state.Store(int32(StateActive))
		h.logger.Info("session revived in place", "op", op)
		return true
	}

	h.logger.Warn("session unresponsive, recreating", "op", op)
	h.destroy()
	h.state.Store(int32(StateTerminated))
	h.recreations.Add(1)
	h.state.Store(int32(StateUninitialized))
	if err := h.Open(); err != nil {
		h.logger.Error("session recreation failed", "op", op, "error", err)
		h.state.Store(int32(StateTerminated))
	}
	return false
}

// probeLiveness checks that the page still answers a trivial query.
func (h *Handle) probeLiveness() bool {
	page := h.page
	if page == nil {
		return false
	}

	done := make(chan bool, 1)
	go func() {
		els, err := page.Timeout(h.cfg.InterruptGrace).Elements(h.cfg.LivenessSelector)
		done <- err == nil && len(els) > 0
	}()

	select {
	case alive := <-done:
		return alive
	case <-time.After(h.cfg.InterruptGrace + time.Second):
		return false
	}
}
