package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrSessionClosed          = errors.New("session is closed")
	ErrMaxRetries             = errors.New("max retries exceeded")
	ErrDuplicateSourceMissing = errors.New("cross-division duplicate source record not found")
	ErrNoGamesPublished       = errors.New("no games published for this scoreboard")
)

// StallError marks a transient timeout or connection hiccup on a remote
// browser operation. Retried in place by the retry policy.
type StallError struct {
	Op  string
	Err error
}

func (e *StallError) Error() string {
	return fmt.Sprintf("remote operation %q stalled: %v", e.Op, e.Err)
}

func (e *StallError) Unwrap() error { return e.Err }

// UnresponsiveError marks a session-level hang: the soft-interrupt and
// liveness probe both failed, or the op failed again after recreation.
type UnresponsiveError struct {
	Op  string
	Err error
}

func (e *UnresponsiveError) Error() string {
	return fmt.Sprintf("session unresponsive during %q: %v", e.Op, e.Err)
}

func (e *UnresponsiveError) Unwrap() error { return e.Err }

// CreationError marks failure to create a browser session after the
// bounded retry count. Fatal for the run only at run start; mid-run it
// abandons the current work item.
type CreationError struct {
	Attempts int
	Err      error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("session creation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// StructuralError marks a page that loaded but is missing the expected
// markers. Distinct from a transport failure and from an explicit
// "no games published" page.
type StructuralError struct {
	URL    string
	Marker string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("expected marker %q absent on %s", e.Marker, e.URL)
}

// PartialExtractionError marks a game where one team's table could not
// be recovered. The whole record is dropped, never persisted half-populated.
type PartialExtractionError struct {
	Link GameLink
	Team string
	Err  error
}

func (e *PartialExtractionError) Error() string {
	return fmt.Sprintf("incomplete extraction for %s (team %q): %v", e.Link, e.Team, e.Err)
}

func (e *PartialExtractionError) Unwrap() error { return e.Err }

// StorageError wraps errors from an output store backend.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
