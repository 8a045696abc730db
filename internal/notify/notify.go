// Package notify delivers run lifecycle events to an external sink.
// Delivery is best-effort: a failed notification is logged and never
// fails the run.
package notify

import (
	"context"

	"github.com/kmacleod/hoopsweep/internal/types"
)

// Severity grades an event for the sink's presentation.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one notification payload.
type Event struct {
	Severity Severity
	Title    string
	Message  string
	Summary  *types.RunSummary
}

// Sink delivers events somewhere a human will see them.
type Sink interface {
	Notify(ctx context.Context, event Event) error
}

// NopSink discards every event. Used when no webhook is configured.
type NopSink struct{}

func (NopSink) Notify(context.Context, Event) error { return nil }
