package session

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/kmacleod/hoopsweep/internal/types"
)

// isStallPattern reports whether an error from a remote operation looks
// like a hung or broken transport rather than a page-level failure.
// Only these errors drive the recovery state machine; everything else
// (missing elements, bad markup) is returned to the caller untouched.
func isStallPattern(err error) bool {
	if err == nil {
		return false
	}

	var stall *types.StallError
	if errors.As(err, &stall) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection reset",
		"connection refused",
		"broken pipe",
		"websocket",
		"cdp connection",
		"context deadline exceeded",
		"target closed",
		"session closed",
		"browser has disconnected",
		"unexpected eof",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
