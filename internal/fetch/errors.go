// Package fetch retrieves rendered page HTML, escalating from plain HTTP to
// headless-browser rendering when a page looks JS-gated.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Cause classifies why a fetch failed.
type Cause string

// Failure causes carried by Error.
const (
	CauseTimeout           Cause = "timeout"
	CauseConnection        Cause = "connection"
	CauseStatus            Cause = "status"
	CauseRobots            Cause = "robots_disallowed"
	CauseRenderUnavailable Cause = "render_unavailable"
	CauseCanceled          Cause = "canceled"
)

// Error is the typed failure returned on fetch exhaustion. Callers decide
// whether it makes the page found=false.
type Error struct {
	URL        string
	Cause      Cause
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Cause == CauseStatus:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Cause, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Cause)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether retrying could plausibly succeed. Timeouts,
// connection failures, 5xx and 429 are transient; other statuses, robots
// denials, missing renderers and cancellations are not.
func (e *Error) Transient() bool {
	switch e.Cause {
	case CauseTimeout, CauseConnection:
		return true
	case CauseStatus:
		return e.StatusCode >= 500 || e.StatusCode == 429
	default:
		return false
	}
}

// classify wraps a transport-level error into an Error with its cause.
func classify(rawURL string, err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	cause := CauseConnection
	switch {
	case errors.Is(err, context.Canceled):
		cause = CauseCanceled
	case errors.Is(err, context.DeadlineExceeded):
		cause = CauseTimeout
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			cause = CauseTimeout
		}
	}
	return &Error{URL: rawURL, Cause: cause, Err: err}
}

func statusError(rawURL string, code int) *Error {
	return &Error{URL: rawURL, Cause: CauseStatus, StatusCode: code}
}
