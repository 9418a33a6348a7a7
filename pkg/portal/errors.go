// Package portal provides the configuration surface, error taxonomy,
// logging setup, and browser-driver abstraction shared by every
// verification component.
package portal

import (
	"errors"
	"fmt"
)

// Error taxonomy for the whole tool.
//
// Components classify failures into four propagated kinds plus one that
// never propagates as an error:
//
//   - ErrStale: data older than the request that should supersede it
//     (a one-time code delivered before it was requested). Rejected and
//     retried by the owner of the retry budget.
//   - ErrNotFound: an expected element or message did not appear within
//     its timeout. The direct caller owns the retry policy.
//   - ErrTerminal: an explicit rejection from the portal (bad
//     credentials). Never retried.
//   - FatalError: missing required configuration or an unavailable
//     browser session. Aborts the run immediately.
//
// Soft mismatches (sequence order differs, drift observed, historical
// record absent) are structured result values, not errors.
var (
	// ErrStale marks a code or record that predates the request it
	// would answer.
	ErrStale = errors.New("stale")

	// ErrNotFound marks an expected element or message that did not
	// appear within its timeout budget.
	ErrNotFound = errors.New("not found within timeout")

	// ErrTerminal marks an explicit portal rejection that must not be
	// retried.
	ErrTerminal = errors.New("terminal rejection")
)

// FatalError aborts the run: a precondition is unmet and no amount of
// retrying inside the run can recover it.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fatal: %s: %v", e.Reason, e.Err)
	}
	return "fatal: " + e.Reason
}

func (e *FatalError) Unwrap() error { return e.Err }

// Fatalf constructs a FatalError with a formatted reason.
func Fatalf(format string, args ...any) *FatalError {
	return &FatalError{Reason: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err is, or wraps, a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
