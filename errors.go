package surveilans

import (
	"errors"
	"fmt"
)

var (
	errInvalidTimeout  = errors.New("invalid timeout")
	errInvalidDelay    = errors.New("invalid delay")
	errInvalidAttempts = errors.New("invalid max attempts")
	errInvalidBaseURL  = errors.New("invalid base url")
	errMissingPortal   = errors.New("portal is required")
	errMissingStore    = errors.New("extract store is required")
	errInvalidRange    = errors.New("invalid month range")
)

// ErrNoResponse is returned by a query once every retry attempt has failed
// with a transient network error.
var ErrNoResponse = errors.New("no response after retries")

// ErrNoSubregions is returned when the district list response carries no
// option entries at all, which is different from a list holding only the
// placeholder entry.
var ErrNoSubregions = errors.New("district list response has no options")

// NetworkError is a transport failure: dial errors, timeouts, dropped
// connections. It is the only error class the retry policy retries.
type NetworkError struct {
	Method  string
	URL     string
	timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.timeout {
		return fmt.Sprintf("%s %s: timeout: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Timeout() bool { return e.timeout }

// HTTPStatusError means the portal answered with a non-2xx status. The query
// is considered rejected and is not retried.
type HTTPStatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// ParseError describes a single cell that could not be turned into a tidy
// record field. It never leaves the tidy transform.
type ParseError struct {
	Column string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("column %q value %q: %s", e.Column, e.Value, e.Reason)
}

// SessionError wraps failures of the handshake or of priming a regency.
type SessionError struct {
	Stage string
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %v", e.Stage, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

func isRetryable(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
