package connector

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotAvailable is returned when an operation needs a connector that is
// not part of the session.
var ErrNotAvailable = errors.New("connector not configured")

// Kind classifies connector failures by how callers must react to them.
type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindRateLimited  Kind = "rate_limited"
	KindTransient    Kind = "transient"
)

// Error is the typed error every connector returns.
type Error struct {
	Kind Kind
	// Op names the connector operation, e.g. "storage.GetPermissions".
	Op  string
	Err error
	// RetryAfter is a server-provided delay hint for rate-limited calls.
	RetryAfter time.Duration
}

// NewError wraps err as a connector error of the given kind.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a connector error with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsForbidden(err error) bool    { return KindOf(err) == KindForbidden }
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// IsRetryable reports whether err may succeed when the call is repeated.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTransient:
		return true
	}
	return false
}

// retryAfter returns the RetryAfter hint carried by err, if any.
func retryAfter(err error) time.Duration {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.RetryAfter
	}
	return 0
}
