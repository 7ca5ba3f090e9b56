package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so the HTTP boundary (and clients) can react
// without parsing message text.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindCapacity
	KindInvalid
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindCapacity:
		return "capacity_exceeded"
	case KindInvalid:
		return "invalid"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error

	// Capacity details, set only for KindCapacity.
	Current int
	Limit   int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes two errors of the same Kind match under errors.Is, so callers can
// compare against the package sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Unauthenticated(message string) *Error { return E(KindUnauthenticated, message) }
func Forbidden(message string) *Error       { return E(KindForbidden, message) }
func NotFound(message string) *Error        { return E(KindNotFound, message) }
func Invalid(message string) *Error         { return E(KindInvalid, message) }
func Conflict(message string) *Error        { return E(KindConflict, message) }

// Capacity reports a membership-limit violation with enough detail for the
// caller to render the current occupancy.
func Capacity(message string, current, limit int) *Error {
	return &Error{Kind: KindCapacity, Message: message, Current: current, Limit: limit}
}

// Unavailable marks a transient store failure that survived local retries.
func Unavailable(message string, err error) *Error {
	return Wrap(KindUnavailable, message, err)
}

func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// KindOf extracts the Kind of err, defaulting to KindInternal for untagged
// errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func HTTPStatusFromError(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindCapacity, KindConflict:
		return http.StatusConflict
	case KindInvalid:
		return http.StatusBadRequest
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Re-exported stdlib helpers so call sites need a single errors import.
var (
	As = errors.As
	Is = errors.Is
)
