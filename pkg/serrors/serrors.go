// Package serrors defines the semantic error taxonomy of the scanning
// pipeline. Errors carry a kind sentinel so callers can branch on the
// category (source timed out, token invalid, ...) with errors.Is without
// caring about the concrete cause.
package serrors

import (
	"errors"
	"fmt"
)

// Kind is a marker interface implemented by all semantic error kinds created
// with NewKind. It distinguishes semantic kinds from ordinary errors.
type Kind interface {
	error
	isKind()
}

type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

// NewKind creates a new semantic error kind (a sentinel) with the provided
// name. Kinds are comparable and work with errors.Is/As through the Error
// wrapper.
func NewKind(name string) Kind { return kind{s: name} }

// Kinds used across the pipeline. The first three are recovered locally
// during discovery and recorded as source failures; the scan proceeds with
// partial data. Invalid-token and empty-adapter-set are fatal before any
// work begins.
var (
	// ErrSourceUnavailable indicates a source could not be reached or
	// answered with a server-side error.
	ErrSourceUnavailable = NewKind("SOURCE_UNAVAILABLE")
	// ErrSourceTimeout indicates a source did not answer within the
	// per-source timeout.
	ErrSourceTimeout = NewKind("SOURCE_TIMEOUT")
	// ErrSourceRateLimited indicates the source refused the probe due to
	// rate limiting.
	ErrSourceRateLimited = NewKind("SOURCE_RATE_LIMITED")
	// ErrInvalidToken indicates the identity token failed format validation.
	ErrInvalidToken = NewKind("INVALID_IDENTITY_TOKEN")
	// ErrEmptyAdapterSet indicates a discovery was requested with no
	// adapters configured.
	ErrEmptyAdapterSet = NewKind("EMPTY_ADAPTER_SET")
	// ErrRecipientResolution indicates no takedown recipient is known for a
	// source; the affected notice is skipped, others proceed.
	ErrRecipientResolution = NewKind("RECIPIENT_RESOLUTION_FAILURE")
	// ErrRequiredCategoriesUnmet indicates discovery produced no candidates
	// while the audit policy requires coverage of at least one category.
	ErrRequiredCategoriesUnmet = NewKind("REQUIRED_CATEGORIES_UNMET")
	// ErrCancelled indicates the scan was cancelled externally. It is
	// surfaced as a cancelled result, not treated as a failure.
	ErrCancelled = NewKind("CANCELLATION_REQUESTED")
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = NewKind("NOT_FOUND")
	// ErrBadRequest indicates the caller sent invalid data.
	ErrBadRequest = NewKind("BAD_REQUEST")
	// ErrConflict indicates a state conflict, e.g. an illegal status
	// transition.
	ErrConflict = NewKind("CONFLICT")
	// ErrInternal indicates an internal invariant violation.
	ErrInternal = NewKind("INTERNAL")
)

// Error is a semantic error carrying a kind sentinel, an optional wrapped
// cause and an optional message. errors.Is/As match against both the kind
// and the wrapped error.
//
// Error string formatting:
//   - both msg and cause set: "<msg>: <cause>"
//   - only msg: "<msg>"
//   - only cause: "<cause>"
//   - neither: the kind's name.
type Error struct {
	kind Kind
	err  error
	msg  string
}

// With constructs a semantic error with the given kind and message. Use
// Wrap to also attach a concrete cause.
func With(k Kind, msgFmt string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(msgFmt, args...)}
}

// Wrap constructs a semantic error with the given kind, wrapping cause.
func Wrap(k Kind, err error, msgFmt string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(msgFmt, args...)}
}

// KindOnly creates a semantic error carrying only the kind.
func KindOnly(k Kind) *Error { return &Error{kind: k} }

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	default:
		if e.kind != nil {
			return e.kind.Error()
		}

		return "unknown error"
	}
}

// Unwrap returns the wrapped cause, enabling errors.Unwrap/Is/As traversal.
func (e *Error) Unwrap() error { return e.err }

// Is matches target against either the kind sentinel or the wrapped cause.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}
	if e.kind != nil && errors.Is(e.kind, target) {
		return true
	}
	if e.err != nil && errors.Is(e.err, target) {
		return true
	}

	return false
}

// As matches target against either the kind sentinel or the wrapped cause.
func (e *Error) As(target any) bool {
	if e == nil || target == nil {
		return false
	}
	if e.kind != nil && errors.As(e.kind, target) {
		return true
	}
	if e.err != nil && errors.As(e.err, target) {
		return true
	}

	return false
}

// Kind returns the semantic kind sentinel, or nil.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the message attached to this error.
func (e *Error) Message() string { return e.msg }
