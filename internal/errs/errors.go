// Package errs provides the unified error type used across schemadigest.
//
// Drivers, the digest builder and the outer surfaces (CLI, HTTP) all return
// *errs.Error. Callers branch on the kind through the Is* predicates instead
// of importing driver packages:
//
//	b, err := digest.New(ctx, db, digest.WithIncludeTables("users"))
//	if errs.IsInvalidInput(err) {
//	    // bad configuration, not worth retrying
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind is the coarse class of a failure. The HTTP status and the CLI
// exit code are both derived from it.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // table, row or object does not exist
	ErrKindConnectionFailed         // database or object store unreachable
	ErrKindTimeout                  // query ran past its deadline or was cancelled
	ErrKindQueryFailed              // statement or object read rejected by the backend
	ErrKindInvalidInput             // config, flag or table list is wrong
	ErrKindPermissionDenied         // credentials lack the needed grant
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// Error carries a Kind for branching, a Message naming the operation that
// failed, and the underlying Cause when there is one.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // pgx, mysql, sqlite or minio error, if any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap exposes Cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New returns an *Error that has no underlying cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause under kind and prefixes it with msg.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsNotFound is true for unknown tables and missing objects.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout is true when a query or request outlived its context.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed is true when the database or object store could not
// be reached.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed is true when the backend rejected a statement or read.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput is true for configuration and argument mistakes. Retrying
// them will not help.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied is true when the credentials were refused.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// KindOf returns the Kind of the outermost *Error in err's chain, or
// ErrKindUnknown when there is none.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
