package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags an Error with its place in the taxonomy.
type Kind string

const (
	// KindAuth covers invalid credentials, failed refreshes and repeated
	// authorization rejection.
	KindAuth Kind = "AUTH"
	// KindNetwork covers connection failures, timeouts and TLS failures.
	KindNetwork Kind = "NET"
	// KindAPI is a failure reported by the remote API. Never retried.
	KindAPI Kind = "API"
	// KindValidation is malformed local input, detected before any request.
	KindValidation Kind = "ARG"
	// KindExhausted is an idempotent call that ran out of attempts.
	KindExhausted Kind = "RETRY"
	// KindCanceled is a call aborted by its caller.
	KindCanceled Kind = "CANCEL"
)

// String returns a human-readable label for the kind.
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "authentication failed"
	case KindNetwork:
		return "network error"
	case KindAPI:
		return "api error"
	case KindValidation:
		return "invalid input"
	case KindExhausted:
		return "retries exhausted"
	case KindCanceled:
		return "canceled"
	default:
		return "error"
	}
}

// Error is the structured error returned by the core. It carries enough
// context (operation, target, HTTP status, remote code, attempt count) for
// the CLI boundary to render a useful message and pick an exit code.
type Error struct {
	Kind     Kind
	Op       string // e.g. "agent.restart"
	Target   string // agent ID, request path, ...
	Status   int    // HTTP status, 0 if none
	Code     int    // remote error code, 0 if none
	Message  string
	Attempts int
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.Target != "" {
			b.WriteString(" ")
			b.WriteString(e.Target)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())

	switch {
	case e.Status != 0 && e.Code != 0:
		fmt.Fprintf(&b, " (status %d, code %d)", e.Status, e.Code)
	case e.Status != 0:
		fmt.Fprintf(&b, " (status %d)", e.Status)
	case e.Code != 0:
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}
	if e.Kind == KindExhausted && e.Attempts > 0 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind. A target with a
// non-zero Status or Code must match those too, so sentinels like
// ErrNotFound can be more specific than their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Status != 0 && t.Status != e.Status {
		return false
	}
	if t.Code != 0 && t.Code != e.Code {
		return false
	}
	return true
}

// NewError creates an Error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithOp returns a copy of the error annotated with the operation and target.
// Fields already set are kept.
func (e *Error) WithOp(op, target string) *Error {
	c := *e
	if c.Op == "" {
		c.Op = op
	}
	if c.Target == "" {
		c.Target = target
	}
	return &c
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.Cause = cause
	return &c
}

// WithMessage returns a copy of the error with a different message.
func (e *Error) WithMessage(message string) *Error {
	c := *e
	c.Message = message
	return &c
}

// Sentinels for errors.Is. They only carry a kind (and status where noted).
var (
	ErrAuth       = &Error{Kind: KindAuth}
	ErrNetwork    = &Error{Kind: KindNetwork}
	ErrAPI        = &Error{Kind: KindAPI}
	ErrValidation = &Error{Kind: KindValidation}
	ErrExhausted  = &Error{Kind: KindExhausted}
	ErrCanceled   = &Error{Kind: KindCanceled}

	// ErrNotFound matches API errors for missing resources.
	ErrNotFound = &Error{Kind: KindAPI, Status: 404}
	// ErrConflict matches API errors for duplicate resources.
	ErrConflict = &Error{Kind: KindAPI, Status: 409}
)

// Validationf builds a KindValidation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts the *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns the kind of the outermost *Error in the chain, or "" if
// there is none.
func KindOf(err error) Kind {
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	return ""
}
