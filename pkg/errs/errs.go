// Package errs classifies domain errors so the transport layer can map them
// to status codes without knowing every sentinel.
package errs

import (
	"errors"
	"maps"
)

type Kind string

const (
	NotFound          Kind = "not_found"
	Conflict          Kind = "conflict"
	Forbidden         Kind = "forbidden"
	ResourceExhausted Kind = "resource_exhausted"
	InvalidArgument   Kind = "invalid_argument"
	Unauthorized      Kind = "unauthorized"
	RateLimited       Kind = "rate_limited"
	Unavailable       Kind = "unavailable"
	Internal          Kind = "internal"
)

// Error is a classified domain error. Code is stable and machine readable,
// Message is safe to show to end users.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Code
}

// Is matches any *Error carrying the same code, so copies produced by
// WithDetails still satisfy errors.Is against the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of e with extra key/value context attached.
func (e *Error) WithDetails(kv map[string]any) *Error {
	details := make(map[string]any, len(e.Details)+len(kv))
	maps.Copy(details, e.Details)
	maps.Copy(details, kv)
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Details: details}
}

// WithMessage returns a copy of e with a different user-facing message.
func (e *Error) WithMessage(message string) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: message, Details: e.Details}
}

// As extracts the classified error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err, Internal when err is not classified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}

// IsDomain reports whether err carries a classification other than Internal.
func IsDomain(err error) bool {
	e, ok := As(err)
	return ok && e.Kind != Internal
}
