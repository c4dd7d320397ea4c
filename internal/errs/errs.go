// Package errs defines the error taxonomy surfaced at the index's call
// boundary (spec ​§7): one typed kind per failure class, so callers can
// branch on disposition instead of string-matching messages.
package errs

import "fmt"

// Kind is one of the fixed error kinds a caller may observe.
type Kind string

const (
	KindInvalidQuery   Kind = "invalid_query"
	KindInvalidRegex   Kind = "invalid_regex"
	KindInvalidLocator Kind = "invalid_locator"
	KindIndexIO        Kind = "index_io"
	KindWriterPoisoned Kind = "writer_poisoned"
	KindCancelled      Kind = "cancelled"
)

// Error wraps an underlying cause with a typed Kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if as(err, &e) {
		return e.Kind == kind
	}
	return false
}

func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
