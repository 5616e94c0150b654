package common

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure the way callers branch on it.
type ErrorKind string

const (
	// KindValidation covers empty inputs and unknown provider names. Detected before any I/O.
	KindValidation ErrorKind = "validation"
	// KindTransport means no HTTP response was obtained at all.
	KindTransport ErrorKind = "transport"
	// KindAPI means a response arrived but its status or payload signals failure.
	KindAPI ErrorKind = "api"
	// KindParse means a response arrived but could not be understood.
	KindParse ErrorKind = "parse"
	// KindUnsupported means the provider does not implement the requested operation.
	KindUnsupported ErrorKind = "unsupported"
)

var (
	// ErrUnknownProvider is the cause of errors for names missing from the registry.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnsupportedOperation is the cause of errors for operations a provider lacks.
	ErrUnsupportedOperation = errors.New("operation not supported")

	// ErrEmptyField is the cause of validation errors for empty required inputs.
	ErrEmptyField = errors.New("required field is empty")
)

// Error is the single error type that reaches the function boundary.
// Message is shown to end users verbatim, so Error returns it unchanged.
type Error struct {
	Kind       ErrorKind
	Message    string
	Provider   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// WithProvider records which provider produced the error.
func (e *Error) WithProvider(name string) *Error {
	e.Provider = name
	return e
}

// WithStatus records the HTTP status of the response that carried the error.
func (e *Error) WithStatus(code int) *Error {
	e.StatusCode = code
	return e
}

// UnknownProviderError reports a name that is not in the registry.
func UnknownProviderError(name string) *Error {
	return NewError(KindValidation, "unknown provider: "+name, ErrUnknownProvider)
}

// UnsupportedError reports an operation the named provider does not implement.
func UnsupportedError(provider, message string) *Error {
	return NewError(KindUnsupported, message, ErrUnsupportedOperation).WithProvider(provider)
}

// EmptyFieldError reports an empty required input by its user-facing label.
func EmptyFieldError(label string) *Error {
	return NewError(KindValidation, fmt.Sprintf("%s cannot be empty", label), ErrEmptyField)
}

// KindOf returns the ErrorKind carried by err, or "" if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
