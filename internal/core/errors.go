package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions at the boundary.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // malformed host payload, bad config
	ErrCatExecution  ErrorCategory = "execution"  // host request or subprocess failed
	ErrCatTimeout    ErrorCategory = "timeout"
	ErrCatNotFound   ErrorCategory = "not_found"
	ErrCatInternal   ErrorCategory = "internal"
)

// Error codes carried by DomainError.
const (
	CodeInvalidJSON   = "INVALID_JSON"
	CodeInvalidEvent  = "INVALID_EVENT"
	CodeInvalidConfig = "INVALID_CONFIG"
	CodeHostRequest   = "HOST_REQUEST_FAILED"
	CodeTimeout       = "TIMEOUT"
	CodeNotFound      = "NOT_FOUND"
)

// DomainError is an error with a category and a stable code.
type DomainError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Cause    error
	Details  map[string]any
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches another DomainError with the same category and code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Category == t.Category && e.Code == t.Code
}

// WithCause sets the wrapped error and returns e.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail attaches a key/value for logs and HTTP error bodies.
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newError(cat ErrorCategory, code, message string) *DomainError {
	return &DomainError{Category: cat, Code: code, Message: message}
}

// ErrValidation reports input that could not be accepted.
func ErrValidation(code, message string) *DomainError {
	return newError(ErrCatValidation, code, message)
}

// ErrExecution reports a failed call to the host or a subprocess.
func ErrExecution(code, message string) *DomainError {
	return newError(ErrCatExecution, code, message)
}

// ErrTimeout reports an operation that ran past its deadline.
func ErrTimeout(message string) *DomainError {
	return newError(ErrCatTimeout, CodeTimeout, message)
}

// ErrNotFound reports a missing resource.
func ErrNotFound(resource, id string) *DomainError {
	return newError(ErrCatNotFound, CodeNotFound, fmt.Sprintf("%s not found: %s", resource, id))
}

// CategoryOf returns the category of the first DomainError in err's chain,
// or ErrCatInternal.
func CategoryOf(err error) ErrorCategory {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Category
	}
	return ErrCatInternal
}

// IsCategory reports whether err carries a DomainError of category cat.
func IsCategory(err error, cat ErrorCategory) bool {
	return err != nil && CategoryOf(err) == cat
}
