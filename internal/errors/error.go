package errors

import "fmt"

// Category is the failure domain of an error.
type Category string

const (
	CategoryTransport Category = "transport"
	CategoryProtocol  Category = "protocol"
	CategoryCommand   Category = "command"
	CategorySession   Category = "session"
)

// Error is a structured client error with a stable code.
type Error struct {
	// Code is a unique error identifier (e.g., "E201").
	Code string

	// Category is the failure domain.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation, when the registry carries one.
	Detail string

	// Classification refines command failures.
	Classification Classification

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Wrap attaches an underlying error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// WithDetail replaces the detail text.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// New creates an Error from a registered code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{Code: code, Message: "unknown error"}
	}
	return &Error{
		Code:           code,
		Category:       template.Category,
		Message:        template.Message,
		Detail:         template.Detail,
		Classification: template.Classification,
	}
}

// Newf creates an uncoded Error with a formatted message.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a plain error under a registered code. A nil error
// yields nil; an *Error passes through unchanged.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if le, ok := err.(*Error); ok {
		return le
	}
	return New(code).Wrap(err)
}
