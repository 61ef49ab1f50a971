package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeAuth           ErrorType = "auth"
	ErrorTypeParsing        ErrorType = "parsing"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeServerError    ErrorType = "server_error"
	ErrorTypeInvalidContent ErrorType = "invalid_content"
	ErrorTypeResolution     ErrorType = "resolution"
	ErrorTypeConfiguration  ErrorType = "configuration"
	ErrorTypeUnknown        ErrorType = "unknown"
)

// Error represents a typed harvesting error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error with no cause
func New(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error around a cause
func Wrap(t ErrorType, err error, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Err: err}
}

// Network reports a failed GET, connect or timeout.
func Network(err error, format string, args ...interface{}) *Error {
	return Wrap(ErrorTypeNetwork, err, format, args...)
}

// InvalidContent reports a non-image response, an undecodable body, a
// disallowed format or degenerate dimensions.
func InvalidContent(format string, args ...interface{}) *Error {
	return New(ErrorTypeInvalidContent, format, args...)
}

// Resolution reports a species name that could not be resolved.
func Resolution(name string) *Error {
	return New(ErrorTypeResolution, "species not found for %q", name)
}

// Configuration reports an invalid runtime configuration.
func Configuration(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfiguration, format, args...)
}

// TypeOf returns the ErrorType carried anywhere in err's chain
func TypeOf(err error) ErrorType {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err carries the given type
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeParsing,
		ErrorTypeInvalidContent, ErrorTypeResolution, ErrorTypeConfiguration:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
