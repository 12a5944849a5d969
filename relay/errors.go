package relay

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota
	ErrorInvalidConfig
	ErrorConnection
	ErrorHandshake
	ErrorDecode
	ErrorNotConnected
	ErrorRetriesExhausted
	ErrorClosed
	ErrorSerialization
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorConnection:
		return "connection_error"
	case ErrorHandshake:
		return "handshake_error"
	case ErrorDecode:
		return "decode_error"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorRetriesExhausted:
		return "retries_exhausted"
	case ErrorClosed:
		return "closed"
	case ErrorSerialization:
		return "serialization_error"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// RelayError is a structured error with code and context.
type RelayError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *RelayError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *RelayError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is comparison on codes.
func (e *RelayError) Is(target error) bool {
	t, ok := target.(*RelayError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new RelayError with the given code and message.
func NewError(code ErrorCode, message string) *RelayError {
	return &RelayError{Code: code, Message: message}
}

// WrapError wraps an existing error with a RelayError.
func WrapError(code ErrorCode, message string, err error) *RelayError {
	return &RelayError{Code: code, Message: message, Wrapped: err}
}

// IsConnectionError reports whether err is a connection-related failure.
func IsConnectionError(err error) bool {
	var re *RelayError
	if !errors.As(err, &re) {
		return false
	}
	return re.Code == ErrorConnection || re.Code == ErrorHandshake || re.Code == ErrorRetriesExhausted
}

// IsRetriesExhausted reports whether err is the terminal give-up error after
// the automatic reconnect ceiling was hit.
func IsRetriesExhausted(err error) bool {
	var re *RelayError
	if !errors.As(err, &re) {
		return false
	}
	return re.Code == ErrorRetriesExhausted
}
