package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind categorizes download failures
type ErrorKind int

const (
	ErrorUnrecognizedUrl ErrorKind = iota
	ErrorMalformedLink
	ErrorInvalidKeyEncoding
	ErrorNoStrategyAvailable
	ErrorRetryable
	ErrorFatal
	ErrorResourceMismatch
	ErrorCancelled
)

// String returns the string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case ErrorUnrecognizedUrl:
		return "unrecognized_url"
	case ErrorMalformedLink:
		return "malformed_link"
	case ErrorInvalidKeyEncoding:
		return "invalid_key_encoding"
	case ErrorNoStrategyAvailable:
		return "no_strategy_available"
	case ErrorRetryable:
		return "retryable"
	case ErrorFatal:
		return "fatal"
	case ErrorResourceMismatch:
		return "resource_mismatch"
	case ErrorCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// DownloadError is a categorized error produced anywhere in the engine.
// RetryAfter carries a service-declared wait hint (e.g. from an HTTP 429
// Retry-After header); the retry controller honors it when present.
type DownloadError struct {
	Kind       ErrorKind
	Message    string
	Cause      error
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *DownloadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause
func (e *DownloadError) Unwrap() error {
	return e.Cause
}

// NewError creates a DownloadError with the given kind and message
func NewError(kind ErrorKind, message string) *DownloadError {
	return &DownloadError{Kind: kind, Message: message}
}

// WrapError creates a DownloadError wrapping a cause
func WrapError(kind ErrorKind, message string, cause error) *DownloadError {
	return &DownloadError{Kind: kind, Message: message, Cause: cause}
}

// WithRetryAfter attaches a service-declared wait hint
func (e *DownloadError) WithRetryAfter(d time.Duration) *DownloadError {
	e.RetryAfter = d
	return e
}

// KindOf extracts the ErrorKind from an error chain. Errors that are not
// DownloadErrors count as fatal.
func KindOf(err error) ErrorKind {
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrorFatal
}

// IsKind reports whether err carries the given kind anywhere in its chain
func IsKind(err error, kind ErrorKind) bool {
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
