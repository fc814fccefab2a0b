package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorRetryable, KindOf(NewError(ErrorRetryable, "server hiccup")))
	assert.Equal(t, ErrorMalformedLink, KindOf(WrapError(ErrorMalformedLink, "bad url", errors.New("cause"))))

	// the kind survives wrapping with %w
	wrapped := fmt.Errorf("outer: %w", NewError(ErrorResourceMismatch, "mac check failed"))
	assert.Equal(t, ErrorResourceMismatch, KindOf(wrapped))

	// non-categorized errors count as fatal
	assert.Equal(t, ErrorFatal, KindOf(errors.New("plain")))
}

func TestIsKind(t *testing.T) {
	err := NewError(ErrorRetryable, "again")
	assert.True(t, IsKind(err, ErrorRetryable))
	assert.False(t, IsKind(err, ErrorFatal))
	assert.False(t, IsKind(errors.New("plain"), ErrorRetryable))
	assert.False(t, IsKind(nil, ErrorRetryable))
}

func TestDownloadError_WithRetryAfter(t *testing.T) {
	err := NewError(ErrorRetryable, "rate limited").WithRetryAfter(30 * time.Second)
	assert.Equal(t, 30*time.Second, err.RetryAfter)

	var de *DownloadError
	assert.True(t, errors.As(error(err), &de))
	assert.Equal(t, 30*time.Second, de.RetryAfter)
}

func TestDownloadError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapError(ErrorRetryable, "network error", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "retryable")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "unrecognized_url", ErrorUnrecognizedUrl.String())
	assert.Equal(t, "no_strategy_available", ErrorNoStrategyAvailable.String())
	assert.Equal(t, "cancelled", ErrorCancelled.String())
	assert.Equal(t, "unknown", ErrorKind(99).String())
}
