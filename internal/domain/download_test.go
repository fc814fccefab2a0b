package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDownload(t *testing.T) {
	d := NewDownload("https://mega.nz/file/abc#key", VariantMega)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "https://mega.nz/file/abc#key", d.URL)
	assert.Equal(t, VariantMega, d.Variant)
	assert.Equal(t, StatusProcessing, d.Status)
	assert.False(t, d.IsTerminal())
}

func TestDownload_MarkCompleted(t *testing.T) {
	d := NewDownload("https://example.com/f.bin", VariantUnknown)

	d.MarkCompleted("/downloads/f.bin", 1024)

	assert.Equal(t, StatusCompleted, d.Status)
	assert.Equal(t, "/downloads/f.bin", d.FilePath)
	assert.Equal(t, int64(1024), d.BytesTransferred)
	assert.NotNil(t, d.CompletedAt)
	assert.True(t, d.IsTerminal())
}

func TestDownload_MarkFailed(t *testing.T) {
	d := NewDownload("https://example.com/f.bin", VariantUnknown)

	d.MarkFailed(errors.New("boom"))

	assert.Equal(t, StatusFailed, d.Status)
	assert.Equal(t, "boom", d.ErrorMessage)
	assert.True(t, d.IsTerminal())
}

func TestDownload_MarkCancelled(t *testing.T) {
	d := NewDownload("https://example.com/f.bin", VariantUnknown)

	d.MarkCancelled()

	assert.Equal(t, StatusCancelled, d.Status)
	assert.True(t, d.IsTerminal())
}

func TestFailAttempt_OutcomeFollowsErrorKind(t *testing.T) {
	start := time.Now()

	a := FailAttempt(KindProtocolClient, start, NewError(ErrorRetryable, "timeout"))
	assert.Equal(t, OutcomeRetryable, a.Outcome)
	assert.Equal(t, KindProtocolClient, a.Strategy)
	assert.NotEmpty(t, a.ErrorDetail)

	a = FailAttempt(KindExternalTool, start, NewError(ErrorFatal, "gone"))
	assert.Equal(t, OutcomeFatal, a.Outcome)

	// uncategorized errors are fatal for the strategy
	a = FailAttempt(KindExternalTool, start, errors.New("plain"))
	assert.Equal(t, OutcomeFatal, a.Outcome)
}

func TestSucceedAttempt(t *testing.T) {
	a := SucceedAttempt(KindPageScrape, time.Now(), "/tmp/f.bin", 2048)

	assert.True(t, a.Succeeded())
	assert.Equal(t, OutcomeSuccess, a.Outcome)
	assert.Equal(t, "/tmp/f.bin", a.LocalPath)
	assert.Equal(t, int64(2048), a.BytesTransferred)
	assert.Nil(t, a.Err)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "retryable_failure", OutcomeRetryable.String())
	assert.Equal(t, "fatal_failure", OutcomeFatal.String())
}
