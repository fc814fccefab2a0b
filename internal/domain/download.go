package domain

import (
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the current status of a download
type DownloadStatus string

const (
	StatusProcessing DownloadStatus = "processing"
	StatusCompleted  DownloadStatus = "completed"
	StatusFailed     DownloadStatus = "failed"
	StatusCancelled  DownloadStatus = "cancelled"
)

// StrategyKind identifies one retrieval method
type StrategyKind string

const (
	KindExternalTool   StrategyKind = "external_tool"
	KindProtocolClient StrategyKind = "protocol_client"
	KindPageScrape     StrategyKind = "page_scrape"
)

// Outcome classifies a single strategy attempt
type Outcome int

const (
	// OutcomeSuccess: the file is fully transferred at the destination
	OutcomeSuccess Outcome = iota
	// OutcomeRetryable: transient failure, the same strategy may succeed
	// if tried again
	OutcomeRetryable
	// OutcomeFatal: this strategy cannot recover; the policy moves on
	OutcomeFatal
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable_failure"
	case OutcomeFatal:
		return "fatal_failure"
	default:
		return "unknown"
	}
}

// StrategyAttempt records one try of one strategy. Attempts accumulate in
// the orchestrator's log for the lifetime of a single download call.
type StrategyAttempt struct {
	Strategy  StrategyKind  `json:"strategy"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Outcome   Outcome       `json:"outcome"`
	// Err is nil on success. For retryable failures its RetryAfter hint,
	// if any, steers the backoff delay.
	Err error `json:"-"`
	// ErrorDetail is the printable form of Err, kept separately so the
	// attempt log survives JSON serialization into history.
	ErrorDetail string `json:"error_detail,omitempty"`
	// LocalPath is set on success: where the bytes landed
	LocalPath string `json:"local_path,omitempty"`
	// BytesTransferred counts payload bytes moved during this attempt
	BytesTransferred int64 `json:"bytes_transferred"`
	// PartialKept reports that a resumable partial file was left behind;
	// ResumeOffset is its size. The next attempt uses this to resume
	// instead of restarting.
	PartialKept  bool  `json:"partial_kept,omitempty"`
	ResumeOffset int64 `json:"resume_offset,omitempty"`
}

// Succeeded reports whether the attempt completed the transfer
func (a StrategyAttempt) Succeeded() bool {
	return a.Outcome == OutcomeSuccess
}

// FailAttempt builds a failed attempt for the given strategy kind.
// The outcome follows the error kind: retryable errors stay retryable,
// everything else is fatal for this strategy.
func FailAttempt(kind StrategyKind, startedAt time.Time, err error) StrategyAttempt {
	outcome := OutcomeFatal
	if IsKind(err, ErrorRetryable) {
		outcome = OutcomeRetryable
	}
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return StrategyAttempt{
		Strategy:    kind,
		StartedAt:   startedAt,
		Duration:    time.Since(startedAt),
		Outcome:     outcome,
		Err:         err,
		ErrorDetail: detail,
	}
}

// SucceedAttempt builds a successful attempt
func SucceedAttempt(kind StrategyKind, startedAt time.Time, localPath string, bytes int64) StrategyAttempt {
	return StrategyAttempt{
		Strategy:         kind,
		StartedAt:        startedAt,
		Duration:         time.Since(startedAt),
		Outcome:          OutcomeSuccess,
		LocalPath:        localPath,
		BytesTransferred: bytes,
	}
}

// DownloadResult is the terminal value of one download call. The caller
// owns it after return.
type DownloadResult struct {
	Success          bool
	LocalPath        string
	BytesTransferred int64
	Attempts         []StrategyAttempt
	// FinalError categorizes the failure when Success is false
	FinalError error
}

// FinalErrorKind returns the kind of the terminal error
func (r *DownloadResult) FinalErrorKind() ErrorKind {
	return KindOf(r.FinalError)
}

// Download is the persisted history record of one download call
type Download struct {
	ID               string         `json:"id" gorm:"primaryKey"`
	URL              string         `json:"url" gorm:"not null"`
	Variant          ServiceVariant `json:"variant" gorm:"not null;index"`
	Status           DownloadStatus `json:"status" gorm:"not null;index"`
	FilePath         string         `json:"file_path,omitempty"`
	BytesTransferred int64          `json:"bytes_transferred"`
	AttemptCount     int            `json:"attempt_count"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	AttemptLog       string         `json:"attempt_log,omitempty" gorm:"type:text"` // JSON attempt log
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

// NewDownload creates a new download history record
func NewDownload(url string, variant ServiceVariant) *Download {
	return &Download{
		ID:        uuid.New().String(),
		URL:       url,
		Variant:   variant,
		Status:    StatusProcessing,
		CreatedAt: time.Now(),
	}
}

// MarkCompleted marks the download as completed
func (d *Download) MarkCompleted(filePath string, bytes int64) {
	d.Status = StatusCompleted
	d.FilePath = filePath
	d.BytesTransferred = bytes
	now := time.Now()
	d.CompletedAt = &now
}

// MarkFailed marks the download as failed
func (d *Download) MarkFailed(err error) {
	d.Status = StatusFailed
	if err != nil {
		d.ErrorMessage = err.Error()
	}
	now := time.Now()
	d.CompletedAt = &now
}

// MarkCancelled marks the download as cancelled
func (d *Download) MarkCancelled() {
	d.Status = StatusCancelled
	now := time.Now()
	d.CompletedAt = &now
}

// IsTerminal checks if the download reached a terminal state
func (d *Download) IsTerminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusFailed || d.Status == StatusCancelled
}
