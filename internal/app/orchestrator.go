package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/internal/domain"
	"github.com/yourusername/obidl-go/pkg/logger"
	"github.com/yourusername/obidl-go/pkg/progress"
)

// Orchestrator is the caller-facing entry point of the engine: it
// classifies the URL, parses the link, drives the fallback policy and
// records the terminal result. All configuration (tool paths, retry
// budget, strategy order) is bound at construction so concurrent
// orchestrators with different settings stay isolated.
type Orchestrator struct {
	policy           *FallbackPolicy
	repo             domain.DownloadRepository // nil disables history
	progressInterval time.Duration
	logger           *zap.Logger
	events           *logger.EventLogger

	mu        sync.Mutex
	destLocks map[string]*sync.Mutex
}

// NewOrchestrator creates an orchestrator. repo may be nil when history is
// disabled.
func NewOrchestrator(policy *FallbackPolicy, repo domain.DownloadRepository, progressInterval time.Duration, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		policy:           policy,
		repo:             repo,
		progressInterval: progressInterval,
		logger:           log,
		events:           logger.NewEventLogger(log),
		destLocks:        make(map[string]*sync.Mutex),
	}
}

// Download retrieves the resource behind url into destDir. reporter may be
// nil. The returned result always carries the complete attempt log; the
// caller is never shown a partial state. Cancel via ctx; cancelling one
// download never affects another.
func (o *Orchestrator) Download(ctx context.Context, url, destDir string, reporter progress.Reporter, creds domain.Credential) *domain.DownloadResult {
	record := domain.NewDownload(url, domain.Classify(url))
	return o.DownloadRecorded(ctx, record, destDir, reporter, creds)
}

// DownloadRecorded is Download with a caller-supplied history record, for
// callers that need the record ID before the transfer finishes.
func (o *Orchestrator) DownloadRecorded(ctx context.Context, record *domain.Download, destDir string, reporter progress.Reporter, creds domain.Credential) *domain.DownloadResult {
	if reporter == nil {
		reporter = progress.Discard
	}
	reporter = progress.NewThrottle(reporter, o.progressInterval)

	url := record.URL

	o.events.LogDownloadEvent("download_started",
		zap.String("id", record.ID),
		zap.String("url", url),
		zap.String("service", string(record.Variant)))

	link, err := domain.ParseLink(url)
	if err != nil {
		// Unparseable input: no strategy can recover, abort immediately
		result := &domain.DownloadResult{Success: false, FinalError: err}
		o.finish(record, result)
		return result
	}
	link.Creds = creds

	// Serialize concurrent downloads of the same object into the same
	// directory. The lock is keyed by destination dir + object id since the
	// final filename is not known yet at this point; strategies take a
	// second lock on the resolved path once they have one.
	unlock := o.lockDest(destDir + "\x00" + link.ObjectID)
	defer unlock()

	result := o.policy.Run(ctx, link, destDir, reporter)
	o.finish(record, result)
	return result
}

// lockDest acquires the per-destination mutex and returns its release func
func (o *Orchestrator) lockDest(key string) func() {
	o.mu.Lock()
	lock, ok := o.destLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		o.destLocks[key] = lock
	}
	o.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// finish records the terminal result in history and emits the final event
func (o *Orchestrator) finish(record *domain.Download, result *domain.DownloadResult) {
	record.AttemptCount = len(result.Attempts)
	if log, err := json.Marshal(result.Attempts); err == nil {
		record.AttemptLog = string(log)
	}

	if result.Success {
		record.MarkCompleted(result.LocalPath, result.BytesTransferred)
		o.events.LogDownloadEvent("download_completed",
			zap.String("id", record.ID),
			zap.String("file", result.LocalPath),
			zap.Int64("bytes", result.BytesTransferred),
			zap.Int("attempts", record.AttemptCount))
	} else if domain.IsKind(result.FinalError, domain.ErrorCancelled) {
		record.MarkCancelled()
		o.events.LogDownloadEvent("download_cancelled", zap.String("id", record.ID))
	} else {
		record.MarkFailed(result.FinalError)
		o.events.LogDownloadEvent("download_failed",
			zap.String("id", record.ID),
			zap.String("error", record.ErrorMessage),
			zap.Int("attempts", record.AttemptCount))
	}

	if o.repo == nil {
		return
	}
	if err := o.repo.Create(record); err != nil {
		o.logger.Error("Failed to record download history", zap.Error(err))
	}
}
