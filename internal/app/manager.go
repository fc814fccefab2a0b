package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/internal/domain"
	"github.com/yourusername/obidl-go/pkg/progress"
)

// activeDownload tracks one in-flight transfer
type activeDownload struct {
	record *domain.Download
	cancel context.CancelFunc

	mu   sync.Mutex
	last progress.Sample
	subs map[chan progress.Sample]struct{}
}

func (a *activeDownload) publish(sample progress.Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = sample
	for ch := range a.subs {
		select {
		case ch <- sample:
		default:
			// Slow subscriber, drop the sample rather than stall the transfer
		}
	}
}

// DownloadManager runs downloads asynchronously on top of the orchestrator
// and fans progress out to subscribers. It backs the HTTP API; the CLI
// calls the orchestrator directly.
type DownloadManager struct {
	orch    *Orchestrator
	repo    domain.DownloadRepository // nil disables history lookups
	destDir string
	logger  *zap.Logger

	mu     sync.Mutex
	active map[string]*activeDownload
}

// NewDownloadManager creates a download manager. destDir is the default
// destination for API-initiated downloads.
func NewDownloadManager(orch *Orchestrator, repo domain.DownloadRepository, destDir string, log *zap.Logger) *DownloadManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &DownloadManager{
		orch:    orch,
		repo:    repo,
		destDir: destDir,
		logger:  log,
		active:  make(map[string]*activeDownload),
	}
}

// Start begins an asynchronous download and returns its record immediately
func (m *DownloadManager) Start(url, destDir string, creds domain.Credential) (*domain.Download, error) {
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}
	if destDir == "" {
		destDir = m.destDir
	}

	record := domain.NewDownload(url, domain.Classify(url))
	ctx, cancel := context.WithCancel(context.Background())

	ad := &activeDownload{
		record: record,
		cancel: cancel,
		subs:   make(map[chan progress.Sample]struct{}),
	}

	m.mu.Lock()
	m.active[record.ID] = ad
	m.mu.Unlock()

	go func() {
		defer cancel()
		reporter := progress.ReporterFunc(ad.publish)
		result := m.orch.DownloadRecorded(ctx, record, destDir, reporter, creds)

		m.mu.Lock()
		delete(m.active, record.ID)
		m.mu.Unlock()

		if !result.Success {
			m.logger.Warn("download failed",
				zap.String("id", record.ID),
				zap.Error(result.FinalError))
		}
	}()

	return record, nil
}

// Cancel aborts an in-flight download. Finished downloads cannot be
// cancelled.
func (m *DownloadManager) Cancel(id string) error {
	m.mu.Lock()
	ad, ok := m.active[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no active download with id %s", id)
	}
	ad.cancel()
	return nil
}

// Get returns the download record, in-flight or from history
func (m *DownloadManager) Get(id string) (*domain.Download, error) {
	m.mu.Lock()
	ad, ok := m.active[id]
	m.mu.Unlock()
	if ok {
		return ad.record, nil
	}
	if m.repo == nil {
		return nil, fmt.Errorf("no active download with id %s", id)
	}
	return m.repo.FindByID(id)
}

// List returns history records matching the filters
func (m *DownloadManager) List(filters map[string]interface{}) ([]*domain.Download, error) {
	if m.repo == nil {
		return nil, fmt.Errorf("history is disabled")
	}
	return m.repo.FindAll(filters)
}

// Stats summarizes the history by status
type Stats struct {
	Total     int64 `json:"total"`
	Active    int   `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}

// GetStats returns download statistics
func (m *DownloadManager) GetStats() (*Stats, error) {
	if m.repo == nil {
		return nil, fmt.Errorf("history is disabled")
	}
	stats := &Stats{Active: m.ActiveCount()}
	var err error
	if stats.Total, err = m.repo.Count(); err != nil {
		return nil, err
	}
	if stats.Completed, err = m.repo.CountByStatus(domain.StatusCompleted); err != nil {
		return nil, err
	}
	if stats.Failed, err = m.repo.CountByStatus(domain.StatusFailed); err != nil {
		return nil, err
	}
	if stats.Cancelled, err = m.repo.CountByStatus(domain.StatusCancelled); err != nil {
		return nil, err
	}
	return stats, nil
}

// ActiveCount returns the number of in-flight downloads
func (m *DownloadManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Progress returns the latest sample for an in-flight download
func (m *DownloadManager) Progress(id string) (progress.Sample, bool) {
	m.mu.Lock()
	ad, ok := m.active[id]
	m.mu.Unlock()
	if !ok {
		return progress.Sample{}, false
	}
	ad.mu.Lock()
	defer ad.mu.Unlock()
	return ad.last, true
}

// Subscribe streams progress samples for an in-flight download. The caller
// must call the returned unsubscribe func, and should poll IsActive to
// detect the download finishing since the channel is never closed.
func (m *DownloadManager) Subscribe(id string) (<-chan progress.Sample, func(), bool) {
	m.mu.Lock()
	ad, ok := m.active[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil, false
	}

	ch := make(chan progress.Sample, 16)
	ad.mu.Lock()
	ad.subs[ch] = struct{}{}
	ad.mu.Unlock()

	unsubscribe := func() {
		ad.mu.Lock()
		delete(ad.subs, ch)
		ad.mu.Unlock()
	}
	return ch, unsubscribe, true
}

// IsActive reports whether the download is still in flight
func (m *DownloadManager) IsActive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[id]
	return ok
}
