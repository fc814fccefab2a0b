package progress

import (
	"sync"
	"time"
)

// Throttle wraps a Reporter and coalesces samples so the inner reporter is
// invoked at most once per interval. Terminal samples (transfer complete)
// always pass through so the 100% mark is never lost.
type Throttle struct {
	inner    Reporter
	interval time.Duration

	mu   sync.Mutex
	last time.Time

	now func() time.Time // test hook
}

// DefaultInterval bounds the callback frequency strategies may generate
const DefaultInterval = 500 * time.Millisecond

// NewThrottle wraps reporter with a minimum interval between deliveries.
// A non-positive interval falls back to DefaultInterval.
func NewThrottle(reporter Reporter, interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Throttle{inner: reporter, interval: interval, now: time.Now}
}

// Report implements Reporter
func (t *Throttle) Report(sample Sample) {
	terminal := sample.TotalKnown && sample.BytesDone >= sample.BytesTotal

	t.mu.Lock()
	now := t.now()
	if !terminal && !t.last.IsZero() && now.Sub(t.last) < t.interval {
		t.mu.Unlock()
		return
	}
	t.last = now
	t.mu.Unlock()

	t.inner.Report(sample)
}
