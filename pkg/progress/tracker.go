package progress

import "time"

// Tracker turns raw byte counts into rate/ETA samples. It keeps a short
// sliding window so the rate is instantaneous rather than a lifetime
// average.
type Tracker struct {
	filename   string
	total      int64
	totalKnown bool

	windowStart time.Time
	windowBytes int64
	lastRate    int64
	done        int64

	now func() time.Time // test hook
}

const rateWindow = time.Second

// NewTracker creates a tracker for one transfer. Pass total <= 0 when the
// total size is unknown.
func NewTracker(filename string, total int64) *Tracker {
	return &Tracker{
		filename:   filename,
		total:      total,
		totalKnown: total > 0,
		now:        time.Now,
	}
}

// SetTotal updates the total once a strategy learns it mid-transfer
func (t *Tracker) SetTotal(total int64) {
	t.total = total
	t.totalKnown = total > 0
}

// Advance records newly transferred bytes and returns the current sample
func (t *Tracker) Advance(n int64) Sample {
	now := t.now()
	if t.windowStart.IsZero() {
		t.windowStart = now
	}

	t.done += n
	t.windowBytes += n

	if elapsed := now.Sub(t.windowStart); elapsed >= rateWindow {
		t.lastRate = int64(float64(t.windowBytes) / elapsed.Seconds())
		t.windowStart = now
		t.windowBytes = 0
	}

	return t.Sample()
}

// Seek resets the done counter, used when resuming from a partial file
func (t *Tracker) Seek(offset int64) {
	t.done = offset
}

// Sample builds the current progress sample without advancing
func (t *Tracker) Sample() Sample {
	s := Sample{
		Filename:   t.filename,
		BytesDone:  t.done,
		BytesTotal: t.total,
		TotalKnown: t.totalKnown,
		Rate:       t.lastRate,
	}
	if t.totalKnown && t.lastRate > 0 && t.total > t.done {
		s.ETA = time.Duration(float64(t.total-t.done)/float64(t.lastRate)) * time.Second
		s.ETAKnown = true
	}
	return s
}
