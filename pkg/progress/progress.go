// Package progress defines the progress-reporting contract shared by all
// retrieval strategies: a single well-typed sample struct pushed into a
// caller-owned reporter, at a bounded frequency.
package progress

import "time"

// Sample is one progress observation. Samples are transient; reporters
// observe them and must not retain references.
type Sample struct {
	Filename  string `json:"filename"`
	BytesDone int64  `json:"bytes_done"`
	// BytesTotal is 0 and TotalKnown false when the strategy cannot learn
	// the total size (e.g. chunked transfer, external tool without output)
	BytesTotal int64         `json:"bytes_total"`
	TotalKnown bool          `json:"total_known"`
	Rate       int64         `json:"rate"` // bytes per second
	ETA        time.Duration `json:"eta"`
	ETAKnown   bool          `json:"eta_known"`
}

// Percentage returns completion in percent, or -1 when the total is unknown
func (s Sample) Percentage() float64 {
	if !s.TotalKnown || s.BytesTotal <= 0 {
		return -1
	}
	return float64(s.BytesDone) / float64(s.BytesTotal) * 100
}

// Reporter receives progress samples. One reporter belongs to exactly one
// download; implementations need not be safe for use by multiple downloads.
type Reporter interface {
	Report(sample Sample)
}

// ReporterFunc adapts a function to the Reporter interface
type ReporterFunc func(sample Sample)

// Report implements Reporter
func (f ReporterFunc) Report(sample Sample) {
	f(sample)
}

// Discard is a Reporter that drops all samples
var Discard Reporter = ReporterFunc(func(Sample) {})
