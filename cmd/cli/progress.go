package main

import (
	"github.com/schollz/progressbar/v3"

	"github.com/yourusername/obidl-go/pkg/progress"
)

// barReporter renders progress samples as a terminal progress bar. The bar
// is created lazily on the first sample because the filename and total are
// only known once a strategy resolves the resource.
type barReporter struct {
	bar *progressbar.ProgressBar
}

func newBarReporter() *barReporter {
	return &barReporter{}
}

// Report implements progress.Reporter
func (r *barReporter) Report(sample progress.Sample) {
	if r.bar == nil {
		total := int64(-1)
		if sample.TotalKnown {
			total = sample.BytesTotal
		}
		r.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetDescription(sample.Filename),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(0),
			progressbar.OptionClearOnFinish(),
		)
	}
	r.bar.Set64(sample.BytesDone)
}

// Finish clears the bar
func (r *barReporter) Finish() {
	if r.bar != nil {
		r.bar.Finish()
	}
}

// reporterOrNil converts a possibly-nil concrete reporter to the interface
// without producing a non-nil interface around a nil pointer
func reporterOrNil(r *barReporter) progress.Reporter {
	if r == nil {
		return nil
	}
	return r
}
