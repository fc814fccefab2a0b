package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yourusername/obidl-go/internal/domain"
	"github.com/yourusername/obidl-go/pkg/progress"
)

// newestFileSince finds the most recently modified regular file in dir
// that appeared at or after cutoff, skipping temp/partial files. Tool
// strategies use it to locate the download because the tool picks the
// filename.
func newestFileSince(dir string, cutoff time.Time) (string, int64) {
	var newest string
	var newestMod time.Time
	var size int64

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".tmp") ||
			strings.HasSuffix(name, ".megadl.tmp") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, name)
			newestMod = info.ModTime()
			size = info.Size()
		}
	}
	return newest, size
}

// pollDestProgress samples the size of whatever file the external tool is
// writing in destDir until the returned stop func is called. Tools without
// a structured progress stream get byte counts this way; the total stays
// unknown.
func pollDestProgress(ctx context.Context, destDir string, cutoff time.Time, reporter progress.Reporter, interval time.Duration) func() {
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		tracker := progress.NewTracker("", 0)
		var last int64
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				path, size := newestInProgress(destDir, cutoff)
				if path == "" {
					continue
				}
				if delta := size - last; delta > 0 {
					sample := tracker.Advance(delta)
					sample.Filename = filepath.Base(path)
					reporter.Report(sample)
					last = size
				}
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

// newestInProgress is like newestFileSince but includes the tool's
// in-flight temp files, since those are what grow during the transfer
func newestInProgress(dir string, cutoff time.Time) (string, int64) {
	var newest string
	var newestMod time.Time
	var size int64

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().Before(cutoff) {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, entry.Name())
			newestMod = info.ModTime()
			size = info.Size()
		}
	}
	return newest, size
}

// stderrMatchesAny reports whether the tool's stderr contains one of the
// given lowercase patterns
func stderrMatchesAny(stderr string, patterns []string) bool {
	lower := strings.ToLower(stderr)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// classifyToolFailure maps a finished tool run onto the error taxonomy:
// fatal patterns first, rate-limit patterns get a retryable error so the
// backoff kicks in, everything else is a transient tool error.
func classifyToolFailure(result domain.ToolResult, fatalPatterns, rateLimitPatterns []string, detail string) error {
	combined := result.Stderr + "\n" + result.Stdout
	if stderrMatchesAny(combined, fatalPatterns) {
		return domain.NewError(domain.ErrorFatal, detail+": "+firstLine(result.Stderr))
	}
	if stderrMatchesAny(combined, rateLimitPatterns) {
		return domain.NewError(domain.ErrorRetryable, detail+": rate limited")
	}
	return domain.NewError(domain.ErrorRetryable, detail+": "+firstLine(result.Stderr))
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return domain.WrapError(domain.ErrorFatal, "cannot create destination directory", err)
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if s == "" {
		return "no output"
	}
	return s
}
