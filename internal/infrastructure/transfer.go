package infrastructure

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/obidl-go/internal/domain"
	"github.com/yourusername/obidl-go/pkg/progress"
)

const transferBufSize = 128 * 1024

// transferToFile streams a direct URL into destDir, writing to a .part
// file and renaming on completion. When prior carries resume state and the
// server honors the range, the transfer appends; otherwise it restarts.
// A failed transfer keeps the partial file and records the offset so the
// next attempt can pick it up.
func transferToFile(ctx context.Context, transport domain.Transport, kind domain.StrategyKind, directURL, destDir string, reporter progress.Reporter, prior domain.StrategyAttempt) domain.StrategyAttempt {
	start := time.Now()

	if err := ensureDir(destDir); err != nil {
		return domain.FailAttempt(kind, start, err)
	}

	var offset int64
	if prior.PartialKept && prior.LocalPath != "" {
		if info, err := os.Stat(prior.LocalPath); err == nil {
			offset = info.Size()
		}
	}

	fetch, err := transport.Fetch(ctx, directURL, nil, domain.ByteRange{Offset: offset})
	if err != nil {
		return domain.FailAttempt(kind, start, err)
	}
	defer fetch.Body.Close()

	name := domain.SafeFilename(fetch.Filename)
	partPath := filepath.Join(destDir, name+".part")
	finalPath := filepath.Join(destDir, name)

	if offset > 0 && fetch.Resumed && partPath != prior.LocalPath {
		// The ranged body continues the kept partial, but the resolved
		// filename no longer matches it. Those bytes cannot rebuild a file
		// from scratch; restart clean on the next attempt.
		return domain.FailAttempt(kind, start,
			domain.NewError(domain.ErrorRetryable, "resume target changed, restarting from scratch"))
	}
	if offset > 0 && !fetch.Resumed {
		// Server restarted from zero, the leftover bytes are stale
		offset = 0
	}

	unlock := transferLocks.acquire(finalPath)
	defer unlock()

	flags := os.O_CREATE | os.O_WRONLY
	file, err := os.OpenFile(partPath, flags, 0644)
	if err != nil {
		return domain.FailAttempt(kind, start,
			domain.WrapError(domain.ErrorFatal, "cannot open partial file", err))
	}
	if err := file.Truncate(offset); err != nil {
		file.Close()
		return domain.FailAttempt(kind, start,
			domain.WrapError(domain.ErrorFatal, "cannot truncate partial file", err))
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		file.Close()
		return domain.FailAttempt(kind, start,
			domain.WrapError(domain.ErrorFatal, "cannot seek partial file", err))
	}

	tracker := progress.NewTracker(name, fetch.TotalLength)
	tracker.Seek(offset)
	reporter.Report(tracker.Sample())

	written := offset
	buf := make([]byte, transferBufSize)
	for {
		n, readErr := fetch.Body.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				file.Close()
				return domain.FailAttempt(kind, start,
					domain.WrapError(domain.ErrorFatal, "write failed", werr))
			}
			written += int64(n)
			reporter.Report(tracker.Advance(int64(n)))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			file.Close()
			failErr := domain.WrapError(domain.ErrorRetryable, "stream interrupted", readErr)
			if ctx.Err() != nil {
				failErr = domain.WrapError(domain.ErrorCancelled, "transfer cancelled", ctx.Err())
			}
			attempt := domain.FailAttempt(kind, start, failErr)
			attempt.LocalPath = partPath
			attempt.BytesTransferred = written
			attempt.PartialKept = true
			attempt.ResumeOffset = written
			return attempt
		}
	}

	if err := file.Close(); err != nil {
		return domain.FailAttempt(kind, start,
			domain.WrapError(domain.ErrorFatal, "close failed", err))
	}

	if fetch.TotalLength >= 0 && written != fetch.TotalLength {
		attempt := domain.FailAttempt(kind, start,
			domain.NewError(domain.ErrorRetryable, "transfer ended short of the advertised length"))
		attempt.LocalPath = partPath
		attempt.BytesTransferred = written
		attempt.PartialKept = true
		attempt.ResumeOffset = written
		return attempt
	}

	if err := os.Rename(partPath, finalPath); err != nil {
		return domain.FailAttempt(kind, start,
			domain.WrapError(domain.ErrorFatal, "cannot finalize file", err))
	}

	return domain.SucceedAttempt(kind, start, finalPath, written)
}
