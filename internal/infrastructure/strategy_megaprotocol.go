package infrastructure

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/internal/domain"
	"github.com/yourusername/obidl-go/pkg/progress"
)

// MegaProtocolStrategy retrieves Mega.nz files by speaking the service
// API directly and decrypting the ciphertext stream with the key recovered
// from the share link. Partial transfers are kept as .part files and
// resumed from the last complete cipher block.
type MegaProtocolStrategy struct {
	client    *MegaClient
	transport domain.Transport
	logger    *zap.Logger
}

// NewMegaProtocolStrategy creates the protocol-client strategy for Mega
func NewMegaProtocolStrategy(client *MegaClient, transport domain.Transport, log *zap.Logger) *MegaProtocolStrategy {
	if log == nil {
		log = zap.NewNop()
	}
	return &MegaProtocolStrategy{client: client, transport: transport, logger: log}
}

// Kind returns the strategy's retrieval method
func (s *MegaProtocolStrategy) Kind() domain.StrategyKind {
	return domain.KindProtocolClient
}

// Supports reports whether the strategy can handle the given variant
func (s *MegaProtocolStrategy) Supports(variant domain.ServiceVariant) bool {
	return variant == domain.VariantMega
}

// Attempt fetches the file once, resuming from prior partial state
func (s *MegaProtocolStrategy) Attempt(ctx context.Context, link *domain.ParsedLink, destDir string, reporter progress.Reporter, prior domain.StrategyAttempt) domain.StrategyAttempt {
	start := time.Now()

	if link.IsFolder {
		return domain.FailAttempt(domain.KindProtocolClient, start,
			domain.NewError(domain.ErrorFatal, "protocol client handles file links only, not folders"))
	}

	fk, err := UnpackFileKey(link.Key)
	if err != nil {
		return domain.FailAttempt(domain.KindProtocolClient, start, err)
	}

	info, err := s.client.PublicFileInfo(ctx, link.ObjectID, fk)
	if err != nil {
		return domain.FailAttempt(domain.KindProtocolClient, start, err)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return domain.FailAttempt(domain.KindProtocolClient, start,
			domain.WrapError(domain.ErrorFatal, "failed to create destination directory", err))
	}

	name := domain.SafeFilename(info.Name)
	partPath := filepath.Join(destDir, name+".part")
	finalPath := filepath.Join(destDir, name)

	unlock := transferLocks.acquire(finalPath)
	defer unlock()

	// Resume only from the point the previous attempt recorded, trimmed
	// down to a whole cipher block so the CTR counter lines up.
	var offset int64
	if prior.PartialKept {
		offset = resumableOffset(partPath)
	} else {
		os.Remove(partPath)
	}

	attempt, err := s.transfer(ctx, info, fk, partPath, offset, name, reporter)
	if err != nil {
		fail := domain.FailAttempt(domain.KindProtocolClient, start, err)
		fail.PartialKept = attempt.PartialKept
		fail.ResumeOffset = attempt.ResumeOffset
		fail.BytesTransferred = attempt.BytesTransferred
		return fail
	}

	if err := os.Rename(partPath, finalPath); err != nil {
		return domain.FailAttempt(domain.KindProtocolClient, start,
			domain.WrapError(domain.ErrorFatal, "failed to move completed file", err))
	}

	s.logger.Info("Mega protocol download completed",
		zap.String("file", finalPath),
		zap.Int64("size", info.Size))

	done := domain.SucceedAttempt(domain.KindProtocolClient, start, finalPath, attempt.BytesTransferred)
	return done
}

// transfer streams, decrypts and verifies the file body into partPath.
// The returned attempt carries partial-state bookkeeping even on error.
func (s *MegaProtocolStrategy) transfer(ctx context.Context, info *MegaFileInfo, fk MegaFileKey, partPath string, offset int64, name string, reporter progress.Reporter) (domain.StrategyAttempt, error) {
	partial := domain.StrategyAttempt{}

	ctr, err := newMegaCTR(fk.AESKey, fk.Nonce, uint64(offset/16))
	if err != nil {
		return partial, err
	}

	mac, err := newMegaMAC(fk.AESKey, fk.Nonce)
	if err != nil {
		return partial, err
	}

	// A resumed MAC must re-see the plaintext already on disk
	if offset > 0 {
		if err := feedExisting(mac, partPath, offset); err != nil {
			// Unreadable partial: restart clean
			offset = 0
			ctr, _ = newMegaCTR(fk.AESKey, fk.Nonce, 0)
			mac, _ = newMegaMAC(fk.AESKey, fk.Nonce)
		}
	}

	res, err := s.transport.Fetch(ctx, info.DownloadURL, nil, domain.ByteRange{Offset: offset})
	if err != nil {
		partial.PartialKept = offset > 0
		partial.ResumeOffset = offset
		return partial, err
	}
	defer res.Body.Close()

	// Server ignored the range request: start over
	if offset > 0 && !res.Resumed {
		offset = 0
		ctr, _ = newMegaCTR(fk.AESKey, fk.Nonce, 0)
		mac, _ = newMegaMAC(fk.AESKey, fk.Nonce)
	}

	file, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return partial, domain.WrapError(domain.ErrorFatal, "failed to open partial file", err)
	}
	defer file.Close()

	if err := file.Truncate(offset); err != nil {
		return partial, domain.WrapError(domain.ErrorFatal, "failed to truncate partial file", err)
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return partial, domain.WrapError(domain.ErrorFatal, "failed to seek partial file", err)
	}

	tracker := progress.NewTracker(name, info.Size)
	tracker.Seek(offset)
	reporter.Report(tracker.Sample())

	var written int64
	buf := make([]byte, 128*1024)
	for {
		n, readErr := res.Body.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			ctr.XORKeyStream(chunk, chunk)
			mac.Write(chunk)
			if _, err := file.Write(chunk); err != nil {
				return partial, domain.WrapError(domain.ErrorFatal, "failed to write destination file", err)
			}
			written += int64(n)
			reporter.Report(tracker.Advance(int64(n)))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			partial.PartialKept = true
			partial.ResumeOffset = offset + written
			partial.BytesTransferred = written
			if ctx.Err() != nil {
				return partial, domain.WrapError(domain.ErrorCancelled, "transfer cancelled", ctx.Err())
			}
			return partial, domain.WrapError(domain.ErrorRetryable, "transfer interrupted", readErr)
		}
	}

	partial.BytesTransferred = written

	if total := offset + written; total != info.Size {
		partial.PartialKept = true
		partial.ResumeOffset = total
		return partial, domain.NewError(domain.ErrorRetryable,
			"truncated transfer, will resume from offset")
	}

	// A MAC mismatch on a complete body means the content itself is bad;
	// retrying the same endpoint would reproduce it.
	if !mac.Verify(fk.MetaMAC) {
		os.Remove(partPath)
		return partial, domain.NewError(domain.ErrorResourceMismatch,
			"decrypted content failed MAC verification")
	}

	return partial, nil
}

// resumableOffset returns the part file size rounded down to a whole
// cipher block, 0 when the file is missing
func resumableOffset(partPath string) int64 {
	st, err := os.Stat(partPath)
	if err != nil {
		return 0
	}
	return st.Size() - st.Size()%16
}

// feedExisting replays offset bytes of the partial file into the MAC
func feedExisting(mac *megaMAC, partPath string, offset int64) error {
	f, err := os.Open(partPath)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, 128*1024)
	var fed int64
	for fed < offset {
		want := int64(len(buf))
		if offset-fed < want {
			want = offset - fed
		}
		n, err := f.Read(buf[:want])
		if n > 0 {
			mac.Write(buf[:n])
			fed += int64(n)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
