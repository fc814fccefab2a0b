package infrastructure

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/internal/domain"
	"github.com/yourusername/obidl-go/pkg/progress"
)

var ytdlpFatalPatterns = []string{
	"video unavailable",
	"private video",
	"this video is not available",
	"has been removed",
	"not found",
	"copyright",
	"account associated with this video has been terminated",
	"unsupported url",
}

var ytdlpRateLimitPatterns = []string{
	"http error 429",
	"too many requests",
	"rate-limited",
}

// VideoToolStrategy downloads video pages by invoking yt-dlp. yt-dlp picks
// the output filename from its template, so the result is located by
// scanning the destination afterwards.
type VideoToolStrategy struct {
	runner  domain.ToolRunner
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewVideoToolStrategy creates the yt-dlp external-tool strategy
func NewVideoToolStrategy(runner domain.ToolRunner, cfg domain.ToolsConfig, log *zap.Logger) *VideoToolStrategy {
	if log == nil {
		log = zap.NewNop()
	}
	binary := cfg.YTDLPBinary
	if binary == "" {
		binary = "yt-dlp"
	}
	return &VideoToolStrategy{
		runner:  runner,
		binary:  binary,
		timeout: cfg.Timeout,
		logger:  log,
	}
}

// Kind returns the strategy's retrieval method
func (s *VideoToolStrategy) Kind() domain.StrategyKind {
	return domain.KindExternalTool
}

// Supports reports whether the strategy can handle the given variant
func (s *VideoToolStrategy) Supports(variant domain.ServiceVariant) bool {
	return variant == domain.VariantVideo
}

// Attempt invokes yt-dlp once. yt-dlp keeps its own .ytdl state files, so
// a failed run leaves nothing this layer needs to track.
func (s *VideoToolStrategy) Attempt(ctx context.Context, link *domain.ParsedLink, destDir string, reporter progress.Reporter, _ domain.StrategyAttempt) domain.StrategyAttempt {
	start := time.Now()

	if err := ensureDir(destDir); err != nil {
		return domain.FailAttempt(domain.KindExternalTool, start, err)
	}

	// exec passes args directly to the process, no shell quoting needed
	argv := []string{
		s.binary,
		"--restrict-filenames",
		"--no-playlist",
		"-o", "%(title)s.%(ext)s",
		"-P", destDir,
		link.RawURL,
	}

	stopPolling := pollDestProgress(ctx, destDir, start, reporter, time.Second)
	result, err := s.runner.Run(ctx, argv, destDir, s.timeout)
	stopPolling()

	if err != nil {
		if ctx.Err() != nil {
			return domain.FailAttempt(domain.KindExternalTool, start,
				domain.WrapError(domain.ErrorCancelled, "yt-dlp cancelled", ctx.Err()))
		}
		return domain.FailAttempt(domain.KindExternalTool, start,
			domain.WrapError(domain.ErrorFatal, "yt-dlp could not be run", err))
	}

	s.logger.Debug("yt-dlp finished",
		zap.Int("exit_code", result.ExitCode),
		zap.String("stderr", firstLine(result.Stderr)))

	if result.ExitCode != 0 {
		return domain.FailAttempt(domain.KindExternalTool, start,
			classifyToolFailure(result, ytdlpFatalPatterns, ytdlpRateLimitPatterns, "yt-dlp failed"))
	}

	path, size := newestFileSince(destDir, start)
	if path == "" || size == 0 {
		return domain.FailAttempt(domain.KindExternalTool, start,
			domain.NewError(domain.ErrorRetryable, "yt-dlp exited cleanly but produced no file"))
	}

	return domain.SucceedAttempt(domain.KindExternalTool, start, path, size)
}
