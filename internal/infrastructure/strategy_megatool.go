package infrastructure

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/internal/domain"
	"github.com/yourusername/obidl-go/pkg/progress"
)

// Patterns in megadl output that mean the resource itself is dead; no
// amount of retrying this tool will help.
var megadlFatalPatterns = []string{
	"skipping invalid mega download link",
	"file not found",
	"not found",
	"expired",
	"link is no longer available",
	"invalid link",
}

var megadlRateLimitPatterns = []string{
	"too many requests",
	"rate limit",
	"bandwidth limit",
}

// MegaToolStrategy downloads Mega.nz links by invoking megadl. The tool's
// exit code is authoritative; progress comes from polling the destination
// since megadl emits no structured progress stream.
type MegaToolStrategy struct {
	runner  domain.ToolRunner
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewMegaToolStrategy creates the megadl external-tool strategy
func NewMegaToolStrategy(runner domain.ToolRunner, cfg domain.ToolsConfig, log *zap.Logger) *MegaToolStrategy {
	if log == nil {
		log = zap.NewNop()
	}
	binary := cfg.MegadlBinary
	if binary == "" {
		binary = "megadl"
	}
	return &MegaToolStrategy{
		runner:  runner,
		binary:  binary,
		timeout: cfg.Timeout,
		logger:  log,
	}
}

// Kind returns the strategy's retrieval method
func (s *MegaToolStrategy) Kind() domain.StrategyKind {
	return domain.KindExternalTool
}

// Supports reports whether the strategy can handle the given variant
func (s *MegaToolStrategy) Supports(variant domain.ServiceVariant) bool {
	return variant == domain.VariantMega
}

// Attempt invokes megadl once. Tool strategies cannot verify partial
// state, so leftovers are never resumed.
func (s *MegaToolStrategy) Attempt(ctx context.Context, link *domain.ParsedLink, destDir string, reporter progress.Reporter, _ domain.StrategyAttempt) domain.StrategyAttempt {
	start := time.Now()

	if err := ensureDir(destDir); err != nil {
		return domain.FailAttempt(domain.KindExternalTool, start, err)
	}

	argv := []string{s.binary, "--path", destDir}
	if !link.Creds.IsAnonymous() {
		argv = append(argv, "--username", link.Creds.Identity, "--password", link.Creds.Secret)
	}
	argv = append(argv, link.RawURL)

	stopPolling := pollDestProgress(ctx, destDir, start, reporter, time.Second)
	result, err := s.runner.Run(ctx, argv, destDir, s.timeout)
	stopPolling()

	if err != nil {
		if ctx.Err() != nil {
			return domain.FailAttempt(domain.KindExternalTool, start,
				domain.WrapError(domain.ErrorCancelled, "megadl cancelled", ctx.Err()))
		}
		// Could not run at all (binary missing): fatal for this strategy,
		// the policy advances to the protocol client.
		return domain.FailAttempt(domain.KindExternalTool, start,
			domain.WrapError(domain.ErrorFatal, "megadl could not be run", err))
	}

	s.logger.Debug("megadl finished",
		zap.Int("exit_code", result.ExitCode),
		zap.String("stderr", firstLine(result.Stderr)))

	// megadl sometimes exits 0 after merely warning about a bad link
	if result.ExitCode == 0 && stderrMatchesAny(result.Stderr, []string{"skipping invalid mega download link"}) {
		return domain.FailAttempt(domain.KindExternalTool, start,
			domain.NewError(domain.ErrorFatal, "megadl rejected the link as invalid"))
	}

	if result.ExitCode != 0 {
		return domain.FailAttempt(domain.KindExternalTool, start,
			classifyToolFailure(result, megadlFatalPatterns, megadlRateLimitPatterns, "megadl failed"))
	}

	path, size := newestFileSince(destDir, start)
	if path == "" || size == 0 {
		return domain.FailAttempt(domain.KindExternalTool, start,
			domain.NewError(domain.ErrorRetryable, "megadl exited cleanly but produced no file"))
	}

	return domain.SucceedAttempt(domain.KindExternalTool, start, path, size)
}
