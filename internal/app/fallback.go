package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/internal/domain"
	"github.com/yourusername/obidl-go/pkg/progress"
)

// FallbackPolicy holds the ordered candidate strategies per service
// variant and drives them in sequence: the first success wins, a fatal
// failure moves to the next candidate, and retryable failures are absorbed
// by the retry controller first.
type FallbackPolicy struct {
	candidates map[domain.ServiceVariant][]domain.Strategy
	retry      *RetryController
	logger     *zap.Logger
}

// NewFallbackPolicy builds the per-variant candidate lists from the
// configured kind order. A kind with no registered strategy that supports
// the variant is skipped.
func NewFallbackPolicy(order domain.StrategiesConfig, strategies []domain.Strategy, retry *RetryController, log *zap.Logger) *FallbackPolicy {
	if log == nil {
		log = zap.NewNop()
	}
	variants := []domain.ServiceVariant{
		domain.VariantMega,
		domain.VariantVideo,
		domain.VariantMediaFire,
		domain.VariantGoogleDrive,
		domain.VariantUnknown,
	}

	candidates := make(map[domain.ServiceVariant][]domain.Strategy)
	for _, variant := range variants {
		for _, kind := range order.Order(variant) {
			for _, s := range strategies {
				if string(s.Kind()) == kind && s.Supports(variant) {
					candidates[variant] = append(candidates[variant], s)
					break
				}
			}
		}
	}

	return &FallbackPolicy{
		candidates: candidates,
		retry:      retry,
		logger:     log,
	}
}

// Candidates returns the ordered strategies for a variant
func (p *FallbackPolicy) Candidates(variant domain.ServiceVariant) []domain.Strategy {
	return p.candidates[variant]
}

// Run tries each candidate in order, wrapping every attempt with the retry
// controller, and returns the terminal result with the full attempt log.
func (p *FallbackPolicy) Run(ctx context.Context, link *domain.ParsedLink, destDir string, reporter progress.Reporter) *domain.DownloadResult {
	strategies := p.Candidates(link.Variant)
	if len(strategies) == 0 {
		return &domain.DownloadResult{
			Success: false,
			FinalError: domain.NewError(domain.ErrorNoStrategyAvailable,
				fmt.Sprintf("no strategy configured for service %q", link.Variant)),
		}
	}

	result := &domain.DownloadResult{}
	for _, strategy := range strategies {
		if ctx.Err() != nil {
			result.FinalError = domain.WrapError(domain.ErrorCancelled, "download cancelled", ctx.Err())
			return result
		}

		p.logger.Info("Trying strategy",
			zap.String("strategy", string(strategy.Kind())),
			zap.String("service", string(link.Variant)),
			zap.String("object_id", link.ObjectID))

		attempts := p.retry.Run(ctx, func(prior domain.StrategyAttempt) domain.StrategyAttempt {
			return strategy.Attempt(ctx, link, destDir, reporter, prior)
		})
		result.Attempts = append(result.Attempts, attempts...)

		last := attempts[len(attempts)-1]
		if last.Succeeded() {
			result.Success = true
			result.LocalPath = last.LocalPath
			result.BytesTransferred = last.BytesTransferred
			return result
		}

		p.logger.Warn("Strategy exhausted, advancing to next candidate",
			zap.String("strategy", string(strategy.Kind())),
			zap.String("error", last.ErrorDetail))
		result.FinalError = last.Err
	}

	if result.FinalError == nil {
		result.FinalError = domain.NewError(domain.ErrorFatal, "all strategies exhausted")
	}
	return result
}
