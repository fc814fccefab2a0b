package infrastructure

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/internal/domain"
	"github.com/yourusername/obidl-go/pkg/progress"
)

// PageScrapeStrategy resolves landing pages to direct URLs through the
// registered extractors, then streams the bytes over the transport. An
// extractor miss is fatal for this strategy so the policy can move on to
// the next candidate without burning retries on a page that will not
// change shape.
type PageScrapeStrategy struct {
	extractors []domain.DirectURLExtractor
	transport  domain.Transport
	logger     *zap.Logger
}

// NewPageScrapeStrategy creates the scrape strategy over the given extractors
func NewPageScrapeStrategy(transport domain.Transport, extractors []domain.DirectURLExtractor, log *zap.Logger) *PageScrapeStrategy {
	if log == nil {
		log = zap.NewNop()
	}
	return &PageScrapeStrategy{
		extractors: extractors,
		transport:  transport,
		logger:     log,
	}
}

// Kind returns the strategy's retrieval method
func (s *PageScrapeStrategy) Kind() domain.StrategyKind {
	return domain.KindPageScrape
}

// Supports reports whether any registered extractor handles the variant
func (s *PageScrapeStrategy) Supports(variant domain.ServiceVariant) bool {
	for _, ex := range s.extractors {
		if ex.Supports(variant) {
			return true
		}
	}
	return false
}

// Attempt extracts the direct URL and delegates the byte transfer
func (s *PageScrapeStrategy) Attempt(ctx context.Context, link *domain.ParsedLink, destDir string, reporter progress.Reporter, prior domain.StrategyAttempt) domain.StrategyAttempt {
	start := time.Now()

	extractor := s.extractorFor(link.Variant)
	if extractor == nil {
		return domain.FailAttempt(domain.KindPageScrape, start,
			domain.NewError(domain.ErrorFatal, "no extractor for this service"))
	}

	directURL, err := extractor.ExtractDirectURL(ctx, link)
	if err != nil {
		return domain.FailAttempt(domain.KindPageScrape, start, err)
	}

	s.logger.Debug("resolved direct url",
		zap.String("object_id", link.ObjectID),
		zap.String("variant", string(link.Variant)))

	attempt := transferToFile(ctx, s.transport, domain.KindPageScrape, directURL, destDir, reporter, prior)
	// Fold the extraction time into the attempt record
	attempt.StartedAt = start
	attempt.Duration = time.Since(start)
	return attempt
}

func (s *PageScrapeStrategy) extractorFor(variant domain.ServiceVariant) domain.DirectURLExtractor {
	for _, ex := range s.extractors {
		if ex.Supports(variant) {
			return ex
		}
	}
	return nil
}
