package infrastructure

import (
	"context"

	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/internal/domain"
	"github.com/yourusername/obidl-go/pkg/progress"
)

// DirectTransferStrategy fetches a URL as-is over the transport. It backs
// plain file links that belong to no recognized service.
type DirectTransferStrategy struct {
	transport domain.Transport
	logger    *zap.Logger
}

// NewDirectTransferStrategy creates the plain HTTP strategy
func NewDirectTransferStrategy(transport domain.Transport, log *zap.Logger) *DirectTransferStrategy {
	if log == nil {
		log = zap.NewNop()
	}
	return &DirectTransferStrategy{transport: transport, logger: log}
}

// Kind returns the strategy's retrieval method
func (s *DirectTransferStrategy) Kind() domain.StrategyKind {
	return domain.KindProtocolClient
}

// Supports reports whether the strategy can handle the given variant
func (s *DirectTransferStrategy) Supports(variant domain.ServiceVariant) bool {
	return variant == domain.VariantUnknown
}

// Attempt streams the URL straight into destDir
func (s *DirectTransferStrategy) Attempt(ctx context.Context, link *domain.ParsedLink, destDir string, reporter progress.Reporter, prior domain.StrategyAttempt) domain.StrategyAttempt {
	return transferToFile(ctx, s.transport, domain.KindProtocolClient, link.RawURL, destDir, reporter, prior)
}
