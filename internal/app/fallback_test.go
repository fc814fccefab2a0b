package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/obidl-go/internal/domain"
	"github.com/yourusername/obidl-go/pkg/progress"
)

// stubStrategy returns canned attempts in order, repeating the last one
type stubStrategy struct {
	kind     domain.StrategyKind
	variants []domain.ServiceVariant
	results  []domain.StrategyAttempt
	calls    int
}

func (s *stubStrategy) Kind() domain.StrategyKind { return s.kind }

func (s *stubStrategy) Supports(variant domain.ServiceVariant) bool {
	for _, v := range s.variants {
		if v == variant {
			return true
		}
	}
	return false
}

func (s *stubStrategy) Attempt(ctx context.Context, link *domain.ParsedLink, destDir string, reporter progress.Reporter, prior domain.StrategyAttempt) domain.StrategyAttempt {
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	return s.results[idx]
}

func succeeded(kind domain.StrategyKind) domain.StrategyAttempt {
	return domain.SucceedAttempt(kind, time.Now(), "/tmp/out.bin", 512)
}

func failedFatal(kind domain.StrategyKind) domain.StrategyAttempt {
	return domain.FailAttempt(kind, time.Now(), domain.NewError(domain.ErrorFatal, "unrecoverable"))
}

func failedRetryable(kind domain.StrategyKind) domain.StrategyAttempt {
	return domain.FailAttempt(kind, time.Now(), domain.NewError(domain.ErrorRetryable, "transient"))
}

func immediateRetry(maxAttempts int) *RetryController {
	rc := NewRetryController(domain.RetryConfig{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	}, nil)
	rc.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return rc
}

func megaOrder() domain.StrategiesConfig {
	return domain.StrategiesConfig{
		Mega: []string{string(domain.KindExternalTool), string(domain.KindProtocolClient)},
	}
}

func megaLink() *domain.ParsedLink {
	return &domain.ParsedLink{
		Variant:  domain.VariantMega,
		RawURL:   "https://mega.nz/file/B3kg2Z#a2V5",
		ObjectID: "B3kg2Z",
	}
}

func TestFallbackPolicy_FirstStrategyWins(t *testing.T) {
	tool := &stubStrategy{
		kind:     domain.KindExternalTool,
		variants: []domain.ServiceVariant{domain.VariantMega},
		results:  []domain.StrategyAttempt{succeeded(domain.KindExternalTool)},
	}
	client := &stubStrategy{
		kind:     domain.KindProtocolClient,
		variants: []domain.ServiceVariant{domain.VariantMega},
		results:  []domain.StrategyAttempt{succeeded(domain.KindProtocolClient)},
	}

	policy := NewFallbackPolicy(megaOrder(), []domain.Strategy{tool, client}, immediateRetry(3), nil)
	result := policy.Run(context.Background(), megaLink(), t.TempDir(), progress.Discard)

	assert.True(t, result.Success)
	require.Len(t, result.Attempts, 1)
	assert.Equal(t, domain.KindExternalTool, result.Attempts[0].Strategy)
	assert.Equal(t, 0, client.calls, "second candidate must not run after a success")
}

func TestFallbackPolicy_FatalAdvancesToNextCandidate(t *testing.T) {
	tool := &stubStrategy{
		kind:     domain.KindExternalTool,
		variants: []domain.ServiceVariant{domain.VariantMega},
		results:  []domain.StrategyAttempt{failedFatal(domain.KindExternalTool)},
	}
	client := &stubStrategy{
		kind:     domain.KindProtocolClient,
		variants: []domain.ServiceVariant{domain.VariantMega},
		results:  []domain.StrategyAttempt{succeeded(domain.KindProtocolClient)},
	}

	policy := NewFallbackPolicy(megaOrder(), []domain.Strategy{tool, client}, immediateRetry(3), nil)
	result := policy.Run(context.Background(), megaLink(), t.TempDir(), progress.Discard)

	assert.True(t, result.Success)
	require.Len(t, result.Attempts, 2)
	assert.Equal(t, domain.KindExternalTool, result.Attempts[0].Strategy)
	assert.Equal(t, domain.OutcomeFatal, result.Attempts[0].Outcome)
	assert.Equal(t, domain.KindProtocolClient, result.Attempts[1].Strategy)
	assert.True(t, result.Attempts[1].Succeeded())
}

func TestFallbackPolicy_TransientFailuresRetrySameStrategy(t *testing.T) {
	client := &stubStrategy{
		kind:     domain.KindProtocolClient,
		variants: []domain.ServiceVariant{domain.VariantMega},
		results: []domain.StrategyAttempt{
			failedRetryable(domain.KindProtocolClient),
			failedRetryable(domain.KindProtocolClient),
			succeeded(domain.KindProtocolClient),
		},
	}

	order := domain.StrategiesConfig{Mega: []string{string(domain.KindProtocolClient)}}
	policy := NewFallbackPolicy(order, []domain.Strategy{client}, immediateRetry(5), nil)
	result := policy.Run(context.Background(), megaLink(), t.TempDir(), progress.Discard)

	assert.True(t, result.Success)
	require.Len(t, result.Attempts, 3)
	assert.Equal(t, domain.OutcomeRetryable, result.Attempts[0].Outcome)
	assert.Equal(t, domain.OutcomeRetryable, result.Attempts[1].Outcome)
	assert.True(t, result.Attempts[2].Succeeded())
}

func TestFallbackPolicy_NoCandidates(t *testing.T) {
	policy := NewFallbackPolicy(domain.StrategiesConfig{}, nil, immediateRetry(3), nil)

	link := &domain.ParsedLink{Variant: domain.VariantUnknown, RawURL: "https://example.com/f"}
	result := policy.Run(context.Background(), link, t.TempDir(), progress.Discard)

	assert.False(t, result.Success)
	assert.Empty(t, result.Attempts)
	assert.Equal(t, domain.ErrorNoStrategyAvailable, domain.KindOf(result.FinalError))
}

func TestFallbackPolicy_AllCandidatesFail(t *testing.T) {
	tool := &stubStrategy{
		kind:     domain.KindExternalTool,
		variants: []domain.ServiceVariant{domain.VariantMega},
		results:  []domain.StrategyAttempt{failedFatal(domain.KindExternalTool)},
	}
	client := &stubStrategy{
		kind:     domain.KindProtocolClient,
		variants: []domain.ServiceVariant{domain.VariantMega},
		results:  []domain.StrategyAttempt{failedFatal(domain.KindProtocolClient)},
	}

	policy := NewFallbackPolicy(megaOrder(), []domain.Strategy{tool, client}, immediateRetry(3), nil)
	result := policy.Run(context.Background(), megaLink(), t.TempDir(), progress.Discard)

	assert.False(t, result.Success)
	require.Len(t, result.Attempts, 2)
	assert.Error(t, result.FinalError)
}

func TestFallbackPolicy_SkipsUnsupportedKinds(t *testing.T) {
	// page_scrape is configured for mega but no registered strategy
	// supports mega with that kind
	scrape := &stubStrategy{
		kind:     domain.KindPageScrape,
		variants: []domain.ServiceVariant{domain.VariantMediaFire},
		results:  []domain.StrategyAttempt{succeeded(domain.KindPageScrape)},
	}

	order := domain.StrategiesConfig{Mega: []string{string(domain.KindPageScrape)}}
	policy := NewFallbackPolicy(order, []domain.Strategy{scrape}, immediateRetry(3), nil)

	assert.Empty(t, policy.Candidates(domain.VariantMega))
}
