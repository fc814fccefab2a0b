package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/obidl-go/internal/domain"
	"github.com/yourusername/obidl-go/pkg/progress"
)

// stubExtractor resolves every supported link to a fixed direct URL
type stubExtractor struct {
	variant   domain.ServiceVariant
	directURL string
	err       error
}

func (s *stubExtractor) Supports(variant domain.ServiceVariant) bool {
	return variant == s.variant
}

func (s *stubExtractor) ExtractDirectURL(ctx context.Context, link *domain.ParsedLink) (string, error) {
	return s.directURL, s.err
}

func TestPageScrapeStrategy_DownloadsExtractedURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="fetched.zip"`)
		w.Write([]byte("scraped bytes"))
	}))
	defer srv.Close()

	strategy := NewPageScrapeStrategy(NewHTTPTransport(), []domain.DirectURLExtractor{
		&stubExtractor{variant: domain.VariantMediaFire, directURL: srv.URL + "/direct"},
	}, nil)
	assert.Equal(t, domain.KindPageScrape, strategy.Kind())
	assert.True(t, strategy.Supports(domain.VariantMediaFire))
	assert.False(t, strategy.Supports(domain.VariantGoogleDrive))

	link := &domain.ParsedLink{Variant: domain.VariantMediaFire, ObjectID: "abc"}
	attempt := strategy.Attempt(context.Background(), link, t.TempDir(), progress.Discard, domain.StrategyAttempt{})

	require.True(t, attempt.Succeeded(), "error: %v", attempt.Err)
	data, err := os.ReadFile(attempt.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "scraped bytes", string(data))
}

func TestPageScrapeStrategy_ExtractionFailure(t *testing.T) {
	strategy := NewPageScrapeStrategy(NewHTTPTransport(), []domain.DirectURLExtractor{
		&stubExtractor{variant: domain.VariantMediaFire, err: domain.NewError(domain.ErrorFatal, "page has no download button")},
	}, nil)

	link := &domain.ParsedLink{Variant: domain.VariantMediaFire, ObjectID: "abc"}
	attempt := strategy.Attempt(context.Background(), link, t.TempDir(), progress.Discard, domain.StrategyAttempt{})

	require.False(t, attempt.Succeeded())
	assert.Equal(t, domain.OutcomeFatal, attempt.Outcome)
}

func TestPageScrapeStrategy_NoExtractorForVariant(t *testing.T) {
	strategy := NewPageScrapeStrategy(NewHTTPTransport(), nil, nil)

	link := &domain.ParsedLink{Variant: domain.VariantGoogleDrive, ObjectID: "x"}
	attempt := strategy.Attempt(context.Background(), link, t.TempDir(), progress.Discard, domain.StrategyAttempt{})

	require.False(t, attempt.Succeeded())
	assert.Equal(t, domain.OutcomeFatal, attempt.Outcome)
}

func TestDirectTransferStrategy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain file"))
	}))
	defer srv.Close()

	strategy := NewDirectTransferStrategy(NewHTTPTransport(), nil)
	assert.Equal(t, domain.KindProtocolClient, strategy.Kind())
	assert.True(t, strategy.Supports(domain.VariantUnknown))
	assert.False(t, strategy.Supports(domain.VariantMega))

	link := &domain.ParsedLink{Variant: domain.VariantUnknown, RawURL: srv.URL + "/report.pdf"}
	attempt := strategy.Attempt(context.Background(), link, t.TempDir(), progress.Discard, domain.StrategyAttempt{})

	require.True(t, attempt.Succeeded(), "error: %v", attempt.Err)
	assert.Equal(t, int64(len("plain file")), attempt.BytesTransferred)
}
