package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/yourusername/obidl-go/internal/domain"
)

// MediaFireExtractor resolves a MediaFire landing page to its direct
// download URL by locating the download button anchor.
type MediaFireExtractor struct {
	client   *http.Client
	pageBase string
}

// NewMediaFireExtractor creates a MediaFire page extractor
func NewMediaFireExtractor() *MediaFireExtractor {
	return &MediaFireExtractor{
		client:   &http.Client{Timeout: 30 * time.Second},
		pageBase: "https://www.mediafire.com",
	}
}

// Supports reports whether the extractor understands this variant
func (e *MediaFireExtractor) Supports(variant domain.ServiceVariant) bool {
	return variant == domain.VariantMediaFire
}

// ExtractDirectURL fetches the canonical file page and pulls the href off
// the download button.
func (e *MediaFireExtractor) ExtractDirectURL(ctx context.Context, link *domain.ParsedLink) (string, error) {
	pageURL := fmt.Sprintf("%s/file/%s/", e.pageBase, link.ObjectID)

	doc, err := fetchDocument(ctx, e.client, pageURL)
	if err != nil {
		return "", err
	}

	href, ok := doc.Find("a#downloadButton").Attr("href")
	if !ok || href == "" {
		return "", domain.NewError(domain.ErrorFatal, "mediafire page has no download button")
	}
	if !strings.HasPrefix(href, "http") {
		return "", domain.NewError(domain.ErrorFatal, "mediafire download button href is not a URL")
	}
	return href, nil
}

// GoogleDriveExtractor resolves a Drive share link through the
// uc?export=download endpoint, following the confirmation step Drive
// inserts for files it cannot virus-scan.
type GoogleDriveExtractor struct {
	client     *http.Client
	exportBase string
}

// NewGoogleDriveExtractor creates a Google Drive extractor
func NewGoogleDriveExtractor() *GoogleDriveExtractor {
	return &GoogleDriveExtractor{
		client:     &http.Client{Timeout: 30 * time.Second},
		exportBase: gdriveExportURL,
	}
}

// Supports reports whether the extractor understands this variant
func (e *GoogleDriveExtractor) Supports(variant domain.ServiceVariant) bool {
	return variant == domain.VariantGoogleDrive
}

const gdriveExportURL = "https://docs.google.com/uc?export=download"

// ExtractDirectURL builds the export URL for the file ID. When Drive
// answers with a download_warning cookie the confirm token is appended so
// the follow-up fetch gets the actual bytes.
func (e *GoogleDriveExtractor) ExtractDirectURL(ctx context.Context, link *domain.ParsedLink) (string, error) {
	direct := e.exportBase + "&id=" + url.QueryEscape(link.ObjectID)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, direct, nil)
	if err != nil {
		return "", domain.WrapError(domain.ErrorFatal, "failed to create request", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", domain.WrapError(domain.ErrorCancelled, "extraction cancelled", ctx.Err())
		}
		return "", domain.WrapError(domain.ErrorRetryable, "drive probe failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", domain.NewError(domain.ErrorFatal, "drive file not found")
	}

	if token := confirmToken(resp.Cookies()); token != "" {
		direct += "&confirm=" + url.QueryEscape(token)
	}
	return direct, nil
}

// confirmToken finds the download_warning cookie Drive sets on large files
func confirmToken(cookies []*http.Cookie) string {
	for _, c := range cookies {
		if strings.HasPrefix(c.Name, "download_warning") {
			return c.Value
		}
	}
	return ""
}

// fetchDocument GETs a page and parses it, mapping status codes onto the
// engine's error taxonomy.
func fetchDocument(ctx context.Context, client *http.Client, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorFatal, "failed to create request", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.WrapError(domain.ErrorCancelled, "extraction cancelled", ctx.Err())
		}
		return nil, domain.WrapError(domain.ErrorRetryable, "page fetch failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, domain.NewError(domain.ErrorFatal, fmt.Sprintf("page gone: HTTP %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.NewError(domain.ErrorRetryable, "rate limited while scraping").
			WithRetryAfter(retryAfter(resp))
	case resp.StatusCode >= 500:
		return nil, domain.NewError(domain.ErrorRetryable, fmt.Sprintf("server error: HTTP %d", resp.StatusCode))
	default:
		return nil, domain.NewError(domain.ErrorFatal, fmt.Sprintf("unexpected status: HTTP %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorRetryable, "failed to parse page", err)
	}
	return doc, nil
}
