package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/obidl-go/internal/domain"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) obidl/1.0"

// HTTPTransport implements domain.Transport over net/http with support for
// resuming from a byte offset when the server honors Range requests.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport. Transfers can be large, so the
// client carries no overall timeout; cancellation comes from the context.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 2 * time.Minute,
			},
		},
	}
}

// Fetch opens the resource. Status codes map onto the engine's error
// taxonomy: 429 and 5xx are retryable (with the Retry-After hint when the
// server sends one), 404/410 are fatal.
func (t *HTTPTransport) Fetch(ctx context.Context, url string, headers map[string]string, rng domain.ByteRange) (*domain.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorFatal, "failed to create request", err)
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if rng.Offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", rng.Offset))
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.WrapError(domain.ErrorCancelled, "fetch cancelled", ctx.Err())
		}
		return nil, domain.WrapError(domain.ErrorRetryable, "network error", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusPartialContent:
	case resp.StatusCode == http.StatusTooManyRequests:
		hint := retryAfter(resp)
		resp.Body.Close()
		return nil, domain.NewError(domain.ErrorRetryable,
			fmt.Sprintf("rate limited by %s", req.URL.Host)).WithRetryAfter(hint)
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, domain.NewError(domain.ErrorFatal,
			fmt.Sprintf("resource gone: HTTP %d", resp.StatusCode))
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		return nil, domain.NewError(domain.ErrorFatal,
			fmt.Sprintf("access denied: HTTP %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, domain.NewError(domain.ErrorRetryable,
			fmt.Sprintf("server error: HTTP %d", resp.StatusCode))
	default:
		resp.Body.Close()
		return nil, domain.NewError(domain.ErrorFatal,
			fmt.Sprintf("unexpected status: HTTP %d", resp.StatusCode))
	}

	result := &domain.FetchResult{
		Body:        resp.Body,
		TotalLength: totalLength(resp),
		Resumed:     resp.StatusCode == http.StatusPartialContent,
		Filename:    domain.FilenameFromHeaders(url, resp.Header.Get("Content-Disposition")),
	}

	return result, nil
}

// totalLength derives the full resource size from Content-Range for
// partial responses, or Content-Length otherwise; -1 when unknown.
func totalLength(resp *http.Response) int64 {
	if resp.StatusCode == http.StatusPartialContent {
		// Content-Range: bytes <start>-<end>/<total>
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			if idx := strings.LastIndex(cr, "/"); idx >= 0 {
				if total, err := strconv.ParseInt(cr[idx+1:], 10, 64); err == nil {
					return total
				}
			}
		}
		return -1
	}
	if resp.ContentLength >= 0 {
		return resp.ContentLength
	}
	return -1
}

// retryAfter parses the Retry-After header, in seconds form only
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
