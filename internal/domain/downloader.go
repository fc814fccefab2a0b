package domain

import (
	"context"
	"io"
	"time"

	"github.com/yourusername/obidl-go/pkg/progress"
)

// Strategy is one concrete way of retrieving the bytes behind a link.
// Implementations fetch to a path inside destDir (the exact filename may be
// inferred from the resource) and push samples into the reporter. They
// return the attempt record rather than a bare error so the policy layer
// can tell retryable from fatal failures.
type Strategy interface {
	// Kind returns the strategy's retrieval method
	Kind() StrategyKind

	// Supports reports whether the strategy can handle the given variant
	Supports(variant ServiceVariant) bool

	// Attempt fetches the link once. Resume state from a previous attempt,
	// if any, is carried in prior (zero value for a fresh start).
	Attempt(ctx context.Context, link *ParsedLink, destDir string, reporter progress.Reporter, prior StrategyAttempt) StrategyAttempt
}

// Credential is the abstract authentication contract. An empty Identity
// means anonymous access is attempted.
type Credential struct {
	Identity string
	Secret   string
}

// IsAnonymous reports whether no identity was supplied
func (c Credential) IsAnonymous() bool {
	return c.Identity == ""
}

// ToolResult is the captured outcome of one external tool invocation
type ToolResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ToolRunner executes external download binaries. The engine treats the
// tool purely as input: exit code and output streams.
type ToolRunner interface {
	Run(ctx context.Context, argv []string, workDir string, timeout time.Duration) (ToolResult, error)
}

// ByteRange asks a transport to start the body at Offset. A zero value
// means fetch from the beginning.
type ByteRange struct {
	Offset int64
}

// FetchResult is an open, possibly resumed response body
type FetchResult struct {
	Body io.ReadCloser
	// TotalLength is the full resource size, or -1 when unknown
	TotalLength int64
	// Resumed is true when the server honored the requested byte range
	Resumed bool
	// Filename inferred from Content-Disposition or the URL, may be empty
	Filename string
}

// Transport performs protocol-level retrieval for the protocol-client and
// page-scrape strategies.
type Transport interface {
	// Fetch opens the resource, optionally resuming from rng.Offset when
	// the server advertises range support.
	Fetch(ctx context.Context, url string, headers map[string]string, rng ByteRange) (*FetchResult, error)
}

// DirectURLExtractor digs the direct download URL out of a landing page
type DirectURLExtractor interface {
	// Supports reports whether the extractor understands this variant
	Supports(variant ServiceVariant) bool

	// ExtractDirectURL returns the direct URL for the linked resource,
	// or an error when the page structure did not match.
	ExtractDirectURL(ctx context.Context, link *ParsedLink) (string, error)
}

// DownloadRepository persists download history records
type DownloadRepository interface {
	Create(download *Download) error
	Update(download *Download) error
	FindByID(id string) (*Download, error)
	FindAll(filters map[string]interface{}) ([]*Download, error)
	Count() (int64, error)
	CountByStatus(status DownloadStatus) (int64, error)
}
