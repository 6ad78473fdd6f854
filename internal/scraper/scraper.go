// Package scraper defines the core types and interfaces shared by the
// tribunal scraping pipeline: fetch requests and responses, listing
// records, download results, and page URL templating.
package scraper

import (
	"context"
	"net/http"
	"time"
)

// FetchRequest describes one HTTP GET to perform.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse carries the outcome of a fetch attempt.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Fetcher performs a single HTTP GET. Implementations are stateless
// across invocations except for connection reuse; retry policy is
// layered on top by the retrying fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResponse, error)
}

// ListingRecord is one extracted entry from a tribunal listing page.
// CaseID and DecisionDate are best-effort and may be nil; PDFURL is
// required and always absolute.
type ListingRecord struct {
	CaseID       *string
	Title        string
	PDFURL       string
	DecisionDate *time.Time
	ListingURL   string
	Tribunal     string
	Metadata     map[string]string
}

// PageResult holds the records extracted from one listing page and
// whether the markup advertised a further page.
type PageResult struct {
	Records []ListingRecord
	HasMore bool
}

// DownloadResult describes a fetched PDF binary. Path is derived from
// the checksum, so identical content always lands on the same path.
type DownloadResult struct {
	URL      string
	SHA256   string
	Path     string
	Bytes    int64
	MIME     string
	BlobURL  string
	Existing bool
}
