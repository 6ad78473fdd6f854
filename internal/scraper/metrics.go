package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalRequests tracks the number of HTTP requests dispatched.
	TotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_requests_total",
		Help: "The total number of HTTP requests sent.",
	})
	// TotalRequestErrors tracks requests that resulted in an error.
	TotalRequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_request_errors_total",
		Help: "The total number of failed HTTP requests.",
	})
	// TotalRateLimitHits tracks HTTP 429 responses from the tribunal site.
	TotalRateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_rate_limit_hits_total",
		Help: "The total number of times the scraper was rate limited.",
	})
	// TotalPDFDownloads tracks PDF binaries fetched and stored.
	TotalPDFDownloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_pdf_downloads_total",
		Help: "The total number of PDF documents downloaded.",
	})
	// TotalRowsInserted tracks document rows newly inserted.
	TotalRowsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_rows_inserted_total",
		Help: "The total number of document rows inserted.",
	})
	// TotalRowsConflicted tracks upserts that no-oped on a duplicate PDF URL.
	TotalRowsConflicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_rows_conflicted_total",
		Help: "The total number of document upserts skipped as duplicates.",
	})
)
