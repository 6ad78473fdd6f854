// Package scrape drives the listing scrape pipeline: paginate, fetch,
// parse, optionally download, and persist.
package scrape

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/housingdocs/tribunal-scraper/internal/download"
	"github.com/housingdocs/tribunal-scraper/internal/listing"
	"github.com/housingdocs/tribunal-scraper/internal/progress"
	"github.com/housingdocs/tribunal-scraper/internal/scraper"
	"github.com/housingdocs/tribunal-scraper/internal/store"
)

// Config bounds one scrape run.
type Config struct {
	BaseURL   string
	Template  scraper.PageTemplate
	StartPage int
	MaxPages  int
}

func (c Config) withDefaults() Config {
	if c.StartPage <= 0 {
		c.StartPage = 1
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 5
	}
	return c
}

// Driver walks listing pages sequentially. Pages are processed one at
// a time, in order: records from page N are persisted before page N+1
// is fetched.
type Driver struct {
	fetcher   scraper.Fetcher
	parser    *listing.Parser
	downloads *download.Manager
	docs      store.DocumentStore
	reporter  *progress.Reporter
	logger    *zap.Logger
	cfg       Config
}

// New builds a Driver. downloads may be nil (metadata-only scrape) and
// docs may be nil (dry run without persistence).
func New(
	fetcher scraper.Fetcher,
	parser *listing.Parser,
	downloads *download.Manager,
	docs store.DocumentStore,
	reporter *progress.Reporter,
	cfg Config,
	logger *zap.Logger,
) (*Driver, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if parser == nil {
		return nil, fmt.Errorf("parser is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if reporter == nil {
		reporter = progress.NewReporter(logger, 0)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	return &Driver{
		fetcher:   fetcher,
		parser:    parser,
		downloads: downloads,
		docs:      docs,
		reporter:  reporter,
		logger:    logger,
		cfg:       cfg.withDefaults(),
	}, nil
}

// Run scrapes up to MaxPages listing pages and returns the run
// totals. A fetch failure on the first page terminates the run; on a
// later page it ends the run early while preserving everything
// already persisted.
func (d *Driver) Run(ctx context.Context) (progress.Totals, error) {
	var totals progress.Totals

	for offset := 0; offset < d.cfg.MaxPages; offset++ {
		if ctx.Err() != nil {
			return totals, ctx.Err()
		}
		page := d.cfg.StartPage + offset
		pageURL := scraper.PageURL(d.cfg.BaseURL, d.cfg.Template, page)

		resp, err := d.fetcher.Fetch(ctx, scraper.FetchRequest{URL: pageURL})
		if err != nil {
			if offset == 0 {
				return totals, fmt.Errorf("fetch first listing page: %w", err)
			}
			// Keep everything yielded from prior pages.
			d.logger.Error("page fetch failed, ending run early",
				zap.Int("page", page),
				zap.Error(err),
			)
			totals.Errors++
			d.reporter.Final(totals)
			return totals, nil
		}

		result := d.parser.ParseListing(resp.Body, pageURL)
		totals.Pages++
		if len(result.Records) == 0 {
			break
		}

		pageTotals, err := d.processPage(ctx, result.Records)
		if err != nil {
			return totals, err
		}
		d.reporter.PageDone(page, pageTotals)
		totals.Add(pageTotals)

		if !result.HasMore {
			break
		}
	}

	d.reporter.Final(totals)
	return totals, nil
}

func (d *Driver) processPage(ctx context.Context, records []scraper.ListingRecord) (progress.Totals, error) {
	var t progress.Totals
	t.Records = len(records)

	rows := make([]store.DocumentRow, 0, len(records))
	for _, rec := range records {
		row := d.buildRow(rec)
		if d.downloads != nil {
			d.attachBinary(ctx, &row, rec.PDFURL, &t)
		}
		rows = append(rows, row)
	}

	if d.docs != nil {
		inserted, conflicted, err := d.docs.UpsertDocuments(ctx, rows)
		if err != nil {
			return t, fmt.Errorf("persist page records: %w", err)
		}
		t.RowsInserted = inserted
		t.RowsConflicted = conflicted
	}
	return t, nil
}

// attachBinary downloads best effort: a failed download leaves the
// binary-reference fields nil and metadata persistence proceeds.
func (d *Driver) attachBinary(ctx context.Context, row *store.DocumentRow, pdfURL string, t *progress.Totals) {
	result, err := d.downloads.Download(ctx, pdfURL)
	if err != nil {
		d.logger.Warn("pdf download failed, persisting metadata only",
			zap.String("url", pdfURL),
			zap.Error(err),
		)
		t.Errors++
		return
	}
	now := time.Now().UTC()
	filename := path.Base(result.Path)
	row.SHA256 = &result.SHA256
	row.Bytes = &result.Bytes
	row.MIME = &result.MIME
	row.Filename = &filename
	row.DownloadedAt = &now
	if result.BlobURL != "" {
		row.BlobURL = &result.BlobURL
	}
	if !result.Existing {
		t.PDFsDownloaded++
	}
}

func (d *Driver) buildRow(rec scraper.ListingRecord) store.DocumentRow {
	metadata := map[string]string{
		"title":       rec.Title,
		"listing_url": rec.ListingURL,
	}
	for k, v := range rec.Metadata {
		metadata[k] = v
	}

	row := store.DocumentRow{
		CaseRef:      rec.CaseID,
		PDFURL:       rec.PDFURL,
		DecisionDate: rec.DecisionDate,
		Tribunal:     rec.Tribunal,
		Metadata:     metadata,
	}
	if name := urlBasename(rec.PDFURL); name != "" {
		row.Filename = &name
	}
	return row
}

func urlBasename(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
