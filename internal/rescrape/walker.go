// Package rescrape walks the cases table in ID-ordered batches,
// re-fetches each case page, refreshes stored metadata, and captures
// any PDFs discovered since the original scrape. Progress is tracked
// in a named cursor so an interrupted run resumes where it stopped.
package rescrape

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/housingdocs/tribunal-scraper/internal/download"
	"github.com/housingdocs/tribunal-scraper/internal/listing"
	"github.com/housingdocs/tribunal-scraper/internal/progress"
	"github.com/housingdocs/tribunal-scraper/internal/scraper"
	"github.com/housingdocs/tribunal-scraper/internal/store"
)

// DefaultCursorName is the cursor row the walker reads and writes
// unless configured otherwise.
const DefaultCursorName = "rescrape_progress"

// Config bounds one re-scrape run.
type Config struct {
	// CursorName selects the progress cursor row.
	CursorName string
	// BatchSize is the number of cases pulled per keyset query.
	BatchSize int
	// BatchDelay is the pause between batches, keeping request rate
	// polite against the source site.
	BatchDelay time.Duration
	// MaxBatches caps the run when positive; zero walks to the end of
	// the table.
	MaxBatches int
	// ResetCursor starts the walk from the beginning of the table,
	// ignoring any saved cursor.
	ResetCursor bool
}

func (c Config) withDefaults() Config {
	if c.CursorName == "" {
		c.CursorName = DefaultCursorName
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 200
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = 200 * time.Millisecond
	}
	return c
}

// Walker re-processes cases batch by batch. Within a batch, a failing
// case is logged and skipped; the cursor only advances once the whole
// batch has been attempted, so a crash mid-batch replays that batch on
// the next run.
type Walker struct {
	fetcher   scraper.Fetcher
	parser    *listing.Parser
	downloads *download.Manager
	cases     store.CaseStore
	docs      store.DocumentStore
	cursor    store.CursorStore
	reporter  *progress.Reporter
	logger    *zap.Logger
	cfg       Config

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Walker. downloads may be nil for a metadata-only
// refresh; everything else is required.
func New(
	fetcher scraper.Fetcher,
	parser *listing.Parser,
	downloads *download.Manager,
	cases store.CaseStore,
	docs store.DocumentStore,
	cursor store.CursorStore,
	reporter *progress.Reporter,
	cfg Config,
	logger *zap.Logger,
) (*Walker, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if parser == nil {
		return nil, fmt.Errorf("parser is required")
	}
	if cases == nil {
		return nil, fmt.Errorf("case store is required")
	}
	if docs == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if cursor == nil {
		return nil, fmt.Errorf("cursor store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if reporter == nil {
		reporter = progress.NewReporter(logger, 0)
	}
	return &Walker{
		fetcher:   fetcher,
		parser:    parser,
		downloads: downloads,
		cases:     cases,
		docs:      docs,
		cursor:    cursor,
		reporter:  reporter,
		logger:    logger,
		cfg:       cfg.withDefaults(),
		sleep:     sleepCtx,
	}, nil
}

// Walk runs the batch loop until the table is exhausted, MaxBatches is
// reached, or the context is cancelled. Cursor failures terminate the
// run; per-case failures do not.
func (w *Walker) Walk(ctx context.Context) (progress.Totals, error) {
	var totals progress.Totals

	startCases, startDocs := w.snapshotCounts(ctx)

	lastID := int64(0)
	if !w.cfg.ResetCursor {
		var err error
		lastID, err = w.cursor.Load(ctx, w.cfg.CursorName)
		if err != nil {
			return totals, fmt.Errorf("load cursor: %w", err)
		}
	}
	w.logger.Info("re-scrape starting",
		zap.String("cursor", w.cfg.CursorName),
		zap.Int64("after_id", lastID),
		zap.Int("batch_size", w.cfg.BatchSize),
		zap.Int64("cases_in_table", startCases),
		zap.Int64("documents_in_table", startDocs),
	)

	for batch := 1; w.cfg.MaxBatches <= 0 || batch <= w.cfg.MaxBatches; batch++ {
		if err := ctx.Err(); err != nil {
			return totals, err
		}

		rows, err := w.cases.NextBatch(ctx, lastID, w.cfg.BatchSize)
		if err != nil {
			return totals, fmt.Errorf("load batch after id %d: %w", lastID, err)
		}
		if len(rows) == 0 {
			break
		}

		started := time.Now()
		var batchTotals progress.Totals
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return totals, err
			}
			w.processCase(ctx, row, &batchTotals)
		}
		lastID = rows[len(rows)-1].ID

		// The cursor is the resume point; losing it would replay
		// already-processed batches, so a save failure ends the run.
		if err := w.cursor.Save(ctx, w.cfg.CursorName, lastID); err != nil {
			totals.Add(batchTotals)
			return totals, fmt.Errorf("save cursor at id %d: %w", lastID, err)
		}

		totals.Add(batchTotals)
		w.reporter.BatchDone(batch, batchTotals, totals, time.Since(started))

		if len(rows) < w.cfg.BatchSize {
			break
		}
		if err := w.sleep(ctx, w.cfg.BatchDelay); err != nil {
			return totals, err
		}
	}

	endCases, endDocs := w.snapshotCounts(ctx)
	w.reporter.Final(totals,
		zap.Int64("cases_in_table", endCases),
		zap.Int64("documents_in_table", endDocs),
		zap.Int64("documents_added", endDocs-startDocs),
	)
	return totals, nil
}

// processCase re-fetches one case page and writes back whatever it
// yields. Failures mark the case skipped and move on.
func (w *Walker) processCase(ctx context.Context, row store.CaseRow, t *progress.Totals) {
	resp, err := w.fetcher.Fetch(ctx, scraper.FetchRequest{URL: row.HTMLURL})
	if err != nil {
		w.logger.Warn("case page fetch failed",
			zap.Int64("case_id", row.ID),
			zap.String("url", row.HTMLURL),
			zap.Error(err),
		)
		t.Skipped++
		return
	}

	page := w.parser.ParseCasePage(resp.Body, row.HTMLURL)
	t.Records++

	caseID, created, err := w.cases.UpsertCaseMeta(ctx, row.Slug, row.HTMLURL, store.CaseMeta{
		Title:        page.Title,
		Category:     page.Category,
		Subcategory:  page.Subcategory,
		Published:    page.Published,
		DecisionDate: page.DecisionDate,
	})
	if err != nil {
		w.logger.Warn("case metadata refresh failed",
			zap.Int64("case_id", row.ID),
			zap.String("slug", row.Slug),
			zap.Error(err),
		)
		t.Skipped++
		return
	}
	if created {
		t.CasesCreated++
	} else {
		t.CasesUpdated++
	}

	for _, link := range page.PDFs {
		w.captureDocument(ctx, caseID, row, link, t)
	}
}

func (w *Walker) captureDocument(ctx context.Context, caseID int64, row store.CaseRow, link listing.PDFLink, t *progress.Totals) {
	docType := string(link.Type)
	method := link.Method
	docRow := store.DocumentRow{
		CaseID:               &caseID,
		PDFURL:               link.URL,
		Tribunal:             w.parser.Tribunal(),
		DocumentType:         &docType,
		ClassificationMethod: &method,
		Metadata: map[string]string{
			"link_text": link.LinkText,
			"case_url":  row.HTMLURL,
		},
	}

	if w.downloads != nil {
		result, err := w.downloads.Download(ctx, link.URL)
		if err != nil {
			w.logger.Warn("pdf download failed, persisting metadata only",
				zap.Int64("case_id", caseID),
				zap.String("url", link.URL),
				zap.Error(err),
			)
			t.Errors++
		} else {
			now := time.Now().UTC()
			filename := result.SHA256 + ".pdf"
			docRow.SHA256 = &result.SHA256
			docRow.Bytes = &result.Bytes
			docRow.MIME = &result.MIME
			docRow.Filename = &filename
			docRow.DownloadedAt = &now
			if result.BlobURL != "" {
				docRow.BlobURL = &result.BlobURL
			}
			if !result.Existing {
				t.PDFsDownloaded++
			}
		}
	}

	outcome, err := w.docs.UpsertDocument(ctx, docRow)
	if err != nil {
		w.logger.Warn("document upsert failed",
			zap.Int64("case_id", caseID),
			zap.String("url", link.URL),
			zap.Error(err),
		)
		t.Errors++
		return
	}
	if outcome == store.Inserted {
		t.RowsInserted++
	} else {
		t.RowsConflicted++
	}
}

func (w *Walker) snapshotCounts(ctx context.Context) (cases, docs int64) {
	var err error
	if cases, err = w.cases.CountCases(ctx); err != nil {
		w.logger.Debug("case count unavailable", zap.Error(err))
	}
	if docs, err = w.docs.CountDocuments(ctx); err != nil {
		w.logger.Debug("document count unavailable", zap.Error(err))
	}
	return cases, docs
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
