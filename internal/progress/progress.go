// Package progress accumulates run counters and renders the
// human-readable progress output of scrape and re-scrape runs.
package progress

import (
	"time"

	"go.uber.org/zap"
)

// Totals is the set of counters a run reports. Page- and batch-level
// totals are merged into run totals with Add.
type Totals struct {
	Pages          int
	Records        int
	PDFsDownloaded int
	RowsInserted   int
	RowsConflicted int
	CasesCreated   int
	CasesUpdated   int
	Skipped        int
	Errors         int
}

// Add merges other into t.
func (t *Totals) Add(other Totals) {
	t.Pages += other.Pages
	t.Records += other.Records
	t.PDFsDownloaded += other.PDFsDownloaded
	t.RowsInserted += other.RowsInserted
	t.RowsConflicted += other.RowsConflicted
	t.CasesCreated += other.CasesCreated
	t.CasesUpdated += other.CasesUpdated
	t.Skipped += other.Skipped
	t.Errors += other.Errors
}

// Reporter logs progress in the style of the prior ingestion jobs:
// one line per page/batch, a periodic rollup, and a final summary.
type Reporter struct {
	logger      *zap.Logger
	started     time.Time
	reportEvery int
}

// NewReporter builds a Reporter; the periodic rollup fires every
// reportEvery batches (10 when zero).
func NewReporter(logger *zap.Logger, reportEvery int) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reportEvery <= 0 {
		reportEvery = 10
	}
	return &Reporter{
		logger:      logger,
		started:     time.Now(),
		reportEvery: reportEvery,
	}
}

// PageDone logs the outcome of one listing page.
func (r *Reporter) PageDone(page int, t Totals) {
	r.logger.Info("page processed",
		zap.Int("page", page),
		zap.Int("records", t.Records),
		zap.Int("downloaded", t.PDFsDownloaded),
		zap.Int("inserted", t.RowsInserted),
		zap.Int("duplicates", t.RowsConflicted),
		zap.Int("errors", t.Errors),
	)
}

// BatchDone logs the outcome of one re-scrape batch and, every
// reportEvery batches, a running rollup.
func (r *Reporter) BatchDone(batch int, batchTotals, runTotals Totals, elapsed time.Duration) {
	r.logger.Info("batch processed",
		zap.Int("batch", batch),
		zap.Int("created", batchTotals.CasesCreated),
		zap.Int("updated", batchTotals.CasesUpdated),
		zap.Int("documents", batchTotals.RowsInserted),
		zap.Int("skipped", batchTotals.Skipped),
		zap.Duration("took", elapsed),
	)
	if batch%r.reportEvery == 0 {
		elapsedMin := time.Since(r.started).Minutes()
		rate := 0.0
		if elapsedMin > 0 {
			rate = float64(runTotals.Records) / elapsedMin
		}
		r.logger.Info("progress report",
			zap.Int("batches", batch),
			zap.Int("cases_created", runTotals.CasesCreated),
			zap.Int("cases_updated", runTotals.CasesUpdated),
			zap.Int("new_documents", runTotals.RowsInserted),
			zap.Int("errors", runTotals.Errors),
			zap.Float64("elapsed_minutes", elapsedMin),
			zap.Float64("cases_per_minute", rate),
		)
	}
}

// Final logs the end-of-run summary.
func (r *Reporter) Final(t Totals, fields ...zap.Field) {
	all := append([]zap.Field{
		zap.Int("pages", t.Pages),
		zap.Int("records", t.Records),
		zap.Int("downloaded", t.PDFsDownloaded),
		zap.Int("inserted", t.RowsInserted),
		zap.Int("duplicates", t.RowsConflicted),
		zap.Int("skipped", t.Skipped),
		zap.Int("errors", t.Errors),
		zap.Duration("elapsed", time.Since(r.started)),
	}, fields...)
	r.logger.Info("run complete", all...)
}
