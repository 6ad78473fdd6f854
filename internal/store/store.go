// Package store defines the persistence interfaces for documents,
// cases, and progress cursors. Interfaces live here, decoupled from
// the Postgres implementation, so the pipeline and walker can be
// tested against fakes.
package store

import (
	"context"
	"time"
)

// UpsertOutcome reports what a document upsert did. A duplicate PDF
// URL is a defined no-op outcome, never an error.
type UpsertOutcome int

const (
	// Inserted means a new row was written.
	Inserted UpsertOutcome = iota
	// Conflicted means the PDF URL already existed and the row was
	// left untouched.
	Conflicted
)

// DocumentRow is the persisted form of a discovered tribunal PDF.
// PDF URL is the uniqueness key; everything else is best effort.
type DocumentRow struct {
	ID                   string
	CaseID               *int64
	CaseRef              *string
	PDFURL               string
	SHA256               *string
	Bytes                *int64
	MIME                 *string
	BlobURL              *string
	Filename             *string
	DecisionDate         *time.Time
	Tribunal             string
	DocumentType         *string
	ClassificationMethod *string
	Metadata             map[string]string
	DownloadedAt         *time.Time
}

// CaseRow is one row of the re-scrape source table.
type CaseRow struct {
	ID          int64
	Slug        string
	HTMLURL     string
	PDFCaptured bool
}

// CaseMeta carries the refreshed metadata written back to a cases row
// during a re-scrape.
type CaseMeta struct {
	Title        string
	Category     string
	Subcategory  string
	Published    string
	DecisionDate string
}

// DocumentStore persists document rows idempotently.
type DocumentStore interface {
	// UpsertDocument inserts row unless its PDF URL already exists.
	UpsertDocument(ctx context.Context, row DocumentRow) (UpsertOutcome, error)
	// UpsertDocuments batches a page's worth of rows; each row's
	// conflict outcome is independent.
	UpsertDocuments(ctx context.Context, rows []DocumentRow) (inserted, conflicted int, err error)
	// CountDocuments returns the current row count.
	CountDocuments(ctx context.Context) (int64, error)
}

// CaseStore reads and refreshes the cases table.
type CaseStore interface {
	// NextBatch returns up to limit cases with ID greater than
	// afterID, in ascending ID order.
	NextBatch(ctx context.Context, afterID int64, limit int) ([]CaseRow, error)
	// UpsertCaseMeta refreshes a case's metadata, reporting whether
	// the row was created or updated.
	UpsertCaseMeta(ctx context.Context, slug, htmlURL string, meta CaseMeta) (id int64, created bool, err error)
	// CountCases returns the current row count.
	CountCases(ctx context.Context) (int64, error)
}

// CursorStore persists named progress markers. The walker is the sole
// writer of its cursor; concurrent runs against the same name are
// prevented operationally, not here.
type CursorStore interface {
	// Load returns the last processed case ID for name, or 0 when the
	// cursor does not exist yet.
	Load(ctx context.Context, name string) (int64, error)
	// Save records lastID for name, creating the row when needed.
	Save(ctx context.Context, name string, lastID int64) error
}
