package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/housingdocs/tribunal-scraper/internal/scraper"
	"github.com/housingdocs/tribunal-scraper/internal/store"
)

const documentColumns = `id, case_id, case_ref, pdf_url, sha256, bytes, mime, blob_url, filename,
	decision_date, tribunal, document_type, classification_method, metadata, downloaded_at, inserted_at`

func (s *Store) insertDocumentSQL() string {
	return fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,NOW())
ON CONFLICT (pdf_url) DO NOTHING`, s.documents, documentColumns)
}

func documentArgs(row store.DocumentRow) ([]any, error) {
	id := row.ID
	if id == "" {
		id = uuid.NewString()
	}
	metadata, err := json.Marshal(row.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return []any{
		id,
		row.CaseID,
		row.CaseRef,
		row.PDFURL,
		row.SHA256,
		row.Bytes,
		row.MIME,
		row.BlobURL,
		row.Filename,
		row.DecisionDate,
		row.Tribunal,
		row.DocumentType,
		row.ClassificationMethod,
		metadata,
		row.DownloadedAt,
	}, nil
}

// UpsertDocument inserts a document row, treating a duplicate PDF URL
// as a no-op. The existing row always wins.
func (s *Store) UpsertDocument(ctx context.Context, row store.DocumentRow) (store.UpsertOutcome, error) {
	if row.PDFURL == "" {
		return store.Conflicted, fmt.Errorf("pdf url is required")
	}
	args, err := documentArgs(row)
	if err != nil {
		return store.Conflicted, err
	}
	tag, err := s.pool.Exec(ctx, s.insertDocumentSQL(), args...)
	if err != nil {
		return store.Conflicted, fmt.Errorf("insert document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		scraper.TotalRowsConflicted.Inc()
		return store.Conflicted, nil
	}
	scraper.TotalRowsInserted.Inc()
	return store.Inserted, nil
}

// UpsertDocuments writes a page's worth of rows in one batch. Conflict
// outcomes stay independent per row.
func (s *Store) UpsertDocuments(ctx context.Context, rows []store.DocumentRow) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}

	batch := &pgx.Batch{}
	sql := s.insertDocumentSQL()
	for _, row := range rows {
		if row.PDFURL == "" {
			return 0, 0, fmt.Errorf("pdf url is required")
		}
		args, err := documentArgs(row)
		if err != nil {
			return 0, 0, err
		}
		batch.Queue(sql, args...)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	inserted, conflicted := 0, 0
	for range rows {
		tag, err := results.Exec()
		if err != nil {
			return inserted, conflicted, fmt.Errorf("batch insert document: %w", err)
		}
		if tag.RowsAffected() == 0 {
			conflicted++
			scraper.TotalRowsConflicted.Inc()
		} else {
			inserted++
			scraper.TotalRowsInserted.Inc()
		}
	}
	return inserted, conflicted, nil
}

// CountDocuments returns the number of rows in the documents table.
func (s *Store) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.documents)
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}
