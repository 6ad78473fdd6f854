package postgres

import (
	"context"
	"fmt"

	"github.com/housingdocs/tribunal-scraper/internal/store"
)

// NextBatch returns up to limit cases with ID greater than afterID,
// ordered by ID. Keyset pagination keeps the cursor unambiguous: the
// walker resumes strictly after the last processed row.
func (s *Store) NextBatch(ctx context.Context, afterID int64, limit int) ([]store.CaseRow, error) {
	query := fmt.Sprintf(`
SELECT id, slug, html_url, COALESCE(pdf_captured, FALSE)
FROM %s
WHERE id > $1
ORDER BY id
LIMIT $2`, s.cases)

	rows, err := s.pool.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("select case batch: %w", err)
	}
	defer rows.Close()

	var batch []store.CaseRow
	for rows.Next() {
		var row store.CaseRow
		if err := rows.Scan(&row.ID, &row.Slug, &row.HTMLURL, &row.PDFCaptured); err != nil {
			return nil, fmt.Errorf("scan case row: %w", err)
		}
		batch = append(batch, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case rows: %w", err)
	}
	return batch, nil
}

// UpsertCaseMeta refreshes a case's metadata. Unlike documents, cases
// rows are overwritten with the freshest values; (xmax = 0) reports
// whether the row was newly created.
func (s *Store) UpsertCaseMeta(ctx context.Context, slug, htmlURL string, meta store.CaseMeta) (int64, bool, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (slug, html_url, title, category, subcategory, published_at, decision_date, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
ON CONFLICT (slug)
DO UPDATE SET
	html_url = EXCLUDED.html_url,
	title = EXCLUDED.title,
	category = EXCLUDED.category,
	subcategory = EXCLUDED.subcategory,
	published_at = EXCLUDED.published_at,
	decision_date = EXCLUDED.decision_date,
	updated_at = NOW()
RETURNING id, (xmax = 0) AS inserted`, s.cases)

	var (
		id      int64
		created bool
	)
	err := s.pool.QueryRow(ctx, query,
		slug,
		htmlURL,
		meta.Title,
		meta.Category,
		meta.Subcategory,
		meta.Published,
		meta.DecisionDate,
	).Scan(&id, &created)
	if err != nil {
		return 0, false, fmt.Errorf("upsert case %s: %w", slug, err)
	}
	return id, created, nil
}

// CountCases returns the number of rows in the cases table.
func (s *Store) CountCases(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.cases)
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	return count, nil
}
