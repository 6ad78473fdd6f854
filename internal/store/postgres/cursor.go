package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Load reads the named cursor, returning 0 when no cursor row exists
// yet (a fresh run starts from the beginning of the cases table).
func (s *Store) Load(ctx context.Context, name string) (int64, error) {
	query := fmt.Sprintf(`SELECT last_seen_id FROM %s WHERE name = $1`, s.cursors)

	var lastID int64
	err := s.pool.QueryRow(ctx, query, name).Scan(&lastID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load cursor %s: %w", name, err)
	}
	return lastID, nil
}

// Save records the last processed case ID for the named cursor. The
// walker calls this only after a batch fully commits, so the stored
// value is monotonically non-decreasing across successful runs.
func (s *Store) Save(ctx context.Context, name string, lastID int64) error {
	query := fmt.Sprintf(`
INSERT INTO %s (name, last_seen_id, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (name)
DO UPDATE SET last_seen_id = EXCLUDED.last_seen_id, updated_at = NOW()`, s.cursors)

	if _, err := s.pool.Exec(ctx, query, name, lastID); err != nil {
		return fmt.Errorf("save cursor %s: %w", name, err)
	}
	return nil
}
