// Package postgres provides pgx-backed implementations of the store
// interfaces.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// DB is the subset of pgxpool.Pool the stores use. pgxmock satisfies
// it for tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Close()
}

// Config controls the Postgres connection pool and table names.
type Config struct {
	DSN             string
	DocumentsTable  string
	CasesTable      string
	CursorsTable    string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

func (c Config) withDefaults() Config {
	if c.DocumentsTable == "" {
		c.DocumentsTable = "documents"
	}
	if c.CasesTable == "" {
		c.CasesTable = "cases"
	}
	if c.CursorsTable == "" {
		c.CursorsTable = "cursors"
	}
	return c
}

func (c Config) validate() error {
	for _, table := range []string{c.DocumentsTable, c.CasesTable, c.CursorsTable} {
		if !validTableName.MatchString(table) {
			return fmt.Errorf("invalid table name %q", table)
		}
	}
	return nil
}

// Store implements store.DocumentStore, store.CaseStore, and
// store.CursorStore against one connection pool.
type Store struct {
	pool      DB
	documents string
	cases     string
	cursors   string
}

// New connects to Postgres using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{
		pool:      pool,
		documents: cfg.DocumentsTable,
		cases:     cfg.CasesTable,
		cursors:   cfg.CursorsTable,
	}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewWithPool(pool DB, cfg Config) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Store{
		pool:      pool,
		documents: cfg.DocumentsTable,
		cases:     cfg.CasesTable,
		cursors:   cfg.CursorsTable,
	}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}
