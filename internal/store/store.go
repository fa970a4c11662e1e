// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists seeds and their research reports in SQLite.
//
// The store is the only shared state between the web handlers, the nursery
// poller, and the gardener. Every write is a single statement or a short
// transaction; SQLite in WAL mode with a busy timeout serialises concurrent
// writers.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/zidariuandrei/tane/pkg/types"
)

var (
	// ErrNotFound is returned when a seed or report does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmptyContent is returned when planting a seed with blank idea text.
	ErrEmptyContent = errors.New("seed content is empty")

	// ErrEmptyReport is returned when saving a report with blank content.
	ErrEmptyReport = errors.New("report content is empty")
)

const (
	defaultBusyTimeout = 5 * time.Second
	defaultListLimit   = 50
)

// Store manages the tane SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens or creates the database at cfg.Path, creating the schema and
// adding any columns that older databases lack.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d",
		cfg.Path, busy.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) createSchema() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS seeds (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('pending', 'processing', 'completed', 'failed')),
			model TEXT,
			plant_type TEXT NOT NULL DEFAULT 'pine',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS reports (
			seed_id TEXT PRIMARY KEY REFERENCES seeds(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			logs TEXT,
			model TEXT,
			updated_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range tables {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// Databases written by earlier revisions predate these columns.
	columns := []struct{ table, column, decl string }{
		{"seeds", "model", "TEXT"},
		{"seeds", "plant_type", "TEXT NOT NULL DEFAULT 'pine'"},
		{"seeds", "updated_at", "INTEGER NOT NULL DEFAULT 0"},
		{"reports", "logs", "TEXT"},
		{"reports", "model", "TEXT"},
	}
	for _, c := range columns {
		if err := s.ensureColumn(c.table, c.column, c.decl); err != nil {
			return err
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_seeds_status ON seeds(status)`,
		`CREATE INDEX IF NOT EXISTS idx_seeds_created ON seeds(created_at)`,
	}
	for _, stmt := range indexes {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// ensureColumn adds column to table when it is missing.
func (s *Store) ensureColumn(table, column, decl string) error {
	rows, err := s.db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scanning columns of %s: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading columns of %s: %w", table, err)
	}
	rows.Close()

	if _, err := s.db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl)); err != nil {
		return fmt.Errorf("adding column %s.%s: %w", table, column, err)
	}
	return nil
}

// Counts returns the number of seeds in each status. Statuses with no seeds
// are present with a zero count.
func (s *Store) Counts(ctx context.Context) (map[types.Status]int, error) {
	query, args, err := sq.Select("status", "COUNT(*)").
		From("seeds").
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building count query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("counting seeds: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.Status]int, len(types.Statuses))
	for _, st := range types.Statuses {
		counts[st] = 0
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[types.Status(status)] = n
	}
	return counts, rows.Err()
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
