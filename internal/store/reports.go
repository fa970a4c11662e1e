// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zidariuandrei/tane/pkg/types"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveReport inserts the report for r.SeedID, replacing any existing one.
// Reports with blank content are rejected with ErrEmptyReport.
func (s *Store) SaveReport(ctx context.Context, r types.Report) error {
	return s.saveReport(ctx, s.db, r)
}

// CompleteSeed stores the report and marks its seed completed in one
// transaction, so a report never exists without a completed seed. Returns
// ErrNotFound when the seed does not exist.
func (s *Store) CompleteSeed(ctx context.Context, r types.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE seeds SET status = 'completed', updated_at = ? WHERE id = ?`,
		s.now().UnixMilli(), r.SeedID)
	if err != nil {
		return fmt.Errorf("marking seed %s completed: %w", r.SeedID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := s.saveReport(ctx, tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) saveReport(ctx context.Context, db execer, r types.Report) error {
	if strings.TrimSpace(r.Content) == "" {
		return ErrEmptyReport
	}

	var logs sql.NullString
	if len(r.Logs) > 0 {
		data, err := json.Marshal(r.Logs)
		if err != nil {
			return fmt.Errorf("encoding report logs: %w", err)
		}
		logs = sql.NullString{String: string(data), Valid: true}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO reports (seed_id, content, logs, model, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(seed_id) DO UPDATE SET
			content = excluded.content,
			logs = excluded.logs,
			model = excluded.model,
			updated_at = excluded.updated_at`,
		r.SeedID, r.Content, logs, nullString(r.Model), s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving report for %s: %w", r.SeedID, err)
	}
	return nil
}

// Report returns the report for seedID, or ErrNotFound.
func (s *Store) Report(ctx context.Context, seedID string) (types.Report, error) {
	var (
		r         types.Report
		logs      sql.NullString
		model     sql.NullString
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT seed_id, content, logs, model, updated_at FROM reports WHERE seed_id = ?`,
		seedID).Scan(&r.SeedID, &r.Content, &logs, &model, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Report{}, ErrNotFound
	}
	if err != nil {
		return types.Report{}, fmt.Errorf("loading report for %s: %w", seedID, err)
	}

	r.Model = model.String
	r.UpdatedAt = fromMillis(updatedAt)
	r.Logs = decodeLogs(logs)
	return r, nil
}

// decodeLogs reads the logs column. Older rows may hold plain text instead of
// a JSON array; that text becomes a single entry.
func decodeLogs(raw sql.NullString) []string {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil
	}
	var logs []string
	if err := json.Unmarshal([]byte(raw.String), &logs); err != nil {
		return []string{raw.String}
	}
	return logs
}
