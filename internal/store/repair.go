// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/zidariuandrei/tane/pkg/types"
)

// RepairSummary reports what Repair changed.
type RepairSummary struct {
	// EmptyReports counts reports deleted because their content was blank.
	EmptyReports int `json:"empty_reports"`

	// MissingReports counts completed seeds that had no report.
	MissingReports int `json:"missing_reports"`

	// DanglingReports counts reports whose seed no longer exists.
	DanglingReports int `json:"dangling_reports"`

	// Reset lists the seeds returned to pending.
	Reset []string `json:"reset"`
}

// Changed reports whether the pass modified anything.
func (r RepairSummary) Changed() bool {
	return r.EmptyReports+r.MissingReports+r.DanglingReports > 0
}

// Repair fixes the data-integrity defects that interrupted runs can leave
// behind. Blank reports are deleted and their seeds reset to pending;
// completed seeds without a report are reset to pending; reports whose seed
// is gone are deleted.
func (s *Store) Repair(ctx context.Context) (RepairSummary, error) {
	var summary RepairSummary

	empty, err := s.selectIDs(ctx, sq.Select("seed_id").
		From("reports").
		Where(sq.Expr("TRIM(COALESCE(content, '')) = ''")))
	if err != nil {
		return summary, fmt.Errorf("finding empty reports: %w", err)
	}

	missing, err := s.selectIDs(ctx, sq.Select("id").
		From("seeds").
		Where(sq.Eq{"status": string(types.StatusCompleted)}).
		Where("id NOT IN (SELECT seed_id FROM reports)"))
	if err != nil {
		return summary, fmt.Errorf("finding completed seeds without reports: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UnixMilli()
	reset := func(id string) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE seeds SET status = 'pending', updated_at = ? WHERE id = ?`, now, id)
		if err != nil {
			return fmt.Errorf("resetting seed %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			summary.Reset = append(summary.Reset, id)
		}
		return nil
	}

	for _, id := range empty {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE seed_id = ?`, id); err != nil {
			return summary, fmt.Errorf("deleting empty report %s: %w", id, err)
		}
		if err := reset(id); err != nil {
			return summary, err
		}
	}
	summary.EmptyReports = len(empty)

	for _, id := range missing {
		if err := reset(id); err != nil {
			return summary, err
		}
	}
	summary.MissingReports = len(missing)

	res, err := tx.ExecContext(ctx,
		`DELETE FROM reports WHERE seed_id NOT IN (SELECT id FROM seeds)`)
	if err != nil {
		return summary, fmt.Errorf("deleting dangling reports: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		summary.DanglingReports = int(n)
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("committing repair: %w", err)
	}
	return summary, nil
}

func (s *Store) selectIDs(ctx context.Context, q sq.SelectBuilder) ([]string, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
