// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/zidariuandrei/tane/pkg/types"
)

const seedColumns = "id, content, status, model, plant_type, created_at, updated_at"

// ListOptions filters ListSeeds.
type ListOptions struct {
	// Status restricts the listing to one status. Empty lists all seeds.
	Status types.Status

	// Limit caps the number of seeds returned. Zero means 50.
	Limit int
}

// PlantSeed stores a new pending seed. Content is trimmed and must not be
// empty; model is the requested model identifier or empty for any.
func (s *Store) PlantSeed(ctx context.Context, content, model string) (types.Seed, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return types.Seed{}, ErrEmptyContent
	}

	now := s.now()
	seed := types.Seed{
		ID:        uuid.NewString(),
		Content:   content,
		Status:    types.StatusPending,
		Model:     strings.TrimSpace(model),
		PlantType: ClassifyPlant(content),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seeds (id, content, status, model, plant_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		seed.ID, seed.Content, seed.Status, nullString(seed.Model), seed.PlantType,
		now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return types.Seed{}, fmt.Errorf("inserting seed: %w", err)
	}
	// Round-trip precision matches what Seed returns.
	seed.CreatedAt = fromMillis(now.UnixMilli())
	seed.UpdatedAt = seed.CreatedAt
	return seed, nil
}

// Seed returns the seed with the given id, or ErrNotFound.
func (s *Store) Seed(ctx context.Context, id string) (types.Seed, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+seedColumns+` FROM seeds WHERE id = ?`, id)
	seed, err := scanSeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Seed{}, ErrNotFound
	}
	if err != nil {
		return types.Seed{}, fmt.Errorf("loading seed %s: %w", id, err)
	}
	return seed, nil
}

// ListSeeds returns seeds newest first. Seeds planted in the same millisecond
// keep their insertion order.
func (s *Store) ListSeeds(ctx context.Context, opts ListOptions) ([]types.Seed, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := sq.Select(seedColumns).
		From("seeds").
		OrderBy("created_at DESC", "rowid DESC").
		Limit(uint64(limit))
	if opts.Status != "" {
		if !opts.Status.Valid() {
			return nil, fmt.Errorf("listing seeds: unknown status %q", opts.Status)
		}
		q = q.Where(sq.Eq{"status": string(opts.Status)})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing seeds: %w", err)
	}
	defer rows.Close()

	var seeds []types.Seed
	for rows.Next() {
		seed, err := scanSeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning seed: %w", err)
		}
		seeds = append(seeds, seed)
	}
	return seeds, rows.Err()
}

// SetStatus writes status for the seed. Writing the status a seed already has
// is a no-op. Returns ErrNotFound when the seed does not exist.
func (s *Store) SetStatus(ctx context.Context, id string, status types.Status) error {
	if !status.Valid() {
		return fmt.Errorf("setting status of %s: unknown status %q", id, status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE seeds SET status = ?, updated_at = ? WHERE id = ? AND status <> ?`,
		status, s.now().UnixMilli(), id, status)
	if err != nil {
		return fmt.Errorf("setting status of %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return s.exists(ctx, id)
}

// ClaimSeed moves a seed from pending to processing. It reports true only to
// the caller whose update took effect; a seed in any other status, or one
// another caller already claimed, yields false.
func (s *Store) ClaimSeed(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE seeds SET status = 'processing', updated_at = ?
		 WHERE id = ? AND status = 'pending'`,
		s.now().UnixMilli(), id)
	if err != nil {
		return false, fmt.Errorf("claiming seed %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claiming seed %s: %w", id, err)
	}
	return n == 1, nil
}

// ClaimNext claims the oldest pending seed and returns it in processing
// status. The boolean is false when no seed is pending.
func (s *Store) ClaimNext(ctx context.Context) (types.Seed, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE seeds SET status = 'processing', updated_at = ?
		 WHERE id = (
			SELECT id FROM seeds WHERE status = 'pending'
			ORDER BY created_at, rowid LIMIT 1
		 ) AND status = 'pending'
		 RETURNING `+seedColumns,
		s.now().UnixMilli())
	seed, err := scanSeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Seed{}, false, nil
	}
	if err != nil {
		return types.Seed{}, false, fmt.Errorf("claiming next seed: %w", err)
	}
	return seed, true, nil
}

// DeleteSeed removes a seed and its report.
func (s *Store) DeleteSeed(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE seed_id = ?`, id); err != nil {
		return fmt.Errorf("deleting report of %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM seeds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting seed %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Regenerate discards the seed's report and returns it to pending so the
// poller picks it up again.
func (s *Store) Regenerate(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE seed_id = ?`, id); err != nil {
		return fmt.Errorf("deleting report of %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE seeds SET status = 'pending', updated_at = ? WHERE id = ?`,
		s.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("resetting seed %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// RecoverProcessing returns seeds stuck in processing to pending. It is meant
// for startup, when no worker of this process can own them.
func (s *Store) RecoverProcessing(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE seeds SET status = 'pending', updated_at = ? WHERE status = 'processing'`,
		s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("recovering processing seeds: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recovering processing seeds: %w", err)
	}
	return int(n), nil
}

func (s *Store) exists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM seeds WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking seed %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeed(row rowScanner) (types.Seed, error) {
	var (
		seed      types.Seed
		status    string
		model     sql.NullString
		plant     sql.NullString
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&seed.ID, &seed.Content, &status, &model, &plant, &createdAt, &updatedAt); err != nil {
		return types.Seed{}, err
	}
	seed.Status = types.Status(status)
	seed.Model = model.String
	seed.PlantType = types.PlantType(plant.String)
	if seed.PlantType == "" {
		seed.PlantType = types.PlantPine
	}
	seed.CreatedAt = fromMillis(createdAt)
	seed.UpdatedAt = fromMillis(updatedAt)
	if seed.UpdatedAt.IsZero() {
		seed.UpdatedAt = seed.CreatedAt
	}
	return seed, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
