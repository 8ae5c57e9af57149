package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/oews-ingest/internal/store"
)

// RunStore implements store.RunRepository on the ingest_runs table.
type RunStore struct {
	pool Pool
}

var _ store.RunRepository = (*RunStore)(nil)

// NewRunStore wraps pool.
func NewRunStore(pool Pool) *RunStore {
	return &RunStore{pool: pool}
}

// StartRun inserts a running row for id.
func (s *RunStore) StartRun(ctx context.Context, id uuid.UUID, kind string, startedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_runs (id, kind, status, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO NOTHING`, id, kind, string(store.RunRunning), startedAt)
	if err != nil {
		return fmt.Errorf("start run %s: %w", id, err)
	}
	return nil
}

// AddRunProgress increments the run counters.
func (s *RunStore) AddRunProgress(ctx context.Context, id uuid.UUID, d store.RunDelta, at time.Time) error {
	if d.IsZero() {
		return nil
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE ingest_runs
		SET rows_written = rows_written + $1,
			rows_skipped = rows_skipped + $2,
			series_requested = series_requested + $3,
			series_found = series_found + $4,
			batches = batches + $5,
			updated_at = $6
		WHERE id = $7`, d.Rows, d.Skipped, d.Requested, d.Found, d.Batches, at, id)
	if err != nil {
		return fmt.Errorf("add run progress %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CompleteRun records the final status of a run.
func (s *RunStore) CompleteRun(
	ctx context.Context,
	id uuid.UUID,
	finishedAt time.Time,
	status store.RunStatus,
	errMsg *string,
) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE ingest_runs
		SET status = $1, finished_at = $2, updated_at = $2, error_message = $3
		WHERE id = $4`, string(status), finishedAt, errMsg, id)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const runColumns = `id, kind, status, started_at, finished_at, updated_at, error_message,
	rows_written, rows_skipped, series_requested, series_found, batches`

func scanRun(row pgx.Row) (store.Run, error) {
	var (
		r      store.Run
		status string
	)
	err := row.Scan(
		&r.ID,
		&r.Kind,
		&status,
		&r.StartedAt,
		&r.FinishedAt,
		&r.UpdatedAt,
		&r.ErrorMessage,
		&r.Rows,
		&r.Skipped,
		&r.Requested,
		&r.Found,
		&r.Batches,
	)
	r.Status = store.RunStatus(status)
	return r, err
}

// GetRun loads a single run.
func (s *RunStore) GetRun(ctx context.Context, id uuid.UUID) (store.Run, error) {
	r, err := scanRun(s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM ingest_runs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Run{}, store.ErrNotFound
	}
	if err != nil {
		return store.Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// ListRuns pages through runs newest first.
func (s *RunStore) ListRuns(ctx context.Context, status *store.RunStatus, limit, offset int) ([]store.Run, error) {
	var filter *string
	if status != nil {
		st := string(*status)
		filter = &st
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM ingest_runs
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3`, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
