package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/oews-ingest/internal/oews"
)

var (
	resolutionColumns  = []string{"series_id", "occupation_code", "industry_code", "found", "checked_at"}
	resolutionConflict = []string{"series_id"}
	observationColumns = []string{"series_id", "year", "period", "value", "footnote_codes"}
	// One annual mean wage per series and year.
	observationConflict = []string{"series_id", "year"}
)

// ResolutionStore is the durable side of the series existence cache.
type ResolutionStore struct {
	pool         Pool
	writeTimeout time.Duration
}

// NewResolutionStore wraps pool. writeTimeout bounds each batch write.
func NewResolutionStore(pool Pool, writeTimeout time.Duration) *ResolutionStore {
	return &ResolutionStore{pool: pool, writeTimeout: writeTimeout}
}

// Lookup returns the resolution for id, if one was recorded.
func (s *ResolutionStore) Lookup(ctx context.Context, id oews.SeriesID) (oews.Resolution, bool, error) {
	var r oews.Resolution
	err := s.pool.QueryRow(ctx, `
		SELECT series_id, occupation_code, industry_code, found, checked_at
		FROM series_resolutions
		WHERE series_id = $1`, string(id)).
		Scan(&r.SeriesID, &r.OccupationCode, &r.IndustryCode, &r.Found, &r.CheckedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return oews.Resolution{}, false, nil
	}
	if err != nil {
		return oews.Resolution{}, false, fmt.Errorf("lookup resolution %s: %w", id, err)
	}
	return r, true, nil
}

// ForOccupation loads every resolution recorded for an occupation in one query.
func (s *ResolutionStore) ForOccupation(ctx context.Context, occupationCode string) ([]oews.Resolution, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT series_id, occupation_code, industry_code, found, checked_at
		FROM series_resolutions
		WHERE occupation_code = $1`, occupationCode)
	if err != nil {
		return nil, fmt.Errorf("select resolutions for %s: %w", occupationCode, err)
	}
	defer rows.Close()

	var out []oews.Resolution
	for rows.Next() {
		var r oews.Resolution
		if err := rows.Scan(&r.SeriesID, &r.OccupationCode, &r.IndustryCode, &r.Found, &r.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolutions: %w", err)
	}
	return out, nil
}

// RecordBatch writes every outcome of one API batch in a single transaction:
// either all resolutions and observations land or none do. Already recorded
// series and (series, year) observations are skipped.
func (s *ResolutionStore) RecordBatch(ctx context.Context, outcomes []oews.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	resRows := make([][]any, 0, len(outcomes))
	var obsRows [][]any
	for _, o := range outcomes {
		r := o.Resolution
		resRows = append(resRows, []any{string(r.SeriesID), r.OccupationCode, r.IndustryCode, r.Found, r.CheckedAt})
		for _, ob := range o.Observations {
			var footnotes *string
			if ob.Footnotes != "" {
				f := ob.Footnotes
				footnotes = &f
			}
			obsRows = append(obsRows, []any{string(ob.SeriesID), ob.Year, ob.Period, ob.Value, footnotes})
		}
	}

	ctx, cancel := withTimeout(ctx, s.writeTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record batch: %w", err)
	}
	defer rollback(ctx, tx)

	if _, err := execChunked(ctx, tx, "series_resolutions", resolutionColumns, resolutionConflict, resRows); err != nil {
		return fmt.Errorf("record resolutions: %w", err)
	}
	if len(obsRows) > 0 {
		if _, err := execChunked(ctx, tx, "wage_observations", observationColumns, observationConflict, obsRows); err != nil {
			return fmt.Errorf("record observations: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit record batch: %w", err)
	}
	return nil
}
