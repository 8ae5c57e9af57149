package postgres

import (
	"context"
	"fmt"
	"time"
)

// Upserter writes loader batches with an ON CONFLICT DO NOTHING policy.
type Upserter struct {
	pool         Pool
	writeTimeout time.Duration
}

// NewUpserter wraps pool. writeTimeout bounds each batch write.
func NewUpserter(pool Pool, writeTimeout time.Duration) *Upserter {
	return &Upserter{pool: pool, writeTimeout: writeTimeout}
}

// Upsert inserts rows into table in one transaction and returns how many were
// new. Rows whose conflict key already exists are skipped.
func (u *Upserter) Upsert(ctx context.Context, table string, columns, conflict []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 || len(conflict) == 0 {
		return 0, fmt.Errorf("upsert %s: columns and conflict key are required", table)
	}
	if err := checkIdentifiers(append(append([]string{table}, columns...), conflict...)...); err != nil {
		return 0, fmt.Errorf("upsert %s: %w", table, err)
	}

	ctx, cancel := withTimeout(ctx, u.writeTimeout)
	defer cancel()

	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsert %s: %w", table, err)
	}
	defer rollback(ctx, tx)

	inserted, err := execChunked(ctx, tx, table, columns, conflict, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsert %s: %w", table, err)
	}
	return inserted, nil
}

// Keys returns every value of column in table. The loader uses it to build
// its pre-filter once before streaming a file.
func (u *Upserter) Keys(ctx context.Context, table, column string) (map[string]struct{}, error) {
	if err := checkIdentifiers(table, column); err != nil {
		return nil, fmt.Errorf("keys %s.%s: %w", table, column, err)
	}
	rows, err := u.pool.Query(ctx, fmt.Sprintf("SELECT %s FROM %s", column, table))
	if err != nil {
		return nil, fmt.Errorf("select %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan %s.%s: %w", table, column, err)
		}
		keys[k] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s.%s: %w", table, column, err)
	}
	return keys, nil
}
