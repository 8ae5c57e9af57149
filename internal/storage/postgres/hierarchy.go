package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/JakeFAU/oews-ingest/internal/oews"
)

// HierarchyStore persists industry nodes and SOC occupations, the inputs of
// the crawl.
type HierarchyStore struct {
	pool Pool
}

// NewHierarchyStore wraps pool.
func NewHierarchyStore(pool Pool) *HierarchyStore {
	return &HierarchyStore{pool: pool}
}

// UpsertNodes inserts nodes parents first in one transaction.
func (s *HierarchyStore) UpsertNodes(ctx context.Context, nodes []oews.Node) (int64, error) {
	if len(nodes) == 0 {
		return 0, nil
	}
	ordered := append([]oews.Node(nil), nodes...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Level != ordered[j].Level {
			return ordered[i].Level < ordered[j].Level
		}
		return ordered[i].Code < ordered[j].Code
	})
	rows := make([][]any, len(ordered))
	for i, n := range ordered {
		var parent *string
		if n.Parent != "" {
			p := n.Parent
			parent = &p
		}
		rows[i] = []any{n.Code, n.Title, n.Level, parent}
	}
	return s.insert(ctx, "naics_codes", []string{"code", "title", "level", "parent_code"}, rows)
}

// UpsertOccupations inserts SOC codes.
func (s *HierarchyStore) UpsertOccupations(ctx context.Context, occs []oews.Occupation) (int64, error) {
	if len(occs) == 0 {
		return 0, nil
	}
	rows := make([][]any, len(occs))
	for i, o := range occs {
		rows[i] = []any{o.Code, o.Title}
	}
	return s.insert(ctx, "soc_codes", []string{"code", "title"}, rows)
}

func (s *HierarchyStore) insert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin insert %s: %w", table, err)
	}
	defer rollback(ctx, tx)

	n, err := execChunked(ctx, tx, table, columns, []string{"code"}, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit insert %s: %w", table, err)
	}
	return n, nil
}

// Nodes returns every stored industry node.
func (s *HierarchyStore) Nodes(ctx context.Context) ([]oews.Node, error) {
	rows, err := s.pool.Query(ctx, `SELECT code, title, level, parent_code FROM naics_codes ORDER BY level, code`)
	if err != nil {
		return nil, fmt.Errorf("select naics codes: %w", err)
	}
	defer rows.Close()

	var out []oews.Node
	for rows.Next() {
		var n oews.Node
		var parent *string
		if err := rows.Scan(&n.Code, &n.Title, &n.Level, &parent); err != nil {
			return nil, fmt.Errorf("scan naics code: %w", err)
		}
		if parent != nil {
			n.Parent = *parent
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate naics codes: %w", err)
	}
	return out, nil
}

// Occupations returns stored SOC codes, optionally restricted to codes.
func (s *HierarchyStore) Occupations(ctx context.Context, codes []string) ([]oews.Occupation, error) {
	query := `SELECT code, title FROM soc_codes ORDER BY code`
	var args []any
	if len(codes) > 0 {
		query = `SELECT code, title FROM soc_codes WHERE code = ANY($1) ORDER BY code`
		args = append(args, codes)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select soc codes: %w", err)
	}
	defer rows.Close()

	var out []oews.Occupation
	for rows.Next() {
		var o oews.Occupation
		if err := rows.Scan(&o.Code, &o.Title); err != nil {
			return nil, fmt.Errorf("scan soc code: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate soc codes: %w", err)
	}
	return out, nil
}
