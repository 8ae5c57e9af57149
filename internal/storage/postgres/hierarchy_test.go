package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/oews-ingest/internal/oews"
)

func TestUpsertNodesOrdersParentsFirst(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	parent := "11"
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO naics_codes").
		WithArgs(
			"11", "Agriculture", 2, (*string)(nil),
			"111", "Crop Production", 3, &parent,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	s := NewHierarchyStore(mock)
	n, err := s.UpsertNodes(context.Background(), []oews.Node{
		{Code: "111", Title: "Crop Production", Level: 3, Parent: "11"},
		{Code: "11", Title: "Agriculture", Level: 2},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNodesScansParent(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	parent := "11"
	mock.ExpectQuery("FROM naics_codes").
		WillReturnRows(pgxmock.NewRows([]string{"code", "title", "level", "parent_code"}).
			AddRow("11", "Agriculture", 2, nil).
			AddRow("111", "Crop Production", 3, &parent))

	nodes, err := NewHierarchyStore(mock).Nodes(context.Background())
	require.NoError(t, err)
	require.Equal(t, []oews.Node{
		{Code: "11", Title: "Agriculture", Level: 2},
		{Code: "111", Title: "Crop Production", Level: 3, Parent: "11"},
	}, nodes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupationsFiltersByCode(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("WHERE code = ANY").
		WithArgs([]string{"11-1011"}).
		WillReturnRows(pgxmock.NewRows([]string{"code", "title"}).AddRow("11-1011", "Chief Executives"))

	occs, err := NewHierarchyStore(mock).Occupations(context.Background(), []string{"11-1011"})
	require.NoError(t, err)
	require.Equal(t, []oews.Occupation{{Code: "11-1011", Title: "Chief Executives"}}, occs)
	require.NoError(t, mock.ExpectationsWereMet())
}
