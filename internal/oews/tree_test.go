package oews

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustNode(t *testing.T, code string) Node {
	t.Helper()
	n, err := NewNode(code, "title "+code)
	require.NoError(t, err)
	return n
}

func TestNewNode(t *testing.T) {
	t.Parallel()

	root := mustNode(t, "11")
	require.Equal(t, 2, root.Level)
	require.Empty(t, root.Parent)
	require.True(t, root.IsRoot())

	leaf := mustNode(t, "111110")
	require.Equal(t, 6, leaf.Level)
	require.Equal(t, "11111", leaf.Parent)
	require.False(t, leaf.Expandable())

	_, err := NewNode("1", "too short")
	require.Error(t, err)
	_, err = NewNode("1111111", "too long")
	require.Error(t, err)
}

func TestBuildTree(t *testing.T) {
	t.Parallel()

	nodes := []Node{
		mustNode(t, "112"),
		mustNode(t, "11"),
		mustNode(t, "111"),
		mustNode(t, "1111"),
		mustNode(t, "21"),
		mustNode(t, "3333"), // parent 333 missing
	}
	tree, orphans, err := BuildTree(nodes)
	require.NoError(t, err)
	require.Equal(t, 5, tree.Len())

	roots := tree.Roots()
	require.Len(t, roots, 2)
	require.Equal(t, "11", roots[0].Code)
	require.Equal(t, "21", roots[1].Code)

	kids := tree.Children("11")
	require.Len(t, kids, 2)
	require.Equal(t, "111", kids[0].Code)
	require.Equal(t, "112", kids[1].Code)
	require.Empty(t, tree.Children("112"))

	require.Len(t, orphans, 1)
	require.Equal(t, "3333", orphans[0].Code)
	_, ok := tree.Node("3333")
	require.False(t, ok)
}

func TestBuildTreeRejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, _, err := BuildTree([]Node{mustNode(t, "11"), mustNode(t, "11")})
	require.Error(t, err)
}

func TestYearRangeValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, YearRange{Start: 2019, End: 2024}.Validate())
	require.Error(t, YearRange{Start: 2024, End: 2019}.Validate())
	require.Error(t, YearRange{}.Validate())
}
