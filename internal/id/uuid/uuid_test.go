package uuid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewRunID(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()
	a, err := gen.NewRunID()
	require.NoError(t, err)
	b, err := gen.NewRunID()
	require.NoError(t, err)

	require.NotEqual(t, uuid.Nil, a)
	require.NotEqual(t, a, b)
	require.Equal(t, uuid.Version(7), a.Version())
	require.LessOrEqual(t, a.String()[:8], b.String()[:8])
}
