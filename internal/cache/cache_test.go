package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/oews-ingest/internal/oews"
)

type countingStore struct {
	*MemoryStore
	lookups atomic.Int64
}

func (s *countingStore) Lookup(ctx context.Context, id oews.SeriesID) (oews.Resolution, bool, error) {
	s.lookups.Add(1)
	return s.MemoryStore.Lookup(ctx, id)
}

func outcome(t *testing.T, occ, ind string, found bool, years ...int) oews.Outcome {
	t.Helper()
	id, err := oews.DeriveSeriesID(occ, ind)
	require.NoError(t, err)
	o := oews.Outcome{Resolution: oews.Resolution{
		SeriesID: id, OccupationCode: occ, IndustryCode: ind, Found: found, CheckedAt: time.Unix(1700000000, 0).UTC(),
	}}
	for _, y := range years {
		v := float64(y)
		o.Observations = append(o.Observations, oews.Observation{SeriesID: id, Year: y, Period: "A01", Value: &v})
	}
	return o
}

func TestRecordThenHas(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	c := New(store)

	o := outcome(t, "11-1011", "11", true, 2023)
	ok, err := c.Has(ctx, o.Resolution.SeriesID)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.RecordBatch(ctx, []oews.Outcome{o}))
	ok, err = c.Has(ctx, o.Resolution.SeriesID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRecordIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	c := New(store)

	o := outcome(t, "11-1011", "11", true, 2023, 2024)
	require.NoError(t, c.RecordBatch(ctx, []oews.Outcome{o}))
	require.NoError(t, c.RecordBatch(ctx, []oews.Outcome{o}))

	require.Equal(t, 1, store.Len())
	require.Len(t, store.Observations(o.Resolution.SeriesID), 2)
}

func TestFailedBatchIsNotMemoized(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	store.Fail = errors.New("tx aborted")
	c := New(store)

	o := outcome(t, "11-1011", "11", false)
	require.ErrorContains(t, c.RecordBatch(ctx, []oews.Outcome{o}), "tx aborted")
	require.Zero(t, c.Len())
}

func TestPreloadAnswersMissesWithoutQueries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := NewMemoryStore()
	found := outcome(t, "11-1011", "11", true)
	require.NoError(t, mem.RecordBatch(ctx, []oews.Outcome{found}))

	store := &countingStore{MemoryStore: mem}
	c := New(store)
	n, err := c.Preload(ctx, "11-1011")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	r, ok, err := c.Lookup(ctx, found.Resolution.SeriesID)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, r.Found)

	missing, err := oews.DeriveSeriesID("11-1011", "21")
	require.NoError(t, err)
	ok, err = c.Has(ctx, missing)
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, store.lookups.Load())

	other, err := oews.DeriveSeriesID("29-1141", "21")
	require.NoError(t, err)
	_, err = c.Has(ctx, other)
	require.NoError(t, err)
	require.Equal(t, int64(1), store.lookups.Load())
}

func TestLookupFallsBackToStoreAcrossRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := NewMemoryStore()
	o := outcome(t, "11-1011", "112", false)
	require.NoError(t, New(mem).RecordBatch(ctx, []oews.Outcome{o}))

	// A fresh cache over the same store sees the earlier run.
	ok, err := New(mem).Has(ctx, o.Resolution.SeriesID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestReleaseDropsOccupation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New(NewMemoryStore())
	require.NoError(t, c.RecordBatch(ctx, []oews.Outcome{
		outcome(t, "11-1011", "11", true),
		outcome(t, "29-1141", "11", true),
	}))
	c.Release("11-1011")
	require.Equal(t, 1, c.Len())
}
