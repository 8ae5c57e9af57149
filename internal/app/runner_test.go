package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/oews-ingest/internal/clock/system"
	"github.com/JakeFAU/oews-ingest/internal/progress"
	"github.com/JakeFAU/oews-ingest/internal/publisher/memory"
	"github.com/JakeFAU/oews-ingest/internal/store"
)

var runAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixedIDs struct {
	id  uuid.UUID
	err error
}

func (f fixedIDs) NewRunID() (uuid.UUID, error) { return f.id, f.err }

type recordingEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recordingEmitter) Emit(evt progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) stages() []progress.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]progress.Stage, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Stage)
	}
	return out
}

func TestTrackSummarizesAndNotifies(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("0190f3c4-0000-7000-8000-000000000001")
	emitter := &recordingEmitter{}
	pub := memory.New()
	r := NewRunner(emitter, fixedIDs{id: id}, system.Frozen{At: runAt}, pub, nil)

	run, err := r.Track(context.Background(), "crawl", func(_ context.Context, tr *progress.Tracker) error {
		require.Equal(t, id, tr.RunID())
		tr.Batch(progress.Event{Stage: progress.StageBatchResolved, Subject: "11-1011", Requested: 3, Found: 2, Rows: 8})
		tr.Batch(progress.Event{Stage: progress.StageBatchResolved, Subject: "11-1011", Requested: 2})
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, id, run.ID)
	require.Equal(t, "crawl", run.Kind)
	require.Equal(t, store.RunSuccess, run.Status)
	require.Nil(t, run.ErrorMessage)
	require.Equal(t, int64(5), run.Requested)
	require.Equal(t, int64(2), run.Found)
	require.Equal(t, int64(8), run.Rows)
	require.Equal(t, int64(2), run.Batches)
	require.Equal(t, runAt, run.StartedAt)
	require.NotNil(t, run.FinishedAt)

	require.Equal(t, []progress.Stage{
		progress.StageRunStart, progress.StageBatchResolved, progress.StageBatchResolved, progress.StageRunDone,
	}, emitter.stages())
	require.Equal(t, []store.Run{run}, pub.Runs())
}

func TestTrackReportsFailure(t *testing.T) {
	t.Parallel()

	emitter := &recordingEmitter{}
	pub := memory.New()
	r := NewRunner(emitter, fixedIDs{id: uuid.New()}, system.Frozen{At: runAt}, pub, nil)
	boom := errors.New("upstream down")

	run, err := r.Track(context.Background(), "load", func(context.Context, *progress.Tracker) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, store.RunError, run.Status)
	require.NotNil(t, run.ErrorMessage)
	require.Equal(t, "upstream down", *run.ErrorMessage)
	require.Equal(t, progress.StageRunError, emitter.stages()[1])
	require.Len(t, pub.Runs(), 1)
}

func TestTrackIgnoresNotifierFailure(t *testing.T) {
	t.Parallel()

	pub := memory.New()
	pub.Fail = errors.New("topic gone")
	r := NewRunner(nil, fixedIDs{id: uuid.New()}, system.Frozen{At: runAt}, pub, nil)

	run, err := r.Track(context.Background(), "seed", func(context.Context, *progress.Tracker) error { return nil })
	require.NoError(t, err)
	require.Equal(t, store.RunSuccess, run.Status)
}

func TestTrackWithoutNotifier(t *testing.T) {
	t.Parallel()

	r := NewRunner(nil, fixedIDs{id: uuid.New()}, system.Frozen{At: runAt}, nil, nil)
	_, err := r.Track(context.Background(), "download", func(context.Context, *progress.Tracker) error { return nil })
	require.NoError(t, err)
}

func TestTrackFailsWithoutRunID(t *testing.T) {
	t.Parallel()

	called := false
	r := NewRunner(nil, fixedIDs{err: errors.New("entropy")}, system.Frozen{At: runAt}, nil, nil)
	_, err := r.Track(context.Background(), "crawl", func(context.Context, *progress.Tracker) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
}
