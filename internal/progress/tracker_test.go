package progress

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingEmitter) Emit(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func TestTrackerStampsEvents(t *testing.T) {
	t.Parallel()

	rec := &recordingEmitter{}
	id := uuid.New()
	at := time.Unix(1700000000, 0).UTC()
	tr := NewTracker(rec, id, "load", func() time.Time { return at })

	tr.Start()
	tr.Batch(Event{Stage: StageBatchCommitted, Subject: "oe.area", Rows: 3})
	tr.Finish(errors.New("boom"))

	require.Len(t, rec.events, 3)
	for _, evt := range rec.events {
		require.Equal(t, id, evt.RunUUID())
		require.Equal(t, "load", evt.Kind)
		require.Equal(t, at, evt.TS)
		require.NoError(t, evt.Validate())
	}
	require.Equal(t, StageRunError, rec.events[2].Stage)
	require.Equal(t, "boom", rec.events[2].Note)
}

func TestNilTrackerIsSafe(t *testing.T) {
	t.Parallel()

	var tr *Tracker
	require.NotPanics(t, func() {
		tr.Start()
		tr.Batch(Event{Stage: StageBatchResolved, Subject: "11-1011"})
		tr.Finish(nil)
	})
	require.Equal(t, uuid.Nil, tr.RunID())
}
