package progress

import (
	"time"

	"github.com/google/uuid"
)

// Tracker stamps events for one run. A nil *Tracker drops everything, so
// components can be used without a hub.
type Tracker struct {
	emitter Emitter
	runID   [16]byte
	kind    string
	now     func() time.Time
}

// NewTracker binds emitter to a run. now defaults to time.Now.
func NewTracker(emitter Emitter, runID uuid.UUID, kind string, now func() time.Time) *Tracker {
	if emitter == nil {
		emitter = Discard
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{emitter: emitter, runID: UUIDToBytes(runID), kind: kind, now: now}
}

// RunID returns the tracked run.
func (t *Tracker) RunID() uuid.UUID {
	if t == nil {
		return uuid.Nil
	}
	return uuid.UUID(t.runID)
}

// Start emits RUN_START.
func (t *Tracker) Start() {
	t.emit(Event{Stage: StageRunStart})
}

// Finish emits RUN_DONE, or RUN_ERROR when err is non-nil.
func (t *Tracker) Finish(err error) {
	if err != nil {
		t.emit(Event{Stage: StageRunError, Note: err.Error()})
		return
	}
	t.emit(Event{Stage: StageRunDone})
}

// Batch emits a batch event. RunID, Kind and TS are filled in.
func (t *Tracker) Batch(evt Event) {
	t.emit(evt)
}

func (t *Tracker) emit(evt Event) {
	if t == nil {
		return
	}
	evt.RunID = t.runID
	evt.Kind = t.kind
	evt.TS = t.now()
	t.emitter.Emit(evt)
}
