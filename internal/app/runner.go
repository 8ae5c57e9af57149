package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/oews-ingest/internal/progress"
	"github.com/JakeFAU/oews-ingest/internal/store"
)

// Notifier announces finished runs. The pubsub and memory publishers implement it.
type Notifier interface {
	Publish(ctx context.Context, run store.Run) (string, error)
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewRunID() (uuid.UUID, error)
}

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Runner wraps a unit of work in a tracked ingest run.
type Runner struct {
	emitter  progress.Emitter
	ids      IDGenerator
	clock    Clock
	notifier Notifier
	logger   *zap.Logger
}

// NewRunner builds a Runner. emitter and notifier may be nil.
func NewRunner(emitter progress.Emitter, ids IDGenerator, clock Clock, notifier Notifier, logger *zap.Logger) *Runner {
	if emitter == nil {
		emitter = progress.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{emitter: emitter, ids: ids, clock: clock, notifier: notifier, logger: logger}
}

// Track starts a run of kind, hands its tracker to fn and finishes the run
// with fn's error. The returned summary carries the counters fn emitted.
// Notification failures are logged and never fail the run.
func (r *Runner) Track(ctx context.Context, kind string, fn func(ctx context.Context, tracker *progress.Tracker) error) (store.Run, error) {
	id, err := r.ids.NewRunID()
	if err != nil {
		return store.Run{}, fmt.Errorf("new %s run: %w", kind, err)
	}
	counter := &countingEmitter{next: r.emitter}
	tracker := progress.NewTracker(counter, id, kind, r.clock.Now)

	started := r.clock.Now()
	tracker.Start()
	logger := r.logger.With(zap.String("run_id", id.String()), zap.String("kind", kind))
	logger.Info("run started")

	runErr := fn(ctx, tracker)
	tracker.Finish(runErr)
	finished := r.clock.Now()

	run := counter.summary()
	run.ID = id
	run.Kind = kind
	run.StartedAt = started
	run.FinishedAt = &finished
	run.UpdatedAt = finished
	run.Status = store.RunSuccess
	if runErr != nil {
		msg := runErr.Error()
		run.Status = store.RunError
		run.ErrorMessage = &msg
		logger.Error("run failed", zap.Error(runErr), zap.Duration("elapsed", finished.Sub(started)))
	} else {
		logger.Info("run finished",
			zap.Int64("rows", run.Rows),
			zap.Int64("requested", run.Requested),
			zap.Int64("found", run.Found),
			zap.Duration("elapsed", finished.Sub(started)))
	}

	if r.notifier != nil {
		if msgID, err := r.notifier.Publish(context.WithoutCancel(ctx), run); err != nil {
			logger.Warn("publish run notification", zap.Error(err))
		} else {
			logger.Debug("run notification published", zap.String("message_id", msgID))
		}
	}
	return run, runErr
}

// countingEmitter forwards events and sums their batch counters.
type countingEmitter struct {
	next progress.Emitter

	mu    sync.Mutex
	delta store.RunDelta
}

func (c *countingEmitter) Emit(evt progress.Event) {
	switch evt.Stage {
	case progress.StageBatchCommitted, progress.StageBatchResolved:
		c.mu.Lock()
		c.delta.Rows += evt.Rows
		c.delta.Skipped += evt.Skipped
		c.delta.Requested += evt.Requested
		c.delta.Found += evt.Found
		c.delta.Batches++
		c.mu.Unlock()
	}
	c.next.Emit(evt)
}

func (c *countingEmitter) summary() store.Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return store.Run{
		Rows:      c.delta.Rows,
		Skipped:   c.delta.Skipped,
		Requested: c.delta.Requested,
		Found:     c.delta.Found,
		Batches:   c.delta.Batches,
	}
}
