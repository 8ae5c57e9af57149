package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/oews-ingest/internal/progress"
	"github.com/JakeFAU/oews-ingest/internal/store"
)

// StoreSink persists run lifecycle and counters. Batch deltas are collapsed per
// run so each flush costs one counter update per run.
type StoreSink struct {
	repo   store.RunRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink.
func NewStoreSink(repo store.RunRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

type pending struct {
	delta store.RunDelta
	at    time.Time
}

// Consume applies the batch in order: starts first, then counter deltas, then
// completions, so a run that starts and finishes in one batch is consistent.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	deltas := make(map[uuid.UUID]*pending)
	var order []uuid.UUID
	var completions []progress.Event

	for _, evt := range batch {
		id := evt.RunUUID()
		switch evt.Stage {
		case progress.StageRunStart:
			if err := s.repo.StartRun(ctx, id, evt.Kind, evt.TS); err != nil {
				return fmt.Errorf("start run: %w", err)
			}
		case progress.StageBatchCommitted, progress.StageBatchResolved:
			p := deltas[id]
			if p == nil {
				p = &pending{}
				deltas[id] = p
				order = append(order, id)
			}
			p.delta.Rows += evt.Rows
			p.delta.Skipped += evt.Skipped
			p.delta.Requested += evt.Requested
			p.delta.Found += evt.Found
			p.delta.Batches++
			if evt.TS.After(p.at) {
				p.at = evt.TS
			}
		case progress.StageRunDone, progress.StageRunError:
			completions = append(completions, evt)
		}
	}

	for _, id := range order {
		p := deltas[id]
		if err := s.repo.AddRunProgress(ctx, id, p.delta, p.at); err != nil {
			return fmt.Errorf("add run progress: %w", err)
		}
	}
	for _, evt := range completions {
		status := store.RunSuccess
		var note *string
		if evt.Stage == progress.StageRunError {
			status = store.RunError
			msg := evt.Note
			note = &msg
		}
		if err := s.repo.CompleteRun(ctx, evt.RunUUID(), evt.TS, status, note); err != nil {
			return fmt.Errorf("complete run: %w", err)
		}
	}
	return nil
}

// Close is a no-op.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
