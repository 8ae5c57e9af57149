package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that the requested run does not exist.
var ErrNotFound = errors.New("ingest run not found")

// RunStatus mirrors the ingest_runs.status column.
type RunStatus string

// Run statuses.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// Run is one load, seed, download or crawl invocation.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	Kind       string     `json:"kind"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
	// ErrorMessage holds the failure reason of an errored run.
	ErrorMessage *string `json:"error_message,omitempty"`
	Rows         int64   `json:"rows"`
	Skipped      int64   `json:"skipped"`
	Requested    int64   `json:"requested"`
	Found        int64   `json:"found"`
	Batches      int64   `json:"batches"`
}

// RunDelta is an increment applied to a run's counters.
type RunDelta struct {
	Rows      int64
	Skipped   int64
	Requested int64
	Found     int64
	Batches   int64
}

// IsZero reports whether applying the delta would change nothing.
func (d RunDelta) IsZero() bool {
	return d == RunDelta{}
}

// RunRepository persists ingest run lifecycle and counters.
type RunRepository interface {
	// StartRun inserts the run as running. Repeated calls are no-ops.
	StartRun(ctx context.Context, id uuid.UUID, kind string, startedAt time.Time) error
	// AddRunProgress adds delta to the run's counters.
	AddRunProgress(ctx context.Context, id uuid.UUID, delta RunDelta, at time.Time) error
	// CompleteRun marks the run finished.
	CompleteRun(ctx context.Context, id uuid.UUID, finishedAt time.Time, status RunStatus, errMsg *string) error
	// GetRun loads one run or returns ErrNotFound.
	GetRun(ctx context.Context, id uuid.UUID) (Run, error)
	// ListRuns returns runs newest first, optionally filtered by status.
	ListRuns(ctx context.Context, status *RunStatus, limit, offset int) ([]Run, error)
}
