package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported stages.
const (
	StageRunStart Stage = "RUN_START"
	StageRunDone  Stage = "RUN_DONE"
	StageRunError Stage = "RUN_ERROR"
	// StageBatchCommitted follows every committed loader upsert.
	StageBatchCommitted Stage = "BATCH_COMMITTED"
	// StageBatchResolved follows every recorded API batch.
	StageBatchResolved Stage = "BATCH_RESOLVED"
)

// Event is one progress delta for a run.
type Event struct {
	// RunID is the 16-byte form of the ingest run UUID.
	RunID [16]byte
	TS    time.Time
	Stage Stage
	// Kind is the run kind (load, crawl, seed, download).
	Kind string
	// Subject scopes batch events: the file for loads, the occupation for crawls.
	Subject string
	// Rows counts rows written by the batch.
	Rows int64
	// Skipped counts conflict skips, filtered rows and rejected lines.
	Skipped int64
	// Requested and Found count series sent to and confirmed by the API.
	Requested int64
	Found     int64
	Dur       time.Duration
	// Note carries low-volume context such as the error text of a failed run.
	Note string
}

// Validate rejects malformed events before they are buffered.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageRunError:
		if e.Note == "" {
			return errors.New("run error requires a note")
		}
	case StageBatchCommitted, StageBatchResolved:
		if e.Subject == "" {
			return fmt.Errorf("%s requires a subject", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Rows < 0 || e.Skipped < 0 || e.Requested < 0 || e.Found < 0 {
		return errors.New("counters must be >= 0")
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID for repositories.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
