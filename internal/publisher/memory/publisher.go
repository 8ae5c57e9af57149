// Package memory records published runs for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/oews-ingest/internal/store"
)

// Publisher stores published runs for inspection.
type Publisher struct {
	mu   sync.RWMutex
	runs []store.Run
	// Fail, when set, is returned by Publish.
	Fail error
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records run and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, run store.Run) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail != nil {
		return "", p.Fail
	}
	p.runs = append(p.runs, run)
	return fmt.Sprintf("memory-%d", len(p.runs)), nil
}

// Runs returns the recorded publishes.
func (p *Publisher) Runs() []store.Run {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]store.Run, len(p.runs))
	copy(out, p.runs)
	return out
}
