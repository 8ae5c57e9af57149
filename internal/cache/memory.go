package cache

import (
	"context"
	"sync"

	"github.com/JakeFAU/oews-ingest/internal/oews"
)

// MemoryStore is an in-process Store with the same first-write-wins policy as
// the Postgres store. Tests and dry runs use it.
type MemoryStore struct {
	mu           sync.Mutex
	resolutions  map[oews.SeriesID]oews.Resolution
	observations map[oews.SeriesID]map[int]oews.Observation
	// Fail, when set, is returned by RecordBatch.
	Fail error
	// Batches counts successful RecordBatch calls.
	Batches int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		resolutions:  make(map[oews.SeriesID]oews.Resolution),
		observations: make(map[oews.SeriesID]map[int]oews.Observation),
	}
}

// ForOccupation implements Store.
func (m *MemoryStore) ForOccupation(_ context.Context, occupationCode string) ([]oews.Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []oews.Resolution
	for _, r := range m.resolutions {
		if r.OccupationCode == occupationCode {
			out = append(out, r)
		}
	}
	return out, nil
}

// Lookup implements Store.
func (m *MemoryStore) Lookup(_ context.Context, id oews.SeriesID) (oews.Resolution, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resolutions[id]
	return r, ok, nil
}

// RecordBatch implements Store. The batch is applied entirely or not at all.
func (m *MemoryStore) RecordBatch(_ context.Context, outcomes []oews.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	for _, o := range outcomes {
		id := o.Resolution.SeriesID
		if _, ok := m.resolutions[id]; !ok {
			m.resolutions[id] = o.Resolution
		}
		for _, ob := range o.Observations {
			years := m.observations[ob.SeriesID]
			if years == nil {
				years = make(map[int]oews.Observation)
				m.observations[ob.SeriesID] = years
			}
			if _, ok := years[ob.Year]; !ok {
				years[ob.Year] = ob
			}
		}
	}
	m.Batches++
	return nil
}

// Observations returns the stored observations of id.
func (m *MemoryStore) Observations(id oews.SeriesID) []oews.Observation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]oews.Observation, 0, len(m.observations[id]))
	for _, ob := range m.observations[id] {
		out = append(out, ob)
	}
	return out
}

// Len reports the number of stored resolutions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.resolutions)
}
