// Package cache answers "was this series already checked?" for the crawl.
//
// The durable record lives in the resolution store; the cache keeps an
// in-memory memo in front of it. An occupation that was preloaded is fully
// memoized, so misses for it are answered without a query.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/oews-ingest/internal/metrics"
	"github.com/JakeFAU/oews-ingest/internal/oews"
)

// Store is the durable resolution store.
type Store interface {
	ForOccupation(ctx context.Context, occupationCode string) ([]oews.Resolution, error)
	Lookup(ctx context.Context, id oews.SeriesID) (oews.Resolution, bool, error)
	RecordBatch(ctx context.Context, outcomes []oews.Outcome) error
}

// Cache is safe for concurrent use by crawl workers.
type Cache struct {
	store Store

	mu        sync.RWMutex
	memo      map[oews.SeriesID]oews.Resolution
	preloaded map[string]bool
}

// New wraps store.
func New(store Store) *Cache {
	return &Cache{
		store:     store,
		memo:      make(map[oews.SeriesID]oews.Resolution),
		preloaded: make(map[string]bool),
	}
}

// Preload memoizes every resolution of an occupation with one query and
// returns how many were loaded.
func (c *Cache) Preload(ctx context.Context, occupationCode string) (int, error) {
	rs, err := c.store.ForOccupation(ctx, occupationCode)
	if err != nil {
		return 0, fmt.Errorf("preload %s: %w", occupationCode, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range rs {
		c.memo[r.SeriesID] = r
	}
	c.preloaded[occupationCode] = true
	return len(rs), nil
}

// Release drops the memo of a finished occupation.
func (c *Cache) Release(occupationCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, r := range c.memo {
		if r.OccupationCode == occupationCode {
			delete(c.memo, id)
		}
	}
	delete(c.preloaded, occupationCode)
}

// Lookup returns the recorded resolution of id.
func (c *Cache) Lookup(ctx context.Context, id oews.SeriesID) (oews.Resolution, bool, error) {
	c.mu.RLock()
	r, ok := c.memo[id]
	complete := c.preloaded[id.Occupation()]
	c.mu.RUnlock()
	if ok || complete {
		metrics.ObserveCacheLookup(ok)
		return r, ok, nil
	}

	r, ok, err := c.store.Lookup(ctx, id)
	if err != nil {
		return oews.Resolution{}, false, fmt.Errorf("lookup %s: %w", id, err)
	}
	metrics.ObserveCacheLookup(ok)
	if ok {
		c.mu.Lock()
		c.memo[id] = r
		c.mu.Unlock()
	}
	return r, ok, nil
}

// Has reports whether id was already resolved, found or not.
func (c *Cache) Has(ctx context.Context, id oews.SeriesID) (bool, error) {
	_, ok, err := c.Lookup(ctx, id)
	return ok, err
}

// RecordBatch durably records one API batch, then memoizes it. Nothing is
// memoized when the write fails.
func (c *Cache) RecordBatch(ctx context.Context, outcomes []oews.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	if err := c.store.RecordBatch(ctx, outcomes); err != nil {
		return fmt.Errorf("record batch: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range outcomes {
		// First write wins, matching the store.
		if _, ok := c.memo[o.Resolution.SeriesID]; !ok {
			c.memo[o.Resolution.SeriesID] = o.Resolution
		}
	}
	return nil
}

// Len reports the number of memoized resolutions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memo)
}
