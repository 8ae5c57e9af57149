// Package dispatcher fans crawl work out to a bounded pool of workers.
package dispatcher

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/oews-ingest/internal/metrics"
)

// Dispatcher runs one task per item with at most Workers running at once.
type Dispatcher[T any] struct {
	workers int
	handle  func(ctx context.Context, item T) error
}

// New creates a Dispatcher. workers below 1 means one.
func New[T any](workers int, handle func(ctx context.Context, item T) error) *Dispatcher[T] {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher[T]{workers: workers, handle: handle}
}

// Run processes items and blocks until all are handled or one fails. The
// first failure cancels the context passed to the others and is returned.
func (d *Dispatcher[T]) Run(ctx context.Context, items []T) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			metrics.IncActiveWorkers()
			defer metrics.DecActiveWorkers()
			return d.handle(gctx, item)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	return nil
}
