// Package crawl discovers which occupation and industry series carry wage
// data by walking the industry hierarchy against the timeseries API.
//
// Per occupation the walk starts at every level-2 node. Nodes already
// resolved in an earlier run are answered from the cache and never take an
// API slot. Children of a node are queued only after the batch that found it
// has been durably recorded, and only when it was found, so a pruned subtree
// is never requested.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/oews-ingest/internal/bls"
	"github.com/JakeFAU/oews-ingest/internal/dispatcher"
	"github.com/JakeFAU/oews-ingest/internal/frontier"
	"github.com/JakeFAU/oews-ingest/internal/oews"
	"github.com/JakeFAU/oews-ingest/internal/progress"
)

// Hierarchy is the industry tree. *oews.Tree implements it.
type Hierarchy interface {
	Roots() []oews.Node
	Children(code string) []oews.Node
}

// Cache is the series existence cache. *cache.Cache implements it.
type Cache interface {
	Preload(ctx context.Context, occupationCode string) (int, error)
	Lookup(ctx context.Context, id oews.SeriesID) (oews.Resolution, bool, error)
	RecordBatch(ctx context.Context, outcomes []oews.Outcome) error
	Release(occupationCode string)
}

// Resolver fetches observations for a batch of series. *bls.Client implements it.
type Resolver interface {
	ResolveBatch(ctx context.Context, ids []oews.SeriesID, years oews.YearRange) (map[oews.SeriesID][]oews.Observation, error)
}

// Config tunes a crawl.
type Config struct {
	Years oews.YearRange
	// BatchSize caps the series of one API batch.
	BatchSize int
	Workers   int
	Order     frontier.Order
}

// Deps are the collaborators of an Orchestrator. Tracker, Logger and Now are optional.
type Deps struct {
	Tree    Hierarchy
	Cache   Cache
	Client  Resolver
	Tracker *progress.Tracker
	Logger  *zap.Logger
	Now     func() time.Time
}

// Stats summarizes a crawl.
type Stats struct {
	Occupations int `json:"occupations"`
	// Batches counts API batches sent.
	Batches   int `json:"batches"`
	Requested int `json:"requested"`
	Found     int `json:"found"`
	Missing   int `json:"missing"`
	// CacheHits counts nodes answered from earlier resolutions.
	CacheHits int `json:"cache_hits"`
	// Expanded counts found nodes whose children were queued.
	Expanded int `json:"expanded"`
	Visited  int `json:"visited"`
}

func (s *Stats) add(o Stats) {
	s.Occupations += o.Occupations
	s.Batches += o.Batches
	s.Requested += o.Requested
	s.Found += o.Found
	s.Missing += o.Missing
	s.CacheHits += o.CacheHits
	s.Expanded += o.Expanded
	s.Visited += o.Visited
}

// Orchestrator composes the frontier, the cache and the API client.
type Orchestrator struct {
	cfg  Config
	deps Deps
}

// New validates cfg and deps.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if cfg.BatchSize <= 0 || cfg.BatchSize > bls.MaxBatch {
		return nil, fmt.Errorf("crawl: batch size %d outside 1..%d: %w", cfg.BatchSize, bls.MaxBatch, oews.ErrConfiguration)
	}
	if err := cfg.Years.Validate(); err != nil {
		return nil, fmt.Errorf("crawl: %v: %w", err, oews.ErrConfiguration)
	}
	if deps.Tree == nil || deps.Cache == nil || deps.Client == nil {
		return nil, errors.New("crawl: tree, cache and client are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Orchestrator{cfg: cfg, deps: deps}, nil
}

// Run crawls every occupation on a bounded worker pool. The first failure
// aborts the run; everything recorded before it stays recorded, so running
// again resumes where this run stopped.
func (o *Orchestrator) Run(ctx context.Context, occupations []oews.Occupation) (Stats, error) {
	var (
		mu    sync.Mutex
		total Stats
	)
	d := dispatcher.New(o.cfg.Workers, func(ctx context.Context, occ oews.Occupation) error {
		s, err := o.Occupation(ctx, occ.Code)
		mu.Lock()
		total.add(s)
		mu.Unlock()
		return err
	})
	err := d.Run(ctx, occupations)
	o.deps.Logger.Info("crawl finished",
		zap.Int("occupations", total.Occupations),
		zap.Int("batches", total.Batches),
		zap.Int("requested", total.Requested),
		zap.Int("found", total.Found),
		zap.Int("cache_hits", total.CacheHits),
		zap.Error(err),
	)
	return total, err
}

type pending struct {
	id    oews.SeriesID
	nodes []oews.Node
}

// Occupation crawls the hierarchy for one occupation.
func (o *Orchestrator) Occupation(ctx context.Context, occupationCode string) (Stats, error) {
	logger := o.deps.Logger.With(zap.String("occupation", occupationCode))
	stats := Stats{Occupations: 1}

	preloaded, err := o.deps.Cache.Preload(ctx, occupationCode)
	if err != nil {
		return stats, fmt.Errorf("occupation %s: %w", occupationCode, err)
	}
	defer o.deps.Cache.Release(occupationCode)

	f := frontier.New(occupationCode, o.cfg.Order)
	f.Push(o.deps.Tree.Roots()...)
	logger.Debug("crawl started", zap.Int("roots", f.Len()), zap.Int("preloaded", preloaded))

	for f.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("occupation %s: %w", occupationCode, err)
		}
		batch, err := o.assemble(ctx, f, occupationCode, &stats)
		if err != nil {
			return stats, err
		}
		if len(batch) == 0 {
			continue
		}
		if err := o.resolve(ctx, f, occupationCode, batch, &stats); err != nil {
			return stats, err
		}
	}
	stats.Visited = f.Seen()
	logger.Debug("crawl done",
		zap.Int("visited", stats.Visited),
		zap.Int("requested", stats.Requested),
		zap.Int("found", stats.Found),
	)
	return stats, nil
}

// assemble pops nodes until the batch holds BatchSize distinct unresolved
// series. Cached nodes are settled on the spot.
func (o *Orchestrator) assemble(ctx context.Context, f *frontier.Frontier, occ string, stats *Stats) ([]*pending, error) {
	var batch []*pending
	byID := make(map[oews.SeriesID]*pending)
	for len(batch) < o.cfg.BatchSize {
		n, ok := f.Pop()
		if !ok {
			break
		}
		id, err := oews.DeriveSeriesID(occ, n.Code)
		if err != nil {
			return nil, fmt.Errorf("occupation %s node %s: %w", occ, n.Code, err)
		}
		// Zero padding can map two nodes onto one series.
		if p, ok := byID[id]; ok {
			p.nodes = append(p.nodes, n)
			continue
		}
		r, cached, err := o.deps.Cache.Lookup(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("occupation %s node %s: %w", occ, n.Code, err)
		}
		if cached {
			stats.CacheHits++
			if err := o.settle(f, n, r.Found, stats); err != nil {
				return nil, err
			}
			continue
		}
		p := &pending{id: id, nodes: []oews.Node{n}}
		byID[id] = p
		batch = append(batch, p)
	}
	return batch, nil
}

func (o *Orchestrator) resolve(ctx context.Context, f *frontier.Frontier, occ string, batch []*pending, stats *Stats) error {
	start := time.Now()
	ids := make([]oews.SeriesID, len(batch))
	for i, p := range batch {
		ids[i] = p.id
	}
	found, err := o.deps.Client.ResolveBatch(ctx, ids, o.cfg.Years)
	if err != nil {
		return fmt.Errorf("occupation %s: resolve %d series starting %s: %w", occ, len(ids), ids[0], err)
	}

	now := o.deps.Now()
	outcomes := make([]oews.Outcome, len(batch))
	var rows, hits int64
	for i, p := range batch {
		obs := found[p.id]
		ok := len(obs) > 0
		if ok {
			hits++
		}
		rows += int64(len(obs))
		outcomes[i] = oews.Outcome{
			Resolution: oews.Resolution{
				SeriesID:       p.id,
				OccupationCode: occ,
				IndustryCode:   p.nodes[0].Code,
				Found:          ok,
				CheckedAt:      now,
			},
			Observations: obs,
		}
	}
	if err := o.deps.Cache.RecordBatch(ctx, outcomes); err != nil {
		return fmt.Errorf("occupation %s: %w", occ, err)
	}

	stats.Batches++
	stats.Requested += len(batch)
	stats.Found += int(hits)
	stats.Missing += len(batch) - int(hits)
	o.deps.Tracker.Batch(progress.Event{
		Stage:     progress.StageBatchResolved,
		Subject:   occ,
		Rows:      rows,
		Requested: int64(len(batch)),
		Found:     hits,
		Dur:       time.Since(start),
	})

	// Expansion strictly follows the commit above.
	for i, p := range batch {
		for _, n := range p.nodes {
			if err := o.settle(f, n, outcomes[i].Resolution.Found, stats); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) settle(f *frontier.Frontier, n oews.Node, found bool, stats *Stats) error {
	if err := f.Resolve(n.Code, found); err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	if !found || !n.Expandable() {
		if err := f.Terminate(n.Code); err != nil {
			return fmt.Errorf("crawl: %w", err)
		}
		return nil
	}
	if _, err := f.Expand(n.Code, o.deps.Tree.Children(n.Code)); err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	stats.Expanded++
	return nil
}
