package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/oews-ingest/internal/record"
)

// Tier orders files by foreign key dependency.
type Tier int

// Tiers load strictly in this order. TierDependent holds reference tables
// with a foreign key into another reference table.
const (
	TierReference Tier = iota
	TierDependent
	TierSeries
	TierData
)

var tierOrder = []Tier{TierReference, TierDependent, TierSeries, TierData}

func (t Tier) String() string {
	switch t {
	case TierReference:
		return "reference"
	case TierDependent:
		return "dependent reference"
	case TierSeries:
		return "series"
	case TierData:
		return "data"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Job is one file load with its kind erased so a Plan can mix kinds.
type Job struct {
	File string
	Tier Tier
	run  func(ctx context.Context) (Result, error)
}

// Prepare adjusts the options of a job right before it runs, after every
// earlier tier has committed.
type Prepare[T any] func(ctx context.Context, opts *Options[T]) error

// FileJob loads path as kind.
func FileJob[T any](l *Loader, tier Tier, path string, kind record.Kind[T], opts Options[T], prepare ...Prepare[T]) Job {
	return Job{
		File: filepath.Base(path),
		Tier: tier,
		run: func(ctx context.Context) (Result, error) {
			o := opts
			for _, p := range prepare {
				if err := p(ctx, &o); err != nil {
					return Result{File: filepath.Base(path), Table: kind.Table}, err
				}
			}
			return LoadFile(ctx, l, path, kind, o)
		},
	}
}

// Known restricts a job to records whose key is already stored in
// table.column. The set is read once when the job starts.
func Known[T any](src KeySource, table, column string, key func(T) string) Prepare[T] {
	return func(ctx context.Context, opts *Options[T]) error {
		keys, err := src.Keys(ctx, table, column)
		if err != nil {
			return fmt.Errorf("load known %s.%s: %w", table, column, err)
		}
		opts.Filter = KeySet(keys)
		opts.FilterKey = key
		return nil
	}
}

// Plan runs jobs tier by tier. Jobs of one tier run concurrently, bounded by
// Concurrency; the first failure cancels the rest and stops later tiers.
type Plan struct {
	Jobs        []Job
	Concurrency int
	Logger      *zap.Logger
}

// Run executes the plan and returns results in job order. Results of jobs
// that never ran are zero.
func (p Plan) Run(ctx context.Context) ([]Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := p.Concurrency
	if limit <= 0 {
		limit = 1
	}
	results := make([]Result, len(p.Jobs))

	for _, tier := range tierOrder {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		ran := 0
		for i, job := range p.Jobs {
			if job.Tier != tier {
				continue
			}
			ran++
			g.Go(func() error {
				res, err := job.run(gctx)
				results[i] = res
				if err != nil {
					return fmt.Errorf("%s tier: %w", tier, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return results, err
		}
		if ran > 0 {
			logger.Info("tier loaded", zap.Stringer("tier", tier), zap.Int("files", ran))
		}
	}
	return results, nil
}

// Catalog configures Jobs for the standard bulk file set.
type Catalog struct {
	Dir          string
	BatchSizeFor func(file string) int
	MaxInvalid   int
	// Known, when set, restricts observation files to series already loaded.
	Known KeySource
}

// Jobs maps file names to load jobs. Unknown names are an error.
func (c Catalog) Jobs(l *Loader, files []string) ([]Job, error) {
	jobs := make([]Job, 0, len(files))
	for _, name := range files {
		job, err := c.job(l, name)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (c Catalog) batch(file string) int {
	if c.BatchSizeFor == nil {
		return 0
	}
	return c.BatchSizeFor(file)
}

func (c Catalog) job(l *Loader, name string) (Job, error) {
	path := filepath.Join(c.Dir, name)
	switch {
	case name == record.AreaTypes.File:
		return referenceJob(l, c, path, record.AreaTypes), nil
	case name == record.Areas.File:
		// oe_areas.areatype_code references oe_areatypes.
		return FileJob(l, TierDependent, path, record.Areas, Options[record.Area]{
			BatchSize:  c.batch(name),
			MaxInvalid: c.MaxInvalid,
		}), nil
	case name == record.DataTypes.File:
		return referenceJob(l, c, path, record.DataTypes), nil
	case name == record.Sectors.File:
		return referenceJob(l, c, path, record.Sectors), nil
	case name == record.Footnotes.File:
		return referenceJob(l, c, path, record.Footnotes), nil
	case name == record.Releases.File:
		return referenceJob(l, c, path, record.Releases), nil
	case name == record.Seasonals.File:
		return referenceJob(l, c, path, record.Seasonals), nil
	case name == record.Occupations.File:
		return referenceJob(l, c, path, record.Occupations), nil
	case name == record.Industries.File:
		return referenceJob(l, c, path, record.Industries), nil
	case name == record.SeriesKind.File:
		return FileJob(l, TierSeries, path, record.SeriesKind, Options[record.Series]{
			BatchSize:  c.batch(name),
			MaxInvalid: c.MaxInvalid,
		}), nil
	case strings.HasPrefix(name, "oe.data."):
		opts := Options[record.DataPoint]{BatchSize: c.batch(name), MaxInvalid: c.MaxInvalid}
		if c.Known == nil {
			return FileJob(l, TierData, path, record.DataPoints, opts), nil
		}
		return FileJob(l, TierData, path, record.DataPoints, opts,
			Known(c.Known, record.SeriesKind.Table, "series_id", func(d record.DataPoint) string { return d.SeriesID })), nil
	default:
		return Job{}, fmt.Errorf("no loader for bulk file %q", name)
	}
}

func referenceJob[T any](l *Loader, c Catalog, path string, kind record.Kind[T]) Job {
	return FileJob(l, TierReference, path, kind, Options[T]{
		BatchSize:  c.batch(kind.File),
		MaxInvalid: c.MaxInvalid,
	})
}
