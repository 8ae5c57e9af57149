// Package seed fills the crawl reference tables: the industry hierarchy from
// the API's industry catalog and the occupation list from oe.occupation.
package seed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/oews-ingest/internal/oews"
	"github.com/JakeFAU/oews-ingest/internal/progress"
	"github.com/JakeFAU/oews-ingest/internal/record"
	"github.com/JakeFAU/oews-ingest/internal/schema"
)

// ErrHeaderMismatch reports an occupation file with an unexpected header.
var ErrHeaderMismatch = errors.New("occupation header mismatch")

// IndustrySource lists industry nodes. *bls.Client implements it.
type IndustrySource interface {
	FetchIndustries(ctx context.Context) ([]oews.Node, error)
}

// NodeWriter persists hierarchy nodes. *postgres.HierarchyStore implements it.
type NodeWriter interface {
	UpsertNodes(ctx context.Context, nodes []oews.Node) (int64, error)
}

// OccupationWriter persists occupations. *postgres.HierarchyStore implements it.
type OccupationWriter interface {
	UpsertOccupations(ctx context.Context, occs []oews.Occupation) (int64, error)
}

// Result summarizes one seeding pass.
type Result struct {
	Table    string        `json:"table"`
	Read     int           `json:"read"`
	Inserted int64         `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Orphans  int           `json:"orphans"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Seeder writes seed data in set-oriented batches.
type Seeder struct {
	tracker   *progress.Tracker
	logger    *zap.Logger
	batchSize int
}

// New returns a Seeder. tracker may be nil.
func New(tracker *progress.Tracker, logger *zap.Logger, batchSize int) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = record.DefaultBatchSize
	}
	return &Seeder{tracker: tracker, logger: logger, batchSize: batchSize}
}

// Industries fetches the catalog and stores every node reachable from a
// level-2 root. Nodes whose parent is missing are dropped and counted.
func (s *Seeder) Industries(ctx context.Context, src IndustrySource, w NodeWriter) (Result, error) {
	start := time.Now()
	res := Result{Table: "naics_codes"}

	nodes, err := src.FetchIndustries(ctx)
	if err != nil {
		return res, fmt.Errorf("seed industries: %w", err)
	}
	res.Read = len(nodes)

	unique := make([]oews.Node, 0, len(nodes))
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if _, dup := seen[n.Code]; dup {
			res.Skipped++
			continue
		}
		seen[n.Code] = struct{}{}
		unique = append(unique, n)
	}

	tree, orphans, err := oews.BuildTree(unique)
	if err != nil {
		return res, fmt.Errorf("seed industries: %w", err)
	}
	res.Orphans = len(orphans)
	for _, o := range orphans {
		s.logger.Debug("dropping orphan industry", zap.String("code", o.Code), zap.String("parent", o.Parent))
	}

	kept := walk(tree)
	inserted, err := w.UpsertNodes(ctx, kept)
	if err != nil {
		return res, fmt.Errorf("seed industries: %w", err)
	}
	res.Inserted = inserted
	res.Skipped += len(kept) - int(inserted)
	res.Elapsed = time.Since(start)
	s.tracker.Batch(progress.Event{
		Stage:   progress.StageBatchCommitted,
		Subject: res.Table,
		Rows:    inserted,
		Skipped: int64(len(kept)) - inserted,
		Dur:     res.Elapsed,
	})
	s.logger.Info("seeded industries",
		zap.Int("read", res.Read),
		zap.Int("nodes", len(kept)),
		zap.Int64("inserted", inserted),
		zap.Int("orphans", res.Orphans),
	)
	return res, nil
}

// walk returns the tree's nodes parents first.
func walk(t *oews.Tree) []oews.Node {
	out := make([]oews.Node, 0, t.Len())
	queue := t.Roots()
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n)
		queue = append(queue, t.Children(n.Code)...)
	}
	return out
}

// OccupationsFile seeds occupations from a bulk oe.occupation file.
func (s *Seeder) OccupationsFile(ctx context.Context, path string, w OccupationWriter) (Result, error) {
	// #nosec G304 -- path comes from operator configuration.
	f, err := os.Open(path)
	if err != nil {
		return Result{Table: "soc_codes"}, fmt.Errorf("seed occupations: %w", err)
	}
	defer f.Close()
	return s.Occupations(ctx, filepath.Base(path), f, w)
}

// Occupations seeds detailed SOC codes (NN-NNNN) from r. Lines are parsed
// as oe.occupation records; codes in the six-digit bulk form are dashed and
// anything that is not a detailed code is skipped. Each batch passes the
// schema before it is written.
func (s *Seeder) Occupations(ctx context.Context, name string, r io.Reader, w OccupationWriter) (Result, error) {
	start := time.Now()
	res := Result{Table: "soc_codes"}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return res, fmt.Errorf("seed occupations %s: %w", name, err)
		}
		return res, fmt.Errorf("seed occupations %s: empty file: %w", name, ErrHeaderMismatch)
	}
	header := strings.TrimPrefix(strings.TrimRight(sc.Text(), "\r"), "\ufeff")
	kind, ok := occupationKind(header)
	if !ok {
		return res, fmt.Errorf("seed occupations %s: got %q: %w", name, header, ErrHeaderMismatch)
	}

	seen := make(map[string]struct{})
	batch := make([]oews.Occupation, 0, s.batchSize)
	batches := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		batches++
		label := fmt.Sprintf("%s batch %d", name, batches)
		if _, err := schema.ValidateBatch(label, batch); err != nil {
			return fmt.Errorf("seed occupations %s: %w", name, err)
		}
		n, err := w.UpsertOccupations(ctx, batch)
		if err != nil {
			return fmt.Errorf("seed occupations %s: %w", name, err)
		}
		res.Inserted += n
		res.Skipped += len(batch) - int(n)
		s.tracker.Batch(progress.Event{
			Stage:   progress.StageBatchCommitted,
			Subject: res.Table,
			Rows:    n,
			Skipped: int64(len(batch)) - n,
		})
		batch = batch[:0]
		return nil
	}

	for line := 2; sc.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("seed occupations %s: %w", name, err)
		}
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		res.Read++
		rec, err := kind.Parse(text, record.LayoutDelimited)
		if err != nil {
			var perr *record.ParseError
			if !errors.As(err, &perr) || perr.Structural() {
				return res, fmt.Errorf("seed occupations %s line %d: %w", name, line, err)
			}
			s.logger.Warn("occupation line rejected", zap.String("file", name), zap.Int("line", line), zap.Error(err))
			res.Skipped++
			continue
		}
		code, ok := oews.NormalizeSOC(rec.Code)
		if !ok {
			res.Skipped++
			continue
		}
		if _, dup := seen[code]; dup {
			res.Skipped++
			continue
		}
		seen[code] = struct{}{}
		batch = append(batch, oews.Occupation{Code: code, Title: rec.Name})
		if len(batch) == s.batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("seed occupations %s: %w", name, err)
	}
	if err := flush(); err != nil {
		return res, err
	}
	res.Elapsed = time.Since(start)
	s.logger.Info("seeded occupations",
		zap.String("file", name),
		zap.Int("read", res.Read),
		zap.Int64("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// occupationKind picks the record layout matching the file header.
func occupationKind(header string) (record.Kind[record.Occupation], bool) {
	if record.DetectLayout(header) != record.LayoutDelimited {
		return record.Kind[record.Occupation]{}, false
	}
	got := record.SplitHeader(header)
	for _, kind := range []record.Kind[record.Occupation]{record.Occupations, record.ShortOccupations} {
		if record.HeaderMatches(got, kind.Header) {
			return kind, true
		}
	}
	return record.Kind[record.Occupation]{}, false
}
