package loader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/oews-ingest/internal/oews"
	"github.com/JakeFAU/oews-ingest/internal/progress"
	"github.com/JakeFAU/oews-ingest/internal/record"
	"github.com/JakeFAU/oews-ingest/internal/schema"
)

// maxLineBytes bounds a single line. oe.series titles are the longest lines.
const maxLineBytes = 1 << 20

var (
	// ErrHeaderMismatch reports a first line that is not the expected header.
	// It also matches oews.ErrStructural.
	ErrHeaderMismatch = errors.New("header mismatch")
	// ErrTooManyInvalid reports that rejected lines exceeded Options.MaxInvalid.
	ErrTooManyInvalid = errors.New("too many invalid lines")
)

// Upserter commits one batch and reports how many rows were new.
type Upserter interface {
	Upsert(ctx context.Context, table string, columns, conflict []string, rows [][]any) (int64, error)
}

// KeySource lists the stored values of a key column.
type KeySource interface {
	Keys(ctx context.Context, table, column string) (map[string]struct{}, error)
}

// KeySet is a pre-computed set of natural keys.
type KeySet map[string]struct{}

// Has reports membership.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Options tune a single load.
type Options[T any] struct {
	// ExpectedHeader overrides the kind's header.
	ExpectedHeader []string
	// BatchSize overrides the kind's batch size.
	BatchSize int
	// MaxInvalid > 0 aborts the load once more lines than this were rejected.
	MaxInvalid int
	// Filter, when non-nil, keeps only records whose FilterKey is a member.
	Filter    KeySet
	FilterKey func(T) string
}

// Result summarizes one file.
type Result struct {
	File  string `json:"file"`
	Table string `json:"table"`
	// Lines counts every line read, the header and blank lines included.
	Lines  int64 `json:"lines"`
	Parsed int64 `json:"parsed"`
	// Inserted counts rows actually written.
	Inserted int64 `json:"inserted"`
	// Duplicates counts records whose key was repeated in the file or already stored.
	Duplicates int64 `json:"duplicates"`
	// Skipped counts records dropped by the filter.
	Skipped int64 `json:"skipped"`
	// Invalid counts lines rejected for a bad field.
	Invalid int64         `json:"invalid"`
	Batches int64         `json:"batches"`
	Elapsed time.Duration `json:"elapsed"`
}

// Loader holds the collaborators shared by every file of a run.
type Loader struct {
	db      Upserter
	tracker *progress.Tracker
	logger  *zap.Logger
}

// New creates a Loader. tracker may be nil.
func New(db Upserter, tracker *progress.Tracker, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{db: db, tracker: tracker, logger: logger}
}

// LoadFile opens path and loads it as kind.
func LoadFile[T any](ctx context.Context, l *Loader, path string, kind record.Kind[T], opts Options[T]) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{File: filepath.Base(path), Table: kind.Table}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	return load(ctx, l, filepath.Base(path), f, kind, opts)
}

// Load reads r as kind and upserts every valid record.
func Load[T any](ctx context.Context, l *Loader, r io.Reader, kind record.Kind[T], opts Options[T]) (Result, error) {
	return load(ctx, l, kind.File, r, kind, opts)
}

func load[T any](ctx context.Context, l *Loader, file string, r io.Reader, kind record.Kind[T], opts Options[T]) (Result, error) {
	start := time.Now()
	res := Result{File: file, Table: kind.Table}
	logger := l.logger.With(zap.String("file", file), zap.String("table", kind.Table))

	want := opts.ExpectedHeader
	if len(want) == 0 {
		want = kind.Header
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = kind.BatchSize
	}
	if batchSize <= 0 {
		batchSize = record.DefaultBatchSize
	}
	if opts.Filter != nil && opts.FilterKey == nil {
		return res, fmt.Errorf("load %s: filter requires a filter key", file)
	}

	b := &batcher[T]{l: l, kind: kind, file: file, res: &res, batch: make([]T, 0, batchSize)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	var (
		layout     record.Layout
		seenHeader bool
	)
	for sc.Scan() {
		res.Lines++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !seenHeader {
			got := record.SplitHeader(line)
			if !record.HeaderMatches(got, want) {
				return res, fmt.Errorf("load %s line %d: %w: got %v, want %v: %w",
					file, res.Lines, ErrHeaderMismatch, got, want, oews.ErrStructural)
			}
			layout = record.DetectLayout(line)
			seenHeader = true
			logger.Debug("header accepted", zap.Stringer("layout", layout))
			continue
		}

		rec, err := kind.Parse(line, layout)
		if err != nil {
			var perr *record.ParseError
			if !errors.As(err, &perr) || perr.Structural() {
				return res, fmt.Errorf("load %s line %d: %w", file, res.Lines, err)
			}
			res.Invalid++
			b.pendingSkips++
			logger.Warn("line rejected", zap.Int64("line", res.Lines), zap.Error(err))
			if opts.MaxInvalid > 0 && res.Invalid > int64(opts.MaxInvalid) {
				return res, fmt.Errorf("load %s line %d: %w (%d > %d): %w",
					file, res.Lines, ErrTooManyInvalid, res.Invalid, opts.MaxInvalid, err)
			}
			continue
		}
		res.Parsed++

		if opts.Filter != nil && !opts.Filter.Has(opts.FilterKey(rec)) {
			res.Skipped++
			b.pendingSkips++
			continue
		}

		b.batch = append(b.batch, rec)
		if len(b.batch) >= batchSize {
			if err := b.flush(ctx); err != nil {
				return res, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("read %s: %w", file, err)
	}
	if !seenHeader {
		return res, fmt.Errorf("load %s: %w: file is empty: %w", file, ErrHeaderMismatch, oews.ErrStructural)
	}
	if err := b.flush(ctx); err != nil {
		return res, err
	}

	res.Elapsed = time.Since(start)
	if res.Invalid > 0 {
		logger.Warn("file loaded with rejected lines",
			zap.Int64("invalid", res.Invalid),
			zap.Int("max_invalid", opts.MaxInvalid))
	}
	logger.Info("file loaded",
		zap.Int64("lines", res.Lines),
		zap.Int64("parsed", res.Parsed),
		zap.Int64("inserted", res.Inserted),
		zap.Int64("duplicates", res.Duplicates),
		zap.Int64("skipped", res.Skipped),
		zap.Int64("invalid", res.Invalid),
		zap.Int64("batches", res.Batches),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

type batcher[T any] struct {
	l            *Loader
	kind         record.Kind[T]
	file         string
	res          *Result
	batch        []T
	pendingSkips int64
}

// flush validates, orders, de-duplicates and commits the current batch.
func (b *batcher[T]) flush(ctx context.Context) error {
	if len(b.batch) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("load %s: %w", b.file, err)
	}
	start := time.Now()
	n := b.res.Batches + 1
	label := fmt.Sprintf("%s batch %d", b.file, n)

	if _, err := schema.ValidateBatch(label, b.batch); err != nil {
		return fmt.Errorf("load %s: %w", b.file, err)
	}

	unique := dedupe(b.kind, b.batch)
	rows := make([][]any, len(unique))
	for i, rec := range unique {
		rows[i] = b.kind.Values(rec)
	}
	inserted, err := b.l.db.Upsert(ctx, b.kind.Table, b.kind.Columns, b.kind.ConflictKey, rows)
	if err != nil {
		return fmt.Errorf("load %s batch %d: %w", b.file, n, err)
	}

	dups := int64(len(b.batch)) - inserted
	b.res.Inserted += inserted
	b.res.Duplicates += dups
	b.res.Batches = n

	b.l.tracker.Batch(progress.Event{
		Stage:   progress.StageBatchCommitted,
		Subject: b.file,
		Rows:    inserted,
		Skipped: dups + b.pendingSkips,
		Dur:     time.Since(start),
	})
	b.pendingSkips = 0
	b.batch = b.batch[:0]
	return nil
}

// dedupe orders records by key and keeps the first record of each key in
// file order.
func dedupe[T any](kind record.Kind[T], batch []T) []T {
	idx := make([]int, len(batch))
	keys := make([]string, len(batch))
	for i, rec := range batch {
		idx[i] = i
		keys[i] = kind.Key(rec)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]] < keys[idx[b]]
	})
	out := make([]T, 0, len(batch))
	for i, j := range idx {
		if i > 0 && keys[j] == keys[idx[i-1]] {
			continue
		}
		out = append(out, batch[j])
	}
	return out
}
