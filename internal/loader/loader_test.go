package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/oews-ingest/internal/oews"
	"github.com/JakeFAU/oews-ingest/internal/record"
	"github.com/JakeFAU/oews-ingest/internal/schema"
)

// memDB mimics INSERT ... ON CONFLICT DO NOTHING per table.
type memDB struct {
	mu     sync.Mutex
	tables map[string]map[string][]any
	calls  []call
	fail   error
}

type call struct {
	table string
	keys  []string
}

func newMemDB() *memDB {
	return &memDB{tables: map[string]map[string][]any{}}
}

func (m *memDB) Upsert(_ context.Context, table string, columns, conflict []string, rows [][]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return 0, m.fail
	}
	pos := make([]int, len(conflict))
	for i, c := range conflict {
		pos[i] = indexOf(columns, c)
	}
	t := m.tables[table]
	if t == nil {
		t = map[string][]any{}
		m.tables[table] = t
	}
	var inserted int64
	c := call{table: table}
	for _, row := range rows {
		parts := make([]string, len(pos))
		for i, p := range pos {
			parts[i] = fmt.Sprint(row[p])
		}
		key := strings.Join(parts, "|")
		c.keys = append(c.keys, key)
		if _, ok := t[key]; ok {
			continue
		}
		t[key] = row
		inserted++
	}
	m.calls = append(m.calls, c)
	return inserted, nil
}

func (m *memDB) Keys(_ context.Context, table, column string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]struct{}{}
	for k := range m.tables[table] {
		out[strings.Split(k, "|")[0]] = struct{}{}
	}
	return out, nil
}

func (m *memDB) count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

func indexOf(xs []string, x string) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return -1
}

const dataHeader = "series_id\tyear\tperiod\tvalue\tfootnote_codes\n"

func TestLoadDuplicateLineInsertsOnce(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	l := New(db, nil, nil)
	input := "series_id\tyear\tperiod\tvalue\tfootnotes\n" +
		"S1\t2023\tA01\t85000\t\n" +
		"S1\t2023\tA01\t85000\t\n"

	res, err := Load(context.Background(), l, strings.NewReader(input), record.DataPoints, Options[record.DataPoint]{
		ExpectedHeader: []string{"series_id", "year", "period", "value", "footnotes"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Inserted)
	require.Equal(t, int64(1), res.Duplicates)
	require.Equal(t, int64(2), res.Parsed)
	require.Equal(t, 1, db.count("oe_data"))
}

func TestLoadIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	l := New(db, nil, nil)
	input := dataHeader +
		"S2\t2023\tA01\t1\t\n" +
		"S1\t2023\tA01\t-\t\n" +
		"S1\t2024\tA01\t3\t5\n"

	first, err := Load(context.Background(), l, strings.NewReader(input), record.DataPoints, Options[record.DataPoint]{BatchSize: 2})
	require.NoError(t, err)
	n1 := db.count("oe_data")

	second, err := Load(context.Background(), l, strings.NewReader(input), record.DataPoints, Options[record.DataPoint]{BatchSize: 2})
	require.NoError(t, err)
	n2 := db.count("oe_data")

	require.Equal(t, 3, n1)
	require.Equal(t, n1, n2)
	require.Equal(t, int64(3), first.Inserted)
	require.Zero(t, second.Inserted)
	require.Equal(t, int64(3), second.Duplicates)
	require.Equal(t, int64(2), second.Batches)
}

func TestLoadHeaderMismatchFailsBeforeAnyRow(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	input := "series_id\tyear\tvalue\n" + "S1\t2023\tA01\t1\t\n"

	_, err := Load(context.Background(), New(db, nil, nil), strings.NewReader(input), record.DataPoints, Options[record.DataPoint]{})
	require.ErrorIs(t, err, ErrHeaderMismatch)
	require.ErrorIs(t, err, oews.ErrStructural)
	require.Empty(t, db.calls)
}

func TestLoadEmptyFileIsHeaderMismatch(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), New(newMemDB(), nil, nil), strings.NewReader("\n\n"), record.Footnotes, Options[record.Footnote]{})
	require.ErrorIs(t, err, ErrHeaderMismatch)
}

func TestLoadStructuralLineAbortsKeepingCommittedBatches(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	input := dataHeader +
		"S1\t2023\tA01\t1\t\n" +
		"S2\t2023\n" +
		"S3\t2023\tA01\t1\t\n"

	res, err := Load(context.Background(), New(db, nil, nil), strings.NewReader(input), record.DataPoints, Options[record.DataPoint]{BatchSize: 1})
	require.ErrorIs(t, err, oews.ErrStructural)
	require.Contains(t, err.Error(), "line 3")
	require.Equal(t, int64(1), res.Inserted)
	require.Equal(t, 1, db.count("oe_data"))
}

func TestLoadRejectsBadYearLine(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	input := dataHeader +
		"S1\t20X3\tA01\t1\t\n" +
		"S2\t2023\tA01\t1\t\n"

	core, logs := observer.New(zapcore.WarnLevel)
	res, err := Load(context.Background(), New(db, nil, zap.New(core)), strings.NewReader(input), record.DataPoints, Options[record.DataPoint]{})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Invalid)
	require.Equal(t, int64(1), res.Inserted)

	rejected := logs.FilterMessage("line rejected").All()
	require.Len(t, rejected, 1)
	require.Equal(t, int64(2), rejected[0].ContextMap()["line"])
	require.Equal(t, 1, logs.FilterMessage("file loaded with rejected lines").Len())
}

func TestLoadMaxInvalidAborts(t *testing.T) {
	t.Parallel()

	input := dataHeader +
		"S1\t20X3\tA01\t1\t\n" +
		"S2\tyear\tA01\t1\t\n"

	res, err := Load(context.Background(), New(newMemDB(), nil, nil), strings.NewReader(input), record.DataPoints,
		Options[record.DataPoint]{MaxInvalid: 1})
	require.ErrorIs(t, err, ErrTooManyInvalid)
	require.Equal(t, int64(2), res.Invalid)
}

func TestLoadValidationFailureRejectsWholeBatch(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	input := dataHeader +
		"S1\t2023\tA01\t1\t\n" +
		"S2\t2023\tA1\t1\t\n"

	_, err := Load(context.Background(), New(db, nil, nil), strings.NewReader(input), record.DataPoints, Options[record.DataPoint]{})
	require.ErrorIs(t, err, oews.ErrValidation)

	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "oe.data.0.Current batch 1", verr.Label)
	require.Len(t, verr.Violations, 1)
	require.Equal(t, 1, verr.Violations[0].Index)
	require.Zero(t, db.count("oe_data"))
}

func TestLoadFilterSkipsUnknownKeys(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	input := dataHeader +
		"S1\t2023\tA01\t1\t\n" +
		"S9\t2023\tA01\t1\t\n"

	res, err := Load(context.Background(), New(db, nil, nil), strings.NewReader(input), record.DataPoints, Options[record.DataPoint]{
		Filter:    KeySet{"S1": {}},
		FilterKey: func(d record.DataPoint) string { return d.SeriesID },
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Skipped)
	require.Equal(t, int64(1), res.Inserted)
}

func TestLoadCommitsInKeyOrder(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	input := dataHeader +
		"S3\t2023\tA01\t1\t\n" +
		"S1\t2024\tA01\t1\t\n" +
		"S1\t2023\tA01\t1\t\n" +
		"S2\t2023\tA01\t1\t\n"

	res, err := Load(context.Background(), New(db, nil, nil), strings.NewReader(input), record.DataPoints, Options[record.DataPoint]{})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Batches)
	require.Len(t, db.calls, 1)
	require.True(t, sort.StringsAreSorted(db.calls[0].keys), db.calls[0].keys)
}

func TestLoadNormalizesLineEndings(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	input := "\r\nfootnote_code\tfootnote_text\r\n1\tEstimate not released\r\n\r\n2\tWage over cap\r\n"

	res, err := Load(context.Background(), New(db, nil, nil), strings.NewReader(input), record.Footnotes, Options[record.Footnote]{})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Inserted)
	require.Equal(t, []any{"2", "Wage over cap"}, db.tables["oe_footnotes"]["2"])
}

func TestLoadFixedWidthDataFile(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	input := "series_id                      year period        value footnote_codes\n" +
		"OEUN000000000000000000001      2023 A01        150000\n" +
		"OEUN000000000000000000001      2024 A01             -   5\n"

	res, err := Load(context.Background(), New(db, nil, nil), strings.NewReader(input), record.DataPoints, Options[record.DataPoint]{})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Inserted)
	row := db.tables["oe_data"]["OEUN000000000000000000001|2024|A01"]
	require.Nil(t, row[3])
}

func TestLoadStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, New(newMemDB(), nil, nil), strings.NewReader(dataHeader+"S1\t2023\tA01\t1\t\n"),
		record.DataPoints, Options[record.DataPoint]{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadPropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	db.fail = errors.New("connection reset")
	_, err := Load(context.Background(), New(db, nil, nil), strings.NewReader(dataHeader+"S1\t2023\tA01\t1\t\n"),
		record.DataPoints, Options[record.DataPoint]{})
	require.ErrorContains(t, err, "batch 1: connection reset")
}

func TestLoadFileUsesFileName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "oe.data.1.AllData")
	require.NoError(t, os.WriteFile(path, []byte(dataHeader+"S1\t2023\tA01\t1\t\n"), 0o600))

	res, err := LoadFile(context.Background(), New(newMemDB(), nil, nil), path, record.DataPoints, Options[record.DataPoint]{})
	require.NoError(t, err)
	require.Equal(t, "oe.data.1.AllData", res.File)
	require.Equal(t, "oe_data", res.Table)
}
