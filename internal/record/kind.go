package record

import (
	"strings"
)

// Kind describes one bulk file: where its rows go, how a line becomes a
// record, and which columns form its natural key.
type Kind[T any] struct {
	// File is the upstream file name, e.g. oe.series.
	File string
	// Table is the destination table.
	Table string
	// Header is the ordered field list the first line must carry.
	Header []string
	// Columns lists destination columns in the order Values returns them.
	Columns []string
	// ConflictKey is the natural key used as the upsert conflict target.
	ConflictKey []string
	// MinFields is the hard minimum below which a line is structurally broken.
	MinFields int
	// BatchSize is the default number of records per upsert.
	BatchSize int

	legacy func(line string) ([]string, error)
	parse  func(fields []string) (T, error)
	key    func(T) string
	values func(T) []any
}

// Parse turns one line into a record using the file's layout.
func (k Kind[T]) Parse(line string, layout Layout) (T, error) {
	var zero T
	line = strings.TrimRight(line, "\r\n")

	var fields []string
	switch layout {
	case LayoutDelimited:
		fields = strings.Split(line, "\t")
	case LayoutFixedWidth:
		if k.legacy == nil {
			return zero, structural("%s has no fixed-width layout", k.File)
		}
		var err error
		if fields, err = k.legacy(line); err != nil {
			return zero, err
		}
	default:
		return zero, structural("unknown layout %d", layout)
	}

	if len(fields) < k.MinFields {
		return zero, structural("%s line has %d fields, want at least %d", k.File, len(fields), k.MinFields)
	}
	if len(fields) > len(k.Header) {
		return zero, structural("%s line has %d fields, want at most %d", k.File, len(fields), len(k.Header))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	// Optional trailing fields may be cut off entirely.
	for len(fields) < len(k.Header) {
		fields = append(fields, "")
	}
	return k.parse(fields)
}

// Key returns the record's natural key.
func (k Kind[T]) Key(rec T) string {
	return k.key(rec)
}

// Values returns the record's column values in Columns order.
func (k Kind[T]) Values(rec T) []any {
	return k.values(rec)
}

func compositeKey(parts ...string) string {
	return strings.Join(parts, "\x1f")
}
