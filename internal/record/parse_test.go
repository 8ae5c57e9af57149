package record

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/oews-ingest/internal/oews"
)

func TestDetectLayout(t *testing.T) {
	t.Parallel()

	require.Equal(t, LayoutDelimited, DetectLayout("series_id\tyear\tperiod"))
	require.Equal(t, LayoutFixedWidth, DetectLayout("series_id   year   period"))
}

func TestSplitHeader(t *testing.T) {
	t.Parallel()

	got := SplitHeader("series_id\tyear\tperiod\tvalue\tfootnote_codes\r")
	require.Equal(t, []string{"series_id", "year", "period", "value", "footnote_codes"}, got)
	require.True(t, HeaderMatches(got, DataPoints.Header))

	legacy := SplitHeader("series_id          year period       value footnote_codes")
	require.True(t, HeaderMatches(legacy, DataPoints.Header))
	require.False(t, HeaderMatches(legacy[:4], DataPoints.Header))
}

func TestParseDataDelimited(t *testing.T) {
	t.Parallel()

	rec, err := DataPoints.Parse("S1\t2023\tA01\t85000\t", LayoutDelimited)
	require.NoError(t, err)
	require.Equal(t, "S1", rec.SeriesID)
	require.Equal(t, 2023, rec.Year)
	require.Equal(t, "A01", rec.Period)
	require.NotNil(t, rec.Value)
	require.InDelta(t, 85000.0, *rec.Value, 0.0001)
	require.Nil(t, rec.FootnoteCodes)
}

func TestParseDataMissingValue(t *testing.T) {
	t.Parallel()

	for _, token := range []string{"-", "*", "**", "#", "~"} {
		rec, err := DataPoints.Parse(fmt.Sprintf("S1\t2023\tA01\t%s\t5", token), LayoutDelimited)
		require.NoError(t, err, token)
		require.Nil(t, rec.Value, token)
		require.NotNil(t, rec.FootnoteCodes)
		require.Equal(t, "5", *rec.FootnoteCodes)
	}
}

func TestParseDataWhitespaceLegacy(t *testing.T) {
	t.Parallel()

	rec, err := DataPoints.Parse("OEUN000000000000000000001     2023 A01    123.45", LayoutFixedWidth)
	require.NoError(t, err)
	require.Equal(t, "OEUN000000000000000000001", rec.SeriesID)
	require.InDelta(t, 123.45, *rec.Value, 0.0001)
	require.Nil(t, rec.FootnoteCodes)
}

func TestParseDataBadYearRejectsLine(t *testing.T) {
	t.Parallel()

	_, err := DataPoints.Parse("S1\t20x3\tA01\t1\t", LayoutDelimited)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, FieldError, perr.Kind)
	require.Equal(t, "year", perr.Field)
	require.False(t, errors.Is(err, oews.ErrStructural))
}

func TestParseDataTooFewFieldsIsStructural(t *testing.T) {
	t.Parallel()

	_, err := DataPoints.Parse("S1\t2023\tA01", LayoutDelimited)
	require.ErrorIs(t, err, oews.ErrStructural)

	_, err = DataPoints.Parse("S1\t2023\tA01\t1\t2\t3", LayoutDelimited)
	require.ErrorIs(t, err, oews.ErrStructural)
}

func TestParseMappingNoLegacyLayout(t *testing.T) {
	t.Parallel()

	_, err := AreaTypes.Parse("N National", LayoutFixedWidth)
	require.ErrorIs(t, err, oews.ErrStructural)
}

func TestParseOccupation(t *testing.T) {
	t.Parallel()

	rec, err := Occupations.Parse("111011\tChief Executives\t\t3\tT\t4", LayoutDelimited)
	require.NoError(t, err)
	require.Equal(t, "111011", rec.Code)
	require.Nil(t, rec.Description)
	require.Equal(t, 3, rec.DisplayLevel)
	require.True(t, rec.Selectable)
	require.Equal(t, 4, rec.SortSequence)

	_, err = Occupations.Parse("111011\tChief Executives\t\t3\tY\t4", LayoutDelimited)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "selectable", perr.Field)
}

func TestParseShortOccupation(t *testing.T) {
	t.Parallel()

	rec, err := ShortOccupations.Parse("151252\tSoftware Developers\t3\tT\t10", LayoutDelimited)
	require.NoError(t, err)
	require.Equal(t, Occupation{Code: "151252", Name: "Software Developers", DisplayLevel: 3, Selectable: true, SortSequence: 10}, rec)
	require.Equal(t, Occupations.Values(rec), ShortOccupations.Values(rec))

	_, err = ShortOccupations.Parse("151252\tSoftware Developers\t\t3\tT\t10", LayoutDelimited)
	require.ErrorIs(t, err, oews.ErrStructural, "six fields do not fit the short layout")
}

func TestParseSeriesDelimited(t *testing.T) {
	t.Parallel()

	line := strings.Join([]string{
		"OEUN000000000000000000001", "U", "N", "000000", "000000", "01", "00", "0000000", "000000",
		"Employment for All Occupations", "", "2023", "A01", "2024", "A01",
	}, "\t")
	rec, err := SeriesKind.Parse(line, LayoutDelimited)
	require.NoError(t, err)
	require.Equal(t, "OEUN000000000000000000001", rec.SeriesID)
	require.Equal(t, "Employment for All Occupations", rec.Title)
	require.Nil(t, rec.FootnoteCodes)
	require.Equal(t, 2023, rec.BeginYear)
	require.Equal(t, 2024, rec.EndYear)
	require.Equal(t, "OEUN000000000000000000001", SeriesKind.Key(rec))
	require.Len(t, SeriesKind.Values(rec), len(SeriesKind.Columns))
}

func fixedSeriesLine(title, footnotes, beginYear, endYear string) string {
	pad := func(s string, w int) string { return s + strings.Repeat(" ", w-len(s)) }
	return pad("OEUN000000000000000000001", 30) + "U" + "N" + "000000" + "000000" + "01" + "00" +
		"0000000" + "000000" + title + pad(footnotes, 10) + beginYear + "A01" + endYear + "A01"
}

func TestParseSeriesFixedWidth(t *testing.T) {
	t.Parallel()

	rec, err := SeriesKind.Parse(fixedSeriesLine("  Employment for All Occupations  ", "", "2023", "2024"), LayoutFixedWidth)
	require.NoError(t, err)
	require.Equal(t, "OEUN000000000000000000001", rec.SeriesID)
	require.Equal(t, "U", rec.Seasonal)
	require.Equal(t, "0000000", rec.AreaCode)
	require.Equal(t, "Employment for All Occupations", rec.Title)
	require.Nil(t, rec.FootnoteCodes)
	require.Equal(t, "A01", rec.BeginPeriod)
	require.Equal(t, 2024, rec.EndYear)
}

func TestParseSeriesFixedWidthErrors(t *testing.T) {
	t.Parallel()

	_, err := SeriesKind.Parse("OEUN0000000000000000000001 U N", LayoutFixedWidth)
	require.ErrorIs(t, err, oews.ErrStructural)

	_, err = SeriesKind.Parse(fixedSeriesLine("Title", "", "20XX", "2024"), LayoutFixedWidth)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, FieldError, perr.Kind)
	require.Equal(t, "begin_year", perr.Field)
}

func TestAreaCompositeKey(t *testing.T) {
	t.Parallel()

	a, err := Areas.Parse("06\t0000000\tS\tCalifornia", LayoutDelimited)
	require.NoError(t, err)
	b, err := Areas.Parse("06\t0031080\tM\tLos Angeles", LayoutDelimited)
	require.NoError(t, err)
	require.NotEqual(t, Areas.Key(a), Areas.Key(b))
}
