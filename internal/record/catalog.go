package record

import (
	"strconv"
	"strings"
)

// Default upsert batch sizes.
const (
	DefaultBatchSize       = 1000
	DefaultSeriesBatchSize = 1000
	DefaultDataBatchSize   = 2000
)

func twoColumn[T any](file, table string, header []string, mk func(a, b string) T, key func(T) string, values func(T) []any) Kind[T] {
	return Kind[T]{
		File:        file,
		Table:       table,
		Header:      header,
		Columns:     header,
		ConflictKey: header[:1],
		MinFields:   2,
		BatchSize:   DefaultBatchSize,
		parse: func(f []string) (T, error) {
			return mk(f[0], f[1]), nil
		},
		key:    key,
		values: values,
	}
}

// AreaTypes describes oe.areatype.
var AreaTypes = twoColumn("oe.areatype", "oe_areatypes",
	[]string{"areatype_code", "areatype_name"},
	func(a, b string) AreaType { return AreaType{Code: a, Name: b} },
	func(r AreaType) string { return r.Code },
	func(r AreaType) []any { return []any{r.Code, r.Name} },
)

// DataTypes describes oe.datatype.
var DataTypes = twoColumn("oe.datatype", "oe_datatypes",
	[]string{"datatype_code", "datatype_name"},
	func(a, b string) DataType { return DataType{Code: a, Name: b} },
	func(r DataType) string { return r.Code },
	func(r DataType) []any { return []any{r.Code, r.Name} },
)

// Sectors describes oe.sector.
var Sectors = twoColumn("oe.sector", "oe_sectors",
	[]string{"sector_code", "sector_name"},
	func(a, b string) Sector { return Sector{Code: a, Name: b} },
	func(r Sector) string { return r.Code },
	func(r Sector) []any { return []any{r.Code, r.Name} },
)

// Footnotes describes oe.footnote.
var Footnotes = twoColumn("oe.footnote", "oe_footnotes",
	[]string{"footnote_code", "footnote_text"},
	func(a, b string) Footnote { return Footnote{Code: a, Text: b} },
	func(r Footnote) string { return r.Code },
	func(r Footnote) []any { return []any{r.Code, r.Text} },
)

// Releases describes oe.release.
var Releases = twoColumn("oe.release", "oe_releases",
	[]string{"release_date", "description"},
	func(a, b string) Release { return Release{Date: a, Description: b} },
	func(r Release) string { return r.Date },
	func(r Release) []any { return []any{r.Date, r.Description} },
)

// Seasonals describes oe.seasonal.
var Seasonals = twoColumn("oe.seasonal", "oe_seasonal",
	[]string{"seasonal_code", "seasonal_text"},
	func(a, b string) Seasonal { return Seasonal{Code: a, Text: b} },
	func(r Seasonal) string { return r.Code },
	func(r Seasonal) []any { return []any{r.Code, r.Text} },
)

// Areas describes oe.area.
var Areas = Kind[Area]{
	File:        "oe.area",
	Table:       "oe_areas",
	Header:      []string{"state_code", "area_code", "areatype_code", "area_name"},
	Columns:     []string{"state_code", "area_code", "areatype_code", "area_name"},
	ConflictKey: []string{"state_code", "area_code"},
	MinFields:   4,
	BatchSize:   DefaultBatchSize,
	parse: func(f []string) (Area, error) {
		return Area{StateCode: f[0], AreaCode: f[1], AreaTypeCode: f[2], Name: f[3]}, nil
	},
	key:    func(r Area) string { return compositeKey(r.StateCode, r.AreaCode) },
	values: func(r Area) []any { return []any{r.StateCode, r.AreaCode, r.AreaTypeCode, r.Name} },
}

// Occupations describes oe.occupation.
var Occupations = Kind[Occupation]{
	File:   "oe.occupation",
	Table:  "oe_occupations",
	Header: []string{"occupation_code", "occupation_name", "occupation_description", "display_level", "selectable", "sort_sequence"},
	Columns: []string{
		"occupation_code", "occupation_name", "occupation_description",
		"display_level", "selectable", "sort_sequence",
	},
	ConflictKey: []string{"occupation_code"},
	MinFields:   6,
	BatchSize:   DefaultBatchSize,
	parse: func(f []string) (Occupation, error) {
		level, err := ParseInt("display_level", f[3])
		if err != nil {
			return Occupation{}, err
		}
		selectable, err := ParseBool("selectable", f[4])
		if err != nil {
			return Occupation{}, err
		}
		sortSeq, err := ParseInt("sort_sequence", f[5])
		if err != nil {
			return Occupation{}, err
		}
		return Occupation{
			Code:         f[0],
			Name:         f[1],
			Description:  Optional(f[2]),
			DisplayLevel: level,
			Selectable:   selectable,
			SortSequence: sortSeq,
		}, nil
	},
	key: func(r Occupation) string { return r.Code },
	values: func(r Occupation) []any {
		return []any{r.Code, r.Name, r.Description, r.DisplayLevel, r.Selectable, r.SortSequence}
	},
}

// ShortOccupations describes the older oe.occupation layout without the
// description column. Rows load into the same table as Occupations.
var ShortOccupations = Kind[Occupation]{
	File:        "oe.occupation",
	Table:       "oe_occupations",
	Header:      []string{"occupation_code", "occupation_name", "display_level", "selectable", "sort_sequence"},
	Columns:     Occupations.Columns,
	ConflictKey: Occupations.ConflictKey,
	MinFields:   5,
	BatchSize:   DefaultBatchSize,
	parse: func(f []string) (Occupation, error) {
		return Occupations.parse([]string{f[0], f[1], "", f[2], f[3], f[4]})
	},
	key:    Occupations.key,
	values: Occupations.values,
}

// Industries describes oe.industry.
var Industries = Kind[Industry]{
	File:        "oe.industry",
	Table:       "oe_industries",
	Header:      []string{"industry_code", "industry_name", "display_level", "selectable", "sort_sequence"},
	Columns:     []string{"industry_code", "industry_name", "display_level", "selectable", "sort_sequence"},
	ConflictKey: []string{"industry_code"},
	MinFields:   5,
	BatchSize:   DefaultBatchSize,
	parse: func(f []string) (Industry, error) {
		level, err := ParseInt("display_level", f[2])
		if err != nil {
			return Industry{}, err
		}
		selectable, err := ParseBool("selectable", f[3])
		if err != nil {
			return Industry{}, err
		}
		sortSeq, err := ParseInt("sort_sequence", f[4])
		if err != nil {
			return Industry{}, err
		}
		return Industry{Code: f[0], Name: f[1], DisplayLevel: level, Selectable: selectable, SortSequence: sortSeq}, nil
	},
	key: func(r Industry) string { return r.Code },
	values: func(r Industry) []any {
		return []any{r.Code, r.Name, r.DisplayLevel, r.Selectable, r.SortSequence}
	},
}

var seriesColumns = []string{
	"series_id", "seasonal", "areatype_code", "industry_code", "occupation_code",
	"datatype_code", "state_code", "area_code", "sector_code", "series_title",
	"footnote_codes", "begin_year", "begin_period", "end_year", "end_period",
}

// SeriesKind describes oe.series.
var SeriesKind = Kind[Series]{
	File:        "oe.series",
	Table:       "oe_series",
	Header:      seriesColumns,
	Columns:     seriesColumns,
	ConflictKey: []string{"series_id"},
	MinFields:   14,
	BatchSize:   DefaultSeriesBatchSize,
	legacy:      splitFixedSeries,
	parse:       parseSeries,
	key:         func(r Series) string { return r.SeriesID },
	values: func(r Series) []any {
		return []any{
			r.SeriesID, r.Seasonal, r.AreaTypeCode, r.IndustryCode, r.OccupationCode,
			r.DataTypeCode, r.StateCode, r.AreaCode, r.SectorCode, r.Title,
			r.FootnoteCodes, r.BeginYear, r.BeginPeriod, r.EndYear, r.EndPeriod,
		}
	},
}

// DataPoints describes oe.data.0.Current.
var DataPoints = Kind[DataPoint]{
	File:        "oe.data.0.Current",
	Table:       "oe_data",
	Header:      []string{"series_id", "year", "period", "value", "footnote_codes"},
	Columns:     []string{"series_id", "year", "period", "value", "footnote_codes"},
	ConflictKey: []string{"series_id", "year", "period"},
	MinFields:   4,
	BatchSize:   DefaultDataBatchSize,
	legacy: func(line string) ([]string, error) {
		return strings.Fields(line), nil
	},
	parse: func(f []string) (DataPoint, error) {
		year, err := ParseYear("year", f[1])
		if err != nil {
			return DataPoint{}, err
		}
		value, err := ParseValue("value", f[3])
		if err != nil {
			return DataPoint{}, err
		}
		return DataPoint{
			SeriesID:      f[0],
			Year:          year,
			Period:        f[2],
			Value:         value,
			FootnoteCodes: Optional(f[4]),
		}, nil
	},
	key: func(r DataPoint) string {
		return compositeKey(r.SeriesID, strconv.Itoa(r.Year), r.Period)
	},
	values: func(r DataPoint) []any {
		return []any{r.SeriesID, r.Year, r.Period, r.Value, r.FootnoteCodes}
	},
}

func parseSeries(f []string) (Series, error) {
	beginYear, err := ParseYear("begin_year", f[11])
	if err != nil {
		return Series{}, err
	}
	endYear, err := ParseYear("end_year", f[13])
	if err != nil {
		return Series{}, err
	}
	return Series{
		SeriesID:       f[0],
		Seasonal:       f[1],
		AreaTypeCode:   f[2],
		IndustryCode:   f[3],
		OccupationCode: f[4],
		DataTypeCode:   f[5],
		StateCode:      f[6],
		AreaCode:       f[7],
		SectorCode:     f[8],
		Title:          f[9],
		FootnoteCodes:  Optional(f[10]),
		BeginYear:      beginYear,
		BeginPeriod:    f[12],
		EndYear:        endYear,
		EndPeriod:      f[14],
	}, nil
}

// Fixed-width oe.series: a prefix of fixed columns, a free-form title, and a
// suffix holding footnotes, begin year/period and end year/period.
var (
	seriesPrefixWidths = []int{30, 1, 1, 6, 6, 2, 2, 7, 6}
	seriesSuffixWidths = []int{10, 4, 3, 4, 3}
)

const seriesSuffixLen = 10 + 4 + 3 + 4 + 3

func splitFixedSeries(line string) ([]string, error) {
	fields := make([]string, 0, len(seriesColumns))
	cursor := 0
	for _, w := range seriesPrefixWidths {
		end := min(cursor+w, len(line))
		fields = append(fields, line[min(cursor, len(line)):end])
		cursor += w
	}
	suffixStart := max(cursor, len(line)-seriesSuffixLen)
	if len(line)-suffixStart < seriesSuffixLen {
		return nil, structural("oe.series fixed-width line is %d bytes, too short for the %d byte suffix", len(line), seriesSuffixLen)
	}
	fields = append(fields, line[cursor:suffixStart])
	suffix := line[suffixStart:]
	pos := 0
	for _, w := range seriesSuffixWidths {
		fields = append(fields, suffix[pos:pos+w])
		pos += w
	}
	return fields, nil
}
