package record

// AreaType is a row of oe.areatype.
type AreaType struct {
	Code string `db:"areatype_code" validate:"required,max=1"`
	Name string `db:"areatype_name" validate:"required"`
}

// Area is a row of oe.area.
type Area struct {
	StateCode    string `db:"state_code" validate:"required,max=2"`
	AreaCode     string `db:"area_code" validate:"required,max=7"`
	AreaTypeCode string `db:"areatype_code" validate:"required,max=1"`
	Name         string `db:"area_name" validate:"required"`
}

// DataType is a row of oe.datatype.
type DataType struct {
	Code string `db:"datatype_code" validate:"required,max=2"`
	Name string `db:"datatype_name" validate:"required"`
}

// Sector is a row of oe.sector.
type Sector struct {
	Code string `db:"sector_code" validate:"required,max=6"`
	Name string `db:"sector_name" validate:"required"`
}

// Footnote is a row of oe.footnote.
type Footnote struct {
	Code string `db:"footnote_code" validate:"required"`
	Text string `db:"footnote_text" validate:"required"`
}

// Release is a row of oe.release.
type Release struct {
	Date        string `db:"release_date" validate:"required"`
	Description string `db:"description" validate:"required"`
}

// Seasonal is a row of oe.seasonal.
type Seasonal struct {
	Code string `db:"seasonal_code" validate:"required,oneof=S U"`
	Text string `db:"seasonal_text" validate:"required"`
}

// Occupation is a row of oe.occupation.
type Occupation struct {
	Code         string  `db:"occupation_code" validate:"required,len=6,numeric"`
	Name         string  `db:"occupation_name" validate:"required"`
	Description  *string `db:"occupation_description"`
	DisplayLevel int     `db:"display_level" validate:"gte=0,lte=9"`
	Selectable   bool    `db:"selectable"`
	SortSequence int     `db:"sort_sequence" validate:"gte=0"`
}

// Industry is a row of oe.industry.
type Industry struct {
	Code         string `db:"industry_code" validate:"required,len=6,numeric"`
	Name         string `db:"industry_name" validate:"required"`
	DisplayLevel int    `db:"display_level" validate:"gte=0,lte=9"`
	Selectable   bool   `db:"selectable"`
	SortSequence int    `db:"sort_sequence" validate:"gte=0"`
}

// Series is a row of oe.series.
type Series struct {
	SeriesID       string  `db:"series_id" validate:"required,max=30"`
	Seasonal       string  `db:"seasonal" validate:"required,oneof=S U"`
	AreaTypeCode   string  `db:"areatype_code" validate:"required,max=1"`
	IndustryCode   string  `db:"industry_code" validate:"required,max=6"`
	OccupationCode string  `db:"occupation_code" validate:"required,max=6"`
	DataTypeCode   string  `db:"datatype_code" validate:"required,max=2"`
	StateCode      string  `db:"state_code" validate:"required,max=2"`
	AreaCode       string  `db:"area_code" validate:"required,max=7"`
	SectorCode     string  `db:"sector_code" validate:"required,max=6"`
	Title          string  `db:"series_title" validate:"required"`
	FootnoteCodes  *string `db:"footnote_codes" validate:"omitempty,max=10"`
	BeginYear      int     `db:"begin_year" validate:"gte=1900,lte=2100"`
	BeginPeriod    string  `db:"begin_period" validate:"required,len=3"`
	EndYear        int     `db:"end_year" validate:"gte=1900,lte=2100,gtefield=BeginYear"`
	EndPeriod      string  `db:"end_period" validate:"required,len=3"`
}

// DataPoint is a row of oe.data.*.
type DataPoint struct {
	SeriesID string `db:"series_id" validate:"required,max=30"`
	Year     int    `db:"year" validate:"gte=1900,lte=2100"`
	Period   string `db:"period" validate:"required,len=3"`
	// Value is nil for suppressed estimates.
	Value         *float64 `db:"value"`
	FootnoteCodes *string  `db:"footnote_codes" validate:"omitempty,max=10"`
}
