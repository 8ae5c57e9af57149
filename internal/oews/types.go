package oews

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// MinLevel is the shallowest industry classification level (two-digit sectors).
	MinLevel = 2
	// MaxLevel is the deepest industry classification level (six-digit industries).
	MaxLevel = 6
)

var (
	industryCodePattern = regexp.MustCompile(`^\d{2,6}$`)
	socPattern          = regexp.MustCompile(`^\d{2}-\d{4}$`)
)

// Node is one entry of the industry classification tree.
type Node struct {
	Code  string `json:"code"`
	Title string `json:"title"`
	Level int    `json:"level"`
	// Parent is empty for level-2 nodes.
	Parent string `json:"parent,omitempty"`
}

// IsRoot reports whether the node sits at the shallowest level.
func (n Node) IsRoot() bool {
	return n.Level == MinLevel
}

// Expandable reports whether a found node may have its children crawled.
func (n Node) Expandable() bool {
	return n.Level < MaxLevel
}

// NewNode derives level and parent from the code. Codes outside 2..6 digits
// are rejected.
func NewNode(code, title string) (Node, error) {
	code = strings.TrimSpace(code)
	if !industryCodePattern.MatchString(code) {
		return Node{}, fmt.Errorf("industry code %q: want 2 to 6 digits", code)
	}
	n := Node{Code: code, Title: strings.TrimSpace(title), Level: len(code)}
	if n.Level > MinLevel {
		n.Parent = code[:len(code)-1]
	}
	return n, nil
}

// Occupation is an SOC-style occupation code (NN-NNNN) with its title.
type Occupation struct {
	Code  string `json:"code" validate:"required,len=7"`
	Title string `json:"title" validate:"required"`
}

// NormalizeSOC turns the six-digit bulk form (111011) into the dashed form
// (11-1011). Already dashed codes are returned unchanged. ok is false when the
// result is not a detailed SOC code.
func NormalizeSOC(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 6 && !strings.Contains(raw, "-") {
		raw = raw[:2] + "-" + raw[2:]
	}
	return raw, socPattern.MatchString(raw)
}

// YearRange bounds the years requested from the timeseries API.
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Validate ensures Start <= End and both look like years.
func (y YearRange) Validate() error {
	if y.Start < 1900 || y.End < 1900 {
		return fmt.Errorf("year range %d-%d: years must be >= 1900", y.Start, y.End)
	}
	if y.Start > y.End {
		return fmt.Errorf("year range %d-%d: start after end", y.Start, y.End)
	}
	return nil
}

// Observation is one published value of a wage series.
type Observation struct {
	SeriesID SeriesID `json:"series_id"`
	Year     int      `json:"year"`
	Period   string   `json:"period"`
	// Value is nil when the API reports the value as suppressed.
	Value     *float64 `json:"value"`
	Footnotes string   `json:"footnotes,omitempty"`
}

// Resolution records whether a series was checked and returned data.
type Resolution struct {
	SeriesID       SeriesID  `json:"series_id"`
	OccupationCode string    `json:"occupation_code"`
	IndustryCode   string    `json:"industry_code"`
	Found          bool      `json:"found"`
	CheckedAt      time.Time `json:"checked_at"`
}

// Outcome pairs a resolution with the observations that justified it.
type Outcome struct {
	Resolution   Resolution
	Observations []Observation
}
