package oews

import (
	"fmt"
	"strings"
)

// SeriesID is the timeseries identifier used by the API and the resolution store.
type SeriesID string

const (
	// seriesPrefix: survey OE, not seasonally adjusted, national area type, area 0000000.
	seriesPrefix = "OEUN0000000"
	// MeanAnnualWage is the datatype code appended to every crawled series.
	MeanAnnualWage = "03"
	industryWidth  = 6
	socDigits      = 6
)

// DeriveSeriesID builds the national mean-annual-wage series for an
// occupation in an industry node. The industry code is right padded with
// zeros to six digits, so 11111 and 111110 derive the same identity and are
// resolved as one unit of work.
func DeriveSeriesID(occupationCode, industryCode string) (SeriesID, error) {
	soc := strings.ReplaceAll(strings.TrimSpace(occupationCode), "-", "")
	if len(soc) != socDigits || !allDigits(soc) {
		return "", fmt.Errorf("derive series id: occupation %q is not a six digit SOC code", occupationCode)
	}
	naics := strings.TrimSpace(industryCode)
	if !industryCodePattern.MatchString(naics) {
		return "", fmt.Errorf("derive series id: industry %q is not a 2 to 6 digit code", industryCode)
	}
	naics += strings.Repeat("0", industryWidth-len(naics))

	var b strings.Builder
	b.Grow(len(seriesPrefix) + industryWidth + socDigits + len(MeanAnnualWage))
	b.WriteString(seriesPrefix)
	b.WriteString(naics)
	b.WriteString(soc)
	b.WriteString(MeanAnnualWage)
	return SeriesID(b.String()), nil
}

// Occupation returns the dashed SOC code embedded in a derived identity, or
// "" when id was not built by DeriveSeriesID.
func (id SeriesID) Occupation() string {
	s := string(id)
	if len(s) != len(seriesPrefix)+industryWidth+socDigits+len(MeanAnnualWage) || !strings.HasPrefix(s, seriesPrefix) {
		return ""
	}
	soc := s[len(seriesPrefix)+industryWidth : len(seriesPrefix)+industryWidth+socDigits]
	return soc[:2] + "-" + soc[2:]
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
