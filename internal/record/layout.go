package record

import "strings"

// Layout is the physical field layout a file declares through its header.
type Layout int

const (
	// LayoutDelimited splits on a single tab. This is the current upstream format.
	LayoutDelimited Layout = iota
	// LayoutFixedWidth covers the legacy distribution: fixed byte offsets for
	// oe.series and whitespace separated columns for oe.data.
	LayoutFixedWidth
)

func (l Layout) String() string {
	if l == LayoutFixedWidth {
		return "fixed-width"
	}
	return "tab-delimited"
}

// DetectLayout picks the layout for a whole file from its header row.
func DetectLayout(header string) Layout {
	if strings.Contains(header, "\t") {
		return LayoutDelimited
	}
	return LayoutFixedWidth
}

// SplitHeader returns the ordered field names of a header row.
func SplitHeader(header string) []string {
	header = strings.TrimRight(header, "\r")
	var parts []string
	if DetectLayout(header) == LayoutDelimited {
		parts = strings.Split(header, "\t")
	} else {
		parts = strings.Fields(header)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HeaderMatches compares field names in order.
func HeaderMatches(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
