package record

import (
	"strconv"
	"strings"
)

// missingTokens are the suppression markers BLS publishes in numeric columns.
var missingTokens = map[string]struct{}{
	"-":  {},
	"*":  {},
	"**": {},
	"#":  {},
	"~":  {},
}

// IsMissing reports whether a numeric token stands for a suppressed value.
func IsMissing(token string) bool {
	_, ok := missingTokens[strings.TrimSpace(token)]
	return ok
}

// ParseYear parses a four digit year. Anything else rejects the line.
func ParseYear(field, value string) (int, error) {
	value = strings.TrimSpace(value)
	year, err := strconv.Atoi(value)
	if err != nil || len(value) != 4 {
		return 0, fieldErr(field, value, "year is not an integer")
	}
	return year, nil
}

// ParseInt parses a required integer column.
func ParseInt(field, value string) (int, error) {
	value = strings.TrimSpace(value)
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fieldErr(field, value, "not an integer")
	}
	return n, nil
}

// ParseValue parses a numeric column, mapping suppression markers to nil.
func ParseValue(field, value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" || IsMissing(value) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	if err != nil {
		return nil, fieldErr(field, value, "not a number")
	}
	return &f, nil
}

// ParseBool accepts the T/F flags used by the mapping files.
func ParseBool(field, value string) (bool, error) {
	switch strings.TrimSpace(value) {
	case "T":
		return true, nil
	case "F":
		return false, nil
	default:
		return false, fieldErr(field, value, "invalid boolean token")
	}
}

// Optional returns nil for an empty field.
func Optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
