package utils

import (
	"fmt"
	"strings"
	"time"
)

const dateOnly = "2006-01-02"

// ParseDueDate accepts RFC 3339 timestamps as well as plain YYYY-MM-DD
// dates, which are interpreted as midnight UTC.
func ParseDueDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(dateOnly, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected RFC 3339 or YYYY-MM-DD", value)
}
