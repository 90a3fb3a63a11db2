package opensea

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Source timestamps have shipped in several shapes across API versions: plain
// epoch seconds, full RFC 3339, and a timezone-less ISO form that must be read
// as UTC. NormalizeTimestamp accepts all of them and returns a UTC time.
func NormalizeTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, &TimestampError{Raw: raw}
	}

	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		millis := int64(secs * 1000)
		return time.UnixMilli(millis).UTC(), nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}

	// Naive ISO strings carry no zone marker; parsing them in local time is a
	// known misparse, so they are pinned to UTC here.
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &TimestampError{Raw: raw}
}

// TimestampError reports a source timestamp that matched no known encoding.
type TimestampError struct {
	Raw string
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("unrecognized event timestamp %q", e.Raw)
}
