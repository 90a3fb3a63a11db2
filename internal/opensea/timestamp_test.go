package opensea

import (
	"testing"
	"time"
)

func TestNormalizeTimestampEpochSeconds(t *testing.T) {
	ts, err := NormalizeTimestamp("1612137600")
	if err != nil {
		t.Fatalf("epoch seconds should parse: %v", err)
	}
	want := time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Fatalf("expected %s, got %s", want, ts)
	}
}

func TestNormalizeTimestampNaiveISOIsUTC(t *testing.T) {
	ts, err := NormalizeTimestamp("2021-02-01T12:30:45.123456")
	if err != nil {
		t.Fatalf("naive ISO should parse: %v", err)
	}
	if ts.Location() != time.UTC {
		t.Fatalf("naive ISO must be pinned to UTC, got %s", ts.Location())
	}
	if ts.Hour() != 12 || ts.Minute() != 30 {
		t.Fatalf("wall clock must be preserved, got %s", ts)
	}
}

func TestNormalizeTimestampRFC3339(t *testing.T) {
	ts, err := NormalizeTimestamp("2021-02-01T12:00:00+02:00")
	if err != nil {
		t.Fatalf("RFC3339 should parse: %v", err)
	}
	if ts.UTC().Hour() != 10 {
		t.Fatalf("offset should be applied, got %s", ts)
	}
}

func TestNormalizeTimestampGarbage(t *testing.T) {
	for _, raw := range []string{"", "not-a-time", "02/01/2021"} {
		if _, err := NormalizeTimestamp(raw); err == nil {
			t.Fatalf("%q should not parse", raw)
		}
	}
}
