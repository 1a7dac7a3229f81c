package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2025-03-04T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2025, 3, 4, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2025, 3, 4, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestSummaryDate(t *testing.T) {
    in := time.Date(2025, 3, 4, 23, 59, 59, 0, time.FixedZone("UTC+7", 7*3600))
    got := SummaryDate(in)
    want := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
    if !got.Equal(want) {
        t.Fatalf("summary date %v, want %v", got, want)
    }
}

func TestDayWindow(t *testing.T) {
    ref := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)
    from, to := DayWindow(ref, 7)
    if !to.Equal(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)) {
        t.Fatalf("unexpected to %v", to)
    }
    if !from.Equal(time.Date(2025, 2, 26, 0, 0, 0, 0, time.UTC)) {
        t.Fatalf("unexpected from %v", from)
    }
}
