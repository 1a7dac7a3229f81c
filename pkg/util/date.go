package util

import (
    "strconv"
    "time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}

// SummaryDate truncates a timestamp to its UTC calendar day.
// Daily rollup rows are keyed by this value.
func SummaryDate(t time.Time) time.Time {
    return t.UTC().Truncate(24 * time.Hour)
}

// DayWindow returns the [from, to) range covering the trailing n days
// ending at the day of ref, inclusive.
func DayWindow(ref time.Time, n int) (time.Time, time.Time) {
    to := SummaryDate(ref).Add(24 * time.Hour)
    from := to.AddDate(0, 0, -n)
    return from, to
}

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
    if s == "" {
        return def
    }
    v, err := strconv.Atoi(s)
    if err != nil {
        return def
    }
    return v
}
