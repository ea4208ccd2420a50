package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TimeTagLayout is the GOES time_tag format, e.g. "2006-04-02 12:01:00.000".
const TimeTagLayout = "2006-01-02 15:04:05.000"

// DefaultQuakeCutoffYear drops catalog entries at or before this year.
const DefaultQuakeCutoffYear = 1985

// CleanMagnetometer drops rows holding the invalid-reading sentinel in any
// channel and derives each row's timestamp from its time_tag. Row order is
// preserved. A time_tag that does not parse is a fatal error.
func CleanMagnetometer(records []MagRecord) (Table, CleanStats, error) {
	stats := CleanStats{Input: len(records)}
	t := NewTable(MagnetometerColumns...)

	for i, rec := range records {
		if !validReading(rec.HP) || !validReading(rec.HE) || !validReading(rec.HN) || !validReading(rec.HT) {
			stats.Dropped++
			continue
		}
		ts, err := time.Parse(TimeTagLayout, strings.TrimSpace(rec.TimeTag))
		if err != nil {
			return Table{}, stats, fmt.Errorf("row %d: parse time_tag %q: %w", i+1, rec.TimeTag, err)
		}
		t.Append(ts, rec.HP, rec.HE, rec.HN, rec.HT)
		stats.Kept++
	}

	return t, stats, nil
}

func validReading(v float64) bool {
	return v != InvalidReading
}

// CleanQuakes drops catalog rows at or before cutoffYear and builds an
// absolute timestamp from the split date fields, truncating seconds.
func CleanQuakes(records []QuakeRecord, cutoffYear int) (Table, CleanStats, error) {
	stats := CleanStats{Input: len(records)}
	t := NewTable(QuakeColumns...)

	for i, rec := range records {
		if rec.Year <= cutoffYear {
			stats.Dropped++
			continue
		}
		ts, err := quakeTime(rec)
		if err != nil {
			return Table{}, stats, fmt.Errorf("row %d: %w", i+1, err)
		}
		t.Append(ts, rec.Magnitude)
		stats.Kept++
	}

	return t, stats, nil
}

// quakeTime validates the calendar fields instead of letting time.Date
// normalize them, so "1990-02-30" is rejected rather than becoming March 2.
func quakeTime(rec QuakeRecord) (time.Time, error) {
	month, err := wholeField("month", rec.Month, 1, 12)
	if err != nil {
		return time.Time{}, err
	}
	day, err := wholeField("day", rec.Day, 1, DaysIn(rec.Year, time.Month(month)))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w for %04d-%02d", err, rec.Year, month)
	}
	hour, err := wholeField("hour", rec.Hour, 0, 23)
	if err != nil {
		return time.Time{}, err
	}
	minute, err := wholeField("minute", rec.Minute, 0, 59)
	if err != nil {
		return time.Time{}, err
	}
	if math.IsNaN(rec.Second) || rec.Second < 0 || rec.Second >= 60 {
		return time.Time{}, fmt.Errorf("invalid second %v", rec.Second)
	}
	return time.Date(rec.Year, time.Month(month), day, hour, minute, int(rec.Second), 0, time.UTC), nil
}

// wholeField checks that v is a whole number in [lo, hi].
func wholeField(name string, v float64, lo, hi int) (int, error) {
	if math.IsNaN(v) {
		return 0, fmt.Errorf("missing %s", name)
	}
	if v != math.Trunc(v) || v < float64(lo) || v > float64(hi) {
		return 0, fmt.Errorf("invalid %s %v", name, v)
	}
	return int(v), nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
