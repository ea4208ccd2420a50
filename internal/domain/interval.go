package domain

import (
	"fmt"
	"strings"
	"time"
)

// Interval is a fixed resampling bucket width.
type Interval string

const (
	Hourly Interval = "hourly"
	Daily  Interval = "daily"
	Weekly Interval = "weekly"
)

// Intervals lists every supported interval, finest first.
var Intervals = []Interval{Hourly, Daily, Weekly}

// ParseInterval accepts the interval names as well as the short forms h, d and w.
func ParseInterval(s string) (Interval, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hourly", "hour", "h":
		return Hourly, nil
	case "daily", "day", "d":
		return Daily, nil
	case "weekly", "week", "w":
		return Weekly, nil
	default:
		return "", fmt.Errorf("unknown interval %q", s)
	}
}

// Step returns the bucket width, or 0 for an unknown interval.
// All buckets are computed in UTC, so the widths are fixed.
func (iv Interval) Step() time.Duration {
	switch iv {
	case Hourly:
		return time.Hour
	case Daily:
		return 24 * time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Bucket returns the label of the bucket containing t.
//
//	hourly: start of the hour
//	daily:  midnight
//	weekly: midnight of the Sunday closing the Monday..Sunday week
func (iv Interval) Bucket(t time.Time) time.Time {
	t = t.UTC()
	switch iv {
	case Hourly:
		return t.Truncate(time.Hour)
	case Daily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case Weekly:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (7 - int(day.Weekday())) % 7
		return day.AddDate(0, 0, offset)
	default:
		return t
	}
}

func (iv Interval) String() string {
	return string(iv)
}
