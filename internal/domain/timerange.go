package domain

import (
	"regexp"
	"strconv"
	"time"
)

// The dashboard displays wall-clock ranges in JST regardless of where the
// process runs; all upstream timestamps are absolute instants.
var jst = time.FixedZone("JST", 9*60*60)

var timeRangeRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})〜(\d{1,2}):(\d{2})$`)

// ComputedRange is the absolute time window resolved from a calendar date and
// a display time-range label, plus the equal-length preceding window.
type ComputedRange struct {
	CurrentStart  time.Time
	CurrentEnd    time.Time
	PreviousStart time.Time

	// Millisecond forms used for in-window filtering during aggregation.
	CurrentStartMs int64
	CurrentEndMs   int64
}

// ResolveRange converts a (date, time-range label) pair into a ComputedRange.
// The date must be YYYY-MM-DD and the label must match H:MM〜H:MM; both clock
// times are interpreted in JST. Returns nil when either input is missing or
// malformed, or when the resolved window would be empty or inverted; callers
// treat nil as "range not selected".
func ResolveRange(date, timeRange string) *ComputedRange {
	if date == "" || timeRange == "" {
		return nil
	}
	m := timeRangeRe.FindStringSubmatch(timeRange)
	if m == nil {
		return nil
	}

	day, err := time.ParseInLocation("2006-01-02", date, jst)
	if err != nil {
		return nil
	}

	startHour, _ := strconv.Atoi(m[1])
	startMin, _ := strconv.Atoi(m[2])
	endHour, _ := strconv.Atoi(m[3])
	endMin, _ := strconv.Atoi(m[4])

	start := time.Date(day.Year(), day.Month(), day.Day(), startHour, startMin, 0, 0, jst)
	end := time.Date(day.Year(), day.Month(), day.Day(), endHour, endMin, 0, 0, jst)
	if !start.Before(end) {
		return nil
	}

	duration := end.Sub(start)
	return &ComputedRange{
		CurrentStart:   start,
		CurrentEnd:     end,
		PreviousStart:  start.Add(-duration),
		CurrentStartMs: start.UnixMilli(),
		CurrentEndMs:   end.UnixMilli(),
	}
}
