// Package schedule computes the as-of dates a synchronization run must cover.
package schedule

import "time"

// DateOnly truncates t to a calendar date in UTC. Every date the package
// produces or compares is normalized through it.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeeklyDates returns one date per week between start and end, inclusive,
// each falling on the given weekday. start is advanced day by day until it
// lands on the weekday, then every 7th day after is taken while it does not
// pass end. An exhausted range yields an empty slice, not an error.
func WeeklyDates(start, end time.Time, weekday time.Weekday) []time.Time {
	d := DateOnly(start)
	last := DateOnly(end)

	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, 1)
	}

	var dates []time.Time
	for !d.After(last) {
		dates = append(dates, d)
		d = d.AddDate(0, 0, 7)
	}
	return dates
}

// NextAlignedDate returns the first date strictly after last that falls on
// the given weekday, even when last itself is misaligned.
func NextAlignedDate(last time.Time, weekday time.Weekday) time.Time {
	d := DateOnly(last).AddDate(0, 0, 1)
	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// PendingDates returns the dates an update run still has to fetch: every
// aligned date strictly after the cursor, up to today inclusive.
func PendingDates(cursor, today time.Time, weekday time.Weekday) []time.Time {
	return WeeklyDates(NextAlignedDate(cursor, weekday), today, weekday)
}
