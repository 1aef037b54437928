package domain

import (
	"strings"
	"time"
)

// Period is the symbolic reporting window used by range resolution and bucketing.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

// endOfDayNanos puts a time on the last millisecond of its second. Ranges end
// at 23:59:59.999, so an instant in the final sub-millisecond of a range (for
// example 23:59:59.9995) belongs to neither that range nor the next one.
const endOfDayNanos = 999 * int(time.Millisecond)

// ParsePeriod maps a string to a Period. Anything unrecognized becomes Monthly.
func ParsePeriod(s string) Period {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case Daily:
		return Daily
	case Weekly:
		return Weekly
	case Yearly:
		return Yearly
	default:
		return Monthly
	}
}

// DateRange is an inclusive [Start, End] window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the range, both bounds inclusive.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// ResolveRange computes the window of the given period around ref, in ref's location.
// Weeks start on Monday; a Sunday belongs to the week that began six days earlier.
func ResolveRange(p Period, ref time.Time) DateRange {
	loc := ref.Location()
	y, m, d := ref.Date()

	switch p {
	case Daily:
		return DateRange{
			Start: time.Date(y, m, d, 0, 0, 0, 0, loc),
			End:   time.Date(y, m, d, 23, 59, 59, endOfDayNanos, loc),
		}
	case Weekly:
		wd := int(ref.Weekday())
		diff := d - wd + 1
		if wd == 0 {
			diff = d - 6
		}
		return DateRange{
			Start: time.Date(y, m, diff, 0, 0, 0, 0, loc),
			End:   time.Date(y, m, diff+6, 23, 59, 59, endOfDayNanos, loc),
		}
	case Yearly:
		return DateRange{
			Start: time.Date(y, time.January, 1, 0, 0, 0, 0, loc),
			End:   time.Date(y, time.December, 31, 23, 59, 59, endOfDayNanos, loc),
		}
	default:
		// Day 0 of the next month normalizes to the last day of this one.
		return DateRange{
			Start: time.Date(y, m, 1, 0, 0, 0, 0, loc),
			End:   time.Date(y, m+1, 0, 23, 59, 59, endOfDayNanos, loc),
		}
	}
}
