package availability

import "time"

const day = 24 * time.Hour

// DateRange is a calendar-day span. After normalization Start sits at the
// beginning of its day and End at the last millisecond of its day.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Complete reports whether both endpoints are set.
func (r DateRange) Complete() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

// Contains reports whether t falls inside [Start, End].
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Days returns the number of calendar days the range spans, inclusive.
func (r DateRange) Days() int {
	return DaysBetween(r.Start, r.End) + 1
}

func (r DateRange) String() string {
	return r.Start.Format(time.DateOnly) + " ~ " + r.End.Format(time.DateOnly)
}

// normalized floors Start, ceils End and swaps reversed endpoints.
func (r DateRange) normalized() DateRange {
	start, end := r.Start, r.End
	if start.After(end) {
		start, end = end, start
	}
	return DateRange{Start: StartOfDay(start), End: EndOfDay(end)}
}

func compareRanges(a, b DateRange) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	return a.End.Compare(b.End)
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last millisecond of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Millisecond)
}

// DaysBetween counts calendar days from from's date to to's date, measured in
// from's location. It is negative when to falls on an earlier day.
func DaysBetween(from, to time.Time) int {
	to = to.In(from.Location())
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	// Compare as UTC dates so DST transitions never shorten a day.
	f := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	t := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f) / day)
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
