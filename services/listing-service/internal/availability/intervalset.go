package availability

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var ErrIndexOutOfRange = errors.New("range index out of bounds")

// IntervalSet is a sorted sequence of DateRange in which no two members
// overlap or sit within one calendar day of each other. The zero value is an
// empty set. Operations return new sets and never modify the receiver.
type IntervalSet struct {
	ranges []DateRange
}

// Normalize floors, ceils, sorts and merges ranges into an IntervalSet.
// Incomplete or degenerate entries are dropped without error.
func Normalize(ranges []DateRange) IntervalSet {
	set, _ := normalize(ranges)
	return set
}

func normalize(ranges []DateRange) (IntervalSet, []int) {
	var dropped []int
	xs := make([]DateRange, 0, len(ranges))
	for i, r := range ranges {
		if !r.Complete() {
			dropped = append(dropped, i)
			continue
		}
		n := r.normalized()
		if !n.End.After(n.Start) {
			dropped = append(dropped, i)
			continue
		}
		xs = append(xs, n)
	}
	if len(xs) == 0 {
		return IntervalSet{}, dropped
	}

	slices.SortFunc(xs, compareRanges)

	out := make([]DateRange, 0, len(xs))
	acc := xs[0]
	for _, next := range xs[1:] {
		if DaysBetween(acc.End, next.Start) <= 1 {
			acc.End = laterOf(acc.End, next.End)
			continue
		}
		out = append(out, acc)
		acc = next
	}
	out = append(out, acc)
	return IntervalSet{ranges: out}, dropped
}

// AddRange returns the normalization of s plus candidate.
func AddRange(s IntervalSet, candidate DateRange) IntervalSet {
	xs := make([]DateRange, 0, len(s.ranges)+1)
	xs = append(xs, s.ranges...)
	xs = append(xs, candidate)
	return Normalize(xs)
}

// RemoveAt returns s without the member at index. On a bad index it returns s
// unchanged together with an error wrapping ErrIndexOutOfRange.
func RemoveAt(s IntervalSet, index int) (IntervalSet, error) {
	if index < 0 || index >= len(s.ranges) {
		return s, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, index, len(s.ranges))
	}
	out := make([]DateRange, 0, len(s.ranges)-1)
	out = append(out, s.ranges[:index]...)
	out = append(out, s.ranges[index+1:]...)
	return IntervalSet{ranges: out}, nil
}

// IsCovered reports whether a stay fits inside a single member of s. The
// check-out day is exclusive, so it may fall on the day after a member ends.
// An empty set covers every query.
func IsCovered(s IntervalSet, query DateRange) bool {
	if len(s.ranges) == 0 {
		return true
	}
	start := StartOfDay(query.Start)
	end := StartOfDay(query.End)
	for _, r := range s.ranges {
		if !start.Before(r.Start) && !end.After(r.End.AddDate(0, 0, 1)) {
			return true
		}
	}
	return false
}

// IsDateAllowed reports whether the calendar day containing t lies inside a
// member of s. An empty set allows every day.
func IsDateAllowed(s IntervalSet, t time.Time) bool {
	if len(s.ranges) == 0 {
		return true
	}
	d := StartOfDay(t)
	for _, r := range s.ranges {
		if r.Contains(d) {
			return true
		}
	}
	return false
}

func (s IntervalSet) Len() int { return len(s.ranges) }

func (s IntervalSet) Empty() bool { return len(s.ranges) == 0 }

// At returns the member at index i. It panics if i is out of range.
func (s IntervalSet) At(i int) DateRange { return s.ranges[i] }

// Ranges returns a copy of the members.
func (s IntervalSet) Ranges() []DateRange {
	return slices.Clone(s.ranges)
}

// Equal reports whether both sets hold the same instants.
func (s IntervalSet) Equal(o IntervalSet) bool {
	return slices.EqualFunc(s.ranges, o.ranges, func(a, b DateRange) bool {
		return a.Start.Equal(b.Start) && a.End.Equal(b.End)
	})
}
