package guest

import (
	"errors"
	"time"

	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/availability"
)

var (
	ErrSelectionIncomplete = errors.New("select check-in and check-out dates")
	ErrOutsideAvailability = errors.New("selected dates are outside availability")
	ErrNoNights            = errors.New("check-out must be after check-in")
)

// Selection is a guest's stay. Check-in is the first night, check-out the
// departure day, which is not occupied. Zero times mean "not picked yet".
type Selection struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func (s Selection) Complete() bool {
	return !s.CheckIn.IsZero() && !s.CheckOut.IsZero()
}

// Nights is the number of calendar days between check-in and check-out.
func (s Selection) Nights() int {
	return availability.DaysBetween(s.CheckIn, s.CheckOut)
}

// Checker answers booking questions against one listing's availability. It
// normalizes the stored ranges once and is read-only afterwards.
type Checker struct {
	avail availability.IntervalSet
}

func NewChecker(raw []availability.DateRange) *Checker {
	return &Checker{avail: availability.Normalize(raw)}
}

// NewCheckerFromSet wraps an already normalized set.
func NewCheckerFromSet(set availability.IntervalSet) *Checker {
	return &Checker{avail: set}
}

func (c *Checker) Availability() availability.IntervalSet {
	return c.avail
}

// DisabledDate reports whether the calendar should grey out the given day.
func (c *Checker) DisabledDate(d time.Time) bool {
	return !availability.IsDateAllowed(c.avail, d)
}

// CanBook reports whether sel fits one availability window. An incomplete
// selection is bookable so that no warning shows before the guest picks.
func (c *Checker) CanBook(sel Selection) bool {
	if !sel.Complete() {
		return true
	}
	return availability.IsCovered(c.avail, availability.DateRange{Start: sel.CheckIn, End: sel.CheckOut})
}

// Validate runs the checks required before a booking request is sent and
// returns the number of nights on success.
func (c *Checker) Validate(sel Selection) (int, error) {
	if !sel.Complete() {
		return 0, ErrSelectionIncomplete
	}
	if !c.CanBook(sel) {
		return 0, ErrOutsideAvailability
	}
	nights := sel.Nights()
	if nights <= 0 {
		return 0, ErrNoNights
	}
	return nights, nil
}

type Quote struct {
	CanBook       bool
	Nights        int
	PricePerNight int64
	TotalPrice    int64
}

// Quote prices sel. Nights and totals are zero while the selection is
// incomplete or has no nights; CanBook follows the CanBook rules.
func (c *Checker) Quote(sel Selection, pricePerNight int64) Quote {
	q := Quote{CanBook: c.CanBook(sel), PricePerNight: pricePerNight}
	if !sel.Complete() {
		return q
	}
	if n := sel.Nights(); n > 0 {
		q.Nights = n
		q.TotalPrice = int64(n) * pricePerNight
	}
	return q
}

type CalendarDay struct {
	Date     time.Time
	Disabled bool
}

// Calendar lists every day from from through to with its disabled flag.
func (c *Checker) Calendar(from, to time.Time) []CalendarDay {
	from = availability.StartOfDay(from)
	to = availability.StartOfDay(to)
	if to.Before(from) {
		return nil
	}
	days := make([]CalendarDay, 0, availability.DaysBetween(from, to)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, CalendarDay{Date: d, Disabled: c.DisabledDate(d)})
	}
	return days
}
