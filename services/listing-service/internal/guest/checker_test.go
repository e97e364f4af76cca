package guest

import (
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/hosting"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCheckerAgainstPublishedHostRanges(t *testing.T) {
	b := hosting.NewBuilder()
	b.SelectPending(availability.DateRange{Start: day(2026, 1, 10), End: day(2026, 1, 12)})
	if err := b.ConfirmPending(); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	b.SelectPending(availability.DateRange{Start: day(2026, 1, 13), End: day(2026, 1, 15)})
	if err := b.ConfirmPending(); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	payload, err := b.Payload(availability.FormatObjects)
	if err != nil {
		t.Fatalf("payload failed: %v", err)
	}
	raws, err := availability.DecodeRaw(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	set, _ := availability.NormalizeRaw(raws, time.UTC)

	c := NewCheckerFromSet(set)
	sel := Selection{CheckIn: day(2026, 1, 11), CheckOut: day(2026, 1, 14)}
	if !c.CanBook(sel) {
		t.Fatal("expected stay to be bookable")
	}
	nights, err := c.Validate(sel)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if nights != 3 {
		t.Fatalf("expected 3 nights, got %d", nights)
	}
}

func TestChecker_IncompleteSelectionIsBookable(t *testing.T) {
	c := NewChecker([]availability.DateRange{{Start: day(2026, 1, 1), End: day(2026, 1, 5)}})
	if !c.CanBook(Selection{CheckIn: day(2027, 1, 1)}) {
		t.Fatal("expected incomplete selection to be bookable")
	}
	if _, err := c.Validate(Selection{CheckIn: day(2027, 1, 1)}); !errors.Is(err, ErrSelectionIncomplete) {
		t.Fatalf("expected ErrSelectionIncomplete, got %v", err)
	}
}

func TestChecker_Validate(t *testing.T) {
	c := NewChecker([]availability.DateRange{{Start: day(2026, 1, 1), End: day(2026, 1, 10)}})

	cases := []struct {
		name string
		sel  Selection
		want error
	}{
		{"outside", Selection{CheckIn: day(2026, 1, 9), CheckOut: day(2026, 1, 12)}, ErrOutsideAvailability},
		{"same day", Selection{CheckIn: day(2026, 1, 4), CheckOut: day(2026, 1, 4)}, ErrNoNights},
		{"reversed", Selection{CheckIn: day(2026, 1, 6), CheckOut: day(2026, 1, 4)}, ErrNoNights},
		{"last night", Selection{CheckIn: day(2026, 1, 10), CheckOut: day(2026, 1, 11)}, nil},
	}
	for _, tc := range cases {
		_, err := c.Validate(tc.sel)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestChecker_NoAvailabilityMeansUnconstrained(t *testing.T) {
	c := NewChecker(nil)
	if c.DisabledDate(day(2030, 2, 2)) {
		t.Fatal("expected no disabled days without availability")
	}
	nights, err := c.Validate(Selection{CheckIn: day(2030, 2, 2), CheckOut: day(2030, 2, 9)})
	if err != nil || nights != 7 {
		t.Fatalf("expected 7 nights, got %d (%v)", nights, err)
	}
}

func TestChecker_Quote(t *testing.T) {
	c := NewChecker([]availability.DateRange{{Start: day(2026, 1, 1), End: day(2026, 1, 10)}})

	q := c.Quote(Selection{CheckIn: day(2026, 1, 2), CheckOut: day(2026, 1, 6)}, 120)
	if !q.CanBook || q.Nights != 4 || q.TotalPrice != 480 {
		t.Fatalf("unexpected quote: %+v", q)
	}

	q = c.Quote(Selection{CheckIn: day(2026, 1, 8), CheckOut: day(2026, 1, 14)}, 120)
	if q.CanBook {
		t.Fatalf("expected uncovered quote, got %+v", q)
	}

	q = c.Quote(Selection{}, 120)
	if !q.CanBook || q.Nights != 0 || q.TotalPrice != 0 {
		t.Fatalf("unexpected quote for empty selection: %+v", q)
	}
}

func TestChecker_Calendar(t *testing.T) {
	c := NewChecker([]availability.DateRange{
		{Start: day(2026, 1, 2), End: day(2026, 1, 3)},
		{Start: day(2026, 1, 6), End: day(2026, 1, 6)},
	})
	days := c.Calendar(day(2026, 1, 1), day(2026, 1, 7))
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	want := []bool{true, false, false, true, true, false, true}
	for i, d := range days {
		if d.Disabled != want[i] {
			t.Fatalf("%s: expected disabled=%v", d.Date.Format(time.DateOnly), want[i])
		}
	}
	if got := c.Calendar(day(2026, 1, 7), day(2026, 1, 1)); got != nil {
		t.Fatalf("expected nil for reversed window, got %d days", len(got))
	}
}
