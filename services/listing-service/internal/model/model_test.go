package model

import (
	"errors"
	"testing"
	"time"
)

func TestBookingStatusTransition(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		ok       bool
	}{
		{BookingPending, BookingAccepted, true},
		{BookingPending, BookingDeclined, true},
		{BookingPending, BookingCancelled, true},
		{BookingAccepted, BookingCancelled, true},
		{BookingAccepted, BookingDeclined, false},
		{BookingDeclined, BookingAccepted, false},
		{BookingCancelled, BookingCancelled, false},
		{BookingPending, BookingPending, false},
	}
	for _, tc := range cases {
		err := tc.from.Transition(tc.to)
		if tc.ok != (err == nil) {
			t.Fatalf("%s -> %s: unexpected err %v", tc.from, tc.to, err)
		}
		if err != nil && !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s -> %s: expected ErrInvalidTransition, got %v", tc.from, tc.to, err)
		}
	}
}

func TestSummarize(t *testing.T) {
	at := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	bookings := []Booking{
		{Status: BookingAccepted, CheckIn: at(2026, 1, 2), Nights: 3},
		{Status: BookingAccepted, CheckIn: at(2026, 12, 30), Nights: 4},
		{Status: BookingAccepted, CheckIn: at(2025, 12, 30), Nights: 5},
		{Status: BookingPending, CheckIn: at(2026, 3, 1), Nights: 2},
		{Status: BookingDeclined, CheckIn: at(2026, 3, 1), Nights: 2},
	}
	got := Summarize(bookings, 100, 2026)
	want := YearSummary{Year: 2026, AcceptedNights: 7, Profit: 700, Pending: 1}
	if got != want {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestOnlineDays(t *testing.T) {
	published := time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC)
	l := Listing{Published: true, PublishedAt: &published}
	if got := l.OnlineDays(time.Date(2026, 1, 11, 2, 0, 0, 0, time.UTC)); got != 10 {
		t.Fatalf("expected 10 days, got %d", got)
	}
	l.Published = false
	if got := l.OnlineDays(time.Now()); got != 0 {
		t.Fatalf("expected 0 for unpublished listing, got %d", got)
	}
}

func TestListingInputNormalize(t *testing.T) {
	in := ListingInput{
		Title:         "  Harbour loft ",
		City:          " Sydney",
		PricePerNight: 120,
		Details: ListingDetails{
			Beds:      1,
			Bathrooms: 1,
			Amenities: []string{" Wi-Fi", "", "Wi-Fi", "Kitchen"},
			Images:    []string{"", "https://img.example/1.jpg"},
		},
	}.Normalize()

	if in.Title != "Harbour loft" || in.City != "Sydney" || in.Details.Type != "entire" {
		t.Fatalf("unexpected normalized input: %+v", in)
	}
	if len(in.Details.Amenities) != 2 || in.Details.Amenities[0] != "Wi-Fi" {
		t.Fatalf("unexpected amenities: %v", in.Details.Amenities)
	}
	if in.Thumbnail != "https://img.example/1.jpg" {
		t.Fatalf("expected first image as thumbnail, got %q", in.Thumbnail)
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestListingInputValidate(t *testing.T) {
	valid := ListingInput{Title: "Loft", City: "Oslo", PricePerNight: 1, Details: ListingDetails{Type: "entire", Beds: 1, Bathrooms: 1}}
	cases := map[string]func(*ListingInput){
		"title":     func(in *ListingInput) { in.Title = "" },
		"city":      func(in *ListingInput) { in.City = "" },
		"price":     func(in *ListingInput) { in.PricePerNight = 0 },
		"beds":      func(in *ListingInput) { in.Details.Beds = 0 },
		"bathrooms": func(in *ListingInput) { in.Details.Bathrooms = 0 },
		"bedrooms":  func(in *ListingInput) { in.Details.Bedrooms = -1 },
	}
	for name, mutate := range cases {
		in := valid
		mutate(&in)
		if err := in.Validate(); !errors.Is(err, ErrInvalidListing) {
			t.Fatalf("%s: expected ErrInvalidListing, got %v", name, err)
		}
	}
}

func TestReviewValidate(t *testing.T) {
	for _, score := range []int{0, 6} {
		if err := (Review{Score: score}).Validate(); !errors.Is(err, ErrInvalidReview) {
			t.Fatalf("score %d: expected ErrInvalidReview, got %v", score, err)
		}
	}
	if err := (Review{Score: 5, Comment: "lovely"}).Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}
