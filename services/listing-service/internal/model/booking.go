package model

import (
	"errors"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAccepted  BookingStatus = "accepted"
	BookingDeclined  BookingStatus = "declined"
	BookingCancelled BookingStatus = "cancelled"
)

var ErrInvalidTransition = errors.New("booking status cannot change")

// Transition validates a status change. Only pending bookings can be
// accepted or declined; pending and accepted ones can be cancelled.
func (s BookingStatus) Transition(to BookingStatus) error {
	switch to {
	case BookingAccepted, BookingDeclined:
		if s == BookingPending {
			return nil
		}
	case BookingCancelled:
		if s == BookingPending || s == BookingAccepted {
			return nil
		}
	}
	return ErrInvalidTransition
}

type Booking struct {
	ID            string
	ListingID     string
	GuestID       string
	CheckIn       time.Time
	CheckOut      time.Time
	Nights        int
	PricePerNight int64
	TotalPrice    int64
	Status        BookingStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// YearSummary is what a host sees above the bookings of one listing.
type YearSummary struct {
	Year           int
	AcceptedNights int
	Profit         int64
	Pending        int
}

// Summarize totals accepted bookings whose check-in falls in year, at the
// listing's current nightly price.
func Summarize(bookings []Booking, pricePerNight int64, year int) YearSummary {
	sum := YearSummary{Year: year}
	for _, b := range bookings {
		switch b.Status {
		case BookingPending:
			sum.Pending++
		case BookingAccepted:
			if b.CheckIn.Year() != year {
				continue
			}
			sum.AcceptedNights += b.Nights
			sum.Profit += int64(b.Nights) * pricePerNight
		}
	}
	return sum
}
