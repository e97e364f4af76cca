package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/model"
)

// Topic names. The Kafka topic of an event equals its EventType.
const (
	TypeListingCreated        = "listing.created.v1"
	TypeListingUpdated        = "listing.updated.v1"
	TypeListingDeleted        = "listing.deleted.v1"
	TypeListingReviewed       = "listing.reviewed.v1"
	TypeAvailabilityPublished = "listing.availability.published.v1"
	TypeListingUnpublished    = "listing.unpublished.v1"
	TypeBookingRequested      = "booking.requested.v1"
	TypeBookingAccepted       = "booking.accepted.v1"
	TypeBookingDeclined       = "booking.declined.v1"
	TypeBookingCancelled      = "booking.cancelled.v1"
)

// Event is the envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const wireTime = "2006-01-02T15:04:05.000Z07:00"

// AvailabilityPublished carries the published ranges in the configured wire
// shape, untouched.
func AvailabilityPublished(l model.Listing, format string, ranges json.RawMessage) (Event, error) {
	payload, err := json.Marshal(map[string]any{
		"listing_id":   l.ID,
		"owner_id":     l.OwnerID,
		"format":       format,
		"availability": ranges,
		"published_at": publishedAt(l),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{AggregateType: "listing", AggregateID: l.ID, EventType: TypeAvailabilityPublished, Payload: payload}, nil
}

// ListingChanged describes l after a create or update. Images are left out;
// consumers fetch them from the listing.
func ListingChanged(eventType string, l model.Listing) (Event, error) {
	payload, err := json.Marshal(map[string]any{
		"listing_id":      l.ID,
		"owner_id":        l.OwnerID,
		"title":           l.Title,
		"city":            l.City,
		"price_per_night": l.PricePerNight,
		"type":            l.Details.Type,
		"bedrooms":        l.Details.Bedrooms,
		"beds":            l.Details.Beds,
		"bathrooms":       l.Details.Bathrooms,
		"published":       l.Published,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{AggregateType: "listing", AggregateID: l.ID, EventType: eventType, Payload: payload}, nil
}

func ListingDeleted(l model.Listing) (Event, error) {
	payload, err := json.Marshal(map[string]any{
		"listing_id": l.ID,
		"owner_id":   l.OwnerID,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{AggregateType: "listing", AggregateID: l.ID, EventType: TypeListingDeleted, Payload: payload}, nil
}

// ListingReviewed carries the review and the listing's new summary.
func ListingReviewed(r model.Review, sum model.ReviewSummary) (Event, error) {
	payload, err := json.Marshal(map[string]any{
		"review_id":     r.ID,
		"listing_id":    r.ListingID,
		"booking_id":    r.BookingID,
		"guest_id":      r.GuestID,
		"score":         r.Score,
		"review_count":  sum.Count,
		"average_score": sum.Average,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{AggregateType: "listing", AggregateID: r.ListingID, EventType: TypeListingReviewed, Payload: payload}, nil
}

func ListingUnpublished(l model.Listing) (Event, error) {
	payload, err := json.Marshal(map[string]any{
		"listing_id": l.ID,
		"owner_id":   l.OwnerID,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{AggregateType: "listing", AggregateID: l.ID, EventType: TypeListingUnpublished, Payload: payload}, nil
}

// BookingChanged describes b after a change to eventType.
func BookingChanged(eventType string, b model.Booking) (Event, error) {
	payload, err := json.Marshal(map[string]any{
		"booking_id":      b.ID,
		"listing_id":      b.ListingID,
		"guest_id":        b.GuestID,
		"check_in":        b.CheckIn.UTC().Format(wireTime),
		"check_out":       b.CheckOut.UTC().Format(wireTime),
		"nights":          b.Nights,
		"price_per_night": b.PricePerNight,
		"total_price":     b.TotalPrice,
		"status":          b.Status,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{AggregateType: "booking", AggregateID: b.ID, EventType: eventType, Payload: payload}, nil
}

func publishedAt(l model.Listing) string {
	if l.PublishedAt == nil {
		return time.Now().UTC().Format(wireTime)
	}
	return l.PublishedAt.UTC().Format(wireTime)
}
