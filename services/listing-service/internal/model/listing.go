package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/availability"
)

type Listing struct {
	ID            string
	OwnerID       string
	Title         string
	City          string
	Thumbnail     string
	PricePerNight int64
	Details       ListingDetails
	Published     bool
	PublishedAt   *time.Time
	// Availability is the stored wire form; it is normalized when read.
	Availability []availability.RawRange
	Reviews      ReviewSummary
	CreatedAt    time.Time
}

// ReviewSummary aggregates the scores guests left on a listing.
type ReviewSummary struct {
	Count   int
	Average float64
}

// OnlineDays counts whole days since the listing was published.
func (l Listing) OnlineDays(now time.Time) int {
	if !l.Published || l.PublishedAt == nil {
		return 0
	}
	return max(0, availability.DaysBetween(*l.PublishedAt, now))
}

// ListingDetails is the descriptive part of a listing, stored as one JSON
// document.
type ListingDetails struct {
	Type      string   `json:"type"`
	Bedrooms  int      `json:"bedrooms"`
	Beds      int      `json:"beds"`
	Bathrooms int      `json:"bathrooms"`
	Amenities []string `json:"amenities"`
	Images    []string `json:"images"`
}

const (
	maxTitleLen  = 200
	maxAmenities = 50
	maxImages    = 20
)

var ErrInvalidListing = errors.New("invalid listing")

// ListingInput is what a host submits when creating or editing a listing.
type ListingInput struct {
	Title         string
	City          string
	Thumbnail     string
	PricePerNight int64
	Details       ListingDetails
}

// Normalize trims text, defaults the property type to "entire", deduplicates
// amenities and falls back to the first image as thumbnail.
func (in ListingInput) Normalize() ListingInput {
	in.Title = strings.TrimSpace(in.Title)
	in.City = strings.TrimSpace(in.City)
	in.Thumbnail = strings.TrimSpace(in.Thumbnail)
	in.Details.Type = strings.ToLower(strings.TrimSpace(in.Details.Type))
	if in.Details.Type == "" {
		in.Details.Type = "entire"
	}

	amenities := make([]string, 0, len(in.Details.Amenities))
	for _, a := range in.Details.Amenities {
		if a = strings.TrimSpace(a); a != "" && !slices.Contains(amenities, a) {
			amenities = append(amenities, a)
		}
	}
	in.Details.Amenities = amenities[:min(len(amenities), maxAmenities)]

	images := make([]string, 0, len(in.Details.Images))
	for _, img := range in.Details.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	in.Details.Images = images
	if in.Thumbnail == "" && len(images) > 0 {
		in.Thumbnail = images[0]
	}
	return in
}

// Validate reports the first missing or out of range field. Call it on a
// normalized input.
func (in ListingInput) Validate() error {
	switch {
	case in.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidListing)
	case len(in.Title) > maxTitleLen:
		return fmt.Errorf("%w: title is longer than %d characters", ErrInvalidListing, maxTitleLen)
	case in.City == "":
		return fmt.Errorf("%w: city is required", ErrInvalidListing)
	case in.PricePerNight < 1:
		return fmt.Errorf("%w: price per night must be at least 1", ErrInvalidListing)
	case in.Details.Beds < 1:
		return fmt.Errorf("%w: at least one bed is required", ErrInvalidListing)
	case in.Details.Bathrooms < 1:
		return fmt.Errorf("%w: at least one bathroom is required", ErrInvalidListing)
	case in.Details.Bedrooms < 0:
		return fmt.Errorf("%w: bedrooms cannot be negative", ErrInvalidListing)
	case len(in.Details.Images) > maxImages:
		return fmt.Errorf("%w: at most %d images", ErrInvalidListing, maxImages)
	}
	return nil
}

// Review is a guest's score for a stay. One review exists per booking; a
// second submission replaces the first.
type Review struct {
	ID        string
	ListingID string
	BookingID string
	GuestID   string
	Score     int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const maxCommentLen = 2000

var (
	ErrInvalidReview = errors.New("invalid review")
	// ErrNotReviewable means the booking is not an accepted stay of the
	// reviewing guest.
	ErrNotReviewable = errors.New("reviews require an accepted booking")
)

func (r Review) Validate() error {
	if r.Score < 1 || r.Score > 5 {
		return fmt.Errorf("%w: score must be between 1 and 5", ErrInvalidReview)
	}
	if len(r.Comment) > maxCommentLen {
		return fmt.Errorf("%w: comment is longer than %d characters", ErrInvalidReview, maxCommentLen)
	}
	return nil
}
