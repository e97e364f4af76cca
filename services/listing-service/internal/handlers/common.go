package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/staybook/libs/auth"
	"github.com/md-rashed-zaman/staybook/libs/httpx"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/md-rashed-zaman/staybook/services/listing-service/internal/handlers")

// ListingReader loads listings for public pages.
type ListingReader interface {
	GetListing(ctx context.Context, id string) (model.Listing, error)
}

// PublicStore adds the guest search to ListingReader.
type PublicStore interface {
	ListingReader
	SearchListings(ctx context.Context, f model.SearchFilter) ([]model.Listing, error)
}

type bookingItem struct {
	BookingID     string `json:"booking_id"`
	ListingID     string `json:"listing_id"`
	GuestID       string `json:"guest_id"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	Nights        int    `json:"nights"`
	PricePerNight int64  `json:"price_per_night"`
	TotalPrice    int64  `json:"total_price"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

func toBookingItem(b model.Booking) bookingItem {
	return bookingItem{
		BookingID:     b.ID,
		ListingID:     b.ListingID,
		GuestID:       b.GuestID,
		CheckIn:       availability.FormatTime(b.CheckIn),
		CheckOut:      availability.FormatTime(b.CheckOut),
		Nights:        b.Nights,
		PricePerNight: b.PricePerNight,
		TotalPrice:    b.TotalPrice,
		Status:        string(b.Status),
		CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toBookingItems(bookings []model.Booking) []bookingItem {
	items := make([]bookingItem, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toBookingItem(b))
	}
	return items
}

// parseID trims raw and requires a UUID.
func parseID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func parseLimit(r *http.Request) int {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	return limit
}

// parseOptionalDate returns the zero time for an empty string so that an
// unpicked date stays unpicked.
func parseOptionalDate(raw string, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return availability.ParseDate(raw, loc)
}

func requireSession(w http.ResponseWriter, r *http.Request) (auth.Session, bool) {
	s, ok := auth.SessionFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, http.StatusUnauthorized, "session required")
	}
	return s, ok
}

// writeStoreError maps repository errors to responses. Anything unknown is
// logged and reported as a 500 with msg.
func writeStoreError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httpx.WriteError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrInvalidTransition):
		httpx.WriteError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrOverlap), errors.Is(err, storage.ErrHasBookings):
		httpx.WriteError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrInvalidListing), errors.Is(err, model.ErrInvalidReview):
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotReviewable):
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Error(msg, "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, r, http.StatusInternalServerError, msg)
	}
}

// normalizeRanges builds the interval set of a listing and logs every entry
// that had to be dropped.
func normalizeRanges(ctx context.Context, logger *slog.Logger, listingID string, raws []availability.RawRange, loc *time.Location) (availability.IntervalSet, []availability.Rejected) {
	_, span := tracer.Start(ctx, "availability.normalize", trace.WithAttributes(
		attribute.String("listing.id", listingID),
		attribute.Int("ranges.in", len(raws)),
	))
	defer span.End()

	set, rejected := availability.NormalizeRaw(raws, loc)
	span.SetAttributes(
		attribute.Int("ranges.out", set.Len()),
		attribute.Int("ranges.rejected", len(rejected)),
	)
	for _, rj := range rejected {
		logger.Warn("availability entry dropped",
			"listing_id", listingID,
			"index", rj.Index,
			"reason", rj.Reason,
			"request_id", httpx.RequestIDFromContext(ctx),
		)
	}
	return set, rejected
}
