package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/staybook/libs/httpx"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/guest"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/model"
)

// BookingStore persists guest bookings. CreateBooking reports created=false
// when the idempotency key matched an earlier request.
type BookingStore interface {
	CreateBooking(ctx context.Context, b model.Booking, idempotencyKey string) (model.Booking, bool, error)
	ListGuestBookings(ctx context.Context, guestID, listingID string, limit int) ([]model.Booking, error)
	CancelBooking(ctx context.Context, guestID, bookingID string) (model.Booking, error)
	AddReview(ctx context.Context, rv model.Review) (model.Review, model.ReviewSummary, error)
}

type BookingHandler struct {
	listings ListingReader
	bookings BookingStore
	loc      *time.Location
	logger   *slog.Logger
	newID    func() string
}

func NewBookingHandler(listings ListingReader, bookings BookingStore, loc *time.Location, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{listings: listings, bookings: bookings, loc: loc, logger: logger, newID: uuid.NewString}
}

type createBookingRequest struct {
	ListingID string `json:"listing_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
}

type cancelBookingRequest struct {
	BookingID string `json:"booking_id"`
}

type listBookingsResponse struct {
	Bookings []bookingItem `json:"bookings"`
}

var errOwnListing = errors.New("hosts cannot book their own listing")

// Create requests a stay. The selection is checked against the listing's
// availability before anything is stored.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	listingID, ok := parseID(req.ListingID)
	if !ok {
		httpx.WriteError(w, r, http.StatusBadRequest, "listing_id must be a uuid")
		return
	}
	sel, err := parseSelection(req.CheckIn, req.CheckOut, h.loc)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	l, err := h.listings.GetListing(r.Context(), listingID)
	if err == nil && !l.Published {
		httpx.WriteError(w, r, http.StatusNotFound, "listing not found")
		return
	}
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to load listing")
		return
	}
	if l.OwnerID == s.UserID {
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, errOwnListing.Error())
		return
	}

	set, _ := normalizeRanges(r.Context(), h.logger, l.ID, l.Availability, h.loc)
	nights, err := guest.NewCheckerFromSet(set).Validate(sel)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, guest.ErrOutsideAvailability) {
			status = http.StatusUnprocessableEntity
		}
		httpx.WriteError(w, r, status, err.Error())
		return
	}

	b := model.Booking{
		ID:            h.newID(),
		ListingID:     l.ID,
		GuestID:       s.UserID,
		CheckIn:       availability.StartOfDay(sel.CheckIn),
		CheckOut:      availability.StartOfDay(sel.CheckOut),
		Nights:        nights,
		PricePerNight: l.PricePerNight,
		TotalPrice:    int64(nights) * l.PricePerNight,
		Status:        model.BookingPending,
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(key) > 128 {
		httpx.WriteError(w, r, http.StatusBadRequest, "Idempotency-Key is too long")
		return
	}
	stored, created, err := h.bookings.CreateBooking(r.Context(), b, key)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to create booking")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.logger.Info("booking requested",
			"booking_id", stored.ID,
			"listing_id", stored.ListingID,
			"nights", stored.Nights,
			"request_id", httpx.RequestIDFromContext(r.Context()),
		)
	}
	httpx.WriteJSON(w, status, toBookingItem(stored))
}

// List returns the caller's bookings, optionally for one listing.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	listingID := ""
	if raw := strings.TrimSpace(r.URL.Query().Get("listing_id")); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			httpx.WriteError(w, r, http.StatusBadRequest, "listing_id must be a uuid")
			return
		}
		listingID = id
	}
	bookings, err := h.bookings.ListGuestBookings(r.Context(), s.UserID, listingID, parseLimit(r))
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to list bookings")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listBookingsResponse{Bookings: toBookingItems(bookings)})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id, ok := parseID(req.BookingID)
	if !ok {
		httpx.WriteError(w, r, http.StatusBadRequest, "booking_id must be a uuid")
		return
	}
	b, err := h.bookings.CancelBooking(r.Context(), s.UserID, id)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to cancel booking")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBookingItem(b))
}

type reviewRequest struct {
	ListingID string `json:"listing_id"`
	BookingID string `json:"booking_id"`
	Score     int    `json:"score"`
	Comment   string `json:"comment,omitempty"`
}

type reviewResponse struct {
	ReviewID  string      `json:"review_id"`
	ListingID string      `json:"listing_id"`
	BookingID string      `json:"booking_id"`
	Score     int         `json:"score"`
	Comment   string      `json:"comment"`
	Reviews   reviewsView `json:"reviews"`
}

// Review scores a stay. Only the guest of an accepted booking may review it,
// and a second review of the same booking replaces the first.
func (h *BookingHandler) Review(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	listingID, okListing := parseID(req.ListingID)
	bookingID, okBooking := parseID(req.BookingID)
	if !okListing || !okBooking {
		httpx.WriteError(w, r, http.StatusBadRequest, "listing_id and booking_id must be uuids")
		return
	}
	rv := model.Review{
		ListingID: listingID,
		BookingID: bookingID,
		GuestID:   s.UserID,
		Score:     req.Score,
		Comment:   strings.TrimSpace(req.Comment),
	}
	if err := rv.Validate(); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	stored, sum, err := h.bookings.AddReview(r.Context(), rv)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to save review")
		return
	}
	h.logger.Info("listing reviewed", "listing_id", stored.ListingID, "booking_id", stored.BookingID, "score", stored.Score)
	httpx.WriteJSON(w, http.StatusOK, reviewResponse{
		ReviewID:  stored.ID,
		ListingID: stored.ListingID,
		BookingID: stored.BookingID,
		Score:     stored.Score,
		Comment:   stored.Comment,
		Reviews:   reviewsView{Count: sum.Count, Average: sum.Average},
	})
}
