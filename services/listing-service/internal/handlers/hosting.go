package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/staybook/libs/auth"
	"github.com/md-rashed-zaman/staybook/libs/httpx"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/hosting"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/model"
)

// HostStore is what the hosting endpoints need from storage. Every method
// answers storage.ErrNotFound when ownerID does not own the listing.
type HostStore interface {
	ListingOwnedBy(ctx context.Context, ownerID, listingID string) (model.Listing, error)
	PublishAvailability(ctx context.Context, ownerID, listingID string, set availability.IntervalSet, format availability.Format) (model.Listing, error)
	Unpublish(ctx context.Context, ownerID, listingID string) (model.Listing, error)
	ListListingBookings(ctx context.Context, ownerID, listingID string, limit int) (model.Listing, []model.Booking, error)
	DecideBooking(ctx context.Context, ownerID, bookingID string, to model.BookingStatus) (model.Booking, error)
	CreateListing(ctx context.Context, ownerID string, in model.ListingInput) (model.Listing, error)
	UpdateListing(ctx context.Context, ownerID, listingID string, in model.ListingInput) (model.Listing, error)
	DeleteListing(ctx context.Context, ownerID, listingID string) error
	ListHostListings(ctx context.Context, ownerID string, limit int) ([]model.Listing, error)
}

type HostingHandler struct {
	store  HostStore
	drafts hosting.DraftStore
	format availability.Format
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

func NewHostingHandler(store HostStore, drafts hosting.DraftStore, format availability.Format, loc *time.Location, logger *slog.Logger) *HostingHandler {
	return &HostingHandler{store: store, drafts: drafts, format: format, loc: loc, logger: logger, now: time.Now}
}

type draftRequest struct {
	ListingID string `json:"listing_id"`
	// Open only: start from the listing's current availability.
	FromCurrent bool `json:"from_current,omitempty"`
	// Select only.
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
	// Remove only.
	Index *int `json:"index,omitempty"`
}

type pendingView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type draftResponse struct {
	ListingID string                  `json:"listing_id"`
	Pending   *pendingView            `json:"pending"`
	Confirmed []availability.RawRange `json:"confirmed"`
}

type publishRequest struct {
	ListingID    string          `json:"listing_id"`
	Availability json.RawMessage `json:"availability,omitempty"`
}

type publishResponse struct {
	ListingID    string          `json:"listing_id"`
	Published    bool            `json:"published"`
	PublishedAt  string          `json:"published_at,omitempty"`
	Format       string          `json:"format"`
	Availability json.RawMessage `json:"availability"`
	Rejected     int             `json:"rejected"`
}

type listingRequest struct {
	ListingID string `json:"listing_id"`
}

type decideRequest struct {
	BookingID string `json:"booking_id"`
}

type summaryView struct {
	Year           int   `json:"year"`
	AcceptedNights int   `json:"accepted_nights"`
	Profit         int64 `json:"profit"`
	Pending        int   `json:"pending"`
	OnlineDays     int   `json:"online_days"`
}

type hostBookingsResponse struct {
	ListingID string        `json:"listing_id"`
	Summary   summaryView   `json:"summary"`
	Bookings  []bookingItem `json:"bookings"`
}

func draftView(listingID string, b *hosting.Builder) draftResponse {
	resp := draftResponse{ListingID: listingID, Confirmed: availability.Objects(b.Confirmed())}
	if p, ok := b.Pending(); ok {
		resp.Pending = &pendingView{Start: formatOptional(p.Start), End: formatOptional(p.End)}
	}
	return resp
}

func formatOptional(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return availability.FormatTime(t)
}

// decodeDraftRequest reads the body and resolves the session's draft key.
// Listings the caller does not own answer 404 before any draft is touched.
func (h *HostingHandler) decodeDraftRequest(w http.ResponseWriter, r *http.Request) (draftRequest, model.Listing, string, bool) {
	var req draftRequest
	s, ok := requireSession(w, r)
	if !ok {
		return req, model.Listing{}, "", false
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return req, model.Listing{}, "", false
	}
	l, ok := h.ownedListing(w, r, s, req.ListingID)
	if !ok {
		return req, model.Listing{}, "", false
	}
	req.ListingID = l.ID
	return req, l, hosting.DraftKey(s.UserID, l.ID), true
}

// ownedListing parses rawID and loads it when s owns it.
func (h *HostingHandler) ownedListing(w http.ResponseWriter, r *http.Request, s auth.Session, rawID string) (model.Listing, bool) {
	id, ok := parseID(rawID)
	if !ok {
		httpx.WriteError(w, r, http.StatusBadRequest, "listing_id must be a uuid")
		return model.Listing{}, false
	}
	l, err := h.store.ListingOwnedBy(r.Context(), s.UserID, id)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to load listing")
		return model.Listing{}, false
	}
	return l, true
}

// mutateDraft loads the draft, applies fn and saves it. fn errors are
// answered with 422 and leave the stored draft unchanged.
func (h *HostingHandler) mutateDraft(w http.ResponseWriter, r *http.Request, listingID, key string, fn func(*hosting.Builder) error) {
	b, err := h.drafts.Load(r.Context(), key)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to load draft")
		return
	}
	if err := fn(b); err != nil {
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.drafts.Save(r.Context(), key, b); err != nil {
		writeStoreError(w, r, h.logger, err, "failed to save draft")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, draftView(listingID, b))
}

// OpenDraft starts a fresh draft, optionally seeded with what is published.
func (h *HostingHandler) OpenDraft(w http.ResponseWriter, r *http.Request) {
	req, l, key, ok := h.decodeDraftRequest(w, r)
	if !ok {
		return
	}

	b := hosting.NewBuilder()
	if req.FromCurrent {
		set, _ := normalizeRanges(r.Context(), h.logger, l.ID, l.Availability, h.loc)
		b = hosting.NewBuilderFrom(set)
	}
	if err := h.drafts.Save(r.Context(), key, b); err != nil {
		writeStoreError(w, r, h.logger, err, "failed to save draft")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, draftView(req.ListingID, b))
}

// SelectRange replaces the pending selection. Either date may be empty while
// the host is still picking.
func (h *HostingHandler) SelectRange(w http.ResponseWriter, r *http.Request) {
	req, _, key, ok := h.decodeDraftRequest(w, r)
	if !ok {
		return
	}
	start, errStart := parseOptionalDate(req.Start, h.loc)
	end, errEnd := parseOptionalDate(req.End, h.loc)
	if errStart != nil || errEnd != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "start and end must be dates")
		return
	}
	h.mutateDraft(w, r, req.ListingID, key, func(b *hosting.Builder) error {
		b.SelectPending(availability.DateRange{Start: start, End: end})
		return nil
	})
}

func (h *HostingHandler) ConfirmRange(w http.ResponseWriter, r *http.Request) {
	req, _, key, ok := h.decodeDraftRequest(w, r)
	if !ok {
		return
	}
	h.mutateDraft(w, r, req.ListingID, key, func(b *hosting.Builder) error {
		return b.ConfirmPending()
	})
}

func (h *HostingHandler) RemoveRange(w http.ResponseWriter, r *http.Request) {
	req, _, key, ok := h.decodeDraftRequest(w, r)
	if !ok {
		return
	}
	if req.Index == nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "index is required")
		return
	}
	h.mutateDraft(w, r, req.ListingID, key, func(b *hosting.Builder) error {
		return b.Remove(*req.Index)
	})
}

func (h *HostingHandler) Draft(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	l, ok := h.ownedListing(w, r, s, r.URL.Query().Get("listing_id"))
	if !ok {
		return
	}
	b, err := h.drafts.Load(r.Context(), hosting.DraftKey(s.UserID, l.ID))
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to load draft")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, draftView(l.ID, b))
}

// Publish stores the draft's confirmed ranges, or an explicit availability
// array in either wire shape, and marks the listing published.
func (h *HostingHandler) Publish(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req publishRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id, ok := parseID(req.ListingID)
	if !ok {
		httpx.WriteError(w, r, http.StatusBadRequest, "listing_id must be a uuid")
		return
	}
	key := hosting.DraftKey(s.UserID, id)

	var set availability.IntervalSet
	var rejected []availability.Rejected
	if len(req.Availability) > 0 && string(req.Availability) != "null" {
		raws, err := availability.DecodeRaw(req.Availability)
		if err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "availability must be a JSON array")
			return
		}
		set, rejected = normalizeRanges(r.Context(), h.logger, id, raws, h.loc)
	} else {
		b, err := h.drafts.Load(r.Context(), key)
		if err != nil {
			writeStoreError(w, r, h.logger, err, "failed to load draft")
			return
		}
		set = b.Confirmed()
	}
	if set.Empty() {
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, hosting.ErrNoRanges.Error())
		return
	}

	payload, err := hosting.NewBuilderFrom(set).Payload(h.format)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to encode availability")
		return
	}
	l, err := h.store.PublishAvailability(r.Context(), s.UserID, id, set, h.format)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to publish listing")
		return
	}
	if err := h.drafts.Delete(r.Context(), key); err != nil {
		h.logger.Warn("draft cleanup failed", "err", err, "listing_id", id)
	}

	resp := publishResponse{
		ListingID:    l.ID,
		Published:    l.Published,
		Format:       string(h.format),
		Availability: payload,
		Rejected:     len(rejected),
	}
	if l.PublishedAt != nil {
		resp.PublishedAt = l.PublishedAt.UTC().Format(time.RFC3339)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *HostingHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req listingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id, ok := parseID(req.ListingID)
	if !ok {
		httpx.WriteError(w, r, http.StatusBadRequest, "listing_id must be a uuid")
		return
	}
	l, err := h.store.Unpublish(r.Context(), s.UserID, id)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to unpublish listing")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"listing_id": l.ID, "published": l.Published})
}

// Bookings lists the bookings of one listing with the host's yearly totals.
func (h *HostingHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	id, ok := parseID(r.URL.Query().Get("listing_id"))
	if !ok {
		httpx.WriteError(w, r, http.StatusBadRequest, "listing_id must be a uuid")
		return
	}
	now := h.now().In(h.loc)
	year := now.Year()
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1970 || y > 9999 {
			httpx.WriteError(w, r, http.StatusBadRequest, "year must be a four digit year")
			return
		}
		year = y
	}

	l, bookings, err := h.store.ListListingBookings(r.Context(), s.UserID, id, parseLimit(r))
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to list bookings")
		return
	}
	for i := range bookings {
		bookings[i].CheckIn = bookings[i].CheckIn.In(h.loc)
	}
	sum := model.Summarize(bookings, l.PricePerNight, year)
	httpx.WriteJSON(w, http.StatusOK, hostBookingsResponse{
		ListingID: l.ID,
		Summary: summaryView{
			Year:           sum.Year,
			AcceptedNights: sum.AcceptedNights,
			Profit:         sum.Profit,
			Pending:        sum.Pending,
			OnlineDays:     l.OnlineDays(now),
		},
		Bookings: toBookingItems(bookings),
	})
}

func (h *HostingHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, model.BookingAccepted)
}

func (h *HostingHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, model.BookingDeclined)
}

func (h *HostingHandler) decide(w http.ResponseWriter, r *http.Request, to model.BookingStatus) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req decideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id, ok := parseID(req.BookingID)
	if !ok {
		httpx.WriteError(w, r, http.StatusBadRequest, "booking_id must be a uuid")
		return
	}
	b, err := h.store.DecideBooking(r.Context(), s.UserID, id, to)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to update booking")
		return
	}
	h.logger.Info("booking decided", "booking_id", b.ID, "listing_id", b.ListingID, "status", b.Status)
	httpx.WriteJSON(w, http.StatusOK, toBookingItem(b))
}
