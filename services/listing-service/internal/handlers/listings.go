package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/staybook/libs/httpx"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/guest"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/hosting"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/model"
)

// maxSearchCandidates caps the rows read before date filtering.
const maxSearchCandidates = 500

type listingPayload struct {
	// Update only.
	ListingID     string   `json:"listing_id,omitempty"`
	Title         string   `json:"title"`
	City          string   `json:"city"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	PricePerNight int64    `json:"price_per_night"`
	Type          string   `json:"type,omitempty"`
	Bedrooms      int      `json:"bedrooms"`
	Beds          int      `json:"beds"`
	Bathrooms     int      `json:"bathrooms"`
	Amenities     []string `json:"amenities,omitempty"`
	Images        []string `json:"images,omitempty"`
}

func (p listingPayload) input() model.ListingInput {
	return model.ListingInput{
		Title:         p.Title,
		City:          p.City,
		Thumbnail:     p.Thumbnail,
		PricePerNight: p.PricePerNight,
		Details: model.ListingDetails{
			Type:      p.Type,
			Bedrooms:  p.Bedrooms,
			Beds:      p.Beds,
			Bathrooms: p.Bathrooms,
			Amenities: p.Amenities,
			Images:    p.Images,
		},
	}.Normalize()
}

type listingView struct {
	ListingID     string      `json:"listing_id"`
	Title         string      `json:"title"`
	City          string      `json:"city"`
	Thumbnail     string      `json:"thumbnail"`
	PricePerNight int64       `json:"price_per_night"`
	Type          string      `json:"type"`
	Bedrooms      int         `json:"bedrooms"`
	Beds          int         `json:"beds"`
	Bathrooms     int         `json:"bathrooms"`
	Amenities     []string    `json:"amenities"`
	Images        []string    `json:"images"`
	Published     bool        `json:"published"`
	PublishedAt   string      `json:"published_at,omitempty"`
	Reviews       reviewsView `json:"reviews"`
	OnlineDays    int         `json:"online_days"`
	// Search with complete dates only.
	Nights     int   `json:"nights,omitempty"`
	TotalPrice int64 `json:"total_price,omitempty"`
}

func toListingView(l model.Listing, now time.Time) listingView {
	v := listingView{
		ListingID:     l.ID,
		Title:         l.Title,
		City:          l.City,
		Thumbnail:     l.Thumbnail,
		PricePerNight: l.PricePerNight,
		Type:          l.Details.Type,
		Bedrooms:      l.Details.Bedrooms,
		Beds:          l.Details.Beds,
		Bathrooms:     l.Details.Bathrooms,
		Amenities:     nonNil(l.Details.Amenities),
		Images:        nonNil(l.Details.Images),
		Published:     l.Published,
		Reviews:       reviewsView{Count: l.Reviews.Count, Average: l.Reviews.Average},
		OnlineDays:    l.OnlineDays(now),
	}
	if l.PublishedAt != nil {
		v.PublishedAt = l.PublishedAt.UTC().Format(time.RFC3339)
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type listingsResponse struct {
	Listings []listingView `json:"listings"`
}

// decodeListingPayload reads and validates a create or update body.
func decodeListingPayload(w http.ResponseWriter, r *http.Request) (listingPayload, model.ListingInput, bool) {
	var req listingPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return req, model.ListingInput{}, false
	}
	in := req.input()
	if err := in.Validate(); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return req, model.ListingInput{}, false
	}
	return req, in, true
}

// CreateListing stores an unpublished listing owned by the caller.
func (h *HostingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	_, in, ok := decodeListingPayload(w, r)
	if !ok {
		return
	}
	l, err := h.store.CreateListing(r.Context(), s.UserID, in)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to create listing")
		return
	}
	h.logger.Info("listing created", "listing_id", l.ID, "owner_id", s.UserID)
	httpx.WriteJSON(w, http.StatusCreated, toListingView(l, h.now()))
}

// UpdateListing replaces the descriptive fields of one of the caller's
// listings.
func (h *HostingHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	req, in, ok := decodeListingPayload(w, r)
	if !ok {
		return
	}
	id, ok := parseID(req.ListingID)
	if !ok {
		httpx.WriteError(w, r, http.StatusBadRequest, "listing_id must be a uuid")
		return
	}
	l, err := h.store.UpdateListing(r.Context(), s.UserID, id, in)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to update listing")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toListingView(l, h.now()))
}

// DeleteListing removes one of the caller's listings and its open draft.
func (h *HostingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
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
	if err := h.store.DeleteListing(r.Context(), s.UserID, id); err != nil {
		writeStoreError(w, r, h.logger, err, "failed to delete listing")
		return
	}
	if err := h.drafts.Delete(r.Context(), hosting.DraftKey(s.UserID, id)); err != nil {
		h.logger.Warn("draft cleanup failed", "err", err, "listing_id", id)
	}
	h.logger.Info("listing deleted", "listing_id", id, "owner_id", s.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// Listings returns the caller's listings, published or not.
func (h *HostingHandler) Listings(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	listings, err := h.store.ListHostListings(r.Context(), s.UserID, parseLimit(r))
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to list listings")
		return
	}
	now := h.now()
	resp := listingsResponse{Listings: make([]listingView, 0, len(listings))}
	for _, l := range listings {
		resp.Listings = append(resp.Listings, toListingView(l, now))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Search lists published listings for guests. With both dates picked only
// listings whose availability covers the stay are kept.
func (h *PublicHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.SearchFilter{Words: model.SearchWords(q.Get("q")), Limit: maxSearchCandidates}
	var bad string
	f.PriceMin, bad = parseBound(q, "price_min", bad)
	f.PriceMax, bad = parseBound(q, "price_max", bad)
	bedroomsMin, bad := parseBound(q, "bedrooms_min", bad)
	bedroomsMax, bad := parseBound(q, "bedrooms_max", bad)
	if bad != "" {
		httpx.WriteError(w, r, http.StatusBadRequest, bad+" must be a non-negative integer")
		return
	}
	f.BedroomsMin, f.BedroomsMax = int(bedroomsMin), int(bedroomsMax)
	if (f.PriceMax > 0 && f.PriceMin > f.PriceMax) || (f.BedroomsMax > 0 && f.BedroomsMin > f.BedroomsMax) {
		httpx.WriteError(w, r, http.StatusBadRequest, "minimum exceeds maximum")
		return
	}
	sortBy, ok := model.ParseSearchSort(q.Get("sort"))
	if !ok {
		httpx.WriteError(w, r, http.StatusBadRequest, "sort must be title, rating_desc or rating_asc")
		return
	}
	sel, err := parseSelection(q.Get("check_in"), q.Get("check_out"), h.loc)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if sel.Complete() && sel.Nights() <= 0 {
		httpx.WriteError(w, r, http.StatusBadRequest, guest.ErrNoNights.Error())
		return
	}

	candidates, err := h.listings.SearchListings(r.Context(), f)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "failed to search listings")
		return
	}
	matches := candidates[:0]
	for _, l := range candidates {
		set, _ := normalizeRanges(r.Context(), h.logger, l.ID, l.Availability, h.loc)
		if guest.NewCheckerFromSet(set).CanBook(sel) {
			matches = append(matches, l)
		}
	}
	model.SortListings(matches, sortBy)

	now := h.now()
	limit := parseLimit(r)
	resp := listingsResponse{Listings: make([]listingView, 0, min(limit, len(matches)))}
	for _, l := range matches[:min(limit, len(matches))] {
		v := toListingView(l, now)
		if sel.Complete() {
			v.Nights = sel.Nights()
			v.TotalPrice = int64(v.Nights) * l.PricePerNight
		}
		resp.Listings = append(resp.Listings, v)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// parseBound reads an optional non-negative integer. The first bad key is
// carried through bad so a caller can check once.
func parseBound(q url.Values, key, bad string) (int64, string) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, bad
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		if bad == "" {
			bad = key
		}
		return 0, bad
	}
	return n, bad
}
