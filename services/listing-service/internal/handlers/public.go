package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/staybook/libs/httpx"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/guest"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/storage"
)

// maxCalendarDays bounds one calendar request.
const maxCalendarDays = 366

type PublicHandler struct {
	listings PublicStore
	loc      *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

func NewPublicHandler(listings PublicStore, loc *time.Location, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{listings: listings, loc: loc, logger: logger, now: time.Now}
}

type reviewsView struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

type availabilityResponse struct {
	ListingID     string                  `json:"listing_id"`
	Title         string                  `json:"title"`
	PricePerNight int64                   `json:"price_per_night"`
	Availability  []availability.RawRange `json:"availability"`
	Rejected      int                     `json:"rejected"`
	Reviews       reviewsView             `json:"reviews"`
	OnlineDays    int                     `json:"online_days"`
}

type calendarDay struct {
	Date     string `json:"date"`
	Disabled bool   `json:"disabled"`
}

type calendarResponse struct {
	ListingID string        `json:"listing_id"`
	Days      []calendarDay `json:"days"`
}

type quoteRequest struct {
	ListingID string `json:"listing_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
}

type quoteResponse struct {
	ListingID     string `json:"listing_id"`
	CanBook       bool   `json:"can_book"`
	Nights        int    `json:"nights"`
	PricePerNight int64  `json:"price_per_night"`
	TotalPrice    int64  `json:"total_price"`
}

// publishedListing loads a listing visible to guests. Unpublished listings
// answer 404 like missing ones.
func (h *PublicHandler) publishedListing(w http.ResponseWriter, r *http.Request, rawID string) (model.Listing, bool) {
	id, ok := parseID(rawID)
	if !ok {
		httpx.WriteError(w, r, http.StatusBadRequest, "listing_id must be a uuid")
		return model.Listing{}, false
	}
	l, err := h.listings.GetListing(r.Context(), id)
	if err == nil && !l.Published {
		err = storage.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpx.WriteError(w, r, http.StatusNotFound, "listing not found")
			return model.Listing{}, false
		}
		writeStoreError(w, r, h.logger, err, "failed to load listing")
		return model.Listing{}, false
	}
	return l, true
}

func (h *PublicHandler) Availability(w http.ResponseWriter, r *http.Request) {
	l, ok := h.publishedListing(w, r, r.URL.Query().Get("listing_id"))
	if !ok {
		return
	}
	set, rejected := normalizeRanges(r.Context(), h.logger, l.ID, l.Availability, h.loc)
	httpx.WriteJSON(w, http.StatusOK, availabilityResponse{
		ListingID:     l.ID,
		Title:         l.Title,
		PricePerNight: l.PricePerNight,
		Availability:  availability.Objects(set),
		Rejected:      len(rejected),
		Reviews:       reviewsView{Count: l.Reviews.Count, Average: l.Reviews.Average},
		OnlineDays:    l.OnlineDays(h.now()),
	})
}

// Calendar lists each day in [from, to] with whether a guest may pick it.
func (h *PublicHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, errFrom := availability.ParseDate(strings.TrimSpace(q.Get("from")), h.loc)
	to, errTo := availability.ParseDate(strings.TrimSpace(q.Get("to")), h.loc)
	if errFrom != nil || errTo != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "from and to must be dates")
		return
	}
	span := availability.DaysBetween(from, to)
	if span < 0 || span >= maxCalendarDays {
		httpx.WriteError(w, r, http.StatusBadRequest, "calendar window must be between 1 and 366 days")
		return
	}

	l, ok := h.publishedListing(w, r, q.Get("listing_id"))
	if !ok {
		return
	}
	set, _ := normalizeRanges(r.Context(), h.logger, l.ID, l.Availability, h.loc)
	days := guest.NewCheckerFromSet(set).Calendar(from, to)

	resp := calendarResponse{ListingID: l.ID, Days: make([]calendarDay, 0, len(days))}
	for _, d := range days {
		resp.Days = append(resp.Days, calendarDay{Date: d.Date.Format(time.DateOnly), Disabled: d.Disabled})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Quote prices a stay without booking it. An incomplete selection is quoted
// as bookable with zero nights.
func (h *PublicHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sel, err := parseSelection(req.CheckIn, req.CheckOut, h.loc)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	l, ok := h.publishedListing(w, r, req.ListingID)
	if !ok {
		return
	}
	set, _ := normalizeRanges(r.Context(), h.logger, l.ID, l.Availability, h.loc)
	q := guest.NewCheckerFromSet(set).Quote(sel, l.PricePerNight)
	httpx.WriteJSON(w, http.StatusOK, quoteResponse{
		ListingID:     l.ID,
		CanBook:       q.CanBook,
		Nights:        q.Nights,
		PricePerNight: q.PricePerNight,
		TotalPrice:    q.TotalPrice,
	})
}

var errBadStayDates = errors.New("check_in and check_out must be dates")

func parseSelection(checkIn, checkOut string, loc *time.Location) (guest.Selection, error) {
	in, err := parseOptionalDate(checkIn, loc)
	if err != nil {
		return guest.Selection{}, errBadStayDates
	}
	out, err := parseOptionalDate(checkOut, loc)
	if err != nil {
		return guest.Selection{}, errBadStayDates
	}
	return guest.Selection{CheckIn: in, CheckOut: out}, nil
}
