package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/staybook/libs/httpx"
)

// Routes wires the HTTP surface of the service.
type Routes struct {
	Public  *PublicHandler
	Hosting *HostingHandler
	Booking *BookingHandler
	// Session authenticates host and guest endpoints.
	Session httpx.Middleware
	// BookingLimit throttles booking creation. Optional.
	BookingLimit httpx.Middleware
}

func (rt Routes) Register(mux *http.ServeMux) {
	get, post := http.MethodGet, http.MethodPost
	session := rt.Session

	mux.Handle("/api/v1/public/listings", httpx.AllowMethods(rt.Public.Search, get))
	mux.Handle("/api/v1/public/listings/availability", httpx.AllowMethods(rt.Public.Availability, get))
	mux.Handle("/api/v1/public/listings/calendar", httpx.AllowMethods(rt.Public.Calendar, get))
	mux.Handle("/api/v1/public/listings/quote", httpx.AllowMethods(rt.Public.Quote, post))

	hostListings := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			rt.Hosting.Listings(w, r)
		case http.MethodPost:
			rt.Hosting.CreateListing(w, r)
		default:
			w.Header().Add("Allow", http.MethodGet)
			w.Header().Add("Allow", http.MethodPost)
			httpx.WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
	mux.Handle("/api/v1/hosting/listings", session(hostListings))
	mux.Handle("/api/v1/hosting/listings/update", session(httpx.AllowMethods(rt.Hosting.UpdateListing, post)))
	mux.Handle("/api/v1/hosting/listings/delete", session(httpx.AllowMethods(rt.Hosting.DeleteListing, post)))
	mux.Handle("/api/v1/hosting/drafts", session(httpx.AllowMethods(rt.Hosting.Draft, get)))
	mux.Handle("/api/v1/hosting/drafts/open", session(httpx.AllowMethods(rt.Hosting.OpenDraft, post)))
	mux.Handle("/api/v1/hosting/drafts/select", session(httpx.AllowMethods(rt.Hosting.SelectRange, post)))
	mux.Handle("/api/v1/hosting/drafts/confirm", session(httpx.AllowMethods(rt.Hosting.ConfirmRange, post)))
	mux.Handle("/api/v1/hosting/drafts/remove", session(httpx.AllowMethods(rt.Hosting.RemoveRange, post)))
	mux.Handle("/api/v1/hosting/publish", session(httpx.AllowMethods(rt.Hosting.Publish, post)))
	mux.Handle("/api/v1/hosting/unpublish", session(httpx.AllowMethods(rt.Hosting.Unpublish, post)))
	mux.Handle("/api/v1/hosting/bookings", session(httpx.AllowMethods(rt.Hosting.Bookings, get)))
	mux.Handle("/api/v1/hosting/bookings/accept", session(httpx.AllowMethods(rt.Hosting.Accept, post)))
	mux.Handle("/api/v1/hosting/bookings/decline", session(httpx.AllowMethods(rt.Hosting.Decline, post)))

	create := http.Handler(http.HandlerFunc(rt.Booking.Create))
	if rt.BookingLimit != nil {
		create = rt.BookingLimit(create)
	}
	bookings := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			rt.Booking.List(w, r)
		case http.MethodPost:
			create.ServeHTTP(w, r)
		default:
			w.Header().Add("Allow", http.MethodGet)
			w.Header().Add("Allow", http.MethodPost)
			httpx.WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
	mux.Handle("/api/v1/bookings", session(bookings))
	mux.Handle("/api/v1/bookings/cancel", session(httpx.AllowMethods(rt.Booking.Cancel, post)))
	mux.Handle("/api/v1/listings/reviews", session(httpx.AllowMethods(rt.Booking.Review, post)))
}
