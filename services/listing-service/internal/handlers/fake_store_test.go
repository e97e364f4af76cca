package handlers

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/storage"
)

type publishCall struct {
	listingID string
	set       availability.IntervalSet
	format    availability.Format
}

// fakeStore keeps listings and bookings in memory with the same ownership
// rules as the Postgres repository.
type fakeStore struct {
	mu        sync.Mutex
	listings  map[string]model.Listing
	bookings  map[string]model.Booking
	order     []string
	idem      map[string]string
	publishes []publishCall
	// reviews by booking id.
	reviews map[string]model.Review
}

func newFakeStore(listings ...model.Listing) *fakeStore {
	s := &fakeStore{
		listings: map[string]model.Listing{},
		bookings: map[string]model.Booking{},
		idem:     map[string]string{},
		reviews:  map[string]model.Review{},
	}
	for _, l := range listings {
		s.listings[l.ID] = l
	}
	return s
}

func (s *fakeStore) GetListing(_ context.Context, id string) (model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return model.Listing{}, storage.ErrNotFound
	}
	return l, nil
}

func (s *fakeStore) ListingOwnedBy(_ context.Context, ownerID, listingID string) (model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[listingID]
	if !ok || l.OwnerID != ownerID {
		return model.Listing{}, storage.ErrNotFound
	}
	return l, nil
}

func (s *fakeStore) PublishAvailability(ctx context.Context, ownerID, listingID string, set availability.IntervalSet, format availability.Format) (model.Listing, error) {
	l, err := s.ListingOwnedBy(ctx, ownerID, listingID)
	if err != nil {
		return model.Listing{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l.Availability = availability.Objects(set)
	if !l.Published {
		now := time.Now()
		l.PublishedAt = &now
	}
	l.Published = true
	s.listings[l.ID] = l
	s.publishes = append(s.publishes, publishCall{listingID: listingID, set: set, format: format})
	return l, nil
}

func (s *fakeStore) Unpublish(ctx context.Context, ownerID, listingID string) (model.Listing, error) {
	l, err := s.ListingOwnedBy(ctx, ownerID, listingID)
	if err != nil {
		return model.Listing{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l.Published = false
	l.PublishedAt = nil
	s.listings[l.ID] = l
	return l, nil
}

func (s *fakeStore) ListListingBookings(ctx context.Context, ownerID, listingID string, limit int) (model.Listing, []model.Booking, error) {
	l, err := s.ListingOwnedBy(ctx, ownerID, listingID)
	if err != nil {
		return model.Listing{}, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, id := range slices.Backward(s.order) {
		if b := s.bookings[id]; b.ListingID == listingID && len(out) < limit {
			out = append(out, b)
		}
	}
	return l, out, nil
}

func (s *fakeStore) DecideBooking(_ context.Context, ownerID, bookingID string, to model.BookingStatus) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok || s.listings[b.ListingID].OwnerID != ownerID {
		return model.Booking{}, storage.ErrNotFound
	}
	return s.transitionLocked(b, to)
}

func (s *fakeStore) CancelBooking(_ context.Context, guestID, bookingID string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok || b.GuestID != guestID {
		return model.Booking{}, storage.ErrNotFound
	}
	return s.transitionLocked(b, model.BookingCancelled)
}

func (s *fakeStore) transitionLocked(b model.Booking, to model.BookingStatus) (model.Booking, error) {
	if err := b.Status.Transition(to); err != nil {
		return model.Booking{}, err
	}
	if to == model.BookingAccepted {
		for _, other := range s.bookings {
			if other.ID != b.ID && other.ListingID == b.ListingID && other.Status == model.BookingAccepted &&
				other.CheckIn.Before(b.CheckOut) && b.CheckIn.Before(other.CheckOut) {
				return model.Booking{}, storage.ErrOverlap
			}
		}
	}
	b.Status = to
	b.UpdatedAt = time.Now()
	s.bookings[b.ID] = b
	return b, nil
}

func (s *fakeStore) CreateBooking(_ context.Context, b model.Booking, key string) (model.Booking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key != "" {
		if id, ok := s.idem[b.GuestID+"|"+key]; ok {
			return s.bookings[id], false, nil
		}
		s.idem[b.GuestID+"|"+key] = b.ID
	}
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	s.bookings[b.ID] = b
	s.order = append(s.order, b.ID)
	return b, true, nil
}

func (s *fakeStore) ListGuestBookings(_ context.Context, guestID, listingID string, limit int) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, id := range slices.Backward(s.order) {
		b := s.bookings[id]
		if b.GuestID != guestID || (listingID != "" && b.ListingID != listingID) {
			continue
		}
		if len(out) < limit {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateListing(_ context.Context, ownerID string, in model.ListingInput) (model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := model.Listing{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Title:         in.Title,
		City:          in.City,
		Thumbnail:     in.Thumbnail,
		PricePerNight: in.PricePerNight,
		Details:       in.Details,
		CreatedAt:     time.Now(),
	}
	s.listings[l.ID] = l
	return l, nil
}

func (s *fakeStore) UpdateListing(ctx context.Context, ownerID, listingID string, in model.ListingInput) (model.Listing, error) {
	l, err := s.ListingOwnedBy(ctx, ownerID, listingID)
	if err != nil {
		return model.Listing{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l.Title, l.City, l.Thumbnail, l.PricePerNight, l.Details = in.Title, in.City, in.Thumbnail, in.PricePerNight, in.Details
	s.listings[l.ID] = l
	return l, nil
}

func (s *fakeStore) DeleteListing(ctx context.Context, ownerID, listingID string) error {
	if _, err := s.ListingOwnedBy(ctx, ownerID, listingID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, b := range s.bookings {
		if b.ListingID == listingID && b.Status == model.BookingAccepted && b.CheckOut.After(now) {
			return storage.ErrHasBookings
		}
	}
	delete(s.listings, listingID)
	return nil
}

func (s *fakeStore) ListHostListings(_ context.Context, ownerID string, limit int) ([]model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Listing
	for _, l := range s.listings {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	model.SortListings(out, model.SortTitle)
	return out[:min(limit, len(out))], nil
}

func (s *fakeStore) SearchListings(_ context.Context, f model.SearchFilter) ([]model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Listing
	for _, l := range s.listings {
		if f.Matches(l) {
			out = append(out, l)
		}
	}
	return out[:min(f.Limit, len(out))], nil
}

func (s *fakeStore) AddReview(_ context.Context, rv model.Review) (model.Review, model.ReviewSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[rv.BookingID]
	if !ok || b.GuestID != rv.GuestID || b.ListingID != rv.ListingID {
		return model.Review{}, model.ReviewSummary{}, storage.ErrNotFound
	}
	if b.Status != model.BookingAccepted {
		return model.Review{}, model.ReviewSummary{}, model.ErrNotReviewable
	}
	if prev, ok := s.reviews[rv.BookingID]; ok {
		rv.ID, rv.CreatedAt = prev.ID, prev.CreatedAt
	} else {
		rv.ID, rv.CreatedAt = uuid.NewString(), time.Now()
	}
	rv.UpdatedAt = time.Now()
	s.reviews[rv.BookingID] = rv

	var sum model.ReviewSummary
	total := 0
	for _, other := range s.reviews {
		if other.ListingID == rv.ListingID {
			sum.Count++
			total += other.Score
		}
	}
	sum.Average = float64(total) / float64(sum.Count)
	l := s.listings[rv.ListingID]
	l.Reviews = sum
	s.listings[rv.ListingID] = l
	return rv, sum, nil
}
