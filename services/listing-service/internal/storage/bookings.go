package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/staybook/libs/db"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/outbox"
)

const bookingColumns = `
	b.id::text, b.listing_id::text, b.guest_id, b.check_in, b.check_out, b.nights,
	b.price_per_night, b.total_price, b.status, b.created_at, b.updated_at`

func scanBooking(row pgx.Row, extra ...any) (model.Booking, error) {
	var b model.Booking
	var status string
	dest := append([]any{&b.ID, &b.ListingID, &b.GuestID, &b.CheckIn, &b.CheckOut, &b.Nights,
		&b.PricePerNight, &b.TotalPrice, &status, &b.CreatedAt, &b.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Booking{}, ErrNotFound
		}
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	return b, nil
}

func collectBookings(rows pgx.Rows, err error) ([]model.Booking, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Booking, error) {
		return scanBooking(row)
	})
}

// CreateBooking stores b as requested by its guest. With an idempotency key a
// retry returns the first booking and created is false.
func (r *Repository) CreateBooking(ctx context.Context, b model.Booking, idempotencyKey string) (model.Booking, bool, error) {
	if idempotencyKey != "" {
		prev, err := r.bookingByIdempotencyKey(ctx, b.GuestID, idempotencyKey)
		if err == nil {
			return prev, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return model.Booking{}, false, err
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var key *string
	if idempotencyKey != "" {
		key = &idempotencyKey
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO bookings
			(id, listing_id, guest_id, check_in, check_out, nights, price_per_night, total_price, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, b.ID, b.ListingID, b.GuestID, b.CheckIn, b.CheckOut, b.Nights, b.PricePerNight, b.TotalPrice,
		string(b.Status), key).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if idempotencyKey != "" && db.IsUniqueViolation(err) {
			_ = tx.Rollback(ctx)
			prev, err := r.bookingByIdempotencyKey(ctx, b.GuestID, idempotencyKey)
			return prev, false, err
		}
		return model.Booking{}, false, err
	}

	evt, err := outbox.BookingChanged(outbox.TypeBookingRequested, b)
	if err != nil {
		return model.Booking{}, false, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Booking{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, false, err
	}
	return b, true, nil
}

func (r *Repository) bookingByIdempotencyKey(ctx context.Context, guestID, key string) (model.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		WHERE b.guest_id = $1 AND b.idempotency_key = $2
	`, guestID, key))
}

// ListGuestBookings returns the guest's bookings, newest first. An empty
// listingID means every listing.
func (r *Repository) ListGuestBookings(ctx context.Context, guestID, listingID string, limit int) ([]model.Booking, error) {
	return collectBookings(r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		WHERE b.guest_id = $1 AND ($2 = '' OR b.listing_id::text = $2)
		ORDER BY b.created_at DESC
		LIMIT $3
	`, guestID, listingID, limit))
}

// ListListingBookings returns every booking of a listing owned by ownerID.
func (r *Repository) ListListingBookings(ctx context.Context, ownerID, listingID string, limit int) (model.Listing, []model.Booking, error) {
	l, err := r.ListingOwnedBy(ctx, ownerID, listingID)
	if err != nil {
		return model.Listing{}, nil, err
	}
	bookings, err := collectBookings(r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		WHERE b.listing_id = $1
		ORDER BY b.created_at DESC
		LIMIT $2
	`, listingID, limit))
	return l, bookings, err
}

// DecideBooking accepts or declines a pending booking on one of ownerID's
// listings.
func (r *Repository) DecideBooking(ctx context.Context, ownerID, bookingID string, to model.BookingStatus) (model.Booking, error) {
	return r.transition(ctx, bookingID, to, func(b model.Booking, owner string) bool {
		return owner == ownerID
	})
}

// CancelBooking withdraws one of the guest's own bookings.
func (r *Repository) CancelBooking(ctx context.Context, guestID, bookingID string) (model.Booking, error) {
	return r.transition(ctx, bookingID, model.BookingCancelled, func(b model.Booking, _ string) bool {
		return b.GuestID == guestID
	})
}

func (r *Repository) transition(ctx context.Context, bookingID string, to model.BookingStatus, allowed func(b model.Booking, owner string) bool) (model.Booking, error) {
	eventType, ok := transitionEvents[to]
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: to %s", model.ErrInvalidTransition, to)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var owner string
	b, err := scanBooking(tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`, l.owner_id
		FROM bookings b
		JOIN listings l ON l.id = b.listing_id
		WHERE b.id = $1
		FOR UPDATE OF b
	`, bookingID), &owner)
	if err != nil {
		return model.Booking{}, err
	}
	if !allowed(b, owner) {
		return model.Booking{}, ErrNotFound
	}
	if err := b.Status.Transition(to); err != nil {
		return model.Booking{}, fmt.Errorf("%w: %s to %s", err, b.Status, to)
	}

	err = tx.QueryRow(ctx, `
		UPDATE bookings SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, b.ID, string(to)).Scan(&b.UpdatedAt)
	if err != nil {
		if db.IsExclusionViolation(err) {
			return model.Booking{}, ErrOverlap
		}
		return model.Booking{}, err
	}
	b.Status = to

	evt, err := outbox.BookingChanged(eventType, b)
	if err != nil {
		return model.Booking{}, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Booking{}, err
	}
	return b, tx.Commit(ctx)
}

var transitionEvents = map[model.BookingStatus]string{
	model.BookingAccepted:  outbox.TypeBookingAccepted,
	model.BookingDeclined:  outbox.TypeBookingDeclined,
	model.BookingCancelled: outbox.TypeBookingCancelled,
}
