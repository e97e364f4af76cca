package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/outbox"
)

func collectListings(rows pgx.Rows, err error) ([]model.Listing, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Listing, error) {
		return scanListingWithReviews(row)
	})
}

// CreateListing stores a new, unpublished listing for ownerID. in must be
// normalized and valid.
func (r *Repository) CreateListing(ctx context.Context, ownerID string, in model.ListingInput) (model.Listing, error) {
	details, err := json.Marshal(in.Details)
	if err != nil {
		return model.Listing{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Listing{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	l, err := scanListing(tx.QueryRow(ctx, `
		INSERT INTO listings AS l (owner_id, title, city, thumbnail, price_per_night, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+listingColumns, ownerID, in.Title, in.City, in.Thumbnail, in.PricePerNight, details))
	if err != nil {
		return model.Listing{}, err
	}

	evt, err := outbox.ListingChanged(outbox.TypeListingCreated, l)
	if err != nil {
		return model.Listing{}, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Listing{}, err
	}
	return l, tx.Commit(ctx)
}

// UpdateListing replaces the descriptive fields of a listing owned by
// ownerID. Publication state and availability are left alone.
func (r *Repository) UpdateListing(ctx context.Context, ownerID, listingID string, in model.ListingInput) (model.Listing, error) {
	details, err := json.Marshal(in.Details)
	if err != nil {
		return model.Listing{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Listing{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	l, err := scanListing(tx.QueryRow(ctx, `
		UPDATE listings l
		SET title = $3, city = $4, thumbnail = $5, price_per_night = $6, details = $7, updated_at = now()
		WHERE l.id = $1 AND l.owner_id = $2
		RETURNING `+listingColumns, listingID, ownerID, in.Title, in.City, in.Thumbnail, in.PricePerNight, details))
	if err != nil {
		return model.Listing{}, err
	}

	evt, err := outbox.ListingChanged(outbox.TypeListingUpdated, l)
	if err != nil {
		return model.Listing{}, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Listing{}, err
	}
	return l, tx.Commit(ctx)
}

// DeleteListing removes a listing owned by ownerID together with its
// bookings and reviews. It fails with ErrHasBookings while an accepted stay
// has not ended.
func (r *Repository) DeleteListing(ctx context.Context, ownerID, listingID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	l, err := scanListing(tx.QueryRow(ctx, `
		SELECT `+listingColumns+`
		FROM listings l
		WHERE l.id = $1 AND l.owner_id = $2
		FOR UPDATE
	`, listingID, ownerID))
	if err != nil {
		return err
	}

	var upcoming bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE listing_id = $1 AND status = 'accepted' AND check_out > now()
		)
	`, listingID).Scan(&upcoming)
	if err != nil {
		return err
	}
	if upcoming {
		return ErrHasBookings
	}

	if _, err := tx.Exec(ctx, `DELETE FROM listings WHERE id = $1`, listingID); err != nil {
		return err
	}
	evt, err := outbox.ListingDeleted(l)
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListHostListings returns ownerID's listings, newest first.
func (r *Repository) ListHostListings(ctx context.Context, ownerID string, limit int) ([]model.Listing, error) {
	return collectListings(r.pool.Query(ctx, `
		SELECT `+listingColumns+`, COALESCE(rv.cnt, 0), COALESCE(rv.avg, 0)
		FROM listings l`+reviewJoin+`
		WHERE l.owner_id = $1
		ORDER BY l.created_at DESC
		LIMIT $2
	`, ownerID, limit))
}

// SearchListings returns published listings matching f, most recently
// published first. Date filtering and sorting happen in the caller.
func (r *Repository) SearchListings(ctx context.Context, f model.SearchFilter) ([]model.Listing, error) {
	patterns := make([]string, 0, len(f.Words))
	for _, w := range f.Words {
		patterns = append(patterns, "%"+likeEscaper.Replace(w)+"%")
	}
	return collectListings(r.pool.Query(ctx, `
		SELECT `+listingColumns+`, COALESCE(rv.cnt, 0), COALESCE(rv.avg, 0)
		FROM listings l`+reviewJoin+`
		WHERE l.published
			AND NOT EXISTS (
				SELECT 1 FROM unnest($1::text[]) AS p
				WHERE (l.title || ' ' || l.city) NOT ILIKE p
			)
			AND ($2::bigint = 0 OR l.price_per_night >= $2)
			AND ($3::bigint = 0 OR l.price_per_night <= $3)
			AND ($4::int = 0 OR COALESCE((l.details->>'bedrooms')::int, 0) >= $4)
			AND ($5::int = 0 OR COALESCE((l.details->>'bedrooms')::int, 0) <= $5)
		ORDER BY l.published_at DESC
		LIMIT $6
	`, patterns, f.PriceMin, f.PriceMax, f.BedroomsMin, f.BedroomsMax, f.Limit))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// AddReview stores rv for one of the guest's accepted bookings of the
// listing, replacing an earlier review of the same booking, and returns the
// listing's new summary.
func (r *Repository) AddReview(ctx context.Context, rv model.Review) (model.Review, model.ReviewSummary, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Review{}, model.ReviewSummary{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	err = tx.QueryRow(ctx, `
		SELECT status FROM bookings
		WHERE id = $1 AND guest_id = $2 AND listing_id = $3
		FOR SHARE
	`, rv.BookingID, rv.GuestID, rv.ListingID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Review{}, model.ReviewSummary{}, ErrNotFound
		}
		return model.Review{}, model.ReviewSummary{}, err
	}
	if model.BookingStatus(status) != model.BookingAccepted {
		return model.Review{}, model.ReviewSummary{}, model.ErrNotReviewable
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO listing_reviews (listing_id, booking_id, guest_id, score, comment)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (booking_id) DO UPDATE
		SET score = EXCLUDED.score, comment = EXCLUDED.comment, updated_at = now()
		RETURNING id::text, created_at, updated_at
	`, rv.ListingID, rv.BookingID, rv.GuestID, rv.Score, rv.Comment).Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return model.Review{}, model.ReviewSummary{}, err
	}

	var sum model.ReviewSummary
	err = tx.QueryRow(ctx, `
		SELECT count(*), COALESCE(avg(score), 0)::float8
		FROM listing_reviews
		WHERE listing_id = $1
	`, rv.ListingID).Scan(&sum.Count, &sum.Average)
	if err != nil {
		return model.Review{}, model.ReviewSummary{}, err
	}

	evt, err := outbox.ListingReviewed(rv, sum)
	if err != nil {
		return model.Review{}, model.ReviewSummary{}, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Review{}, model.ReviewSummary{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Review{}, model.ReviewSummary{}, err
	}
	return rv, sum, nil
}
