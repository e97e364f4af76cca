package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/staybook/libs/db"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/outbox"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrOverlap is returned when an accepted stay would share a night with
	// another accepted stay of the same listing.
	ErrOverlap = errors.New("stay overlaps an accepted booking")
	// ErrHasBookings blocks deleting a listing with accepted stays that have
	// not ended.
	ErrHasBookings = errors.New("listing has upcoming accepted bookings")
)

// Repository persists listings and bookings. Every state change commits
// together with its outbox event.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

const listingColumns = `
	l.id::text, l.owner_id, l.title, l.city, l.thumbnail, l.price_per_night, l.details,
	l.published, l.published_at, l.availability, l.created_at`

// reviewJoin adds rv.cnt and rv.avg for the listing aliased l.
const reviewJoin = `
	LEFT JOIN LATERAL (
		SELECT count(*) AS cnt, avg(score)::float8 AS avg
		FROM listing_reviews
		WHERE listing_id = l.id
	) rv ON true`

func scanListing(row pgx.Row, extra ...any) (model.Listing, error) {
	var l model.Listing
	var details, avail []byte
	dest := append([]any{&l.ID, &l.OwnerID, &l.Title, &l.City, &l.Thumbnail, &l.PricePerNight, &details,
		&l.Published, &l.PublishedAt, &avail, &l.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Listing{}, ErrNotFound
		}
		return model.Listing{}, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &l.Details); err != nil {
			return model.Listing{}, fmt.Errorf("listing %s details: %w", l.ID, err)
		}
	}
	raws, err := availability.DecodeRaw(avail)
	if err != nil {
		return model.Listing{}, fmt.Errorf("listing %s availability: %w", l.ID, err)
	}
	l.Availability = raws
	return l, nil
}

// scanListingWithReviews reads listingColumns followed by the reviewJoin
// aggregate.
func scanListingWithReviews(row pgx.Row) (model.Listing, error) {
	var count int
	var avg float64
	l, err := scanListing(row, &count, &avg)
	if err != nil {
		return model.Listing{}, err
	}
	l.Reviews = model.ReviewSummary{Count: count, Average: avg}
	return l, nil
}

// GetListing loads a listing with its review summary.
func (r *Repository) GetListing(ctx context.Context, id string) (model.Listing, error) {
	return scanListingWithReviews(r.pool.QueryRow(ctx, `
		SELECT `+listingColumns+`, COALESCE(rv.cnt, 0), COALESCE(rv.avg, 0)
		FROM listings l`+reviewJoin+`
		WHERE l.id = $1
	`, id))
}

// PublishAvailability replaces the stored availability of a listing owned by
// ownerID and marks it published. The row keeps the objects shape; the event
// carries set in format.
func (r *Repository) PublishAvailability(ctx context.Context, ownerID, listingID string, set availability.IntervalSet, format availability.Format) (model.Listing, error) {
	stored, err := availability.Encode(set, availability.FormatObjects)
	if err != nil {
		return model.Listing{}, err
	}
	wire, err := availability.Encode(set, format)
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
		SET availability = $3,
			published = true,
			published_at = CASE WHEN l.published THEN l.published_at ELSE now() END,
			updated_at = now()
		WHERE l.id = $1 AND l.owner_id = $2
		RETURNING `+listingColumns, listingID, ownerID, stored))
	if err != nil {
		return model.Listing{}, err
	}

	evt, err := outbox.AvailabilityPublished(l, string(format), wire)
	if err != nil {
		return model.Listing{}, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Listing{}, err
	}
	return l, tx.Commit(ctx)
}

// Unpublish hides a listing from guests. Its availability is kept so a later
// publish can start from it.
func (r *Repository) Unpublish(ctx context.Context, ownerID, listingID string) (model.Listing, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Listing{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	l, err := scanListing(tx.QueryRow(ctx, `
		UPDATE listings l
		SET published = false, published_at = NULL, updated_at = now()
		WHERE l.id = $1 AND l.owner_id = $2
		RETURNING `+listingColumns, listingID, ownerID))
	if err != nil {
		return model.Listing{}, err
	}

	evt, err := outbox.ListingUnpublished(l)
	if err != nil {
		return model.Listing{}, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Listing{}, err
	}
	return l, tx.Commit(ctx)
}

// ListingOwnedBy fails with ErrNotFound unless ownerID owns listingID.
func (r *Repository) ListingOwnedBy(ctx context.Context, ownerID, listingID string) (model.Listing, error) {
	return scanListing(r.pool.QueryRow(ctx, `
		SELECT `+listingColumns+`
		FROM listings l
		WHERE l.id = $1 AND l.owner_id = $2
	`, listingID, ownerID))
}
