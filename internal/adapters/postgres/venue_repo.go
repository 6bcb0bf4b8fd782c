package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/halfway/internal/core/domain"
)

// VenueRepo implements ports.VenueRepository backed by PostGIS.
type VenueRepo struct {
	db *DB
}

func NewVenueRepo(db *DB) *VenueRepo {
	return &VenueRepo{db: db}
}

const venueUpsertSQL = `
	INSERT INTO venues (name, category, location, address, rating, source, active, metadata)
	VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5, $6, $7, $8, $9)
	ON CONFLICT (name, source) DO UPDATE SET
		category = EXCLUDED.category,
		location = EXCLUDED.location,
		address = EXCLUDED.address,
		rating = EXCLUDED.rating,
		active = EXCLUDED.active,
		metadata = EXCLUDED.metadata
`

func (r *VenueRepo) Upsert(ctx context.Context, v *domain.Venue) error {
	err := r.db.Pool.QueryRow(ctx, venueUpsertSQL+` RETURNING id, created_at`,
		v.Name, v.Category, v.Location.Lon, v.Location.Lat,
		v.Address, v.Rating, v.Source, v.Active, v.Metadata,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert venue: %w", err)
	}
	return nil
}

func (r *VenueRepo) UpsertBatch(ctx context.Context, venues []domain.Venue) error {
	batch := &pgx.Batch{}
	for _, v := range venues {
		batch.Queue(venueUpsertSQL,
			v.Name, v.Category, v.Location.Lon, v.Location.Lat,
			v.Address, v.Rating, v.Source, v.Active, v.Metadata,
		)
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	for range venues {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

func (r *VenueRepo) GetByID(ctx context.Context, id string) (*domain.Venue, error) {
	var v domain.Venue
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(category, ''),
		       ST_Y(location::geometry) AS lat,
		       ST_X(location::geometry) AS lon,
		       COALESCE(address, ''), rating, source, active, metadata, created_at
		FROM venues
		WHERE id = $1
	`, id).Scan(&v.ID, &v.Name, &v.Category, &v.Location.Lat, &v.Location.Lon,
		&v.Address, &v.Rating, &v.Source, &v.Active, &v.Metadata, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// FindNearby returns active venues within radiusMeters of a point, nearest
// first.
func (r *VenueRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Venue, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, COALESCE(category, ''),
		       ST_Y(location::geometry) AS lat,
		       ST_X(location::geometry) AS lon,
		       COALESCE(address, ''), rating, source, active, metadata, created_at,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance
		FROM venues
		WHERE active
		  AND ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []domain.Venue
	for rows.Next() {
		var v domain.Venue
		err := rows.Scan(&v.ID, &v.Name, &v.Category, &v.Location.Lat, &v.Location.Lon,
			&v.Address, &v.Rating, &v.Source, &v.Active, &v.Metadata, &v.CreatedAt, &v.Distance)
		if err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}
