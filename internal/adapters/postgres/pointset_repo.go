package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/halfway/internal/core/domain"
)

// PointSetRepo implements ports.PointSetRepository backed by PostGIS.
type PointSetRepo struct {
	db *DB
}

func NewPointSetRepo(db *DB) *PointSetRepo {
	return &PointSetRepo{db: db}
}

// Upsert writes the set row and replaces its points in a single transaction.
func (r *PointSetRepo) Upsert(ctx context.Context, set *domain.PointSet, points []domain.Point) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO point_sets (slug, name, origin, point_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			origin = EXCLUDED.origin,
			point_count = EXCLUDED.point_count,
			updated_at = now()
		RETURNING id, created_at, updated_at
	`, set.Slug, set.Name, set.Origin, set.PointCount).Scan(&set.ID, &set.CreatedAt, &set.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert set: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM points WHERE set_id = $1`, set.ID); err != nil {
		return fmt.Errorf("clear points: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(`
			INSERT INTO points (set_id, label, location, position)
			VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5)
		`, set.ID, p.Label, p.Location.Lon, p.Location.Lat, p.Position)
	}

	br := tx.SendBatch(ctx, batch)
	for range points {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert point: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PointSetRepo) GetBySlug(ctx context.Context, slug string) (*domain.PointSet, error) {
	var set domain.PointSet
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, slug, name, origin, point_count, created_at, updated_at
		FROM point_sets
		WHERE slug = $1
	`, slug).Scan(&set.ID, &set.Slug, &set.Name, &set.Origin, &set.PointCount, &set.CreatedAt, &set.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &set, nil
}

func (r *PointSetRepo) List(ctx context.Context, limit, offset int) ([]domain.PointSet, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, slug, name, origin, point_count, created_at, updated_at
		FROM point_sets
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []domain.PointSet
	for rows.Next() {
		var set domain.PointSet
		if err := rows.Scan(&set.ID, &set.Slug, &set.Name, &set.Origin, &set.PointCount, &set.CreatedAt, &set.UpdatedAt); err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

func (r *PointSetRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM point_sets`).Scan(&n)
	return n, err
}

// Points returns the set's points in upload order.
func (r *PointSetRepo) Points(ctx context.Context, setID string) ([]domain.Point, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, set_id, COALESCE(label, ''),
		       ST_Y(location::geometry) AS lat,
		       ST_X(location::geometry) AS lon,
		       position
		FROM points
		WHERE set_id = $1
		ORDER BY position
	`, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.Point
	for rows.Next() {
		var p domain.Point
		if err := rows.Scan(&p.ID, &p.SetID, &p.Label, &p.Location.Lat, &p.Location.Lon, &p.Position); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Delete removes the set; points and match runs cascade.
func (r *PointSetRepo) Delete(ctx context.Context, slug string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM point_sets WHERE slug = $1`, slug)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
