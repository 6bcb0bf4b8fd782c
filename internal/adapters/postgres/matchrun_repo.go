package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/halfway/internal/core/domain"
)

// MatchRunRepo implements ports.MatchRunRepository backed by PostGIS.
//
// Pairings and viewports are stored as jsonb; pair counts are stored as
// bigint and converted at this boundary.
type MatchRunRepo struct {
	db *DB
}

func NewMatchRunRepo(db *DB) *MatchRunRepo {
	return &MatchRunRepo{db: db}
}

func (r *MatchRunRepo) Insert(ctx context.Context, run *domain.MatchRun) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO match_runs (set_a_id, set_b_id, target, top_n, pair_count, pairings, viewport, trigger, duration_ms)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, run.SetAID, run.SetBID, run.Target.Lon, run.Target.Lat, run.TopN,
		int64(run.PairCount), run.Pairings, run.Viewport, run.Trigger, run.DurationMS,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *MatchRunRepo) GetByID(ctx context.Context, id string) (*domain.MatchRun, error) {
	var (
		run       domain.MatchRun
		pairCount int64
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT r.id, r.set_a_id, r.set_b_id, a.slug, b.slug,
		       ST_Y(r.target::geometry) AS target_lat,
		       ST_X(r.target::geometry) AS target_lon,
		       r.top_n, r.pair_count, r.pairings, r.viewport, r.trigger, r.duration_ms, r.created_at
		FROM match_runs r
		JOIN point_sets a ON a.id = r.set_a_id
		JOIN point_sets b ON b.id = r.set_b_id
		WHERE r.id = $1
	`, id).Scan(&run.ID, &run.SetAID, &run.SetBID, &run.SetASlug, &run.SetBSlug,
		&run.Target.Lat, &run.Target.Lon,
		&run.TopN, &pairCount, &run.Pairings, &run.Viewport, &run.Trigger, &run.DurationMS, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	run.PairCount = uint64(pairCount)
	return &run, nil
}

// ListRecent returns the newest runs without their pairings to keep list
// responses small.
func (r *MatchRunRepo) ListRecent(ctx context.Context, limit int) ([]domain.MatchRun, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT r.id, r.set_a_id, r.set_b_id, a.slug, b.slug,
		       ST_Y(r.target::geometry) AS target_lat,
		       ST_X(r.target::geometry) AS target_lon,
		       r.top_n, r.pair_count, r.viewport, r.trigger, r.duration_ms, r.created_at
		FROM match_runs r
		JOIN point_sets a ON a.id = r.set_a_id
		JOIN point_sets b ON b.id = r.set_b_id
		ORDER BY r.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.MatchRun
	for rows.Next() {
		var (
			run       domain.MatchRun
			pairCount int64
		)
		err := rows.Scan(&run.ID, &run.SetAID, &run.SetBID, &run.SetASlug, &run.SetBSlug,
			&run.Target.Lat, &run.Target.Lon,
			&run.TopN, &pairCount, &run.Viewport, &run.Trigger, &run.DurationMS, &run.CreatedAt)
		if err != nil {
			return nil, err
		}
		run.PairCount = uint64(pairCount)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DistinctPairsForSet returns the latest run for each set pair the given set
// participates in. Used to refresh matches after a set changes.
func (r *MatchRunRepo) DistinctPairsForSet(ctx context.Context, setID string, limit int) ([]domain.MatchRun, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT DISTINCT ON (r.set_a_id, r.set_b_id)
		       r.id, r.set_a_id, r.set_b_id, a.slug, b.slug,
		       ST_Y(r.target::geometry) AS target_lat,
		       ST_X(r.target::geometry) AS target_lon,
		       r.top_n, r.pair_count, r.trigger, r.duration_ms, r.created_at
		FROM match_runs r
		JOIN point_sets a ON a.id = r.set_a_id
		JOIN point_sets b ON b.id = r.set_b_id
		WHERE r.set_a_id = $1 OR r.set_b_id = $1
		ORDER BY r.set_a_id, r.set_b_id, r.created_at DESC
		LIMIT $2
	`, setID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.MatchRun
	for rows.Next() {
		var (
			run       domain.MatchRun
			pairCount int64
		)
		err := rows.Scan(&run.ID, &run.SetAID, &run.SetBID, &run.SetASlug, &run.SetBSlug,
			&run.Target.Lat, &run.Target.Lon,
			&run.TopN, &pairCount, &run.Trigger, &run.DurationMS, &run.CreatedAt)
		if err != nil {
			return nil, err
		}
		run.PairCount = uint64(pairCount)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
