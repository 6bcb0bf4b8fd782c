//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	handler "github.com/samirrijal/halfway/internal/adapters/http"
	"github.com/samirrijal/halfway/internal/adapters/postgres"
	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/usecases"
	"github.com/samirrijal/halfway/internal/pkg/config"
)

// setupTestDB connects to the test database and returns a clean DB instance.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("halfway-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	db := &postgres.DB{Pool: pool}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	return db
}

// setupTestDeps creates dependencies with real DB and repos, no cache.
func setupTestDeps(t *testing.T, db *postgres.DB) *handler.Dependencies {
	setRepo := postgres.NewPointSetRepo(db)
	runRepo := postgres.NewMatchRunRepo(db)
	venueRepo := postgres.NewVenueRepo(db)
	importRepo := postgres.NewImportRepo(db)

	return &handler.Dependencies{
		PointSets: usecases.NewPointSetService(setRepo, nil, nil),
		Matches: usecases.NewMatchService(setRepo, runRepo, nil, nil,
			usecases.MatchOptions{DefaultTopN: 10, MaxTopN: 100, MaxSyncPairs: 2_500_000}),
		Venues:  usecases.NewVenueService(venueRepo, nil, nil),
		Imports: usecases.NewImportService(importRepo, &mockOrchestrator{}),
		DB:      db,
	}
}

// seedTestPointSet inserts a set with the given coordinates and returns its UUID.
func seedTestPointSet(t *testing.T, db *postgres.DB, slug string, coords [][2]float64) string {
	ctx := context.Background()
	var id string
	if err := db.Pool.QueryRow(ctx, `
		INSERT INTO point_sets (slug, name, origin, point_count)
		VALUES ($1, $2, 'manual', $3)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, point_count = EXCLUDED.point_count
		RETURNING id
	`, slug, "Test Set "+slug, len(coords)).Scan(&id); err != nil {
		t.Fatalf("seed point set: %v", err)
	}

	if _, err := db.Pool.Exec(ctx, `DELETE FROM points WHERE set_id = $1`, id); err != nil {
		t.Fatalf("clear points: %v", err)
	}
	for i, c := range coords {
		if _, err := db.Pool.Exec(ctx, `
			INSERT INTO points (set_id, label, location, position)
			VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5)
		`, id, fmt.Sprintf("p%d", i), c[1], c[0], i); err != nil {
			t.Fatalf("seed point: %v", err)
		}
	}
	return id
}

// seedTestVenue inserts a venue at the given coordinates and returns its UUID.
func seedTestVenue(t *testing.T, db *postgres.DB, name string, lat, lon float64) string {
	ctx := context.Background()
	var id string
	if err := db.Pool.QueryRow(ctx, `
		INSERT INTO venues (name, category, location, source, active)
		VALUES ($1, 'cafe', ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, 'curated', true)
		ON CONFLICT (name, source) DO UPDATE SET active = true
		RETURNING id
	`, name, lon, lat).Scan(&id); err != nil {
		t.Fatalf("seed venue: %v", err)
	}
	return id
}

// TestListPointSets_Integration_WithRealDB tests set listing against real database.
func TestListPointSets_Integration_WithRealDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	seedTestPointSet(t, db, "test-team-a", [][2]float64{{43.263, -2.935}})
	seedTestPointSet(t, db, "test-team-b", [][2]float64{{43.270, -2.950}})

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/pointsets", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.PointSet   `json:"data"`
		Pagination struct{ Total int } `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if result.Pagination.Total < 2 {
		t.Errorf("expected at least 2 sets, got %d", result.Pagination.Total)
	}
}

// TestGetPointSet_Integration tests set lookup with points against real database.
func TestGetPointSet_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	slug := "test-integ-" + time.Now().Format("20060102150405")
	seedTestPointSet(t, db, slug, [][2]float64{{43.263, -2.935}, {43.270, -2.950}})

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/pointsets/"+slug, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Set    domain.PointSet `json:"set"`
		Points []domain.Point  `json:"points"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if result.Set.Slug != slug {
		t.Errorf("expected slug %s, got %s", slug, result.Set.Slug)
	}
	if len(result.Points) != 2 {
		t.Errorf("expected 2 points, got %d", len(result.Points))
	}
}

// TestBestMatch_Integration runs a full ranking through PostGIS-backed sets.
func TestBestMatch_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	// Two small sets around Bilbao; the pair straddling the target
	// should rank first.
	seedTestPointSet(t, db, "test-match-a", [][2]float64{{43.30, -2.935}, {43.40, -2.935}})
	seedTestPointSet(t, db, "test-match-b", [][2]float64{{43.22, -2.935}, {43.10, -2.935}})

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET",
		"/v1/matches/best?set_a=test-match-a&set_b=test-match-b&target_lat=43.26&target_lon=-2.935&top_n=4", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var run domain.MatchRun
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if run.ID == "" {
		t.Error("expected persisted run with id")
	}
	if run.PairCount != 4 {
		t.Errorf("expected 4 pairs, got %d", run.PairCount)
	}
	if len(run.Pairings) != 4 {
		t.Fatalf("expected 4 pairings, got %d", len(run.Pairings))
	}
	if run.Pairings[0].IndexA != 0 || run.Pairings[0].IndexB != 0 {
		t.Errorf("expected pair (0,0) to rank first, got (%d,%d)",
			run.Pairings[0].IndexA, run.Pairings[0].IndexB)
	}

	// The stored run must be readable back through the API.
	req = httptest.NewRequest("GET", "/v1/matches/runs/"+run.ID, nil)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 reading run back, got %d", resp.StatusCode)
	}
}

// TestNearbyVenues_Integration tests the geospatial venue query against real database.
func TestNearbyVenues_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	// Bilbao coordinates: 43.263, -2.935
	seedTestVenue(t, db, "Test Cafe Abando", 43.263, -2.935)

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/venues/nearby?lat=43.263&lon=-2.935&radius=5000", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var venues []domain.Venue
	if err := json.NewDecoder(resp.Body).Decode(&venues); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(venues) == 0 {
		t.Error("expected at least 1 nearby venue, got 0")
	}
	if venues[0].Distance == nil {
		t.Error("expected distance to be computed")
	}
}
