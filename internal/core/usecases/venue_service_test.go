package usecases_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/usecases"
)

// --- Mock VenueRepository ---

type mockVenueRepo struct {
	findNearbyFn func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Venue, error)
	getByIDFn    func(ctx context.Context, id string) (*domain.Venue, error)

	upserted []domain.Venue
}

func (m *mockVenueRepo) Upsert(ctx context.Context, venue *domain.Venue) error {
	m.upserted = append(m.upserted, *venue)
	return nil
}

func (m *mockVenueRepo) UpsertBatch(ctx context.Context, venues []domain.Venue) error {
	m.upserted = append(m.upserted, venues...)
	return nil
}

func (m *mockVenueRepo) GetByID(ctx context.Context, id string) (*domain.Venue, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("no rows")
}

func (m *mockVenueRepo) FindNearby(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Venue, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lon, radius, limit)
	}
	return nil, nil
}

// --- Mock VenueSuggester ---

type mockSuggester struct {
	suggestFn func(ctx context.Context, lat, lon float64, radiusMeters int, keyword string) ([]domain.Venue, error)
}

func (m *mockSuggester) Suggest(ctx context.Context, lat, lon float64, radiusMeters int, keyword string) ([]domain.Venue, error) {
	if m.suggestFn != nil {
		return m.suggestFn(ctx, lat, lon, radiusMeters, keyword)
	}
	return nil, nil
}

// --- Tests ---

func TestVenueService_Nearby(t *testing.T) {
	d := 120.5
	repo := &mockVenueRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Venue, error) {
			if radius != 1000 {
				t.Errorf("expected zero radius defaulted to 1000, got %v", radius)
			}
			if limit != 20 {
				t.Errorf("expected limit clamped to 20, got %d", limit)
			}
			return []domain.Venue{
				{ID: "1", Name: "Cafe Iruna", Distance: &d},
			}, nil
		},
	}

	svc := usecases.NewVenueService(repo, nil, nil)
	venues, err := svc.Nearby(context.Background(), 43.263, -2.935, 0, 999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(venues) != 1 || venues[0].Name != "Cafe Iruna" {
		t.Fatalf("unexpected venues: %+v", venues)
	}
	if venues[0].Distance == nil || *venues[0].Distance != 120.5 {
		t.Error("expected computed distance to pass through")
	}
}

func TestVenueService_Nearby_BadPoint(t *testing.T) {
	svc := usecases.NewVenueService(&mockVenueRepo{}, nil, nil)
	if _, err := svc.Nearby(context.Background(), 95, 0, 500, 10); err == nil {
		t.Error("expected error for out-of-range latitude")
	}
}

func TestVenueService_Suggest_MergesProvider(t *testing.T) {
	repo := &mockVenueRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Venue, error) {
			return []domain.Venue{{ID: "1", Name: "Cafe Iruna", Source: "curated"}}, nil
		},
	}
	suggester := &mockSuggester{
		suggestFn: func(ctx context.Context, lat, lon float64, radiusMeters int, keyword string) ([]domain.Venue, error) {
			return []domain.Venue{
				{Name: "cafe iruna", Source: "google"}, // duplicate, case differs
				{Name: "Ledesma 5", Source: "google"},
			}, nil
		},
	}

	svc := usecases.NewVenueService(repo, suggester, nil)
	venues, err := svc.Suggest(context.Background(), 43.263, -2.935, 1500, "cafe", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(venues) != 2 {
		t.Fatalf("expected 2 merged venues, got %d", len(venues))
	}
	if venues[0].Name != "Cafe Iruna" || venues[1].Name != "Ledesma 5" {
		t.Errorf("unexpected merge order: %s, %s", venues[0].Name, venues[1].Name)
	}
	if len(repo.upserted) != 1 || repo.upserted[0].Name != "Ledesma 5" {
		t.Errorf("expected only the new venue stored, got %+v", repo.upserted)
	}
}

func TestVenueService_Suggest_ProviderFailure(t *testing.T) {
	repo := &mockVenueRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Venue, error) {
			return []domain.Venue{{ID: "1", Name: "Cafe Iruna"}}, nil
		},
	}
	suggester := &mockSuggester{
		suggestFn: func(ctx context.Context, lat, lon float64, radiusMeters int, keyword string) ([]domain.Venue, error) {
			return nil, fmt.Errorf("quota exceeded")
		},
	}

	svc := usecases.NewVenueService(repo, suggester, nil)
	venues, err := svc.Suggest(context.Background(), 43.263, -2.935, 1500, "", 10)
	if err != nil {
		t.Fatalf("provider failure should not fail the call: %v", err)
	}
	if len(venues) != 1 {
		t.Fatalf("expected curated venue only, got %d", len(venues))
	}
}

func TestVenueService_Suggest_CachesMergedResult(t *testing.T) {
	calls := 0
	repo := &mockVenueRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Venue, error) {
			calls++
			return []domain.Venue{{ID: "1", Name: "Cafe Iruna"}}, nil
		},
	}
	cache := newMockCache()

	svc := usecases.NewVenueService(repo, nil, cache)
	if _, err := svc.Suggest(context.Background(), 43.263, -2.935, 1500, "cafe", 10); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.Suggest(context.Background(), 43.263, -2.935, 1500, "cafe", 10); err != nil {
		t.Fatalf("second call: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected repo hit once, got %d", calls)
	}
	if cache.hits != 1 {
		t.Errorf("expected 1 cache hit, got %d", cache.hits)
	}
}
