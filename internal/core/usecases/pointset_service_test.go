package usecases_test

import (
	"context"
	"testing"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/usecases"
)

func TestPointSetService_Save(t *testing.T) {
	var gotSet *domain.PointSet
	var gotPoints []domain.Point
	repo := &mockSetRepo{
		upsertFn: func(ctx context.Context, set *domain.PointSet, points []domain.Point) error {
			set.ID = "set-1"
			gotSet = set
			gotPoints = points
			return nil
		},
	}
	cache := newMockCache()
	cache.store["pointsets:slug:team-a"] = []byte("stale")
	events := &mockPublisher{}

	svc := usecases.NewPointSetService(repo, cache, events)
	set, err := svc.Save(context.Background(), "team-a", "Team A", "", []domain.Point{
		{Label: "  Guggenheim  ", Location: domain.GeoPoint{Lat: 43.2687, Lon: -2.934}},
		{Label: "Azkuna", Location: domain.GeoPoint{Lat: 43.2605, Lon: -2.9367}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if set.ID != "set-1" {
		t.Errorf("expected repo-assigned id, got %q", set.ID)
	}
	if gotSet.Origin != "manual" {
		t.Errorf("expected default origin manual, got %q", gotSet.Origin)
	}
	if gotSet.PointCount != 2 {
		t.Errorf("expected point count 2, got %d", gotSet.PointCount)
	}
	if len(gotPoints) != 2 {
		t.Fatalf("expected 2 points, got %d", len(gotPoints))
	}
	if gotPoints[0].Label != "Guggenheim" {
		t.Errorf("expected trimmed label, got %q", gotPoints[0].Label)
	}
	if gotPoints[0].Position != 0 || gotPoints[1].Position != 1 {
		t.Errorf("expected positions 0 and 1, got %d and %d", gotPoints[0].Position, gotPoints[1].Position)
	}

	if _, ok := cache.store["pointsets:slug:team-a"]; ok {
		t.Error("expected cached entry to be invalidated")
	}
	if len(events.setChanges) != 1 || events.setChanges[0] != "team-a" {
		t.Errorf("expected change event for team-a, got %v", events.setChanges)
	}
}

func TestPointSetService_Save_InvalidSlug(t *testing.T) {
	svc := usecases.NewPointSetService(&mockSetRepo{}, nil, nil)
	points := []domain.Point{{Location: domain.GeoPoint{Lat: 1, Lon: 2}}}

	for _, slug := range []string{"", "Team A", "UPPER", "trailing-", "-leading", "a b"} {
		if _, err := svc.Save(context.Background(), slug, "x", "", points); err == nil {
			t.Errorf("expected error for slug %q", slug)
		}
	}
}

func TestPointSetService_Save_RejectsBadCoordinates(t *testing.T) {
	svc := usecases.NewPointSetService(&mockSetRepo{}, nil, nil)

	_, err := svc.Save(context.Background(), "team-a", "Team A", "", []domain.Point{
		{Location: domain.GeoPoint{Lat: 91, Lon: 0}},
	})
	if err == nil {
		t.Error("expected error for out-of-range latitude")
	}

	_, err = svc.Save(context.Background(), "team-a", "Team A", "", nil)
	if err == nil {
		t.Error("expected error for empty point list")
	}
}

func TestPointSetService_Get_CachesResult(t *testing.T) {
	repo := &mockSetRepo{
		getBySlugFn: func(ctx context.Context, slug string) (*domain.PointSet, error) {
			return &domain.PointSet{ID: "set-1", Slug: slug, Name: "Team A", PointCount: 1}, nil
		},
		pointsFn: func(ctx context.Context, setID string) ([]domain.Point, error) {
			return []domain.Point{{SetID: setID, Label: "a", Location: domain.GeoPoint{Lat: 1, Lon: 2}}}, nil
		},
	}
	cache := newMockCache()

	svc := usecases.NewPointSetService(repo, cache, nil)
	if _, _, err := svc.Get(context.Background(), "team-a"); err != nil {
		t.Fatalf("first get: %v", err)
	}
	set, points, err := svc.Get(context.Background(), "team-a")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}

	if repo.pointsCalls != 1 {
		t.Errorf("expected points loaded once, got %d loads", repo.pointsCalls)
	}
	if cache.hits != 1 {
		t.Errorf("expected 1 cache hit, got %d", cache.hits)
	}
	if set.Slug != "team-a" || len(points) != 1 {
		t.Errorf("unexpected cached result: %+v, %d points", set, len(points))
	}
}

func TestPointSetService_List_ClampsLimit(t *testing.T) {
	called := false
	repo := &mockSetRepo{
		listFn: func(ctx context.Context, limit, offset int) ([]domain.PointSet, error) {
			called = true
			if limit != 20 {
				t.Errorf("expected limit clamped to 20, got %d", limit)
			}
			if offset != 0 {
				t.Errorf("expected offset clamped to 0, got %d", offset)
			}
			return []domain.PointSet{{Slug: "only"}}, nil
		},
		countFn: func(ctx context.Context) (int, error) { return 7, nil },
	}

	svc := usecases.NewPointSetService(repo, nil, nil)
	sets, total, err := svc.List(context.Background(), 999, -5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("repo was not called")
	}
	if len(sets) != 1 || total != 7 {
		t.Errorf("expected 1 set and total 7, got %d and %d", len(sets), total)
	}
}

func TestPointSetService_Delete(t *testing.T) {
	deleted := ""
	repo := &mockSetRepo{
		deleteFn: func(ctx context.Context, slug string) error {
			deleted = slug
			return nil
		},
	}
	cache := newMockCache()
	cache.store["pointsets:slug:team-a"] = []byte("stale")
	events := &mockPublisher{}

	svc := usecases.NewPointSetService(repo, cache, events)
	if err := svc.Delete(context.Background(), "team-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deleted != "team-a" {
		t.Errorf("expected delete of team-a, got %q", deleted)
	}
	if _, ok := cache.store["pointsets:slug:team-a"]; ok {
		t.Error("expected cached entry to be invalidated")
	}
	if len(events.setChanges) != 1 {
		t.Errorf("expected 1 change event, got %d", len(events.setChanges))
	}
}
