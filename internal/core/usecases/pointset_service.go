package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
)

// maxPointsPerSet bounds a single upload; larger collections should be
// split or imported in pieces.
const maxPointsPerSet = 50_000

// PointSetService handles point-set CRUD and change notification.
type PointSetService struct {
	sets   ports.PointSetRepository
	cache  ports.CacheService
	events ports.EventPublisher
}

// NewPointSetService creates a new PointSetService.
func NewPointSetService(sets ports.PointSetRepository, cache ports.CacheService, events ports.EventPublisher) *PointSetService {
	return &PointSetService{sets: sets, cache: cache, events: events}
}

// Save validates and stores a set, replacing its points wholesale.
func (s *PointSetService) Save(ctx context.Context, slug, name, origin string, points []domain.Point) (*domain.PointSet, error) {
	slug = strings.TrimSpace(slug)
	if !domain.ValidSlug(slug) {
		return nil, fmt.Errorf("%w: invalid slug %q, want lowercase letters, digits and hyphens", ErrInvalidInput, slug)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = slug
	}
	if origin == "" {
		origin = "manual"
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: point set must contain at least one point", ErrInvalidInput)
	}
	if len(points) > maxPointsPerSet {
		return nil, fmt.Errorf("%w: point set exceeds %d points", ErrInvalidInput, maxPointsPerSet)
	}

	for i := range points {
		if err := points[i].Location.Validate(); err != nil {
			return nil, fmt.Errorf("%w: point %d: %v", ErrInvalidInput, i, err)
		}
		points[i].Label = strings.TrimSpace(points[i].Label)
		points[i].Position = i
	}

	set := &domain.PointSet{
		Slug:       slug,
		Name:       name,
		Origin:     origin,
		PointCount: len(points),
	}
	if err := s.sets.Upsert(ctx, set, points); err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, "pointsets:slug:"+slug)
	}
	if s.events != nil {
		_ = s.events.PublishPointSetChanged(ctx, slug)
	}

	return set, nil
}

// Get returns a set with its points, ordered by position.
func (s *PointSetService) Get(ctx context.Context, slug string) (*domain.PointSet, []domain.Point, error) {
	type envelope struct {
		Set    *domain.PointSet `json:"set"`
		Points []domain.Point   `json:"points"`
	}

	cacheKey := "pointsets:slug:" + slug
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var env envelope
			if err := json.Unmarshal(data, &env); err == nil && env.Set != nil {
				return env.Set, env.Points, nil
			}
		}
	}

	set, err := s.sets.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	points, err := s.sets.Points(ctx, set.ID)
	if err != nil {
		return nil, nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(envelope{Set: set, Points: points}); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return set, points, nil
}

// List returns a page of stored sets, newest first, plus the total count.
func (s *PointSetService) List(ctx context.Context, limit, offset int) ([]domain.PointSet, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	sets, err := s.sets.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.sets.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return sets, total, nil
}

// Delete removes a set and its points.
func (s *PointSetService) Delete(ctx context.Context, slug string) error {
	if err := s.sets.Delete(ctx, slug); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "pointsets:slug:"+slug)
	}
	if s.events != nil {
		_ = s.events.PublishPointSetChanged(ctx, slug)
	}
	return nil
}
