package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
)

// VenueService finds meeting places around midpoints.
type VenueService struct {
	venues    ports.VenueRepository
	suggester ports.VenueSuggester
	cache     ports.CacheService
}

// NewVenueService creates a new VenueService. suggester may be nil, in
// which case Suggest serves curated venues only.
func NewVenueService(venues ports.VenueRepository, suggester ports.VenueSuggester, cache ports.CacheService) *VenueService {
	return &VenueService{venues: venues, suggester: suggester, cache: cache}
}

// Nearby returns curated venues within radiusMeters of a point, closest
// first.
func (s *VenueService) Nearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Venue, error) {
	if err := (domain.GeoPoint{Lat: lat, Lon: lon}).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if radiusMeters <= 0 {
		radiusMeters = 1000
	}
	if radiusMeters > 10000 {
		radiusMeters = 10000
	}

	cacheKey := fmt.Sprintf("venues:nearby:%.4f:%.4f:%.0f:%d", lat, lon, radiusMeters, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var venues []domain.Venue
			if err := json.Unmarshal(data, &venues); err == nil {
				return venues, nil
			}
		}
	}

	venues, err := s.venues.FindNearby(ctx, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(venues); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return venues, nil
}

// Suggest merges curated venues with places-provider results around a
// midpoint. Provider failures degrade to curated venues rather than
// failing the call.
func (s *VenueService) Suggest(ctx context.Context, lat, lon float64, radiusMeters int, keyword string, limit int) ([]domain.Venue, error) {
	if err := (domain.GeoPoint{Lat: lat, Lon: lon}).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if limit <= 0 || limit > 25 {
		limit = 10
	}
	if radiusMeters <= 0 {
		radiusMeters = 1500
	}
	if radiusMeters > 10000 {
		radiusMeters = 10000
	}
	keyword = strings.TrimSpace(keyword)

	cacheKey := fmt.Sprintf("venues:suggest:%.4f:%.4f:%d:%s:%d", lat, lon, radiusMeters, keyword, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var venues []domain.Venue
			if err := json.Unmarshal(data, &venues); err == nil {
				return venues, nil
			}
		}
	}

	out, err := s.venues.FindNearby(ctx, lat, lon, float64(radiusMeters), limit)
	if err != nil {
		return nil, err
	}

	if s.suggester != nil && len(out) < limit {
		extra, err := s.suggester.Suggest(ctx, lat, lon, radiusMeters, keyword)
		if err == nil {
			var added []domain.Venue
			out, added = mergeVenues(out, extra, limit)
			if len(added) > 0 {
				// Keep provider finds for future curated lookups.
				_ = s.venues.UpsertBatch(ctx, added)
			}
		}
	}

	if s.cache != nil {
		if data, err := json.Marshal(out); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return out, nil
}

// mergeVenues appends provider venues that do not collide with a curated
// name, up to limit, and reports which ones were new.
func mergeVenues(curated, extra []domain.Venue, limit int) ([]domain.Venue, []domain.Venue) {
	seen := make(map[string]bool, len(curated))
	for _, v := range curated {
		seen[strings.ToLower(v.Name)] = true
	}

	out := curated
	var added []domain.Venue
	for _, v := range extra {
		if len(out) >= limit {
			break
		}
		key := strings.ToLower(v.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
		added = append(added, v)
	}
	return out, added
}
