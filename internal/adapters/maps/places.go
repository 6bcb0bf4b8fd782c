package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/pkg/metrics"
)

// PlacesClient implements ports.VenueSuggester using the Google Places API.
type PlacesClient struct {
	client *maps.Client
}

// NewPlacesClient creates a Places client with the given API key.
func NewPlacesClient(apiKey string) (*PlacesClient, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return &PlacesClient{client: client}, nil
}

// Suggest searches for venues around a point. Results are mapped to domain
// venues with Source "google" so they can be persisted alongside curated ones.
func (p *PlacesClient) Suggest(ctx context.Context, lat, lon float64, radiusMeters int, keyword string) ([]domain.Venue, error) {
	metrics.VenueLookups.WithLabelValues("google").Inc()

	req := &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: lat, Lng: lon},
		Radius:   uint(radiusMeters),
		Keyword:  keyword,
	}

	resp, err := p.client.NearbySearch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	var venues []domain.Venue
	for _, result := range resp.Results {
		category := ""
		if len(result.Types) > 0 {
			category = result.Types[0]
		}

		venues = append(venues, domain.Venue{
			Name:     result.Name,
			Category: category,
			Location: domain.GeoPoint{
				Lat: result.Geometry.Location.Lat,
				Lon: result.Geometry.Location.Lng,
			},
			Address: result.Vicinity,
			Rating:  float64(result.Rating),
			Source:  "google",
			Active:  true,
			Metadata: map[string]any{
				"place_id":           result.PlaceID,
				"user_ratings_total": result.UserRatingsTotal,
			},
		})
	}

	return venues, nil
}
