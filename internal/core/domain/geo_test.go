package domain_test

import (
	"math"
	"testing"

	"github.com/samirrijal/halfway/internal/core/domain"
)

func TestGeoPointValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       domain.GeoPoint
		wantErr bool
	}{
		{"origin", domain.GeoPoint{Lat: 0, Lon: 0}, false},
		{"bilbao", domain.GeoPoint{Lat: 43.263, Lon: -2.935}, false},
		{"poles and date line", domain.GeoPoint{Lat: 90, Lon: 180}, false},
		{"lat too high", domain.GeoPoint{Lat: 90.001, Lon: 0}, true},
		{"lat too low", domain.GeoPoint{Lat: -91, Lon: 0}, true},
		{"lon too high", domain.GeoPoint{Lat: 0, Lon: 180.5}, true},
		{"lon too low", domain.GeoPoint{Lat: 0, Lon: -181}, true},
		{"nan lat", domain.GeoPoint{Lat: math.NaN(), Lon: 0}, true},
		{"nan lon", domain.GeoPoint{Lat: 0, Lon: math.NaN()}, true},
		{"inf lat", domain.GeoPoint{Lat: math.Inf(1), Lon: 0}, true},
		{"neg inf lon", domain.GeoPoint{Lat: 0, Lon: math.Inf(-1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("Validate(%+v) = nil, want error", tt.p)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate(%+v) = %v, want nil", tt.p, err)
			}
		})
	}
}

func TestBoundsAround(t *testing.T) {
	if b := domain.BoundsAround(nil); b != nil {
		t.Errorf("expected nil bounds for empty input, got %+v", b)
	}

	b := domain.BoundsAround([]domain.GeoPoint{
		{Lat: 43.26, Lon: -2.93},
		{Lat: 43.30, Lon: -2.99},
		{Lat: 43.20, Lon: -2.90},
	})
	if b.MinLat != 43.20 || b.MaxLat != 43.30 {
		t.Errorf("unexpected lat bounds: %+v", b)
	}
	if b.MinLon != -2.99 || b.MaxLon != -2.90 {
		t.Errorf("unexpected lon bounds: %+v", b)
	}
}
