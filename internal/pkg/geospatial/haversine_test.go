package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/halfway/internal/pkg/geospatial"
)

func TestRadians(t *testing.T) {
	cases := []struct {
		deg  float64
		want float64
	}{
		{0, 0},
		{90, math.Pi / 2},
		{180, math.Pi},
		{-180, -math.Pi},
		{360, 2 * math.Pi},
	}
	for _, c := range cases {
		if got := geospatial.Radians(c.deg); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("Radians(%v) = %v, want %v", c.deg, got, c.want)
		}
	}
}

func TestHaversine_SamePoint(t *testing.T) {
	if d := geospatial.Haversine(43.263, -2.935, 43.263, -2.935); d != 0 {
		t.Fatalf("expected exactly 0, got %v", d)
	}
}

func TestHaversine_KnownDistances(t *testing.T) {
	cases := []struct {
		name        string
		lat1, lon1  float64
		lat2, lon2  float64
		wantKm      float64
		toleranceKm float64
	}{
		{"Bilbao-Madrid", 43.263, -2.935, 40.4168, -3.7038, 322.9, 5},
		{"London-Paris", 51.5074, -0.1278, 48.8566, 2.3522, 343.6, 5},
		{"NewYork-LosAngeles", 40.7128, -74.0060, 34.0522, -118.2437, 3936, 20},
		{"EquatorAntipodal", 0, 0, 0, 180, 20015.1, 1},
		{"PoleToPole", 90, 0, -90, 0, 20015.1, 1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := geospatial.Haversine(c.lat1, c.lon1, c.lat2, c.lon2)
			if math.IsNaN(got) {
				t.Fatal("got NaN")
			}
			if math.Abs(got-c.wantKm) > c.toleranceKm {
				t.Errorf("expected ~%v km, got %v km", c.wantKm, got)
			}
		})
	}
}

func TestHaversine_Symmetry(t *testing.T) {
	pairs := [][4]float64{
		{43.263, -2.935, 40.4168, -3.7038},
		{51.5074, -0.1278, 48.8566, 2.3522},
		{-33.8688, 151.2093, 35.6762, 139.6503},
	}
	for _, p := range pairs {
		ab := geospatial.Haversine(p[0], p[1], p[2], p[3])
		ba := geospatial.Haversine(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9*ab {
			t.Errorf("distance not symmetric: %v vs %v", ab, ba)
		}
	}
}

func TestBoundingBox(t *testing.T) {
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(43.263, -2.935, 1000)
	if minLat >= 43.263 || maxLat <= 43.263 {
		t.Fatalf("box does not contain the center latitude: [%v, %v]", minLat, maxLat)
	}
	if minLon >= -2.935 || maxLon <= -2.935 {
		t.Fatalf("box does not contain the center longitude: [%v, %v]", minLon, maxLon)
	}
	if math.Abs((maxLat-43.263)-(43.263-minLat)) > 1e-9 {
		t.Errorf("latitude deltas not symmetric")
	}
}
