package domain

import (
	"fmt"
	"math"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate rejects coordinates outside the WGS 84 domain. NaN and the
// infinities are rejected explicitly: every range comparison on NaN is
// false, so without the finiteness check a NaN coordinate would slide
// through and poison every distance computed from it.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return fmt.Errorf("latitude must be finite, got %v", p.Lat)
	}
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("longitude must be finite, got %v", p.Lon)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Lon)
	}
	return nil
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Extend grows the box to include p.
func (b *Bounds) Extend(p GeoPoint) {
	if p.Lat < b.MinLat {
		b.MinLat = p.Lat
	}
	if p.Lat > b.MaxLat {
		b.MaxLat = p.Lat
	}
	if p.Lon < b.MinLon {
		b.MinLon = p.Lon
	}
	if p.Lon > b.MaxLon {
		b.MaxLon = p.Lon
	}
}

// BoundsAround returns the smallest box containing all points, or nil for
// an empty slice.
func BoundsAround(points []GeoPoint) *Bounds {
	if len(points) == 0 {
		return nil
	}
	b := &Bounds{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLon: points[0].Lon, MaxLon: points[0].Lon,
	}
	for _, p := range points[1:] {
		b.Extend(p)
	}
	return b
}
