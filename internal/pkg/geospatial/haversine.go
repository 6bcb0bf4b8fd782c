package geospatial

import "math"

const earthRadiusKm = 6371.0

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Haversine calculates the great-circle distance in kilometers between two points.
// Identical points yield exactly 0 and the result is never NaN.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := Radians(lat2 - lat1)
	dLon := Radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(Radians(lat1))*math.Cos(Radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// a can overshoot [0, 1] by a few ulps at identical or antipodal
	// inputs, which would hand Sqrt a negative argument.
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(Radians(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}
