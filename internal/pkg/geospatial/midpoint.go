package geospatial

import "math"

// Midpoint returns the great-circle midpoint between two points, in degrees.
// The result does not depend on argument order and Midpoint(p, p) is p.
// The returned longitude is lon1 plus half the angular offset; it is not
// wrapped into [-180, 180].
func Midpoint(lat1, lon1, lat2, lon2 float64) (float64, float64) {
	lat1Rad := Radians(lat1)
	lat2Rad := Radians(lat2)
	dLon := Radians(lon2 - lon1)

	bx := math.Cos(lat2Rad) * math.Cos(dLon)
	by := math.Cos(lat2Rad) * math.Sin(dLon)

	latMid := math.Atan2(
		math.Sin(lat1Rad)+math.Sin(lat2Rad),
		math.Sqrt((math.Cos(lat1Rad)+bx)*(math.Cos(lat1Rad)+bx)+by*by),
	)
	lonMid := Radians(lon1) + math.Atan2(by, math.Cos(lat1Rad)+bx)

	return Degrees(latMid), Degrees(lonMid)
}
