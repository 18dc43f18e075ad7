// Package geo provides great-circle distance math for geofence checks.
package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two WGS 84
// coordinates using the haversine formula. Accurate to within a few meters at
// the scales the geofence operates on (tens to low thousands of meters).
//
// Coordinates must already be valid (lat in [-90,90], lng in [-180,180]);
// out-of-range input is the caller's responsibility and is not clamped.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lng2 - lng1)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)

	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// PointAtDistanceNorth returns the coordinate exactly meters due north of the
// given point, computed with the same Earth radius as Distance. Intended for
// building geofence fixtures.
func PointAtDistanceNorth(lat, lng, meters float64) (float64, float64) {
	return lat + degrees(meters/earthRadiusMeters), lng
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
