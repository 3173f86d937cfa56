package domain

import (
	"math"

	dErrors "bloodlink/pkg/domain-errors"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair. Longitude first, matching the GeoJSON
// ordering used on the wire.
type Point struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// NewPoint validates coordinate ranges and returns a Point.
// Errors: CodeValidation when longitude is outside [-180, 180] or latitude
// outside [-90, 90].
func NewPoint(longitude, latitude float64) (Point, error) {
	if longitude < -180 || longitude > 180 {
		return Point{}, dErrors.New(dErrors.CodeValidation, "longitude must be between -180 and 180")
	}
	if latitude < -90 || latitude > 90 {
		return Point{}, dErrors.New(dErrors.CodeValidation, "latitude must be between -90 and 90")
	}
	return Point{Longitude: longitude, Latitude: latitude}, nil
}

// DistanceKm returns the great-circle (haversine) distance between two
// points on a sphere of radius EarthRadiusKm.
func (p Point) DistanceKm(q Point) float64 {
	lat1 := p.Latitude * math.Pi / 180
	lat2 := q.Latitude * math.Pi / 180
	dLat := (q.Latitude - p.Latitude) * math.Pi / 180
	dLon := (q.Longitude - p.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// withinEpsilonKm absorbs floating-point noise at the boundary, roughly one
// micrometer. A point at exactly the radius is within; one meter past is not.
const withinEpsilonKm = 1e-9

// WithinKm reports whether q lies within radiusKm of p. The boundary is
// inclusive.
func (p Point) WithinKm(q Point, radiusKm float64) bool {
	return p.DistanceKm(q) <= radiusKm+withinEpsilonKm
}
