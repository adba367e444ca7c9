package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the Haversine formula.
const earthRadiusMeters = 6371000

// Coordinates is a device or classroom location fix. Only latitude/longitude
// participate in distance math; the rest is reported metadata.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed,omitempty"`
	Heading   float64 `json:"heading,omitempty"`
	Altitude  float64 `json:"altitude,omitempty"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// DistanceMeters computes the great-circle distance between two points
// using the Haversine formula. Symmetric, non-negative, zero for identical
// points. Inputs are signed decimal degrees.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Between is a convenience wrapper over DistanceMeters for two fixes.
func Between(a, b Coordinates) float64 {
	return DistanceMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// Status classifies a fix relative to a geofence.
type Status string

const (
	StatusInside  Status = "inside"
	StatusBorder  Status = "border"
	StatusOutside Status = "outside"
)

// Classify buckets a distance against an allowed radius. Fixes within
// borderBand meters of the radius on either side count as "border";
// the radius itself is inclusive, matching the attendance accept rule.
func Classify(distance, radius, borderBand float64) Status {
	switch {
	case distance > radius:
		return StatusOutside
	case radius-distance <= borderBand:
		return StatusBorder
	default:
		return StatusInside
	}
}
