package geo

import (
	"errors"
	"math"
)

const (
	earthRadiusMeters = 6371000
	metersPerMile     = 1609.344
)

// ErrAddressNotFound is returned by geocoders when a lookup yields no candidate.
var ErrAddressNotFound = errors.New("address not found")

type Location struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formattedAddress"`
}

type DistanceResult struct {
	DistanceMiles   float64 `json:"distanceMiles"`
	DurationMinutes int     `json:"durationMinutes"`
}

// Haversine returns the great-circle distance in meters between two lat/lng points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

func MetersToMiles(meters float64) float64 {
	return meters / metersPerMile
}

// StraightLineMiles is the haversine separation of a and b in miles.
func StraightLineMiles(a, b Location) float64 {
	return MetersToMiles(Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude))
}

// RoundTenth rounds to one decimal place.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
