// Package geo holds the geospatial arithmetic used to price a trip.
// Every function is pure and total.
package geo

import (
	"math"

	"github.com/pkordes/mileage-tracker/internal/domain"
)

const (
	// EarthRadiusKm is the mean Earth radius used by HaversineKm.
	EarthRadiusKm = 6371.0

	// MilesPerKm converts kilometres to statute miles.
	MilesPerKm = 0.621371
)

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b domain.Coordinates) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// KmToMiles converts kilometres to miles.
func KmToMiles(km float64) float64 {
	return km * MilesPerKm
}

// DistanceMiles is the great-circle distance between a and b in miles.
func DistanceMiles(a, b domain.Coordinates) float64 {
	return KmToMiles(HaversineKm(a, b))
}

// Reimbursement prices a distance at ratePerMile.
func Reimbursement(miles, ratePerMile float64) float64 {
	return miles * ratePerMile
}

// Round2 rounds x to two decimal places, halves away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
