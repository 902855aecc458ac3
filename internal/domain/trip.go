// Package domain contains the core data types for the mileage tracker.
// This package has zero external dependencies beyond uuid and is imported by
// every other internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Coordinates is a WGS84 latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Trip is one completed trip. It is constructed only when a trip ends, once
// both endpoint samples are known, and is never modified after it is saved.
type Trip struct {
	ID                  uuid.UUID   `json:"id"`
	UserID              string      `json:"user_id"`
	StartTime           time.Time   `json:"start_time"`
	EndTime             time.Time   `json:"end_time"`
	StartCoordinates    Coordinates `json:"start_coordinates"`
	EndCoordinates      Coordinates `json:"end_coordinates"`
	StartAddress        *string     `json:"start_address"` // nil when resolution never completed
	EndAddress          *string     `json:"end_address"`
	DistanceMiles       float64     `json:"distance_miles"`
	ReimbursementAmount float64     `json:"reimbursement_amount"`
	CreatedAt           time.Time   `json:"created_at"`
}

// Rate is the reimbursement policy applied to every trip.
type Rate struct {
	PerMile        float64
	CurrencySymbol string
}

// Valid reports whether c lies within the WGS84 latitude/longitude ranges.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}
