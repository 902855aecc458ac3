package geo_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/geo"
)

var (
	westminster = domain.Coordinates{Lat: 51.5007, Lng: -0.1246}
	whitehall   = domain.Coordinates{Lat: 51.5033, Lng: -0.1195}
)

func TestHaversineKm_SamePointIsZero(t *testing.T) {
	for _, c := range []domain.Coordinates{westminster, {Lat: 0, Lng: 0}, {Lat: -33.8688, Lng: 151.2093}, {Lat: 90, Lng: 0}} {
		assert.Zero(t, geo.HaversineKm(c, c), "distance from %v to itself", c)
	}
}

func TestHaversineKm_Symmetric(t *testing.T) {
	points := []domain.Coordinates{
		westminster,
		whitehall,
		{Lat: 40.7128, Lng: -74.0060},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 89.9, Lng: 179.9},
	}
	for _, a := range points {
		for _, b := range points {
			assert.InDelta(t, geo.HaversineKm(a, b), geo.HaversineKm(b, a), 1e-9, "%v <-> %v", a, b)
		}
	}
}

// TestHaversineKm_Reference checks the formula against a worked value:
// London to Paris is about 343.5 km on a 6371 km sphere.
func TestHaversineKm_Reference(t *testing.T) {
	london := domain.Coordinates{Lat: 51.5074, Lng: -0.1278}
	paris := domain.Coordinates{Lat: 48.8566, Lng: 2.3522}

	assert.InDelta(t, 343.5, geo.HaversineKm(london, paris), 0.5)
}

func TestHaversineKm_QuarterMeridian(t *testing.T) {
	got := geo.HaversineKm(domain.Coordinates{Lat: 0, Lng: 0}, domain.Coordinates{Lat: 90, Lng: 0})

	assert.InDelta(t, geo.EarthRadiusKm*math.Pi/2, got, 1e-9)
}

func TestKmToMiles(t *testing.T) {
	for _, km := range []float64{0, 0.45, 1, 10, 1234.5678} {
		assert.InDelta(t, km*0.621371, geo.KmToMiles(km), 1e-12)
	}
}

func TestReimbursement(t *testing.T) {
	assert.Equal(t, 4.5, geo.Reimbursement(10, 0.45))
	assert.Zero(t, geo.Reimbursement(0, 0.45))
	assert.GreaterOrEqual(t, geo.Reimbursement(3.3, 0.45), 0.0)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.28, geo.Round2(0.2834))
	assert.Equal(t, 0.13, geo.Round2(0.125))
	assert.Equal(t, 1.0, geo.Round2(0.999))
	assert.Zero(t, geo.Round2(0))
}

// TestDistanceMiles_ShortLondonTrip covers a walk from Westminster to Whitehall:
// roughly 0.45 km, 0.28 miles, 0.13 at 0.45 per mile.
func TestDistanceMiles_ShortLondonTrip(t *testing.T) {
	km := geo.HaversineKm(westminster, whitehall)
	require.InDelta(t, 0.45, km, 0.01)

	miles := geo.Round2(geo.DistanceMiles(westminster, whitehall))
	assert.Equal(t, 0.28, miles)
	assert.Equal(t, 0.13, geo.Round2(geo.Reimbursement(miles, 0.45)))
}
