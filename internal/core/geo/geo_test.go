package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	newYork    = Point{Latitude: 40.7128, Longitude: -74.0060}
	losAngeles = Point{Latitude: 34.0522, Longitude: -118.2437}
)

// TestDistance_IdenticalPoints verifies distance to the same point is zero.
func TestDistance_IdenticalPoints(t *testing.T) {
	assert.Zero(t, Distance(newYork, newYork))
	assert.Zero(t, Distance(Point{}, Point{}))
}

// TestDistance_Symmetric verifies distance is symmetric.
func TestDistance_Symmetric(t *testing.T) {
	assert.InDelta(t, Distance(newYork, losAngeles), Distance(losAngeles, newYork), 1e-9)
}

// TestDistance_KnownCities verifies the NYC to LA great-circle distance.
func TestDistance_KnownCities(t *testing.T) {
	assert.InDelta(t, 3936.0, Distance(newYork, losAngeles), 5.0)
}

// TestDistanceMeters verifies the meter conversion.
func TestDistanceMeters(t *testing.T) {
	a := Point{Latitude: 40.0, Longitude: -74.0}
	b := Point{Latitude: 40.01, Longitude: -74.0}

	// One hundredth of a degree of latitude is roughly 1.11 km.
	assert.InDelta(t, 1112.0, DistanceMeters(a, b), 10.0)
}

// TestBearing verifies cardinal bearings.
func TestBearing(t *testing.T) {
	origin := Point{Latitude: 0, Longitude: 0}

	assert.InDelta(t, 0.0, Bearing(origin, Point{Latitude: 1, Longitude: 0}), 0.01)
	assert.InDelta(t, 90.0, Bearing(origin, Point{Latitude: 0, Longitude: 1}), 0.01)
	assert.InDelta(t, 180.0, Bearing(origin, Point{Latitude: -1, Longitude: 0}), 0.01)
	assert.InDelta(t, 270.0, Bearing(origin, Point{Latitude: 0, Longitude: -1}), 0.01)
}

// TestValidCoordinates verifies WGS84 range checks.
func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(40.0, -74.0))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(90.1, 0))
	assert.False(t, ValidCoordinates(-90.1, 0))
	assert.False(t, ValidCoordinates(0, 180.1))
	assert.False(t, ValidCoordinates(0, -180.1))
}
