package domain

import (
	"testing"

	"shipment-tracker/internal/core/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewCircularGeofence verifies radius and coordinate validation.
func TestNewCircularGeofence(t *testing.T) {
	fence, err := NewCircularGeofence("warehouse", "cust-1", 40.0, -74.0, 500)
	require.NoError(t, err)
	assert.True(t, fence.Active)
	assert.Equal(t, GeofenceCircular, fence.Type)
	assert.NotEmpty(t, fence.ID)

	_, err = NewCircularGeofence("bad", "cust-1", 40.0, -74.0, 0)
	assert.ErrorIs(t, err, ErrInvalidGeofence)

	_, err = NewCircularGeofence("bad", "cust-1", 40.0, -74.0, -10)
	assert.ErrorIs(t, err, ErrInvalidGeofence)

	_, err = NewCircularGeofence("bad", "cust-1", 40.0, -74.0, 50001)
	assert.ErrorIs(t, err, ErrInvalidGeofence)

	// The maximum radius itself is allowed.
	_, err = NewCircularGeofence("edge", "cust-1", 40.0, -74.0, 50000)
	assert.NoError(t, err)

	_, err = NewCircularGeofence("bad", "cust-1", 95.0, -74.0, 500)
	assert.ErrorIs(t, err, ErrInvalidGeofence)
}

// TestNewPolygonGeofence verifies boundary validation.
func TestNewPolygonGeofence(t *testing.T) {
	boundary := []geo.Point{
		{Latitude: 40.0, Longitude: -74.0},
		{Latitude: 40.1, Longitude: -74.0},
		{Latitude: 40.1, Longitude: -74.1},
	}

	fence, err := NewPolygonGeofence("zone", "cust-1", boundary)
	require.NoError(t, err)
	assert.Equal(t, GeofencePolygon, fence.Type)
	assert.Len(t, fence.Boundary, 3)

	_, err = NewPolygonGeofence("bad", "cust-1", boundary[:2])
	assert.ErrorIs(t, err, ErrInvalidGeofence)

	bad := append(append([]geo.Point(nil), boundary...), geo.Point{Latitude: 200, Longitude: 0})
	_, err = NewPolygonGeofence("bad", "cust-1", bad)
	assert.ErrorIs(t, err, ErrInvalidGeofence)
}

// TestGeofence_Contains_Circular verifies circular containment including
// the boundary itself.
func TestGeofence_Contains_Circular(t *testing.T) {
	fence, err := NewCircularGeofence("warehouse", "cust-1", 40.0, -74.0, 500)
	require.NoError(t, err)

	assert.True(t, fence.Contains(geo.Point{Latitude: 40.0, Longitude: -74.0}))
	// 0.004 degrees of latitude is about 445 m: inside.
	assert.True(t, fence.Contains(geo.Point{Latitude: 40.004, Longitude: -74.0}))
	// 0.01 degrees is about 1.1 km: outside.
	assert.False(t, fence.Contains(geo.Point{Latitude: 40.01, Longitude: -74.0}))
}

// TestGeofence_Contains_CircularBoundary verifies a point at exactly the
// radius is inside while one meter past it is outside.
func TestGeofence_Contains_CircularBoundary(t *testing.T) {
	center := geo.Point{Latitude: 40.0, Longitude: -74.0}
	point := geo.Point{Latitude: 40.004, Longitude: -74.0}
	distance := geo.DistanceMeters(center, point)

	atRadius, err := NewCircularGeofence("exact", "cust-1", center.Latitude, center.Longitude, distance)
	require.NoError(t, err)
	assert.True(t, atRadius.Contains(point))

	insideRadius, err := NewCircularGeofence("short", "cust-1", center.Latitude, center.Longitude, distance-1)
	require.NoError(t, err)
	assert.False(t, insideRadius.Contains(point))

	// One meter of slack puts the point strictly inside again.
	beyondRadius, err := NewCircularGeofence("slack", "cust-1", center.Latitude, center.Longitude, distance+1)
	require.NoError(t, err)
	assert.True(t, beyondRadius.Contains(point))
}

// TestGeofence_Contains_Polygon verifies ray-cast containment with points
// inside, outside, on an edge and on a vertex.
func TestGeofence_Contains_Polygon(t *testing.T) {
	fence, err := NewPolygonGeofence("square", "cust-1", []geo.Point{
		{Latitude: 40.0, Longitude: -74.0},
		{Latitude: 40.0, Longitude: -73.0},
		{Latitude: 41.0, Longitude: -73.0},
		{Latitude: 41.0, Longitude: -74.0},
	})
	require.NoError(t, err)

	assert.True(t, fence.Contains(geo.Point{Latitude: 40.5, Longitude: -73.5}))
	assert.False(t, fence.Contains(geo.Point{Latitude: 39.5, Longitude: -73.5}))
	assert.False(t, fence.Contains(geo.Point{Latitude: 40.5, Longitude: -75.0}))
	// On an edge.
	assert.True(t, fence.Contains(geo.Point{Latitude: 40.0, Longitude: -73.5}))
	// On a vertex.
	assert.True(t, fence.Contains(geo.Point{Latitude: 40.0, Longitude: -74.0}))
}

// TestGeofence_ActivationLifecycle verifies redundant state changes are
// rejected.
func TestGeofence_ActivationLifecycle(t *testing.T) {
	fence, err := NewCircularGeofence("warehouse", "cust-1", 40.0, -74.0, 500)
	require.NoError(t, err)

	assert.ErrorIs(t, fence.Activate(), ErrGeofenceState)
	require.NoError(t, fence.Deactivate())
	assert.ErrorIs(t, fence.Deactivate(), ErrGeofenceState)
	require.NoError(t, fence.Activate())
}

// TestGeofence_UpdateRadius verifies radius updates are circular-only and
// range-checked.
func TestGeofence_UpdateRadius(t *testing.T) {
	fence, err := NewCircularGeofence("warehouse", "cust-1", 40.0, -74.0, 500)
	require.NoError(t, err)

	require.NoError(t, fence.UpdateRadius(1000))
	assert.Equal(t, 1000.0, fence.RadiusMeters)
	assert.ErrorIs(t, fence.UpdateRadius(0), ErrInvalidGeofence)
	assert.ErrorIs(t, fence.UpdateRadius(60000), ErrInvalidGeofence)

	polygon, err := NewPolygonGeofence("zone", "cust-1", []geo.Point{
		{Latitude: 40.0, Longitude: -74.0},
		{Latitude: 40.1, Longitude: -74.0},
		{Latitude: 40.1, Longitude: -74.1},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, polygon.UpdateRadius(1000), ErrGeofenceState)
}

// TestGeofence_Specificity verifies smaller circles order before larger
// ones and every circle orders before any polygon.
func TestGeofence_Specificity(t *testing.T) {
	small, err := NewCircularGeofence("dock", "cust-1", 40.0, -74.0, 100)
	require.NoError(t, err)
	large, err := NewCircularGeofence("district", "cust-1", 40.0, -74.0, 10000)
	require.NoError(t, err)
	polygon, err := NewPolygonGeofence("zone", "cust-1", []geo.Point{
		{Latitude: 40.0, Longitude: -74.0},
		{Latitude: 40.1, Longitude: -74.0},
		{Latitude: 40.1, Longitude: -74.1},
	})
	require.NoError(t, err)

	assert.Less(t, small.Specificity(), large.Specificity())
	assert.Less(t, large.Specificity(), polygon.Specificity())
}
