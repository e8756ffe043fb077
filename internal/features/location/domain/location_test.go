package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

// TestNewLocation verifies construction and validation of position reports.
func TestNewLocation(t *testing.T) {
	ts := time.Now().UTC()

	loc, err := NewLocation("ship-1", "device-1", 40.7128, -74.0060, ts)
	require.NoError(t, err)
	assert.NotEmpty(t, loc.ID)
	assert.Equal(t, SourceGPS, loc.Source)
	assert.Equal(t, QualityUnknown, loc.Quality)
	assert.Equal(t, ts, loc.Timestamp)

	_, err = NewLocation("", "device-1", 40.0, -74.0, ts)
	assert.ErrorIs(t, err, ErrInvalidLocationData)

	_, err = NewLocation("ship-1", "device-1", 91.0, 0, ts)
	assert.ErrorIs(t, err, ErrInvalidLocationData)

	_, err = NewLocation("ship-1", "device-1", 0, 181.0, ts)
	assert.ErrorIs(t, err, ErrInvalidLocationData)
}

// TestDeriveQuality verifies the accuracy grading thresholds.
func TestDeriveQuality(t *testing.T) {
	assert.Equal(t, QualityUnknown, DeriveQuality(nil))
	assert.Equal(t, QualityHigh, DeriveQuality(f(5)))
	assert.Equal(t, QualityHigh, DeriveQuality(f(9.9)))
	assert.Equal(t, QualityStandard, DeriveQuality(f(10)))
	assert.Equal(t, QualityStandard, DeriveQuality(f(49.9)))
	assert.Equal(t, QualityLow, DeriveQuality(f(50)))
	assert.Equal(t, QualityLow, DeriveQuality(f(500)))
}

// TestDeriveIsMoving verifies the movement speed threshold.
func TestDeriveIsMoving(t *testing.T) {
	assert.False(t, DeriveIsMoving(nil))
	assert.False(t, DeriveIsMoving(f(0)))
	assert.False(t, DeriveIsMoving(f(0.5)))
	assert.True(t, DeriveIsMoving(f(0.51)))
	assert.True(t, DeriveIsMoving(f(20)))
}

// TestLocation_IsStale verifies staleness against a threshold.
func TestLocation_IsStale(t *testing.T) {
	loc, err := NewLocation("ship-1", "device-1", 40.0, -74.0, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	assert.True(t, loc.IsStale(30*time.Minute))
	assert.False(t, loc.IsStale(2*time.Hour))
}

// TestLocation_IsAtStop verifies proximity detection against stop
// coordinates.
func TestLocation_IsAtStop(t *testing.T) {
	loc, err := NewLocation("ship-1", "device-1", 40.0, -74.0, time.Now().UTC())
	require.NoError(t, err)

	assert.True(t, loc.IsAtStop(40.0, -74.0, 100))
	// Roughly 1.1 km north.
	assert.False(t, loc.IsAtStop(40.01, -74.0, 100))
	assert.True(t, loc.IsAtStop(40.01, -74.0, 2000))
}
