package service

import (
	"context"
	"testing"
	"time"

	"shipment-tracker/internal/core/geo"
	"shipment-tracker/internal/core/metrics"
	eventdomain "shipment-tracker/internal/features/events/domain"
	"shipment-tracker/internal/features/location/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGeofenceRepository serves a fixed fence set.
type fakeGeofenceRepository struct {
	fences []*domain.Geofence
}

func (f *fakeGeofenceRepository) Save(_ context.Context, fence *domain.Geofence) error {
	f.fences = append(f.fences, fence)
	return nil
}

func (f *fakeGeofenceRepository) FindByID(_ context.Context, id string) (*domain.Geofence, error) {
	for _, fence := range f.fences {
		if fence.ID == id {
			return fence, nil
		}
	}
	return nil, nil
}

func (f *fakeGeofenceRepository) FindAllActive(_ context.Context) ([]*domain.Geofence, error) {
	var active []*domain.Geofence
	for _, fence := range f.fences {
		if fence.Active {
			active = append(active, fence)
		}
	}
	return active, nil
}

func (f *fakeGeofenceRepository) Delete(_ context.Context, id string) error { return nil }

func testMetrics() *metrics.Metrics {
	return metrics.NewWith("test", prometheus.NewRegistry())
}

func newEngine(t *testing.T, dwellDefault time.Duration, fences ...*domain.Geofence) *GeofenceEngine {
	t.Helper()
	return NewGeofenceEngine(&fakeGeofenceRepository{fences: fences}, dwellDefault, testMetrics())
}

// TestGeofenceEngine_EnterThenExit verifies the basic containment cycle:
// a position inside the fence produces Enter, a later position outside
// produces Exit carrying the dwell time.
func TestGeofenceEngine_EnterThenExit(t *testing.T) {
	fence, err := domain.NewCircularGeofence("warehouse", "cust-1", 40.0, -74.0, 500)
	require.NoError(t, err)
	engine := newEngine(t, 15*time.Minute, fence)

	ctx := context.Background()
	t0 := time.Now().UTC()

	events, err := engine.Evaluate(ctx, "ship-1", geo.Point{Latitude: 40.0, Longitude: -74.0}, t0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	entered, ok := events[0].Payload.(eventdomain.GeofenceEntered)
	require.True(t, ok)
	assert.Equal(t, fence.ID, entered.GeofenceID)
	assert.Equal(t, fence.ID, engine.Occupancy("ship-1"))

	// About 1.1 km away: outside the 500 m fence.
	events, err = engine.Evaluate(ctx, "ship-1", geo.Point{Latitude: 40.01, Longitude: -74.0}, t0.Add(20*time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 1)
	exited, ok := events[0].Payload.(eventdomain.GeofenceExited)
	require.True(t, ok)
	assert.Equal(t, fence.ID, exited.GeofenceID)
	assert.Equal(t, 20*time.Minute, exited.DwellTime)
	assert.Empty(t, engine.Occupancy("ship-1"))
}

// TestGeofenceEngine_NoEventOutside verifies nothing is emitted while the
// shipment stays outside every fence.
func TestGeofenceEngine_NoEventOutside(t *testing.T) {
	fence, err := domain.NewCircularGeofence("warehouse", "cust-1", 40.0, -74.0, 500)
	require.NoError(t, err)
	engine := newEngine(t, 15*time.Minute, fence)

	events, err := engine.Evaluate(context.Background(), "ship-1",
		geo.Point{Latitude: 45.0, Longitude: -74.0}, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, events)
}

// TestGeofenceEngine_DwellOncePerContainment verifies the dwell event
// fires once when the threshold is crossed and never again until the
// fence is re-entered.
func TestGeofenceEngine_DwellOncePerContainment(t *testing.T) {
	fence, err := domain.NewCircularGeofence("yard", "cust-1", 40.0, -74.0, 500)
	require.NoError(t, err)
	engine := newEngine(t, 15*time.Minute, fence)

	ctx := context.Background()
	t0 := time.Now().UTC()
	inside := geo.Point{Latitude: 40.0, Longitude: -74.0}

	_, err = engine.Evaluate(ctx, "ship-1", inside, t0)
	require.NoError(t, err)

	// Below the threshold: no dwell yet.
	events, err := engine.Evaluate(ctx, "ship-1", inside, t0.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = engine.Evaluate(ctx, "ship-1", inside, t0.Add(16*time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 1)
	dwelled, ok := events[0].Payload.(eventdomain.GeofenceDwelled)
	require.True(t, ok)
	assert.Equal(t, 16*time.Minute, dwelled.DwellTime)

	// Still inside: dwell is not repeated.
	events, err = engine.Evaluate(ctx, "ship-1", inside, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)

	// Exit and re-enter: dwell arms again.
	_, err = engine.Evaluate(ctx, "ship-1", geo.Point{Latitude: 41.0, Longitude: -74.0}, t0.Add(3*time.Hour))
	require.NoError(t, err)
	_, err = engine.Evaluate(ctx, "ship-1", inside, t0.Add(4*time.Hour))
	require.NoError(t, err)
	events, err = engine.Evaluate(ctx, "ship-1", inside, t0.Add(4*time.Hour+16*time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.IsType(t, eventdomain.GeofenceDwelled{}, events[0].Payload)
}

// TestGeofenceEngine_DwellThresholdOverride verifies a fence's own dwell
// policy takes precedence over the engine default.
func TestGeofenceEngine_DwellThresholdOverride(t *testing.T) {
	fence, err := domain.NewCircularGeofence("dock", "cust-1", 40.0, -74.0, 500)
	require.NoError(t, err)
	fence.Notification.DwellTimeMinutes = 5
	engine := newEngine(t, time.Hour, fence)

	ctx := context.Background()
	t0 := time.Now().UTC()
	inside := geo.Point{Latitude: 40.0, Longitude: -74.0}

	_, err = engine.Evaluate(ctx, "ship-1", inside, t0)
	require.NoError(t, err)

	events, err := engine.Evaluate(ctx, "ship-1", inside, t0.Add(6*time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.IsType(t, eventdomain.GeofenceDwelled{}, events[0].Payload)
}

// TestGeofenceEngine_OverlappingFences verifies the most specific
// containing fence wins and switching fences emits Exit before Enter.
func TestGeofenceEngine_OverlappingFences(t *testing.T) {
	small, err := domain.NewCircularGeofence("dock", "cust-1", 40.0, -74.0, 200)
	require.NoError(t, err)
	large, err := domain.NewCircularGeofence("district", "cust-1", 40.0, -74.0, 20000)
	require.NoError(t, err)
	engine := newEngine(t, 15*time.Minute, large, small)

	ctx := context.Background()
	t0 := time.Now().UTC()

	// Inside both: the smaller fence wins.
	events, err := engine.Evaluate(ctx, "ship-1", geo.Point{Latitude: 40.0, Longitude: -74.0}, t0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	entered := events[0].Payload.(eventdomain.GeofenceEntered)
	assert.Equal(t, small.ID, entered.GeofenceID)

	// Move out of the small fence but stay inside the large one: one Exit,
	// one Enter, in that order.
	events, err = engine.Evaluate(ctx, "ship-1", geo.Point{Latitude: 40.05, Longitude: -74.0}, t0.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 2)
	exited := events[0].Payload.(eventdomain.GeofenceExited)
	assert.Equal(t, small.ID, exited.GeofenceID)
	entered = events[1].Payload.(eventdomain.GeofenceEntered)
	assert.Equal(t, large.ID, entered.GeofenceID)
}

// TestGeofenceEngine_IndependentShipments verifies containment state is
// tracked per shipment.
func TestGeofenceEngine_IndependentShipments(t *testing.T) {
	fence, err := domain.NewCircularGeofence("warehouse", "cust-1", 40.0, -74.0, 500)
	require.NoError(t, err)
	engine := newEngine(t, 15*time.Minute, fence)

	ctx := context.Background()
	t0 := time.Now().UTC()
	inside := geo.Point{Latitude: 40.0, Longitude: -74.0}

	events, err := engine.Evaluate(ctx, "ship-1", inside, t0)
	require.NoError(t, err)
	require.Len(t, events, 1)

	events, err = engine.Evaluate(ctx, "ship-2", inside, t0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.IsType(t, eventdomain.GeofenceEntered{}, events[0].Payload)
}
