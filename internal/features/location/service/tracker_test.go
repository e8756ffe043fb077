package service

import (
	"context"
	"sync"
	"testing"
	"time"

	eventdomain "shipment-tracker/internal/features/events/domain"
	"shipment-tracker/internal/features/location/adapters"
	"shipment-tracker/internal/features/location/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingPublisher records every published event.
type capturingPublisher struct {
	mu     sync.Mutex
	events []eventdomain.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, event eventdomain.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturingPublisher) kinds() []eventdomain.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]eventdomain.EventKind, len(p.events))
	for i, ev := range p.events {
		kinds[i] = ev.Kind()
	}
	return kinds
}

// fakeStopLocator answers nearest-stop queries with a fixed stop.
type fakeStopLocator struct {
	stopID   string
	distance float64
}

func (f *fakeStopLocator) NearestStop(_ context.Context, _ string, _, _, _ float64) (string, float64, bool) {
	if f.stopID == "" {
		return "", 0, false
	}
	return f.stopID, f.distance, true
}

type trackerFixture struct {
	tracker   *Tracker
	locations *adapters.MemoryLocationRepository
	history   *adapters.MemoryHistoryRepository
	publisher *capturingPublisher
	stops     *fakeStopLocator
}

func newTrackerFixture(t *testing.T, historyCap int, fences ...*domain.Geofence) *trackerFixture {
	t.Helper()

	locations := adapters.NewMemoryLocationRepository()
	history := adapters.NewMemoryHistoryRepository()
	publisher := &capturingPublisher{}
	stops := &fakeStopLocator{}
	engine := NewGeofenceEngine(&fakeGeofenceRepository{fences: fences}, 15*time.Minute, testMetrics())

	tracker := NewTracker(locations, history, engine, publisher, stops, nil,
		testMetrics(), historyCap, 200)
	return &trackerFixture{
		tracker:   tracker,
		locations: locations,
		history:   history,
		publisher: publisher,
		stops:     stops,
	}
}

func updateAt(shipmentID string, lat, lon float64, ts time.Time) UpdateRequest {
	return UpdateRequest{
		ShipmentID: shipmentID,
		DeviceID:   "device-1",
		Latitude:   lat,
		Longitude:  lon,
		Timestamp:  ts,
	}
}

// TestTracker_Update verifies the ingest pipeline: validation, derivation,
// persistence, history bookkeeping and event publication.
func TestTracker_Update(t *testing.T) {
	fx := newTrackerFixture(t, 1000)
	ctx := context.Background()
	ts := time.Now().UTC()

	speed := 15.0
	accuracy := 5.0
	req := updateAt("ship-1", 40.0, -74.0, ts)
	req.Speed = &speed
	req.Accuracy = &accuracy

	loc, err := fx.tracker.Update(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.QualityHigh, loc.Quality)
	assert.True(t, loc.IsMoving)

	latest, err := fx.locations.FindLatestByShipment(ctx, "ship-1")
	require.NoError(t, err)
	assert.Equal(t, loc.ID, latest.ID)

	bucket, err := fx.history.FindBucket(ctx, "ship-1", ts.Format(domain.DateFormat))
	require.NoError(t, err)
	assert.Len(t, bucket.Points, 1)

	assert.Equal(t, []eventdomain.EventKind{eventdomain.KindLocationUpdated}, fx.publisher.kinds())
}

// TestTracker_Update_Invalid verifies malformed reports are rejected.
func TestTracker_Update_Invalid(t *testing.T) {
	fx := newTrackerFixture(t, 1000)

	_, err := fx.tracker.Update(context.Background(), updateAt("", 40.0, -74.0, time.Now().UTC()))
	assert.ErrorIs(t, err, domain.ErrInvalidLocationData)

	_, err = fx.tracker.Update(context.Background(), updateAt("ship-1", 95.0, -74.0, time.Now().UTC()))
	assert.ErrorIs(t, err, domain.ErrInvalidLocationData)
}

// TestTracker_Update_StaleRejected verifies an out-of-order report is
// dropped without touching state.
func TestTracker_Update_StaleRejected(t *testing.T) {
	fx := newTrackerFixture(t, 1000)
	ctx := context.Background()
	ts := time.Now().UTC()

	first, err := fx.tracker.Update(ctx, updateAt("ship-1", 40.0, -74.0, ts))
	require.NoError(t, err)

	_, err = fx.tracker.Update(ctx, updateAt("ship-1", 41.0, -74.0, ts.Add(-time.Minute)))
	assert.ErrorIs(t, err, domain.ErrStaleUpdate)

	latest, err := fx.locations.FindLatestByShipment(ctx, "ship-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)

	// A report with the same timestamp is not stale, and becomes the new
	// latest position.
	accepted, err := fx.tracker.Update(ctx, updateAt("ship-1", 41.0, -74.0, ts))
	require.NoError(t, err)

	latest, err = fx.locations.FindLatestByShipment(ctx, "ship-1")
	require.NoError(t, err)
	assert.Equal(t, accepted.ID, latest.ID)
}

// TestTracker_Update_GeofenceCorrelation verifies geofence events are
// published and correlated back onto the stored report.
func TestTracker_Update_GeofenceCorrelation(t *testing.T) {
	fence, err := domain.NewCircularGeofence("warehouse", "cust-1", 40.0, -74.0, 500)
	require.NoError(t, err)
	fx := newTrackerFixture(t, 1000, fence)
	ctx := context.Background()
	ts := time.Now().UTC()

	loc, err := fx.tracker.Update(ctx, updateAt("ship-1", 40.0, -74.0, ts))
	require.NoError(t, err)
	assert.Equal(t, fence.ID, loc.GeofenceID)
	assert.Equal(t, domain.GeofenceEnter, loc.GeofenceEvent)
	assert.Equal(t, []eventdomain.EventKind{
		eventdomain.KindLocationUpdated,
		eventdomain.KindGeofenceEntered,
	}, fx.publisher.kinds())

	loc, err = fx.tracker.Update(ctx, updateAt("ship-1", 40.01, -74.0, ts.Add(5*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, domain.GeofenceExit, loc.GeofenceEvent)
}

// TestTracker_Update_StopCorrelation verifies nearest-stop enrichment.
func TestTracker_Update_StopCorrelation(t *testing.T) {
	fx := newTrackerFixture(t, 1000)
	fx.stops.stopID = "stop-1"
	fx.stops.distance = 42.0

	loc, err := fx.tracker.Update(context.Background(), updateAt("ship-1", 40.0, -74.0, time.Now().UTC()))
	require.NoError(t, err)
	assert.Equal(t, "stop-1", loc.StopID)
	require.NotNil(t, loc.DistanceFromStop)
	assert.Equal(t, 42.0, *loc.DistanceFromStop)
}

// TestTracker_Update_HistoryCompression verifies the daily bucket is
// compressed once it exceeds the cap.
func TestTracker_Update_HistoryCompression(t *testing.T) {
	fx := newTrackerFixture(t, 6)
	ctx := context.Background()
	ts := time.Now().UTC().Truncate(24 * time.Hour).Add(time.Hour)

	for i := 0; i < 7; i++ {
		_, err := fx.tracker.Update(ctx, updateAt("ship-1", 40.0+float64(i)*0.001, -74.0, ts.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	bucket, err := fx.history.FindBucket(ctx, "ship-1", ts.Format(domain.DateFormat))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(bucket.Points), 4)
	assert.Equal(t, 7, bucket.Statistics.TotalPoints)
	// The most recent point survives compression.
	assert.Equal(t, ts.Add(6*time.Minute), bucket.Points[len(bucket.Points)-1].Timestamp)
}

// TestTracker_Range verifies window queries and their validation.
func TestTracker_Range(t *testing.T) {
	fx := newTrackerFixture(t, 1000)
	ctx := context.Background()
	ts := time.Now().UTC()

	for i := 0; i < 3; i++ {
		_, err := fx.tracker.Update(ctx, updateAt("ship-1", 40.0, -74.0, ts.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	locations, err := fx.tracker.Range(ctx, "ship-1", ts, ts.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, locations, 2)

	_, err = fx.tracker.Range(ctx, "ship-1", ts, ts.Add(-time.Hour))
	assert.ErrorIs(t, err, domain.ErrInvalidLocationData)
}

// TestTracker_DeleteShipmentData verifies reports and history are removed
// together.
func TestTracker_DeleteShipmentData(t *testing.T) {
	fx := newTrackerFixture(t, 1000)
	ctx := context.Background()
	ts := time.Now().UTC()

	_, err := fx.tracker.Update(ctx, updateAt("ship-1", 40.0, -74.0, ts))
	require.NoError(t, err)

	require.NoError(t, fx.tracker.DeleteShipmentData(ctx, "ship-1"))

	_, err = fx.tracker.Latest(ctx, "ship-1")
	assert.Error(t, err)
	_, err = fx.history.FindBucket(ctx, "ship-1", ts.Format(domain.DateFormat))
	assert.Error(t, err)
}

// TestTracker_EnrichWithAddress verifies on-demand reverse geocoding.
func TestTracker_EnrichWithAddress(t *testing.T) {
	locations := adapters.NewMemoryLocationRepository()
	geocoder := adapters.NewStaticGeocoder()
	geocoder.AddRegion(39.0, 41.0, -75.0, -73.0, domain.Address{City: "New York", State: "NY", Country: "US"})

	engine := NewGeofenceEngine(&fakeGeofenceRepository{}, 15*time.Minute, testMetrics())
	tracker := NewTracker(locations, adapters.NewMemoryHistoryRepository(), engine,
		&capturingPublisher{}, nil, geocoder, testMetrics(), 1000, 200)

	ctx := context.Background()
	loc, err := tracker.Update(ctx, updateAt("ship-1", 40.0, -74.0, time.Now().UTC()))
	require.NoError(t, err)
	assert.Nil(t, loc.Address)

	enriched, err := tracker.EnrichWithAddress(ctx, loc.ID)
	require.NoError(t, err)
	require.NotNil(t, enriched.Address)
	assert.Equal(t, "New York", enriched.Address.City)
}
