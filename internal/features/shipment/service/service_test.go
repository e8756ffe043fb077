package service

import (
	"context"
	"testing"
	"time"

	"shipment-tracker/internal/core/metrics"
	eventdomain "shipment-tracker/internal/features/events/domain"
	"shipment-tracker/internal/features/shipment/adapters"
	"shipment-tracker/internal/features/shipment/domain"
	"shipment-tracker/internal/features/shipment/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingPublisher records every published event.
type capturingPublisher struct {
	events []eventdomain.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, event eventdomain.DomainEvent) {
	p.events = append(p.events, event)
}

func (p *capturingPublisher) kinds() []eventdomain.EventKind {
	kinds := make([]eventdomain.EventKind, len(p.events))
	for i, ev := range p.events {
		kinds[i] = ev.Kind()
	}
	return kinds
}

type serviceFixture struct {
	svc       *Service
	repo      *adapters.MemoryRepository
	publisher *capturingPublisher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	repo := adapters.NewMemoryRepository()
	publisher := &capturingPublisher{}
	svc := NewService(repo, publisher, metrics.NewWith("test", prometheus.NewRegistry()), 200)
	return &serviceFixture{svc: svc, repo: repo, publisher: publisher}
}

func createRequest(number string) CreateRequest {
	pickup := time.Now().UTC().Add(24 * time.Hour)
	return CreateRequest{
		ShipmentNumber:  number,
		CustomerID:      "cust-1",
		CarrierID:       "carrier-1",
		Mode:            domain.ModeTruckFTL,
		Origin:          domain.Address{City: "New York", State: "NY", Country: "US", Latitude: 40.7128, Longitude: -74.0060},
		Destination:     domain.Address{City: "Chicago", State: "IL", Country: "US", Latitude: 41.8781, Longitude: -87.6298},
		PlannedPickup:   pickup,
		PlannedDelivery: pickup.Add(48 * time.Hour),
		Stops: []domain.Stop{{
			SequenceNumber: 1,
			Type:           domain.StopTypeDelivery,
			Location:       domain.Address{City: "Chicago", State: "IL", Country: "US", Latitude: 41.8781, Longitude: -87.6298},
		}},
	}
}

// TestService_Create verifies creation persists and publishes creation and
// stop events.
func TestService_Create(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	shipment, err := fx.svc.Create(ctx, createRequest("SHP-001"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, shipment.Status)
	assert.Equal(t, int64(1), shipment.Version)
	assert.Equal(t, []eventdomain.EventKind{
		eventdomain.KindShipmentCreated,
		eventdomain.KindStopAdded,
	}, fx.publisher.kinds())

	_, err = fx.svc.Create(ctx, createRequest("SHP-001"))
	assert.ErrorIs(t, err, ports.ErrDuplicateShipmentNumber)
}

// TestService_LifecycleTransitions verifies the lifecycle operations
// persist state across calls.
func TestService_LifecycleTransitions(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	shipment, err := fx.svc.Create(ctx, createRequest("SHP-001"))
	require.NoError(t, err)

	shipment, err = fx.svc.Confirm(ctx, shipment.ID, "dispatcher")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, shipment.Status)

	shipment, err = fx.svc.Dispatch(ctx, shipment.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDispatched, shipment.Status)

	shipment, err = fx.svc.StartTransit(ctx, shipment.ID, "driver")
	require.NoError(t, err)

	shipment, err = fx.svc.MarkException(ctx, shipment.ID, "WEATHER_DELAY", "storm")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusException, shipment.Status)

	shipment, err = fx.svc.ResumeTransit(ctx, shipment.ID, "dispatcher")
	require.NoError(t, err)

	shipment, err = fx.svc.Deliver(ctx, shipment.ID, time.Now().UTC().Add(time.Hour), "warehouse")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, shipment.Status)

	// A rejected mutation does not publish or advance the version.
	published := len(fx.publisher.events)
	_, err = fx.svc.Confirm(ctx, shipment.ID, "dispatcher")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Len(t, fx.publisher.events, published)
}

// TestService_RefreshETA verifies ETA recomputation for in-transit
// shipments and the no-op for others.
func TestService_RefreshETA(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	shipment, err := fx.svc.Create(ctx, createRequest("SHP-001"))
	require.NoError(t, err)

	// Not moving yet: no update.
	require.NoError(t, fx.svc.RefreshETA(ctx, shipment.ID, 40.0, -75.0, time.Now().UTC()))
	reloaded, err := fx.svc.Get(ctx, shipment.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.EstimatedDeliveryTime)

	_, err = fx.svc.Confirm(ctx, shipment.ID, "dispatcher")
	require.NoError(t, err)
	_, err = fx.svc.Dispatch(ctx, shipment.ID, time.Now().UTC())
	require.NoError(t, err)

	at := time.Now().UTC()
	require.NoError(t, fx.svc.RefreshETA(ctx, shipment.ID, 40.0, -80.0, at))
	reloaded, err = fx.svc.Get(ctx, shipment.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.EstimatedDeliveryTime)
	assert.True(t, reloaded.EstimatedDeliveryTime.After(at))
	assert.Contains(t, fx.publisher.kinds(), eventdomain.KindShipmentETAUpdated)
}

// TestService_HandleGeofenceEntry verifies geofence entries at a stop's
// location mark the stop arrived.
func TestService_HandleGeofenceEntry(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	shipment, err := fx.svc.Create(ctx, createRequest("SHP-001"))
	require.NoError(t, err)
	stop := shipment.Stops[0]

	// Entry at the stop's coordinates.
	stopID, err := fx.svc.HandleGeofenceEntry(ctx, shipment.ID, "fence-1",
		stop.Location.Latitude, stop.Location.Longitude, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, stop.ID, stopID)

	reloaded, err := fx.svc.Get(ctx, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StopStatusArrived, reloaded.Stops[0].Status)
	assert.Contains(t, fx.publisher.kinds(), eventdomain.KindStopArrived)

	// Entry far from any stop is not correlated.
	stopID, err = fx.svc.HandleGeofenceEntry(ctx, shipment.ID, "fence-2", 10.0, 10.0, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, stopID)
}

// TestService_NearestStop verifies the stop locator contract.
func TestService_NearestStop(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	shipment, err := fx.svc.Create(ctx, createRequest("SHP-001"))
	require.NoError(t, err)
	stop := shipment.Stops[0]

	stopID, distance, ok := fx.svc.NearestStop(ctx, shipment.ID,
		stop.Location.Latitude, stop.Location.Longitude, 200)
	require.True(t, ok)
	assert.Equal(t, stop.ID, stopID)
	assert.Less(t, distance, 1.0)

	_, _, ok = fx.svc.NearestStop(ctx, shipment.ID, 10.0, 10.0, 200)
	assert.False(t, ok)

	_, _, ok = fx.svc.NearestStop(ctx, "missing", 10.0, 10.0, 200)
	assert.False(t, ok)
}
