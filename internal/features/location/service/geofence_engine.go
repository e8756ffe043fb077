package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shipment-tracker/internal/core/geo"
	"shipment-tracker/internal/core/logger"
	"shipment-tracker/internal/core/metrics"
	eventdomain "shipment-tracker/internal/features/events/domain"
	"shipment-tracker/internal/features/location/domain"
	"shipment-tracker/internal/features/location/ports"

	"go.uber.org/zap"
)

// containment tracks a shipment's current geofence occupancy between
// evaluations.
type containment struct {
	fenceID      string
	fenceName    string
	enteredAt    time.Time
	dwellEmitted bool
}

// GeofenceEngine evaluates position reports against the active geofence
// set and produces Enter/Exit/Dwell events.
//
// When several active fences contain the same point, evaluation order is
// deterministic: circles by ascending radius, then polygons by ascending
// vertex count, then id. The first containing fence wins.
type GeofenceEngine struct {
	fences       ports.GeofenceRepository
	dwellDefault time.Duration
	metrics      *metrics.Metrics

	mu    sync.Mutex
	state map[string]*containment
}

// NewGeofenceEngine creates an engine with the given default dwell
// threshold; a fence's own NotificationPolicy.DwellTimeMinutes overrides it.
func NewGeofenceEngine(fences ports.GeofenceRepository, dwellDefault time.Duration, m *metrics.Metrics) *GeofenceEngine {
	return &GeofenceEngine{
		fences:       fences,
		dwellDefault: dwellDefault,
		metrics:      m,
		state:        make(map[string]*containment),
	}
}

// Evaluate classifies the shipment's new position against the active
// geofence set and returns the containment-change events, in the order
// they occurred (an Exit always precedes the Enter of a different fence).
// Dwell is emitted at most once per continuous containment period.
func (e *GeofenceEngine) Evaluate(ctx context.Context, shipmentID string, point geo.Point, at time.Time) ([]eventdomain.DomainEvent, error) {
	active, err := e.fences.FindAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active geofences: %w", err)
	}

	sortFences(active)

	var current *domain.Geofence
	for _, fence := range active {
		if fence.Contains(point) {
			current = fence
			break
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prior := e.state[shipmentID]
	var out []eventdomain.DomainEvent

	switch {
	case prior == nil && current == nil:
		// Outside everything, as before.

	case prior == nil && current != nil:
		out = append(out, e.enter(shipmentID, current, point, at))

	case prior != nil && current == nil:
		out = append(out, e.exit(shipmentID, prior, at))
		delete(e.state, shipmentID)

	case prior.fenceID != current.ID:
		out = append(out, e.exit(shipmentID, prior, at))
		out = append(out, e.enter(shipmentID, current, point, at))

	default:
		// Still inside the same fence; check the dwell threshold.
		if ev, ok := e.dwell(shipmentID, prior, current, at); ok {
			out = append(out, ev)
		}
	}

	return out, nil
}

// Occupancy returns the geofence id the shipment is currently inside, or "".
func (e *GeofenceEngine) Occupancy(shipmentID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.state[shipmentID]; ok {
		return c.fenceID
	}
	return ""
}

func (e *GeofenceEngine) enter(shipmentID string, fence *domain.Geofence, point geo.Point, at time.Time) eventdomain.DomainEvent {
	e.state[shipmentID] = &containment{
		fenceID:   fence.ID,
		fenceName: fence.Name,
		enteredAt: at,
	}
	e.metrics.GeofenceEvents.WithLabelValues("ENTER").Inc()
	logger.Get().Info("Geofence entered",
		zap.String("shipment_id", shipmentID),
		zap.String("geofence", fence.Name),
	)

	return eventdomain.New(shipmentID, 0, eventdomain.GeofenceEntered{
		GeofenceID:   fence.ID,
		GeofenceName: fence.Name,
		Latitude:     point.Latitude,
		Longitude:    point.Longitude,
		EnteredAt:    at,
	})
}

func (e *GeofenceEngine) exit(shipmentID string, prior *containment, at time.Time) eventdomain.DomainEvent {
	dwell := at.Sub(prior.enteredAt)
	e.metrics.GeofenceEvents.WithLabelValues("EXIT").Inc()
	logger.Get().Info("Geofence exited",
		zap.String("shipment_id", shipmentID),
		zap.String("geofence", prior.fenceName),
		zap.Duration("dwell_time", dwell),
	)

	return eventdomain.New(shipmentID, 0, eventdomain.GeofenceExited{
		GeofenceID:   prior.fenceID,
		GeofenceName: prior.fenceName,
		ExitedAt:     at,
		DwellTime:    dwell,
	})
}

func (e *GeofenceEngine) dwell(shipmentID string, prior *containment, fence *domain.Geofence, at time.Time) (eventdomain.DomainEvent, bool) {
	if prior.dwellEmitted {
		return eventdomain.DomainEvent{}, false
	}

	threshold := e.dwellDefault
	if fence.Notification.DwellTimeMinutes > 0 {
		threshold = time.Duration(fence.Notification.DwellTimeMinutes) * time.Minute
	}

	dwell := at.Sub(prior.enteredAt)
	if dwell < threshold {
		return eventdomain.DomainEvent{}, false
	}

	prior.dwellEmitted = true
	e.metrics.GeofenceEvents.WithLabelValues("DWELL").Inc()
	logger.Get().Info("Geofence dwell threshold crossed",
		zap.String("shipment_id", shipmentID),
		zap.String("geofence", prior.fenceName),
		zap.Duration("dwell_time", dwell),
	)

	return eventdomain.New(shipmentID, 0, eventdomain.GeofenceDwelled{
		GeofenceID:   prior.fenceID,
		GeofenceName: prior.fenceName,
		DwellTime:    dwell,
	}), true
}

// sortFences orders fences for deterministic evaluation.
func sortFences(fences []*domain.Geofence) {
	sort.Slice(fences, func(i, j int) bool {
		if fences[i].Specificity() != fences[j].Specificity() {
			return fences[i].Specificity() < fences[j].Specificity()
		}
		return fences[i].ID < fences[j].ID
	})
}
