package ports

import (
	"context"
	"time"

	"shipment-tracker/internal/features/events/domain"
)

// Publisher hands a domain event to the choreographer for cross-context
// routing. Publication is fire-and-forget relative to the triggering
// mutation: the caller persists state first, then publishes.
type Publisher interface {
	Publish(ctx context.Context, event domain.DomainEvent)
}

// StreamTransport is the at-least-once event transport contract. Consumers
// must be idempotent with respect to duplicate delivery.
type StreamTransport interface {
	// Publish appends the payload to the topic, partitioned by key.
	Publish(ctx context.Context, topic, partitionKey string, payload []byte) error
}

// TrackingSessions manages the location context's per-shipment tracking
// session lifecycle.
type TrackingSessions interface {
	Initialize(ctx context.Context, shipmentID string) error
	Stop(ctx context.Context, shipmentID string) error
	Resume(ctx context.Context, shipmentID string) error
}

// Notifier dispatches stakeholder notifications. All calls are
// fire-and-forget from the choreographer's perspective; failures are logged
// and never retried here.
type Notifier interface {
	SendConfirmation(ctx context.Context, shipmentID string) error
	SendArrivalAlert(ctx context.Context, shipmentID, stopID string) error
	SendCancellationNotice(ctx context.Context, shipmentID, reason string) error
	SendCancellationReversal(ctx context.Context, shipmentID string) error
}

// EventStream is the event context's own read model: per-shipment streams
// and milestones.
type EventStream interface {
	InitializeStream(ctx context.Context, shipmentID string) error
	Record(ctx context.Context, event domain.DomainEvent) error
	CreateMilestone(ctx context.Context, shipmentID, name string, at time.Time) error
}

// ShipmentContext is the slice of the shipment context the choreographer
// drives: ETA refresh on movement and stop arrival on geofence entry.
type ShipmentContext interface {
	// RefreshETA recomputes the estimated delivery from the latest position.
	RefreshETA(ctx context.Context, shipmentID string, latitude, longitude float64, at time.Time) error
	// HandleGeofenceEntry correlates a geofence entry with a planned stop
	// and, when one matches, marks it arrived. Returns the matched stop id,
	// or "" when the entry was not at a stop's location.
	HandleGeofenceEntry(ctx context.Context, shipmentID, geofenceID string, latitude, longitude float64, at time.Time) (string, error)
}
