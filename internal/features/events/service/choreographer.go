package service

import (
	"context"
	"encoding/json"

	"shipment-tracker/internal/core/logger"
	"shipment-tracker/internal/core/metrics"
	"shipment-tracker/internal/features/events/domain"
	"shipment-tracker/internal/features/events/ports"

	"go.uber.org/zap"
)

// Choreographer routes domain events between the shipment, location and
// notification/event-stream contexts according to a fixed subscription
// table. It is the sole writer of cross-context side effects.
//
// Delivery to each subscriber is independent: one subscriber's failure is
// logged and does not block the others, and nothing is retried here.
// Consumers are expected to be idempotent against duplicate delivery.
type Choreographer struct {
	transport   ports.StreamTransport
	sessions    ports.TrackingSessions
	notifier    ports.Notifier
	stream      ports.EventStream
	shipmentCtx ports.ShipmentContext
	metrics     *metrics.Metrics
}

// NewChoreographer creates a Choreographer over the given collaborators.
func NewChoreographer(
	transport ports.StreamTransport,
	sessions ports.TrackingSessions,
	notifier ports.Notifier,
	stream ports.EventStream,
	shipmentCtx ports.ShipmentContext,
	m *metrics.Metrics,
) *Choreographer {
	return &Choreographer{
		transport:   transport,
		sessions:    sessions,
		notifier:    notifier,
		stream:      stream,
		shipmentCtx: shipmentCtx,
		metrics:     m,
	}
}

// Publish delivers the event to the stream transport and to every
// subscriber registered for its kind.
func (c *Choreographer) Publish(ctx context.Context, event domain.DomainEvent) {
	c.forwardToTransport(ctx, event)
	c.record(ctx, event)

	switch p := event.Payload.(type) {
	case domain.ShipmentCreated:
		c.deliver(event, "tracking-sessions", func() error {
			return c.sessions.Initialize(ctx, event.AggregateID)
		})
		c.deliver(event, "event-stream", func() error {
			return c.stream.InitializeStream(ctx, event.AggregateID)
		})
		c.deliver(event, "notification", func() error {
			return c.notifier.SendConfirmation(ctx, event.AggregateID)
		})

	case domain.LocationUpdated:
		c.deliver(event, "shipment-eta", func() error {
			return c.shipmentCtx.RefreshETA(ctx, event.AggregateID, p.Latitude, p.Longitude, p.Timestamp)
		})

	case domain.GeofenceEntered:
		stopID, err := c.shipmentCtx.HandleGeofenceEntry(
			ctx, event.AggregateID, p.GeofenceID, p.Latitude, p.Longitude, p.EnteredAt)
		if err != nil {
			c.logSubscriberFailure(event, "shipment-stop-arrival", err)
		}
		if stopID == "" {
			// Entry was not at a planned stop; no milestone or alert.
			return
		}
		c.deliver(event, "event-milestone", func() error {
			return c.stream.CreateMilestone(ctx, event.AggregateID, "STOP_ARRIVED", p.EnteredAt)
		})
		c.deliver(event, "notification", func() error {
			return c.notifier.SendArrivalAlert(ctx, event.AggregateID, stopID)
		})
	}
}

// forwardToTransport appends the event to its topic on the at-least-once
// stream transport. State is already durable by the time this runs, so a
// failure here is logged, counted and dropped rather than rolled back.
func (c *Choreographer) forwardToTransport(ctx context.Context, event domain.DomainEvent) {
	topic := domain.Topic(event)

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Get().Error("Failed to encode domain event",
			zap.String("event_id", event.ID),
			zap.String("kind", string(event.Kind())),
			zap.Error(err),
		)
		c.metrics.PublishFailures.WithLabelValues(topic).Inc()
		return
	}

	if err := c.transport.Publish(ctx, topic, event.AggregateID, payload); err != nil {
		logger.Get().Error("Failed to publish domain event",
			zap.String("event_id", event.ID),
			zap.String("topic", topic),
			zap.Error(err),
		)
		c.metrics.PublishFailures.WithLabelValues(topic).Inc()
		return
	}

	c.metrics.EventsPublished.WithLabelValues(topic).Inc()
	logger.Get().Debug("Published domain event",
		zap.String("topic", topic),
		zap.String("event", domain.Describe(event)),
	)
}

func (c *Choreographer) record(ctx context.Context, event domain.DomainEvent) {
	if err := c.stream.Record(ctx, event); err != nil {
		c.logSubscriberFailure(event, "event-record", err)
	}
}

func (c *Choreographer) deliver(event domain.DomainEvent, subscriber string, fn func() error) {
	if err := fn(); err != nil {
		c.logSubscriberFailure(event, subscriber, err)
	}
}

func (c *Choreographer) logSubscriberFailure(event domain.DomainEvent, subscriber string, err error) {
	logger.Get().Error("Subscriber failed to handle event",
		zap.String("subscriber", subscriber),
		zap.String("event_id", event.ID),
		zap.String("kind", string(event.Kind())),
		zap.Error(err),
	)
}
