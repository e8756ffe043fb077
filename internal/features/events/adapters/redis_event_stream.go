package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shipment-tracker/internal/features/events/domain"

	"github.com/redis/go-redis/v9"
)

// shipmentStreamKey is the per-shipment event stream key prefix.
const shipmentStreamKey = "events:shipment:"

// RedisEventStream implements ports.EventStream on Redis Streams: one
// stream per shipment holding its event history and milestones.
type RedisEventStream struct {
	client *redis.Client
}

// NewRedisEventStream creates an event stream store from a Redis URL.
func NewRedisEventStream(redisURL string) (*RedisEventStream, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return NewRedisEventStreamFromClient(redis.NewClient(opts)), nil
}

// NewRedisEventStreamFromClient wraps an existing client.
func NewRedisEventStreamFromClient(client *redis.Client) *RedisEventStream {
	return &RedisEventStream{client: client}
}

// InitializeStream writes the opening entry of a shipment's stream.
// Re-initializing an existing stream is a no-op entry, keeping the
// operation idempotent for duplicate ShipmentCreated deliveries.
func (s *RedisEventStream) InitializeStream(ctx context.Context, shipmentID string) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: shipmentStreamKey + shipmentID,
		Values: map[string]interface{}{
			"type": "STREAM_INITIALIZED",
			"at":   time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to initialize stream for shipment %s: %w", shipmentID, err)
	}
	return nil
}

// Record appends a domain event to the shipment's stream.
func (s *RedisEventStream) Record(ctx context.Context, event domain.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: shipmentStreamKey + event.AggregateID,
		Values: map[string]interface{}{
			"type":     "EVENT",
			"kind":     string(event.Kind()),
			"event_id": event.ID,
			"payload":  payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to record event %s: %w", event.ID, err)
	}
	return nil
}

// CreateMilestone appends a named milestone to the shipment's stream.
func (s *RedisEventStream) CreateMilestone(ctx context.Context, shipmentID, name string, at time.Time) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: shipmentStreamKey + shipmentID,
		Values: map[string]interface{}{
			"type":      "MILESTONE",
			"milestone": name,
			"at":        at.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to create milestone %s for shipment %s: %w", name, shipmentID, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisEventStream) Close() error {
	return s.client.Close()
}
