package adapters

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStreamTransport implements ports.StreamTransport on Redis Streams.
// Each topic is one stream; the partition key rides along as a field so
// consumers can shard without re-reading the payload.
type RedisStreamTransport struct {
	client *redis.Client
}

// NewRedisStreamTransport creates a transport from a Redis URL.
func NewRedisStreamTransport(redisURL string) (*RedisStreamTransport, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return NewRedisStreamTransportFromClient(redis.NewClient(opts)), nil
}

// NewRedisStreamTransportFromClient wraps an existing client, sharing its
// connection pool with the cache adapter.
func NewRedisStreamTransportFromClient(client *redis.Client) *RedisStreamTransport {
	return &RedisStreamTransport{client: client}
}

// Publish appends the payload to the topic's stream.
func (t *RedisStreamTransport) Publish(ctx context.Context, topic, partitionKey string, payload []byte) error {
	err := t.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{
			"key":     partitionKey,
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", topic, err)
	}
	return nil
}

// Close closes the Redis connection.
func (t *RedisStreamTransport) Close() error {
	return t.client.Close()
}
