package adapters

import (
	"context"
	"testing"
	"time"

	"shipment-tracker/internal/features/events/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventStream(t *testing.T) (*RedisEventStream, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisEventStreamFromClient(client), client
}

// TestRedisEventStream_Lifecycle verifies a shipment's stream accumulates
// its opening entry, events and milestones in order.
func TestRedisEventStream_Lifecycle(t *testing.T) {
	stream, client := newEventStream(t)
	ctx := context.Background()

	require.NoError(t, stream.InitializeStream(ctx, "ship-1"))
	require.NoError(t, stream.Record(ctx,
		domain.New("ship-1", 0, domain.ShipmentCreated{ShipmentNumber: "SHP-001"})))
	require.NoError(t, stream.CreateMilestone(ctx, "ship-1", "STOP_ARRIVED", time.Now().UTC()))

	entries, err := client.XRange(ctx, "events:shipment:ship-1", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "STREAM_INITIALIZED", entries[0].Values["type"])
	assert.Equal(t, "EVENT", entries[1].Values["type"])
	assert.Equal(t, string(domain.KindShipmentCreated), entries[1].Values["kind"])
	assert.Contains(t, entries[1].Values["payload"], "SHP-001")
	assert.Equal(t, "MILESTONE", entries[2].Values["type"])
	assert.Equal(t, "STOP_ARRIVED", entries[2].Values["milestone"])
}

// TestRedisEventStream_StreamsAreIsolated verifies shipments never share a
// stream.
func TestRedisEventStream_StreamsAreIsolated(t *testing.T) {
	stream, client := newEventStream(t)
	ctx := context.Background()

	require.NoError(t, stream.InitializeStream(ctx, "ship-1"))
	require.NoError(t, stream.InitializeStream(ctx, "ship-2"))
	require.NoError(t, stream.Record(ctx,
		domain.New("ship-2", 0, domain.ShipmentDelivered{DeliveryTime: time.Now().UTC()})))

	first, err := client.XRange(ctx, "events:shipment:ship-1", "-", "+").Result()
	require.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := client.XRange(ctx, "events:shipment:ship-2", "-", "+").Result()
	require.NoError(t, err)
	assert.Len(t, second, 2)
}
