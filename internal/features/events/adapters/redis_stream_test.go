package adapters

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedisStreamTransport_Publish verifies payloads land on the topic's
// stream with the partition key alongside.
func TestRedisStreamTransport_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	transport := NewRedisStreamTransportFromClient(client)
	ctx := context.Background()

	require.NoError(t, transport.Publish(ctx, "shipment.created", "ship-1", []byte(`{"id":"ev-1"}`)))
	require.NoError(t, transport.Publish(ctx, "shipment.created", "ship-2", []byte(`{"id":"ev-2"}`)))

	entries, err := client.XRange(ctx, "shipment.created", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ship-1", entries[0].Values["key"])
	assert.Equal(t, `{"id":"ev-1"}`, entries[0].Values["payload"])
	assert.Equal(t, "ship-2", entries[1].Values["key"])
}

// TestRedisStreamTransport_InvalidURL verifies construction rejects a
// malformed Redis URL.
func TestRedisStreamTransport_InvalidURL(t *testing.T) {
	_, err := NewRedisStreamTransport("not-a-url")
	assert.Error(t, err)
}
