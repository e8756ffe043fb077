package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStop_MarkArrived verifies arrival is only accepted from PENDING or
// APPROACHING.
func TestStop_MarkArrived(t *testing.T) {
	at := time.Now().UTC()

	t.Run("from pending", func(t *testing.T) {
		stop := Stop{SequenceNumber: 1, Status: StopStatusPending}
		require.NoError(t, stop.MarkArrived(at))
		assert.Equal(t, StopStatusArrived, stop.Status)
		require.NotNil(t, stop.ActualArrival)
		assert.Equal(t, at, *stop.ActualArrival)
	})

	t.Run("from approaching", func(t *testing.T) {
		stop := Stop{SequenceNumber: 1, Status: StopStatusApproaching}
		require.NoError(t, stop.MarkArrived(at))
		assert.Equal(t, StopStatusArrived, stop.Status)
	})

	t.Run("from completed rejected", func(t *testing.T) {
		stop := Stop{SequenceNumber: 1, Status: StopStatusCompleted}
		assert.ErrorIs(t, stop.MarkArrived(at), ErrInvalidState)
	})
}

// TestStop_MarkDeparted verifies the departure progression.
func TestStop_MarkDeparted(t *testing.T) {
	at := time.Now().UTC()

	stop := Stop{SequenceNumber: 1, Status: StopStatusPending}
	assert.ErrorIs(t, stop.MarkDeparted(at), ErrInvalidState)

	require.NoError(t, stop.MarkArrived(at))
	require.NoError(t, stop.MarkDeparted(at.Add(time.Hour)))
	assert.Equal(t, StopStatusCompleted, stop.Status)
	require.NotNil(t, stop.ActualDeparture)
}
