package adapters

import (
	"context"
	"sync"

	"shipment-tracker/internal/core/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogPaymentGateway is the reference payment adapter: it records refunds
// in memory and logs each call. Production deployments swap in a real
// payment provider behind the same port.
type LogPaymentGateway struct {
	mu      sync.Mutex
	refunds map[string]string
}

// NewLogPaymentGateway creates the adapter.
func NewLogPaymentGateway() *LogPaymentGateway {
	return &LogPaymentGateway{refunds: make(map[string]string)}
}

// Refund records a refund and returns its identifier.
func (g *LogPaymentGateway) Refund(_ context.Context, shipmentID, reason string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	refundID := uuid.NewString()
	g.refunds[refundID] = shipmentID

	logger.Get().Info("Refund issued",
		zap.String("refund_id", refundID),
		zap.String("shipment_id", shipmentID),
		zap.String("reason", reason),
	)
	return refundID, nil
}

// ReverseRefund removes a recorded refund.
func (g *LogPaymentGateway) ReverseRefund(_ context.Context, refundID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	shipmentID := g.refunds[refundID]
	delete(g.refunds, refundID)

	logger.Get().Info("Refund reversed",
		zap.String("refund_id", refundID),
		zap.String("shipment_id", shipmentID),
	)
	return nil
}
