package adapters

import (
	"context"

	"shipment-tracker/internal/core/logger"

	"go.uber.org/zap"
)

// LogNotifier implements ports.Notifier by writing structured log entries.
// Real delivery channels (email/SMS/push) are out of scope; this adapter
// keeps the choreographer and saga wired end to end.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// SendConfirmation logs a shipment confirmation notification.
func (n *LogNotifier) SendConfirmation(ctx context.Context, shipmentID string) error {
	logger.Get().Info("Notification: shipment confirmation",
		zap.String("shipment_id", shipmentID))
	return nil
}

// SendArrivalAlert logs a stop arrival alert.
func (n *LogNotifier) SendArrivalAlert(ctx context.Context, shipmentID, stopID string) error {
	logger.Get().Info("Notification: arrival alert",
		zap.String("shipment_id", shipmentID),
		zap.String("stop_id", stopID))
	return nil
}

// SendCancellationNotice logs a cancellation notice.
func (n *LogNotifier) SendCancellationNotice(ctx context.Context, shipmentID, reason string) error {
	logger.Get().Info("Notification: cancellation notice",
		zap.String("shipment_id", shipmentID),
		zap.String("reason", reason))
	return nil
}

// SendCancellationReversal logs a cancellation reversal notice.
func (n *LogNotifier) SendCancellationReversal(ctx context.Context, shipmentID string) error {
	logger.Get().Info("Notification: cancellation reversal",
		zap.String("shipment_id", shipmentID))
	return nil
}
