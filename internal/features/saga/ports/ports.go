package ports

import (
	"context"
	"errors"

	"shipment-tracker/internal/features/saga/domain"
)

// ErrNotFound is returned when no ledger record exists.
var ErrNotFound = errors.New("saga record not found")

// SagaLog persists saga ledgers. The ledger is written after every
// completed step, so a crashed run's progress is always visible.
type SagaLog interface {
	// Save persists the record.
	Save(ctx context.Context, record *domain.Record) error

	// FindByID returns the record or ErrNotFound.
	FindByID(ctx context.Context, id string) (*domain.Record, error)

	// FindByAggregate returns all runs for an aggregate, newest first.
	FindByAggregate(ctx context.Context, aggregateID string) ([]*domain.Record, error)
}

// PaymentGateway processes refunds for cancelled shipments.
type PaymentGateway interface {
	// Refund issues a refund and returns its identifier.
	Refund(ctx context.Context, shipmentID, reason string) (string, error)

	// ReverseRefund undoes a previously issued refund.
	ReverseRefund(ctx context.Context, refundID string) error
}
