package service

import (
	"context"
	"fmt"

	eventports "shipment-tracker/internal/features/events/ports"
	"shipment-tracker/internal/features/saga/domain"
	"shipment-tracker/internal/features/saga/ports"
	shipmentports "shipment-tracker/internal/features/shipment/ports"
)

// cancellationWorkflow names the shipment cancellation saga in the ledger.
const cancellationWorkflow = "shipment-cancellation"

// CancellationRequest triggers a cancellation run.
type CancellationRequest struct {
	ShipmentID string
	Reason     string
	// RequestedBy identifies the actor for the audit trail.
	RequestedBy string
	// RefundRequired includes the refund step; shipments cancelled before
	// payment skip it.
	RefundRequired bool
}

// CancellationSaga coordinates shipment cancellation across the shipment,
// location, notification and payment contexts. The shipment is marked
// cancel-pending first, so concurrent status changes are blocked while the
// run is in flight; a failed run compensates back to the prior status.
type CancellationSaga struct {
	interpreter *Interpreter
	shipments   shipmentports.Repository
	sessions    eventports.TrackingSessions
	notifier    eventports.Notifier
	payments    ports.PaymentGateway
	publisher   eventports.Publisher
}

// NewCancellationSaga wires the cancellation workflow.
func NewCancellationSaga(
	interpreter *Interpreter,
	shipments shipmentports.Repository,
	sessions eventports.TrackingSessions,
	notifier eventports.Notifier,
	payments ports.PaymentGateway,
	publisher eventports.Publisher,
) *CancellationSaga {
	return &CancellationSaga{
		interpreter: interpreter,
		shipments:   shipments,
		sessions:    sessions,
		notifier:    notifier,
		payments:    payments,
		publisher:   publisher,
	}
}

// Execute runs the cancellation workflow for one shipment. The returned
// ledger records how far the run got; the error is the original step
// failure when the run did not complete.
func (s *CancellationSaga) Execute(ctx context.Context, req CancellationRequest) (*domain.Record, error) {
	var refundID string

	steps := []Step{
		{
			Name: "update-status-cancelling",
			Run: func(ctx context.Context) error {
				shipment, err := s.shipments.FindByID(ctx, req.ShipmentID)
				if err != nil {
					return err
				}
				if err := shipment.BeginCancellation(); err != nil {
					return err
				}
				_, err = s.shipments.Save(ctx, shipment)
				return err
			},
			Compensate: func(ctx context.Context) error {
				shipment, err := s.shipments.FindByID(ctx, req.ShipmentID)
				if err != nil {
					return err
				}
				if err := shipment.RevertCancellation(); err != nil {
					return err
				}
				_, err = s.shipments.Save(ctx, shipment)
				return err
			},
		},
		{
			Name: "stop-tracking",
			Run: func(ctx context.Context) error {
				return s.sessions.Stop(ctx, req.ShipmentID)
			},
			Compensate: func(ctx context.Context) error {
				return s.sessions.Resume(ctx, req.ShipmentID)
			},
		},
		{
			Name: "notify-stakeholders",
			Run: func(ctx context.Context) error {
				return s.notifier.SendCancellationNotice(ctx, req.ShipmentID, req.Reason)
			},
			Compensate: func(ctx context.Context) error {
				return s.notifier.SendCancellationReversal(ctx, req.ShipmentID)
			},
		},
	}

	if req.RefundRequired {
		steps = append(steps, Step{
			Name: "process-refund",
			Run: func(ctx context.Context) error {
				id, err := s.payments.Refund(ctx, req.ShipmentID, req.Reason)
				if err != nil {
					return err
				}
				refundID = id
				return nil
			},
			Compensate: func(ctx context.Context) error {
				if refundID == "" {
					return nil
				}
				return s.payments.ReverseRefund(ctx, refundID)
			},
		})
	}

	steps = append(steps, Step{
		Name: "update-status-cancelled",
		Run: func(ctx context.Context) error {
			shipment, err := s.shipments.FindByID(ctx, req.ShipmentID)
			if err != nil {
				return err
			}
			ev, err := shipment.FinalizeCancellation(req.Reason, req.RequestedBy)
			if err != nil {
				return err
			}
			if _, err := s.shipments.Save(ctx, shipment); err != nil {
				return fmt.Errorf("failed to save cancelled shipment: %w", err)
			}
			s.publisher.Publish(ctx, ev)
			return nil
		},
	})

	return s.interpreter.Execute(ctx, cancellationWorkflow, req.ShipmentID, steps)
}
