package service

import (
	"context"
	"fmt"
	"time"

	"shipment-tracker/internal/core/logger"
	"shipment-tracker/internal/core/metrics"
	"shipment-tracker/internal/features/saga/domain"
	"shipment-tracker/internal/features/saga/ports"

	"go.uber.org/zap"
)

// Step is one unit of a saga workflow. Run performs the forward action;
// Compensate undoes it if a later step fails. Compensate may be nil for
// steps with nothing to undo.
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Interpreter executes saga workflows: steps run in order, each under its
// own timeout, with the ledger persisted after every completed step. On a
// step failure the completed steps are compensated in strict reverse
// order, best-effort, and the run finishes COMPENSATED or, when a
// compensation itself fails, FAILED. The original step failure is always
// the returned error.
type Interpreter struct {
	log         ports.SagaLog
	metrics     *metrics.Metrics
	stepTimeout time.Duration
}

// NewInterpreter creates an Interpreter with a per-step timeout.
func NewInterpreter(log ports.SagaLog, m *metrics.Metrics, stepTimeout time.Duration) *Interpreter {
	return &Interpreter{log: log, metrics: m, stepTimeout: stepTimeout}
}

// Execute runs the workflow to completion or compensation. The returned
// record is the final ledger; the error is the original step failure, nil
// on success.
func (i *Interpreter) Execute(ctx context.Context, workflow, aggregateID string, steps []Step) (*domain.Record, error) {
	record := domain.NewRecord(workflow, aggregateID)
	i.persist(ctx, record)

	for idx, step := range steps {
		record.CurrentStep = step.Name

		if err := i.runStep(ctx, step.Run); err != nil {
			logger.Get().Warn("Saga step failed, compensating",
				zap.String("workflow", workflow),
				zap.String("aggregate_id", aggregateID),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			outcome := i.compensate(ctx, record, steps[:idx])
			record.CurrentStep = step.Name
			record.Finish(outcome, err)
			i.persist(ctx, record)
			i.metrics.SagaOutcomes.WithLabelValues(string(outcome)).Inc()
			return record, fmt.Errorf("step %s failed: %w", step.Name, err)
		}

		record.CompleteStep(step.Name)
		i.persist(ctx, record)
	}

	record.Finish(domain.OutcomeCompleted, nil)
	i.persist(ctx, record)
	i.metrics.SagaOutcomes.WithLabelValues(string(domain.OutcomeCompleted)).Inc()

	logger.Get().Info("Saga completed",
		zap.String("workflow", workflow),
		zap.String("aggregate_id", aggregateID),
		zap.Int("steps", len(steps)),
	)
	return record, nil
}

// compensate undoes completed steps in strict reverse order. Each failure
// is logged and compensation continues with the remaining steps.
func (i *Interpreter) compensate(ctx context.Context, record *domain.Record, completed []Step) domain.Outcome {
	outcome := domain.OutcomeCompensated

	for idx := len(completed) - 1; idx >= 0; idx-- {
		step := completed[idx]
		if step.Compensate == nil {
			record.MarkCompensated(step.Name)
			continue
		}

		if err := i.runStep(ctx, step.Compensate); err != nil {
			outcome = domain.OutcomeFailed
			logger.Get().Error("Saga compensation failed",
				zap.String("workflow", record.Workflow),
				zap.String("aggregate_id", record.AggregateID),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			continue
		}
		record.MarkCompensated(step.Name)
	}

	return outcome
}

func (i *Interpreter) runStep(ctx context.Context, fn func(ctx context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, i.stepTimeout)
	defer cancel()
	return fn(stepCtx)
}

// persist writes the ledger; a ledger write failure never interrupts the
// workflow itself.
func (i *Interpreter) persist(ctx context.Context, record *domain.Record) {
	if err := i.log.Save(ctx, record); err != nil {
		logger.Get().Error("Failed to persist saga ledger",
			zap.String("saga_id", record.ID),
			zap.Error(err),
		)
	}
}
