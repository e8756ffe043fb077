package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal classification of a saga run.
type Outcome string

const (
	// OutcomeRunning marks a saga still executing steps.
	OutcomeRunning Outcome = "RUNNING"
	// OutcomeCompleted marks a saga whose every step succeeded.
	OutcomeCompleted Outcome = "COMPLETED"
	// OutcomeCompensated marks a failed saga whose completed steps were all
	// successfully undone.
	OutcomeCompensated Outcome = "COMPENSATED"
	// OutcomeFailed marks a failed saga where at least one compensation also
	// failed, leaving manual cleanup.
	OutcomeFailed Outcome = "FAILED"
)

// StepRecord is one executed step in the saga ledger.
type StepRecord struct {
	// Name identifies the step within its workflow.
	Name string `json:"name"`
	// CompletedAt is when the step's forward action succeeded.
	CompletedAt time.Time `json:"completed_at"`
	// Compensated marks that the step's undo action ran after a later
	// step failed.
	Compensated bool `json:"compensated,omitempty"`
}

// Record is the persisted ledger of one saga run. It is written after
// every completed step so an operator can always see how far a run got.
type Record struct {
	// ID is the unique run identifier.
	ID string `json:"id"`
	// Workflow names the saga definition, e.g. shipment-cancellation.
	Workflow string `json:"workflow"`
	// AggregateID is the entity the run operates on.
	AggregateID string `json:"aggregate_id"`

	// CompletedSteps lists steps whose forward action succeeded, in
	// execution order.
	CompletedSteps []StepRecord `json:"completed_steps"`
	// CurrentStep is the step executing or the one that failed.
	CurrentStep string `json:"current_step,omitempty"`

	Outcome Outcome `json:"outcome"`
	// Error is the original failure cause for non-completed outcomes.
	Error string `json:"error,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewRecord starts a ledger for one saga run.
func NewRecord(workflow, aggregateID string) *Record {
	return &Record{
		ID:          uuid.NewString(),
		Workflow:    workflow,
		AggregateID: aggregateID,
		Outcome:     OutcomeRunning,
		StartedAt:   time.Now().UTC(),
	}
}

// CompleteStep appends a successful step to the ledger.
func (r *Record) CompleteStep(name string) {
	r.CompletedSteps = append(r.CompletedSteps, StepRecord{
		Name:        name,
		CompletedAt: time.Now().UTC(),
	})
	r.CurrentStep = ""
}

// MarkCompensated flags a completed step as undone.
func (r *Record) MarkCompensated(name string) {
	for i := range r.CompletedSteps {
		if r.CompletedSteps[i].Name == name {
			r.CompletedSteps[i].Compensated = true
			return
		}
	}
}

// Finish closes the run with a terminal outcome.
func (r *Record) Finish(outcome Outcome, cause error) {
	r.Outcome = outcome
	if cause != nil {
		r.Error = cause.Error()
	}
	now := time.Now().UTC()
	r.FinishedAt = &now
}
