package domain

import "errors"

var (
	// ErrInvalidArgument is returned for malformed input (coordinates,
	// time ordering, duplicate stop sequence).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidTransition is returned when the (from, to) status pair is
	// not in the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidState is returned when an operation is attempted against a
	// shipment whose current status forbids it (e.g., terminal).
	ErrInvalidState = errors.New("invalid shipment state")
	// ErrPreconditionFailed is returned when a business precondition is not
	// met (e.g., dispatch without stops).
	ErrPreconditionFailed = errors.New("precondition failed")
)
