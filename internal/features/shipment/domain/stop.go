package domain

import (
	"fmt"
	"time"
)

// StopType classifies the purpose of a planned location visit.
type StopType string

const (
	StopTypePickup     StopType = "PICKUP"
	StopTypeDelivery   StopType = "DELIVERY"
	StopTypeCrossDock  StopType = "CROSS_DOCK"
	StopTypeWaypoint   StopType = "WAYPOINT"
	StopTypeCustoms    StopType = "CUSTOMS"
	StopTypeInspection StopType = "INSPECTION"
	StopTypeFuel       StopType = "FUEL"
	StopTypeRest       StopType = "REST"
)

// StopStatus is the visit progress of a single stop.
type StopStatus string

const (
	StopStatusPending     StopStatus = "PENDING"
	StopStatusApproaching StopStatus = "APPROACHING"
	StopStatusArrived     StopStatus = "ARRIVED"
	StopStatusInProgress  StopStatus = "IN_PROGRESS"
	StopStatusCompleted   StopStatus = "COMPLETED"
	// StopStatusSkipped is a terminal alternate to the normal progression.
	StopStatusSkipped StopStatus = "SKIPPED"
	// StopStatusFailed is a terminal alternate to the normal progression.
	StopStatusFailed StopStatus = "FAILED"
)

// Stop is a planned location visit within a shipment's route. A Stop is
// owned by exactly one Shipment and has no independent lifecycle.
type Stop struct {
	// ID is the unique identifier for the stop.
	ID string `json:"id"`
	// SequenceNumber orders the stop within its shipment; unique per shipment.
	SequenceNumber int `json:"sequence_number"`
	// Type classifies the stop.
	Type StopType `json:"type"`
	// Location is the stop's address.
	Location Address `json:"location"`
	// Status is the visit progress.
	Status StopStatus `json:"status"`

	PlannedArrival   *time.Time `json:"planned_arrival,omitempty"`
	ActualArrival    *time.Time `json:"actual_arrival,omitempty"`
	PlannedDeparture *time.Time `json:"planned_departure,omitempty"`
	ActualDeparture  *time.Time `json:"actual_departure,omitempty"`

	// ContactName and ContactPhone identify the on-site contact.
	ContactName  string `json:"contact_name,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
	// Notes carries driver instructions.
	Notes string `json:"notes,omitempty"`
}

// MarkArrived records the arrival time and moves the stop to ARRIVED.
// Only pending or approaching stops can arrive.
func (s *Stop) MarkArrived(at time.Time) error {
	if s.Status != StopStatusPending && s.Status != StopStatusApproaching {
		return fmt.Errorf("%w: stop %d is %s", ErrInvalidState, s.SequenceNumber, s.Status)
	}
	s.Status = StopStatusArrived
	s.ActualArrival = &at
	return nil
}

// MarkDeparted records the departure time and completes the stop.
func (s *Stop) MarkDeparted(at time.Time) error {
	if s.Status != StopStatusArrived && s.Status != StopStatusInProgress {
		return fmt.Errorf("%w: stop %d is %s", ErrInvalidState, s.SequenceNumber, s.Status)
	}
	s.Status = StopStatusCompleted
	s.ActualDeparture = &at
	return nil
}

// Address is a physical location with optional coordinates.
type Address struct {
	AddressLine1 string  `json:"address_line1,omitempty"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	ZipCode      string  `json:"zip_code,omitempty"`
	Country      string  `json:"country"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

// Equal reports whether two addresses denote the same place.
func (a Address) Equal(other Address) bool {
	return a == other
}
