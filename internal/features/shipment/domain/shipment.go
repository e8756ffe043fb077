package domain

import (
	"fmt"
	"time"

	events "shipment-tracker/internal/features/events/domain"

	"github.com/google/uuid"
)

// ShipmentEvent is one entry in the shipment's append-only audit trail.
// Unlike a domain event it never leaves the aggregate.
type ShipmentEvent struct {
	// ID is the unique identifier of the audit entry.
	ID string `json:"id"`
	// EventType is a short machine-readable tag (e.g., STATUS_CHANGED).
	EventType string `json:"event_type"`
	// EventTimestamp is when the recorded change happened.
	EventTimestamp time.Time `json:"event_timestamp"`
	// Description is a human-readable account of the change.
	Description string `json:"description"`
	// Source identifies who or what caused the change.
	Source string `json:"source,omitempty"`
}

// Shipment is the aggregate tracking one consignment from origin to
// destination. All mutation goes through its methods; every successful
// state change returns the domain events to publish, rather than buffering
// them on the aggregate.
type Shipment struct {
	// ID is the stable unique identifier.
	ID string `json:"id"`
	// ShipmentNumber is the unique business key, immutable after creation.
	ShipmentNumber string `json:"shipment_number"`
	// CustomerID identifies the shipper.
	CustomerID string `json:"customer_id"`
	// CarrierID identifies the transporting carrier.
	CarrierID string `json:"carrier_id"`
	// Status is the lifecycle state, changed only via the transition table.
	Status ShipmentStatus `json:"status"`
	// Mode is the transportation mode.
	Mode ShipmentMode `json:"mode"`

	Origin      Address `json:"origin"`
	Destination Address `json:"destination"`

	PlannedPickupTime     time.Time  `json:"planned_pickup_time"`
	PlannedDeliveryTime   time.Time  `json:"planned_delivery_time"`
	ActualPickupTime      *time.Time `json:"actual_pickup_time,omitempty"`
	ActualDeliveryTime    *time.Time `json:"actual_delivery_time,omitempty"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty"`

	// ReferenceNumber is the customer's own reference.
	ReferenceNumber string `json:"reference_number,omitempty"`
	// Tags are free-form labels.
	Tags []string `json:"tags,omitempty"`

	// Stops is the ordered route; sequence numbers are pairwise unique.
	Stops []Stop `json:"stops"`
	// Events is the append-only audit trail.
	Events []ShipmentEvent `json:"events"`

	// CancelPending marks a cancellation saga in flight. While set, the only
	// allowed transition is to CANCELLED.
	CancelPending bool `json:"cancel_pending,omitempty"`
	// PriorStatus is the status to restore if the cancellation compensates.
	PriorStatus ShipmentStatus `json:"prior_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version is the optimistic concurrency token, incremented by the
	// repository on every successful save.
	Version int64 `json:"version"`
}

// NewShipment validates invariants and constructs a shipment in CREATED
// status, returning the ShipmentCreated event to publish.
func NewShipment(number, customerID, carrierID string, mode ShipmentMode,
	origin, destination Address, plannedPickup, plannedDelivery time.Time) (*Shipment, events.DomainEvent, error) {

	if number == "" {
		return nil, events.DomainEvent{}, fmt.Errorf("%w: shipment number is required", ErrInvalidArgument)
	}
	if !plannedDelivery.After(plannedPickup) {
		return nil, events.DomainEvent{}, fmt.Errorf("%w: delivery time must be after pickup time", ErrInvalidArgument)
	}
	if origin.Equal(destination) {
		return nil, events.DomainEvent{}, fmt.Errorf("%w: origin and destination cannot be the same", ErrInvalidArgument)
	}

	now := time.Now().UTC()
	s := &Shipment{
		ID:                  uuid.NewString(),
		ShipmentNumber:      number,
		CustomerID:          customerID,
		CarrierID:           carrierID,
		Status:              StatusCreated,
		Mode:                mode,
		Origin:              origin,
		Destination:         destination,
		PlannedPickupTime:   plannedPickup,
		PlannedDeliveryTime: plannedDelivery,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	s.appendAudit("CREATED", "shipment registered", "factory")

	ev := events.New(s.ID, s.Version, events.ShipmentCreated{
		ShipmentNumber: number,
		CustomerID:     customerID,
		CarrierID:      carrierID,
		Mode:           string(mode),
		Origin:         toAddressData(origin),
		Destination:    toAddressData(destination),
	})
	return s, ev, nil
}

// TransitionTo applies a table-checked status transition.
func (s *Shipment) TransitionTo(target ShipmentStatus, actor string) (events.DomainEvent, error) {
	if s.Status.IsTerminal() {
		return events.DomainEvent{}, fmt.Errorf("%w: shipment is %s", ErrInvalidState, s.Status)
	}
	if s.CancelPending && target != StatusCancelled {
		return events.DomainEvent{}, fmt.Errorf("%w: cancellation in progress", ErrInvalidState)
	}
	if !s.Status.CanTransitionTo(target) {
		return events.DomainEvent{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, target)
	}

	from := s.Status
	s.Status = target
	s.touch()
	s.appendAudit("STATUS_CHANGED", fmt.Sprintf("status changed from %s to %s", from, target), actor)

	return events.New(s.ID, s.Version, events.ShipmentStatusChanged{
		From:  string(from),
		To:    string(target),
		Actor: actor,
	}), nil
}

// Confirm moves the shipment from CREATED to CONFIRMED.
func (s *Shipment) Confirm(actor string) (events.DomainEvent, error) {
	return s.TransitionTo(StatusConfirmed, actor)
}

// Dispatch moves the shipment to DISPATCHED and records the actual pickup
// time. At least one stop must be present.
func (s *Shipment) Dispatch(at time.Time) (events.DomainEvent, error) {
	if s.Status.IsTerminal() {
		return events.DomainEvent{}, fmt.Errorf("%w: shipment is %s", ErrInvalidState, s.Status)
	}
	if s.CancelPending {
		return events.DomainEvent{}, fmt.Errorf("%w: cancellation in progress", ErrInvalidState)
	}
	if !s.Status.CanTransitionTo(StatusDispatched) {
		return events.DomainEvent{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, StatusDispatched)
	}
	// The stop requirement only qualifies an otherwise-valid transition.
	if len(s.Stops) == 0 {
		return events.DomainEvent{}, fmt.Errorf("%w: cannot dispatch shipment without stops", ErrPreconditionFailed)
	}

	s.Status = StatusDispatched
	s.ActualPickupTime = &at
	s.touch()
	s.appendAudit("DISPATCHED", "shipment dispatched", "carrier")

	return events.New(s.ID, s.Version, events.ShipmentDispatched{
		DispatchTime: at,
		StopCount:    len(s.Stops),
	}), nil
}

// StartTransit moves a dispatched shipment to IN_TRANSIT.
func (s *Shipment) StartTransit(actor string) (events.DomainEvent, error) {
	return s.TransitionTo(StatusInTransit, actor)
}

// Deliver completes the shipment. The delivery time must not precede the
// actual pickup time.
func (s *Shipment) Deliver(deliveryTime time.Time, receivedBy string) (events.DomainEvent, error) {
	if s.Status.IsTerminal() {
		return events.DomainEvent{}, fmt.Errorf("%w: shipment is %s", ErrInvalidState, s.Status)
	}
	if s.CancelPending {
		return events.DomainEvent{}, fmt.Errorf("%w: cancellation in progress", ErrInvalidState)
	}
	if !s.Status.CanTransitionTo(StatusDelivered) {
		return events.DomainEvent{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, StatusDelivered)
	}
	if s.ActualPickupTime != nil && deliveryTime.Before(*s.ActualPickupTime) {
		return events.DomainEvent{}, fmt.Errorf("%w: delivery time cannot be before pickup time", ErrInvalidArgument)
	}

	s.Status = StatusDelivered
	s.ActualDeliveryTime = &deliveryTime
	s.touch()
	s.appendAudit("DELIVERED", "shipment delivered", receivedBy)

	return events.New(s.ID, s.Version, events.ShipmentDelivered{
		DeliveryTime: deliveryTime,
		ReceivedBy:   receivedBy,
	}), nil
}

// MarkException moves an in-transit shipment to EXCEPTION.
func (s *Shipment) MarkException(exceptionType, description string) (events.DomainEvent, error) {
	if s.Status.IsTerminal() {
		return events.DomainEvent{}, fmt.Errorf("%w: shipment is %s", ErrInvalidState, s.Status)
	}
	if s.CancelPending {
		return events.DomainEvent{}, fmt.Errorf("%w: cancellation in progress", ErrInvalidState)
	}
	if !s.Status.CanTransitionTo(StatusException) {
		return events.DomainEvent{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, StatusException)
	}

	s.Status = StatusException
	s.touch()
	s.appendAudit("EXCEPTION", fmt.Sprintf("[%s] %s", exceptionType, description), "system")

	return events.New(s.ID, s.Version, events.ShipmentException{
		ExceptionType: exceptionType,
		Description:   description,
	}), nil
}

// Cancel moves the shipment to CANCELLED from any non-terminal status.
func (s *Shipment) Cancel(reason, actor string) (events.DomainEvent, error) {
	if s.Status.IsTerminal() {
		return events.DomainEvent{}, fmt.Errorf("%w: cannot cancel shipment in status %s", ErrInvalidState, s.Status)
	}

	s.Status = StatusCancelled
	s.CancelPending = false
	s.PriorStatus = ""
	s.touch()
	s.appendAudit("CANCELLED", "shipment cancelled: "+reason, actor)

	return events.New(s.ID, s.Version, events.ShipmentCancelled{
		Reason:           reason,
		CancelledBy:      actor,
		CancellationTime: s.UpdatedAt,
	}), nil
}

// BeginCancellation marks a cancellation saga in flight, remembering the
// prior status for compensation. No domain event is emitted; the marker is
// internal until the saga finalizes or reverts.
func (s *Shipment) BeginCancellation() error {
	if s.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot cancel shipment in status %s", ErrInvalidState, s.Status)
	}
	if s.CancelPending {
		return fmt.Errorf("%w: cancellation already in progress", ErrInvalidState)
	}
	s.CancelPending = true
	s.PriorStatus = s.Status
	s.touch()
	s.appendAudit("CANCELLING", "cancellation started", "saga")
	return nil
}

// RevertCancellation clears the in-flight cancellation marker. Used by the
// saga's compensation path.
func (s *Shipment) RevertCancellation() error {
	if !s.CancelPending {
		return fmt.Errorf("%w: no cancellation in progress", ErrInvalidState)
	}
	s.CancelPending = false
	s.PriorStatus = ""
	s.touch()
	s.appendAudit("CANCELLATION_REVERTED", "cancellation compensated", "saga")
	return nil
}

// FinalizeCancellation completes an in-flight cancellation.
func (s *Shipment) FinalizeCancellation(reason, actor string) (events.DomainEvent, error) {
	if !s.CancelPending {
		return events.DomainEvent{}, fmt.Errorf("%w: no cancellation in progress", ErrInvalidState)
	}
	return s.Cancel(reason, actor)
}

// AddStop appends a stop to the route. Sequence numbers must be unique
// within the shipment.
func (s *Shipment) AddStop(stop Stop) (events.DomainEvent, error) {
	if s.Status.IsTerminal() {
		return events.DomainEvent{}, fmt.Errorf("%w: cannot add stops to %s shipment", ErrInvalidState, s.Status)
	}
	for _, existing := range s.Stops {
		if existing.SequenceNumber == stop.SequenceNumber {
			return events.DomainEvent{}, fmt.Errorf("%w: stop with sequence %d already exists", ErrInvalidArgument, stop.SequenceNumber)
		}
	}

	if stop.ID == "" {
		stop.ID = uuid.NewString()
	}
	if stop.Status == "" {
		stop.Status = StopStatusPending
	}
	s.Stops = append(s.Stops, stop)
	s.touch()

	return events.New(s.ID, s.Version, events.StopAdded{
		StopID:         stop.ID,
		SequenceNumber: stop.SequenceNumber,
		StopType:       string(stop.Type),
	}), nil
}

// ArriveAtStop marks the identified stop as arrived and returns the
// StopArrived event. geofenceID correlates the arrival with the geofence
// that detected it, if any.
func (s *Shipment) ArriveAtStop(stopID string, at time.Time, geofenceID string) (events.DomainEvent, error) {
	if s.Status.IsTerminal() {
		return events.DomainEvent{}, fmt.Errorf("%w: shipment is %s", ErrInvalidState, s.Status)
	}

	for i := range s.Stops {
		if s.Stops[i].ID != stopID {
			continue
		}
		if err := s.Stops[i].MarkArrived(at); err != nil {
			return events.DomainEvent{}, err
		}
		s.touch()
		s.appendAudit("STOP_ARRIVED", fmt.Sprintf("arrived at stop %d", s.Stops[i].SequenceNumber), "tracking")

		return events.New(s.ID, s.Version, events.StopArrived{
			StopID:      stopID,
			ArrivalTime: at,
			GeofenceID:  geofenceID,
		}), nil
	}
	return events.DomainEvent{}, fmt.Errorf("%w: stop %s not found", ErrInvalidArgument, stopID)
}

// UpdateEstimatedDelivery sets a new ETA. Rejected for terminal shipments
// and for timestamps in the past.
func (s *Shipment) UpdateEstimatedDelivery(eta time.Time, now time.Time) (events.DomainEvent, error) {
	if s.Status.IsTerminal() {
		return events.DomainEvent{}, fmt.Errorf("%w: cannot update ETA for %s shipment", ErrInvalidState, s.Status)
	}
	if eta.Before(now) {
		return events.DomainEvent{}, fmt.Errorf("%w: estimated delivery cannot be in the past", ErrInvalidArgument)
	}

	s.EstimatedDeliveryTime = &eta
	s.touch()

	return events.New(s.ID, s.Version, events.ShipmentETAUpdated{
		EstimatedDelivery: eta,
	}), nil
}

// FindStopNear returns the first pending or approaching stop whose location
// is within radiusMeters of the given coordinates, or nil.
func (s *Shipment) FindStopNear(latitude, longitude, radiusMeters float64,
	distanceMeters func(lat1, lon1, lat2, lon2 float64) float64) *Stop {

	for i := range s.Stops {
		stop := &s.Stops[i]
		if stop.Status != StopStatusPending && stop.Status != StopStatusApproaching {
			continue
		}
		if distanceMeters(latitude, longitude, stop.Location.Latitude, stop.Location.Longitude) <= radiusMeters {
			return stop
		}
	}
	return nil
}

func (s *Shipment) touch() {
	s.UpdatedAt = time.Now().UTC()
}

func (s *Shipment) appendAudit(eventType, description, source string) {
	s.Events = append(s.Events, ShipmentEvent{
		ID:             uuid.NewString(),
		EventType:      eventType,
		EventTimestamp: time.Now().UTC(),
		Description:    description,
		Source:         source,
	})
}

func toAddressData(a Address) events.AddressData {
	return events.AddressData{
		City:      a.City,
		State:     a.State,
		Country:   a.Country,
		ZipCode:   a.ZipCode,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
	}
}
