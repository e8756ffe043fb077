package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind discriminates the payload carried by a DomainEvent.
type EventKind string

const (
	KindShipmentCreated       EventKind = "SHIPMENT_CREATED"
	KindShipmentDispatched    EventKind = "SHIPMENT_DISPATCHED"
	KindShipmentStatusChanged EventKind = "SHIPMENT_STATUS_CHANGED"
	KindShipmentDelivered     EventKind = "SHIPMENT_DELIVERED"
	KindShipmentCancelled     EventKind = "SHIPMENT_CANCELLED"
	KindShipmentException     EventKind = "SHIPMENT_EXCEPTION"
	KindShipmentETAUpdated    EventKind = "SHIPMENT_ETA_UPDATED"
	KindStopAdded             EventKind = "STOP_ADDED"
	KindStopArrived           EventKind = "STOP_ARRIVED"
	KindLocationUpdated       EventKind = "LOCATION_UPDATED"
	KindGeofenceEntered       EventKind = "GEOFENCE_ENTERED"
	KindGeofenceExited        EventKind = "GEOFENCE_EXITED"
	KindGeofenceDwelled       EventKind = "GEOFENCE_DWELLED"
)

// Payload is implemented by every kind-specific event payload.
type Payload interface {
	Kind() EventKind
}

// DomainEvent is an immutable record of a state change, routed across
// contexts by the choreographer. The payload is a tagged variant: exactly
// one concrete Payload type per EventKind.
type DomainEvent struct {
	// ID is the unique event identifier.
	ID string `json:"event_id"`
	// OccurredAt is when the state change happened.
	OccurredAt time.Time `json:"occurred_at"`
	// AggregateID identifies the shipment the event belongs to.
	AggregateID string `json:"aggregate_id"`
	// Version is the aggregate version at the time the event was produced.
	Version int64 `json:"version"`
	// Payload carries the kind-specific fields.
	Payload Payload `json:"payload"`
}

// New creates a DomainEvent for the given aggregate and payload.
func New(aggregateID string, version int64, payload Payload) DomainEvent {
	return DomainEvent{
		ID:          uuid.NewString(),
		OccurredAt:  time.Now().UTC(),
		AggregateID: aggregateID,
		Version:     version,
		Payload:     payload,
	}
}

// Kind returns the discriminator of the carried payload.
func (e DomainEvent) Kind() EventKind {
	return e.Payload.Kind()
}

// AddressData is the address shape embedded in event payloads.
type AddressData struct {
	City      string  `json:"city"`
	State     string  `json:"state"`
	Country   string  `json:"country"`
	ZipCode   string  `json:"zip_code"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ShipmentCreated is emitted once when the aggregate is constructed.
type ShipmentCreated struct {
	ShipmentNumber string      `json:"shipment_number"`
	CustomerID     string      `json:"customer_id"`
	CarrierID      string      `json:"carrier_id"`
	Mode           string      `json:"mode"`
	Origin         AddressData `json:"origin"`
	Destination    AddressData `json:"destination"`
}

// ShipmentDispatched is emitted when the shipment leaves its origin.
type ShipmentDispatched struct {
	DispatchTime time.Time `json:"dispatch_time"`
	StopCount    int       `json:"stop_count"`
}

// ShipmentStatusChanged is emitted on every table-checked transition.
type ShipmentStatusChanged struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Actor string `json:"actor"`
}

// ShipmentDelivered is emitted when the shipment reaches its destination.
type ShipmentDelivered struct {
	DeliveryTime time.Time `json:"delivery_time"`
	ReceivedBy   string    `json:"received_by,omitempty"`
}

// ShipmentCancelled is emitted when cancellation completes.
type ShipmentCancelled struct {
	Reason           string    `json:"reason"`
	CancelledBy      string    `json:"cancelled_by"`
	CancellationTime time.Time `json:"cancellation_time"`
}

// ShipmentException is emitted when the shipment enters the exception state.
type ShipmentException struct {
	ExceptionType string `json:"exception_type"`
	Description   string `json:"description"`
}

// ShipmentETAUpdated is emitted when the estimated delivery changes.
type ShipmentETAUpdated struct {
	EstimatedDelivery time.Time `json:"estimated_delivery"`
}

// StopAdded is emitted when a stop joins the shipment's route.
type StopAdded struct {
	StopID         string `json:"stop_id"`
	SequenceNumber int    `json:"sequence_number"`
	StopType       string `json:"stop_type"`
}

// StopArrived is emitted when a position report lands inside a stop's radius.
type StopArrived struct {
	StopID      string    `json:"stop_id"`
	ArrivalTime time.Time `json:"arrival_time"`
	GeofenceID  string    `json:"geofence_id,omitempty"`
}

// LocationUpdated is emitted for every accepted position report.
type LocationUpdated struct {
	DeviceID  string    `json:"device_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed,omitempty"`
	Heading   float64   `json:"heading,omitempty"`
	IsMoving  bool      `json:"is_moving"`
	Timestamp time.Time `json:"timestamp"`
}

// GeofenceEntered is emitted when a shipment newly enters a geofence.
// The coordinates are the position report that triggered the entry, used
// downstream to correlate the entry with a planned stop.
type GeofenceEntered struct {
	GeofenceID   string    `json:"geofence_id"`
	GeofenceName string    `json:"geofence_name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	EnteredAt    time.Time `json:"entered_at"`
}

// GeofenceExited is emitted when a shipment leaves a geofence it was inside.
type GeofenceExited struct {
	GeofenceID   string        `json:"geofence_id"`
	GeofenceName string        `json:"geofence_name"`
	ExitedAt     time.Time     `json:"exited_at"`
	DwellTime    time.Duration `json:"dwell_time"`
}

// GeofenceDwelled is emitted once per continuous containment period after
// the dwell threshold is crossed.
type GeofenceDwelled struct {
	GeofenceID   string        `json:"geofence_id"`
	GeofenceName string        `json:"geofence_name"`
	DwellTime    time.Duration `json:"dwell_time"`
}

func (ShipmentCreated) Kind() EventKind       { return KindShipmentCreated }
func (ShipmentDispatched) Kind() EventKind    { return KindShipmentDispatched }
func (ShipmentStatusChanged) Kind() EventKind { return KindShipmentStatusChanged }
func (ShipmentDelivered) Kind() EventKind     { return KindShipmentDelivered }
func (ShipmentCancelled) Kind() EventKind     { return KindShipmentCancelled }
func (ShipmentException) Kind() EventKind     { return KindShipmentException }
func (ShipmentETAUpdated) Kind() EventKind    { return KindShipmentETAUpdated }
func (StopAdded) Kind() EventKind             { return KindStopAdded }
func (StopArrived) Kind() EventKind           { return KindStopArrived }
func (LocationUpdated) Kind() EventKind       { return KindLocationUpdated }
func (GeofenceEntered) Kind() EventKind       { return KindGeofenceEntered }
func (GeofenceExited) Kind() EventKind        { return KindGeofenceExited }
func (GeofenceDwelled) Kind() EventKind       { return KindGeofenceDwelled }

// Topic maps an event to its stream topic.
func Topic(e DomainEvent) string {
	switch e.Kind() {
	case KindShipmentCreated:
		return "shipment.created"
	case KindShipmentDispatched, KindShipmentStatusChanged, KindShipmentException:
		return "shipment.status-changed"
	case KindShipmentDelivered:
		return "shipment.delivered"
	case KindShipmentCancelled:
		return "shipment.cancelled"
	case KindShipmentETAUpdated, KindStopAdded, KindStopArrived:
		return "shipment.updated"
	case KindLocationUpdated:
		return "location.updates"
	case KindGeofenceEntered, KindGeofenceExited, KindGeofenceDwelled:
		return "location.geofence.events"
	default:
		return "shipment.updated"
	}
}

// Describe renders a human-readable one-liner for logs.
func Describe(e DomainEvent) string {
	switch p := e.Payload.(type) {
	case ShipmentCreated:
		return fmt.Sprintf("shipment %s created for customer %s", p.ShipmentNumber, p.CustomerID)
	case ShipmentDispatched:
		return fmt.Sprintf("shipment dispatched with %d stops at %s", p.StopCount, p.DispatchTime)
	case ShipmentStatusChanged:
		return fmt.Sprintf("status changed %s -> %s by %s", p.From, p.To, p.Actor)
	case ShipmentDelivered:
		return fmt.Sprintf("shipment delivered at %s", p.DeliveryTime)
	case ShipmentCancelled:
		return fmt.Sprintf("shipment cancelled by %s: %s", p.CancelledBy, p.Reason)
	case ShipmentException:
		return fmt.Sprintf("exception [%s]: %s", p.ExceptionType, p.Description)
	case ShipmentETAUpdated:
		return fmt.Sprintf("ETA updated to %s", p.EstimatedDelivery)
	case StopAdded:
		return fmt.Sprintf("stop %d added (%s)", p.SequenceNumber, p.StopType)
	case StopArrived:
		return fmt.Sprintf("arrived at stop %s at %s", p.StopID, p.ArrivalTime)
	case LocationUpdated:
		return fmt.Sprintf("position (%f, %f) from device %s", p.Latitude, p.Longitude, p.DeviceID)
	case GeofenceEntered:
		return fmt.Sprintf("entered geofence %s", p.GeofenceName)
	case GeofenceExited:
		return fmt.Sprintf("exited geofence %s after %s", p.GeofenceName, p.DwellTime)
	case GeofenceDwelled:
		return fmt.Sprintf("dwelling in geofence %s for %s", p.GeofenceName, p.DwellTime)
	default:
		return fmt.Sprintf("unknown event kind %s", e.Kind())
	}
}
