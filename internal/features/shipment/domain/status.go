package domain

// ShipmentStatus represents the lifecycle state of a shipment.
type ShipmentStatus string

const (
	// StatusCreated indicates the shipment has been registered but not confirmed.
	StatusCreated ShipmentStatus = "CREATED"
	// StatusConfirmed indicates the shipment has been accepted by the carrier.
	StatusConfirmed ShipmentStatus = "CONFIRMED"
	// StatusDispatched indicates the shipment has left its origin.
	StatusDispatched ShipmentStatus = "DISPATCHED"
	// StatusInTransit indicates the shipment is moving along its route.
	StatusInTransit ShipmentStatus = "IN_TRANSIT"
	// StatusException indicates a problem that interrupted transit.
	StatusException ShipmentStatus = "EXCEPTION"
	// StatusDelivered is terminal: the shipment reached its destination.
	StatusDelivered ShipmentStatus = "DELIVERED"
	// StatusCancelled is terminal: the shipment was cancelled.
	StatusCancelled ShipmentStatus = "CANCELLED"
)

// IsTerminal reports whether the status has no outgoing transitions.
func (s ShipmentStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether the move from s to target is allowed.
// The switch is exhaustive over ShipmentStatus so adding a status without
// extending the table is caught by linters checking enum switches.
func (s ShipmentStatus) CanTransitionTo(target ShipmentStatus) bool {
	switch s {
	case StatusCreated:
		return target == StatusConfirmed || target == StatusCancelled
	case StatusConfirmed:
		return target == StatusDispatched || target == StatusCancelled
	case StatusDispatched:
		return target == StatusInTransit || target == StatusCancelled
	case StatusInTransit:
		return target == StatusDelivered || target == StatusCancelled || target == StatusException
	case StatusException:
		return target == StatusInTransit || target == StatusCancelled
	case StatusDelivered, StatusCancelled:
		return false
	default:
		return false
	}
}

// ShipmentMode is the transportation mode of a shipment.
type ShipmentMode string

const (
	ModeTruckFTL   ShipmentMode = "TRUCK_FTL"
	ModeTruckLTL   ShipmentMode = "TRUCK_LTL"
	ModeRail       ShipmentMode = "RAIL"
	ModeOcean      ShipmentMode = "OCEAN"
	ModeAir        ShipmentMode = "AIR"
	ModeParcel     ShipmentMode = "PARCEL"
	ModeIntermodal ShipmentMode = "INTERMODAL"
	ModeCourier    ShipmentMode = "COURIER"
)
