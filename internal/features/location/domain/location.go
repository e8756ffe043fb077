package domain

import (
	"errors"
	"fmt"
	"time"

	"shipment-tracker/internal/core/geo"

	"github.com/google/uuid"
)

var (
	// ErrInvalidLocationData is returned for malformed position reports.
	ErrInvalidLocationData = errors.New("invalid location data")
	// ErrStaleUpdate is returned when a report's timestamp precedes the
	// shipment's current latest position. The rejection is silently safe:
	// callers log it at debug level and move on.
	ErrStaleUpdate = errors.New("stale location update")
)

// movingSpeedThreshold is the speed in m/s above which a shipment counts
// as moving.
const movingSpeedThreshold = 0.5

// LocationSource identifies how a position report was obtained.
type LocationSource string

const (
	SourceGPS        LocationSource = "GPS"
	SourceCellTower  LocationSource = "CELL_TOWER"
	SourceWifi       LocationSource = "WIFI"
	SourceManual     LocationSource = "MANUAL"
	SourceCalculated LocationSource = "CALCULATED"
)

// LocationQuality grades a report by its accuracy radius.
type LocationQuality string

const (
	QualityHigh     LocationQuality = "HIGH"
	QualityStandard LocationQuality = "STANDARD"
	QualityLow      LocationQuality = "LOW"
	QualityUnknown  LocationQuality = "UNKNOWN"
)

// GeofenceEventType marks the geofence correlation on a location record.
type GeofenceEventType string

const (
	GeofenceEnter GeofenceEventType = "ENTER"
	GeofenceExit  GeofenceEventType = "EXIT"
	GeofenceDwell GeofenceEventType = "DWELL"
)

// Address is a reverse-geocoded location description.
type Address struct {
	AddressLine1 string `json:"address_line1,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zip_code,omitempty"`
	Country      string `json:"country,omitempty"`
}

// Location is one position report for a shipment's device. Records are
// append-only; the "current location" of a shipment is the most recent
// record by timestamp, a read projection rather than a separate entity.
type Location struct {
	// ID is the generated identifier of this report.
	ID string `json:"id"`
	// ShipmentID is the shipment this report belongs to.
	ShipmentID string `json:"shipment_id"`
	// DeviceID identifies the reporting device.
	DeviceID string `json:"device_id"`

	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
	// Speed is in meters per second.
	Speed *float64 `json:"speed,omitempty"`
	// Heading is in degrees from true north.
	Heading *float64 `json:"heading,omitempty"`
	// Accuracy is the estimated error radius in meters.
	Accuracy *float64 `json:"accuracy,omitempty"`

	// Timestamp is when the device took the fix; monotonically
	// non-decreasing per shipment.
	Timestamp time.Time `json:"timestamp"`
	// ReceivedAt is when the system ingested the report.
	ReceivedAt time.Time `json:"received_at"`

	Source  LocationSource  `json:"source"`
	Quality LocationQuality `json:"quality"`

	// IsMoving is derived from speed at ingest time.
	IsMoving bool `json:"is_moving"`

	// Address is filled on demand by reverse geocoding, never on the
	// critical update path.
	Address *Address `json:"address,omitempty"`

	// GeofenceID and GeofenceEvent correlate this report with a geofence
	// containment change, when one occurred.
	GeofenceID    string            `json:"geofence_id,omitempty"`
	GeofenceEvent GeofenceEventType `json:"geofence_event,omitempty"`

	// StopID and DistanceFromStop correlate this report with the nearest
	// planned stop, when one is in range.
	StopID           string   `json:"stop_id,omitempty"`
	DistanceFromStop *float64 `json:"distance_from_stop,omitempty"`

	BatteryLevel *float64 `json:"battery_level,omitempty"`
}

// NewLocation validates coordinates and constructs a position report.
func NewLocation(shipmentID, deviceID string, latitude, longitude float64, timestamp time.Time) (*Location, error) {
	if shipmentID == "" {
		return nil, fmt.Errorf("%w: shipment id is required", ErrInvalidLocationData)
	}
	if !geo.ValidCoordinates(latitude, longitude) {
		return nil, fmt.Errorf("%w: coordinates (%f, %f) out of range", ErrInvalidLocationData, latitude, longitude)
	}

	return &Location{
		ID:         uuid.NewString(),
		ShipmentID: shipmentID,
		DeviceID:   deviceID,
		Latitude:   latitude,
		Longitude:  longitude,
		Timestamp:  timestamp,
		ReceivedAt: time.Now().UTC(),
		Source:     SourceGPS,
		Quality:    QualityUnknown,
	}, nil
}

// DeriveQuality grades a report from its accuracy radius in meters.
func DeriveQuality(accuracy *float64) LocationQuality {
	switch {
	case accuracy == nil:
		return QualityUnknown
	case *accuracy < 10:
		return QualityHigh
	case *accuracy < 50:
		return QualityStandard
	default:
		return QualityLow
	}
}

// DeriveIsMoving reports whether the given speed counts as movement.
func DeriveIsMoving(speed *float64) bool {
	return speed != nil && *speed > movingSpeedThreshold
}

// Point returns the report's coordinates.
func (l *Location) Point() geo.Point {
	return geo.Point{Latitude: l.Latitude, Longitude: l.Longitude}
}

// IsStale reports whether the fix is older than the threshold.
func (l *Location) IsStale(threshold time.Duration) bool {
	return l.Timestamp.Before(time.Now().Add(-threshold))
}

// IsAtStop reports whether this position is within thresholdMeters of the
// given stop coordinates.
func (l *Location) IsAtStop(stopLat, stopLon, thresholdMeters float64) bool {
	return geo.DistanceMeters(l.Point(), geo.Point{Latitude: stopLat, Longitude: stopLon}) <= thresholdMeters
}
