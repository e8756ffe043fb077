package ports

import (
	"context"
	"errors"
	"time"

	"shipment-tracker/internal/features/location/domain"
)

var (
	// ErrNotFound is returned when no matching record exists.
	ErrNotFound = errors.New("location not found")
	// ErrGeofenceNotFound is returned when the geofence does not exist.
	ErrGeofenceNotFound = errors.New("geofence not found")
	// ErrDuplicateGeofenceName is returned when the owner already has a
	// geofence with that name.
	ErrDuplicateGeofenceName = errors.New("geofence name already exists")
)

// Repository persists position reports.
type Repository interface {
	// Save persists a position report.
	Save(ctx context.Context, location *domain.Location) error

	// FindLatestByShipment returns the shipment's most recent report by
	// timestamp, or ErrNotFound.
	FindLatestByShipment(ctx context.Context, shipmentID string) (*domain.Location, error)

	// FindByShipmentBetween returns reports within [start, end] ordered by
	// timestamp ascending.
	FindByShipmentBetween(ctx context.Context, shipmentID string, start, end time.Time) ([]*domain.Location, error)

	// FindMoving returns the latest report of every shipment that was
	// moving since the given time.
	FindMoving(ctx context.Context, since time.Time) ([]*domain.Location, error)

	// FindByID returns a single report or ErrNotFound.
	FindByID(ctx context.Context, id string) (*domain.Location, error)

	// DeleteByShipment removes all reports for a shipment.
	DeleteByShipment(ctx context.Context, shipmentID string) error
}

// HistoryRepository persists daily history buckets.
type HistoryRepository interface {
	// FindBucket returns the (shipment, date) bucket or ErrNotFound.
	FindBucket(ctx context.Context, shipmentID, date string) (*domain.History, error)

	// Save persists a bucket.
	Save(ctx context.Context, history *domain.History) error

	// FindOlderThan returns buckets whose date precedes the cutoff.
	FindOlderThan(ctx context.Context, cutoffDate string) ([]*domain.History, error)

	// DeleteByShipment removes all buckets for a shipment.
	DeleteByShipment(ctx context.Context, shipmentID string) error
}

// GeofenceRepository persists geofence definitions.
type GeofenceRepository interface {
	// Save persists a geofence, enforcing per-owner name uniqueness.
	Save(ctx context.Context, fence *domain.Geofence) error

	// FindByID returns the geofence or ErrGeofenceNotFound.
	FindByID(ctx context.Context, id string) (*domain.Geofence, error)

	// FindAllActive returns every active geofence.
	FindAllActive(ctx context.Context) ([]*domain.Geofence, error)

	// Delete removes a geofence.
	Delete(ctx context.Context, id string) error
}

// Geocoder resolves coordinates into an address. Used to enrich a stored
// report on demand, never on the critical update path.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, latitude, longitude float64) (domain.Address, error)
}

// StopLocator correlates a position with the owning shipment's nearest
// pending stop. Implemented by the shipment context.
type StopLocator interface {
	// NearestStop returns the closest pending stop within radiusMeters,
	// or ok=false when none is in range.
	NearestStop(ctx context.Context, shipmentID string, latitude, longitude, radiusMeters float64) (stopID string, distanceMeters float64, ok bool)
}
