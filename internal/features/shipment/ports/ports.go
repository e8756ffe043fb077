package ports

import (
	"context"
	"errors"

	"shipment-tracker/internal/features/shipment/domain"
)

var (
	// ErrNotFound is returned when the shipment does not exist.
	ErrNotFound = errors.New("shipment not found")
	// ErrConcurrentModification is returned when a save observes a version
	// other than the one the caller read. The caller decides whether to
	// reload and retry; the core never retries automatically.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrDuplicateShipmentNumber is returned when the business key is taken.
	ErrDuplicateShipmentNumber = errors.New("shipment number already exists")
)

// Repository persists shipment aggregates with optimistic versioning.
type Repository interface {
	// Save persists the shipment conditioned on its Version matching the
	// stored one, then increments the version. Returns the persisted
	// shipment or ErrConcurrentModification on a version mismatch.
	Save(ctx context.Context, shipment *domain.Shipment) (*domain.Shipment, error)

	// FindByID returns the shipment or ErrNotFound.
	FindByID(ctx context.Context, id string) (*domain.Shipment, error)

	// FindByShipmentNumber returns the shipment by business key or ErrNotFound.
	FindByShipmentNumber(ctx context.Context, number string) (*domain.Shipment, error)

	// Delete removes the shipment. Administrative use only.
	Delete(ctx context.Context, id string) error
}
