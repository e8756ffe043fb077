package adapters

import (
	"context"
	"fmt"
	"sync"

	"shipment-tracker/internal/features/shipment/domain"
	"shipment-tracker/internal/features/shipment/ports"
)

// MemoryRepository is an in-memory shipment store with optimistic
// versioning. Save succeeds only when the caller's Version matches the
// stored one, then increments it; concurrent writers lose with
// ErrConcurrentModification and must reload.
type MemoryRepository struct {
	mu       sync.Mutex
	byID     map[string]*domain.Shipment
	byNumber map[string]string
}

// NewMemoryRepository creates an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[string]*domain.Shipment),
		byNumber: make(map[string]string),
	}
}

// Save persists the shipment conditioned on its version and returns the
// stored copy with the incremented version.
func (r *MemoryRepository) Save(_ context.Context, shipment *domain.Shipment) (*domain.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.byID[shipment.ID]
	if exists {
		if stored.Version != shipment.Version {
			return nil, fmt.Errorf("%w: shipment %s at version %d, caller has %d",
				ports.ErrConcurrentModification, shipment.ID, stored.Version, shipment.Version)
		}
	} else {
		if ownerID, taken := r.byNumber[shipment.ShipmentNumber]; taken && ownerID != shipment.ID {
			return nil, fmt.Errorf("%w: %s", ports.ErrDuplicateShipmentNumber, shipment.ShipmentNumber)
		}
	}

	copied := copyShipment(shipment)
	copied.Version++
	r.byID[copied.ID] = copied
	r.byNumber[copied.ShipmentNumber] = copied.ID

	return copyShipment(copied), nil
}

// FindByID returns the shipment or ErrNotFound.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*domain.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	shipment, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ports.ErrNotFound, id)
	}
	return copyShipment(shipment), nil
}

// FindByShipmentNumber returns the shipment by business key or ErrNotFound.
func (r *MemoryRepository) FindByShipmentNumber(_ context.Context, number string) (*domain.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byNumber[number]
	if !ok {
		return nil, fmt.Errorf("%w: number %s", ports.ErrNotFound, number)
	}
	return copyShipment(r.byID[id]), nil
}

// Delete removes the shipment.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	shipment, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: id %s", ports.ErrNotFound, id)
	}
	delete(r.byNumber, shipment.ShipmentNumber)
	delete(r.byID, id)
	return nil
}

// copyShipment deep-copies the aggregate so callers never share slices
// with the store.
func copyShipment(s *domain.Shipment) *domain.Shipment {
	copied := *s
	copied.Stops = append([]domain.Stop(nil), s.Stops...)
	copied.Events = append([]domain.ShipmentEvent(nil), s.Events...)
	copied.Tags = append([]string(nil), s.Tags...)
	return &copied
}
