package adapters

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"shipment-tracker/internal/core/geo"
	"shipment-tracker/internal/features/location/domain"
	"shipment-tracker/internal/features/location/ports"
)

// MemoryGeofenceRepository stores geofence definitions and enforces
// per-owner name uniqueness.
type MemoryGeofenceRepository struct {
	mu     sync.RWMutex
	fences map[string]*domain.Geofence
}

// NewMemoryGeofenceRepository creates an empty store.
func NewMemoryGeofenceRepository() *MemoryGeofenceRepository {
	return &MemoryGeofenceRepository{fences: make(map[string]*domain.Geofence)}
}

// Save persists a geofence. A different fence with the same (customer,
// name) pair is rejected with ErrDuplicateGeofenceName.
func (r *MemoryGeofenceRepository) Save(_ context.Context, fence *domain.Geofence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.fences {
		if existing.ID != fence.ID &&
			existing.CustomerID == fence.CustomerID &&
			existing.Name == fence.Name {
			return fmt.Errorf("%w: %s", ports.ErrDuplicateGeofenceName, fence.Name)
		}
	}

	r.fences[fence.ID] = copyGeofence(fence)
	return nil
}

// FindByID returns the geofence or ErrGeofenceNotFound.
func (r *MemoryGeofenceRepository) FindByID(_ context.Context, id string) (*domain.Geofence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fence, ok := r.fences[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ports.ErrGeofenceNotFound, id)
	}
	return copyGeofence(fence), nil
}

// FindAllActive returns every active geofence.
func (r *MemoryGeofenceRepository) FindAllActive(_ context.Context) ([]*domain.Geofence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Geofence
	for _, fence := range r.fences {
		if fence.Active {
			out = append(out, copyGeofence(fence))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes a geofence.
func (r *MemoryGeofenceRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.fences, id)
	return nil
}

func copyGeofence(g *domain.Geofence) *domain.Geofence {
	copied := *g
	copied.Boundary = append([]geo.Point(nil), g.Boundary...)
	copied.Tags = append([]string(nil), g.Tags...)
	return &copied
}
