package adapters

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shipment-tracker/internal/features/location/domain"
	"shipment-tracker/internal/features/location/ports"
)

// MemoryLocationRepository is an in-memory position report store keyed by
// shipment. Reports are append-only; reads sort by fix timestamp.
type MemoryLocationRepository struct {
	mu         sync.RWMutex
	byShipment map[string][]*domain.Location
	byID       map[string]*domain.Location
}

// NewMemoryLocationRepository creates an empty store.
func NewMemoryLocationRepository() *MemoryLocationRepository {
	return &MemoryLocationRepository{
		byShipment: make(map[string][]*domain.Location),
		byID:       make(map[string]*domain.Location),
	}
}

// Save persists a report, replacing any existing record with the same id.
func (r *MemoryLocationRepository) Save(_ context.Context, location *domain.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *location
	if existing, ok := r.byID[location.ID]; ok {
		*existing = stored
		return nil
	}

	r.byID[location.ID] = &stored
	r.byShipment[location.ShipmentID] = append(r.byShipment[location.ShipmentID], &stored)
	return nil
}

// FindLatestByShipment returns the most recent report by fix timestamp.
func (r *MemoryLocationRepository) FindLatestByShipment(_ context.Context, shipmentID string) (*domain.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reports := r.byShipment[shipmentID]
	if len(reports) == 0 {
		return nil, fmt.Errorf("%w: shipment %s", ports.ErrNotFound, shipmentID)
	}

	// Ties go to the later insert: an accepted equal-timestamp report
	// supersedes the previous latest.
	latest := reports[0]
	for _, loc := range reports[1:] {
		if !loc.Timestamp.Before(latest.Timestamp) {
			latest = loc
		}
	}

	out := *latest
	return &out, nil
}

// FindByShipmentBetween returns reports within [start, end] ordered by
// timestamp ascending.
func (r *MemoryLocationRepository) FindByShipmentBetween(_ context.Context, shipmentID string, start, end time.Time) ([]*domain.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Location
	for _, loc := range r.byShipment[shipmentID] {
		if loc.Timestamp.Before(start) || loc.Timestamp.After(end) {
			continue
		}
		copied := *loc
		out = append(out, &copied)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// FindMoving returns the latest report of every shipment that was moving
// since the given time.
func (r *MemoryLocationRepository) FindMoving(_ context.Context, since time.Time) ([]*domain.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Location
	for _, reports := range r.byShipment {
		var latest *domain.Location
		for _, loc := range reports {
			if latest == nil || !loc.Timestamp.Before(latest.Timestamp) {
				latest = loc
			}
		}
		if latest != nil && latest.IsMoving && !latest.Timestamp.Before(since) {
			copied := *latest
			out = append(out, &copied)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ShipmentID < out[j].ShipmentID })
	return out, nil
}

// FindByID returns a single report or ErrNotFound.
func (r *MemoryLocationRepository) FindByID(_ context.Context, id string) (*domain.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loc, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ports.ErrNotFound, id)
	}
	out := *loc
	return &out, nil
}

// DeleteByShipment removes all reports for a shipment.
func (r *MemoryLocationRepository) DeleteByShipment(_ context.Context, shipmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, loc := range r.byShipment[shipmentID] {
		delete(r.byID, loc.ID)
	}
	delete(r.byShipment, shipmentID)
	return nil
}
