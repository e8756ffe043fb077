package adapters

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"shipment-tracker/internal/features/location/domain"
	"shipment-tracker/internal/features/location/ports"
)

// MemoryHistoryRepository stores daily history buckets keyed by
// shipmentID_date.
type MemoryHistoryRepository struct {
	mu      sync.RWMutex
	buckets map[string]*domain.History
}

// NewMemoryHistoryRepository creates an empty store.
func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{buckets: make(map[string]*domain.History)}
}

// FindBucket returns the (shipment, date) bucket or ErrNotFound.
func (r *MemoryHistoryRepository) FindBucket(_ context.Context, shipmentID, date string) (*domain.History, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, ok := r.buckets[shipmentID+"_"+date]
	if !ok {
		return nil, fmt.Errorf("%w: history %s/%s", ports.ErrNotFound, shipmentID, date)
	}
	return copyHistory(bucket), nil
}

// Save persists a bucket.
func (r *MemoryHistoryRepository) Save(_ context.Context, history *domain.History) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets[history.ID] = copyHistory(history)
	return nil
}

// FindOlderThan returns buckets whose date precedes the cutoff. Dates use
// a lexicographically sortable format, so string comparison suffices.
func (r *MemoryHistoryRepository) FindOlderThan(_ context.Context, cutoffDate string) ([]*domain.History, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.History
	for _, bucket := range r.buckets {
		if bucket.Date < cutoffDate {
			out = append(out, copyHistory(bucket))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteByShipment removes all buckets for a shipment.
func (r *MemoryHistoryRepository) DeleteByShipment(_ context.Context, shipmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, bucket := range r.buckets {
		if bucket.ShipmentID == shipmentID {
			delete(r.buckets, id)
		}
	}
	return nil
}

func copyHistory(h *domain.History) *domain.History {
	copied := *h
	copied.Points = append([]domain.HistoryPoint(nil), h.Points...)
	return &copied
}
