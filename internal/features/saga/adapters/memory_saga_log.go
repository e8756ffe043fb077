package adapters

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"shipment-tracker/internal/features/saga/domain"
	"shipment-tracker/internal/features/saga/ports"
)

// MemorySagaLog keeps saga ledgers in memory.
type MemorySagaLog struct {
	mu      sync.RWMutex
	records map[string]*domain.Record
}

// NewMemorySagaLog creates an empty ledger store.
func NewMemorySagaLog() *MemorySagaLog {
	return &MemorySagaLog{records: make(map[string]*domain.Record)}
}

// Save persists the record.
func (l *MemorySagaLog) Save(_ context.Context, record *domain.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[record.ID] = copyRecord(record)
	return nil
}

// FindByID returns the record or ErrNotFound.
func (l *MemorySagaLog) FindByID(_ context.Context, id string) (*domain.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	record, ok := l.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ports.ErrNotFound, id)
	}
	return copyRecord(record), nil
}

// FindByAggregate returns all runs for an aggregate, newest first.
func (l *MemorySagaLog) FindByAggregate(_ context.Context, aggregateID string) ([]*domain.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*domain.Record
	for _, record := range l.records {
		if record.AggregateID == aggregateID {
			out = append(out, copyRecord(record))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func copyRecord(r *domain.Record) *domain.Record {
	copied := *r
	copied.CompletedSteps = append([]domain.StepRecord(nil), r.CompletedSteps...)
	return &copied
}
