package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shipment-tracker/internal/core/cache"
	"shipment-tracker/internal/core/logger"
	"shipment-tracker/internal/features/location/domain"
	"shipment-tracker/internal/features/location/ports"

	"go.uber.org/zap"
)

// latestKeyPrefix namespaces latest-position cache entries.
const latestKeyPrefix = "location:latest:"

// CachedLocationRepository decorates a location repository with a
// read-through cache on the latest-position lookup, the hot query of the
// tracking read path. Writes go straight to the inner repository and
// refresh the cached projection.
type CachedLocationRepository struct {
	inner ports.Repository
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedLocationRepository wraps inner with a latest-position cache.
func NewCachedLocationRepository(inner ports.Repository, c cache.Cache, ttl time.Duration) *CachedLocationRepository {
	return &CachedLocationRepository{inner: inner, cache: c, ttl: ttl}
}

// Save persists the report and refreshes the cached latest position when
// the report supersedes it.
func (r *CachedLocationRepository) Save(ctx context.Context, location *domain.Location) error {
	if err := r.inner.Save(ctx, location); err != nil {
		return err
	}

	latest, err := r.inner.FindLatestByShipment(ctx, location.ShipmentID)
	if err != nil {
		return nil
	}
	r.cacheLatest(ctx, latest)
	return nil
}

// FindLatestByShipment serves from the cache when possible, falling back
// to the inner repository on miss or decode failure.
func (r *CachedLocationRepository) FindLatestByShipment(ctx context.Context, shipmentID string) (*domain.Location, error) {
	key := latestKeyPrefix + shipmentID

	if data, err := r.cache.Get(ctx, key); err == nil {
		var loc domain.Location
		if unmarshalErr := json.Unmarshal(data, &loc); unmarshalErr == nil {
			return &loc, nil
		}
		logger.Get().Warn("Discarding corrupt latest-location cache entry", zap.String("key", key))
		_ = r.cache.Delete(ctx, key)
	} else if !errors.Is(err, cache.ErrKeyNotFound) {
		logger.Get().Warn("Latest-location cache read failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	latest, err := r.inner.FindLatestByShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	r.cacheLatest(ctx, latest)
	return latest, nil
}

// FindByShipmentBetween delegates to the inner repository.
func (r *CachedLocationRepository) FindByShipmentBetween(ctx context.Context, shipmentID string, start, end time.Time) ([]*domain.Location, error) {
	return r.inner.FindByShipmentBetween(ctx, shipmentID, start, end)
}

// FindMoving delegates to the inner repository.
func (r *CachedLocationRepository) FindMoving(ctx context.Context, since time.Time) ([]*domain.Location, error) {
	return r.inner.FindMoving(ctx, since)
}

// FindByID delegates to the inner repository.
func (r *CachedLocationRepository) FindByID(ctx context.Context, id string) (*domain.Location, error) {
	return r.inner.FindByID(ctx, id)
}

// DeleteByShipment removes the reports and drops the cached projection.
func (r *CachedLocationRepository) DeleteByShipment(ctx context.Context, shipmentID string) error {
	if err := r.inner.DeleteByShipment(ctx, shipmentID); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, latestKeyPrefix+shipmentID); err != nil {
		return fmt.Errorf("failed to invalidate latest-location cache: %w", err)
	}
	return nil
}

func (r *CachedLocationRepository) cacheLatest(ctx context.Context, latest *domain.Location) {
	data, err := json.Marshal(latest)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, latestKeyPrefix+latest.ShipmentID, data, r.ttl); err != nil {
		logger.Get().Warn("Latest-location cache write failed",
			zap.String("shipment_id", latest.ShipmentID),
			zap.Error(err),
		)
	}
}
