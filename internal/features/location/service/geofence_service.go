package service

import (
	"context"
	"fmt"

	"shipment-tracker/internal/core/geo"
	"shipment-tracker/internal/core/logger"
	"shipment-tracker/internal/features/location/domain"
	"shipment-tracker/internal/features/location/ports"

	"go.uber.org/zap"
)

// GeofenceService manages geofence definitions: creation, activation
// lifecycle and radius changes.
type GeofenceService struct {
	fences ports.GeofenceRepository
}

// NewGeofenceService creates a GeofenceService.
func NewGeofenceService(fences ports.GeofenceRepository) *GeofenceService {
	return &GeofenceService{fences: fences}
}

// CreateCircular registers a new circular geofence for the customer.
func (s *GeofenceService) CreateCircular(ctx context.Context, name, customerID string, centerLat, centerLon, radiusMeters float64, policy domain.NotificationPolicy) (*domain.Geofence, error) {
	fence, err := domain.NewCircularGeofence(name, customerID, centerLat, centerLon, radiusMeters)
	if err != nil {
		return nil, err
	}
	fence.Notification = policy

	if err := s.fences.Save(ctx, fence); err != nil {
		return nil, fmt.Errorf("failed to save geofence: %w", err)
	}

	logger.Get().Info("Geofence created",
		zap.String("geofence_id", fence.ID),
		zap.String("name", fence.Name),
		zap.Float64("radius_meters", radiusMeters),
	)
	return fence, nil
}

// CreatePolygon registers a new polygon geofence for the customer.
func (s *GeofenceService) CreatePolygon(ctx context.Context, name, customerID string, boundary []geo.Point, policy domain.NotificationPolicy) (*domain.Geofence, error) {
	fence, err := domain.NewPolygonGeofence(name, customerID, boundary)
	if err != nil {
		return nil, err
	}
	fence.Notification = policy

	if err := s.fences.Save(ctx, fence); err != nil {
		return nil, fmt.Errorf("failed to save geofence: %w", err)
	}

	logger.Get().Info("Geofence created",
		zap.String("geofence_id", fence.ID),
		zap.String("name", fence.Name),
		zap.Int("vertices", len(boundary)),
	)
	return fence, nil
}

// Get returns a geofence by id.
func (s *GeofenceService) Get(ctx context.Context, id string) (*domain.Geofence, error) {
	return s.fences.FindByID(ctx, id)
}

// ListActive returns every active geofence.
func (s *GeofenceService) ListActive(ctx context.Context) ([]*domain.Geofence, error) {
	return s.fences.FindAllActive(ctx)
}

// Activate enables a geofence.
func (s *GeofenceService) Activate(ctx context.Context, id string) (*domain.Geofence, error) {
	return s.mutate(ctx, id, func(f *domain.Geofence) error { return f.Activate() })
}

// Deactivate disables a geofence.
func (s *GeofenceService) Deactivate(ctx context.Context, id string) (*domain.Geofence, error) {
	return s.mutate(ctx, id, func(f *domain.Geofence) error { return f.Deactivate() })
}

// UpdateRadius changes a circular geofence's radius.
func (s *GeofenceService) UpdateRadius(ctx context.Context, id string, radiusMeters float64) (*domain.Geofence, error) {
	return s.mutate(ctx, id, func(f *domain.Geofence) error { return f.UpdateRadius(radiusMeters) })
}

// Delete removes a geofence definition.
func (s *GeofenceService) Delete(ctx context.Context, id string) error {
	if _, err := s.fences.FindByID(ctx, id); err != nil {
		return err
	}
	return s.fences.Delete(ctx, id)
}

func (s *GeofenceService) mutate(ctx context.Context, id string, fn func(*domain.Geofence) error) (*domain.Geofence, error) {
	fence, err := s.fences.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(fence); err != nil {
		return nil, err
	}
	if err := s.fences.Save(ctx, fence); err != nil {
		return nil, fmt.Errorf("failed to save geofence: %w", err)
	}
	return fence, nil
}
