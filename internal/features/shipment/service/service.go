package service

import (
	"context"
	"fmt"
	"time"

	"shipment-tracker/internal/core/geo"
	"shipment-tracker/internal/core/logger"
	"shipment-tracker/internal/core/metrics"
	eventdomain "shipment-tracker/internal/features/events/domain"
	eventports "shipment-tracker/internal/features/events/ports"
	"shipment-tracker/internal/features/shipment/domain"
	"shipment-tracker/internal/features/shipment/ports"

	"go.uber.org/zap"
)

// etaAverageSpeedKmh is the assumed travel speed for ETA recomputation when
// the carrier provides no route plan.
const etaAverageSpeedKmh = 60.0

// CreateRequest carries the fields needed to register a shipment.
type CreateRequest struct {
	ShipmentNumber  string
	CustomerID      string
	CarrierID       string
	Mode            domain.ShipmentMode
	Origin          domain.Address
	Destination     domain.Address
	PlannedPickup   time.Time
	PlannedDelivery time.Time
	ReferenceNumber string
	Tags            []string
	Stops           []domain.Stop
}

// Service orchestrates shipment lifecycle operations: load, mutate through
// the aggregate, save with optimistic versioning, then publish the returned
// domain events.
type Service struct {
	shipments  ports.Repository
	publisher  eventports.Publisher
	metrics    *metrics.Metrics
	stopRadius float64
}

// NewService creates a shipment Service. stopRadiusMeters bounds stop
// correlation on geofence entry.
func NewService(shipments ports.Repository, publisher eventports.Publisher, m *metrics.Metrics, stopRadiusMeters float64) *Service {
	return &Service{shipments: shipments, publisher: publisher, metrics: m, stopRadius: stopRadiusMeters}
}

// Create registers a new shipment with its initial stops.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Shipment, error) {
	if existing, err := s.shipments.FindByShipmentNumber(ctx, req.ShipmentNumber); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrDuplicateShipmentNumber, req.ShipmentNumber)
	}

	shipment, created, err := domain.NewShipment(req.ShipmentNumber, req.CustomerID, req.CarrierID,
		req.Mode, req.Origin, req.Destination, req.PlannedPickup, req.PlannedDelivery)
	if err != nil {
		return nil, err
	}
	shipment.ReferenceNumber = req.ReferenceNumber
	shipment.Tags = req.Tags

	stopEvents := make([]eventdomain.DomainEvent, 0, len(req.Stops))
	for _, stop := range req.Stops {
		ev, err := shipment.AddStop(stop)
		if err != nil {
			return nil, err
		}
		stopEvents = append(stopEvents, ev)
	}

	saved, err := s.shipments.Save(ctx, shipment)
	if err != nil {
		return nil, fmt.Errorf("failed to save shipment: %w", err)
	}

	s.publisher.Publish(ctx, created)
	for _, ev := range stopEvents {
		s.publisher.Publish(ctx, ev)
	}

	s.metrics.StateTransitions.WithLabelValues(string(domain.StatusCreated)).Inc()
	logger.Get().Info("Shipment created",
		zap.String("shipment_id", saved.ID),
		zap.String("shipment_number", saved.ShipmentNumber),
	)
	return saved, nil
}

// Get returns a shipment by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Shipment, error) {
	return s.shipments.FindByID(ctx, id)
}

// GetByNumber returns a shipment by its business key.
func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Shipment, error) {
	return s.shipments.FindByShipmentNumber(ctx, number)
}

// Confirm moves the shipment to CONFIRMED.
func (s *Service) Confirm(ctx context.Context, id, actor string) (*domain.Shipment, error) {
	return s.mutate(ctx, id, func(sh *domain.Shipment) (eventdomain.DomainEvent, error) {
		return sh.Confirm(actor)
	})
}

// Dispatch moves the shipment to DISPATCHED, recording the pickup time.
func (s *Service) Dispatch(ctx context.Context, id string, at time.Time) (*domain.Shipment, error) {
	return s.mutate(ctx, id, func(sh *domain.Shipment) (eventdomain.DomainEvent, error) {
		return sh.Dispatch(at)
	})
}

// StartTransit moves the shipment to IN_TRANSIT.
func (s *Service) StartTransit(ctx context.Context, id, actor string) (*domain.Shipment, error) {
	return s.mutate(ctx, id, func(sh *domain.Shipment) (eventdomain.DomainEvent, error) {
		return sh.StartTransit(actor)
	})
}

// Deliver completes the shipment.
func (s *Service) Deliver(ctx context.Context, id string, at time.Time, receivedBy string) (*domain.Shipment, error) {
	return s.mutate(ctx, id, func(sh *domain.Shipment) (eventdomain.DomainEvent, error) {
		return sh.Deliver(at, receivedBy)
	})
}

// MarkException flags an in-transit problem.
func (s *Service) MarkException(ctx context.Context, id, exceptionType, description string) (*domain.Shipment, error) {
	return s.mutate(ctx, id, func(sh *domain.Shipment) (eventdomain.DomainEvent, error) {
		return sh.MarkException(exceptionType, description)
	})
}

// ResumeTransit returns an EXCEPTION shipment to IN_TRANSIT.
func (s *Service) ResumeTransit(ctx context.Context, id, actor string) (*domain.Shipment, error) {
	return s.mutate(ctx, id, func(sh *domain.Shipment) (eventdomain.DomainEvent, error) {
		return sh.TransitionTo(domain.StatusInTransit, actor)
	})
}

// AddStop appends a stop to the route.
func (s *Service) AddStop(ctx context.Context, id string, stop domain.Stop) (*domain.Shipment, error) {
	return s.mutate(ctx, id, func(sh *domain.Shipment) (eventdomain.DomainEvent, error) {
		return sh.AddStop(stop)
	})
}

// UpdateETA sets a new estimated delivery time.
func (s *Service) UpdateETA(ctx context.Context, id string, eta time.Time) (*domain.Shipment, error) {
	return s.mutate(ctx, id, func(sh *domain.Shipment) (eventdomain.DomainEvent, error) {
		return sh.UpdateEstimatedDelivery(eta, time.Now().UTC())
	})
}

// RefreshETA recomputes the estimated delivery from the shipment's latest
// position, assuming a constant average travel speed toward the
// destination. Only moving, non-terminal shipments are updated.
func (s *Service) RefreshETA(ctx context.Context, shipmentID string, latitude, longitude float64, at time.Time) error {
	shipment, err := s.shipments.FindByID(ctx, shipmentID)
	if err != nil {
		return err
	}
	if shipment.Status != domain.StatusInTransit && shipment.Status != domain.StatusDispatched {
		return nil
	}

	remaining := geo.Distance(
		geo.Point{Latitude: latitude, Longitude: longitude},
		geo.Point{Latitude: shipment.Destination.Latitude, Longitude: shipment.Destination.Longitude},
	)
	eta := at.Add(time.Duration(remaining / etaAverageSpeedKmh * float64(time.Hour)))

	ev, err := shipment.UpdateEstimatedDelivery(eta, at)
	if err != nil {
		return err
	}
	if _, err := s.shipments.Save(ctx, shipment); err != nil {
		return fmt.Errorf("failed to save refreshed ETA: %w", err)
	}
	s.publisher.Publish(ctx, ev)
	return nil
}

// HandleGeofenceEntry correlates a geofence entry with the shipment's
// nearest pending stop and marks it arrived. Returns the matched stop id,
// or "" when the entry happened away from any planned stop.
func (s *Service) HandleGeofenceEntry(ctx context.Context, shipmentID, geofenceID string, latitude, longitude float64, at time.Time) (string, error) {
	shipment, err := s.shipments.FindByID(ctx, shipmentID)
	if err != nil {
		return "", err
	}

	stop := shipment.FindStopNear(latitude, longitude, s.stopRadius, distanceMeters)
	if stop == nil {
		return "", nil
	}

	ev, err := shipment.ArriveAtStop(stop.ID, at, geofenceID)
	if err != nil {
		return "", err
	}
	if _, err := s.shipments.Save(ctx, shipment); err != nil {
		return "", fmt.Errorf("failed to save stop arrival: %w", err)
	}
	s.publisher.Publish(ctx, ev)

	logger.Get().Info("Stop arrival recorded from geofence entry",
		zap.String("shipment_id", shipmentID),
		zap.String("stop_id", stop.ID),
		zap.String("geofence_id", geofenceID),
	)
	return stop.ID, nil
}

// NearestStop returns the closest pending or approaching stop within
// radiusMeters of the coordinates, or ok=false.
func (s *Service) NearestStop(ctx context.Context, shipmentID string, latitude, longitude, radiusMeters float64) (string, float64, bool) {
	shipment, err := s.shipments.FindByID(ctx, shipmentID)
	if err != nil {
		return "", 0, false
	}

	var bestID string
	bestDistance := radiusMeters + 1
	for _, stop := range shipment.Stops {
		if stop.Status != domain.StopStatusPending && stop.Status != domain.StopStatusApproaching {
			continue
		}
		d := distanceMeters(latitude, longitude, stop.Location.Latitude, stop.Location.Longitude)
		if d <= radiusMeters && d < bestDistance {
			bestID = stop.ID
			bestDistance = d
		}
	}

	if bestID == "" {
		return "", 0, false
	}
	return bestID, bestDistance, true
}

// Delete removes a shipment record. Administrative use only.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.shipments.FindByID(ctx, id); err != nil {
		return err
	}
	return s.shipments.Delete(ctx, id)
}

// mutate loads, applies one aggregate mutation, saves and publishes.
func (s *Service) mutate(ctx context.Context, id string, fn func(*domain.Shipment) (eventdomain.DomainEvent, error)) (*domain.Shipment, error) {
	shipment, err := s.shipments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ev, err := fn(shipment)
	if err != nil {
		return nil, err
	}

	saved, err := s.shipments.Save(ctx, shipment)
	if err != nil {
		return nil, fmt.Errorf("failed to save shipment: %w", err)
	}

	s.publisher.Publish(ctx, ev)
	s.metrics.StateTransitions.WithLabelValues(string(saved.Status)).Inc()
	return saved, nil
}

func distanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.DistanceMeters(
		geo.Point{Latitude: lat1, Longitude: lon1},
		geo.Point{Latitude: lat2, Longitude: lon2},
	)
}
