package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shipment-tracker/internal/core/logger"
	"shipment-tracker/internal/core/metrics"
	eventdomain "shipment-tracker/internal/features/events/domain"
	eventports "shipment-tracker/internal/features/events/ports"
	"shipment-tracker/internal/features/location/domain"
	"shipment-tracker/internal/features/location/ports"

	"go.uber.org/zap"
)

// historyCompressionDivisor: a bucket over the cap is compressed down to
// cap/historyCompressionDivisor points.
const historyCompressionDivisor = 2

// archiveKeepPoints is the bucket size old buckets are compressed to when
// archived.
const archiveKeepPoints = 100

// UpdateRequest is a raw position report.
type UpdateRequest struct {
	ShipmentID string
	DeviceID   string
	Latitude   float64
	Longitude  float64
	Timestamp  time.Time

	Altitude     *float64
	Speed        *float64
	Heading      *float64
	Accuracy     *float64
	BatteryLevel *float64
	Source       domain.LocationSource
}

// Tracker ingests position reports: validation, stale-update rejection,
// quality derivation, persistence, daily history bookkeeping, geofence
// evaluation and event publication.
type Tracker struct {
	locations ports.Repository
	history   ports.HistoryRepository
	engine    *GeofenceEngine
	publisher eventports.Publisher
	stops     ports.StopLocator
	geocoder  ports.Geocoder
	metrics   *metrics.Metrics

	historyCap int
	stopRadius float64
}

// NewTracker creates a Tracker. stops and geocoder may be nil; the
// corresponding enrichments are skipped.
func NewTracker(
	locations ports.Repository,
	history ports.HistoryRepository,
	engine *GeofenceEngine,
	publisher eventports.Publisher,
	stops ports.StopLocator,
	geocoder ports.Geocoder,
	m *metrics.Metrics,
	historyCap int,
	stopRadiusMeters float64,
) *Tracker {
	return &Tracker{
		locations:  locations,
		history:    history,
		engine:     engine,
		publisher:  publisher,
		stops:      stops,
		geocoder:   geocoder,
		metrics:    m,
		historyCap: historyCap,
		stopRadius: stopRadiusMeters,
	}
}

// Update ingests one position report. The report becomes the shipment's
// new latest position unless its timestamp precedes the current one, in
// which case ErrStaleUpdate is returned and nothing is mutated. Geofence
// events resulting from the update are published before Update returns.
func (t *Tracker) Update(ctx context.Context, req UpdateRequest) (*domain.Location, error) {
	started := time.Now()
	defer func() {
		t.metrics.UpdateDuration.Observe(time.Since(started).Seconds())
	}()

	loc, err := domain.NewLocation(req.ShipmentID, req.DeviceID, req.Latitude, req.Longitude, req.Timestamp)
	if err != nil {
		return nil, err
	}

	latest, err := t.locations.FindLatestByShipment(ctx, req.ShipmentID)
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return nil, fmt.Errorf("failed to load latest location: %w", err)
	}
	if latest != nil && req.Timestamp.Before(latest.Timestamp) {
		t.metrics.StaleUpdatesRejected.Inc()
		logger.Get().Debug("Rejected stale location update",
			zap.String("shipment_id", req.ShipmentID),
			zap.Time("report_time", req.Timestamp),
			zap.Time("latest_time", latest.Timestamp),
		)
		return nil, fmt.Errorf("%w: report at %s precedes latest at %s",
			domain.ErrStaleUpdate, req.Timestamp, latest.Timestamp)
	}

	t.enrich(ctx, loc, req)

	if err := t.locations.Save(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to save location: %w", err)
	}

	if err := t.appendHistory(ctx, loc); err != nil {
		// History is a derived record; the accepted report stands.
		logger.Get().Error("Failed to update location history",
			zap.String("shipment_id", loc.ShipmentID),
			zap.Error(err),
		)
	}

	fenceEvents, err := t.engine.Evaluate(ctx, loc.ShipmentID, loc.Point(), loc.Timestamp)
	if err != nil {
		logger.Get().Error("Geofence evaluation failed",
			zap.String("shipment_id", loc.ShipmentID),
			zap.Error(err),
		)
	}
	if len(fenceEvents) > 0 {
		t.correlateGeofence(loc, fenceEvents[len(fenceEvents)-1])
		if err := t.locations.Save(ctx, loc); err != nil {
			logger.Get().Error("Failed to save geofence correlation",
				zap.String("location_id", loc.ID),
				zap.Error(err),
			)
		}
	}

	t.metrics.LocationUpdates.Inc()

	t.publisher.Publish(ctx, eventdomain.New(loc.ShipmentID, 0, eventdomain.LocationUpdated{
		DeviceID:  loc.DeviceID,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Speed:     derefOrZero(loc.Speed),
		Heading:   derefOrZero(loc.Heading),
		IsMoving:  loc.IsMoving,
		Timestamp: loc.Timestamp,
	}))
	for _, ev := range fenceEvents {
		t.publisher.Publish(ctx, ev)
	}

	return loc, nil
}

// Latest returns the shipment's current position projection.
func (t *Tracker) Latest(ctx context.Context, shipmentID string) (*domain.Location, error) {
	return t.locations.FindLatestByShipment(ctx, shipmentID)
}

// Range returns the shipment's reports within [start, end].
func (t *Tracker) Range(ctx context.Context, shipmentID string, start, end time.Time) ([]*domain.Location, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end time must be after start time", domain.ErrInvalidLocationData)
	}
	return t.locations.FindByShipmentBetween(ctx, shipmentID, start, end)
}

// DailyHistory returns the (shipment, date) bucket.
func (t *Tracker) DailyHistory(ctx context.Context, shipmentID, date string) (*domain.History, error) {
	return t.history.FindBucket(ctx, shipmentID, date)
}

// Moving returns the latest report of every shipment moving since the
// given duration ago.
func (t *Tracker) Moving(ctx context.Context, within time.Duration) ([]*domain.Location, error) {
	return t.locations.FindMoving(ctx, time.Now().Add(-within))
}

// EnrichWithAddress reverse-geocodes a stored report on demand.
func (t *Tracker) EnrichWithAddress(ctx context.Context, locationID string) (*domain.Location, error) {
	loc, err := t.locations.FindByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if loc.Address != nil || t.geocoder == nil {
		return loc, nil
	}

	addr, err := t.geocoder.ReverseGeocode(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding failed: %w", err)
	}
	loc.Address = &addr

	if err := t.locations.Save(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to save enriched location: %w", err)
	}
	return loc, nil
}

// DeleteShipmentData removes all reports and history buckets for a
// shipment. Administrative use only.
func (t *Tracker) DeleteShipmentData(ctx context.Context, shipmentID string) error {
	if err := t.locations.DeleteByShipment(ctx, shipmentID); err != nil {
		return err
	}
	return t.history.DeleteByShipment(ctx, shipmentID)
}

// ArchiveOlderThan compresses history buckets older than the cutoff down
// to a coarse trace.
func (t *Tracker) ArchiveOlderThan(ctx context.Context, days int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(domain.DateFormat)

	buckets, err := t.history.FindOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list old history buckets: %w", err)
	}

	for _, bucket := range buckets {
		bucket.Compress(archiveKeepPoints)
		if err := t.history.Save(ctx, bucket); err != nil {
			return fmt.Errorf("failed to save archived bucket %s: %w", bucket.ID, err)
		}
	}

	logger.Get().Info("Archived location history",
		zap.Int("buckets", len(buckets)),
		zap.String("cutoff", cutoff),
	)
	return nil
}

func (t *Tracker) enrich(ctx context.Context, loc *domain.Location, req UpdateRequest) {
	loc.Altitude = req.Altitude
	loc.Speed = req.Speed
	loc.Heading = req.Heading
	loc.Accuracy = req.Accuracy
	loc.BatteryLevel = req.BatteryLevel
	if req.Source != "" {
		loc.Source = req.Source
	}

	loc.Quality = domain.DeriveQuality(req.Accuracy)
	loc.IsMoving = domain.DeriveIsMoving(req.Speed)

	if t.stops != nil {
		if stopID, distance, ok := t.stops.NearestStop(ctx, loc.ShipmentID, loc.Latitude, loc.Longitude, t.stopRadius); ok {
			loc.StopID = stopID
			loc.DistanceFromStop = &distance
		}
	}
}

func (t *Tracker) appendHistory(ctx context.Context, loc *domain.Location) error {
	date := loc.Timestamp.UTC().Format(domain.DateFormat)

	bucket, err := t.history.FindBucket(ctx, loc.ShipmentID, date)
	if errors.Is(err, ports.ErrNotFound) {
		bucket = domain.NewDailyHistory(loc.ShipmentID, date)
	} else if err != nil {
		return err
	}

	bucket.Append(domain.HistoryPoint{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Altitude:  loc.Altitude,
		Speed:     loc.Speed,
		Heading:   loc.Heading,
		Timestamp: loc.Timestamp,
	})

	if len(bucket.Points) > t.historyCap {
		bucket.Compress(t.historyCap / historyCompressionDivisor)
	}

	return t.history.Save(ctx, bucket)
}

func (t *Tracker) correlateGeofence(loc *domain.Location, last eventdomain.DomainEvent) {
	switch p := last.Payload.(type) {
	case eventdomain.GeofenceEntered:
		loc.GeofenceID = p.GeofenceID
		loc.GeofenceEvent = domain.GeofenceEnter
	case eventdomain.GeofenceExited:
		loc.GeofenceID = p.GeofenceID
		loc.GeofenceEvent = domain.GeofenceExit
	case eventdomain.GeofenceDwelled:
		loc.GeofenceID = p.GeofenceID
		loc.GeofenceEvent = domain.GeofenceDwell
	}
}

func derefOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
