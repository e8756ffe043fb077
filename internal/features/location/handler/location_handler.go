package handler

import (
	"errors"
	"time"

	"shipment-tracker/internal/core/geo"
	"shipment-tracker/internal/features/location/domain"
	"shipment-tracker/internal/features/location/ports"
	"shipment-tracker/internal/features/location/service"

	"github.com/gofiber/fiber/v2"
)

// LocationHandler handles HTTP requests for location tracking and geofence
// management.
type LocationHandler struct {
	tracker   *service.Tracker
	geofences *service.GeofenceService
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(tracker *service.Tracker, geofences *service.GeofenceService) *LocationHandler {
	return &LocationHandler{tracker: tracker, geofences: geofences}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// updateRequest is the POST /locations body.
type updateRequest struct {
	ShipmentID   string                `json:"shipment_id"`
	DeviceID     string                `json:"device_id"`
	Latitude     float64               `json:"latitude"`
	Longitude    float64               `json:"longitude"`
	Timestamp    time.Time             `json:"timestamp"`
	Altitude     *float64              `json:"altitude,omitempty"`
	Speed        *float64              `json:"speed,omitempty"`
	Heading      *float64              `json:"heading,omitempty"`
	Accuracy     *float64              `json:"accuracy,omitempty"`
	BatteryLevel *float64              `json:"battery_level,omitempty"`
	Source       domain.LocationSource `json:"source,omitempty"`
}

// Update ingests one position report.
func (h *LocationHandler) Update(c *fiber.Ctx) error {
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	loc, err := h.tracker.Update(c.Context(), service.UpdateRequest{
		ShipmentID:   req.ShipmentID,
		DeviceID:     req.DeviceID,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Timestamp:    req.Timestamp,
		Altitude:     req.Altitude,
		Speed:        req.Speed,
		Heading:      req.Heading,
		Accuracy:     req.Accuracy,
		BatteryLevel: req.BatteryLevel,
		Source:       req.Source,
	})
	if err != nil {
		return h.failFromError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(loc)
}

// Latest returns the shipment's current position.
func (h *LocationHandler) Latest(c *fiber.Ctx) error {
	loc, err := h.tracker.Latest(c.Context(), c.Params("id"))
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(loc)
}

// Range returns the shipment's reports within a time window.
func (h *LocationHandler) Range(c *fiber.Ctx) error {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return h.fail(c, fiber.StatusBadRequest, "start query parameter must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return h.fail(c, fiber.StatusBadRequest, "end query parameter must be RFC3339")
	}

	locations, err := h.tracker.Range(c.Context(), c.Params("id"), start, end)
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(locations)
}

// DailyHistory returns the shipment's history bucket for one day.
func (h *LocationHandler) DailyHistory(c *fiber.Ctx) error {
	history, err := h.tracker.DailyHistory(c.Context(), c.Params("id"), c.Params("date"))
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(history)
}

// Moving returns every shipment currently moving.
func (h *LocationHandler) Moving(c *fiber.Ctx) error {
	within := 15 * time.Minute
	if q := c.QueryInt("within_minutes"); q > 0 {
		within = time.Duration(q) * time.Minute
	}

	locations, err := h.tracker.Moving(c.Context(), within)
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(locations)
}

// EnrichAddress reverse-geocodes a stored report.
func (h *LocationHandler) EnrichAddress(c *fiber.Ctx) error {
	loc, err := h.tracker.EnrichWithAddress(c.Context(), c.Params("id"))
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(loc)
}

// createGeofenceRequest is the POST /geofences body.
type createGeofenceRequest struct {
	Name       string                    `json:"name"`
	CustomerID string                    `json:"customer_id"`
	Type       domain.GeofenceType       `json:"type"`
	CenterLat  float64                   `json:"center_latitude,omitempty"`
	CenterLon  float64                   `json:"center_longitude,omitempty"`
	Radius     float64                   `json:"radius_meters,omitempty"`
	Boundary   []geo.Point               `json:"boundary,omitempty"`
	Policy     domain.NotificationPolicy `json:"notification"`
}

// CreateGeofence registers a circular or polygon geofence.
func (h *LocationHandler) CreateGeofence(c *fiber.Ctx) error {
	var req createGeofenceRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	var (
		fence *domain.Geofence
		err   error
	)
	switch req.Type {
	case domain.GeofencePolygon:
		fence, err = h.geofences.CreatePolygon(c.Context(), req.Name, req.CustomerID, req.Boundary, req.Policy)
	default:
		fence, err = h.geofences.CreateCircular(c.Context(), req.Name, req.CustomerID, req.CenterLat, req.CenterLon, req.Radius, req.Policy)
	}
	if err != nil {
		return h.failFromError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fence)
}

// GetGeofence returns a geofence by id.
func (h *LocationHandler) GetGeofence(c *fiber.Ctx) error {
	fence, err := h.geofences.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(fence)
}

// ListActiveGeofences returns every active geofence.
func (h *LocationHandler) ListActiveGeofences(c *fiber.Ctx) error {
	fences, err := h.geofences.ListActive(c.Context())
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(fences)
}

// ActivateGeofence enables a geofence.
func (h *LocationHandler) ActivateGeofence(c *fiber.Ctx) error {
	fence, err := h.geofences.Activate(c.Context(), c.Params("id"))
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(fence)
}

// DeactivateGeofence disables a geofence.
func (h *LocationHandler) DeactivateGeofence(c *fiber.Ctx) error {
	fence, err := h.geofences.Deactivate(c.Context(), c.Params("id"))
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(fence)
}

// UpdateGeofenceRadius changes a circular geofence's radius.
func (h *LocationHandler) UpdateGeofenceRadius(c *fiber.Ctx) error {
	var body struct {
		RadiusMeters float64 `json:"radius_meters"`
	}
	if err := c.BodyParser(&body); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	fence, err := h.geofences.UpdateRadius(c.Context(), c.Params("id"), body.RadiusMeters)
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(fence)
}

// DeleteGeofence removes a geofence definition.
func (h *LocationHandler) DeleteGeofence(c *fiber.Ctx) error {
	if err := h.geofences.Delete(c.Context(), c.Params("id")); err != nil {
		return h.failFromError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *LocationHandler) failFromError(c *fiber.Ctx, err error) error {
	return h.fail(c, statusFor(err), err.Error())
}

func (h *LocationHandler) fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{
		Message: message,
		RayID:   h.rayID(c),
	})
}

func (h *LocationHandler) rayID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

// statusFor maps domain and port errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrNotFound), errors.Is(err, ports.ErrGeofenceNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ports.ErrDuplicateGeofenceName):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrStaleUpdate):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrGeofenceState):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidLocationData), errors.Is(err, domain.ErrInvalidGeofence):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
