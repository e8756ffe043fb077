package handler

import (
	"errors"
	"time"

	sagaservice "shipment-tracker/internal/features/saga/service"
	"shipment-tracker/internal/features/shipment/domain"
	"shipment-tracker/internal/features/shipment/ports"
	"shipment-tracker/internal/features/shipment/service"

	"github.com/gofiber/fiber/v2"
)

// ShipmentHandler handles HTTP requests for shipment lifecycle operations.
type ShipmentHandler struct {
	shipments    *service.Service
	cancellation *sagaservice.CancellationSaga
}

// NewShipmentHandler creates a new ShipmentHandler.
func NewShipmentHandler(shipments *service.Service, cancellation *sagaservice.CancellationSaga) *ShipmentHandler {
	return &ShipmentHandler{
		shipments:    shipments,
		cancellation: cancellation,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// createShipmentRequest is the POST /shipments body.
type createShipmentRequest struct {
	ShipmentNumber  string              `json:"shipment_number"`
	CustomerID      string              `json:"customer_id"`
	CarrierID       string              `json:"carrier_id"`
	Mode            domain.ShipmentMode `json:"mode"`
	Origin          domain.Address      `json:"origin"`
	Destination     domain.Address      `json:"destination"`
	PlannedPickup   time.Time           `json:"planned_pickup_time"`
	PlannedDelivery time.Time           `json:"planned_delivery_time"`
	ReferenceNumber string              `json:"reference_number,omitempty"`
	Tags            []string            `json:"tags,omitempty"`
	Stops           []domain.Stop       `json:"stops,omitempty"`
}

// Create registers a new shipment.
func (h *ShipmentHandler) Create(c *fiber.Ctx) error {
	var req createShipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	shipment, err := h.shipments.Create(c.Context(), service.CreateRequest{
		ShipmentNumber:  req.ShipmentNumber,
		CustomerID:      req.CustomerID,
		CarrierID:       req.CarrierID,
		Mode:            req.Mode,
		Origin:          req.Origin,
		Destination:     req.Destination,
		PlannedPickup:   req.PlannedPickup,
		PlannedDelivery: req.PlannedDelivery,
		ReferenceNumber: req.ReferenceNumber,
		Tags:            req.Tags,
		Stops:           req.Stops,
	})
	if err != nil {
		return h.failFromError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(shipment)
}

// Get returns a shipment by id.
func (h *ShipmentHandler) Get(c *fiber.Ctx) error {
	shipment, err := h.shipments.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(shipment)
}

// GetByNumber returns a shipment by its business key.
func (h *ShipmentHandler) GetByNumber(c *fiber.Ctx) error {
	shipment, err := h.shipments.GetByNumber(c.Context(), c.Params("number"))
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(shipment)
}

// Confirm moves the shipment to CONFIRMED.
func (h *ShipmentHandler) Confirm(c *fiber.Ctx) error {
	var body struct {
		Actor string `json:"actor"`
	}
	_ = c.BodyParser(&body)

	shipment, err := h.shipments.Confirm(c.Context(), c.Params("id"), body.Actor)
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(shipment)
}

// Dispatch moves the shipment to DISPATCHED.
func (h *ShipmentHandler) Dispatch(c *fiber.Ctx) error {
	var body struct {
		At time.Time `json:"at"`
	}
	_ = c.BodyParser(&body)
	if body.At.IsZero() {
		body.At = time.Now().UTC()
	}

	shipment, err := h.shipments.Dispatch(c.Context(), c.Params("id"), body.At)
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(shipment)
}

// StartTransit moves the shipment to IN_TRANSIT.
func (h *ShipmentHandler) StartTransit(c *fiber.Ctx) error {
	var body struct {
		Actor string `json:"actor"`
	}
	_ = c.BodyParser(&body)

	shipment, err := h.shipments.StartTransit(c.Context(), c.Params("id"), body.Actor)
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(shipment)
}

// Deliver completes the shipment.
func (h *ShipmentHandler) Deliver(c *fiber.Ctx) error {
	var body struct {
		At         time.Time `json:"at"`
		ReceivedBy string    `json:"received_by"`
	}
	_ = c.BodyParser(&body)
	if body.At.IsZero() {
		body.At = time.Now().UTC()
	}

	shipment, err := h.shipments.Deliver(c.Context(), c.Params("id"), body.At, body.ReceivedBy)
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(shipment)
}

// MarkException flags an in-transit problem.
func (h *ShipmentHandler) MarkException(c *fiber.Ctx) error {
	var body struct {
		ExceptionType string `json:"exception_type"`
		Description   string `json:"description"`
	}
	if err := c.BodyParser(&body); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	shipment, err := h.shipments.MarkException(c.Context(), c.Params("id"), body.ExceptionType, body.Description)
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(shipment)
}

// ResumeTransit returns an EXCEPTION shipment to IN_TRANSIT.
func (h *ShipmentHandler) ResumeTransit(c *fiber.Ctx) error {
	var body struct {
		Actor string `json:"actor"`
	}
	_ = c.BodyParser(&body)

	shipment, err := h.shipments.ResumeTransit(c.Context(), c.Params("id"), body.Actor)
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(shipment)
}

// AddStop appends a stop to the route.
func (h *ShipmentHandler) AddStop(c *fiber.Ctx) error {
	var stop domain.Stop
	if err := c.BodyParser(&stop); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	shipment, err := h.shipments.AddStop(c.Context(), c.Params("id"), stop)
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(shipment)
}

// UpdateETA sets a new estimated delivery time.
func (h *ShipmentHandler) UpdateETA(c *fiber.Ctx) error {
	var body struct {
		EstimatedDelivery time.Time `json:"estimated_delivery_time"`
	}
	if err := c.BodyParser(&body); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	shipment, err := h.shipments.UpdateETA(c.Context(), c.Params("id"), body.EstimatedDelivery)
	if err != nil {
		return h.failFromError(c, err)
	}
	return c.JSON(shipment)
}

// Cancel runs the cancellation workflow for the shipment.
func (h *ShipmentHandler) Cancel(c *fiber.Ctx) error {
	var body struct {
		Reason         string `json:"reason"`
		RequestedBy    string `json:"requested_by"`
		RefundRequired bool   `json:"refund_required"`
	}
	if err := c.BodyParser(&body); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.cancellation.Execute(c.Context(), sagaservice.CancellationRequest{
		ShipmentID:     c.Params("id"),
		Reason:         body.Reason,
		RequestedBy:    body.RequestedBy,
		RefundRequired: body.RefundRequired,
	})
	if err != nil {
		// The ledger shows how far the run got before compensating.
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": err.Error(),
			"saga":    record,
			"ray_id":  h.rayID(c),
		})
	}
	return c.JSON(record)
}

func (h *ShipmentHandler) failFromError(c *fiber.Ctx, err error) error {
	return h.fail(c, statusFor(err), err.Error())
}

func (h *ShipmentHandler) fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{
		Message: message,
		RayID:   h.rayID(c),
	})
}

func (h *ShipmentHandler) rayID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

// statusFor maps domain and port errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ports.ErrConcurrentModification):
		return fiber.StatusConflict
	case errors.Is(err, ports.ErrDuplicateShipmentNumber):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidState):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrPreconditionFailed):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidArgument):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
