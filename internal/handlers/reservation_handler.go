package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/repository"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/services"
)

type ReservationHandler struct {
	service reservationApplicationService
}

type reservationApplicationService interface {
	Reserve(ctx context.Context, customerID int64, input services.ReserveInput) (*models.Reservation, error)
	ListReservations(ctx context.Context, actorID int64, role string, filter repository.ReservationListFilter) ([]models.Reservation, error)
	GetReservation(ctx context.Context, actorID int64, role string, reservationID int64) (*models.Reservation, error)
	UpdateStatus(ctx context.Context, actorID int64, role string, reservationID int64, requestedStatus, reason string) (*models.Reservation, error)
}

func NewReservationHandler(service *services.ReservationService) *ReservationHandler {
	return &ReservationHandler{service: service}
}

type createReservationRequest struct {
	TrainerID   int64   `json:"trainer_id"`
	SessionDate string  `json:"session_date"`
	StartMinute int     `json:"start_minute"`
	GroupSize   int     `json:"group_size"`
	PackageCode string  `json:"package_code"`
	Location    *string `json:"location"`
}

type updateReservationStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "customer" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	customerID, _, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Location != nil && strings.TrimSpace(*req.Location) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "location must not be empty"})
	}

	reservation, err := h.service.Reserve(c.Context(), customerID, services.ReserveInput{
		TrainerID:   req.TrainerID,
		SessionDate: strings.TrimSpace(req.SessionDate),
		StartMinute: req.StartMinute,
		GroupSize:   req.GroupSize,
		PackageCode: strings.TrimSpace(req.PackageCode),
		Location:    req.Location,
	})
	if err != nil {
		return mapReservationError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"reservation": reservation})
}

func (h *ReservationHandler) List(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "customer" && role != "trainer") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, _, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if timeframe != "" && timeframe != "upcoming" && timeframe != "past" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "timeframe must be upcoming or past"})
	}

	reservations, err := h.service.ListReservations(c.Context(), actorID, role, repository.ReservationListFilter{
		Status:    strings.TrimSpace(c.Query("status")),
		Timeframe: timeframe,
	})
	if err != nil {
		return mapReservationError(c, err)
	}

	return c.JSON(fiber.Map{"reservations": reservations})
}

func (h *ReservationHandler) Get(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "customer" && role != "trainer") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, _, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	reservationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || reservationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reservation id"})
	}

	reservation, err := h.service.GetReservation(c.Context(), actorID, role, reservationID)
	if err != nil {
		return mapReservationError(c, err)
	}

	return c.JSON(fiber.Map{"reservation": reservation})
}

func (h *ReservationHandler) UpdateStatus(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "customer" && role != "trainer") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, _, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	reservationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || reservationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reservation id"})
	}

	var req updateReservationStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Status) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "status is required"})
	}

	reservation, err := h.service.UpdateStatus(
		c.Context(), actorID, role, reservationID, req.Status, req.Reason)
	if err != nil {
		return mapReservationError(c, err)
	}

	return c.JSON(fiber.Map{"reservation": reservation})
}

func mapReservationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrSlotConflict):
		return slotConflictResponse(c, "Slot is already reserved", err)
	case errors.Is(err, services.ErrOutsideAvailability):
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"error": "Slot is outside the trainer's availability"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrTrainerNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Trainer not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reservation not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process reservation request"})
	}
}
