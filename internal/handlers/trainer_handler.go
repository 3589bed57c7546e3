package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/repository"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/services"
)

type slotListingService interface {
	ListSlots(ctx context.Context, trainerID int64, from, to time.Time) ([]models.Slot, error)
}

type TrainerHandler struct {
	db               *pgxpool.Pool
	profileRepo      *repository.TrainerProfileRepository
	availabilityRepo *repository.AvailabilityRepository
	slotService      slotListingService
}

func NewTrainerHandler(
	db *pgxpool.Pool,
	profileRepo *repository.TrainerProfileRepository,
	availabilityRepo *repository.AvailabilityRepository,
	slotService *services.SlotService,
) *TrainerHandler {
	return &TrainerHandler{
		db:               db,
		profileRepo:      profileRepo,
		availabilityRepo: availabilityRepo,
		slotService:      slotService,
	}
}

type updateTrainerProfileRequest struct {
	FullName        string   `json:"full_name"`
	Bio             *string  `json:"bio"`
	Specialties     []string `json:"specialties"`
	HourlyRateCents int64    `json:"hourly_rate_cents"`
	HomeLocation    *string  `json:"home_location"`
}

type availabilityWindowRequest struct {
	DayOfWeek   int  `json:"day_of_week"`
	StartMinute int  `json:"start_minute"`
	EndMinute   int  `json:"end_minute"`
	Active      bool `json:"active"`
}

type putAvailabilityRequest struct {
	Windows []availabilityWindowRequest `json:"windows"`
}

func (h *TrainerHandler) ListTrainers(c *fiber.Ctx) error {
	profiles, err := h.profileRepo.ListOnboarded(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to list trainers"})
	}
	return c.JSON(fiber.Map{"trainers": profiles})
}

func (h *TrainerHandler) ListSlots(c *fiber.Ctx) error {
	trainerID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || trainerID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trainer id"})
	}

	var from, to time.Time
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		from, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "from must be a YYYY-MM-DD date"})
		}
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		to, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "to must be a YYYY-MM-DD date"})
		}
	}

	slots, err := h.slotService.ListSlots(c.Context(), trainerID, from, to)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRange) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date range"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to list slots"})
	}

	return c.JSON(fiber.Map{"slots": slots})
}

func (h *TrainerHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "trainer" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req updateTrainerProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "full_name is required"})
	}
	if req.HourlyRateCents <= 0 {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "hourly_rate_cents must be greater than 0"})
	}
	if len(req.Specialties) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "specialties are required"})
	}

	profile, err := h.profileRepo.Update(c.Context(), userID, repository.UpdateTrainerProfileInput{
		FullName:        req.FullName,
		Bio:             req.Bio,
		Specialties:     req.Specialties,
		HourlyRateCents: req.HourlyRateCents,
		HomeLocation:    req.HomeLocation,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *TrainerHandler) GetAvailability(c *fiber.Ctx) error {
	userID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "trainer" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	windows, err := h.availabilityRepo.ListByTrainer(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch availability"})
	}
	return c.JSON(fiber.Map{"windows": windows})
}

func (h *TrainerHandler) PutAvailability(c *fiber.Ctx) error {
	userID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "trainer" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req putAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	inputs := make([]repository.AvailabilityWindowInput, 0, len(req.Windows))
	for _, window := range req.Windows {
		if window.DayOfWeek < 0 || window.DayOfWeek > 6 {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "day_of_week must be between 0 and 6"})
		}
		if window.StartMinute < 0 || window.EndMinute > 24*60 ||
			window.StartMinute >= window.EndMinute {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "window minutes must satisfy 0 <= start < end <= 1440"})
		}
		if window.EndMinute-window.StartMinute < services.SlotGranularityMinutes {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "window must fit at least one full slot"})
		}
		inputs = append(inputs, repository.AvailabilityWindowInput{
			DayOfWeek:   window.DayOfWeek,
			StartMinute: window.StartMinute,
			EndMinute:   window.EndMinute,
			Active:      window.Active,
		})
	}

	tx, err := h.db.Begin(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to update availability"})
	}
	defer func() {
		_ = tx.Rollback(c.Context())
	}()

	if err := repository.NewAvailabilityRepository(tx).Replace(c.Context(), userID, inputs); err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to update availability"})
	}
	if err := tx.Commit(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to update availability"})
	}

	windows, err := h.availabilityRepo.ListByTrainer(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch availability"})
	}
	return c.JSON(fiber.Map{"windows": windows})
}
