package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/services"
)

type CheckoutHandler struct {
	service checkoutApplicationService
}

type checkoutApplicationService interface {
	Checkout(ctx context.Context, customerID int64) (*services.CheckoutResult, error)
}

func NewCheckoutHandler(service *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "customer" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	result, err := h.service.Checkout(c.Context(), actorID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCartEmpty):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cart is empty"})
		case errors.Is(err, services.ErrSlotConflict):
			return slotConflictResponse(c, "A reservation in the cart is no longer available", err)
		case errors.Is(err, services.ErrChargeDeclined):
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "Charge declined"})
		case errors.Is(err, services.ErrInvalidStateTransition):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).
				JSON(fiber.Map{"error": "Failed to complete checkout"})
		}
	}

	return c.JSON(fiber.Map{"checkout": result})
}
