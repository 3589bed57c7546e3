package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/services"
)

type CartHandler struct {
	service cartApplicationService
}

type cartApplicationService interface {
	GetCart(ctx context.Context, customerID int64) (*models.Cart, models.PriceQuote, error)
	AddItem(ctx context.Context, customerID int64, input services.AddCartItemInput) (*models.Cart, models.PriceQuote, error)
	RemoveItem(ctx context.Context, customerID int64, key string) (*models.Cart, models.PriceQuote, error)
	SetQuantity(ctx context.Context, customerID int64, key string, quantity int) (*models.Cart, models.PriceQuote, error)
	ApplyPromo(ctx context.Context, customerID int64, code string) (*models.Cart, models.PriceQuote, error)
}

func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{service: service}
}

type addCartItemRequest struct {
	ItemType       string  `json:"item_type"`
	Title          string  `json:"title"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	Quantity       int     `json:"quantity"`
	ReservationID  *int64  `json:"reservation_id"`
	PlayerName     *string `json:"player_name"`
	EventDate      *string `json:"event_date"`
	Location       *string `json:"location"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type applyPromoRequest struct {
	Code string `json:"code"`
}

func (h *CartHandler) customerID(c *fiber.Ctx) (int64, bool, error) {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return 0, false, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "customer" {
		return 0, false, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	return actorID, true, nil
}

func (h *CartHandler) Get(c *fiber.Ctx) error {
	customerID, ok, err := h.customerID(c)
	if !ok {
		return err
	}

	cart, quote, err := h.service.GetCart(c.Context(), customerID)
	if err != nil {
		return mapCartError(c, err)
	}
	return c.JSON(fiber.Map{"cart": cart, "quote": quote})
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	customerID, ok, err := h.customerID(c)
	if !ok {
		return err
	}

	var req addCartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	cart, quote, err := h.service.AddItem(c.Context(), customerID, services.AddCartItemInput{
		ItemType:       strings.TrimSpace(req.ItemType),
		Title:          req.Title,
		UnitPriceCents: req.UnitPriceCents,
		Quantity:       req.Quantity,
		ReservationID:  req.ReservationID,
		PlayerName:     req.PlayerName,
		EventDate:      req.EventDate,
		Location:       req.Location,
	})
	if err != nil {
		return mapCartError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"cart": cart, "quote": quote})
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	customerID, ok, err := h.customerID(c)
	if !ok {
		return err
	}

	key := strings.TrimSpace(c.Params("key"))
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item key"})
	}

	cart, quote, err := h.service.RemoveItem(c.Context(), customerID, key)
	if err != nil {
		return mapCartError(c, err)
	}
	return c.JSON(fiber.Map{"cart": cart, "quote": quote})
}

func (h *CartHandler) SetQuantity(c *fiber.Ctx) error {
	customerID, ok, err := h.customerID(c)
	if !ok {
		return err
	}

	key := strings.TrimSpace(c.Params("key"))
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item key"})
	}

	var req setQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	cart, quote, err := h.service.SetQuantity(c.Context(), customerID, key, req.Quantity)
	if err != nil {
		return mapCartError(c, err)
	}
	return c.JSON(fiber.Map{"cart": cart, "quote": quote})
}

func (h *CartHandler) ApplyPromo(c *fiber.Ctx) error {
	customerID, ok, err := h.customerID(c)
	if !ok {
		return err
	}

	var req applyPromoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	cart, quote, err := h.service.ApplyPromo(c.Context(), customerID, req.Code)
	if err != nil {
		return mapCartError(c, err)
	}
	return c.JSON(fiber.Map{"cart": cart, "quote": quote})
}

func mapCartError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidQuantity):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Cart item not found"})
	case errors.Is(err, services.ErrUnknownPromo):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Unknown promo code"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process cart request"})
	}
}
