package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/services"
)

func actorFromLocals(c *fiber.Ctx) (int64, string, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return 0, "", strconv.ErrSyntax
	}
	role, ok := c.Locals("role").(string)
	if !ok {
		return 0, "", strconv.ErrSyntax
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return 0, "", err
	}
	return userID, role, nil
}

// slotConflictResponse writes the 409 body, naming the contested slot when
// the error carries it.
func slotConflictResponse(c *fiber.Ctx, message string, err error) error {
	body := fiber.Map{"error": message}
	var conflict *services.SlotConflictError
	if errors.As(err, &conflict) {
		body["conflict"] = fiber.Map{
			"trainer_id":   conflict.TrainerID,
			"session_date": conflict.SessionDate,
			"start_minute": conflict.StartMinute,
		}
	}
	return c.Status(fiber.StatusConflict).JSON(body)
}
