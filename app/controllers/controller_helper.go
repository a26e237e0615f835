package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/frankariuki86-png/megapark-backend/app/repository"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/mpesa"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/payment"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/settlement"
)

// writeError maps workflow errors onto the JSON error surface. Validation
// detail is safe to return; provider internals are not.
func writeError(c *fiber.Ctx, err error) error {
	var verr *settlement.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_failed",
			"details": verr.Fields,
		})
	case errors.Is(err, settlement.ErrEmptyPatch):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": "at least one field required",
		})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, payment.ErrIntentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not_found",
		})
	case errors.Is(err, payment.ErrSignature):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid_signature",
		})
	case errors.Is(err, payment.ErrProvider), errors.Is(err, mpesa.ErrProvider):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "payment_failed",
			"message": "payment provider request failed",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal_error",
		})
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "bad_request",
		"message": message,
	})
}
