package handler

import (
	"strconv"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindInsufficientStock, apperr.KindInsufficientAvailableStock:
		return fiber.StatusUnprocessableEntity
	case apperr.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes {"error", "kind"} with the status matching the error kind.
// Storage failures never leak their cause.
func respondError(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("Request failed")
		message = "internal storage error"
	}
	return c.Status(status).JSON(fiber.Map{"error": message, "kind": kind})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message, "kind": apperr.KindValidation})
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid %s %q", name, c.Params(name))
	}
	return uint(id), nil
}

func getUserID(c *fiber.Ctx) string {
	return middleware.OperatorID(c)
}
