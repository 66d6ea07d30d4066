package handler

import (
	"errors"

	"hospital-queue/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

func ok(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"code":    apperror.TypeValidation,
		"error":   msg,
	})
}

var statusByType = map[apperror.ErrorType]int{
	apperror.TypeValidation:        fiber.StatusBadRequest,
	apperror.TypeDuplicateBooking:  fiber.StatusConflict,
	apperror.TypeInvalidTokenState: fiber.StatusUnprocessableEntity,
	apperror.TypeConflict:          fiber.StatusConflict,
	apperror.TypeNotFound:          fiber.StatusNotFound,
	apperror.TypeDependencyFailure: fiber.StatusServiceUnavailable,
	apperror.TypeForbidden:         fiber.StatusForbidden,
}

// fail renders an engine error in the response envelope.
func fail(c *fiber.Ctx, err error) error {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		log.Ctx(c.UserContext()).Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Internal server error",
		})
	}

	status, known := statusByType[appErr.Type]
	if !known {
		status = fiber.StatusInternalServerError
	}

	body := fiber.Map{
		"success":   false,
		"code":      appErr.Type,
		"error":     appErr.Message,
		"retryable": appErr.Retryable(),
	}
	switch appErr.Type {
	case apperror.TypeDuplicateBooking:
		body["existing_token"] = appErr.TokenID
	case apperror.TypeConflict:
		c.Set(fiber.HeaderRetryAfter, "1")
	case apperror.TypeDependencyFailure:
		log.Ctx(c.UserContext()).Error().Err(err).Str("path", c.Path()).Msg("dependency failure")
	}
	return c.Status(status).JSON(body)
}
