package handler

import (
	"hospital-queue/internal/apperror"
	"hospital-queue/internal/config"

	"github.com/gofiber/fiber/v2"
)

// GetToken returns a token to its owner, or to staff of its hospital.
func (h *Handler) GetToken(c *fiber.Ctx) error {
	userID, role := currentUser(c)

	if role == config.RoleStaff {
		hospitalID, _ := c.Locals("hospital_id").(string)
		tok, err := h.Engine.GetTokenForStaff(c.UserContext(), c.Params("id"), userID, hospitalID)
		if err != nil {
			return fail(c, err)
		}
		return ok(c, fiber.StatusOK, "", tok)
	}

	tok, err := h.Engine.GetToken(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if tok.UserID != userID {
		return fail(c, apperror.NewNotFound("token %s not found", c.Params("id")))
	}
	return ok(c, fiber.StatusOK, "", tok)
}

// CancelToken lets a patient give up their own token.
func (h *Handler) CancelToken(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	tok, err := h.Engine.CancelToken(c.UserContext(), c.Params("id"), userID, idempotencyKey(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Token cancelled", tok)
}

// GetQueueStatus is the public queue view: numbers, positions and waits,
// never user ids.
func (h *Handler) GetQueueStatus(c *fiber.Ctx) error {
	view, err := h.Engine.GetQueueStatus(c.UserContext(), queueKeyParams(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", view)
}
