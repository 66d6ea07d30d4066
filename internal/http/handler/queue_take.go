package handler

import (
	"hospital-queue/internal/queue"

	"github.com/gofiber/fiber/v2"
)

type TakeQueueRequest struct {
	HospitalID string `json:"hospital_id"`
	Department string `json:"department"`
	// Date defaults to today's service date.
	Date string `json:"date"`
}

// TakeQueue books a token for the calling patient.
func (h *Handler) TakeQueue(c *fiber.Ctx) error {
	var req TakeQueueRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	userID, _ := currentUser(c)
	if req.Date == "" {
		req.Date = h.Engine.ServiceDate()
	}

	tok, err := h.Engine.CreateToken(c.UserContext(), queue.CreateTokenInput{
		UserID:         userID,
		HospitalID:     req.HospitalID,
		Department:     req.Department,
		Date:           req.Date,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		return fail(c, err)
	}

	return ok(c, fiber.StatusCreated, "Token booked", tok)
}
