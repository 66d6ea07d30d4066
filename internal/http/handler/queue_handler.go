package handler

import (
	"context"

	"hospital-queue/internal/apperror"
	"hospital-queue/internal/helper"
	"hospital-queue/internal/models"
	"hospital-queue/internal/queue"

	"github.com/gofiber/fiber/v2"
)

type DelayRequest struct {
	Minutes int `json:"minutes"`
}

type ServiceTimeRequest struct {
	Minutes int `json:"minutes"`
}

type TokenActionRequest struct {
	TokenID string `json:"token_id"`
}

func controlInput(c *fiber.Ctx) queue.ControlInput {
	staffID, _ := currentUser(c)
	return queue.ControlInput{
		Key:            queueKeyParams(c),
		StaffID:        staffID,
		IdempotencyKey: idempotencyKey(c),
	}
}

func (h *Handler) PauseQueue(c *fiber.Ctx) error {
	view, err := h.Engine.PauseQueue(c.UserContext(), controlInput(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Queue paused", view)
}

func (h *Handler) ResumeQueue(c *fiber.Ctx) error {
	view, err := h.Engine.ResumeQueue(c.UserContext(), controlInput(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Queue resumed", view)
}

func (h *Handler) AddDelay(c *fiber.Ctx) error {
	var req DelayRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	view, err := h.Engine.AddDelay(c.UserContext(), controlInput(c), req.Minutes)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Delay added", view)
}

func (h *Handler) UpdateServiceTime(c *fiber.Ctx) error {
	var req ServiceTimeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	view, err := h.Engine.UpdateServiceTime(c.UserContext(), controlInput(c), req.Minutes)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Service time updated", view)
}

// AdvanceQueue serves a token; without token_id it serves the head.
func (h *Handler) AdvanceQueue(c *fiber.Ctx) error {
	return h.dequeue(c, h.Engine.AdvanceQueue, "Token served")
}

func (h *Handler) MarkNoShow(c *fiber.Ctx) error {
	return h.dequeue(c, h.Engine.MarkNoShow, "Token marked no-show")
}

type dequeueOp func(ctx context.Context, in queue.ControlInput, tokenID string) (*models.Token, error)

func (h *Handler) dequeue(c *fiber.Ctx, op dequeueOp, message string) error {
	var req TokenActionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	tok, err := op(c.UserContext(), controlInput(c), req.TokenID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, message, tok)
}

// ListQueues is the staff dashboard of every queue a hospital opened on a date.
func (h *Handler) ListQueues(c *fiber.Ctx) error {
	date := c.Query("date")
	if date == "" {
		date = h.Engine.ServiceDate()
	}

	views, err := h.Engine.ListQueues(c.UserContext(), c.Query("hospital_id"), date)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", views)
}

// QueueLogs returns the audit trail of staff actions on a queue.
func (h *Handler) QueueLogs(c *fiber.Ctx) error {
	if h.Logs == nil {
		return fail(c, apperror.NewDependencyFailure("audit log is not queryable with the configured driver", nil))
	}

	key := queueKeyParams(c)
	if err := helper.ValidateQueueKey(key); err != nil {
		return fail(c, err)
	}

	entries, err := h.Logs.ListByQueue(c.UserContext(), key.ID(), c.QueryInt("limit", 100))
	if err != nil {
		return fail(c, apperror.NewDependencyFailure("read audit log", err))
	}
	return ok(c, fiber.StatusOK, "", entries)
}
