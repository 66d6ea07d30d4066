package handler

import (
	"hospital-queue/internal/http/middleware"

	"github.com/gofiber/fiber/v2"
)

// RegisterDisplay mounts the lobby board feed behind basic auth.
func (h *Handler) RegisterDisplay(app *fiber.App, user, pass string) {
	app.Get("/display/:hospitalId", middleware.BasicAuth(user, pass), h.DisplayBoard)
}

// DisplayBoard lists every queue a hospital has open today, for lobby screens.
func (h *Handler) DisplayBoard(c *fiber.Ctx) error {
	date := h.Engine.ServiceDate()

	views, err := h.Engine.ListQueues(c.UserContext(), c.Params("hospitalId"), date)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", fiber.Map{
		"date":   date,
		"queues": views,
	})
}
