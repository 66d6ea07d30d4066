package handler

import (
	"hospital-queue/internal/audit"
	"hospital-queue/internal/models"
	"hospital-queue/internal/queue"
	"hospital-queue/internal/realtime"

	"github.com/gofiber/fiber/v2"
)

// Handler serves the patient, staff and display endpoints. Logs and Hub
// are optional; their routes answer 503 and are skipped respectively when nil.
type Handler struct {
	Engine *queue.Engine
	Logs   audit.Reader
	Hub    *realtime.Hub
}

func New(engine *queue.Engine, logs audit.Reader, hub *realtime.Hub) *Handler {
	return &Handler{Engine: engine, Logs: logs, Hub: hub}
}

func queueKeyParams(c *fiber.Ctx) models.QueueKey {
	return models.QueueKey{
		HospitalID: c.Params("hospitalId"),
		Department: c.Params("department"),
		Date:       c.Params("date"),
	}
}

func currentUser(c *fiber.Ctx) (userID, role string) {
	userID, _ = c.Locals("user_id").(string)
	role, _ = c.Locals("role").(string)
	return userID, role
}

func idempotencyKey(c *fiber.Ctx) string {
	return c.Get("Idempotency-Key")
}
