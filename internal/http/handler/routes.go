package handler

import (
	"hospital-queue/internal/config"
	"hospital-queue/internal/http/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Register mounts every route on app.
func (h *Handler) Register(app *fiber.App, jwtSecret string) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Hospital queue API running",
		})
	})

	app.Get("/api/queue/:hospitalId/:department/:date", h.GetQueueStatus)

	if h.Hub != nil {
		app.Get("/ws/queue/:hospitalId/:department/:date", WebSocketUpgrade, websocket.New(h.QueueWebSocket))
	}

	api := app.Group("/api", middleware.JWTAuth(jwtSecret))

	// Patients
	api.Post("/queue/take", middleware.RoleAuth(config.RolePatient), h.TakeQueue)
	api.Get("/tokens/:id", h.GetToken)
	api.Post("/tokens/:id/cancel", middleware.RoleAuth(config.RolePatient), h.CancelToken)

	// Staff. HospitalScope reads route params, so it is mounted per route.
	staff := api.Group("/staff", middleware.RoleAuth(config.RoleStaff))
	scope := middleware.HospitalScope()
	staff.Get("/queues", scope, h.ListQueues)

	q := staff.Group("/queue/:hospitalId/:department/:date")
	q.Post("/pause", scope, h.PauseQueue)
	q.Post("/resume", scope, h.ResumeQueue)
	q.Post("/delay", scope, h.AddDelay)
	q.Post("/advance", scope, h.AdvanceQueue)
	q.Post("/no-show", scope, h.MarkNoShow)
	q.Post("/service-time", scope, h.UpdateServiceTime)
	q.Get("/logs", scope, h.QueueLogs)
}
