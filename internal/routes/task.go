package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/earnmaster/engine/internal/task"
)

// RegisterTaskRoutes wires the mission catalog and completion endpoints.
func RegisterTaskRoutes(r fiber.Router, h *task.Handler) {
	r.Get("/tasks", h.List)
	r.Post("/tasks/:taskId/complete", h.Complete)
}
