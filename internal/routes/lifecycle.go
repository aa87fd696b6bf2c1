package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/earnmaster/engine/internal/lifecycle"
)

// RegisterLifecycleRoutes wires self-service deletion endpoints.
func RegisterLifecycleRoutes(r fiber.Router, h *lifecycle.Handler) {
	r.Post("/me/delete", h.ScheduleDeletion)
	r.Post("/me/recover", h.Recover)
}
