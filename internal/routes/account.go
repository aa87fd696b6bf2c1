package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/earnmaster/engine/internal/account"
)

// RegisterAccountRoutes wires account registration and profile endpoints.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	r.Post("/accounts", h.Register)
	r.Get("/me", h.Me)
}
