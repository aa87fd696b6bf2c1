package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/earnmaster/engine/internal/request"
)

// RegisterRequestRoutes wires withdrawal, deposit and verification
// submission endpoints.
func RegisterRequestRoutes(r fiber.Router, h *request.Handler) {
	r.Post("/requests/withdrawals", h.CreateWithdrawal)
	r.Post("/requests/deposits", h.CreateDeposit)
	r.Post("/requests/verifications", h.SubmitVerification)
	r.Get("/me/requests", h.ListMine)
}
