package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/earnmaster/engine/internal/ledger"
)

// RegisterLedgerRoutes wires balance, history and points-spending endpoints.
func RegisterLedgerRoutes(r fiber.Router, h *ledger.Handler) {
	r.Get("/me/history", h.History)
	r.Post("/me/adfree", h.PurchaseAdFree)
}
