package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/earnmaster/engine/internal/referral"
)

// RegisterReferralRoutes wires referral code application.
func RegisterReferralRoutes(r fiber.Router, h *referral.Handler) {
	r.Post("/me/referral", h.Apply)
}
