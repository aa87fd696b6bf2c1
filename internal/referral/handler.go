package referral

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/earnmaster/engine/internal/account"
	"github.com/earnmaster/engine/internal/middleware"
)

// Handler exposes the referral code application endpoint.
type Handler struct {
	service *Service
}

// NewHandler builds a referral HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type applyRequest struct {
	Code string `json:"code"`
}

// Apply sets the authenticated account's referrer.
func (h *Handler) Apply(c *fiber.Ctx) error {
	var req applyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	principalID, _ := c.Locals(middleware.PrincipalIDKey).(string)

	err := h.service.Apply(c.UserContext(), principalID, req.Code)
	switch {
	case err == nil:
		return c.Status(http.StatusOK).JSON(fiber.Map{"applied": true})
	case errors.Is(err, ErrAlreadyApplied), errors.Is(err, ErrSelfReferral):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, account.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, account.ErrStorageUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}
