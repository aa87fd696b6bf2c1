package settings

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes administrative settings endpoints.
type Handler struct {
	source Source
}

// NewHandler builds a settings HTTP handler.
func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

// Get returns the current platform settings.
func (h *Handler) Get(c *fiber.Ctx) error {
	s, err := h.source.Load(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	return c.Status(http.StatusOK).JSON(s)
}

// Update replaces the platform settings.
func (h *Handler) Update(c *fiber.Ctx) error {
	var s Settings
	if err := c.BodyParser(&s); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := s.Validate(); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.source.Save(c.UserContext(), s); err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	return c.Status(http.StatusOK).JSON(s)
}
