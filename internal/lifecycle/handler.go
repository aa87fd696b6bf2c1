package lifecycle

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/earnmaster/engine/internal/account"
	"github.com/earnmaster/engine/internal/middleware"
)

// Handler exposes restriction and deletion lifecycle endpoints.
type Handler struct {
	supervisor *Supervisor
}

// NewHandler builds a lifecycle HTTP handler.
func NewHandler(supervisor *Supervisor) *Handler {
	return &Handler{supervisor: supervisor}
}

type restrictRequest struct {
	Status       string `json:"status"`
	Reason       string `json:"reason"`
	DurationDays int    `json:"duration_days"`
}

type lifecycleResponse struct {
	ID                  string `json:"id"`
	Status              string `json:"status"`
	RestrictionReason   string `json:"restriction_reason,omitempty"`
	RestrictedUntil     string `json:"restricted_until,omitempty"`
	DeletionScheduledAt string `json:"deletion_scheduled_at,omitempty"`
}

func toResponse(a account.Account) lifecycleResponse {
	resp := lifecycleResponse{
		ID:                a.ID,
		Status:            string(a.Status),
		RestrictionReason: a.RestrictionReason,
	}
	if a.RestrictedUntil != nil {
		resp.RestrictedUntil = a.RestrictedUntil.Format("2006-01-02T15:04:05Z07:00")
	}
	if a.DeletionScheduledAt != nil {
		resp.DeletionScheduledAt = a.DeletionScheduledAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// Restrict applies or clears a restriction on an account.
func (h *Handler) Restrict(c *fiber.Ctx) error {
	var req restrictRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	updated, err := h.supervisor.Restrict(c.UserContext(), c.Params("accountId"),
		account.Status(req.Status), req.Reason, req.DurationDays)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(updated))
}

// ScheduleDeletion flags the caller's account for deletion.
func (h *Handler) ScheduleDeletion(c *fiber.Ctx) error {
	principalID, _ := c.Locals(middleware.PrincipalIDKey).(string)

	updated, err := h.supervisor.ScheduleDeletion(c.UserContext(), principalID)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusAccepted).JSON(toResponse(updated))
}

// Recover cancels a scheduled deletion within the grace period.
func (h *Handler) Recover(c *fiber.Ctx) error {
	principalID, _ := c.Locals(middleware.PrincipalIDKey).(string)

	updated, err := h.supervisor.Recover(c.UserContext(), principalID)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(updated))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, account.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrGraceElapsed):
		return fiber.NewError(http.StatusGone, err.Error())
	case errors.Is(err, account.ErrStorageUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}
