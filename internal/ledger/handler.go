package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/earnmaster/engine/internal/account"
	"github.com/earnmaster/engine/internal/middleware"
	"github.com/earnmaster/engine/internal/settings"
)

// Handler exposes balance, history and points-spending endpoints.
type Handler struct {
	service  *Service
	settings settings.Source
}

// NewHandler builds a ledger HTTP handler.
func NewHandler(service *Service, src settings.Source) *Handler {
	return &Handler{service: service, settings: src}
}

type entryResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Points      int64     `json:"points"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// History returns the authenticated account's balance and latest entries.
func (h *Handler) History(c *fiber.Ctx) error {
	principalID, _ := c.Locals(middleware.PrincipalIDKey).(string)
	limit := c.QueryInt("limit", 50)

	balance, err := h.service.Balance(c.UserContext(), principalID)
	if err != nil {
		return mapError(err)
	}
	entries, err := h.service.Entries(c.UserContext(), principalID, limit)
	if err != nil {
		return mapError(err)
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:          e.ID,
			Type:        string(e.Type),
			Points:      e.Points,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balance": balance,
		"entries": out,
	})
}

// PurchaseAdFree spends points on the ad-free subscription.
func (h *Handler) PurchaseAdFree(c *fiber.Ctx) error {
	principalID, _ := c.Locals(middleware.PrincipalIDKey).(string)

	cfg, err := h.settings.Load(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	cost := ConvertInverse(cfg.AdFreePrice, cfg.ConversionRate)

	balance, err := h.service.PurchaseAdFree(c.UserContext(), principalID, cost)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balance":     balance,
		"cost_points": cost,
		"ad_free":     true,
	})
}

type adjustRequest struct {
	Points int64  `json:"points"`
	Reason string `json:"reason"`
}

// Adjust applies an administrative balance correction.
func (h *Handler) Adjust(c *fiber.Ctx) error {
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID := c.Params("accountId")

	balance, err := h.service.Adjust(c.UserContext(), accountID, req.Points, req.Reason)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id": accountID,
		"balance":    balance,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, account.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, account.ErrFrozen), errors.Is(err, account.ErrRestricted):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, account.ErrStorageUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}
