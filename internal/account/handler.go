package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/earnmaster/engine/internal/middleware"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	ReferralCode string `json:"referral_code"`
}

type accountResponse struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Phone               string     `json:"phone"`
	Status              string     `json:"status"`
	RestrictionReason   string     `json:"restriction_reason,omitempty"`
	RestrictedUntil     *time.Time `json:"restricted_until,omitempty"`
	DeletionScheduledAt *time.Time `json:"deletion_scheduled_at,omitempty"`
	VerificationStatus  string     `json:"verification_status"`
	AdFree              bool       `json:"ad_free"`
	Balance             int64      `json:"balance"`
	ReferralCode        string     `json:"referral_code"`
	ReferredBy          string     `json:"referred_by,omitempty"`
	ReferralCount       int64      `json:"referral_count"`
	TotalEarned         int64      `json:"total_earned"`
	CreatedAt           time.Time  `json:"created_at"`
}

func toResponse(a Account) accountResponse {
	return accountResponse{
		ID:                  a.ID,
		Name:                a.Name,
		Email:               a.Email,
		Phone:               a.Phone,
		Status:              string(a.Status),
		RestrictionReason:   a.RestrictionReason,
		RestrictedUntil:     a.RestrictedUntil,
		DeletionScheduledAt: a.DeletionScheduledAt,
		VerificationStatus:  string(a.VerificationStatus),
		AdFree:              a.AdFree,
		Balance:             a.Balance,
		ReferralCode:        a.ReferralCode,
		ReferredBy:          a.ReferredBy,
		ReferralCount:       a.ReferralCount,
		TotalEarned:         a.TotalEarned,
		CreatedAt:           a.CreatedAt,
	}
}

// Register opens an account for the authenticated principal.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	principalID, _ := c.Locals(middleware.PrincipalIDKey).(string)

	a, err := h.service.Register(c.UserContext(), RegisterInput{
		ID:           principalID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateAccount):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrStorageUnavailable):
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(toResponse(a))
}

// Me returns the authenticated principal's account.
func (h *Handler) Me(c *fiber.Ctx) error {
	principalID, _ := c.Locals(middleware.PrincipalIDKey).(string)
	a, err := h.service.Get(c.UserContext(), principalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(a))
}

// ListAll returns every account for the administrative dashboard.
func (h *Handler) ListAll(c *fiber.Ctx) error {
	accounts, err := h.service.List(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toResponse(a))
	}
	return c.Status(http.StatusOK).JSON(out)
}
