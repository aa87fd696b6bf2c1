package request

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/earnmaster/engine/internal/account"
	"github.com/earnmaster/engine/internal/ledger"
	"github.com/earnmaster/engine/internal/middleware"
)

// Handler exposes request submission and resolution endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a request HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type withdrawalRequest struct {
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"`
	AccountNumber string  `json:"account_number"`
}

type depositRequest struct {
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"`
	SenderNumber  string  `json:"sender_number"`
	TransactionID string  `json:"transaction_id"`
}

type verificationRequest struct {
	PaymentNumber string `json:"payment_number"`
	TransactionID string `json:"transaction_id"`
}

type resolveRequest struct {
	Decision string `json:"decision"`
}

type requestResponse struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	AccountID  string     `json:"account_id"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	SettledAt  *time.Time `json:"settled_at,omitempty"`

	Withdrawal   *Withdrawal   `json:"withdrawal,omitempty"`
	Deposit      *Deposit      `json:"deposit,omitempty"`
	Verification *Verification `json:"verification,omitempty"`
}

func toResponse(r Request) requestResponse {
	return requestResponse{
		ID:           r.ID,
		Kind:         string(r.Kind),
		AccountID:    r.AccountID,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
		ResolvedAt:   r.ResolvedAt,
		SettledAt:    r.SettledAt,
		Withdrawal:   r.Withdrawal,
		Deposit:      r.Deposit,
		Verification: r.Verification,
	}
}

// CreateWithdrawal submits a withdrawal for the authenticated account.
func (h *Handler) CreateWithdrawal(c *fiber.Ctx) error {
	var req withdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	principalID, _ := c.Locals(middleware.PrincipalIDKey).(string)

	r, err := h.service.CreateWithdrawal(c.UserContext(), principalID, req.Amount, req.Method, req.AccountNumber)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(r))
}

// CreateDeposit submits a deposit claim for the authenticated account.
func (h *Handler) CreateDeposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	principalID, _ := c.Locals(middleware.PrincipalIDKey).(string)

	r, err := h.service.CreateDeposit(c.UserContext(), principalID, req.Amount, req.Method, req.SenderNumber, req.TransactionID)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(r))
}

// SubmitVerification submits an identity verification claim.
func (h *Handler) SubmitVerification(c *fiber.Ctx) error {
	var req verificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	principalID, _ := c.Locals(middleware.PrincipalIDKey).(string)

	r, err := h.service.SubmitVerification(c.UserContext(), principalID, req.PaymentNumber, req.TransactionID)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(r))
}

// ListMine returns the authenticated account's requests, optionally
// filtered with ?kind=.
func (h *Handler) ListMine(c *fiber.Ctx) error {
	principalID, _ := c.Locals(middleware.PrincipalIDKey).(string)
	kind := Kind(strings.ToUpper(c.Query("kind")))

	rs, err := h.service.ListByAccount(c.UserContext(), principalID, kind)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponses(rs))
}

// ListPending returns the undecided admin queue, optionally filtered with
// ?kind=.
func (h *Handler) ListPending(c *fiber.Ctx) error {
	kind := Kind(strings.ToUpper(c.Query("kind")))
	rs, err := h.service.ListPending(c.UserContext(), kind)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponses(rs))
}

// Resolve applies an administrative decision to a request.
func (h *Handler) Resolve(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	r, err := h.service.Resolve(c.UserContext(), c.Params("requestId"), Status(strings.ToUpper(req.Decision)))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(r))
}

func toResponses(rs []Request) []requestResponse {
	out := make([]requestResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toResponse(r))
	}
	return out
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, account.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyResolved):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, account.ErrRestricted), errors.Is(err, account.ErrFrozen), errors.Is(err, account.ErrNotVerified):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, account.ErrStorageUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}
