package task

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/earnmaster/engine/internal/account"
	"github.com/earnmaster/engine/internal/middleware"
)

// Handler exposes task catalog and completion endpoints.
type Handler struct {
	catalog Catalog
	gate    *Gate
}

// NewHandler builds a task HTTP handler.
func NewHandler(catalog Catalog, gate *Gate) *Handler {
	return &Handler{catalog: catalog, gate: gate}
}

type taskResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Type         string `json:"type"`
	Reward       int64  `json:"reward"`
	Link         string `json:"link"`
	TimerSeconds int    `json:"timer_seconds"`
	ButtonText   string `json:"button_text"`
	Active       bool   `json:"active"`
}

func toResponse(t Task) taskResponse {
	return taskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Type:         string(t.Type),
		Reward:       t.Reward,
		Link:         t.Link,
		TimerSeconds: t.TimerSeconds,
		ButtonText:   t.ButtonText,
		Active:       t.Active,
	}
}

// List returns the task catalog.
func (h *Handler) List(c *fiber.Ctx) error {
	tasks, err := h.catalog.List(c.UserContext())
	if err != nil {
		return mapError(err)
	}
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toResponse(t))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Complete credits today's reward for the authenticated account.
func (h *Handler) Complete(c *fiber.Ctx) error {
	principalID, _ := c.Locals(middleware.PrincipalIDKey).(string)

	res, err := h.gate.Complete(c.UserContext(), principalID, c.Params("taskId"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"task_id": res.TaskID,
		"day":     res.Day,
		"reward":  res.Reward,
		"balance": res.Balance,
	})
}

type createTaskRequest struct {
	Title        string `json:"title"`
	Type         string `json:"type"`
	Reward       int64  `json:"reward"`
	Link         string `json:"link"`
	TimerSeconds int    `json:"timer_seconds"`
	ButtonText   string `json:"button_text"`
	Active       *bool  `json:"active"`
}

// Create adds a task definition to the catalog.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Title == "" {
		return fiber.NewError(http.StatusBadRequest, "title is required")
	}
	if req.Reward <= 0 {
		return fiber.NewError(http.StatusBadRequest, "reward must be positive")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	t := Task{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Type:         Type(req.Type),
		Reward:       req.Reward,
		Link:         req.Link,
		TimerSeconds: req.TimerSeconds,
		ButtonText:   req.ButtonText,
		Active:       active,
	}
	if err := h.catalog.Create(c.UserContext(), t); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(t))
}

// Delete removes a task definition.
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.catalog.Delete(c.UserContext(), c.Params("taskId")); err != nil {
		return mapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, account.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyCompletedToday):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, account.ErrRestricted), errors.Is(err, account.ErrFrozen),
		errors.Is(err, account.ErrNotVerified), errors.Is(err, ErrInactive):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, account.ErrStorageUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}
