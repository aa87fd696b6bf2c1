package task

import (
	"context"
	"errors"
	"time"
)

// Type classifies a daily mission.
type Type string

const (
	TypeClick   Type = "CLICK"
	TypeVisit   Type = "VISIT"
	TypeInstall Type = "INSTALL"
	TypeVideo   Type = "VIDEO"
)

// Task is a daily mission definition.
type Task struct {
	ID           string
	Title        string
	Type         Type
	Reward       int64
	Link         string
	TimerSeconds int
	ButtonText   string
	Active       bool
}

var (
	// ErrNotFound indicates the task does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrInactive indicates the task is disabled.
	ErrInactive = errors.New("task is not active")

	// ErrAlreadyCompletedToday indicates the (account, task, day) record
	// already exists; no credit was made.
	ErrAlreadyCompletedToday = errors.New("task already completed today")
)

// Catalog persists task definitions.
type Catalog interface {
	Create(ctx context.Context, t Task) error
	Get(ctx context.Context, id string) (Task, error)
	List(ctx context.Context) ([]Task, error)
	Delete(ctx context.Context, id string) error
}

// Completion is the idempotency record behind the daily gate.
type Completion struct {
	AccountID   string
	TaskID      string
	Day         string
	CompletedAt time.Time
}

// CompletionStore reserves one completion per (account, task, day).
// TryCreate is the idempotency guard: the first caller wins, every later
// caller gets ErrAlreadyCompletedToday. Delete compensates a reservation
// whose reward credit failed.
type CompletionStore interface {
	TryCreate(ctx context.Context, c Completion) error
	Delete(ctx context.Context, accountID, taskID, day string) error
}
