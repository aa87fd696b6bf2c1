package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/earnmaster/engine/internal/account"
)

// PostgresCatalog persists task definitions in PostgreSQL.
type PostgresCatalog struct {
	db *pgxpool.Pool
}

// NewPostgresCatalog builds a Postgres-backed task catalog.
func NewPostgresCatalog(db *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

// Create inserts a task definition.
func (c *PostgresCatalog) Create(ctx context.Context, t Task) error {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		return fmt.Errorf("invalid task id: %w", err)
	}
	_, err = c.db.Exec(ctx, `INSERT INTO tasks (id, title, task_type, reward, link, timer_seconds, button_text, active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, t.Title, t.Type, t.Reward, t.Link, t.TimerSeconds, t.ButtonText, t.Active)
	if err != nil {
		return fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	return nil
}

// Get fetches a task by id.
func (c *PostgresCatalog) Get(ctx context.Context, id string) (Task, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return Task{}, ErrNotFound
	}
	row := c.db.QueryRow(ctx, `SELECT id, title, task_type, reward, link, timer_seconds, button_text, active
        FROM tasks WHERE id = $1`, taskID)

	var t Task
	var idVal uuid.UUID
	err = row.Scan(&idVal, &t.Title, &t.Type, &t.Reward, &t.Link, &t.TimerSeconds, &t.ButtonText, &t.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	t.ID = idVal.String()
	return t, nil
}

// List returns all task definitions.
func (c *PostgresCatalog) List(ctx context.Context) ([]Task, error) {
	rows, err := c.db.Query(ctx, `SELECT id, title, task_type, reward, link, timer_seconds, button_text, active
        FROM tasks ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		var idVal uuid.UUID
		if err := rows.Scan(&idVal, &t.Title, &t.Type, &t.Reward, &t.Link, &t.TimerSeconds, &t.ButtonText, &t.Active); err != nil {
			return nil, fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
		}
		t.ID = idVal.String()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	return out, nil
}

// Delete removes a task definition.
func (c *PostgresCatalog) Delete(ctx context.Context, id string) error {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := c.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		return fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresCompletionStore reserves daily completions through the
// (account_id, task_id, day) primary key.
type PostgresCompletionStore struct {
	db *pgxpool.Pool
}

// NewPostgresCompletionStore builds a Postgres-backed completion guard.
func NewPostgresCompletionStore(db *pgxpool.Pool) *PostgresCompletionStore {
	return &PostgresCompletionStore{db: db}
}

// TryCreate inserts the completion record; a conflict on the composite
// key means the task was already completed today.
func (s *PostgresCompletionStore) TryCreate(ctx context.Context, c Completion) error {
	taskID, err := uuid.Parse(c.TaskID)
	if err != nil {
		return ErrNotFound
	}
	tag, err := s.db.Exec(ctx, `INSERT INTO task_completions (account_id, task_id, day, completed_at)
        VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		c.AccountID, taskID, c.Day, c.CompletedAt.UTC())
	if err != nil {
		return fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyCompletedToday
	}
	return nil
}

// Delete removes a reservation whose reward credit failed.
func (s *PostgresCompletionStore) Delete(ctx context.Context, accountID, taskID, day string) error {
	id, err := uuid.Parse(taskID)
	if err != nil {
		return ErrNotFound
	}
	_, err = s.db.Exec(ctx, `DELETE FROM task_completions WHERE account_id = $1 AND task_id = $2 AND day = $3`,
		accountID, id, day)
	if err != nil {
		return fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	return nil
}
