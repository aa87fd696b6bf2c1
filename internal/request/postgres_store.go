package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/earnmaster/engine/internal/account"
)

// PostgresStore persists requests in PostgreSQL. The kind-specific detail
// struct is stored as JSONB; the terminal-state guard is a conditional
// UPDATE on status = PENDING.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed request store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func detailsOf(r Request) (any, error) {
	switch r.Kind {
	case KindWithdrawal:
		return r.Withdrawal, nil
	case KindDeposit:
		return r.Deposit, nil
	case KindVerification:
		return r.Verification, nil
	default:
		return nil, fmt.Errorf("unknown request kind %q", r.Kind)
	}
}

func attachDetails(r *Request, raw []byte) error {
	switch r.Kind {
	case KindWithdrawal:
		r.Withdrawal = &Withdrawal{}
		return json.Unmarshal(raw, r.Withdrawal)
	case KindDeposit:
		r.Deposit = &Deposit{}
		return json.Unmarshal(raw, r.Deposit)
	case KindVerification:
		r.Verification = &Verification{}
		return json.Unmarshal(raw, r.Verification)
	default:
		return fmt.Errorf("unknown request kind %q", r.Kind)
	}
}

// Create inserts a new PENDING request.
func (s *PostgresStore) Create(ctx context.Context, r Request) error {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return fmt.Errorf("invalid request id: %w", err)
	}
	details, err := detailsOf(r)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode request details: %w", err)
	}

	_, err = s.db.Exec(ctx, `INSERT INTO requests (id, kind, account_id, status, details, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		id, r.Kind, r.AccountID, r.Status, payload, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) scan(row pgx.Row) (Request, error) {
	var (
		r   Request
		id  uuid.UUID
		raw []byte
	)
	err := row.Scan(&id, &r.Kind, &r.AccountID, &r.Status, &raw, &r.CreatedAt, &r.ResolvedAt, &r.SettledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	r.ID = id.String()
	if err := attachDetails(&r, raw); err != nil {
		return Request{}, err
	}
	return r, nil
}

const requestColumns = `id, kind, account_id, status, details, created_at, resolved_at, settled_at`

// Get fetches a request by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Request, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return Request{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, reqID)
	return s.scan(row)
}

// Resolve performs the PENDING -> terminal transition as one conditional
// update. A zero row count means the request is gone or already terminal.
func (s *PostgresStore) Resolve(ctx context.Context, id string, decision Status) (Request, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return Request{}, ErrNotFound
	}

	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `UPDATE requests SET status = $2, resolved_at = $3
        WHERE id = $1 AND status = $4`, reqID, decision, now, StatusPending)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return Request{}, getErr
		}
		return Request{}, ErrAlreadyResolved
	}
	return s.Get(ctx, id)
}

// MarkSettled stamps settled_at once on a terminal request. The
// conditional update makes a repeat stamp a no-op.
func (s *PostgresStore) MarkSettled(ctx context.Context, id string) (Request, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return Request{}, ErrNotFound
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(ctx, `UPDATE requests SET settled_at = $2
        WHERE id = $1 AND status <> $3 AND settled_at IS NULL`, reqID, now, StatusPending)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	return s.Get(ctx, id)
}

// ListByAccount returns an account's requests, newest first.
func (s *PostgresStore) ListByAccount(ctx context.Context, accountID string, kind Kind) ([]Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE account_id = $1`
	args := []any{accountID}
	if kind != "" {
		query += ` AND kind = $2`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC`
	return s.list(ctx, query, args...)
}

// ListPending returns undecided requests for the admin queue.
func (s *PostgresStore) ListPending(ctx context.Context, kind Kind) ([]Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE status = $1`
	args := []any{StatusPending}
	if kind != "" {
		query += ` AND kind = $2`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC`
	return s.list(ctx, query, args...)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Request, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		r, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	return out, nil
}
