package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/earnmaster/engine/internal/account"
)

// PostgresEntryStore persists ledger entries in PostgreSQL.
type PostgresEntryStore struct {
	db *pgxpool.Pool
}

// NewPostgresEntryStore builds a Postgres-backed entry store.
func NewPostgresEntryStore(db *pgxpool.Pool) *PostgresEntryStore {
	return &PostgresEntryStore{db: db}
}

// Append inserts one history line.
func (s *PostgresEntryStore) Append(ctx context.Context, e Entry) error {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		id = uuid.New()
	}
	_, err = s.db.Exec(ctx, `INSERT INTO ledger_entries (id, account_id, entry_type, points, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		id, e.AccountID, e.Type, e.Points, e.Description, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	return nil
}

// ListByAccount returns the newest entries first.
func (s *PostgresEntryStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `SELECT id, account_id, entry_type, points, description, created_at
        FROM ledger_entries WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var id uuid.UUID
		if err := rows.Scan(&id, &e.AccountID, &e.Type, &e.Points, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
		}
		e.ID = id.String()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", account.ErrStorageUnavailable, err)
	}
	return out, nil
}
