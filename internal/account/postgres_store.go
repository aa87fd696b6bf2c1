package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxUpdateRetries bounds the optimistic CAS loop under write contention.
const maxUpdateRetries = 5

// PostgresStore persists accounts in PostgreSQL using optimistic
// versioning: every Update commits through a compare-and-swap on the
// version column, so concurrent mutations never lose updates.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed account store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const accountColumns = `id, name, email, phone, status, restriction_reason,
    restricted_until, deletion_scheduled_at, verification_status, ad_free,
    balance, referral_code, referred_by, referral_count, total_earned,
    created_at, version`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.Status,
		&a.RestrictionReason, &a.RestrictedUntil, &a.DeletionScheduledAt,
		&a.VerificationStatus, &a.AdFree, &a.Balance, &a.ReferralCode,
		&a.ReferredBy, &a.ReferralCount, &a.TotalEarned, &a.CreatedAt,
		&a.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return a, nil
}

// Create inserts a new account record.
func (s *PostgresStore) Create(ctx context.Context, a Account) error {
	_, err := s.db.Exec(ctx, `INSERT INTO accounts (`+accountColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		a.ID, a.Name, a.Email, a.Phone, a.Status, a.RestrictionReason,
		a.RestrictedUntil, a.DeletionScheduledAt, a.VerificationStatus,
		a.AdFree, a.Balance, a.ReferralCode, a.ReferredBy, a.ReferralCount,
		a.TotalEarned, a.CreatedAt, a.Version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAccount
		}
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Get fetches an account by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByReferralCode fetches the account owning a referral code.
func (s *PostgresStore) GetByReferralCode(ctx context.Context, code string) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE referral_code = $1`, code)
	return scanAccount(row)
}

// Update runs mutate against the current row and commits it with a
// version compare-and-swap, retrying on contention.
func (s *PostgresStore) Update(ctx context.Context, id string, mutate func(*Account) error) (Account, error) {
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		current, err := s.Get(ctx, id)
		if err != nil {
			return Account{}, err
		}

		next := current
		if err := mutate(&next); err != nil {
			return Account{}, err
		}
		next.Version = current.Version + 1

		tag, err := s.db.Exec(ctx, `UPDATE accounts SET
                name = $2, email = $3, phone = $4, status = $5,
                restriction_reason = $6, restricted_until = $7,
                deletion_scheduled_at = $8, verification_status = $9,
                ad_free = $10, balance = $11, referred_by = $12,
                referral_count = $13, total_earned = $14, version = $15
            WHERE id = $1 AND version = $16`,
			id, next.Name, next.Email, next.Phone, next.Status,
			next.RestrictionReason, next.RestrictedUntil,
			next.DeletionScheduledAt, next.VerificationStatus, next.AdFree,
			next.Balance, next.ReferredBy, next.ReferralCount,
			next.TotalEarned, next.Version, current.Version)
		if err != nil {
			return Account{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if tag.RowsAffected() == 1 {
			return next, nil
		}
		// Version moved underneath us; reload and retry.
	}
	return Account{}, fmt.Errorf("%w: account %s update contention", ErrStorageUnavailable, id)
}

// Delete removes an account record.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all accounts, oldest first.
func (s *PostgresStore) List(ctx context.Context) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return out, nil
}
