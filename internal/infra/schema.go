package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL DEFAULT '',
        email TEXT NOT NULL DEFAULT '',
        phone TEXT NOT NULL DEFAULT '',
        status TEXT NOT NULL,
        restriction_reason TEXT NOT NULL DEFAULT '',
        restricted_until TIMESTAMPTZ,
        deletion_scheduled_at TIMESTAMPTZ,
        verification_status TEXT NOT NULL,
        ad_free BOOLEAN NOT NULL DEFAULT FALSE,
        balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
        referral_code TEXT NOT NULL UNIQUE,
        referred_by TEXT NOT NULL DEFAULT '',
        referral_count BIGINT NOT NULL DEFAULT 0,
        total_earned BIGINT NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL,
        version BIGINT NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
        id UUID PRIMARY KEY,
        account_id TEXT NOT NULL,
        entry_type TEXT NOT NULL,
        points BIGINT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS ledger_entries_account_idx
        ON ledger_entries (account_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS requests (
        id UUID PRIMARY KEY,
        kind TEXT NOT NULL,
        account_id TEXT NOT NULL,
        status TEXT NOT NULL,
        details JSONB NOT NULL,
        created_at TIMESTAMPTZ NOT NULL,
        resolved_at TIMESTAMPTZ,
        settled_at TIMESTAMPTZ
    )`,
	`CREATE INDEX IF NOT EXISTS requests_account_idx ON requests (account_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS requests_pending_idx ON requests (kind, status)`,
	`CREATE TABLE IF NOT EXISTS tasks (
        id UUID PRIMARY KEY,
        title TEXT NOT NULL,
        task_type TEXT NOT NULL,
        reward BIGINT NOT NULL,
        link TEXT NOT NULL DEFAULT '',
        timer_seconds INT NOT NULL DEFAULT 0,
        button_text TEXT NOT NULL DEFAULT '',
        active BOOLEAN NOT NULL DEFAULT TRUE
    )`,
	`CREATE TABLE IF NOT EXISTS task_completions (
        account_id TEXT NOT NULL,
        task_id UUID NOT NULL,
        day TEXT NOT NULL,
        completed_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (account_id, task_id, day)
    )`,
}

// EnsureSchema creates the engine tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
