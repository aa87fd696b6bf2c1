package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool tuning for the ledger workload: short bursts of small
// transactions, so recycle connections regularly and fail fast on an
// unreachable database.
const (
	dbMaxConnLifetime   = 30 * time.Minute
	dbMaxConnIdleTime   = 5 * time.Minute
	dbHealthCheckPeriod = time.Minute
	dbConnectTimeout    = 5 * time.Second
)

// NewPostgresPool opens a pgx pool against url and verifies the
// database answers before handing it out.
func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	cfg.MaxConnLifetime = dbMaxConnLifetime
	cfg.MaxConnIdleTime = dbMaxConnIdleTime
	cfg.HealthCheckPeriod = dbHealthCheckPeriod
	cfg.ConnConfig.ConnectTimeout = dbConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}
