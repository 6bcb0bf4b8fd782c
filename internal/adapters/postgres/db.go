package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB holds the shared pgx connection pool used by every repository.
type DB struct {
	Pool *pgxpool.Pool
}

// New opens a connection pool against dsn and verifies it with a ping.
// Pool sizing favors the match endpoints, which fan out batched point
// reads across connections.
func New(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = 50
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Stat exposes pool statistics for metric scraping.
func (db *DB) Stat() *pgxpool.Stat { return db.Pool.Stat() }

// Close releases pool resources.
func (db *DB) Close() { db.Pool.Close() }
