// Package postgres implements the client/server backend on pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultMaxConns = 5

// Store is the client/server Repository implementation.
type Store struct {
	pool *pgxpool.Pool
}

// Open creates a connection pool for the given database URL and verifies
// connectivity with a ping.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := newPool(ctx, databaseURL, defaultMaxConns)
	if err != nil {
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// NewStore wraps an existing pool. Used by integration tests.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()

	return nil
}

// newPool is shared by the repository and the migration target; migrations
// get their own dedicated pool that is closed before serving begins.
func newPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	poolCfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
