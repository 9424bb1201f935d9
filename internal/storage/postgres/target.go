package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/azubrytski-dev/challange-bot/internal/migrate"
)

// createLedgerSQL is the client/server DDL for the migration ledger.
const createLedgerSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT NOT NULL PRIMARY KEY,
    name       TEXT NOT NULL,
    checksum   TEXT NOT NULL,
    applied_at BIGINT NOT NULL
)`

// uniqueViolationCode is the SQLSTATE for a unique constraint violation.
const uniqueViolationCode = "23505"

// Target implements migrate.Target for the client/server engine. DDL is
// transactional here, so execute+record run in a single transaction and a
// failure leaves neither the schema change nor the ledger entry applied.
type Target struct {
	pool *pgxpool.Pool
}

// OpenTarget opens a dedicated migration pool for the database URL.
func OpenTarget(ctx context.Context, databaseURL string) (*Target, error) {
	pool, err := newPool(ctx, databaseURL, 2)
	if err != nil {
		return nil, err
	}

	return &Target{pool: pool}, nil
}

// NewTarget wraps an existing pool. Used by integration tests.
func NewTarget(pool *pgxpool.Pool) *Target {
	return &Target{pool: pool}
}

// Backend identifies this target's definitions.
func (t *Target) Backend() migrate.Backend {
	return migrate.BackendPostgres
}

// Close releases the migration pool.
func (t *Target) Close() error {
	t.pool.Close()

	return nil
}

// EnsureLedger creates the schema_migrations table if absent and reports
// whether this call created it.
func (t *Target) EnsureLedger(ctx context.Context) (bool, error) {
	var existed bool

	err := t.pool.QueryRow(ctx, `SELECT to_regclass('schema_migrations') IS NOT NULL`).Scan(&existed)
	if err != nil {
		return false, fmt.Errorf("checking for schema_migrations table: %w", err)
	}

	if _, err := t.pool.Exec(ctx, createLedgerSQL); err != nil {
		return false, fmt.Errorf("creating schema_migrations table: %w", err)
	}

	return !existed, nil
}

// AppliedEntries returns all ledger rows in version order.
func (t *Target) AppliedEntries(ctx context.Context) ([]migrate.LedgerEntry, error) {
	rows, err := t.pool.Query(ctx,
		`SELECT version, name, checksum, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("querying schema_migrations: %w", err)
	}
	defer rows.Close()

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (migrate.LedgerEntry, error) {
		var e migrate.LedgerEntry
		if err := row.Scan(&e.Version, &e.Name, &e.Checksum, &e.AppliedAt); err != nil {
			return migrate.LedgerEntry{}, fmt.Errorf("scanning ledger entry: %w", err)
		}

		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting ledger entries: %w", err)
	}

	return entries, nil
}

// SchemaInitialized reports whether the application's primary tables exist.
func (t *Target) SchemaInitialized(ctx context.Context) (bool, error) {
	var n int

	err := t.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM information_schema.tables
		 WHERE table_schema = current_schema() AND table_name IN ('users', 'chat_state')`,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking for application tables: %w", err)
	}

	return n > 0, nil
}

// Record inserts a ledger row on the pool. A primary-key conflict maps to
// migrate.ErrDuplicateVersion.
func (t *Target) Record(ctx context.Context, e migrate.LedgerEntry) error {
	_, err := t.pool.Exec(ctx,
		`INSERT INTO schema_migrations(version, name, checksum, applied_at) VALUES($1, $2, $3, $4)`,
		e.Version, e.Name, e.Checksum, e.AppliedAt,
	)

	return mapRecordError(e.Version, err)
}

// Apply executes the body and records the ledger entry in one transaction.
// Bodies that cannot run inside a transaction block (CREATE INDEX
// CONCURRENTLY) execute directly, with the record written immediately
// after.
func (t *Target) Apply(ctx context.Context, d migrate.Definition, e migrate.LedgerEntry) (migrate.Outcome, error) {
	concurrent, err := containsConcurrentIndex(d.Body)
	if err != nil {
		return 0, err
	}

	if concurrent {
		return t.applyWithoutTransaction(ctx, d, e)
	}

	err = execInTransaction(ctx, t.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, d.Body); err != nil {
			return fmt.Errorf("executing body: %w", err)
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations(version, name, checksum, applied_at) VALUES($1, $2, $3, $4)`,
			e.Version, e.Name, e.Checksum, e.AppliedAt,
		)

		return mapRecordError(e.Version, err)
	})
	if errors.Is(err, migrate.ErrDuplicateVersion) {
		// Another instance committed this version first; the rollback also
		// discarded our body execution.
		return migrate.OutcomeAppliedElsewhere, nil
	}

	if err != nil {
		return 0, err
	}

	return migrate.OutcomeApplied, nil
}

func (t *Target) applyWithoutTransaction(ctx context.Context, d migrate.Definition, e migrate.LedgerEntry) (migrate.Outcome, error) {
	if _, err := t.pool.Exec(ctx, d.Body); err != nil {
		return 0, fmt.Errorf("executing body: %w", err)
	}

	if err := t.Record(ctx, e); err != nil {
		if errors.Is(err, migrate.ErrDuplicateVersion) {
			return migrate.OutcomeAppliedElsewhere, nil
		}

		return 0, err
	}

	return migrate.OutcomeApplied, nil
}

// execInTransaction runs fn inside a transaction, committing on success and
// rolling back on error.
func execInTransaction(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // rollback on committed tx returns ErrTxClosed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func mapRecordError(version string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("version %s: %w", version, migrate.ErrDuplicateVersion)
	}

	return fmt.Errorf("recording migration %s: %w", version, err)
}
