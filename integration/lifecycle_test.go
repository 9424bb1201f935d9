//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azubrytski-dev/challange-bot/internal/migrate"
	"github.com/azubrytski-dev/challange-bot/internal/storage"
	"github.com/azubrytski-dev/challange-bot/internal/storage/postgres"
)

func TestRunner_freshDatabase_appliesFullSet(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	target := postgres.NewTarget(pool)
	runner := migrate.NewRunner(target, storage.MigrationsFS())

	require.NoError(t, runner.Run(ctx))

	entries, err := target.AppliedEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "001", entries[0].Version)
	assert.Equal(t, "002", entries[1].Version)
	assert.Equal(t, "003", entries[2].Version)

	// 002 and 003 columns landed.
	var n int
	err = pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM information_schema.columns
		 WHERE table_name = 'chat_state' AND column_name IN ('language', 'ratings_enabled')`,
	).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A second run finds nothing pending.
	require.NoError(t, runner.Run(ctx))

	entries, err = target.AppliedEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRunner_legacySchema_recordsBaseline(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	// A database provisioned before the ledger existed: application tables
	// present, no schema_migrations.
	_, err := pool.Exec(ctx, `
		CREATE TABLE users (
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			username TEXT,
			display_name TEXT NOT NULL,
			circles INTEGER NOT NULL DEFAULT 0,
			reactions INTEGER NOT NULL DEFAULT 0,
			points INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (chat_id, user_id)
		);
		CREATE TABLE chat_state (
			chat_id BIGINT NOT NULL PRIMARY KEY,
			last_circle_ts BIGINT NOT NULL DEFAULT 0,
			last_rating_ts BIGINT NOT NULL DEFAULT 0
		);
	`)
	require.NoError(t, err)

	target := postgres.NewTarget(pool)
	runner := migrate.NewRunner(target, storage.MigrationsFS())

	require.NoError(t, runner.Run(ctx))

	entries, err := target.AppliedEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, migrate.BaselineVersion, entries[0].Version)
	assert.Equal(t, migrate.BaselineName, entries[0].Name)
	assert.Empty(t, entries[0].Checksum)

	assert.Equal(t, "001", entries[1].Version)
	assert.Equal(t, "002", entries[2].Version)
	assert.Equal(t, "003", entries[3].Version)
}

func TestRunner_checksumDrift_aborts(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	target := postgres.NewTarget(pool)

	body := "CREATE TABLE widgets (id SERIAL PRIMARY KEY)"
	source := fstest.MapFS{
		"001_create_widgets_postgres.sql": {Data: []byte(body)},
	}

	require.NoError(t, migrate.NewRunner(target, source).Run(ctx))

	// The source file is edited after being applied.
	drifted := fstest.MapFS{
		"001_create_widgets_postgres.sql": {Data: []byte(body + ", name TEXT")},
	}

	err := migrate.NewRunner(target, drifted).Run(ctx)
	require.Error(t, err)

	var driftErr *migrate.ChecksumDriftError
	require.ErrorAs(t, err, &driftErr)
	assert.Equal(t, "001", driftErr.Version)
}

func TestRunner_concurrentStartups_oneWinsPerVersion(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	var wg sync.WaitGroup

	errs := make([]error, 2)

	for i := range 2 {
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()

			runner := migrate.NewRunner(postgres.NewTarget(pool), storage.MigrationsFS())
			errs[idx] = runner.Run(ctx)
		}(i)
	}

	wg.Wait()

	// Both instances should finish cleanly; a loser on any version gets an
	// applied-elsewhere outcome rather than an error. Ledger creation itself
	// can race at the catalog level, so tolerate one early failure.
	successes := 0

	for _, err := range errs {
		if err == nil {
			successes++
		}
	}

	require.GreaterOrEqual(t, successes, 1)

	// Each version recorded exactly once regardless of who applied it.
	target := postgres.NewTarget(pool)
	entries, err := target.AppliedEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
