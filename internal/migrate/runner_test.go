package migrate_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azubrytski-dev/challange-bot/internal/migrate"
)

// fakeTarget is an in-memory migrate.Target with scriptable behavior.
type fakeTarget struct {
	backend           migrate.Backend
	ledgerCreated     bool
	schemaInitialized bool
	entries           []migrate.LedgerEntry

	applyOutcome map[string]migrate.Outcome
	applyErr     map[string]error
	recordErr    error

	appliedVersions []string
	recorded        []migrate.LedgerEntry
}

func newFakeTarget(backend migrate.Backend) *fakeTarget {
	return &fakeTarget{
		backend:      backend,
		applyOutcome: map[string]migrate.Outcome{},
		applyErr:     map[string]error{},
	}
}

func (f *fakeTarget) Backend() migrate.Backend { return f.backend }

func (f *fakeTarget) EnsureLedger(_ context.Context) (bool, error) {
	return f.ledgerCreated, nil
}

func (f *fakeTarget) AppliedEntries(_ context.Context) ([]migrate.LedgerEntry, error) {
	return f.entries, nil
}

func (f *fakeTarget) SchemaInitialized(_ context.Context) (bool, error) {
	return f.schemaInitialized, nil
}

func (f *fakeTarget) Record(_ context.Context, e migrate.LedgerEntry) error {
	if f.recordErr != nil {
		return f.recordErr
	}

	f.recorded = append(f.recorded, e)
	f.entries = append(f.entries, e)

	return nil
}

func (f *fakeTarget) Apply(_ context.Context, d migrate.Definition, e migrate.LedgerEntry) (migrate.Outcome, error) {
	if err := f.applyErr[d.Version]; err != nil {
		return 0, err
	}

	f.appliedVersions = append(f.appliedVersions, d.Version)
	f.entries = append(f.entries, e)

	return f.applyOutcome[d.Version], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func threeStepSource() map[string]string {
	return map[string]string{
		"001_initial_schema_sqlite.sql":      "CREATE TABLE users (id INTEGER);",
		"002_add_language_column_sqlite.sql": "ALTER TABLE chat_state ADD COLUMN language TEXT;",
		"003_add_ratings_enabled_sqlite.sql": "ALTER TABLE chat_state ADD COLUMN ratings_enabled INTEGER;",
	}
}

func TestRunner_freshDatabaseAppliesEverything(t *testing.T) {
	t.Parallel()

	target := newFakeTarget(migrate.BackendSQLite)
	target.ledgerCreated = true

	runner := migrate.NewRunner(target, sources(threeStepSource()),
		migrate.WithLogger(discardLogger()))

	require.NoError(t, runner.Run(context.Background()))

	assert.Equal(t, []string{"001", "002", "003"}, target.appliedVersions)
	// Fresh empty database: no baseline entry.
	assert.Empty(t, target.recorded)
	assert.Len(t, target.entries, 3)
}

func TestRunner_secondRunIsNoop(t *testing.T) {
	t.Parallel()

	target := newFakeTarget(migrate.BackendSQLite)
	target.ledgerCreated = true

	fsys := sources(threeStepSource())

	runner := migrate.NewRunner(target, fsys, migrate.WithLogger(discardLogger()))
	require.NoError(t, runner.Run(context.Background()))

	// Ledger now holds all three versions; a restart applies nothing.
	target.ledgerCreated = false
	target.appliedVersions = nil

	require.NoError(t, runner.Run(context.Background()))
	assert.Empty(t, target.appliedVersions)
}

func TestRunner_legacyBaselineRecorded(t *testing.T) {
	t.Parallel()

	target := newFakeTarget(migrate.BackendSQLite)
	target.ledgerCreated = true
	target.schemaInitialized = true

	now := time.Unix(1700000000, 0)

	runner := migrate.NewRunner(target, sources(threeStepSource()),
		migrate.WithLogger(discardLogger()),
		migrate.WithClock(func() time.Time { return now }))

	require.NoError(t, runner.Run(context.Background()))

	require.Len(t, target.recorded, 1)
	baseline := target.recorded[0]
	assert.Equal(t, migrate.BaselineVersion, baseline.Version)
	assert.Equal(t, migrate.BaselineName, baseline.Name)
	assert.Empty(t, baseline.Checksum)
	assert.Equal(t, now.Unix(), baseline.AppliedAt)

	// The baseline marks history, not the numbered versions: every
	// definition still runs, relying on the targets' tolerance for
	// already-present objects.
	assert.Equal(t, []string{"001", "002", "003"}, target.appliedVersions)
}

func TestRunner_baselineNotRecordedWhenLedgerExisted(t *testing.T) {
	t.Parallel()

	target := newFakeTarget(migrate.BackendSQLite)
	target.ledgerCreated = false
	target.schemaInitialized = true

	runner := migrate.NewRunner(target, sources(threeStepSource()),
		migrate.WithLogger(discardLogger()))

	require.NoError(t, runner.Run(context.Background()))
	assert.Empty(t, target.recorded)
}

func TestRunner_baselineRaceTolerated(t *testing.T) {
	t.Parallel()

	target := newFakeTarget(migrate.BackendSQLite)
	target.ledgerCreated = true
	target.schemaInitialized = true
	target.recordErr = migrate.ErrDuplicateVersion

	runner := migrate.NewRunner(target, sources(threeStepSource()),
		migrate.WithLogger(discardLogger()))

	require.NoError(t, runner.Run(context.Background()))
}

func TestRunner_sequenceGapIsFatal(t *testing.T) {
	t.Parallel()

	target := newFakeTarget(migrate.BackendSQLite)
	fsys := sources(map[string]string{
		"001_initial_schema_sqlite.sql": "CREATE TABLE users (id INTEGER);",
		"003_add_flag_sqlite.sql":       "ALTER TABLE users ADD COLUMN flag INTEGER;",
	})

	runner := migrate.NewRunner(target, fsys, migrate.WithLogger(discardLogger()))

	err := runner.Run(context.Background())

	var gap *migrate.SequenceGapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, "002", gap.Missing)
	assert.Empty(t, target.appliedVersions)
}

func TestRunner_checksumDriftIsFatal(t *testing.T) {
	t.Parallel()

	target := newFakeTarget(migrate.BackendSQLite)
	target.entries = []migrate.LedgerEntry{
		{Version: "001", Name: "initial_schema", Checksum: "recorded-but-different"},
	}

	runner := migrate.NewRunner(target, sources(threeStepSource()),
		migrate.WithLogger(discardLogger()))

	err := runner.Run(context.Background())

	var drift *migrate.ChecksumDriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, "001", drift.Version)
	assert.Empty(t, target.appliedVersions)
}

func TestRunner_baselineEntryExemptFromDrift(t *testing.T) {
	t.Parallel()

	target := newFakeTarget(migrate.BackendSQLite)
	target.entries = []migrate.LedgerEntry{
		{Version: migrate.BaselineVersion, Name: migrate.BaselineName, Checksum: ""},
	}

	runner := migrate.NewRunner(target, sources(threeStepSource()),
		migrate.WithLogger(discardLogger()))

	require.NoError(t, runner.Run(context.Background()))
	assert.Equal(t, []string{"001", "002", "003"}, target.appliedVersions)
}

func TestRunner_appliedElsewhereContinues(t *testing.T) {
	t.Parallel()

	target := newFakeTarget(migrate.BackendSQLite)
	target.ledgerCreated = true
	target.applyOutcome["002"] = migrate.OutcomeAppliedElsewhere

	runner := migrate.NewRunner(target, sources(threeStepSource()),
		migrate.WithLogger(discardLogger()))

	require.NoError(t, runner.Run(context.Background()))
	assert.Equal(t, []string{"001", "002", "003"}, target.appliedVersions)
}

func TestRunner_applyFailureAborts(t *testing.T) {
	t.Parallel()

	execErr := errors.New("syntax error near CREATE")

	target := newFakeTarget(migrate.BackendSQLite)
	target.ledgerCreated = true
	target.applyErr["002"] = execErr

	runner := migrate.NewRunner(target, sources(threeStepSource()),
		migrate.WithLogger(discardLogger()))

	err := runner.Run(context.Background())

	require.ErrorIs(t, err, execErr)
	assert.Contains(t, err.Error(), "002_add_language_column")
	// 003 never runs after the failure.
	assert.Equal(t, []string{"001"}, target.appliedVersions)
}

func TestRunner_clockStampsEntries(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000123, 0)

	target := newFakeTarget(migrate.BackendSQLite)
	target.ledgerCreated = true

	runner := migrate.NewRunner(target, sources(threeStepSource()),
		migrate.WithLogger(discardLogger()),
		migrate.WithClock(func() time.Time { return now }))

	require.NoError(t, runner.Run(context.Background()))

	for _, e := range target.entries {
		assert.Equal(t, now.Unix(), e.AppliedAt)
	}
}
