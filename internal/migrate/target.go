package migrate

import "context"

// LedgerEntry is one row of the schema_migrations table: an append-only
// record that a version was executed exactly once. Entries are never
// mutated or deleted.
type LedgerEntry struct {
	Version   string
	Name      string
	Checksum  string
	AppliedAt int64 // unix seconds
}

// Outcome reports how a single migration apply finished. Any outcome means
// a ledger row exists for the version; failures are reported as errors.
type Outcome int

const (
	// OutcomeApplied means the body executed and this instance wrote the
	// ledger row.
	OutcomeApplied Outcome = iota

	// OutcomeAppliedWithWarning means the body reported a benign error
	// class for the backend (duplicate column / object already exists on
	// the embedded engine); the ledger row was still written.
	OutcomeAppliedWithWarning

	// OutcomeAppliedElsewhere means the ledger insert conflicted on the
	// version primary key: a concurrently starting instance won the race.
	OutcomeAppliedElsewhere
)

// Target executes migrations against one backend. Implementations live with
// their storage packages and own the backend-specific atomicity rules: the
// client/server engine wraps execute+record in a single transaction, the
// embedded engine records immediately after a successful execute so a
// restart resumes at the correct point.
type Target interface {
	// Backend identifies which definitions this target consumes.
	Backend() Backend

	// EnsureLedger creates the schema_migrations table if absent. created
	// reports whether this call created it, which gates the bootstrap
	// adapter.
	EnsureLedger(ctx context.Context) (created bool, err error)

	// AppliedEntries returns all ledger rows in version order.
	AppliedEntries(ctx context.Context) ([]LedgerEntry, error)

	// SchemaInitialized reports whether the application's primary tables
	// already exist, i.e. the database predates the ledger.
	SchemaInitialized(ctx context.Context) (bool, error)

	// Record inserts a ledger row without executing any body. Returns
	// ErrDuplicateVersion if the version is already recorded.
	Record(ctx context.Context, e LedgerEntry) error

	// Apply executes the definition body and records the ledger entry.
	// A non-nil error is fatal and means nothing was recorded.
	Apply(ctx context.Context, d Definition, e LedgerEntry) (Outcome, error)
}
