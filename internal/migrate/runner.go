package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Runner drives the startup migration flow for a single database:
// ensure ledger → bootstrap legacy baseline → load definitions → validate
// sequence → verify checksums → apply pending in order. It runs
// synchronously, once, before the application begins serving; after Run
// returns nil the schema matches the version the application expects.
type Runner struct {
	target Target
	source fs.FS
	log    *slog.Logger
	now    func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for apply progress and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithClock overrides the applied_at timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner applying definitions from source to target.
func NewRunner(target Target, source fs.FS, opts ...Option) *Runner {
	r := &Runner{
		target: target,
		source: source,
		log:    slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes the full migration flow. Fatal conditions (malformed
// identifiers, sequence gaps, checksum drift, execution failures) abort
// with an error; recovered conditions (benign duplicate objects, a
// concurrent instance winning an apply race) are logged and skipped.
func (r *Runner) Run(ctx context.Context) error {
	log := r.log.With("backend", string(r.target.Backend()))

	created, err := r.target.EnsureLedger(ctx)
	if err != nil {
		return fmt.Errorf("ensuring migration ledger: %w", err)
	}

	applied, err := r.appliedByVersion(ctx)
	if err != nil {
		return err
	}

	if created && len(applied) == 0 {
		if err := r.bootstrap(ctx, log, applied); err != nil {
			return err
		}
	}

	defs, err := Load(r.source, r.target.Backend())
	if err != nil {
		return fmt.Errorf("loading migration definitions: %w", err)
	}

	ordered, err := ValidateSequence(defs)
	if err != nil {
		return err
	}

	if err := verifyChecksums(ordered, applied); err != nil {
		return err
	}

	return r.applyPending(ctx, log, ordered, applied)
}

// appliedByVersion reads the ledger into a version-keyed map.
func (r *Runner) appliedByVersion(ctx context.Context) (map[string]LedgerEntry, error) {
	entries, err := r.target.AppliedEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading migration ledger: %w", err)
	}

	applied := make(map[string]LedgerEntry, len(entries))
	for _, e := range entries {
		applied[e.Version] = e
	}

	return applied, nil
}

// bootstrap reconciles a database created before the ledger existed. It
// runs only when the ledger table was created fresh by this startup: if the
// application tables are already present, a synthetic 000 baseline entry is
// recorded so the historical schema is not treated as pending. A fresh,
// empty database gets no baseline and all migrations apply normally.
func (r *Runner) bootstrap(ctx context.Context, log *slog.Logger, applied map[string]LedgerEntry) error {
	initialized, err := r.target.SchemaInitialized(ctx)
	if err != nil {
		return fmt.Errorf("inspecting schema for legacy baseline: %w", err)
	}

	if !initialized {
		return nil
	}

	entry := LedgerEntry{
		Version:   BaselineVersion,
		Name:      BaselineName,
		Checksum:  "", // no source definition; exempt from drift checks
		AppliedAt: r.now().Unix(),
	}

	if err := r.target.Record(ctx, entry); err != nil {
		if errors.Is(err, ErrDuplicateVersion) {
			// Another instance seeded the baseline between our ledger
			// creation and this insert.
			return nil
		}

		return fmt.Errorf("recording legacy baseline: %w", err)
	}

	applied[BaselineVersion] = entry
	log.Info("legacy baseline recorded for pre-existing schema", "version", BaselineVersion)

	return nil
}

// verifyChecksums compares the recorded checksum of every already-applied
// version against the definition currently on disk. Ledger-only versions
// (the baseline, pruned history) are exempt.
func verifyChecksums(defs []Definition, applied map[string]LedgerEntry) error {
	for _, d := range defs {
		e, ok := applied[d.Version]
		if !ok {
			continue
		}

		if e.Checksum != d.Checksum {
			return &ChecksumDriftError{
				Version:  d.Version,
				Name:     d.Name,
				Recorded: e.Checksum,
				Current:  d.Checksum,
			}
		}
	}

	return nil
}

// applyPending executes the pending subset in sequence order, recording a
// ledger entry per migration as it goes.
func (r *Runner) applyPending(ctx context.Context, log *slog.Logger, ordered []Definition, applied map[string]LedgerEntry) error {
	pending := 0

	for _, d := range ordered {
		if _, ok := applied[d.Version]; ok {
			log.Debug("migration already applied", "version", d.Version, "name", d.Name)

			continue
		}

		pending++

		entry := LedgerEntry{
			Version:   d.Version,
			Name:      d.Name,
			Checksum:  d.Checksum,
			AppliedAt: r.now().Unix(),
		}

		outcome, err := r.target.Apply(ctx, d, entry)
		if err != nil {
			return fmt.Errorf("applying migration %s_%s: %w", d.Version, d.Name, err)
		}

		switch outcome {
		case OutcomeApplied:
			log.Info("migration applied", "version", d.Version, "name", d.Name)
		case OutcomeAppliedWithWarning:
			log.Warn("migration body reported an existing object; recorded as applied",
				"version", d.Version, "name", d.Name)
		case OutcomeAppliedElsewhere:
			log.Info("migration applied by another instance", "version", d.Version, "name", d.Name)
		}
	}

	if pending == 0 {
		log.Debug("schema is current, nothing to apply")
	}

	return nil
}
