package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/azubrytski-dev/challange-bot/internal/config"
	"github.com/azubrytski-dev/challange-bot/internal/migrate"
	"github.com/azubrytski-dev/challange-bot/internal/storage"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE:  runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := storage.OpenMigrationTarget(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer target.Close()

	return printStatus(ctx, cmd.OutOrStdout(), cfg, target)
}

func printStatus(ctx context.Context, out io.Writer, cfg *config.Config, target storage.MigrationTarget) error {
	if _, err := target.EnsureLedger(ctx); err != nil {
		return fmt.Errorf("ensuring migration ledger: %w", err)
	}

	entries, err := target.AppliedEntries(ctx)
	if err != nil {
		return fmt.Errorf("reading migration ledger: %w", err)
	}

	defs, err := migrate.Load(storage.MigrationsFS(), target.Backend())
	if err != nil {
		return fmt.Errorf("loading migration definitions: %w", err)
	}

	applied := make(map[string]struct{}, len(entries))

	fmt.Fprintf(out, "Database: %s (%s)\n", config.RedactURL(cfg.DatabaseURL), target.Backend())
	fmt.Fprintf(out, "Applied: %d\n", len(entries))

	for _, e := range entries {
		applied[e.Version] = struct{}{}
		fmt.Fprintf(out, "  %s  %s\n", e.Version, e.Name)
	}

	pending := 0

	for _, d := range defs {
		if _, ok := applied[d.Version]; ok {
			continue
		}

		if pending == 0 {
			fmt.Fprintln(out, "Pending:")
		}

		pending++
		fmt.Fprintf(out, "  %s  %s\n", d.Version, d.Name)
	}

	if pending == 0 {
		fmt.Fprintln(out, "Pending: none")
	}

	return nil
}
