package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/azubrytski-dev/challange-bot/internal/config"
	"github.com/azubrytski-dev/challange-bot/internal/migrate"
	"github.com/azubrytski-dev/challange-bot/internal/storage"
)

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New(
	"database URL is required (set --database-url, DB_URL, or database_url in config)",
)

var migrateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",
	Long: `Run the schema migration flow against the configured database:
create the ledger if needed, baseline pre-ledger databases, verify
checksums, and apply pending migrations in order.`,
	RunE: runMigrate,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := migrateDatabase(ctx, AppConfig, cmd.OutOrStdout()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Schema is current.")

	return nil
}

// migrateDatabase runs the migration flow on a dedicated connection that
// is closed before the caller opens the serving repository.
func migrateDatabase(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	fmt.Fprintf(out, "Migrating %s\n", config.RedactURL(cfg.DatabaseURL))

	target, err := storage.OpenMigrationTarget(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer target.Close()

	runner := migrate.NewRunner(target, storage.MigrationsFS(),
		migrate.WithLogger(slog.Default()))

	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}
