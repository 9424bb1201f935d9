package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/azubrytski-dev/challange-bot/internal/bot"
	"github.com/azubrytski-dev/challange-bot/internal/config"
	"github.com/azubrytski-dev/challange-bot/internal/storage"
)

var serveCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "serve",
	Short: "Migrate the schema, then run the bot",
	Long: `Run schema migrations to completion on a dedicated connection,
then start polling Telegram for updates. Any fatal migration error
aborts before the bot serves a single update.`,
	RunE: runServe,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrateDatabase(ctx, cfg, cmd.OutOrStdout()); err != nil {
		return err
	}

	repo, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer repo.Close()

	b, err := bot.New(cfg, repo, slog.Default())
	if err != nil {
		return err
	}

	slog.Info("bot starting",
		slog.String("database", config.RedactURL(cfg.DatabaseURL)),
		slog.Duration("rating_interval", cfg.RatingInterval))

	return b.Run(ctx)
}
