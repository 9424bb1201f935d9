// Package storage selects and constructs the persistence backend from the
// configured database URL. Both engines implement the same Repository
// surface and expose a migrate.Target for the startup migration runner.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/azubrytski-dev/challange-bot/internal/migrate"
	"github.com/azubrytski-dev/challange-bot/internal/model"
	"github.com/azubrytski-dev/challange-bot/internal/storage/postgres"
	"github.com/azubrytski-dev/challange-bot/internal/storage/sqlite"
)

// ErrUnsupportedScheme indicates a database URL with a scheme other than
// sqlite:// or postgres://.
var ErrUnsupportedScheme = errors.New("unsupported database URL scheme")

// Repository is the persistence surface used by the bot handlers and the
// rating scheduler.
type Repository interface {
	EnsureChatState(ctx context.Context, chatID int64) error
	ChatState(ctx context.Context, chatID int64) (model.ChatState, error)
	SetLastCircleTS(ctx context.Context, chatID, ts int64) error
	SetLastRatingTS(ctx context.Context, chatID, ts int64) error
	SetRatingsEnabled(ctx context.Context, chatID int64, enabled bool) error
	SetChatLanguage(ctx context.Context, chatID int64, lang string) error
	ListActiveChats(ctx context.Context) ([]int64, error)

	UpsertUser(ctx context.Context, identity model.UserIdentity) error
	UserStats(ctx context.Context, chatID, userID int64) (*model.UserStats, error)
	AddCirclePoints(ctx context.Context, chatID, userID int64, points int) error
	AddReactionPoints(ctx context.Context, chatID, userID int64, points int) error

	InsertCircle(ctx context.Context, c model.CircleMessage) (bool, error)
	CircleAuthorID(ctx context.Context, chatID int64, messageID int) (int64, bool, error)

	InsertReaction(ctx context.Context, chatID int64, messageID int, reactorID int64, emoji string) (bool, error)
	DeleteReaction(ctx context.Context, chatID int64, messageID int, reactorID int64, emoji string) (bool, error)

	Top(ctx context.Context, chatID int64, limit int) ([]model.TopRow, error)
	ZeroUsers(ctx context.Context, chatID int64, criteria string, limit int) ([]model.UserStats, error)

	Close() error
}

// MigrationTarget is a migrate.Target on a dedicated connection. It is
// opened before the serving Repository, used to completion, and closed;
// the migration connection is never shared with application traffic.
type MigrationTarget interface {
	migrate.Target
	io.Closer
}

// Open constructs the Repository matching the URL scheme:
// sqlite:///data/bot.db for the embedded engine, postgres://... for the
// client/server engine.
func Open(ctx context.Context, databaseURL string) (Repository, error) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		store, err := sqlite.Open(sqlitePath(databaseURL))
		if err != nil {
			return nil, err
		}

		return store, nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		store, err := postgres.Open(ctx, databaseURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, schemeOf(databaseURL))
	}
}

// OpenMigrationTarget opens a dedicated migration connection for the URL's
// backend. The caller must Close it before opening the serving Repository.
func OpenMigrationTarget(ctx context.Context, databaseURL string) (MigrationTarget, error) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return sqlite.OpenTarget(sqlitePath(databaseURL))
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgres.OpenTarget(ctx, databaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, schemeOf(databaseURL))
	}
}

// sqlitePath strips the sqlite:/// prefix, leaving a filesystem path.
// sqlite:///data/bot.db maps to the relative path data/bot.db, matching the
// deployment layout the bot has always used.
func sqlitePath(databaseURL string) string {
	path := strings.TrimPrefix(databaseURL, "sqlite://")
	path = strings.TrimPrefix(path, "/")

	return path
}

func schemeOf(databaseURL string) string {
	if i := strings.Index(databaseURL, "://"); i >= 0 {
		return databaseURL[:i]
	}

	return databaseURL
}
