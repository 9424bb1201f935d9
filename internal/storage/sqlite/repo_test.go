package sqlite_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azubrytski-dev/challange-bot/internal/migrate"
	"github.com/azubrytski-dev/challange-bot/internal/model"
	"github.com/azubrytski-dev/challange-bot/internal/storage"
	"github.com/azubrytski-dev/challange-bot/internal/storage/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bot.db")

	target, err := sqlite.OpenTarget(path)
	require.NoError(t, err)

	runner := migrate.NewRunner(target, storage.MigrationsFS(),
		migrate.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, runner.Run(context.Background()))
	require.NoError(t, target.Close())

	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func identity(chatID, userID int64, username, name string) model.UserIdentity {
	return model.UserIdentity{ChatID: chatID, UserID: userID, Username: username, DisplayName: name}
}

func TestChatState_defaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)

	state, err := store.ChatState(ctx, -100)
	require.NoError(t, err)

	assert.Equal(t, int64(-100), state.ChatID)
	assert.Zero(t, state.LastCircleTS)
	assert.Zero(t, state.LastRatingTS)
	assert.True(t, state.RatingsEnabled)
	assert.Equal(t, "en", state.Language)
}

func TestChatState_updates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SetLastCircleTS(ctx, -100, 1700000001))
	require.NoError(t, store.SetLastRatingTS(ctx, -100, 1700000002))
	require.NoError(t, store.SetRatingsEnabled(ctx, -100, false))
	require.NoError(t, store.SetChatLanguage(ctx, -100, "ru"))

	state, err := store.ChatState(ctx, -100)
	require.NoError(t, err)

	assert.Equal(t, int64(1700000001), state.LastCircleTS)
	assert.Equal(t, int64(1700000002), state.LastRatingTS)
	assert.False(t, state.RatingsEnabled)
	assert.Equal(t, "ru", state.Language)
}

func TestListActiveChats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)

	chats, err := store.ListActiveChats(ctx)
	require.NoError(t, err)
	assert.Empty(t, chats)

	require.NoError(t, store.EnsureChatState(ctx, -100))
	require.NoError(t, store.EnsureChatState(ctx, -200))
	require.NoError(t, store.EnsureChatState(ctx, -100)) // repeat is a no-op

	chats, err = store.ListActiveChats(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{-100, -200}, chats)
}

func TestUpsertUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.UpsertUser(ctx, identity(-100, 42, "", "Ada")))
	require.NoError(t, store.AddCirclePoints(ctx, -100, 42, 3))

	// The upsert refreshes identity fields without touching counters.
	require.NoError(t, store.UpsertUser(ctx, identity(-100, 42, "ada", "Ada L")))

	stats, err := store.UserStats(ctx, -100, 42)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, "ada", stats.Username)
	assert.Equal(t, "Ada L", stats.DisplayName)
	assert.Equal(t, 3, stats.Points)
	assert.Equal(t, 1, stats.Circles)
}

func TestUserStats_absentUserIsNil(t *testing.T) {
	t.Parallel()

	stats, err := newStore(t).UserStats(context.Background(), -100, 404)
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestUserStats_chatScoped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.UpsertUser(ctx, identity(-100, 42, "ada", "Ada")))
	require.NoError(t, store.UpsertUser(ctx, identity(-200, 42, "ada", "Ada")))
	require.NoError(t, store.AddCirclePoints(ctx, -100, 42, 5))

	stats, err := store.UserStats(ctx, -200, 42)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Zero(t, stats.Points)
}

func TestInsertCircle_idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)

	circle := model.CircleMessage{ChatID: -100, MessageID: 7, AuthorID: 42, CreatedAtTS: 1700000000}

	inserted, err := store.InsertCircle(ctx, circle)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.InsertCircle(ctx, circle)
	require.NoError(t, err)
	assert.False(t, inserted)

	authorID, found, err := store.CircleAuthorID(ctx, -100, 7)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(42), authorID)

	_, found, err = store.CircleAuthorID(ctx, -100, 404)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReactionLog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)

	inserted, err := store.InsertReaction(ctx, -100, 7, 99, "🔥")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.InsertReaction(ctx, -100, 7, 99, "🔥")
	require.NoError(t, err)
	assert.False(t, inserted)

	// A different emoji from the same reactor is a separate log entry.
	inserted, err = store.InsertReaction(ctx, -100, 7, 99, "❤️")
	require.NoError(t, err)
	assert.True(t, inserted)

	deleted, err := store.DeleteReaction(ctx, -100, 7, 99, "🔥")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteReaction(ctx, -100, 7, 99, "🔥")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAddReactionPoints(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.UpsertUser(ctx, identity(-100, 42, "ada", "Ada")))

	require.NoError(t, store.AddReactionPoints(ctx, -100, 42, 2))
	require.NoError(t, store.AddReactionPoints(ctx, -100, 42, 2))
	require.NoError(t, store.AddReactionPoints(ctx, -100, 42, -2))

	stats, err := store.UserStats(ctx, -100, 42)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Reactions)
	assert.Equal(t, 2, stats.Points)
}

func TestTop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.UpsertUser(ctx, identity(-100, 1, "ada", "Ada")))
	require.NoError(t, store.UpsertUser(ctx, identity(-100, 2, "bob", "Bob")))
	require.NoError(t, store.UpsertUser(ctx, identity(-100, 3, "", "Cat")))
	require.NoError(t, store.UpsertUser(ctx, identity(-999, 4, "eve", "Eve"))) // other chat

	require.NoError(t, store.AddCirclePoints(ctx, -100, 1, 5))
	require.NoError(t, store.AddCirclePoints(ctx, -100, 2, 5))
	require.NoError(t, store.AddCirclePoints(ctx, -100, 2, 5))
	require.NoError(t, store.AddCirclePoints(ctx, -999, 4, 50))

	top, err := store.Top(ctx, -100, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, int64(2), top[0].UserID)
	assert.Equal(t, 10, top[0].Points)
	assert.Equal(t, int64(1), top[1].UserID)
	assert.Equal(t, int64(3), top[2].UserID)
	assert.Empty(t, top[2].Username)

	top, err = store.Top(ctx, -100, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestZeroUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.UpsertUser(ctx, identity(-100, 1, "ada", "Ada")))
	require.NoError(t, store.UpsertUser(ctx, identity(-100, 2, "bob", "Bob")))
	require.NoError(t, store.UpsertUser(ctx, identity(-100, 3, "cat", "Cat")))

	require.NoError(t, store.AddCirclePoints(ctx, -100, 1, 5))
	// Bob has points from reactions but no circles.
	require.NoError(t, store.AddReactionPoints(ctx, -100, 2, 1))

	t.Run("points criteria", func(t *testing.T) {
		zero, err := store.ZeroUsers(ctx, -100, model.ZeroCriteriaPoints, 10)
		require.NoError(t, err)
		require.Len(t, zero, 1)
		assert.Equal(t, int64(3), zero[0].UserID)
	})

	t.Run("circles criteria", func(t *testing.T) {
		zero, err := store.ZeroUsers(ctx, -100, model.ZeroCriteriaCircles, 10)
		require.NoError(t, err)
		require.Len(t, zero, 2)
		assert.Equal(t, int64(3), zero[0].UserID) // least active first
		assert.Equal(t, int64(2), zero[1].UserID)
	})

	t.Run("limit caps the callout", func(t *testing.T) {
		zero, err := store.ZeroUsers(ctx, -100, model.ZeroCriteriaCircles, 1)
		require.NoError(t, err)
		assert.Len(t, zero, 1)
	})

	t.Run("unknown criteria is an error", func(t *testing.T) {
		_, err := store.ZeroUsers(ctx, -100, "messages", 10)
		require.Error(t, err)
	})
}
