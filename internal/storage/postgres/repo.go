package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/azubrytski-dev/challange-bot/internal/model"
)

// EnsureChatState creates the per-chat bookkeeping row if it is missing.
func (s *Store) EnsureChatState(ctx context.Context, chatID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_state(chat_id, last_circle_ts, last_rating_ts) VALUES($1, 0, 0)
		 ON CONFLICT (chat_id) DO NOTHING`,
		chatID,
	)
	if err != nil {
		return fmt.Errorf("ensuring chat state for %d: %w", chatID, err)
	}

	return nil
}

// ChatState returns the bookkeeping row for a chat, creating it on demand.
func (s *Store) ChatState(ctx context.Context, chatID int64) (model.ChatState, error) {
	if err := s.EnsureChatState(ctx, chatID); err != nil {
		return model.ChatState{}, err
	}

	var st model.ChatState

	err := s.pool.QueryRow(ctx,
		`SELECT chat_id, last_circle_ts, last_rating_ts, ratings_enabled, language
		 FROM chat_state WHERE chat_id = $1`,
		chatID,
	).Scan(&st.ChatID, &st.LastCircleTS, &st.LastRatingTS, &st.RatingsEnabled, &st.Language)
	if err != nil {
		return model.ChatState{}, fmt.Errorf("reading chat state for %d: %w", chatID, err)
	}

	return st, nil
}

// SetLastCircleTS stamps the time of the most recent circle in a chat.
func (s *Store) SetLastCircleTS(ctx context.Context, chatID, ts int64) error {
	return s.updateChatState(ctx, chatID, `UPDATE chat_state SET last_circle_ts = $1 WHERE chat_id = $2`, ts)
}

// SetLastRatingTS stamps the time of the most recent published rating.
func (s *Store) SetLastRatingTS(ctx context.Context, chatID, ts int64) error {
	return s.updateChatState(ctx, chatID, `UPDATE chat_state SET last_rating_ts = $1 WHERE chat_id = $2`, ts)
}

// SetRatingsEnabled toggles the automatic rating publication for a chat.
func (s *Store) SetRatingsEnabled(ctx context.Context, chatID int64, enabled bool) error {
	return s.updateChatState(ctx, chatID, `UPDATE chat_state SET ratings_enabled = $1 WHERE chat_id = $2`, enabled)
}

// SetChatLanguage sets the message catalog language for a chat.
func (s *Store) SetChatLanguage(ctx context.Context, chatID int64, lang string) error {
	return s.updateChatState(ctx, chatID, `UPDATE chat_state SET language = $1 WHERE chat_id = $2`, lang)
}

func (s *Store) updateChatState(ctx context.Context, chatID int64, query string, value any) error {
	if err := s.EnsureChatState(ctx, chatID); err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, query, value, chatID); err != nil {
		return fmt.Errorf("updating chat state for %d: %w", chatID, err)
	}

	return nil
}

// ListActiveChats returns every chat the bot has seen activity in.
func (s *Store) ListActiveChats(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT chat_id FROM chat_state`)
	if err != nil {
		return nil, fmt.Errorf("listing active chats: %w", err)
	}
	defer rows.Close()

	chats, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scanning active chats: %w", err)
	}

	return chats, nil
}

// UpsertUser inserts the user with zeroed counters or refreshes the
// username and display name of an existing row.
func (s *Store) UpsertUser(ctx context.Context, identity model.UserIdentity) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users(chat_id, user_id, username, display_name, circles, reactions, points)
		 VALUES($1, $2, $3, $4, 0, 0, 0)
		 ON CONFLICT (chat_id, user_id) DO UPDATE SET
		   username = EXCLUDED.username,
		   display_name = EXCLUDED.display_name`,
		identity.ChatID, identity.UserID, nullable(identity.Username), identity.DisplayName,
	)
	if err != nil {
		return fmt.Errorf("upserting user %d in chat %d: %w", identity.UserID, identity.ChatID, err)
	}

	return nil
}

// UserStats returns one user's counters, or nil if the user has none yet.
func (s *Store) UserStats(ctx context.Context, chatID, userID int64) (*model.UserStats, error) {
	var (
		stats    model.UserStats
		username sql.NullString
	)

	err := s.pool.QueryRow(ctx,
		`SELECT chat_id, user_id, username, display_name, circles, reactions, points
		 FROM users WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID,
	).Scan(&stats.ChatID, &stats.UserID, &username, &stats.DisplayName,
		&stats.Circles, &stats.Reactions, &stats.Points)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading stats for user %d in chat %d: %w", userID, chatID, err)
	}

	stats.Username = username.String

	return &stats, nil
}

// AddCirclePoints credits a posted circle.
func (s *Store) AddCirclePoints(ctx context.Context, chatID, userID int64, points int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET circles = circles + 1, points = points + $1 WHERE chat_id = $2 AND user_id = $3`,
		points, chatID, userID,
	)
	if err != nil {
		return fmt.Errorf("adding circle points for user %d in chat %d: %w", userID, chatID, err)
	}

	return nil
}

// AddReactionPoints adjusts the author's counters for a reaction change.
func (s *Store) AddReactionPoints(ctx context.Context, chatID, userID int64, points int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users
		 SET reactions = reactions + CASE WHEN $1 > 0 THEN 1 ELSE -1 END,
		     points = points + $1
		 WHERE chat_id = $2 AND user_id = $3`,
		points, chatID, userID,
	)
	if err != nil {
		return fmt.Errorf("adding reaction points for user %d in chat %d: %w", userID, chatID, err)
	}

	return nil
}

// InsertCircle records a circle message; false means it was already known.
func (s *Store) InsertCircle(ctx context.Context, c model.CircleMessage) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO circle_messages(chat_id, message_id, author_id, created_at_ts)
		 VALUES($1, $2, $3, $4)
		 ON CONFLICT (chat_id, message_id) DO NOTHING`,
		c.ChatID, c.MessageID, c.AuthorID, c.CreatedAtTS,
	)
	if err != nil {
		return false, fmt.Errorf("inserting circle %d in chat %d: %w", c.MessageID, c.ChatID, err)
	}

	return tag.RowsAffected() == 1, nil
}

// CircleAuthorID returns the author of a tracked circle message.
func (s *Store) CircleAuthorID(ctx context.Context, chatID int64, messageID int) (int64, bool, error) {
	var authorID int64

	err := s.pool.QueryRow(ctx,
		`SELECT author_id FROM circle_messages WHERE chat_id = $1 AND message_id = $2`,
		chatID, messageID,
	).Scan(&authorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, fmt.Errorf("reading circle author in chat %d: %w", chatID, err)
	}

	return authorID, true, nil
}

// InsertReaction logs one reactor+emoji pair; false means already logged.
func (s *Store) InsertReaction(ctx context.Context, chatID int64, messageID int, reactorID int64, emoji string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO reactions_log(chat_id, message_id, reactor_id, emoji) VALUES($1, $2, $3, $4)
		 ON CONFLICT (chat_id, message_id, reactor_id, emoji) DO NOTHING`,
		chatID, messageID, reactorID, emoji,
	)
	if err != nil {
		return false, fmt.Errorf("inserting reaction in chat %d: %w", chatID, err)
	}

	return tag.RowsAffected() == 1, nil
}

// DeleteReaction removes a logged reaction; false means it was not logged.
func (s *Store) DeleteReaction(ctx context.Context, chatID int64, messageID int, reactorID int64, emoji string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM reactions_log WHERE chat_id = $1 AND message_id = $2 AND reactor_id = $3 AND emoji = $4`,
		chatID, messageID, reactorID, emoji,
	)
	if err != nil {
		return false, fmt.Errorf("deleting reaction in chat %d: %w", chatID, err)
	}

	return tag.RowsAffected() == 1, nil
}

// Top returns the chat leaderboard, ranked starting at 1.
func (s *Store) Top(ctx context.Context, chatID int64, limit int) ([]model.TopRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, username, display_name, circles, reactions, points
		 FROM users
		 WHERE chat_id = $1
		 ORDER BY points DESC, circles DESC, reactions DESC, user_id ASC
		 LIMIT $2`,
		chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying top for chat %d: %w", chatID, err)
	}
	defer rows.Close()

	var top []model.TopRow

	for rows.Next() {
		var (
			r        model.TopRow
			username sql.NullString
		)

		if err := rows.Scan(&r.UserID, &username, &r.DisplayName, &r.Circles, &r.Reactions, &r.Points); err != nil {
			return nil, fmt.Errorf("scanning top row: %w", err)
		}

		r.Username = username.String
		r.Rank = len(top) + 1
		top = append(top, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating top rows: %w", err)
	}

	return top, nil
}

// ZeroUsers returns the users matching the zero-activity criteria.
func (s *Store) ZeroUsers(ctx context.Context, chatID int64, criteria string, limit int) ([]model.UserStats, error) {
	var where string

	switch criteria {
	case model.ZeroCriteriaPoints:
		where = "points <= 0"
	case model.ZeroCriteriaCircles:
		where = "circles = 0"
	default:
		return nil, fmt.Errorf("unknown zero criteria %q", criteria)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT chat_id, user_id, username, display_name, circles, reactions, points
		 FROM users
		 WHERE chat_id = $1 AND `+where+`
		 ORDER BY points ASC, circles ASC, reactions ASC, user_id ASC
		 LIMIT $2`,
		chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying zero users for chat %d: %w", chatID, err)
	}
	defer rows.Close()

	var users []model.UserStats

	for rows.Next() {
		var (
			u        model.UserStats
			username sql.NullString
		)

		if err := rows.Scan(&u.ChatID, &u.UserID, &username, &u.DisplayName, &u.Circles, &u.Reactions, &u.Points); err != nil {
			return nil, fmt.Errorf("scanning zero user: %w", err)
		}

		u.Username = username.String
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating zero users: %w", err)
	}

	return users, nil
}

// nullable maps an empty string to NULL, matching the schema where username
// is optional.
func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}
