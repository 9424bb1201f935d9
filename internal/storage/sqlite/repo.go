package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/azubrytski-dev/challange-bot/internal/model"
)

// EnsureChatState creates the per-chat bookkeeping row if it is missing.
func (s *Store) EnsureChatState(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chat_state(chat_id, last_circle_ts, last_rating_ts) VALUES(?, 0, 0)`,
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

	var (
		st      model.ChatState
		enabled int
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT chat_id, last_circle_ts, last_rating_ts, ratings_enabled, language
		 FROM chat_state WHERE chat_id = ?`,
		chatID,
	).Scan(&st.ChatID, &st.LastCircleTS, &st.LastRatingTS, &enabled, &st.Language)
	if err != nil {
		return model.ChatState{}, fmt.Errorf("reading chat state for %d: %w", chatID, err)
	}

	st.RatingsEnabled = enabled != 0

	return st, nil
}

// SetLastCircleTS stamps the time of the most recent circle in a chat.
func (s *Store) SetLastCircleTS(ctx context.Context, chatID, ts int64) error {
	return s.updateChatState(ctx, chatID, `UPDATE chat_state SET last_circle_ts = ? WHERE chat_id = ?`, ts)
}

// SetLastRatingTS stamps the time of the most recent published rating.
func (s *Store) SetLastRatingTS(ctx context.Context, chatID, ts int64) error {
	return s.updateChatState(ctx, chatID, `UPDATE chat_state SET last_rating_ts = ? WHERE chat_id = ?`, ts)
}

// SetRatingsEnabled toggles the automatic rating publication for a chat.
func (s *Store) SetRatingsEnabled(ctx context.Context, chatID int64, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}

	return s.updateChatState(ctx, chatID, `UPDATE chat_state SET ratings_enabled = ? WHERE chat_id = ?`, v)
}

// SetChatLanguage sets the message catalog language for a chat.
func (s *Store) SetChatLanguage(ctx context.Context, chatID int64, lang string) error {
	return s.updateChatState(ctx, chatID, `UPDATE chat_state SET language = ? WHERE chat_id = ?`, lang)
}

func (s *Store) updateChatState(ctx context.Context, chatID int64, query string, value any) error {
	if err := s.EnsureChatState(ctx, chatID); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, value, chatID); err != nil {
		return fmt.Errorf("updating chat state for %d: %w", chatID, err)
	}

	return nil
}

// ListActiveChats returns every chat the bot has seen activity in.
func (s *Store) ListActiveChats(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id FROM chat_state`)
	if err != nil {
		return nil, fmt.Errorf("listing active chats: %w", err)
	}
	defer rows.Close()

	var chats []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chat id: %w", err)
		}

		chats = append(chats, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating active chats: %w", err)
	}

	return chats, nil
}

// UpsertUser inserts the user with zeroed counters or refreshes the
// username and display name of an existing row.
func (s *Store) UpsertUser(ctx context.Context, identity model.UserIdentity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(chat_id, user_id, username, display_name, circles, reactions, points)
		 VALUES(?, ?, ?, ?, 0, 0, 0)
		 ON CONFLICT(chat_id, user_id) DO UPDATE SET
		   username = excluded.username,
		   display_name = excluded.display_name`,
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

	err := s.db.QueryRowContext(ctx,
		`SELECT chat_id, user_id, username, display_name, circles, reactions, points
		 FROM users WHERE chat_id = ? AND user_id = ?`,
		chatID, userID,
	).Scan(&stats.ChatID, &stats.UserID, &username, &stats.DisplayName,
		&stats.Circles, &stats.Reactions, &stats.Points)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading stats for user %d in chat %d: %w", userID, chatID, err)
	}

	stats.Username = username.String

	return &stats, nil
}

// AddCirclePoints credits a posted circle: one circle and the configured
// point delta.
func (s *Store) AddCirclePoints(ctx context.Context, chatID, userID int64, points int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET circles = circles + 1, points = points + ? WHERE chat_id = ? AND user_id = ?`,
		points, chatID, userID,
	)
	if err != nil {
		return fmt.Errorf("adding circle points for user %d in chat %d: %w", userID, chatID, err)
	}

	return nil
}

// AddReactionPoints adjusts the author's counters for a reaction change.
// A positive delta counts a received reaction, a negative one retracts it.
func (s *Store) AddReactionPoints(ctx context.Context, chatID, userID int64, points int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users
		 SET reactions = reactions + CASE WHEN ? > 0 THEN 1 ELSE -1 END,
		     points = points + ?
		 WHERE chat_id = ? AND user_id = ?`,
		points, points, chatID, userID,
	)
	if err != nil {
		return fmt.Errorf("adding reaction points for user %d in chat %d: %w", userID, chatID, err)
	}

	return nil
}

// InsertCircle records a circle message. Returns false when the message was
// already recorded, which makes repeated update delivery a no-op.
func (s *Store) InsertCircle(ctx context.Context, c model.CircleMessage) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO circle_messages(chat_id, message_id, author_id, created_at_ts)
		 VALUES(?, ?, ?, ?)`,
		c.ChatID, c.MessageID, c.AuthorID, c.CreatedAtTS,
	)
	if err != nil {
		return false, fmt.Errorf("inserting circle %d in chat %d: %w", c.MessageID, c.ChatID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking circle insert result: %w", err)
	}

	return n == 1, nil
}

// CircleAuthorID returns the author of a tracked circle message.
func (s *Store) CircleAuthorID(ctx context.Context, chatID int64, messageID int) (int64, bool, error) {
	var authorID int64

	err := s.db.QueryRowContext(ctx,
		`SELECT author_id FROM circle_messages WHERE chat_id = ? AND message_id = ?`,
		chatID, messageID,
	).Scan(&authorID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, fmt.Errorf("reading circle author in chat %d: %w", chatID, err)
	}

	return authorID, true, nil
}

// InsertReaction logs one reactor+emoji pair on a message. Returns false if
// it was already logged.
func (s *Store) InsertReaction(ctx context.Context, chatID int64, messageID int, reactorID int64, emoji string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO reactions_log(chat_id, message_id, reactor_id, emoji) VALUES(?, ?, ?, ?)`,
		chatID, messageID, reactorID, emoji,
	)
	if err != nil {
		return false, fmt.Errorf("inserting reaction in chat %d: %w", chatID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking reaction insert result: %w", err)
	}

	return n == 1, nil
}

// DeleteReaction removes a logged reaction. Returns false if it was not
// logged in the first place.
func (s *Store) DeleteReaction(ctx context.Context, chatID int64, messageID int, reactorID int64, emoji string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reactions_log WHERE chat_id = ? AND message_id = ? AND reactor_id = ? AND emoji = ?`,
		chatID, messageID, reactorID, emoji,
	)
	if err != nil {
		return false, fmt.Errorf("deleting reaction in chat %d: %w", chatID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking reaction delete result: %w", err)
	}

	return n == 1, nil
}

// Top returns the chat leaderboard, ranked starting at 1.
func (s *Store) Top(ctx context.Context, chatID int64, limit int) ([]model.TopRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, username, display_name, circles, reactions, points
		 FROM users
		 WHERE chat_id = ?
		 ORDER BY points DESC, circles DESC, reactions DESC, user_id ASC
		 LIMIT ?`,
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

// ZeroUsers returns the users matching the zero-activity criteria, most
// inactive first.
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

	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, user_id, username, display_name, circles, reactions, points
		 FROM users
		 WHERE chat_id = ? AND `+where+`
		 ORDER BY points ASC, circles ASC, reactions ASC, user_id ASC
		 LIMIT ?`,
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
