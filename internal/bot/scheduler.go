package bot

import (
	"context"
	"log/slog"
	"time"
)

// runScheduler publishes ratings on the configured interval until the
// context is cancelled.
func (b *Bot) runScheduler(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.RatingInterval)
	defer ticker.Stop()

	b.log.Info("rating scheduler started", slog.Duration("interval", b.cfg.RatingInterval))

	for {
		select {
		case <-ctx.Done():
			b.log.Info("rating scheduler stopped")

			return
		case <-ticker.C:
			b.publishRatings(ctx)
		}
	}
}

// publishRatings walks the active chats and posts the board to every chat
// with circle activity since its last rating. A failed chat does not stop
// the sweep.
func (b *Bot) publishRatings(ctx context.Context) {
	now := b.now().Unix()

	chatIDs, err := b.repo.ListActiveChats(ctx)
	if err != nil {
		b.log.Error("listing active chats", slog.Any("error", err))

		return
	}

	for _, chatID := range chatIDs {
		if err := b.publishChatRating(ctx, chatID, now); err != nil {
			b.log.Error("publishing rating", slog.Int64("chat_id", chatID), slog.Any("error", err))
		}
	}
}

func (b *Bot) publishChatRating(ctx context.Context, chatID, now int64) error {
	state, err := b.repo.ChatState(ctx, chatID)
	if err != nil {
		return err
	}

	if !state.RatingsEnabled {
		return nil
	}

	// Nothing new since the last published board.
	if state.LastCircleTS <= state.LastRatingTS {
		return nil
	}

	lang := b.chatLanguage(ctx, chatID)

	rows, err := b.repo.Top(ctx, chatID, b.cfg.TopLimit)
	if err != nil {
		return err
	}

	if err := b.send(ctx, chatID, formatTop(lang, rows)); err != nil {
		return err
	}

	zeroUsers, err := b.repo.ZeroUsers(ctx, chatID, b.cfg.ZeroCriteria, b.cfg.ZeroPingLimit)
	if err != nil {
		return err
	}

	if text, ok := formatZeroPing(lang, zeroUsers, b.cfg.ZeroCriteria); ok {
		if err := b.send(ctx, chatID, text); err != nil {
			return err
		}
	}

	return b.repo.SetLastRatingTS(ctx, chatID, now)
}
