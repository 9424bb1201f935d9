package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/azubrytski-dev/challange-bot/internal/model"
	"github.com/azubrytski-dev/challange-bot/internal/scoring"
)

// displayName builds a human label from a Telegram account. Accounts
// always have a first name; everything else is optional.
func displayName(u *models.User) string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return "User"
	}

	return name
}

// emojiKey normalizes a reaction to its log key: unicode emoji stay as-is,
// custom emoji become "custom:<id>".
func emojiKey(rt models.ReactionType) string {
	switch {
	case rt.ReactionTypeEmoji != nil:
		return rt.ReactionTypeEmoji.Emoji
	case rt.ReactionTypeCustomEmoji != nil:
		return "custom:" + rt.ReactionTypeCustomEmoji.CustomEmojiID
	default:
		return "unknown"
	}
}

// handleUpdate is the default handler: circles arrive as video-note
// messages, reactions as message_reaction updates. Command messages are
// routed by the registered handlers before this runs.
func (b *Bot) handleUpdate(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	switch {
	case update.Message != nil:
		b.handleCircle(ctx, update.Message)
	case update.MessageReaction != nil:
		b.handleReaction(ctx, update.MessageReaction)
	}
}

// handleCircle records a video-note message and awards circle points. The
// circle_messages primary key makes redelivered updates no-ops.
func (b *Bot) handleCircle(ctx context.Context, msg *models.Message) {
	if msg.From == nil || msg.VideoNote == nil {
		return
	}

	if msg.Chat.Type != models.ChatTypeGroup && msg.Chat.Type != models.ChatTypeSupergroup {
		return
	}

	chatID := msg.Chat.ID
	log := b.log.With(slog.Int64("chat_id", chatID), slog.Int("message_id", msg.ID))

	if err := b.repo.EnsureChatState(ctx, chatID); err != nil {
		log.Error("ensuring chat state", slog.Any("error", err))

		return
	}

	identity := model.UserIdentity{
		ChatID:      chatID,
		UserID:      msg.From.ID,
		Username:    msg.From.Username,
		DisplayName: displayName(msg.From),
	}
	if err := b.repo.UpsertUser(ctx, identity); err != nil {
		log.Error("upserting user", slog.Int64("user_id", identity.UserID), slog.Any("error", err))

		return
	}

	circle := model.CircleMessage{
		ChatID:      chatID,
		MessageID:   msg.ID,
		AuthorID:    msg.From.ID,
		CreatedAtTS: int64(msg.Date),
	}

	isNew, err := b.repo.InsertCircle(ctx, circle)
	if err != nil {
		log.Error("inserting circle", slog.Any("error", err))

		return
	}

	if !isNew {
		log.Info("circle already processed, no points added", slog.Int64("author_id", circle.AuthorID))

		return
	}

	if err := b.repo.AddCirclePoints(ctx, chatID, circle.AuthorID, b.cfg.PointsPerCircle); err != nil {
		log.Error("adding circle points", slog.Any("error", err))

		return
	}

	if err := b.repo.SetLastCircleTS(ctx, chatID, circle.CreatedAtTS); err != nil {
		log.Error("stamping last circle time", slog.Any("error", err))

		return
	}

	log.Info("circle recorded",
		slog.Int64("author_id", circle.AuthorID),
		slog.Int("points", b.cfg.PointsPerCircle))
}

// handleReaction applies the set delta between the old and new reaction
// lists. Reactions on messages that are not tracked circles are ignored.
func (b *Bot) handleReaction(ctx context.Context, mr *models.MessageReactionUpdated) {
	if mr.User == nil {
		return
	}

	chatID := mr.Chat.ID
	messageID := mr.MessageID
	log := b.log.With(slog.Int64("chat_id", chatID), slog.Int("message_id", messageID))

	if err := b.repo.EnsureChatState(ctx, chatID); err != nil {
		log.Error("ensuring chat state", slog.Any("error", err))

		return
	}

	authorID, found, err := b.repo.CircleAuthorID(ctx, chatID, messageID)
	if err != nil {
		log.Error("looking up circle author", slog.Any("error", err))

		return
	}

	if !found {
		return
	}

	oldSet := make([]string, 0, len(mr.OldReaction))
	for _, rt := range mr.OldReaction {
		oldSet = append(oldSet, emojiKey(rt))
	}

	newSet := make([]string, 0, len(mr.NewReaction))
	for _, rt := range mr.NewReaction {
		newSet = append(newSet, emojiKey(rt))
	}

	delta := scoring.ComputeReactionDelta(oldSet, newSet)

	for _, emoji := range delta.Added {
		inserted, err := b.repo.InsertReaction(ctx, chatID, messageID, mr.User.ID, emoji)
		if err != nil {
			log.Error("inserting reaction", slog.String("emoji", emoji), slog.Any("error", err))

			continue
		}

		if !inserted {
			continue
		}

		if err := b.repo.AddReactionPoints(ctx, chatID, authorID, b.cfg.PointsPerReaction); err != nil {
			log.Error("adding reaction points", slog.Any("error", err))
		}
	}

	for _, emoji := range delta.Removed {
		deleted, err := b.repo.DeleteReaction(ctx, chatID, messageID, mr.User.ID, emoji)
		if err != nil {
			log.Error("deleting reaction", slog.String("emoji", emoji), slog.Any("error", err))

			continue
		}

		if !deleted {
			continue
		}

		if err := b.repo.AddReactionPoints(ctx, chatID, authorID, -b.cfg.PointsPerReaction); err != nil {
			log.Error("removing reaction points", slog.Any("error", err))
		}
	}
}

func (b *Bot) handleTop(ctx context.Context, msg *models.Message) {
	chatID := msg.Chat.ID

	if err := b.repo.EnsureChatState(ctx, chatID); err != nil {
		b.log.Error("ensuring chat state", slog.Int64("chat_id", chatID), slog.Any("error", err))

		return
	}

	lang := b.chatLanguage(ctx, chatID)

	rows, err := b.repo.Top(ctx, chatID, b.cfg.TopLimit)
	if err != nil {
		b.log.Error("querying top", slog.Int64("chat_id", chatID), slog.Any("error", err))

		return
	}

	b.reply(ctx, msg, formatTop(lang, rows))
}

func (b *Bot) handleMe(ctx context.Context, msg *models.Message) {
	if msg.From == nil {
		return
	}

	chatID := msg.Chat.ID
	lang := b.chatLanguage(ctx, chatID)

	stats, err := b.repo.UserStats(ctx, chatID, msg.From.ID)
	if err != nil {
		b.log.Error("querying user stats", slog.Int64("chat_id", chatID), slog.Any("error", err))

		return
	}

	if stats == nil {
		b.reply(ctx, msg, message(lang, msgNoStats))

		return
	}

	b.reply(ctx, msg, formatUserStats(lang, *stats))
}

func (b *Bot) handleRules(ctx context.Context, msg *models.Message) {
	lang := b.chatLanguage(ctx, msg.Chat.ID)

	b.reply(ctx, msg, formatRules(lang, b.cfg))
}

// handleLang switches the chat language: "/lang ru". Bare "/lang" reports
// the supported codes.
func (b *Bot) handleLang(ctx context.Context, msg *models.Message) {
	chatID := msg.Chat.ID
	lang := b.chatLanguage(ctx, chatID)

	fields := strings.Fields(msg.Text)
	if len(fields) < 2 {
		b.reply(ctx, msg, message(lang, msgLangInvalid))

		return
	}

	requested := strings.ToLower(fields[1])
	if !supportedLanguage(requested) {
		b.reply(ctx, msg, message(lang, msgLangInvalid))

		return
	}

	if err := b.repo.EnsureChatState(ctx, chatID); err != nil {
		b.log.Error("ensuring chat state", slog.Int64("chat_id", chatID), slog.Any("error", err))

		return
	}

	if err := b.repo.SetChatLanguage(ctx, chatID, requested); err != nil {
		b.log.Error("setting chat language", slog.Int64("chat_id", chatID), slog.Any("error", err))

		return
	}

	b.reply(ctx, msg, fmt.Sprintf(message(requested, msgLangChanged), requested))
}

func (b *Bot) handleEnableRatings(ctx context.Context, msg *models.Message) {
	b.setRatingsEnabled(ctx, msg, true, msgRatingsEnabled)
}

func (b *Bot) handleDisableRatings(ctx context.Context, msg *models.Message) {
	b.setRatingsEnabled(ctx, msg, false, msgRatingsDisabled)
}

func (b *Bot) setRatingsEnabled(ctx context.Context, msg *models.Message, enabled bool, confirmation messageKey) {
	chatID := msg.Chat.ID
	lang := b.chatLanguage(ctx, chatID)

	if !b.isAdmin(ctx, msg) {
		b.reply(ctx, msg, message(lang, msgAdminsOnly))

		return
	}

	if err := b.repo.EnsureChatState(ctx, chatID); err != nil {
		b.log.Error("ensuring chat state", slog.Int64("chat_id", chatID), slog.Any("error", err))

		return
	}

	if err := b.repo.SetRatingsEnabled(ctx, chatID, enabled); err != nil {
		b.log.Error("toggling ratings", slog.Int64("chat_id", chatID), slog.Any("error", err))

		return
	}

	b.reply(ctx, msg, message(lang, confirmation))
}

// isAdmin checks the sender's membership status. Lookup failures deny.
func (b *Bot) isAdmin(ctx context.Context, msg *models.Message) bool {
	if msg.From == nil {
		return false
	}

	member, err := b.api.GetChatMember(ctx, &tgbot.GetChatMemberParams{
		ChatID: msg.Chat.ID,
		UserID: msg.From.ID,
	})
	if err != nil {
		b.log.Warn("chat member lookup failed",
			slog.Int64("chat_id", msg.Chat.ID), slog.Any("error", err))

		return false
	}

	return member.Type == models.ChatMemberTypeOwner || member.Type == models.ChatMemberTypeAdministrator
}
