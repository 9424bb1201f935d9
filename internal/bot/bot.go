// Package bot wires the Telegram transport to the storage layer: command
// handlers, circle and reaction tracking, and the periodic rating
// publisher.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/azubrytski-dev/challange-bot/internal/config"
	"github.com/azubrytski-dev/challange-bot/internal/storage"
)

// telegramAPI is the slice of the Telegram client the handlers and the
// scheduler call. *tgbot.Bot satisfies it; tests substitute a fake.
type telegramAPI interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
	GetChatMember(ctx context.Context, params *tgbot.GetChatMemberParams) (*models.ChatMember, error)
}

// Bot serves a single Telegram bot account across all chats it is a
// member of.
type Bot struct {
	api  telegramAPI
	tg   *tgbot.Bot
	repo storage.Repository
	cfg  *config.Config
	log  *slog.Logger
	now  func() time.Time
}

// New builds the bot, registers the command handlers, and restricts the
// polled update types to what the handlers consume.
func New(cfg *config.Config, repo storage.Repository, log *slog.Logger) (*Bot, error) {
	b := newBot(nil, repo, cfg, log)

	tg, err := tgbot.New(cfg.BotToken,
		tgbot.WithDefaultHandler(b.handleUpdate),
		tgbot.WithAllowedUpdates(tgbot.AllowedUpdates{"message", "message_reaction"}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating telegram client: %w", err)
	}

	b.tg = tg
	b.api = tg

	b.registerCommands()

	return b, nil
}

// newBot is the handler-level constructor. Tests inject a fake API.
func newBot(api telegramAPI, repo storage.Repository, cfg *config.Config, log *slog.Logger) *Bot {
	return &Bot{
		api:  api,
		repo: repo,
		cfg:  cfg,
		log:  log,
		now:  time.Now,
	}
}

func (b *Bot) registerCommands() {
	commands := map[string]func(ctx context.Context, msg *models.Message){
		"/top":             b.handleTop,
		"/me":              b.handleMe,
		"/rules":           b.handleRules,
		"/lang":            b.handleLang,
		"/enable_ratings":  b.handleEnableRatings,
		"/disable_ratings": b.handleDisableRatings,
	}

	for pattern, handler := range commands {
		handler := handler
		b.tg.RegisterHandler(tgbot.HandlerTypeMessageText, pattern, tgbot.MatchTypePrefix,
			func(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
				if update.Message == nil {
					return
				}

				handler(ctx, update.Message)
			})
	}
}

// Run sends the startup greeting, starts the rating scheduler, and polls
// for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.sendGreeting(ctx)

	go b.runScheduler(ctx)

	b.tg.Start(ctx)

	return nil
}

// sendGreeting announces startup to the admin chat when one is configured.
func (b *Bot) sendGreeting(ctx context.Context) {
	if b.cfg.AdminChatID == 0 {
		b.log.Info("application started, no admin chat configured")

		return
	}

	_, err := b.api.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    b.cfg.AdminChatID,
		Text:      message(b.cfg.Language, msgGreeting),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		b.log.Warn("sending greeting to admin chat",
			slog.Int64("chat_id", b.cfg.AdminChatID), slog.Any("error", err))

		return
	}

	b.log.Info("application started, greeting sent",
		slog.Int64("admin_chat_id", b.cfg.AdminChatID))
}

// chatLanguage resolves the chat's language, falling back to the
// configured default when state is unreadable or the stored code has no
// catalog.
func (b *Bot) chatLanguage(ctx context.Context, chatID int64) string {
	state, err := b.repo.ChatState(ctx, chatID)
	if err != nil || !supportedLanguage(state.Language) {
		return b.cfg.Language
	}

	return state.Language
}

// reply sends an HTML message into the chat, replying to the triggering
// message.
func (b *Bot) reply(ctx context.Context, msg *models.Message, text string) {
	_, err := b.api.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            text,
		ParseMode:       models.ParseModeHTML,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		b.log.Warn("sending reply", slog.Int64("chat_id", msg.Chat.ID), slog.Any("error", err))
	}
}

// send posts an HTML message into the chat without replying to anything.
func (b *Bot) send(ctx context.Context, chatID int64, text string) error {
	_, err := b.api.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})

	return err
}
