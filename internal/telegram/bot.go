// Package telegram provides the Telegram transport: notification delivery
// and the chat command surface.
package telegram

import (
	"fmt"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/user/ghrelay/internal/i18n"
	"github.com/user/ghrelay/internal/notifier"
	"github.com/user/ghrelay/internal/storage"
	"github.com/user/ghrelay/pkg/logger"
)

// Config holds the transport's settings.
type Config struct {
	Token       string
	PollTimeout time.Duration
	// CallbackURL and WebhookSecret are used when registering repository
	// webhooks on behalf of users who linked a GitHub token.
	CallbackURL   string
	WebhookSecret string
}

// Bot wraps the Telegram API connection.
type Bot struct {
	api      *tele.Bot
	cfg      Config
	store    *storage.SubscriptionStore
	settings *storage.ChatSettingsStore
	users    *storage.UserStore
	catalog  *i18n.Catalog
}

// NewBot creates and authorizes a Telegram bot instance.
func NewBot(cfg Config, store *storage.SubscriptionStore, settings *storage.ChatSettingsStore, users *storage.UserStore, catalog *i18n.Catalog) (*Bot, error) {
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	api, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info().Str("username", api.Me.Username).Msg("Telegram bot authorized")

	b := &Bot{
		api:      api,
		cfg:      cfg,
		store:    store,
		settings: settings,
		users:    users,
		catalog:  catalog,
	}
	b.registerHandlers()
	return b, nil
}

// Start begins long-polling for updates. It blocks, so run it in a goroutine.
func (b *Bot) Start() {
	logger.Info().Msg("Telegram bot started, listening for updates")
	b.api.Start()
}

// Stop gracefully stops the bot.
func (b *Bot) Stop() {
	logger.Info().Msg("Stopping Telegram bot")
	b.api.Stop()
}

// Send delivers one rendered notification: HTML parse mode, link preview
// disabled, thread-targeted when the subscription names a topic, with the
// inline delete control attached. Implements notifier.Sender.
func (b *Bot) Send(m notifier.Message) error {
	chatID, err := strconv.ParseInt(m.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", m.ChatID, err)
	}

	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
		ReplyMarkup:           b.deleteMarkup(m.Language),
	}
	if m.ThreadID != "" {
		threadID, err := strconv.Atoi(m.ThreadID)
		if err != nil {
			return fmt.Errorf("invalid thread id %q: %w", m.ThreadID, err)
		}
		opts.ThreadID = threadID
	}

	_, err = b.api.Send(&tele.Chat{ID: chatID}, m.Text, opts)
	return err
}

// deleteMarkup builds the single inline delete button attached to every
// notification. Its callback data starts the two-step delete confirmation.
func (b *Bot) deleteMarkup(lang string) *tele.ReplyMarkup {
	tr := b.catalog.Load(lang)
	return &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{{
			{Text: "🗑️ " + tr.T("delete"), Data: "confirm_delete_msg"},
		}},
	}
}
