package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/user/ghrelay/internal/github"
	"github.com/user/ghrelay/internal/i18n"
	"github.com/user/ghrelay/internal/storage"
	"github.com/user/ghrelay/pkg/logger"
)

func (b *Bot) registerHandlers() {
	b.api.Handle("/start", b.handleStart)
	b.api.Handle("/add", b.handleAdd)
	b.api.Handle("/remove", b.handleRemove)
	b.api.Handle("/list", b.handleList)
	b.api.Handle("/connect", b.handleConnect)
	b.api.Handle("/language", b.handleLanguage)
	b.api.Handle("/settings", b.handleSettings)
	b.api.Handle("/help", b.handleHelp)
	b.api.Handle(tele.OnCallback, b.handleCallback)
}

// chatTranslations loads the translation mapping for the chat's language.
func (b *Bot) chatTranslations(c tele.Context) i18n.Translations {
	return b.catalog.Load(b.settings.ChatLanguage(chatID(c)))
}

func chatID(c tele.Context) string {
	return strconv.FormatInt(c.Chat().ID, 10)
}

// reply answers in the chat, staying inside the topic the command came from.
func (b *Bot) reply(c tele.Context, text string) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, DisableWebPagePreview: true}
	if msg := c.Message(); msg != nil {
		opts.ThreadID = msg.ThreadID
	}
	return c.Send(text, opts)
}

// isAdmin reports whether the sender may run privileged commands: private
// chats always qualify, chats with the admin-only flag off qualify, otherwise
// the sender must be a chat administrator.
func (b *Bot) isAdmin(c tele.Context) bool {
	if c.Chat().Type == tele.ChatPrivate {
		return true
	}

	settings, err := b.settings.Get(chatID(c))
	if err == nil && !settings.AdminOnly {
		return true
	}

	admins, err := b.api.AdminsOf(c.Chat())
	if err != nil {
		logger.Error().Err(err).Str("chat_id", chatID(c)).Msg("Failed to get chat administrators")
		return false
	}
	for _, admin := range admins {
		if admin.User != nil && admin.User.ID == c.Sender().ID {
			return true
		}
	}
	return false
}

func (b *Bot) handleStart(c tele.Context) error {
	tr := b.chatTranslations(c)
	lang := b.settings.ChatLanguage(chatID(c))
	if err := b.users.EnsureUser(strconv.FormatInt(c.Sender().ID, 10), lang); err != nil {
		logger.Error().Err(err).Msg("Failed to register user")
	}
	return b.reply(c, tr.T("welcome"))
}

func (b *Bot) handleHelp(c tele.Context) error {
	return b.reply(c, b.chatTranslations(c).T("help"))
}

// repoRegistrar is the GitHub surface the add flow needs.
type repoRegistrar interface {
	ValidateRepository(ctx context.Context, fullName string) (bool, error)
	EnsureWebhook(ctx context.Context, fullName, callbackURL, secret string) error
}

// subscribeFlow validates the repository and registers its webhook before any
// row is written, so a failed registration leaves no subscription behind and
// a retry is not shadowed by the duplicate check. gh is nil when the user has
// no linked token; registration is then the user's responsibility. The
// returned key names the reply template; detail fills its {message} token and
// is empty when the caller should localize it.
func subscribeFlow(ctx context.Context, store *storage.SubscriptionStore, gh repoRegistrar, callbackURL, secret, chatID, repo, threadID, lang string) (key, detail string) {
	if gh != nil {
		ok, err := gh.ValidateRepository(ctx, repo)
		if err != nil {
			return "subscriptionFailed", err.Error()
		}
		if !ok {
			return "subscriptionFailed", ""
		}
		if err := gh.EnsureWebhook(ctx, repo, callbackURL, secret); err != nil {
			logger.Error().Err(err).Str("repository", repo).Msg("Failed to register webhook")
			return "subscriptionFailed", err.Error()
		}
	}

	if err := store.Subscribe(chatID, repo, threadID, lang); err != nil {
		if errors.Is(err, storage.ErrAlreadySubscribed) {
			return "alreadySubscribed", ""
		}
		logger.Error().Err(err).Str("repository", repo).Msg("Failed to subscribe")
		return "subscriptionFailed", err.Error()
	}

	if gh == nil {
		return "subscribedNoToken", ""
	}
	return "subscribed", ""
}

func (b *Bot) handleAdd(c tele.Context) error {
	tr := b.chatTranslations(c)

	user, err := b.users.ByTelegramID(strconv.FormatInt(c.Sender().ID, 10))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load user")
		return b.reply(c, tr.T("startFirst"))
	}
	if user == nil {
		return b.reply(c, tr.T("startFirst"))
	}

	repo := strings.TrimSpace(c.Message().Payload)
	if repo == "" {
		return b.reply(c, tr.T("addRepoFormat"))
	}
	if _, _, err := github.SplitRepo(repo); err != nil {
		return b.reply(c, tr.T("addRepoFormat"))
	}

	// A command issued inside a forum topic binds the subscription to it.
	threadID := ""
	if c.Message().ThreadID != 0 {
		threadID = strconv.Itoa(c.Message().ThreadID)
	}

	var gh repoRegistrar
	if user.GitHubToken != "" {
		gh = github.NewClient(user.GitHubToken)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	lang := b.settings.ChatLanguage(chatID(c))
	key, detail := subscribeFlow(ctx, b.store, gh, b.cfg.CallbackURL, b.cfg.WebhookSecret, chatID(c), repo, threadID, lang)
	switch key {
	case "subscriptionFailed":
		if detail == "" {
			detail = tr.T("repoInaccessible")
		}
		return b.reply(c, i18n.Substitute(tr.T(key), map[string]string{"repo": repo, "message": detail}))
	case "subscribed", "subscribedNoToken":
		return b.reply(c, i18n.Substitute(tr.T(key), map[string]string{"repo": repo}))
	default:
		return b.reply(c, tr.T(key))
	}
}

func (b *Bot) handleRemove(c tele.Context) error {
	tr := b.chatTranslations(c)

	if !b.isAdmin(c) {
		return b.reply(c, tr.T("adminOnly"))
	}

	repo := strings.TrimSpace(c.Message().Payload)
	if repo == "" {
		return b.reply(c, tr.T("removeRepoFormat"))
	}

	if err := b.store.Unsubscribe(chatID(c), repo); err != nil {
		if !errors.Is(err, storage.ErrNotSubscribed) {
			logger.Error().Err(err).Str("repository", repo).Msg("Failed to unsubscribe")
		}
		return b.reply(c, tr.T("notSubscribed"))
	}
	return b.reply(c, i18n.Substitute(tr.T("unsubscribed"), map[string]string{"repo": repo}))
}

func (b *Bot) handleList(c tele.Context) error {
	tr := b.chatTranslations(c)

	subs, err := b.store.ByChat(chatID(c))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list subscriptions")
		return b.reply(c, tr.T("noSubscriptions"))
	}
	if len(subs) == 0 {
		return b.reply(c, tr.T("noSubscriptions"))
	}

	names := make([]string, len(subs))
	for i, sub := range subs {
		names[i] = sub.Repository
	}
	list := "<blockquote expandable>" + strings.Join(names, "\n") + "</blockquote>"
	return b.reply(c, i18n.Substitute(tr.T("yourSubscriptions"), map[string]string{"message": list}))
}

func (b *Bot) handleConnect(c tele.Context) error {
	tr := b.chatTranslations(c)

	token := strings.TrimSpace(c.Message().Payload)
	if token == "" {
		return b.reply(c, tr.T("connectTokenFormat"))
	}
	if err := b.users.SetGitHubToken(strconv.FormatInt(c.Sender().ID, 10), token); err != nil {
		logger.Error().Err(err).Msg("Failed to store token")
		return b.reply(c, tr.T("connectTokenFormat"))
	}
	return b.reply(c, tr.T("tokenConnected"))
}

func (b *Bot) handleLanguage(c tele.Context) error {
	tr := b.chatTranslations(c)

	if !b.isAdmin(c) {
		return b.reply(c, tr.T("adminOnly"))
	}

	markup := &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{
			{{Text: "🇬🇧 English", Data: "set_lang:en"}},
			{{Text: "🇷🇺 Русский", Data: "set_lang:ru"}},
			{{Text: "🇺🇦 Українська", Data: "set_lang:ua"}},
		},
	}
	opts := &tele.SendOptions{ReplyMarkup: markup}
	if msg := c.Message(); msg != nil {
		opts.ThreadID = msg.ThreadID
	}
	return c.Send(tr.T("language_select_title"), opts)
}

// handleCallback resolves inline button presses: the chat language keyboard,
// the two-step notification delete confirmation, and the settings menu.
func (b *Bot) handleCallback(c tele.Context) error {
	data := strings.TrimSpace(c.Callback().Data)
	tr := b.chatTranslations(c)

	switch {
	case strings.HasPrefix(data, "set_lang:"):
		if !b.isAdmin(c) {
			return c.Respond(&tele.CallbackResponse{Text: tr.T("adminOnly"), ShowAlert: true})
		}
		lang := strings.TrimPrefix(data, "set_lang:")
		if err := b.settings.SetLanguage(chatID(c), lang); err != nil {
			logger.Error().Err(err).Str("chat_id", chatID(c)).Msg("Failed to set chat language")
			return c.Respond()
		}
		// Subscription languages are pinned at creation; a chat language
		// change is the one place they are bulk-updated.
		if err := b.store.UpdateChatLanguage(chatID(c), lang); err != nil {
			logger.Error().Err(err).Str("chat_id", chatID(c)).Msg("Failed to update subscription languages")
		}
		newTr := b.catalog.Load(lang)
		return c.Respond(&tele.CallbackResponse{Text: newTr.T("language_changed_chat")})

	case data == "confirm_delete_msg":
		markup := &tele.ReplyMarkup{
			InlineKeyboard: [][]tele.InlineButton{{
				{Text: tr.T("deleteConfirmYes"), Data: "delete_msg_confirmed"},
				{Text: tr.T("deleteConfirmCancel"), Data: "delete_msg_cancelled"},
			}},
		}
		if _, err := b.api.EditReplyMarkup(c.Message(), markup); err != nil {
			logger.Error().Err(err).Msg("Failed to edit reply markup")
		}
		return c.Respond()

	case data == "delete_msg_confirmed":
		if err := c.Delete(); err != nil {
			logger.Error().Err(err).Msg("Failed to delete message")
		}
		return c.Respond()

	case data == "delete_msg_cancelled":
		lang := b.settings.ChatLanguage(chatID(c))
		if _, err := b.api.EditReplyMarkup(c.Message(), b.deleteMarkup(lang)); err != nil {
			logger.Error().Err(err).Msg("Failed to edit reply markup")
		}
		return c.Respond()
	}

	// Settings menu callbacks; the whole surface is admin-gated.
	action, arg := splitCallback(data)
	switch action {
	case "settings_back", "toggle_admin_only", "manage_subs", "view_sub",
		"toggle_sub", "change_thread", "delete_sub", "confirm_del_sub":
		if !b.isAdmin(c) {
			return c.Respond(&tele.CallbackResponse{Text: tr.T("adminOnly"), ShowAlert: true})
		}
		if handled, err := b.handleSettingsCallback(c, tr, action, arg); handled {
			return err
		}
	}

	return c.Respond()
}
