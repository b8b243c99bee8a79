package telegram

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/user/ghrelay/internal/i18n"
	"github.com/user/ghrelay/internal/storage"
	"github.com/user/ghrelay/pkg/logger"
)

// subsPerPage bounds one page of the subscription list keyboard.
const subsPerPage = 5

// settingsMenu builds the top-level settings keyboard.
func settingsMenu(tr i18n.Translations, adminOnly bool) *tele.ReplyMarkup {
	adminLabel := tr.T("adminOnlyDisabled")
	if adminOnly {
		adminLabel = tr.T("adminOnlyEnabled")
	}
	return &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{
			{{Text: tr.T("manageSubs"), Data: "manage_subs:0"}},
			{{Text: adminLabel, Data: "toggle_admin_only"}},
		},
	}
}

// subscriptionsKeyboard builds one page of the subscription list. Out-of-range
// pages are clamped, so stale page numbers in old callback data stay harmless.
func subscriptionsKeyboard(tr i18n.Translations, subs []storage.Subscription, page int) *tele.ReplyMarkup {
	last := 0
	if len(subs) > 0 {
		last = (len(subs) - 1) / subsPerPage
	}
	if page < 0 {
		page = 0
	}
	if page > last {
		page = last
	}

	start := page * subsPerPage
	end := start + subsPerPage
	if end > len(subs) {
		end = len(subs)
	}

	rows := make([][]tele.InlineButton, 0, subsPerPage+2)
	for _, sub := range subs[start:end] {
		label := "✅ " + sub.Repository
		if !sub.IsActive {
			label = "⏸ " + sub.Repository
		}
		if t := sub.ThreadID(); t != "" {
			label += " [" + t + "]"
		}
		rows = append(rows, []tele.InlineButton{{
			Text: label,
			Data: "view_sub:" + strconv.FormatInt(sub.ID, 10),
		}})
	}

	if last > 0 {
		var nav []tele.InlineButton
		if page > 0 {
			nav = append(nav, tele.InlineButton{Text: "«", Data: "manage_subs:" + strconv.Itoa(page-1)})
		}
		if page < last {
			nav = append(nav, tele.InlineButton{Text: "»", Data: "manage_subs:" + strconv.Itoa(page+1)})
		}
		rows = append(rows, nav)
	}

	rows = append(rows, []tele.InlineButton{{Text: tr.T("back"), Data: "settings_back"}})
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

// subscriptionDetail renders one subscription's management view.
func subscriptionDetail(tr i18n.Translations, sub *storage.Subscription) (string, *tele.ReplyMarkup) {
	status := tr.T("statusActive")
	toggle := tr.T("pauseSub")
	if !sub.IsActive {
		status = tr.T("statusPaused")
		toggle = tr.T("resumeSub")
	}
	thread := sub.ThreadID()
	if thread == "" {
		thread = tr.T("generalTopic")
	}

	text := i18n.Substitute(tr.T("subDetails"), map[string]string{
		"repo":   sub.Repository,
		"status": status,
		"thread": thread,
	})
	id := strconv.FormatInt(sub.ID, 10)
	markup := &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{
			{{Text: toggle, Data: "toggle_sub:" + id}},
			{{Text: tr.T("moveHere"), Data: "change_thread:" + id}},
			{{Text: tr.T("deleteSub"), Data: "delete_sub:" + id}},
			{{Text: tr.T("back"), Data: "manage_subs:0"}},
		},
	}
	return text, markup
}

// deleteSubConfirm builds the per-subscription delete confirmation keyboard.
// Cancel returns to the subscription's detail view.
func deleteSubConfirm(tr i18n.Translations, id int64) *tele.ReplyMarkup {
	s := strconv.FormatInt(id, 10)
	return &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{{
			{Text: tr.T("deleteConfirmYes"), Data: "confirm_del_sub:" + s},
			{Text: tr.T("deleteConfirmCancel"), Data: "view_sub:" + s},
		}},
	}
}

// splitCallback separates "action:arg" callback data; arg is empty when the
// data carries no argument.
func splitCallback(data string) (action, arg string) {
	if i := strings.Index(data, ":"); i >= 0 {
		return data[:i], data[i+1:]
	}
	return data, ""
}

func (b *Bot) handleSettings(c tele.Context) error {
	tr := b.chatTranslations(c)
	if !b.isAdmin(c) {
		return b.reply(c, tr.T("adminOnly"))
	}

	settings, err := b.settings.Get(chatID(c))
	if err != nil {
		logger.Error().Err(err).Str("chat_id", chatID(c)).Msg("Failed to load chat settings")
		return b.reply(c, tr.T("adminOnly"))
	}

	opts := &tele.SendOptions{ReplyMarkup: settingsMenu(tr, settings.AdminOnly)}
	if msg := c.Message(); msg != nil {
		opts.ThreadID = msg.ThreadID
	}
	return c.Send(tr.T("settingsTitle"), opts)
}

// chatSubscription loads a subscription and checks it belongs to the chat the
// callback came from, so callback data cannot reach another chat's rows.
func (b *Bot) chatSubscription(c tele.Context, arg string) *storage.Subscription {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil
	}
	sub, err := b.store.ByID(id)
	if err != nil {
		logger.Error().Err(err).Int64("subscription_id", id).Msg("Failed to load subscription")
		return nil
	}
	if sub == nil || sub.ChatID != chatID(c) {
		return nil
	}
	return sub
}

// handleSettingsCallback resolves the settings menu callbacks. It returns
// false for data it does not recognize.
func (b *Bot) handleSettingsCallback(c tele.Context, tr i18n.Translations, action, arg string) (bool, error) {
	switch action {
	case "settings_back":
		settings, err := b.settings.Get(chatID(c))
		if err != nil {
			return true, c.Respond()
		}
		if err := c.Edit(tr.T("settingsTitle"), settingsMenu(tr, settings.AdminOnly)); err != nil {
			logger.Error().Err(err).Msg("Failed to edit settings menu")
		}
		return true, c.Respond()

	case "toggle_admin_only":
		settings, err := b.settings.Get(chatID(c))
		if err != nil {
			return true, c.Respond()
		}
		if err := b.settings.SetAdminOnly(chatID(c), !settings.AdminOnly); err != nil {
			logger.Error().Err(err).Str("chat_id", chatID(c)).Msg("Failed to toggle admin-only flag")
			return true, c.Respond()
		}
		if err := c.Edit(tr.T("settingsTitle"), settingsMenu(tr, !settings.AdminOnly)); err != nil {
			logger.Error().Err(err).Msg("Failed to edit settings menu")
		}
		return true, c.Respond()

	case "manage_subs":
		page, _ := strconv.Atoi(arg)
		subs, err := b.store.ByChat(chatID(c))
		if err != nil {
			logger.Error().Err(err).Str("chat_id", chatID(c)).Msg("Failed to list subscriptions")
			return true, c.Respond()
		}
		if len(subs) == 0 {
			back := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{
				{Text: tr.T("back"), Data: "settings_back"},
			}}}
			if err := c.Edit(tr.T("noSubscriptions"), back); err != nil {
				logger.Error().Err(err).Msg("Failed to edit subscription list")
			}
			return true, c.Respond()
		}
		if err := c.Edit(tr.T("manageSubsTitle"), subscriptionsKeyboard(tr, subs, page)); err != nil {
			logger.Error().Err(err).Msg("Failed to edit subscription list")
		}
		return true, c.Respond()

	case "view_sub":
		sub := b.chatSubscription(c, arg)
		if sub == nil {
			return true, c.Respond()
		}
		text, markup := subscriptionDetail(tr, sub)
		if err := c.Edit(text, markup); err != nil {
			logger.Error().Err(err).Msg("Failed to edit subscription view")
		}
		return true, c.Respond()

	case "toggle_sub":
		sub := b.chatSubscription(c, arg)
		if sub == nil {
			return true, c.Respond()
		}
		if err := b.store.SetActive(sub.ID, !sub.IsActive); err != nil {
			logger.Error().Err(err).Int64("subscription_id", sub.ID).Msg("Failed to toggle subscription")
			return true, c.Respond()
		}
		sub.IsActive = !sub.IsActive
		text, markup := subscriptionDetail(tr, sub)
		if err := c.Edit(text, markup); err != nil {
			logger.Error().Err(err).Msg("Failed to edit subscription view")
		}
		return true, c.Respond()

	case "change_thread":
		sub := b.chatSubscription(c, arg)
		if sub == nil {
			return true, c.Respond()
		}
		// Retarget to the topic the settings message lives in; zero means
		// the chat's general context.
		threadID := ""
		if msg := c.Message(); msg != nil && msg.ThreadID != 0 {
			threadID = strconv.Itoa(msg.ThreadID)
		}
		if err := b.store.SetThread(sub.ID, threadID); err != nil {
			logger.Error().Err(err).Int64("subscription_id", sub.ID).Msg("Failed to retarget subscription")
			return true, c.Respond()
		}
		if threadID == "" {
			sub.MessageThreadID.Valid = false
		} else {
			sub.MessageThreadID.String = threadID
			sub.MessageThreadID.Valid = true
		}
		text, markup := subscriptionDetail(tr, sub)
		if err := c.Edit(text, markup); err != nil {
			logger.Error().Err(err).Msg("Failed to edit subscription view")
		}
		return true, c.Respond(&tele.CallbackResponse{Text: tr.T("threadMoved")})

	case "delete_sub":
		sub := b.chatSubscription(c, arg)
		if sub == nil {
			return true, c.Respond()
		}
		if _, err := b.api.EditReplyMarkup(c.Message(), deleteSubConfirm(tr, sub.ID)); err != nil {
			logger.Error().Err(err).Msg("Failed to edit reply markup")
		}
		return true, c.Respond()

	case "confirm_del_sub":
		sub := b.chatSubscription(c, arg)
		if sub == nil {
			return true, c.Respond()
		}
		if err := b.store.Delete(sub.ID); err != nil {
			logger.Error().Err(err).Int64("subscription_id", sub.ID).Msg("Failed to delete subscription")
			return true, c.Respond()
		}
		subs, err := b.store.ByChat(chatID(c))
		if err != nil || len(subs) == 0 {
			if err := c.Edit(tr.T("noSubscriptions")); err != nil {
				logger.Error().Err(err).Msg("Failed to edit subscription list")
			}
		} else if err := c.Edit(tr.T("manageSubsTitle"), subscriptionsKeyboard(tr, subs, 0)); err != nil {
			logger.Error().Err(err).Msg("Failed to edit subscription list")
		}
		return true, c.Respond(&tele.CallbackResponse{Text: tr.T("subDeleted")})
	}

	return false, nil
}
