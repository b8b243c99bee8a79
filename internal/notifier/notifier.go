// Package notifier fans one webhook event out to every subscribed recipient.
package notifier

import (
	"fmt"
	"strings"

	"github.com/user/ghrelay/internal/github"
	"github.com/user/ghrelay/internal/storage"
	"github.com/user/ghrelay/pkg/logger"
)

// Message is one rendered notification bound for one recipient.
type Message struct {
	ChatID   string
	ThreadID string // empty targets the chat's default/general context
	Language string
	Text     string // HTML body
}

// Sender delivers a single message over the external transport.
type Sender interface {
	Send(msg Message) error
}

// SubscriptionSource resolves the active recipients for a repository.
type SubscriptionSource interface {
	ActiveByRepository(repository string) ([]storage.Subscription, error)
}

// LanguageSource supplies a chat's language for subscriptions that predate
// per-subscription languages.
type LanguageSource interface {
	ChatLanguage(chatID string) string
}

// Result counts the outcome of one fan-out.
type Result struct {
	Attempted int
	Failed    int
}

// Notifier delivers events to subscribers.
type Notifier struct {
	subs     SubscriptionSource
	langs    LanguageSource
	renderer *Renderer
	sender   Sender
}

// New creates a notifier.
func New(subs SubscriptionSource, langs LanguageSource, renderer *Renderer, sender Sender) *Notifier {
	return &Notifier{
		subs:     subs,
		langs:    langs,
		renderer: renderer,
		sender:   sender,
	}
}

// Deliver renders and sends the event to every active subscription of its
// repository. A failed send is logged and counted but never interrupts the
// remaining recipients, and no retry is performed. The error return covers
// resolution failure only; per-recipient failures live in Result.Failed.
func (n *Notifier) Deliver(ev *github.Event) (Result, error) {
	repo := strings.ToLower(ev.Repo.FullName)

	subs, err := n.subs.ActiveByRepository(repo)
	if err != nil {
		return Result{}, fmt.Errorf("failed to resolve subscriptions: %w", err)
	}
	if len(subs) == 0 {
		logger.Debug().Str("repository", repo).Str("event", string(ev.Kind)).Msg("No subscribers for repository")
		return Result{}, nil
	}

	var res Result
	for _, sub := range subs {
		lang := sub.Language
		if lang == "" {
			lang = n.langs.ChatLanguage(sub.ChatID)
		}

		text := n.renderer.Render(ev, lang)
		if text == "" {
			continue
		}

		res.Attempted++
		msg := Message{
			ChatID:   sub.ChatID,
			ThreadID: sub.ThreadID(),
			Language: lang,
			Text:     text,
		}
		if err := n.sender.Send(msg); err != nil {
			res.Failed++
			logger.Error().
				Err(err).
				Str("chat_id", sub.ChatID).
				Str("repository", repo).
				Str("event", string(ev.Kind)).
				Msg("Failed to deliver notification")
		}
	}

	logger.Info().
		Str("repository", repo).
		Str("event", string(ev.Kind)).
		Int("attempted", res.Attempted).
		Int("failed", res.Failed).
		Msg("Fan-out complete")

	return res, nil
}
