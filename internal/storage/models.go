// Package storage provides database operations and data models.
package storage

import (
	"database/sql"
	"time"
)

// Subscription binds one (chat, thread) pair to one repository.
//
// Repository is stored lowercased; matching is exact after casefold.
// MessageThreadID is NULL for the chat's default/general context. Language is
// pinned at creation time and only changes through an explicit bulk update
// when the chat language changes.
type Subscription struct {
	ID              int64          `db:"id"`
	ChatID          string         `db:"chat_id"`
	Repository      string         `db:"repository"`
	MessageThreadID sql.NullString `db:"message_thread_id"`
	IsActive        bool           `db:"is_active"`
	Language        string         `db:"language"`
	CreatedAt       time.Time      `db:"created_at"`
}

// ThreadID returns the subscription's thread identifier, empty for the
// default context.
func (s Subscription) ThreadID() string {
	if s.MessageThreadID.Valid {
		return s.MessageThreadID.String
	}
	return ""
}

// ChatSettings is per-chat configuration, created lazily with defaults.
type ChatSettings struct {
	ID        int64  `db:"id"`
	ChatID    string `db:"chat_id"`
	Language  string `db:"language"`
	AdminOnly bool   `db:"admin_only"`
}

// User is a Telegram user known to the bot, with an optional GitHub token
// used for webhook registration.
type User struct {
	ID          int64     `db:"id"`
	TelegramID  string    `db:"telegram_id"`
	GitHubToken string    `db:"github_token"`
	Language    string    `db:"language"`
	CreatedAt   time.Time `db:"created_at"`
}
