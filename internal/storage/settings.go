package storage

import (
	"database/sql"
	"errors"

	"github.com/user/ghrelay/pkg/logger"
)

// ChatSettingsStore handles per-chat configuration.
type ChatSettingsStore struct {
	db          *Database
	defaultLang string
}

// NewChatSettingsStore creates a new chat settings store.
func NewChatSettingsStore(db *Database, defaultLang string) *ChatSettingsStore {
	return &ChatSettingsStore{db: db, defaultLang: defaultLang}
}

// Get returns the settings row for a chat, creating it with defaults on
// first access.
func (s *ChatSettingsStore) Get(chatID string) (*ChatSettings, error) {
	var settings ChatSettings
	err := s.db.Get(&settings, `SELECT * FROM chat_settings WHERE chat_id = ?`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(
			`INSERT INTO chat_settings (chat_id, language) VALUES (?, ?)`,
			chatID, s.defaultLang,
		); err != nil {
			return nil, err
		}
		err = s.db.Get(&settings, `SELECT * FROM chat_settings WHERE chat_id = ?`, chatID)
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// SetLanguage changes the chat language.
func (s *ChatSettingsStore) SetLanguage(chatID, language string) error {
	if _, err := s.Get(chatID); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE chat_settings SET language = ? WHERE chat_id = ?`, language, chatID)
	return err
}

// SetAdminOnly toggles the admin-only-command flag.
func (s *ChatSettingsStore) SetAdminOnly(chatID string, adminOnly bool) error {
	if _, err := s.Get(chatID); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE chat_settings SET admin_only = ? WHERE chat_id = ?`, adminOnly, chatID)
	return err
}

// ChatLanguage returns the chat's language, falling back to the default on
// any storage error. Used to pick a rendering language for legacy
// subscriptions that predate per-subscription languages.
func (s *ChatSettingsStore) ChatLanguage(chatID string) string {
	settings, err := s.Get(chatID)
	if err != nil {
		logger.Warn().Err(err).Str("chat_id", chatID).Msg("Failed to load chat settings")
		return s.defaultLang
	}
	return settings.Language
}

// UserStore handles Telegram user records.
type UserStore struct {
	db *Database
}

// NewUserStore creates a new user store.
func NewUserStore(db *Database) *UserStore {
	return &UserStore{db: db}
}

// EnsureUser creates the user row if it does not exist yet.
func (s *UserStore) EnsureUser(telegramID, language string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO users (telegram_id, language) VALUES (?, ?)`,
		telegramID, language,
	)
	return err
}

// ByTelegramID returns a user, or nil when unknown.
func (s *UserStore) ByTelegramID(telegramID string) (*User, error) {
	var u User
	err := s.db.Get(&u, `SELECT * FROM users WHERE telegram_id = ?`, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetGitHubToken stores the user's GitHub token, creating the user if needed.
func (s *UserStore) SetGitHubToken(telegramID, token string) error {
	if err := s.EnsureUser(telegramID, "en"); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE users SET github_token = ? WHERE telegram_id = ?`, token, telegramID)
	return err
}
