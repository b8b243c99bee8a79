package storage

import (
	"database/sql"
	"errors"
	"strings"
)

// Sentinel errors callers branch on.
var (
	ErrAlreadySubscribed = errors.New("already subscribed")
	ErrNotSubscribed     = errors.New("subscription not found")
)

// SubscriptionStore handles subscription-related database operations.
type SubscriptionStore struct {
	db *Database
}

// NewSubscriptionStore creates a new subscription store.
func NewSubscriptionStore(db *Database) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// Subscribe creates a subscription for (chat, repository, thread). The
// repository key is stored lowercased. Returns ErrAlreadySubscribed when the
// triple already exists.
func (s *SubscriptionStore) Subscribe(chatID, repository, threadID, language string) error {
	repository = strings.ToLower(strings.TrimSpace(repository))

	var count int
	query := `
		SELECT COUNT(*) FROM subscriptions
		WHERE chat_id = ? AND LOWER(repository) = ?
		  AND COALESCE(message_thread_id, '') = ?
	`
	if err := s.db.Get(&count, query, chatID, repository, threadID); err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadySubscribed
	}

	var thread sql.NullString
	if threadID != "" {
		thread = sql.NullString{String: threadID, Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO subscriptions (chat_id, repository, message_thread_id, language) VALUES (?, ?, ?, ?)`,
		chatID, repository, thread, language,
	)
	return err
}

// Unsubscribe removes a chat's subscriptions for a repository,
// case-insensitively. Returns ErrNotSubscribed when nothing matched.
func (s *SubscriptionStore) Unsubscribe(chatID, repository string) error {
	repository = strings.ToLower(strings.TrimSpace(repository))
	result, err := s.db.Exec(
		`DELETE FROM subscriptions WHERE chat_id = ? AND LOWER(repository) = ?`,
		chatID, repository,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotSubscribed
	}
	return nil
}

// ActiveByRepository returns the active subscriptions whose stored repository
// equals repository case-insensitively, in insertion order.
func (s *SubscriptionStore) ActiveByRepository(repository string) ([]Subscription, error) {
	repository = strings.ToLower(repository)
	var subs []Subscription
	query := `
		SELECT * FROM subscriptions
		WHERE LOWER(repository) = ? AND is_active = 1
		ORDER BY id
	`
	err := s.db.Select(&subs, query, repository)
	return subs, err
}

// ByChat returns all subscriptions for a chat in insertion order.
func (s *SubscriptionStore) ByChat(chatID string) ([]Subscription, error) {
	var subs []Subscription
	err := s.db.Select(&subs, `SELECT * FROM subscriptions WHERE chat_id = ? ORDER BY id`, chatID)
	return subs, err
}

// ByID returns one subscription, or nil when it does not exist.
func (s *SubscriptionStore) ByID(id int64) (*Subscription, error) {
	var sub Subscription
	err := s.db.Get(&sub, `SELECT * FROM subscriptions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// SetActive toggles delivery for a subscription.
func (s *SubscriptionStore) SetActive(id int64, active bool) error {
	_, err := s.db.Exec(`UPDATE subscriptions SET is_active = ? WHERE id = ?`, active, id)
	return err
}

// SetThread retargets a subscription's deliveries; an empty threadID means
// the default/general context.
func (s *SubscriptionStore) SetThread(id int64, threadID string) error {
	var thread sql.NullString
	if threadID != "" {
		thread = sql.NullString{String: threadID, Valid: true}
	}
	_, err := s.db.Exec(`UPDATE subscriptions SET message_thread_id = ? WHERE id = ?`, thread, id)
	return err
}

// UpdateChatLanguage bulk-updates the language of every subscription in a
// chat. Called when the chat language changes; subscription languages do not
// track the chat language otherwise.
func (s *SubscriptionStore) UpdateChatLanguage(chatID, language string) error {
	_, err := s.db.Exec(`UPDATE subscriptions SET language = ? WHERE chat_id = ?`, language, chatID)
	return err
}

// Delete removes a subscription by id.
func (s *SubscriptionStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM subscriptions WHERE id = ?`, id)
	return err
}
