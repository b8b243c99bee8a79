package storage

import (
	"errors"
	"os"
	"testing"

	"github.com/user/ghrelay/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init(false, "")
	os.Exit(m.Run())
}

func testDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSubscribe_DuplicateTriple(t *testing.T) {
	store := NewSubscriptionStore(testDB(t))

	if err := store.Subscribe("100", "acme/widgets", "", "en"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := store.Subscribe("100", "Acme/Widgets", "", "en"); !errors.Is(err, ErrAlreadySubscribed) {
		t.Fatalf("expected ErrAlreadySubscribed for case-variant duplicate, got %v", err)
	}

	// A different thread in the same chat is a distinct triple.
	if err := store.Subscribe("100", "acme/widgets", "42", "en"); err != nil {
		t.Fatalf("subscribe with thread: %v", err)
	}
	if err := store.Subscribe("100", "acme/widgets", "42", "en"); !errors.Is(err, ErrAlreadySubscribed) {
		t.Fatalf("expected ErrAlreadySubscribed for same thread, got %v", err)
	}
}

func TestSubscribe_StoresLowercasedRepository(t *testing.T) {
	store := NewSubscriptionStore(testDB(t))

	if err := store.Subscribe("100", "  Acme/Widgets ", "", "en"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	subs, err := store.ByChat("100")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 || subs[0].Repository != "acme/widgets" {
		t.Fatalf("expected lowercased trimmed repository, got %+v", subs)
	}
}

func TestActiveByRepository_CaseInsensitiveOrdered(t *testing.T) {
	store := NewSubscriptionStore(testDB(t))

	for _, chat := range []string{"100", "200", "300"} {
		if err := store.Subscribe(chat, "acme/widgets", "", "en"); err != nil {
			t.Fatalf("subscribe %s: %v", chat, err)
		}
	}

	subs, err := store.ActiveByRepository("Acme/Widgets")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("expected 3 subscriptions, got %d", len(subs))
	}
	for i, want := range []string{"100", "200", "300"} {
		if subs[i].ChatID != want {
			t.Fatalf("expected insertion order, got %+v", subs)
		}
	}
}

func TestActiveByRepository_ExcludesInactive(t *testing.T) {
	store := NewSubscriptionStore(testDB(t))

	if err := store.Subscribe("100", "acme/widgets", "", "en"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := store.Subscribe("200", "acme/widgets", "", "en"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	subs, err := store.ActiveByRepository("acme/widgets")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := store.SetActive(subs[0].ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	subs, err = store.ActiveByRepository("acme/widgets")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(subs) != 1 || subs[0].ChatID != "200" {
		t.Fatalf("expected only the active subscription, got %+v", subs)
	}
}

func TestUnsubscribe(t *testing.T) {
	store := NewSubscriptionStore(testDB(t))

	if err := store.Unsubscribe("100", "acme/widgets"); !errors.Is(err, ErrNotSubscribed) {
		t.Fatalf("expected ErrNotSubscribed, got %v", err)
	}

	if err := store.Subscribe("100", "acme/widgets", "", "en"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := store.Unsubscribe("100", "ACME/widgets"); err != nil {
		t.Fatalf("expected case-insensitive unsubscribe, got %v", err)
	}

	subs, err := store.ByChat("100")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("expected no subscriptions left, got %+v", subs)
	}
}

func TestUpdateChatLanguage_BulkUpdate(t *testing.T) {
	store := NewSubscriptionStore(testDB(t))

	if err := store.Subscribe("100", "acme/widgets", "", "en"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := store.Subscribe("100", "acme/gadgets", "", "en"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := store.Subscribe("200", "acme/widgets", "", "en"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := store.UpdateChatLanguage("100", "ru"); err != nil {
		t.Fatalf("bulk update: %v", err)
	}

	subs, err := store.ByChat("100")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, sub := range subs {
		if sub.Language != "ru" {
			t.Fatalf("expected all chat 100 subscriptions in ru, got %+v", subs)
		}
	}

	other, err := store.ByChat("200")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if other[0].Language != "en" {
		t.Fatalf("expected other chats untouched, got %+v", other)
	}
}

func TestSetThread(t *testing.T) {
	store := NewSubscriptionStore(testDB(t))

	if err := store.Subscribe("100", "acme/widgets", "7", "en"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	subs, _ := store.ByChat("100")
	if subs[0].ThreadID() != "7" {
		t.Fatalf("expected thread 7, got %q", subs[0].ThreadID())
	}

	if err := store.SetThread(subs[0].ID, ""); err != nil {
		t.Fatalf("clear thread: %v", err)
	}
	sub, err := store.ByID(subs[0].ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sub.ThreadID() != "" {
		t.Fatalf("expected default context, got %q", sub.ThreadID())
	}
}

func TestDelete(t *testing.T) {
	store := NewSubscriptionStore(testDB(t))

	if err := store.Subscribe("100", "acme/widgets", "", "en"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	subs, err := store.ByChat("100")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if err := store.Delete(subs[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	sub, err := store.ByID(subs[0].ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sub != nil {
		t.Fatalf("expected subscription gone, got %+v", sub)
	}
}

func TestChatSettings_LazyDefaults(t *testing.T) {
	store := NewChatSettingsStore(testDB(t), "en")

	settings, err := store.Get("100")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if settings.Language != "en" || !settings.AdminOnly {
		t.Fatalf("unexpected defaults: %+v", settings)
	}

	if err := store.SetLanguage("100", "ua"); err != nil {
		t.Fatalf("set language: %v", err)
	}
	if lang := store.ChatLanguage("100"); lang != "ua" {
		t.Fatalf("expected ua, got %q", lang)
	}

	if err := store.SetAdminOnly("100", false); err != nil {
		t.Fatalf("set admin only: %v", err)
	}
	settings, err = store.Get("100")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if settings.AdminOnly {
		t.Fatalf("expected admin_only cleared, got %+v", settings)
	}
}

func TestUserStore(t *testing.T) {
	store := NewUserStore(testDB(t))

	u, err := store.ByTelegramID("500")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u != nil {
		t.Fatalf("expected nil for unknown user, got %+v", u)
	}

	if err := store.EnsureUser("500", "en"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := store.EnsureUser("500", "ru"); err != nil {
		t.Fatalf("ensure twice: %v", err)
	}

	if err := store.SetGitHubToken("500", "ghp_token"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	u, err = store.ByTelegramID("500")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u.GitHubToken != "ghp_token" || u.Language != "en" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestMigrator_NormalizesAndDeduplicates(t *testing.T) {
	db := testDB(t)

	// Seed legacy rows directly: mixed case and a duplicate triple.
	for _, repo := range []string{"Acme/Widgets", "acme/widgets", "ACME/Gadgets"} {
		if _, err := db.Exec(
			`INSERT INTO subscriptions (chat_id, repository, language) VALUES (?, ?, ?)`,
			"100", repo, "en",
		); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	m := NewMigrator(db)
	if err := m.Up(); err != nil {
		t.Fatalf("up: %v", err)
	}

	store := NewSubscriptionStore(db)
	subs, err := store.ByChat("100")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected duplicate removed, got %+v", subs)
	}
	for _, sub := range subs {
		if sub.Repository != "acme/widgets" && sub.Repository != "acme/gadgets" {
			t.Fatalf("expected lowercased repositories, got %+v", subs)
		}
	}

	// Idempotent: a second run applies nothing and changes nothing.
	if err := m.Up(); err != nil {
		t.Fatalf("second up: %v", err)
	}
	again, err := store.ByChat("100")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(again) != len(subs) {
		t.Fatalf("expected second run to be a no-op, got %+v", again)
	}
}

func TestMigrator_RevertLast(t *testing.T) {
	db := testDB(t)
	m := NewMigrator(db)

	// Empty ledger is a no-op.
	if err := m.RevertLast(); err != nil {
		t.Fatalf("revert on empty ledger: %v", err)
	}

	if err := m.Up(); err != nil {
		t.Fatalf("up: %v", err)
	}
	if err := m.RevertLast(); err != nil {
		t.Fatalf("revert: %v", err)
	}

	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM schema_migrations`); err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty ledger after revert, got %d", count)
	}
}
