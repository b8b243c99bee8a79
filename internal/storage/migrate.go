package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/user/ghrelay/pkg/logger"
)

// Migration is one schema/data migration unit. Units are applied in lexical
// name order and tracked in the schema_migrations ledger, so re-running Up is
// a no-op for already-applied units.
type Migration struct {
	Name string
	Up   func(db *sqlx.DB) error
	Down func(db *sqlx.DB) error
}

// migrations is the registry of known units. Keep names lexically ordered by
// date prefix.
var migrations = []Migration{
	{
		Name: "202505280001_normalize_repositories",
		Up:   normalizeRepositoriesUp,
		Down: func(db *sqlx.DB) error {
			// Duplicate removal cannot be undone.
			return nil
		},
	},
}

// normalizeRepositoriesUp lowercases stored repository keys and removes
// duplicate (chat, repository, thread) subscriptions, keeping the oldest.
func normalizeRepositoriesUp(db *sqlx.DB) error {
	if _, err := db.Exec(`UPDATE subscriptions SET repository = LOWER(repository)`); err != nil {
		return err
	}
	_, err := db.Exec(`
		DELETE FROM subscriptions WHERE id NOT IN (
			SELECT MIN(id) FROM subscriptions
			GROUP BY chat_id, repository, COALESCE(message_thread_id, '')
		)
	`)
	return err
}

// Migrator applies and reverts registered migrations against one database.
type Migrator struct {
	db *Database
}

// NewMigrator creates a migrator.
func NewMigrator(db *Database) *Migrator {
	return &Migrator{db: db}
}

// Up applies every unapplied migration in lexical name order.
func (m *Migrator) Up() error {
	units := sorted()
	for _, unit := range units {
		applied, err := m.isApplied(unit.Name)
		if err != nil {
			return err
		}
		if applied {
			logger.Debug().Str("migration", unit.Name).Msg("Migration already applied, skipping")
			continue
		}
		logger.Info().Str("migration", unit.Name).Msg("Applying migration")
		if err := unit.Up(m.db.DB); err != nil {
			return fmt.Errorf("migration %s failed: %w", unit.Name, err)
		}
		if _, err := m.db.Exec(`INSERT INTO schema_migrations (name) VALUES (?)`, unit.Name); err != nil {
			return err
		}
	}
	return nil
}

// RevertLast undoes the single most-recently-applied migration. It is a
// no-op when the ledger is empty.
func (m *Migrator) RevertLast() error {
	var name string
	err := m.db.Get(&name, `SELECT name FROM schema_migrations ORDER BY applied_at DESC, rowid DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Info().Msg("No migrations to revert")
			return nil
		}
		return err
	}

	unit, ok := byName(name)
	if !ok {
		return fmt.Errorf("applied migration %s is not registered", name)
	}

	logger.Info().Str("migration", name).Msg("Reverting migration")
	if err := unit.Down(m.db.DB); err != nil {
		return fmt.Errorf("revert of %s failed: %w", name, err)
	}
	_, err = m.db.Exec(`DELETE FROM schema_migrations WHERE name = ?`, name)
	return err
}

func (m *Migrator) isApplied(name string) (bool, error) {
	var count int
	err := m.db.Get(&count, `SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, name)
	return count > 0, err
}

func sorted() []Migration {
	units := make([]Migration, len(migrations))
	copy(units, migrations)
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units
}

func byName(name string) (Migration, bool) {
	for _, unit := range migrations {
		if unit.Name == name {
			return unit, true
		}
	}
	return Migration{}, false
}
