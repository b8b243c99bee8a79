// Command migrate applies or reverts database migrations.
//
// Usage:
//
//	migrate [-config path]          apply all unapplied migrations in order
//	migrate [-config path] revert   undo the most recently applied migration
package main

import (
	"flag"

	"github.com/user/ghrelay/internal/config"
	"github.com/user/ghrelay/internal/storage"
	"github.com/user/ghrelay/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Init(true, "")
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := logger.Init(cfg.Log.Level == "debug", cfg.Log.File); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	migrator := storage.NewMigrator(db)

	if flag.Arg(0) == "revert" {
		if err := migrator.RevertLast(); err != nil {
			logger.Fatal().Err(err).Msg("Revert failed")
		}
		logger.Info().Msg("Revert complete")
		return
	}

	if err := migrator.Up(); err != nil {
		logger.Fatal().Err(err).Msg("Migration failed")
	}
	logger.Info().Msg("All migrations completed")
}
