package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/ghrelay/internal/config"
	"github.com/user/ghrelay/internal/i18n"
	"github.com/user/ghrelay/internal/notifier"
	"github.com/user/ghrelay/internal/storage"
	"github.com/user/ghrelay/internal/telegram"
	"github.com/user/ghrelay/internal/webhook"
	"github.com/user/ghrelay/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Try to initialize basic logger for error output
		logger.Init(true, "")
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	debug := cfg.Log.Level == "debug"
	if err := logger.Init(debug, cfg.Log.File); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	logger.Info().Msg("Starting GitHub notification relay")

	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()
	logger.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	store := storage.NewSubscriptionStore(db)
	settings := storage.NewChatSettingsStore(db, cfg.I18n.DefaultLanguage)
	users := storage.NewUserStore(db)

	// Translations: a missing default language has no further fallback.
	catalog := i18n.New(cfg.I18n.Dir, cfg.I18n.DefaultLanguage)
	if err := catalog.Preload(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load translations")
	}

	bot, err := telegram.NewBot(telegram.Config{
		Token:         cfg.Telegram.Token,
		PollTimeout:   time.Duration(cfg.Telegram.PollTimeout) * time.Second,
		CallbackURL:   cfg.GitHub.CallbackURL,
		WebhookSecret: cfg.GitHub.WebhookSecret,
	}, store, settings, users, catalog)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	notify := notifier.New(store, settings, notifier.NewRenderer(catalog), bot)
	webhookHandler := webhook.NewHandler(cfg.GitHub.WebhookSecret, notify)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Post("/webhook", webhookHandler.ServeHTTP)

	server := &http.Server{
		Addr:    cfg.ServerAddress(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("address", cfg.ServerAddress()).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	go bot.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	bot.Stop()

	logger.Info().Msg("Shutdown complete")
}
