package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/grivyzom/playtimer-server/internal/config"
	"github.com/grivyzom/playtimer-server/internal/handler"
	"github.com/grivyzom/playtimer-server/internal/jobs"
	"github.com/grivyzom/playtimer-server/internal/middleware"
	"github.com/grivyzom/playtimer-server/internal/repository"
	"github.com/grivyzom/playtimer-server/internal/service"
	"github.com/grivyzom/playtimer-server/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	settings, err := config.NewStore(cfg.SettingsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load settings file")
	}

	ctx := context.Background()
	backend, db := storage.Open(ctx, cfg)

	if records, err := backend.LoadAll(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to load playtime snapshot")
	} else {
		log.Info().Int("players", len(records)).Msg("playtime records loaded")
	}

	var (
		accountRepo repository.AccountRepository
		bonusRepo   repository.BonusRepository
		historyRepo repository.HistoryRepository
	)
	if db != nil {
		accountRepo = repository.NewAccountRepository(db.DB)
		bonusRepo = repository.NewBonusRepository(db.DB)
		historyRepo = repository.NewHistoryRepository(db.DB)
	} else {
		accountRepo = repository.NewMemoryAccountRepository(nil)
		bonusRepo = repository.NewMemoryBonusRepository()
		historyRepo = repository.NewMemoryHistoryRepository(nil)
	}

	tracker := service.NewSessionTracker(nil)
	ledger := service.NewBonusLedger(bonusRepo, historyRepo, settings, nil)
	policy := service.NewLimitPolicy(settings, accountRepo, ledger, nil)
	svc := service.NewAccountingService(backend, accountRepo, historyRepo, tracker, ledger, policy)

	playerHandler := handler.NewPlayerHandler(svc)
	bonusHandler := handler.NewBonusHandler(svc)
	adminHandler := handler.NewAdminHandler(settings)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"sessions":  tracker.Active(),
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1/players", func(r chi.Router) {
		r.Mount("/", playerHandler.Routes())
	})
	r.Route("/v1/bonuses", func(r chi.Router) {
		r.Mount("/", bonusHandler.Routes())
	})
	r.Route("/v1/admin", func(r chi.Router) {
		r.Mount("/", adminHandler.Routes())
	})

	resetJob := jobs.NewDailyResetJob(accountRepo, historyRepo, settings, nil)
	resetJob.Start()

	autoSaveJob := jobs.NewAutoSaveJob(svc, settings, nil)
	autoSaveJob.Start()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	resetJob.Stop()
	autoSaveJob.Stop()

	// Flush in-flight sessions and close the backend after the HTTP
	// surface has drained, so no new sessions can slip in.
	if err := svc.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush sessions on shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
