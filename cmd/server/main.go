package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"campusforum/internal/config"
	"campusforum/internal/credit"
	"campusforum/internal/database/boltstore"
	"campusforum/internal/database/sqlitestore"
	"campusforum/internal/handlers"
	"campusforum/internal/metrics"
	"campusforum/internal/moderation"
	"campusforum/internal/routing"
	"campusforum/internal/session"
	"campusforum/internal/tracing"
)

func main() {
	// Configure zerolog
	// Set log level from environment (default: info)
	logLevel := os.Getenv("LOG_LEVEL")
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Use pretty console logging in development, JSON in production
	if os.Getenv("LOG_FORMAT") == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	log.Info().Msg("Starting Campus Forum")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	if cfg.TracingEnabled {
		tp, err := tracing.Init(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracing")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Tracer shutdown failed")
			}
		}()
		log.Info().Msg("Tracing initialized")
	}

	// Record store (users, content, violations, inbox)
	store, err := sqlitestore.Open(sqlitestore.Options{Path: cfg.DBPath})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Failed to open database")
	}
	defer store.Close()
	log.Info().Str("path", cfg.DBPath).Msg("Database opened")

	// Session store (revocable token records)
	sessionDB, err := boltstore.Open(boltstore.Options{Path: cfg.SessionDBPath})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.SessionDBPath).Msg("Failed to open session database")
	}
	defer sessionDB.Close()

	sessions := session.NewProvider(cfg.JWTSecret, cfg.SessionTTL, sessionDB.SessionStore())

	engine := credit.NewEngine(store, credit.WithLocation(cfg.Timezone))
	recorder := moderation.NewRecorder(store, engine)

	// Business gauges (user counts, active bans, low scores)
	metrics.StartCollector(ctx, metrics.StatsSource{
		UserCount: store.CountUsers,
		ActiveBans: func(ctx context.Context) (int, error) {
			return store.CountActiveBans(ctx, time.Now())
		},
		LowScoreUsers: func(ctx context.Context) (int, error) {
			return store.CountLowScoreUsers(ctx, credit.AdmissionThreshold)
		},
	}, time.Minute)

	// Initialize handlers with all dependencies via constructor injection
	h := handlers.NewHandler(store, sessions, engine, recorder, handlers.Config{
		SecureCookies: cfg.SecureCookies,
		EmailDomain:   cfg.EmailDomain,
		SweepToken:    cfg.SweepToken,
	})

	// Setup router with middleware
	handler := routing.SetupRouter(routing.Config{
		Handlers: h,
		Sessions: sessions,
		Logger:   log.Logger,
	})

	log.Info().
		Str("address", cfg.ServerAddress).
		Bool("secure_cookies", cfg.SecureCookies).
		Str("timezone", cfg.Timezone.String()).
		Msg("Starting HTTP server")

	if err := http.ListenAndServe(cfg.ServerAddress, handler); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}
