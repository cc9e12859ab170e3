// Package main is the entry point for the Oomf compliment core.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"oomf-core/internal/api"
	"oomf-core/internal/config"
	"oomf-core/internal/economy"
	"oomf-core/internal/notify"
	"oomf-core/internal/pkg/db"
	"oomf-core/internal/pkg/lock"
	"oomf-core/internal/ratelimit"
	"oomf-core/internal/repository"
	"oomf-core/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, reading environment variables directly")
	}

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg.Log)

	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	log.Info().Msg("Running database migrations...")
	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	store := repository.NewStore(dbPool.Pool)

	deps := &service.Deps{
		Store:     store,
		Locks:     lock.NewKeyLock(),
		Relations: store.Relations,
		Limiter:   ratelimit.New(cfg.RateLimit),
		Emitter:   newEmitter(cfg.Notify),
		Catalog:   economy.NewCatalog(cfg.Economy),
		Rules:     service.RulesFromConfig(cfg),
	}

	server := api.NewServer(cfg, api.Services{
		Compliments: service.NewComplimentService(deps),
		Guesses:     service.NewGuessService(deps),
		Tokens:      service.NewTokenService(deps),
		Exchanges:   service.NewExchangeService(deps),
	}, func(ctx context.Context) error {
		return dbPool.HealthCheck(ctx, 2*time.Second)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Listen(cfg.Server.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down HTTP server...")
		return server.Shutdown(cfg.Server.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Server stopped with error")
		return
	}
	log.Info().Msg("Server stopped gracefully")
}

func setupLogging(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// newEmitter always logs events and also posts them to the push subsystem
// when a webhook is configured.
func newEmitter(cfg config.NotifyConfig) notify.Emitter {
	if cfg.WebhookURL == "" {
		return notify.LogEmitter{}
	}
	log.Info().Str("url", cfg.WebhookURL).Msg("Webhook notifications enabled")
	return notify.Multi{
		notify.LogEmitter{},
		notify.NewWebhookEmitter(cfg.WebhookURL, cfg.Token, cfg.Timeout),
	}
}
