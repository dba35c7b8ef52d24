package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/medication-adherence/internal/config"
	"github.com/iliyamo/medication-adherence/internal/database"
	"github.com/iliyamo/medication-adherence/internal/logging"
	"github.com/iliyamo/medication-adherence/internal/server"
	"github.com/iliyamo/medication-adherence/internal/service"
)

func main() {
	// a missing .env is fine, the environment may be set by the runtime
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, dialect, err := database.Open(cfg)
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open database")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logging.Warn().Msg("redis unavailable: in-memory rate limiting, no caching")
	} else {
		defer rdb.Close()
	}

	var pub service.Publisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		pub = service.NewAMQPPublisher(cfg.RabbitMQURL)
	}

	e, err := server.New(server.Options{
		Config:    cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		DB:        db,
		Dialect:   dialect,
		Redis:     rdb,
		Publisher: pub,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("build server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		logging.Info().Str("addr", addr).Str("env", cfg.Env).Str("db", string(dialect)).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown")
	}
	logging.Info().Msg("server stopped")
}
