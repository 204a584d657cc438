package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/tinnova-pe/cotizador/internal/auth"
	"github.com/tinnova-pe/cotizador/internal/backend"
	"github.com/tinnova-pe/cotizador/internal/core"
	"github.com/tinnova-pe/cotizador/internal/history"
	"github.com/tinnova-pe/cotizador/internal/intake"
	"github.com/tinnova-pe/cotizador/internal/quote/repo"
	"github.com/tinnova-pe/cotizador/internal/server"
	logx "github.com/tinnova-pe/cotizador/pkg/logger"
	pkgredis "github.com/tinnova-pe/cotizador/pkg/redis"
)

// AppConfig defines all configurable parameters for the quotation service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis pkgredis.Config
	// QuoteTTL bounds how long an untouched quote survives in Redis.
	QuoteTTL string `envconfig:"QUOTE_TTL" default:"168h"`

	// External services
	Auth    auth.Config
	Backend backend.Config

	// Local state
	Intake  intake.Config
	History history.Config

	Server server.Config
}

func main() {
	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: cfg.Environment})
	if cfg.Environment == core.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	ttl, err := time.ParseDuration(cfg.QuoteTTL)
	if err != nil {
		logx.Fatal().Err(err).Str("value", cfg.QuoteTTL).Msg("invalid QUOTE_TTL")
	}

	rdb, err := cfg.Redis.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise redis client")
	}
	defer rdb.Close()

	hist, err := history.Open(cfg.History.DBPath)
	if err != nil {
		logx.Fatal().Err(err).Str("path", cfg.History.DBPath).Msg("failed to open history store")
	}
	defer hist.Close()

	intakeStore, err := intake.NewStore(cfg.Intake)
	if err != nil {
		logx.Fatal().Err(err).Str("dir", cfg.Intake.Dir).Msg("failed to prepare intake dir")
	}

	srv := server.New(
		cfg.Server,
		auth.NewClient(cfg.Auth),
		backend.NewClient(cfg.Backend),
		repo.NewRedisQuoteRepository(rdb, ttl),
		intakeStore,
		hist,
	)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logx.Info().Str("addr", httpSrv.Addr).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("graceful shutdown failed")
	}
}
