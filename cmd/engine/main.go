package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"SignalForge/pkg/app"
	"SignalForge/pkg/config"
	"SignalForge/pkg/logging"
)

// engine runs the watchlist scheduler without the HTTP API
func main() {
	cfg, err := config.Load(envOr("CONFIG_PATH", config.DefaultBasePath), envOr("STRATEGY_PATH", config.DefaultStrategyPath))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	closer, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer closer.Close()

	if len(cfg.Scheduler.Watchlist) == 0 {
		log.Warn().Msg("scheduler.watchlist is empty, only rule reloads will run")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Outputs: true, PersistLogs: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise SignalForge")
	}
	defer a.Close()

	a.StartHealthChecks(ctx)
	if os.Getenv("RUN_ON_START") == "true" {
		a.NewScheduler().RunOnce()
	}

	log.Info().Str("spec", cfg.Scheduler.Spec).Strs("watchlist", cfg.Scheduler.Watchlist).Msg("Signal engine started")
	if err := a.RunScheduler(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduler failed")
	}
	log.Info().Msg("Signal engine stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
