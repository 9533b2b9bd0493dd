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

	log.Info().Str("port", cfg.Server.Port).Msg("Starting SignalForge API")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Outputs: true, PersistLogs: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise SignalForge")
	}
	defer a.Close()

	if err := a.Serve(ctx, false); err != nil {
		log.Error().Err(err).Msg("API server failed")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
