package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/config"
	"SignalForge/pkg/logging"
	"SignalForge/pkg/messaging"
	"SignalForge/pkg/model"
	"SignalForge/pkg/monitor"
)

// monitor watches the API and the signal stream and serves their status
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon := monitor.NewMonitor(func(component, status, message string) {
		log.Warn().Str("target", component).Str("status", status).Str("message", message).Msg("Component health degraded")
	})

	apiURL := envOr("API_URL", fmt.Sprintf("http://localhost:%s", cfg.Server.Port))
	mon.StartChecking(ctx, "api", 30*time.Second, mon.HTTPCheck(apiURL+"/health"))

	if cfg.NATS.URL != "" {
		bus, err := messaging.NewNATSClient(cfg.NATS.URL, cfg.NATS.Stream)
		mon.RecordResult("nats", err)
		if err != nil {
			log.Error().Err(err).Msg("NATS unavailable, signal stream not monitored")
		} else {
			defer bus.Close()
			mon.StartChecking(ctx, "nats", 30*time.Second, bus.Ping)
			err := bus.Subscribe("signalforge-monitor", "signals.*", func(a model.Analysis) error {
				log.Info().
					Str("wallet", a.Signal.Address).
					Str("recommendation", string(a.Signal.Recommendation)).
					Float64("risk", a.Signal.RiskScore).
					Msg("Signal observed")
				return nil
			})
			if err != nil {
				log.Error().Err(err).Msg("Failed to subscribe to signals")
			}
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": mon.Overall(), "components": mon.GetAllStatus()})
	})

	port := envOr("MONITOR_PORT", "8081")
	srv := &http.Server{Addr: ":" + port, Handler: router}
	go func() {
		log.Info().Str("port", port).Msg("Monitor listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Monitor server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("Monitor stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
