package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/collector"
	"SignalForge/pkg/config"
	"SignalForge/pkg/database"
	"SignalForge/pkg/engine"
	"SignalForge/pkg/llm"
	"SignalForge/pkg/logging"
	"SignalForge/pkg/messaging"
	"SignalForge/pkg/monitor"
	"SignalForge/pkg/notify"
	"SignalForge/pkg/output"
	"SignalForge/pkg/platform/httpclient"
	"SignalForge/pkg/repository"
	"SignalForge/pkg/scanner"
	"SignalForge/pkg/service"
)

// Options what to wire besides the core pipeline
type Options struct {
	// Outputs enables file export, reports, NATS and webhooks
	Outputs bool
	// PersistLogs stores warn-and-above log events in the database
	PersistLogs bool
}

// App fully wired SignalForge instance
type App struct {
	Config   *config.Config
	Service  *service.Service
	Monitor  *monitor.Monitor
	Pipeline *engine.Pipeline
	DB       *database.DB
	Bus      *messaging.NATSClient
	LLM      *llm.LLMClient

	closers []io.Closer
	logger  zerolog.Logger
}

// New builds every component cfg enables. Optional collaborators that fail to
// connect are logged and left out; only the pattern store is mandatory.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{
		Config: cfg,
		logger: log.With().Str("component", "app").Logger(),
	}

	a.Monitor = monitor.NewMonitor(func(component, status, message string) {
		log.Warn().Str("target", component).Str("status", status).Str("message", message).Msg("Component health degraded")
	})

	if cfg.Database.Driver != "" {
		db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
		a.Monitor.RecordResult("database", err)
		switch {
		case err == nil:
			a.DB = db
			a.closers = append(a.closers, db)
			a.logger.Info().Str("driver", db.Driver()).Msg("Database connected")
			if opts.PersistLogs {
				hook := database.NewLogHook(db.Logs(), zerolog.WarnLevel)
				logging.AddHook(hook)
				// flush before the database closes
				a.closers = append(a.closers, hook)
			}
		case cfg.Storage.Patterns == "database":
			return nil, fmt.Errorf("open pattern database: %w", err)
		default:
			a.logger.Warn().Err(err).Msg("Database unavailable, signal history disabled")
		}
	}

	rules, err := cfg.Rules()
	if err != nil {
		a.Close()
		return nil, err
	}

	httpClient := httpclient.NewClient(httpclient.ClientOptions{
		Timeout:        cfg.Collector.Timeout,
		RequestsPerSec: cfg.Collector.RequestsPerSec,
		MaxRetries:     cfg.Collector.MaxRetries,
	})
	solana := collector.NewSolanaClient(cfg.RPCURL, httpClient)
	prices := collector.NewPriceClient(cfg.CoinGeckoAPI, httpClient)
	a.Monitor.RegisterComponent("solana_rpc")

	var store repository.PatternStore
	if cfg.Storage.Patterns == "database" {
		store = a.DB.Patterns()
	} else {
		fileStore, err := repository.NewFilePatternStore(cfg.Storage.PatternFile)
		if err != nil {
			a.Close()
			return nil, err
		}
		store = fileStore
	}

	if cfg.Storage.SeedFile != "" {
		if seed, err := repository.LoadSeedPatterns(cfg.Storage.SeedFile); err != nil {
			a.logger.Warn().Err(err).Msg("Seed patterns not loaded")
		} else if _, err := repository.Seed(ctx, store, seed); err != nil {
			a.Close()
			return nil, err
		}
	}

	pipelineOpts := []engine.Option{engine.WithAnnotationTimeout(cfg.AI.Timeout)}
	if cfg.AI.Enabled {
		client, err := llm.NewLLMClient(llm.Options{
			APIKey:      cfg.AI.APIKey,
			BaseURL:     cfg.AI.BaseURL,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			a.logger.Warn().Err(err).Msg("Annotations disabled")
		} else {
			a.LLM = client
			a.Monitor.RegisterComponent("llm")
			pipelineOpts = append(pipelineOpts, engine.WithAnnotator(client))
			a.logger.Info().Str("model", cfg.AI.Model).Str("key", cfg.MaskedAPIKey()).Msg("Annotations enabled")
		}
	}
	a.Pipeline = engine.NewPipeline(rules, pipelineOpts...)

	svcOpts := service.Options{
		Scanner:  scanner.NewScanner(solana, cfg.PatternRules.WhaleTokens, cfg.Collector.TransactionLimit, a.Monitor),
		Pipeline: a.Pipeline,
		Patterns: store,
		Prices:   prices,
		Health:   a.Monitor,
	}
	if a.DB != nil {
		svcOpts.Signals = a.DB.Signals()
	}
	if opts.Outputs {
		a.wireOutputs(&svcOpts, httpClient)
	}

	svc, err := service.New(ctx, svcOpts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Service = svc
	return a, nil
}

func (a *App) wireOutputs(opts *service.Options, httpClient *httpclient.Client) {
	cfg := a.Config
	if cfg.Storage.SignalsDir != "" {
		opts.Exporter = output.NewJSONExporter(cfg.Storage.SignalsDir)
	}
	if cfg.Storage.ReportsDir != "" {
		opts.Reports = output.NewReportWriter(cfg.Storage.ReportsDir)
	}

	if cfg.NATS.URL != "" {
		bus, err := messaging.NewNATSClient(cfg.NATS.URL, cfg.NATS.Stream)
		a.Monitor.RecordResult("nats", err)
		if err != nil {
			a.logger.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("NATS unavailable, signals will not be published")
		} else {
			a.Bus = bus
			a.closers = append(a.closers, bus)
			opts.Bus = bus
		}
	}

	var channels []notify.Channel
	if cfg.Webhooks.Discord != "" {
		channels = append(channels, notify.NewDiscord(cfg.Webhooks.Discord, httpClient))
	}
	if cfg.Webhooks.TelegramToken != "" && cfg.Webhooks.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Webhooks.TelegramToken, cfg.Webhooks.TelegramChatID, "")
		if err != nil {
			a.logger.Warn().Err(err).Msg("Telegram disabled")
		} else {
			channels = append(channels, tg)
		}
	}
	if cfg.Webhooks.Custom != "" {
		channels = append(channels, notify.NewWebhook(cfg.Webhooks.Custom, httpClient))
	}
	if len(channels) > 0 {
		n := notify.New(channels...)
		a.logger.Info().Strs("channels", n.Channels()).Msg("Notifications enabled")
		opts.Notifier = n
	}
}

// Checks health probes for the optional collaborators that are connected
func (a *App) Checks() map[string]monitor.CheckFunc {
	checks := make(map[string]monitor.CheckFunc)
	if a.DB != nil {
		checks["database"] = a.DB.Ping
	}
	if a.Bus != nil {
		checks["nats"] = a.Bus.Ping
	}
	if a.LLM != nil {
		checks["llm"] = a.LLM.Ping
	}
	return checks
}

// Close releases connections in reverse order of creation
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
