package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"SignalForge/pkg/app"
	"SignalForge/pkg/config"
	"SignalForge/pkg/logging"
)

var (
	configPath   string
	strategyPath string
	logLevel     string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "signalforge",
	Short:         "Wallet behavior signals for Solana",
	Long:          `SignalForge scans Solana wallets, detects behavior patterns and turns them into BUY, HOLD or AVOID signals with a risk score.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath, strategyPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		closer, err := logging.Setup(loaded.LogLevel, loaded.LogFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logCloser = closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultBasePath, "Base configuration file")
	rootCmd.PersistentFlags().StringVar(&strategyPath, "strategy", config.DefaultStrategyPath, "Strategy overlay file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides config)")

	rootCmd.AddCommand(scanCmd, signalCmd, evaluateCmd, trainCmd, patternsCmd, priceCmd, historyCmd, logsCmd, listenCmd, serveCmd)
}

func main() {
	ctx, stop := signalContext()
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fail(err)
		stop()
		os.Exit(1)
	}
}

// newApp wires the application for one command
func newApp(ctx context.Context, opts app.Options) (*app.App, error) {
	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialise SignalForge")
		return nil, err
	}
	return a, nil
}

// signalContext cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
