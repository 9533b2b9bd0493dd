package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"SignalForge/pkg/app"
	"SignalForge/pkg/messaging"
	"SignalForge/pkg/model"
	"SignalForge/pkg/service"
)

var (
	priceToken   string
	historyLimit int
	logsLevel    string
	listenFilter string
	listenName   string
	serveNoCron  bool
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Show the USD price of a token",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		price, err := a.Service.Price(cmd.Context(), priceToken)
		if err != nil {
			return err
		}
		field(priceToken, fmt.Sprintf("$%.4f", price))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored signals (requires a database)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.Service.History(cmd.Context(), walletAddress, historyLimit)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), records)
		}
		if len(records) == 0 {
			warning.Println("No signals stored.")
			return nil
		}
		for _, r := range records {
			label.Print(r.CreatedAt.Format("2006-01-02 15:04:05"), " ")
			recommendationColor(model.Recommendation(r.Recommendation)).Printf("%-5s", r.Recommendation)
			fmt.Printf(" %.2f  risk %.2f  %s\n", r.Confidence, r.RiskScore, r.Address)
		}

		counts, err := a.DB.Signals().CountByRecommendation(cmd.Context(), walletAddress)
		if err != nil {
			return err
		}
		fmt.Println()
		for _, rec := range []model.Recommendation{model.RecommendationBuy, model.RecommendationHold, model.RecommendationAvoid} {
			field("Total "+string(rec), counts[string(rec)])
		}
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show persisted warnings and errors (requires a database)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()
		if a.DB == nil {
			return service.ErrHistoryDisabled
		}

		records, err := a.DB.Logs().Recent(cmd.Context(), logsLevel, historyLimit)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), records)
		}
		if len(records) == 0 {
			warning.Println("No log entries stored.")
			return nil
		}
		for _, r := range records {
			label.Print(r.CreatedAt.Format("2006-01-02 15:04:05"), " ")
			fmt.Printf("%-5s %s\n", r.Level, r.Message)
		}
		return nil
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print signals published on NATS as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.NATS.URL == "" {
			return fmt.Errorf("nats.url is not configured")
		}
		bus, err := messaging.NewNATSClient(cfg.NATS.URL, cfg.NATS.Stream)
		if err != nil {
			return err
		}
		defer bus.Close()

		err = bus.Subscribe(listenName, listenFilter, func(a model.Analysis) error {
			printAnalysis(a)
			fmt.Println()
			return nil
		})
		if err != nil {
			return err
		}

		if info, err := bus.StreamInfo(cmd.Context()); err == nil {
			label.Printf("Stream %s holds %d messages\n", info.Config.Name, info.State.Msgs)
		}
		heading.Printf("Listening on %s, Ctrl+C to stop\n", listenFilter)
		<-cmd.Context().Done()
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the watchlist scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{Outputs: true, PersistLogs: true})
		if err != nil {
			return err
		}
		defer a.Close()

		success.Printf("SignalForge API on http://localhost:%s\n", cfg.Server.Port)
		return a.Serve(cmd.Context(), !serveNoCron)
	},
}

func init() {
	priceCmd.Flags().StringVar(&priceToken, "token", "solana", "CoinGecko token id")

	historyCmd.Flags().StringVar(&walletAddress, "wallet", "", "Only this wallet")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum rows")
	historyCmd.Flags().BoolVar(&outputJSON, "json", false, "Print JSON instead of text")

	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Only this level, e.g. warn or error")
	logsCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum rows")
	logsCmd.Flags().BoolVar(&outputJSON, "json", false, "Print JSON instead of text")

	listenCmd.Flags().StringVar(&listenFilter, "subject", "signals.*", "Subject filter, e.g. signals.buy")
	listenCmd.Flags().StringVar(&listenName, "consumer", "signalforge-cli", "Durable consumer name")

	serveCmd.Flags().BoolVar(&serveNoCron, "no-scheduler", false, "Do not run the watchlist scheduler")
}
