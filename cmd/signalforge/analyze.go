package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"SignalForge/pkg/app"
)

var (
	walletAddress string
	evalWallet    string
	outputJSON    bool
	noExport      bool
	evalTokens    int
	evalTxs       int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Analyze a wallet without generating a signal",
	RunE:  runScan,
}

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Generate a full trading signal for a wallet",
	Long:  `Scans the wallet, detects patterns, builds the signal and risk score, then exports it and delivers it to every configured output.`,
	RunE:  runSignal,
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate known holdings and transaction counts offline",
	RunE:  runEvaluate,
}

func init() {
	for _, c := range []*cobra.Command{scanCmd, signalCmd} {
		c.Flags().StringVar(&walletAddress, "wallet", "", "Wallet address to analyze")
		_ = c.MarkFlagRequired("wallet")
		c.Flags().BoolVar(&outputJSON, "json", false, "Print JSON instead of text")
	}
	signalCmd.Flags().BoolVar(&noExport, "no-export", false, "Skip file export, persistence and notifications")

	evaluateCmd.Flags().StringVar(&evalWallet, "wallet", "manual", "Wallet label for the signal")
	evaluateCmd.Flags().IntVar(&evalTokens, "tokens", 0, "Number of tokens held")
	evaluateCmd.Flags().IntVar(&evalTxs, "txs", 0, "Number of recent transactions")
	evaluateCmd.Flags().BoolVar(&outputJSON, "json", false, "Print JSON instead of text")
}

func requireWallet() error {
	if strings.TrimSpace(walletAddress) == "" {
		return errors.New("wallet address required, use --wallet")
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := requireWallet(); err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Service.Scan(ctx, walletAddress)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd.OutOrStdout(), result)
	}
	printScan(result)
	return nil
}

func runSignal(cmd *cobra.Command, args []string) error {
	if err := requireWallet(); err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, app.Options{Outputs: !noExport, PersistLogs: !noExport})
	if err != nil {
		return err
	}
	defer a.Close()

	analysis, err := a.Service.Analyze(ctx, walletAddress, !noExport)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd.OutOrStdout(), analysis)
	}
	printAnalysis(analysis)
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	analysis, err := a.Service.EvaluateObservation(ctx, evalWallet, evalTokens, evalTxs)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd.OutOrStdout(), analysis)
	}
	printAnalysis(analysis)
	return nil
}
