package scanner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/collector"
	"SignalForge/pkg/model"
)

const maxTopTokens = 10

// HealthReporter receives the outcome of every upstream call
type HealthReporter interface {
	RecordResult(component string, err error)
}

// ScanResult observation plus the raw data it was derived from
type ScanResult struct {
	model.WalletObservation
	IsWhale            bool                             `json:"isWhale"`
	TopTokens          []collector.TokenHolding         `json:"topTokens"`
	RecentTransactions []collector.TransactionSignature `json:"recentTransactions"`
	Warnings           []string                         `json:"warnings,omitempty"`
	// Patterns detected on the observation; filled by callers that run the matcher
	Patterns []model.Pattern `json:"patterns"`
}

// Scanner builds observations from on-chain data
type Scanner struct {
	fetcher        collector.WalletFetcher
	whaleThreshold int
	txLimit        int
	health         HealthReporter
	logger         zerolog.Logger
}

// NewScanner health may be nil
func NewScanner(fetcher collector.WalletFetcher, whaleThreshold, txLimit int, health HealthReporter) *Scanner {
	if txLimit <= 0 {
		txLimit = 20
	}
	return &Scanner{
		fetcher:        fetcher,
		whaleThreshold: whaleThreshold,
		txLimit:        txLimit,
		health:         health,
		logger:         log.With().Str("component", "wallet_scanner").Logger(),
	}
}

// Scan fetches holdings and transactions independently. A failed fetch counts
// as zero and is reported in Warnings; only an empty address is an error.
func (s *Scanner) Scan(ctx context.Context, address string) (ScanResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return ScanResult{}, fmt.Errorf("%w: wallet address is required", model.ErrInvalidInput)
	}
	s.logger.Info().Str("wallet", address).Msg("Starting wallet analysis")

	var (
		wg       sync.WaitGroup
		holdings []collector.TokenHolding
		txs      []collector.TransactionSignature
		balErr   error
		txErr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		holdings, balErr = s.fetcher.FetchTokenAccounts(ctx, address)
	}()
	go func() {
		defer wg.Done()
		txs, txErr = s.fetcher.FetchRecentTransactions(ctx, address, s.txLimit)
	}()
	wg.Wait()

	s.report(balErr)
	s.report(txErr)

	var warnings []string
	if balErr != nil {
		s.logger.Warn().Err(balErr).Str("wallet", address).Msg("Failed to fetch wallet balance")
		warnings = append(warnings, "balance unavailable: "+balErr.Error())
		holdings = nil
	}
	if txErr != nil {
		s.logger.Warn().Err(txErr).Str("wallet", address).Msg("Failed to fetch transactions")
		warnings = append(warnings, "transactions unavailable: "+txErr.Error())
		txs = nil
	}
	if len(txs) > s.txLimit {
		txs = txs[:s.txLimit]
	}

	obs, err := model.NewWalletObservation(address, len(holdings), len(txs))
	if err != nil {
		return ScanResult{}, err
	}

	result := ScanResult{
		WalletObservation:  obs,
		IsWhale:            obs.TokensHeld >= s.whaleThreshold,
		TopTokens:          topTokens(holdings),
		RecentTransactions: txs,
		Warnings:           warnings,
	}
	if result.RecentTransactions == nil {
		result.RecentTransactions = []collector.TransactionSignature{}
	}

	s.logger.Info().
		Str("wallet", address).
		Int("tokens", obs.TokensHeld).
		Int("transactions", obs.TransactionCount).
		Str("activity", string(obs.ActivityType)).
		Str("behavior", string(obs.BehaviorType)).
		Bool("whale", result.IsWhale).
		Msg("Analysis completed")
	return result, nil
}

func (s *Scanner) report(err error) {
	if s.health != nil {
		s.health.RecordResult("solana_rpc", err)
	}
}

// topTokens largest balances first
func topTokens(holdings []collector.TokenHolding) []collector.TokenHolding {
	out := make([]collector.TokenHolding, len(holdings))
	copy(out, holdings)
	sort.SliceStable(out, func(i, j int) bool { return out[i].UIAmount > out[j].UIAmount })
	if len(out) > maxTopTokens {
		out = out[:maxTopTokens]
	}
	return out
}
