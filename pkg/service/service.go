package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/collector"
	"SignalForge/pkg/engine"
	"SignalForge/pkg/model"
	"SignalForge/pkg/repository"
	"SignalForge/pkg/scanner"
)

// ErrHistoryDisabled no signal store is configured
var ErrHistoryDisabled = errors.New("signal history requires a database")

// WalletScanner builds observations from a wallet address
type WalletScanner interface {
	Scan(ctx context.Context, address string) (scanner.ScanResult, error)
}

// SignalStore persisted signal history
type SignalStore interface {
	Save(ctx context.Context, analysis model.Analysis) (*model.SignalRecord, error)
	List(ctx context.Context, address string, limit int) ([]model.SignalRecord, error)
}

// Publisher message bus output
type Publisher interface {
	PublishSignal(ctx context.Context, analysis model.Analysis) error
}

// Exporter file output, returns the written path
type Exporter interface {
	Export(analysis model.Analysis) (string, error)
}

// ReportWriter Markdown output, returns the written path
type ReportWriter interface {
	Write(analysis model.Analysis) (string, error)
}

// Notifier webhook and chat output
type Notifier interface {
	Notify(ctx context.Context, signal model.Signal) error
}

// Options collaborators of the service. Scanner, Pipeline and Patterns are
// required; every output is optional.
type Options struct {
	Scanner  WalletScanner
	Pipeline *engine.Pipeline
	Patterns repository.PatternStore
	Prices   collector.PriceFetcher

	Exporter Exporter
	Reports  ReportWriter
	Signals  SignalStore
	Bus      Publisher
	Notifier Notifier
	Health   scanner.HealthReporter
}

// Service ties scanning, evaluation, rule training and outputs together
type Service struct {
	opts   Options
	now    func() time.Time
	logger zerolog.Logger
}

// New loads the stored custom rules into the pipeline
func New(ctx context.Context, opts Options) (*Service, error) {
	if opts.Scanner == nil || opts.Pipeline == nil || opts.Patterns == nil {
		return nil, errors.New("service: scanner, pipeline and pattern store are required")
	}
	s := &Service{
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.With().Str("component", "service").Logger(),
	}
	if err := s.ReloadRules(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Scan observation, raw wallet data and matched patterns; no risk score or signal
func (s *Service) Scan(ctx context.Context, address string) (scanner.ScanResult, error) {
	result, err := s.opts.Scanner.Scan(ctx, address)
	if err != nil {
		return result, err
	}
	patterns, err := s.opts.Pipeline.Detect(result.WalletObservation)
	if err != nil {
		return result, fmt.Errorf("detect patterns: %w", err)
	}
	if patterns == nil {
		patterns = []model.Pattern{}
	}
	result.Patterns = patterns
	return result, nil
}

// Analyze scans a wallet, evaluates it and, when deliver is set, hands the
// result to every configured output. Output failures are logged only.
func (s *Service) Analyze(ctx context.Context, address string, deliver bool) (model.Analysis, error) {
	result, err := s.opts.Scanner.Scan(ctx, address)
	if err != nil {
		return model.Analysis{}, err
	}

	analysis, err := s.evaluate(ctx, result.WalletObservation)
	if err != nil {
		return model.Analysis{}, err
	}

	s.logger.Info().
		Str("wallet", analysis.Signal.Address).
		Str("recommendation", string(analysis.Signal.Recommendation)).
		Float64("confidence", analysis.Signal.Confidence).
		Float64("risk", analysis.Signal.RiskScore).
		Msg("Signal generated")

	if deliver {
		s.deliver(ctx, analysis)
	}
	return analysis, nil
}

// EvaluateObservation evaluates caller-supplied counts without network access
// or outputs
func (s *Service) EvaluateObservation(ctx context.Context, address string, tokensHeld, transactionCount int) (model.Analysis, error) {
	obs, err := model.NewWalletObservation(address, tokensHeld, transactionCount)
	if err != nil {
		return model.Analysis{}, err
	}
	return s.evaluate(ctx, obs)
}

func (s *Service) evaluate(ctx context.Context, obs model.WalletObservation) (model.Analysis, error) {
	signal, patterns, err := s.opts.Pipeline.Evaluate(ctx, obs)
	if err != nil {
		return model.Analysis{}, err
	}
	return model.Analysis{
		Observation: obs,
		Patterns:    patterns,
		Signal:      signal,
		GeneratedAt: s.now(),
	}, nil
}

func (s *Service) deliver(ctx context.Context, analysis model.Analysis) {
	wallet := analysis.Signal.Address

	if s.opts.Exporter != nil {
		if _, err := s.opts.Exporter.Export(analysis); err != nil {
			s.logger.Error().Err(err).Str("wallet", wallet).Msg("Failed to export signal")
		}
	}
	if s.opts.Reports != nil {
		if _, err := s.opts.Reports.Write(analysis); err != nil {
			s.logger.Error().Err(err).Str("wallet", wallet).Msg("Failed to write report")
		}
	}
	if s.opts.Signals != nil {
		_, err := s.opts.Signals.Save(ctx, analysis)
		s.record("database", err)
		if err != nil {
			s.logger.Error().Err(err).Str("wallet", wallet).Msg("Failed to store signal")
		}
	}
	if s.opts.Bus != nil {
		err := s.opts.Bus.PublishSignal(ctx, analysis)
		s.record("nats", err)
		if err != nil {
			s.logger.Error().Err(err).Str("wallet", wallet).Msg("Failed to publish signal")
		}
	}
	if s.opts.Notifier != nil {
		err := s.opts.Notifier.Notify(ctx, analysis.Signal)
		s.record("notifier", err)
		if err != nil {
			s.logger.Warn().Err(err).Str("wallet", wallet).Msg("Signal delivery incomplete")
		}
	}
}

func (s *Service) record(component string, err error) {
	if s.opts.Health != nil {
		s.opts.Health.RecordResult(component, err)
	}
}

// Train stores a custom rule and makes it live for the next evaluation
func (s *Service) Train(ctx context.Context, rule model.PatternRule) error {
	if err := s.opts.Patterns.Add(ctx, rule); err != nil {
		return err
	}
	return s.ReloadRules(ctx)
}

// Patterns stored custom rules in storage order
func (s *Service) Patterns(ctx context.Context) ([]model.PatternRule, error) {
	return s.opts.Patterns.List(ctx)
}

// DeletePattern removes a custom rule by name, ignoring case
func (s *Service) DeletePattern(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: pattern name is required", model.ErrInvalidInput)
	}
	if err := s.opts.Patterns.Delete(ctx, name); err != nil {
		return err
	}
	return s.ReloadRules(ctx)
}

// ClearPatterns removes every custom rule
func (s *Service) ClearPatterns(ctx context.Context) error {
	if err := s.opts.Patterns.Clear(ctx); err != nil {
		return err
	}
	return s.ReloadRules(ctx)
}

// ReloadRules pushes the stored rules into the pipeline
func (s *Service) ReloadRules(ctx context.Context) error {
	rules, err := s.opts.Patterns.List(ctx)
	if err != nil {
		return fmt.Errorf("load custom patterns: %w", err)
	}
	s.opts.Pipeline.ReloadRules(rules)
	s.logger.Debug().Int("custom", len(rules)).Msg("Rules reloaded")
	return nil
}

// Price USD spot price of a token id
func (s *Service) Price(ctx context.Context, tokenID string) (float64, error) {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return 0, fmt.Errorf("%w: token id is required", model.ErrInvalidInput)
	}
	if s.opts.Prices == nil {
		return 0, errors.New("price feed not configured")
	}
	price, err := s.opts.Prices.FetchTokenPrice(ctx, tokenID)
	s.record("price_feed", ignoreNotFound(err))
	return price, err
}

func ignoreNotFound(err error) error {
	if errors.Is(err, collector.ErrPriceNotFound) {
		return nil
	}
	return err
}

// History stored signals, newest first; empty address lists all wallets
func (s *Service) History(ctx context.Context, address string, limit int) ([]model.SignalRecord, error) {
	if s.opts.Signals == nil {
		return nil, ErrHistoryDisabled
	}
	return s.opts.Signals.List(ctx, strings.TrimSpace(address), limit)
}

// Rules rule configuration the pipeline evaluates with
func (s *Service) Rules() model.RuleConfiguration {
	return s.opts.Pipeline.Rules()
}
