package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/model"
)

// ruleReloadSpec how often stored rules are re-read
const ruleReloadSpec = "@every 5m"

// Analyzer the part of the service the scheduler drives
type Analyzer interface {
	Analyze(ctx context.Context, address string, deliver bool) (model.Analysis, error)
	ReloadRules(ctx context.Context) error
}

// Scheduler periodic watchlist evaluation and rule reload
type Scheduler struct {
	cron      *cron.Cron
	analyzer  Analyzer
	spec      string
	watchlist []string
	timeout   time.Duration
	running   sync.Mutex
	logger    zerolog.Logger
}

// NewScheduler spec is a cron expression or descriptor such as "@every 30m"
func NewScheduler(analyzer Analyzer, spec string, watchlist []string) *Scheduler {
	wallets := make([]string, 0, len(watchlist))
	for _, w := range watchlist {
		if w = strings.TrimSpace(w); w != "" {
			wallets = append(wallets, w)
		}
	}
	logger := log.With().Str("component", "scheduler").Logger()
	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.Recover(cronLogger{logger}))),
		analyzer:  analyzer,
		spec:      spec,
		watchlist: wallets,
		timeout:   2 * time.Minute,
		logger:    logger,
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if len(s.watchlist) > 0 {
		if _, err := s.cron.AddFunc(s.spec, s.scanWatchlist); err != nil {
			return fmt.Errorf("schedule watchlist %q: %w", s.spec, err)
		}
	}
	if _, err := s.cron.AddFunc(ruleReloadSpec, s.reloadRules); err != nil {
		return fmt.Errorf("schedule rule reload: %w", err)
	}

	s.cron.Start()
	s.logger.Info().Str("spec", s.spec).Int("wallets", len(s.watchlist)).Msg("Scheduler started")
	return nil
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// RunOnce evaluates the watchlist immediately
func (s *Scheduler) RunOnce() {
	s.scanWatchlist()
}

func (s *Scheduler) scanWatchlist() {
	// skip a tick while the previous scan is still running
	if !s.running.TryLock() {
		s.logger.Warn().Msg("Previous watchlist scan still running, skipping")
		return
	}
	defer s.running.Unlock()

	for _, wallet := range s.watchlist {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		a, err := s.analyzer.Analyze(ctx, wallet, true)
		cancel()
		if err != nil {
			s.logger.Error().Err(err).Str("wallet", wallet).Msg("Scheduled scan failed")
			continue
		}
		s.logger.Info().
			Str("wallet", wallet).
			Str("recommendation", string(a.Signal.Recommendation)).
			Msg("Scheduled scan completed")
	}
}

func (s *Scheduler) reloadRules() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.analyzer.ReloadRules(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to reload rules")
	}
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
