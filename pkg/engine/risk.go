package engine

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/model"
)

// MaxRiskScore upper bound of every score
const MaxRiskScore = 10.0

// emptyWalletPenalty subtracted after all additive terms
const emptyWalletPenalty = 1.0

// RiskScorer weighted aggregate of activity, pattern count and whale bonus
type RiskScorer struct {
	cfg    model.RuleConfiguration
	logger zerolog.Logger
}

// NewRiskScorer creates a scorer with its own copy of cfg
func NewRiskScorer(cfg model.RuleConfiguration) *RiskScorer {
	return &RiskScorer{
		cfg:    cfg.Clone(),
		logger: log.With().Str("component", "risk_scorer").Logger(),
	}
}

// Score returns a value in [0, 10] rounded to two decimals
func (s *RiskScorer) Score(obs model.WalletObservation, patterns []model.Pattern) float64 {
	activity := s.cfg.ActivityWeight(obs.ActivityType)
	score := activity
	s.logger.Debug().Str("activity", string(obs.ActivityType)).Float64("weight", activity).Msg("Activity score")

	patternScore := float64(len(patterns)) * s.cfg.PatternRiskWeight
	score += patternScore
	s.logger.Debug().Int("patterns", len(patterns)).Float64("weight", patternScore).Msg("Pattern score")

	if obs.TokensHeld >= s.cfg.WhaleTokenThreshold {
		score += s.cfg.WhaleRiskBonus
		s.logger.Debug().Int("tokens", obs.TokensHeld).Float64("bonus", s.cfg.WhaleRiskBonus).Msg("Whale threshold reached")
	}

	if obs.IsEmpty() {
		score = math.Max(score-emptyWalletPenalty, 0)
		s.logger.Debug().Msg("Empty wallet penalty applied")
	}

	final := math.Min(round2(math.Max(score, 0)), MaxRiskScore)
	s.logger.Info().Str("wallet", obs.Address).Float64("risk_score", final).Msg("Risk score calculated")
	return final
}

// round2 rounds half away from zero to two decimals
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
