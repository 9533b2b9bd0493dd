package engine

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/model"
)

// PatternMatcher evaluates built-in then custom rules against an observation
type PatternMatcher struct {
	mu      sync.RWMutex
	builtIn []Rule
	custom  []Rule
	logger  zerolog.Logger
}

// NewPatternMatcher creates a matcher; invalid custom rules are logged and skipped
func NewPatternMatcher(cfg model.RuleConfiguration, custom []model.PatternRule) *PatternMatcher {
	m := &PatternMatcher{
		builtIn: BuiltInRules(cfg),
		logger:  log.With().Str("component", "pattern_matcher").Logger(),
	}
	m.ReloadRules(custom)
	return m
}

// ReloadRules replaces the custom rule set
func (m *PatternMatcher) ReloadRules(custom []model.PatternRule) {
	compiled := make([]Rule, 0, len(custom))
	for _, r := range custom {
		rule, err := CompileRule(r)
		if err != nil {
			m.logger.Warn().Err(err).Str("pattern", r.Name).Msg("Skipping invalid custom pattern")
			continue
		}
		compiled = append(compiled, rule)
	}

	m.mu.Lock()
	m.custom = compiled
	m.mu.Unlock()

	m.logger.Debug().Int("custom_rules", len(compiled)).Msg("Custom patterns loaded")
}

// CustomRuleCount number of compiled custom rules
func (m *PatternMatcher) CustomRuleCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.custom)
}

// Detect returns matches in rule order; every rule is evaluated
func (m *PatternMatcher) Detect(obs model.WalletObservation) []model.Pattern {
	m.mu.RLock()
	custom := m.custom
	m.mu.RUnlock()

	patterns := make([]model.Pattern, 0)
	for _, rules := range [][]Rule{m.builtIn, custom} {
		for _, rule := range rules {
			if rule.Match(obs) {
				patterns = append(patterns, model.Pattern{Name: rule.Name, Description: rule.Description})
			}
		}
	}

	m.logger.Info().
		Str("wallet", obs.Address).
		Int("patterns", len(patterns)).
		Msgf("Detected %d pattern(s)", len(patterns))
	return patterns
}
