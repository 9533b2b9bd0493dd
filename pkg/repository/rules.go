package repository

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"SignalForge/pkg/model"
)

// seedFile layout of a pattern seed file
type seedFile struct {
	Patterns []model.PatternRule `yaml:"patterns"`
}

// LoadSeedPatterns reads predefined custom patterns from a YAML file
func LoadSeedPatterns(path string) ([]model.PatternRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed patterns: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed patterns %s: %w", path, err)
	}
	return seed.Patterns, nil
}

// Seed adds every rule the store does not hold yet and returns how many were
// added. Invalid rules are logged and skipped.
func Seed(ctx context.Context, store PatternStore, rules []model.PatternRule) (int, error) {
	logger := log.With().Str("component", "pattern_seed").Logger()

	added := 0
	for _, rule := range rules {
		err := store.Add(ctx, rule)
		switch {
		case err == nil:
			added++
		case errors.Is(err, model.ErrPatternExists):
		case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrInvalidCondition):
			logger.Warn().Err(err).Str("pattern", rule.Name).Msg("Skipping invalid seed pattern")
		default:
			return added, err
		}
	}
	if added > 0 {
		logger.Info().Int("added", added).Msg("Seed patterns stored")
	}
	return added, nil
}
