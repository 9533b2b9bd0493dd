package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/model"
)

// PatternStore custom pattern storage; names are unique ignoring case
type PatternStore interface {
	Add(ctx context.Context, rule model.PatternRule) error
	List(ctx context.Context) ([]model.PatternRule, error)
	Delete(ctx context.Context, name string) error
	Clear(ctx context.Context) error
}

// FilePatternStore keeps patterns in memory and mirrors them to a JSON file
type FilePatternStore struct {
	path     string
	patterns []model.PatternRule
	mutex    sync.RWMutex
	logger   zerolog.Logger
}

// NewFilePatternStore loads path if it exists; a missing file starts empty
func NewFilePatternStore(path string) (*FilePatternStore, error) {
	s := &FilePatternStore{
		path:     path,
		patterns: make([]model.PatternRule, 0),
		logger:   log.With().Str("component", "pattern_store").Logger(),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create pattern directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Str("path", path).Msg("Pattern memory not found, starting empty")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pattern memory: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.patterns); err != nil {
		return nil, fmt.Errorf("parse pattern memory %s: %w", path, err)
	}

	s.logger.Info().Int("patterns", len(s.patterns)).Msg("Pattern memory loaded")
	return s, nil
}

// Add validates and stores a new pattern
func (s *FilePatternStore) Add(_ context.Context, rule model.PatternRule) error {
	normalized, err := NormalizeRule(rule)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if indexOf(s.patterns, normalized.Name) >= 0 {
		return fmt.Errorf("%w: %s", model.ErrPatternExists, normalized.Name)
	}

	next := append(clonePatterns(s.patterns), normalized)
	if err := s.save(next); err != nil {
		return err
	}
	s.patterns = next

	s.logger.Info().Str("pattern", normalized.Name).Msg("Added new pattern")
	return nil
}

// List returns a copy in insertion order
func (s *FilePatternStore) List(_ context.Context) ([]model.PatternRule, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return clonePatterns(s.patterns), nil
}

// Delete removes a pattern by name, ignoring case
func (s *FilePatternStore) Delete(_ context.Context, name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	idx := indexOf(s.patterns, name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", model.ErrPatternNotFound, name)
	}

	next := clonePatterns(s.patterns)
	next = append(next[:idx], next[idx+1:]...)
	if err := s.save(next); err != nil {
		return err
	}
	s.patterns = next

	s.logger.Info().Str("pattern", name).Msg("Deleted pattern")
	return nil
}

// Clear removes every pattern
func (s *FilePatternStore) Clear(_ context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	empty := make([]model.PatternRule, 0)
	if err := s.save(empty); err != nil {
		return err
	}
	s.patterns = empty

	s.logger.Info().Msg("Pattern memory cleared")
	return nil
}

// save writes through a temp file so a crash never leaves a partial file
func (s *FilePatternStore) save(patterns []model.PatternRule) error {
	data, err := json.MarshalIndent(patterns, "", "    ")
	if err != nil {
		return fmt.Errorf("encode pattern memory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write pattern memory: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace pattern memory: %w", err)
	}
	return nil
}

// NormalizeRule validates a rule and stores conditions in canonical form
func NormalizeRule(rule model.PatternRule) (model.PatternRule, error) {
	rule.Name = strings.TrimSpace(rule.Name)
	rule.Description = strings.TrimSpace(rule.Description)
	if err := rule.Validate(); err != nil {
		return model.PatternRule{}, err
	}

	conds := make(model.Conditions, 0, len(rule.Conditions))
	for _, c := range rule.Conditions {
		n, err := c.Normalize()
		if err != nil {
			return model.PatternRule{}, err
		}
		conds = append(conds, n)
	}
	rule.Conditions = conds
	return rule, nil
}

func indexOf(patterns []model.PatternRule, name string) int {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, p := range patterns {
		if strings.ToLower(p.Name) == key {
			return i
		}
	}
	return -1
}

func clonePatterns(in []model.PatternRule) []model.PatternRule {
	out := make([]model.PatternRule, len(in))
	copy(out, in)
	return out
}
