package engine

import (
	"context"
	"fmt"
	"time"

	"SignalForge/pkg/model"
)

// Pipeline observation -> patterns -> {signal, risk score}
type Pipeline struct {
	cfg     model.RuleConfiguration
	matcher *PatternMatcher
	scorer  *RiskScorer
	builder *SignalBuilder
}

// Option configures a Pipeline
type Option func(*pipelineOptions)

type pipelineOptions struct {
	annotator Annotator
	timeout   time.Duration
	custom    []model.PatternRule
}

// WithAnnotator attaches the optional annotation collaborator
func WithAnnotator(a Annotator) Option {
	return func(o *pipelineOptions) { o.annotator = a }
}

// WithAnnotationTimeout overrides DefaultAnnotationTimeout
func WithAnnotationTimeout(d time.Duration) Option {
	return func(o *pipelineOptions) { o.timeout = d }
}

// WithCustomRules adds stored rules after the built-in ones
func WithCustomRules(rules []model.PatternRule) Option {
	return func(o *pipelineOptions) { o.custom = rules }
}

// NewPipeline creates a pipeline over a private copy of cfg
func NewPipeline(cfg model.RuleConfiguration, opts ...Option) *Pipeline {
	var o pipelineOptions
	for _, opt := range opts {
		opt(&o)
	}
	cfg = cfg.Clone()
	return &Pipeline{
		cfg:     cfg,
		matcher: NewPatternMatcher(cfg, o.custom),
		scorer:  NewRiskScorer(cfg),
		builder: NewSignalBuilder(o.annotator, o.timeout),
	}
}

// Rules copy of the rule configuration in use
func (p *Pipeline) Rules() model.RuleConfiguration {
	return p.cfg.Clone()
}

// ReloadRules swaps the custom rule set; safe during concurrent evaluations
func (p *Pipeline) ReloadRules(rules []model.PatternRule) {
	p.matcher.ReloadRules(rules)
}

// Detect runs only the pattern stage
func (p *Pipeline) Detect(obs model.WalletObservation) ([]model.Pattern, error) {
	if err := obs.Validate(); err != nil {
		return nil, err
	}
	return p.matcher.Detect(obs), nil
}

// Evaluate returns the merged signal and the patterns behind it.
// The only error is model.ErrInvalidInput.
func (p *Pipeline) Evaluate(ctx context.Context, obs model.WalletObservation) (model.Signal, []model.Pattern, error) {
	if err := obs.Validate(); err != nil {
		return model.Signal{}, nil, fmt.Errorf("evaluate: %w", err)
	}

	patterns := p.matcher.Detect(obs)
	signal := p.builder.Build(ctx, obs, patterns)
	signal.RiskScore = p.scorer.Score(obs, patterns)
	return signal, patterns, nil
}
