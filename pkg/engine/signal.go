package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/model"
)

// DefaultAnnotationTimeout bound on one annotation call
const DefaultAnnotationTimeout = 15 * time.Second

const (
	defaultConfidence = 0.3
	baseConfidence    = 0.5
	confidenceStep    = 0.1
	maxConfidence     = 0.95
	emptyConfidence   = 0.1
)

// Annotator produces a short free-text comment for an evaluation
type Annotator interface {
	Annotate(ctx context.Context, obs model.WalletObservation, patterns []model.Pattern) (string, error)
}

// AnnotatorFunc adapts a function to Annotator
type AnnotatorFunc func(ctx context.Context, obs model.WalletObservation, patterns []model.Pattern) (string, error)

func (f AnnotatorFunc) Annotate(ctx context.Context, obs model.WalletObservation, patterns []model.Pattern) (string, error) {
	return f(ctx, obs, patterns)
}

// SignalBuilder decides the recommendation and attaches an annotation
type SignalBuilder struct {
	annotator Annotator
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewSignalBuilder annotator may be nil; timeout <= 0 uses DefaultAnnotationTimeout
func NewSignalBuilder(annotator Annotator, timeout time.Duration) *SignalBuilder {
	if timeout <= 0 {
		timeout = DefaultAnnotationTimeout
	}
	return &SignalBuilder{
		annotator: annotator,
		timeout:   timeout,
		logger:    log.With().Str("component", "signal_builder").Logger(),
	}
}

// Build assembles a Signal without a risk score; it never fails
func (b *SignalBuilder) Build(ctx context.Context, obs model.WalletObservation, patterns []model.Pattern) model.Signal {
	signal := model.Signal{
		Address:        obs.Address,
		Recommendation: model.RecommendationHold,
		Confidence:     defaultConfidence,
		Reason:         "No significant patterns detected.",
	}

	if n := len(patterns); n > 0 {
		signal.Recommendation = model.RecommendationBuy
		signal.Confidence = math.Min(baseConfidence+confidenceStep*float64(n), maxConfidence)
		signal.Reason = fmt.Sprintf("%d pattern(s) detected: %s", n, strings.Join(model.PatternNames(patterns), ", "))
	}

	// overrides the BUY branch: an empty wallet always raises "Empty Wallet"
	if obs.IsEmpty() {
		signal.Recommendation = model.RecommendationAvoid
		signal.Confidence = emptyConfidence
		signal.Reason = "Empty wallet detected. No holdings or activity."
	}

	signal.Confidence = round2(signal.Confidence)
	signal.Annotation = b.annotate(ctx, obs, patterns)

	b.logger.Info().
		Str("wallet", signal.Address).
		Str("recommendation", string(signal.Recommendation)).
		Float64("confidence", signal.Confidence).
		Msg("Signal generated")
	return signal
}

type annotation struct {
	text string
	err  error
}

func (b *SignalBuilder) annotate(ctx context.Context, obs model.WalletObservation, patterns []model.Pattern) string {
	if b.annotator == nil {
		return model.AnnotationNotAvailable
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	done := make(chan annotation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- annotation{err: fmt.Errorf("%w: annotator panic: %v", model.ErrAnnotationUnavailable, r)}
			}
		}()
		text, err := b.annotator.Annotate(ctx, obs, patterns)
		done <- annotation{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			b.logger.Warn().Err(res.err).Str("wallet", obs.Address).Msg("Annotation failed")
			return model.AnnotationFailed
		}
		text := strings.TrimSpace(res.text)
		if text == "" {
			return model.AnnotationNotAvailable
		}
		return text
	case <-ctx.Done():
		b.logger.Warn().Err(ctx.Err()).Str("wallet", obs.Address).Msg("Annotation timed out")
		return model.AnnotationFailed
	}
}
