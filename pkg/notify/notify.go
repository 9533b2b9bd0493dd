package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/model"
)

// Channel one delivery target
type Channel interface {
	Name() string
	Send(ctx context.Context, signal model.Signal) error
}

// Notifier delivers every signal to each configured channel
type Notifier struct {
	channels []Channel
	logger   zerolog.Logger
}

// New nil channels are skipped
func New(channels ...Channel) *Notifier {
	n := &Notifier{logger: log.With().Str("component", "notifier").Logger()}
	for _, c := range channels {
		if c != nil {
			n.channels = append(n.channels, c)
		}
	}
	return n
}

// Enabled reports whether any channel is configured
func (n *Notifier) Enabled() bool {
	return len(n.channels) > 0
}

// Channels names of the configured channels
func (n *Notifier) Channels() []string {
	names := make([]string, 0, len(n.channels))
	for _, c := range n.channels {
		names = append(names, c.Name())
	}
	return names
}

// Notify tries every channel; one failing channel does not stop the others
func (n *Notifier) Notify(ctx context.Context, signal model.Signal) error {
	var errs []error
	for _, c := range n.channels {
		if err := c.Send(ctx, signal); err != nil {
			n.logger.Error().Err(err).Str("channel", c.Name()).Msg("Failed to deliver signal")
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
			continue
		}
		n.logger.Info().Str("channel", c.Name()).Str("wallet", signal.Address).Msg("Signal delivered")
	}
	return errors.Join(errs...)
}

func formatConfidence(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// messageBody lines shared by the chat channels
func messageBody(signal model.Signal) string {
	return fmt.Sprintf("Wallet: `%s`\nReason: %s\nConfidence: %s",
		signal.Address, signal.Reason, formatConfidence(signal.Confidence))
}
