package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/model"
)

// DefaultStream JetStream stream holding published signals
const DefaultStream = "SIGNALS"

// SignalHandler consumer callback; returning an error naks the message
type SignalHandler func(analysis model.Analysis) error

// NATSClient publishes analyses to JetStream under signals.<recommendation>
type NATSClient struct {
	conn      *nats.Conn
	jetStream jetstream.JetStream
	stream    string
	ctx       context.Context
	cancel    context.CancelFunc
	consumers map[string]jetstream.ConsumeContext
	mu        sync.Mutex
	logger    zerolog.Logger
}

// NewNATSClient connects and ensures the signal stream exists
func NewNATSClient(natsURL, stream string) (*NATSClient, error) {
	if stream == "" {
		stream = DefaultStream
	}
	logger := log.With().Str("component", "nats").Logger()

	nc, err := nats.Connect(natsURL,
		nats.Name("signalforge"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &NATSClient{
		conn:      nc,
		jetStream: js,
		stream:    stream,
		ctx:       ctx,
		cancel:    cancel,
		consumers: make(map[string]jetstream.ConsumeContext),
		logger:    logger,
	}

	if err := client.setupStream(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (c *NATSClient) setupStream() error {
	cfg := jetstream.StreamConfig{
		Name:        c.stream,
		Subjects:    []string{"signals.*"},
		Description: "Wallet signals",
		Retention:   jetstream.LimitsPolicy,
		MaxMsgs:     100000,
		MaxBytes:    100 * 1024 * 1024,
		MaxAge:      7 * 24 * time.Hour,
	}

	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()
	if _, err := c.jetStream.CreateOrUpdateStream(ctx, cfg); err != nil {
		return fmt.Errorf("create stream %s: %w", c.stream, err)
	}
	c.logger.Info().Str("stream", c.stream).Msg("Stream ready")
	return nil
}

// Subject for a recommendation, e.g. signals.buy
func Subject(rec model.Recommendation) string {
	return "signals." + strings.ToLower(string(rec))
}

// PublishSignal publishes one analysis as JSON
func (c *NATSClient) PublishSignal(ctx context.Context, analysis model.Analysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode signal: %w", err)
	}

	subject := Subject(analysis.Signal.Recommendation)
	if _, err := c.jetStream.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	c.logger.Debug().Str("subject", subject).Int("bytes", len(payload)).Msg("Signal published")
	return nil
}

// Subscribe consumes new signals matching filter (e.g. signals.* or signals.buy)
func (c *NATSClient) Subscribe(consumerName, filter string, handler SignalHandler) error {
	consumer, err := c.jetStream.CreateOrUpdateConsumer(c.ctx, c.stream, jetstream.ConsumerConfig{
		Name:          consumerName,
		FilterSubject: filter,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		var analysis model.Analysis
		if err := json.Unmarshal(msg.Data(), &analysis); err != nil {
			c.logger.Error().Err(err).Str("subject", msg.Subject()).Msg("Dropping malformed signal")
			_ = msg.Term()
			return
		}
		if err := handler(analysis); err != nil {
			c.logger.Warn().Err(err).Str("consumer", consumerName).Msg("Signal handler failed")
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", consumerName, err)
	}

	c.mu.Lock()
	c.consumers[consumerName] = consumeCtx
	c.mu.Unlock()

	c.logger.Info().Str("consumer", consumerName).Str("filter", filter).Msg("Subscribed")
	return nil
}

// StreamInfo current stream state
func (c *NATSClient) StreamInfo(ctx context.Context) (*jetstream.StreamInfo, error) {
	stream, err := c.jetStream.Stream(ctx, c.stream)
	if err != nil {
		return nil, fmt.Errorf("lookup stream %s: %w", c.stream, err)
	}
	return stream.Info(ctx)
}

// IsConnected reports the connection state
func (c *NATSClient) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Ping round-trips to the server
func (c *NATSClient) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return errors.New("nats not connected")
	}
	deadline, ok := ctx.Deadline()
	timeout := 2 * time.Second
	if ok {
		timeout = time.Until(deadline)
	}
	return c.conn.FlushTimeout(timeout)
}

// Close stops consumers and drains the connection
func (c *NATSClient) Close() error {
	c.cancel()

	c.mu.Lock()
	for name, cc := range c.consumers {
		cc.Stop()
		delete(c.consumers, name)
	}
	c.mu.Unlock()

	if c.conn != nil {
		if err := c.conn.Drain(); err != nil {
			c.conn.Close()
		}
	}
	return nil
}
