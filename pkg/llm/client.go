package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"SignalForge/pkg/model"
)

const systemPrompt = "You are an expert crypto trading analyst. Keep responses short, clear, and realistic."

// Options for the chat completion client
type Options struct {
	APIKey      string
	BaseURL     string // empty uses the OpenAI default
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// LLMClient text generation client used for signal annotations
type LLMClient struct {
	client *openai.Client
	opts   Options
	logger zerolog.Logger
}

// NewLLMClient requires an API key
func NewLLMClient(opts Options) (*LLMClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%w: api key is not configured", model.ErrAnnotationUnavailable)
	}
	if opts.Model == "" {
		opts.Model = openai.GPT3Dot5Turbo
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	return &LLMClient{
		client: openai.NewClientWithConfig(cfg),
		opts:   opts,
		logger: log.With().Str("component", "llm_client").Logger(),
	}, nil
}

// Chat sends one system and one user message and returns the first choice
func (c *LLMClient) Chat(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	c.logger.Debug().Str("model", c.opts.Model).Msg("Sending prompt")

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Chat completion failed")
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Annotate implements engine.Annotator
func (c *LLMClient) Annotate(ctx context.Context, obs model.WalletObservation, patterns []model.Pattern) (string, error) {
	text, err := c.Chat(ctx, systemPrompt, BuildPrompt(obs, patterns))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrAnnotationUnavailable, err)
	}
	c.logger.Info().Str("wallet", obs.Address).Msg("AI comment generated")
	return text, nil
}

// Ping cheap reachability check against the models endpoint
func (c *LLMClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	_, err := c.client.ListModels(ctx)
	return err
}

// BuildPrompt user prompt describing one evaluation
func BuildPrompt(obs model.WalletObservation, patterns []model.Pattern) string {
	detected := "None"
	if len(patterns) > 0 {
		detected = strings.Join(model.PatternNames(patterns), ", ")
	}

	var sb strings.Builder
	sb.WriteString("Analyze the following wallet behavior:\n")
	sb.WriteString(fmt.Sprintf("Wallet Address: %s\n", obs.Address))
	sb.WriteString(fmt.Sprintf("Tokens Held: %d\n", obs.TokensHeld))
	sb.WriteString(fmt.Sprintf("Transaction Count: %d\n", obs.TransactionCount))
	sb.WriteString(fmt.Sprintf("Activity: %s, Behavior: %s\n", obs.ActivityType, obs.BehaviorType))
	sb.WriteString(fmt.Sprintf("Detected Patterns: %s\n", detected))
	sb.WriteString("Provide a short and realistic comment about this trading behavior.")
	return sb.String()
}
