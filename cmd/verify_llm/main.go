package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"SignalForge/pkg/config"
	"SignalForge/pkg/engine"
	"SignalForge/pkg/llm"
	"SignalForge/pkg/logging"
	"SignalForge/pkg/model"
)

// verify_llm checks the annotation backend with a sample wallet
func main() {
	cfg, err := config.Load(envOr("CONFIG_PATH", config.DefaultBasePath), envOr("STRATEGY_PATH", config.DefaultStrategyPath))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	closer, _ := logging.Setup(cfg.LogLevel, "")
	defer closer.Close()

	client, err := llm.NewLLMClient(llm.Options{
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("LLM client not configured")
	}
	log.Info().Str("model", cfg.AI.Model).Str("key", cfg.MaskedAPIKey()).Msg("Verifying LLM access")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Model listing failed, trying a completion anyway")
	}

	obs, err := model.NewWalletObservation("VerifyWallet1111111111111111111111111111111", 24, 3)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid sample observation")
	}
	rules, err := cfg.Rules()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid rule configuration")
	}
	patterns := engine.NewPatternMatcher(rules, nil).Detect(obs)

	fmt.Println("===== Prompt =====")
	fmt.Println(llm.BuildPrompt(obs, patterns))

	text, err := client.Annotate(ctx, obs, patterns)
	if err != nil {
		log.Fatal().Err(err).Msg("Annotation failed")
	}
	fmt.Println("===== Annotation =====")
	fmt.Println(text)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
