package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"SignalForge/pkg/model"
)

// Default config locations, relative to the working directory
const (
	DefaultBasePath     = "configs/base_config.yaml"
	DefaultStrategyPath = "configs/strategy_aggressive.yaml"
)

// Config application configuration
type Config struct {
	CoinGeckoAPI string `yaml:"coingecko_api"`
	RPCURL       string `yaml:"rpc_url"`
	LogLevel     string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`

	Server struct {
		Port         string        `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	PatternRules struct {
		WhaleTokens      int `yaml:"whale_tokens"`
		DormantThreshold int `yaml:"dormant_threshold"`
	} `yaml:"pattern_rules"`

	RiskWeights struct {
		Activity   map[string]float64 `yaml:"activity"` // activity label -> weight
		Pattern    float64            `yaml:"pattern"`
		WhaleBonus float64            `yaml:"whale_bonus"`
	} `yaml:"risk_weights"`

	AI struct {
		Enabled     bool          `yaml:"enabled"`
		APIKey      string        `yaml:"api_key"`
		BaseURL     string        `yaml:"base_url"`
		Model       string        `yaml:"model"`
		Temperature float32       `yaml:"temperature"`
		MaxTokens   int           `yaml:"max_tokens"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"ai"`

	Storage struct {
		Patterns    string `yaml:"patterns"` // file or database
		PatternFile string `yaml:"pattern_file"`
		SeedFile    string `yaml:"seed_file"` // optional YAML of patterns added on startup
		SignalsDir  string `yaml:"signals_dir"`
		ReportsDir  string `yaml:"reports_dir"`
	} `yaml:"storage"`

	Database struct {
		Driver string `yaml:"driver"` // postgres or sqlite; empty disables
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	NATS struct {
		URL    string `yaml:"url"` // empty disables
		Stream string `yaml:"stream"`
	} `yaml:"nats"`

	Webhooks struct {
		Discord        string `yaml:"discord"`
		TelegramToken  string `yaml:"telegram_token"`
		TelegramChatID int64  `yaml:"telegram_chat_id"`
		Custom         string `yaml:"custom"`
	} `yaml:"webhooks"`

	Scheduler struct {
		Enabled   bool     `yaml:"enabled"`
		Spec      string   `yaml:"spec"`
		Watchlist []string `yaml:"watchlist"`
	} `yaml:"scheduler"`

	Collector struct {
		RequestsPerSec   float64       `yaml:"requests_per_sec"`
		Timeout          time.Duration `yaml:"timeout"`
		TransactionLimit int           `yaml:"transaction_limit"`
		MaxRetries       int           `yaml:"max_retries"`
	} `yaml:"collector"`
}

// Default configuration used under any values the files supply
func Default() *Config {
	cfg := &Config{
		CoinGeckoAPI: "https://api.coingecko.com/api/v3",
		RPCURL:       "https://api.mainnet-beta.solana.com",
		LogLevel:     "info",
		LogFile:      "logs/signalforge.log",
	}
	cfg.Server.Port = "8000"
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second

	cfg.PatternRules.WhaleTokens = model.DefaultWhaleTokenThreshold
	cfg.PatternRules.DormantThreshold = model.DefaultDormantAwakeningThreshold

	cfg.RiskWeights.Activity = map[string]float64{}
	cfg.RiskWeights.Pattern = model.DefaultPatternRiskWeight
	cfg.RiskWeights.WhaleBonus = model.DefaultWhaleRiskBonus

	cfg.AI.Model = "gpt-3.5-turbo"
	cfg.AI.Temperature = 0.4
	cfg.AI.MaxTokens = 200
	cfg.AI.Timeout = 15 * time.Second

	cfg.Storage.Patterns = "file"
	cfg.Storage.PatternFile = "assets/pattern_memory.json"
	cfg.Storage.SignalsDir = "outputs/signals"
	cfg.Storage.ReportsDir = "outputs/reports"

	cfg.NATS.Stream = "SIGNALS"

	cfg.Scheduler.Spec = "@every 30m"

	cfg.Collector.RequestsPerSec = 5
	cfg.Collector.Timeout = 10 * time.Second
	cfg.Collector.TransactionLimit = 20
	cfg.Collector.MaxRetries = 2
	return cfg
}

// Load merges the strategy overlay over the base file, then applies .env and
// environment overrides. A missing file counts as empty; both empty is an error.
func Load(basePath, strategyPath string) (*Config, error) {
	_ = godotenv.Load()

	base, err := readYAML(basePath)
	if err != nil {
		return nil, err
	}
	overlay, err := readYAML(strategyPath)
	if err != nil {
		return nil, err
	}
	if len(base) == 0 && len(overlay) == 0 {
		return nil, fmt.Errorf("no configuration loaded from %s or %s", basePath, strategyPath)
	}
	if len(base) == 0 {
		log.Warn().Str("path", basePath).Msg("Base config missing, using strategy config only")
	}

	merged := mergeMaps(base, overlay)
	data, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode merged config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	overrideFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info().Str("base", basePath).Str("strategy", strategyPath).Msg("Configuration loaded and merged")
	return cfg, nil
}

func readYAML(path string) (map[string]interface{}, error) {
	if path == "" {
		return map[string]interface{}{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("Config file not found")
		return map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	out := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := canonicalActivityKeys(out); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return out, nil
}

// canonicalActivityKeys rewrites risk_weights.activity labels to their full
// form so base and overlay aliases of one bucket merge as the same key.
// Unknown labels are kept for Validate to report.
func canonicalActivityKeys(doc map[string]interface{}) error {
	weights, ok := doc["risk_weights"].(map[string]interface{})
	if !ok {
		return nil
	}
	activity, ok := weights["activity"].(map[string]interface{})
	if !ok {
		return nil
	}

	out := make(map[string]interface{}, len(activity))
	seen := make(map[string]string, len(activity))
	for label, weight := range activity {
		key := label
		if a, err := model.ParseActivityType(label); err == nil {
			key = string(a)
		}
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("risk_weights.activity: %q and %q both set %s", prev, label, key)
		}
		seen[key] = label
		out[key] = weight
	}
	weights["activity"] = out
	return nil
}

// mergeMaps nested maps merge key by key; any other overlay value replaces the base value
func mergeMaps(base, overlay map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		bm, bok := out[k].(map[string]interface{})
		om, ook := v.(map[string]interface{})
		if bok && ook {
			out[k] = mergeMaps(bm, om)
			continue
		}
		out[k] = v
	}
	return out
}

// overrideFromEnv environment variables win over files
func overrideFromEnv(cfg *Config) {
	if env := os.Getenv("SIGNALFORGE_PORT"); env != "" {
		cfg.Server.Port = env
	}
	if env := os.Getenv("RPC_URL"); env != "" {
		cfg.RPCURL = env
	}
	if env := os.Getenv("COINGECKO_API"); env != "" {
		cfg.CoinGeckoAPI = env
	}
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		cfg.LogLevel = env
	}

	if env := os.Getenv("OPENAI_API_KEY"); env != "" {
		cfg.AI.APIKey = env
	}
	if env := os.Getenv("OPENAI_BASE_URL"); env != "" {
		cfg.AI.BaseURL = env
	}
	if env := os.Getenv("OPENAI_MODEL"); env != "" {
		cfg.AI.Model = env
	}

	if env := os.Getenv("DB_DRIVER"); env != "" {
		cfg.Database.Driver = env
	}
	if env := os.Getenv("DB_DSN"); env != "" {
		cfg.Database.DSN = env
	}

	if env := os.Getenv("NATS_URL"); env != "" {
		cfg.NATS.URL = env
	}

	if env := os.Getenv("DISCORD_WEBHOOK_URL"); env != "" {
		cfg.Webhooks.Discord = env
	}
	if env := os.Getenv("TELEGRAM_BOT_TOKEN"); env != "" {
		cfg.Webhooks.TelegramToken = env
	}
	if env := os.Getenv("TELEGRAM_CHAT_ID"); env != "" {
		if id, err := strconv.ParseInt(env, 10, 64); err == nil {
			cfg.Webhooks.TelegramChatID = id
		} else {
			log.Warn().Str("value", env).Msg("Ignoring invalid TELEGRAM_CHAT_ID")
		}
	}
	if env := os.Getenv("CUSTOM_WEBHOOK_URL"); env != "" {
		cfg.Webhooks.Custom = env
	}
}

// Validate checks value ranges and the rule weights
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Storage.Patterns != "file" && c.Storage.Patterns != "database" {
		return fmt.Errorf("storage.patterns must be file or database, got %q", c.Storage.Patterns)
	}
	if c.Storage.Patterns == "database" && c.Database.Driver == "" {
		return fmt.Errorf("storage.patterns=database requires database.driver")
	}
	switch c.Database.Driver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Collector.TransactionLimit < 1 {
		return fmt.Errorf("collector.transaction_limit must be at least 1")
	}
	if c.Collector.RequestsPerSec <= 0 {
		return fmt.Errorf("collector.requests_per_sec must be positive")
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	return nil
}

// Rules builds the read-only rule configuration for the engine
func (c *Config) Rules() (model.RuleConfiguration, error) {
	rules := model.DefaultRuleConfiguration()

	if c.PatternRules.WhaleTokens < 0 || c.PatternRules.DormantThreshold < 0 {
		return rules, fmt.Errorf("pattern_rules thresholds must be non-negative")
	}
	rules.WhaleTokenThreshold = c.PatternRules.WhaleTokens
	rules.DormantAwakeningThreshold = c.PatternRules.DormantThreshold

	if c.RiskWeights.Pattern < 0 || c.RiskWeights.WhaleBonus < 0 {
		return rules, fmt.Errorf("risk_weights must be non-negative")
	}
	rules.PatternRiskWeight = c.RiskWeights.Pattern
	rules.WhaleRiskBonus = c.RiskWeights.WhaleBonus

	seen := make(map[model.ActivityType]string, len(c.RiskWeights.Activity))
	for label, weight := range c.RiskWeights.Activity {
		activity, err := model.ParseActivityType(label)
		if err != nil {
			return rules, fmt.Errorf("risk_weights.activity: %w", err)
		}
		if prev, dup := seen[activity]; dup {
			return rules, fmt.Errorf("risk_weights.activity: %q and %q both set %s", prev, label, activity)
		}
		seen[activity] = label
		if weight < 0 {
			return rules, fmt.Errorf("risk_weights.activity[%s] must be non-negative", label)
		}
		rules.ActivityRiskWeights[activity] = weight
	}
	return rules, nil
}

// MaskedAPIKey returns the key with most characters hidden for logging
func (c *Config) MaskedAPIKey() string {
	return maskSecret(c.AI.APIKey)
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
