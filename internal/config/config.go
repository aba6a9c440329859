package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the persona chat service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	PersonasDir          string
	KnowledgeDir         string
	KnowledgeDatabaseURL string

	LLMProvider         string
	OpenAIAPIKey        string
	OpenAIModel         string
	AnthropicAPIKey     string
	AnthropicModel      string
	LLMHTTPURL          string
	MaxCompletionTokens int

	Paused             bool
	AccessCode         string
	MinSessionInterval time.Duration
	MaxRequestsPer10m  int
	DailyTokenCap      int64

	MaxSessionTurns  int
	MaxResponseWords int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:             envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:     envOrDefault("APP_METRICS_NAMESPACE", "echoroom"),
		AllowAnyOrigin:       false,
		PersonasDir:          envOrDefault("PERSONAS_DIR", "personas"),
		KnowledgeDir:         envOrDefault("KNOWLEDGE_DIR", "knowledge"),
		KnowledgeDatabaseURL: envTrimmed("KNOWLEDGE_DATABASE_URL"),
		LLMProvider:          envOrDefault("LLM_PROVIDER", "auto"),
		OpenAIAPIKey:         envTrimmed("OPENAI_API_KEY"),
		OpenAIModel:          envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicAPIKey:      envTrimmed("ANTHROPIC_API_KEY"),
		AnthropicModel:       envOrDefault("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		LLMHTTPURL:           envTrimmed("LLM_HTTP_URL"),
		MaxCompletionTokens:  350,
		AccessCode:           envTrimmed("APP_ACCESS_CODE"),
		Paused:               false,
		MinSessionInterval:   2 * time.Second,
		MaxRequestsPer10m:    60,
		DailyTokenCap:        200_000,
		MaxSessionTurns:      20,
		MaxResponseWords:     140,
		ShutdownTimeout:      15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MinSessionInterval, err = durationFromEnv("APP_MIN_SESSION_INTERVAL", cfg.MinSessionInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxRequestsPer10m, err = intFromEnv("APP_MAX_REQUESTS_PER_10MIN", cfg.MaxRequestsPer10m)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxCompletionTokens, err = intFromEnv("LLM_MAX_COMPLETION_TOKENS", cfg.MaxCompletionTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxSessionTurns, err = intFromEnv("APP_MAX_SESSION_TURNS", cfg.MaxSessionTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxResponseWords, err = intFromEnv("APP_MAX_RESPONSE_WORDS", cfg.MaxResponseWords)
	if err != nil {
		return Config{}, err
	}
	cfg.DailyTokenCap, err = int64FromEnv("APP_DAILY_TOKEN_CAP", cfg.DailyTokenCap)
	if err != nil {
		return Config{}, err
	}
	cfg.Paused, err = boolFromEnv("APP_PAUSED", cfg.Paused)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.MinSessionInterval < 0 {
		return Config{}, fmt.Errorf("APP_MIN_SESSION_INTERVAL must not be negative")
	}
	if cfg.MaxRequestsPer10m <= 0 {
		return Config{}, fmt.Errorf("APP_MAX_REQUESTS_PER_10MIN must be positive")
	}
	if cfg.DailyTokenCap <= 0 {
		return Config{}, fmt.Errorf("APP_DAILY_TOKEN_CAP must be positive")
	}
	if cfg.MaxSessionTurns <= 0 {
		return Config{}, fmt.Errorf("APP_MAX_SESSION_TURNS must be positive")
	}
	if cfg.MaxResponseWords <= 0 {
		return Config{}, fmt.Errorf("APP_MAX_RESPONSE_WORDS must be positive")
	}
	if cfg.MaxCompletionTokens <= 0 {
		return Config{}, fmt.Errorf("LLM_MAX_COMPLETION_TOKENS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func int64FromEnv(key string, fallback int64) (int64, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
