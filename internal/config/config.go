package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port               int
	DatabaseURL        string
	NatsURL            string
	NatsToken          string
	LogLevel           string
	LogDir             string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	StatusAgentID      string
	ReplacementAgentID string
	// Instruction overrides; empty means the built-in prompt texts.
	StatusInstructions      string
	ReplacementInstructions string
	BatchSize               int
	MaxAttempts             int
	RetryDelaySeconds       int
	MaxOutputTokens         int
	Temperature             float64
}

func Load() Config {
	cfg := Config{
		Port:                    envInt("PARTWATCH_PORT", 8780),
		DatabaseURL:             envStr("DATABASE_URL", ""),
		NatsURL:                 envStr("NATS_URL", ""),
		NatsToken:               envStr("NATS_TOKEN", ""),
		LogLevel:                envStr("LOG_LEVEL", "info"),
		LogDir:                  envStr("PARTWATCH_LOG_DIR", "logs"),
		OpenAIAPIKey:            envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL:           envStr("OPENAI_BASE_URL", ""),
		StatusAgentID:           envStr("PARTWATCH_STATUS_AGENT", ""),
		ReplacementAgentID:      envStr("PARTWATCH_REPLACEMENT_AGENT", ""),
		StatusInstructions:      envStr("PARTWATCH_STATUS_INSTRUCTIONS", ""),
		ReplacementInstructions: envStr("PARTWATCH_REPLACEMENT_INSTRUCTIONS", ""),
		BatchSize:               envInt("PARTWATCH_BATCH_SIZE", 30),
		MaxAttempts:             envInt("PARTWATCH_MAX_ATTEMPTS", 3),
		RetryDelaySeconds:       envInt("PARTWATCH_RETRY_DELAY_SECONDS", 2),
		MaxOutputTokens:         envInt("PARTWATCH_MAX_OUTPUT_TOKENS", 2500),
		Temperature:             envFloat("PARTWATCH_TEMPERATURE", 0.2),
	}
	// The replacement agent is independently configurable but falls back to
	// the status agent when unset.
	if cfg.ReplacementAgentID == "" {
		cfg.ReplacementAgentID = cfg.StatusAgentID
	}
	return cfg
}

// Validate enforces the configuration that must be present before the service
// can construct its agent client. These are the only hard failures in the
// system; everything downstream degrades instead of erroring.
func (c Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.StatusAgentID == "" {
		return fmt.Errorf("PARTWATCH_STATUS_AGENT is required")
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
