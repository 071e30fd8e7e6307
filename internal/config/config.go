package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/jleechanorg/claude-commands-sub003/pkg/dice"
)

// Config holds all runtime configuration, populated from the environment.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// LLM provider selection: "gemini" or "openrouter"
	LLMProvider      string `env:"LLM_PROVIDER" envDefault:"gemini"`
	ModelName        string `env:"MODEL_NAME" envDefault:"gemini-2.5-flash"`
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`

	RedisURL string `env:"REDIS_URL" envDefault:"localhost:6379"`

	// DiceStrategy selects how dice integrity is enforced:
	// "code_execution" or "native_two_phase"
	DiceStrategy string `env:"DICE_STRATEGY" envDefault:"code_execution"`

	// RandomSeed pins the server-side dice roller for reproducible
	// sessions. Zero means seed from the clock.
	RandomSeed int64 `env:"RANDOM_SEED" envDefault:"0"`

	// MaxTurnAttempts bounds the reprompt loop when a response fails
	// dice validation.
	MaxTurnAttempts int `env:"MAX_TURN_ATTEMPTS" envDefault:"2"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	switch strings.ToLower(cfg.DiceStrategy) {
	case string(dice.StrategyCodeExecution), string(dice.StrategyNativeTwoPhase):
	default:
		return nil, fmt.Errorf("invalid dice strategy: %q", cfg.DiceStrategy)
	}

	return cfg, nil
}

// Strategy returns the configured dice strategy.
func (c *Config) Strategy() dice.Strategy {
	if strings.ToLower(c.DiceStrategy) == string(dice.StrategyNativeTwoPhase) {
		return dice.StrategyNativeTwoPhase
	}
	return dice.StrategyCodeExecution
}

// SlogLevel maps the configured log level string to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
