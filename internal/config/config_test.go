package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jleechanorg/claude-commands-sub003/pkg/dice"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, dice.StrategyCodeExecution, cfg.Strategy())
	assert.Equal(t, 2, cfg.MaxTurnAttempts)
}

func TestLoad_InvalidStrategy(t *testing.T) {
	t.Setenv("DICE_STRATEGY", "honor_system")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_NativeStrategy(t *testing.T) {
	t.Setenv("DICE_STRATEGY", "native_two_phase")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, dice.StrategyNativeTwoPhase, cfg.Strategy())
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "warn"}
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())

	cfg.LogLevel = "nonsense"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
