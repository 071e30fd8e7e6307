package services

import (
	"context"

	"github.com/jleechanorg/claude-commands-sub003/pkg/chat"
	"github.com/jleechanorg/claude-commands-sub003/pkg/dice"
)

// TurnResult carries the raw model output plus everything the dice
// validator needs to judge it.
type TurnResult struct {
	// Text is the model's full text output, expected (but not guaranteed)
	// to be the JSON turn envelope.
	Text string

	// Evidence describes code-execution activity, for providers using the
	// code_execution strategy. Nil when the provider exposes no
	// code-execution channel.
	Evidence *dice.Evidence

	// ToolResults are server-side dice rolls performed during the turn,
	// for providers using the native_two_phase strategy.
	ToolResults []dice.ToolResult
}

// LLMService defines the interface for interacting with the LLM API
type LLMService interface {
	// InitModel initializes the LLM model on startup
	InitModel(ctx context.Context, modelName string) error

	// GenerateTurn generates a turn response using the LLM
	GenerateTurn(ctx context.Context, messages []chat.ChatMessage) (*TurnResult, error)

	// Strategy reports the dice enforcement strategy this provider supports
	Strategy() dice.Strategy
}
