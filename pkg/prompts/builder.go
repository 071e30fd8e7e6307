package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jleechanorg/claude-commands-sub003/pkg/chat"
	"github.com/jleechanorg/claude-commands-sub003/pkg/dice"
	"github.com/jleechanorg/claude-commands-sub003/pkg/state"
)

// Builder constructs chat messages for a turn using a fluent interface.
type Builder struct {
	gs           *state.CanonicalState
	strategy     dice.Strategy
	userMessage  string
	userRole     string
	history      []chat.ChatMessage
	historyLimit int
	corrections  []string
	messages     []chat.ChatMessage
}

// New creates a prompt builder with default settings.
func New() *Builder {
	return &Builder{
		historyLimit: 6,
		userRole:     chat.ChatRoleUser,
		messages:     make([]chat.ChatMessage, 0),
	}
}

// WithState sets the canonical campaign state serialized into the context.
func (b *Builder) WithState(gs *state.CanonicalState) *Builder {
	b.gs = gs
	return b
}

// WithStrategy sets the dice enforcement strategy, which selects the dice
// instruction block.
func (b *Builder) WithStrategy(strategy dice.Strategy) *Builder {
	b.strategy = strategy
	return b
}

// WithUserMessage sets the player's action for this turn.
func (b *Builder) WithUserMessage(message string, role string) *Builder {
	b.userMessage = message
	b.userRole = role
	return b
}

// WithHistory sets the prior conversation, windowed to the history limit.
func (b *Builder) WithHistory(history []chat.ChatMessage) *Builder {
	b.history = history
	return b
}

// WithHistoryLimit sets the chat history window size.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// WithCorrections appends integrity corrections (dice reprompts, queued
// guidance from earlier rejected turns) delivered as system messages.
func (b *Builder) WithCorrections(corrections ...string) *Builder {
	for _, c := range corrections {
		if c != "" {
			b.corrections = append(b.corrections, c)
		}
	}
	return b
}

// Build constructs the final message array for LLM consumption.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.gs == nil {
		return nil, fmt.Errorf("canonical state is required")
	}
	if b.userMessage == "" {
		return nil, fmt.Errorf("user message is required")
	}

	b.messages = b.messages[:0]

	system := SystemPrompt + "\n\n" + StrategyPrompt(b.strategy)
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: system,
	})

	stateJSON, err := json.Marshal(b.gs.ToMap())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state for prompt: %w", err)
	}
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: fmt.Sprintf("CURRENT campaign state: %s", string(stateJSON)),
	})

	b.addHistory()

	if len(b.corrections) > 0 {
		b.messages = append(b.messages, chat.ChatMessage{
			Role:    chat.ChatRoleSystem,
			Content: "CORRECTIONS from previous turns:\n- " + strings.Join(b.corrections, "\n- "),
		})
	}

	b.messages = append(b.messages, chat.ChatMessage{
		Role:    b.userRole,
		Content: b.userMessage,
	})

	return b.messages, nil
}

// addHistory appends the windowed chat history.
func (b *Builder) addHistory() {
	history := b.history
	if b.historyLimit > 0 && len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}
	b.messages = append(b.messages, history...)
}
