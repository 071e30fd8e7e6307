package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jleechanorg/claude-commands-sub003/pkg/chat"
	"github.com/jleechanorg/claude-commands-sub003/pkg/dice"
	"github.com/jleechanorg/claude-commands-sub003/pkg/state"
)

func TestBuilder_Build(t *testing.T) {
	gs := state.NewCanonicalState()
	gs.WorldData["weather"] = "rain"

	messages, err := New().
		WithState(gs).
		WithStrategy(dice.StrategyNativeTwoPhase).
		WithUserMessage("I kick the door open.", chat.ChatRoleUser).
		Build()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(messages), 3)

	system := messages[0]
	assert.Equal(t, chat.ChatRoleSystem, system.Role)
	assert.Contains(t, system.Content, "roll_skill_check")
	assert.NotContains(t, system.Content, "random.randint")

	assert.Contains(t, messages[1].Content, `"weather":"rain"`)

	last := messages[len(messages)-1]
	assert.Equal(t, chat.ChatRoleUser, last.Role)
	assert.Equal(t, "I kick the door open.", last.Content)
}

func TestBuilder_StrategySelectsDiceInstructions(t *testing.T) {
	gs := state.NewCanonicalState()

	messages, err := New().
		WithState(gs).
		WithStrategy(dice.StrategyCodeExecution).
		WithUserMessage("I attack.", chat.ChatRoleUser).
		Build()
	require.NoError(t, err)
	assert.Contains(t, messages[0].Content, "random.randint")
}

func TestBuilder_HistoryWindow(t *testing.T) {
	gs := state.NewCanonicalState()

	history := make([]chat.ChatMessage, 10)
	for i := range history {
		history[i] = chat.ChatMessage{Role: chat.ChatRoleUser, Content: strings.Repeat("x", i+1)}
	}

	messages, err := New().
		WithState(gs).
		WithHistory(history).
		WithHistoryLimit(4).
		WithUserMessage("go", chat.ChatRoleUser).
		Build()
	require.NoError(t, err)

	// system + state + 4 history + user
	assert.Len(t, messages, 7)
	assert.Equal(t, strings.Repeat("x", 7), messages[2].Content)
}

func TestBuilder_Corrections(t *testing.T) {
	gs := state.NewCanonicalState()

	messages, err := New().
		WithState(gs).
		WithCorrections("use the dice tools", "").
		WithUserMessage("I try again.", chat.ChatRoleUser).
		Build()
	require.NoError(t, err)

	var found bool
	for _, m := range messages {
		if strings.Contains(m.Content, "CORRECTIONS") {
			found = true
			assert.Contains(t, m.Content, "use the dice tools")
		}
	}
	assert.True(t, found)
}

func TestBuilder_RequiresStateAndMessage(t *testing.T) {
	_, err := New().WithUserMessage("hi", chat.ChatRoleUser).Build()
	assert.Error(t, err)

	_, err = New().WithState(state.NewCanonicalState()).Build()
	assert.Error(t, err)
}
