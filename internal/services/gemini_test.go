package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/jleechanorg/claude-commands-sub003/pkg/chat"
	"github.com/jleechanorg/claude-commands-sub003/pkg/dice"
)

func TestGeminiService_Strategy(t *testing.T) {
	svc := NewGeminiService("key", "gemini-2.5-flash", testLogger())
	assert.Equal(t, dice.StrategyCodeExecution, svc.Strategy())
}

func TestSplitGeminiMessages(t *testing.T) {
	system, contents := splitGeminiMessages([]chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: "You are a game master."},
		{Role: chat.ChatRoleSystem, Content: "CURRENT campaign state: {}"},
		{Role: chat.ChatRoleUser, Content: "I open the chest."},
		{Role: chat.ChatRoleAgent, Content: "It creaks open."},
	})

	assert.Contains(t, system, "game master")
	assert.Contains(t, system, "CURRENT campaign state")
	require.Len(t, contents, 2)
	assert.Equal(t, string(genai.RoleUser), string(contents[0].Role))
	assert.Equal(t, string(genai.RoleModel), string(contents[1].Role))
}

func TestInspectGeminiParts_VerifiedRoll(t *testing.T) {
	parts := []*genai.Part{
		{Text: `{"narrative": "You swing`},
		{ExecutableCode: &genai.ExecutableCode{
			Language: "PYTHON",
			Code:     "import random\nprint(random.randint(1, 20))",
		}},
		{CodeExecutionResult: &genai.CodeExecutionResult{
			Outcome: genai.OutcomeOK,
			Output:  `{"roll": 17}`,
		}},
		{Text: ` and hit for 17."}`},
	}

	text, ev := inspectGeminiParts(parts)

	assert.Equal(t, `{"narrative": "You swing and hit for 17."}`, text)
	assert.True(t, ev.CodeExecutionUsed)
	assert.Equal(t, 1, ev.ExecutableCodeParts)
	assert.Equal(t, 1, ev.CodeExecutionResultParts)
	assert.True(t, ev.CodeContainsRNG)
	assert.True(t, ev.RNGVerified)
	assert.True(t, ev.StdoutIsValidJSON)
	assert.Equal(t, `{"roll": 17}`, ev.Stdout)
}

func TestInspectGeminiParts_FakeExecution(t *testing.T) {
	// Code ran but only printed a constant: no RNG call
	parts := []*genai.Part{
		{ExecutableCode: &genai.ExecutableCode{
			Language: "PYTHON",
			Code:     `print('{"roll": 20}')`,
		}},
		{CodeExecutionResult: &genai.CodeExecutionResult{
			Outcome: genai.OutcomeOK,
			Output:  `{"roll": 20}`,
		}},
		{Text: "Natural 20!"},
	}

	_, ev := inspectGeminiParts(parts)

	assert.True(t, ev.CodeExecutionUsed)
	assert.False(t, ev.CodeContainsRNG)
	assert.False(t, ev.RNGVerified)
}

func TestInspectGeminiParts_NoExecution(t *testing.T) {
	parts := []*genai.Part{
		{Text: "You rolled an 18 and hit!"},
	}

	text, ev := inspectGeminiParts(parts)

	assert.Equal(t, "You rolled an 18 and hit!", text)
	assert.False(t, ev.CodeExecutionUsed)
	assert.False(t, ev.RNGVerified)
}
