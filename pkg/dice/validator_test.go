package dice

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jleechanorg/claude-commands-sub003/pkg/response"
)

func testValidator(t *testing.T, strategy Strategy) *Validator {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewValidator(strategy, logger)
}

func diceResponse() *response.ParsedResponse {
	return &response.ParsedResponse{
		Narrative:         "The blade bites deep.",
		EntitiesMentioned: []string{"Grish"},
		LocationConfirmed: "Warcamp",
		DiceRolls:         []string{"1d20+5 = 17"},
	}
}

func TestCheck_NoDiceAcceptsTrivially(t *testing.T) {
	v := testValidator(t, StrategyCodeExecution)

	pr := &response.ParsedResponse{
		Narrative:         "You chat quietly by the fire. Rolls of thunder echo outside.",
		EntitiesMentioned: []string{},
		LocationConfirmed: "Camp",
	}

	verdict := v.Check(pr, nil, nil)
	assert.True(t, verdict.Accepted)
	assert.Equal(t, ReasonNone, verdict.Reason)
}

func TestCheck_CodeExecution(t *testing.T) {
	v := testValidator(t, StrategyCodeExecution)

	t.Run("rng verified accepts", func(t *testing.T) {
		verdict := v.Check(diceResponse(), &Evidence{
			CodeExecutionUsed: true,
			RNGVerified:       true,
		}, nil)
		assert.True(t, verdict.Accepted)
	})

	t.Run("code without rng rejects", func(t *testing.T) {
		verdict := v.Check(diceResponse(), &Evidence{
			CodeExecutionUsed:   true,
			ExecutableCodeParts: 1,
			RNGVerified:         false,
		}, nil)
		assert.False(t, verdict.Accepted)
		assert.Equal(t, ReasonNoRNGCall, verdict.Reason)
		assert.Contains(t, verdict.Reprompt, "random")
	})

	t.Run("no code executed rejects", func(t *testing.T) {
		verdict := v.Check(diceResponse(), &Evidence{CodeExecutionUsed: false}, nil)
		assert.False(t, verdict.Accepted)
		assert.Equal(t, ReasonFabrication, verdict.Reason)
	})

	t.Run("absent instrumentation accepts for backward compatibility", func(t *testing.T) {
		verdict := v.Check(diceResponse(), nil, nil)
		assert.True(t, verdict.Accepted)
	})
}

func TestCheck_NativeTwoPhase(t *testing.T) {
	v := testValidator(t, StrategyNativeTwoPhase)

	t.Run("valid tool result accepts and rederives rolls", func(t *testing.T) {
		results := []ToolResult{{
			Tool: "roll_attack",
			Args: map[string]any{"attack_bonus": 5},
			Result: map[string]any{
				"roll": 12, "total": 17, "formatted": "1d20+5 = 17 (rolls: 12+5)",
			},
		}}

		verdict := v.Check(diceResponse(), nil, results)
		require.True(t, verdict.Accepted)
		assert.Equal(t, []string{"1d20+5 = 17 (rolls: 12+5)"}, verdict.DiceRolls)
		require.Len(t, verdict.AuditEvents, 1)
		assert.Equal(t, "roll_attack", verdict.AuditEvents[0]["tool"])
	})

	t.Run("tool error rejects with validation reason", func(t *testing.T) {
		results := []ToolResult{{
			Tool:   "roll_skill_check",
			Result: map[string]any{"error": "missing dc_reasoning"},
		}}

		verdict := v.Check(diceResponse(), nil, results)
		assert.False(t, verdict.Accepted)
		assert.Equal(t, ReasonToolValidation, verdict.Reason)
		assert.Contains(t, verdict.Reprompt, "dc_reasoning")
	})

	t.Run("no tool evidence rejects as fabrication", func(t *testing.T) {
		verdict := v.Check(diceResponse(), nil, nil)
		assert.False(t, verdict.Accepted)
		assert.Equal(t, ReasonFabrication, verdict.Reason)
		assert.Contains(t, verdict.Reprompt, "roll_dice")
	})

	t.Run("non-dice tools are ignored", func(t *testing.T) {
		results := []ToolResult{{
			Tool:   "lookup_monster",
			Result: map[string]any{"total": 3},
		}}
		verdict := v.Check(diceResponse(), nil, results)
		assert.False(t, verdict.Accepted)
		assert.Equal(t, ReasonFabrication, verdict.Reason)
	})

	t.Run("one valid result outranks an error result", func(t *testing.T) {
		results := []ToolResult{
			{Tool: "roll_skill_check", Result: map[string]any{"error": "bad args"}},
			{Tool: "roll_dice", Result: map[string]any{"total": 9, "rolls": []any{4, 5}}},
		}
		verdict := v.Check(diceResponse(), nil, results)
		assert.True(t, verdict.Accepted)
		assert.Equal(t, []string{"roll_dice = 9"}, verdict.DiceRolls)
	})
}

func TestCheck_DetectsNarrativeDiceWithoutStructuredFields(t *testing.T) {
	v := testValidator(t, StrategyNativeTwoPhase)

	pr := &response.ParsedResponse{
		Narrative:         "Grish swings! He rolls a 17 on his attack and connects.",
		EntitiesMentioned: []string{"Grish"},
		LocationConfirmed: "Warcamp",
	}

	verdict := v.Check(pr, nil, nil)
	assert.False(t, verdict.Accepted, "narrative roll claims require tool evidence")
}
