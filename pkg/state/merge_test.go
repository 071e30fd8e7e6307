package state

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMerger(t *testing.T) *Merger {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewMerger(logger)
}

func TestMerge_EmptyDeltaIsIdentity(t *testing.T) {
	m := testMerger(t)
	state := map[string]any{
		"player_character_data": map[string]any{
			"name": "Elara",
			"hp":   22,
		},
		"core_memories": []any{"met the hermit"},
	}

	merged := m.Merge(state, map[string]any{})
	assert.Equal(t, state, merged)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	m := testMerger(t)
	state := map[string]any{
		"player": map[string]any{"hp": 10},
	}
	delta := map[string]any{
		"player": map[string]any{"hp": 5},
	}

	merged := m.Merge(state, delta)

	assert.Equal(t, 10, state["player"].(map[string]any)["hp"])
	assert.Equal(t, 5, merged["player"].(map[string]any)["hp"])
}

func TestMerge_SiblingPreservation(t *testing.T) {
	m := testMerger(t)
	state := map[string]any{
		"player": map[string]any{
			"stats": map[string]any{"str": 10, "dex": 10},
		},
	}
	delta := map[string]any{
		"player": map[string]any{
			"stats": map[string]any{"dex": 15},
		},
	}

	merged := m.Merge(state, delta)

	stats := merged["player"].(map[string]any)["stats"].(map[string]any)
	assert.Equal(t, 10, stats["str"])
	assert.Equal(t, 15, stats["dex"])
}

func TestMerge_ScalarDoesNotClobberMapping(t *testing.T) {
	m := testMerger(t)
	state := map[string]any{
		"npc": map[string]any{"name": "Grish", "hp": 15},
	}
	delta := map[string]any{
		"npc": "defeated",
	}

	merged := m.Merge(state, delta)

	npc, ok := merged["npc"].(map[string]any)
	require.True(t, ok, "npc record must survive a scalar overwrite")
	assert.Equal(t, "Grish", npc["name"])
	assert.Equal(t, 15, npc["hp"])
	assert.Equal(t, "defeated", npc["status"])
}

func TestMerge_AppendDirective(t *testing.T) {
	m := testMerger(t)

	t.Run("creates list when absent", func(t *testing.T) {
		merged := m.Merge(map[string]any{}, map[string]any{
			"quest_log": map[string]any{"append": "slay the wyrm"},
		})
		assert.Equal(t, []any{"slay the wyrm"}, merged["quest_log"])
	})

	t.Run("appends sequence", func(t *testing.T) {
		merged := m.Merge(
			map[string]any{"quest_log": []any{"a"}},
			map[string]any{"quest_log": map[string]any{"append": []any{"b", "c"}}},
		)
		assert.Equal(t, []any{"a", "b", "c"}, merged["quest_log"])
	})

	t.Run("allows duplicates on ordinary keys", func(t *testing.T) {
		merged := m.Merge(
			map[string]any{"quest_log": []any{"a"}},
			map[string]any{"quest_log": map[string]any{"append": "a"}},
		)
		assert.Equal(t, []any{"a", "a"}, merged["quest_log"])
	})

	t.Run("deduplicates core_memories", func(t *testing.T) {
		merged := m.Merge(
			map[string]any{"core_memories": []any{"A", "B"}},
			map[string]any{"core_memories": map[string]any{"append": []any{"B", "C"}}},
		)
		assert.Equal(t, []any{"A", "B", "C"}, merged["core_memories"])
	})
}

func TestMerge_CoreMemoriesSafeguard(t *testing.T) {
	m := testMerger(t)

	t.Run("direct list overwrite becomes deduplicated append", func(t *testing.T) {
		merged := m.Merge(
			map[string]any{"core_memories": []any{"A", "B"}},
			map[string]any{"core_memories": []any{"B", "C"}},
		)
		assert.Equal(t, []any{"A", "B", "C"}, merged["core_memories"])
	})

	t.Run("scalar overwrite becomes append", func(t *testing.T) {
		merged := m.Merge(
			map[string]any{"core_memories": []any{"A"}},
			map[string]any{"core_memories": "B"},
		)
		assert.Equal(t, []any{"A", "B"}, merged["core_memories"])
	})

	t.Run("delete token is refused", func(t *testing.T) {
		merged := m.Merge(
			map[string]any{"core_memories": []any{"A"}},
			map[string]any{"core_memories": DeleteToken},
		)
		assert.Equal(t, []any{"A"}, merged["core_memories"])
	})
}

func TestMerge_DeleteToken(t *testing.T) {
	m := testMerger(t)

	merged := m.Merge(
		map[string]any{"torch_lit": true, "hp": 10},
		map[string]any{"torch_lit": DeleteToken},
	)
	_, exists := merged["torch_lit"]
	assert.False(t, exists)
	assert.Equal(t, 10, merged["hp"])

	// Deleting an absent key is a no-op, not an error.
	merged = m.Merge(map[string]any{}, map[string]any{"ghost": DeleteToken})
	assert.Empty(t, merged)
}

func TestMerge_NumericCoercion(t *testing.T) {
	m := testMerger(t)

	tests := []struct {
		name  string
		key   string
		value any
		want  any
	}{
		{"hp digit string", "hp", "15", 15},
		{"level digit string", "level", "3", 3},
		{"negative digit string", "xp", "-5", -5},
		{"non-numeric string untouched", "hp", "full", "full"},
		{"unrecognized field untouched", "title", "12", "12"},
		{"already int untouched", "hp", 15, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := m.Merge(map[string]any{}, map[string]any{tt.key: tt.value})
			assert.Equal(t, tt.want, merged[tt.key])
		})
	}
}

func TestMerge_ActiveMissionsMapConversion(t *testing.T) {
	m := testMerger(t)

	t.Run("updates existing mission in place", func(t *testing.T) {
		state := map[string]any{
			"active_missions": []any{
				map[string]any{"mission_id": "q1", "title": "Old", "giver": "Bram"},
			},
		}
		delta := map[string]any{
			"active_missions": map[string]any{
				"q1": map[string]any{"title": "X"},
			},
		}

		merged := m.Merge(state, delta)
		missions := merged["active_missions"].([]any)
		require.Len(t, missions, 1, "matched mission must be updated, not duplicated")

		mission := missions[0].(map[string]any)
		assert.Equal(t, "X", mission["title"])
		assert.Equal(t, "Bram", mission["giver"])
		assert.Equal(t, "q1", mission["mission_id"])
	})

	t.Run("appends new mission with id from key", func(t *testing.T) {
		merged := m.Merge(map[string]any{}, map[string]any{
			"active_missions": map[string]any{
				"q2": map[string]any{"title": "New"},
			},
		})
		missions := merged["active_missions"].([]any)
		require.Len(t, missions, 1)
		assert.Equal(t, "q2", missions[0].(map[string]any)["mission_id"])
	})

	t.Run("declared mission_id wins over key", func(t *testing.T) {
		merged := m.Merge(map[string]any{}, map[string]any{
			"active_missions": map[string]any{
				"wrong_key": map[string]any{"mission_id": "q9", "title": "T"},
			},
		})
		missions := merged["active_missions"].([]any)
		require.Len(t, missions, 1)
		assert.Equal(t, "q9", missions[0].(map[string]any)["mission_id"])
	})

	t.Run("skips non-mapping entries", func(t *testing.T) {
		merged := m.Merge(map[string]any{}, map[string]any{
			"active_missions": map[string]any{
				"bad":  "not a mission",
				"good": map[string]any{"title": "T"},
			},
		})
		missions := merged["active_missions"].([]any)
		require.Len(t, missions, 1)
		assert.Equal(t, "good", missions[0].(map[string]any)["mission_id"])
	})
}

func TestMerge_NestedDeltaHandlers(t *testing.T) {
	m := testMerger(t)

	// Handlers apply at every depth, not just the top level.
	state := map[string]any{
		"npc_data": map[string]any{
			"grish": map[string]any{"name": "Grish", "hp": 15, "role": "warchief"},
		},
		"custom_campaign_state": map[string]any{
			"core_memories": []any{"A"},
		},
	}
	delta := map[string]any{
		"npc_data": map[string]any{
			"grish": "defeated",
		},
		"custom_campaign_state": map[string]any{
			"core_memories": []any{"A", "B"},
		},
	}

	merged := m.Merge(state, delta)

	grish := merged["npc_data"].(map[string]any)["grish"].(map[string]any)
	assert.Equal(t, "defeated", grish["status"])
	assert.Equal(t, 15, grish["hp"])

	memories := merged["custom_campaign_state"].(map[string]any)["core_memories"]
	assert.Equal(t, []any{"A", "B"}, memories)
}
