package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CanonicalState is the single persisted representation of a campaign's game
// state and the target of all merge operations. The invariant-bearing
// sections are explicit fields; unknown top-level keys survive round-trips
// through the Extra map.
type CanonicalState struct {
	ID                  uuid.UUID                 `json:"id"`
	PlayerCharacterData map[string]any            `json:"player_character_data,omitempty"`
	NPCData             map[string]map[string]any `json:"npc_data,omitempty"`
	WorldData           map[string]any            `json:"world_data,omitempty"`
	CustomCampaignState map[string]any            `json:"custom_campaign_state,omitempty"`
	CombatState         map[string]any            `json:"combat_state,omitempty"`
	TurnCount           int                       `json:"turn_count"`
	UpdatedAt           time.Time                 `json:"updated_at,omitempty"`

	// Extra holds forward-compatible top-level keys this version does not
	// model. Flattened into the JSON object on marshal.
	Extra map[string]any `json:"-"`
}

// knownStateKeys are the top-level keys with dedicated struct fields.
var knownStateKeys = map[string]bool{
	"id":                    true,
	"player_character_data": true,
	"npc_data":              true,
	"world_data":            true,
	"custom_campaign_state": true,
	"combat_state":          true,
	"turn_count":            true,
	"updated_at":            true,
}

// NewCanonicalState creates an empty campaign state with a fresh ID.
func NewCanonicalState() *CanonicalState {
	return &CanonicalState{
		ID:                  uuid.New(),
		PlayerCharacterData: make(map[string]any),
		NPCData:             make(map[string]map[string]any),
		WorldData:           make(map[string]any),
		CustomCampaignState: make(map[string]any),
		CombatState:         make(map[string]any),
	}
}

// CoreMemories returns the campaign memory log as strings.
func (cs *CanonicalState) CoreMemories() []string {
	raw, _ := cs.CustomCampaignState["core_memories"].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// IncrementTurnCounters advances the turn counter, and the combat round
// counter when a combat is active.
func (cs *CanonicalState) IncrementTurnCounters() {
	cs.TurnCount++
	if cs.CombatState == nil {
		return
	}
	if active, _ := cs.CombatState["in_combat"].(bool); active {
		switch round := cs.CombatState["round"].(type) {
		case int:
			cs.CombatState["round"] = round + 1
		case float64:
			cs.CombatState["round"] = int(round) + 1
		}
	}
}

// ToMap renders the mergeable sections of the state as a nested mapping, the
// shape the merge engine operates on. Identity and bookkeeping fields (id,
// turn_count, updated_at) are excluded; deltas do not address them.
func (cs *CanonicalState) ToMap() map[string]any {
	out := make(map[string]any)
	if cs.PlayerCharacterData != nil {
		out["player_character_data"] = deepCopyValue(cs.PlayerCharacterData)
	}
	if cs.NPCData != nil {
		npcs := make(map[string]any, len(cs.NPCData))
		for name, npc := range cs.NPCData {
			npcs[name] = deepCopyValue(npc)
		}
		out["npc_data"] = npcs
	}
	if cs.WorldData != nil {
		out["world_data"] = deepCopyValue(cs.WorldData)
	}
	if cs.CustomCampaignState != nil {
		out["custom_campaign_state"] = deepCopyValue(cs.CustomCampaignState)
	}
	if cs.CombatState != nil {
		out["combat_state"] = deepCopyValue(cs.CombatState)
	}
	for k, v := range cs.Extra {
		out[k] = deepCopyValue(v)
	}
	return out
}

// ApplyDelta merges a state delta into the canonical state and re-establishes
// structural invariants. An empty delta is a no-op.
func (cs *CanonicalState) ApplyDelta(m *Merger, delta map[string]any) {
	if len(delta) == 0 {
		return
	}
	merged := m.Merge(cs.ToMap(), delta)
	cs.loadMap(merged)
	cs.Normalize()
}

// loadMap rebuilds the struct fields from a merged nested mapping.
func (cs *CanonicalState) loadMap(m map[string]any) {
	cs.PlayerCharacterData = asMap(m["player_character_data"])
	cs.WorldData = asMap(m["world_data"])
	cs.CustomCampaignState = asMap(m["custom_campaign_state"])
	cs.CombatState = asMap(m["combat_state"])

	cs.NPCData = make(map[string]map[string]any)
	if npcs := asMap(m["npc_data"]); npcs != nil {
		for name, v := range npcs {
			if npc, ok := v.(map[string]any); ok {
				cs.NPCData[name] = npc
				continue
			}
			// Invariant: npc_data values are always mappings. A bare scalar
			// reaching this point becomes the NPC's status.
			cs.NPCData[name] = map[string]any{"status": v}
		}
	}

	cs.Extra = make(map[string]any)
	for k, v := range m {
		if !knownStateKeys[k] {
			cs.Extra[k] = v
		}
	}
	// Mergeable sections were consumed above; drop them from Extra.
	for _, k := range []string{"player_character_data", "npc_data", "world_data", "custom_campaign_state", "combat_state"} {
		delete(cs.Extra, k)
	}
}

// Normalize re-establishes structural invariants after external mutation:
// every NPC record is a mapping, and the memory log is de-duplicated.
func (cs *CanonicalState) Normalize() {
	for name, npc := range cs.NPCData {
		if npc == nil {
			cs.NPCData[name] = make(map[string]any)
		}
	}
	if cs.CustomCampaignState == nil {
		return
	}
	if raw, ok := cs.CustomCampaignState["core_memories"].([]any); ok {
		cs.CustomCampaignState["core_memories"] = appendDeduplicated(nil, raw)
	}
}

// DeepCopy returns an independent copy of the state, for handing to
// background goroutines without data races.
func (cs *CanonicalState) DeepCopy() (*CanonicalState, error) {
	data, err := json.Marshal(cs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state for copy: %w", err)
	}
	var out CanonicalState
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state copy: %w", err)
	}
	return &out, nil
}

// MarshalJSON flattens Extra into the top-level object.
func (cs *CanonicalState) MarshalJSON() ([]byte, error) {
	out := cs.ToMap()
	out["id"] = cs.ID
	out["turn_count"] = cs.TurnCount
	if !cs.UpdatedAt.IsZero() {
		out["updated_at"] = cs.UpdatedAt
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds the struct, routing unknown keys to Extra.
func (cs *CanonicalState) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal canonical state: %w", err)
	}

	if idStr, ok := raw["id"].(string); ok {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return fmt.Errorf("invalid state id: %w", err)
		}
		cs.ID = id
	}
	switch tc := raw["turn_count"].(type) {
	case float64:
		cs.TurnCount = int(tc)
	case int:
		cs.TurnCount = tc
	}
	if ts, ok := raw["updated_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			cs.UpdatedAt = t
		}
	}

	delete(raw, "id")
	delete(raw, "turn_count")
	delete(raw, "updated_at")
	cs.loadMap(raw)
	cs.Normalize()
	return nil
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return make(map[string]any)
}
