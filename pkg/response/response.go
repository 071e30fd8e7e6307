// Package response recovers a structured turn record from raw LLM output.
// The model is asked to emit a single JSON object describing the turn; in
// practice it emits truncated, malformed, double-encoded, or fenced content.
// The parser never fails: every degradation path yields a weaker but usable
// ParsedResponse.
package response

// ParsedResponse is the structured record recovered from one model turn.
// Narrative, EntitiesMentioned and LocationConfirmed are always present with
// safe defaults even when every recovery strategy fails; the remaining fields
// are populated only when the model supplied them.
type ParsedResponse struct {
	Narrative         string           `json:"narrative"`
	EntitiesMentioned []string         `json:"entities_mentioned"`
	LocationConfirmed string           `json:"location_confirmed"`
	StateUpdates      map[string]any   `json:"state_updates,omitempty"`
	DebugInfo         map[string]any   `json:"debug_info,omitempty"`
	SessionHeader     string           `json:"session_header,omitempty"`
	PlanningBlock     map[string]any   `json:"planning_block,omitempty"`
	DiceRolls         []string         `json:"dice_rolls,omitempty"`
	DiceAuditEvents   []map[string]any `json:"dice_audit_events,omitempty"`
	GodModeResponse   string           `json:"god_mode_response,omitempty"`
}

// defaultLocation is reported when the model did not confirm a location.
const defaultLocation = "Unknown"

// newParsedResponse returns a response with the always-present defaults.
func newParsedResponse() *ParsedResponse {
	return &ParsedResponse{
		Narrative:         "",
		EntitiesMentioned: []string{},
		LocationConfirmed: defaultLocation,
	}
}

// fromMap materializes a ParsedResponse from a decoded JSON object,
// tolerating wrong-typed values for every field.
func fromMap(m map[string]any) *ParsedResponse {
	pr := newParsedResponse()

	if s, ok := m["narrative"].(string); ok {
		pr.Narrative = s
	}
	if s, ok := m["location_confirmed"].(string); ok && s != "" {
		pr.LocationConfirmed = s
	}
	if s, ok := m["session_header"].(string); ok {
		pr.SessionHeader = s
	}
	if s, ok := m["god_mode_response"].(string); ok {
		pr.GodModeResponse = s
	}
	pr.EntitiesMentioned = toStringSlice(m["entities_mentioned"])
	pr.DiceRolls = toStringSlice(m["dice_rolls"])
	if pr.DiceRolls != nil && len(pr.DiceRolls) == 0 {
		pr.DiceRolls = nil
	}
	if events, ok := m["dice_audit_events"].([]any); ok {
		for _, e := range events {
			if record, ok := e.(map[string]any); ok {
				pr.DiceAuditEvents = append(pr.DiceAuditEvents, record)
			}
		}
	}
	if updates, ok := m["state_updates"].(map[string]any); ok {
		pr.StateUpdates = updates
	}
	if info, ok := m["debug_info"].(map[string]any); ok {
		pr.DebugInfo = info
	}
	if block, ok := m["planning_block"].(map[string]any); ok {
		pr.PlanningBlock = block
	}

	return pr
}

// toStringSlice converts a decoded JSON array to strings, dropping
// non-string elements. Returns an empty slice for a present-but-empty array
// and nil when the value is absent or not an array.
func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		if v == nil {
			return []string{}
		}
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
