package state

import (
	"log/slog"
	"sort"
	"strconv"
)

// numericFields are the game-state keys that are always stored as integers.
// Models frequently send these as digit strings ("15" instead of 15), so the
// merge engine coerces them before storage.
var numericFields = map[string]bool{
	"hp":                true,
	"max_hp":            true,
	"hit_points":        true,
	"max_hit_points":    true,
	"temp_hp":           true,
	"level":             true,
	"xp":                true,
	"experience":        true,
	"experience_points": true,
	"round":             true,
	"round_number":      true,
	"turn":              true,
	"turn_number":       true,
	"turn_count":        true,
	"initiative":        true,
	"gold":              true,
	"ac":                true,
	"armor_class":       true,
	"speed":             true,
}

// Merger applies loosely-typed state deltas to a canonical game state.
// It never rejects a structurally odd delta: every handler below exists to
// convert a wrong-shape input into a safe, data-preserving outcome, because
// the producer (the model) cannot be asked to retry a state delta.
type Merger struct {
	logger *slog.Logger
}

// NewMerger creates a merge engine. A nil logger disables warning output.
func NewMerger(logger *slog.Logger) *Merger {
	return &Merger{logger: logger}
}

// Merge applies delta to state and returns the merged result. Neither input
// is mutated. An empty delta returns a deep copy equal to state.
func (m *Merger) Merge(state map[string]any, delta map[string]any) map[string]any {
	merged, ok := deepCopyValue(state).(map[string]any)
	if !ok || merged == nil {
		merged = make(map[string]any)
	}
	m.mergeInto(merged, delta)
	return merged
}

// mergeInto applies delta key-by-key into dst, which is mutated in place.
// For each key a fixed-order handler chain is evaluated; the first handler
// that claims the key wins. The ordering is load-bearing: the core_memories
// safeguard runs before generic dict merge, and string-to-mapping conversion
// runs after it.
func (m *Merger) mergeInto(dst map[string]any, delta map[string]any) {
	for _, key := range sortedKeys(delta) {
		dv := delta[key]

		switch classifyDelta(dv) {
		case shapeAppend:
			m.applyAppend(dst, key, appendItems(dv.(map[string]any)))

		case shapeDelete:
			if key == "core_memories" {
				// The memory log is append-only. The safeguard outranks the
				// delete handler, so the token is ignored rather than obeyed.
				if m.logger != nil {
					m.logger.Warn("Refusing delete of core_memories")
				}
				continue
			}
			if _, ok := dst[key]; ok {
				delete(dst, key)
			} else if m.logger != nil {
				m.logger.Debug("Delete token for absent key", "key", key)
			}

		case shapeMap:
			dvMap := dv.(map[string]any)
			if key == "core_memories" {
				// Memories are modeled as a list. A mapping here is malformed
				// either way; fall through to the safeguard append.
				m.applyMemorySafeguard(dst, key, []any{dv})
				continue
			}
			if existing, ok := dst[key].(map[string]any); ok {
				// Recursive merge. Sibling keys of a partially updated
				// object are never dropped.
				m.mergeInto(existing, dvMap)
				continue
			}
			if key == "active_missions" {
				m.applyMissionMap(dst, dvMap)
				continue
			}
			dst[key] = deepCopyValue(dvMap)

		case shapeList:
			if key == "core_memories" {
				m.applyMemorySafeguard(dst, key, dv.([]any))
				continue
			}
			dst[key] = deepCopyValue(dv)

		case shapeScalar:
			if key == "core_memories" {
				m.applyMemorySafeguard(dst, key, []any{dv})
				continue
			}
			if existing, ok := dst[key].(map[string]any); ok {
				// A bare scalar must not clobber a structured record. Models
				// "defeat" an NPC by sending "npc_name": "defeated"; keep the
				// record and store the scalar as its status.
				if m.logger != nil {
					m.logger.Warn("Scalar update against structured value, storing as status",
						"key", key, "value", dv)
				}
				existing["status"] = dv
				continue
			}
			dst[key] = m.coerceNumeric(key, dv)
		}
	}
}

// applyAppend appends items to the list at key, creating it if absent.
// core_memories appends are de-duplicated; every other key allows duplicates.
func (m *Merger) applyAppend(dst map[string]any, key string, items []any) {
	list, _ := dst[key].([]any)
	if key == "core_memories" {
		dst[key] = appendDeduplicated(list, items)
		return
	}
	for _, item := range items {
		list = append(list, deepCopyValue(item))
	}
	dst[key] = list
}

// applyMemorySafeguard reinterprets a direct core_memories overwrite as a
// de-duplicated append. Models reliably attempt full-list replacement of
// memory logs, which would silently erase history.
func (m *Merger) applyMemorySafeguard(dst map[string]any, key string, items []any) {
	if m.logger != nil {
		m.logger.Warn("Direct overwrite of core_memories converted to append",
			"incoming_count", len(items))
	}
	list, _ := dst[key].([]any)
	dst[key] = appendDeduplicated(list, items)
}

// applyMissionMap handles the common model mistake of sending active_missions
// as a mapping of mission_key -> mission_object. Missions are modeled as a
// list; each entry is appended as a new mission or merged into the existing
// mission with a matching mission_id.
func (m *Merger) applyMissionMap(dst map[string]any, missions map[string]any) {
	list, _ := dst["active_missions"].([]any)

	for _, missionKey := range sortedKeys(missions) {
		obj, ok := missions[missionKey].(map[string]any)
		if !ok {
			if m.logger != nil {
				m.logger.Warn("Skipping non-mapping active_missions entry",
					"mission_key", missionKey)
			}
			continue
		}

		id := missionKey
		if declared, ok := obj["mission_id"].(string); ok && declared != "" {
			id = declared
		}

		merged := false
		for _, entry := range list {
			mission, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if existingID, _ := mission["mission_id"].(string); existingID == id {
				m.mergeInto(mission, obj)
				mission["mission_id"] = id
				merged = true
				break
			}
		}
		if merged {
			continue
		}

		newMission, _ := deepCopyValue(obj).(map[string]any)
		if _, ok := newMission["mission_id"]; !ok {
			newMission["mission_id"] = id
		}
		list = append(list, newMission)
	}

	dst["active_missions"] = list
}

// coerceNumeric casts digit strings to int for recognized numeric fields.
// Non-numeric strings and unrecognized fields pass through untouched.
func (m *Merger) coerceNumeric(key string, v any) any {
	s, ok := v.(string)
	if !ok || !numericFields[key] {
		return v
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return v
	}
	if m.logger != nil {
		m.logger.Debug("Coerced numeric field from string", "key", key, "value", n)
	}
	return n
}

// appendDeduplicated appends items to list, skipping values already present.
// Order is preserved: existing entries first, then new entries in input order.
func appendDeduplicated(list []any, items []any) []any {
	seen := make(map[string]bool, len(list))
	for _, existing := range list {
		if s, ok := existing.(string); ok {
			seen[s] = true
		}
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			if seen[s] {
				continue
			}
			seen[s] = true
		}
		list = append(list, deepCopyValue(item))
	}
	return list
}

// deepCopyValue copies nested maps and slices so merged state never aliases
// delta or prior-state structures.
func deepCopyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, val := range tv {
			out[k] = deepCopyValue(val)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, val := range tv {
			out[i] = deepCopyValue(val)
		}
		return out
	default:
		return v
	}
}

// sortedKeys returns map keys in a stable order so merge behavior and log
// output are deterministic.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
