// Package actor models the player character sheet. Known, invariant-bearing
// fields are explicit struct members; everything else (skills, proficiencies,
// house-rule attributes) lives in a single open Attributes map so unknown
// fields survive round-trips.
package actor

import (
	"fmt"
	"maps"

	"github.com/jwebster45206/d20"
)

// Stats5e represents the six core D&D 5e ability scores.
type Stats5e struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// ToAttributes converts Stats5e to a map for d20.Actor compatibility.
func (s *Stats5e) ToAttributes() map[string]int {
	return map[string]int{
		"strength":     s.Strength,
		"dexterity":    s.Dexterity,
		"constitution": s.Constitution,
		"intelligence": s.Intelligence,
		"wisdom":       s.Wisdom,
		"charisma":     s.Charisma,
	}
}

// PCSpec is the serializable specification for a player character.
type PCSpec struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	Class      string         `json:"class,omitempty"`
	Level      int            `json:"level,omitempty"`
	Race       string         `json:"race,omitempty"`
	Stats      Stats5e        `json:"stats,omitempty"`
	HP         int            `json:"hp,omitempty"`
	MaxHP      int            `json:"max_hp,omitempty"`
	AC         int            `json:"ac,omitempty"`
	Attributes map[string]int `json:"attributes,omitempty"` // skills, proficiencies, etc.
}

// PC is the runtime representation of a player character.
type PC struct {
	Spec  *PCSpec
	Actor *d20.Actor // built at runtime from the spec
}

// NewPCFromSpec creates a PC and builds its d20.Actor.
func NewPCFromSpec(spec *PCSpec) (*PC, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}

	allAttrs := spec.Stats.ToAttributes()
	maps.Copy(allAttrs, spec.Attributes)

	actor, err := d20.NewActor(spec.ID).
		WithHP(spec.MaxHP).
		WithAC(spec.AC).
		WithAttributes(allAttrs).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	if spec.HP != spec.MaxHP && spec.HP > 0 {
		if err := actor.SetHP(spec.HP); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}

	return &PC{Spec: spec, Actor: actor}, nil
}

// FromStateData builds a PC from the canonical state's loosely-typed
// player_character_data section. Missing or wrong-typed fields fall back to
// playable defaults; this data originates from merged model deltas and is
// not trusted to be well-formed.
func FromStateData(data map[string]any) (*PC, error) {
	spec := &PCSpec{
		ID:         stringField(data, "id", "pc"),
		Name:       stringField(data, "name", ""),
		Class:      stringField(data, "class", ""),
		Race:       stringField(data, "race", ""),
		Level:      intField(data, "level", 1),
		HP:         intField(data, "hp", 1),
		MaxHP:      intField(data, "max_hp", 1),
		AC:         intField(data, "ac", 10),
		Attributes: make(map[string]int),
	}
	if spec.HP > spec.MaxHP {
		spec.MaxHP = spec.HP
	}

	if stats, ok := data["stats"].(map[string]any); ok {
		spec.Stats = Stats5e{
			Strength:     intField(stats, "strength", 10),
			Dexterity:    intField(stats, "dexterity", 10),
			Constitution: intField(stats, "constitution", 10),
			Intelligence: intField(stats, "intelligence", 10),
			Wisdom:       intField(stats, "wisdom", 10),
			Charisma:     intField(stats, "charisma", 10),
		}
	}
	if attrs, ok := data["attributes"].(map[string]any); ok {
		for k, v := range attrs {
			if n, ok := toInt(v); ok {
				spec.Attributes[k] = n
			}
		}
	}

	return NewPCFromSpec(spec)
}

func stringField(m map[string]any, key, def string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return def
}

func intField(m map[string]any, key string, def int) int {
	if n, ok := toInt(m[key]); ok {
		return n
	}
	return def
}

func toInt(v any) (int, bool) {
	switch tv := v.(type) {
	case int:
		return tv, true
	case float64:
		return int(tv), true
	}
	return 0, false
}
