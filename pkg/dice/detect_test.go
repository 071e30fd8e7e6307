package dice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jleechanorg/claude-commands-sub003/pkg/response"
)

func TestHasDiceContent(t *testing.T) {
	tests := []struct {
		name string
		pr   *response.ParsedResponse
		want bool
	}{
		{
			name: "structured dice_rolls",
			pr:   &response.ParsedResponse{DiceRolls: []string{"1d20 = 11"}},
			want: true,
		},
		{
			name: "structured audit events",
			pr:   &response.ParsedResponse{DiceAuditEvents: []map[string]any{{"tool": "roll_dice"}}},
			want: true,
		},
		{
			name: "dice notation in narrative",
			pr:   &response.ParsedResponse{Narrative: "You roll 2d6+3 for damage."},
			want: true,
		},
		{
			name: "bare d20 reference",
			pr:   &response.ParsedResponse{Narrative: "A d20 clatters across the table."},
			want: true,
		},
		{
			name: "explicit dice tag",
			pr:   &response.ParsedResponse{Narrative: "The orc strikes [dice:1d20+4=16] and hits."},
			want: true,
		},
		{
			name: "rolls phrase near combat keyword",
			pr:   &response.ParsedResponse{Narrative: "She rolls a 15 on her stealth check and slips past."},
			want: true,
		},
		{
			name: "rolls phrase without combat context",
			pr:   &response.ParsedResponse{Narrative: "The baker rolls a 12 pound sack of flour across the floor."},
			want: false,
		},
		{
			name: "rolls of thunder",
			pr:   &response.ParsedResponse{Narrative: "Rolls of thunder shake the valley as you make camp."},
			want: false,
		},
		{
			name: "plain narrative",
			pr:   &response.ParsedResponse{Narrative: "You walk into the tavern and order an ale."},
			want: false,
		},
		{
			name: "nil response",
			pr:   nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasDiceContent(tt.pr))
		})
	}
}

func TestNarrativeClaimsDice_ScanIsBounded(t *testing.T) {
	// Dice notation past the scan cap is not detected; the cap exists to
	// bound cost on very long narratives.
	long := strings.Repeat("x", narrativeScanCap) + " then rolls 1d20"
	assert.False(t, narrativeClaimsDice(long))

	within := strings.Repeat("x", 100) + " then rolls 1d20"
	assert.True(t, narrativeClaimsDice(within))
}
