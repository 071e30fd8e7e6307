// Package chat defines the message and turn types exchanged between the API,
// the turn processor and the LLM provider clients.
package chat

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	ChatRoleUser   = "user"      // player
	ChatRoleAgent  = "assistant" // game master narration
	ChatRoleSystem = "system"    // rules, state context, corrections
)

// ChatMessage is a single message in the conversation sent to the LLM.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// TurnRequest is a player action submitted against a campaign.
type TurnRequest struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	Message    string    `json:"message"`
}

func (tr *TurnRequest) Validate() error {
	if tr.CampaignID == uuid.Nil {
		return fmt.Errorf("campaign_id is required")
	}
	if tr.Message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	return nil
}

// TurnResponse is the processed outcome of one model turn, after the
// response-integrity pipeline has run.
type TurnResponse struct {
	CampaignID uuid.UUID `json:"campaign_id,omitempty"`
	Narrative  string    `json:"narrative,omitempty"`
	DiceRolls  []string  `json:"dice_rolls,omitempty"`
	TurnCount  int       `json:"turn_count,omitempty"`

	// Recovered reports that the model's raw output required repair or
	// partial reconstruction before it could be used.
	Recovered bool `json:"recovered,omitempty"`

	// Attempts counts model invocations for this turn, >1 when an
	// integrity rejection forced a reprompt.
	Attempts int `json:"attempts,omitempty"`

	Error string `json:"error,omitempty"`
}
