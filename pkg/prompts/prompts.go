// Package prompts constructs the message arrays sent to the LLM for a game
// turn, including the JSON response contract, dice-strategy instructions,
// campaign state context and pending corrections.
package prompts

import (
	"github.com/jleechanorg/claude-commands-sub003/pkg/dice"
)

// SystemPrompt is the base narrator instruction. The response contract names
// every field the recovery parser knows how to extract.
const SystemPrompt = `You are the game master for a tabletop roleplaying campaign. Narrate the
world's response to the player's action, stay consistent with the campaign
state provided, and never control the player character's decisions.

Respond with ONLY a single JSON object (no markdown fences, no prose outside
the JSON) in this format:
{
  "narrative": "<your narration for this turn>",
  "entities_mentioned": ["<each named character or creature in the narrative>"],
  "location_confirmed": "<the player's current location>",
  "state_updates": { <only the state fields that changed this turn> },
  "dice_rolls": ["<formatted result of each roll made this turn>"]
}

State update rules:
- Send only changed fields. Sibling fields you omit are preserved.
- To append to a list, send {"append": <value>}. Never resend a whole list.
- core_memories accepts appends only.
- To remove a key, send the value "__DELETE__".`

// codeExecutionPrompt instructs models whose dice strategy is sandboxed code
// execution.
const codeExecutionPrompt = `Dice: whenever an outcome is uncertain, you MUST execute code to roll. The
code must call a real random number generator (for example random.randint)
and print the results as JSON. Never invent or predict roll results; report
only what the executed code printed.`

// nativeTwoPhasePrompt instructs models whose dice strategy is server-side
// tool calling.
const nativeTwoPhasePrompt = `Dice: whenever an outcome is uncertain, you MUST request one of the dice
tools (roll_dice, roll_attack, roll_skill_check, roll_saving_throw) and wait
for the server's result. For skill checks and saving throws, supply
dc_reasoning explaining the DC before the roll. Never invent roll results;
the server's tool output is the only source of truth.`

// StrategyPrompt returns the dice instruction block for a strategy.
func StrategyPrompt(strategy dice.Strategy) string {
	if strategy == dice.StrategyNativeTwoPhase {
		return nativeTwoPhasePrompt
	}
	return codeExecutionPrompt
}
