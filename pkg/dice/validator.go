package dice

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jleechanorg/claude-commands-sub003/pkg/response"
)

// Correction texts appended to the next prompt after a rejection. Each is
// strategy-specific: an anti-fabrication instruction differs from tool-usage
// guidance, and conflating them teaches the model the wrong lesson.
const (
	repromptCodeExecution = "Your previous response presented dice results without executing code that " +
		"calls a random number generator. Dice outcomes must come from genuine randomness. " +
		"Regenerate the turn: execute code that calls random.randint (or an equivalent RNG " +
		"primitive) to produce every roll, and report only those results."

	repromptNoCodeRun = "Your previous response presented dice results but did not execute any code. " +
		"Dice outcomes must come from genuine randomness. Regenerate the turn and execute " +
		"code that calls a random number generator for every roll."

	repromptMissingTool = "Your previous response presented dice results without calling a dice tool. " +
		"Dice outcomes must come from the server: regenerate the turn and request roll_dice, " +
		"roll_attack, roll_skill_check or roll_saving_throw for every roll instead of " +
		"inventing numbers."

	repromptToolError = "Your dice tool request was rejected: %s. Fix the tool call and regenerate the " +
		"turn. Skill checks and saving throws require a dc_reasoning argument stating why the " +
		"DC was chosen, produced before the roll."
)

// Validator decides whether a turn's dice claims are backed by genuine
// randomness evidence.
type Validator struct {
	strategy Strategy
	logger   *slog.Logger
}

// NewValidator creates a validator for the given enforcement strategy.
func NewValidator(strategy Strategy, logger *slog.Logger) *Validator {
	return &Validator{strategy: strategy, logger: logger}
}

// Check evaluates one turn. ev may be nil when the provider supplied no
// code-execution introspection; toolResults may be empty when no tools ran.
func (v *Validator) Check(pr *response.ParsedResponse, ev *Evidence, toolResults []ToolResult) Verdict {
	if !HasDiceContent(pr) {
		return Verdict{Accepted: true}
	}

	switch v.strategy {
	case StrategyNativeTwoPhase:
		return v.checkToolEvidence(toolResults)
	default:
		return v.checkCodeEvidence(ev, toolResults)
	}
}

// checkCodeEvidence enforces the code-execution strategy.
func (v *Validator) checkCodeEvidence(ev *Evidence, toolResults []ToolResult) Verdict {
	// Older turns predate this instrumentation entirely; with no tool and
	// no code-execution metadata there is nothing to judge against.
	if ev == nil && len(toolResults) == 0 {
		if v.logger != nil {
			v.logger.Debug("Dice present but no execution evidence available, accepting for backward compatibility")
		}
		return Verdict{Accepted: true}
	}

	if ev != nil && ev.RNGVerified {
		return Verdict{Accepted: true}
	}

	if ev != nil && ev.CodeExecutionUsed {
		// Code ran but no RNG call was detected: the classic fabrication of
		// printing a pre-chosen JSON blob.
		if v.logger != nil {
			v.logger.Warn("Dice fabrication detected: executed code contains no RNG call",
				"executable_parts", ev.ExecutableCodeParts,
				"result_parts", ev.CodeExecutionResultParts)
		}
		return Verdict{
			Accepted: false,
			Reason:   ReasonNoRNGCall,
			Reprompt: repromptCodeExecution,
		}
	}

	if v.logger != nil {
		v.logger.Warn("Dice fabrication detected: no code executed")
	}
	return Verdict{
		Accepted: false,
		Reason:   ReasonFabrication,
		Reprompt: repromptNoCodeRun,
	}
}

// checkToolEvidence enforces the native two-phase strategy. Tool output is
// ground truth: on acceptance, canonical rolls are re-derived from the tool
// results and the model's own claims are discarded.
func (v *Validator) checkToolEvidence(toolResults []ToolResult) Verdict {
	var valid []ToolResult
	var toolErrors []string

	for _, tr := range toolResults {
		if !IsDiceTool(tr.Tool) {
			continue
		}
		if errMsg, ok := tr.Result["error"]; ok {
			toolErrors = append(toolErrors, fmt.Sprintf("%s: %v", tr.Tool, errMsg))
			continue
		}
		if hasDicePayload(tr.Result) {
			valid = append(valid, tr)
		}
	}

	if len(valid) > 0 {
		rolls, events := DeriveRolls(valid)
		return Verdict{
			Accepted:    true,
			DiceRolls:   rolls,
			AuditEvents: events,
		}
	}

	if len(toolErrors) > 0 {
		// A rejected tool call is a validation failure, not fabrication:
		// the model tried the required mechanism and got the arguments
		// wrong.
		if v.logger != nil {
			v.logger.Info("Dice tool validation failure", "errors", toolErrors)
		}
		return Verdict{
			Accepted: false,
			Reason:   ReasonToolValidation,
			Reprompt: fmt.Sprintf(repromptToolError, strings.Join(toolErrors, "; ")),
		}
	}

	if v.logger != nil {
		v.logger.Warn("Dice fabrication detected: no dice tool evidence in turn")
	}
	return Verdict{
		Accepted: false,
		Reason:   ReasonFabrication,
		Reprompt: repromptMissingTool,
	}
}

// hasDicePayload reports whether a tool result carries roll data.
func hasDicePayload(result map[string]any) bool {
	for _, key := range []string{"roll", "total", "rolls", "formatted"} {
		if _, ok := result[key]; ok {
			return true
		}
	}
	return false
}

// DeriveRolls builds the canonical dice_rolls strings and audit records from
// authoritative tool results.
func DeriveRolls(results []ToolResult) ([]string, []map[string]any) {
	rolls := make([]string, 0, len(results))
	events := make([]map[string]any, 0, len(results))

	for _, tr := range results {
		if formatted, ok := tr.Result["formatted"].(string); ok && formatted != "" {
			rolls = append(rolls, formatted)
		} else if total, ok := tr.Result["total"]; ok {
			rolls = append(rolls, fmt.Sprintf("%s = %v", tr.Tool, total))
		}

		event := map[string]any{
			"tool":   tr.Tool,
			"result": tr.Result,
		}
		if len(tr.Args) > 0 {
			event["args"] = tr.Args
		}
		events = append(events, event)
	}
	return rolls, events
}
