// Package dice enforces dice integrity for model turns: a dice outcome
// presented in model output must be backed by evidence of a genuine
// randomness invocation, either code executed in a provider sandbox or a
// server-side dice tool call. It also implements the server-side dice tool
// executor that produces that evidence for the tool-calling strategy.
package dice

// Strategy selects the enforcement mode for a model/provider pairing.
type Strategy string

const (
	// StrategyCodeExecution requires the model to execute code containing a
	// genuine call to a randomness primitive.
	StrategyCodeExecution Strategy = "code_execution"

	// StrategyNativeTwoPhase requires the model to request a server-side
	// dice tool; the server's tool result is authoritative.
	StrategyNativeTwoPhase Strategy = "native_two_phase"
)

// Evidence summarizes provider-response introspection for one turn: whether
// code was executed, what it printed, and whether the executed source was
// confirmed to invoke a random-number generator. Produced outside this
// package by the provider client; never mutated here.
type Evidence struct {
	CodeExecutionUsed        bool   `json:"code_execution_used"`
	ExecutableCodeParts      int    `json:"executable_code_parts"`
	CodeExecutionResultParts int    `json:"code_execution_result_parts"`
	Stdout                   string `json:"stdout"`
	StdoutIsValidJSON        bool   `json:"stdout_is_valid_json"`
	CodeContainsRNG          bool   `json:"code_contains_rng"`
	RNGVerified              bool   `json:"rng_verified"`
}

// ToolResult is one server-executed tool call. Result either carries an
// "error" key (a failed validation, not fabrication evidence) or dice
// payload keys (roll/total/rolls/formatted).
type ToolResult struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	Result map[string]any `json:"result"`
}

// diceTools is the set of tool names whose results count as dice evidence.
var diceTools = map[string]bool{
	"roll_dice":         true,
	"roll_attack":       true,
	"roll_skill_check":  true,
	"roll_saving_throw": true,
}

// IsDiceTool reports whether name belongs to the dice tool set.
func IsDiceTool(name string) bool {
	return diceTools[name]
}

// Reason classifies why a turn was rejected.
type Reason string

const (
	// ReasonNone: the turn was accepted.
	ReasonNone Reason = ""

	// ReasonFabrication: dice outcomes appeared without any corroborating
	// randomness invocation.
	ReasonFabrication Reason = "fabrication"

	// ReasonNoRNGCall: code was executed but contained no recognized call
	// to a randomness primitive (the classic pattern of printing a
	// hard-coded JSON blob).
	ReasonNoRNGCall Reason = "no_rng_call"

	// ReasonToolValidation: the dice tool was invoked but rejected the
	// request (for example a missing dc_reasoning argument). Not treated
	// as fabrication.
	ReasonToolValidation Reason = "tool_validation"
)

// Verdict is the validator's decision for one turn. On acceptance under the
// two-phase strategy, DiceRolls and AuditEvents are re-derived from the
// authoritative tool results, overriding whatever the model claimed.
type Verdict struct {
	Accepted    bool
	Reason      Reason
	Reprompt    string
	DiceRolls   []string
	AuditEvents []map[string]any
}
