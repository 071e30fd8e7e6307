package dice

import (
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/jwebster45206/d20"
)

// Roller executes dice tool requests server-side. The random source is
// injected so callers control determinism; tests and the replay CLI pass a
// seeded source, production passes a time-seeded one.
type Roller struct {
	rng    *rand.Rand
	actor  *d20.Actor
	logger *slog.Logger
}

// NewRoller creates a roller over the given random source.
func NewRoller(src rand.Source, logger *slog.Logger) *Roller {
	return &Roller{rng: rand.New(src), logger: logger}
}

// WithActor attaches a character sheet used to resolve skill and save
// modifiers when the tool call does not supply one. Returns the Roller for
// chaining.
func (r *Roller) WithActor(actor *d20.Actor) *Roller {
	r.actor = actor
	return r
}

// notationRe parses standard dice notation: "d20", "2d6", "1d8+3", "4d6-1".
var notationRe = regexp.MustCompile(`^(\d*)d(\d+)\s*([+-]\s*\d+)?$`)

const (
	maxDiceCount = 100
	maxDieSides  = 1000
)

// Execute runs one dice tool call and returns its result payload. Argument
// problems yield an {"error": ...} result rather than a Go error: the result
// is relayed to the model, which is expected to correct the call.
func (r *Roller) Execute(tool string, args map[string]any) map[string]any {
	switch tool {
	case "roll_dice":
		return r.rollDice(args)
	case "roll_attack":
		return r.rollAttack(args)
	case "roll_skill_check":
		return r.rollCheck(args, "skill")
	case "roll_saving_throw":
		return r.rollCheck(args, "save")
	default:
		return errResult("unknown dice tool %q", tool)
	}
}

// rollDice handles a plain notation roll.
func (r *Roller) rollDice(args map[string]any) map[string]any {
	notation, _ := args["notation"].(string)
	if notation == "" {
		return errResult("roll_dice requires a notation argument, e.g. \"2d6+3\"")
	}
	rolls, modifier, err := r.rollNotation(notation)
	if err != nil {
		return errResult("%v", err)
	}
	return r.result(notation, rolls, modifier)
}

// rollAttack rolls 1d20 plus an attack bonus, optionally judged against a
// target AC.
func (r *Roller) rollAttack(args map[string]any) map[string]any {
	bonus := intArg(args, "attack_bonus", 0)
	roll := r.rng.Intn(20) + 1
	total := roll + bonus

	notation := fmt.Sprintf("1d20%+d", bonus)
	res := r.result(notation, []int{roll}, bonus)
	res["critical"] = roll == 20
	res["fumble"] = roll == 1

	if targetAC, ok := lookupInt(args, "target_ac"); ok {
		res["target_ac"] = targetAC
		res["hit"] = roll == 20 || (roll != 1 && total >= targetAC)
	}
	if r.logger != nil {
		r.logger.Debug("Attack roll executed", "roll", roll, "bonus", bonus, "total", total)
	}
	return res
}

// rollCheck handles skill checks and saving throws. Both demand a
// dc_reasoning argument produced before the roll, so the model cannot
// rationalize a DC after seeing the result.
func (r *Roller) rollCheck(args map[string]any, kind string) map[string]any {
	name, _ := args[kind].(string)
	if name == "" {
		return errResult("missing %q argument naming the %s", kind, kind)
	}

	reasoning, _ := args["dc_reasoning"].(string)
	if strings.TrimSpace(reasoning) == "" {
		return errResult("missing dc_reasoning: state why the DC was chosen before rolling")
	}

	dc, ok := lookupInt(args, "dc")
	if !ok {
		return errResult("missing dc argument")
	}

	modifier, hasModifier := lookupInt(args, "modifier")
	if !hasModifier {
		modifier = r.actorModifier(name)
	}

	roll := r.rng.Intn(20) + 1
	total := roll + modifier

	notation := fmt.Sprintf("1d20%+d", modifier)
	res := r.result(notation, []int{roll}, modifier)
	res[kind] = name
	res["dc"] = dc
	res["dc_reasoning"] = reasoning
	res["success"] = total >= dc
	if r.logger != nil {
		r.logger.Debug("Check roll executed",
			"kind", kind, "name", name, "roll", roll, "modifier", modifier, "dc", dc)
	}
	return res
}

// rollNotation rolls the dice described by notation and returns the
// individual die results and the flat modifier.
func (r *Roller) rollNotation(notation string) ([]int, int, error) {
	m := notationRe.FindStringSubmatch(strings.TrimSpace(notation))
	if m == nil {
		return nil, 0, fmt.Errorf("invalid dice notation %q", notation)
	}

	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	modifier := 0
	if m[3] != "" {
		modifier, _ = strconv.Atoi(strings.ReplaceAll(m[3], " ", ""))
	}

	if count < 1 || count > maxDiceCount {
		return nil, 0, fmt.Errorf("dice count %d out of range", count)
	}
	if sides < 2 || sides > maxDieSides {
		return nil, 0, fmt.Errorf("die sides %d out of range", sides)
	}

	rolls := make([]int, count)
	for i := range rolls {
		rolls[i] = r.rng.Intn(sides) + 1
	}
	return rolls, modifier, nil
}

// result builds the standard dice payload.
func (r *Roller) result(notation string, rolls []int, modifier int) map[string]any {
	total := modifier
	for _, v := range rolls {
		total += v
	}

	parts := make([]string, len(rolls))
	for i, v := range rolls {
		parts[i] = strconv.Itoa(v)
	}
	formatted := fmt.Sprintf("%s = %d (rolls: %s", notation, total, strings.Join(parts, ", "))
	if modifier != 0 {
		formatted += fmt.Sprintf("%+d", modifier)
	}
	formatted += ")"

	return map[string]any{
		"notation":  notation,
		"roll":      rolls[0],
		"rolls":     rolls,
		"total":     total,
		"formatted": formatted,
	}
}

// actorModifier resolves a skill or save modifier from the attached
// character sheet. Unknown attributes roll flat.
func (r *Roller) actorModifier(name string) int {
	if r.actor == nil {
		return 0
	}
	key := strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	if v, ok := r.actor.Attribute(key); ok {
		return v
	}
	return 0
}

func errResult(format string, args ...any) map[string]any {
	return map[string]any{"error": fmt.Sprintf(format, args...)}
}

// intArg reads an integer argument with a default.
func intArg(args map[string]any, key string, def int) int {
	if v, ok := lookupInt(args, key); ok {
		return v
	}
	return def
}

// lookupInt reads an integer argument, tolerating the float64 values JSON
// decoding produces and digit strings the model sometimes sends.
func lookupInt(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}
