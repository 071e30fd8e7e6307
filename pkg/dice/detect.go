package dice

import (
	"regexp"
	"strings"

	"github.com/jleechanorg/claude-commands-sub003/pkg/response"
)

const (
	// narrativeScanCap bounds the narrative scan so pathological response
	// lengths cannot make detection expensive.
	narrativeScanCap = 5000

	// keywordWindow is the distance within which a "rolls a N" phrase must
	// sit next to a combat keyword to count as a dice claim. Keeps prose
	// like "rolls of thunder" from tripping detection.
	keywordWindow = 80
)

// notationPattern matches dice notation such as d20, 2d6, 1d8+3.
var notationPattern = regexp.MustCompile(`(?i)\b\d*d\d+(?:\s*[+-]\s*\d+)?\b`)

// diceTagPattern matches an explicit [dice:...] markup tag.
var diceTagPattern = regexp.MustCompile(`(?i)\[dice:[^\]]*\]`)

// rollsPhrasePattern matches natural-language roll claims ("rolls a 15").
var rollsPhrasePattern = regexp.MustCompile(`(?i)\brolls?\s+an?\s+\d+\b`)

// combatKeywords anchor a "rolls a N" phrase to an actual game mechanic.
var combatKeywords = []string{
	"attack", "damage", "check", "save", "saving", "skill",
	"initiative", "combat", "hit", "dc", "d20", "dodge", "spell",
}

// HasDiceContent reports whether the parsed turn claims any dice outcome:
// structured roll fields, dice notation or tags in the narrative, or a
// natural-language roll phrase near a combat keyword.
func HasDiceContent(pr *response.ParsedResponse) bool {
	if pr == nil {
		return false
	}
	if len(pr.DiceRolls) > 0 || len(pr.DiceAuditEvents) > 0 {
		return true
	}
	return narrativeClaimsDice(pr.Narrative)
}

// narrativeClaimsDice scans a bounded prefix of the narrative for dice
// claims.
func narrativeClaimsDice(narrative string) bool {
	text := narrative
	if len(text) > narrativeScanCap {
		text = text[:narrativeScanCap]
	}

	if notationPattern.MatchString(text) {
		return true
	}
	if diceTagPattern.MatchString(text) {
		return true
	}

	lower := strings.ToLower(text)
	for _, loc := range rollsPhrasePattern.FindAllStringIndex(text, -1) {
		start := loc[0] - keywordWindow
		if start < 0 {
			start = 0
		}
		end := loc[1] + keywordWindow
		if end > len(lower) {
			end = len(lower)
		}
		window := lower[start:end]
		for _, kw := range combatKeywords {
			if strings.Contains(window, kw) {
				return true
			}
		}
	}
	return false
}
