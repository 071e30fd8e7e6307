package response

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Parser recovers ParsedResponse records from raw model output using a
// strategy cascade. Strategies are attempted in order of decreasing fidelity
// and the first success wins. Parse never returns nil.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser. A nil logger disables degradation logging.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// modeTagPattern matches an LLM-style bracketed prefix such as "[Mode: STORY]"
// ahead of the JSON payload.
var modeTagPattern = regexp.MustCompile(`^\[[^\[\]]{0,60}\]\s*`)

// simpleStringFields are recovered with a conventional quoted-string pattern;
// their values are short and do not contain unescaped quotes in practice.
var simpleStringFields = []string{
	"location_confirmed",
	"god_mode_response",
	"session_header",
}

var simpleStringPatterns = func() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(simpleStringFields))
	for _, f := range simpleStringFields {
		out[f] = regexp.MustCompile(`"` + f + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	}
	return out
}()

// quotedTextPattern locates any quoted run of text, used as a last-resort
// narrative guess by the aggressive rebuild strategy.
var quotedTextPattern = regexp.MustCompile(`"((?:[^"\\]|\\.){8,})"`)

// Parse recovers a structured record from raw model output. The second
// return value reports whether the text had to be repaired or partially
// reconstructed (strategies beyond boundary extraction).
func (p *Parser) Parse(text string) (*ParsedResponse, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return newParsedResponse(), false
	}

	// Strategy 1: direct decode.
	if m, ok := decodeObject(trimmed); ok {
		return fromMap(m), false
	}

	// Strategy 2: boundary extraction of the first balanced object.
	if m, ok := p.extractBoundary(trimmed); ok {
		if p.logger != nil {
			p.logger.Debug("Response recovered by boundary extraction")
		}
		return fromMap(m), false
	}

	// Strategy 3: truncation completion.
	if m, ok := p.completeTruncated(trimmed); ok {
		if p.logger != nil {
			p.logger.Info("Response recovered by truncation repair")
		}
		return fromMap(m), true
	}

	// Strategy 4: field-by-field recovery. The only strategy that can
	// return a partial result.
	if fields := p.recoverFields(trimmed); len(fields) > 0 {
		if p.logger != nil {
			p.logger.Warn("Response recovered field-by-field",
				"fields_found", len(fields))
		}
		return fromMap(fields), true
	}

	// Strategy 5: aggressive rebuild. Any quoted text is a narrative guess;
	// the absolute fallback treats the whole text as narrative.
	if p.logger != nil {
		p.logger.Warn("All structured recovery failed, using raw text as narrative",
			"length", len(trimmed))
	}
	pr := newParsedResponse()
	if match := quotedTextPattern.FindStringSubmatch(trimmed); match != nil {
		pr.Narrative = decodeStringEscapes(match[1])
	} else {
		pr.Narrative = trimmed
	}
	return pr, true
}

// decodeObject decodes text as a JSON object. A list is normalized by taking
// its first object element. A string scalar that itself decodes to an object
// is unwrapped (double-encoded responses). Any other scalar is a failure.
func decodeObject(text string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	switch tv := v.(type) {
	case map[string]any:
		return tv, true
	case []any:
		for _, e := range tv {
			if m, ok := e.(map[string]any); ok {
				return m, true
			}
		}
		return nil, false
	case string:
		var inner any
		if err := json.Unmarshal([]byte(tv), &inner); err != nil {
			return nil, false
		}
		if m, ok := inner.(map[string]any); ok {
			return m, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// extractBoundary strips an optional mode-tag prefix, locates the first JSON
// opener and re-decodes the balanced span.
func (p *Parser) extractBoundary(text string) (map[string]any, bool) {
	stripped := modeTagPattern.ReplaceAllString(text, "")
	start := strings.IndexAny(stripped, "{[")
	if start < 0 {
		return nil, false
	}
	end := scanBalanced(stripped, start)
	if end < 0 {
		return nil, false
	}
	return decodeObject(stripped[start:end])
}

// completeTruncated repairs a response cut off mid-token: unterminated
// strings are closed and missing closers appended in reverse nesting order.
func (p *Parser) completeTruncated(text string) (map[string]any, bool) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return nil, false
	}
	repaired := repairTruncated(text[start:])
	return decodeObject(repaired)
}

// recoverFields independently extracts each known field by name and
// assembles whatever subset is found. Runs when the document is too damaged
// to round-trip as a whole.
func (p *Parser) recoverFields(text string) map[string]any {
	fields := make(map[string]any)

	if narrative, ok := p.recoverNarrative(text); ok {
		fields["narrative"] = narrative
	}

	for field, pattern := range simpleStringPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			fields[field] = decodeStringEscapes(match[1])
		}
	}

	for _, field := range []string{"entities_mentioned", "dice_rolls", "dice_audit_events"} {
		span, ok := extractArraySpan(text, field)
		if !ok {
			continue
		}
		var arr []any
		if err := json.Unmarshal([]byte(span), &arr); err == nil {
			fields[field] = arr
		}
	}

	for _, field := range []string{"state_updates", "debug_info", "planning_block"} {
		obj, ok := p.recoverObjectField(text, field)
		if ok {
			fields[field] = obj
		}
	}

	return fields
}

// recoverNarrative extracts the narrative value with the quote-terminator
// heuristic: narrative text is long free prose that may contain unescaped
// quote marks, so the closing quote is identified by its JSON context rather
// than by the first quote encountered.
func (p *Parser) recoverNarrative(text string) (string, bool) {
	idx := findFieldValue(text, "narrative")
	if idx < 0 || idx >= len(text) || text[idx] != '"' {
		return "", false
	}
	start := idx + 1
	end := findNarrativeEnd(text, start)
	if end < 0 {
		// Unterminated narrative: the value runs to end-of-text.
		return decodeStringEscapes(strings.TrimSpace(text[start:])), true
	}
	return decodeStringEscapes(text[start:end]), true
}

// recoverObjectField extracts a nested-object field, repairing a truncated
// span when the balanced extraction fails.
func (p *Parser) recoverObjectField(text, field string) (map[string]any, bool) {
	if span, ok := ExtractNestedObject(text, field); ok {
		var m map[string]any
		if err := json.Unmarshal([]byte(span), &m); err == nil {
			return m, true
		}
	}

	// The object may itself be cut off. Repair from its opening brace to
	// end-of-text.
	idx := findFieldValue(text, field)
	if idx < 0 || idx >= len(text) || text[idx] != '{' {
		return nil, false
	}
	repaired := repairTruncated(text[idx:])
	var m map[string]any
	if err := json.Unmarshal([]byte(repaired), &m); err != nil {
		return nil, false
	}
	return m, true
}
