package response

import (
	"strings"
	"unicode/utf16"
)

// terminatorLookahead bounds the forward scan used when deciding whether a
// quote character actually terminates a JSON string. The cap keeps the
// heuristic linear on very long narrative values.
const terminatorLookahead = 120

// scanBalanced returns the index one past the close bracket matching the
// opener at start, tracking nesting depth, string state and backslash
// escaping. Braces inside string literals are ignored. Returns -1 when the
// text ends before the opener is balanced.
func scanBalanced(s string, start int) int {
	open := s[start]
	var close byte
	switch open {
	case '{':
		close = '}'
	case '[':
		close = ']'
	default:
		return -1
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			// A backslash consumes exactly the next character; it never
			// flips string state by itself.
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			if inString {
				escaped = true
			}
		case c == '"':
			inString = !inString
		case inString:
			// Brackets inside strings are prose, not structure.
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// ExtractNestedObject locates `"field": {...}` in text and returns the full
// object span including nested braces. Naive regex is provably wrong here:
// the object may contain further brace pairs and brace characters inside
// string literals.
func ExtractNestedObject(text, field string) (string, bool) {
	idx := findFieldValue(text, field)
	if idx < 0 || idx >= len(text) || text[idx] != '{' {
		return "", false
	}
	end := scanBalanced(text, idx)
	if end < 0 {
		return "", false
	}
	return text[idx:end], true
}

// extractArraySpan locates `"field": [...]` and returns the full array span.
func extractArraySpan(text, field string) (string, bool) {
	idx := findFieldValue(text, field)
	if idx < 0 || idx >= len(text) || text[idx] != '[' {
		return "", false
	}
	end := scanBalanced(text, idx)
	if end < 0 {
		return "", false
	}
	return text[idx:end], true
}

// findFieldValue returns the index of the first non-whitespace character of
// the value for `"field":`, or -1. Only occurrences outside string literals
// count: a narrative that quotes its own JSON must not match.
func findFieldValue(text, field string) int {
	needle := `"` + field + `"`
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			if inString {
				escaped = true
			}
			continue
		}
		if c == '"' {
			if !inString && strings.HasPrefix(text[i:], needle) {
				j := i + len(needle)
				j = skipWhitespace(text, j)
				if j < len(text) && text[j] == ':' {
					return skipWhitespace(text, j+1)
				}
			}
			inString = !inString
		}
	}
	return -1
}

// findNarrativeEnd scans the contents of a narrative string value starting
// just after its opening quote and returns the index of the terminating
// quote. Long free-text values routinely contain unescaped quote marks, so a
// quote is accepted as the true terminator only when, after whitespace, it is
// followed by '}', ']', end-of-text, or a comma that itself leads to the next
// key or a closer. Returns -1 when no terminator is found.
func findNarrativeEnd(s string, start int) int {
	for i := start; i < len(s); i++ {
		c := s[i]
		if c == '\\' {
			i++
			continue
		}
		if c != '"' {
			continue
		}
		if isTerminatorContext(s, i+1) {
			return i
		}
	}
	return -1
}

// isTerminatorContext reports whether position j (just past a quote) looks
// like the end of a JSON string value. The lookahead is bounded.
func isTerminatorContext(s string, j int) bool {
	limit := j + terminatorLookahead
	if limit > len(s) {
		limit = len(s)
	}
	k := skipWhitespaceBounded(s, j, limit)
	if k >= len(s) {
		return true
	}
	switch s[k] {
	case '}', ']':
		return true
	case ',':
		k = skipWhitespaceBounded(s, k+1, limit)
		if k >= len(s) {
			return true
		}
		switch s[k] {
		case '"', '}', ']':
			return true
		}
	}
	return false
}

// repairTruncated closes an unterminated trailing string when the unescaped
// quote count is odd, strips a dangling comma or key fragment, and appends
// the still-open closers in reverse nesting order.
func repairTruncated(s string) string {
	if countUnescapedQuotes(s)%2 == 1 {
		s += `"`
	}

	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			if inString {
				escaped = true
			}
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, '}')
		case c == '[':
			stack = append(stack, ']')
		case c == '}' || c == ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	// A truncation often lands right after a comma or a dangling `"key":`,
	// which no amount of closers can fix.
	trimmed := strings.TrimRight(s, " \t\r\n")
	trimmed = strings.TrimSuffix(trimmed, ",")
	if strings.HasSuffix(strings.TrimRight(trimmed, " \t\r\n"), ":") {
		trimmed = strings.TrimRight(trimmed, " \t\r\n")
		trimmed += " null"
	}

	for i := len(stack) - 1; i >= 0; i-- {
		trimmed += string(stack[i])
	}
	return trimmed
}

// countUnescapedQuotes counts quote characters not preceded by an active
// backslash escape.
func countUnescapedQuotes(s string) int {
	count := 0
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			count++
		}
	}
	return count
}

// decodeStringEscapes resolves JSON escape sequences in raw string contents
// recovered by scanning rather than by the decoder. Invalid sequences pass
// through literally; the contents came from a malformed document, so strict
// rejection would defeat the recovery.
func decodeStringEscapes(raw string) string {
	if !strings.ContainsRune(raw, '\\') {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case '/':
			b.WriteByte('/')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			if i+4 < len(raw) {
				if r, ok := decodeHexRune(raw[i+1 : i+5]); ok {
					b.WriteRune(r)
					i += 4
					continue
				}
			}
			b.WriteByte('\\')
			b.WriteByte('u')
		default:
			b.WriteByte('\\')
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}

func decodeHexRune(hex string) (rune, bool) {
	var v rune
	for _, c := range hex {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= c - '0'
		case c >= 'a' && c <= 'f':
			v |= c - 'a' + 10
		case c >= 'A' && c <= 'F':
			v |= c - 'A' + 10
		default:
			return 0, false
		}
	}
	if utf16.IsSurrogate(v) {
		return '�', true
	}
	return v, true
}

func skipWhitespace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func skipWhitespaceBounded(s string, i, limit int) int {
	for i < limit && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}
