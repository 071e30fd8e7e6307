package dice

import (
	"regexp"
	"strings"
)

// The RNG-call detector is a best-effort allowlist of known randomness API
// call shapes in executed code, not a formal analysis. Novel or obfuscated
// randomness sources will produce false negatives; treat a match as a
// heuristic anti-fabrication signal only.

// directCallPatterns match randomness invocations that name their module.
var directCallPatterns = []*regexp.Regexp{
	// random.randint(...), random.choice(...), random.random(), ...
	regexp.MustCompile(`\brandom\.(randint|randrange|choice|choices|sample|shuffle|random|uniform)\s*\(`),
	// numpy namespace aliases: np.random.randint(...), numpy.random.choice(...)
	regexp.MustCompile(`\b(np|numpy)\.random\.\w+\s*\(`),
	// generator objects: np.random.default_rng().integers(...)
	regexp.MustCompile(`\bdefault_rng\s*\([^)]*\)\s*\.\s*\w+\s*\(`),
	// chained constructors: random.SystemRandom().randint(...)
	regexp.MustCompile(`\bSystemRandom\s*\(\s*\)\s*\.\s*\w+\s*\(`),
	// secrets module
	regexp.MustCompile(`\bsecrets\.(randbelow|randbits|choice)\s*\(`),
}

// fromImportPattern captures the imported names of a
// `from random import ...` statement.
var fromImportPattern = regexp.MustCompile(`\bfrom\s+random\s+import\s+([A-Za-z_,\s]+)`)

// importedRNGNames are the names from the random module that generate
// randomness when called bare after a from-import.
var importedRNGNames = map[string]bool{
	"randint":   true,
	"randrange": true,
	"choice":    true,
	"choices":   true,
	"sample":    true,
	"shuffle":   true,
	"random":    true,
	"uniform":   true,
}

// ContainsRNGCall reports whether the executed code's source text contains a
// recognized call to a randomness primitive.
func ContainsRNGCall(code string) bool {
	for _, p := range directCallPatterns {
		if p.MatchString(code) {
			return true
		}
	}

	// From-imports: the imported name must also be called bare.
	for _, match := range fromImportPattern.FindAllStringSubmatch(code, -1) {
		for _, name := range strings.Split(match[1], ",") {
			name = strings.TrimSpace(name)
			// Lines like "from random import randint\n" capture trailing
			// text; keep the first identifier only.
			if i := strings.IndexAny(name, " \t\n"); i >= 0 {
				name = name[:i]
			}
			if name == "" || !importedRNGNames[name] {
				continue
			}
			barCall := regexp.MustCompile(`(^|[^.\w])` + name + `\s*\(`)
			if barCall.MatchString(code) {
				return true
			}
		}
	}
	return false
}
