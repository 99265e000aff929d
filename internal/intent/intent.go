// Package intent classifies search queries into intent categories. The
// trigger policy uses the classification to skip semantic retrieval for
// identifier-shaped queries, and the confidence evaluator uses it to build
// follow-up suggestions.
package intent

import (
	"strings"
	"unicode"
)

// Intent is a query intent category.
type Intent string

const (
	// IntentSymbol is an identifier-shaped query (CamelCase, snake_case,
	// qualified name).
	IntentSymbol Intent = "symbol"
	// IntentPath is a file path or filename query.
	IntentPath Intent = "path"
	// IntentError is an error message or stack trace fragment.
	IntentError Intent = "error"
	// IntentNaturalLanguage is everything else.
	IntentNaturalLanguage Intent = "natural_language"
)

var knownExtensions = []string{
	".rs", ".ts", ".tsx", ".js", ".jsx", ".py", ".go", ".java",
	".c", ".h", ".cpp", ".rb", ".swift",
}

var errorPatterns = []string{
	"error:", "Error:", "panic:", "FATAL", "exception", "Exception",
	"traceback", "at line", "thread '",
}

var symbolKinds = []string{
	"fn", "func", "function", "struct", "class", "enum", "trait",
	"interface", "type", "const", "method",
}

// Classify returns the intent category for a query.
func Classify(query string) Intent {
	trimmed := strings.TrimSpace(query)

	if isPathQuery(trimmed) {
		return IntentPath
	}
	if isErrorQuery(trimmed) {
		return IntentError
	}
	if isSymbolQuery(trimmed) {
		return IntentSymbol
	}
	return IntentNaturalLanguage
}

// ExtractIdentifier pulls the most identifier-looking token out of a query,
// for exact-symbol follow-up suggestions. Stricter than classification: only
// CamelCase, snake_case, or qualified names qualify, so plain prose never
// yields a bogus identifier. Returns "" when nothing qualifies.
func ExtractIdentifier(query string) string {
	best := ""
	for _, word := range strings.Fields(query) {
		word = strings.Trim(word, `"'.,;!?`)
		if word == "" {
			continue
		}
		if isStrongIdentifier(word) && len(word) > len(best) {
			best = word
		}
	}
	return best
}

func isStrongIdentifier(word string) bool {
	if len(word) <= 1 || isPathQuery(word) {
		return false
	}
	runes := []rune(word)
	for _, r := range runes[1:] {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return strings.Contains(word, "_") || strings.Contains(word, "::")
}

func isPathQuery(query string) bool {
	if strings.ContainsAny(query, `/\`) {
		return true
	}
	for _, ext := range knownExtensions {
		if strings.HasSuffix(query, ext) {
			return true
		}
	}
	return false
}

func isErrorQuery(query string) bool {
	if strings.ContainsAny(query, `"'`) {
		return true
	}
	for _, pattern := range errorPatterns {
		if strings.Contains(query, pattern) {
			return true
		}
	}
	return false
}

func isSymbolQuery(query string) bool {
	words := strings.Fields(query)

	if len(words) == 1 {
		return looksLikeIdentifier(words[0])
	}

	// Two words where the first names a symbol kind, e.g. "func ParseConfig".
	if len(words) == 2 {
		first := strings.ToLower(words[0])
		for _, kind := range symbolKinds {
			if first == kind {
				return true
			}
		}
	}

	return false
}

func looksLikeIdentifier(word string) bool {
	if len(word) <= 1 {
		return false
	}
	// CamelCase: uppercase after the first rune.
	runes := []rune(word)
	for _, r := range runes[1:] {
		if unicode.IsUpper(r) {
			return true
		}
	}
	// snake_case
	if strings.Contains(word, "_") {
		return true
	}
	// Qualified name: pkg::Sym or pkg.Sym (but not a filename).
	if strings.Contains(word, "::") {
		return true
	}
	if strings.Contains(word, ".") && !isPathQuery(word) {
		return true
	}
	// Plain alphanumeric identifier of useful length.
	if len(word) > 2 {
		for _, r := range word {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				return false
			}
		}
		return true
	}
	return false
}
