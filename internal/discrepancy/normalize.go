package discrepancy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are trailing entity designators stripped before company name
// comparison, so "Acme Inc" and "Acme LLC" normalize to the same name.
var legalSuffixes = []string{"INC", "LLC", "LTD", "CORP", "CORPORATION", "CO", "LP", "LLP"}

// foldDiacritics strips combining marks so accented and unaccented spellings
// compare equal ("Café" vs "Cafe").
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeText uppercases, folds diacritics, and collapses whitespace.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(folded)), " ")
}

// NormalizeName normalizes like NormalizeText and additionally strips a
// trailing legal-entity suffix and stray punctuation.
func NormalizeName(name string) string {
	normalized := NormalizeText(name)
	if normalized == "" {
		return ""
	}
	normalized = strings.TrimRight(normalized, ".,")
	for _, suffix := range legalSuffixes {
		if trimmed, ok := strings.CutSuffix(normalized, " "+suffix); ok {
			normalized = strings.TrimSpace(trimmed)
			break
		}
	}
	return strings.Join(strings.Fields(normalized), " ")
}

// JaccardSimilarity computes word-set similarity between two normalized
// strings: |intersection| / |union| of their whitespace-tokenized word sets.
func JaccardSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}
	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}
