// Package normalize provides deterministic text cleanup for incoming queries.
//
// Normalization is total and idempotent: it never fails, always returns a
// string (possibly empty), and applying it twice yields the same result as
// applying it once. Every query entering the resolution pipeline and every
// key stored in the knowledge base goes through Normalize, so matching is
// insensitive to casing, broken diacritics, filler lead-ins and stray
// punctuation.
package normalize

import (
	"strings"
	"unicode"
)

// DefaultMaxLen is the rune length queries are truncated to when the caller
// does not configure a limit.
const DefaultMaxLen = 500

// confusableRepairs maps common UTF-8 mojibake sequences back to the intended
// character. The table is fixed; unknown sequences pass through untouched.
var confusableRepairs = map[string]string{
	"Ã¡": "á", "Ã©": "é", "Ã­": "í", "Ã³": "ó", "Ãº": "ú",
	"Ã±": "ñ", "Ã¤": "ä", "Ã¶": "ö", "Ã¼": "ü", "Ã§": "ç",
	"Ã ": "à", "Ã¨": "è", "Ã¬": "ì", "Ã²": "ò", "Ã¹": "ù",
	"â€™": "'", "â€œ": "\"", "â€": "\"", "â€“": "-", "â€”": "-",
}

// diacriticFold maps accented letters to their base letter so that "café"
// and "cafe" normalize to the same key.
var diacriticFold = map[rune]rune{
	'á': 'a', 'à': 'a', 'â': 'a', 'ä': 'a', 'ã': 'a', 'å': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i',
	'ó': 'o', 'ò': 'o', 'ô': 'o', 'ö': 'o', 'õ': 'o',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u',
	'ñ': 'n', 'ç': 'c', 'ý': 'y',
}

// fillerPrefixes are lead-in phrases stripped from the front of a query.
// Ordered longest-first so the most specific phrase wins.
var fillerPrefixes = []string{
	"i would like to know",
	"could you tell me",
	"can you tell me",
	"i'd like to know",
	"i want to know",
	"please tell me",
	"do you know",
	"tell me",
}

// Normalizer performs deterministic query cleanup.
type Normalizer struct {
	maxLen int
}

// New creates a Normalizer truncating to maxLen runes.
// A non-positive maxLen uses DefaultMaxLen.
func New(maxLen int) *Normalizer {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Normalizer{maxLen: maxLen}
}

// Normalize cleans raw input. Total function, never fails.
func (n *Normalizer) Normalize(raw string) string {
	s := repairConfusables(raw)
	s = foldRunes(s)

	// Cleanup and filler stripping can expose each other's work (a stripped
	// filler may leave leading punctuation, trimmed punctuation may expose a
	// filler), so iterate to a fixpoint. Each round strictly shrinks the
	// string, so this terminates.
	s = stabilize(s)

	if runes := []rune(s); len(runes) > n.maxLen {
		s = string(runes[:n.maxLen])
		s = stabilize(s)
	}
	return s
}

// stabilize applies whitespace/punctuation collapsing, boundary trimming and
// filler stripping until the string stops changing.
func stabilize(s string) string {
	for {
		prev := s
		s = collapseSpace(s)
		s = collapsePunct(s)
		s = trimBoundary(s)
		s = stripFiller(s)
		if s == prev {
			return s
		}
	}
}

func repairConfusables(s string) string {
	if !strings.ContainsRune(s, 'Ã') && !strings.Contains(s, "â€") {
		return s
	}
	for broken, fixed := range confusableRepairs {
		s = strings.ReplaceAll(s, broken, fixed)
	}
	return s
}

// foldRunes lowercases and folds diacritics in a single pass.
func foldRunes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		r = unicode.ToLower(r)
		if folded, ok := diacriticFold[r]; ok {
			r = folded
		}
		b.WriteRune(r)
	}
	return b.String()
}

// collapseSpace collapses any whitespace run to a single space and trims.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// collapsePunct collapses a run of the same punctuation rune to one.
func collapsePunct(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var last rune = -1
	for _, r := range s {
		if r == last && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
			continue
		}
		b.WriteRune(r)
		last = r
	}
	return b.String()
}

// trimBoundary strips non-alphanumeric runes from both ends.
func trimBoundary(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// stripFiller removes one leading filler phrase, if present.
// The phrase must end at a word boundary.
func stripFiller(s string) string {
	for _, prefix := range fillerPrefixes {
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		rest := s[len(prefix):]
		if rest == "" {
			return ""
		}
		if rest[0] == ' ' {
			return rest[1:]
		}
	}
	return s
}
