package retrieval

import "strings"

// Similarity scores how close two normalized queries are, 0 to 1. It blends
// Jaccard overlap of character trigrams and bigrams; trigrams dominate so a
// shared rare word counts more than scattered letter pairs.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	runesA := significantRunes(a)
	runesB := significantRunes(b)
	if len(runesA) == 0 || len(runesB) == 0 {
		return 0
	}
	if string(runesA) == string(runesB) {
		return 1.0
	}

	tri := jaccard(ngrams(runesA, 3), ngrams(runesB, 3))
	bi := jaccard(ngrams(runesA, 2), ngrams(runesB, 2))
	return 0.7*tri + 0.3*bi
}

// questionLeads are interrogative openings stripped by QueryCore so a
// question and the statement subject that answers it compare as equals.
var questionLeads = []string{
	"what is ", "what are ", "what was ", "what's ",
	"who is ", "who are ", "who was ",
	"where is ", "where are ", "where was ",
	"when is ", "when was ",
	"why is ", "why are ",
	"how much is ", "how many is ",
}

// QueryCore strips a leading interrogative phrase and a trailing question
// mark, leaving the subject of the question.
func QueryCore(query string) string {
	q := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), "?"))
	for _, lead := range questionLeads {
		if strings.HasPrefix(q, lead) && len(q) > len(lead) {
			return strings.TrimSpace(strings.TrimPrefix(q, lead))
		}
	}
	return q
}

// containmentMinRunes guards the containment boost against trivially short
// substrings.
const containmentMinRunes = 8

// SubjectSimilarity is Similarity after stripping interrogative leads from
// both sides, so "what is X" scores 1.0 against a stored "X". When one
// subject wholly contains the other ("the capital of france" inside "paris
// is the capital of france") the score reflects how much of the container
// the contained part covers.
func SubjectSimilarity(a, b string) float64 {
	sim := Similarity(a, b)

	coreA, coreB := QueryCore(a), QueryCore(b)
	if coreSim := Similarity(coreA, coreB); coreSim > sim {
		sim = coreSim
	}

	runesA := significantRunes(coreA)
	runesB := significantRunes(coreB)
	contained, container := string(runesA), string(runesB)
	if len(runesA) > len(runesB) {
		contained, container = container, contained
	}
	if len([]rune(contained)) >= containmentMinRunes && strings.Contains(container, contained) {
		if boosted := 0.8 + 0.2*float64(len(contained))/float64(len(container)); boosted > sim {
			sim = boosted
		}
	}
	return sim
}

// significantRunes lowers the input and drops whitespace and punctuation so
// n-grams span word boundaries.
func significantRunes(input string) []rune {
	input = strings.ToLower(strings.TrimSpace(input))
	var runes []rune
	for _, r := range input {
		switch r {
		case ' ', ',', '.', ';', ':', '?', '!', '\'', '"', '\t', '\n':
		default:
			runes = append(runes, r)
		}
	}
	return runes
}

// ngrams extracts character n-grams as a set. Inputs shorter than n also
// contribute their individual runes so very short queries still compare.
func ngrams(runes []rune, n int) map[string]bool {
	if len(runes) == 0 {
		return nil
	}

	grams := make(map[string]bool, len(runes))
	for i := 0; i+n <= len(runes); i++ {
		grams[string(runes[i:i+n])] = true
	}
	if len(runes) <= n+1 {
		for _, r := range runes {
			grams[string(r)] = true
		}
	}
	return grams
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	intersection := 0
	for g := range small {
		if large[g] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
