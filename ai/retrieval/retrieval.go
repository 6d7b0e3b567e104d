// Package retrieval ranks stored knowledge entries against a normalized query.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/hrygo/sagely/store"
)

// Match-type bonus tiers. Higher tiers always outrank lower ones.
const (
	MatchNone      = 0
	MatchSubstring = 2
	MatchSuffix    = 3
	MatchPrefix    = 3
	MatchFoldEqual = 4
	MatchExact     = 5
)

const (
	// maxResults caps how many ranked candidates are returned.
	maxResults = 10
	// usageSimilarity is the similarity above which the top candidate's
	// usage counter is bumped.
	usageSimilarity = 0.55
)

// ScoredEntry is a knowledge entry with its ranking signals.
type ScoredEntry struct {
	Entry          *store.KnowledgeEntry
	Similarity     float64
	MatchType      int
	KeywordMatches int
}

// Retriever finds and ranks knowledge entries for a query.
type Retriever struct {
	store     *store.Store
	threshold float64
}

func New(s *store.Store, threshold float64) *Retriever {
	return &Retriever{store: s, threshold: threshold}
}

// FindAnswers returns ranked candidates visible to scopeUserID. Storage
// failures degrade to an empty result after one simplified retry; the caller
// treats that as "nothing known" and falls through to the next stage.
// The top candidate's usage counter is incremented when its similarity
// clears the usage threshold.
func (r *Retriever) FindAnswers(ctx context.Context, query string, scopeUserID *int32) []ScoredEntry {
	scope := int32(0)
	if scopeUserID != nil {
		scope = *scopeUserID
	}

	candidates, err := r.store.ListKnowledge(ctx, &store.FindKnowledge{VisibleTo: &scope})
	if err != nil {
		slog.Warn("knowledge listing failed, retrying with substring find", "error", err)
		candidates = r.substringFallback(ctx, query, scope)
	}
	if len(candidates) == 0 {
		return nil
	}

	tokens := queryTokens(query)

	scored := make([]ScoredEntry, 0, len(candidates))
	for _, entry := range candidates {
		se := ScoredEntry{
			Entry:          entry,
			Similarity:     SubjectSimilarity(query, entry.NormalizedQuery),
			MatchType:      matchType(query, entry.NormalizedQuery),
			KeywordMatches: keywordMatches(tokens, entry.NormalizedQuery),
		}
		if !r.admit(query, se) {
			continue
		}
		scored = append(scored, se)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.MatchType != b.MatchType {
			return a.MatchType > b.MatchType
		}
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.KeywordMatches != b.KeywordMatches {
			return a.KeywordMatches > b.KeywordMatches
		}
		if a.Entry.Confidence != b.Entry.Confidence {
			return a.Entry.Confidence > b.Entry.Confidence
		}
		return a.Entry.TimesUsed > b.Entry.TimesUsed
	})
	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}

	scored = relevanceFilter(scored, len(tokens))

	if len(scored) > 0 && scored[0].Similarity > usageSimilarity {
		if err := r.store.IncrementKnowledgeUsage(ctx, scored[0].Entry.ID); err != nil {
			slog.Warn("failed to increment knowledge usage", "id", scored[0].Entry.ID, "error", err)
		} else {
			scored[0].Entry.TimesUsed++
		}
	}

	return scored
}

// admit applies the admission gate: a candidate enters ranking only when it
// clears the similarity threshold, contains or is contained by the query, or
// shares at least one token longer than three runes.
func (r *Retriever) admit(query string, se ScoredEntry) bool {
	if se.Similarity > r.threshold {
		return true
	}
	candidate := se.Entry.NormalizedQuery
	if strings.Contains(candidate, query) || strings.Contains(query, candidate) {
		return true
	}
	for _, tok := range strings.Fields(query) {
		if len([]rune(tok)) > 3 && strings.Contains(candidate, tok) {
			return true
		}
	}
	return false
}

// relevanceFilter drops weakly related survivors of the admission gate.
func relevanceFilter(scored []ScoredEntry, queryTokenCount int) []ScoredEntry {
	kept := scored[:0]
	for _, se := range scored {
		switch {
		case se.Similarity > 0.70:
		case se.MatchType >= MatchSubstring:
		case se.KeywordMatches > 0 && se.Similarity > usageSimilarity:
		case queryTokenCount > 2 && se.KeywordMatches*3 >= queryTokenCount:
		default:
			continue
		}
		kept = append(kept, se)
	}
	return kept
}

func matchType(query, candidate string) int {
	switch {
	case query == candidate:
		return MatchExact
	case strings.EqualFold(query, candidate) || QueryCore(query) == QueryCore(candidate):
		return MatchFoldEqual
	case strings.HasPrefix(candidate, query):
		return MatchPrefix
	case strings.HasSuffix(candidate, query):
		return MatchSuffix
	case strings.Contains(candidate, query) || strings.Contains(query, candidate):
		return MatchSubstring
	default:
		return MatchNone
	}
}

// queryTokens returns the query tokens longer than two runes, the ones that
// carry meaning for keyword overlap.
func queryTokens(query string) []string {
	var tokens []string
	for _, tok := range strings.Fields(query) {
		if len([]rune(tok)) > 2 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func keywordMatches(tokens []string, candidate string) int {
	n := 0
	for _, tok := range tokens {
		if strings.Contains(candidate, tok) {
			n++
		}
	}
	return n
}

// substringFallback is the one retry after a failed listing: a narrow find on
// the longest meaningful query token. A second failure yields nothing.
func (r *Retriever) substringFallback(ctx context.Context, query string, scope int32) []*store.KnowledgeEntry {
	longest := ""
	for _, tok := range strings.Fields(query) {
		if len(tok) > len(longest) {
			longest = tok
		}
	}
	if len([]rune(longest)) <= 3 {
		return nil
	}

	candidates, err := r.store.ListKnowledge(ctx, &store.FindKnowledge{
		QueryLike: &longest,
		VisibleTo: &scope,
	})
	if err != nil {
		slog.Warn("substring fallback find failed", "error", err)
		return nil
	}
	return candidates
}
