// Package intent classifies normalized queries into a small set of user
// intents using a declarative rule table and a generic scorer.
//
// Classification is deterministic and stateless: no learned model, no
// external calls. The rule data lives in rules.go and is evaluated by a
// single scoring loop, which keeps the logic auditable and testable
// independently from the pattern data.
package intent

import (
	"regexp"
	"strings"
	"time"

	"github.com/hrygo/sagely/ai/cache"
)

// Intent represents the type of user intent.
type Intent string

const (
	IntentLearning   Intent = "learning"
	IntentQuestion   Intent = "question"
	IntentCorrection Intent = "correction"
	IntentGreeting   Intent = "greeting"
)

// priorityOrder breaks score ties: the intent evaluated first wins.
var priorityOrder = []Intent{IntentLearning, IntentGreeting, IntentCorrection, IntentQuestion}

// ruleWeight is the fixed increment each matching rule contributes.
const ruleWeight = 0.25

// defaultConfidence is used when no intent reaches a single rule's weight.
const defaultConfidence = 0.5

// Rule is one pattern entry of the classification table.
type Rule struct {
	Pattern *regexp.Regexp
	Intent  Intent
	Weight  float64
}

// Classification is the result of classifying a query.
type Classification struct {
	Intent     Intent
	Confidence float64
	// Captures holds named submatches of the strongest matching rule for
	// the winning intent (e.g. subject/value of a teach statement).
	Captures map[string]string
}

// Classifier scores queries against the rule table.
// A small LRU keyed on the query avoids re-scoring repeated inputs.
type Classifier struct {
	rules     []Rule
	decisions *cache.LRUCache[string, Classification]
}

// NewClassifier creates a classifier over the default rule table.
func NewClassifier() *Classifier {
	return &Classifier{
		rules:     defaultRules,
		decisions: cache.NewLRUCache[string, Classification](500, 5*time.Minute),
	}
}

// Classify scores the normalized query against every rule and returns the
// dominant intent.
func (c *Classifier) Classify(query string) Classification {
	if hit, ok := c.decisions.Get(query); ok {
		return hit
	}

	result := c.score(query)
	c.decisions.Set(query, result, 0)
	return result
}

func (c *Classifier) score(query string) Classification {
	scores := make(map[Intent]float64, len(priorityOrder))
	captures := make(map[Intent]map[string]string, 2)

	for _, rule := range c.rules {
		m := rule.Pattern.FindStringSubmatch(query)
		if m == nil {
			continue
		}
		weight := rule.Weight
		if weight == 0 {
			weight = ruleWeight
		}
		scores[rule.Intent] += weight
		if scores[rule.Intent] > 1.0 {
			scores[rule.Intent] = 1.0
		}
		if captures[rule.Intent] == nil {
			captures[rule.Intent] = namedCaptures(rule.Pattern, m)
		}
	}

	// A query shaped like a question is never a teach statement, even when
	// it matches a learning pattern ("what is water" matches "X is Y").
	if isInterrogative(query) {
		delete(scores, IntentLearning)
	}

	best := IntentQuestion
	bestScore := 0.0
	for _, it := range priorityOrder {
		if s, ok := scores[it]; ok && s > bestScore {
			best = it
			bestScore = s
		}
	}

	if bestScore < ruleWeight {
		return Classification{Intent: IntentQuestion, Confidence: defaultConfidence}
	}
	return Classification{Intent: best, Confidence: bestScore, Captures: captures[best]}
}

// namedCaptures extracts named groups from a submatch slice.
func namedCaptures(re *regexp.Regexp, match []string) map[string]string {
	names := re.SubexpNames()
	var out map[string]string
	for i, name := range names {
		if name == "" || i >= len(match) || match[i] == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string, 2)
		}
		out[name] = match[i]
	}
	return out
}

// interrogativeLeads are words that mark a query as a question regardless of
// any other pattern it matches.
var interrogativeLeads = map[string]bool{
	"what": true, "who": true, "where": true, "when": true, "why": true,
	"how": true, "which": true, "whose": true,
	"is": true, "are": true, "was": true, "were": true,
	"do": true, "does": true, "did": true, "can": true, "could": true,
}

// isInterrogative reports whether the query is question-shaped: it ends in a
// question mark or begins with an interrogative word.
func isInterrogative(query string) bool {
	if strings.HasSuffix(query, "?") {
		return true
	}
	first, _, _ := strings.Cut(query, " ")
	return interrogativeLeads[first]
}
