package intent

import "regexp"

// defaultRules is the classification table. Patterns are evaluated against
// normalized queries (lowercase, trimmed, single-spaced). Each match adds
// the rule's weight (default 0.25) to its intent's score.
var defaultRules = []Rule{
	// Learning: explicit teach syntax first, then bare fact statements.
	{Pattern: regexp.MustCompile(`^remember (?:that )?(?P<subject>.+?) (?:is|are|means) (?P<value>.+)$`), Intent: IntentLearning, Weight: 0.5},
	{Pattern: regexp.MustCompile(`^learn (?:that )?(?P<subject>.+?) (?:is|are|means) (?P<value>.+)$`), Intent: IntentLearning, Weight: 0.5},
	{Pattern: regexp.MustCompile(`^the answer to (?P<subject>.+?) is (?P<value>.+)$`), Intent: IntentLearning, Weight: 0.5},
	{Pattern: regexp.MustCompile(`^(?:remember|learn)\b`), Intent: IntentLearning, Weight: 0.5},
	{Pattern: regexp.MustCompile(`^(?P<subject>[^?]+?) (?:is|are) (?P<value>[^?]+)$`), Intent: IntentLearning},
	{Pattern: regexp.MustCompile(`^(?P<subject>[^?]+?) means (?P<value>[^?]+)$`), Intent: IntentLearning},

	// Greeting.
	{Pattern: regexp.MustCompile(`^(?:hi|hello|hey|howdy|yo)\b`), Intent: IntentGreeting},
	{Pattern: regexp.MustCompile(`^good (?:morning|afternoon|evening|night)\b`), Intent: IntentGreeting},
	{Pattern: regexp.MustCompile(`^(?:thanks|thank you)\b`), Intent: IntentGreeting},

	// Correction. Explicit markers outweigh the bare fact-statement shape a
	// correction usually also carries ("no, the capital is paris").
	{Pattern: regexp.MustCompile(`^no[,.]? `), Intent: IntentCorrection, Weight: 0.5},
	{Pattern: regexp.MustCompile(`\b(?:that's|that is|you're|you are) (?:wrong|incorrect|not right)\b`), Intent: IntentCorrection, Weight: 0.5},
	{Pattern: regexp.MustCompile(`^actually[,.]? `), Intent: IntentCorrection, Weight: 0.5},
	{Pattern: regexp.MustCompile(`^wrong[,.!]? `), Intent: IntentCorrection, Weight: 0.5},

	// Question.
	{Pattern: regexp.MustCompile(`^(?:what|who|where|when|why|how|which|whose)\b`), Intent: IntentQuestion},
	{Pattern: regexp.MustCompile(`^(?:is|are|was|were|do|does|did|can|could|should|would)\b`), Intent: IntentQuestion},
	{Pattern: regexp.MustCompile(`\?$`), Intent: IntentQuestion},
	{Pattern: regexp.MustCompile(`\b(?:capital|meaning|definition) of\b`), Intent: IntentQuestion},
}

// teachPatterns extract the subject/value pair from a teach statement,
// tried in order. They mirror the learning rules of the table.
var teachPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^remember (?:that )?(?P<subject>.+?) (?:is|are|means) (?P<value>.+)$`),
	regexp.MustCompile(`^learn (?:that )?(?P<subject>.+?) (?:is|are|means) (?P<value>.+)$`),
	regexp.MustCompile(`^the answer to (?P<subject>.+?) is (?P<value>.+)$`),
	regexp.MustCompile(`^(?P<subject>[^?]+?) (?:is|are|means) (?P<value>[^?]+)$`),
}

// ExtractTeachPair splits a normalized teach statement into its subject and
// value. Returns ok=false when the statement has no recognizable shape,
// which callers surface as a clarification request rather than an error.
func ExtractTeachPair(query string) (subject, value string, ok bool) {
	if isInterrogative(query) {
		return "", "", false
	}
	for _, re := range teachPatterns {
		m := re.FindStringSubmatch(query)
		if m == nil {
			continue
		}
		caps := namedCaptures(re, m)
		subject, value = caps["subject"], caps["value"]
		if subject != "" && value != "" {
			return subject, value, true
		}
	}
	return "", "", false
}
