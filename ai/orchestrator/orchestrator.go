// Package orchestrator runs the staged fallback pipeline that resolves a
// query to an answer.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/sagely/ai/answercache"
	"github.com/hrygo/sagely/ai/intent"
	"github.com/hrygo/sagely/ai/knowledge"
	"github.com/hrygo/sagely/ai/metrics"
	"github.com/hrygo/sagely/ai/normalize"
	"github.com/hrygo/sagely/ai/provider"
	"github.com/hrygo/sagely/ai/retrieval"
	"github.com/hrygo/sagely/internal/profile"
	"github.com/hrygo/sagely/internal/version"
	"github.com/hrygo/sagely/store"
)

// Kind tags which pipeline stage produced a result.
type Kind string

const (
	KindLearned      Kind = "learned"
	KindCanned       Kind = "canned"
	KindCalculated   Kind = "calculated"
	KindKnowledgeHit Kind = "knowledge"
	KindCacheHit     Kind = "cache"
	KindProviderHit  Kind = "provider"
	KindDefault      Kind = "default"
)

const (
	// kbAcceptSimilarity is the similarity the best retrieval candidate must
	// clear before its stored answer is returned.
	kbAcceptSimilarity = 0.75

	// providerConfidence is assigned to external answers surfaced from the
	// cache, where the original confidence was not stored.
	providerConfidence = 0.85

	defaultConfidence = 0.1

	// reverifyAfter is how long a web or AI sourced entry stays trusted
	// before the staleness heuristic flags it.
	reverifyAfter = 30 * 24 * time.Hour
)

// ErrEmptyQuery is returned when normalization leaves nothing to resolve.
var ErrEmptyQuery = errors.New("empty query")

const defaultAnswer = "I don't know that yet. You can teach me: say \"remember that X is Y\"."

// Result is the outcome of one resolution.
type Result struct {
	Kind             Kind
	Response         string
	Source           string
	Confidence       float64
	KnowledgeID      *int32
	ConversationID   int32
	ConversationUID  string
	AwaitingReverify bool
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	profile    *profile.Profile
	store      *store.Store
	normalizer *normalize.Normalizer
	classifier *intent.Classifier
	retriever  *retrieval.Retriever
	knowledge  *knowledge.Service
	cache      *answercache.Cache
	searcher   provider.Searcher
	generator  provider.Generator
	metrics    *metrics.Exporter
}

// New creates an orchestrator. searcher, generator and exporter may be nil;
// the corresponding stages are then skipped.
func New(
	p *profile.Profile,
	s *store.Store,
	normalizer *normalize.Normalizer,
	classifier *intent.Classifier,
	retriever *retrieval.Retriever,
	knowledgeSvc *knowledge.Service,
	cache *answercache.Cache,
	searcher provider.Searcher,
	generator provider.Generator,
	exporter *metrics.Exporter,
) *Orchestrator {
	return &Orchestrator{
		profile:    p,
		store:      s,
		normalizer: normalizer,
		classifier: classifier,
		retriever:  retriever,
		knowledge:  knowledgeSvc,
		cache:      cache,
		searcher:   searcher,
		generator:  generator,
		metrics:    exporter,
	}
}

// Resolve runs the staged pipeline for one query. Stages are tried strictly
// in order; the first stage whose guard holds produces the result. Every
// outcome, including the default apology, is recorded as a conversation so
// feedback can reference it.
func (o *Orchestrator) Resolve(ctx context.Context, rawQuery string, userID *int32) (*Result, error) {
	start := time.Now()

	query := o.normalizer.Normalize(rawQuery)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	result, err := o.resolve(ctx, query, userID)
	if err != nil {
		if o.metrics != nil {
			o.metrics.RecordResolve("error", time.Since(start), false)
		}
		return nil, err
	}

	o.recordConversation(ctx, query, userID, result)

	if o.metrics != nil {
		o.metrics.RecordStageHit(string(result.Kind))
		o.metrics.RecordResolve(result.Source, time.Since(start), true)
	}
	return result, nil
}

func (o *Orchestrator) resolve(ctx context.Context, query string, userID *int32) (*Result, error) {
	cls := o.classifier.Classify(query)

	// Identity short-circuit.
	if answer, ok := identityAnswer(query); ok {
		return &Result{Kind: KindCanned, Response: answer, Source: "system", Confidence: 1.0}, nil
	}

	// Teaching, including corrections that carry a new fact.
	switch cls.Intent {
	case intent.IntentLearning:
		return o.learn(ctx, query, userID)
	case intent.IntentCorrection:
		if result, ok := o.correct(ctx, query, userID); ok {
			return result, nil
		}
	case intent.IntentGreeting:
		return &Result{Kind: KindCanned, Response: greetingAnswer(query), Source: "system", Confidence: 1.0}, nil
	}

	// System info.
	if systemInfoQuery(query) {
		response := fmt.Sprintf("Sagely %s, running in %s mode.", version.GetCurrentVersion(o.profile.Mode), o.profile.Mode)
		return &Result{Kind: KindCanned, Response: response, Source: "system", Confidence: 1.0}, nil
	}

	// Arithmetic.
	if expr, ok := extractArithmetic(query); ok {
		value, err := evaluate(expr)
		switch {
		case err == nil:
			response := fmt.Sprintf("%s = %s", expr, formatNumber(value))
			return &Result{Kind: KindCalculated, Response: response, Source: "system", Confidence: 1.0}, nil
		case strings.Contains(err.Error(), "division by zero"):
			return &Result{Kind: KindCalculated, Response: "That divides by zero, which has no answer.", Source: "system", Confidence: 1.0}, nil
		}
		// Malformed expression, let later stages have a go.
	}

	// Built-in domain lookups.
	if answer, ok := programmingAnswer(query); ok {
		return &Result{Kind: KindCanned, Response: answer, Source: "system", Confidence: 1.0}, nil
	}
	if answer, ok := directFactAnswer(query); ok {
		return &Result{Kind: KindCanned, Response: answer, Source: "system", Confidence: 1.0}, nil
	}

	// Knowledge base.
	if result := o.fromKnowledge(ctx, query, userID); result != nil {
		return result, nil
	}

	// Response cache.
	if result := o.fromCache(ctx, query); result != nil {
		return result, nil
	}

	// External providers. Under preferred priority an AI-suited query goes
	// to the generative backend before web search; under fallback priority
	// the generative backend only runs after web search failed.
	tryAIFirst := o.profile.AIPriority == profile.AIPriorityPreferred && aiSuited(query)
	if tryAIFirst {
		if result := o.fromGenerator(ctx, query, userID); result != nil {
			return result, nil
		}
	}
	if result := o.fromSearch(ctx, query, userID); result != nil {
		return result, nil
	}
	if !tryAIFirst {
		if result := o.fromGenerator(ctx, query, userID); result != nil {
			return result, nil
		}
	}

	return &Result{Kind: KindDefault, Response: defaultAnswer, Source: "system", Confidence: defaultConfidence}, nil
}

func (o *Orchestrator) learn(ctx context.Context, query string, userID *int32) (*Result, error) {
	subject, value, ok := intent.ExtractTeachPair(query)
	if !ok {
		return &Result{
			Kind:       KindCanned,
			Response:   "I couldn't work out what to remember. Try: \"remember that X is Y\".",
			Source:     "system",
			Confidence: 0.5,
		}, nil
	}

	fact := fmt.Sprintf("%s is %s", subject, value)
	entry, err := o.knowledge.Learn(ctx, fact, fact, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to learn")
	}
	return &Result{
		Kind:        KindLearned,
		Response:    fmt.Sprintf("Got it! I'll remember that %s is %s.", subject, value),
		Source:      "system",
		Confidence:  1.0,
		KnowledgeID: &entry.ID,
	}, nil
}

var correctionMarkers = []string{"no,", "no.", "no ", "actually,", "actually.", "actually ", "wrong,", "wrong.", "wrong ", "that's wrong,", "that's wrong "}

// correct handles a correction that carries a replacement fact. Corrections
// without one fall back to question handling.
func (o *Orchestrator) correct(ctx context.Context, query string, userID *int32) (*Result, bool) {
	remainder := query
	for _, marker := range correctionMarkers {
		if strings.HasPrefix(remainder, marker) {
			remainder = strings.TrimSpace(strings.TrimPrefix(remainder, marker))
			break
		}
	}

	subject, value, ok := intent.ExtractTeachPair(remainder)
	if !ok {
		return nil, false
	}

	fact := fmt.Sprintf("%s is %s", subject, value)
	entry, err := o.knowledge.Learn(ctx, fact, fact, userID)
	if err != nil {
		slog.Warn("failed to store correction", "error", err)
		return nil, false
	}
	return &Result{
		Kind:        KindLearned,
		Response:    fmt.Sprintf("Thanks for the correction. %s is %s.", subject, value),
		Source:      "system",
		Confidence:  1.0,
		KnowledgeID: &entry.ID,
	}, true
}

func (o *Orchestrator) fromKnowledge(ctx context.Context, query string, userID *int32) *Result {
	results := o.retriever.FindAnswers(ctx, query, userID)
	if len(results) == 0 || results[0].Similarity <= kbAcceptSimilarity {
		return nil
	}

	entry := results[0].Entry
	stale := isStale(query, entry)
	if stale {
		slog.Info("stale knowledge surfaced, reverification pending", "id", entry.ID, "query", query)
	}
	return &Result{
		Kind:             KindKnowledgeHit,
		Response:         refineAnswer(entry.Response),
		Source:           string(entry.Source),
		Confidence:       entry.Confidence,
		KnowledgeID:      &entry.ID,
		AwaitingReverify: stale,
	}
}

func (o *Orchestrator) fromCache(ctx context.Context, query string) *Result {
	if o.cache == nil {
		return nil
	}
	entry, found := o.cache.Get(ctx, query)
	if !found {
		if o.metrics != nil {
			o.metrics.RecordCacheMiss("answer")
		}
		return nil
	}
	if o.metrics != nil {
		o.metrics.RecordCacheHit("answer")
	}
	return &Result{
		Kind:       KindCacheHit,
		Response:   entry.Response,
		Source:     entry.Source,
		Confidence: providerConfidence,
	}
}

func (o *Orchestrator) fromSearch(ctx context.Context, query string, userID *int32) *Result {
	if o.searcher == nil {
		return nil
	}
	answer, err := o.searcher.Search(ctx, query)
	if err != nil {
		slog.Warn("web search failed, degrading to next stage", "error", err)
		return nil
	}
	if !relevant(query, answer.Text) {
		slog.Info("web answer rejected as irrelevant", "query", query)
		return nil
	}
	return o.acceptProviderAnswer(ctx, query, answer, userID)
}

func (o *Orchestrator) fromGenerator(ctx context.Context, query string, userID *int32) *Result {
	if o.generator == nil {
		return nil
	}
	answer, err := o.generator.Generate(ctx, query)
	if err != nil {
		slog.Warn("generative provider failed, degrading to next stage", "error", err)
		return nil
	}
	return o.acceptProviderAnswer(ctx, query, answer, userID)
}

// acceptProviderAnswer persists an external answer into the knowledge base
// and the response cache, then surfaces it.
func (o *Orchestrator) acceptProviderAnswer(ctx context.Context, query string, answer *provider.Answer, userID *int32) *Result {
	result := &Result{
		Kind:       KindProviderHit,
		Response:   answer.Text,
		Source:     answer.Source,
		Confidence: answer.Confidence,
	}

	entry, err := o.knowledge.Absorb(ctx, query, answer, userID)
	if err != nil {
		slog.Warn("failed to persist provider answer", "error", err)
	} else {
		result.KnowledgeID = &entry.ID
	}

	if o.cache != nil {
		if err := o.cache.Put(ctx, query, answer.Text, answer.Source); err != nil {
			slog.Warn("failed to cache provider answer", "error", err)
		}
	}
	return result
}

func (o *Orchestrator) recordConversation(ctx context.Context, query string, userID *int32, result *Result) {
	conv, err := o.store.CreateConversation(ctx, &store.Conversation{
		UserID:      userID,
		Query:       query,
		Response:    result.Response,
		KnowledgeID: result.KnowledgeID,
		Confidence:  result.Confidence,
	})
	if err != nil {
		slog.Warn("failed to record conversation", "error", err)
		return
	}
	result.ConversationID = conv.ID
	result.ConversationUID = conv.UID
}

// staleKeywords flag queries whose answers drift with time.
var staleKeywords = []string{"current", "latest", "today", "now", "this year", "price", "recently"}

func isStale(query string, entry *store.KnowledgeEntry) bool {
	// Whole-word match only; "now" must not flag "snow" or "known".
	padded := " " + query + " "
	for _, kw := range staleKeywords {
		if strings.Contains(padded, " "+kw+" ") {
			return true
		}
	}
	if entry.Source == store.SourceWeb || entry.Source == store.SourceAI {
		return time.Since(time.Unix(entry.LastVerifiedTs, 0)) > reverifyAfter
	}
	return false
}

// refineAnswer trims redundant lead-ins some stored answers carry.
var answerLeadIns = []string{"the answer is ", "answer: ", "it is ", "it's "}

func refineAnswer(answer string) string {
	trimmed := strings.TrimSpace(answer)
	lower := strings.ToLower(trimmed)
	for _, lead := range answerLeadIns {
		if strings.HasPrefix(lower, lead) && len(trimmed) > len(lead) {
			return strings.TrimSpace(trimmed[len(lead):])
		}
	}
	return trimmed
}

// aiSuited reports whether a query benefits from a generative answer rather
// than a lookup: open-ended or explanatory questions.
func aiSuited(query string) bool {
	if strings.HasPrefix(query, "how ") || strings.HasPrefix(query, "why ") {
		return true
	}
	if strings.Contains(query, "explain") || strings.Contains(query, "describe") {
		return true
	}
	return len(strings.Fields(query)) > 6
}

// relevant is the acceptance check for web answers: the answer must share at
// least one meaningful token with the query.
func relevant(query, answer string) bool {
	answerLower := strings.ToLower(answer)
	for _, tok := range strings.Fields(query) {
		if len([]rune(tok)) > 3 && strings.Contains(answerLower, tok) {
			return true
		}
	}
	return false
}
