// Package knowledge owns writes to the knowledge base: teaching, merging and
// feedback-driven confidence updates.
package knowledge

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/sagely/ai/intent"
	"github.com/hrygo/sagely/ai/normalize"
	"github.com/hrygo/sagely/ai/provider"
	"github.com/hrygo/sagely/ai/retrieval"
	"github.com/hrygo/sagely/store"
)

const (
	// mergeSimilarity is the threshold above which a teach updates an
	// existing entry instead of inserting a near-duplicate.
	mergeSimilarity = 0.8

	// learnedConfidence is the floor confidence for explicitly taught facts.
	learnedConfidence = 0.95

	positiveFeedbackDelta = 0.05
	negativeFeedbackDelta = -0.1
)

// Service mutates the knowledge base.
type Service struct {
	store      *store.Store
	normalizer *normalize.Normalizer
}

func NewService(s *store.Store, n *normalize.Normalizer) *Service {
	return &Service{store: s, normalizer: n}
}

// Learn stores a taught fact. A sufficiently similar visible entry is updated
// in place so near-identical questions never accumulate diverging answers;
// the newer answer always wins. The similarity lookup and the write are two
// separate calls, so two concurrent teaches of the same fact can still race
// into near-duplicates.
func (s *Service) Learn(ctx context.Context, question, answer string, ownerUserID *int32) (*store.KnowledgeEntry, error) {
	normalized := s.normalizer.Normalize(question)
	if normalized == "" {
		return nil, errors.New("empty question")
	}

	existing, err := s.findSimilar(ctx, normalized, ownerUserID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		confidence := existing.Confidence
		if learnedConfidence > confidence {
			confidence = learnedConfidence
		}
		now := time.Now().Unix()
		source := store.SourceUserExplicit
		entry, err := s.store.UpdateKnowledge(ctx, &store.UpdateKnowledge{
			ID:             existing.ID,
			Response:       &answer,
			Source:         &source,
			Confidence:     &confidence,
			UpdatedTs:      &now,
			LastVerifiedTs: &now,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("merged taught fact into existing entry", "id", entry.ID, "query", normalized)
		return entry, nil
	}

	entry, err := s.store.CreateKnowledge(ctx, &store.KnowledgeEntry{
		NormalizedQuery: normalized,
		Response:        answer,
		Source:          store.SourceUser,
		Confidence:      learnedConfidence,
		OwnerID:         ownerUserID,
		IsPublic:        ownerUserID == nil,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("learned new fact", "id", entry.ID, "query", normalized)
	return entry, nil
}

// Absorb persists an accepted external answer, merging into a similar entry
// when one exists. Unlike Learn it keeps the provider's source tag and
// confidence and never raises an existing entry's confidence.
func (s *Service) Absorb(ctx context.Context, query string, answer *provider.Answer, ownerUserID *int32) (*store.KnowledgeEntry, error) {
	normalized := s.normalizer.Normalize(query)
	if normalized == "" {
		return nil, errors.New("empty question")
	}

	existing, err := s.findSimilar(ctx, normalized, ownerUserID)
	if err != nil {
		return nil, err
	}

	source := store.Source(answer.Source)
	if existing != nil {
		now := time.Now().Unix()
		return s.store.UpdateKnowledge(ctx, &store.UpdateKnowledge{
			ID:             existing.ID,
			Response:       &answer.Text,
			Context:        &answer.Context,
			Source:         &source,
			UpdatedTs:      &now,
			LastVerifiedTs: &now,
		})
	}

	isAI := source == store.SourceAI
	var aiProvider *string
	if isAI && answer.Context != "" {
		aiProvider = &answer.Context
	}
	return s.store.CreateKnowledge(ctx, &store.KnowledgeEntry{
		NormalizedQuery: normalized,
		Response:        answer.Text,
		Context:         answer.Context,
		Source:          source,
		Confidence:      answer.Confidence,
		OwnerID:         ownerUserID,
		IsPublic:        ownerUserID == nil,
		IsAIGenerated:   isAI,
		AIProvider:      aiProvider,
	})
}

// ApplyFeedback stamps feedback on a conversation and nudges the linked
// knowledge entry's confidence: +0.05 capped at 1.0 for positive, -0.1
// floored at 0.1 for negative, untouched for neutral.
func (s *Service) ApplyFeedback(ctx context.Context, conversationID int32, feedback int32) error {
	if feedback < store.FeedbackNegative || feedback > store.FeedbackPositive {
		return errors.Errorf("invalid feedback value: %d", feedback)
	}

	conv, err := s.store.GetConversation(ctx, &store.FindConversation{ID: &conversationID})
	if err != nil {
		return err
	}
	if conv == nil {
		return errors.Errorf("conversation %d not found", conversationID)
	}

	if _, err := s.store.UpdateConversationFeedback(ctx, conversationID, feedback); err != nil {
		return err
	}

	if feedback == store.FeedbackNeutral || conv.KnowledgeID == nil {
		return nil
	}

	entry, err := s.store.GetKnowledge(ctx, &store.FindKnowledge{ID: conv.KnowledgeID})
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}

	delta := positiveFeedbackDelta
	if feedback == store.FeedbackNegative {
		delta = negativeFeedbackDelta
	}
	confidence := store.ClampConfidence(entry.Confidence + delta)

	_, err = s.store.UpdateKnowledge(ctx, &store.UpdateKnowledge{
		ID:         entry.ID,
		Confidence: &confidence,
	})
	return err
}

// findSimilar returns the most similar visible entry above the merge
// threshold, or nil. Two fact statements about the same subject compare by
// subject as well as by full text, so "the capital of australia is sydney"
// and a correcting "the capital of australia is canberra" resolve to the
// same entry even though their values diverge.
func (s *Service) findSimilar(ctx context.Context, normalized string, ownerUserID *int32) (*store.KnowledgeEntry, error) {
	scope := int32(0)
	if ownerUserID != nil {
		scope = *ownerUserID
	}
	candidates, err := s.store.ListKnowledge(ctx, &store.FindKnowledge{VisibleTo: &scope})
	if err != nil {
		return nil, err
	}

	subject, _, hasSubject := intent.ExtractTeachPair(normalized)

	var best *store.KnowledgeEntry
	bestSim := mergeSimilarity
	for _, entry := range candidates {
		sim := retrieval.SubjectSimilarity(normalized, entry.NormalizedQuery)
		if hasSubject {
			if entrySubject, _, ok := intent.ExtractTeachPair(entry.NormalizedQuery); ok {
				if subjectSim := retrieval.SubjectSimilarity(subject, entrySubject); subjectSim > sim {
					sim = subjectSim
				}
			}
		}
		if sim > bestSim {
			best, bestSim = entry, sim
		}
	}
	return best, nil
}
