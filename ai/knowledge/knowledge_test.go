package knowledge

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/sagely/ai/normalize"
	"github.com/hrygo/sagely/ai/provider"
	"github.com/hrygo/sagely/internal/profile"
	"github.com/hrygo/sagely/store"
	"github.com/hrygo/sagely/store/db/sqlite"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()

	p := &profile.Profile{
		Mode:   "demo",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	s := store.New(driver, p)
	require.NoError(t, s.Migrate(context.Background()))
	return NewService(s, normalize.New(normalize.DefaultMaxLen)), s
}

func TestLearnInsertsNewEntry(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	entry, err := svc.Learn(ctx, "The capital of France is?", "paris", nil)
	require.NoError(t, err)
	require.Equal(t, store.SourceUser, entry.Source)
	require.InDelta(t, 0.95, entry.Confidence, 1e-9)
	require.True(t, entry.IsPublic)
	require.Nil(t, entry.OwnerID)
}

func TestLearnTwiceMergesSecondAnswerWins(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	first, err := svc.Learn(ctx, "what is the capital of france", "lyon", nil)
	require.NoError(t, err)

	second, err := svc.Learn(ctx, "what is the capital of france?", "paris", nil)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "paris", second.Response)
	require.Equal(t, store.SourceUserExplicit, second.Source)
	require.GreaterOrEqual(t, second.Confidence, 0.95)

	list, err := s.ListKnowledge(ctx, &store.FindKnowledge{})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestLearnSameSubjectNewValueReplaces(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	first, err := svc.Learn(ctx, "the capital of australia is sydney", "the capital of australia is sydney", nil)
	require.NoError(t, err)

	second, err := svc.Learn(ctx, "the capital of australia is canberra", "the capital of australia is canberra", nil)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Contains(t, second.Response, "canberra")

	list, err := s.ListKnowledge(ctx, &store.FindKnowledge{})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestLearnMergeKeepsHigherConfidence(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	entry, err := svc.Learn(ctx, "what is the capital of france", "paris", nil)
	require.NoError(t, err)
	max := 1.0
	_, err = s.UpdateKnowledge(ctx, &store.UpdateKnowledge{ID: entry.ID, Confidence: &max})
	require.NoError(t, err)

	merged, err := svc.Learn(ctx, "what is the capital of france", "paris, france", nil)
	require.NoError(t, err)
	require.InDelta(t, 1.0, merged.Confidence, 1e-9)
}

func TestLearnOwnedEntryIsPrivate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	owner := int32(3)
	entry, err := svc.Learn(ctx, "what is my locker code", "1234", &owner)
	require.NoError(t, err)
	require.False(t, entry.IsPublic)
	require.Equal(t, owner, *entry.OwnerID)
}

func TestAbsorbWebAnswer(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	entry, err := svc.Absorb(ctx, "what is go", &provider.Answer{
		Text:       "a programming language",
		Source:     "web",
		Context:    "https://example.org",
		Confidence: 0.85,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, store.SourceWeb, entry.Source)
	require.InDelta(t, 0.85, entry.Confidence, 1e-9)
	require.False(t, entry.IsAIGenerated)
}

func TestAbsorbAIAnswerTracksProvider(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	entry, err := svc.Absorb(ctx, "what is go", &provider.Answer{
		Text:       "a language from google",
		Source:     "ai",
		Context:    "zai/glm-4",
		Confidence: 0.85,
	}, nil)
	require.NoError(t, err)
	require.True(t, entry.IsAIGenerated)
	require.Equal(t, "zai/glm-4", *entry.AIProvider)
}

func TestApplyFeedbackAdjustsConfidence(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	entry, err := svc.Learn(ctx, "what is the capital of france", "paris", nil)
	require.NoError(t, err)
	start := 0.9
	_, err = s.UpdateKnowledge(ctx, &store.UpdateKnowledge{ID: entry.ID, Confidence: &start})
	require.NoError(t, err)

	conv, err := s.CreateConversation(ctx, &store.Conversation{
		Query:       "what is the capital of france",
		Response:    "paris",
		KnowledgeID: &entry.ID,
		Confidence:  0.9,
	})
	require.NoError(t, err)

	require.NoError(t, svc.ApplyFeedback(ctx, conv.ID, store.FeedbackNegative))
	got, err := s.GetKnowledge(ctx, &store.FindKnowledge{ID: &entry.ID})
	require.NoError(t, err)
	require.InDelta(t, 0.8, got.Confidence, 1e-9)

	require.NoError(t, svc.ApplyFeedback(ctx, conv.ID, store.FeedbackPositive))
	got, err = s.GetKnowledge(ctx, &store.FindKnowledge{ID: &entry.ID})
	require.NoError(t, err)
	require.InDelta(t, 0.85, got.Confidence, 1e-9)

	updated, err := s.GetConversation(ctx, &store.FindConversation{ID: &conv.ID})
	require.NoError(t, err)
	require.Equal(t, store.FeedbackPositive, updated.Feedback)
}

func TestApplyFeedbackClampsUnderAnySequence(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	entry, err := svc.Learn(ctx, "what is the capital of france", "paris", nil)
	require.NoError(t, err)
	conv, err := s.CreateConversation(ctx, &store.Conversation{
		Query:       "what is the capital of france",
		Response:    "paris",
		KnowledgeID: &entry.ID,
		Confidence:  0.95,
	})
	require.NoError(t, err)

	for i := 0; i < 15; i++ {
		require.NoError(t, svc.ApplyFeedback(ctx, conv.ID, store.FeedbackNegative))
	}
	got, err := s.GetKnowledge(ctx, &store.FindKnowledge{ID: &entry.ID})
	require.NoError(t, err)
	require.InDelta(t, store.MinConfidence, got.Confidence, 1e-9)

	for i := 0; i < 30; i++ {
		require.NoError(t, svc.ApplyFeedback(ctx, conv.ID, store.FeedbackPositive))
	}
	got, err = s.GetKnowledge(ctx, &store.FindKnowledge{ID: &entry.ID})
	require.NoError(t, err)
	require.InDelta(t, store.MaxConfidence, got.Confidence, 1e-9)
}

func TestApplyFeedbackNeutralNoOp(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	entry, err := svc.Learn(ctx, "what is the capital of france", "paris", nil)
	require.NoError(t, err)
	conv, err := s.CreateConversation(ctx, &store.Conversation{
		Query:       "what is the capital of france",
		Response:    "paris",
		KnowledgeID: &entry.ID,
		Confidence:  0.95,
	})
	require.NoError(t, err)

	before := entry.Confidence
	require.NoError(t, svc.ApplyFeedback(ctx, conv.ID, store.FeedbackNeutral))
	got, err := s.GetKnowledge(ctx, &store.FindKnowledge{ID: &entry.ID})
	require.NoError(t, err)
	require.InDelta(t, before, got.Confidence, 1e-9)
}

func TestApplyFeedbackUnknownConversation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	require.Error(t, svc.ApplyFeedback(ctx, 999, store.FeedbackPositive))
}
