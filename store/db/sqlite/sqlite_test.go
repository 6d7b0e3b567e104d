package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/sagely/internal/profile"
	"github.com/hrygo/sagely/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	p := &profile.Profile{
		Mode:   "demo",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	}
	driver, err := NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	s := store.New(driver, p)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestKnowledgeCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entry, err := s.CreateKnowledge(ctx, &store.KnowledgeEntry{
		NormalizedQuery: "what is the capital of france",
		Response:        "paris",
		Source:          store.SourceUser,
		Confidence:      0.8,
	})
	require.NoError(t, err)
	require.NotZero(t, entry.ID)
	require.NotEmpty(t, entry.UID)
	require.NotZero(t, entry.CreatedTs)
	require.Equal(t, entry.CreatedTs, entry.UpdatedTs)

	got, err := s.GetKnowledge(ctx, &store.FindKnowledge{ID: &entry.ID})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "paris", got.Response)
	require.Nil(t, got.OwnerID)
	require.Nil(t, got.AIProvider)

	newResponse := "paris, france"
	newConfidence := 0.95
	updated, err := s.UpdateKnowledge(ctx, &store.UpdateKnowledge{
		ID:         entry.ID,
		Response:   &newResponse,
		Confidence: &newConfidence,
	})
	require.NoError(t, err)
	require.Equal(t, "paris, france", updated.Response)
	require.InDelta(t, 0.95, updated.Confidence, 1e-9)

	require.NoError(t, s.IncrementKnowledgeUsage(ctx, entry.ID))
	require.NoError(t, s.IncrementKnowledgeUsage(ctx, entry.ID))
	got, err = s.GetKnowledge(ctx, &store.FindKnowledge{ID: &entry.ID})
	require.NoError(t, err)
	require.EqualValues(t, 2, got.TimesUsed)

	require.NoError(t, s.DeleteKnowledge(ctx, &store.DeleteKnowledge{ID: &entry.ID}))
	got, err = s.GetKnowledge(ctx, &store.FindKnowledge{ID: &entry.ID})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestKnowledgeConfidenceClamped(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entry, err := s.CreateKnowledge(ctx, &store.KnowledgeEntry{
		NormalizedQuery: "q",
		Response:        "r",
		Source:          store.SourceAI,
		Confidence:      1.7,
	})
	require.NoError(t, err)
	require.InDelta(t, store.MaxConfidence, entry.Confidence, 1e-9)

	low := 0.01
	updated, err := s.UpdateKnowledge(ctx, &store.UpdateKnowledge{ID: entry.ID, Confidence: &low})
	require.NoError(t, err)
	require.InDelta(t, store.MinConfidence, updated.Confidence, 1e-9)
}

func TestKnowledgeVisibility(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	alice, bob := int32(1), int32(2)

	mustCreate := func(query string, ownerID *int32, public bool) {
		_, err := s.CreateKnowledge(ctx, &store.KnowledgeEntry{
			NormalizedQuery: query,
			Response:        "r",
			Source:          store.SourceUser,
			Confidence:      0.8,
			OwnerID:         ownerID,
			IsPublic:        public,
		})
		require.NoError(t, err)
	}
	mustCreate("shared fact", nil, false)
	mustCreate("alice private fact", &alice, false)
	mustCreate("alice public fact", &alice, true)
	mustCreate("bob private fact", &bob, false)

	list, err := s.ListKnowledge(ctx, &store.FindKnowledge{VisibleTo: &bob})
	require.NoError(t, err)

	queries := make([]string, 0, len(list))
	for _, e := range list {
		queries = append(queries, e.NormalizedQuery)
	}
	require.ElementsMatch(t, []string{"shared fact", "alice public fact", "bob private fact"}, queries)
}

func TestKnowledgeQueryLike(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, q := range []string{"capital of france", "capital of spain", "boiling point of water"} {
		_, err := s.CreateKnowledge(ctx, &store.KnowledgeEntry{
			NormalizedQuery: q,
			Response:        "r",
			Source:          store.SourceUser,
			Confidence:      0.8,
		})
		require.NoError(t, err)
	}

	sub := "capital"
	list, err := s.ListKnowledge(ctx, &store.FindKnowledge{QueryLike: &sub})
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestDeleteKnowledgePreservesSystem(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateKnowledge(ctx, &store.KnowledgeEntry{
		NormalizedQuery: "user fact", Response: "r", Source: store.SourceUser, Confidence: 0.8,
	})
	require.NoError(t, err)
	_, err = s.CreateKnowledge(ctx, &store.KnowledgeEntry{
		NormalizedQuery: "builtin fact", Response: "r", Source: store.SourceSystem, Confidence: 1.0,
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteKnowledge(ctx, &store.DeleteKnowledge{PreserveSystem: true}))

	list, err := s.ListKnowledge(ctx, &store.FindKnowledge{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, store.SourceSystem, list[0].Source)
}

func TestAnswerCacheUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.UpsertAnswerCache(ctx, &store.UpsertAnswerCache{
		QueryHash: "abc123",
		Query:     "what is go",
		Response:  "a programming language",
		Source:    "web",
	})
	require.NoError(t, err)

	second, err := s.UpsertAnswerCache(ctx, &store.UpsertAnswerCache{
		QueryHash: "abc123",
		Query:     "what is go",
		Response:  "a language made at google",
		Source:    "ai",
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	got, err := s.GetAnswerCacheByHash(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "a language made at google", got.Response)
	require.Equal(t, "ai", got.Source)

	missing, err := s.GetAnswerCacheByHash(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestAnswerCacheSweep(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cache, err := s.UpsertAnswerCache(ctx, &store.UpsertAnswerCache{
		QueryHash: "h1", Query: "q", Response: "r", Source: "web",
	})
	require.NoError(t, err)

	n, err := s.DeleteAnswerCacheBefore(ctx, cache.CreatedTs)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = s.DeleteAnswerCacheBefore(ctx, cache.CreatedTs+1)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := s.GetAnswerCacheByHash(ctx, "h1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestConversationFeedback(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	userID := int32(7)
	conv, err := s.CreateConversation(ctx, &store.Conversation{
		UserID:     &userID,
		Query:      "what is the capital of france",
		Response:   "paris",
		Confidence: 0.9,
	})
	require.NoError(t, err)
	require.NotEmpty(t, conv.UID)
	require.Equal(t, store.FeedbackNeutral, conv.Feedback)

	updated, err := s.UpdateConversationFeedback(ctx, conv.ID, store.FeedbackPositive)
	require.NoError(t, err)
	require.Equal(t, store.FeedbackPositive, updated.Feedback)

	got, err := s.GetConversation(ctx, &store.FindConversation{UID: &conv.UID})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, store.FeedbackPositive, got.Feedback)
}
