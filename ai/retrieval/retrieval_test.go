package retrieval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/sagely/internal/profile"
	"github.com/hrygo/sagely/store"
	"github.com/hrygo/sagely/store/db/sqlite"
)

func newTestStore(t *testing.T) *store.Store {
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
	return s
}

func seed(t *testing.T, s *store.Store, query, response string, confidence float64) *store.KnowledgeEntry {
	t.Helper()
	entry, err := s.CreateKnowledge(context.Background(), &store.KnowledgeEntry{
		NormalizedQuery: query,
		Response:        response,
		Source:          store.SourceUser,
		Confidence:      confidence,
	})
	require.NoError(t, err)
	return entry
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b     string
		min, max float64
	}{
		{"what is the capital of france", "what is the capital of france", 1.0, 1.0},
		{"what is the capital of france", "what is the capital of france?", 0.8, 1.0},
		{"what is the capital of france", "capital of france", 0.4, 1.0},
		{"what is the capital of france", "how do i bake bread", 0.0, 0.3},
		{"", "anything", 0.0, 0.0},
	}

	for _, tt := range tests {
		sim := Similarity(tt.a, tt.b)
		require.GreaterOrEqual(t, sim, tt.min, "Similarity(%q, %q)", tt.a, tt.b)
		require.LessOrEqual(t, sim, tt.max, "Similarity(%q, %q)", tt.a, tt.b)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a, b := "what is the capital of france", "the capital of france is what"
	require.InDelta(t, Similarity(a, b), Similarity(b, a), 1e-9)
}

func TestFindAnswersExactRanksFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// A popular, high-confidence near-match must still lose to the exact one.
	popular := seed(t, s, "what is the capital of france called", "paris", 1.0)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.IncrementKnowledgeUsage(ctx, popular.ID))
	}
	exact := seed(t, s, "what is the capital of france", "paris", 0.5)

	r := New(s, 0.55)
	results := r.FindAnswers(ctx, "what is the capital of france", nil)
	require.NotEmpty(t, results)
	require.Equal(t, exact.ID, results[0].Entry.ID)
	require.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	require.Equal(t, MatchExact, results[0].MatchType)
}

func TestFindAnswersIncrementsUsage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	entry := seed(t, s, "what is the capital of france", "paris", 0.9)

	r := New(s, 0.55)
	results := r.FindAnswers(ctx, "what is the capital of france", nil)
	require.NotEmpty(t, results)
	require.EqualValues(t, 1, results[0].Entry.TimesUsed)

	got, err := s.GetKnowledge(ctx, &store.FindKnowledge{ID: &entry.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, got.TimesUsed)
}

func TestFindAnswersVisibility(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	alice, bob := int32(1), int32(2)
	_, err := s.CreateKnowledge(ctx, &store.KnowledgeEntry{
		NormalizedQuery: "what is the door code",
		Response:        "1234",
		Source:          store.SourceUser,
		Confidence:      0.95,
		OwnerID:         &alice,
	})
	require.NoError(t, err)

	r := New(s, 0.55)
	require.Empty(t, r.FindAnswers(ctx, "what is the door code", &bob))
	require.NotEmpty(t, r.FindAnswers(ctx, "what is the door code", &alice))
}

func TestFindAnswersRejectsUnrelated(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "what is the capital of france", "paris", 0.9)

	r := New(s, 0.55)
	require.Empty(t, r.FindAnswers(ctx, "how do i bake bread", nil))
}

func TestQueryCore(t *testing.T) {
	require.Equal(t, "the capital of france", QueryCore("what is the capital of france?"))
	require.Equal(t, "the capital of france", QueryCore("what is the capital of france"))
	require.Equal(t, "gopher", QueryCore("gopher"))
}

// A taught statement subject must be retrievable by the question form.
func TestFindAnswersQuestionMatchesStatement(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "the capital of france", "paris", 0.95)

	r := New(s, 0.55)
	results := r.FindAnswers(ctx, "what is the capital of france", nil)
	require.NotEmpty(t, results)
	require.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	require.Equal(t, MatchFoldEqual, results[0].MatchType)
	require.Equal(t, "paris", results[0].Entry.Response)
}

func TestFindAnswersKeywordAdmission(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "boiling point of water in celsius", "100 degrees", 0.9)

	r := New(s, 0.55)
	results := r.FindAnswers(ctx, "what is the boiling point of water", nil)
	require.NotEmpty(t, results)
	require.Equal(t, "100 degrees", results[0].Entry.Response)
}
