package reverify

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/sagely/ai/provider"
	"github.com/hrygo/sagely/internal/profile"
	"github.com/hrygo/sagely/store"
	"github.com/hrygo/sagely/store/db/sqlite"
)

type fakeSearcher struct {
	answer *provider.Answer
	calls  int
}

func (f *fakeSearcher) Name() string { return "fake" }

func (f *fakeSearcher) Search(_ context.Context, _ string) (*provider.Answer, error) {
	f.calls++
	return f.answer, nil
}

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

func seedAged(t *testing.T, s *store.Store, source store.Source, age time.Duration) *store.KnowledgeEntry {
	t.Helper()
	entry, err := s.CreateKnowledge(context.Background(), &store.KnowledgeEntry{
		NormalizedQuery: "what is the population of iceland",
		Response:        "stale answer",
		Source:          source,
		Confidence:      0.85,
	})
	require.NoError(t, err)

	ts := time.Now().Add(-age).Unix()
	_, err = s.GetDB().Exec("UPDATE knowledge_entry SET last_verified_ts = ? WHERE id = ?", ts, entry.ID)
	require.NoError(t, err)
	return entry
}

func TestRunRefreshesStaleWebEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	entry := seedAged(t, s, store.SourceWeb, 45*24*time.Hour)

	searcher := &fakeSearcher{answer: &provider.Answer{
		Text:       "about 380 thousand people",
		Source:     "web",
		Confidence: 0.85,
	}}
	r := New(s, searcher, nil, 2)

	report, err := r.Run(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, report.Scanned)
	require.EqualValues(t, 1, report.Updated)
	require.EqualValues(t, 0, report.Failed)
	require.Equal(t, 1, searcher.calls)

	got, err := s.GetKnowledge(ctx, &store.FindKnowledge{ID: &entry.ID})
	require.NoError(t, err)
	require.Equal(t, "about 380 thousand people", got.Response)
	require.Greater(t, got.LastVerifiedTs, time.Now().Add(-time.Minute).Unix())
}

func TestRunSkipsFreshAndUserEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedAged(t, s, store.SourceWeb, time.Hour)
	seedAged(t, s, store.SourceUser, 45*24*time.Hour)

	searcher := &fakeSearcher{answer: &provider.Answer{Text: "x", Source: "web", Confidence: 0.85}}
	r := New(s, searcher, nil, 2)

	report, err := r.Run(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, report.Scanned)
	require.Zero(t, searcher.calls)
}

func TestRunCountsFailures(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	entry := seedAged(t, s, store.SourceWeb, 45*24*time.Hour)

	// No provider configured: the entry stays untouched.
	r := New(s, nil, nil, 2)
	report, err := r.Run(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, report.Scanned)
	require.EqualValues(t, 1, report.Failed)

	got, err := s.GetKnowledge(ctx, &store.FindKnowledge{ID: &entry.ID})
	require.NoError(t, err)
	require.Equal(t, "stale answer", got.Response)
}
