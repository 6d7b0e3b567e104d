// Package reverify refreshes aging externally-sourced knowledge entries by
// re-running the providers that produced them.
package reverify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hrygo/sagely/ai/provider"
	"github.com/hrygo/sagely/store"
)

const (
	// DefaultMaxAge is how long a web or AI sourced entry stays trusted
	// before a sweep re-checks it.
	DefaultMaxAge = 30 * 24 * time.Hour

	defaultConcurrency = 3
)

// Report summarizes one reverification sweep.
type Report struct {
	Scanned int64 `json:"scanned"`
	Updated int64 `json:"updated"`
	Failed  int64 `json:"failed"`
}

// Reverifier re-queries providers for stale web/AI entries and writes fresh
// answers back. Provider calls run concurrently, bounded by a semaphore so a
// large backlog cannot flood external APIs.
type Reverifier struct {
	store     *store.Store
	searcher  provider.Searcher
	generator provider.Generator
	sem       *semaphore.Weighted
	maxAge    time.Duration
}

func New(s *store.Store, searcher provider.Searcher, generator provider.Generator, concurrency int64) *Reverifier {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Reverifier{
		store:     s,
		searcher:  searcher,
		generator: generator,
		sem:       semaphore.NewWeighted(concurrency),
		maxAge:    DefaultMaxAge,
	}
}

// Run scans entries with source web or ai whose last verification is older
// than the max age and refreshes each one. An entry whose providers all fail
// keeps its stored answer untouched.
func (r *Reverifier) Run(ctx context.Context) (*Report, error) {
	cutoff := time.Now().Add(-r.maxAge).Unix()

	var stale []*store.KnowledgeEntry
	for _, source := range []store.Source{store.SourceWeb, store.SourceAI} {
		src := source
		list, err := r.store.ListKnowledge(ctx, &store.FindKnowledge{
			Source:         &src,
			VerifiedBefore: &cutoff,
		})
		if err != nil {
			return nil, err
		}
		stale = append(stale, list...)
	}

	report := &Report{Scanned: int64(len(stale))}
	var updated, failed atomic.Int64
	var wg sync.WaitGroup

	for _, entry := range stale {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return report, err
		}
		wg.Add(1)
		go func(entry *store.KnowledgeEntry) {
			defer wg.Done()
			defer r.sem.Release(1)
			if r.reverifyEntry(ctx, entry) {
				updated.Add(1)
			} else {
				failed.Add(1)
			}
		}(entry)
	}
	wg.Wait()

	report.Updated = updated.Load()
	report.Failed = failed.Load()
	slog.Info("reverification sweep finished",
		"scanned", report.Scanned, "updated", report.Updated, "failed", report.Failed)
	return report, nil
}

func (r *Reverifier) reverifyEntry(ctx context.Context, entry *store.KnowledgeEntry) bool {
	answer := r.freshAnswer(ctx, entry)
	if answer == nil {
		return false
	}

	now := time.Now().Unix()
	source := store.Source(answer.Source)
	_, err := r.store.UpdateKnowledge(ctx, &store.UpdateKnowledge{
		ID:             entry.ID,
		Response:       &answer.Text,
		Source:         &source,
		Confidence:     &answer.Confidence,
		UpdatedTs:      &now,
		LastVerifiedTs: &now,
	})
	if err != nil {
		slog.Warn("failed to store reverified answer", "id", entry.ID, "error", err)
		return false
	}
	return true
}

// freshAnswer re-runs the provider matching the entry's source first, then
// the other one.
func (r *Reverifier) freshAnswer(ctx context.Context, entry *store.KnowledgeEntry) *provider.Answer {
	query := entry.NormalizedQuery

	search := func() *provider.Answer {
		if r.searcher == nil {
			return nil
		}
		answer, err := r.searcher.Search(ctx, query)
		if err != nil {
			return nil
		}
		return answer
	}
	generate := func() *provider.Answer {
		if r.generator == nil {
			return nil
		}
		answer, err := r.generator.Generate(ctx, query)
		if err != nil {
			return nil
		}
		return answer
	}

	if entry.Source == store.SourceAI {
		if answer := generate(); answer != nil {
			return answer
		}
		return search()
	}
	if answer := search(); answer != nil {
		return answer
	}
	return generate()
}
