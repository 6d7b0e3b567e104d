package store

import (
	"context"

	"github.com/pkg/errors"
)

// AnswerCache is a memoized external-provider answer. At most one live row
// exists per query hash; an upsert with the same hash replaces the prior row
// and refreshes created_ts.
type AnswerCache struct {
	QueryHash string
	Query     string
	Response  string
	Source    string
	ID        int32
	CreatedTs int64
}

// UpsertAnswerCache specifies data for upserting a cached answer.
type UpsertAnswerCache struct {
	QueryHash string
	Query     string
	Response  string
	Source    string
}

func (s *Store) UpsertAnswerCache(ctx context.Context, upsert *UpsertAnswerCache) (*AnswerCache, error) {
	var cache *AnswerCache
	err := withRetry(ctx, func() error {
		var err error
		cache, err = s.driver.UpsertAnswerCache(ctx, upsert)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert answer cache")
	}
	return cache, nil
}

// GetAnswerCacheByHash returns the cached answer for a query hash, or nil
// when no row exists.
func (s *Store) GetAnswerCacheByHash(ctx context.Context, queryHash string) (*AnswerCache, error) {
	var cache *AnswerCache
	err := withRetry(ctx, func() error {
		var err error
		cache, err = s.driver.GetAnswerCacheByHash(ctx, queryHash)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get answer cache")
	}
	return cache, nil
}

// DeleteAnswerCacheBefore removes cache rows created before the given
// timestamp and reports how many were removed.
func (s *Store) DeleteAnswerCacheBefore(ctx context.Context, beforeTs int64) (int64, error) {
	var n int64
	err := withRetry(ctx, func() error {
		var err error
		n, err = s.driver.DeleteAnswerCacheBefore(ctx, beforeTs)
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete stale answer cache")
	}
	return n, nil
}
