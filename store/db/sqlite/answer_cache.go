package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hrygo/sagely/store"
)

func (d *DB) UpsertAnswerCache(ctx context.Context, upsert *store.UpsertAnswerCache) (*store.AnswerCache, error) {
	now := time.Now().Unix()

	stmt := `INSERT INTO answer_cache (query_hash, query, response, source, created_ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (query_hash) DO UPDATE SET
			query = EXCLUDED.query,
			response = EXCLUDED.response,
			source = EXCLUDED.source,
			created_ts = EXCLUDED.created_ts
		RETURNING id`

	cache := store.AnswerCache{
		QueryHash: upsert.QueryHash,
		Query:     upsert.Query,
		Response:  upsert.Response,
		Source:    upsert.Source,
		CreatedTs: now,
	}
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.QueryHash, upsert.Query, upsert.Response, upsert.Source, now,
	).Scan(&cache.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert answer cache: %w", err)
	}

	return &cache, nil
}

func (d *DB) GetAnswerCacheByHash(ctx context.Context, queryHash string) (*store.AnswerCache, error) {
	query := `SELECT id, query_hash, query, response, source, created_ts
		FROM answer_cache WHERE query_hash = ?`

	var cache store.AnswerCache
	err := d.db.QueryRowContext(ctx, query, queryHash).Scan(
		&cache.ID, &cache.QueryHash, &cache.Query, &cache.Response, &cache.Source, &cache.CreatedTs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get answer cache: %w", err)
	}

	return &cache, nil
}

func (d *DB) DeleteAnswerCacheBefore(ctx context.Context, beforeTs int64) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM answer_cache WHERE created_ts < ?`, beforeTs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale answer cache: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted answer cache rows: %w", err)
	}
	return n, nil
}
