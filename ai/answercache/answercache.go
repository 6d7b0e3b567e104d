// Package answercache memoizes external-provider answers in the store.
package answercache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/sagely/store"
)

const (
	DefaultTTLDays       = 7
	DefaultRetentionDays = 30
)

// Cache fronts the persistent answer_cache table. Entries older than the TTL
// read as absent but stay stored until Sweep removes anything past the
// retention window. The gap lets reverification compare a fresh answer with
// the stale one.
type Cache struct {
	store     *store.Store
	ttl       time.Duration
	retention time.Duration
}

func New(s *store.Store, ttlDays, retentionDays int) *Cache {
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Cache{
		store:     s,
		ttl:       time.Duration(ttlDays) * 24 * time.Hour,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// HashQuery derives the cache key: SHA-256 over the case-folded,
// whitespace-collapsed query.
func HashQuery(query string) string {
	folded := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	hash := sha256.Sum256([]byte(folded))
	return hex.EncodeToString(hash[:])
}

// Get returns the cached answer for a query, treating entries older than the
// TTL as absent without deleting them.
func (c *Cache) Get(ctx context.Context, query string) (*store.AnswerCache, bool) {
	entry, err := c.store.GetAnswerCacheByHash(ctx, HashQuery(query))
	if err != nil {
		slog.Warn("answer cache lookup failed", "error", err)
		return nil, false
	}
	if entry == nil {
		return nil, false
	}
	if time.Since(time.Unix(entry.CreatedTs, 0)) > c.ttl {
		return nil, false
	}
	return entry, true
}

// Put upserts the answer for a query, replacing any prior entry for the same
// hash and refreshing its creation timestamp.
func (c *Cache) Put(ctx context.Context, query, response, source string) error {
	_, err := c.store.UpsertAnswerCache(ctx, &store.UpsertAnswerCache{
		QueryHash: HashQuery(query),
		Query:     query,
		Response:  response,
		Source:    source,
	})
	return err
}

// Sweep deletes entries older than the retention window and reports how many
// were removed.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-c.retention).Unix()
	return c.store.DeleteAnswerCacheBefore(ctx, cutoff)
}
