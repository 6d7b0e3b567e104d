package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLRUCacheBasic(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	// "b" is now the oldest; adding "c" evicts it.
	c.Set("c", 3, 0)
	_, ok = c.Get("b")
	require.False(t, ok)

	v, ok = c.Get("c")
	require.True(t, ok)
	require.Equal(t, 3, v)
	require.Equal(t, 2, c.Size())
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[string, string](10, time.Minute)

	c.Set("short", "lived", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("short")
	require.False(t, ok)
}

func TestLRUCacheCleanupExpired(t *testing.T) {
	c := NewLRUCache[string, string](10, time.Minute)

	c.Set("a", "x", 10*time.Millisecond)
	c.Set("b", "y", time.Minute)
	time.Sleep(20 * time.Millisecond)

	removed := c.CleanupExpired()
	require.Equal(t, 1, removed)
	require.Equal(t, 1, c.Size())
}

func TestLRUCacheUpdateMovesToFront(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Set("a", 10, 0) // refresh "a"; "b" becomes oldest
	c.Set("c", 3, 0)

	_, ok := c.Get("b")
	require.False(t, ok)
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 10, v)
}
