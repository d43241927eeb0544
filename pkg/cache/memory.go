package cache

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is an in-process LRU cache bounded by entry count. Entries
// carry their own expiry, given per Set.
type MemoryCache struct {
	lru *expirable.LRU[string, memEntry]
	now func() time.Time
}

type memEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryCache returns a cache holding at most max entries, evicting the
// least recently used. max <= 0 means unbounded.
func NewMemoryCache(max int) *MemoryCache {
	if max < 0 {
		max = 0
	}
	// A zero TTL disables the LRU's own expiry; Get checks per entry.
	return &MemoryCache{lru: expirable.NewLRU[string, memEntry](max, nil, 0), now: time.Now}
}

// Get implements [Cache].
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if e.expired(c.now()) {
		c.lru.Remove(key)
		return nil, false, nil
	}
	return slices.Clone(e.data), true, nil
}

// Set implements [Cache].
func (c *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	e := memEntry{data: slices.Clone(data)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(key, e)
	return nil
}

// Delete implements [Cache].
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int { return c.lru.Len() }

// Close implements [Cache].
func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}

var _ Cache = (*MemoryCache)(nil)
