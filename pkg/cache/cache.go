// Package cache stores rendered artifacts keyed by content hash.
//
// Rendering a memory map to SVG runs Graphviz, which is slow compared to
// resolving a layout. Callers hash the DOT source with [Hash], derive a key
// with a [Keyer], and keep the result in a [Cache]:
//
//	key := cache.NewDefaultKeyer().ArtifactKey(cache.Hash(dot), cache.ArtifactKeyOpts{Format: "svg"})
//	if data, ok, _ := c.Get(ctx, key); ok {
//	    return data, nil
//	}
//
// [FileCache] persists across CLI runs, [MemoryCache] serves the API
// server, and [Nop] disables caching.
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/flashplan/pkg/observability"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Nop returns a cache that stores nothing.
func Nop() Cache { return nop{} }

type nop struct{}

func (nop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (nop) Delete(context.Context, string) error                     { return nil }
func (nop) Close() error                                             { return nil }

// Instrumented reports hits, misses and writes of c to the registered
// cache hooks under keyType.
func Instrumented(c Cache, keyType string) Cache {
	return &instrumented{Cache: c, keyType: keyType}
}

type instrumented struct {
	Cache
	keyType string
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, c.keyType)
		} else {
			observability.Cache().OnCacheMiss(ctx, c.keyType)
		}
	}
	return data, ok, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, c.keyType, len(data))
	return nil
}
