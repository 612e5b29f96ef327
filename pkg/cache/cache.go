// Package cache provides byte caches used in front of the persistence
// gateway.
//
// Three backends implement [Cache]: [NullCache] (caching disabled),
// [FileCache] (local CLI use) and [RedisCache] (shared server deployments).
// Keys come from a [Keyer] so every backend shares one key layout.
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/sitecraft/pkg/observability"
)

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get returns the value of key. The boolean is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// SnapshotTTL is the default lifetime of a cached tenant document.
const SnapshotTTL = 10 * time.Minute

// Keyer builds cache keys.
type Keyer interface {
	// SnapshotKey is the key of a tenant's persisted document.
	SnapshotKey(tenantID string) string
}

type defaultKeyer struct{ prefix string }

func (k defaultKeyer) SnapshotKey(tenantID string) string {
	return k.prefix + "snapshot:" + tenantID
}

type scopedKeyer struct {
	inner  Keyer
	prefix string
}

func (k scopedKeyer) SnapshotKey(tenantID string) string {
	return k.prefix + k.inner.SnapshotKey(tenantID)
}

// NewDefaultKeyer returns the standard layout, "snapshot:{tenant}".
func NewDefaultKeyer() Keyer { return defaultKeyer{} }

// NewScopedKeyer prefixes every key of inner so several deployments can share
// one Redis database. A nil inner means the default layout.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		return defaultKeyer{prefix: prefix}
	}
	return scopedKeyer{inner: inner, prefix: prefix}
}

// NullCache is used when caching is disabled: every Get misses.
type NullCache struct{}

func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)          { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }

// instrumented reports hits, misses and writes to the cache hooks.
type instrumented struct {
	Cache
	keyType string
}

// Instrument wraps c so every Get and Set is reported to
// observability.Cache() under keyType.
func Instrument(c Cache, keyType string) Cache {
	return &instrumented{Cache: c, keyType: keyType}
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := c.Cache.Get(ctx, key)
	if err == nil {
		if hit {
			observability.Cache().OnCacheHit(ctx, c.keyType)
		} else {
			observability.Cache().OnCacheMiss(ctx, c.keyType)
		}
	}
	return data, hit, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, c.keyType, len(data))
	}
	return err
}
