package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sitecraft/pkg/cache"
	"github.com/matzehuels/sitecraft/pkg/document"
)

// Cached is a read-through cache in front of a gateway. Loads are served
// from the cache when possible; saves go to the gateway and invalidate the
// tenant's entry. Cache failures are logged and never fail an operation.
type Cached struct {
	Gateway
	cache  cache.Cache
	keyer  cache.Keyer
	ttl    time.Duration
	logger *log.Logger
}

// CachedOptions configures NewCached.
type CachedOptions struct {
	Keyer  cache.Keyer
	TTL    time.Duration
	Logger *log.Logger
}

// NewCached wraps g with c.
func NewCached(g Gateway, c cache.Cache, opts CachedOptions) *Cached {
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.TTL <= 0 {
		opts.TTL = cache.SnapshotTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Cached{
		Gateway: g,
		cache:   cache.Instrument(c, "snapshot"),
		keyer:   opts.Keyer,
		ttl:     opts.TTL,
		logger:  opts.Logger,
	}
}

// Load returns the cached document or loads and caches it.
func (c *Cached) Load(ctx context.Context, tenantID string) (*document.Snapshot, error) {
	key := c.keyer.SnapshotKey(tenantID)
	if data, hit, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("cache read failed", "tenant", tenantID, "err", err)
	} else if hit {
		var snap document.Snapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			return &snap, nil
		}
		_ = c.cache.Delete(ctx, key)
	}

	snap, err := c.Gateway.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(snap); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("cache write failed", "tenant", tenantID, "err", err)
		}
	}
	return snap, nil
}

// Save writes through and invalidates the tenant's entry.
func (c *Cached) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	res, err := c.Gateway.Save(ctx, req)
	if delErr := c.cache.Delete(ctx, c.keyer.SnapshotKey(req.TenantID)); delErr != nil {
		c.logger.Warn("cache invalidation failed", "tenant", req.TenantID, "err", delErr)
	}
	return res, err
}

// Close closes the gateway and the cache.
func (c *Cached) Close() error {
	err := c.Gateway.Close()
	if cerr := c.cache.Close(); err == nil {
		err = cerr
	}
	return err
}

var _ Gateway = (*Cached)(nil)
