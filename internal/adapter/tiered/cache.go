// Package tiered layers an in-process cache over a shared one so diagnostic
// sets computed by one instance are reused by its peers.
package tiered

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/codebridge/internal/port/cache"
)

// Cache checks the local level first and falls back to the shared level,
// backfilling local on a shared hit. The shared level is best effort: its
// errors are logged and treated as misses.
type Cache struct {
	local    cache.Cache
	shared   cache.Cache
	backfill time.Duration
	log      *slog.Logger
}

// New creates a tiered cache. backfill is the local TTL for entries found
// only in the shared level.
func New(local, shared cache.Cache, backfill time.Duration, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{local: local, shared: shared, backfill: backfill, log: log}
}

// Get returns the value for key from the first level that has it.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, found, err := c.local.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	val, found, err = c.shared.Get(ctx, key)
	if err != nil {
		c.log.Warn("shared cache get failed", "key", key, "error", err)
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}
	_ = c.local.Set(ctx, key, val, c.backfill)
	return val, true, nil
}

// Set writes to both levels.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.local.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if err := c.shared.Set(ctx, key, value, ttl); err != nil {
		c.log.Warn("shared cache set failed", "key", key, "error", err)
	}
	return nil
}

// Delete removes key from both levels.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.local.Delete(ctx, key); err != nil {
		return err
	}
	if err := c.shared.Delete(ctx, key); err != nil {
		c.log.Warn("shared cache delete failed", "key", key, "error", err)
	}
	return nil
}
