// Package ristretto implements the cache port with dgraph-io/ristretto as an
// in-process cache for published diagnostic sets.
package ristretto

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache wraps a ristretto cache keyed by string with byte-slice values.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// Stats is a snapshot of cache effectiveness.
type Stats struct {
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// New creates a cache bounded to maxCostBytes of stored values.
func New(maxCostBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: max(maxCostBytes/100*10, 1000), // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &Cache{c: c}, nil
}

// Get retrieves a value.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a value with a TTL (0 = no expiry). Writes are applied before
// Set returns so an immediate Get observes them. Admission may still
// reject the value, which is not an error.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.c.SetWithTTL(key, value, int64(len(value))+int64(len(key)), ttl)
	c.c.Wait()
	return nil
}

// Delete removes a value.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Stats returns hit/miss counters.
func (c *Cache) Stats() Stats {
	m := c.c.Metrics
	if m == nil {
		return Stats{}
	}
	return Stats{Hits: m.Hits(), Misses: m.Misses(), HitRatio: m.Ratio()}
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
