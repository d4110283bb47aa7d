// Package cachetest provides a behavioral test suite for cache.Cache
// implementations.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/codebridge/internal/port/cache"
)

// Run runs the compliance suite against c.
func Run(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "go:abc", []byte(`[]`), time.Minute); err != nil {
			t.Fatal(err)
		}
		val, found, err := c.Get(ctx, "go:abc")
		if err != nil {
			t.Fatal(err)
		}
		if !found || string(val) != `[]` {
			t.Fatalf("found=%v val=%q", found, val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "go:missing")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for unknown key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "go:del", []byte("x"), time.Minute)
		if err := c.Delete(ctx, "go:del"); err != nil {
			t.Fatal(err)
		}
		if _, found, _ := c.Get(ctx, "go:del"); found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "go:never"); err != nil {
			t.Fatalf("Delete of unknown key: %v", err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, "go:ow", []byte("v1"), time.Minute)
		_ = c.Set(ctx, "go:ow", []byte("v2"), time.Minute)
		val, found, err := c.Get(ctx, "go:ow")
		if err != nil {
			t.Fatal(err)
		}
		if !found || string(val) != "v2" {
			t.Fatalf("found=%v val=%q, want v2", found, val)
		}
	})
}
