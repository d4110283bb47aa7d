package resilience

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter caps how many engines run at once. Each one-shot query starts
// its own engine, which for the lsp backend is a child process.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter creates a Limiter admitting at most limit concurrent calls.
func NewLimiter(limit int) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(limit))}
}

// Run waits for a slot, runs fn and releases the slot. It returns ctx.Err()
// if ctx ends while waiting. A nil Limiter runs fn directly.
func (l *Limiter) Run(ctx context.Context, fn func() error) error {
	if l == nil || l.sem == nil {
		return fn()
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return fn()
}
