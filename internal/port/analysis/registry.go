package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownBackend is returned by New for an unregistered backend name.
var ErrUnknownBackend = errors.New("analysis: unknown backend")

// Factory creates a new Engine. Blocking setup (spawning and initializing a
// language server) must honor ctx.
type Factory func(ctx context.Context, opts Options) (Engine, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes an engine backend available by name.
// It is typically called from an init() function in the adapter package.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("analysis: duplicate registration for %q", name))
	}
	factories[name] = factory
}

// New creates an Engine by backend name using the registered factory.
func New(ctx context.Context, name string, opts Options) (Engine, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, name)
	}
	return factory(ctx, opts)
}

// Available returns the sorted names of all registered backends.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
