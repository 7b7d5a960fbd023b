package content

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Factory builds a Source from options.
type Factory func(opts Options) (Source, error)

// SourceRegistry maps backend names to factories.
type SourceRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewSourceRegistry creates an empty registry.
func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{
		factories: make(map[string]Factory),
	}
}

// Register adds a backend to the registry.
func (r *SourceRegistry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("content source %s is already registered", name)
	}

	r.factories[name] = factory
	return nil
}

// NewSource builds the named backend.
func (r *SourceRegistry) NewSource(name string, opts Options) (Source, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("content source %s not found (available: %v)", name, r.List())
	}

	return factory(opts)
}

// List returns the registered backend names, sorted.
func (r *SourceRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := lo.Keys(r.factories)
	slices.Sort(names)
	return names
}

// DefaultRegistry holds the built-in backends.
var DefaultRegistry = NewSourceRegistry()

// MustRegister registers a backend with the default registry and panics on conflict.
func MustRegister(name string, factory Factory) {
	if err := DefaultRegistry.Register(name, factory); err != nil {
		panic(err)
	}
	slog.Debug("Registered content source", "source", name)
}

// NewSource builds a backend from the default registry.
func NewSource(name string, opts Options) (Source, error) {
	return DefaultRegistry.NewSource(name, opts)
}

// Sources lists the backends in the default registry.
func Sources() []string {
	return DefaultRegistry.List()
}
