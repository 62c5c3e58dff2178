package strategy

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a Policy from its configuration.
type Factory func(cfg Config) (Policy, error)

// Registry maps policy names to factories. It is safe for concurrent use.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// DefaultRegistry returns a Registry with the built-in policies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("noop", func(Config) (Policy, error) { return Noop{}, nil })
	r.Register("sample", NewSample)
	return r
}

// Register adds a factory under name, replacing any existing one.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New builds the policy registered under cfg.Name.
func (r *Registry) New(cfg Config) (Policy, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("strategy %q: not registered", cfg.Name)
	}
	return f(cfg)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
