package families

import (
	"fmt"
	"sort"
	"sync"

	domsvc "GridCast/internal/domain/service"
)

// Registry maps family names to implementations. Families are added via
// registration, not inheritance; the registry is the only place that knows
// concrete family identity.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]domsvc.ModelFamily
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]domsvc.ModelFamily)}
}

// Default returns a registry with all built-in families registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(NewARIMA())
	r.Register(NewSARIMA())
	r.Register(NewGBRT())
	r.Register(NewSeasonalNaive())
	return r
}

// Register adds or replaces a family under its own name.
func (r *Registry) Register(f domsvc.ModelFamily) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[f.Name()] = f
}

// Get returns the family registered under name.
func (r *Registry) Get(name string) (domsvc.ModelFamily, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown model family: %s", name)
	}
	return f, nil
}

// Has reports whether a family is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[name]
	return ok
}

// Names returns registered family names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
