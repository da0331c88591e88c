package stress

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a fresh Stressor. Stressors carry per-run state, so every
// instance the runner launches gets its own value.
type Factory func() Stressor

// Registry holds registered stressor factories and resolves them by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty stressor registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a stressor factory to the registry under the given name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Resolve returns a new instance of the stressor registered under name.
func (r *Registry) Resolve(name string) (Stressor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("stressor %q is not registered", name)
	}
	return f(), nil
}

// List returns information about all registered stressors, sorted by name
// for stable output.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.factories))
	for _, f := range r.factories {
		infos = append(infos, f().Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}
