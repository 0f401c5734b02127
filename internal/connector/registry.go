package connector

import (
	"fmt"
	"sort"
	"sync"
)

// Definition describes a registered connector.
type Definition struct {
	Name string
	// Local is true for connectors that read local files rather than sites;
	// it decides which hint scopes apply.
	Local bool
	New   Factory
}

// Registry maps connector names to their definitions.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition. Panics on duplicate names to surface misconfiguration early.
func (r *Registry) Register(d Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.Name == "" || d.New == nil {
		panic("connector registry: name and factory are required")
	}
	if _, exists := r.defs[d.Name]; exists {
		panic(fmt.Sprintf("connector registry: duplicate name %q", d.Name))
	}
	r.defs[d.Name] = d
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("no connector registered as %q", name)
	}
	return d, nil
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.defs))
	for k := range r.defs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
