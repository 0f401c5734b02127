package hint

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps hint ids to their definitions.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition. Panics on duplicate ids to surface misconfiguration early.
func (r *Registry) Register(d Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.Meta.ID == "" || d.New == nil {
		panic("hint registry: id and factory are required")
	}
	if _, exists := r.defs[d.Meta.ID]; exists {
		panic(fmt.Sprintf("hint registry: duplicate id %q", d.Meta.ID))
	}
	if d.Meta.Scope == "" {
		d.Meta.Scope = ScopeAny
	}
	r.defs[d.Meta.ID] = d
}

// Get returns the definition for id.
func (r *Registry) Get(id string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[id]
	if !ok {
		return Definition{}, fmt.Errorf("no hint registered as %q", id)
	}
	return d, nil
}

// Schemas returns the option schemas of id; it fits config.SchemaLookup.
func (r *Registry) Schemas(id string) ([]map[string]interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[id]
	if !ok {
		return nil, false
	}
	return d.Meta.Schema, true
}

// Metas returns the metadata of every registered hint, sorted by id.
func (r *Registry) Metas() []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Meta, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d.Meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
