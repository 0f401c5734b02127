// Package parser holds the contract and registry for parser collaborators.
// A parser subscribes to raw fetch events and emits parse::* events with a
// structured view of the resource.
package parser

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gyaneshwarpardhi/hintscan/internal/connector"
)

// Parser is an instantiated parser. Construction registers its
// subscriptions on the host.
type Parser interface {
	Name() string
}

// Factory builds a parser bound to host.
type Factory func(host connector.Host) (Parser, error)

// Definition describes a registered parser.
type Definition struct {
	Name string
	New  Factory
}

// Registry maps parser names to their definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition. Panics on duplicate names.
func (r *Registry) Register(d Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.Name == "" || d.New == nil {
		panic("parser registry: name and factory are required")
	}
	if _, exists := r.defs[d.Name]; exists {
		panic(fmt.Sprintf("parser registry: duplicate name %q", d.Name))
	}
	r.defs[d.Name] = d
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("no parser registered as %q", name)
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
