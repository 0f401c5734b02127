package hint

import "github.com/gyaneshwarpardhi/hintscan/internal/problem"

// Scope restricts the connectors a hint makes sense with.
type Scope string

const (
	// ScopeSite hints need a served site (headers, network behaviour).
	ScopeSite Scope = "site"
	// ScopeLocal hints only apply to local files.
	ScopeLocal Scope = "local"
	// ScopeAny hints run with every connector.
	ScopeAny Scope = "any"
)

// AppliesTo reports whether a hint of scope s runs with a local or a remote
// connector.
func (s Scope) AppliesTo(localConnector bool) bool {
	switch s {
	case ScopeSite:
		return !localConnector
	case ScopeLocal:
		return localConnector
	default:
		return true
	}
}

// Docs is the human-facing description of a hint.
type Docs struct {
	Category    problem.Category `json:"category"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
}

// Meta is the static descriptor of a hint.
type Meta struct {
	ID   string `json:"id"`
	Docs Docs   `json:"docs"`
	// Schema lists alternative JSON schemas for the hint options. Options
	// that satisfy any one of them are accepted; an empty list accepts all.
	Schema []map[string]interface{} `json:"schema,omitempty"`
	Scope  Scope                    `json:"scope"`
	// DefaultSeverity is used when the configuration says "default".
	DefaultSeverity problem.Severity `json:"default_severity"`
}

// Hint is an instantiated rule. Construction registers all subscriptions
// through the Context; the instance itself only exposes its metadata.
type Hint interface {
	Meta() Meta
}

// Factory creates a hint instance bound to c. It must subscribe to events
// synchronously and have no other side effects.
type Factory func(c *Context) (Hint, error)

// Definition pairs a hint's metadata with its factory.
type Definition struct {
	Meta Meta
	New  Factory
}
