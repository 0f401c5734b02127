// Package builtin wires the connectors, parsers and hints that ship with
// hintscan.
package builtin

import (
	"log/slog"
	"net/url"

	"github.com/gyaneshwarpardhi/hintscan/internal/config"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector/local"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector/remote"
	"github.com/gyaneshwarpardhi/hintscan/internal/engine"
	"github.com/gyaneshwarpardhi/hintscan/internal/hint"
	"github.com/gyaneshwarpardhi/hintscan/internal/hints/inlinestyles"
	"github.com/gyaneshwarpardhi/hintscan/internal/hints/nobom"
	"github.com/gyaneshwarpardhi/hintscan/internal/parser"
	htmlparser "github.com/gyaneshwarpardhi/hintscan/internal/parser/html"
)

// Hints returns a registry with every bundled hint.
func Hints() *hint.Registry {
	r := hint.NewRegistry()
	r.Register(nobom.Definition)
	r.Register(inlinestyles.Definition)
	return r
}

// Connectors returns a registry with every bundled connector.
func Connectors() *connector.Registry {
	r := connector.NewRegistry()
	r.Register(local.Definition)
	r.Register(remote.Definition)
	return r
}

// ConnectorFor names the bundled connector able to load target: remote for
// http and https URLs, local for everything else.
func ConnectorFor(target *url.URL) string {
	if target != nil && (target.Scheme == "http" || target.Scheme == "https") {
		return remote.Name
	}
	return local.Name
}

// Parsers returns a registry with every bundled parser.
func Parsers() *parser.Registry {
	r := parser.NewRegistry()
	r.Register(htmlparser.Definition)
	return r
}

// Set is the bundled registries; build engines from it so every engine of a
// process shares the same definitions.
type Set struct {
	Hints      *hint.Registry
	Connectors *connector.Registry
	Parsers    *parser.Registry
}

// New returns the bundled registries.
func New() *Set {
	return &Set{Hints: Hints(), Connectors: Connectors(), Parsers: Parsers()}
}

// Engine builds an engine for cfg. onReport may be nil.
func (s *Set) Engine(cfg *config.Config, logger *slog.Logger, onReport func(engine.Report)) (*engine.Engine, error) {
	return engine.New(cfg, engine.Options{
		Hints:      s.Hints,
		Connectors: s.Connectors,
		Parsers:    s.Parsers,
		Logger:     logger,
		OnReport:   onReport,
	})
}

// DefaultConfig enables every bundled hint at its default severity with the
// local connector.
func (s *Set) DefaultConfig() *config.Config {
	cfg := &config.Config{Version: "v1", Hints: make(map[string]interface{})}
	for _, m := range s.Hints.Metas() {
		cfg.Hints[m.ID] = engine.DefaultSeverityKeyword
	}
	cfg.ApplyDefaults()
	return cfg
}
