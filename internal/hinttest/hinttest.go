// Package hinttest runs hints end to end against files on disk. It wires
// the real engine with the local connector and the HTML parser so hint tests
// exercise the same event sequence a CLI scan produces.
package hinttest

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/hintscan/internal/config"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector/local"
	"github.com/gyaneshwarpardhi/hintscan/internal/engine"
	"github.com/gyaneshwarpardhi/hintscan/internal/hint"
	"github.com/gyaneshwarpardhi/hintscan/internal/parser"
	htmlparser "github.com/gyaneshwarpardhi/hintscan/internal/parser/html"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

// Files maps slash-separated relative paths to their content.
type Files map[string]string

// Write creates files under a fresh temporary directory and returns it.
func Write(t testing.TB, files Files) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

// FileURL returns the file: URL of path.
func FileURL(path string) *url.URL {
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
}

// New builds an engine running only def with the given raw hint
// configuration (a severity, or a [severity, options] array).
func New(def hint.Definition, raw interface{}) (*engine.Engine, error) {
	hints := hint.NewRegistry()
	hints.Register(def)
	connectors := connector.NewRegistry()
	connectors.Register(local.Definition)
	parsers := parser.NewRegistry()
	parsers.Register(htmlparser.Definition)

	cfg := &config.Config{
		Version:   "v1",
		Connector: config.ConnectorConf{Name: local.Name},
		Hints:     map[string]interface{}{def.Meta.ID: raw},
	}
	cfg.ApplyDefaults()
	return engine.New(cfg, engine.Options{Hints: hints, Connectors: connectors, Parsers: parsers})
}

// Scan runs def over target and returns the report. Listener faults fail
// the test.
func Scan(t testing.TB, def hint.Definition, raw interface{}, target *url.URL) *engine.Report {
	t.Helper()
	e, err := New(def, raw)
	require.NoError(t, err)

	rep, err := e.Scan(context.Background(), target, engine.ScanOptions{})
	require.NoError(t, err)
	require.Empty(t, rep.Faults, "hint listeners must not fault")
	return rep
}

// Run writes files and scans their directory.
func Run(t testing.TB, def hint.Definition, raw interface{}, files Files) []problem.Problem {
	t.Helper()
	return Scan(t, def, raw, FileURL(Write(t, files))).Problems
}

// For keeps the problems whose resource ends with suffix.
func For(problems []problem.Problem, suffix string) []problem.Problem {
	var out []problem.Problem
	for _, p := range problems {
		if strings.HasSuffix(p.Resource, suffix) {
			out = append(out, p)
		}
	}
	return out
}
