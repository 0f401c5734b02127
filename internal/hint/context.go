package hint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gyaneshwarpardhi/hintscan/internal/bus"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector"
	"github.com/gyaneshwarpardhi/hintscan/internal/dom"
	"github.com/gyaneshwarpardhi/hintscan/internal/event"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

// Host is the scan session behind a Context.
type Host interface {
	Subscribe(owner, pattern string, l bus.Listener) error
	// Report stores p and reports whether it was kept.
	Report(p problem.Problem) bool
	// Ignored reports whether hintID is switched off for resource.
	Ignored(hintID, resource string) bool
	FetchContent(ctx context.Context, target string, headers http.Header, opts *connector.FetchOptions) (*connector.NetworkData, error)
	Evaluate(ctx context.Context, script string) (interface{}, error)
	QuerySelectorAll(selector string) ([]*dom.Element, error)
	DOM() *dom.Document
}

// Settings is the resolved, per-scan configuration of one hint.
type Settings struct {
	Severity         problem.Severity
	Options          interface{}
	TargetedBrowsers []string
	Language         string
	Logger           *slog.Logger
}

// Context is the only surface a hint uses to talk to the engine. One
// Context exists per hint per scan.
type Context struct {
	meta     Meta
	settings Settings
	host     Host
	logger   *slog.Logger
}

// NewContext binds a hint's metadata and settings to a scan host.
func NewContext(meta Meta, settings Settings, host Host) *Context {
	logger := settings.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		meta:     meta,
		settings: settings,
		host:     host,
		logger:   logger.With("hint", meta.ID),
	}
}

// OwnerPrefix starts the subscription owner tag of every hint listener.
const OwnerPrefix = "hint:"

// Owner is the subscription owner tag used for this hint's listeners.
func Owner(id string) string { return OwnerPrefix + id }

// OwnerID returns the hint id behind an owner tag, and false for owners
// that are not hints.
func OwnerID(owner string) (string, bool) {
	return strings.CutPrefix(owner, OwnerPrefix)
}

// ID returns the hint id.
func (c *Context) ID() string { return c.meta.ID }

// On subscribes l for this hint. Firings whose resource is ignored for the
// hint are not delivered.
func (c *Context) On(pattern string, l bus.Listener) error {
	if l == nil {
		return fmt.Errorf("hint %s: nil listener for %q", c.meta.ID, pattern)
	}
	wrapped := func(ctx context.Context, name event.Name, payload event.Payload) error {
		if payload != nil && c.host.Ignored(c.meta.ID, payload.ResourceURL()) {
			return nil
		}
		return l(ctx, name, payload)
	}
	return c.host.Subscribe(Owner(c.meta.ID), pattern, wrapped)
}

// ReportOption adjusts a reported problem.
type ReportOption func(*report)

type report struct {
	severity     *problem.Severity
	location     *problem.Location
	element      *dom.Element
	snippet      string
	codeLanguage string
}

// WithSeverity overrides the hint's configured severity for one report.
func WithSeverity(s problem.Severity) ReportOption {
	return func(r *report) { r.severity = &s }
}

// WithLocation sets the position of the problem.
func WithLocation(l problem.Location) ReportOption {
	return func(r *report) { r.location = &l }
}

// WithElement ties the problem to an element; its position and markup fill
// location and source code when those are not given.
func WithElement(e *dom.Element) ReportOption {
	return func(r *report) { r.element = e }
}

// WithCodeSnippet sets the source code shown with the problem.
func WithCodeSnippet(s string) ReportOption {
	return func(r *report) { r.snippet = s }
}

// WithCodeLanguage sets the language of the source code.
func WithCodeLanguage(lang string) ReportOption {
	return func(r *report) { r.codeLanguage = lang }
}

// Report records a problem for resource. Without WithSeverity the hint's
// configured severity is used; problems at severity off are dropped.
func (c *Context) Report(resource, message string, opts ...ReportOption) {
	var r report
	for _, opt := range opts {
		opt(&r)
	}
	sev := c.settings.Severity
	if r.severity != nil {
		sev = *r.severity
	}
	if c.host.Ignored(c.meta.ID, resource) {
		return
	}

	p := problem.Problem{
		Resource:     resource,
		HintID:       c.meta.ID,
		Category:     c.meta.Docs.Category,
		Severity:     sev,
		Message:      message,
		Location:     problem.UnknownLocation,
		SourceCode:   r.snippet,
		CodeLanguage: r.codeLanguage,
	}
	if p.Category == "" {
		p.Category = problem.CategoryOther
	}
	if r.element != nil {
		if loc, ok := r.element.Location(); ok {
			p.Location = problem.Location{
				Line:          loc.Line,
				Column:        loc.Column,
				ElementLine:   loc.Line,
				ElementColumn: loc.Column,
			}
		}
		if p.SourceCode == "" {
			p.SourceCode = r.element.OuterHTML()
		}
		if p.CodeLanguage == "" {
			p.CodeLanguage = "html"
		}
	}
	if r.location != nil {
		p.Location = *r.location
	}
	c.host.Report(p)
}

// FetchContent downloads target through the active connector.
func (c *Context) FetchContent(ctx context.Context, target string, headers http.Header) (*connector.NetworkData, error) {
	return c.host.FetchContent(ctx, target, headers, nil)
}

// Evaluate runs script in the page through the active connector.
func (c *Context) Evaluate(ctx context.Context, script string) (interface{}, error) {
	return c.host.Evaluate(ctx, script)
}

// QuerySelectorAll queries the connector's current document.
func (c *Context) QuerySelectorAll(selector string) ([]*dom.Element, error) {
	return c.host.QuerySelectorAll(selector)
}

// DOM returns the connector's current document, if any.
func (c *Context) DOM() *dom.Document { return c.host.DOM() }

// Options returns the validated hint options, or nil.
func (c *Context) Options() interface{} { return c.settings.Options }

// DecodeOptions decodes the hint options into v using JSON field rules.
// It leaves v untouched when no options were configured.
func (c *Context) DecodeOptions(v interface{}) error {
	if c.settings.Options == nil {
		return nil
	}
	b, err := json.Marshal(c.settings.Options)
	if err != nil {
		return fmt.Errorf("hint %s: encode options: %w", c.meta.ID, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("hint %s: decode options: %w", c.meta.ID, err)
	}
	return nil
}

// Severity returns the configured severity.
func (c *Context) Severity() problem.Severity { return c.settings.Severity }

// TargetedBrowsers returns the configured browser list.
func (c *Context) TargetedBrowsers() []string {
	return append([]string(nil), c.settings.TargetedBrowsers...)
}

// Language returns the configured message language.
func (c *Context) Language() string { return c.settings.Language }

// Logger returns a logger tagged with the hint id.
func (c *Context) Logger() *slog.Logger { return c.logger }
