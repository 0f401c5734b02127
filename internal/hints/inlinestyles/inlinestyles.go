// Package inlinestyles reports CSS written inside HTML: style attributes
// and, optionally, style elements.
package inlinestyles

import (
	"context"

	"github.com/gyaneshwarpardhi/hintscan/internal/bus"
	"github.com/gyaneshwarpardhi/hintscan/internal/event"
	"github.com/gyaneshwarpardhi/hintscan/internal/hint"
	htmlparser "github.com/gyaneshwarpardhi/hintscan/internal/parser/html"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

const (
	msgStyleAttribute = "CSS inline styles should not be used, move styles to an external CSS file."
	msgStyleElement   = "A style element was found, move styles to an external CSS file."
)

// Meta describes the hint.
var Meta = hint.Meta{
	ID: "no-inline-styles",
	Docs: hint.Docs{
		Category:    problem.CategoryDevelopment,
		Name:        "Disallow inline styles",
		Description: "Disallows the use of CSS inline styles in HTML.",
	},
	Schema: []map[string]interface{}{{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"requireNoStyleElement": map[string]interface{}{"type": "boolean"},
		},
	}},
	Scope:           hint.ScopeAny,
	DefaultSeverity: problem.Hint,
}

// Definition registers the hint.
var Definition = hint.Definition{Meta: Meta, New: New}

// Options are the hint options.
type Options struct {
	RequireNoStyleElement bool `json:"requireNoStyleElement"`
}

type inlineStyles struct {
	ctx  *hint.Context
	opts Options
}

// New subscribes the hint to parse::end::html.
func New(c *hint.Context) (hint.Hint, error) {
	h := &inlineStyles{ctx: c}
	if err := c.DecodeOptions(&h.opts); err != nil {
		return nil, err
	}
	if err := c.On(event.TypeParseEnd(htmlparser.Name), bus.Typed(h.validate)); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *inlineStyles) Meta() hint.Meta { return Meta }

func (h *inlineStyles) validate(_ context.Context, p *htmlparser.Parse) error {
	if h.opts.RequireNoStyleElement {
		styles, err := p.Document.QuerySelectorAll("style")
		if err != nil {
			return err
		}
		for _, el := range styles {
			h.ctx.Report(p.Resource, msgStyleElement, hint.WithElement(el))
		}
	}

	withStyle, err := p.Document.QuerySelectorAll("[style]")
	if err != nil {
		return err
	}
	for _, el := range withStyle {
		h.ctx.Report(p.Resource, msgStyleAttribute, hint.WithElement(el))
	}
	return nil
}
