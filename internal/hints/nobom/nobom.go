// Package nobom reports text resources that start with a UTF-8 byte order
// mark.
package nobom

import (
	"bytes"
	"context"
	"net/url"

	"github.com/gyaneshwarpardhi/hintscan/internal/bus"
	"github.com/gyaneshwarpardhi/hintscan/internal/event"
	"github.com/gyaneshwarpardhi/hintscan/internal/hint"
	"github.com/gyaneshwarpardhi/hintscan/internal/mediatype"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

const (
	msgTextBased         = "Text based resources should not start with a BOM character."
	msgCouldNotBeFetched = "Content could not be fetched."
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Meta describes the hint.
var Meta = hint.Meta{
	ID: "no-bom",
	Docs: hint.Docs{
		Category:    problem.CategoryCompatibility,
		Name:        "Avoid BOM in text resources",
		Description: "Warns against having the BOM character at the beginning of a text file.",
	},
	Scope:           hint.ScopeAny,
	DefaultSeverity: problem.Warning,
}

// Definition registers the hint.
var Definition = hint.Definition{Meta: Meta, New: New}

type noBOM struct {
	ctx *hint.Context
}

// New subscribes the hint to every fetch::end event.
func New(c *hint.Context) (hint.Hint, error) {
	h := &noBOM{ctx: c}
	if err := c.On(event.PatternFetchEndAny, bus.Typed(h.validate)); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *noBOM) Meta() hint.Meta { return Meta }

func (h *noBOM) validate(ctx context.Context, fe *event.FetchEnd) error {
	resource := fe.Resource
	if !regularProtocol(resource) || !mediatype.IsText(fe.Response.MediaType) {
		return nil
	}

	// Fetch again: what a connector hands to fetch::end may have had the
	// BOM stripped already.
	nd, err := h.ctx.FetchContent(ctx, resource, nil)
	if err != nil {
		h.ctx.Logger().Debug("refetch failed", "resource", resource, "err", err)
		h.ctx.Report(resource, msgCouldNotBeFetched,
			hint.WithElement(fe.Element), hint.WithSeverity(problem.Error))
		return nil
	}
	if bytes.HasPrefix(nd.Response.Body.RawContent, bom) {
		h.ctx.Report(resource, msgTextBased,
			hint.WithElement(fe.Element), hint.WithSeverity(problem.Warning))
	}
	return nil
}

func regularProtocol(resource string) bool {
	u, err := url.Parse(resource)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "file":
		return true
	}
	return false
}
