// Package html turns fetched HTML into a dom.Document and announces it with
// parse::end::html.
package html

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gyaneshwarpardhi/hintscan/internal/bus"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector"
	"github.com/gyaneshwarpardhi/hintscan/internal/dom"
	"github.com/gyaneshwarpardhi/hintscan/internal/event"
	"github.com/gyaneshwarpardhi/hintscan/internal/parser"
)

// Name is the registry name and parse event kind of this parser.
const Name = "html"

// Parse is the payload of parse::end::html.
type Parse struct {
	event.Event
	Document *dom.Document
	// HTML is the source the document was built from.
	HTML string
}

// Definition registers the parser.
var Definition = parser.Definition{Name: Name, New: New}

type htmlParser struct {
	host connector.Host
}

// New subscribes the parser to fetch::end::html on host.
func New(host connector.Host) (parser.Parser, error) {
	p := &htmlParser{host: host}
	if err := host.On(event.TypeFetchEnd(Name), bus.Typed(p.onFetchEnd)); err != nil {
		return nil, fmt.Errorf("html parser: %w", err)
	}
	return p, nil
}

func (p *htmlParser) Name() string { return Name }

func (p *htmlParser) onFetchEnd(ctx context.Context, fe *event.FetchEnd) error {
	resource := fe.Resource
	if err := p.host.EmitAsync(ctx, event.TypeParseStart(Name), event.Event{Resource: resource}); err != nil {
		return err
	}

	source := fe.Response.Body.Content
	if source == "" && len(fe.Response.Body.RawContent) > 0 {
		if !utf8.Valid(fe.Response.Body.RawContent) {
			return p.fail(ctx, resource, "encoding", fmt.Errorf("%s is not valid UTF-8", resource))
		}
		source = string(fe.Response.Body.RawContent)
	}
	source = strings.TrimPrefix(source, "\ufeff")

	doc, err := dom.Parse(source)
	if err != nil {
		return p.fail(ctx, resource, "syntax", err)
	}
	p.host.Logger().Debug("html parsed", "resource", resource, "elements", len(doc.Elements()))
	return p.host.EmitAsync(ctx, event.TypeParseEnd(Name), &Parse{
		Event:    event.Event{Resource: resource},
		Document: doc,
		HTML:     source,
	})
}

func (p *htmlParser) fail(ctx context.Context, resource, reason string, err error) error {
	return p.host.EmitAsync(ctx, event.TypeParseError(Name, reason), &event.ParseError{
		Event: event.Event{Resource: resource},
		Err:   err,
	})
}
