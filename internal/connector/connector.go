package connector

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gyaneshwarpardhi/hintscan/internal/bus"
	"github.com/gyaneshwarpardhi/hintscan/internal/dom"
	"github.com/gyaneshwarpardhi/hintscan/internal/event"
)

var (
	// ErrUnsupportedTarget is returned by Collect for targets the connector
	// cannot load at all (wrong scheme, missing path, unreachable host).
	ErrUnsupportedTarget = errors.New("unsupported target")
	// ErrClosed is returned by operations on a closed connector.
	ErrClosed = errors.New("connector closed")
)

// FetchOptions tweaks Collect and FetchContent.
type FetchOptions struct {
	// Content, when non-empty, is analyzed instead of the target's bytes.
	// It is ignored when the target expands to several resources.
	Content string
}

// NetworkData is the result of one fetch.
type NetworkData struct {
	Request  event.Request
	Response event.Response
}

// Host is the engine surface available to connectors and parsers.
type Host interface {
	// On subscribes a listener on behalf of the collaborator.
	On(pattern string, l bus.Listener) error
	Emit(ctx context.Context, name string, payload event.Payload) bool
	EmitAsync(ctx context.Context, name string, payload event.Payload) error
	// Clean drops the problems reported so far for resource.
	Clean(resource string)
	// Clear drops every problem reported so far.
	Clear()
	// Notify signals that a watch cycle finished and the current problems
	// should be delivered.
	Notify(ctx context.Context, resource string)
	Language() string
	Logger() *slog.Logger
}

// Connector fetches a target and drives the scan lifecycle:
//
//	scan::start
//	fetch::start::target                 (single fetchable target only)
//	fetch::start -> fetch::end::<bucket> | fetch::error   (per resource)
//	scan::end
//
// All of them are emitted with EmitAsync. After Close returns no further
// events are emitted.
type Connector interface {
	Collect(ctx context.Context, target *url.URL, opts *FetchOptions) error
	FetchContent(ctx context.Context, target string, headers http.Header, opts *FetchOptions) (*NetworkData, error)
	// Evaluate runs script in the page context. Connectors without a script
	// runtime return (nil, nil).
	Evaluate(ctx context.Context, script string) (interface{}, error)
	QuerySelectorAll(selector string) ([]*dom.Element, error)
	Close() error
}

// DOMProvider is implemented by connectors that keep the current document.
type DOMProvider interface {
	DOM() *dom.Document
}

// Factory builds a connector bound to host. options come from the config
// file's connector.options.
type Factory func(host Host, options map[string]interface{}) (Connector, error)
