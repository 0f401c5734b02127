// Package remote implements a connector that audits sites over HTTP. It
// loads the target document, records redirects as hops and fetches the
// stylesheets, scripts, icons and images the document references.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gyaneshwarpardhi/hintscan/internal/bus"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector"
	"github.com/gyaneshwarpardhi/hintscan/internal/dom"
	"github.com/gyaneshwarpardhi/hintscan/internal/event"
	"github.com/gyaneshwarpardhi/hintscan/internal/mediatype"
	htmlparser "github.com/gyaneshwarpardhi/hintscan/internal/parser/html"
)

// Name is the registry name of the connector.
const Name = "remote"

// Definition registers the connector.
var Definition = connector.Definition{Name: Name, New: New}

const (
	defaultUserAgent    = "hintscan"
	defaultMaxRedirects = 10
	defaultTimeoutMs    = 30000
	defaultConcurrency  = 8
)

// referenced selects the elements whose resources a browser would load.
const referenced = `link[rel~="stylesheet"][href], link[rel~="icon"][href], link[rel="manifest"][href], script[src], img[src]`

// Options is the connector.options section of the config.
type Options struct {
	// Headers are sent with every request.
	Headers map[string]string `json:"headers"`
	// UserAgent replaces the default User-Agent header.
	UserAgent string `json:"user_agent"`
	// MaxRedirects bounds the redirects followed by one fetch.
	MaxRedirects int `json:"max_redirects"`
	// TimeoutMs bounds one request, body included.
	TimeoutMs int `json:"timeout_ms"`
	// Concurrency bounds parallel subresource fetches.
	Concurrency int `json:"concurrency"`
	// SkipSubresources only fetches the target document.
	SkipSubresources bool `json:"skip_subresources"`
}

// Connector fetches http and https targets.
type Connector struct {
	host    connector.Host
	opts    Options
	client  *http.Client
	headers http.Header
	logger  *slog.Logger

	mu     sync.RWMutex
	doc    *dom.Document
	docURL string

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a remote connector bound to host.
func New(host connector.Host, options map[string]interface{}) (connector.Connector, error) {
	opts, err := decodeOptions(options)
	if err != nil {
		return nil, err
	}
	headers := make(http.Header, len(opts.Headers)+1)
	for k, v := range opts.Headers {
		headers.Set(k, v)
	}
	headers.Set("User-Agent", opts.UserAgent)

	c := &Connector{
		host: host,
		opts: opts,
		client: &http.Client{
			Timeout: time.Duration(opts.TimeoutMs) * time.Millisecond,
			// redirects are followed by hand so every hop is recorded
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		headers: headers,
		logger:  host.Logger().With("connector", Name),
		done:    make(chan struct{}),
	}
	if err := host.On(event.TypeParseEnd(htmlparser.Name), bus.Typed(c.onParseHTML)); err != nil {
		return nil, fmt.Errorf("remote connector: %w", err)
	}
	return c, nil
}

func decodeOptions(options map[string]interface{}) (Options, error) {
	opts := Options{}
	if len(options) > 0 {
		b, err := json.Marshal(options)
		if err != nil {
			return opts, fmt.Errorf("remote connector options: %w", err)
		}
		dec := json.NewDecoder(strings.NewReader(string(b)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			return opts, fmt.Errorf("remote connector options: %w", err)
		}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}
	if opts.TimeoutMs <= 0 {
		opts.TimeoutMs = defaultTimeoutMs
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return opts, nil
}

// Collect loads target and then every resource its document references.
// A target that cannot be fetched at all fails the scan; failing
// subresources become fetch::error events.
func (c *Connector) Collect(ctx context.Context, target *url.URL, opts *connector.FetchOptions) error {
	if c.closed() {
		return connector.ErrClosed
	}
	if target == nil {
		return fmt.Errorf("%w: no target", connector.ErrUnsupportedTarget)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return fmt.Errorf("%w: the remote connector only loads http and https targets, got %q",
			connector.ErrUnsupportedTarget, target.String())
	}

	href := target.String()
	start := event.Event{Resource: href}
	if err := c.host.EmitAsync(ctx, event.TypeScanStart, start); err != nil {
		return err
	}
	if err := c.host.EmitAsync(ctx, event.TypeFetchStartTarget, start); err != nil {
		return err
	}

	data, _, err := c.fetch(ctx, href, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", connector.ErrUnsupportedTarget, err)
	}
	if opts != nil && opts.Content != "" {
		data.Response.Body.Content = opts.Content
		data.Response.Body.RawContent = []byte(opts.Content)
	}
	c.mu.Lock()
	c.docURL = data.Response.URL
	c.mu.Unlock()

	if err := c.host.EmitAsync(ctx, event.TypeFetchStart, start); err != nil {
		return err
	}
	if err := c.emitFetchEnd(ctx, data, nil); err != nil {
		return err
	}

	if !c.opts.SkipSubresources {
		if err := c.collectReferenced(ctx); err != nil {
			return err
		}
	}
	if c.closed() {
		return nil
	}
	return c.host.EmitAsync(ctx, event.TypeScanEnd, start)
}

type reference struct {
	element  *dom.Element
	resource string
	data     *connector.NetworkData
	hops     []string
	err      error
}

// collectReferenced fetches the resources of the target document
// concurrently and announces them in document order.
func (c *Connector) collectReferenced(ctx context.Context) error {
	refs, err := c.references()
	if err != nil || len(refs) == 0 {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for _, r := range refs {
		if r.err != nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r.data, r.hops, r.err = c.fetch(gctx, r.resource, nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range refs {
		if c.closed() {
			return nil
		}
		if err := c.host.EmitAsync(ctx, event.TypeFetchStart, event.Event{Resource: r.resource}); err != nil {
			return err
		}
		if r.err != nil {
			c.logger.Debug("fetch failed", "resource", r.resource, "err", r.err)
			if err := c.host.EmitAsync(ctx, event.TypeFetchError, &event.FetchError{
				Event:   event.Event{Resource: r.resource},
				Element: r.element,
				Err:     r.err,
				Hops:    r.hops,
			}); err != nil {
				return err
			}
			continue
		}
		if err := c.emitFetchEnd(ctx, r.data, r.element); err != nil {
			return err
		}
	}
	return nil
}

// references lists the resources of the target document, resolved against
// its final URL. data: URIs and repeated URLs are skipped.
func (c *Connector) references() ([]*reference, error) {
	c.mu.RLock()
	doc, docURL := c.doc, c.docURL
	c.mu.RUnlock()
	if doc == nil {
		return nil, nil
	}
	base, err := url.Parse(docURL)
	if err != nil {
		return nil, fmt.Errorf("remote connector: document url: %w", err)
	}
	elements, err := doc.QuerySelectorAll(referenced)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var refs []*reference
	for _, el := range elements {
		attr := "src"
		if el.TagName() == "link" {
			attr = "href"
		}
		raw, _ := el.Attribute(attr)
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(strings.ToLower(raw), "data:") {
			continue
		}
		r := &reference{element: el, resource: raw, hops: []string{}}
		if u, err := base.Parse(raw); err != nil {
			r.err = err
		} else {
			r.resource = u.String()
		}
		if seen[r.resource] {
			continue
		}
		seen[r.resource] = true
		if r.err == nil && !fetchable(r.resource) {
			r.err = fmt.Errorf("%w %q", ErrUnsupportedScheme, r.resource)
		}
		refs = append(refs, r)
	}
	return refs, nil
}

func (c *Connector) emitFetchEnd(ctx context.Context, data *connector.NetworkData, el *dom.Element) error {
	bucket := mediatype.Bucket(data.Response.MediaType)
	return c.host.EmitAsync(ctx, event.TypeFetchEnd(bucket), &event.FetchEnd{
		Event:    event.Event{Resource: data.Response.URL},
		Element:  el,
		Request:  data.Request,
		Response: data.Response,
	})
}

func (c *Connector) onParseHTML(ctx context.Context, p *htmlparser.Parse) error {
	c.mu.Lock()
	if p.Resource == c.docURL {
		c.doc = p.Document
	}
	c.mu.Unlock()

	if err := connector.Traverse(ctx, c.host, p.Document, p.Resource); err != nil {
		return err
	}
	return c.host.EmitAsync(ctx, event.TypeCanEvaluateScript, &event.CanEvaluate{
		Event:    event.Event{Resource: p.Resource},
		Document: p.Document,
	})
}

// FetchContent downloads target, following redirects. A non-empty
// opts.Content replaces the downloaded body.
func (c *Connector) FetchContent(ctx context.Context, target string, headers http.Header, opts *connector.FetchOptions) (*connector.NetworkData, error) {
	data, _, err := c.fetch(ctx, target, headers)
	if err != nil {
		return nil, err
	}
	if opts != nil && opts.Content != "" {
		data.Response.Body.Content = opts.Content
		data.Response.Body.RawContent = []byte(opts.Content)
	}
	return data, nil
}

// fetch is FetchContent that also returns the hops followed, even when the
// fetch failed.
func (c *Connector) fetch(ctx context.Context, target string, headers http.Header) (*connector.NetworkData, []string, error) {
	if c.closed() {
		return nil, []string{}, connector.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, []string{}, err
	}
	res, hops, err := c.get(ctx, target, headers)
	if err != nil {
		return nil, hops, err
	}

	name := ""
	if u, err := url.Parse(res.url); err == nil {
		name = u.Path
	}
	mt, cs := mediatype.Determine(name, res.header.Get("Content-Type"), res.body)
	content := ""
	if mediatype.IsText(mt) {
		content = mediatype.Decode(res.body, cs)
	}
	raw := res.body
	return &connector.NetworkData{
		Request: event.Request{Headers: c.requestHeaders(headers), URL: target},
		Response: event.Response{
			Body: event.ResponseBody{
				Content:    content,
				RawContent: raw,
				RawResponse: func(context.Context) ([]byte, error) {
					return raw, nil
				},
			},
			Charset:    cs,
			Headers:    res.header,
			Hops:       hops,
			MediaType:  mt,
			StatusCode: res.status,
			URL:        res.url,
		},
	}, hops, nil
}

// Evaluate is not supported: pages are not executed.
func (c *Connector) Evaluate(context.Context, string) (interface{}, error) { return nil, nil }

// QuerySelectorAll queries the target document.
func (c *Connector) QuerySelectorAll(selector string) ([]*dom.Element, error) {
	doc := c.DOM()
	if doc == nil {
		return nil, nil
	}
	return doc.QuerySelectorAll(selector)
}

// DOM returns the target document once it has been parsed.
func (c *Connector) DOM() *dom.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc
}

// Close drops idle connections. It is safe to call more than once.
func (c *Connector) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.client.CloseIdleConnections()
	})
	return nil
}

func (c *Connector) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func fetchable(resource string) bool {
	u, err := url.Parse(resource)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

var (
	// ErrUnsupportedScheme is the fetch error of resources that are not
	// http or https.
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	// ErrTooManyRedirects is the fetch error of redirect chains longer than
	// max_redirects.
	ErrTooManyRedirects = errors.New("too many redirects")
)
