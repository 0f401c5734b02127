// Package local implements a connector that scans files and directories on
// the local filesystem, optionally watching them for changes.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gyaneshwarpardhi/hintscan/internal/bus"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector"
	"github.com/gyaneshwarpardhi/hintscan/internal/dom"
	"github.com/gyaneshwarpardhi/hintscan/internal/event"
	"github.com/gyaneshwarpardhi/hintscan/internal/mediatype"
	htmlparser "github.com/gyaneshwarpardhi/hintscan/internal/parser/html"
)

// Name is the registry name of the connector.
const Name = "local"

// Definition registers the connector.
var Definition = connector.Definition{Name: Name, Local: true, New: New}

// Options is the connector.options section of the config.
type Options struct {
	// Pattern selects the files of a directory target; see DefaultPattern.
	Pattern []string `json:"pattern"`
	// Watch keeps the scan open and re-analyzes files as they change.
	Watch bool `json:"watch"`
}

// Connector reads file: targets.
type Connector struct {
	host   connector.Host
	opts   Options
	logger *slog.Logger

	mu   sync.RWMutex
	doc  *dom.Document
	href string

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a local connector bound to host.
func New(host connector.Host, options map[string]interface{}) (connector.Connector, error) {
	opts, err := decodeOptions(options)
	if err != nil {
		return nil, err
	}
	c := &Connector{
		host:   host,
		opts:   opts,
		logger: host.Logger().With("connector", Name),
		done:   make(chan struct{}),
	}
	if err := host.On(event.TypeParseEnd(htmlparser.Name), bus.Typed(c.onParseHTML)); err != nil {
		return nil, fmt.Errorf("local connector: %w", err)
	}
	return c, nil
}

func decodeOptions(options map[string]interface{}) (Options, error) {
	opts := Options{}
	if len(options) > 0 {
		normalized := make(map[string]interface{}, len(options))
		for k, v := range options {
			normalized[k] = v
		}
		if s, ok := normalized["pattern"].(string); ok {
			normalized["pattern"] = []string{s}
		}
		b, err := json.Marshal(normalized)
		if err != nil {
			return opts, fmt.Errorf("local connector options: %w", err)
		}
		dec := json.NewDecoder(strings.NewReader(string(b)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			return opts, fmt.Errorf("local connector options: %w", err)
		}
	}
	if opts.Pattern == nil {
		opts.Pattern = DefaultPattern
	}
	return opts, nil
}

// Collect scans target, a file: URL naming a file or a directory.
func (c *Connector) Collect(ctx context.Context, target *url.URL, opts *connector.FetchOptions) error {
	if c.closed() {
		return connector.ErrClosed
	}
	if target == nil {
		return fmt.Errorf("%w: no target", connector.ErrUnsupportedTarget)
	}
	if target.Scheme != "file" {
		return fmt.Errorf("%w: the local connector only reads file: targets, got %q",
			connector.ErrUnsupportedTarget, target.String())
	}
	root := filepath.FromSlash(target.Path)
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %v", connector.ErrUnsupportedTarget, err)
	}

	var files []string
	if info.IsDir() {
		m, err := newMatcher(root, c.opts.Pattern, c.logger)
		if err != nil {
			return err
		}
		if files, err = m.walk(root); err != nil {
			return err
		}
		// content only replaces a single file
		opts = nil
	} else {
		files = []string{root}
	}

	href := target.String()
	c.mu.Lock()
	c.href = href
	c.mu.Unlock()

	start := event.Event{Resource: href}
	if err := c.host.EmitAsync(ctx, event.TypeScanStart, start); err != nil {
		return err
	}
	if !info.IsDir() {
		if err := c.host.EmitAsync(ctx, event.TypeFetchStartTarget, start); err != nil {
			return err
		}
	}

	results, err := c.readAll(ctx, files, opts)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := c.notifyFetch(ctx, r); err != nil {
			return err
		}
	}

	if c.opts.Watch {
		return c.watch(ctx, root, info.IsDir())
	}
	return c.host.EmitAsync(ctx, event.TypeScanEnd, start)
}

type fetchResult struct {
	resource string
	data     *connector.NetworkData
	err      error
}

// readAll reads every file concurrently. Per-file failures are kept in the
// result so they can be reported as fetch::error in order.
func (c *Connector) readAll(ctx context.Context, files []string, opts *connector.FetchOptions) ([]fetchResult, error) {
	results := make([]fetchResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0) * 2)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := c.FetchContent(gctx, file, nil, opts)
			results[i] = fetchResult{resource: fileURL(file), data: data, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Connector) notifyFetch(ctx context.Context, r fetchResult) error {
	if err := c.host.EmitAsync(ctx, event.TypeFetchStart, event.Event{Resource: r.resource}); err != nil {
		return err
	}
	if r.err != nil {
		c.logger.Debug("fetch failed", "resource", r.resource, "err", r.err)
		return c.host.EmitAsync(ctx, event.TypeFetchError, &event.FetchError{
			Event: event.Event{Resource: r.resource},
			Err:   r.err,
			Hops:  []string{},
		})
	}
	bucket := mediatype.Bucket(r.data.Response.MediaType)
	return c.host.EmitAsync(ctx, event.TypeFetchEnd(bucket), &event.FetchEnd{
		Event:    event.Event{Resource: r.resource},
		Request:  r.data.Request,
		Response: r.data.Response,
	})
}

func (c *Connector) fetch(ctx context.Context, file string) error {
	data, err := c.FetchContent(ctx, file, nil, nil)
	if c.closed() {
		return nil
	}
	return c.notifyFetch(ctx, fetchResult{resource: fileURL(file), data: data, err: err})
}

func (c *Connector) onParseHTML(ctx context.Context, p *htmlparser.Parse) error {
	c.mu.Lock()
	c.doc = p.Document
	c.mu.Unlock()

	if err := connector.Traverse(ctx, c.host, p.Document, p.Resource); err != nil {
		return err
	}
	return c.host.EmitAsync(ctx, event.TypeCanEvaluateScript, &event.CanEvaluate{
		Event:    event.Event{Resource: p.Resource},
		Document: p.Document,
	})
}

// FetchContent reads target, a path or file: URL. A non-empty opts.Content
// is used instead of the file's bytes.
func (c *Connector) FetchContent(ctx context.Context, target string, headers http.Header, opts *connector.FetchOptions) (*connector.NetworkData, error) {
	if c.closed() {
		return nil, connector.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := pathOf(target)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if opts != nil && opts.Content != "" {
		raw = []byte(opts.Content)
	} else if raw, err = os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	mt, cs := mediatype.Determine(path, "", raw)
	content := ""
	if mediatype.IsText(mt) {
		content = mediatype.Decode(raw, cs)
	}
	resource := fileURL(path)
	return &connector.NetworkData{
		Request: event.Request{Headers: headers, URL: resource},
		Response: event.Response{
			Body: event.ResponseBody{
				Content:    content,
				RawContent: raw,
				RawResponse: func(context.Context) ([]byte, error) {
					return raw, nil
				},
			},
			Charset:    cs,
			Headers:    http.Header{},
			Hops:       []string{},
			MediaType:  mt,
			StatusCode: http.StatusOK,
			URL:        resource,
		},
	}, nil
}

// Evaluate is not supported: local files are not executed.
func (c *Connector) Evaluate(context.Context, string) (interface{}, error) { return nil, nil }

// QuerySelectorAll queries the last parsed HTML document.
func (c *Connector) QuerySelectorAll(selector string) ([]*dom.Element, error) {
	doc := c.DOM()
	if doc == nil {
		return nil, nil
	}
	return doc.QuerySelectorAll(selector)
}

// DOM returns the last parsed HTML document, if any.
func (c *Connector) DOM() *dom.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc
}

// Close stops a running watch. It is safe to call more than once.
func (c *Connector) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
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

func pathOf(target string) (string, error) {
	if !strings.HasPrefix(target, "file:") {
		return filepath.Clean(target), nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", connector.ErrUnsupportedTarget, err)
	}
	return filepath.FromSlash(u.Path), nil
}

// fileURL is the resource URL of a local path.
func fileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
