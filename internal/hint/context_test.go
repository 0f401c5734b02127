package hint_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/hintscan/internal/bus"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector"
	"github.com/gyaneshwarpardhi/hintscan/internal/dom"
	"github.com/gyaneshwarpardhi/hintscan/internal/event"
	"github.com/gyaneshwarpardhi/hintscan/internal/hint"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

// fakeHost is a minimal hint.Host backed by a real bus and collector.
type fakeHost struct {
	bus       *bus.Bus
	collector *problem.Collector
	ignored   map[string]bool
	fetched   []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		bus:       bus.New(bus.Options{}),
		collector: problem.NewCollector(),
		ignored:   map[string]bool{},
	}
}

func (h *fakeHost) Subscribe(owner, pattern string, l bus.Listener) error {
	return h.bus.Subscribe(owner, pattern, l)
}
func (h *fakeHost) Report(p problem.Problem) bool { return h.collector.Add(p) }
func (h *fakeHost) Ignored(id, resource string) bool {
	return h.ignored[resource]
}
func (h *fakeHost) FetchContent(_ context.Context, target string, _ http.Header, _ *connector.FetchOptions) (*connector.NetworkData, error) {
	h.fetched = append(h.fetched, target)
	return &connector.NetworkData{Response: event.Response{URL: target, StatusCode: 200}}, nil
}
func (h *fakeHost) Evaluate(context.Context, string) (interface{}, error) { return "ok", nil }
func (h *fakeHost) QuerySelectorAll(string) ([]*dom.Element, error)       { return nil, nil }
func (h *fakeHost) DOM() *dom.Document                                    { return nil }

var testMeta = hint.Meta{
	ID:    "test-hint",
	Docs:  hint.Docs{Category: problem.CategoryPerformance, Name: "Test"},
	Scope: hint.ScopeAny,
}

func TestReport_DefaultsToConfiguredSeverity(t *testing.T) {
	h := newFakeHost()
	c := hint.NewContext(testMeta, hint.Settings{Severity: problem.Warning}, h)

	c.Report("http://localhost/", "first")
	c.Report("http://localhost/", "second", hint.WithSeverity(problem.Error))

	ps := h.collector.Problems()
	require.Len(t, ps, 2)
	assert.Equal(t, problem.Warning, ps[0].Severity)
	assert.Equal(t, problem.Error, ps[1].Severity)
	assert.Equal(t, "test-hint", ps[0].HintID)
	assert.Equal(t, problem.CategoryPerformance, ps[0].Category)
	assert.Equal(t, problem.UnknownLocation, ps[0].Location)
}

func TestReport_SeverityOffIsDropped(t *testing.T) {
	h := newFakeHost()
	c := hint.NewContext(testMeta, hint.Settings{Severity: problem.Warning}, h)

	c.Report("http://localhost/", "hidden", hint.WithSeverity(problem.Off))
	assert.Zero(t, h.collector.Len())

	off := hint.NewContext(testMeta, hint.Settings{Severity: problem.Off}, h)
	off.Report("http://localhost/", "also hidden")
	assert.Zero(t, h.collector.Len())
}

func TestReport_ElementFillsLocationAndSource(t *testing.T) {
	h := newFakeHost()
	c := hint.NewContext(testMeta, hint.Settings{Severity: problem.Error}, h)

	doc, err := dom.Parse("<html>\n<body>\n  <p style=\"x\">a</p>\n</body>\n</html>")
	require.NoError(t, err)
	els, err := doc.QuerySelectorAll("p")
	require.NoError(t, err)

	c.Report("file:///a.html", "inline style", hint.WithElement(els[0]))
	c.Report("file:///a.html", "explicit", hint.WithElement(els[0]),
		hint.WithLocation(problem.Location{Line: 9, Column: 9}),
		hint.WithCodeSnippet("snippet"), hint.WithCodeLanguage("css"))

	ps := h.collector.Problems()
	require.Len(t, ps, 2)
	assert.Equal(t, 2, ps[0].Location.Line)
	assert.Equal(t, 2, ps[0].Location.Column)
	assert.Equal(t, `<p style="x">a</p>`, ps[0].SourceCode)
	assert.Equal(t, "html", ps[0].CodeLanguage)

	assert.Equal(t, 9, ps[1].Location.Line)
	assert.Equal(t, "snippet", ps[1].SourceCode)
	assert.Equal(t, "css", ps[1].CodeLanguage)
}

func TestOn_SkipsIgnoredResources(t *testing.T) {
	h := newFakeHost()
	h.ignored["http://cdn/ignored.js"] = true
	c := hint.NewContext(testMeta, hint.Settings{Severity: problem.Warning}, h)

	var seen []string
	require.NoError(t, c.On(event.PatternFetchEndAny, func(_ context.Context, _ event.Name, p event.Payload) error {
		seen = append(seen, p.ResourceURL())
		c.Report(p.ResourceURL(), "seen")
		return nil
	}))

	ctx := context.Background()
	require.NoError(t, h.bus.EmitAsync(ctx, "fetch::end::script", event.Event{Resource: "http://cdn/ignored.js"}))
	require.NoError(t, h.bus.EmitAsync(ctx, "fetch::end::script", event.Event{Resource: "http://site/app.js"}))

	assert.Equal(t, []string{"http://site/app.js"}, seen)
	assert.Equal(t, 1, h.collector.Len())
}

func TestOptionsAndAccessors(t *testing.T) {
	h := newFakeHost()
	c := hint.NewContext(testMeta, hint.Settings{
		Severity:         problem.Hint,
		Options:          map[string]interface{}{"requireNoStyleElement": true, "limit": float64(3)},
		TargetedBrowsers: []string{"chrome 100"},
		Language:         "de",
	}, h)

	var opts struct {
		RequireNoStyleElement bool `json:"requireNoStyleElement"`
		Limit                 int  `json:"limit"`
	}
	require.NoError(t, c.DecodeOptions(&opts))
	assert.True(t, opts.RequireNoStyleElement)
	assert.Equal(t, 3, opts.Limit)

	assert.Equal(t, "test-hint", c.ID())
	assert.Equal(t, problem.Hint, c.Severity())
	assert.Equal(t, "de", c.Language())
	assert.Equal(t, []string{"chrome 100"}, c.TargetedBrowsers())
	assert.NotNil(t, c.Logger())

	nd, err := c.FetchContent(context.Background(), "http://x/", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, nd.Response.StatusCode)
	assert.Equal(t, []string{"http://x/"}, h.fetched)

	v, err := c.Evaluate(context.Background(), "1+1")
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	empty := hint.NewContext(testMeta, hint.Settings{}, h)
	opts.Limit = 7
	require.NoError(t, empty.DecodeOptions(&opts))
	assert.Equal(t, 7, opts.Limit)
}

func TestRegistry(t *testing.T) {
	r := hint.NewRegistry()
	factory := func(c *hint.Context) (hint.Hint, error) { return nil, nil }
	r.Register(hint.Definition{Meta: hint.Meta{ID: "b"}, New: factory})
	r.Register(hint.Definition{Meta: hint.Meta{ID: "a", Schema: []map[string]interface{}{{"type": "object"}}}, New: factory})

	assert.Panics(t, func() { r.Register(hint.Definition{Meta: hint.Meta{ID: "a"}, New: factory}) })
	assert.Panics(t, func() { r.Register(hint.Definition{Meta: hint.Meta{ID: "c"}}) })

	metas := r.Metas()
	require.Len(t, metas, 2)
	assert.Equal(t, "a", metas[0].ID)
	assert.Equal(t, hint.ScopeAny, metas[1].Scope)

	schemas, ok := r.Schemas("a")
	assert.True(t, ok)
	assert.Len(t, schemas, 1)
	_, ok = r.Schemas("zzz")
	assert.False(t, ok)

	_, err := r.Get("zzz")
	assert.True(t, strings.Contains(err.Error(), "zzz"))
}

func TestScope(t *testing.T) {
	assert.True(t, hint.ScopeAny.AppliesTo(true))
	assert.True(t, hint.ScopeLocal.AppliesTo(true))
	assert.False(t, hint.ScopeLocal.AppliesTo(false))
	assert.False(t, hint.ScopeSite.AppliesTo(true))
	assert.True(t, hint.ScopeSite.AppliesTo(false))
}

func TestOwnerRoundTrip(t *testing.T) {
	owner := hint.Owner("no-bom")
	assert.Equal(t, hint.OwnerPrefix+"no-bom", owner)

	id, ok := hint.OwnerID(owner)
	assert.True(t, ok)
	assert.Equal(t, "no-bom", id)

	_, ok = hint.OwnerID("connector:local")
	assert.False(t, ok)
}
