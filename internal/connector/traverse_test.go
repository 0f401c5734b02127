package connector_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/hintscan/internal/bus"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector"
	"github.com/gyaneshwarpardhi/hintscan/internal/dom"
	"github.com/gyaneshwarpardhi/hintscan/internal/event"
)

func TestTraverse_DocumentOrder(t *testing.T) {
	doc, err := dom.Parse("<!doctype html><title>t</title><h1>Title</h1><P>text</P>")
	require.NoError(t, err)

	b := bus.New(bus.Options{})
	var names []string
	var resources []string
	require.NoError(t, b.On("*", func(_ context.Context, n event.Name, p event.Payload) error {
		names = append(names, n.String())
		resources = append(resources, p.ResourceURL())
		return nil
	}))

	require.NoError(t, connector.Traverse(context.Background(), b, doc, "http://localhost/"))
	assert.Equal(t, []string{
		"traverse::start",
		"element::html",
		"element::head",
		"element::title",
		"element::body",
		"element::h1",
		"element::p",
		"traverse::end",
	}, names)
	for _, r := range resources {
		assert.Equal(t, "http://localhost/", r)
	}
}

func TestTraverse_StopsOnClosedBus(t *testing.T) {
	doc, err := dom.Parse("<p>x</p>")
	require.NoError(t, err)

	b := bus.New(bus.Options{})
	b.Close()
	err = connector.Traverse(context.Background(), b, doc, "http://localhost/")
	assert.ErrorIs(t, err, bus.ErrClosed)
}

func TestRegistry(t *testing.T) {
	r := connector.NewRegistry()
	factory := func(connector.Host, map[string]interface{}) (connector.Connector, error) { return nil, nil }
	r.Register(connector.Definition{Name: "local", Local: true, New: factory})
	assert.Panics(t, func() { r.Register(connector.Definition{Name: "local", New: factory}) })

	d, err := r.Get("local")
	require.NoError(t, err)
	assert.True(t, d.Local)
	_, err = r.Get("puppeteer")
	assert.Error(t, err)
	assert.Equal(t, []string{"local"}, r.Names())
}
