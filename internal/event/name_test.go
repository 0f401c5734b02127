package event_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/hintscan/internal/event"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"fetch::end::html", "fetch::end::html", true},
		{"fetch::end::html", "fetch::end::css", false},
		{"fetch::end::html", "fetch::end", false},
		{"fetch::end::*", "fetch::end::html", true},
		{"fetch::end::*", "fetch::end::script", true},
		{"fetch::end::*", "fetch::end", false},
		{"fetch::end::*", "fetch::start::html", false},
		{"fetch::*", "fetch::start", true},
		{"fetch::*", "fetch::end::html", true},
		{"parse::error::*", "parse::error::html::syntax", true},
		{"element::*", "element::h1", true},
		{"element::*", "elements::h1", false},
		{"*", "scan::start", true},
		{"scan::start", "scan::start::x", false},
		// invalid inputs never match
		{"fetch::*::html", "fetch::end::html", false},
		{"fetch::end::*", "fetch::end::*", false},
		{"", "scan::start", false},
	}
	for _, tc := range cases {
		t.Run(tc.pattern+" vs "+tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, event.Match(tc.pattern, tc.name))
		})
	}
}

func TestParseName(t *testing.T) {
	n, err := event.ParseName("fetch::end::html")
	require.NoError(t, err)
	assert.Equal(t, "fetch", n.Category())
	assert.Equal(t, "html", n.Subtype())
	assert.Equal(t, []string{"fetch", "end", "html"}, n.Segments())
	assert.Equal(t, "fetch::end::html", n.String())

	for _, bad := range []string{"", "fetch::", "::end", "fetch::::html", "fetch::end::*"} {
		_, err := event.ParseName(bad)
		assert.True(t, errors.Is(err, event.ErrInvalidName), "name %q", bad)
	}
}

func TestParsePattern(t *testing.T) {
	p, err := event.ParsePattern("fetch::end::*")
	require.NoError(t, err)
	assert.True(t, p.IsWildcard())
	assert.Equal(t, "fetch::end::*", p.String())

	p, err = event.ParsePattern("scan::end")
	require.NoError(t, err)
	assert.False(t, p.IsWildcard())
	assert.Equal(t, "scan::end", p.String())

	for _, bad := range []string{"", "*::end", "fetch::*::html", "a::::b"} {
		_, err := event.ParsePattern(bad)
		assert.True(t, errors.Is(err, event.ErrInvalidPattern), "pattern %q", bad)
	}
}

func TestTypeHelpers(t *testing.T) {
	assert.Equal(t, "element::h1", event.TypeElement("H1"))
	assert.Equal(t, "fetch::end::css", event.TypeFetchEnd("css"))
	assert.Equal(t, "parse::end::html", event.TypeParseEnd("html"))
	assert.Equal(t, "parse::error::html::syntax", event.TypeParseError("html", "syntax"))
	assert.True(t, event.Match(event.PatternFetchEndAny, event.TypeFetchEnd("image")))
}
