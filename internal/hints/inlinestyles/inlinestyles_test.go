package inlinestyles_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/hintscan/internal/config"
	"github.com/gyaneshwarpardhi/hintscan/internal/hints/inlinestyles"
	"github.com/gyaneshwarpardhi/hintscan/internal/hinttest"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

const (
	msgAttribute = "CSS inline styles should not be used, move styles to an external CSS file."
	msgElement   = "A style element was found, move styles to an external CSS file."
)

func page(body string) hinttest.Files {
	return hinttest.Files{"index.html": "<!doctype html>\n<html>\n<head><title>t</title></head>\n<body>\n" + body + "\n</body>\n</html>"}
}

func messages(ps []problem.Problem) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Message)
	}
	return out
}

func TestInlineStyles(t *testing.T) {
	cases := []struct {
		name string
		raw  interface{}
		body string
		want []string
	}{
		{"no styles passes", "hint", "<p>plain</p>", []string{}},
		{"style element allowed by default", "hint", "<style>p{}</style>", []string{}},
		{"style attribute fails", "hint", `<p style="color: red">x</p>`, []string{msgAttribute}},
		{
			"several style attributes",
			"hint",
			`<p style="a">x</p><div><span style="b">y</span></div>`,
			[]string{msgAttribute, msgAttribute},
		},
		{
			"style element fails when required",
			[]interface{}{"warning", map[string]interface{}{"requireNoStyleElement": true}},
			"<style>p{}</style>",
			[]string{msgElement},
		},
		{
			"style element and attribute",
			[]interface{}{"warning", map[string]interface{}{"requireNoStyleElement": true}},
			`<style>p{}</style><p style="a">x</p>`,
			[]string{msgElement, msgAttribute},
		},
		{
			"option off keeps style elements",
			[]interface{}{"warning", map[string]interface{}{"requireNoStyleElement": false}},
			`<style>p{}</style><p style="a">x</p>`,
			[]string{msgAttribute},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			problems := hinttest.Run(t, inlinestyles.Definition, tc.raw, page(tc.body))
			assert.Equal(t, tc.want, messages(problems))
		})
	}
}

func TestInlineStyles_ReportsElementLocation(t *testing.T) {
	problems := hinttest.Run(t, inlinestyles.Definition, "error", page(`<p style="color: red">x</p>`))
	require.Len(t, problems, 1)
	p := problems[0]
	assert.Equal(t, problem.Error, p.Severity)
	assert.Equal(t, problem.CategoryDevelopment, p.Category)
	assert.Equal(t, 4, p.Location.Line)
	assert.Equal(t, 0, p.Location.Column)
	assert.Equal(t, `<p style="color: red">x</p>`, p.SourceCode)
	assert.Equal(t, "html", p.CodeLanguage)
}

func TestInlineStyles_RejectsUnknownOptions(t *testing.T) {
	_, err := hinttest.New(inlinestyles.Definition, []interface{}{"warning", map[string]interface{}{"foo": 1}})
	assert.ErrorIs(t, err, config.ErrInvalidOptions)

	_, err = hinttest.New(inlinestyles.Definition, []interface{}{"warning", map[string]interface{}{"requireNoStyleElement": "yes"}})
	assert.ErrorIs(t, err, config.ErrInvalidOptions)
}
