package nobom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/hintscan/internal/hints/nobom"
	"github.com/gyaneshwarpardhi/hintscan/internal/hinttest"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

const (
	bom  = "\ufeff"
	page = "<!doctype html>\n<html><head><title>t</title></head><body><p>hi</p></body></html>"
)

func TestNoBOM(t *testing.T) {
	cases := []struct {
		name  string
		files hinttest.Files
		want  map[string]int
	}{
		{
			name:  "html without BOM passes",
			files: hinttest.Files{"index.html": page},
			want:  map[string]int{},
		},
		{
			name:  "html with BOM fails",
			files: hinttest.Files{"index.html": bom + page},
			want:  map[string]int{"index.html": 1},
		},
		{
			name: "every text resource is checked",
			files: hinttest.Files{
				"index.html": page,
				"styles.css": bom + "body { color: red; }",
				"app.js":     bom + "console.log(1);",
				"data.json":  `{"ok": true}`,
				"sub/a.html": bom + page,
				"sub/b.css":  "p {}",
			},
			want: map[string]int{"styles.css": 1, "app.js": 1, "sub/a.html": 1},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			problems := hinttest.Run(t, nobom.Definition, "warning", tc.files)
			total := 0
			for suffix, n := range tc.want {
				found := hinttest.For(problems, "/"+suffix)
				assert.Len(t, found, n, suffix)
				total += n
			}
			require.Len(t, problems, total)
			for _, p := range problems {
				assert.Equal(t, "no-bom", p.HintID)
				assert.Equal(t, problem.Warning, p.Severity)
				assert.Equal(t, problem.CategoryCompatibility, p.Category)
				assert.Equal(t, "Text based resources should not start with a BOM character.", p.Message)
			}
		})
	}
}

func TestNoBOM_BinaryResourcesAreSkipped(t *testing.T) {
	png := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
	problems := hinttest.Run(t, nobom.Definition, "error", hinttest.Files{
		"logo.png":   png,
		"index.html": page,
	})
	assert.Empty(t, problems)
}

func TestNoBOM_DefaultSeverity(t *testing.T) {
	problems := hinttest.Run(t, nobom.Definition, "default", hinttest.Files{"index.html": bom + page})
	require.Len(t, problems, 1)
	assert.Equal(t, nobom.Meta.DefaultSeverity, problems[0].Severity)
}

func TestNoBOM_ReportsAtWarningWhateverTheConfiguredSeverity(t *testing.T) {
	for _, sev := range []string{"hint", "error"} {
		problems := hinttest.Run(t, nobom.Definition, sev, hinttest.Files{"index.html": bom + page})
		require.Len(t, problems, 1, sev)
		assert.Equal(t, problem.Warning, problems[0].Severity, sev)
	}
}
