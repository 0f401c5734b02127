package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSite(t *testing.T) (site, cfg string) {
	t.Helper()
	dir := t.TempDir()
	site = filepath.Join(dir, "site")
	require.NoError(t, os.MkdirAll(site, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(site, "index.html"),
		[]byte("<!doctype html>\n<html><body><p style=\"a\">x</p></body></html>"), 0o644))
	cfg = filepath.Join(dir, "hintscan.toml")
	require.NoError(t, os.WriteFile(cfg, []byte(`version = "v1"

[connector]
name = "local"

[hints]
no-inline-styles = "error"
no-bom = "off"
`), 0o644))
	return site, cfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--color", "off", "--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScanCommand_JSONAndExitStatus(t *testing.T) {
	site, cfg := writeSite(t)

	out, err := execute(t, "--config", cfg, "scan", "--format", "json", site)
	assert.ErrorIs(t, err, errProblemsFound)

	var rep struct {
		State  string `json:"state"`
		Totals struct {
			Errors int `json:"errors"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, "finished", rep.State)
	assert.Equal(t, 1, rep.Totals.Errors)
}

func TestScanCommand_ContentOverridePasses(t *testing.T) {
	site, cfg := writeSite(t)

	out, err := execute(t, "--config", cfg, "scan", "--format", "stylish",
		"--content", "<p>clean</p>", filepath.Join(site, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, out, "No problems found")
}

func TestScanCommand_Errors(t *testing.T) {
	site, cfg := writeSite(t)

	_, err := execute(t, "--config", cfg, "scan", "--format", "xml", "--content", "", site)
	assert.ErrorContains(t, err, "unknown formatter")

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "scan", "--format", "json", site)
	assert.Error(t, err)

	_, err = execute(t, "--log-format", "xml", "--config", cfg, "hints")
	assert.ErrorContains(t, err, "invalid --log-format")
}

func TestHintsCommand(t *testing.T) {
	_, cfg := writeSite(t)

	out, err := execute(t, "--log-format", "text", "--config", cfg, "hints")
	require.NoError(t, err)
	assert.Regexp(t, `no-inline-styles\s+development\s+any\s+error`, out)
	assert.Regexp(t, `no-bom\s+compatibility\s+any\s+off`, out)
}

func TestScanCommand_URLUsesRemoteConnector(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<!doctype html><html><head><link rel="stylesheet" href="/site.css"></head>`+
			`<body><p style="color: red">x</p></body></html>`)
	})
	mux.HandleFunc("/site.css", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		_, _ = io.WriteString(w, "\ufeffbody {}")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, err := execute(t, "--config", "", "scan", "--format", "json", "--content", "", "--connector", "", srv.URL+"/")
	require.NoError(t, err, out)

	var rep struct {
		State  string `json:"state"`
		Totals struct {
			Errors   int `json:"errors"`
			Warnings int `json:"warnings"`
			Hints    int `json:"hints"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, "finished", rep.State)
	assert.Equal(t, 0, rep.Totals.Errors)
	assert.Equal(t, 1, rep.Totals.Warnings)
	assert.Equal(t, 1, rep.Totals.Hints)
}

func TestScanCommand_WatchNeedsLocalConnector(t *testing.T) {
	_, err := execute(t, "--config", "", "scan", "--format", "json", "--content", "", "--connector", "remote",
		"--watch", "https://example.com/")
	assert.ErrorContains(t, err, "--watch needs the local connector")

	_, err = execute(t, "--config", "", "scan", "--watch=false", "--connector", "", "--format", "json", "--content", "",
		filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
