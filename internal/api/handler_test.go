package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/hintscan/internal/api"
	"github.com/gyaneshwarpardhi/hintscan/internal/builtin"
	"github.com/gyaneshwarpardhi/hintscan/internal/config"
	"github.com/gyaneshwarpardhi/hintscan/internal/engine"
)

const baseConfig = `version: v1
connector:
  name: local
hints:
  no-inline-styles: error
engine:
  scan_workers: 1
  queue_depth: 4
`

type server struct {
	handler http.Handler
	cfgPath string
	site    string
}

func newServer(t *testing.T) *server {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "hintscan.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(baseConfig), 0o644))

	site := filepath.Join(dir, "site")
	require.NoError(t, os.MkdirAll(site, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(site, "index.html"),
		[]byte("<!doctype html>\n<html><body><p style=\"color: red\">x</p></body></html>"), 0o644))

	loader, err := config.NewLoader(cfgPath, nil)
	require.NoError(t, err)
	set := builtin.New()
	build := func(cfg *config.Config) (*engine.Engine, error) { return set.Engine(cfg, nil, nil) }
	e, err := build(loader.Config())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	sched := engine.NewScheduler(ctx, e)
	t.Cleanup(func() {
		cancel()
		sched.Shutdown()
	})
	return &server{
		handler: api.New(sched, loader, build, set.Hints, nil),
		cfgPath: cfgPath,
		site:    site,
	}
}

func (s *server) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func scanBody(target string) string {
	b, _ := json.Marshal(map[string]string{"target": target})
	return string(b)
}

func TestHealthAndReadiness(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = s.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])

	rec = s.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScanSync(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/v1/scans", scanBody(s.site))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "finished", out["state"])
	problems := out["problems"].([]interface{})
	require.Len(t, problems, 1)
	p := problems[0].(map[string]interface{})
	assert.Equal(t, "no-inline-styles", p["hint_id"])
	assert.Equal(t, "error", p["severity"])
	assert.Equal(t, map[string]interface{}{"error": float64(1)}, out["summary"])
}

func TestScanSync_ContentOverride(t *testing.T) {
	s := newServer(t)
	body, _ := json.Marshal(map[string]string{
		"target":  filepath.Join(s.site, "index.html"),
		"content": "<p>clean</p>",
	})

	rec := s.do(http.MethodPost, "/v1/scans", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode(t, rec)["problems"])
}

func TestScanSync_BadRequests(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/v1/scans", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Bad Request", decode(t, rec)["status"])
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/v1/scans", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/v1/scans", `{"target":"x","extra":1}`).Code)

	// the configured connector is local
	rec = s.do(http.MethodPost, "/v1/scans", scanBody("https://example.com/"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "failed", out["state"])
	assert.Contains(t, out["error"], "unsupported target")
}

func TestScanAsync(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/v1/scans/async", scanBody(s.site))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	id := decode(t, rec)["job_id"].(string)
	assert.Equal(t, "/v1/scans/"+id, rec.Header().Get("Location"))

	require.Eventually(t, func() bool {
		rec := s.do(http.MethodGet, "/v1/scans/"+id, "")
		return rec.Code == http.StatusOK && decode(t, rec)["status"] == "done"
	}, 5*time.Second, 20*time.Millisecond)

	job := decode(t, s.do(http.MethodGet, "/v1/scans/"+id, ""))
	report := job["report"].(map[string]interface{})
	assert.Len(t, report["problems"], 1)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/scans/nope", "").Code)
}

func TestListHints(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodGet, "/v1/hints", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "local", out["connector"])
	severities := map[string]interface{}{}
	for _, h := range out["hints"].([]interface{}) {
		m := h.(map[string]interface{})
		severities[m["id"].(string)] = m["severity"]
	}
	assert.Equal(t, map[string]interface{}{"no-bom": "off", "no-inline-styles": "error"}, severities)
}

func TestReloadConfig(t *testing.T) {
	s := newServer(t)

	updated := strings.Replace(baseConfig, "  no-inline-styles: error\n", "  no-inline-styles: error\n  no-bom: warning\n", 1)
	require.NoError(t, os.WriteFile(s.cfgPath, []byte(updated), 0o644))
	rec := s.do(http.MethodPost, "/v1/config/reload", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), decode(t, rec)["hints_count"])

	broken := strings.Replace(baseConfig, "no-inline-styles: error", "no-inline-styles: loud", 1)
	require.NoError(t, os.WriteFile(s.cfgPath, []byte(broken), 0o644))
	rec = s.do(http.MethodPost, "/v1/config/reload", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "invalid severity")

	// the previous engine keeps serving
	rec = s.do(http.MethodGet, "/v1/hints", "")
	for _, h := range decode(t, rec)["hints"].([]interface{}) {
		m := h.(map[string]interface{})
		if m["id"] == "no-bom" {
			assert.Equal(t, "warning", m["severity"])
		}
	}
}
