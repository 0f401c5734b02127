package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/hintscan/internal/config"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector"
	"github.com/gyaneshwarpardhi/hintscan/internal/engine"
	"github.com/gyaneshwarpardhi/hintscan/internal/hint"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

// maxBodyBytes caps request bodies; content overrides can be whole pages.
const maxBodyBytes = 8 << 20

// Builder turns a loaded configuration into an Engine.
type Builder func(cfg *config.Config) (*engine.Engine, error)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	sched  *engine.Scheduler
	loader *config.Loader
	build  Builder
	hints  *hint.Registry
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(sched *engine.Scheduler, loader *config.Loader, build Builder, hints *hint.Registry, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		sched:  sched,
		loader: loader,
		build:  build,
		hints:  hints,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /v1/scans", h.scanSync)
	h.mux.HandleFunc("POST /v1/scans/async", h.scanAsync)
	h.mux.HandleFunc("GET /v1/scans/{id}", h.getJob)
	h.mux.HandleFunc("GET /v1/hints", h.listHints)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(logger, h.mux)
}

type scanRequest struct {
	Target string `json:"target"`
	// Content replaces the target's bytes when the target is a single file.
	Content string `json:"content,omitempty"`
}

func (h *Handler) decodeScan(w http.ResponseWriter, r *http.Request) (scanRequest, bool) {
	var req scanRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return req, false
	}
	if req.Target == "" {
		writeError(w, http.StatusBadRequest, "target is required")
		return req, false
	}
	return req, true
}

// POST /v1/scans: run a scan and wait for its report.
func (h *Handler) scanSync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeScan(w, r)
	if !ok {
		return
	}
	target, err := connector.ParseTarget(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.sched.ScanSync(r.Context(), target, engine.ScanOptions{Content: req.Content})
	switch {
	case errors.Is(err, engine.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, engine.ErrShutdown):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case rep == nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, connector.ErrUnsupportedTarget):
		writeJSON(w, http.StatusUnprocessableEntity, newScanResponse(rep))
	default:
		writeJSON(w, http.StatusOK, newScanResponse(rep))
	}
}

// POST /v1/scans/async: queue a scan; poll GET /v1/scans/{id} for the report.
func (h *Handler) scanAsync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeScan(w, r)
	if !ok {
		return
	}
	target, err := connector.ParseTarget(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.sched.ScanAsync(target, engine.ScanOptions{Content: req.Content})
	switch {
	case errors.Is(err, engine.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		w.Header().Set("Location", "/v1/scans/"+job.ID)
		writeJSON(w, http.StatusAccepted, job)
	}
}

// GET /v1/scans/{id}: status and, once done, report of an async scan.
func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.sched.Job(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GET /v1/hints: registered hints with the severity the current config gives them.
func (h *Handler) listHints(w http.ResponseWriter, r *http.Request) {
	active := make(map[string]config.Resolved)
	for _, res := range h.sched.Engine().Hints() {
		active[res.ID] = res
	}
	metas := h.hints.Metas()
	out := make([]hintInfo, 0, len(metas))
	for _, m := range metas {
		info := hintInfo{Meta: m, Severity: problem.Off}
		if res, ok := active[m.ID]; ok {
			info.Severity = res.Severity
			info.Options = res.Options
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connector": h.sched.Engine().Config().Connector.Name,
		"hints":     out,
	})
}

// POST /v1/config/reload: hot-reload the configuration from disk.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	e, err := h.build(cfg)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.sched.SwapEngine(e)
	h.logger.Info("engine reloaded", "path", h.loader.Path(), "hints", len(e.Hints()))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":    true,
		"hints_count": len(e.Hints()),
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the scan queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.sched.QueueUtilization()
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}
