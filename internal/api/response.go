package api

import (
	"encoding/json"
	"net/http"

	"github.com/gyaneshwarpardhi/hintscan/internal/engine"
	"github.com/gyaneshwarpardhi/hintscan/internal/hint"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

// scanResponse is a report plus the number of problems per severity name.
type scanResponse struct {
	*engine.Report
	Summary map[string]int `json:"summary"`
}

func newScanResponse(rep *engine.Report) scanResponse {
	summary := make(map[string]int, 3)
	for _, p := range rep.Problems {
		summary[p.Severity.String()]++
	}
	return scanResponse{Report: rep, Summary: summary}
}

// hintInfo is one entry of GET /v1/hints.
type hintInfo struct {
	hint.Meta
	Severity problem.Severity `json:"severity"`
	Options  interface{}      `json:"options,omitempty"`
}

// errorResponse is the error envelope of every non-2xx answer without a
// report.
type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Status: http.StatusText(status)})
}
